package syscall

import (
	"unsafe"

	"nucleus/kernel/addr"
	"nucleus/kernel/boot"
	"nucleus/kernel/mem"
	"nucleus/kernel/pmm"
	"nucleus/kernel/uvm"
	"nucleus/kernel/vmm"
)

// A hosted test binary has no HHDM and no live page tables, so every test
// redirects frame addressing into a plain Go-heap backing buffer instead,
// composing the same seam-variable idiom kernel/uvm's own tests use.
var testBacking = make([]byte, 16*1024*1024)

// testTranslate maps a frame to its address in testBacking. Hoisted to
// package scope (rather than kept local to init, as kernel/uvm's copy of
// this seam does) so the live-address resolver below can reuse it to turn
// a resolved page table entry into a dereferenceable test address.
var testTranslate func(addr.Frame) uintptr

func init() {
	base := uintptr(unsafe.Pointer(&testBacking[0]))
	testTranslate = func(frame addr.Frame) uintptr {
		offset := uintptr(frame.Index()) * uintptr(mem.PageSize)
		if offset+uintptr(mem.PageSize) > uintptr(len(testBacking)) {
			panic("syscall test: frame index exceeds test backing buffer")
		}
		return base + offset
	}

	pmm.SetFrameTranslator(testTranslate)
	vmm.SetTableTranslator(func(frame addr.Frame) *vmm.Table {
		return (*vmm.Table)(unsafe.Pointer(testTranslate(frame)))
	})
	uvm.SetFrameZeroer(func(frame addr.Frame) {
		ptr := testTranslate(frame)
		slice := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), uint64(mem.PageSize))
		for i := range slice {
			slice[i] = 0
		}
	})

	// A hosted test binary has no MMU to translate a user-virtual address
	// on dereference, so rawCopy's live-address resolver walks the task's
	// page table by hand and lands on the same test backing buffer the
	// other seams above use.
	SetLiveAddressResolver(func(vm *uvm.VMM, page addr.UserVirtual) uintptr {
		entry, err := vm.Table().Resolve(page.Virtual())
		if err != nil {
			panic(err)
		}
		return testTranslate(entry.Frame())
	})
}

func testAllocator(usableFrames uint64) *pmm.Allocator {
	memMap := boot.MemoryMap{
		{Base: 0, Length: usableFrames * uint64(mem.PageSize), Type: boot.Usable},
	}
	a := &pmm.Allocator{}
	if err := a.Init(memMap); err != nil {
		panic(err)
	}
	return a
}

// testVMM builds a user VMM with one read-write anonymous area mapping
// [base, base+size), with its pages already faulted in so a test's copy
// calls exercise EnsureMapped's already-mapped path rather than PageIn's.
func testVMM(base addr.UserVirtual, size uint64) *uvm.VMM {
	alloc := testAllocator(256)
	v, err := uvm.NewUser(alloc)
	if err != nil {
		panic(err)
	}
	start, _, err := v.Mmap(uvm.NewArea(base, addr.UserVirtual(base.Uint64()+size), uvm.AccessRead|uvm.AccessWrite, uvm.FlagFixed, uvm.Anonymous))
	if err != nil {
		panic(err)
	}
	for page := start.PageAlignDown(); page.Uint64() < base.Uint64()+size; page = page.Add(uint64(mem.PageSize)) {
		if err := v.PageIn(page, uvm.AccessRead); err != nil {
			panic(err)
		}
	}
	return v
}
