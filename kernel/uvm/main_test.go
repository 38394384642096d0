package uvm

import (
	"unsafe"

	"nucleus/kernel/addr"
	"nucleus/kernel/boot"
	"nucleus/kernel/mem"
	"nucleus/kernel/pmm"
	"nucleus/kernel/vmm"
)

// A hosted test binary has no HHDM, so every test redirects frame
// addressing into a plain Go-heap backing buffer instead — the same
// seam-variable idiom kernel/vmm and kernel/pmm use for their own tests,
// composed here since kernel/uvm depends on both.
var testBacking = make([]byte, 16*1024*1024)

func init() {
	base := uintptr(unsafe.Pointer(&testBacking[0]))
	translate := func(frame addr.Frame) uintptr {
		offset := uintptr(frame.Index()) * uintptr(mem.PageSize)
		if offset+uintptr(mem.PageSize) > uintptr(len(testBacking)) {
			panic("uvm test: frame index exceeds test backing buffer")
		}
		return base + offset
	}

	pmm.SetFrameTranslator(translate)
	vmm.SetTableTranslator(func(frame addr.Frame) *vmm.Table {
		return (*vmm.Table)(unsafe.Pointer(translate(frame)))
	})
	SetFrameZeroer(func(frame addr.Frame) {
		ptr := translate(frame)
		slice := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), uint64(mem.PageSize))
		for i := range slice {
			slice[i] = 0
		}
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
