package vmm

import (
	"unsafe"

	"nucleus/kernel/addr"
	"nucleus/kernel/boot"
	"nucleus/kernel/mem"
	"nucleus/kernel/pmm"
)

// Both pmm's descriptor array and vmm's page tables normally live behind the
// bootloader's HHDM mapping, which doesn't exist in a hosted test binary.
// Every test in this package redirects frame addressing into Go-heap memory
// instead, the same seam-variable idiom kernel/cpu's callers use throughout
// this tree.
var testBacking = make([]byte, 8*1024*1024)

func init() {
	base := uintptr(unsafe.Pointer(&testBacking[0]))
	translate := func(frame addr.Frame) uintptr {
		offset := uintptr(frame.Index()) * uintptr(mem.PageSize)
		if offset+uintptr(mem.PageSize) > uintptr(len(testBacking)) {
			panic("vmm test: frame index exceeds test backing buffer")
		}
		return base + offset
	}

	pmm.SetFrameTranslator(translate)
	tableAt = func(frame addr.Frame) *Table {
		return (*Table)(unsafe.Pointer(translate(frame)))
	}
	flushLocalFn = func(uintptr) {}
}

// testAllocator builds a pmm.Allocator over a single Usable region of
// usableFrames frames, backed by testBacking via the translator above.
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
