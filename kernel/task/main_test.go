package task

import (
	"unsafe"

	"nucleus/kernel/addr"
	"nucleus/kernel/boot"
	"nucleus/kernel/mem"
	"nucleus/kernel/pmm"
	"nucleus/kernel/thread"
)

// Same seam-variable setup as kernel/thread's own tests: a task's thread
// needs a kernel stack, which needs frame addressing redirected into
// Go-heap memory in a hosted test binary. kernel/thread exports
// SetStackTranslator/SetTrampolineResolver exactly so dependents like this
// package can do the same from outside kernel/thread's own test files.
var testBacking = make([]byte, 8*1024*1024)

func init() {
	base := uintptr(unsafe.Pointer(&testBacking[0]))
	translate := func(frame addr.Frame) uintptr {
		offset := uintptr(frame.Index()) * uintptr(mem.PageSize)
		if offset+uintptr(mem.PageSize) > uintptr(len(testBacking)) {
			panic("task test: frame index exceeds test backing buffer")
		}
		return base + offset
	}
	pmm.SetFrameTranslator(translate)

	thread.SetStackTranslator(func(v addr.Virtual) uintptr {
		phys, err := v.Physical()
		if err != nil {
			panic(err)
		}
		frameOffset := phys.Uint64() % uint64(mem.PageSize)
		return translate(phys.Frame()) + uintptr(frameOffset)
	})
	thread.SetTrampolineResolver(func(func()) uintptr { return 0xDEAD_BEEF })
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
