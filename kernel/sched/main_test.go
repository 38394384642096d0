package sched

import (
	"unsafe"

	"nucleus/kernel/addr"
	"nucleus/kernel/boot"
	"nucleus/kernel/mem"
	"nucleus/kernel/percpu"
	"nucleus/kernel/pmm"
	"nucleus/kernel/thread"
)

// A hosted test binary has no HHDM, no MSRs and no real context switch to
// jump into, so every test redirects all of that into plain Go state —
// the same seam-variable idiom used throughout this tree, composed here
// across kernel/pmm, kernel/thread and kernel/percpu since kernel/sched
// depends on all three.
var testBacking = make([]byte, 8*1024*1024)

func init() {
	base := uintptr(unsafe.Pointer(&testBacking[0]))
	translate := func(frame addr.Frame) uintptr {
		offset := uintptr(frame.Index()) * uintptr(mem.PageSize)
		if offset+uintptr(mem.PageSize) > uintptr(len(testBacking)) {
			panic("sched test: frame index exceeds test backing buffer")
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

	// Switching/jumping never actually needs to transfer control in a
	// test: tests only assert on the bookkeeping Schedule performs around
	// the switch (current-task id, quantum, state), not the switch
	// itself.
	thread.SetContextSwitchHooks(
		func(prev, next **thread.SavedRegs) {},
		func(state *thread.SavedRegs) {},
	)
	var fakeFS, fakeKernelGS uintptr
	thread.SetSegmentBaseHooks(
		func() uintptr { return fakeFS },
		func(v uintptr) { fakeFS = v },
		func() uintptr { return fakeKernelGS },
		func(v uintptr) { fakeKernelGS = v },
	)

	var gsBase uintptr
	percpu.SetGSBaseHooks(func(base uintptr) { gsBase = base }, func() uintptr { return gsBase })
	percpu.Init(&percpu.Block{CPUIndex: 0})
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
