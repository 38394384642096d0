package thread

import (
	"unsafe"

	"nucleus/kernel/addr"
	"nucleus/kernel/boot"
	"nucleus/kernel/mem"
	"nucleus/kernel/pmm"
)

// A hosted test binary has no HHDM and cannot jump into raw assembly, so
// every test redirects stack addressing into Go-heap memory and replaces
// the actual context-switch/trampoline machinery with plain Go calls — the
// same seam-variable idiom kernel/pmm and kernel/vmm use for frame and
// table addressing.
var testBacking = make([]byte, 8*1024*1024)

func init() {
	base := uintptr(unsafe.Pointer(&testBacking[0]))
	translate := func(frame addr.Frame) uintptr {
		offset := uintptr(frame.Index()) * uintptr(mem.PageSize)
		if offset+uintptr(mem.PageSize) > uintptr(len(testBacking)) {
			panic("thread test: frame index exceeds test backing buffer")
		}
		return base + offset
	}
	pmm.SetFrameTranslator(translate)

	// A KernelStack's addresses are HHDM virtual addresses derived from
	// real frame numbers, not real pointers; reverse them back through a
	// frame to land on the same Go-heap offset the translator above uses.
	SetStackTranslator(func(v addr.Virtual) uintptr {
		phys, err := v.Physical()
		if err != nil {
			panic(err)
		}
		frameOffset := phys.Uint64() % uint64(mem.PageSize)
		return translate(phys.Frame()) + uintptr(frameOffset)
	})

	// functionPointer is real assembly with no hosted equivalent; tests
	// only need a distinguishable, stable marker value to assert against.
	SetTrampolineResolver(func(func()) uintptr { return trampolineMarker })
}

const trampolineMarker = 0xDEAD_BEEF

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
