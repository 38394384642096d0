package pmm

import (
	"testing"

	"nucleus/kernel/addr"
	"nucleus/kernel/boot"
	"nucleus/kernel/mem"
)

// testMemMap builds a minimal single-usable-region map large enough to hold
// its own descriptor array plus a handful of allocatable frames.
func testMemMap(usableFrames uint64) boot.MemoryMap {
	length := usableFrames * uint64(mem.PageSize)
	return boot.MemoryMap{
		{Base: 0, Length: length, Type: boot.Usable},
	}
}

func newTestAllocator(t *testing.T, usableFrames uint64) *Allocator {
	t.Helper()
	a := &Allocator{}
	if err := a.Init(testMemMap(usableFrames)); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return a
}

func TestAllocateReleaseRoundTrip(t *testing.T) {
	a := newTestAllocator(t, 64)

	frame, err := a.Allocate()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	d := a.state.descriptor(frame)
	if d == nil || d.IsFree() || d.Refcount != 1 {
		t.Fatalf("expected freshly allocated frame to have refcount 1; got %+v", d)
	}

	a.Release(frame)
	d = a.state.descriptor(frame)
	if !d.IsFree() || d.Refcount != 0 {
		t.Fatalf("expected released frame to be free with refcount 0; got %+v", d)
	}
}

func TestFrameRefcounting(t *testing.T) {
	a := newTestAllocator(t, 64)

	frame, err := a.Allocate()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	a.Retain(frame)
	a.Retain(frame)

	d := a.state.descriptor(frame)
	if d.Refcount != 3 {
		t.Fatalf("expected refcount 3 after two Retain calls; got %d", d.Refcount)
	}

	a.Release(frame)
	if d.IsFree() {
		t.Fatal("frame should still be held after one Release")
	}
	a.Release(frame)
	if d.IsFree() {
		t.Fatal("frame should still be held after two Releases")
	}
	a.Release(frame)
	if !d.IsFree() {
		t.Fatal("frame should be free once refcount reaches zero")
	}
}

func TestAllocateExhaustion(t *testing.T) {
	a := newTestAllocator(t, 8)

	var allocated []addr.Frame
	for {
		f, err := a.Allocate()
		if err != nil {
			if err != ErrOutOfMemory {
				t.Fatalf("unexpected error: %v", err)
			}
			break
		}
		allocated = append(allocated, f)
		if len(allocated) > int(a.state.totalFrames) {
			t.Fatal("allocator handed out more frames than it tracks")
		}
	}

	if len(allocated) == 0 {
		t.Fatal("expected at least one successful allocation before exhaustion")
	}
}

func TestAllocateRangeContiguous(t *testing.T) {
	a := newTestAllocator(t, 64)

	start, err := a.AllocateRange(4)
	if err != nil {
		t.Fatalf("AllocateRange: %v", err)
	}

	for f, i := start, uint64(0); i < 4; f, i = f.Next(), i+1 {
		d := a.state.descriptor(f)
		if d.IsFree() || d.Refcount != 1 {
			t.Fatalf("frame %d in range not reserved correctly: %+v", i, d)
		}
	}
}

func TestAllocateRangeFailureOnFragmentedPool(t *testing.T) {
	a := newTestAllocator(t, 8)

	// The frames backing the descriptor array are Kernel, never free.
	total := int(a.state.totalFrames - a.state.arrayFrames)
	var allocated []addr.Frame
	for i := 0; i < total; i++ {
		f, err := a.Allocate()
		if err != nil {
			t.Fatalf("Allocate %d: %v", i, err)
		}
		allocated = append(allocated, f)
	}

	// Free every other frame so every free frame is isolated: no run of
	// two adjacent free frames exists anywhere in the pool.
	for i, f := range allocated {
		if i%2 == 0 {
			a.Release(f)
		}
	}

	if _, err := a.AllocateRange(2); err != ErrOutOfMemory {
		t.Fatalf("expected ErrOutOfMemory for a fragmented pool; got %v", err)
	}
}

func TestReclaimBootMemory(t *testing.T) {
	length := uint64(64) * uint64(mem.PageSize)
	memMap := boot.MemoryMap{
		{Base: 0, Length: length, Type: boot.Usable},
		{Base: length, Length: 4 * uint64(mem.PageSize), Type: boot.BootloaderReclaimable},
	}

	a := &Allocator{}
	if err := a.Init(memMap); err != nil {
		t.Fatalf("Init: %v", err)
	}

	bootFrame := addr.FrameFromIndex(length >> mem.PageShift)
	d := a.state.descriptor(bootFrame)
	if d == nil || !d.Flags.Has(FlagBoot) || d.IsFree() {
		t.Fatalf("expected boot-reclaimable frame to start as non-free Boot; got %+v", d)
	}

	reclaimed := a.ReclaimBootMemory()
	if reclaimed == 0 {
		t.Fatal("expected at least one frame reclaimed")
	}

	d = a.state.descriptor(bootFrame)
	if !d.IsFree() {
		t.Fatal("expected boot-reclaimable frame to be free after ReclaimBootMemory")
	}
}

func TestStats(t *testing.T) {
	a := newTestAllocator(t, 32)

	before := a.Stats()
	if before.Free == 0 {
		t.Fatal("expected some free frames initially")
	}

	if _, err := a.Allocate(); err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	after := a.Stats()
	if after.Free != before.Free-1 {
		t.Fatalf("expected Free to drop by one; before=%d after=%d", before.Free, after.Free)
	}
}
