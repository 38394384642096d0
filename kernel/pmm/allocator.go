package pmm

import (
	"nucleus/kernel"
	"nucleus/kernel/addr"
	"nucleus/kernel/boot"
	"nucleus/kernel/ksync"
)

// Allocator hands out physical frames from a descriptor array built from the
// firmware memory map. All descriptor mutation goes through here so the
// refcount invariants (spec.md §3) hold under concurrent callers; the linear
// scan it uses is explicitly permitted by spec.md §4.2, which only specifies
// the invariants the allocator must uphold, not the search strategy.
type Allocator struct {
	state state
	lock  ksync.Spinlock
	scan  uint64 // next frame index to resume a linear scan from
}

// Init builds the descriptor array from memMap and makes the allocator ready
// to serve Allocate/AllocateRange requests.
func (a *Allocator) Init(memMap boot.MemoryMap) *kernel.Error {
	return a.state.init(memMap)
}

// Allocate reserves a single free frame, setting its refcount to 1.
func (a *Allocator) Allocate() (addr.Frame, *kernel.Error) {
	a.lock.Acquire()
	defer a.lock.Release()

	total := a.state.totalFrames
	for i := uint64(0); i < total; i++ {
		index := (a.scan + i) % total
		d := &a.state.descriptors[index]
		if d.IsFree() {
			d.Flags &^= FlagFree | FlagZeroed
			d.Refcount = 1
			a.scan = index + 1
			return addr.FrameFromIndex(index), nil
		}
	}

	return 0, ErrOutOfMemory
}

// AllocateRange reserves count contiguous free frames, each with refcount 1.
// On failure no frame in the would-be range is reserved.
func (a *Allocator) AllocateRange(count uint64) (addr.Frame, *kernel.Error) {
	if count == 0 {
		return 0, ErrOutOfMemory
	}

	a.lock.Acquire()
	defer a.lock.Release()

	total := a.state.totalFrames
	var runStart, runLen uint64
	for index := uint64(0); index < total; index++ {
		if !a.state.descriptors[index].IsFree() {
			runLen = 0
			continue
		}

		if runLen == 0 {
			runStart = index
		}
		runLen++

		if runLen == count {
			for i := runStart; i < runStart+count; i++ {
				d := &a.state.descriptors[i]
				d.Flags &^= FlagFree | FlagZeroed
				d.Refcount = 1
			}
			a.scan = runStart + count
			return addr.FrameFromIndex(runStart), nil
		}
	}

	return 0, ErrOutOfMemory
}

// Retain increments frame's refcount. The caller must already hold a
// reference; Retain on a free or out-of-range frame is a no-op.
func (a *Allocator) Retain(frame addr.Frame) {
	a.lock.Acquire()
	defer a.lock.Release()

	d := a.state.descriptor(frame)
	if d == nil || d.IsFree() {
		return
	}
	d.Refcount++
}

// Release decrements frame's refcount, freeing it once the count reaches
// zero. Release on an already-free or out-of-range frame is a no-op.
func (a *Allocator) Release(frame addr.Frame) {
	a.lock.Acquire()
	defer a.lock.Release()

	d := a.state.descriptor(frame)
	if d == nil || d.IsFree() || d.Refcount == 0 {
		return
	}

	d.Refcount--
	if d.Refcount == 0 {
		d.Flags = (d.Flags &^ (FlagKernel | FlagBoot)) | FlagFree
	}
}

// ReclaimBootMemory frees every frame still marked Boot, returning the count
// reclaimed. Called once the kernel has finished consuming the bootloader
// structures staged in reclaimable memory (spec.md §4.2).
func (a *Allocator) ReclaimBootMemory() uint64 {
	a.lock.Acquire()
	defer a.lock.Release()

	var reclaimed uint64
	for i := range a.state.descriptors {
		d := &a.state.descriptors[i]
		if d.Flags.Has(FlagBoot) {
			d.Flags = FlagFree
			d.Refcount = 0
			reclaimed++
		}
	}
	return reclaimed
}

// Stats summarizes the allocator's current frame accounting.
type Stats struct {
	Total, Free, Reserved, Kernel uint64
}

// Stats computes a fresh snapshot by scanning every descriptor.
func (a *Allocator) Stats() Stats {
	a.lock.Acquire()
	defer a.lock.Release()

	s := Stats{Total: a.state.totalFrames}
	for i := range a.state.descriptors {
		switch d := a.state.descriptors[i]; {
		case d.Flags.Has(FlagFree):
			s.Free++
		case d.Flags.Has(FlagReserved):
			s.Reserved++
		case d.Flags.Has(FlagKernel):
			s.Kernel++
		}
	}
	return s
}
