package pmm

import "nucleus/kernel/addr"

// OwnedFrame is an RAII handle over a single allocated frame: as long as a
// live OwnedFrame exists, the frame it wraps is guaranteed allocated. Callers
// that need to hand the frame off to a structure with its own lifetime
// (a page table entry, a VMM area) call Into to take the frame out of RAII
// management without releasing it.
type OwnedFrame struct {
	alloc *Allocator
	frame addr.Frame
	taken bool
}

// Own wraps an already-allocated frame for RAII-style release.
func Own(alloc *Allocator, frame addr.Frame) OwnedFrame {
	return OwnedFrame{alloc: alloc, frame: frame}
}

// Frame returns the wrapped frame without affecting ownership.
func (o *OwnedFrame) Frame() addr.Frame { return o.frame }

// Into releases RAII ownership and returns the frame; the caller becomes
// responsible for eventually calling Allocator.Release on it. Calling Drop
// after Into has no effect.
func (o *OwnedFrame) Into() addr.Frame {
	o.taken = true
	return o.frame
}

// Drop releases the frame if ownership hasn't already been transferred via
// Into. Idempotent.
func (o *OwnedFrame) Drop() {
	if o.taken {
		return
	}
	o.taken = true
	o.alloc.Release(o.frame)
}

// OwnedRange is the RAII handle over a contiguous run of frames returned by
// Allocator.AllocateRange.
type OwnedRange struct {
	alloc *Allocator
	start addr.Frame
	count uint64
	taken bool
}

// OwnRange wraps an already-allocated contiguous run for RAII-style release.
func OwnRange(alloc *Allocator, start addr.Frame, count uint64) OwnedRange {
	return OwnedRange{alloc: alloc, start: start, count: count}
}

// Start returns the first frame in the range without affecting ownership.
func (o *OwnedRange) Start() addr.Frame { return o.start }

// Count returns the number of frames in the range.
func (o *OwnedRange) Count() uint64 { return o.count }

// Into releases RAII ownership and returns the range's start frame and
// count; the caller becomes responsible for releasing each frame. Calling
// Drop after Into has no effect.
func (o *OwnedRange) Into() (addr.Frame, uint64) {
	o.taken = true
	return o.start, o.count
}

// Drop releases every frame in the range if ownership hasn't already been
// transferred via Into. Idempotent.
func (o *OwnedRange) Drop() {
	if o.taken {
		return
	}
	o.taken = true
	for f, i := o.start, uint64(0); i < o.count; f, i = f.Next(), i+1 {
		o.alloc.Release(f)
	}
}
