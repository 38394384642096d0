package addr

import "nucleus/kernel/mem"

// Frame is a page-aligned physical address: a 4 KiB slice of RAM identified
// by its base address (spec.md §3). Frame has a natural ordering and steps
// forward/backward by PageSize.
type Frame Physical

// FrameFromIndex builds a Frame from a frame index (address >> PageShift).
func FrameFromIndex(index uint64) Frame {
	return Frame(index << mem.PageShift)
}

// Physical widens f back to a plain Physical address.
func (f Frame) Physical() Physical { return Physical(f) }

// Index returns the frame index, f.Physical() >> PageShift.
func (f Frame) Index() uint64 {
	return uint64(f) >> mem.PageShift
}

// Next returns the frame immediately after f.
func (f Frame) Next() Frame {
	return f + Frame(mem.PageSize)
}

// Prev returns the frame immediately before f.
func (f Frame) Prev() Frame {
	return f - Frame(mem.PageSize)
}

// Add steps f forward by n frames.
func (f Frame) Add(n uint64) Frame {
	return f + Frame(n*uint64(mem.PageSize))
}

// Less reports whether f sorts before other.
func (f Frame) Less(other Frame) bool {
	return f < other
}

// Virtual returns the HHDM virtual address that maps this frame.
func (f Frame) Virtual() Virtual {
	return f.Physical().Virtual()
}
