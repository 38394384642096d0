// Package addr implements the typed address and frame algebra described in
// spec.md §3/§4.1: physical addresses, canonical virtual addresses, the
// user-virtual subspace, and page frames. None of it is architecture-coupled
// beyond the amd64 page/level geometry it encodes as constants, so it is kept
// free of unsafe pointer tricks — callers convert to/from uintptr at the
// boundary where they actually touch memory.
package addr

import (
	"nucleus/kernel"
	"nucleus/kernel/mem"
)

// physAddrBits is the number of usable bits in a physical address: the core
// targets 4-level paging, which limits physical addresses to 52 bits (the
// top 12 bits of a 64-bit value must be zero).
const physAddrBits = 52

// Physical is a physical memory address in [0, 2^52).
type Physical uint64

// NewPhysical validates that addr fits in the architecture's physical
// address width and returns InvalidPhysical if it does not.
func NewPhysical(raw uint64) (Physical, *kernel.Error) {
	if raw>>physAddrBits != 0 {
		return 0, ErrInvalidPhysical
	}
	return Physical(raw), nil
}

// NewPhysicalTruncate masks off any bits above the physical address width
// instead of failing. Named _truncate per spec.md §4.1's arithmetic
// convention: callers opting into wraparound must say so explicitly.
func NewPhysicalTruncate(raw uint64) Physical {
	return Physical(raw & ((1 << physAddrBits) - 1))
}

// NewPhysicalUnchecked bypasses validation entirely. Reserved for callers
// that have already established the invariant (e.g. decoding a value that
// was itself produced by this package).
func NewPhysicalUnchecked(raw uint64) Physical {
	return Physical(raw)
}

// Uint64 returns the raw address value.
func (p Physical) Uint64() uint64 { return uint64(p) }

// IsPageAligned reports whether p is aligned to PageSize.
func (p Physical) IsPageAligned() bool {
	return p&Physical(mem.PageSize-1) == 0
}

// AlignDown rounds p down to the nearest multiple of align, which must be a
// power of two.
func (p Physical) AlignDown(align uint64) Physical {
	return Physical(uint64(p) &^ (align - 1))
}

// AlignUp rounds p up to the nearest multiple of align, which must be a
// power of two.
func (p Physical) AlignUp(align uint64) Physical {
	return Physical((uint64(p) + align - 1) &^ (align - 1))
}

// PageOffset returns the offset of p within its containing page.
func (p Physical) PageOffset() uint64 {
	return uint64(p) & uint64(mem.PageSize-1)
}

// PageIndex returns the page-aligned index of p, i.e. p >> PageShift.
func (p Physical) PageIndex() uint64 {
	return uint64(p) >> mem.PageShift
}

// Add returns p+n, as a new Physical. The caller is responsible for ensuring
// the result stays within the physical address width; Add does not check it
// because it is used on the hot path of frame iteration.
func (p Physical) Add(n uint64) Physical {
	return Physical(uint64(p) + n)
}

// Frame rounds p down to its containing Frame.
func (p Physical) Frame() Frame {
	return Frame(p.AlignDown(uint64(mem.PageSize)))
}

// Virtual returns the HHDM virtual address that maps p, i.e.
// KernelBase + p. This is the sole place the HHDM identity-mapping rule
// (spec.md §3) is spelled out on the physical side; the inverse lives on
// Virtual.Physical.
func (p Physical) Virtual() Virtual {
	return Virtual(uint64(KernelBase) + uint64(p))
}
