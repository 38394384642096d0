package addr

import (
	"nucleus/kernel"
	"nucleus/kernel/mem"
)

// KernelBase is the start of the higher-half direct map: the kernel
// identity-maps all of physical memory starting at this virtual address
// (spec.md §3, §6).
const KernelBase = Virtual(0xFFFF_8000_0000_0000)

// hhdmWindowSize bounds how much of the HHDM window Virtual.Physical accepts
// before refusing to treat an address as an HHDM mapping: the window runs
// from KernelBase through 0xFFFF_8FFF_FFFF_FFFF (2^44 bytes).
const hhdmWindowSize = uint64(1) << 44

// PageLevels is the number of levels in the paging hierarchy (PML4, PDPT,
// PD, PT).
const PageLevels = 4

// Virtual is a canonical 64-bit virtual address: bits 47..63 are either all
// zero or all one (spec.md §3).
type Virtual uint64

// canonicalHigh and canonicalLow are the two values bits 47..63 may take in
// a canonical address, after shifting them down to a 17-bit field.
const (
	canonicalLow  = 0x0000
	canonicalHigh = 0x1FFFF
)

// NewVirtual validates that raw is canonical, sign-extending the
// intermediate case where bit 47 is set but bits 48..63 are zero (spec.md
// §4.1), and fails with ErrInvalidVirtual for anything else.
func NewVirtual(raw uint64) (Virtual, *kernel.Error) {
	top := (raw & 0xFFFF_8000_0000_0000) >> 47
	switch top {
	case canonicalLow, canonicalHigh:
		return Virtual(raw), nil
	case 1:
		// Bit 47 set, bits 48..63 clear: sign-extend to canonical form.
		return Virtual(raw | 0xFFFF_8000_0000_0000), nil
	default:
		return 0, ErrInvalidVirtual
	}
}

// NewVirtualTruncate forces raw into canonical form by sign-extending bit 47
// across bits 48..63, discarding whatever was there before. Used for
// addresses assembled from verified-in-range components (e.g. page-table
// indices) where canonicality is true by construction.
func NewVirtualTruncate(raw uint64) Virtual {
	if raw&(1<<47) != 0 {
		return Virtual(raw | 0xFFFF_8000_0000_0000)
	}
	return Virtual(raw &^ 0xFFFF_8000_0000_0000)
}

// NewVirtualUnchecked bypasses validation. Reserved for callers that have
// already established canonicality.
func NewVirtualUnchecked(raw uint64) Virtual {
	return Virtual(raw)
}

// Uint64 returns the raw address value.
func (v Virtual) Uint64() uint64 { return uint64(v) }

// IsUser reports whether v lies in the user half of the address space
// (spec.md §3: [0, 2^47)).
func (v Virtual) IsUser() bool {
	return uint64(v) < (uint64(1) << 47)
}

// IsKernel reports whether v lies in the kernel half of the address space.
func (v Virtual) IsKernel() bool {
	return !v.IsUser()
}

// IsPageAligned reports whether v is aligned to PageSize.
func (v Virtual) IsPageAligned() bool {
	return v&Virtual(mem.PageSize-1) == 0
}

// PageAlignDown rounds v down to the nearest page boundary.
func (v Virtual) PageAlignDown() Virtual {
	return v &^ Virtual(mem.PageSize-1)
}

// PageAlignUp rounds v up to the nearest page boundary.
func (v Virtual) PageAlignUp() Virtual {
	return (v + Virtual(mem.PageSize-1)) &^ Virtual(mem.PageSize-1)
}

// PageOffset returns the offset of v within its containing page.
func (v Virtual) PageOffset() uint64 {
	return uint64(v) & uint64(mem.PageSize-1)
}

// PageIndex returns the page-table index for v at paging level i, where
// i ranges from 1 (PT, the innermost level) to 5 (one past PML4; under
// 4-level paging it only holds sign-extension bits, so it is zero for user
// addresses and 0x1FF for kernel addresses). This implements spec.md §3's
// formula:
//
//	(addr >> 12 >> ((i-1)*9)) & 0x1FF
func (v Virtual) PageIndex(level int) uint64 {
	return (uint64(v) >> mem.PageShift >> (uint(level-1) * 9)) & 0x1FF
}

// PML4Index, PDPTIndex, PDIndex and PTIndex are named accessors for the four
// paging levels walked by the page-table manager (spec.md §4.3).
func (v Virtual) PML4Index() uint64 { return v.PageIndex(4) }
func (v Virtual) PDPTIndex() uint64 { return v.PageIndex(3) }
func (v Virtual) PDIndex() uint64   { return v.PageIndex(2) }
func (v Virtual) PTIndex() uint64   { return v.PageIndex(1) }

// Physical converts an HHDM virtual address back to the physical address it
// maps, per spec.md §3: Physical::from(Virtual) is the inverse of
// Virtual::from(Physical) for addresses within the HHDM window. This is the
// one conversion in the address algebra that can fail hard (spec.md §4.1):
// a kernel-space address outside [KernelBase, KernelBase+2^44) has no
// physical counterpart to return.
func (v Virtual) Physical() (Physical, *kernel.Error) {
	if uint64(v) < uint64(KernelBase) || uint64(v)-uint64(KernelBase) >= hhdmWindowSize {
		return 0, ErrHHDMOutOfRange
	}
	return Physical(uint64(v) - uint64(KernelBase)), nil
}

// AsUser restricts v to the user-virtual subspace, failing if v is not a
// user address.
func (v Virtual) AsUser() (UserVirtual, *kernel.Error) {
	if !v.IsUser() {
		return 0, ErrNotUserAddress
	}
	return UserVirtual(v), nil
}
