package addr

import (
	"nucleus/kernel"
	"nucleus/kernel/mem"
)

// UserVirtualEnd is the exclusive end of the mappable user-virtual range.
// The top page ([UserVirtualEnd, 2^47)) is permanently reserved (spec.md
// §3): it defends against hardware errata such as SYSRET's requirement that
// RCX hold a canonical address, and it lets page_align_up be used on any
// in-range address without producing a non-canonical result.
const UserVirtualEnd = UserVirtual(0x0000_7FFF_FFFF_F000)

// UserVirtual is a virtual address restricted to the mappable user half of
// the address space, [0, UserVirtualEnd).
type UserVirtual uint64

// NewUserVirtual validates that raw is canonical and lies in the mappable
// user range.
func NewUserVirtual(raw uint64) (UserVirtual, *kernel.Error) {
	v, err := NewVirtual(raw)
	if err != nil {
		return 0, err
	}
	if !v.IsUser() || uint64(v) >= uint64(UserVirtualEnd) {
		return 0, ErrNotUserAddress
	}
	return UserVirtual(v), nil
}

// Virtual widens u back to a plain canonical Virtual address.
func (u UserVirtual) Virtual() Virtual { return Virtual(u) }

// Uint64 returns the raw address value.
func (u UserVirtual) Uint64() uint64 { return uint64(u) }

// IsPageAligned reports whether u is aligned to PageSize.
func (u UserVirtual) IsPageAligned() bool {
	return u&UserVirtual(mem.PageSize-1) == 0
}

// PageAlignDown rounds u down to the nearest page boundary.
func (u UserVirtual) PageAlignDown() UserVirtual {
	return u &^ UserVirtual(mem.PageSize-1)
}

// PageAlignUp rounds u up to the nearest page boundary. Because
// UserVirtualEnd already excludes the top page, this can never overflow
// into a non-canonical address for any u < UserVirtualEnd (spec.md §3: "to
// permit unchecked page-align-up").
func (u UserVirtual) PageAlignUp() UserVirtual {
	return (u + UserVirtual(mem.PageSize-1)) &^ UserVirtual(mem.PageSize-1)
}

// Add returns u+n as a new UserVirtual without bounds checking; callers
// must validate the result stays below UserVirtualEnd if that matters to
// them.
func (u UserVirtual) Add(n uint64) UserVirtual {
	return UserVirtual(uint64(u) + n)
}

// Less reports whether u sorts before other; UserVirtual has the natural
// ordering of its integer value, used to keep a VMM's area map sorted by
// base address.
func (u UserVirtual) Less(other UserVirtual) bool {
	return u < other
}
