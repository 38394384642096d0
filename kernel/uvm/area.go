// Package uvm implements the per-task virtual memory manager described in
// spec.md §4.4: an ordered base->Area map bracketed by two permanent guard
// areas, with mmap/munmap/page_in/find_free_range on top of a
// kernel/vmm.PageTableRoot. The teacher has no per-task address space at
// all (one flat kernel mapping, no user tasks), so the area bookkeeping
// here is learned from original_source/kernel/src/user/vmm/{mod.rs,area.rs}
// and rendered in the teacher's style: plain structs and package functions,
// no builder type, no bitflags crate.
package uvm

import "nucleus/kernel/addr"

// Access is a set of page access rights (spec.md §4.4 "access bits").
type Access uint8

const (
	AccessRead Access = 1 << iota
	AccessWrite
	AccessExecute
)

// Has reports whether every bit in want is set in a.
func (a Access) Has(want Access) bool {
	return a&want == want
}

// Flags controls how an area is placed and treated by Mmap/Munmap.
type Flags uint8

const (
	// FlagFixed requires the area's requested range exactly, failing
	// WouldOverlap instead of relocating it.
	FlagFixed Flags = 1 << iota
	// FlagShared marks an area shared between address spaces. Carried
	// for API completeness; sharing itself is not yet implemented.
	FlagShared
	// FlagGrowUp marks an area that may grow upward on demand.
	FlagGrowUp
	// FlagGrowDown marks an area that may grow downward, used for stacks.
	FlagGrowDown
	// FlagPermanent marks one of the two guard areas a VMM installs at
	// construction. Mmap rejects any caller-supplied area with this flag
	// set (spec.md §4.4).
	FlagPermanent
)

// Has reports whether every bit in want is set in f.
func (f Flags) Has(want Flags) bool {
	return f&want == want
}

// Kind distinguishes what backs an area's pages.
type Kind int

const (
	// Anonymous areas are zero-filled on first access and backed by no
	// file (spec.md §4.4).
	Anonymous Kind = iota
)

// Area is a virtual memory area: a range of user-virtual addresses sharing
// one set of access rights, flags and backing (spec.md §4.4).
type Area struct {
	start, end addr.UserVirtual
	access     Access
	flags      Flags
	offset     uint64
	kind       Kind
}

// NewArea builds an area over [start, end) with the given access, flags and
// kind. The range is not validated here; Mmap validates it against the
// rules that apply to caller-supplied areas.
func NewArea(start, end addr.UserVirtual, access Access, flags Flags, kind Kind) Area {
	return Area{start: start, end: end, access: access, flags: flags, kind: kind}
}

// Base returns the area's start address, its key in a VMM's area map.
func (a Area) Base() addr.UserVirtual { return a.start }

// End returns the area's exclusive end address.
func (a Area) End() addr.UserVirtual { return a.end }

// Len returns the area's length in bytes.
func (a Area) Len() uint64 { return a.end.Uint64() - a.start.Uint64() }

// IsEmpty reports whether the area spans zero bytes.
func (a Area) IsEmpty() bool { return a.Len() == 0 }

// Access returns the area's access rights.
func (a Area) Access() Access { return a.access }

// Flags returns the area's flags.
func (a Area) Flags() Flags { return a.flags }

// Offset returns the area's resource offset (meaningful for file-backed
// areas; always zero for Anonymous).
func (a Area) Offset() uint64 { return a.offset }

// Kind returns the area's backing kind.
func (a Area) Kind() Kind { return a.kind }

// Contains reports whether address lies within the area's range.
func (a Area) Contains(address addr.UserVirtual) bool {
	return address.Uint64() >= a.start.Uint64() && address.Uint64() < a.end.Uint64()
}

// alignedEnd rounds an area's end up to a page boundary, the comparison the
// spec uses throughout mmap/munmap overlap checks (spec.md §4.4).
func (a Area) alignedEnd() addr.UserVirtual {
	return a.end.PageAlignUp()
}

// rangeOverlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect,
// both ends page-aligned up before comparing (spec.md §4.4's munmap
// classification).
func rangeOverlaps(aStart, aEnd, bStart, bEnd addr.UserVirtual) bool {
	return aStart.Uint64() < bEnd.PageAlignUp().Uint64() && aEnd.PageAlignUp().Uint64() > bStart.Uint64()
}

// rangeStrictlyContains reports whether [aStart, aEnd) strictly contains
// [bStart, bEnd): b lies fully inside a without sharing either border.
func rangeStrictlyContains(aStart, aEnd, bStart, bEnd addr.UserVirtual) bool {
	return aStart.Uint64() < bStart.Uint64() && aEnd.PageAlignUp().Uint64() > bEnd.PageAlignUp().Uint64()
}

// rangeContainedIn reports whether [aStart, aEnd) is contained in
// [bStart, bEnd), a shared border counting as containment.
func rangeContainedIn(aStart, aEnd, bStart, bEnd addr.UserVirtual) bool {
	return aStart.Uint64() >= bStart.Uint64() && aEnd.PageAlignUp().Uint64() <= bEnd.PageAlignUp().Uint64()
}
