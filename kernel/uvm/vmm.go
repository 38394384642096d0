package uvm

import (
	"sort"

	"nucleus/kernel"
	"nucleus/kernel/addr"
	"nucleus/kernel/ksync"
	"nucleus/kernel/mem"
	"nucleus/kernel/pmm"
	"nucleus/kernel/vmm"
)

// VMM is the per-task virtual memory manager: an ordered base->Area map
// layered over a page table, plus the allocator it draws frames from
// (spec.md §4.4). A kernel task's VMM carries no area map at all: areas is
// nil and Mmap/Munmap/PageIn/EnsureMapped/FindFreeRange all panic, mirroring the
// teacher's convention of panicking on a call that only makes sense for a
// kind of caller that should never reach it.
type VMM struct {
	lock  ksync.Spinlock
	areas []Area // kept sorted by Base(); nil for a kernel-only VMM
	table *vmm.PageTableRoot
	alloc *pmm.Allocator
}

// NewUser builds a VMM for a user task: a fresh page table plus the two
// permanent guard areas that bracket the mappable user range (spec.md
// §4.4).
func NewUser(alloc *pmm.Allocator) (*VMM, *kernel.Error) {
	table, err := vmm.NewRoot(alloc)
	if err != nil {
		return nil, err
	}

	nullGuard := NewArea(0, addr.UserVirtual(uint64(mem.PageSize)), 0, FlagPermanent, Anonymous)
	tailStart := addr.UserVirtual(uint64(addr.UserVirtualEnd) - uint64(mem.PageSize))
	tailGuard := NewArea(tailStart, addr.UserVirtualEnd, 0, FlagPermanent, Anonymous)

	return &VMM{
		areas: []Area{nullGuard, tailGuard},
		table: table,
		alloc: alloc,
	}, nil
}

// NewKernel builds a VMM for a kernel task: a page table only, no area map,
// so no area bookkeeping is paid for. No other package in this module calls
// it: kernel/task builds kernel tasks on threads with no VMM of their own.
func NewKernel(alloc *pmm.Allocator) (*VMM, *kernel.Error) {
	table, err := vmm.NewRoot(alloc)
	if err != nil {
		return nil, err
	}
	return &VMM{table: table, alloc: alloc}, nil
}

// Table returns the page table this VMM manages. kernel/thread does not read
// it: a Thread holds its own *vmm.PageTableRoot.
func (v *VMM) Table() *vmm.PageTableRoot { return v.table }

// Mmap reserves area's range, relocating it on overlap unless FlagFixed is
// set, and returns the range actually reserved (spec.md §4.4).
func (v *VMM) Mmap(area Area) (addr.UserVirtual, addr.UserVirtual, *kernel.Error) {
	if v.areas == nil {
		panic("uvm: Mmap called on a kernel-only VMM")
	}

	if !validRange(area.start, area.end) {
		return 0, 0, ErrInvalidRange
	}
	if area.flags.Has(FlagPermanent) {
		return 0, 0, ErrInvalidFlags
	}

	v.lock.Acquire()
	defer v.lock.Release()

	if area.start == 0 || v.overlapsExisting(area.start, area.end) {
		if area.flags.Has(FlagFixed) {
			return 0, 0, ErrWouldOverlap
		}
		start, end, err := v.findFreeRangeLocked(area.Len())
		if err != nil {
			return 0, 0, err
		}
		area.start, area.end = start, end
	}

	v.insertLocked(area)
	return area.start, area.end, nil
}

// Munmap unmaps every page in [start, end), splitting or truncating any
// area that only partially overlaps the range, and releases every
// previously-present frame back to the allocator (spec.md §4.4). Unlike the
// reference description, which leaves permanent guard areas unprotected at
// this API, a range intersecting one fails ErrInvalidRange instead of
// silently unmapping a guard.
func (v *VMM) Munmap(start, end addr.UserVirtual) *kernel.Error {
	if v.areas == nil {
		panic("uvm: Munmap called on a kernel-only VMM")
	}
	if !validRange(start, end) {
		return ErrInvalidRange
	}

	v.lock.Acquire()
	defer v.lock.Release()

	for _, a := range v.areas {
		if a.flags.Has(FlagPermanent) && rangeOverlaps(start, end, a.start, a.end) {
			return ErrInvalidRange
		}
	}

	endAligned := end.PageAlignUp()

	var remaining []Area
	var affected []Area
	for _, a := range v.areas {
		if rangeOverlaps(start, end, a.start, a.end) {
			affected = append(affected, a)
		} else {
			remaining = append(remaining, a)
		}
	}
	v.areas = remaining

	for _, a := range affected {
		var unmapStart, unmapEnd addr.UserVirtual

		switch {
		case rangeContainedIn(a.start, a.end, start, end):
			// The unmap range fully contains the area: drop it whole.
			unmapStart, unmapEnd = a.start, a.end

		case rangeStrictlyContains(a.start, a.end, start, end):
			// The area strictly contains the unmap range: split it into
			// a left and a right remnant.
			left := a
			left.end = start
			right := a
			right.start = endAligned

			v.insertLocked(left)
			v.insertLocked(right)
			unmapStart, unmapEnd = start, end

		case rangeOverlaps(start, end, a.start, a.end):
			if end.Uint64() > a.start.Uint64() && end.Uint64() <= a.end.Uint64() {
				// Unmap eats the area's start.
				unmapStart, unmapEnd = a.start, endAligned
				a.start = endAligned
			} else if start.Uint64() >= a.start.Uint64() && start.Uint64() < a.end.Uint64() {
				// Unmap eats the area's end.
				unmapStart, unmapEnd = start, a.end
				a.end = start
			} else {
				panic("uvm: munmap overlap classification is inconsistent")
			}
			v.insertLocked(a)

		default:
			panic("uvm: munmap matched an area that fits none of the overlap cases")
		}

		v.unmapRangeLocked(unmapStart, unmapEnd)
	}

	return nil
}

// PageIn resolves a page fault at address with the given access, mapping a
// freshly zeroed frame if the faulting area allows it (spec.md §4.4).
func (v *VMM) PageIn(address addr.UserVirtual, access Access) *kernel.Error {
	if v.areas == nil {
		panic("uvm: PageIn called on a kernel-only VMM")
	}

	v.lock.Acquire()
	area, found := v.findAreaLocked(address)
	v.lock.Release()
	if !found {
		return ErrNotMapped
	}
	if !area.access.Has(access) {
		return ErrAccessDenied
	}

	return v.pageInArea(address, area)
}

// EnsureMapped is PageIn's counterpart for callers that do not know whether
// address already has a frame behind it, such as kernel/syscall's validated
// user-memory copies: unlike PageIn, which assumes the caller reached it
// because the page genuinely faulted, EnsureMapped only pages in a frame if
// one is not already present, and still enforces the area's access rights
// either way.
func (v *VMM) EnsureMapped(address addr.UserVirtual, access Access) *kernel.Error {
	if v.areas == nil {
		panic("uvm: EnsureMapped called on a kernel-only VMM")
	}

	v.lock.Acquire()
	area, found := v.findAreaLocked(address)
	v.lock.Release()
	if !found {
		return ErrNotMapped
	}
	if !area.access.Has(access) {
		return ErrAccessDenied
	}

	if _, err := v.table.Resolve(address.PageAlignDown().Virtual()); err == nil {
		return nil
	}
	return v.pageInArea(address, area)
}

func (v *VMM) pageInArea(address addr.UserVirtual, area Area) *kernel.Error {
	switch area.kind {
	case Anonymous:
		frame, err := v.alloc.Allocate()
		if err != nil {
			return ErrOutOfMemory
		}
		zeroFrameFn(frame)

		page := address.PageAlignDown()
		flags := entryFlagsFromAccess(area.access) | vmm.FlagUser
		if mapErr := v.table.Map(v.alloc, page.Virtual(), frame, flags); mapErr != nil {
			panic("uvm: page_in attempted to map an already-mapped page")
		}
		return nil
	default:
		return ErrNotMapped
	}
}

// FindFreeRange returns the first gap between adjacent areas at least size
// bytes long (spec.md §4.4).
func (v *VMM) FindFreeRange(size uint64) (addr.UserVirtual, addr.UserVirtual, *kernel.Error) {
	if v.areas == nil {
		panic("uvm: FindFreeRange called on a kernel-only VMM")
	}

	v.lock.Acquire()
	defer v.lock.Release()
	return v.findFreeRangeLocked(size)
}

func (v *VMM) findFreeRangeLocked(size uint64) (addr.UserVirtual, addr.UserVirtual, *kernel.Error) {
	for i := 0; i+1 < len(v.areas); i++ {
		start := v.areas[i].alignedEnd()
		end := v.areas[i+1].Base()
		if end.Uint64()-start.Uint64() >= size {
			return start, addr.UserVirtual(start.Uint64() + size), nil
		}
	}
	return 0, 0, ErrOutOfVirtualMemory
}

func (v *VMM) overlapsExisting(start, end addr.UserVirtual) bool {
	for _, a := range v.areas {
		if rangeOverlaps(start, end, a.start, a.end) {
			return true
		}
	}
	return false
}

func (v *VMM) findAreaLocked(address addr.UserVirtual) (Area, bool) {
	i := sort.Search(len(v.areas), func(i int) bool {
		return v.areas[i].start.Uint64() > address.Uint64()
	})
	if i == 0 {
		return Area{}, false
	}
	a := v.areas[i-1]
	if !a.Contains(address) {
		return Area{}, false
	}
	return a, true
}

// insertLocked inserts area into the sorted area slice, keeping it ordered
// by base address the way original_source's BTreeMap keeps it ordered by
// key.
func (v *VMM) insertLocked(area Area) {
	i := sort.Search(len(v.areas), func(i int) bool {
		return v.areas[i].start.Uint64() >= area.start.Uint64()
	})
	v.areas = append(v.areas, Area{})
	copy(v.areas[i+1:], v.areas[i:])
	v.areas[i] = area
}

// unmapRangeLocked walks [start, end) page by page, unmapping and
// releasing any frame it finds present.
func (v *VMM) unmapRangeLocked(start, end addr.UserVirtual) {
	for page := start.PageAlignDown(); page.Uint64() < end.Uint64(); page = page.Add(uint64(mem.PageSize)) {
		frame, err := v.table.Unmap(page.Virtual())
		if err == nil {
			v.alloc.Release(frame)
		}
	}
}

// validRange reports whether [start, end) is a legal mmap/munmap argument:
// page-aligned start, non-empty, and not reaching into the reserved top
// page (spec.md §4.4).
func validRange(start, end addr.UserVirtual) bool {
	return start.IsPageAligned() && end.Uint64() <= uint64(addr.UserVirtualEnd) && end.Uint64() > start.Uint64()
}

// entryFlagsFromAccess converts area access rights into page table entry
// flags, the same translation original_source's Access->PageEntryFlags
// impl performs.
func entryFlagsFromAccess(access Access) vmm.EntryFlag {
	var flags vmm.EntryFlag
	if access.Has(AccessRead) {
		flags |= vmm.FlagPresent
	}
	if access.Has(AccessWrite) {
		flags |= vmm.FlagRW
	}
	if !access.Has(AccessExecute) {
		flags |= vmm.FlagNoExecute
	}
	return flags
}
