package uvm

import "nucleus/kernel"

var (
	// ErrInvalidRange is returned by Mmap/Munmap when a range is not
	// page-aligned, is empty, or extends past the mappable user range.
	ErrInvalidRange = &kernel.Error{Module: "uvm", Message: "invalid virtual address range"}
	// ErrInvalidFlags is returned by Mmap when the caller sets
	// FlagPermanent, which is reserved for the VMM's own guard areas.
	ErrInvalidFlags = &kernel.Error{Module: "uvm", Message: "invalid area flags"}
	// ErrWouldOverlap is returned by Mmap when FlagFixed is set and the
	// requested range overlaps an existing area.
	ErrWouldOverlap = &kernel.Error{Module: "uvm", Message: "area would overlap an existing mapping"}
	// ErrOutOfVirtualMemory is returned by Mmap/FindFreeRange when no gap
	// in the area map is large enough for the request.
	ErrOutOfVirtualMemory = &kernel.Error{Module: "uvm", Message: "no free virtual address range large enough"}
	// ErrNotMapped is returned by PageIn when address falls outside every
	// area.
	ErrNotMapped = &kernel.Error{Module: "uvm", Message: "address is not mapped by any area"}
	// ErrAccessDenied is returned by PageIn when the faulting access
	// exceeds the area's access rights.
	ErrAccessDenied = &kernel.Error{Module: "uvm", Message: "access denied by area permissions"}
	// ErrOutOfMemory is returned by PageIn when the frame allocator has
	// no frames left.
	ErrOutOfMemory = &kernel.Error{Module: "uvm", Message: "out of physical memory"}
)
