package addr

import "nucleus/kernel"

var (
	// ErrInvalidPhysical is returned when a raw value does not fit within
	// the architecture's physical address width.
	ErrInvalidPhysical = &kernel.Error{Module: "addr", Message: "physical address out of range"}

	// ErrInvalidVirtual is returned when a raw value is not a canonical
	// 64-bit address (spec.md §3: bits 47..63 must all agree).
	ErrInvalidVirtual = &kernel.Error{Module: "addr", Message: "virtual address is not canonical"}

	// ErrNotUserAddress is returned when a canonical virtual address lies
	// outside the user half of the address space.
	ErrNotUserAddress = &kernel.Error{Module: "addr", Message: "address is not a user-virtual address"}

	// ErrHHDMOutOfRange is returned by Virtual.Physical when the address
	// is a kernel-space address but falls outside the HHDM window, making
	// the physical/virtual conversion lossy in a way that must not be
	// silently accepted (spec.md §4.1: "the sole lossy conversion that
	// may panic").
	ErrHHDMOutOfRange = &kernel.Error{Module: "addr", Message: "virtual address outside HHDM window"}
)
