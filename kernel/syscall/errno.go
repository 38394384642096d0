package syscall

import (
	"nucleus/kernel"
	"nucleus/kernel/addr"
	"nucleus/kernel/uvm"
)

// Errno is a POSIX-style error number returned to user mode negated in RAX
// (spec.md §6: "[-4095, -1] are error codes").
type Errno uint64

// The subset of errno values the syscalls enumerated in spec.md §6 actually
// need. Numeric values follow the conventional Linux assignment so a libc
// built against this ABI can reuse its own errno.h.
const (
	ErrnoPerm        Errno = 1
	ErrnoNoEnt       Errno = 2
	ErrnoIO          Errno = 5
	ErrnoBadF        Errno = 9
	ErrnoNoMem       Errno = 12
	ErrnoFault       Errno = 14
	ErrnoInval       Errno = 22
	ErrnoNameTooLong Errno = 36
	ErrnoNoSys       Errno = 38
)

// errnoFor classifies a kernel.Error raised by a lower layer into the errno
// a syscall handler should return. Handlers that need a more specific code
// than this default mapping return it themselves instead of propagating the
// raw error.
func errnoFor(err *kernel.Error) Errno {
	switch err {
	case addr.ErrNotUserAddress, addr.ErrInvalidVirtual, uvm.ErrNotMapped, uvm.ErrAccessDenied:
		return ErrnoFault
	case uvm.ErrInvalidRange, uvm.ErrInvalidFlags, uvm.ErrWouldOverlap:
		return ErrnoInval
	case uvm.ErrOutOfMemory, uvm.ErrOutOfVirtualMemory:
		return ErrnoNoMem
	default:
		return ErrnoIO
	}
}
