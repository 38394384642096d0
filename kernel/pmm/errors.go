package pmm

import "nucleus/kernel"

var (
	// ErrOutOfMemory is returned by Allocate/AllocateRange when no
	// (run of) free frame(s) can satisfy the request. Per spec.md §7,
	// exhaustion is propagated, never fatal.
	ErrOutOfMemory = &kernel.Error{Module: "pmm", Message: "out of memory"}
)
