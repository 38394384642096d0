package uvm

import (
	"nucleus/kernel"
	"nucleus/kernel/addr"
	"nucleus/kernel/mem"
)

// zeroFrame zeroes frame's contents through its HHDM virtual address.
// Production code dereferences the frame directly, since the bootloader's
// identity map is live by the time any user VMM exists; a hosted test
// redirects this into ordinary Go-heap memory the same way kernel/vmm's
// tableAt does, since the test binary has no HHDM to dereference.
var zeroFrameFn = func(frame addr.Frame) {
	kernel.Memset(uintptr(frame.Virtual().Uint64()), 0, uintptr(mem.PageSize))
}

// SetFrameZeroer overrides how PageIn zeroes a freshly allocated frame.
// Exported as a test seam for dependents of kernel/uvm, the same relation
// pmm.SetFrameTranslator has with kernel/vmm.
func SetFrameZeroer(fn func(addr.Frame)) {
	zeroFrameFn = fn
}
