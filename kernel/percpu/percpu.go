// Package percpu implements the GS-base-relative per-CPU storage mechanism
// described in spec.md §3/§4.6: one Block per CPU, reached through the
// GS_BASE MSR, plus the preemption-disable nesting counter supplemented from
// the original kernel's x86_64/percpu.rs (a naive disable/enable pair breaks
// as soon as one disabled region calls into another).
package percpu

import (
	"unsafe"

	"nucleus/kernel/cpu"
)

// Block is the data every CPU keeps reachable through its own GS_BASE.
// kernel/sched reads and writes CurrentTaskID and writes KernelStackTop
// (through the kernel-stack hook it installs in kernel/thread); percpu
// itself only owns the raw storage and the preemption-disable primitive.
type Block struct {
	CPUIndex            int
	PreemptDisableCount uint32
	CurrentTaskID       uint64
	KernelStackTop      uintptr

	// InUserCopy is set by kernel/syscall around a raw copy to or from a
	// user buffer, after original_source's x86_64/user.rs USER_OPERATION
	// flag. This module contains no page-fault handler, and nothing in it
	// reads the flag to decide how a fault is handled.
	InUserCopy bool
}

// The following are seam variables wrapping kernel/cpu's bodyless GS_BASE
// accessors, the same idiom used throughout this tree to keep
// arch-touching code testable.
var (
	writeGSBaseFn = cpu.WriteGSBase
	readGSBaseFn  = cpu.ReadGSBase
)

// SetGSBaseHooks installs the functions Init and Current use to write and
// read GS_BASE. Exported so dependents (kernel/sched) can redirect GS_BASE
// into plain Go state in their own hosted tests, the same relationship
// pmm.SetFrameTranslator has with kernel/vmm.
func SetGSBaseHooks(write func(uintptr), read func() uintptr) {
	writeGSBaseFn = write
	readGSBaseFn = read
}

// Init installs block as the current CPU's per-CPU storage. Called once per
// CPU during boot, before any code on that CPU can call Current.
func Init(block *Block) {
	writeGSBaseFn(uintptr(unsafe.Pointer(block)))
}

// Current returns the calling CPU's per-CPU block.
func Current() *Block {
	return (*Block)(unsafe.Pointer(readGSBaseFn()))
}

// DisablePreempt increments the current CPU's preemption-disable nesting
// counter. Scheduling only happens when the counter returns to zero
// (spec.md §4.6): a function that disables preemption and calls another
// that does the same must not have the inner call re-enable it early.
func DisablePreempt() {
	Current().PreemptDisableCount++
}

// EnablePreempt decrements the nesting counter. Calling it more times than
// DisablePreempt was called is a programming error and left unchecked, the
// same as the teacher leaves Spinlock re-acquisition unchecked.
func EnablePreempt() {
	Current().PreemptDisableCount--
}

// PreemptDisabled reports whether preemption is currently disabled on this
// CPU, nested or not.
func PreemptDisabled() bool {
	return Current().PreemptDisableCount > 0
}

// BeginUserCopy marks the current CPU as being in the middle of a raw copy
// to or from user memory. kernel/syscall calls this immediately before
// touching a validated user pointer.
func BeginUserCopy() {
	Current().InUserCopy = true
}

// EndUserCopy clears the flag BeginUserCopy set.
func EndUserCopy() {
	Current().InUserCopy = false
}

// Guard disables preemption for the lifetime of a scope via defer:
//
//	guard := percpu.Disable()
//	defer guard.Release()
type Guard struct{}

// Disable is the RAII entry point for a preemption-disabled scope.
func Disable() Guard {
	DisablePreempt()
	return Guard{}
}

// Release re-enables preemption, undoing the Disable call that produced this
// guard.
func (Guard) Release() {
	EnablePreempt()
}
