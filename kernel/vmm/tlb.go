package vmm

import (
	"nucleus/kernel/addr"
	"nucleus/kernel/cpu"
)

// broadcastShootdownFn asks every other CPU to invalidate virt's TLB entry.
// kernel/vmm doesn't know how to address other CPUs itself, so the
// broadcaster is a seam installed via SetShootdownBroadcaster — the same
// seam-variable idiom kernel/cpu uses for its arch-specific primitives.
//
// The default does nothing, and nothing in this module installs another,
// so out of the box a shootdown flushes only the current CPU's TLB.
var broadcastShootdownFn = func(addr.Virtual) {}

// flushLocalFn invalidates a single TLB entry on the current CPU. A var, not
// a direct call to cpu.FlushTLBEntry, so tests can override it the same way
// the teacher's vmm package mocks every call into bodyless arch functions.
var flushLocalFn = cpu.FlushTLBEntry

// SetShootdownBroadcaster wires the cross-CPU IPI mechanism. No package in
// this module calls it.
func SetShootdownBroadcaster(fn func(addr.Virtual)) {
	broadcastShootdownFn = fn
}

// ShootdownEntry invalidates virt's TLB entry on the current CPU and asks
// every other CPU to do the same.
func ShootdownEntry(virt addr.Virtual) {
	flushLocalFn(uintptr(virt.Uint64()))
	broadcastShootdownFn(virt)
}
