// Package ksync provides the synchronization primitives the rest of the
// kernel is built on: a busy-wait spinlock for short critical sections and a
// blocking mutex for longer ones. Named ksync, not sync, so it doesn't shadow
// the standard library package of that name.
package ksync

import (
	"sync/atomic"

	"nucleus/kernel/cpu"
)

// Spinlock implements a lock where each task trying to acquire it busy-waits
// until the lock becomes available. Re-acquiring a lock already held by the
// current task deadlocks it.
type Spinlock struct {
	state uint32
}

// Acquire blocks until the lock can be acquired by the currently active task.
func (l *Spinlock) Acquire() {
	for !l.TryToAcquire() {
		cpu.Pause()
	}
}

// TryToAcquire attempts to acquire the lock without blocking, returning true
// if it succeeded.
func (l *Spinlock) TryToAcquire() bool {
	return atomic.CompareAndSwapUint32(&l.state, 0, 1)
}

// Release relinquishes a held lock. Calling Release while the lock is free
// has no effect.
func (l *Spinlock) Release() {
	atomic.StoreUint32(&l.state, 0)
}
