package ksync

import "sync/atomic"

// Once runs a function exactly once across however many CPUs race to call
// Do, the same contract as the standard library's sync.Once. It's
// implemented separately here (instead of just importing sync) because the
// core runs before goroutine scheduling exists: sync.Once's slow path parks
// on a channel, which this kernel cannot do before kernel/sched is up.
type Once struct {
	done uint32
	lock Spinlock
}

// Do calls fn if and only if this is the first call to Do for this Once.
func (o *Once) Do(fn func()) {
	if atomic.LoadUint32(&o.done) == 1 {
		return
	}

	o.lock.Acquire()
	defer o.lock.Release()

	if o.done == 0 {
		fn()
		atomic.StoreUint32(&o.done, 1)
	}
}
