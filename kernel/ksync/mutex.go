package ksync

// Mutex blocks a task that contends it instead of busy-waiting, unlike
// Spinlock. Grounded on the wait-queue-backed mutex pattern: lock is a
// try_lock loop around a queue sleep, unlock releases then wakes one waiter
// so the just-unlocked state is visible before the next holder resumes.
type Mutex struct {
	lock  Spinlock
	queue WaitQueue
}

// Lock blocks until the mutex can be acquired.
func (m *Mutex) Lock() {
	for !m.lock.TryToAcquire() {
		m.queue.Sleep()
	}
}

// TryLock attempts to acquire the mutex without blocking.
func (m *Mutex) TryLock() bool {
	return m.lock.TryToAcquire()
}

// Unlock releases the mutex and wakes one waiting task, if any.
func (m *Mutex) Unlock() {
	m.lock.Release()
	m.queue.WakeOne()
}
