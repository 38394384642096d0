package ksync

import "testing"

func TestMutexTryLock(t *testing.T) {
	var m Mutex

	if !m.TryLock() {
		t.Fatal("expected first TryLock to succeed")
	}
	if m.TryLock() {
		t.Fatal("expected second TryLock to fail while held")
	}

	m.Unlock()
	if !m.TryLock() {
		t.Fatal("expected TryLock to succeed after Unlock")
	}
}

func TestMutexUnlockWakesWaiter(t *testing.T) {
	var m Mutex
	m.Lock()

	woke := false
	SetScheduler(
		func() {},
		func(id TaskID) {
			if id == 42 {
				woke = true
			}
		},
		func() TaskID { return 42 },
	)
	defer SetScheduler(func() {}, func(TaskID) {}, func() TaskID { return 0 })

	m.queue.Sleep()
	m.Unlock()

	if !woke {
		t.Fatal("expected Unlock to wake the queued waiter")
	}
}
