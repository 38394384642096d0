package ksync

// TaskID identifies a blocked task. ksync cannot import kernel/task's real
// task-id type because kernel/sched (which depends on ksync for its run-queue
// lock) would then import ksync, which would import sched's dependency in
// turn; TaskID is kept as a bare uint64 to break the cycle.
type TaskID = uint64

// The wait queue does not know how to actually suspend or resume a task —
// that's the scheduler's job. kernel/sched wires these in during boot via
// SetScheduler, the same seam-variable idiom kernel/cpu uses for its
// arch-specific functions.
var (
	blockCurrentTask = func() {}
	wakeTask         = func(TaskID) {}
	currentTaskID    = func() TaskID { return 0 }
)

// SetScheduler installs the task-blocking primitives WaitQueue needs. Called
// once by kernel/sched during boot, before any task can contend a Mutex.
func SetScheduler(block func(), wake func(TaskID), current func() TaskID) {
	blockCurrentTask = block
	wakeTask = wake
	currentTaskID = current
}

// WaitQueue is a FIFO queue of tasks blocked on some condition, guarded by
// its own spinlock. It makes no guarantee that the longest-waiting task wakes
// first if woken externally.
type WaitQueue struct {
	lock    Spinlock
	waiters []TaskID
}

// Sleep enqueues the current task and blocks it. The caller must arrange for
// someone to call WakeOne once the condition it's waiting for holds.
func (q *WaitQueue) Sleep() {
	q.lock.Acquire()
	q.waiters = append(q.waiters, currentTaskID())
	q.lock.Release()
	blockCurrentTask()
}

// WakeOne resumes the longest-waiting task, if any, returning whether a
// waiter was found.
func (q *WaitQueue) WakeOne() bool {
	q.lock.Acquire()
	defer q.lock.Release()

	if len(q.waiters) == 0 {
		return false
	}

	id := q.waiters[0]
	q.waiters = q.waiters[1:]
	wakeTask(id)
	return true
}
