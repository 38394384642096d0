// Package sched implements the per-CPU round-robin scheduler described in
// spec.md §4.6: a spinlock-guarded run queue of quantum-tracked tasks,
// picked in submission order and requantumized once every task has been
// starved to zero. It owns the wiring that binds kernel/ksync (wait-queue
// block/wake), kernel/thread (current-task lookup, kernel-stack hook, exit)
// and kernel/percpu (the per-CPU current-task slot) together, since none of
// those lower packages may import this one without an import cycle.
package sched

import (
	"nucleus/kernel/addr"
	"nucleus/kernel/cpu"
	"nucleus/kernel/ksync"
	"nucleus/kernel/percpu"
	"nucleus/kernel/pmm"
	"nucleus/kernel/task"
	"nucleus/kernel/thread"
)

// DefaultQuantum is the number of timer ticks a task runs before being
// forced to yield, absent any other reason to reschedule.
const DefaultQuantum = 20

// runnable pairs a task with the quantum remaining on this trip through the
// run queue.
type runnable struct {
	task    *task.Task
	quantum int
}

// Scheduler is a single run queue shared by every CPU. The teacher has
// nothing structurally similar to copy (gopheros never reached
// multitasking): the spinlock-guarded-slice shape follows
// kernel/ksync.Spinlock's own lock discipline, and the picking policy is
// carried over near verbatim from the round-robin scheduler this spec
// distills.
type Scheduler struct {
	lock  ksync.Spinlock
	queue []runnable
}

// global is the single scheduler instance every CPU schedules against.
// A single shared run queue (rather than one per CPU) matches the
// original's design: any CPU may pick up any ready task.
var global = &Scheduler{}

// idleTasks holds one lazily created idle task per CPU, indexed by
// percpu.Block.CPUIndex.
var idleTasks = map[int]*task.Task{}

// Init wires the scheduler into kernel/ksync and kernel/thread's seams.
// Called once at boot, before any task blocks on a Mutex/WaitQueue or a
// thread calls Exit.
func Init() {
	ksync.SetScheduler(blockCurrent, wake, currentID)
	thread.SetCurrentAccessor(currentThread)
	thread.SetExitHook(exitCurrent)
	thread.SetKernelStackHook(func(top addr.Virtual) {
		percpu.Current().KernelStackTop = uintptr(top.Uint64())
	})
}

// AddTask enqueues t with a fresh quantum. Panics if t is already in the run
// queue, matching the teacher's assertion that double-adding a task is a
// kernel bug, not a recoverable condition.
func AddTask(t *task.Task) {
	global.lock.Acquire()
	defer global.lock.Release()

	for _, r := range global.queue {
		if r.task.ID() == t.ID() {
			panic("sched: task already in run queue")
		}
	}
	global.queue = append(global.queue, runnable{task: t, quantum: DefaultQuantum})
}

// RemoveTask drops t from the run queue. A no-op if t isn't queued.
func RemoveTask(id task.ID) {
	global.lock.Acquire()
	defer global.lock.Release()

	for i, r := range global.queue {
		if r.task.ID() == id {
			global.queue = append(global.queue[:i], global.queue[i+1:]...)
			return
		}
	}
}

// FindTask returns the queued task with the given id, or nil.
func FindTask(id task.ID) *task.Task {
	global.lock.Acquire()
	defer global.lock.Release()

	for _, r := range global.queue {
		if r.task.ID() == id {
			return r.task
		}
	}
	return nil
}

// pickReady finds the first queued, executable, non-idle task with quantum
// remaining, marking it Running. Never returns the idle task: callers fall
// back to idleTaskForCurrentCPU themselves once pickReady comes up empty.
func pickReady() *task.Task {
	global.lock.Acquire()
	defer global.lock.Release()

	for i := range global.queue {
		r := &global.queue[i]
		if r.quantum <= 0 || r.task.Priority().IsIdle() || !r.task.State().Executable() {
			continue
		}
		r.task.SetState(task.Running)
		return r.task
	}
	return nil
}

// redistribute refills every queued task's quantum. Called once pickReady
// finds nothing left to run, so a long-starved task gets another shot
// instead of leaving the CPU idle while work is actually ready.
func redistribute() {
	global.lock.Acquire()
	defer global.lock.Release()

	for i := range global.queue {
		global.queue[i].quantum = DefaultQuantum
	}
}

// PickNext returns the next task this CPU should run: the first executable,
// quantum-bearing task in the run queue, or the per-CPU idle task if none is
// ready even after a quantum redistribution.
func PickNext() *task.Task {
	if t := pickReady(); t != nil {
		return t
	}
	redistribute()
	if t := pickReady(); t != nil {
		return t
	}
	return idleTaskForCurrentCPU()
}

// idleTaskForCurrentCPU lazily creates this CPU's idle task the first time
// it's needed. The idle task is kept in idleTasks only; it is never added to
// the run queue.
func idleTaskForCurrentCPU() *task.Task {
	cpu := percpu.Current().CPUIndex

	global.lock.Acquire()
	t, ok := idleTasks[cpu]
	global.lock.Release()
	if ok {
		return t
	}

	t, err := task.NewKernel(idleAllocator, idleLoop, task.PriorityIdle)
	if err != nil {
		panic(err)
	}

	global.lock.Acquire()
	idleTasks[cpu] = t
	global.lock.Release()
	return t
}

// idleAllocator is the physical frame allocator idle tasks' kernel stacks
// come from. Installed once by kmain during boot, via SetIdleAllocator,
// before the first call that might need to create an idle task.
var idleAllocator *pmm.Allocator

// SetIdleAllocator installs the allocator PickNext uses to lazily build each
// CPU's idle task.
func SetIdleAllocator(alloc *pmm.Allocator) {
	idleAllocator = alloc
}

// idleLoop halts the CPU until the next interrupt, over and over. It never
// returns: the idle task is picked only when nothing else is ready, and
// giving up the CPU between halts would defeat the point.
func idleLoop() {
	for {
		cpu.Halt()
	}
}

// currentThread returns the thread the per-CPU current task id currently
// refers to, looked up through kernel/task's global table. Installed into
// kernel/thread via SetCurrentAccessor so the trampoline a freshly created
// thread's first switch lands on can find its own Task.
func currentThread() *thread.Thread {
	t := CurrentTask()
	if t == nil {
		panic("sched: no current task on this CPU")
	}
	return t.Thread()
}

// CurrentTask returns the task running on the calling CPU, or nil if none
// has been set yet (e.g. before the first Schedule call on this CPU).
func CurrentTask() *task.Task {
	id := percpu.Current().CurrentTaskID
	if id == 0 {
		return nil
	}
	return task.Get(task.ID(id))
}

// SetCurrentTask records t as the task now running on the calling CPU and
// marks it Running. It does not itself switch to t's thread; callers that
// want an actual context switch use Schedule.
func SetCurrentTask(t *task.Task) {
	percpu.Current().CurrentTaskID = uint64(t.ID())
	t.SetState(task.Running)
}

// currentID adapts CurrentTask to kernel/ksync's TaskID-based WaitQueue
// seam.
func currentID() ksync.TaskID {
	if t := CurrentTask(); t != nil {
		return ksync.TaskID(t.ID())
	}
	return 0
}

// blockCurrent marks the calling CPU's current task Blocked and reschedules.
// Installed into kernel/ksync via SetScheduler.
func blockCurrent() {
	if t := CurrentTask(); t != nil {
		t.SetState(task.Blocked)
	}
	Schedule()
}

// wake marks the given task Ready so PickNext considers it again.
// Installed into kernel/ksync via SetScheduler.
func wake(id ksync.TaskID) {
	if t := task.Get(task.ID(id)); t != nil {
		t.SetState(task.Ready)
	}
}

// exitCurrent marks the calling CPU's current task Terminated, drops it
// from the run queue, and reschedules. Installed into kernel/thread via
// SetExitHook; never returns, since Schedule switches away from this
// thread's stack for the last time.
func exitCurrent() {
	t := CurrentTask()
	if t != nil {
		t.SetState(task.Terminated)
		RemoveTask(t.ID())
	}
	Schedule()
	panic("sched: exitCurrent resumed after its own task was terminated")
}

// Schedule picks the next task to run and switches to it if it differs from
// the one currently running on this CPU.
func Schedule() {
	prev := CurrentTask()
	next := PickNext()

	if prev != nil && prev.ID() == next.ID() {
		return
	}

	if prev != nil {
		if prev.State() == task.Running {
			prev.SetState(task.Ready)
		}
	}
	SetCurrentTask(next)

	if prev == nil {
		thread.JumpTo(next.Thread())
		return
	}
	thread.Switch(prev.Thread(), next.Thread())
}

// TimerTick accounts one timer interrupt against the current task's
// quantum, rescheduling once it (or an idle task) has none left.
func TimerTick() {
	t := CurrentTask()
	if t == nil {
		Schedule()
		return
	}

	global.lock.Acquire()
	var exhausted bool
	for i := range global.queue {
		if global.queue[i].task.ID() == t.ID() {
			if global.queue[i].quantum > 0 {
				global.queue[i].quantum--
			}
			exhausted = global.queue[i].quantum == 0
			break
		}
	}
	global.lock.Release()

	if exhausted || t.Priority().IsIdle() {
		Schedule()
	}
}
