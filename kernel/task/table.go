package task

import "nucleus/kernel/ksync"

// table is the global list of every live task, guarded by its own lock
// separate from any individual task's field locks. Tasks are appended once
// at creation and removed once at Remove; everything else only reads it.
var (
	tableLock ksync.Spinlock
	table     []*Task
)

// register adds t to the global task table. Called once by NewKernel.
func register(t *Task) {
	tableLock.Acquire()
	table = append(table, t)
	tableLock.Release()
}

// Get returns the task with the given id, if it is still in the table.
func Get(id ID) *Task {
	tableLock.Acquire()
	defer tableLock.Release()

	for _, t := range table {
		if t.id == id {
			return t
		}
	}
	return nil
}

// Remove drops the task with the given id from the table. A task removed
// while other references to it are still held (e.g. a parent waiting on it)
// is not destroyed until those references are dropped; Remove only makes it
// unreachable through Get.
func Remove(id ID) {
	tableLock.Acquire()
	defer tableLock.Release()

	for i, t := range table {
		if t.id == id {
			table = append(table[:i], table[i+1:]...)
			return
		}
	}
}

// All returns every task currently in the table. Used by diagnostics
// (e.g. a "ps"-style dump) and by tests.
func All() []*Task {
	tableLock.Acquire()
	defer tableLock.Release()

	out := make([]*Task, len(table))
	copy(out, table)
	return out
}
