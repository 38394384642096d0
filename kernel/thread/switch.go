package thread

import (
	"nucleus/kernel/addr"
	"nucleus/kernel/cpu"
)

// switchContext saves the caller's callee-saved registers onto its own
// stack, stores the resulting pointer at *prev, loads the frame pointed to
// by *next, and returns there instead of to switchContext's caller. Both
// pointers are indirect (SavedRegs**) because the very first switch into a
// brand-new thread has nothing meaningful at *next until this call fills it
// in, and the same slot is read back on every subsequent switch away from
// that thread.
func switchContext(prev, next **SavedRegs)

// enterThread never returns: it loads the frame at state and jumps to it,
// used the very first time a CPU starts running at all (no previous thread
// to save into).
func enterThread(state *SavedRegs)

// switchContextFn and enterThreadFn wrap the two bodyless functions above
// behind seam vars, the same idiom kernel/cpu applies to ID via cpuidFn: a
// hosted test has no assembly to jump into, so SetContextSwitchHooks lets a
// dependent (kernel/sched) substitute a Go-level stand-in.
var (
	switchContextFn = switchContext
	enterThreadFn   = enterThread
)

// SetContextSwitchHooks installs the functions Switch and JumpTo use to
// actually transfer control between kernel stacks. Exported so packages
// that exercise Schedule/Switch/JumpTo in hosted tests (kernel/sched) can
// replace real context switching with plain bookkeeping.
func SetContextSwitchHooks(switchFn func(prev, next **SavedRegs), enterFn func(state *SavedRegs)) {
	switchContextFn = switchFn
	enterThreadFn = enterFn
}

// The four seam vars below wrap the FS/kernel-GS-base MSR accessors for the
// same reason switchContextFn/enterThreadFn are wrapped: a hosted test has
// no MSRs to read or write.
var (
	readFSBaseFn       = cpu.ReadFSBase
	writeFSBaseFn      = cpu.WriteFSBase
	readKernelGSBaseFn = cpu.ReadKernelGSBase
	writeKernelGSBaseFn = cpu.WriteKernelGSBase
)

// SetSegmentBaseHooks installs the functions Switch and JumpTo use to save
// and restore a thread's FS/kernel-GS segment bases across a switch.
// Exported for the same hosted-testing reason as SetContextSwitchHooks.
func SetSegmentBaseHooks(readFS func() uintptr, writeFS func(uintptr), readKernelGS func() uintptr, writeKernelGS func(uintptr)) {
	readFSBaseFn = readFS
	writeFSBaseFn = writeFS
	readKernelGSBaseFn = readKernelGS
	writeKernelGSBaseFn = writeKernelGS
}

// Switch saves the currently running thread's state into from and resumes
// to, updating the kernel stack the next interrupt will land on and this
// CPU's active address space if the two threads don't share one.
func Switch(from, to *Thread) {
	from.fsBase = uint64(readFSBaseFn())
	from.gsBase = uint64(readKernelGSBaseFn())

	setKernelStackFn(to.kstack.top())
	writeFSBaseFn(uintptr(to.fsBase))
	writeKernelGSBaseFn(uintptr(to.gsBase))

	if from.space != to.space && to.space != nil {
		to.space.Activate()
	}

	switchContextFn(&from.kstack.state, &to.kstack.state)
}

// JumpTo starts running to on the current CPU with no previous thread to
// save into. Used once per CPU at boot to enter the first task.
func JumpTo(to *Thread) {
	setKernelStackFn(to.kstack.top())
	writeFSBaseFn(uintptr(to.fsBase))
	writeKernelGSBaseFn(uintptr(to.gsBase))

	if to.space != nil {
		to.space.Activate()
	}

	enterThreadFn(to.kstack.state)
}

// setKernelStackFn records the next thread's kernel stack top; a seam var,
// installed once via SetKernelStackHook. The hook kernel/sched installs
// stores it in the per-CPU block; nothing in this module programs a TSS.
var setKernelStackFn = func(addr.Virtual) {}

// SetKernelStackHook wires the per-CPU kernel-stack update Switch and
// JumpTo perform on every context change. Called once by kernel/sched
// during boot.
func SetKernelStackHook(fn func(top addr.Virtual)) {
	setKernelStackFn = fn
}

// exitFn is installed by kernel/sched, the only subsystem with a replacement
// thread to switch to once the calling one is done.
var exitFn = func() { panic("thread: Exit called before scheduler installed") }

// SetExitHook wires Exit to the scheduler's task-termination-and-reschedule
// path. Called once by kernel/sched during boot.
func SetExitHook(fn func()) {
	exitFn = fn
}

// Exit terminates the calling thread by handing control to the scheduler,
// never returning.
func Exit() {
	exitFn()
}
