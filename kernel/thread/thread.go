// Package thread implements the context-switch primitive described in
// spec.md §4.5: a kernel stack, a minimal callee-saved register frame,
// and the Switch/JumpTo/Exit orchestration around them. The actual register
// save/restore sequence is hand-written amd64 assembly that lives outside
// the core this module covers; switchContext and enterThread below are its
// Go-side declarations, the same bodyless-function idiom kernel/cpu uses for
// every other hardware primitive.
package thread

import (
	"unsafe"

	"nucleus/kernel"
	"nucleus/kernel/addr"
	"nucleus/kernel/pmm"
	"nucleus/kernel/vmm"
)

// kernelStackPages is the number of frames backing a kernel stack. Four
// pages matches the teacher's sizing for a thread's kernel-mode stack.
const kernelStackPages = 4

// reservedFrameBytes is the space at the very top of a kernel stack set
// aside for the synthetic frame a newly created thread's first switch
// "returns" into.
const reservedFrameBytes = 64

// SavedRegs is the kernel-mode register state preserved across a context
// switch. Only the registers the System V ABI requires the callee to save
// need to live here: everything else is already spilled by the compiler at
// the call site that invokes switchContext, or saved separately by the
// interrupt entry path that got the thread here in the first place.
type SavedRegs struct {
	RIP    uint64
	RBP    uint64
	RBX    uint64
	R12    uint64
	R13    uint64
	R14    uint64
	R15    uint64
	RFLAGS uint64
}

// FPUState is a 64-byte-aligned buffer sized for XSAVE/XRSTOR to spill a
// task's extended FPU/SSE/AVX register file into. 4 KiB comfortably covers
// the area XSAVE reports on every x86_64 implementation this core targets.
type FPUState struct {
	_ [4096]byte
}

// KernelEntry is the Go-level entry point of a kernel thread: a function
// taking no arguments and never expected to return (it must call Exit
// itself if it ever wants to stop running).
type KernelEntry func()

// kernelEntryTrampoline is installed as the synthetic return address every
// fresh kernel thread's stack frame points at. It bridges the raw switch
// ABI (no arguments) and a Go closure by looking the entry function up from
// the Thread the per-CPU block says is now current. A plain top-level
// function, not a closure, so functionPointer can hand its real code
// address to the assembly that plants the synthetic frame.
func kernelEntryTrampoline() {
	current().entry()
}

// current lets kernelEntryTrampoline find its way back to the Thread object
// that owns the entry function it should call; wired by kernel/sched, the
// only subsystem that knows which Thread just became current. Declared here
// instead of imported from kernel/sched to avoid an import cycle (sched
// depends on thread, not the other way round).
var current = func() *Thread { panic("thread: no scheduler installed") }

// SetCurrentAccessor wires thread's view of "the thread now running on this
// CPU" to the scheduler's per-CPU current-task bookkeeping. Called once by
// kernel/sched during boot.
func SetCurrentAccessor(fn func() *Thread) {
	current = fn
}

// KernelStack is a thread's kernel-mode stack: kernelStackPages frames,
// whose top reservedFrameBytes hold the SavedRegs frame the first switch
// into the thread pops and "returns" through. No iretq frame is planted.
type KernelStack struct {
	base  addr.Frame // first (lowest-address) frame of the stack
	pages uint64
	state *SavedRegs // where switchContext finds/leaves the saved frame
}

// newKernelStack allocates and maps a fresh kernel stack.
func newKernelStack(alloc *pmm.Allocator) (KernelStack, *kernel.Error) {
	base, err := alloc.AllocateRange(kernelStackPages)
	if err != nil {
		return KernelStack{}, err
	}
	return KernelStack{base: base, pages: kernelStackPages}, nil
}

// top returns the highest address of the stack: where rsp starts before the
// reserved synthetic frame.
func (s *KernelStack) top() addr.Virtual {
	return s.base.Add(s.pages).Virtual()
}

// reservedFrame returns the address reservedFrameBytes below the stack's
// top, where the synthetic first-switch frame lives.
func (s *KernelStack) reservedFrame() addr.Virtual {
	return addr.Virtual(s.top().Uint64() - reservedFrameBytes)
}

// Thread is one task's execution context: its kernel stack, the address
// space it runs in, and the saved segment bases swapgs exchanges on
// kernel/user transitions.
type Thread struct {
	kstack KernelStack
	space  *vmm.PageTableRoot
	fpu    FPUState

	fsBase uint64
	gsBase uint64

	entry KernelEntry
}

// NewKernel builds a thread that starts executing entry in kernel mode, on
// its own kernel stack, sharing the kernel's address space (no user half is
// mapped).
func NewKernel(alloc *pmm.Allocator, entry KernelEntry) (*Thread, *kernel.Error) {
	kstack, err := newKernelStack(alloc)
	if err != nil {
		return nil, err
	}

	t := &Thread{kstack: kstack, entry: entry}

	// Plant the saved frame the first switchContext call will pop: rip
	// points at the trampoline, callee-saved registers are zeroed.
	saved := (*SavedRegs)(rawPointer(t.kstack.reservedFrame()))
	*saved = SavedRegs{RIP: uint64(functionPointerFn(kernelEntryTrampoline)), RFLAGS: 0x202}
	t.kstack.state = saved

	return t, nil
}

// KernelStackTop returns the address to program into the TSS/per-CPU block
// as this thread's kernel stack, matching what Switch/JumpTo expect to find
// loaded once this thread becomes current.
func (t *Thread) KernelStackTop() addr.Virtual { return t.kstack.top() }

// AddressSpace returns the page table root this thread executes under.
func (t *Thread) AddressSpace() *vmm.PageTableRoot { return t.space }

// functionPointer extracts a callable Go function's entry address. Used
// only to plant a kernel thread's initial return address; the teacher's own
// cpu.IsIntel shows the codebase is already comfortable reaching past Go's
// usual abstractions at the hardware boundary.
func functionPointer(fn func()) uintptr

// functionPointerFn wraps functionPointer behind a seam var, the same
// idiom kernel/cpu applies to ID via cpuidFn, so tests don't need a real
// code pointer to exercise NewKernel's frame-planting logic.
var functionPointerFn = functionPointer

// rawPointer turns an HHDM virtual address into a raw pointer. A var, not a
// plain function, so tests can redirect kernel-stack addressing into
// Go-heap memory the same way kernel/pmm and kernel/vmm redirect frame and
// table addressing.
var rawPointer = func(v addr.Virtual) unsafe.Pointer {
	return unsafe.Pointer(uintptr(v.Uint64()))
}

// SetStackTranslator installs the function NewKernel uses to turn an HHDM
// kernel-stack address into a raw pointer. Exported so packages that build
// tasks on top of threads (kernel/task, kernel/sched) can redirect stack
// addressing into Go-heap memory in their own hosted tests, the same way
// pmm.SetFrameTranslator lets callers outside kernel/pmm do the same for
// frame addressing.
func SetStackTranslator(fn func(addr.Virtual) uintptr) {
	rawPointer = func(v addr.Virtual) unsafe.Pointer {
		return unsafe.Pointer(fn(v))
	}
}

// SetTrampolineResolver installs the function NewKernel uses to resolve the
// entry-trampoline's code address. Exported for the same cross-package
// testing reason as SetStackTranslator: functionPointer is real assembly
// with no hosted equivalent.
func SetTrampolineResolver(fn func(func()) uintptr) {
	functionPointerFn = fn
}
