// Package cpu exposes the narrow set of architecture-specific primitives
// that the rest of the kernel is built against. Every function declared here
// with no body is implemented in hand-written amd64 assembly that lives
// outside the core covered by this module (see spec.md §1); the Go
// declarations exist purely to give the rest of the tree a typed, testable
// seam to call (and, in tests, to replace) instead of poking the hardware
// directly.
package cpu

var (
	cpuidFn = ID
)

// EnableInterrupts enables interrupt handling on the current CPU.
func EnableInterrupts()

// DisableInterrupts disables interrupt handling on the current CPU.
func DisableInterrupts()

// Halt stops instruction execution until the next interrupt.
func Halt()

// Pause executes a spin-loop hint instruction; used by Spinlock while
// busy-waiting.
func Pause()

// FlushTLBEntry flushes a single TLB entry for the given virtual address on
// the current CPU only.
func FlushTLBEntry(virtAddr uintptr)

// FlushTLBAll flushes the entire TLB on the current CPU by reloading CR3.
func FlushTLBAll()

// SwitchPDT sets CR3 to the given physical address and flushes the TLB.
func SwitchPDT(pdtPhysAddr uintptr)

// ActivePDT returns the physical address currently loaded in CR3.
func ActivePDT() uintptr

// ReadCR2 returns the value stored in the CR2 register, i.e. the faulting
// address of the most recent page fault on this CPU.
func ReadCR2() uint64

// ReadGSBase returns the value of the GS_BASE MSR.
func ReadGSBase() uintptr

// WriteGSBase sets the GS_BASE MSR.
func WriteGSBase(base uintptr)

// ReadKernelGSBase returns the value of the KERNEL_GS_BASE MSR (the value
// swapgs exchanges GS_BASE with).
func ReadKernelGSBase() uintptr

// WriteKernelGSBase sets the KERNEL_GS_BASE MSR.
func WriteKernelGSBase(base uintptr)

// ReadFSBase returns the value of the FS_BASE MSR.
func ReadFSBase() uintptr

// WriteFSBase sets the FS_BASE MSR.
func WriteFSBase(base uintptr)

// XSave writes the calling task's extended FPU/SSE/AVX state to the 64-byte
// aligned buffer at addr.
func XSave(addr uintptr)

// XRestore loads extended FPU/SSE/AVX state from the 64-byte aligned buffer
// at addr.
func XRestore(addr uintptr)

// ID returns information about the CPU and its features. It is implemented
// as a CPUID instruction with EAX=leaf and returns the values placed in EAX,
// EBX, ECX and EDX.
func ID(leaf uint32) (uint32, uint32, uint32, uint32)

// IsIntel returns true if the code is running on an Intel processor.
func IsIntel() bool {
	_, ebx, ecx, edx := cpuidFn(0)
	return ebx == 0x756e6547 && // "Genu"
		edx == 0x49656e69 && // "ineI"
		ecx == 0x6c65746e // "ntel"
}
