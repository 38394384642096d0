// Package pmm implements the physical frame allocator described in spec.md
// §3/§4.2: a descriptor per physical RAM frame, reference-counted ownership,
// and a linear-scan allocator that the spec explicitly permits (§4.2: "the
// reference implementation is linear-scan; the specification does not
// require it") in favor of the invariants the descriptor array must uphold.
package pmm

// FrameFlags is a bitset describing the state of a physical frame.
type FrameFlags uint32

const (
	// FlagPoisoned marks a frame the allocator has not classified yet, or
	// one reported as bad memory by the firmware. Poisoned frames are
	// never handed out.
	FlagPoisoned FrameFlags = 1 << iota
	// FlagReserved marks memory the kernel must never touch (firmware
	// reserved regions, ACPI tables, the framebuffer).
	FlagReserved
	// FlagFree marks a frame available for allocation. Mutually
	// exclusive with FlagReserved and FlagPoisoned.
	FlagFree
	// FlagZeroed marks a free frame whose contents are known to be all
	// zero, meaningful only while FlagFree is also set.
	FlagZeroed
	// FlagKernel marks a frame owned by the kernel (its page tables,
	// heap, or other kernel-only data).
	FlagKernel
	// FlagBoot marks a frame holding bootloader-reclaimable structures;
	// cleared by ReclaimBootMemory once the kernel no longer needs them.
	FlagBoot
)

// Has reports whether all bits in mask are set.
func (f FrameFlags) Has(mask FrameFlags) bool { return f&mask == mask }

// FrameDescriptor is the fixed-layout, per-frame record the allocator
// maintains. Invariants (spec.md §3):
//
//   - FlagFree is mutually exclusive with FlagReserved and FlagPoisoned.
//   - if FlagFree is set, Refcount == 0.
//   - when Refcount reaches zero on release, FlagFree is set.
//   - FlagZeroed is meaningful only on free frames.
type FrameDescriptor struct {
	Flags    FrameFlags
	Refcount uint32
}

// IsFree reports whether the descriptor's frame is currently free.
func (d *FrameDescriptor) IsFree() bool { return d.Flags.Has(FlagFree) }
