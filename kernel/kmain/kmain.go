// Package kmain sequences kernel boot: it turns the boot protocol's raw
// memory map and kernel image description into a running scheduler with at
// least one CPU ready to pick tasks (spec.md §3/§4.6).
package kmain

import (
	"nucleus/kernel"
	"nucleus/kernel/addr"
	"nucleus/kernel/boot"
	"nucleus/kernel/kfmt/early"
	"nucleus/kernel/mem"
	"nucleus/kernel/percpu"
	"nucleus/kernel/pmm"
	"nucleus/kernel/sched"
	"nucleus/kernel/vmm"
)

var errKmainReturned = &kernel.Error{Module: "kmain", Message: "Kmain returned"}

// frameAllocator is the single physical frame allocator every subsystem
// brought up by Kmain shares.
var frameAllocator pmm.Allocator

// Kmain brings up the kernel core against the boot info the platform
// bring-up glue (deliberately out of this core's scope, spec.md §1) has
// already decoded: it builds the frame allocator, the kernel's own address
// space, the bootstrap CPU's per-CPU block, and the scheduler, then hands
// control to the scheduler's idle task.
//
// Kmain is not expected to return; the rt0 assembly that calls it halts the
// CPU if it somehow does.
//
//go:noinline
func Kmain(info *boot.Info) {
	if err := frameAllocator.Init(info.MemoryMap); err != nil {
		panic(err)
	}

	root, err := vmm.NewRoot(&frameAllocator)
	if err != nil {
		panic(err)
	}
	if err := mapKernelSections(&frameAllocator, root, info.KernelSections); err != nil {
		panic(err)
	}
	vmm.SetKernelTemplate(root)
	root.Activate()

	percpu.Init(&percpu.Block{CPUIndex: info.BootstrapCPUIdx})

	sched.Init()
	sched.SetIdleAllocator(&frameAllocator)

	stats := frameAllocator.Stats()
	early.Printf("nucleus: %d frames total, %d free\n", stats.Total, stats.Free)
	early.Printf("nucleus: %d CPUs reported by boot protocol\n", len(info.CPUs))

	// Secondary CPU bring-up (LAPIC startup IPI sequencing) belongs to the
	// platform bring-up glue spec.md §1 excludes from this core; info.CPUs
	// is recorded here only so the scheduler's per-CPU accounting has a
	// CPU count to reason about once that glue calls percpu.Init on each
	// one.

	sched.Schedule()
	panic(errKmainReturned)
}

// mapKernelSections installs the initial kernel-half mappings for the
// running kernel image, one ELF section at a time with its own RW/NX flags
// instead of a single blanket RWX region (SPEC_FULL.md §3 supplement).
func mapKernelSections(alloc *pmm.Allocator, root *vmm.PageTableRoot, sections []boot.KernelSection) *kernel.Error {
	for _, section := range sections {
		flags := vmm.FlagPresent
		if section.Writable {
			flags |= vmm.FlagRW
		}
		if !section.Executable {
			flags |= vmm.FlagNoExecute
		}

		pages := mem.Size(section.Size).Pages()
		for i := uint64(0); i < pages; i++ {
			offset := i * uint64(mem.PageSize)

			phys, err := addr.NewPhysical(section.PhysAddr + offset)
			if err != nil {
				return err
			}
			virt, err := addr.NewVirtual(section.VirtAddr + offset)
			if err != nil {
				return err
			}
			if err := root.Map(alloc, virt, phys.Frame(), flags); err != nil {
				return err
			}
		}
	}
	return nil
}
