package vmm

import (
	"unsafe"

	"nucleus/kernel"
	"nucleus/kernel/addr"
	"nucleus/kernel/cpu"
	"nucleus/kernel/ksync"
	"nucleus/kernel/pmm"
)

var (
	// ErrNotMapped is returned by Unmap/Resolve when no mapping exists at
	// the given address.
	ErrNotMapped = &kernel.Error{Module: "vmm", Message: "virtual address is not mapped"}
	// ErrHugePageUnsupported is returned when a walk encounters a huge
	// page entry (spec.md Non-goals: no huge pages).
	ErrHugePageUnsupported = &kernel.Error{Module: "vmm", Message: "huge pages are not supported"}

	errAlreadyMapped = &kernel.Error{Module: "vmm", Message: "virtual address is already mapped"}

	// kernelPML4Index is the first PML4 index belonging to the kernel
	// half of the address space. NewRoot copies the kernel template's
	// entries from this index up; kernel-half tables are not
	// preallocated, so an entry the template gains later is not seen by
	// roots built before it (spec.md §4.3).
	kernelPML4Index = addr.KernelBase.PML4Index()

	kernelTemplate *Table
)

// SetKernelTemplate installs the PML4 whose upper half every new
// PageTableRoot copies its kernel-half entries from. Called once by kmain
// after the kernel's own address space has been built.
func SetKernelTemplate(root *PageTableRoot) {
	kernelTemplate = tableAt(root.pml4)
}

// PageTableRoot owns one address space's full 4-level paging hierarchy,
// rooted at a PML4 frame. Guarded by its own lock: a fault on one CPU and a
// syscall on another may touch the same address space concurrently.
type PageTableRoot struct {
	pml4 addr.Frame
	lock ksync.Spinlock
}

// NewRoot allocates and zeroes a fresh PML4. If a kernel template has been
// installed via SetKernelTemplate, its entries are copied into the kernel
// half; the user half starts empty.
func NewRoot(alloc *pmm.Allocator) (*PageTableRoot, *kernel.Error) {
	frame, err := alloc.Allocate()
	if err != nil {
		return nil, err
	}

	table := tableAt(frame)
	*table = Table{}
	if kernelTemplate != nil {
		for i := kernelPML4Index; i < entriesPerTable; i++ {
			table.entries[i] = kernelTemplate.entries[i]
		}
	}

	return &PageTableRoot{pml4: frame}, nil
}

// tableAt views frame's contents as a Table through its HHDM mapping.
// Production code dereferences the frame's real HHDM address directly;
// tests substitute a function that redirects frames into Go-heap memory,
// since a hosted test binary has no HHDM to dereference (the same
// seam-variable idiom kernel/pmm uses for its descriptor array placement).
var tableAt = func(frame addr.Frame) *Table {
	return (*Table)(unsafe.Pointer(uintptr(frame.Virtual().Uint64())))
}

// SetTableTranslator overrides how tableAt resolves a frame to its Table
// view. Exported so dependents (kernel/uvm) can redirect frame addressing
// into plain Go-heap memory in their own hosted tests, the same relation
// pmm.SetFrameTranslator has with kernel/vmm itself.
func SetTableTranslator(fn func(addr.Frame) *Table) {
	tableAt = fn
}

// CR3 returns the physical address to load into CR3 to activate this
// address space.
func (r *PageTableRoot) CR3() uintptr { return uintptr(r.pml4.Physical().Uint64()) }

// Activate loads this address space's PML4 into CR3 on the current CPU.
func (r *PageTableRoot) Activate() { cpu.SwitchPDT(r.CR3()) }

// Map establishes frame ↦ virt with flags, allocating any missing
// intermediate tables from alloc. Returns an error if virt is already
// mapped — callers that want to replace a mapping must Unmap first.
func (r *PageTableRoot) Map(alloc *pmm.Allocator, virt addr.Virtual, frame addr.Frame, flags EntryFlag) *kernel.Error {
	r.lock.Acquire()
	defer r.lock.Release()

	entry, err := r.walk(alloc, virt, true)
	if err != nil {
		return err
	}
	if entry.HasFlags(FlagPresent) {
		return errAlreadyMapped
	}

	entry.Clear()
	entry.SetFrame(frame)
	entry.SetFlags(flags | FlagPresent)
	ShootdownEntry(virt)
	return nil
}

// Unmap clears the mapping at virt and returns the frame it pointed to. It
// does not release the frame back to the allocator — kernel/uvm owns that
// decision, since a frame can be shared (CoW, file-backed) beyond the page
// table's knowledge.
func (r *PageTableRoot) Unmap(virt addr.Virtual) (addr.Frame, *kernel.Error) {
	r.lock.Acquire()
	defer r.lock.Release()

	entry, err := r.walk(nil, virt, false)
	if err != nil {
		return 0, err
	}
	if !entry.HasFlags(FlagPresent) {
		return 0, ErrNotMapped
	}

	frame := entry.Frame()
	entry.Clear()
	ShootdownEntry(virt)
	return frame, nil
}

// Resolve returns a copy of the entry mapped at virt without modifying
// anything.
func (r *PageTableRoot) Resolve(virt addr.Virtual) (Entry, *kernel.Error) {
	r.lock.Acquire()
	defer r.lock.Release()

	entry, err := r.walk(nil, virt, false)
	if err != nil {
		return 0, err
	}
	if !entry.HasFlags(FlagPresent) {
		return 0, ErrNotMapped
	}
	return *entry, nil
}

// walk descends PML4 → PDPT → PD → PT for virt and returns a pointer to the
// final-level (PT) entry. When create is true, a missing intermediate table
// is allocated and zeroed in place; when false, a missing intermediate
// table yields ErrNotMapped.
func (r *PageTableRoot) walk(alloc *pmm.Allocator, virt addr.Virtual, create bool) (*Entry, *kernel.Error) {
	indices := [addr.PageLevels]uint64{virt.PML4Index(), virt.PDPTIndex(), virt.PDIndex(), virt.PTIndex()}

	table := tableAt(r.pml4)
	for level := 0; level < addr.PageLevels-1; level++ {
		entry := table.Entry(indices[level])

		if !entry.HasFlags(FlagPresent) {
			if !create {
				return nil, ErrNotMapped
			}

			childFrame, err := alloc.Allocate()
			if err != nil {
				return nil, err
			}
			*tableAt(childFrame) = Table{}

			entry.Clear()
			entry.SetFrame(childFrame)
			entry.SetFlags(FlagPresent | FlagRW | FlagUser)
		} else if entry.HasFlags(FlagHugePage) {
			return nil, ErrHugePageUnsupported
		}

		table = tableAt(entry.Frame())
	}

	return table.Entry(indices[addr.PageLevels-1]), nil
}

// Teardown releases every intermediate table and the PML4 itself, but never
// the leaf frames the page tables map — those belong to kernel/uvm's areas.
// Only the user half (indices below kernelPML4Index) is walked; the kernel
// half is shared with every other address space and outlives any one task.
func (r *PageTableRoot) Teardown(alloc *pmm.Allocator) {
	r.lock.Acquire()
	defer r.lock.Release()

	pml4 := tableAt(r.pml4)
	for i := uint64(0); i < kernelPML4Index; i++ {
		entry := pml4.Entry(i)
		if entry.HasFlags(FlagPresent) && !entry.HasFlags(FlagHugePage) {
			r.teardownBelow(alloc, entry.Frame(), 2)
		}
	}
	alloc.Release(r.pml4)
}

// teardownBelow releases frame, a table levelsBelow levels above a PT
// (levelsBelow==2 for PDPT, 1 for PD, 0 for PT). At levelsBelow==0, frame is
// a PT: it is released without following its entries, since those point to
// leaf data frames the page tables don't own.
func (r *PageTableRoot) teardownBelow(alloc *pmm.Allocator, frame addr.Frame, levelsBelow int) {
	if levelsBelow > 0 {
		table := tableAt(frame)
		for i := 0; i < entriesPerTable; i++ {
			entry := table.Entry(uint64(i))
			if entry.HasFlags(FlagPresent) && !entry.HasFlags(FlagHugePage) {
				r.teardownBelow(alloc, entry.Frame(), levelsBelow-1)
			}
		}
	}
	alloc.Release(frame)
}
