package syscall

import (
	"unsafe"

	"nucleus/kernel"
	"nucleus/kernel/addr"
	"nucleus/kernel/mem"
	"nucleus/kernel/percpu"
	"nucleus/kernel/uvm"
)

// resolveLiveAddress returns the address a raw copy should actually
// dereference for a given page of a task's address space. In production
// this is the identity function: the task's page table is already the live
// CR3, so the MMU resolves a user-virtual address on dereference the same
// way it would for any other load or store. A hosted test binary has no
// MMU, so it redirects this into a table walk against its Go-heap backing
// buffer, the same seam-variable idiom kernel/vmm's tableAt uses for frame
// addressing.
var resolveLiveAddress = func(vm *uvm.VMM, page addr.UserVirtual) uintptr {
	return uintptr(page.Uint64())
}

// SetLiveAddressResolver overrides resolveLiveAddress. Exported so hosted
// tests in this package can redirect user-memory copies into plain Go-heap
// memory.
func SetLiveAddressResolver(fn func(vm *uvm.VMM, page addr.UserVirtual) uintptr) {
	resolveLiveAddress = fn
}

// ensureRangeMapped pages in every page touched by [start, start+length)
// that has no frame yet, failing without touching memory if any page lies
// outside every area or its area denies access. Called before every raw copy below so a
// copy never has to fault mid-transfer on a page this task's VMM already
// knows is bad.
func ensureRangeMapped(vm *uvm.VMM, start addr.UserVirtual, length uint64, access uvm.Access) *kernel.Error {
	if length == 0 {
		return nil
	}
	end := start.Add(length)
	for page := start.PageAlignDown(); page.Uint64() < end.Uint64(); page = page.Add(uint64(mem.PageSize)) {
		if err := vm.EnsureMapped(page, access); err != nil {
			return err
		}
	}
	return nil
}

// rawCopy transfers between a user-virtual range and a kernel-side byte
// slice one page at a time, bracketed by percpu's user-copy flag. This
// module has no page-fault handler that reads the flag, so a fault during
// the copy (a racing concurrent munmap, for instance) is handled no
// differently for being inside the bracket.
//
// Grounded on original_source's x86_64::user::copy_from/copy_to, which
// bracket core::ptr::copy_nonoverlapping the same way between
// perform_user_operation's set and clear of USER_OPERATION.
func rawCopy(vm *uvm.VMM, start addr.UserVirtual, kernelSlice []byte, userIsSource bool) {
	if len(kernelSlice) == 0 {
		return
	}

	percpu.BeginUserCopy()
	defer percpu.EndUserCopy()

	remaining := kernelSlice
	cursor := start
	for len(remaining) > 0 {
		page := cursor.PageAlignDown()
		pageOffset := cursor.Uint64() - page.Uint64()
		chunk := uint64(mem.PageSize) - pageOffset
		if chunk > uint64(len(remaining)) {
			chunk = uint64(len(remaining))
		}

		live := resolveLiveAddress(vm, page) + uintptr(pageOffset)
		kernelPtr := uintptr(unsafe.Pointer(&remaining[0]))
		if userIsSource {
			kernel.Memcopy(live, kernelPtr, uintptr(chunk))
		} else {
			kernel.Memcopy(kernelPtr, live, uintptr(chunk))
		}

		remaining = remaining[chunk:]
		cursor = cursor.Add(chunk)
	}
}
