package syscall

import (
	"nucleus/kernel"
	"nucleus/kernel/addr"
	"nucleus/kernel/uvm"
)

// Pointer is a user-supplied address that has been validated as lying in
// the mappable user range, the Go counterpart of original_source's generic
// user::Pointer<T>. It carries no type parameter: callers know the size of
// what they are reading or writing and pass it explicitly to CopyIn/CopyOut.
type Pointer struct {
	addr addr.UserVirtual
}

// NewPointer validates raw as a user address and wraps it. Every syscall
// argument that is a pointer goes through this before anything dereferences
// it.
func NewPointer(raw uint64) (Pointer, *kernel.Error) {
	v, err := addr.NewUserVirtual(raw)
	if err != nil {
		return Pointer{}, err
	}
	return Pointer{addr: v}, nil
}

// Address returns the validated user-virtual address.
func (p Pointer) Address() addr.UserVirtual { return p.addr }

// IsNull reports whether the pointer is the null address.
func (p Pointer) IsNull() bool { return p.addr == 0 }

// asRange validates that the object occupying the n bytes starting at p
// stays within the mappable user range, the same bound buffer.go checks
// for a Buffer.
func (p Pointer) asRange(n uint64) *kernel.Error {
	if n == 0 {
		return nil
	}
	_, err := addr.NewUserVirtual(p.addr.Uint64() + n - 1)
	return err
}

// ReadInto copies the n bytes at p into dst (len(dst) must equal n),
// original_source's user::read monomorphized over a byte count instead of a
// generic T.
func (p Pointer) ReadInto(vm *uvm.VMM, dst []byte) *kernel.Error {
	if err := p.asRange(uint64(len(dst))); err != nil {
		return err
	}
	if err := ensureRangeMapped(vm, p.addr, uint64(len(dst)), uvm.AccessRead); err != nil {
		return err
	}
	rawCopy(vm, p.addr, dst, true)
	return nil
}

// Write copies src to the n = len(src) bytes starting at p, the
// counterpart of original_source's user::write.
func (p Pointer) Write(vm *uvm.VMM, src []byte) *kernel.Error {
	if err := p.asRange(uint64(len(src))); err != nil {
		return err
	}
	if err := ensureRangeMapped(vm, p.addr, uint64(len(src)), uvm.AccessWrite); err != nil {
		return err
	}
	rawCopy(vm, p.addr, src, false)
	return nil
}
