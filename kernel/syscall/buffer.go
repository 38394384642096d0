package syscall

import (
	"nucleus/kernel"
	"nucleus/kernel/addr"
	"nucleus/kernel/uvm"
)

// Buffer is a validated range of user memory, the Go counterpart of
// original_source's generic UserBuffer<const N: usize>. It carries no
// internal chunk buffer of its own: CopyIn/CopyOut transfer directly into or
// out of the caller's slice, since Go has no trouble sizing that slice at
// the call site the way a const generic papered over in Rust.
type Buffer struct {
	start addr.UserVirtual
	len   uint64
}

// NewBuffer validates that [raw, raw+length) lies entirely in the mappable
// user range and wraps it.
func NewBuffer(raw uint64, length uint64) (Buffer, *kernel.Error) {
	start, err := addr.NewUserVirtual(raw)
	if err != nil {
		return Buffer{}, err
	}
	if length == 0 {
		return Buffer{start: start}, nil
	}
	if _, err := addr.NewUserVirtual(raw + length - 1); err != nil {
		return Buffer{}, err
	}
	return Buffer{start: start, len: length}, nil
}

// Len returns the buffer's length in bytes.
func (b Buffer) Len() uint64 { return b.len }

// CopyIn reads len(dst) bytes starting at the buffer's address into dst.
// len(dst) must not exceed b.Len(). vm is the calling task's VMM, used to
// fault in any page the copy touches before it is read.
func (b Buffer) CopyIn(vm *uvm.VMM, dst []byte) *kernel.Error {
	if uint64(len(dst)) > b.len {
		return ErrBufferTooSmall
	}
	if err := ensureRangeMapped(vm, b.start, uint64(len(dst)), uvm.AccessRead); err != nil {
		return err
	}
	rawCopy(vm, b.start, dst, true)
	return nil
}

// CopyOut writes src to the buffer's address in the calling task's address
// space. len(src) must not exceed b.Len().
func (b Buffer) CopyOut(vm *uvm.VMM, src []byte) *kernel.Error {
	if uint64(len(src)) > b.len {
		return ErrBufferTooSmall
	}
	if err := ensureRangeMapped(vm, b.start, uint64(len(src)), uvm.AccessWrite); err != nil {
		return err
	}
	rawCopy(vm, b.start, src, false)
	return nil
}
