package syscall

import (
	"unicode/utf8"

	"nucleus/kernel"
	"nucleus/kernel/uvm"
)

// MaxStringLen bounds how long a string a syscall will fetch out of user
// memory in one call, the Go counterpart of original_source's MAX_STR. A
// generous but finite cap keeps a hostile length argument from turning one
// syscall into an unbounded kernel-side allocation.
const MaxStringLen = 4096

// CString is a bounds-checked pointer-and-length pair describing a string
// in user memory, the Go counterpart of original_source's user::String
// (itself built from the wire-format SyscallString). Unlike the Rust type
// this package has no separate wire struct: a syscall handler decodes the
// pointer and length straight out of its register arguments.
type CString struct {
	ptr Pointer
	len uint64
}

// NewCString validates that ptr is a user address and len does not exceed
// MaxStringLen.
func NewCString(raw uint64, length uint64) (CString, *kernel.Error) {
	if length > MaxStringLen {
		return CString{}, ErrStringTooLong
	}
	ptr, err := NewPointer(raw)
	if err != nil {
		return CString{}, err
	}
	return CString{ptr: ptr, len: length}, nil
}

// Fetch copies the string out of user memory and validates it as UTF-8,
// the Go counterpart of original_source's String::fetch.
func (c CString) Fetch(vm *uvm.VMM) (string, *kernel.Error) {
	if c.len == 0 {
		return "", nil
	}
	if err := c.ptr.asRange(c.len); err != nil {
		return "", err
	}

	buf := make([]byte, c.len)
	if err := ensureRangeMapped(vm, c.ptr.Address(), c.len, uvm.AccessRead); err != nil {
		return "", err
	}
	rawCopy(vm, c.ptr.Address(), buf, true)

	if !utf8.Valid(buf) {
		return "", ErrStringNotUTF8
	}
	return string(buf), nil
}
