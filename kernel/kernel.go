// Package kernel contains types and helpers shared by every kernel
// subsystem. It has no dependents outside the kernel tree and exists to
// avoid import cycles between subsystems that all need to report errors or
// poke raw memory before a full runtime is available.
package kernel

import (
	"reflect"
	"unsafe"
)

// Error describes a kernel error. All kernel errors are defined as global
// variables that are pointers to the Error structure. This requirement stems
// from the fact that, for much of the boot path, the Go allocator is not yet
// available so errors.New cannot be used.
type Error struct {
	// Module is the subsystem where the error originated.
	Module string

	// Message describes the error condition.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Memset sets size bytes starting at addr to value. The implementation is
// based on bytes.Repeat: instead of looping byte by byte it performs
// log2(size) copies, which is a sizeable win given that callers almost
// always clear page-aligned, page-sized regions.
func Memset(addr uintptr, value byte, size uintptr) {
	if size == 0 {
		return
	}

	target := *(*[]byte)(unsafe.Pointer(&reflect.SliceHeader{
		Len:  int(size),
		Cap:  int(size),
		Data: addr,
	}))

	target[0] = value
	for index := uintptr(1); index < size; index *= 2 {
		copy(target[index:], target[:index])
	}
}

// Memcopy copies size bytes from src to dst. The two regions must not
// overlap.
func Memcopy(src, dst uintptr, size uintptr) {
	if size == 0 {
		return
	}

	srcSlice := *(*[]byte)(unsafe.Pointer(&reflect.SliceHeader{
		Len:  int(size),
		Cap:  int(size),
		Data: src,
	}))
	dstSlice := *(*[]byte)(unsafe.Pointer(&reflect.SliceHeader{
		Len:  int(size),
		Cap:  int(size),
		Data: dst,
	}))

	copy(dstSlice, srcSlice)
}
