package pmm

import (
	"unsafe"

	"nucleus/kernel/addr"
	"nucleus/kernel/mem"
)

// testBacking stands in for physical memory: production code addresses a
// frame through its HHDM virtual address, which doesn't exist in a hosted
// test binary, so every test in this package redirects frame addressing
// into a large Go-heap buffer instead, keyed by frame index exactly the way
// the real HHDM mapping is keyed by physical address.
var testBacking = make([]byte, 8*1024*1024)

func init() {
	base := uintptr(unsafe.Pointer(&testBacking[0]))
	SetFrameTranslator(func(frame addr.Frame) uintptr {
		offset := uintptr(frame.Index()) * uintptr(mem.PageSize)
		if offset+uintptr(mem.PageSize) > uintptr(len(testBacking)) {
			panic("pmm test: frame index exceeds test backing buffer")
		}
		return base + offset
	})
}
