package pmm

import (
	"reflect"
	"unsafe"

	"nucleus/kernel"
	"nucleus/kernel/addr"
	"nucleus/kernel/boot"
	"nucleus/kernel/mem"
)

// descriptorSize is the in-memory footprint of one FrameDescriptor.
const descriptorSize = unsafe.Sizeof(FrameDescriptor{})

// frameBytes resolves frame to a pointer the descriptor array can be built
// on top of. Production code takes the frame's HHDM virtual address
// directly, since the bootloader maps all of physical memory there before
// pmm.init ever runs. SetFrameTranslator lets a test binary — in this
// package or another that needs a working *Allocator, like kernel/vmm's —
// redirect frame addressing into ordinary Go-heap memory instead, since a
// hosted test binary has no HHDM to dereference.
var frameBytes = func(frame addr.Frame) uintptr {
	return uintptr(frame.Virtual().Uint64())
}

// SetFrameTranslator overrides how frames are resolved to addressable
// pointers. Production code never needs to call this. It exists as a test
// seam, the same idiom kernel/cpu's callers use for every hardware-touching
// helper.
func SetFrameTranslator(fn func(addr.Frame) uintptr) {
	frameBytes = fn
}

// state owns the frame descriptor array: one FrameDescriptor per physical
// frame in [0, totalFrames). The bootloader's HHDM mapping (spec.md §3) is
// assumed live by the time Init runs, so the array is addressed directly
// through its frame's HHDM virtual address instead of bootstrapping a
// temporary mapping for it.
type state struct {
	descriptors    []FrameDescriptor
	descriptorsHdr reflect.SliceHeader

	totalFrames uint64
	arrayBase   addr.Frame
	arrayFrames uint64
}

// init places the descriptor array and classifies every frame described by
// memMap, per spec.md §4.2:
//
//   - last is the highest page index touched by any Usable, KernelAndModules
//     or BootloaderReclaimable region.
//   - the array is placed in the first Usable region with room for last
//     descriptors.
//   - every descriptor starts Poisoned; classifyRegion then sets per-frame
//     flags by region type, and finally the frames backing the array itself
//     are forced to Kernel, refcount 1.
func (s *state) init(memMap boot.MemoryMap) *kernel.Error {
	var last uint64
	for _, region := range memMap {
		switch region.Type {
		case boot.Usable, boot.KernelAndModules, boot.BootloaderReclaimable:
			if end := pageCeil(region.End()); end > last {
				last = end
			}
		}
	}

	requiredBytes := mem.Size(last * uint64(descriptorSize)).Pages() * uint64(mem.PageSize)

	base, ok := s.placeArray(memMap, requiredBytes)
	if !ok {
		return ErrOutOfMemory
	}

	s.arrayBase = base
	s.arrayFrames = requiredBytes / uint64(mem.PageSize)
	s.totalFrames = last

	s.descriptorsHdr = reflect.SliceHeader{
		Data: frameBytes(base),
		Len:  int(last),
		Cap:  int(last),
	}
	s.descriptors = *(*[]FrameDescriptor)(unsafe.Pointer(&s.descriptorsHdr))

	kernel.Memset(frameBytes(base), 0, uintptr(requiredBytes))
	for i := range s.descriptors {
		s.descriptors[i].Flags = FlagPoisoned
	}

	for _, region := range memMap {
		s.classifyRegion(region)
	}

	// The array's own backing frames sit inside the Usable region it was
	// placed in, so classifyRegion just marked them Free; override that
	// with the classification they actually deserve.
	for i := uint64(0); i < s.arrayFrames; i++ {
		d := &s.descriptors[s.arrayBase.Index()+i]
		d.Flags = FlagKernel
		d.Refcount = 1
	}

	return nil
}

// placeArray returns the first Usable region with enough room for
// requiredBytes, after rounding its base up to a page boundary.
func (s *state) placeArray(memMap boot.MemoryMap, requiredBytes uint64) (addr.Frame, bool) {
	for _, region := range memMap {
		if region.Type != boot.Usable {
			continue
		}

		base := addr.NewPhysicalTruncate(region.Base).AlignUp(uint64(mem.PageSize))
		if base.Uint64()-region.Base >= region.Length {
			continue
		}
		if region.End()-base.Uint64() < requiredBytes {
			continue
		}

		return base.Frame(), true
	}

	return 0, false
}

// classifyRegion sets descriptor flags for every frame in region, per
// spec.md §4.2's per-type mapping. BadMemory regions are left untouched:
// their descriptors stay Poisoned from init's first pass.
func (s *state) classifyRegion(region boot.MemoryMapEntry) {
	startIndex := addr.NewPhysicalTruncate(region.Base).AlignUp(uint64(mem.PageSize)).PageIndex()
	endIndex := pageFloor(region.End())

	var flags FrameFlags
	var refcount uint32
	switch region.Type {
	case boot.Usable:
		flags = FlagFree
	case boot.BootloaderReclaimable:
		flags, refcount = FlagBoot|FlagKernel, 1
	case boot.KernelAndModules:
		flags, refcount = FlagKernel, 1
	case boot.Reserved, boot.AcpiReclaimable, boot.AcpiNvs, boot.Framebuffer:
		flags = FlagReserved
	default:
		return
	}

	if endIndex > s.totalFrames {
		endIndex = s.totalFrames
	}
	for index := startIndex; index < endIndex; index++ {
		d := &s.descriptors[index]
		d.Flags = flags
		d.Refcount = refcount
	}
}

// descriptor returns the descriptor for frame, or nil if frame lies beyond
// the tracked range.
func (s *state) descriptor(frame addr.Frame) *FrameDescriptor {
	index := frame.Index()
	if index >= uint64(len(s.descriptors)) {
		return nil
	}
	return &s.descriptors[index]
}

func pageCeil(addr uint64) uint64 {
	return (addr + uint64(mem.PageSize) - 1) >> mem.PageShift
}

func pageFloor(addr uint64) uint64 {
	return addr >> mem.PageShift
}
