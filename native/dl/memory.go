package dl

import (
	"encoding/binary"
	"unsafe"

	"github.com/wippyai/native-interop/errors"
)

// hostMemory is the process address space.
type hostMemory struct{}

func bytesAt(addr uintptr, n uint32) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
}

func nullAccess(phase errors.Phase) error {
	return errors.New(phase, errors.KindNilPointer).
		Detail("access at NULL").
		Build()
}

func (hostMemory) Read(addr uintptr, length uint32) ([]byte, error) {
	if addr == 0 {
		return nil, nullAccess(errors.PhaseDecode)
	}
	out := make([]byte, length)
	copy(out, bytesAt(addr, length))
	return out, nil
}

func (hostMemory) Write(addr uintptr, data []byte) error {
	if addr == 0 {
		return nullAccess(errors.PhaseEncode)
	}
	copy(bytesAt(addr, uint32(len(data))), data)
	return nil
}

func (hostMemory) ReadU8(addr uintptr) (uint8, error) {
	if addr == 0 {
		return 0, nullAccess(errors.PhaseDecode)
	}
	return bytesAt(addr, 1)[0], nil
}

func (hostMemory) ReadU16(addr uintptr) (uint16, error) {
	if addr == 0 {
		return 0, nullAccess(errors.PhaseDecode)
	}
	return binary.LittleEndian.Uint16(bytesAt(addr, 2)), nil
}

func (hostMemory) ReadU32(addr uintptr) (uint32, error) {
	if addr == 0 {
		return 0, nullAccess(errors.PhaseDecode)
	}
	return binary.LittleEndian.Uint32(bytesAt(addr, 4)), nil
}

func (hostMemory) ReadU64(addr uintptr) (uint64, error) {
	if addr == 0 {
		return 0, nullAccess(errors.PhaseDecode)
	}
	return binary.LittleEndian.Uint64(bytesAt(addr, 8)), nil
}

func (hostMemory) WriteU8(addr uintptr, v uint8) error {
	if addr == 0 {
		return nullAccess(errors.PhaseEncode)
	}
	bytesAt(addr, 1)[0] = v
	return nil
}

func (hostMemory) WriteU16(addr uintptr, v uint16) error {
	if addr == 0 {
		return nullAccess(errors.PhaseEncode)
	}
	binary.LittleEndian.PutUint16(bytesAt(addr, 2), v)
	return nil
}

func (hostMemory) WriteU32(addr uintptr, v uint32) error {
	if addr == 0 {
		return nullAccess(errors.PhaseEncode)
	}
	binary.LittleEndian.PutUint32(bytesAt(addr, 4), v)
	return nil
}

func (hostMemory) WriteU64(addr uintptr, v uint64) error {
	if addr == 0 {
		return nullAccess(errors.PhaseEncode)
	}
	binary.LittleEndian.PutUint64(bytesAt(addr, 8), v)
	return nil
}

// ReadCString scans byte by byte so it never reads past the terminator.
func (hostMemory) ReadCString(addr uintptr, max uint32) (string, error) {
	if addr == 0 {
		return "", nil
	}
	for n := uint32(0); n < max; n++ {
		if *(*byte)(unsafe.Pointer(addr + uintptr(n))) == 0 {
			return string(bytesAt(addr, n)), nil
		}
	}
	return "", errors.New(errors.PhaseDecode, errors.KindInvalidData).
		Detail("string at %#x not terminated within %d bytes", addr, max).
		Build()
}

// mallocAllocator allocates through the library's own malloc/free.
type mallocAllocator struct {
	malloc func(size uint64) uintptr
	free   func(addr uintptr)
}

// mallocAlign is the alignment every malloc on supported platforms
// guarantees.
const mallocAlign = 16

func (a *mallocAllocator) Alloc(size, align uint32) (uintptr, error) {
	if a.malloc == nil {
		return 0, errors.Unsupported(errors.PhaseCall, "library exports no allocator")
	}
	if align > mallocAlign {
		return 0, errors.AllocationFailed(errors.PhaseCall, size, align)
	}
	addr := a.malloc(uint64(size))
	if addr == 0 {
		return 0, errors.AllocationFailed(errors.PhaseCall, size, align)
	}
	return addr, nil
}

func (a *mallocAllocator) Free(addr uintptr, _, _ uint32) {
	if a.free != nil && addr != 0 {
		a.free(addr)
	}
}
