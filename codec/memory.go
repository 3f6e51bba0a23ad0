package codec

import (
	"encoding/binary"
	"sync"

	interop "github.com/wippyai/native-interop"
	"github.com/wippyai/native-interop/errors"
	"github.com/wippyai/native-interop/internal/abi"
)

// Buffer is a byte slice addressed from zero. It implements interop.Memory
// and interop.MemorySizer, and a bump interop.Allocator that grows the
// slice, so C strings referenced by an encoded struct can live in the same
// buffer. Address 0 is never handed out by Alloc.
type Buffer struct {
	data []byte
}

var (
	_ interop.Memory      = (*Buffer)(nil)
	_ interop.MemorySizer = (*Buffer)(nil)
	_ interop.Allocator   = (*Buffer)(nil)
)

func NewBuffer(size int) *Buffer {
	return &Buffer{data: make([]byte, size)}
}

// WrapBuffer uses b directly until an allocation grows it.
func WrapBuffer(b []byte) *Buffer {
	return &Buffer{data: b}
}

func (b *Buffer) Bytes() []byte { return b.data }

func (b *Buffer) Size() uint64 { return uint64(len(b.data)) }

func (b *Buffer) span(addr uintptr, n uint32, phase errors.Phase) ([]byte, error) {
	end := uint64(addr) + uint64(n)
	if end > uint64(len(b.data)) {
		return nil, errors.New(phase, errors.KindLayoutMismatch).
			Detail("access [%d, %d) outside buffer of %d bytes", addr, end, len(b.data)).
			Build()
	}
	return b.data[addr:end], nil
}

func (b *Buffer) Read(addr uintptr, length uint32) ([]byte, error) {
	s, err := b.span(addr, length, errors.PhaseDecode)
	if err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, s)
	return out, nil
}

func (b *Buffer) Write(addr uintptr, data []byte) error {
	s, err := b.span(addr, uint32(len(data)), errors.PhaseEncode)
	if err != nil {
		return err
	}
	copy(s, data)
	return nil
}

func (b *Buffer) ReadU8(addr uintptr) (uint8, error) {
	s, err := b.span(addr, 1, errors.PhaseDecode)
	if err != nil {
		return 0, err
	}
	return s[0], nil
}

func (b *Buffer) ReadU16(addr uintptr) (uint16, error) {
	s, err := b.span(addr, 2, errors.PhaseDecode)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(s), nil
}

func (b *Buffer) ReadU32(addr uintptr) (uint32, error) {
	s, err := b.span(addr, 4, errors.PhaseDecode)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(s), nil
}

func (b *Buffer) ReadU64(addr uintptr) (uint64, error) {
	s, err := b.span(addr, 8, errors.PhaseDecode)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(s), nil
}

func (b *Buffer) WriteU8(addr uintptr, v uint8) error {
	s, err := b.span(addr, 1, errors.PhaseEncode)
	if err != nil {
		return err
	}
	s[0] = v
	return nil
}

func (b *Buffer) WriteU16(addr uintptr, v uint16) error {
	s, err := b.span(addr, 2, errors.PhaseEncode)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(s, v)
	return nil
}

func (b *Buffer) WriteU32(addr uintptr, v uint32) error {
	s, err := b.span(addr, 4, errors.PhaseEncode)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(s, v)
	return nil
}

func (b *Buffer) WriteU64(addr uintptr, v uint64) error {
	s, err := b.span(addr, 8, errors.PhaseEncode)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(s, v)
	return nil
}

// Alloc appends size bytes aligned to align and returns their address.
func (b *Buffer) Alloc(size, align uint32) (uintptr, error) {
	if size > abi.MaxAlloc {
		return 0, errors.AllocationFailed(errors.PhaseEncode, size, align)
	}
	start := uint32(len(b.data))
	if start == 0 {
		start = 1
	}
	start = abi.AlignTo(start, align)
	end := uint64(start) + uint64(size)
	if end > uint64(cap(b.data)) {
		grown := make([]byte, end, end*2)
		copy(grown, b.data)
		b.data = grown
	} else {
		b.data = b.data[:end]
	}
	return uintptr(start), nil
}

// Free is a no-op; buffer allocations live as long as the buffer.
func (b *Buffer) Free(uintptr, uint32, uint32) {}

type Allocation struct {
	Addr  uintptr
	Size  uint32
	Align uint32
}

// AllocationList records native allocations made while encoding so the
// caller can free them once the native side no longer needs them.
type AllocationList struct {
	allocations []Allocation
}

var allocationListPool = sync.Pool{
	New: func() any {
		return &AllocationList{allocations: make([]Allocation, 0, 8)}
	},
}

func NewAllocationList() *AllocationList {
	return allocationListPool.Get().(*AllocationList)
}

const maxPooledAllocationCapacity = 128

// Release returns the list to the pool. Call it after Free; the list is
// invalid afterwards.
func (al *AllocationList) Release() {
	if cap(al.allocations) > maxPooledAllocationCapacity {
		return
	}
	al.Reset()
	allocationListPool.Put(al)
}

func (al *AllocationList) FreeAndRelease(allocator interop.Allocator) {
	al.Free(allocator)
	al.Release()
}

func (al *AllocationList) Add(addr uintptr, size, align uint32) {
	al.allocations = append(al.allocations, Allocation{Addr: addr, Size: size, Align: align})
}

// Free releases every recorded allocation in reverse order.
func (al *AllocationList) Free(allocator interop.Allocator) {
	if allocator == nil {
		return
	}
	for i := len(al.allocations) - 1; i >= 0; i-- {
		if a := al.allocations[i]; a.Addr != 0 {
			allocator.Free(a.Addr, a.Size, a.Align)
		}
	}
	al.Reset()
}

func (al *AllocationList) Reset() {
	al.allocations = al.allocations[:0]
}

func (al *AllocationList) Count() int {
	return len(al.allocations)
}

func (al *AllocationList) All() []Allocation {
	return al.allocations
}
