package wasm

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/native-interop/errors"
)

// guestMemory adapts the guest's linear memory. Reads copy out of the
// guest so results stay valid after the memory grows.
type guestMemory struct {
	mem api.Memory
}

func (m guestMemory) bounds(addr uintptr, length uint32) (uint32, error) {
	if m.mem == nil {
		return 0, errors.New(errors.PhaseCall, errors.KindNilPointer).
			Detail("guest exports no memory").
			Build()
	}
	if addr == 0 {
		return 0, errors.New(errors.PhaseCall, errors.KindNilPointer).
			Detail("access through NULL").
			Build()
	}
	if uint64(addr)+uint64(length) > uint64(m.mem.Size()) {
		return 0, errors.New(errors.PhaseCall, errors.KindInvalidData).
			Detail("%d bytes at %#x outside %d byte memory", length, addr, m.mem.Size()).
			Build()
	}
	return uint32(addr), nil
}

func (m guestMemory) Size() uint64 {
	if m.mem == nil {
		return 0
	}
	return uint64(m.mem.Size())
}

func (m guestMemory) Read(addr uintptr, length uint32) ([]byte, error) {
	off, err := m.bounds(addr, length)
	if err != nil {
		return nil, err
	}
	view, _ := m.mem.Read(off, length)
	out := make([]byte, length)
	copy(out, view)
	return out, nil
}

func (m guestMemory) Write(addr uintptr, data []byte) error {
	off, err := m.bounds(addr, uint32(len(data)))
	if err != nil {
		return err
	}
	m.mem.Write(off, data)
	return nil
}

func (m guestMemory) ReadU8(addr uintptr) (uint8, error) {
	off, err := m.bounds(addr, 1)
	if err != nil {
		return 0, err
	}
	v, _ := m.mem.ReadByte(off)
	return v, nil
}

func (m guestMemory) ReadU16(addr uintptr) (uint16, error) {
	off, err := m.bounds(addr, 2)
	if err != nil {
		return 0, err
	}
	v, _ := m.mem.ReadUint16Le(off)
	return v, nil
}

func (m guestMemory) ReadU32(addr uintptr) (uint32, error) {
	off, err := m.bounds(addr, 4)
	if err != nil {
		return 0, err
	}
	v, _ := m.mem.ReadUint32Le(off)
	return v, nil
}

func (m guestMemory) ReadU64(addr uintptr) (uint64, error) {
	off, err := m.bounds(addr, 8)
	if err != nil {
		return 0, err
	}
	v, _ := m.mem.ReadUint64Le(off)
	return v, nil
}

func (m guestMemory) WriteU8(addr uintptr, value uint8) error {
	off, err := m.bounds(addr, 1)
	if err != nil {
		return err
	}
	m.mem.WriteByte(off, value)
	return nil
}

func (m guestMemory) WriteU16(addr uintptr, value uint16) error {
	off, err := m.bounds(addr, 2)
	if err != nil {
		return err
	}
	m.mem.WriteUint16Le(off, value)
	return nil
}

func (m guestMemory) WriteU32(addr uintptr, value uint32) error {
	off, err := m.bounds(addr, 4)
	if err != nil {
		return err
	}
	m.mem.WriteUint32Le(off, value)
	return nil
}

func (m guestMemory) WriteU64(addr uintptr, value uint64) error {
	off, err := m.bounds(addr, 8)
	if err != nil {
		return err
	}
	m.mem.WriteUint64Le(off, value)
	return nil
}

// maxAlign is what wasm32 malloc implementations guarantee.
const maxAlign = 8

// guestAllocator allocates through the guest's malloc/free exports.
// ctx is the guest context when the allocator is used during a call.
type guestAllocator struct {
	l   *Library
	ctx context.Context
}

func (a guestAllocator) Alloc(size, align uint32) (uintptr, error) {
	if a.l.malloc == "" {
		return 0, errors.Unsupported(errors.PhaseEncode, "guest exports no allocator")
	}
	if align > maxAlign {
		return 0, errors.AllocationFailed(errors.PhaseEncode, size, align)
	}
	res, err := a.l.invoke(a.ctx, a.l.malloc, api.EncodeU32(size))
	if err != nil {
		return 0, errors.Wrap(errors.PhaseEncode, errors.KindAllocation, err, "guest malloc")
	}
	addr := uintptr(api.DecodeU32(res[0]))
	if addr == 0 || (align > 0 && addr%uintptr(align) != 0) {
		return 0, errors.AllocationFailed(errors.PhaseEncode, size, align)
	}
	return addr, nil
}

func (a guestAllocator) Free(addr uintptr, size, align uint32) {
	if addr == 0 || a.l.free == "" {
		return
	}
	if _, err := a.l.invoke(a.ctx, a.l.free, api.EncodeU32(uint32(addr))); err != nil {
		Logger().Warn("guest free failed", zap.Uintptr("addr", addr), zap.Error(err))
	}
}
