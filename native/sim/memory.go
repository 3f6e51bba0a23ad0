package sim

import (
	"sync"

	"github.com/wippyai/native-interop/codec"
)

// arena is the simulated heap. Addresses are offsets into one growing
// buffer; zero is never allocated.
type arena struct {
	buf  *codec.Buffer
	live map[uintptr]uint32
	mu   sync.Mutex
}

func newArena() *arena {
	return &arena{buf: codec.NewBuffer(0), live: make(map[uintptr]uint32)}
}

func (a *arena) Read(addr uintptr, length uint32) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buf.Read(addr, length)
}

func (a *arena) Write(addr uintptr, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buf.Write(addr, data)
}

func (a *arena) ReadU8(addr uintptr) (uint8, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buf.ReadU8(addr)
}

func (a *arena) ReadU16(addr uintptr) (uint16, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buf.ReadU16(addr)
}

func (a *arena) ReadU32(addr uintptr) (uint32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buf.ReadU32(addr)
}

func (a *arena) ReadU64(addr uintptr) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buf.ReadU64(addr)
}

func (a *arena) WriteU8(addr uintptr, v uint8) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buf.WriteU8(addr, v)
}

func (a *arena) WriteU16(addr uintptr, v uint16) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buf.WriteU16(addr, v)
}

func (a *arena) WriteU32(addr uintptr, v uint32) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buf.WriteU32(addr, v)
}

func (a *arena) WriteU64(addr uintptr, v uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buf.WriteU64(addr, v)
}

func (a *arena) Size() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buf.Size()
}

func (a *arena) Alloc(size, align uint32) (uintptr, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if size == 0 {
		size = 1
	}
	addr, err := a.buf.Alloc(size, align)
	if err != nil {
		return 0, err
	}
	a.live[addr] = size
	return addr, nil
}

func (a *arena) Free(addr uintptr, _, _ uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.live, addr)
}

func (a *arena) liveCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}
