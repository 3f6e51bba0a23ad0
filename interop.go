package interop

// Memory is byte-addressable native memory: the host process address space,
// a wasm32 linear memory, or a plain byte buffer. Multi-byte accessors are
// little-endian, which matches every target the interop core supports.
type Memory interface {
	Read(addr uintptr, length uint32) ([]byte, error)
	Write(addr uintptr, data []byte) error
	ReadU8(addr uintptr) (uint8, error)
	ReadU16(addr uintptr) (uint16, error)
	ReadU32(addr uintptr) (uint32, error)
	ReadU64(addr uintptr) (uint64, error)
	WriteU8(addr uintptr, value uint8) error
	WriteU16(addr uintptr, value uint16) error
	WriteU32(addr uintptr, value uint32) error
	WriteU64(addr uintptr, value uint64) error
}

// MemorySizer reports the addressable size of a Memory. Memories that cannot
// know their extent (raw process memory) do not implement it.
type MemorySizer interface {
	Size() uint64
}

// Allocator allocates native memory, typically through the library's own
// malloc/free pair so the native side may free what Go allocated.
type Allocator interface {
	Alloc(size, align uint32) (uintptr, error)
	Free(addr uintptr, size, align uint32)
}
