package codec

import (
	"bytes"
	"strings"

	interop "github.com/wippyai/native-interop"
	"github.com/wippyai/native-interop/errors"
	"github.com/wippyai/native-interop/internal/abi"
)

// CStringReader is implemented by memories that can scan a NUL-terminated
// string without over-reading, such as raw process memory.
type CStringReader interface {
	ReadCString(addr uintptr, max uint32) (string, error)
}

const cstringChunk = 64

// CString reads a NUL-terminated string of at most max bytes at addr.
// A zero address yields the empty string.
func CString(mem interop.Memory, addr uintptr, max uint32) (string, error) {
	if addr == 0 {
		return "", nil
	}
	if max == 0 {
		max = abi.MaxStringSize
	}
	if r, ok := mem.(CStringReader); ok {
		return r.ReadCString(addr, max)
	}

	limit := uint64(max)
	sized, hasSize := mem.(interop.MemorySizer)
	if hasSize {
		size := sized.Size()
		if uint64(addr) >= size {
			return "", errors.New(errors.PhaseDecode, errors.KindInvalidData).
				Detail("string address %#x outside memory", addr).
				Build()
		}
		if avail := size - uint64(addr); avail < limit {
			limit = avail
		}
	}

	var sb strings.Builder
	for off := uint64(0); off < limit; {
		n := uint64(1)
		if hasSize {
			n = min(uint64(cstringChunk), limit-off)
		}
		chunk, err := mem.Read(addr+uintptr(off), uint32(n))
		if err != nil {
			return "", errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "read string")
		}
		if i := bytes.IndexByte(chunk, 0); i >= 0 {
			sb.Write(chunk[:i])
			return sb.String(), nil
		}
		sb.Write(chunk)
		off += n
	}
	return "", errors.New(errors.PhaseDecode, errors.KindInvalidData).
		Detail("string at %#x not terminated within %d bytes", addr, limit).
		Build()
}

// WriteCString allocates len(s)+1 bytes through alloc, copies s with a
// trailing NUL, and returns the address and allocation size.
func WriteCString(mem interop.Memory, alloc interop.Allocator, s string) (uintptr, uint32, error) {
	if strings.IndexByte(s, 0) >= 0 {
		return 0, 0, errors.New(errors.PhaseEncode, errors.KindInvalidData).
			Value(s).
			Detail("string contains NUL byte").
			Build()
	}
	if len(s) >= abi.MaxStringSize {
		return 0, 0, errors.New(errors.PhaseEncode, errors.KindOverflow).
			Detail("string of %d bytes exceeds limit", len(s)).
			Build()
	}
	if alloc == nil {
		return 0, 0, errors.New(errors.PhaseEncode, errors.KindNilPointer).
			Detail("C string needs an allocator").
			Build()
	}
	size := uint32(len(s) + 1)
	addr, err := alloc.Alloc(size, 1)
	if err != nil {
		return 0, 0, err
	}
	buf := make([]byte, size)
	copy(buf, s)
	if err := mem.Write(addr, buf); err != nil {
		alloc.Free(addr, size, 1)
		return 0, 0, err
	}
	return addr, size, nil
}
