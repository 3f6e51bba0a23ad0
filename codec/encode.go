package codec

import (
	"math"
	"reflect"
	"sort"

	interop "github.com/wippyai/native-interop"
	"github.com/wippyai/native-interop/errors"
	"github.com/wippyai/native-interop/handle"
	"github.com/wippyai/native-interop/internal/abi"
	"github.com/wippyai/native-interop/layout"
)

type EncodeOptions struct {
	// Allocator backs string fields. Encoding a non-nil string without one
	// fails.
	Allocator interop.Allocator
	// Allocations, when set, records every allocation so the caller can
	// free them after the native side is done with the struct.
	Allocations *AllocationList
}

// Encode writes rec as the struct c at addr. The struct's bytes are zeroed
// first, so padding and inactive union bytes are always zero.
func Encode(c *layout.Compiled, rec Record, mem interop.Memory, addr uintptr, opts EncodeOptions) error {
	if c == nil {
		return errors.InvalidInput(errors.PhaseEncode, "nil layout")
	}
	if err := checkBounds(c, mem, addr, errors.PhaseEncode); err != nil {
		return err
	}
	if c.Size > 0 {
		if err := mem.Write(addr, make([]byte, c.Size)); err != nil {
			return errors.Wrap(errors.PhaseEncode, errors.KindInvalidData, err, "clear "+c.Name)
		}
	}
	e := encoder{mem: mem, opts: opts, ptrSize: c.Target.PointerSize}
	return e.record(c, rec, addr, []string{c.Name})
}

// EncodeBytes encodes rec at off within buf. String fields are appended to
// the buffer when opts has no allocator; buf itself is then no longer the
// backing store, so use Encode with a Buffer when strings are involved.
func EncodeBytes(c *layout.Compiled, rec Record, buf []byte, off uint32, opts EncodeOptions) error {
	b := WrapBuffer(buf)
	if opts.Allocator == nil {
		opts.Allocator = b
	}
	return Encode(c, rec, b, uintptr(off), opts)
}

// EncodeValue marshals the Go struct v and encodes it.
func EncodeValue(c *layout.Compiled, v any, mem interop.Memory, addr uintptr, opts EncodeOptions) error {
	rec, err := Marshal(c, v)
	if err != nil {
		return err
	}
	return Encode(c, rec, mem, addr, opts)
}

type encoder struct {
	mem     interop.Memory
	opts    EncodeOptions
	ptrSize uint32
}

func (e *encoder) record(c *layout.Compiled, rec Record, base uintptr, path []string) error {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := c.Field(k); !ok {
			return errors.FieldUnknown(errors.PhaseEncode, path, k)
		}
	}

	for _, f := range c.Fields {
		if f.Type.Kind == layout.KindPadding {
			continue
		}
		v, ok := rec[f.Name]
		if !ok {
			return errors.FieldMissing(errors.PhaseEncode, path, f.Name)
		}
		if err := e.value(f.Type, v, base+uintptr(f.Offset), appendPath(path, f.Name)); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) value(t *layout.CompiledType, v any, addr uintptr, path []string) error {
	switch t.Kind {
	case layout.KindPrim:
		return e.prim(t.Prim, v, addr, path)

	case layout.KindArray:
		items, ok := toSlice(v)
		if !ok {
			return errors.TypeMismatch(errors.PhaseEncode, path, abi.TypeName(v), t.String())
		}
		if len(items) != int(t.Count) {
			return errors.New(errors.PhaseEncode, errors.KindTypeMismatch).
				Path(path...).
				GoType(abi.TypeName(v)).
				CType(t.String()).
				Detail("array has %d elements, want %d", len(items), t.Count).
				Build()
		}
		stride := uintptr(abi.AlignTo(t.Elem.Size, t.Elem.Align))
		for i, item := range items {
			if err := e.value(t.Elem, item, addr+uintptr(i)*stride, indexPath(path, i)); err != nil {
				return err
			}
		}
		return nil

	case layout.KindStruct:
		rec, ok := toRecord(v)
		if !ok {
			return errors.TypeMismatch(errors.PhaseEncode, path, abi.TypeName(v), t.String())
		}
		return e.record(t.Struct, rec, addr, path)

	case layout.KindUnion:
		var u Union
		switch uv := v.(type) {
		case Union:
			u = uv
		case *Union:
			if uv == nil {
				return nil
			}
			u = *uv
		case nil:
			return nil
		default:
			return errors.TypeMismatch(errors.PhaseEncode, path, abi.TypeName(v), t.String())
		}
		if u.Arm == "" {
			return nil
		}
		arm, ok := t.Arm(u.Arm)
		if !ok {
			return errors.InvalidVariant(errors.PhaseEncode, path, "unknown arm "+u.Arm)
		}
		return e.value(arm.Type, u.Value, addr, appendPath(path, u.Arm))

	case layout.KindPadding:
		return nil
	}

	return errors.New(errors.PhaseEncode, errors.KindUnsupported).
		Path(path...).
		Detail("cannot encode %s", t.Kind).
		Build()
}

func (e *encoder) prim(p layout.Prim, v any, addr uintptr, path []string) error {
	switch {
	case p == layout.Bool:
		b, ok := v.(bool)
		if !ok {
			return errors.TypeMismatch(errors.PhaseEncode, path, abi.TypeName(v), p.String())
		}
		var n uint8
		if b {
			n = 1
		}
		return e.wrap(e.mem.WriteU8(addr, n), path)

	case p.IsSigned():
		n, ok := abi.CoerceToInt64(v)
		if !ok {
			if _, big := abi.CoerceToUint64(v); big {
				return errors.Overflow(errors.PhaseEncode, path, v, p.String())
			}
			return errors.TypeMismatch(errors.PhaseEncode, path, abi.TypeName(v), p.String())
		}
		size := p.Size(layout.Host)
		if !abi.FitsSigned(n, size) {
			return errors.Overflow(errors.PhaseEncode, path, v, p.String())
		}
		return e.wrap(e.writeUint(addr, size, uint64(n)), path)

	case p.IsInteger():
		n, ok := abi.CoerceToUint64(v)
		if !ok {
			if neg, isInt := abi.CoerceToInt64(v); isInt && neg < 0 {
				return errors.Overflow(errors.PhaseEncode, path, v, p.String())
			}
			return errors.TypeMismatch(errors.PhaseEncode, path, abi.TypeName(v), p.String())
		}
		size := p.Size(layout.Host)
		if !abi.FitsUnsigned(n, size) {
			return errors.Overflow(errors.PhaseEncode, path, v, p.String())
		}
		return e.wrap(e.writeUint(addr, size, n), path)

	case p == layout.Float32:
		if f, ok := v.(float32); ok {
			return e.wrap(e.mem.WriteU32(addr, math.Float32bits(f)), path)
		}
		f, ok := abi.CoerceToFloat64(v)
		if !ok {
			return errors.TypeMismatch(errors.PhaseEncode, path, abi.TypeName(v), p.String())
		}
		if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
			return errors.Overflow(errors.PhaseEncode, path, v, p.String())
		}
		return e.wrap(e.mem.WriteU32(addr, math.Float32bits(float32(f))), path)

	case p == layout.Float64:
		f, ok := abi.CoerceToFloat64(v)
		if !ok {
			return errors.TypeMismatch(errors.PhaseEncode, path, abi.TypeName(v), p.String())
		}
		return e.wrap(e.mem.WriteU64(addr, math.Float64bits(f)), path)

	case p == layout.Pointer:
		a, ok := addressOf(v)
		if !ok {
			return errors.TypeMismatch(errors.PhaseEncode, path, abi.TypeName(v), p.String())
		}
		return e.writeAddr(addr, a, v, path)

	case p == layout.String:
		if v == nil {
			return e.writeAddr(addr, 0, v, path)
		}
		s, ok := v.(string)
		if !ok {
			return errors.TypeMismatch(errors.PhaseEncode, path, abi.TypeName(v), p.String())
		}
		a, size, err := WriteCString(e.mem, e.opts.Allocator, s)
		if err != nil {
			if ie, ok := err.(*errors.Error); ok && ie.Path == nil {
				ie.Path = path
			}
			return err
		}
		if e.opts.Allocations != nil {
			e.opts.Allocations.Add(a, size, 1)
		}
		return e.writeAddr(addr, a, v, path)
	}

	return errors.New(errors.PhaseEncode, errors.KindUnsupported).
		Path(path...).
		CType(p.String()).
		Build()
}

func (e *encoder) writeUint(addr uintptr, size uint32, n uint64) error {
	switch size {
	case 1:
		return e.mem.WriteU8(addr, uint8(n))
	case 2:
		return e.mem.WriteU16(addr, uint16(n))
	case 4:
		return e.mem.WriteU32(addr, uint32(n))
	default:
		return e.mem.WriteU64(addr, n)
	}
}

func (e *encoder) writeAddr(at, a uintptr, v any, path []string) error {
	if e.ptrSize == 4 {
		if uint64(a) > math.MaxUint32 {
			return errors.Overflow(errors.PhaseEncode, path, v, "pointer32")
		}
		return e.wrap(e.mem.WriteU32(at, uint32(a)), path)
	}
	return e.wrap(e.mem.WriteU64(at, uint64(a)), path)
}

func (e *encoder) wrap(err error, path []string) error {
	if err == nil {
		return nil
	}
	return errors.New(errors.PhaseEncode, errors.KindInvalidData).
		Path(path...).
		Cause(err).
		Build()
}

func addressOf(v any) (uintptr, bool) {
	switch a := v.(type) {
	case nil:
		return 0, true
	case handle.Handle:
		return a.Addr, true
	case *handle.Handle:
		if a == nil {
			return 0, true
		}
		return a.Addr, true
	case uintptr:
		return a, true
	}
	return 0, false
}

func toRecord(v any) (Record, bool) {
	switch r := v.(type) {
	case Record:
		return r, true
	case map[string]any:
		return Record(r), true
	}
	return nil, false
}

func toSlice(v any) ([]any, bool) {
	if s, ok := v.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, false
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, true
	}
	return nil, false
}
