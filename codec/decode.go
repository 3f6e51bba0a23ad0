package codec

import (
	"math"

	interop "github.com/wippyai/native-interop"
	"github.com/wippyai/native-interop/errors"
	"github.com/wippyai/native-interop/handle"
	"github.com/wippyai/native-interop/internal/abi"
	"github.com/wippyai/native-interop/layout"
)

// Decode reads the struct c at addr.
func Decode(c *layout.Compiled, mem interop.Memory, addr uintptr, opts DecodeOptions) (Record, error) {
	if c == nil {
		return nil, errors.InvalidInput(errors.PhaseDecode, "nil layout")
	}
	if err := checkBounds(c, mem, addr, errors.PhaseDecode); err != nil {
		return nil, err
	}
	d := decoder{mem: mem, opts: opts, ptrSize: c.Target.PointerSize}
	return d.record(c, addr, []string{c.Name})
}

// DecodeBytes decodes the struct c stored at off within buf.
func DecodeBytes(c *layout.Compiled, buf []byte, off uint32, opts DecodeOptions) (Record, error) {
	return Decode(c, WrapBuffer(buf), uintptr(off), opts)
}

// DecodeValue decodes into the Go struct pointed to by out.
func DecodeValue(c *layout.Compiled, mem interop.Memory, addr uintptr, out any, opts DecodeOptions) error {
	rec, err := Decode(c, mem, addr, opts)
	if err != nil {
		return err
	}
	return Unmarshal(c, rec, out)
}

func checkBounds(c *layout.Compiled, mem interop.Memory, addr uintptr, phase errors.Phase) error {
	sized, ok := mem.(interop.MemorySizer)
	if !ok {
		return nil
	}
	size := sized.Size()
	if uint64(addr)+uint64(c.Size) <= size {
		return nil
	}
	var have uint64
	if uint64(addr) < size {
		have = size - uint64(addr)
	}
	return errors.LayoutMismatch(phase, c.Name, uint64(c.Size), have)
}

type decoder struct {
	mem     interop.Memory
	opts    DecodeOptions
	ptrSize uint32
}

func (d *decoder) record(c *layout.Compiled, base uintptr, path []string) (Record, error) {
	rec := make(Record, len(c.Fields))
	for _, f := range c.Fields {
		if f.Type.Kind == layout.KindPadding {
			continue
		}
		v, err := d.value(f.Type, base+uintptr(f.Offset), appendPath(path, f.Name), rec)
		if err != nil {
			return nil, err
		}
		rec[f.Name] = v
	}
	return rec, nil
}

func (d *decoder) value(t *layout.CompiledType, addr uintptr, path []string, siblings Record) (any, error) {
	switch t.Kind {
	case layout.KindPrim:
		return d.prim(t.Prim, addr, path)

	case layout.KindArray:
		stride := uintptr(abi.AlignTo(t.Elem.Size, t.Elem.Align))
		out := make([]any, t.Count)
		for i := range out {
			v, err := d.value(t.Elem, addr+uintptr(i)*stride, indexPath(path, i), nil)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil

	case layout.KindStruct:
		return d.record(t.Struct, addr, path)

	case layout.KindUnion:
		if d.opts.Discriminants == nil {
			return nil, errors.InvalidVariant(errors.PhaseDecode, path, "union needs a discriminant resolver")
		}
		// Paths handed to resolvers are relative to the outermost struct.
		arm, ok := d.opts.Discriminants(path[1:], siblings)
		if !ok {
			return nil, errors.InvalidVariant(errors.PhaseDecode, path, "no discriminant for union")
		}
		if arm == "" {
			return Union{}, nil
		}
		a, ok := t.Arm(arm)
		if !ok {
			return nil, errors.InvalidVariant(errors.PhaseDecode, path, "unknown arm "+arm)
		}
		v, err := d.value(a.Type, addr, appendPath(path, arm), nil)
		if err != nil {
			return nil, err
		}
		return Union{Arm: arm, Value: v}, nil
	}

	return nil, errors.New(errors.PhaseDecode, errors.KindUnsupported).
		Path(path...).
		Detail("cannot decode %s", t.Kind).
		Build()
}

func (d *decoder) prim(p layout.Prim, addr uintptr, path []string) (any, error) {
	switch p {
	case layout.Bool:
		v, err := d.mem.ReadU8(addr)
		return v != 0, d.wrap(err, path)
	case layout.Int8:
		v, err := d.mem.ReadU8(addr)
		return int8(v), d.wrap(err, path)
	case layout.Uint8:
		v, err := d.mem.ReadU8(addr)
		return v, d.wrap(err, path)
	case layout.Int16:
		v, err := d.mem.ReadU16(addr)
		return int16(v), d.wrap(err, path)
	case layout.Uint16:
		v, err := d.mem.ReadU16(addr)
		return v, d.wrap(err, path)
	case layout.Int32:
		v, err := d.mem.ReadU32(addr)
		return int32(v), d.wrap(err, path)
	case layout.Uint32:
		v, err := d.mem.ReadU32(addr)
		return v, d.wrap(err, path)
	case layout.Int64:
		v, err := d.mem.ReadU64(addr)
		return int64(v), d.wrap(err, path)
	case layout.Uint64:
		v, err := d.mem.ReadU64(addr)
		return v, d.wrap(err, path)
	case layout.Float32:
		v, err := d.mem.ReadU32(addr)
		return math.Float32frombits(v), d.wrap(err, path)
	case layout.Float64:
		v, err := d.mem.ReadU64(addr)
		return math.Float64frombits(v), d.wrap(err, path)
	case layout.Pointer:
		a, err := d.addr(addr)
		if err != nil {
			return nil, d.wrap(err, path)
		}
		return handle.Borrow(a), nil
	case layout.String:
		a, err := d.addr(addr)
		if err != nil {
			return nil, d.wrap(err, path)
		}
		s, err := CString(d.mem, a, d.opts.MaxString)
		return s, d.wrap(err, path)
	}
	return nil, errors.New(errors.PhaseDecode, errors.KindUnsupported).
		Path(path...).
		CType(p.String()).
		Build()
}

func (d *decoder) addr(at uintptr) (uintptr, error) {
	if d.ptrSize == 4 {
		v, err := d.mem.ReadU32(at)
		return uintptr(v), err
	}
	v, err := d.mem.ReadU64(at)
	return uintptr(v), err
}

func (d *decoder) wrap(err error, path []string) error {
	if err == nil {
		return nil
	}
	return errors.New(errors.PhaseDecode, errors.KindInvalidData).
		Path(path...).
		Cause(err).
		Build()
}
