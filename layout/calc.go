package layout

import (
	"github.com/wippyai/native-interop/errors"
	"github.com/wippyai/native-interop/internal/abi"
)

// Resolver looks up named descriptors for Ref types.
type Resolver func(name string) (*Descriptor, bool)

// Calculator compiles descriptors for one target and caches the results.
// It is not safe for concurrent use.
type Calculator struct {
	resolve Resolver
	cache   map[*Descriptor]*Compiled
	active  map[*Descriptor]bool
	target  Target
}

func NewCalculator(t Target, resolve Resolver) *Calculator {
	return &Calculator{
		target:  t,
		resolve: resolve,
		cache:   make(map[*Descriptor]*Compiled),
		active:  make(map[*Descriptor]bool),
	}
}

func (c *Calculator) Target() Target {
	return c.target
}

func (c *Calculator) Compile(d *Descriptor) (*Compiled, error) {
	if d == nil {
		return nil, errors.InvalidInput(errors.PhaseLayout, "nil descriptor")
	}
	if cached, ok := c.cache[d]; ok {
		return cached, nil
	}
	if c.active[d] {
		return nil, errors.New(errors.PhaseLayout, errors.KindInvalidInput).
			CType(d.Name).
			Detail("struct %q contains itself by value", d.Name).
			Build()
	}
	c.active[d] = true
	defer delete(c.active, d)

	out := &Compiled{
		Name:   d.Name,
		Target: c.target,
		byName: make(map[string]int, len(d.Fields)),
		Fields: make([]CompiledField, 0, len(d.Fields)),
	}

	maxAlign := uint32(1)
	offset := uint32(0)

	for i, f := range d.Fields {
		if f.Type.Kind != KindPadding {
			if f.Name == "" {
				return nil, c.fieldErr(d, f, "field %d has no name", i)
			}
			if _, dup := out.byName[f.Name]; dup {
				return nil, c.fieldErr(d, f, "duplicate field %q", f.Name)
			}
		}

		ft, err := c.typeOf(d, f)
		if err != nil {
			return nil, err
		}

		offset = abi.AlignTo(offset, ft.Align)
		if f.Name != "" {
			out.byName[f.Name] = len(out.Fields)
		}
		out.Fields = append(out.Fields, CompiledField{Name: f.Name, Offset: offset, Type: ft})

		if ft.Align > maxAlign {
			maxAlign = ft.Align
		}
		next, ok := abi.SafeAddU32(offset, ft.Size)
		if !ok {
			return nil, c.fieldErr(d, f, "struct size overflows")
		}
		offset = next
	}

	out.Size = abi.AlignTo(offset, maxAlign)
	out.Align = maxAlign
	c.cache[d] = out
	return out, nil
}

func (c *Calculator) typeOf(d *Descriptor, f Field) (*CompiledType, error) {
	t := f.Type
	switch t.Kind {
	case KindPrim:
		if !t.Prim.Valid() || t.Prim == Void {
			return nil, c.fieldErr(d, f, "field %q has unusable prim %s", f.Name, t.Prim)
		}
		return &CompiledType{Kind: KindPrim, Prim: t.Prim, Size: t.Prim.Size(c.target), Align: t.Prim.Align(c.target)}, nil

	case KindArray:
		if t.Elem == nil {
			return nil, c.fieldErr(d, f, "array %q has no element type", f.Name)
		}
		if t.Count == 0 {
			return nil, c.fieldErr(d, f, "array %q has zero length", f.Name)
		}
		if t.Count > abi.MaxArrayCount {
			return nil, c.fieldErr(d, f, "array %q length %d exceeds limit", f.Name, t.Count)
		}
		elem, err := c.typeOf(d, Field{Name: f.Name, Type: *t.Elem})
		if err != nil {
			return nil, err
		}
		stride := abi.AlignTo(elem.Size, elem.Align)
		size, ok := abi.SafeMulU32(stride, t.Count)
		if !ok {
			return nil, c.fieldErr(d, f, "array %q size overflows", f.Name)
		}
		return &CompiledType{Kind: KindArray, Elem: elem, Count: t.Count, Size: size, Align: elem.Align}, nil

	case KindStruct:
		sub, err := c.Compile(t.Struct)
		if err != nil {
			return nil, err
		}
		return &CompiledType{Kind: KindStruct, Struct: sub, Size: sub.Size, Align: sub.Align}, nil

	case KindRef:
		if c.resolve == nil {
			return nil, errors.NotFound(errors.PhaseLayout, "struct", t.Ref)
		}
		target, ok := c.resolve(t.Ref)
		if !ok {
			return nil, errors.NotFound(errors.PhaseLayout, "struct", t.Ref)
		}
		sub, err := c.Compile(target)
		if err != nil {
			return nil, err
		}
		return &CompiledType{Kind: KindStruct, Struct: sub, Size: sub.Size, Align: sub.Align}, nil

	case KindUnion:
		if len(t.Arms) == 0 {
			return nil, c.fieldErr(d, f, "union %q has no arms", f.Name)
		}
		out := &CompiledType{Kind: KindUnion, Align: 1, Arms: make([]CompiledField, 0, len(t.Arms))}
		seen := make(map[string]bool, len(t.Arms))
		maxSize := uint32(0)
		for _, arm := range t.Arms {
			if arm.Name == "" || seen[arm.Name] {
				return nil, c.fieldErr(d, f, "union %q has an unnamed or duplicate arm %q", f.Name, arm.Name)
			}
			seen[arm.Name] = true
			at, err := c.typeOf(d, arm)
			if err != nil {
				return nil, err
			}
			out.Arms = append(out.Arms, CompiledField{Name: arm.Name, Type: at})
			if at.Align > out.Align {
				out.Align = at.Align
			}
			if at.Size > maxSize {
				maxSize = at.Size
			}
		}
		out.Size = abi.AlignTo(maxSize, out.Align)
		return out, nil

	case KindPadding:
		if t.Count == 0 {
			return nil, c.fieldErr(d, f, "zero-width padding")
		}
		return &CompiledType{Kind: KindPadding, Size: t.Count, Align: 1}, nil
	}

	return nil, c.fieldErr(d, f, "unknown type kind %d", t.Kind)
}

func (c *Calculator) fieldErr(d *Descriptor, f Field, format string, args ...any) error {
	return errors.New(errors.PhaseLayout, errors.KindInvalidInput).
		Path(d.Name, f.Name).
		CType(d.Name).
		Detail(format, args...).
		Build()
}
