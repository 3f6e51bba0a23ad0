package layout

import (
	"fmt"
	"strings"
)

// Compiled is a descriptor with offsets resolved for a target.
type Compiled struct {
	byName map[string]int
	Name   string
	Target Target
	Fields []CompiledField
	Size   uint32
	Align  uint32
}

type CompiledField struct {
	Type   *CompiledType
	Name   string
	Offset uint32
}

type CompiledType struct {
	Elem   *CompiledType
	Struct *Compiled
	Arms   []CompiledField
	Count  uint32
	Size   uint32
	Align  uint32
	Kind   TypeKind
	Prim   Prim
}

// Field looks up a top-level field by name.
func (c *Compiled) Field(name string) (CompiledField, bool) {
	i, ok := c.byName[name]
	if !ok {
		return CompiledField{}, false
	}
	return c.Fields[i], true
}

// Offset resolves a dotted path through nested structs and union arms and
// returns the absolute offset of the final member.
func (c *Compiled) Offset(path ...string) (uint32, *CompiledType, bool) {
	if len(path) == 0 {
		return 0, nil, false
	}
	f, ok := c.Field(path[0])
	if !ok {
		return 0, nil, false
	}
	off, typ := f.Offset, f.Type
	for _, name := range path[1:] {
		switch typ.Kind {
		case KindStruct:
			sub, ok := typ.Struct.Field(name)
			if !ok {
				return 0, nil, false
			}
			off += sub.Offset
			typ = sub.Type
		case KindUnion:
			arm, ok := typ.Arm(name)
			if !ok {
				return 0, nil, false
			}
			typ = arm.Type
		default:
			return 0, nil, false
		}
	}
	return off, typ, true
}

// Walk visits every field depth first with its absolute offset. Union arms
// are visited in declaration order, each starting at the union's offset.
func (c *Compiled) Walk(fn func(path []string, offset uint32, t *CompiledType)) {
	walkFields(c.Fields, nil, 0, fn)
}

func walkFields(fields []CompiledField, prefix []string, base uint32, fn func([]string, uint32, *CompiledType)) {
	for _, f := range fields {
		path := append(append([]string(nil), prefix...), f.Name)
		off := base + f.Offset
		fn(path, off, f.Type)
		switch f.Type.Kind {
		case KindStruct:
			walkFields(f.Type.Struct.Fields, path, off, fn)
		case KindUnion:
			walkFields(f.Type.Arms, path, off, fn)
		}
	}
}

// Arm returns the union arm with the given name.
func (t *CompiledType) Arm(name string) (CompiledField, bool) {
	for _, a := range t.Arms {
		if a.Name == name {
			return a, true
		}
	}
	return CompiledField{}, false
}

// String renders the type in a C-like notation used in error messages.
func (t *CompiledType) String() string {
	switch t.Kind {
	case KindPrim:
		return t.Prim.String()
	case KindArray:
		return fmt.Sprintf("%s[%d]", t.Elem, t.Count)
	case KindStruct:
		if t.Struct.Name == "" {
			return "struct"
		}
		return "struct " + t.Struct.Name
	case KindUnion:
		names := make([]string, len(t.Arms))
		for i, a := range t.Arms {
			names[i] = a.Name
		}
		return "union{" + strings.Join(names, ",") + "}"
	case KindPadding:
		return fmt.Sprintf("pad[%d]", t.Size)
	}
	return "unknown"
}
