package layout

// TypeKind tells which variant a Type holds.
type TypeKind uint8

const (
	KindPrim TypeKind = iota
	KindArray
	KindStruct
	KindUnion
	KindPadding
	KindRef
)

var typeKindNames = [...]string{
	KindPrim:    "prim",
	KindArray:   "array",
	KindStruct:  "struct",
	KindUnion:   "union",
	KindPadding: "padding",
	KindRef:     "ref",
}

func (k TypeKind) String() string {
	if int(k) < len(typeKindNames) {
		return typeKindNames[k]
	}
	return "unknown"
}

// Type is a field type. Build one with P, Array, StructOf, Union, Padding
// or Ref.
type Type struct {
	Elem   *Type
	Struct *Descriptor
	Ref    string
	Arms   []Field
	Count  uint32
	Kind   TypeKind
	Prim   Prim
}

// Field is a named member of a struct or an arm of a union.
type Field struct {
	Name string
	Type Type
}

// Descriptor is an ordered C struct layout.
type Descriptor struct {
	Name   string
	Fields []Field
}

func P(p Prim) Type {
	return Type{Kind: KindPrim, Prim: p}
}

func Array(elem Type, count uint32) Type {
	e := elem
	return Type{Kind: KindArray, Elem: &e, Count: count}
}

func StructOf(d *Descriptor) Type {
	return Type{Kind: KindStruct, Struct: d}
}

func Union(arms ...Field) Type {
	return Type{Kind: KindUnion, Arms: arms}
}

// Padding reserves n bytes with alignment 1.
func Padding(n uint32) Type {
	return Type{Kind: KindPadding, Count: n}
}

// Ref names a descriptor held by a Registry.
func Ref(name string) Type {
	return Type{Kind: KindRef, Ref: name}
}

func F(name string, t Type) Field {
	return Field{Name: name, Type: t}
}

func Struct(name string, fields ...Field) *Descriptor {
	return &Descriptor{Name: name, Fields: fields}
}

// Compile computes the layout on t. Ref fields are not resolvable here;
// use a Registry for descriptors that name each other.
func (d *Descriptor) Compile(t Target) (*Compiled, error) {
	return NewCalculator(t, nil).Compile(d)
}
