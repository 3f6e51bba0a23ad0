package layout

import "strings"

// Prim is a C scalar kind.
type Prim uint8

const (
	Void Prim = iota
	Bool
	Int8
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Float32
	Float64
	Pointer
	// String is a const char* slot. It occupies a pointer and decodes to a
	// Go string.
	String
)

var primNames = [...]string{
	Void:    "void",
	Bool:    "bool",
	Int8:    "int8",
	Uint8:   "uint8",
	Int16:   "int16",
	Uint16:  "uint16",
	Int32:   "int32",
	Uint32:  "uint32",
	Int64:   "int64",
	Uint64:  "uint64",
	Float32: "float32",
	Float64: "float64",
	Pointer: "pointer",
	String:  "string",
}

var primAliases = map[string]Prim{
	"char":     Int8,
	"uchar":    Uint8,
	"short":    Int16,
	"ushort":   Uint16,
	"int":      Int32,
	"uint":     Uint32,
	"float":    Float32,
	"double":   Float64,
	"void*":    Pointer,
	"ptr":      Pointer,
	"cstring":  String,
	"longlong": Int64,
}

func (p Prim) String() string {
	if int(p) < len(primNames) {
		return primNames[p]
	}
	return "unknown"
}

// ParsePrim resolves a canonical prim name or one of its C aliases.
func ParsePrim(s string) (Prim, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range primNames {
		if name == s {
			return Prim(i), true
		}
	}
	p, ok := primAliases[s]
	return p, ok
}

func (p Prim) Valid() bool {
	return int(p) < len(primNames)
}

func (p Prim) IsInteger() bool {
	return p >= Int8 && p <= Uint64
}

func (p Prim) IsSigned() bool {
	switch p {
	case Int8, Int16, Int32, Int64:
		return true
	}
	return false
}

func (p Prim) IsFloat() bool {
	return p == Float32 || p == Float64
}

// IsAddress reports whether the prim occupies a pointer-width slot.
func (p Prim) IsAddress() bool {
	return p == Pointer || p == String
}

// Size returns the prim's byte width on the target. Void is zero.
func (p Prim) Size(t Target) uint32 {
	switch p {
	case Bool, Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	case Pointer, String:
		return t.PointerSize
	}
	return 0
}

// Align returns the prim's natural alignment on the target.
func (p Prim) Align(t Target) uint32 {
	if p.IsAddress() {
		return t.PointerAlign
	}
	if s := p.Size(t); s > 0 {
		return s
	}
	return 1
}
