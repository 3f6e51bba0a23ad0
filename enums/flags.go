package enums

import (
	"sort"
	"strconv"
	"strings"

	"github.com/wippyai/native-interop/errors"
)

// Flags is a bitmask type with named bits. A name may cover several bits.
type Flags struct {
	bits  map[string]uint64
	order []string
	Type  string
}

// NewFlags builds a flag set. Format lists names by ascending value.
func NewFlags(typ string, named map[string]uint64) *Flags {
	f := &Flags{Type: typ, bits: make(map[string]uint64, len(named))}
	for n, v := range named {
		f.bits[n] = v
		f.order = append(f.order, n)
	}
	sort.Slice(f.order, func(i, j int) bool {
		vi, vj := f.bits[f.order[i]], f.bits[f.order[j]]
		if vi != vj {
			return vi < vj
		}
		return f.order[i] < f.order[j]
	})
	return f
}

// Bit returns the mask for name.
func (f *Flags) Bit(name string) (uint64, bool) {
	b, ok := f.bits[name]
	return b, ok
}

// Has reports whether every bit of name is set in v.
func (f *Flags) Has(v uint64, name string) bool {
	b, ok := f.bits[name]
	return ok && b != 0 && v&b == b
}

// Set returns v with the bits of names set.
func (f *Flags) Set(v uint64, names ...string) (uint64, error) {
	for _, n := range names {
		b, ok := f.bits[n]
		if !ok {
			return v, errors.InvalidEnum(errors.PhaseEncode, n, f.Type)
		}
		v |= b
	}
	return v, nil
}

// Clear returns v with the bits of names cleared.
func (f *Flags) Clear(v uint64, names ...string) (uint64, error) {
	for _, n := range names {
		b, ok := f.bits[n]
		if !ok {
			return v, errors.InvalidEnum(errors.PhaseEncode, n, f.Type)
		}
		v &^= b
	}
	return v, nil
}

// Format renders v as "A|B", with any bits no name covers appended in hex.
// Zero renders as the name of the zero value if there is one, else "0".
func (f *Flags) Format(v uint64) string {
	if v == 0 {
		for _, n := range f.order {
			if f.bits[n] == 0 {
				return n
			}
		}
		return "0"
	}
	var parts []string
	rest := v
	for _, n := range f.order {
		b := f.bits[n]
		if b != 0 && v&b == b && rest&b != 0 {
			parts = append(parts, n)
			rest &^= b
		}
	}
	if rest != 0 {
		parts = append(parts, "0x"+strconv.FormatUint(rest, 16))
	}
	return strings.Join(parts, "|")
}

// Parse is the inverse of Format. Names are separated by '|' with optional
// spaces; numeric parts (decimal or 0x hex) are accepted as raw bits.
func (f *Flags) Parse(s string) (uint64, error) {
	var v uint64
	for _, part := range strings.Split(s, "|") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if b, ok := f.bits[part]; ok {
			v |= b
			continue
		}
		if n, err := strconv.ParseUint(part, 0, 64); err == nil {
			v |= n
			continue
		}
		return 0, errors.InvalidEnum(errors.PhaseEncode, part, f.Type)
	}
	return v, nil
}

// Unknown returns the bits of v that no name covers.
func (f *Flags) Unknown(v uint64) uint64 {
	for _, b := range f.bits {
		v &^= b
	}
	return v
}

// Names returns the flag names by ascending value.
func (f *Flags) Names() []string {
	return append([]string(nil), f.order...)
}
