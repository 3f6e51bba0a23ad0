package enums

import (
	"sort"
	"strconv"

	"github.com/wippyai/native-interop/errors"
)

// Enum is a named set of integer constants.
type Enum struct {
	byName  map[string]int64
	byValue map[int64]string
	// Type is the C type name, used in errors.
	Type string
}

// NewEnum builds an enum. When several names share a value, Name reports
// the lexically smallest one.
func NewEnum(typ string, values map[string]int64) *Enum {
	e := &Enum{
		Type:    typ,
		byName:  make(map[string]int64, len(values)),
		byValue: make(map[int64]string, len(values)),
	}
	for n, v := range values {
		e.byName[n] = v
		if cur, ok := e.byValue[v]; !ok || n < cur {
			e.byValue[v] = n
		}
	}
	return e
}

// Name returns the constant name for v.
func (e *Enum) Name(v int64) (string, bool) {
	n, ok := e.byValue[v]
	return n, ok
}

// Value returns the value of the constant called name.
func (e *Enum) Value(name string) (int64, bool) {
	v, ok := e.byName[name]
	return v, ok
}

// MustValue is Value for names known at compile time. It panics when name
// is not part of the enum.
func (e *Enum) MustValue(name string) int64 {
	v, ok := e.byName[name]
	if !ok {
		panic("enums: " + e.Type + " has no constant " + name)
	}
	return v
}

// Check returns an invalid_enum error when v has no name.
func (e *Enum) Check(v int64) error {
	if _, ok := e.byValue[v]; !ok {
		return errors.InvalidEnum(errors.PhaseDecode, v, e.Type)
	}
	return nil
}

// Parse returns the value of name or an invalid_enum error.
func (e *Enum) Parse(name string) (int64, error) {
	v, ok := e.byName[name]
	if !ok {
		return 0, errors.InvalidEnum(errors.PhaseEncode, name, e.Type)
	}
	return v, nil
}

// Format returns the name of v, or its decimal value when it has none.
func (e *Enum) Format(v int64) string {
	if n, ok := e.byValue[v]; ok {
		return n
	}
	return strconv.FormatInt(v, 10)
}

// Names returns every constant ordered by value, then name.
func (e *Enum) Names() []string {
	names := make([]string, 0, len(e.byName))
	for n := range e.byName {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		vi, vj := e.byName[names[i]], e.byName[names[j]]
		if vi != vj {
			return vi < vj
		}
		return names[i] < names[j]
	})
	return names
}

func (e *Enum) Len() int { return len(e.byName) }

// Integer is any Go integer type a C enum can be stored in.
type Integer interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~int | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uint
}

// As converts v to T, failing with invalid_enum in strict mode when v is
// not a known constant.
func As[T Integer](e *Enum, v int64, strict bool) (T, error) {
	if strict {
		if err := e.Check(v); err != nil {
			return 0, err
		}
	}
	return T(v), nil
}

// StringEnum holds named string constants, such as hint or property names.
type StringEnum struct {
	byName  map[string]string
	byValue map[string]string
	Type    string
}

func NewStringEnum(typ string, values map[string]string) *StringEnum {
	e := &StringEnum{
		Type:    typ,
		byName:  make(map[string]string, len(values)),
		byValue: make(map[string]string, len(values)),
	}
	for n, v := range values {
		e.byName[n] = v
		if cur, ok := e.byValue[v]; !ok || n < cur {
			e.byValue[v] = n
		}
	}
	return e
}

// Value returns the string behind name.
func (e *StringEnum) Value(name string) (string, bool) {
	v, ok := e.byName[name]
	return v, ok
}

// Name returns the constant name whose value is v.
func (e *StringEnum) Name(v string) (string, bool) {
	n, ok := e.byValue[v]
	return n, ok
}

// Names returns the constant names sorted.
func (e *StringEnum) Names() []string {
	names := make([]string, 0, len(e.byName))
	for n := range e.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
