package codec

import (
	"strconv"

	"github.com/wippyai/native-interop/internal/abi"
)

// Record is a decoded struct keyed by field name.
type Record map[string]any

// Union is the active arm of a C union. An empty Arm is an inactive union
// whose bytes are all zero.
type Union struct {
	Value any
	Arm   string
}

// Discriminants picks the active arm of the union at path. siblings holds
// the fields decoded before the union in the same struct.
type Discriminants func(path []string, siblings Record) (arm string, ok bool)

// Tag maps the integer value of a sibling field to a union arm.
type Tag struct {
	Arms  map[int64]string
	Field string
}

// Tagged resolves unions by dotted path through sibling tag fields.
type Tagged map[string]Tag

// Resolve implements Discriminants. A tag value with no arm entry resolves
// to the inactive union.
func (t Tagged) Resolve(path []string, siblings Record) (string, bool) {
	tag, ok := t[joinPath(path)]
	if !ok {
		return "", false
	}
	raw, ok := siblings[tag.Field]
	if !ok {
		return "", false
	}
	v, ok := abi.CoerceToInt64(raw)
	if !ok {
		return "", false
	}
	return tag.Arms[v], true
}

type DecodeOptions struct {
	Discriminants Discriminants
	// MaxString bounds C string scans; zero means the package limit.
	MaxString uint32
}

func joinPath(path []string) string {
	n := 0
	for _, p := range path {
		n += len(p) + 1
	}
	b := make([]byte, 0, n)
	for i, p := range path {
		if i > 0 && (len(p) == 0 || p[0] != '[') {
			b = append(b, '.')
		}
		b = append(b, p...)
	}
	return string(b)
}

func appendPath(path []string, name string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, name)
}

func indexPath(path []string, i int) []string {
	return appendPath(path, "["+strconv.Itoa(i)+"]")
}
