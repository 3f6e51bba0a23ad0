package native

import (
	"math"
	"strconv"

	"github.com/wippyai/native-interop/errors"
	"github.com/wippyai/native-interop/handle"
	"github.com/wippyai/native-interop/internal/abi"
	"github.com/wippyai/native-interop/layout"
)

// Canonical converts v to the canonical Go type for p. Integers of any Go
// type are accepted when they fit; pointers accept handle.Handle, uintptr
// and nil. A nil string argument stays nil and is passed as NULL.
func Canonical(p layout.Prim, v any) (any, error) {
	switch {
	case p == layout.Void:
		if v != nil {
			return nil, mismatch(v, p)
		}
		return nil, nil

	case p == layout.Bool:
		b, ok := v.(bool)
		if !ok {
			return nil, mismatch(v, p)
		}
		return b, nil

	case p.IsSigned():
		n, ok := abi.CoerceToInt64(v)
		if !ok {
			return nil, mismatch(v, p)
		}
		if !abi.FitsSigned(n, p.Size(layout.Host)) {
			return nil, errors.Overflow(errors.PhaseCall, nil, v, p.String())
		}
		switch p {
		case layout.Int8:
			return int8(n), nil
		case layout.Int16:
			return int16(n), nil
		case layout.Int32:
			return int32(n), nil
		}
		return n, nil

	case p.IsInteger():
		n, ok := abi.CoerceToUint64(v)
		if !ok {
			if neg, isInt := abi.CoerceToInt64(v); isInt && neg < 0 {
				return nil, errors.Overflow(errors.PhaseCall, nil, v, p.String())
			}
			return nil, mismatch(v, p)
		}
		if !abi.FitsUnsigned(n, p.Size(layout.Host)) {
			return nil, errors.Overflow(errors.PhaseCall, nil, v, p.String())
		}
		switch p {
		case layout.Uint8:
			return uint8(n), nil
		case layout.Uint16:
			return uint16(n), nil
		case layout.Uint32:
			return uint32(n), nil
		}
		return n, nil

	case p == layout.Float32:
		if f, ok := v.(float32); ok {
			return f, nil
		}
		f, ok := abi.CoerceToFloat64(v)
		if !ok {
			return nil, mismatch(v, p)
		}
		if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
			return nil, errors.Overflow(errors.PhaseCall, nil, v, p.String())
		}
		return float32(f), nil

	case p == layout.Float64:
		f, ok := abi.CoerceToFloat64(v)
		if !ok {
			return nil, mismatch(v, p)
		}
		return f, nil

	case p == layout.Pointer:
		switch a := v.(type) {
		case nil:
			return uintptr(0), nil
		case uintptr:
			return a, nil
		case handle.Handle:
			return a.Addr, nil
		}
		return nil, mismatch(v, p)

	case p == layout.String:
		switch s := v.(type) {
		case nil:
			return nil, nil
		case string:
			return s, nil
		}
		return nil, mismatch(v, p)
	}
	return nil, errors.Unsupported(errors.PhaseCall, "prim "+p.String())
}

// CanonicalArgs checks arity and canonicalizes every argument.
func CanonicalArgs(sig Sig, args []any) ([]any, error) {
	if len(args) != len(sig.Params) {
		return nil, errors.New(errors.PhaseCall, errors.KindInvalidInput).
			Detail("got %d arguments, signature %s takes %d", len(args), sig, len(sig.Params)).
			Build()
	}
	out := make([]any, len(args))
	for i, p := range sig.Params {
		v, err := Canonical(p, args[i])
		if err != nil {
			if e, ok := err.(*errors.Error); ok {
				e.Path = []string{"arg" + strconv.Itoa(i)}
			}
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Zero is the neutral value returned for p when a call cannot produce one.
func Zero(p layout.Prim) any {
	switch p {
	case layout.Bool:
		return false
	case layout.Int8:
		return int8(0)
	case layout.Uint8:
		return uint8(0)
	case layout.Int16:
		return int16(0)
	case layout.Uint16:
		return uint16(0)
	case layout.Int32:
		return int32(0)
	case layout.Uint32:
		return uint32(0)
	case layout.Int64:
		return int64(0)
	case layout.Uint64:
		return uint64(0)
	case layout.Float32:
		return float32(0)
	case layout.Float64:
		return float64(0)
	case layout.Pointer:
		return uintptr(0)
	case layout.String:
		return ""
	}
	return nil
}

// ToBits packs a canonical value into a 64-bit register image, sign
// extending signed integers. Backends that move values through integer
// slots use it together with FromBits.
func ToBits(v any) uint64 {
	switch x := v.(type) {
	case bool:
		if x {
			return 1
		}
		return 0
	case int8:
		return uint64(int64(x))
	case int16:
		return uint64(int64(x))
	case int32:
		return uint64(int64(x))
	case int64:
		return uint64(x)
	case uint8:
		return uint64(x)
	case uint16:
		return uint64(x)
	case uint32:
		return uint64(x)
	case uint64:
		return x
	case float32:
		return uint64(math.Float32bits(x))
	case float64:
		return math.Float64bits(x)
	case uintptr:
		return uint64(x)
	}
	return 0
}

// FromBits unpacks a register image into the canonical value for p. String
// prims cannot be represented and yield the empty string.
func FromBits(p layout.Prim, bits uint64) any {
	switch p {
	case layout.Bool:
		return bits&0xff != 0
	case layout.Int8:
		return int8(bits)
	case layout.Uint8:
		return uint8(bits)
	case layout.Int16:
		return int16(bits)
	case layout.Uint16:
		return uint16(bits)
	case layout.Int32:
		return int32(bits)
	case layout.Uint32:
		return uint32(bits)
	case layout.Int64:
		return int64(bits)
	case layout.Uint64:
		return bits
	case layout.Float32:
		return math.Float32frombits(uint32(bits))
	case layout.Float64:
		return math.Float64frombits(bits)
	case layout.Pointer:
		return uintptr(bits)
	case layout.String:
		return ""
	}
	return nil
}

func mismatch(v any, p layout.Prim) error {
	return errors.TypeMismatch(errors.PhaseCall, nil, abi.TypeName(v), p.String())
}
