package native

import (
	"math"
	"testing"

	"github.com/wippyai/native-interop/errors"
	"github.com/wippyai/native-interop/handle"
	"github.com/wippyai/native-interop/layout"
)

func TestCanonical(t *testing.T) {
	tests := []struct {
		in   any
		want any
		name string
		prim layout.Prim
	}{
		{true, true, "bool", layout.Bool},
		{7, int32(7), "int to int32", layout.Int32},
		{int64(-1), int8(-1), "int64 to int8", layout.Int8},
		{uint8(200), uint16(200), "uint8 to uint16", layout.Uint16},
		{uint32(5), uint64(5), "uint32 to uint64", layout.Uint64},
		{1.5, float32(1.5), "float64 to float32", layout.Float32},
		{3, float64(3), "int to float64", layout.Float64},
		{nil, uintptr(0), "nil pointer", layout.Pointer},
		{handle.Borrow(0x40), uintptr(0x40), "handle to pointer", layout.Pointer},
		{"tip", "tip", "string", layout.String},
		{nil, nil, "null string", layout.String},
		{nil, nil, "void", layout.Void},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Canonical(tt.prim, tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestCanonicalErrors(t *testing.T) {
	tests := []struct {
		in   any
		name string
		prim layout.Prim
		kind errors.Kind
	}{
		{1, "int to bool", layout.Bool, errors.KindTypeMismatch},
		{300, "uint8 overflow", layout.Uint8, errors.KindOverflow},
		{-1, "negative unsigned", layout.Uint32, errors.KindOverflow},
		{int64(math.MaxInt64), "int32 overflow", layout.Int32, errors.KindOverflow},
		{"x", "string to pointer", layout.Pointer, errors.KindTypeMismatch},
		{42, "int to string", layout.String, errors.KindTypeMismatch},
		{math.MaxFloat64, "float32 overflow", layout.Float32, errors.KindOverflow},
		{1, "value for void", layout.Void, errors.KindTypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Canonical(tt.prim, tt.in)
			if !errors.HasKind(err, tt.kind) {
				t.Errorf("expected %s, got %v", tt.kind, err)
			}
		})
	}
}

func TestCanonicalArgs(t *testing.T) {
	sig := Sig{Params: []layout.Prim{layout.Pointer, layout.Int32, layout.String, layout.Uint32}, Result: layout.Pointer}

	args, err := CanonicalArgs(sig, []any{uintptr(1), -1, "Quit", uint32(1)})
	if err != nil {
		t.Fatal(err)
	}
	if args[1] != int32(-1) {
		t.Errorf("arg1 = %#v", args[1])
	}

	if _, err := CanonicalArgs(sig, []any{uintptr(1)}); !errors.HasKind(err, errors.KindInvalidInput) {
		t.Errorf("arity: %v", err)
	}

	_, err = CanonicalArgs(sig, []any{uintptr(1), "x", "Quit", uint32(1)})
	e, ok := err.(*errors.Error)
	if !ok || len(e.Path) != 1 || e.Path[0] != "arg1" {
		t.Errorf("expected arg1 in path, got %v", err)
	}
}

func TestSig(t *testing.T) {
	a := Sig{Params: []layout.Prim{layout.Pointer, layout.Pointer}, Result: layout.Void}
	b := Sig{Params: []layout.Prim{layout.Pointer, layout.Pointer}, Result: layout.Void}
	c := Sig{Params: []layout.Prim{layout.Pointer}, Result: layout.Void}

	if !a.Equal(b) || a.Equal(c) {
		t.Error("Equal mismatch")
	}
	if a.String() != "void(pointer,pointer)" {
		t.Errorf("String = %q", a.String())
	}
	if a.Key() != b.Key() {
		t.Error("equal signatures should share a key")
	}
}

func TestBits(t *testing.T) {
	tests := []struct {
		v    any
		prim layout.Prim
	}{
		{int8(-5), layout.Int8},
		{int32(math.MinInt32), layout.Int32},
		{uint16(0xfffe), layout.Uint16},
		{int64(-1), layout.Int64},
		{float32(-2.25), layout.Float32},
		{math.Pi, layout.Float64},
		{true, layout.Bool},
		{uintptr(0xabc), layout.Pointer},
	}
	for _, tt := range tests {
		if got := FromBits(tt.prim, ToBits(tt.v)); got != tt.v {
			t.Errorf("%s: got %#v, want %#v", tt.prim, got, tt.v)
		}
	}
	if ToBits(int32(-1)) != math.MaxUint64 {
		t.Error("signed values should sign extend")
	}
	if Zero(layout.Pointer) != uintptr(0) || Zero(layout.Void) != nil {
		t.Error("Zero")
	}
}
