package abi

import (
	"math"
	"testing"
)

func TestCoerceToInt64(t *testing.T) {
	tests := []struct {
		input  any
		name   string
		want   int64
		wantOK bool
	}{
		{int(-7), "int", -7, true},
		{int8(-128), "int8 min", -128, true},
		{uint32(math.MaxUint32), "uint32 max", math.MaxUint32, true},
		{uint64(math.MaxUint64), "uint64 too large", 0, false},
		{float64(42), "float64 integral", 42, true},
		{float64(3.5), "float64 fractional", 0, false},
		{float32(-2), "float32 integral", -2, true},
		{"12", "string", 0, false},
		{nil, "nil", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CoerceToInt64(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCoerceToUint64(t *testing.T) {
	tests := []struct {
		input  any
		name   string
		want   uint64
		wantOK bool
	}{
		{uint64(math.MaxUint64), "uint64 max", math.MaxUint64, true},
		{uintptr(0x1000), "uintptr", 0x1000, true},
		{int(-1), "negative int", 0, false},
		{int64(99), "int64", 99, true},
		{float64(-1), "negative float", 0, false},
		{float64(1e3), "float64", 1000, true},
		{true, "bool", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CoerceToUint64(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCoerceToFloat64(t *testing.T) {
	if v, ok := CoerceToFloat64(float32(1.5)); !ok || v != 1.5 {
		t.Errorf("float32: %v %v", v, ok)
	}
	if v, ok := CoerceToFloat64(int32(-3)); !ok || v != -3 {
		t.Errorf("int32: %v %v", v, ok)
	}
	if _, ok := CoerceToFloat64("1.0"); ok {
		t.Error("string should not coerce")
	}
}

func TestFits(t *testing.T) {
	tests := []struct {
		name string
		got  bool
		want bool
	}{
		{"s8 127", FitsSigned(127, 1), true},
		{"s8 128", FitsSigned(128, 1), false},
		{"s8 -128", FitsSigned(-128, 1), true},
		{"s8 -129", FitsSigned(-129, 1), false},
		{"s16 -32768", FitsSigned(-32768, 2), true},
		{"s32 max", FitsSigned(math.MaxInt32, 4), true},
		{"s32 max+1", FitsSigned(math.MaxInt32+1, 4), false},
		{"s64 min", FitsSigned(math.MinInt64, 8), true},
		{"u8 255", FitsUnsigned(255, 1), true},
		{"u8 256", FitsUnsigned(256, 1), false},
		{"u32 max", FitsUnsigned(math.MaxUint32, 4), true},
		{"u32 max+1", FitsUnsigned(math.MaxUint32+1, 4), false},
		{"u64 max", FitsUnsigned(math.MaxUint64, 8), true},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}
