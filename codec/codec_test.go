package codec

import (
	"math"
	"reflect"
	"testing"

	"github.com/wippyai/native-interop/errors"
	"github.com/wippyai/native-interop/handle"
	"github.com/wippyai/native-interop/layout"
)

func mustCompile(t testing.TB, d *layout.Descriptor, target layout.Target) *layout.Compiled {
	t.Helper()
	c, err := d.Compile(target)
	if err != nil {
		t.Fatalf("compile %s: %v", d.Name, err)
	}
	return c
}

func rectLayout() *layout.Descriptor {
	return layout.Struct("SDL_Rect",
		layout.F("x", layout.P(layout.Int32)),
		layout.F("y", layout.P(layout.Int32)),
		layout.F("w", layout.P(layout.Int32)),
		layout.F("h", layout.P(layout.Int32)),
	)
}

func gamepadBindingLayout() *layout.Descriptor {
	axis := func() *layout.Descriptor {
		return layout.Struct("",
			layout.F("axis", layout.P(layout.Int32)),
			layout.F("axis_min", layout.P(layout.Int32)),
			layout.F("axis_max", layout.P(layout.Int32)),
		)
	}
	hat := layout.Struct("",
		layout.F("hat", layout.P(layout.Int32)),
		layout.F("hat_mask", layout.P(layout.Int32)),
	)
	return layout.Struct("SDL_GamepadBinding",
		layout.F("input_type", layout.P(layout.Int32)),
		layout.F("input", layout.Union(
			layout.F("button", layout.P(layout.Int32)),
			layout.F("axis", layout.StructOf(axis())),
			layout.F("hat", layout.StructOf(hat)),
		)),
		layout.F("output_type", layout.P(layout.Int32)),
		layout.F("output", layout.Union(
			layout.F("button", layout.P(layout.Int32)),
			layout.F("axis", layout.StructOf(axis())),
		)),
	)
}

var bindingTags = Tagged{
	"input":  {Field: "input_type", Arms: map[int64]string{1: "button", 2: "axis", 3: "hat"}},
	"output": {Field: "output_type", Arms: map[int64]string{1: "button", 2: "axis"}},
}

func displayModeLayout() *layout.Descriptor {
	return layout.Struct("SDL_DisplayMode",
		layout.F("displayID", layout.P(layout.Uint32)),
		layout.F("format", layout.P(layout.Uint32)),
		layout.F("w", layout.P(layout.Int32)),
		layout.F("h", layout.P(layout.Int32)),
		layout.F("pixel_density", layout.P(layout.Float32)),
		layout.F("refresh_rate", layout.P(layout.Float32)),
		layout.F("refresh_rate_numerator", layout.P(layout.Int32)),
		layout.F("refresh_rate_denominator", layout.P(layout.Int32)),
		layout.F("internal", layout.P(layout.Pointer)),
	)
}

func TestDecodeRect(t *testing.T) {
	c := mustCompile(t, rectLayout(), layout.LP64)
	buf := []byte{
		10, 0, 0, 0,
		0xEC, 0xFF, 0xFF, 0xFF, // -20
		0x80, 0x02, 0, 0, // 640
		0xE0, 0x01, 0, 0, // 480
	}

	rec, err := DecodeBytes(c, buf, 0, DecodeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	want := Record{"x": int32(10), "y": int32(-20), "w": int32(640), "h": int32(480)}
	if !reflect.DeepEqual(rec, want) {
		t.Errorf("got %v, want %v", rec, want)
	}
}

func TestDecodeLayoutMismatch(t *testing.T) {
	c := mustCompile(t, rectLayout(), layout.LP64)

	tests := []struct {
		name string
		buf  []byte
		off  uint32
	}{
		{"short", make([]byte, 15), 0},
		{"offset past end", make([]byte, 16), 4},
		{"empty", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeBytes(c, tt.buf, tt.off, DecodeOptions{})
			if !errors.HasKind(err, errors.KindLayoutMismatch) {
				t.Fatalf("expected layout_mismatch, got %v", err)
			}
		})
	}

	err := EncodeBytes(c, Record{"x": 1, "y": 2, "w": 3, "h": 4}, make([]byte, 8), 0, EncodeOptions{})
	if !errors.HasKind(err, errors.KindLayoutMismatch) {
		t.Errorf("encode into short buffer: %v", err)
	}
}

func TestEncodeDisplayMode(t *testing.T) {
	c := mustCompile(t, displayModeLayout(), layout.LP64)
	buf := NewBuffer(int(c.Size))

	rec := Record{
		"displayID":                uint32(1),
		"format":                   uint32(0x16362004),
		"w":                        1920,
		"h":                        1080,
		"pixel_density":            float32(2),
		"refresh_rate":             59.94,
		"refresh_rate_numerator":   60000,
		"refresh_rate_denominator": 1001,
		"internal":                 uintptr(0xdeadbeef),
	}
	if err := Encode(c, rec, buf, 0, EncodeOptions{}); err != nil {
		t.Fatal(err)
	}

	ptr, _ := buf.ReadU64(32)
	if ptr != 0xdeadbeef {
		t.Errorf("internal pointer at offset 32 = %#x", ptr)
	}
	w, _ := buf.ReadU32(8)
	if w != 1920 {
		t.Errorf("w = %d", w)
	}

	got, err := Decode(c, buf, 0, DecodeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if got["internal"] != handle.Borrow(0xdeadbeef) {
		t.Errorf("internal = %v", got["internal"])
	}
	if got["refresh_rate"] != float32(59.94) {
		t.Errorf("refresh_rate = %v", got["refresh_rate"])
	}
	if got["w"] != int32(1920) {
		t.Errorf("w = %#v", got["w"])
	}
}

func TestPointerDecodesNull(t *testing.T) {
	c := mustCompile(t, displayModeLayout(), layout.Wasm32)
	rec, err := DecodeBytes(c, make([]byte, c.Size), 0, DecodeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	h := rec["internal"].(handle.Handle)
	if !h.IsNull() || h.Own != handle.Null {
		t.Errorf("zero pointer should decode as Null, got %v", h)
	}
}

func TestGamepadBindingUnion(t *testing.T) {
	c := mustCompile(t, gamepadBindingLayout(), layout.LP64)
	opts := DecodeOptions{Discriminants: bindingTags.Resolve}

	rec := Record{
		"input_type": int32(2),
		"input": Union{Arm: "axis", Value: Record{
			"axis": int32(1), "axis_min": int32(-32768), "axis_max": int32(32767),
		}},
		"output_type": int32(1),
		"output":      Union{Arm: "button", Value: int32(11)},
	}

	buf := NewBuffer(int(c.Size))
	if err := Encode(c, rec, buf, 0, EncodeOptions{}); err != nil {
		t.Fatal(err)
	}
	if n, _ := buf.ReadU32(12); int32(n) != 32767 {
		t.Errorf("input.axis.axis_max at 12 = %d", int32(n))
	}
	if n, _ := buf.ReadU32(20); n != 11 {
		t.Errorf("output.button at 20 = %d", n)
	}
	if n, _ := buf.ReadU32(24); n != 0 {
		t.Errorf("inactive union bytes not zeroed: %d", n)
	}

	got, err := Decode(c, buf, 0, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, rec) {
		t.Errorf("round trip:\n got  %v\n want %v", got, rec)
	}

	t.Run("no resolver", func(t *testing.T) {
		_, err := Decode(c, buf, 0, DecodeOptions{})
		if !errors.HasKind(err, errors.KindInvalidVariant) {
			t.Errorf("expected invalid_variant, got %v", err)
		}
	})

	t.Run("resolver declines", func(t *testing.T) {
		_, err := Decode(c, buf, 0, DecodeOptions{Discriminants: func([]string, Record) (string, bool) {
			return "", false
		}})
		if !errors.HasKind(err, errors.KindInvalidVariant) {
			t.Errorf("expected invalid_variant, got %v", err)
		}
	})

	t.Run("unmapped tag is inactive", func(t *testing.T) {
		none := Record{
			"input_type":  int32(0),
			"input":       Union{},
			"output_type": int32(0),
			"output":      Union{},
		}
		b := NewBuffer(int(c.Size))
		if err := Encode(c, none, b, 0, EncodeOptions{}); err != nil {
			t.Fatal(err)
		}
		got, err := Decode(c, b, 0, opts)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(got, none) {
			t.Errorf("got %v", got)
		}
	})

	t.Run("unknown arm on encode", func(t *testing.T) {
		bad := Record{
			"input_type":  int32(1),
			"input":       Union{Arm: "gyro", Value: int32(1)},
			"output_type": int32(0),
			"output":      Union{},
		}
		err := Encode(c, bad, NewBuffer(int(c.Size)), 0, EncodeOptions{})
		if !errors.HasKind(err, errors.KindInvalidVariant) {
			t.Errorf("expected invalid_variant, got %v", err)
		}
	})
}

func TestEncodeErrors(t *testing.T) {
	c := mustCompile(t, layout.Struct("mixed",
		layout.F("flag", layout.P(layout.Bool)),
		layout.F("small", layout.P(layout.Uint8)),
		layout.F("signed", layout.P(layout.Int16)),
		layout.F("ratio", layout.P(layout.Float32)),
		layout.F("data", layout.Array(layout.P(layout.Uint8), 4)),
		layout.F("ptr", layout.P(layout.Pointer)),
	), layout.Wasm32)

	wide := uint64(1) << 40
	valid := func() Record {
		return Record{
			"flag":   true,
			"small":  uint8(1),
			"signed": int16(-1),
			"ratio":  float32(0.5),
			"data":   []uint8{1, 2, 3, 4},
			"ptr":    nil,
		}
	}

	tests := []struct {
		mutate func(Record)
		name   string
		kind   errors.Kind
	}{
		{func(r Record) { r["small"] = 256 }, "uint8 overflow", errors.KindOverflow},
		{func(r Record) { r["small"] = -1 }, "negative unsigned", errors.KindOverflow},
		{func(r Record) { r["signed"] = 40000 }, "int16 overflow", errors.KindOverflow},
		{func(r Record) { r["signed"] = uint64(math.MaxUint64) }, "huge into signed", errors.KindOverflow},
		{func(r Record) { r["small"] = "1" }, "string into int", errors.KindTypeMismatch},
		{func(r Record) { r["flag"] = 1 }, "int into bool", errors.KindTypeMismatch},
		{func(r Record) { r["ratio"] = "half" }, "string into float", errors.KindTypeMismatch},
		{func(r Record) { r["ratio"] = math.MaxFloat64 }, "float32 overflow", errors.KindOverflow},
		{func(r Record) { r["data"] = []int{1, 2, 3} }, "short array", errors.KindTypeMismatch},
		{func(r Record) { r["data"] = 7 }, "scalar into array", errors.KindTypeMismatch},
		{func(r Record) { r["ptr"] = "0x10" }, "string into pointer", errors.KindTypeMismatch},
		{func(r Record) { r["ptr"] = uintptr(wide) }, "wide pointer on wasm32", errors.KindOverflow},
		{func(r Record) { delete(r, "flag") }, "missing field", errors.KindFieldMissing},
		{func(r Record) { r["extra"] = 1 }, "unknown field", errors.KindFieldUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := valid()
			tt.mutate(rec)
			err := Encode(c, rec, NewBuffer(int(c.Size)), 0, EncodeOptions{})
			if !errors.HasKind(err, tt.kind) {
				t.Errorf("expected %s, got %v", tt.kind, err)
			}
		})
	}

	t.Run("valid", func(t *testing.T) {
		if err := Encode(c, valid(), NewBuffer(int(c.Size)), 0, EncodeOptions{}); err != nil {
			t.Fatal(err)
		}
	})
}

func TestStringFields(t *testing.T) {
	c := mustCompile(t, layout.Struct("SDL_DialogFileFilter",
		layout.F("name", layout.P(layout.String)),
		layout.F("pattern", layout.P(layout.String)),
	), layout.LP64)

	buf := NewBuffer(int(c.Size))
	allocs := NewAllocationList()
	defer allocs.Release()

	rec := Record{"name": "Images", "pattern": "png;jpg"}
	if err := Encode(c, rec, buf, 0, EncodeOptions{Allocator: buf, Allocations: allocs}); err != nil {
		t.Fatal(err)
	}
	if allocs.Count() != 2 {
		t.Errorf("allocations = %d, want 2", allocs.Count())
	}

	got, err := Decode(c, buf, 0, DecodeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, rec) {
		t.Errorf("got %v", got)
	}

	t.Run("nil string is null", func(t *testing.T) {
		b := NewBuffer(int(c.Size))
		if err := Encode(c, Record{"name": nil, "pattern": nil}, b, 0, EncodeOptions{}); err != nil {
			t.Fatal(err)
		}
		got, err := Decode(c, b, 0, DecodeOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if got["name"] != "" {
			t.Errorf("null string decoded as %q", got["name"])
		}
	})

	t.Run("no allocator", func(t *testing.T) {
		b := NewBuffer(int(c.Size))
		err := Encode(c, rec, b, 0, EncodeOptions{})
		if !errors.HasKind(err, errors.KindNilPointer) {
			t.Errorf("expected nil_pointer, got %v", err)
		}
	})

	t.Run("EncodeBytes allocates in buffer", func(t *testing.T) {
		raw := make([]byte, c.Size)
		if err := EncodeBytes(c, rec, raw, 0, EncodeOptions{}); err != nil {
			t.Fatal(err)
		}
	})
}

func TestNestedArrayOfStructs(t *testing.T) {
	point := layout.Struct("SDL_FPoint",
		layout.F("x", layout.P(layout.Float32)),
		layout.F("y", layout.P(layout.Float32)),
	)
	c := mustCompile(t, layout.Struct("Triangle",
		layout.F("points", layout.Array(layout.StructOf(point), 3)),
		layout.F("color", layout.Array(layout.P(layout.Uint8), 4)),
	), layout.LP64)

	if c.Size != 28 {
		t.Fatalf("size = %d, want 28", c.Size)
	}

	rec := Record{
		"points": []any{
			Record{"x": float32(0), "y": float32(1)},
			Record{"x": float32(1), "y": float32(0)},
			Record{"x": float32(-1), "y": float32(0)},
		},
		"color": []any{uint8(255), uint8(0), uint8(128), uint8(255)},
	}
	buf := NewBuffer(int(c.Size))
	if err := Encode(c, rec, buf, 0, EncodeOptions{}); err != nil {
		t.Fatal(err)
	}
	if b, _ := buf.ReadU8(26); b != 128 {
		t.Errorf("color[2] = %d", b)
	}
	got, err := Decode(c, buf, 0, DecodeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, rec) {
		t.Errorf("got %v", got)
	}
}

func TestErrorPath(t *testing.T) {
	c := mustCompile(t, gamepadBindingLayout(), layout.LP64)
	rec := Record{
		"input_type":  int32(2),
		"input":       Union{Arm: "axis", Value: Record{"axis": 1, "axis_min": "low", "axis_max": 2}},
		"output_type": int32(0),
		"output":      Union{},
	}
	err := Encode(c, rec, NewBuffer(int(c.Size)), 0, EncodeOptions{})
	var e *errors.Error
	if !asError(err, &e) {
		t.Fatalf("expected structured error, got %v", err)
	}
	want := []string{"SDL_GamepadBinding", "input", "axis", "axis_min"}
	if !reflect.DeepEqual(e.Path, want) {
		t.Errorf("path = %v, want %v", e.Path, want)
	}
}

func asError(err error, target **errors.Error) bool {
	e, ok := err.(*errors.Error)
	if ok {
		*target = e
	}
	return ok
}
