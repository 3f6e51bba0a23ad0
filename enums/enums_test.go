package enums

import (
	"testing"

	"github.com/wippyai/native-interop/errors"
)

func propertyType() *Enum {
	return NewEnum("SDL_PropertyType", map[string]int64{
		"SDL_PROPERTY_TYPE_INVALID": 0,
		"SDL_PROPERTY_TYPE_POINTER": 1,
		"SDL_PROPERTY_TYPE_STRING":  2,
		"SDL_PROPERTY_TYPE_NUMBER":  3,
		"SDL_PROPERTY_TYPE_FLOAT":   4,
		"SDL_PROPERTY_TYPE_BOOLEAN": 5,
	})
}

func trayFlags() *Flags {
	return NewFlags("SDL_TrayEntryFlags", map[string]uint64{
		"SDL_TRAYENTRY_BUTTON":   0x00000001,
		"SDL_TRAYENTRY_CHECKBOX": 0x00000002,
		"SDL_TRAYENTRY_SUBMENU":  0x00000004,
		"SDL_TRAYENTRY_DISABLED": 0x80000000,
		"SDL_TRAYENTRY_CHECKED":  0x40000000,
	})
}

func TestEnumLookup(t *testing.T) {
	e := propertyType()

	if n, ok := e.Name(2); !ok || n != "SDL_PROPERTY_TYPE_STRING" {
		t.Errorf("Name(2) = %q, %v", n, ok)
	}
	if _, ok := e.Name(99); ok {
		t.Error("Name(99) should fail")
	}
	if v, ok := e.Value("SDL_PROPERTY_TYPE_FLOAT"); !ok || v != 4 {
		t.Errorf("Value = %d, %v", v, ok)
	}
	if e.Format(99) != "99" {
		t.Errorf("Format(99) = %q", e.Format(99))
	}
	names := e.Names()
	if len(names) != 6 || names[0] != "SDL_PROPERTY_TYPE_INVALID" || names[5] != "SDL_PROPERTY_TYPE_BOOLEAN" {
		t.Errorf("Names = %v", names)
	}
}

func TestEnumErrors(t *testing.T) {
	e := propertyType()
	if err := e.Check(42); !errors.HasKind(err, errors.KindInvalidEnum) {
		t.Errorf("Check: %v", err)
	}
	if _, err := e.Parse("SDL_PROPERTY_TYPE_NOPE"); !errors.HasKind(err, errors.KindInvalidEnum) {
		t.Errorf("Parse: %v", err)
	}
	if _, err := As[int32](e, 42, true); err == nil {
		t.Error("strict As should reject unknown values")
	}
	if v, err := As[int32](e, 42, false); err != nil || v != 42 {
		t.Errorf("lenient As = %d, %v", v, err)
	}

	defer func() {
		if recover() == nil {
			t.Error("MustValue should panic on unknown names")
		}
	}()
	e.MustValue("missing")
}

func TestEnumAliases(t *testing.T) {
	e := NewEnum("T", map[string]int64{"B_ALIAS": 1, "A_FIRST": 1})
	if n, _ := e.Name(1); n != "A_FIRST" {
		t.Errorf("alias resolution picked %q", n)
	}
}

func TestFlagsFormatParse(t *testing.T) {
	f := trayFlags()

	tests := []struct {
		name string
		v    uint64
		want string
	}{
		{"single", 0x1, "SDL_TRAYENTRY_BUTTON"},
		{"combined", 0x2 | 0x40000000, "SDL_TRAYENTRY_CHECKBOX|SDL_TRAYENTRY_CHECKED"},
		{"unknown bits", 0x1 | 0x100, "SDL_TRAYENTRY_BUTTON|0x100"},
		{"zero", 0, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.Format(tt.v)
			if got != tt.want {
				t.Fatalf("Format(%#x) = %q, want %q", tt.v, got, tt.want)
			}
			back, err := f.Parse(got)
			if err != nil {
				t.Fatal(err)
			}
			if back != tt.v {
				t.Errorf("Parse(%q) = %#x, want %#x", got, back, tt.v)
			}
		})
	}

	if _, err := f.Parse("SDL_TRAYENTRY_BUTTON | BOGUS"); !errors.HasKind(err, errors.KindInvalidEnum) {
		t.Errorf("unknown name: %v", err)
	}
}

func TestFlagsSetClear(t *testing.T) {
	f := trayFlags()
	v, err := f.Set(0, "SDL_TRAYENTRY_CHECKBOX", "SDL_TRAYENTRY_DISABLED")
	if err != nil {
		t.Fatal(err)
	}
	if !f.Has(v, "SDL_TRAYENTRY_DISABLED") || f.Has(v, "SDL_TRAYENTRY_BUTTON") {
		t.Errorf("v = %#x", v)
	}
	v, err = f.Clear(v, "SDL_TRAYENTRY_DISABLED")
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x2 {
		t.Errorf("after clear v = %#x", v)
	}
	if _, err := f.Set(0, "NOPE"); !errors.HasKind(err, errors.KindInvalidEnum) {
		t.Errorf("Set unknown: %v", err)
	}
	if f.Unknown(0x1|0x8) != 0x8 {
		t.Errorf("Unknown = %#x", f.Unknown(0x9))
	}
}

func TestStringEnum(t *testing.T) {
	e := NewStringEnum("hints", map[string]string{
		"SDL_HINT_APP_NAME": "SDL_APP_NAME",
		"SDL_HINT_APP_ID":   "SDL_APP_ID",
	})
	if v, ok := e.Value("SDL_HINT_APP_ID"); !ok || v != "SDL_APP_ID" {
		t.Errorf("Value = %q", v)
	}
	if n, ok := e.Name("SDL_APP_NAME"); !ok || n != "SDL_HINT_APP_NAME" {
		t.Errorf("Name = %q", n)
	}
	if names := e.Names(); len(names) != 2 || names[0] != "SDL_HINT_APP_ID" {
		t.Errorf("Names = %v", names)
	}
}
