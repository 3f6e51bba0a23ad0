package catalog

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wippyai/native-interop/codec"
	"github.com/wippyai/native-interop/errors"
	"github.com/wippyai/native-interop/layout"
	"github.com/wippyai/native-interop/native/sim"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	if c.Name != "sdl3" {
		t.Errorf("Name = %q", c.Name)
	}
	groups := c.Groups()
	for _, g := range []string{"core", "video", "tray", "properties"} {
		if len(groups[g]) == 0 {
			t.Errorf("group %q is empty", g)
		}
	}
	if _, ok := c.Function("SDL_CreateTray"); !ok {
		t.Error("SDL_CreateTray missing")
	}
	if cb, ok := c.Callback("SDL_EnumeratePropertiesCallback"); !ok || cb.Thread != "same" {
		t.Errorf("callback = %+v", cb)
	}
}

func TestSchemaValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing functions", "name: x\n"},
		{"unknown top-level key", "name: x\nfunctions: []\nextra: 1\n"},
		{"bad fails_on", "name: x\nfunctions:\n  - {name: f, group: g, returns: int32, fails_on: sometimes}\n"},
		{"bad prim", "name: x\nfunctions:\n  - {name: f, group: g, params: [quaternion]}\n"},
		{"field with two types", "name: x\nfunctions: []\nstructs:\n  - name: S\n    fields:\n      - {name: a, type: int32, struct: T}\n"},
		{"zero count", "name: x\nfunctions: []\nstructs:\n  - name: S\n    fields:\n      - {name: a, type: int32, count: 0}\n"},
		{"not yaml", "name: [unclosed\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml), LoadOptions{}); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestSemanticValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			"duplicate function",
			"name: x\nfunctions:\n  - {name: f, group: g}\n  - {name: f, group: g}\n",
			"duplicate function",
		},
		{
			"false on int result",
			"name: x\nfunctions:\n  - {name: f, group: g, returns: int32, fails_on: false}\n",
			"false needs a bool result",
		},
		{
			"negative on unsigned",
			"name: x\nfunctions:\n  - {name: f, group: g, returns: uint32, fails_on: negative}\n",
			"negative needs a signed result",
		},
		{
			"unknown struct",
			"name: x\nfunctions: []\nstructs:\n  - name: S\n    fields:\n      - {name: a, struct: Missing}\n",
			"unknown struct",
		},
		{
			"tag after union",
			"name: x\nfunctions: []\nstructs:\n  - name: S\n    fields:\n      - name: u\n        union: [{name: a, type: int32}]\n        tag: {field: kind, arms: {1: a}}\n      - {name: kind, type: int32}\n",
			"must be declared before",
		},
		{
			"tag names unknown arm",
			"name: x\nfunctions: []\nstructs:\n  - name: S\n    fields:\n      - {name: kind, type: int32}\n      - name: u\n        union: [{name: a, type: int32}]\n        tag: {field: kind, arms: {1: b}}\n",
			"unknown arm",
		},
		{
			"struct cycle",
			"name: x\nfunctions: []\nstructs:\n  - name: A\n    fields: [{name: b, struct: B}]\n  - name: B\n    fields: [{name: a, struct: A}]\n",
			"structs",
		},
		{
			"callback userdata not pointer",
			"name: x\nfunctions: []\ncallbacks:\n  - {name: cb, params: [int32, pointer], userdata: 0}\n",
			"userdata",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), LoadOptions{})
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
			var res *ValidationResult
			if !stderrors.As(err, &res) {
				t.Errorf("error should wrap a ValidationResult: %v", err)
			}
		})
	}
}

func TestSkipValidation(t *testing.T) {
	c, err := Parse([]byte("name: x\nfunctions:\n  - {name: f, group: g, returns: int32, fails_on: false}\n"), LoadOptions{SkipValidation: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Functions) != 1 {
		t.Errorf("functions = %d", len(c.Functions))
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sdl.yaml")
	if err := os.WriteFile(path, DefaultYAML(), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path, LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Functions) != len(Default().Functions) {
		t.Error("file and embedded catalog differ")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), LoadOptions{}); err == nil {
		t.Error("missing file should fail")
	}
}

func TestLayouts(t *testing.T) {
	reg, err := Default().Layouts()
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name   string
		target layout.Target
		size   uint32
	}{
		{"SDL_Rect", layout.LP64, 16},
		{"SDL_Color", layout.LP64, 4},
		{"SDL_GUID", layout.LP64, 16},
		{"SDL_AudioSpec", layout.LP64, 12},
		{"SDL_GamepadBinding", layout.LP64, 32},
		{"SDL_DisplayMode", layout.LP64, 40},
		{"SDL_DisplayMode", layout.Wasm32, 36},
	}
	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.target.Name, func(t *testing.T) {
			c, err := reg.Compile(tt.name, tt.target)
			if err != nil {
				t.Fatal(err)
			}
			if c.Size != tt.size {
				t.Errorf("size = %d, want %d", c.Size, tt.size)
			}
		})
	}
}

func TestDiscriminants(t *testing.T) {
	cat := Default()
	reg, _ := cat.Layouts()
	c, err := reg.Compile("SDL_GamepadBinding", layout.LP64)
	if err != nil {
		t.Fatal(err)
	}

	rec := codec.Record{
		"input_type": int32(2),
		"input": codec.Union{Arm: "axis", Value: codec.Record{
			"axis": int32(1), "axis_min": int32(-32768), "axis_max": int32(32767),
		}},
		"output_type": int32(1),
		"output":      codec.Union{Arm: "button", Value: int32(4)},
	}
	buf := make([]byte, c.Size)
	if err := codec.EncodeBytes(c, rec, buf, 0, codec.EncodeOptions{}); err != nil {
		t.Fatal(err)
	}
	got, err := codec.DecodeBytes(c, buf, 0, codec.DecodeOptions{Discriminants: cat.Discriminants("SDL_GamepadBinding")})
	if err != nil {
		t.Fatal(err)
	}
	in := got["input"].(codec.Union)
	if in.Arm != "axis" || in.Value.(codec.Record)["axis_min"] != int32(-32768) {
		t.Errorf("input = %+v", in)
	}
	out := got["output"].(codec.Union)
	if out.Arm != "button" || out.Value != int32(4) {
		t.Errorf("output = %+v", out)
	}

	// BINDTYPE_NONE has no arm.
	rec["input_type"] = int32(0)
	rec["input"] = codec.Union{}
	if err := codec.EncodeBytes(c, rec, buf, 0, codec.EncodeOptions{}); err != nil {
		t.Fatal(err)
	}
	got, err = codec.DecodeBytes(c, buf, 0, codec.DecodeOptions{Discriminants: cat.Discriminants("SDL_GamepadBinding")})
	if err != nil {
		t.Fatal(err)
	}
	if got["input"].(codec.Union).Arm != "" {
		t.Errorf("inactive union decoded as %+v", got["input"])
	}
}

func TestBind(t *testing.T) {
	s, err := Bind(sim.New(), Default())
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Unavailable()) != 0 {
		t.Errorf("unavailable = %v", s.Unavailable())
	}
	if len(s.Group("tray")) == 0 {
		t.Error("tray group empty")
	}
	if _, err := s.Proc("SDL_Nope"); !errors.HasKind(err, errors.KindNotFound) {
		t.Errorf("unknown proc: %v", err)
	}
	sig, err := s.Callback("SDL_TrayCallback")
	if err != nil {
		t.Fatal(err)
	}
	if !sig.CrossThread || sig.UserData != 0 || len(sig.Params) != 2 {
		t.Errorf("sig = %+v", sig)
	}
	if _, err := s.Callback("SDL_Nope"); !errors.HasKind(err, errors.KindNotFound) {
		t.Errorf("unknown callback: %v", err)
	}
}

func TestBindMissingSymbols(t *testing.T) {
	lib := sim.New(sim.WithoutSymbols("SDL_CreateTray", "SDL_DestroyTray", "SDL_UpdateTrays"))
	_, err := Bind(lib, Default())

	var missing *errors.MissingSymbolsError
	if !stderrors.As(err, &missing) {
		t.Fatalf("expected MissingSymbolsError, got %v", err)
	}
	if len(missing.Symbols) != 2 {
		t.Errorf("missing = %+v", missing.Symbols)
	}
	if !strings.Contains(err.Error(), "tray:") {
		t.Errorf("message should group by catalog group: %q", err)
	}
}

func TestOptionalSymbol(t *testing.T) {
	lib := sim.New(sim.WithoutSymbols("SDL_UpdateTrays"))
	s, err := Bind(lib, Default())
	if err != nil {
		t.Fatal(err)
	}
	p, err := s.Proc("SDL_UpdateTrays")
	if err != nil {
		t.Fatal(err)
	}
	if p.Available() {
		t.Error("proc should be unavailable")
	}
	if _, err := p.Call(context.Background()); !errors.HasKind(err, errors.KindSymbolUnavailable) {
		t.Errorf("call: %v", err)
	}
	if u := s.Unavailable(); len(u) != 1 || u[0] != "SDL_UpdateTrays" {
		t.Errorf("Unavailable = %v", u)
	}
}

func TestProcCall(t *testing.T) {
	lib := sim.New()
	s, err := Bind(lib, Default())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	create, _ := s.Proc("SDL_CreateTray")

	t.Run("success", func(t *testing.T) {
		out, err := create.Call(ctx, nil, "tip")
		if err != nil {
			t.Fatal(err)
		}
		if out.(uintptr) == 0 {
			t.Error("NULL tray")
		}
	})

	t.Run("arity", func(t *testing.T) {
		_, err := create.Call(ctx, nil)
		if !errors.HasKind(err, errors.KindInvalidInput) {
			t.Errorf("got %v", err)
		}
	})

	t.Run("type mismatch", func(t *testing.T) {
		_, err := create.Call(ctx, "not a pointer", "tip")
		if !errors.HasKind(err, errors.KindTypeMismatch) {
			t.Fatalf("got %v", err)
		}
		var e *errors.Error
		if stderrors.As(err, &e) && (len(e.Path) < 2 || e.Path[0] != "SDL_CreateTray" || e.Path[1] != "arg0") {
			t.Errorf("path = %v", e.Path)
		}
	})

	t.Run("fails on zero", func(t *testing.T) {
		lib.FailNext("SDL_CreateTray", "Tray not supported")
		_, err := create.Call(ctx, nil, "tip")
		if !errors.HasKind(err, errors.KindNativeCallFailed) {
			t.Fatalf("got %v", err)
		}
		if !strings.Contains(err.Error(), "Tray not supported") {
			t.Errorf("message %q lacks the native error", err)
		}
	})

	t.Run("fails on false", func(t *testing.T) {
		setStr, _ := s.Proc("SDL_SetStringProperty")
		_, err := setStr.Call(ctx, uint32(12345), "k", "v")
		if !errors.HasKind(err, errors.KindNativeCallFailed) {
			t.Errorf("got %v", err)
		}
	})

	t.Run("int coerced", func(t *testing.T) {
		create, _ := s.Proc("SDL_CreateProperties")
		id, err := create.Call(ctx)
		if err != nil {
			t.Fatal(err)
		}
		setNum, _ := s.Proc("SDL_SetNumberProperty")
		if _, err := setNum.Call(ctx, id, "n", 7); err != nil {
			t.Errorf("int argument for int64 slot: %v", err)
		}
	})
}

func TestSurfaceDecode(t *testing.T) {
	lib := sim.New()
	s, err := Bind(lib, Default())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	primary, _ := s.Proc("SDL_GetPrimaryDisplay")
	modeProc, _ := s.Proc("SDL_GetCurrentDisplayMode")

	id, err := primary.Call(ctx)
	if err != nil {
		t.Fatal(err)
	}
	addr, err := modeProc.Call(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	mode, err := s.Decode("SDL_DisplayMode", addr.(uintptr))
	if err != nil {
		t.Fatal(err)
	}
	if mode["displayID"] != id || mode["w"] != int32(1920) {
		t.Errorf("mode = %v", mode)
	}

	pf, err := s.Catalog().Enum("SDL_PixelFormat")
	if err != nil {
		t.Fatal(err)
	}
	if name, _ := pf.Name(int64(mode["format"].(uint32))); name != "SDL_PIXELFORMAT_XRGB8888" {
		t.Errorf("format = %s", name)
	}

	if _, err := s.Decode("SDL_Nope", addr.(uintptr)); !errors.HasKind(err, errors.KindNotFound) {
		t.Errorf("unknown struct: %v", err)
	}
}

func TestSurfaceEncodeRect(t *testing.T) {
	lib := sim.New()
	s, err := Bind(lib, Default())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	c, err := s.Layout("SDL_Rect")
	if err != nil {
		t.Fatal(err)
	}
	alloc := func(rec codec.Record) uintptr {
		addr, err := lib.Allocator().Alloc(c.Size, c.Align)
		if err != nil {
			t.Fatal(err)
		}
		if err := s.Encode("SDL_Rect", rec, addr, nil); err != nil {
			t.Fatal(err)
		}
		return addr
	}
	a := alloc(codec.Record{"x": 0, "y": 0, "w": 10, "h": 10})
	b := alloc(codec.Record{"x": 4, "y": 6, "w": 10, "h": 10})
	out := alloc(codec.Record{"x": 0, "y": 0, "w": 0, "h": 0})

	inter, _ := s.Proc("SDL_GetRectIntersection")
	ok, err := inter.Call(ctx, a, b, out)
	if err != nil || ok != true {
		t.Fatalf("intersection = %v, %v", ok, err)
	}
	got, err := s.Decode("SDL_Rect", out)
	if err != nil {
		t.Fatal(err)
	}
	want := codec.Record{"x": int32(4), "y": int32(6), "w": int32(6), "h": int32(4)}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %v", k, got[k], v)
		}
	}
}

func TestTables(t *testing.T) {
	c := Default()
	flags, err := c.FlagSet("SDL_TrayEntryFlags")
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := flags.Parse("SDL_TRAYENTRY_CHECKBOX|SDL_TRAYENTRY_CHECKED"); v != 0x40000002 {
		t.Errorf("flags = %#x", v)
	}
	hints, err := c.StringEnum("SDL_Hint")
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := hints.Value("SDL_HINT_APP_NAME"); v != "SDL_APP_NAME" {
		t.Errorf("hint = %q", v)
	}
	if _, err := c.Enum("Nope"); !errors.HasKind(err, errors.KindNotFound) {
		t.Errorf("unknown enum: %v", err)
	}
	if _, err := c.FlagSet("Nope"); !errors.HasKind(err, errors.KindNotFound) {
		t.Errorf("unknown flags: %v", err)
	}
}

func TestSchemaDocument(t *testing.T) {
	if !strings.Contains(string(Schema()), "\"$defs\"") {
		t.Error("schema document looks empty")
	}
}

func TestBareBooleanFailsOn(t *testing.T) {
	c, err := Parse([]byte("name: x\nfunctions:\n  - {name: f, group: g, returns: bool, fails_on: false}\n  - {name: h, group: g, returns: bool, fails_on: \"false\"}\n"), LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range c.Functions {
		if f.FailsOn != FailsFalse {
			t.Errorf("%s: fails_on = %q, want %q", f.Name, f.FailsOn, FailsFalse)
		}
	}

	_, err = Parse([]byte("name: x\nfunctions:\n  - {name: f, group: g, returns: bool, fails_on: true}\n"), LoadOptions{})
	if err == nil {
		t.Error("fails_on: true should be rejected")
	}
}

func TestDefaultCatalogLoads(t *testing.T) {
	c := Default()
	var falses int
	for _, f := range c.Functions {
		if f.FailsOn == FailsFalse {
			falses++
		}
	}
	if falses == 0 {
		t.Error("embedded catalog should carry bool-returning functions that fail on false")
	}
}
