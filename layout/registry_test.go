package layout

import (
	"testing"

	"github.com/wippyai/native-interop/errors"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Struct("SDL_Point", F("x", P(Int32)), F("y", P(Int32)))); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(Struct("Segment", F("a", Ref("SDL_Point")), F("b", Ref("SDL_Point")), F("tag", P(Pointer)))); err != nil {
		t.Fatal(err)
	}

	t.Run("ref resolution", func(t *testing.T) {
		c, err := r.Compile("Segment", LP64)
		if err != nil {
			t.Fatal(err)
		}
		off, typ, ok := c.Offset("b", "y")
		if !ok || off != 12 || typ.Prim != Int32 {
			t.Errorf("b.y = %d %v %v", off, typ, ok)
		}
		if c.Size != 24 {
			t.Errorf("size = %d, want 24", c.Size)
		}
	})

	t.Run("per target", func(t *testing.T) {
		c, err := r.Compile("Segment", Wasm32)
		if err != nil {
			t.Fatal(err)
		}
		if c.Size != 20 {
			t.Errorf("wasm32 size = %d, want 20", c.Size)
		}
	})

	t.Run("duplicate", func(t *testing.T) {
		if err := r.Register(Struct("SDL_Point")); err == nil {
			t.Error("expected duplicate registration to fail")
		}
	})

	t.Run("missing", func(t *testing.T) {
		_, err := r.Compile("Nope", LP64)
		if !errors.HasKind(err, errors.KindNotFound) {
			t.Errorf("expected not_found, got %v", err)
		}
	})

	t.Run("names", func(t *testing.T) {
		names := r.Names()
		if len(names) != 2 || names[0] != "SDL_Point" || names[1] != "Segment" {
			t.Errorf("names = %v", names)
		}
	})
}

func TestRegistryCycle(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(Struct("A", F("b", Ref("B"))))
	_ = r.Register(Struct("B", F("a", Ref("A"))))

	_, err := r.CompileAll(LP64)
	if err == nil {
		t.Fatal("expected cycle error")
	}
	if !errors.HasKind(err, errors.KindInvalidInput) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRegistryUnresolvedRef(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(Struct("A", F("b", Ref("Missing"))))
	if _, err := r.CompileAll(LP64); !errors.HasKind(err, errors.KindNotFound) {
		t.Errorf("expected not_found, got %v", err)
	}
}
