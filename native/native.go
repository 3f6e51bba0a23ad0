package native

import (
	"context"
	"strings"

	interop "github.com/wippyai/native-interop"
	"github.com/wippyai/native-interop/layout"
)

// Sig is the C signature of a function or callback.
type Sig struct {
	Params []layout.Prim
	Result layout.Prim
}

func (s Sig) String() string {
	var sb strings.Builder
	sb.WriteString(s.Result.String())
	sb.WriteByte('(')
	for i, p := range s.Params {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(p.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

// Key identifies a signature in maps.
func (s Sig) Key() string {
	return s.String()
}

func (s Sig) Equal(o Sig) bool {
	if s.Result != o.Result || len(s.Params) != len(o.Params) {
		return false
	}
	for i := range s.Params {
		if s.Params[i] != o.Params[i] {
			return false
		}
	}
	return true
}

// Dispatcher handles a native invocation of a trampoline entry point. args
// are canonical values for the entry's signature and the returned value is
// converted back to the signature's result type.
type Dispatcher func(ctx context.Context, args []any) any

// Library is a loaded C library.
type Library interface {
	// Name identifies the library in logs and errors.
	Name() string
	// Proc resolves a symbol. A missing symbol yields a symbol_unavailable
	// error.
	Proc(name string) (uintptr, error)
	// Call invokes fn with canonical arguments and returns the canonical
	// result (nil for void).
	Call(ctx context.Context, fn uintptr, sig Sig, args []any) (any, error)
	// EntryPoint returns a native function pointer with signature sig that
	// forwards every invocation to d.
	EntryPoint(sig Sig, d Dispatcher) (uintptr, error)
	// Memory is the address space native pointers refer to.
	Memory() interop.Memory
	// Allocator allocates memory the native side may free.
	Allocator() interop.Allocator
	// LastError returns the library's error string for the calling thread.
	LastError() string
	Close() error
}

// Targeter is implemented by libraries whose struct layouts differ from
// the host's, such as wasm32 guests.
type Targeter interface {
	Target() layout.Target
}

// TargetOf returns the layout target of lib, defaulting to the host.
func TargetOf(lib Library) layout.Target {
	if t, ok := lib.(Targeter); ok {
		return t.Target()
	}
	return layout.Host
}
