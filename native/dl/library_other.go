//go:build !(darwin || freebsd || linux || netbsd)

package dl

import (
	"context"

	interop "github.com/wippyai/native-interop"
	"github.com/wippyai/native-interop/errors"
	"github.com/wippyai/native-interop/native"
)

// Library is unavailable on this platform; Open always fails.
type Library struct{}

var _ native.Library = (*Library)(nil)

func Open(Config) (*Library, error) {
	return nil, errors.Unsupported(errors.PhaseLoad, "dlopen on this platform")
}

func (*Library) Name() string { return "" }

func (*Library) Proc(name string) (uintptr, error) { return 0, errors.SymbolUnavailable(name) }

func (*Library) Call(context.Context, uintptr, native.Sig, []any) (any, error) {
	return nil, errors.Closed(errors.PhaseCall, "library")
}

func (*Library) EntryPoint(native.Sig, native.Dispatcher) (uintptr, error) {
	return 0, errors.Closed(errors.PhaseCallback, "library")
}

func (*Library) Memory() interop.Memory { return hostMemory{} }

func (*Library) Allocator() interop.Allocator { return &mallocAllocator{} }

func (*Library) LastError() string { return "" }

func (*Library) Close() error { return nil }
