package callback

import (
	"context"

	"github.com/wippyai/native-interop/errors"
	"github.com/wippyai/native-interop/layout"
	"github.com/wippyai/native-interop/native"
)

// Signature describes a C callback type.
type Signature struct {
	// Name is the C typedef, used in logs.
	Name   string
	Params []layout.Prim
	Result layout.Prim
	// UserData is the index of the void* parameter carrying the
	// registration key.
	UserData int
	// CrossThread marks callbacks the library may invoke from a thread
	// other than the one that registered them.
	CrossThread bool
}

// Handler is the Go side of a callback. args holds one canonical value per
// parameter, userdata included.
type Handler func(ctx context.Context, args []any) (any, error)

// Sig returns the native signature.
func (s Signature) Sig() native.Sig {
	return native.Sig{Params: s.Params, Result: s.Result}
}

func (s Signature) validate() error {
	if s.UserData < 0 || s.UserData >= len(s.Params) {
		return errors.New(errors.PhaseCallback, errors.KindInvalidInput).
			Path(s.Name).
			Value(s.UserData).
			Detail("userdata index %d outside %d params", s.UserData, len(s.Params)).
			Build()
	}
	if s.Params[s.UserData] != layout.Pointer {
		return errors.New(errors.PhaseCallback, errors.KindInvalidInput).
			Path(s.Name).
			CType(s.Params[s.UserData].String()).
			Detail("userdata parameter must be a pointer").
			Build()
	}
	for _, p := range s.Params {
		if p == layout.Void || !p.Valid() {
			return errors.InvalidInput(errors.PhaseCallback, "invalid parameter type "+p.String())
		}
	}
	if s.Result == layout.String {
		return errors.Unsupported(errors.PhaseCallback, "string results from callbacks")
	}
	if !s.Result.Valid() {
		return errors.InvalidInput(errors.PhaseCallback, "invalid result type "+s.Result.String())
	}
	return nil
}
