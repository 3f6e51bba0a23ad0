package dl

import (
	"reflect"

	"github.com/wippyai/native-interop/errors"
	"github.com/wippyai/native-interop/layout"
	"github.com/wippyai/native-interop/native"
)

var (
	uintptrType = reflect.TypeOf(uintptr(0))
	bytePtrType = reflect.TypeOf((*byte)(nil))
)

var primTypes = map[layout.Prim]reflect.Type{
	layout.Bool:    reflect.TypeOf(false),
	layout.Int8:    reflect.TypeOf(int8(0)),
	layout.Uint8:   reflect.TypeOf(uint8(0)),
	layout.Int16:   reflect.TypeOf(int16(0)),
	layout.Uint16:  reflect.TypeOf(uint16(0)),
	layout.Int32:   reflect.TypeOf(int32(0)),
	layout.Uint32:  reflect.TypeOf(uint32(0)),
	layout.Int64:   reflect.TypeOf(int64(0)),
	layout.Uint64:  reflect.TypeOf(uint64(0)),
	layout.Float32: reflect.TypeOf(float32(0)),
	layout.Float64: reflect.TypeOf(float64(0)),
	layout.Pointer: uintptrType,
}

// goType maps p to the Go type purego marshals it as. Outgoing string
// parameters are *byte so that nil reaches C as NULL; everywhere else a
// string is its address.
func goType(p layout.Prim, outgoingParam bool) (reflect.Type, error) {
	if p == layout.String {
		if outgoingParam {
			return bytePtrType, nil
		}
		return uintptrType, nil
	}
	t, ok := primTypes[p]
	if !ok {
		return nil, errors.Unsupported(errors.PhaseCall, "prim "+p.String())
	}
	return t, nil
}

// funcType builds the Go function type for sig. Callbacks receive strings
// as addresses.
func funcType(sig native.Sig, callback bool) (reflect.Type, error) {
	in := make([]reflect.Type, len(sig.Params))
	for i, p := range sig.Params {
		t, err := goType(p, !callback)
		if err != nil {
			return nil, err
		}
		in[i] = t
	}
	var out []reflect.Type
	if sig.Result != layout.Void {
		t, err := goType(sig.Result, false)
		if err != nil {
			return nil, err
		}
		out = []reflect.Type{t}
	}
	return reflect.FuncOf(in, out, false), nil
}

// cBytes returns a NUL-terminated copy of s, or nil for a NULL argument.
func cBytes(v any) (*byte, error) {
	s, ok := v.(string)
	if !ok {
		return nil, nil
	}
	b := make([]byte, len(s)+1)
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			return nil, errors.New(errors.PhaseCall, errors.KindInvalidData).
				Value(s).
				Detail("string contains NUL byte").
				Build()
		}
		b[i] = s[i]
	}
	return &b[0], nil
}
