package catalog

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/native-interop/callback"
	"github.com/wippyai/native-interop/codec"
	"github.com/wippyai/native-interop/errors"
	"github.com/wippyai/native-interop/layout"
	"github.com/wippyai/native-interop/native"
)

// Surface is a catalog bound to a loaded library: every function resolved
// to a type-checked Proc and every struct compiled for the library's
// target.
type Surface struct {
	lib     native.Library
	cat     *Catalog
	procs   map[string]*Proc
	groups  map[string]map[string]*Proc
	layouts *layout.Registry
	target  layout.Target
	discs   map[string]codec.Discriminants
	mu      sync.Mutex
}

// Proc is one catalog function bound to a library symbol.
type Proc struct {
	lib  native.Library
	err  error
	Sig  native.Sig
	Func Function
	addr uintptr
}

// Bind resolves every function of cat in lib. Missing required symbols
// fail the bind with a MissingSymbolsError; missing optional ones yield
// procs whose Call reports the symbol as unavailable.
func Bind(lib native.Library, cat *Catalog) (*Surface, error) {
	reg, err := cat.Layouts()
	if err != nil {
		return nil, err
	}
	s := &Surface{
		lib:     lib,
		cat:     cat,
		procs:   make(map[string]*Proc, len(cat.Functions)),
		groups:  make(map[string]map[string]*Proc),
		layouts: reg,
		target:  native.TargetOf(lib),
		discs:   make(map[string]codec.Discriminants),
	}

	var missing []string
	for _, f := range cat.Functions {
		sig, err := functionSignature(f)
		if err != nil {
			return nil, err
		}
		p := &Proc{lib: lib, Func: f, Sig: sig}
		addr, err := lib.Proc(f.Name)
		switch {
		case err == nil:
			p.addr = addr
		case errors.HasKind(err, errors.KindSymbolUnavailable):
			if !f.Optional {
				missing = append(missing, f.Group+"#"+f.Name)
				continue
			}
			p.err = err
			Logger().Debug("optional symbol unavailable",
				zap.String("library", lib.Name()),
				zap.String("symbol", f.Name))
		default:
			return nil, err
		}
		s.procs[f.Name] = p
		if s.groups[f.Group] == nil {
			s.groups[f.Group] = make(map[string]*Proc)
		}
		s.groups[f.Group][f.Name] = p
	}
	if len(missing) > 0 {
		return nil, errors.NewMissingSymbolsError(missing)
	}
	return s, nil
}

func functionSignature(f Function) (native.Sig, error) {
	sig := native.Sig{Result: layout.Void, Params: make([]layout.Prim, len(f.Params))}
	for i, name := range f.Params {
		p, ok := layout.ParsePrim(name)
		if !ok || p == layout.Void {
			return sig, errors.New(errors.PhaseCatalog, errors.KindInvalidInput).
				Path(f.Name).
				CType(name).
				Detail("parameter %d has unknown type %q", i, name).
				Build()
		}
		sig.Params[i] = p
	}
	if f.Returns != "" {
		p, ok := layout.ParsePrim(f.Returns)
		if !ok {
			return sig, errors.New(errors.PhaseCatalog, errors.KindInvalidInput).
				Path(f.Name).
				CType(f.Returns).
				Detail("unknown return type %q", f.Returns).
				Build()
		}
		sig.Result = p
	}
	return sig, nil
}

func callbackSignature(cb Callback) (callback.Signature, error) {
	sig := callback.Signature{
		Name:        cb.Name,
		Result:      layout.Void,
		UserData:    cb.UserData,
		CrossThread: cb.Thread != "same",
		Params:      make([]layout.Prim, len(cb.Params)),
	}
	for i, name := range cb.Params {
		p, ok := layout.ParsePrim(name)
		if !ok || p == layout.Void {
			return sig, errors.New(errors.PhaseCatalog, errors.KindInvalidInput).
				Path(cb.Name).
				CType(name).
				Detail("parameter %d has unknown type %q", i, name).
				Build()
		}
		sig.Params[i] = p
	}
	if cb.Returns != "" {
		p, ok := layout.ParsePrim(cb.Returns)
		if !ok {
			return sig, errors.New(errors.PhaseCatalog, errors.KindInvalidInput).
				Path(cb.Name).
				CType(cb.Returns).
				Detail("unknown return type %q", cb.Returns).
				Build()
		}
		sig.Result = p
	}
	if cb.UserData >= len(sig.Params) || sig.Params[cb.UserData] != layout.Pointer {
		return sig, errors.New(errors.PhaseCatalog, errors.KindInvalidInput).
			Path(cb.Name).
			Value(cb.UserData).
			Detail("userdata must index a pointer parameter").
			Build()
	}
	return sig, nil
}

func (s *Surface) Library() native.Library { return s.lib }

func (s *Surface) Catalog() *Catalog { return s.cat }

func (s *Surface) Target() layout.Target { return s.target }

// Proc returns the bound function called name.
func (s *Surface) Proc(name string) (*Proc, error) {
	p, ok := s.procs[name]
	if !ok {
		return nil, errors.NotFound(errors.PhaseCatalog, "function", name)
	}
	return p, nil
}

// Group returns the procs of a catalog group sorted by name.
func (s *Surface) Group(name string) []*Proc {
	g := s.groups[name]
	out := make([]*Proc, 0, len(g))
	for _, p := range g {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Func.Name < out[j].Func.Name })
	return out
}

// Unavailable lists optional functions the library lacks.
func (s *Surface) Unavailable() []string {
	var out []string
	for name, p := range s.procs {
		if !p.Available() {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Callback returns the trampoline signature of a catalog callback type.
func (s *Surface) Callback(name string) (callback.Signature, error) {
	cb, ok := s.cat.Callback(name)
	if !ok {
		return callback.Signature{}, errors.NotFound(errors.PhaseCatalog, "callback", name)
	}
	return callbackSignature(cb)
}

// Layout returns struct name compiled for the library's target.
func (s *Surface) Layout(name string) (*layout.Compiled, error) {
	return s.layouts.Compile(name, s.target)
}

func (s *Surface) discriminants(name string) codec.Discriminants {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.discs[name]
	if !ok {
		d = s.cat.Discriminants(name)
		s.discs[name] = d
	}
	return d
}

// Decode reads struct name at addr in the library's memory, resolving
// unions through the catalog's tag rules.
func (s *Surface) Decode(name string, addr uintptr) (codec.Record, error) {
	c, err := s.Layout(name)
	if err != nil {
		return nil, err
	}
	return codec.Decode(c, s.lib.Memory(), addr, codec.DecodeOptions{Discriminants: s.discriminants(name)})
}

// Encode writes rec as struct name at addr. String fields are allocated
// with the library's allocator and recorded in allocs when it is non-nil.
func (s *Surface) Encode(name string, rec codec.Record, addr uintptr, allocs *codec.AllocationList) error {
	c, err := s.Layout(name)
	if err != nil {
		return err
	}
	return codec.Encode(c, rec, s.lib.Memory(), addr, codec.EncodeOptions{
		Allocator:   s.lib.Allocator(),
		Allocations: allocs,
	})
}

// Available reports whether the symbol was found.
func (p *Proc) Available() bool { return p.err == nil }

func (p *Proc) Name() string { return p.Func.Name }

// Call type-checks args against the catalog signature, calls the symbol
// and applies the function's failure convention. A failed call returns the
// raw result together with a native_call_failed error carrying the
// library's error string.
func (p *Proc) Call(ctx context.Context, args ...any) (any, error) {
	if p.err != nil {
		return nil, p.err
	}
	canon, err := native.CanonicalArgs(p.Sig, args)
	if err != nil {
		if e, ok := err.(*errors.Error); ok {
			e.Path = append([]string{p.Func.Name}, e.Path...)
		}
		return nil, err
	}
	out, err := p.lib.Call(ctx, p.addr, p.Sig, canon)
	if err != nil {
		return nil, err
	}
	if p.failed(out) {
		msg := p.lib.LastError()
		Logger().Debug("native call failed",
			zap.String("symbol", p.Func.Name),
			zap.String("error", msg))
		return out, errors.NativeCallFailed(p.Func.Name, msg)
	}
	return out, nil
}

func (p *Proc) failed(v any) bool {
	switch p.Func.FailsOn {
	case FailsZero:
		if p.Sig.Result == layout.String {
			return v == nil
		}
		return native.ToBits(v) == 0
	case FailsFalse:
		b, _ := v.(bool)
		return !b
	case FailsNegative:
		return int64(native.ToBits(v)) < 0
	}
	return false
}
