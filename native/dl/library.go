//go:build darwin || freebsd || linux || netbsd

package dl

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/ebitengine/purego"
	"go.uber.org/zap"

	interop "github.com/wippyai/native-interop"
	"github.com/wippyai/native-interop/codec"
	"github.com/wippyai/native-interop/errors"
	"github.com/wippyai/native-interop/layout"
	"github.com/wippyai/native-interop/native"
)

type fnKey struct {
	sig string
	fn  uintptr
}

// Library is a shared library opened with dlopen.
type Library struct {
	funcs   map[fnKey]reflect.Value
	alloc   *mallocAllocator
	lastErr func() uintptr
	cfg     Config
	handle  uintptr
	mem     hostMemory
	mu      sync.Mutex
	closed  atomic.Bool
}

var _ native.Library = (*Library)(nil)

// Open loads cfg.Path and binds the allocator and error accessor when the
// library exports them.
func Open(cfg Config) (*Library, error) {
	if cfg.Path == "" {
		return nil, errors.Load("no library path, set "+EnvLibrary, nil)
	}
	mode := cfg.Mode
	if mode == 0 {
		mode = purego.RTLD_NOW | purego.RTLD_GLOBAL
	}
	h, err := purego.Dlopen(cfg.Path, mode)
	if err != nil {
		return nil, errors.Load("dlopen "+cfg.Path, err)
	}

	l := &Library{
		cfg:    cfg,
		handle: h,
		funcs:  make(map[fnKey]reflect.Value),
		alloc:  &mallocAllocator{},
	}
	if sym := l.optional(cfg.AllocSymbol); sym != 0 {
		purego.RegisterFunc(&l.alloc.malloc, sym)
	}
	if sym := l.optional(cfg.FreeSymbol); sym != 0 {
		purego.RegisterFunc(&l.alloc.free, sym)
	}
	if sym := l.optional(cfg.ErrorSymbol); sym != 0 {
		purego.RegisterFunc(&l.lastErr, sym)
	}
	Logger().Debug("library opened",
		zap.String("path", cfg.Path),
		zap.Bool("allocator", l.alloc.malloc != nil),
		zap.Bool("last_error", l.lastErr != nil))
	return l, nil
}

func (l *Library) optional(name string) uintptr {
	if name == "" {
		return 0
	}
	sym, err := l.Proc(name)
	if err != nil {
		Logger().Debug("optional symbol missing", zap.String("symbol", name))
		return 0
	}
	return sym
}

func (l *Library) Name() string { return filepath.Base(l.cfg.Path) }

func (l *Library) Proc(name string) (uintptr, error) {
	if l.closed.Load() {
		return 0, errors.Closed(errors.PhaseLoad, "library")
	}
	sym, err := purego.Dlsym(l.handle, name)
	if err != nil || sym == 0 {
		return 0, errors.SymbolUnavailable(name)
	}
	return sym, nil
}

// function returns a callable bound to fn with sig's Go type, building it
// on first use.
func (l *Library) function(fn uintptr, sig native.Sig) (f reflect.Value, err error) {
	key := fnKey{fn: fn, sig: sig.Key()}
	l.mu.Lock()
	defer l.mu.Unlock()
	if f, ok := l.funcs[key]; ok {
		return f, nil
	}
	ft, err := funcType(sig, false)
	if err != nil {
		return reflect.Value{}, err
	}
	defer func() {
		if r := recover(); r != nil {
			err = errors.Unsupported(errors.PhaseCall, fmt.Sprintf("signature %s: %v", sig, r))
		}
	}()
	ptr := reflect.New(ft)
	purego.RegisterFunc(ptr.Interface(), fn)
	f = ptr.Elem()
	l.funcs[key] = f
	return f, nil
}

func (l *Library) Call(ctx context.Context, fn uintptr, sig native.Sig, args []any) (any, error) {
	if l.closed.Load() {
		return nil, errors.Closed(errors.PhaseCall, "library")
	}
	if fn == 0 {
		return nil, errors.InvalidInput(errors.PhaseCall, "call through NULL")
	}
	canon, err := native.CanonicalArgs(sig, args)
	if err != nil {
		return nil, err
	}
	f, err := l.function(fn, sig)
	if err != nil {
		return nil, err
	}

	in := make([]reflect.Value, len(canon))
	for i, p := range sig.Params {
		if p == layout.String {
			b, err := cBytes(canon[i])
			if err != nil {
				return nil, err
			}
			in[i] = reflect.ValueOf(b)
			continue
		}
		in[i] = reflect.ValueOf(canon[i])
	}
	out := f.Call(in)
	runtime.KeepAlive(in)

	if sig.Result == layout.Void {
		return nil, nil
	}
	r := out[0].Interface()
	if sig.Result == layout.String {
		addr := r.(uintptr)
		if addr == 0 {
			return nil, nil
		}
		return codec.CString(l.mem, addr, 0)
	}
	return r, nil
}

// EntryPoint wraps d in a Go function of sig's type and hands it to
// purego.NewCallback. Incoming strings are copied out of native memory
// before d runs; a NULL string arrives as nil.
func (l *Library) EntryPoint(sig native.Sig, d native.Dispatcher) (entry uintptr, err error) {
	if l.closed.Load() {
		return 0, errors.Closed(errors.PhaseCallback, "library")
	}
	if d == nil {
		return 0, errors.InvalidInput(errors.PhaseCallback, "nil dispatcher")
	}
	ft, err := funcType(sig, true)
	if err != nil {
		return 0, err
	}

	impl := reflect.MakeFunc(ft, func(in []reflect.Value) []reflect.Value {
		args := make([]any, len(in))
		for i, p := range sig.Params {
			v := in[i].Interface()
			if p == layout.String {
				addr := v.(uintptr)
				if addr == 0 {
					continue
				}
				s, err := codec.CString(l.mem, addr, 0)
				if err != nil {
					Logger().Warn("callback string argument", zap.Int("arg", i), zap.Error(err))
				}
				args[i] = s
				continue
			}
			args[i] = v
		}
		r := d(context.Background(), args)
		if sig.Result == layout.Void {
			return nil
		}
		if r == nil {
			r = native.Zero(sig.Result)
		}
		return []reflect.Value{reflect.ValueOf(r).Convert(ft.Out(0))}
	})

	defer func() {
		if r := recover(); r != nil {
			err = errors.Unsupported(errors.PhaseCallback, fmt.Sprintf("callback %s: %v", sig, r))
		}
	}()
	entry = purego.NewCallback(impl.Interface())
	Logger().Debug("entry point created", zap.String("sig", sig.String()), zap.Uintptr("entry", entry))
	return entry, nil
}

func (l *Library) Memory() interop.Memory { return l.mem }

func (l *Library) Allocator() interop.Allocator { return l.alloc }

func (l *Library) LastError() string {
	if l.lastErr == nil || l.closed.Load() {
		return ""
	}
	s, err := codec.CString(l.mem, l.lastErr(), 0)
	if err != nil {
		return ""
	}
	return s
}

// Close unloads the library. Later calls fail with a closed error; entry
// points already handed out stay valid because purego never frees them.
func (l *Library) Close() error {
	if l.closed.Swap(true) {
		return nil
	}
	if err := purego.Dlclose(l.handle); err != nil {
		return errors.Load("dlclose "+l.cfg.Path, err)
	}
	return nil
}
