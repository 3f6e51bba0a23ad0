package sim

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	interop "github.com/wippyai/native-interop"
	"github.com/wippyai/native-interop/errors"
	"github.com/wippyai/native-interop/layout"
	"github.com/wippyai/native-interop/native"
)

const (
	symbolBase = uintptr(0x1000_0000)
	objectBase = uintptr(0x4000_0000)
	entryBase  = uintptr(0x2000_0000)
)

type impl func(ctx context.Context, args []any) any

type symbol struct {
	fn   impl
	name string
	sig  native.Sig
	addr uintptr
}

type entryPoint struct {
	dispatch native.Dispatcher
	sig      native.Sig
}

// Library is the simulated library. The zero value is not usable; call New.
type Library struct {
	symbols  map[string]*symbol
	byAddr   map[uintptr]*symbol
	missing  map[string]bool
	failNext map[string]string
	calls    map[string]int
	entries  map[uintptr]*entryPoint

	trays map[uintptr]*tray
	menus map[uintptr]*menu
	items map[uintptr]*item

	groups map[uint32]*group

	mem        *arena
	lastError  string
	displayBuf uintptr

	nextEntry uintptr
	nextObj   uintptr
	nextGroup uint32
	global    uint32

	dispatches atomic.Int64
	closed     atomic.Bool
	noTray     bool

	mu sync.Mutex
}

var _ native.Library = (*Library)(nil)

type Option func(*Library)

// WithoutSymbols hides the named symbols from Proc.
func WithoutSymbols(names ...string) Option {
	return func(l *Library) {
		for _, n := range names {
			l.missing[n] = true
		}
	}
}

// WithoutTray makes SDL_CreateTray fail the way it does on platforms
// without a system tray.
func WithoutTray() Option {
	return func(l *Library) {
		l.noTray = true
	}
}

func New(opts ...Option) *Library {
	l := &Library{
		symbols:   make(map[string]*symbol),
		byAddr:    make(map[uintptr]*symbol),
		missing:   make(map[string]bool),
		failNext:  make(map[string]string),
		calls:     make(map[string]int),
		entries:   make(map[uintptr]*entryPoint),
		trays:     make(map[uintptr]*tray),
		menus:     make(map[uintptr]*menu),
		items:     make(map[uintptr]*item),
		groups:    make(map[uint32]*group),
		mem:       newArena(),
		nextEntry: entryBase,
		nextObj:   objectBase,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.define()
	return l
}

func (l *Library) Name() string { return "sim" }

func (l *Library) def(name string, fn impl, result layout.Prim, params ...layout.Prim) {
	s := &symbol{
		name: name,
		fn:   fn,
		sig:  native.Sig{Params: params, Result: result},
		addr: symbolBase + uintptr(len(l.symbols)+1)*0x10,
	}
	l.symbols[name] = s
	l.byAddr[s.addr] = s
}

func (l *Library) Proc(name string) (uintptr, error) {
	if l.closed.Load() {
		return 0, errors.Closed(errors.PhaseLoad, "library")
	}
	s, ok := l.symbols[name]
	if !ok || l.missing[name] {
		return 0, errors.SymbolUnavailable(name)
	}
	return s.addr, nil
}

// Symbols lists every simulated symbol, including hidden ones.
func (l *Library) Symbols() []string {
	names := make([]string, 0, len(l.symbols))
	for n := range l.symbols {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Signature returns the C signature the simulation implements for name.
func (l *Library) Signature(name string) (native.Sig, bool) {
	s, ok := l.symbols[name]
	if !ok {
		return native.Sig{}, false
	}
	return s.sig, true
}

func (l *Library) Call(ctx context.Context, fn uintptr, sig native.Sig, args []any) (any, error) {
	if l.closed.Load() {
		return nil, errors.Closed(errors.PhaseCall, "library")
	}
	s, ok := l.byAddr[fn]
	if !ok {
		return nil, errors.New(errors.PhaseCall, errors.KindInvalidInput).
			Value(fn).
			Detail("no function at %#x", fn).
			Build()
	}
	if !sig.Equal(s.sig) {
		return nil, errors.New(errors.PhaseCall, errors.KindTypeMismatch).
			CType(s.sig.String()).
			Detail("%s called as %s", s.name, sig).
			Build()
	}
	canon, err := native.CanonicalArgs(sig, args)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.calls[s.name]++
	msg, fail := l.failNext[s.name]
	if fail {
		delete(l.failNext, s.name)
		l.lastError = msg
	}
	l.mu.Unlock()

	if fail {
		Logger().Debug("injected failure", zap.String("symbol", s.name), zap.String("error", msg))
		return native.Zero(sig.Result), nil
	}
	return s.fn(ctx, canon), nil
}

func (l *Library) EntryPoint(sig native.Sig, d native.Dispatcher) (uintptr, error) {
	if l.closed.Load() {
		return 0, errors.Closed(errors.PhaseCallback, "library")
	}
	if d == nil {
		return 0, errors.InvalidInput(errors.PhaseCallback, "nil dispatcher")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextEntry += 0x10
	l.entries[l.nextEntry] = &entryPoint{sig: sig, dispatch: d}
	return l.nextEntry, nil
}

// invoke calls a trampoline entry point the way native code would. The
// caller must not hold l.mu.
func (l *Library) invoke(ctx context.Context, fn uintptr, args ...any) any {
	if fn == 0 || l.closed.Load() {
		return nil
	}
	l.mu.Lock()
	ep, ok := l.entries[fn]
	l.mu.Unlock()
	if !ok {
		Logger().Warn("call through unknown function pointer", zap.Uintptr("fn", fn))
		return nil
	}
	if len(args) != len(ep.sig.Params) {
		Logger().Warn("callback arity mismatch",
			zap.String("sig", ep.sig.String()),
			zap.Int("args", len(args)))
		return native.Zero(ep.sig.Result)
	}
	l.dispatches.Add(1)
	return ep.dispatch(ctx, args)
}

func (l *Library) Memory() interop.Memory { return l.mem }

func (l *Library) Allocator() interop.Allocator { return l.mem }

func (l *Library) LastError() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastError
}

func (l *Library) setError(msg string) {
	l.lastError = msg
}

// Close shuts the library down. It is equivalent to Shutdown.
func (l *Library) Close() error {
	l.Shutdown()
	return nil
}

// Shutdown invalidates every native object. Later calls fail with a closed
// error and pending clicks do nothing.
func (l *Library) Shutdown() {
	if l.closed.Swap(true) {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.trays = make(map[uintptr]*tray)
	l.menus = make(map[uintptr]*menu)
	l.items = make(map[uintptr]*item)
	l.groups = make(map[uint32]*group)
}

func (l *Library) Closed() bool { return l.closed.Load() }

// FailNext makes the next call of symbol return its failure value and set
// the error string to msg.
func (l *Library) FailNext(symbol, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failNext[symbol] = msg
}

// Dispatches returns how many times native code entered Go through a
// trampoline.
func (l *Library) Dispatches() int64 { return l.dispatches.Load() }

// Calls returns how many times symbol was called.
func (l *Library) Calls(symbol string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[symbol]
}

// LiveAllocations returns the number of arena blocks not yet freed.
func (l *Library) LiveAllocations() int { return l.mem.liveCount() }

func (l *Library) newObject() uintptr {
	l.nextObj += 0x10
	return l.nextObj
}

func (l *Library) writePtr(at, v uintptr) {
	if layout.Host.PointerSize == 4 {
		_ = l.mem.WriteU32(at, uint32(v))
		return
	}
	_ = l.mem.WriteU64(at, uint64(v))
}
