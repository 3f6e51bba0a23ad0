package wasm

import (
	"context"
	"math"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	interop "github.com/wippyai/native-interop"
	"github.com/wippyai/native-interop/codec"
	"github.com/wippyai/native-interop/errors"
	"github.com/wippyai/native-interop/layout"
	"github.com/wippyai/native-interop/native"
)

// maxDispatchArgs is the number of argument slots in the dispatch import.
const maxDispatchArgs = 4

var (
	dispatchParams = []api.ValueType{
		api.ValueTypeI32, api.ValueTypeI64, api.ValueTypeI64, api.ValueTypeI64, api.ValueTypeI64,
	}
	dispatchResults = []api.ValueType{api.ValueTypeI64}
)

type entry struct {
	sig native.Sig
	d   native.Dispatcher
}

type guestKey struct{}

// Library is a guest module instantiated in its own wazero runtime.
type Library struct {
	rt      wazero.Runtime
	mod     api.Module
	defs    map[string]api.FunctionDefinition
	funcs   map[string]api.Function
	entries map[uintptr]entry
	procs   []string
	cfg     Config
	mem     guestMemory

	malloc  string
	free    string
	lastErr string
	errAddr atomic.Uint32

	next   uintptr
	mu     sync.Mutex
	emu    sync.RWMutex
	closed atomic.Bool
}

var (
	_ native.Library  = (*Library)(nil)
	_ native.Targeter = (*Library)(nil)
)

// Open compiles and instantiates guest. Guests importing WASI get the
// wazero implementation; an exported _initialize runs before Open returns.
func Open(ctx context.Context, guest []byte, cfg Config) (*Library, error) {
	if len(guest) == 0 {
		return nil, errors.Load("empty guest module", nil)
	}
	if cfg.Name == "" {
		cfg.Name = "guest"
	}
	rc := wazero.NewRuntimeConfig()
	if cfg.MemoryLimitPages > 0 {
		rc = rc.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, rc)

	l := &Library{
		rt:      rt,
		cfg:     cfg,
		defs:    make(map[string]api.FunctionDefinition),
		funcs:   make(map[string]api.Function),
		entries: make(map[uintptr]entry),
	}
	fail := func(detail string, err error) (*Library, error) {
		_ = rt.Close(ctx)
		return nil, errors.Load(detail, err)
	}

	_, err := rt.NewHostModuleBuilder(HostModule).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(l.dispatch), dispatchParams, dispatchResults).
		WithParameterNames("entry", "a0", "a1", "a2", "a3").
		Export("dispatch").
		Instantiate(ctx)
	if err != nil {
		return fail("instantiate host module", err)
	}

	compiled, err := rt.CompileModule(ctx, guest)
	if err != nil {
		return fail("compile guest", err)
	}
	for _, imp := range compiled.ImportedFunctions() {
		if mod, _, _ := imp.Import(); mod == wasi_snapshot_preview1.ModuleName {
			if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
				return fail("instantiate wasi", err)
			}
			break
		}
	}

	mod, err := rt.InstantiateModule(ctx, compiled,
		wazero.NewModuleConfig().WithName(cfg.Name).WithStartFunctions("_initialize"))
	if err != nil {
		return fail("instantiate guest", err)
	}
	l.mod = mod
	l.mem = guestMemory{mem: mod.Memory()}

	for name, def := range compiled.ExportedFunctions() {
		l.defs[name] = def
		l.procs = append(l.procs, name)
	}
	slices.Sort(l.procs)

	i32 := []api.ValueType{api.ValueTypeI32}
	l.malloc = l.optional(cfg.AllocExport, i32, i32)
	l.free = l.optional(cfg.FreeExport, i32, nil)
	l.lastErr = l.optional(cfg.ErrorExport, nil, i32)

	Logger().Debug("guest instantiated",
		zap.String("name", cfg.Name),
		zap.Int("exports", len(l.procs)),
		zap.Bool("allocator", l.malloc != ""),
		zap.Bool("last_error", l.lastErr != ""))
	return l, nil
}

// optional returns name when the guest exports it with the given types.
func (l *Library) optional(name string, params, results []api.ValueType) string {
	if name == "" {
		return ""
	}
	def, ok := l.defs[name]
	if !ok {
		Logger().Debug("optional export missing", zap.String("export", name))
		return ""
	}
	if !slices.Equal(def.ParamTypes(), params) || !slices.Equal(def.ResultTypes(), results) {
		Logger().Warn("optional export has unexpected type", zap.String("export", name))
		return ""
	}
	return name
}

func (l *Library) Name() string { return l.cfg.Name }

func (l *Library) Target() layout.Target { return layout.Wasm32 }

// Proc maps an exported function to a nonzero address. Addresses are
// indexes into the sorted export list, not guest table slots.
func (l *Library) Proc(name string) (uintptr, error) {
	if l.closed.Load() {
		return 0, errors.Closed(errors.PhaseLoad, "library")
	}
	i, ok := slices.BinarySearch(l.procs, name)
	if !ok {
		return 0, errors.SymbolUnavailable(name)
	}
	return uintptr(i + 1), nil
}

// Exports lists the guest's exported functions with their wasm types.
func (l *Library) Exports() map[string]string {
	out := make(map[string]string, len(l.defs))
	for name, def := range l.defs {
		out[name] = wasmSig(def.ParamTypes(), def.ResultTypes())
	}
	return out
}

// enter serializes guest execution. A ctx that already carries the guest
// marks a re-entrant call from a host function and passes straight through.
func (l *Library) enter(ctx context.Context) (context.Context, bool, func()) {
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Value(guestKey{}) == l {
		return ctx, true, func() {}
	}
	l.mu.Lock()
	return context.WithValue(ctx, guestKey{}, l), false, l.mu.Unlock
}

// function returns a callable for name. Nested calls get a fresh one since
// an api.Function cannot be re-entered.
func (l *Library) function(name string, nested bool) api.Function {
	if nested {
		return l.mod.ExportedFunction(name)
	}
	f, ok := l.funcs[name]
	if !ok {
		f = l.mod.ExportedFunction(name)
		l.funcs[name] = f
	}
	return f
}

func (l *Library) invoke(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	if l.closed.Load() {
		return nil, errors.Closed(errors.PhaseCall, "library")
	}
	gctx, nested, leave := l.enter(ctx)
	defer leave()
	return l.function(name, nested).Call(gctx, params...)
}

func (l *Library) Call(ctx context.Context, fn uintptr, sig native.Sig, args []any) (any, error) {
	if l.closed.Load() {
		return nil, errors.Closed(errors.PhaseCall, "library")
	}
	if fn == 0 {
		return nil, errors.InvalidInput(errors.PhaseCall, "call through NULL")
	}
	if fn > uintptr(len(l.procs)) {
		return nil, errors.New(errors.PhaseCall, errors.KindInvalidInput).
			Detail("no guest function at %#x", fn).
			Build()
	}
	name := l.procs[fn-1]
	if err := l.checkSig(name, sig); err != nil {
		return nil, err
	}
	canon, err := native.CanonicalArgs(sig, args)
	if err != nil {
		return nil, err
	}

	gctx, nested, leave := l.enter(ctx)
	defer leave()
	alloc := guestAllocator{l: l, ctx: gctx}

	params := make([]uint64, len(canon))
	for i, p := range sig.Params {
		if p != layout.String {
			v, err := toValue(p, canon[i])
			if err != nil {
				return nil, err
			}
			params[i] = v
			continue
		}
		s, ok := canon[i].(string)
		if !ok {
			continue
		}
		addr, size, err := codec.WriteCString(l.mem, alloc, s)
		if err != nil {
			return nil, err
		}
		defer alloc.Free(addr, size, 1)
		params[i] = uint64(addr)
	}

	res, err := l.function(name, nested).Call(gctx, params...)
	if err != nil {
		if l.closed.Load() {
			return nil, errors.Closed(errors.PhaseCall, "library")
		}
		return nil, errors.Wrap(errors.PhaseCall, errors.KindNativeCallFailed, err, name+" trapped")
	}
	switch sig.Result {
	case layout.Void:
		return nil, nil
	case layout.String:
		addr := uintptr(api.DecodeU32(res[0]))
		if addr == 0 {
			return nil, nil
		}
		return codec.CString(l.mem, addr, 0)
	}
	return fromValue(sig.Result, res[0]), nil
}

// checkSig rejects a signature whose wasm lowering differs from the
// export's type.
func (l *Library) checkSig(name string, sig native.Sig) error {
	def := l.defs[name]
	params := make([]api.ValueType, len(sig.Params))
	for i, p := range sig.Params {
		params[i] = valueType(p)
	}
	var results []api.ValueType
	if sig.Result != layout.Void {
		results = []api.ValueType{valueType(sig.Result)}
	}
	if slices.Equal(def.ParamTypes(), params) && slices.Equal(def.ResultTypes(), results) {
		return nil
	}
	return errors.New(errors.PhaseCall, errors.KindTypeMismatch).
		Path(name).
		CType(sig.String()).
		Detail("guest export has type %s", wasmSig(def.ParamTypes(), def.ResultTypes())).
		Build()
}

// dispatch is the host side of interop.dispatch.
func (l *Library) dispatch(ctx context.Context, _ api.Module, stack []uint64) {
	id := uintptr(api.DecodeU32(stack[0]))
	l.emu.RLock()
	e, ok := l.entries[id]
	l.emu.RUnlock()
	if !ok {
		Logger().Warn("dispatch to unknown entry point", zap.Uintptr("entry", id))
		stack[0] = 0
		return
	}

	args := make([]any, len(e.sig.Params))
	for i, p := range e.sig.Params {
		raw := stack[1+i]
		if p != layout.String {
			args[i] = fromValue(p, raw)
			continue
		}
		addr := uintptr(uint32(raw))
		if addr == 0 {
			continue
		}
		s, err := codec.CString(l.mem, addr, 0)
		if err != nil {
			Logger().Warn("callback string argument", zap.Int("arg", i), zap.Error(err))
		}
		args[i] = s
	}

	r := e.d(ctx, args)
	if e.sig.Result == layout.Void || r == nil {
		stack[0] = 0
		return
	}
	stack[0] = native.ToBits(r)
}

// EntryPoint registers d and returns the id guests pass to
// interop.dispatch.
func (l *Library) EntryPoint(sig native.Sig, d native.Dispatcher) (uintptr, error) {
	if l.closed.Load() {
		return 0, errors.Closed(errors.PhaseCallback, "library")
	}
	if d == nil {
		return 0, errors.InvalidInput(errors.PhaseCallback, "nil dispatcher")
	}
	if len(sig.Params) > maxDispatchArgs {
		return 0, errors.Unsupported(errors.PhaseCallback, "more than 4 callback parameters")
	}
	if sig.Result == layout.String {
		return 0, errors.Unsupported(errors.PhaseCallback, "string results from callbacks")
	}
	l.emu.Lock()
	l.next++
	id := l.next
	l.entries[id] = entry{sig: sig, d: d}
	l.emu.Unlock()
	Logger().Debug("entry point created", zap.String("sig", sig.String()), zap.Uintptr("entry", id))
	return id, nil
}

func (l *Library) Memory() interop.Memory { return l.mem }

func (l *Library) Allocator() interop.Allocator {
	return guestAllocator{l: l, ctx: context.Background()}
}

// LastError asks the guest for its error string. While another call holds
// the guest, such as a callback being dispatched, it reads the buffer the
// accessor returned last time instead.
func (l *Library) LastError() string {
	if l.lastErr == "" || l.closed.Load() {
		return ""
	}
	if l.mu.TryLock() {
		res, err := l.function(l.lastErr, false).Call(context.WithValue(context.Background(), guestKey{}, l))
		l.mu.Unlock()
		if err != nil {
			Logger().Debug("last error accessor failed", zap.Error(err))
			return ""
		}
		l.errAddr.Store(api.DecodeU32(res[0]))
	}
	s, err := codec.CString(l.mem, uintptr(l.errAddr.Load()), 0)
	if err != nil {
		return ""
	}
	return s
}

// Close tears down the runtime. Calls in flight fail.
func (l *Library) Close() error {
	if l.closed.Swap(true) {
		return nil
	}
	if err := l.rt.Close(context.Background()); err != nil {
		return errors.Load("close runtime", err)
	}
	Logger().Debug("guest closed", zap.String("name", l.cfg.Name))
	return nil
}

func valueType(p layout.Prim) api.ValueType {
	switch p {
	case layout.Int64, layout.Uint64:
		return api.ValueTypeI64
	case layout.Float32:
		return api.ValueTypeF32
	case layout.Float64:
		return api.ValueTypeF64
	}
	return api.ValueTypeI32
}

func toValue(p layout.Prim, v any) (uint64, error) {
	bits := native.ToBits(v)
	if valueType(p) != api.ValueTypeI32 {
		return bits, nil
	}
	if p == layout.Pointer && bits > math.MaxUint32 {
		return 0, errors.Overflow(errors.PhaseCall, nil, v, "wasm32 pointer")
	}
	return uint64(uint32(bits)), nil
}

func fromValue(p layout.Prim, raw uint64) any {
	if valueType(p) == api.ValueTypeI32 {
		raw = uint64(uint32(raw))
	}
	return native.FromBits(p, raw)
}

func wasmSig(params, results []api.ValueType) string {
	names := func(ts []api.ValueType) string {
		parts := make([]string, len(ts))
		for i, t := range ts {
			parts[i] = api.ValueTypeName(t)
		}
		return strings.Join(parts, ",")
	}
	return "(" + names(params) + ")->(" + names(results) + ")"
}
