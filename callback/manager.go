package callback

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/native-interop/errors"
	"github.com/wippyai/native-interop/native"
)

// Slot is an installed callback: the function pointer and userdata to hand
// to native code.
type Slot struct {
	handler  Handler
	inflight map[*frame]struct{}
	Sig      Signature
	Entry    uintptr
	Key      uintptr
	closed   bool
}

// Stats counts trampoline traffic.
type Stats struct {
	Installed   int64
	Uninstalled int64
	Live        int
	Dispatched  int64
	Rejected    int64
	Failed      int64
}

// frame is one running dispatch. Frames chain through the handler's
// context so nested dispatches on one goroutine can be recognised.
type frame struct {
	slot   *Slot
	parent *frame
}

type frameKey struct{}

func withFrame(ctx context.Context, f *frame) context.Context {
	return context.WithValue(ctx, frameKey{}, f)
}

func frameFrom(ctx context.Context) *frame {
	if ctx == nil {
		return nil
	}
	f, _ := ctx.Value(frameKey{}).(*frame)
	return f
}

// Dispatching reports whether ctx belongs to a running callback.
func Dispatching(ctx context.Context) bool {
	return frameFrom(ctx) != nil
}

type Option func(*Manager)

// WithLogger sets the logger for one manager instead of the package logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		m.log = l
	}
}

// Manager owns the callback slots of one library.
type Manager struct {
	lib     native.Library
	log     *zap.Logger
	entries map[string]uintptr
	slots   map[uintptr]*Slot
	cond    *sync.Cond
	nextKey uintptr

	installed   atomic.Int64
	uninstalled atomic.Int64
	dispatched  atomic.Int64
	rejected    atomic.Int64
	failed      atomic.Int64

	mu sync.Mutex
	// creating serializes entry point creation so a signature gets one.
	creating sync.Mutex
}

func NewManager(lib native.Library, opts ...Option) *Manager {
	m := &Manager{
		lib:     lib,
		entries: make(map[string]uintptr),
		slots:   make(map[uintptr]*Slot),
	}
	m.cond = sync.NewCond(&m.mu)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) logger() *zap.Logger {
	if m.log != nil {
		return m.log
	}
	return Logger()
}

// Install registers fn under a fresh key. The returned slot stays live
// until Uninstall.
func (m *Manager) Install(sig Signature, fn Handler) (*Slot, error) {
	if fn == nil {
		return nil, errors.InvalidInput(errors.PhaseCallback, "nil handler")
	}
	if err := sig.validate(); err != nil {
		return nil, err
	}
	entry, err := m.entryFor(sig)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextKey++
	s := &Slot{
		Sig:      sig,
		Entry:    entry,
		Key:      m.nextKey,
		handler:  fn,
		inflight: make(map[*frame]struct{}),
	}
	m.slots[s.Key] = s
	m.installed.Add(1)
	m.logger().Debug("callback installed",
		zap.String("sig", sig.Name),
		zap.Uintptr("key", s.Key))
	return s, nil
}

// entryFor returns the cached entry point for sig, creating it on first
// use. Entry points are never freed; backends cap how many exist.
func (m *Manager) entryFor(sig Signature) (uintptr, error) {
	key := sig.Sig().Key()
	if sig.CrossThread {
		key += "/x"
	}
	if entry, ok := m.cachedEntry(key); ok {
		return entry, nil
	}

	m.creating.Lock()
	defer m.creating.Unlock()
	if entry, ok := m.cachedEntry(key); ok {
		return entry, nil
	}

	entry, err := m.lib.EntryPoint(sig.Sig(), m.dispatcher(sig))
	if err != nil {
		return 0, errors.Wrap(errors.PhaseCallback, errors.KindNativeCallFailed, err, "entry point for "+sig.Sig().String())
	}

	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
	return entry, nil
}

func (m *Manager) cachedEntry(key string) (uintptr, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	return entry, ok
}

func (m *Manager) dispatcher(sig Signature) native.Dispatcher {
	ns := sig.Sig()
	return func(ctx context.Context, args []any) any {
		return m.dispatch(ctx, ns, sig.UserData, args)
	}
}

func (m *Manager) dispatch(ctx context.Context, ns native.Sig, userdata int, args []any) any {
	canon, err := native.CanonicalArgs(ns, args)
	if err != nil {
		m.rejected.Add(1)
		m.logger().Warn("callback arguments rejected", zap.String("sig", ns.String()), zap.Error(err))
		return native.Zero(ns.Result)
	}
	key, _ := canon[userdata].(uintptr)

	m.mu.Lock()
	s, ok := m.slots[key]
	if !ok || s.closed || !s.Sig.Sig().Equal(ns) {
		m.mu.Unlock()
		m.rejected.Add(1)
		m.logger().Debug("callback dropped", zap.String("sig", ns.String()), zap.Uintptr("key", key))
		return native.Zero(ns.Result)
	}
	f := &frame{slot: s, parent: frameFrom(ctx)}
	s.inflight[f] = struct{}{}
	handler := s.handler
	m.mu.Unlock()
	m.dispatched.Add(1)

	defer func() {
		m.mu.Lock()
		delete(s.inflight, f)
		m.cond.Broadcast()
		m.mu.Unlock()
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	return m.run(withFrame(ctx, f), s, handler, canon)
}

// run calls the handler once and converts its result. Errors and panics
// yield the neutral value.
func (m *Manager) run(ctx context.Context, s *Slot, fn Handler, args []any) (result any) {
	zero := native.Zero(s.Sig.Result)
	defer func() {
		if r := recover(); r != nil {
			m.failed.Add(1)
			m.logger().Warn("callback panicked",
				zap.String("sig", s.Sig.Name),
				zap.Uintptr("key", s.Key),
				zap.String("panic", fmt.Sprint(r)))
			result = zero
		}
	}()

	v, err := fn(ctx, args)
	if err != nil {
		m.failed.Add(1)
		m.logger().Warn("callback failed",
			zap.String("sig", s.Sig.Name),
			zap.Uintptr("key", s.Key),
			zap.Error(err))
		return zero
	}
	if v == nil {
		return zero
	}
	out, err := native.Canonical(s.Sig.Result, v)
	if err != nil {
		m.failed.Add(1)
		m.logger().Warn("callback result rejected",
			zap.String("sig", s.Sig.Name),
			zap.Uintptr("key", s.Key),
			zap.Error(err))
		return zero
	}
	return out
}

// Uninstall closes s and waits for its in-flight dispatches, except those
// ctx itself is running inside. Later invocations of s.Key are rejected.
// Uninstalling a closed slot is a no-op.
func (m *Manager) Uninstall(ctx context.Context, s *Slot) error {
	if s == nil {
		return nil
	}
	own := make(map[*frame]struct{})
	for f := frameFrom(ctx); f != nil; f = f.parent {
		own[f] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	delete(m.slots, s.Key)
	m.uninstalled.Add(1)

	for foreignInflight(s, own) {
		m.cond.Wait()
	}
	m.logger().Debug("callback uninstalled",
		zap.String("sig", s.Sig.Name),
		zap.Uintptr("key", s.Key))
	return nil
}

func foreignInflight(s *Slot, own map[*frame]struct{}) bool {
	for f := range s.inflight {
		if _, ok := own[f]; !ok {
			return true
		}
	}
	return false
}

// Closed reports whether s has been uninstalled.
func (m *Manager) Closed(s *Slot) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return s.closed
}

// Close uninstalls every live slot.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	live := make([]*Slot, 0, len(m.slots))
	for _, s := range m.slots {
		live = append(live, s)
	}
	m.mu.Unlock()

	for _, s := range live {
		if err := m.Uninstall(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) Stats() Stats {
	m.mu.Lock()
	live := len(m.slots)
	m.mu.Unlock()
	return Stats{
		Installed:   m.installed.Load(),
		Uninstalled: m.uninstalled.Load(),
		Live:        live,
		Dispatched:  m.dispatched.Load(),
		Rejected:    m.rejected.Load(),
		Failed:      m.failed.Load(),
	}
}
