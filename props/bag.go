package props

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/native-interop/callback"
	"github.com/wippyai/native-interop/catalog"
	"github.com/wippyai/native-interop/errors"
	"github.com/wippyai/native-interop/handle"
	"github.com/wippyai/native-interop/internal/abi"
)

// Type is the SDL_PropertyType of a value.
type Type int32

const (
	Invalid Type = iota
	Pointer
	String
	Number
	Float
	Boolean
)

var typeNames = [...]string{"invalid", "pointer", "string", "number", "float", "boolean"}

func (t Type) String() string {
	if t >= 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "unknown"
}

// Bag is a native property group.
type Bag struct {
	p         *procs
	cb        *callback.Manager
	reg       *handle.Registry
	h         handle.Handle
	cleanups  map[string]*callback.Slot
	cleanupCB callback.Signature
	enumCB    callback.Signature
	id        uint32
	destroyed bool
	mu        sync.Mutex
}

type Option func(*options)

type options struct {
	reg *handle.Registry
}

// WithRegistry tracks owned bags in reg, so closing reg destroys bags
// that were never destroyed explicitly.
func WithRegistry(reg *handle.Registry) Option {
	return func(o *options) {
		o.reg = reg
	}
}

func newBag(s *catalog.Surface, cb *callback.Manager, opts []Option) (*Bag, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.reg == nil {
		o.reg = handle.NewRegistry()
	}
	p, err := bindProcs(s)
	if err != nil {
		return nil, err
	}
	cleanupCB, err := s.Callback("SDL_CleanupPropertyCallback")
	if err != nil {
		return nil, err
	}
	enumCB, err := s.Callback("SDL_EnumeratePropertiesCallback")
	if err != nil {
		return nil, err
	}
	return &Bag{
		p:         p,
		cb:        cb,
		reg:       o.reg,
		cleanups:  make(map[string]*callback.Slot),
		cleanupCB: cleanupCB,
		enumCB:    enumCB,
	}, nil
}

// New creates an owned property group.
func New(ctx context.Context, s *catalog.Surface, cb *callback.Manager, opts ...Option) (*Bag, error) {
	b, err := newBag(s, cb, opts)
	if err != nil {
		return nil, err
	}
	out, err := b.p.create.Call(ctx)
	if err != nil {
		return nil, err
	}
	b.id = out.(uint32)
	destroy := b.p.destroy
	b.h = b.reg.Wrap(uintptr(b.id), handle.Owned, func(id uintptr) error {
		_, err := destroy.Call(ctx, uint32(id))
		return err
	})
	return b, nil
}

// Global returns the library's global property group, borrowed.
func Global(ctx context.Context, s *catalog.Surface, cb *callback.Manager) (*Bag, error) {
	b, err := newBag(s, cb, nil)
	if err != nil {
		return nil, err
	}
	out, err := b.p.global.Call(ctx)
	if err != nil {
		return nil, err
	}
	b.id = out.(uint32)
	b.h = handle.Borrow(uintptr(b.id))
	return b, nil
}

// Wrap borrows an existing group, such as one returned by a native
// getter.
func Wrap(s *catalog.Surface, cb *callback.Manager, id uint32) (*Bag, error) {
	if id == 0 {
		return nil, errors.InvalidInput(errors.PhaseProperty, "property group id 0")
	}
	b, err := newBag(s, cb, nil)
	if err != nil {
		return nil, err
	}
	b.id = id
	b.h = handle.Borrow(uintptr(id))
	return b, nil
}

func (b *Bag) ID() uint32 { return b.id }

// Owned reports whether Destroy releases the native group.
func (b *Bag) Owned() bool { return b.h.Own == handle.Owned }

func (b *Bag) Destroyed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.destroyed
}

func (b *Bag) check() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return errors.UseAfterDestroy(errors.PhaseProperty, "properties")
	}
	return nil
}

// Destroy releases an owned group, which runs its pending cleanups, and
// uninstalls any cleanup slot still live. Destroying twice is a no-op.
func (b *Bag) Destroy(ctx context.Context) error {
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return nil
	}
	b.destroyed = true
	b.mu.Unlock()

	var err error
	if b.h.Own == handle.Owned {
		err = b.reg.Release(b.h)
	}

	b.mu.Lock()
	live := make([]*callback.Slot, 0, len(b.cleanups))
	for _, s := range b.cleanups {
		live = append(live, s)
	}
	b.cleanups = make(map[string]*callback.Slot)
	b.mu.Unlock()

	for _, s := range live {
		if uerr := b.cb.Uninstall(ctx, s); uerr != nil && err == nil {
			err = uerr
		}
	}
	return err
}

// Set stores v under name, picking the setter from v's type. nil clears.
func (b *Bag) Set(ctx context.Context, name string, v any) error {
	switch x := v.(type) {
	case nil:
		return b.Clear(ctx, name)
	case string:
		return b.SetString(ctx, name, x)
	case bool:
		return b.SetBoolean(ctx, name, x)
	case float32:
		return b.SetFloat(ctx, name, x)
	case float64:
		return b.SetFloat(ctx, name, float32(x))
	case uintptr:
		return b.SetPointer(ctx, name, x)
	case handle.Handle:
		return b.SetPointer(ctx, name, x.Addr)
	}
	if n, ok := abi.CoerceToInt64(v); ok {
		return b.SetNumber(ctx, name, n)
	}
	return errors.TypeMismatch(errors.PhaseProperty, []string{name}, abi.TypeName(v), "property value")
}

func (b *Bag) call(ctx context.Context, p *catalog.Proc, args ...any) (any, error) {
	if err := b.check(); err != nil {
		return nil, err
	}
	return p.Call(ctx, args...)
}

func (b *Bag) SetString(ctx context.Context, name, v string) error {
	_, err := b.call(ctx, b.p.setString, b.id, name, v)
	return err
}

func (b *Bag) SetNumber(ctx context.Context, name string, v int64) error {
	_, err := b.call(ctx, b.p.setNumber, b.id, name, v)
	return err
}

func (b *Bag) SetFloat(ctx context.Context, name string, v float32) error {
	_, err := b.call(ctx, b.p.setFloat, b.id, name, v)
	return err
}

func (b *Bag) SetBoolean(ctx context.Context, name string, v bool) error {
	_, err := b.call(ctx, b.p.setBoolean, b.id, name, v)
	return err
}

// SetPointer stores ptr without a cleanup. A zero ptr clears the property.
func (b *Bag) SetPointer(ctx context.Context, name string, ptr uintptr) error {
	_, err := b.call(ctx, b.p.setPointer, b.id, name, ptr)
	return err
}

// SetPointerWithCleanup stores ptr and arranges for cleanup(ptr) to run
// once when the value is replaced, cleared or the bag destroyed. The
// native library also runs the cleanup when the set itself fails.
func (b *Bag) SetPointerWithCleanup(ctx context.Context, name string, ptr uintptr, cleanup func(ptr uintptr)) error {
	if cleanup == nil {
		return b.SetPointer(ctx, name, ptr)
	}
	if err := b.check(); err != nil {
		return err
	}

	var slot *callback.Slot
	slot, err := b.cb.Install(b.cleanupCB, func(ctx context.Context, args []any) (any, error) {
		value, _ := args[1].(uintptr)
		b.mu.Lock()
		if b.cleanups[name] == slot {
			delete(b.cleanups, name)
		}
		b.mu.Unlock()
		cleanup(value)
		return nil, b.cb.Uninstall(ctx, slot)
	})
	if err != nil {
		return err
	}

	if _, err := b.call(ctx, b.p.setPointerCleanup, b.id, name, ptr, slot.Entry, slot.Key); err != nil {
		if uerr := b.cb.Uninstall(ctx, slot); uerr != nil {
			Logger().Warn("uninstall cleanup", zap.String("property", name), zap.Error(uerr))
		}
		return err
	}

	b.mu.Lock()
	if !b.cb.Closed(slot) {
		b.cleanups[name] = slot
	}
	b.mu.Unlock()
	return nil
}

// Clear removes name, running its cleanup if it has one.
func (b *Bag) Clear(ctx context.Context, name string) error {
	_, err := b.call(ctx, b.p.clear, b.id, name)
	return err
}

func (b *Bag) Has(ctx context.Context, name string) (bool, error) {
	out, err := b.call(ctx, b.p.has, b.id, name)
	if err != nil {
		return false, err
	}
	return out.(bool), nil
}

// Type reports the type of name, Invalid when missing.
func (b *Bag) Type(ctx context.Context, name string) (Type, error) {
	out, err := b.call(ctx, b.p.typeOf, b.id, name)
	if err != nil {
		return Invalid, err
	}
	return Type(out.(int32)), nil
}

func (b *Bag) GetPointer(ctx context.Context, name string, def uintptr) (uintptr, error) {
	out, err := b.call(ctx, b.p.getPointer, b.id, name, def)
	if err != nil {
		return def, err
	}
	return out.(uintptr), nil
}

func (b *Bag) GetString(ctx context.Context, name, def string) (string, error) {
	out, err := b.call(ctx, b.p.getString, b.id, name, def)
	if err != nil {
		return def, err
	}
	s, ok := out.(string)
	if !ok {
		return def, nil
	}
	return s, nil
}

func (b *Bag) GetNumber(ctx context.Context, name string, def int64) (int64, error) {
	out, err := b.call(ctx, b.p.getNumber, b.id, name, def)
	if err != nil {
		return def, err
	}
	return out.(int64), nil
}

func (b *Bag) GetFloat(ctx context.Context, name string, def float32) (float32, error) {
	out, err := b.call(ctx, b.p.getFloat, b.id, name, def)
	if err != nil {
		return def, err
	}
	return out.(float32), nil
}

func (b *Bag) GetBoolean(ctx context.Context, name string, def bool) (bool, error) {
	out, err := b.call(ctx, b.p.getBoolean, b.id, name, def)
	if err != nil {
		return def, err
	}
	return out.(bool), nil
}

// Names lists the property names through a temporary enumeration
// callback, sorted.
func (b *Bag) Names(ctx context.Context) ([]string, error) {
	if err := b.check(); err != nil {
		return nil, err
	}
	var (
		mu    sync.Mutex
		names []string
	)
	slot, err := b.cb.Install(b.enumCB, func(_ context.Context, args []any) (any, error) {
		if name, ok := args[2].(string); ok {
			mu.Lock()
			names = append(names, name)
			mu.Unlock()
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	_, err = b.call(ctx, b.p.enumerate, b.id, slot.Entry, slot.Key)
	if uerr := b.cb.Uninstall(ctx, slot); err == nil {
		err = uerr
	}
	if err != nil {
		return nil, err
	}
	mu.Lock()
	defer mu.Unlock()
	sort.Strings(names)
	return names, nil
}

// Copy copies every value into dst. Pointers with a cleanup stay behind.
func (b *Bag) Copy(ctx context.Context, dst *Bag) error {
	if err := dst.check(); err != nil {
		return err
	}
	_, err := b.call(ctx, b.p.copy, b.id, dst.id)
	return err
}

func (b *Bag) Lock(ctx context.Context) error {
	_, err := b.call(ctx, b.p.lock, b.id)
	return err
}

func (b *Bag) Unlock(ctx context.Context) error {
	_, err := b.call(ctx, b.p.unlock, b.id)
	if err != nil {
		Logger().Warn("unlock properties", zap.Uint32("id", b.id), zap.Error(err))
	}
	return err
}
