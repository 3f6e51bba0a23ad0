package tray

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/native-interop/callback"
	"github.com/wippyai/native-interop/catalog"
	"github.com/wippyai/native-interop/errors"
	"github.com/wippyai/native-interop/handle"
)

// Tray is an owned system tray icon.
type Tray struct {
	n    *node
	env  *env
	menu *Menu
}

type Option func(*options)

type options struct {
	reg *handle.Registry
}

// WithRegistry tracks the tray handle in reg instead of a private
// registry.
func WithRegistry(reg *handle.Registry) Option {
	return func(o *options) {
		o.reg = reg
	}
}

// New creates a tray with an optional icon surface and tooltip. An empty
// tooltip is passed as NULL.
func New(ctx context.Context, s *catalog.Surface, cb *callback.Manager, icon uintptr, tooltip string, opts ...Option) (*Tray, error) {
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
	click, err := s.Callback("SDL_TrayCallback")
	if err != nil {
		return nil, err
	}
	e := &env{s: s, cb: cb, reg: o.reg, p: p, click: click}

	out, err := p.create.Call(ctx, icon, optString(tooltip))
	if err != nil {
		return nil, err
	}
	destroy := p.destroy
	h := e.reg.Wrap(out.(uintptr), handle.Owned, func(addr uintptr) error {
		_, err := destroy.Call(context.Background(), addr)
		return err
	})
	Logger().Debug("tray created", zap.Stringer("handle", h))
	return &Tray{n: newNode("tray", h, nil), env: e}, nil
}

func optString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (t *Tray) Handle() handle.Handle { return t.n.h }

func (t *Tray) Destroyed() bool { return t.n.isDestroyed() }

func (t *Tray) SetIcon(ctx context.Context, icon uintptr) error {
	if err := t.n.check(); err != nil {
		return err
	}
	_, err := t.env.p.setIcon.Call(ctx, t.n.h.Addr, icon)
	return err
}

// SetTooltip replaces the tooltip; an empty string removes it.
func (t *Tray) SetTooltip(ctx context.Context, tooltip string) error {
	if err := t.n.check(); err != nil {
		return err
	}
	_, err := t.env.p.setTooltip.Call(ctx, t.n.h.Addr, optString(tooltip))
	return err
}

// CreateMenu returns the tray's menu, creating it on first use.
func (t *Tray) CreateMenu(ctx context.Context) (*Menu, error) {
	if err := t.n.check(); err != nil {
		return nil, err
	}
	t.n.mu.Lock()
	m := t.menu
	t.n.mu.Unlock()
	if m != nil {
		return m, nil
	}

	out, err := t.env.p.createMenu.Call(ctx, t.n.h.Addr)
	if err != nil {
		return nil, err
	}
	m = newMenu(t.env, out.(uintptr), t.n)
	m.tray = t

	t.n.mu.Lock()
	defer t.n.mu.Unlock()
	if t.menu != nil {
		return t.menu, nil
	}
	t.menu = m
	return m, nil
}

// Menu returns the tray's menu, or nil before CreateMenu.
func (t *Tray) Menu() *Menu {
	t.n.mu.Lock()
	defer t.n.mu.Unlock()
	return t.menu
}

// Destroy removes the tray together with every menu and entry below it.
// Callback slots are uninstalled before the tray handle is released.
// Destroying twice is a no-op, and a click callback may destroy its own
// tray.
func (t *Tray) Destroy(ctx context.Context) error {
	return t.n.destroy(ctx, t.env.cb, func(context.Context) error {
		return t.env.reg.Release(t.n.h)
	})
}

// Update asks the library to process pending tray events, where the
// platform needs it. It fails with symbol_unavailable when the library
// does not export SDL_UpdateTrays.
func Update(ctx context.Context, s *catalog.Surface) error {
	p, err := s.Proc("SDL_UpdateTrays")
	if err != nil {
		return err
	}
	if !p.Available() {
		return errors.SymbolUnavailable(p.Name())
	}
	_, err = p.Call(ctx)
	return err
}
