package tray

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/native-interop/errors"
	"github.com/wippyai/native-interop/handle"
)

const clickKey = "click"

// ClickFunc handles a click on an entry. It runs on whatever thread the
// library delivers the click on.
type ClickFunc func(ctx context.Context, e *Entry)

// State is the last entry state confirmed by the library.
type State struct {
	Label   string
	Checked bool
	Enabled bool
}

// Entry is a borrowed menu entry.
type Entry struct {
	n         *node
	env       *env
	menu      *Menu
	submenu   *Menu
	state     State
	flags     EntryFlags
	separator bool
}

func newEntry(m *Menu, addr uintptr, flags EntryFlags, label string, separator bool) *Entry {
	h := m.env.reg.Wrap(addr, handle.Borrowed, nil)
	return &Entry{
		n:         newNode("entry", h, m.n),
		env:       m.env,
		menu:      m,
		flags:     flags,
		separator: separator,
		state: State{
			Label:   label,
			Checked: flags&EntryChecked != 0,
			Enabled: flags&EntryDisabled == 0,
		},
	}
}

func (e *Entry) Handle() handle.Handle { return e.n.h }

func (e *Entry) Destroyed() bool { return e.n.isDestroyed() }

// Menu returns the menu holding e.
func (e *Entry) Menu() *Menu { return e.menu }

func (e *Entry) Flags() EntryFlags { return e.flags }

func (e *Entry) IsSeparator() bool { return e.separator }

// State returns the cached state without calling native code.
func (e *Entry) State() State {
	e.n.mu.Lock()
	defer e.n.mu.Unlock()
	return e.state
}

func (e *Entry) Label(ctx context.Context) (string, error) {
	if err := e.n.check(); err != nil {
		return "", err
	}
	out, err := e.env.p.getLabel.Call(ctx, e.n.h.Addr)
	if err != nil {
		return "", err
	}
	s, _ := out.(string)
	e.n.mu.Lock()
	e.state.Label = s
	e.n.mu.Unlock()
	return s, nil
}

func (e *Entry) SetLabel(ctx context.Context, label string) error {
	if err := e.n.check(); err != nil {
		return err
	}
	if e.separator {
		return errors.InvalidInput(errors.PhaseResource, "separator has no label")
	}
	if _, err := e.env.p.setLabel.Call(ctx, e.n.h.Addr, label); err != nil {
		return err
	}
	got, err := e.Label(ctx)
	if err != nil {
		return err
	}
	if got != label {
		return e.rejected(e.env.p.setLabel.Name())
	}
	return nil
}

func (e *Entry) Checked(ctx context.Context) (bool, error) {
	if err := e.n.check(); err != nil {
		return false, err
	}
	out, err := e.env.p.getChecked.Call(ctx, e.n.h.Addr)
	if err != nil {
		return false, err
	}
	v := out.(bool)
	e.n.mu.Lock()
	e.state.Checked = v
	e.n.mu.Unlock()
	return v, nil
}

// SetChecked sets the check mark and reads it back. The cached state
// follows the library even when the library refused the change.
func (e *Entry) SetChecked(ctx context.Context, checked bool) error {
	if err := e.n.check(); err != nil {
		return err
	}
	if _, err := e.env.p.setChecked.Call(ctx, e.n.h.Addr, checked); err != nil {
		return err
	}
	got, err := e.Checked(ctx)
	if err != nil {
		return err
	}
	if got != checked {
		return e.rejected(e.env.p.setChecked.Name())
	}
	return nil
}

func (e *Entry) Enabled(ctx context.Context) (bool, error) {
	if err := e.n.check(); err != nil {
		return false, err
	}
	out, err := e.env.p.getEnabled.Call(ctx, e.n.h.Addr)
	if err != nil {
		return false, err
	}
	v := out.(bool)
	e.n.mu.Lock()
	e.state.Enabled = v
	e.n.mu.Unlock()
	return v, nil
}

func (e *Entry) SetEnabled(ctx context.Context, enabled bool) error {
	if err := e.n.check(); err != nil {
		return err
	}
	if _, err := e.env.p.setEnabled.Call(ctx, e.n.h.Addr, enabled); err != nil {
		return err
	}
	got, err := e.Enabled(ctx)
	if err != nil {
		return err
	}
	if got != enabled {
		return e.rejected(e.env.p.setEnabled.Name())
	}
	return nil
}

// rejected reports a setter whose effect the getter did not confirm. The
// setters return void, so the library's error string is the only reason
// available.
func (e *Entry) rejected(symbol string) error {
	return errors.NativeCallFailed(symbol, e.env.s.Library().LastError())
}

// OnClick installs fn as the click callback, replacing any previous one.
// A nil fn removes the callback. Separators take no callback.
func (e *Entry) OnClick(ctx context.Context, fn ClickFunc) error {
	if err := e.n.check(); err != nil {
		return err
	}
	if e.separator {
		return errors.InvalidInput(errors.PhaseResource, "separator has no callback")
	}
	cb := e.env.cb
	if err := e.n.unbind(ctx, cb, clickKey); err != nil {
		return err
	}
	if fn == nil {
		return nil
	}

	slot, err := cb.Install(e.env.click, func(ctx context.Context, _ []any) (any, error) {
		if e.n.isDestroyed() {
			return nil, nil
		}
		if e.flags&EntryCheckbox != 0 {
			if _, err := e.Checked(ctx); err != nil {
				Logger().Debug("refresh checked", zap.Stringer("entry", e.n.h), zap.Error(err))
			}
		}
		fn(ctx, e)
		return nil, nil
	})
	if err != nil {
		return err
	}

	addr, set := e.n.h.Addr, e.env.p.setCallback
	b := binding{
		slot: slot,
		detach: func(ctx context.Context) error {
			_, err := set.Call(ctx, addr, uintptr(0), uintptr(0))
			return err
		},
	}
	if err := e.n.bind(clickKey, b); err != nil {
		_ = cb.Uninstall(ctx, slot)
		return err
	}
	if _, err := set.Call(ctx, addr, slot.Entry, slot.Key); err != nil {
		_ = e.n.unbind(ctx, cb, clickKey)
		return err
	}
	return nil
}

// Click activates the entry programmatically. Unlike a user click it also
// reaches disabled entries.
func (e *Entry) Click(ctx context.Context) error {
	if err := e.n.check(); err != nil {
		return err
	}
	_, err := e.env.p.click.Call(ctx, e.n.h.Addr)
	return err
}

// CreateSubmenu returns the entry's submenu, creating it on first use. The
// entry must have been inserted with EntrySubmenu.
func (e *Entry) CreateSubmenu(ctx context.Context) (*Menu, error) {
	if err := e.n.check(); err != nil {
		return nil, err
	}
	e.n.mu.Lock()
	m := e.submenu
	e.n.mu.Unlock()
	if m != nil {
		return m, nil
	}

	out, err := e.env.p.createSubmenu.Call(ctx, e.n.h.Addr)
	if err != nil {
		return nil, err
	}
	m = newMenu(e.env, out.(uintptr), e.n)
	m.entry = e

	e.n.mu.Lock()
	defer e.n.mu.Unlock()
	if e.submenu != nil {
		return e.submenu, nil
	}
	e.submenu = m
	return m, nil
}

// Submenu returns the entry's submenu, or nil before CreateSubmenu.
func (e *Entry) Submenu() *Menu {
	e.n.mu.Lock()
	defer e.n.mu.Unlock()
	return e.submenu
}

// Remove destroys the entry and everything below it, then removes it from
// its menu.
func (e *Entry) Remove(ctx context.Context) error {
	if err := e.n.check(); err != nil {
		return err
	}
	return e.n.destroy(ctx, e.env.cb, func(ctx context.Context) error {
		_, err := e.env.p.remove.Call(ctx, e.n.h.Addr)
		e.menu.forget(e)
		return err
	})
}
