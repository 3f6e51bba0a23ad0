package tray

import (
	"context"

	interop "github.com/wippyai/native-interop"
	"github.com/wippyai/native-interop/errors"
	"github.com/wippyai/native-interop/handle"
)

// Menu is a borrowed menu owned by a tray or by a submenu entry.
type Menu struct {
	n       *node
	env     *env
	tray    *Tray
	entry   *Entry
	entries []*Entry // guarded by n.mu
}

func newMenu(e *env, addr uintptr, parent *node) *Menu {
	h := e.reg.Wrap(addr, handle.Borrowed, nil)
	return &Menu{n: newNode("menu", h, parent), env: e}
}

func (m *Menu) Handle() handle.Handle { return m.n.h }

func (m *Menu) Destroyed() bool { return m.n.isDestroyed() }

// ParentTray returns the tray of a root menu, nil for a submenu.
func (m *Menu) ParentTray() *Tray { return m.tray }

// ParentEntry returns the entry a submenu hangs from, nil for a root menu.
func (m *Menu) ParentEntry() *Entry { return m.entry }

// Len returns the number of entries created through this menu.
func (m *Menu) Len() int {
	m.n.mu.Lock()
	defer m.n.mu.Unlock()
	return len(m.entries)
}

// InsertEntryAt inserts an entry before index. Index -1 and Len() both
// append; anything else outside [0, Len()] fails with index_out_of_range
// before reaching native code. An empty label without a button, checkbox
// or submenu flag makes a separator.
func (m *Menu) InsertEntryAt(ctx context.Context, index int, label string, flags EntryFlags) (*Entry, error) {
	if err := m.n.check(); err != nil {
		return nil, err
	}
	count := m.Len()
	if index < -1 || index > count {
		return nil, errors.IndexOutOfRange(errors.PhaseResource, index, count)
	}

	separator := label == "" && flags&entryKinds == 0
	var lbl any = label
	if separator {
		lbl = nil
	}
	out, err := m.env.p.insert.Call(ctx, m.n.h.Addr, int32(index), lbl, uint32(flags))
	if err != nil {
		return nil, err
	}
	e := newEntry(m, out.(uintptr), flags, label, separator)

	m.n.mu.Lock()
	defer m.n.mu.Unlock()
	pos := index
	if pos == -1 || pos > len(m.entries) {
		pos = len(m.entries)
	}
	m.entries = append(m.entries, nil)
	copy(m.entries[pos+1:], m.entries[pos:])
	m.entries[pos] = e
	return e, nil
}

// Entries lists the menu as the native library sees it. Entries created
// outside this package are wrapped as they are found.
func (m *Menu) Entries(ctx context.Context) ([]*Entry, error) {
	if err := m.n.check(); err != nil {
		return nil, err
	}
	lib := m.env.s.Library()
	alloc := lib.Allocator()
	countAddr, err := alloc.Alloc(4, 4)
	if err != nil {
		return nil, err
	}
	defer alloc.Free(countAddr, 4, 4)

	out, err := m.env.p.entries.Call(ctx, m.n.h.Addr, countAddr)
	if err != nil {
		return nil, err
	}
	mem := lib.Memory()
	count, err := mem.ReadU32(countAddr)
	if err != nil {
		return nil, err
	}
	list := out.(uintptr)
	size := m.env.s.Target().PointerSize
	addrs := make([]uintptr, 0, count)
	for i := uint32(0); i < count; i++ {
		addr, err := readPointer(mem, list+uintptr(i*size), size)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, addr)
	}

	m.n.mu.Lock()
	known := make(map[uintptr]*Entry, len(m.entries))
	for _, e := range m.entries {
		known[e.n.h.Addr] = e
	}
	m.n.mu.Unlock()

	result := make([]*Entry, len(addrs))
	for i, addr := range addrs {
		e, ok := known[addr]
		if !ok {
			e = newEntry(m, addr, 0, "", false)
		}
		result[i] = e
	}

	m.n.mu.Lock()
	m.entries = append(m.entries[:0:0], result...)
	m.n.mu.Unlock()
	return result, nil
}

func (m *Menu) forget(e *Entry) {
	m.n.mu.Lock()
	defer m.n.mu.Unlock()
	for i, x := range m.entries {
		if x == e {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return
		}
	}
}

func readPointer(mem interop.Memory, addr uintptr, size uint32) (uintptr, error) {
	if size == 4 {
		v, err := mem.ReadU32(addr)
		return uintptr(v), err
	}
	v, err := mem.ReadU64(addr)
	return uintptr(v), err
}
