package sim

import (
	"context"
	"time"

	"github.com/wippyai/native-interop/layout"
)

// SDL_TrayEntryFlags
const (
	EntryButton   uint32 = 0x00000001
	EntryCheckbox uint32 = 0x00000002
	EntrySubmenu  uint32 = 0x00000004
	EntryDisabled uint32 = 0x80000000
	EntryChecked  uint32 = 0x40000000
)

type tray struct {
	menu    *menu
	tooltip string
	addr    uintptr
	icon    uintptr
}

type menu struct {
	tray    *tray
	parent  *item
	items   []*item
	addr    uintptr
	listing uintptr
}

type item struct {
	menu     *menu
	submenu  *menu
	label    *string
	addr     uintptr
	callback uintptr
	userdata uintptr
	flags    uint32
	checked  bool
	enabled  bool
}

// EntryInfo is a snapshot of a simulated tray entry.
type EntryInfo struct {
	Label       string
	Flags       uint32
	Separator   bool
	Checked     bool
	Enabled     bool
	HasCallback bool
}

func (l *Library) invalid(param string) {
	l.setError("Parameter '" + param + "' is invalid")
}

func (l *Library) createTray(_ context.Context, a []any) any {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.noTray {
		l.setError("System tray is not supported on this platform")
		return uintptr(0)
	}
	t := &tray{addr: l.newObject(), icon: a[0].(uintptr)}
	if s, ok := a[1].(string); ok {
		t.tooltip = s
	}
	l.trays[t.addr] = t
	return t.addr
}

func (l *Library) setTrayIcon(_ context.Context, a []any) any {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t, ok := l.trays[a[0].(uintptr)]; ok {
		t.icon = a[1].(uintptr)
	} else {
		l.invalid("tray")
	}
	return nil
}

func (l *Library) setTrayTooltip(_ context.Context, a []any) any {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.trays[a[0].(uintptr)]
	if !ok {
		l.invalid("tray")
		return nil
	}
	t.tooltip, _ = a[1].(string)
	return nil
}

func (l *Library) createTrayMenu(_ context.Context, a []any) any {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.trays[a[0].(uintptr)]
	if !ok {
		l.invalid("tray")
		return uintptr(0)
	}
	if t.menu == nil {
		t.menu = &menu{addr: l.newObject(), tray: t}
		l.menus[t.menu.addr] = t.menu
	}
	return t.menu.addr
}

func (l *Library) getTrayMenu(_ context.Context, a []any) any {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.trays[a[0].(uintptr)]
	if !ok {
		l.invalid("tray")
		return uintptr(0)
	}
	if t.menu == nil {
		return uintptr(0)
	}
	return t.menu.addr
}

func (l *Library) createTraySubmenu(_ context.Context, a []any) any {
	l.mu.Lock()
	defer l.mu.Unlock()
	it, ok := l.items[a[0].(uintptr)]
	if !ok {
		l.invalid("entry")
		return uintptr(0)
	}
	if it.flags&EntrySubmenu == 0 {
		l.setError("Cannot create submenu for entry not created with SDL_TRAYENTRY_SUBMENU")
		return uintptr(0)
	}
	if it.submenu == nil {
		it.submenu = &menu{addr: l.newObject(), parent: it}
		l.menus[it.submenu.addr] = it.submenu
	}
	return it.submenu.addr
}

func (l *Library) getTraySubmenu(_ context.Context, a []any) any {
	l.mu.Lock()
	defer l.mu.Unlock()
	it, ok := l.items[a[0].(uintptr)]
	if !ok {
		l.invalid("entry")
		return uintptr(0)
	}
	if it.submenu == nil {
		return uintptr(0)
	}
	return it.submenu.addr
}

// getTrayEntries returns a NULL-terminated array of entry pointers kept in
// the arena until the next call for the same menu, and stores the count
// through the optional int pointer.
func (l *Library) getTrayEntries(_ context.Context, a []any) any {
	l.mu.Lock()
	m, ok := l.menus[a[0].(uintptr)]
	if !ok {
		l.invalid("menu")
		l.mu.Unlock()
		return uintptr(0)
	}
	addrs := make([]uintptr, len(m.items))
	for i, it := range m.items {
		addrs[i] = it.addr
	}
	old := m.listing
	l.mu.Unlock()

	ptr := layout.Host.PointerSize
	if old != 0 {
		l.mem.Free(old, 0, 0)
	}
	list, err := l.mem.Alloc(uint32(len(addrs)+1)*ptr, ptr)
	if err != nil {
		return uintptr(0)
	}
	for i, addr := range addrs {
		l.writePtr(list+uintptr(i)*uintptr(ptr), addr)
	}
	l.writePtr(list+uintptr(len(addrs))*uintptr(ptr), 0)
	if count := a[1].(uintptr); count != 0 {
		_ = l.mem.WriteU32(count, uint32(len(addrs)))
	}

	l.mu.Lock()
	if m, ok := l.menus[a[0].(uintptr)]; ok {
		m.listing = list
	}
	l.mu.Unlock()
	return list
}

func (l *Library) insertTrayEntryAt(_ context.Context, a []any) any {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.menus[a[0].(uintptr)]
	if !ok {
		l.invalid("menu")
		return uintptr(0)
	}
	pos := int(a[1].(int32))
	if pos < -1 || pos > len(m.items) {
		l.setError("Invalid entry position")
		return uintptr(0)
	}
	if pos == -1 {
		pos = len(m.items)
	}
	flags := a[3].(uint32)
	it := &item{
		addr:    l.newObject(),
		menu:    m,
		flags:   flags,
		enabled: flags&EntryDisabled == 0,
		checked: flags&EntryChecked != 0,
	}
	if s, ok := a[2].(string); ok {
		it.label = &s
	}
	m.items = append(m.items, nil)
	copy(m.items[pos+1:], m.items[pos:])
	m.items[pos] = it
	l.items[it.addr] = it
	return it.addr
}

func (l *Library) removeTrayEntry(_ context.Context, a []any) any {
	l.mu.Lock()
	defer l.mu.Unlock()
	it, ok := l.items[a[0].(uintptr)]
	if !ok {
		l.invalid("entry")
		return nil
	}
	m := it.menu
	for i, x := range m.items {
		if x == it {
			m.items = append(m.items[:i], m.items[i+1:]...)
			break
		}
	}
	l.dropItem(it)
	return nil
}

func (l *Library) dropItem(it *item) {
	if it.submenu != nil {
		l.dropMenu(it.submenu)
	}
	delete(l.items, it.addr)
}

func (l *Library) dropMenu(m *menu) {
	for _, it := range m.items {
		l.dropItem(it)
	}
	if m.listing != 0 {
		l.mem.Free(m.listing, 0, 0)
	}
	delete(l.menus, m.addr)
}

func (l *Library) setTrayEntryLabel(_ context.Context, a []any) any {
	l.mu.Lock()
	defer l.mu.Unlock()
	it, ok := l.items[a[0].(uintptr)]
	if !ok {
		l.invalid("entry")
		return nil
	}
	if it.label == nil {
		return nil
	}
	if s, ok := a[1].(string); ok {
		it.label = &s
	}
	return nil
}

func (l *Library) getTrayEntryLabel(_ context.Context, a []any) any {
	l.mu.Lock()
	defer l.mu.Unlock()
	it, ok := l.items[a[0].(uintptr)]
	if !ok {
		l.invalid("entry")
		return ""
	}
	if it.label == nil {
		return ""
	}
	return *it.label
}

func (l *Library) setTrayEntryChecked(_ context.Context, a []any) any {
	l.mu.Lock()
	defer l.mu.Unlock()
	it, ok := l.items[a[0].(uintptr)]
	if !ok {
		l.invalid("entry")
		return nil
	}
	if it.flags&EntryCheckbox == 0 {
		l.setError("Cannot update check for entry not created with SDL_TRAYENTRY_CHECKBOX")
		return nil
	}
	it.checked = a[1].(bool)
	return nil
}

func (l *Library) getTrayEntryChecked(_ context.Context, a []any) any {
	l.mu.Lock()
	defer l.mu.Unlock()
	it, ok := l.items[a[0].(uintptr)]
	if !ok {
		l.invalid("entry")
		return false
	}
	return it.checked
}

func (l *Library) setTrayEntryEnabled(_ context.Context, a []any) any {
	l.mu.Lock()
	defer l.mu.Unlock()
	it, ok := l.items[a[0].(uintptr)]
	if !ok {
		l.invalid("entry")
		return nil
	}
	it.enabled = a[1].(bool)
	return nil
}

func (l *Library) getTrayEntryEnabled(_ context.Context, a []any) any {
	l.mu.Lock()
	defer l.mu.Unlock()
	it, ok := l.items[a[0].(uintptr)]
	if !ok {
		l.invalid("entry")
		return false
	}
	return it.enabled
}

func (l *Library) setTrayEntryCallback(_ context.Context, a []any) any {
	l.mu.Lock()
	defer l.mu.Unlock()
	it, ok := l.items[a[0].(uintptr)]
	if !ok {
		l.invalid("entry")
		return nil
	}
	it.callback = a[1].(uintptr)
	it.userdata = a[2].(uintptr)
	return nil
}

func (l *Library) clickTrayEntry(ctx context.Context, a []any) any {
	l.click(ctx, a[0].(uintptr), false)
	return nil
}

// click toggles a checkbox and fires the entry's callback, outside the lock.
// User clicks do not reach disabled entries; SDL_ClickTrayEntry does.
func (l *Library) click(ctx context.Context, entry uintptr, user bool) bool {
	l.mu.Lock()
	it, ok := l.items[entry]
	if !ok || (user && !it.enabled) {
		l.mu.Unlock()
		return false
	}
	if it.flags&EntryCheckbox != 0 {
		it.checked = !it.checked
	}
	cb, ud := it.callback, it.userdata
	l.mu.Unlock()

	if cb != 0 {
		l.invoke(ctx, cb, ud, entry)
	}
	return true
}

func (l *Library) destroyTray(_ context.Context, a []any) any {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.trays[a[0].(uintptr)]
	if !ok {
		l.invalid("tray")
		return nil
	}
	if t.menu != nil {
		l.dropMenu(t.menu)
	}
	delete(l.trays, t.addr)
	return nil
}

func (l *Library) getTrayEntryParent(_ context.Context, a []any) any {
	l.mu.Lock()
	defer l.mu.Unlock()
	it, ok := l.items[a[0].(uintptr)]
	if !ok {
		l.invalid("entry")
		return uintptr(0)
	}
	return it.menu.addr
}

func (l *Library) getTrayMenuParentEntry(_ context.Context, a []any) any {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.menus[a[0].(uintptr)]
	if !ok {
		l.invalid("menu")
		return uintptr(0)
	}
	if m.parent == nil {
		return uintptr(0)
	}
	return m.parent.addr
}

func (l *Library) getTrayMenuParentTray(_ context.Context, a []any) any {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.menus[a[0].(uintptr)]
	if !ok {
		l.invalid("menu")
		return uintptr(0)
	}
	if m.tray == nil {
		return uintptr(0)
	}
	return m.tray.addr
}

func (l *Library) updateTrays(context.Context, []any) any {
	return nil
}

// Click activates entry as a user click would, on the calling goroutine.
// It reports whether the entry exists and is enabled.
func (l *Library) Click(ctx context.Context, entry uintptr) bool {
	if l.closed.Load() {
		return false
	}
	return l.click(ctx, entry, true)
}

// ClickAsync activates entry from a new goroutine, the way a platform
// event thread would. The returned channel closes when the click is done.
func (l *Library) ClickAsync(entry uintptr) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Click(context.Background(), entry)
	}()
	return done
}

// ClickAfter is ClickAsync with a delay, for tests that need a click to
// land while the caller is blocked.
func (l *Library) ClickAfter(d time.Duration, entry uintptr) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		time.Sleep(d)
		l.Click(context.Background(), entry)
	}()
	return done
}

// Trays returns the number of live trays.
func (l *Library) Trays() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.trays)
}

// Entry returns a snapshot of a live entry.
func (l *Library) Entry(addr uintptr) (EntryInfo, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	it, ok := l.items[addr]
	if !ok {
		return EntryInfo{}, false
	}
	info := EntryInfo{
		Flags:       it.flags,
		Separator:   it.label == nil,
		Checked:     it.checked,
		Enabled:     it.enabled,
		HasCallback: it.callback != 0,
	}
	if it.label != nil {
		info.Label = *it.label
	}
	return info, true
}

// MenuEntries returns the entry addresses of a live menu in order.
func (l *Library) MenuEntries(menu uintptr) []uintptr {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.menus[menu]
	if !ok {
		return nil
	}
	out := make([]uintptr, len(m.items))
	for i, it := range m.items {
		out[i] = it.addr
	}
	return out
}
