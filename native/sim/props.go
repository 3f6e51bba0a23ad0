package sim

import (
	"context"
	"sort"
	"strconv"
	"strings"
)

// SDL_PropertyType
const (
	PropertyInvalid int32 = iota
	PropertyPointer
	PropertyString
	PropertyNumber
	PropertyFloat
	PropertyBoolean
)

type propValue struct {
	str      string
	ptr      uintptr
	cleanup  uintptr
	userdata uintptr
	num      int64
	typ      int32
	flt      float32
	b        bool
}

type group struct {
	values map[string]*propValue
	id     uint32
	locks  int
}

type pendingCleanup struct {
	fn, userdata, value uintptr
}

func (l *Library) newGroup() *group {
	l.nextGroup++
	g := &group{id: l.nextGroup, values: make(map[string]*propValue)}
	l.groups[g.id] = g
	return g
}

func (l *Library) getGlobalProperties(context.Context, []any) any {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.global == 0 {
		l.global = l.newGroup().id
	}
	return l.global
}

func (l *Library) createProperties(context.Context, []any) any {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.newGroup().id
}

func (l *Library) findGroup(id uint32) (*group, bool) {
	g, ok := l.groups[id]
	if !ok {
		l.invalid("props")
	}
	return g, ok
}

// runCleanups invokes pointer cleanups collected under the lock.
func (l *Library) runCleanups(ctx context.Context, list []pendingCleanup) {
	for _, c := range list {
		l.invoke(ctx, c.fn, c.userdata, c.value)
	}
}

func cleanupOf(v *propValue) []pendingCleanup {
	if v == nil || v.typ != PropertyPointer || v.cleanup == 0 {
		return nil
	}
	return []pendingCleanup{{fn: v.cleanup, userdata: v.userdata, value: v.ptr}}
}

// set replaces name in group id with v, or clears it when v is nil, and
// runs the replaced value's cleanup after unlocking.
func (l *Library) set(ctx context.Context, id uint32, name any, v *propValue) bool {
	key, ok := name.(string)
	l.mu.Lock()
	g, found := l.findGroup(id)
	if !found || !ok || key == "" {
		if found {
			l.invalid("name")
		}
		l.mu.Unlock()
		// SDL calls the cleanup even when setting fails.
		l.runCleanups(ctx, cleanupOf(v))
		return false
	}
	pending := cleanupOf(g.values[key])
	if v == nil {
		delete(g.values, key)
	} else {
		g.values[key] = v
	}
	l.mu.Unlock()
	l.runCleanups(ctx, pending)
	return true
}

func (l *Library) lookup(id uint32, name any) (*propValue, bool) {
	key, _ := name.(string)
	l.mu.Lock()
	defer l.mu.Unlock()
	g, ok := l.findGroup(id)
	if !ok {
		return nil, false
	}
	v, ok := g.values[key]
	if !ok {
		return nil, false
	}
	cp := *v
	return &cp, true
}

func (l *Library) setPointerPropertyWithCleanup(ctx context.Context, a []any) any {
	v := &propValue{typ: PropertyPointer, ptr: a[2].(uintptr), cleanup: a[3].(uintptr), userdata: a[4].(uintptr)}
	if v.ptr == 0 {
		return l.set(ctx, a[0].(uint32), a[1], nil)
	}
	return l.set(ctx, a[0].(uint32), a[1], v)
}

func (l *Library) setPointerProperty(ctx context.Context, a []any) any {
	if a[2].(uintptr) == 0 {
		return l.set(ctx, a[0].(uint32), a[1], nil)
	}
	return l.set(ctx, a[0].(uint32), a[1], &propValue{typ: PropertyPointer, ptr: a[2].(uintptr)})
}

func (l *Library) setStringProperty(ctx context.Context, a []any) any {
	s, ok := a[2].(string)
	if !ok {
		return l.set(ctx, a[0].(uint32), a[1], nil)
	}
	return l.set(ctx, a[0].(uint32), a[1], &propValue{typ: PropertyString, str: s})
}

func (l *Library) setNumberProperty(ctx context.Context, a []any) any {
	return l.set(ctx, a[0].(uint32), a[1], &propValue{typ: PropertyNumber, num: a[2].(int64)})
}

func (l *Library) setFloatProperty(ctx context.Context, a []any) any {
	return l.set(ctx, a[0].(uint32), a[1], &propValue{typ: PropertyFloat, flt: a[2].(float32)})
}

func (l *Library) setBooleanProperty(ctx context.Context, a []any) any {
	return l.set(ctx, a[0].(uint32), a[1], &propValue{typ: PropertyBoolean, b: a[2].(bool)})
}

func (l *Library) clearProperty(ctx context.Context, a []any) any {
	return l.set(ctx, a[0].(uint32), a[1], nil)
}

func (l *Library) hasProperty(_ context.Context, a []any) any {
	_, ok := l.lookup(a[0].(uint32), a[1])
	return ok
}

func (l *Library) getPropertyType(_ context.Context, a []any) any {
	v, ok := l.lookup(a[0].(uint32), a[1])
	if !ok {
		return PropertyInvalid
	}
	return v.typ
}

func (l *Library) getPointerProperty(_ context.Context, a []any) any {
	v, ok := l.lookup(a[0].(uint32), a[1])
	if !ok || v.typ != PropertyPointer {
		return a[2].(uintptr)
	}
	return v.ptr
}

func (l *Library) getStringProperty(_ context.Context, a []any) any {
	def := a[2]
	v, ok := l.lookup(a[0].(uint32), a[1])
	if !ok {
		return def
	}
	switch v.typ {
	case PropertyString:
		return v.str
	case PropertyNumber:
		return strconv.FormatInt(v.num, 10)
	case PropertyFloat:
		return strconv.FormatFloat(float64(v.flt), 'f', -1, 32)
	case PropertyBoolean:
		if v.b {
			return "true"
		}
		return "false"
	}
	return def
}

func (l *Library) getNumberProperty(_ context.Context, a []any) any {
	def := a[2].(int64)
	v, ok := l.lookup(a[0].(uint32), a[1])
	if !ok {
		return def
	}
	switch v.typ {
	case PropertyNumber:
		return v.num
	case PropertyFloat:
		return int64(v.flt)
	case PropertyString:
		if n, err := strconv.ParseInt(strings.TrimSpace(v.str), 0, 64); err == nil {
			return n
		}
	case PropertyBoolean:
		if v.b {
			return int64(1)
		}
		return int64(0)
	}
	return def
}

func (l *Library) getFloatProperty(_ context.Context, a []any) any {
	def := a[2].(float32)
	v, ok := l.lookup(a[0].(uint32), a[1])
	if !ok {
		return def
	}
	switch v.typ {
	case PropertyFloat:
		return v.flt
	case PropertyNumber:
		return float32(v.num)
	case PropertyString:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 32); err == nil {
			return float32(f)
		}
	case PropertyBoolean:
		if v.b {
			return float32(1)
		}
		return float32(0)
	}
	return def
}

func (l *Library) getBooleanProperty(_ context.Context, a []any) any {
	def := a[2].(bool)
	v, ok := l.lookup(a[0].(uint32), a[1])
	if !ok {
		return def
	}
	switch v.typ {
	case PropertyBoolean:
		return v.b
	case PropertyNumber:
		return v.num != 0
	case PropertyFloat:
		return v.flt != 0
	case PropertyString:
		return stringBoolean(v.str, def)
	}
	return def
}

// stringBoolean follows SDL_GetStringBoolean.
func stringBoolean(s string, def bool) bool {
	switch strings.ToLower(s) {
	case "":
		return def
	case "0", "false":
		return false
	}
	return true
}

func (l *Library) lockProperties(_ context.Context, a []any) any {
	l.mu.Lock()
	defer l.mu.Unlock()
	g, ok := l.findGroup(a[0].(uint32))
	if !ok {
		return false
	}
	g.locks++
	return true
}

func (l *Library) unlockProperties(_ context.Context, a []any) any {
	l.mu.Lock()
	defer l.mu.Unlock()
	if g, ok := l.findGroup(a[0].(uint32)); ok && g.locks > 0 {
		g.locks--
	}
	return nil
}

// copyProperties copies every value except pointers that carry a cleanup.
func (l *Library) copyProperties(ctx context.Context, a []any) any {
	l.mu.Lock()
	src, ok := l.findGroup(a[0].(uint32))
	if !ok {
		l.mu.Unlock()
		return false
	}
	dst, ok := l.findGroup(a[1].(uint32))
	if !ok {
		l.mu.Unlock()
		return false
	}
	var pending []pendingCleanup
	for k, v := range src.values {
		if v.typ == PropertyPointer && v.cleanup != 0 {
			continue
		}
		pending = append(pending, cleanupOf(dst.values[k])...)
		cp := *v
		dst.values[k] = &cp
	}
	l.mu.Unlock()
	l.runCleanups(ctx, pending)
	return true
}

func (l *Library) enumerateProperties(ctx context.Context, a []any) any {
	id := a[0].(uint32)
	l.mu.Lock()
	g, ok := l.findGroup(id)
	if !ok {
		l.mu.Unlock()
		return false
	}
	names := make([]string, 0, len(g.values))
	for k := range g.values {
		names = append(names, k)
	}
	l.mu.Unlock()

	sort.Strings(names)
	fn, userdata := a[1].(uintptr), a[2].(uintptr)
	if fn == 0 {
		l.mu.Lock()
		l.invalid("callback")
		l.mu.Unlock()
		return false
	}
	for _, name := range names {
		l.invoke(ctx, fn, userdata, id, name)
	}
	return true
}

func (l *Library) destroyProperties(ctx context.Context, a []any) any {
	id := a[0].(uint32)
	l.mu.Lock()
	g, ok := l.groups[id]
	if !ok {
		l.mu.Unlock()
		return nil
	}
	var pending []pendingCleanup
	names := make([]string, 0, len(g.values))
	for k := range g.values {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		pending = append(pending, cleanupOf(g.values[k])...)
	}
	delete(l.groups, id)
	if id == l.global {
		l.global = 0
	}
	l.mu.Unlock()
	l.runCleanups(ctx, pending)
	return nil
}

// PropertyGroups returns the number of live property groups.
func (l *Library) PropertyGroups() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.groups)
}

// PropertyLocks returns the lock depth of group id.
func (l *Library) PropertyLocks(id uint32) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if g, ok := l.groups[id]; ok {
		return g.locks
	}
	return 0
}
