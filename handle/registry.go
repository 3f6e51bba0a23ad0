package handle

import (
	stderrors "errors"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/native-interop/errors"
)

type entry struct {
	release Releaser
	handle  Handle
}

// Registry tracks Owned handles until they are released.
type Registry struct {
	entries   map[uint64]entry
	observers []Observer
	nextID    uint64
	mu        sync.Mutex
	obsMu     sync.RWMutex
	closed    bool
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[uint64]entry),
	}
}

// Wrap tags addr with its ownership. A zero address always yields a Null
// handle; Owned handles are remembered together with rel until released.
func (r *Registry) Wrap(addr uintptr, own Ownership, rel Releaser) Handle {
	if addr == 0 || own == Null {
		return Handle{}
	}
	if own != Owned {
		h := Handle{Addr: addr, Own: own}
		r.notify(Event{Type: EventWrapped, Handle: h})
		return h
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		Logger().Warn("wrap on closed registry", zap.Uintptr("addr", addr))
		return Handle{}
	}
	r.nextID++
	h := Handle{Addr: addr, Own: Owned, id: r.nextID}
	r.entries[h.id] = entry{handle: h, release: rel}
	r.mu.Unlock()

	r.notify(Event{Type: EventWrapped, Handle: h})
	return h
}

// Release frees an Owned handle through its releaser. Borrowed and Null
// handles are ignored.
func (r *Registry) Release(h Handle) error {
	if h.Own != Owned || h.Addr == 0 {
		return nil
	}

	r.mu.Lock()
	e, ok := r.entries[h.id]
	if ok {
		delete(r.entries, h.id)
	}
	r.mu.Unlock()

	if !ok {
		return nil
	}
	return r.release(e)
}

func (r *Registry) release(e entry) error {
	var err error
	if e.release != nil {
		if rerr := e.release(e.handle.Addr); rerr != nil {
			err = errors.Wrap(errors.PhaseHandle, errors.KindNativeCallFailed, rerr, "release")
			Logger().Debug("release failed", zap.Uintptr("addr", e.handle.Addr), zap.Error(rerr))
		}
	}
	r.notify(Event{Type: EventReleased, Handle: e.handle, Err: err})
	return err
}

// Live returns the number of Owned handles not yet released.
func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Each visits live Owned handles in wrap order until fn returns false.
func (r *Registry) Each(fn func(Handle) bool) {
	for _, e := range r.snapshot() {
		if !fn(e.handle) {
			return
		}
	}
}

func (r *Registry) snapshot() []entry {
	r.mu.Lock()
	list := make([]entry, 0, len(r.entries))
	for _, e := range r.entries {
		list = append(list, e)
	}
	r.mu.Unlock()
	sort.Slice(list, func(i, j int) bool { return list[i].handle.id < list[j].handle.id })
	return list
}

func (r *Registry) Subscribe(o Observer) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	r.observers = append(r.observers, o)
}

func (r *Registry) Unsubscribe(o Observer) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	for i, obs := range r.observers {
		if obs == o {
			r.observers = append(r.observers[:i], r.observers[i+1:]...)
			return
		}
	}
}

// Close releases every remaining Owned handle in reverse wrap order and
// stops tracking new ones.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	list := r.snapshot()

	r.mu.Lock()
	r.entries = make(map[uint64]entry)
	r.mu.Unlock()

	var errs []error
	for i := len(list) - 1; i >= 0; i-- {
		if err := r.release(list[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

func (r *Registry) notify(e Event) {
	r.obsMu.RLock()
	defer r.obsMu.RUnlock()
	for _, o := range r.observers {
		o.OnHandleEvent(e)
	}
}
