package handle

import "fmt"

// Ownership records who is responsible for freeing a native object.
type Ownership uint8

const (
	Null Ownership = iota
	Owned
	Borrowed
)

func (o Ownership) String() string {
	switch o {
	case Null:
		return "null"
	case Owned:
		return "owned"
	case Borrowed:
		return "borrowed"
	}
	return "unknown"
}

// Handle is a native address tagged with its ownership. The zero Handle is
// Null.
type Handle struct {
	Addr uintptr
	Own  Ownership
	id   uint64
}

// Releaser frees a native object. It is called at most once per Owned
// handle.
type Releaser func(addr uintptr) error

// Borrow wraps an address the caller does not own without registering it.
func Borrow(addr uintptr) Handle {
	if addr == 0 {
		return Handle{}
	}
	return Handle{Addr: addr, Own: Borrowed}
}

// IsNull reports whether h refers to no object.
func IsNull(h Handle) bool {
	return h.Own == Null || h.Addr == 0
}

func (h Handle) IsNull() bool {
	return IsNull(h)
}

func (h Handle) String() string {
	if h.IsNull() {
		return "handle(null)"
	}
	return fmt.Sprintf("handle(%#x %s)", h.Addr, h.Own)
}

// EventType identifies a registry lifecycle notification.
type EventType uint8

const (
	EventWrapped EventType = iota
	EventReleased
)

// Event is a registry lifecycle notification.
type Event struct {
	Handle Handle
	Err    error
	Type   EventType
}

// Observer receives registry lifecycle events. Observers run synchronously
// on the goroutine that wrapped or released the handle.
type Observer interface {
	OnHandleEvent(Event)
}

// ObserverFunc adapts a function to Observer. Function values are not
// comparable, so an ObserverFunc cannot be unsubscribed.
type ObserverFunc func(Event)

func (f ObserverFunc) OnHandleEvent(e Event) { f(e) }
