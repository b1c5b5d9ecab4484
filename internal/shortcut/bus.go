package shortcut

import (
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// KeyEvent is a single key press with its modifier state.
type KeyEvent struct {
	Key   string
	Ctrl  bool
	Meta  bool
	Shift bool
	Alt   bool

	prevented bool
}

// PreventDefault marks the event as consumed.
func (e *KeyEvent) PreventDefault() {
	e.prevented = true
}

// DefaultPrevented reports whether any listener consumed the event.
func (e *KeyEvent) DefaultPrevented() bool {
	return e.prevented
}

// Listener reacts to key events.
type Listener func(*KeyEvent)

// Bus fans key events out to every subscribed listener.
type Bus struct {
	listeners *xsync.MapOf[uint64, Listener]
	nextID    atomic.Uint64
}

func NewBus() *Bus {
	return &Bus{listeners: xsync.NewMapOf[uint64, Listener]()}
}

// Subscribe adds l and returns its id for Unsubscribe.
func (b *Bus) Subscribe(l Listener) uint64 {
	id := b.nextID.Add(1)
	b.listeners.Store(id, l)
	return id
}

func (b *Bus) Unsubscribe(id uint64) {
	b.listeners.Delete(id)
}

// Len returns the number of active listeners.
func (b *Bus) Len() int {
	return b.listeners.Size()
}

// Dispatch delivers ev to all listeners on the calling goroutine.
func (b *Bus) Dispatch(ev *KeyEvent) {
	b.listeners.Range(func(_ uint64, l Listener) bool {
		l(ev)
		return true
	})
}
