package shortcut

import (
	"fmt"
	"strings"
	"sync"
)

// Handlers are the editor actions bound to shortcuts. Nil handlers are skipped.
type Handlers struct {
	OnSave             func()
	OnRun              func()
	OnFormat           func()
	OnToggleTheme      func()
	OnIncreaseFontSize func()
	OnDecreaseFontSize func()
}

// Register attaches one listener for handlers and returns its teardown.
// Calling the teardown more than once is a no-op.
func Register(bus *Bus, h Handlers) func() {
	id := bus.Subscribe(func(ev *KeyEvent) { h.handle(ev) })
	var once sync.Once
	return func() {
		once.Do(func() { bus.Unsubscribe(id) })
	}
}

// Every matching chord fires; the checks are independent of each other.
func (h Handlers) handle(ev *KeyEvent) {
	ctrl := ev.Ctrl || ev.Meta
	if !ctrl {
		return
	}
	key := strings.ToLower(ev.Key)

	fire := func(match bool, fn func()) {
		if match && fn != nil {
			ev.PreventDefault()
			fn()
		}
	}
	fire(key == "s", h.OnSave)
	fire(key == "r", h.OnRun)
	fire(ev.Shift && key == "f", h.OnFormat)
	fire(ev.Shift && key == "l", h.OnToggleTheme)
	fire(key == "=" || key == "+", h.OnIncreaseFontSize)
	fire(key == "-", h.OnDecreaseFontSize)
}

// ParseChord builds an event from text such as "ctrl+shift+f" or "ctrl++".
func ParseChord(chord string) (*KeyEvent, error) {
	chord = strings.TrimSpace(strings.ToLower(chord))
	if chord == "" {
		return nil, fmt.Errorf("empty key chord")
	}

	var key string
	if strings.HasSuffix(chord, "++") || chord == "+" {
		key = "+"
		chord = strings.TrimSuffix(strings.TrimSuffix(chord, "+"), "+")
	} else {
		i := strings.LastIndex(chord, "+")
		key = chord[i+1:]
		chord = chord[:max(i, 0)]
	}
	if key == "" {
		return nil, fmt.Errorf("missing key in chord")
	}

	ev := &KeyEvent{Key: key}
	if chord == "" {
		return ev, nil
	}
	for _, mod := range strings.Split(chord, "+") {
		switch mod {
		case "ctrl", "control":
			ev.Ctrl = true
		case "cmd", "meta", "super":
			ev.Meta = true
		case "shift":
			ev.Shift = true
		case "alt", "option":
			ev.Alt = true
		default:
			return nil, fmt.Errorf("unknown modifier %q", mod)
		}
	}
	return ev, nil
}

// Terminal control bytes that map to shortcuts.
const (
	RuneCtrlR = 0x12
	RuneCtrlS = 0x13
)

// FromTerminalRune maps a control byte read in raw mode to a key event.
func FromTerminalRune(r rune) (*KeyEvent, bool) {
	switch r {
	case RuneCtrlS:
		return &KeyEvent{Key: "s", Ctrl: true}, true
	case RuneCtrlR:
		return &KeyEvent{Key: "r", Ctrl: true}, true
	}
	return nil, false
}
