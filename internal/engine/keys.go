package engine

import (
	"strings"

	"github.com/go-rod/rod/lib/input"
)

// Modifiers flags the modifier keys held during a keypress.
type Modifiers struct {
	Ctrl  bool `json:"ctrl"`
	Alt   bool `json:"alt"`
	Shift bool `json:"shift"`
	Meta  bool `json:"meta"`
}

// Chord is a combined modifier+key input event. Modifier order is
// fixed (Control, Alt, Shift, Meta) so dispatch is deterministic.
type Chord struct {
	Key       string
	Modifiers Modifiers
}

// Keys returns the chord's key names in dispatch order, modifiers
// first, ending with the key itself.
func (c Chord) Keys() []string {
	keys := make([]string, 0, 5)
	if c.Modifiers.Ctrl {
		keys = append(keys, "Control")
	}
	if c.Modifiers.Alt {
		keys = append(keys, "Alt")
	}
	if c.Modifiers.Shift {
		keys = append(keys, "Shift")
	}
	if c.Modifiers.Meta {
		keys = append(keys, "Meta")
	}
	return append(keys, c.Key)
}

// String renders the chord the way browser automation tools spell it,
// e.g. "Control+Shift+A".
func (c Chord) String() string {
	return strings.Join(c.Keys(), "+")
}

// namedKeys maps common key names from clients to rod key codes.
var namedKeys = map[string]input.Key{
	"Enter":      input.Enter,
	"Tab":        input.Tab,
	"Escape":     input.Escape,
	"Backspace":  input.Backspace,
	"Delete":     input.Delete,
	"ArrowUp":    input.ArrowUp,
	"ArrowDown":  input.ArrowDown,
	"ArrowLeft":  input.ArrowLeft,
	"ArrowRight": input.ArrowRight,
	"Home":       input.Home,
	"End":        input.End,
	"PageUp":     input.PageUp,
	"PageDown":   input.PageDown,
	"Space":      input.Space,
	"Control":    input.ControlLeft,
	"Alt":        input.AltLeft,
	"Shift":      input.ShiftLeft,
	"Meta":       input.MetaLeft,
}

// lookupKey resolves a client key name to a rod key code. Single
// characters map directly; unknown multi-character names fail.
func lookupKey(name string) (input.Key, bool) {
	if k, ok := namedKeys[name]; ok {
		return k, true
	}
	runes := []rune(name)
	if len(runes) == 1 {
		return input.Key(runes[0]), true
	}
	return 0, false
}
