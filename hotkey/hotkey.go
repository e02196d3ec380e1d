// Package hotkey holds the platform-agnostic data model shared by every
// part of the global hotkey subsystem: key combinations, bindings, the
// registration status machine values, conflict records, the error taxonomy
// and the Backend contract implemented per operating system.
package hotkey

import (
	"fmt"
	"runtime"
	"strings"
)

// Modifier is a set of modifier keys. Super is Cmd on macOS and Win on
// Windows.
type Modifier uint8

const (
	ModCtrl Modifier = 1 << iota
	ModAlt
	ModShift
	ModSuper

	ModNone Modifier = 0
)

// modOrder is the canonical display order (⌃ ⌥ ⇧ ⌘ on macOS).
var modOrder = [...]Modifier{ModCtrl, ModAlt, ModShift, ModSuper}

// Has reports whether every modifier in o is set in m.
func (m Modifier) Has(o Modifier) bool { return m&o == o }

// List returns the modifiers in canonical order.
func (m Modifier) List() []Modifier {
	var out []Modifier
	for _, mod := range modOrder {
		if m&mod != 0 {
			out = append(out, mod)
		}
	}
	return out
}

func (m Modifier) String() string {
	if m == ModNone {
		return "none"
	}
	parts := make([]string, 0, 4)
	for _, mod := range m.List() {
		parts = append(parts, modText(StyleLinux, mod))
	}
	return strings.Join(parts, "+")
}

// Key is a platform-agnostic non-modifier key code.
type Key uint8

const (
	KeyNone Key = iota
	KeyA
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
	KeyG
	KeyH
	KeyI
	KeyJ
	KeyK
	KeyL
	KeyM
	KeyN
	KeyO
	KeyP
	KeyQ
	KeyR
	KeyS
	KeyT
	KeyU
	KeyV
	KeyW
	KeyX
	KeyY
	KeyZ
	Key0
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	KeySpace
	KeyReturn
	KeyEscape
	KeyTab
	KeyDelete
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12

	keyCount
)

// Keys returns every valid key code in declaration order.
func Keys() []Key {
	out := make([]Key, 0, int(keyCount)-1)
	for k := KeyA; k < keyCount; k++ {
		out = append(out, k)
	}
	return out
}

// Valid reports whether k names a real key.
func (k Key) Valid() bool { return k > KeyNone && k < keyCount }

// Name is the stable, style-independent key name used in accelerator
// strings and profiles ("L", "7", "Space", "F5").
func (k Key) Name() string {
	switch {
	case k >= KeyA && k <= KeyZ:
		return string(rune('A' + int(k-KeyA)))
	case k >= Key0 && k <= Key9:
		return string(rune('0' + int(k-Key0)))
	case k >= KeyF1 && k <= KeyF12:
		return fmt.Sprintf("F%d", int(k-KeyF1)+1)
	}
	switch k {
	case KeySpace:
		return "Space"
	case KeyReturn:
		return "Return"
	case KeyEscape:
		return "Escape"
	case KeyTab:
		return "Tab"
	case KeyDelete:
		return "Delete"
	case KeyLeft:
		return "Left"
	case KeyRight:
		return "Right"
	case KeyUp:
		return "Up"
	case KeyDown:
		return "Down"
	}
	return "None"
}

func (k Key) String() string { return k.Name() }

// Style selects how a combination is rendered for humans.
type Style int

const (
	StyleMac Style = iota + 1
	StyleWindows
	StyleLinux
)

// StyleFor maps a GOOS value to its display style.
func StyleFor(goos string) Style {
	switch goos {
	case "darwin":
		return StyleMac
	case "windows":
		return StyleWindows
	default:
		return StyleLinux
	}
}

// DefaultStyle is the display style of the running platform.
var DefaultStyle = StyleFor(runtime.GOOS)

func modText(style Style, m Modifier) string {
	switch style {
	case StyleMac:
		switch m {
		case ModCtrl:
			return "⌃"
		case ModAlt:
			return "⌥"
		case ModShift:
			return "⇧"
		case ModSuper:
			return "⌘"
		}
	case StyleWindows:
		switch m {
		case ModCtrl:
			return "Ctrl"
		case ModAlt:
			return "Alt"
		case ModShift:
			return "Shift"
		case ModSuper:
			return "Win"
		}
	default:
		switch m {
		case ModCtrl:
			return "Ctrl"
		case ModAlt:
			return "Alt"
		case ModShift:
			return "Shift"
		case ModSuper:
			return "Super"
		}
	}
	return "?"
}

func keyText(style Style, k Key) string {
	if style == StyleMac {
		switch k {
		case KeyReturn:
			return "↩"
		case KeyEscape:
			return "⎋"
		case KeyTab:
			return "⇥"
		case KeyDelete:
			return "⌦"
		case KeyLeft:
			return "←"
		case KeyRight:
			return "→"
		case KeyUp:
			return "↑"
		case KeyDown:
			return "↓"
		}
		return k.Name()
	}
	switch k {
	case KeyReturn:
		return "Enter"
	case KeyEscape:
		return "Esc"
	}
	return k.Name()
}

// Render formats a modifier set and key in the given style: "⌃ ⌥ L" on
// macOS, "Ctrl+Alt+L" elsewhere.
func Render(style Style, mods Modifier, key Key) string {
	parts := make([]string, 0, 5)
	for _, m := range mods.List() {
		parts = append(parts, modText(style, m))
	}
	if key != KeyNone {
		parts = append(parts, keyText(style, key))
	}
	if style == StyleMac {
		return strings.Join(parts, " ")
	}
	return strings.Join(parts, "+")
}

// Combo is the comparable identity of a definition: modifier set plus key.
type Combo struct {
	Mods Modifier
	Key  Key
}

func (c Combo) String() string { return Render(StyleLinux, c.Mods, c.Key) }

// Definition is an immutable key combination with a description and a
// precomputed native display string. Compare definitions with Equal or by
// Combo, never with ==.
type Definition struct {
	mods        Modifier
	key         Key
	description string
	display     string
}

// NewDefinition builds a definition rendered in the platform's style.
func NewDefinition(mods Modifier, key Key, description string) Definition {
	return NewStyledDefinition(DefaultStyle, mods, key, description)
}

// NewStyledDefinition builds a definition rendered in an explicit style.
func NewStyledDefinition(style Style, mods Modifier, key Key, description string) Definition {
	mods &= ModCtrl | ModAlt | ModShift | ModSuper
	return Definition{
		mods:        mods,
		key:         key,
		description: description,
		display:     Render(style, mods, key),
	}
}

func (d Definition) Modifiers() Modifier     { return d.mods }
func (d Definition) Key() Key                { return d.key }
func (d Definition) Description() string     { return d.description }
func (d Definition) Display() string         { return d.display }
func (d Definition) Combo() Combo            { return Combo{Mods: d.mods, Key: d.key} }
func (d Definition) IsZero() bool            { return d.key == KeyNone }
func (d Definition) Equal(o Definition) bool { return d.Combo() == o.Combo() }

// Accelerator renders the definition as a parseable "Ctrl+Alt+L" string.
func (d Definition) Accelerator() string {
	parts := make([]string, 0, 5)
	for _, m := range d.mods.List() {
		parts = append(parts, modText(StyleLinux, m))
	}
	parts = append(parts, d.key.Name())
	return strings.Join(parts, "+")
}

// WithDescription returns a copy carrying a new description.
func (d Definition) WithDescription(desc string) Definition {
	d.description = desc
	return d
}

func (d Definition) String() string {
	if d.description == "" {
		return d.Accelerator()
	}
	return fmt.Sprintf("%s (%s)", d.Accelerator(), d.description)
}
