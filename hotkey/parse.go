package hotkey

import (
	"fmt"
	"strings"
)

var modifierAliases = map[string]Modifier{
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"ctl":     ModCtrl,
	"alt":     ModAlt,
	"option":  ModAlt,
	"opt":     ModAlt,
	"shift":   ModShift,
	"super":   ModSuper,
	"cmd":     ModSuper,
	"command": ModSuper,
	"meta":    ModSuper,
	"win":     ModSuper,
	"logo":    ModSuper,
}

var keyAliases = map[string]Key{
	"enter":    KeyReturn,
	"return":   KeyReturn,
	"esc":      KeyEscape,
	"escape":   KeyEscape,
	"del":      KeyDelete,
	"delete":   KeyDelete,
	"space":    KeySpace,
	"spacebar": KeySpace,
	"tab":      KeyTab,
	"left":     KeyLeft,
	"right":    KeyRight,
	"up":       KeyUp,
	"down":     KeyDown,
}

// ParseKey resolves a single key name ("l", "F5", "space", "esc").
func ParseKey(name string) (Key, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if k, ok := keyAliases[n]; ok {
		return k, true
	}
	for _, k := range Keys() {
		if strings.ToLower(k.Name()) == n {
			return k, true
		}
	}
	return KeyNone, false
}

// ParseModifier resolves a single modifier name ("ctrl", "cmd", "option").
func ParseModifier(name string) (Modifier, bool) {
	m, ok := modifierAliases[strings.ToLower(strings.TrimSpace(name))]
	return m, ok
}

// Parse reads an accelerator string such as "Ctrl+Alt+L" or "cmd+space"
// and renders it in the platform style.
func Parse(accel string) (Definition, error) {
	return ParseStyled(DefaultStyle, accel, "")
}

// ParseStyled is Parse with an explicit style and description.
func ParseStyled(style Style, accel, description string) (Definition, error) {
	if strings.TrimSpace(accel) == "" {
		return Definition{}, fmt.Errorf("empty hotkey")
	}
	var mods Modifier
	key := KeyNone
	for _, part := range strings.Split(accel, "+") {
		p := strings.TrimSpace(part)
		if p == "" {
			return Definition{}, fmt.Errorf("hotkey %q: empty component", accel)
		}
		if m, ok := ParseModifier(p); ok {
			mods |= m
			continue
		}
		k, ok := ParseKey(p)
		if !ok {
			return Definition{}, fmt.Errorf("hotkey %q: unknown key %q", accel, p)
		}
		if key != KeyNone {
			return Definition{}, fmt.Errorf("hotkey %q: more than one non-modifier key", accel)
		}
		key = k
	}
	if key == KeyNone {
		return Definition{}, fmt.Errorf("hotkey %q: no non-modifier key", accel)
	}
	return NewStyledDefinition(style, mods, key, description), nil
}

// MustParse is Parse for static tables and tests.
func MustParse(accel string) Definition {
	d, err := Parse(accel)
	if err != nil {
		panic(err)
	}
	return d
}
