package input

import (
	"strings"

	"chord/hotkey"
)

var terminalKeys = map[string]hotkey.Key{
	"enter":     hotkey.KeyReturn,
	"esc":       hotkey.KeyEscape,
	"tab":       hotkey.KeyTab,
	"delete":    hotkey.KeyDelete,
	"backspace": hotkey.KeyDelete,
	"left":      hotkey.KeyLeft,
	"right":     hotkey.KeyRight,
	"up":        hotkey.KeyUp,
	"down":      hotkey.KeyDown,
	" ":         hotkey.KeySpace,
	"space":     hotkey.KeySpace,
}

// ParseTerminalKey maps a terminal key name as bubbletea reports it
// ("ctrl+l", "alt+enter", "shift+tab", "L") to a chord. Terminals never
// report Super. An upper-case letter implies Shift.
func ParseTerminalKey(s string) (hotkey.Modifier, hotkey.Key, bool) {
	if s == "" {
		return hotkey.ModNone, hotkey.KeyNone, false
	}
	if s == "+" {
		return hotkey.ModNone, hotkey.KeyNone, false
	}
	if s == " " {
		return hotkey.ModNone, hotkey.KeySpace, true
	}

	var mods hotkey.Modifier
	parts := strings.Split(s, "+")
	for _, p := range parts[:len(parts)-1] {
		switch p {
		case "ctrl":
			mods |= hotkey.ModCtrl
		case "alt":
			mods |= hotkey.ModAlt
		case "shift":
			mods |= hotkey.ModShift
		default:
			return hotkey.ModNone, hotkey.KeyNone, false
		}
	}

	last := parts[len(parts)-1]
	if k, ok := terminalKeys[last]; ok {
		return mods, k, true
	}
	if len(last) == 1 {
		c := last[0]
		if c >= 'A' && c <= 'Z' {
			mods |= hotkey.ModShift
		}
	}
	k, ok := hotkey.ParseKey(last)
	if !ok {
		return hotkey.ModNone, hotkey.KeyNone, false
	}
	return mods, k, true
}
