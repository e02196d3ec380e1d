package platform

import (
	"strings"

	"chord/hotkey"
)

// Qt key codes and modifier bits as used by kglobalaccel.
const (
	qtShift = 0x02000000
	qtCtrl  = 0x04000000
	qtAlt   = 0x08000000
	qtMeta  = 0x10000000

	qtKeyEscape = 0x01000000
	qtKeyTab    = 0x01000001
	qtKeyReturn = 0x01000004
	qtKeyDelete = 0x01000007
	qtKeyLeft   = 0x01000012
	qtKeyUp     = 0x01000013
	qtKeyRight  = 0x01000014
	qtKeyDown   = 0x01000015
	qtKeyF1     = 0x01000030
)

// qtKeyCode encodes def as the single int kglobalaccel stores per key.
func qtKeyCode(def hotkey.Definition) int32 {
	var code int32
	k := def.Key()
	switch {
	case k >= hotkey.KeyA && k <= hotkey.KeyZ:
		code = 0x41 + int32(k-hotkey.KeyA)
	case k >= hotkey.Key0 && k <= hotkey.Key9:
		code = 0x30 + int32(k-hotkey.Key0)
	case k >= hotkey.KeyF1 && k <= hotkey.KeyF12:
		code = qtKeyF1 + int32(k-hotkey.KeyF1)
	default:
		switch k {
		case hotkey.KeySpace:
			code = 0x20
		case hotkey.KeyEscape:
			code = qtKeyEscape
		case hotkey.KeyTab:
			code = qtKeyTab
		case hotkey.KeyReturn:
			code = qtKeyReturn
		case hotkey.KeyDelete:
			code = qtKeyDelete
		case hotkey.KeyLeft:
			code = qtKeyLeft
		case hotkey.KeyUp:
			code = qtKeyUp
		case hotkey.KeyRight:
			code = qtKeyRight
		case hotkey.KeyDown:
			code = qtKeyDown
		}
	}

	m := def.Modifiers()
	if m.Has(hotkey.ModShift) {
		code |= qtShift
	}
	if m.Has(hotkey.ModCtrl) {
		code |= qtCtrl
	}
	if m.Has(hotkey.ModAlt) {
		code |= qtAlt
	}
	if m.Has(hotkey.ModSuper) {
		code |= qtMeta
	}
	return code
}

// portalTrigger renders def in the XDG shortcuts format, "CTRL+ALT+l".
func portalTrigger(def hotkey.Definition) string {
	parts := make([]string, 0, 5)
	for _, m := range def.Modifiers().List() {
		switch m {
		case hotkey.ModCtrl:
			parts = append(parts, "CTRL")
		case hotkey.ModAlt:
			parts = append(parts, "ALT")
		case hotkey.ModShift:
			parts = append(parts, "SHIFT")
		case hotkey.ModSuper:
			parts = append(parts, "LOGO")
		}
	}
	return strings.Join(append(parts, keysym(def.Key())), "+")
}

func keysym(k hotkey.Key) string {
	switch {
	case k >= hotkey.KeyA && k <= hotkey.KeyZ:
		return strings.ToLower(k.Name())
	}
	switch k {
	case hotkey.KeySpace:
		return "space"
	case hotkey.KeyReturn:
		return "Return"
	case hotkey.KeyEscape:
		return "Escape"
	}
	return k.Name()
}
