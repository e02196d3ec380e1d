package conflict

import "chord/hotkey"

// Reserved is an OS- or desktop-owned combination that the subsystem
// refuses to register.
type Reserved struct {
	Combo       hotkey.Combo
	Description string
}

func r(mods hotkey.Modifier, key hotkey.Key, desc string) Reserved {
	return Reserved{Combo: hotkey.Combo{Mods: mods, Key: key}, Description: desc}
}

const (
	ctrl  = hotkey.ModCtrl
	alt   = hotkey.ModAlt
	shift = hotkey.ModShift
	super = hotkey.ModSuper
)

// Only combinations the OS intercepts before any application can see them
// belong here. Shortcuts that are merely popular (Spotlight's ⌘Space, the
// Office Ctrl+Shift+Space helpers) are left to the backend, which reports
// them as AlreadyRegistered when they are actually taken.
var darwinReserved = []Reserved{
	r(super|alt, hotkey.KeyEscape, "Force Quit Applications"),
	r(super, hotkey.KeyTab, "application switcher"),
	r(super|shift, hotkey.KeyTab, "application switcher (reverse)"),
	r(super|shift, hotkey.Key3, "screenshot of the screen"),
	r(super|shift, hotkey.Key4, "screenshot of a selection"),
	r(super|shift, hotkey.Key5, "screenshot toolbar"),
	r(super|ctrl, hotkey.KeyQ, "Lock Screen"),
	r(ctrl, hotkey.KeySpace, "select previous input source"),
	r(ctrl|alt, hotkey.KeySpace, "select next input source"),
	r(ctrl, hotkey.KeyUp, "Mission Control"),
	r(ctrl, hotkey.KeyDown, "application windows"),
	r(ctrl, hotkey.KeyLeft, "move left a space"),
	r(ctrl, hotkey.KeyRight, "move right a space"),
}

var windowsReserved = []Reserved{
	r(ctrl|alt, hotkey.KeyDelete, "Secure Attention Sequence"),
	r(ctrl|shift, hotkey.KeyEscape, "Task Manager"),
	r(alt, hotkey.KeyTab, "window switcher"),
	r(alt, hotkey.KeyF4, "close window"),
	r(super, hotkey.KeyL, "lock workstation"),
	r(super, hotkey.KeyD, "show desktop"),
	r(super, hotkey.KeyE, "File Explorer"),
	r(super, hotkey.KeyR, "Run dialog"),
	r(super, hotkey.KeyI, "Settings"),
	r(super, hotkey.KeyX, "Quick Link menu"),
	r(super, hotkey.KeyV, "clipboard history"),
	r(super, hotkey.KeyTab, "Task View"),
	r(super, hotkey.KeySpace, "switch keyboard layout"),
}

var linuxReserved = []Reserved{
	r(ctrl|alt, hotkey.KeyDelete, "session logout / reboot"),
	r(alt, hotkey.KeyTab, "window switcher"),
	r(alt, hotkey.KeyF4, "close window"),
}

var desktopReserved = map[string][]Reserved{
	"kde": {
		r(alt, hotkey.KeySpace, "KRunner"),
		r(alt, hotkey.KeyF2, "KRunner"),
		r(super, hotkey.KeyL, "lock session"),
		r(ctrl|alt, hotkey.KeyL, "lock session"),
		r(ctrl, hotkey.KeyF1, "switch to desktop 1"),
		r(ctrl, hotkey.KeyF2, "switch to desktop 2"),
		r(ctrl, hotkey.KeyF3, "switch to desktop 3"),
		r(ctrl, hotkey.KeyF4, "switch to desktop 4"),
		r(super, hotkey.KeyE, "Dolphin"),
	},
	"gnome": {
		r(super, hotkey.KeyL, "lock screen"),
		r(super, hotkey.KeyA, "show applications"),
		r(super, hotkey.KeyV, "notification list"),
		r(super, hotkey.KeySpace, "switch input source"),
		r(super|shift, hotkey.KeySpace, "switch input source (reverse)"),
		r(alt, hotkey.KeyF2, "run a command"),
		r(ctrl|alt, hotkey.KeyT, "launch terminal"),
	},
	"hyprland": {
		r(super, hotkey.KeyQ, "terminal (default config)"),
		r(super, hotkey.KeyC, "kill active window (default config)"),
		r(super, hotkey.KeyM, "exit Hyprland (default config)"),
		r(super, hotkey.KeyE, "file manager (default config)"),
		r(super, hotkey.KeyV, "toggle floating (default config)"),
		r(super, hotkey.KeyR, "launcher (default config)"),
	},
	"sway": {
		r(super, hotkey.KeyReturn, "terminal (default config)"),
		r(super, hotkey.KeyD, "launcher (default config)"),
		r(super|shift, hotkey.KeyQ, "kill window (default config)"),
		r(super|shift, hotkey.KeyC, "reload config (default config)"),
		r(super|shift, hotkey.KeyE, "exit sway (default config)"),
	},
}

func init() {
	for _, desk := range []string{"hyprland", "sway"} {
		for i := 0; i < 10; i++ {
			k := hotkey.Key0 + hotkey.Key(i)
			desktopReserved[desk] = append(desktopReserved[desk],
				r(super, k, "switch workspace (default config)"),
				r(super|shift, k, "move to workspace (default config)"))
		}
	}
}

// Table returns the reserved combinations for a GOOS value and, on Linux,
// a desktop name ("kde", "gnome", "hyprland", "sway"; anything else adds
// nothing).
func Table(goos, desktop string) []Reserved {
	switch goos {
	case "darwin":
		return append([]Reserved(nil), darwinReserved...)
	case "windows":
		return append([]Reserved(nil), windowsReserved...)
	}
	out := append([]Reserved(nil), linuxReserved...)
	return append(out, desktopReserved[desktop]...)
}
