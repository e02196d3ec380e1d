// Package platform provides the per-OS hotkey.Backend implementations and
// the environment checks and error formatting that go with them.
package platform

import (
	"os"
	"strings"

	"chord/hotkey"
)

// Compositor is the Wayland display server in use.
type Compositor int

const (
	CompositorUnknown Compositor = iota
	CompositorKDE
	CompositorGNOME
	CompositorHyprland
	CompositorSway
)

func (c Compositor) String() string {
	switch c {
	case CompositorKDE:
		return "KDE Plasma"
	case CompositorGNOME:
		return "GNOME"
	case CompositorHyprland:
		return "Hyprland"
	case CompositorSway:
		return "Sway"
	}
	return "unknown"
}

// Environment is the detected Linux desktop session.
type Environment struct {
	Wayland    bool
	X11        bool
	XWayland   bool // GDK_BACKEND=x11 with a reachable DISPLAY
	Compositor Compositor
	Desktop    string // raw XDG_CURRENT_DESKTOP
	Display    string // raw DISPLAY
}

// DetectEnvironment inspects the session variables through getenv, which
// is os.Getenv outside tests.
func DetectEnvironment(getenv func(string) string) Environment {
	if getenv == nil {
		getenv = os.Getenv
	}
	env := Environment{
		Wayland: getenv("WAYLAND_DISPLAY") != "" || strings.EqualFold(getenv("XDG_SESSION_TYPE"), "wayland"),
		X11:     getenv("DISPLAY") != "",
		Desktop: getenv("XDG_CURRENT_DESKTOP"),
		Display: getenv("DISPLAY"),
	}
	env.XWayland = env.Wayland && env.X11 && strings.EqualFold(getenv("GDK_BACKEND"), "x11")

	desktop := strings.ToLower(env.Desktop)
	switch {
	case getenv("HYPRLAND_INSTANCE_SIGNATURE") != "" || strings.Contains(desktop, "hyprland"):
		env.Compositor = CompositorHyprland
	case getenv("SWAYSOCK") != "" || strings.Contains(desktop, "sway"):
		env.Compositor = CompositorSway
	case strings.Contains(desktop, "kde") || getenv("KDE_FULL_SESSION") != "":
		env.Compositor = CompositorKDE
	case strings.Contains(desktop, "gnome"):
		env.Compositor = CompositorGNOME
	}
	return env
}

// Transport names the registration mechanism the environment calls for:
// "x11", "kde", "portal", or "" when there is none.
func (e Environment) Transport() string {
	switch {
	case !e.Wayland && e.X11:
		return "x11"
	case !e.Wayland:
		return ""
	case e.XWayland:
		return "x11"
	}
	switch e.Compositor {
	case CompositorKDE:
		return "kde"
	case CompositorSway:
		return ""
	}
	return "portal"
}

// CheckLinuxPermissions reports whether global hotkeys can work in env.
func CheckLinuxPermissions(env Environment) error {
	if !env.Wayland && !env.X11 {
		return hotkey.NewError(hotkey.KindPermissionDenied,
			"no display server found (DISPLAY and WAYLAND_DISPLAY are unset)", nil)
	}
	if env.Wayland && !env.XWayland && env.Compositor == CompositorSway {
		return hotkey.NewError(hotkey.KindAPIUnavailable,
			"the Sway compositor implements neither a global shortcut service nor the portal GlobalShortcuts interface; "+
				xwaylandHint, nil)
	}
	return nil
}

// DesktopKey names the reserved-shortcut table for the session's desktop.
func (e Environment) DesktopKey() string {
	switch e.Compositor {
	case CompositorKDE:
		return "kde"
	case CompositorGNOME:
		return "gnome"
	case CompositorHyprland:
		return "hyprland"
	case CompositorSway:
		return "sway"
	}
	return ""
}
