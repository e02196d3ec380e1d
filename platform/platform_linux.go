//go:build linux

package platform

import (
	"os"

	"chord/hotkey"
	"chord/log"
)

// Detect reads the current session environment.
func Detect() Environment { return DetectEnvironment(os.Getenv) }

// New selects a backend for the running session.
func New() hotkey.Backend { return ForEnvironment(Detect()) }

// ForEnvironment picks X11, KDE kglobalaccel, or the desktop portal for
// env. Sessions with no transport get a backend whose every call fails
// with the reason.
func ForEnvironment(env Environment) hotkey.Backend {
	format := func(err error) string { return FormatLinuxError(env, err) }

	switch env.Transport() {
	case "x11":
		return newX11(env)
	case "kde":
		b, err := NewKDE(env)
		if err != nil {
			log.Warnf("kglobalaccel unavailable: %v", err)
			return newUnavailable("kde", hotkey.NewError(hotkey.KindAPIUnavailable, "cannot reach the KDE global shortcut service", err), format)
		}
		return b
	case "portal":
		b, err := NewPortal(env)
		if err != nil {
			log.Warnf("desktop portal unavailable: %v", err)
			return newUnavailable("portal", hotkey.NewError(hotkey.KindAPIUnavailable, "cannot reach the desktop portal", err), format)
		}
		return b
	}

	reason := CheckLinuxPermissions(env)
	if reason == nil {
		reason = hotkey.NewError(hotkey.KindAPIUnavailable, "no global shortcut transport for this session", nil)
	}
	return newUnavailable("none", reason, format)
}

// MainLoopStarted is a no-op; X11 key presses are read by the backend's
// own event goroutine.
func MainLoopStarted() {}
