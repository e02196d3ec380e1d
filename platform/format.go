package platform

import (
	"errors"
	"strings"

	"chord/hotkey"
)

const xwaylandHint = "start the application with GDK_BACKEND=x11 to use XWayland, or log in to an X11 session"

const reservedHint = "The operating system or desktop keeps this combination for itself; choose a different one."

// windowsOwners maps combinations Windows users commonly find taken to the
// program that usually holds them.
var windowsOwners = []struct {
	combo hotkey.Combo
	owner string
}{
	{hotkey.MustParse("Ctrl+Shift+Space").Combo(), "Microsoft Office applications and IME tools register Ctrl+Shift+Space; change it in the Office or IME settings, or pick another combination"},
	{hotkey.MustParse("Ctrl+Alt+Space").Combo(), "Microsoft Office and IME helpers commonly use Ctrl+Alt+Space"},
	{hotkey.MustParse("Shift+Super+Space").Combo(), "Windows uses Win+Shift+Space to switch input methods"},
	{hotkey.MustParse("Super+Space").Combo(), "Windows uses Win+Space to switch keyboard layouts"},
	{hotkey.MustParse("Alt+Space").Combo(), "Windows uses Alt+Space to open the window menu"},
}

// errorCombo recovers the combination named at the start of a backend
// error's reason.
func errorCombo(err error) (hotkey.Combo, bool) {
	var he *hotkey.Error
	if !errors.As(err, &he) {
		return hotkey.Combo{}, false
	}
	accel, _, _ := strings.Cut(he.Reason, " ")
	def, perr := hotkey.Parse(accel)
	if perr != nil {
		return hotkey.Combo{}, false
	}
	return def.Combo(), true
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func isKind(err error, kind hotkey.Kind, substrings ...string) bool {
	var he *hotkey.Error
	if errors.As(err, &he) && he.Kind == kind {
		return true
	}
	low := strings.ToLower(errText(err))
	for _, s := range substrings {
		if strings.Contains(low, s) {
			return true
		}
	}
	return false
}

// FormatWindowsError turns a Windows backend error into remediation text.
func FormatWindowsError(err error) string {
	if err == nil {
		return ""
	}
	msg := errText(err)
	switch {
	case errors.Is(err, hotkey.ErrSystemReserved):
		return msg + ". " + reservedHint
	case isKind(err, hotkey.KindAlreadyRegistered, "already registered", "alreadyregistered"):
		if c, ok := errorCombo(err); ok {
			for _, o := range windowsOwners {
				if o.combo == c {
					return msg + ". " + o.owner + "."
				}
			}
		}
		return msg + ". Another application already uses this shortcut; close it or choose a different combination."
	case isKind(err, hotkey.KindPermissionDenied, "permission", "access is denied"):
		return msg + ". Global hotkeys need an interactive desktop; they do not work from a service, session 0, or an SSH session."
	case isKind(err, hotkey.KindTimeout, "timeout", "timed out"):
		return msg + ". The hotkey thread did not respond; try again."
	}
	return msg
}

// FormatDarwinError turns a macOS backend error into remediation text.
func FormatDarwinError(err error) string {
	if err == nil {
		return ""
	}
	msg := errText(err)
	switch {
	case errors.Is(err, hotkey.ErrSystemReserved):
		return msg + ". " + reservedHint
	case isKind(err, hotkey.KindAlreadyRegistered, "already registered", "alreadyregistered"):
		return msg + ". Another application or a system shortcut uses this combination; check System Settings > Keyboard > Keyboard Shortcuts."
	case isKind(err, hotkey.KindPermissionDenied, "permission"):
		return msg + ". Global hotkeys need a logged-in GUI session; they do not work over SSH or from a launch daemon."
	case isKind(err, hotkey.KindTimeout, "timeout", "timed out"):
		return msg + ". The main event loop did not respond; try again."
	}
	return msg
}

// FormatLinuxError turns a Linux backend error into remediation text that
// fits the detected session.
func FormatLinuxError(env Environment, err error) string {
	if err == nil {
		return ""
	}
	msg := errText(err)
	low := strings.ToLower(msg)
	switch {
	case errors.Is(err, hotkey.ErrSystemReserved):
		return msg + ". " + reservedHint
	case strings.Contains(low, "compositor") || (env.Wayland && env.Compositor == CompositorSway):
		if strings.Contains(msg, "GDK_BACKEND=x11") {
			return msg
		}
		return msg + ". Global shortcuts are not available on this compositor; " + xwaylandHint + "."
	case isKind(err, hotkey.KindAlreadyRegistered, "already registered", "alreadyregistered", "badaccess"):
		switch env.Transport() {
		case "kde":
			return msg + ". KDE already assigns this shortcut; free it in System Settings > Shortcuts or pick another."
		case "portal":
			return msg + ". The desktop refused the shortcut; it may be assigned in the desktop's keyboard settings."
		}
		return msg + ". Another X11 client has grabbed this combination; close it or choose a different one."
	case isKind(err, hotkey.KindTimeout, "timeout", "timed out"):
		return msg + ". The desktop portal did not answer; confirm the shortcut dialog is not waiting behind another window."
	case isKind(err, hotkey.KindPermissionDenied, "permission", "denied"):
		if !env.Wayland && !env.X11 {
			return msg + ". Run the application inside a graphical session."
		}
		return msg + ". The request was rejected; allow the application in the desktop's shortcut settings."
	case strings.Contains(low, "wayland") || isKind(err, hotkey.KindAPIUnavailable):
		if env.Wayland {
			return msg + ". This Wayland session offers no usable global shortcut service; " + xwaylandHint + "."
		}
		return msg + ". The global shortcut service is not running."
	}
	return msg
}
