//go:build windows

package platform

import (
	"os"
	"strings"
	"unsafe"

	xhotkey "golang.design/x/hotkey"
	"golang.org/x/sys/windows"

	"chord/hotkey"
)

var xMods = map[hotkey.Modifier]xhotkey.Modifier{
	hotkey.ModCtrl:  xhotkey.ModCtrl,
	hotkey.ModAlt:   xhotkey.ModAlt,
	hotkey.ModShift: xhotkey.ModShift,
	hotkey.ModSuper: xhotkey.ModWin,
}

var (
	user32                       = windows.NewLazySystemDLL("user32.dll")
	procGetProcessWindowStation  = user32.NewProc("GetProcessWindowStation")
	procGetUserObjectInformation = user32.NewProc("GetUserObjectInformationW")
)

const uoiName = 2

// New returns the RegisterHotKey backend.
func New() hotkey.Backend {
	return newXBackend("win32", checkWindowsPermissions, FormatWindowsError, inUse)
}

// Detect reports an empty environment; it is only meaningful on Linux.
func Detect() Environment { return Environment{} }

func checkWindowsPermissions() error {
	var session uint32
	if err := windows.ProcessIdToSessionId(windows.GetCurrentProcessId(), &session); err == nil && session == 0 {
		return hotkey.NewError(hotkey.KindPermissionDenied, "running in session 0 (Windows service) without an interactive desktop", nil)
	}
	if name, err := windowStation(); err == nil && !strings.EqualFold(name, "WinSta0") {
		return hotkey.Errorf(hotkey.KindPermissionDenied, "window station %q is not interactive", name)
	}
	if os.Getenv("SSH_CONNECTION") != "" && os.Getenv("SESSIONNAME") == "" {
		return hotkey.NewError(hotkey.KindPermissionDenied, "running over SSH without a console session", nil)
	}
	return nil
}

func windowStation() (string, error) {
	if err := procGetProcessWindowStation.Find(); err != nil {
		return "", err
	}
	h, _, err := procGetProcessWindowStation.Call()
	if h == 0 {
		return "", err
	}
	buf := make([]uint16, 256)
	var needed uint32
	ok, _, err := procGetUserObjectInformation.Call(
		h,
		uoiName,
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(len(buf)*2),
		uintptr(unsafe.Pointer(&needed)),
	)
	if ok == 0 {
		return "", err
	}
	return windows.UTF16ToString(buf), nil
}

// MainLoopStarted is a no-op; x/hotkey runs its own message loop thread.
func MainLoopStarted() {}
