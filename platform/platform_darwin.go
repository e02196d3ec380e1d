//go:build darwin

package platform

import (
	"os"
	"sync/atomic"

	xhotkey "golang.design/x/hotkey"
	"golang.org/x/sys/unix"

	"chord/hotkey"
)

var xMods = map[hotkey.Modifier]xhotkey.Modifier{
	hotkey.ModCtrl:  xhotkey.ModCtrl,
	hotkey.ModAlt:   xhotkey.ModOption,
	hotkey.ModShift: xhotkey.ModShift,
	hotkey.ModSuper: xhotkey.ModCmd,
}

var mainLoop atomic.Bool

// MainLoopStarted must be called from inside mainthread.Init. Hotkey
// registration on macOS needs the Cocoa event loop on the main thread.
func MainLoopStarted() { mainLoop.Store(true) }

// New returns the Carbon hotkey backend.
func New() hotkey.Backend {
	return newXBackend("cocoa", checkDarwinPermissions, FormatDarwinError, inUse)
}

// Detect reports an empty environment; it is only meaningful on Linux.
func Detect() Environment { return Environment{} }

func checkDarwinPermissions() error {
	if !mainLoop.Load() {
		return hotkey.NewError(hotkey.KindAPIUnavailable, "main event loop is not running", nil)
	}
	var st unix.Stat_t
	if err := unix.Stat("/dev/console", &st); err != nil {
		return hotkey.NewError(hotkey.KindPermissionDenied, "cannot determine the console user", err)
	}
	if int(st.Uid) != os.Getuid() {
		return hotkey.NewError(hotkey.KindPermissionDenied, "no window server session for this user (not logged in at the console)", nil)
	}
	return nil
}
