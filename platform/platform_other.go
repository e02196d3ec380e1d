//go:build !linux && !windows && !darwin

package platform

import (
	"runtime"

	"chord/hotkey"
)

// Detect reports an empty environment on platforms without a backend.
func Detect() Environment { return Environment{} }

func New() hotkey.Backend {
	return newUnavailable(runtime.GOOS,
		hotkey.Errorf(hotkey.KindAPIUnavailable, "global hotkeys are not supported on %s", runtime.GOOS),
		errText)
}

func MainLoopStarted() {}
