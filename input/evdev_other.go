//go:build !linux

package input

import "errors"

var errNoEvdev = errors.New("system-wide key capture is only available on Linux; use the terminal recorder")

// Evdev is unavailable off Linux.
type Evdev struct{}

func OpenKeyboards(*Tracker) (*Evdev, error) { return nil, errNoEvdev }

func (*Evdev) Close() {}

// Diagnose reports that recording uses the terminal on this platform.
func Diagnose() (string, error) {
	return "recording reads keys from the terminal", nil
}
