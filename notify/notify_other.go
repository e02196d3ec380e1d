//go:build !linux

// Package notify shows one-off desktop notices.
package notify

import "chord/log"

// HotkeysDisabled records the notice in the diagnostics log. Windows and
// macOS surface the reason in the terminal UI only.
func HotkeysDisabled(reason string) error {
	log.Warn("hotkeys disabled: " + reason)
	return nil
}
