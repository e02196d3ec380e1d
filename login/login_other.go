//go:build !darwin && !linux && !windows

package login

import "errors"

var errUnsupported = errors.New("login items are not supported on this platform")

func Enabled() bool { return false }

func Enable([]string) error { return errUnsupported }

func Disable() error { return errUnsupported }
