//go:build !windows && (!cgo || (!linux && !darwin))

package inject

import (
	"errors"

	"chord/hotkey"
)

func Init() error { return errors.New("inject: unsupported platform") }

func Send(hotkey.Definition) error { return Init() }

func Supported(hotkey.Key) bool { return false }
