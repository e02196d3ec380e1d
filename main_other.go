//go:build !linux

package main

import (
	"os"
	"runtime"

	"golang.design/x/hotkey/mainthread"

	"chord/platform"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	code := 0
	mainthread.Init(func() {
		platform.MainLoopStarted()
		code = run()
	})
	os.Exit(code)
}
