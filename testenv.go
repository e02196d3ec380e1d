package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"chord/conflict"
	"chord/engine"
	"chord/event"
	"chord/hotkey"
	"chord/input"
)

// runTestMode drives the subsystem from stdin against the fake backend.
// One command per line; events are printed as they happen.
//
//	START | CANCEL                 recording
//	HOLD ctrl+shift | RELEASE ctrl  modifiers
//	PRESS space | TAP ctrl+alt+k    keys
//	REGISTER id keys | UNREGISTER id | TEST keys
//	OCCUPY keys                    another process owns keys
//	DENY reason                    fail the permission check (before START)
//	ACTIVATE id                    press a registered binding
//	WAIT | SLEEP ms | QUIT
func runTestMode(recordTimeout time.Duration) {
	fb := hotkey.NewFake()
	sink := &printSink{out: os.Stdout}
	tracker := input.NewTracker()

	var h *host
	started := false
	start := func() {
		if started {
			return
		}
		started = true
		eng := engine.New(fb, conflict.New(conflict.Table(runtime.GOOS, "")), engine.Config{
			Style:            hotkey.StyleLinux,
			RecordingTimeout: recordTimeout,
		})
		eng.Start()
		h = newHost(eng, sink, tracker, "")
		go h.run(context.Background())
	}

	quit := func() {
		if h != nil {
			h.wait(func() {
				h.eng.Settle()
				h.step(time.Now())
				if err := h.eng.Close(); err != nil {
					sink.Notice(err.Error())
				}
			})
		}
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)

		switch cmd {
		case "DENY":
			if started {
				sink.Notice("DENY must come before any other command")
				continue
			}
			fb.DenyPermissions(hotkey.NewError(hotkey.KindPermissionDenied, arg, nil))
			continue
		case "OCCUPY":
			def, err := hotkey.Parse(arg)
			if err != nil {
				sink.Notice(err.Error())
				continue
			}
			fb.Hold(def.Combo())
			continue
		case "SLEEP":
			if ms, err := strconv.Atoi(arg); err == nil {
				time.Sleep(time.Duration(ms) * time.Millisecond)
			}
			continue
		case "QUIT":
			quit()
			return
		}

		start()
		if err := testCommand(h, fb, tracker, cmd, arg); err != nil {
			sink.Notice(err.Error())
		}
	}
	quit()
}

func testCommand(h *host, fb *hotkey.FakeBackend, tracker *input.Tracker, cmd, arg string) error {
	switch cmd {
	case "START":
		h.wait(h.startRecording)
	case "CANCEL":
		h.wait(func() { h.submit(event.CancelRecording{}) })
	case "HOLD", "RELEASE":
		for _, name := range strings.Split(arg, "+") {
			m, ok := hotkey.ParseModifier(strings.TrimSpace(name))
			if !ok {
				return fmt.Errorf("unknown modifier %q", name)
			}
			if cmd == "HOLD" {
				tracker.ModDown(m)
			} else {
				tracker.ModUp(m)
			}
		}
	case "PRESS":
		k, ok := hotkey.ParseKey(arg)
		if !ok {
			return fmt.Errorf("unknown key %q", arg)
		}
		tracker.Press(k)
	case "TAP":
		def, err := hotkey.Parse(arg)
		if err != nil {
			return err
		}
		tracker.Tap(def.Modifiers(), def.Key())
	case "REGISTER":
		id, keys, _ := strings.Cut(arg, " ")
		def, err := hotkey.Parse(strings.TrimSpace(keys))
		if err != nil {
			return err
		}
		h.wait(func() { h.submit(event.RegisterRequested{Binding: hotkey.NewBinding(hotkey.BindingID(id), def)}) })
	case "UNREGISTER":
		h.wait(func() { h.submit(event.UnregisterRequested{BindingID: hotkey.BindingID(arg)}) })
	case "TEST":
		def, err := hotkey.Parse(arg)
		if err != nil {
			return err
		}
		h.wait(func() { h.submit(event.TestRequested{Definition: def}) })
	case "ACTIVATE":
		var handle hotkey.Handle
		h.wait(func() {
			if b, ok := h.eng.Registry().Binding(hotkey.BindingID(arg)); ok {
				handle = b.Status.Handle
			}
		})
		if handle.IsZero() {
			return fmt.Errorf("%s is not registered", arg)
		}
		fb.SimActivate(handle)
	case "WAIT":
		// Two frames: the first applies completions, the second picks up
		// anything they triggered (re-registration after a release).
		h.wait(func() {
			h.eng.Settle()
			h.step(time.Now())
			h.eng.Settle()
			h.step(time.Now())
		})
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}
