package main

import (
	"fmt"
	"io"
	"sync"

	"chord/event"
	"chord/hotkey"
)

// EventSink abstracts the display layer so the Bubble Tea TUI, the
// headless mode and the stdin-driven test mode receive the same events.
type EventSink interface {
	Event(ev event.Event)
	Bindings(bs []hotkey.Binding)
	Preview(text string)
	Notice(text string)
}

// describe renders an event as one line. The test mode prints these and
// the integration tests match on them.
func describe(ev event.Event) string {
	switch ev := ev.(type) {
	case event.RegisterCompleted:
		if ev.Success {
			return fmt.Sprintf("REGISTERED %s %s", ev.Binding.ID, ev.Binding.Definition.Accelerator())
		}
		return fmt.Sprintf("REGISTER_FAILED %s %s: %s", ev.Binding.ID, ev.Binding.Definition.Accelerator(), ev.ErrorMessage)
	case event.UnregisterCompleted:
		if ev.Success {
			return fmt.Sprintf("UNREGISTERED %s", ev.BindingID)
		}
		return fmt.Sprintf("UNREGISTER_FAILED %s: %s", ev.BindingID, ev.ErrorMessage)
	case event.TestResult:
		if ev.Success {
			return fmt.Sprintf("TEST_OK %s", ev.Definition.Accelerator())
		}
		return fmt.Sprintf("TEST_FAILED %s: %s", ev.Definition.Accelerator(), ev.ErrorMessage)
	case event.KeyCombinationCaptured:
		return fmt.Sprintf("CAPTURED %s", ev.Definition.Accelerator())
	case event.RecordingCancelled:
		return fmt.Sprintf("CANCELLED %s", ev.Reason)
	case event.ConflictDetected:
		return fmt.Sprintf("CONFLICT %s: %s", ev.Record.Kind, ev.Record)
	case event.HotkeyActivated:
		return fmt.Sprintf("ACTIVATED %s", ev.BindingID)
	case event.HotkeysDisabled:
		return fmt.Sprintf("DISABLED %s", ev.Reason)
	}
	return fmt.Sprintf("%T", ev)
}

// printSink writes one line per event.
type printSink struct {
	mu  sync.Mutex
	out io.Writer
}

func (s *printSink) println(line string) {
	s.mu.Lock()
	fmt.Fprintln(s.out, line)
	s.mu.Unlock()
}

func (s *printSink) Event(ev event.Event)      { s.println(describe(ev)) }
func (s *printSink) Bindings([]hotkey.Binding) {}
func (s *printSink) Preview(string)            {}
func (s *printSink) Notice(text string)        { s.println("NOTICE " + text) }
