package input

import (
	"testing"
	"time"

	"chord/hotkey"
	"chord/recording"
)

func TestTrackerFrames(t *testing.T) {
	tr := NewTracker()
	now := time.Now()

	tr.ModDown(hotkey.ModCtrl)
	tr.ModDown(hotkey.ModAlt)
	f := tr.Frame(now)
	if f.Held != hotkey.ModCtrl|hotkey.ModAlt || len(f.Pressed) != 0 {
		t.Fatalf("frame 1 = %+v", f)
	}

	tr.Press(hotkey.KeyL)
	f = tr.Frame(now)
	if len(f.Pressed) != 1 || f.Pressed[0] != hotkey.KeyL {
		t.Fatalf("frame 2 = %+v", f)
	}
	if f = tr.Frame(now); len(f.Pressed) != 0 {
		t.Errorf("pressed keys must not carry over: %+v", f)
	}
}

func TestTrackerKeepsQuickTap(t *testing.T) {
	tr := NewTracker()
	tr.ModDown(hotkey.ModShift)
	tr.ModUp(hotkey.ModShift)

	if f := tr.Frame(time.Now()); f.Held != hotkey.ModShift {
		t.Errorf("tap between frames lost: %v", f.Held)
	}
	if f := tr.Frame(time.Now()); f.Held != hotkey.ModNone {
		t.Errorf("released modifier still held: %v", f.Held)
	}
}

func TestTrackerBothSides(t *testing.T) {
	tr := NewTracker()
	tr.ModDown(hotkey.ModCtrl) // left
	tr.ModDown(hotkey.ModCtrl) // right
	tr.ModUp(hotkey.ModCtrl)
	tr.Frame(time.Now())
	if f := tr.Frame(time.Now()); f.Held != hotkey.ModCtrl {
		t.Errorf("one side still down, got %v", f.Held)
	}
}

func TestTrackerDrivesRecording(t *testing.T) {
	tr := NewTracker()
	s := recording.New(recording.WithStyle(hotkey.StyleMac))
	now := time.Now()
	s.Start(now)

	tr.Tap(hotkey.ModCtrl|hotkey.ModAlt, hotkey.KeyL)
	if out := s.Update(tr.Frame(now)); out != recording.DidCapture {
		t.Fatalf("outcome = %v", out)
	}
	def, _ := s.Captured()
	if def.Display() != "⌃ ⌥ L" {
		t.Errorf("display = %q", def.Display())
	}
}

func TestParseTerminalKey(t *testing.T) {
	tests := []struct {
		in   string
		mods hotkey.Modifier
		key  hotkey.Key
		ok   bool
	}{
		{"ctrl+l", hotkey.ModCtrl, hotkey.KeyL, true},
		{"alt+enter", hotkey.ModAlt, hotkey.KeyReturn, true},
		{"shift+tab", hotkey.ModShift, hotkey.KeyTab, true},
		{"ctrl+alt+f5", hotkey.ModCtrl | hotkey.ModAlt, hotkey.KeyF5, true},
		{"K", hotkey.ModShift, hotkey.KeyK, true},
		{"k", hotkey.ModNone, hotkey.KeyK, true},
		{" ", hotkey.ModNone, hotkey.KeySpace, true},
		{"esc", hotkey.ModNone, hotkey.KeyEscape, true},
		{"7", hotkey.ModNone, hotkey.Key7, true},
		{"hyper+k", 0, 0, false},
		{"ctrl+@", 0, 0, false},
		{"", 0, 0, false},
	}
	for _, tt := range tests {
		mods, key, ok := ParseTerminalKey(tt.in)
		if ok != tt.ok || (ok && (mods != tt.mods || key != tt.key)) {
			t.Errorf("%q: got %v %v %v, want %v %v %v", tt.in, mods, key, ok, tt.mods, tt.key, tt.ok)
		}
	}
}
