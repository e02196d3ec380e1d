package recording

import (
	"testing"
	"time"

	"chord/hotkey"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func at(ms int) time.Time { return t0.Add(time.Duration(ms) * time.Millisecond) }

func TestCtrlAltL(t *testing.T) {
	s := New(WithStyle(hotkey.StyleMac))
	s.Start(t0)

	if out := s.Update(Frame{Held: hotkey.ModCtrl, Now: at(16)}); out != NoChange {
		t.Fatalf("frame 1: %v", out)
	}
	if out := s.Update(Frame{Held: hotkey.ModCtrl | hotkey.ModAlt, Now: at(32)}); out != NoChange {
		t.Fatalf("frame 2: %v", out)
	}
	if got := s.Preview(); got != "⌃ ⌥" {
		t.Errorf("preview = %q, want %q", got, "⌃ ⌥")
	}
	if out := s.Update(Frame{Held: hotkey.ModCtrl | hotkey.ModAlt, Pressed: []hotkey.Key{hotkey.KeyL}, Now: at(48)}); out != DidCapture {
		t.Fatalf("frame 3: %v, want capture", out)
	}

	def, ok := s.Captured()
	if !ok {
		t.Fatal("expected captured definition")
	}
	if def.Modifiers() != hotkey.ModCtrl|hotkey.ModAlt || def.Key() != hotkey.KeyL {
		t.Errorf("captured %v", def)
	}
	if def.Display() != "⌃ ⌥ L" {
		t.Errorf("display = %q, want %q", def.Display(), "⌃ ⌥ L")
	}
	if s.State().Elapsed != 48*time.Millisecond {
		t.Errorf("elapsed = %v", s.State().Elapsed)
	}
}

func TestReleasedModifierStaysInCombination(t *testing.T) {
	s := New(WithStyle(hotkey.StyleLinux))
	s.Start(t0)
	s.Update(Frame{Held: hotkey.ModShift})
	s.Update(Frame{Held: hotkey.ModNone})
	s.Update(Frame{Held: hotkey.ModSuper, Pressed: []hotkey.Key{hotkey.KeyK}})

	def, ok := s.Captured()
	if !ok {
		t.Fatal("expected capture")
	}
	if def.Modifiers() != hotkey.ModShift|hotkey.ModSuper {
		t.Errorf("mods = %v, want Shift+Super", def.Modifiers())
	}
}

func TestEscapeCancelsRegardlessOfModifiers(t *testing.T) {
	for _, held := range []hotkey.Modifier{hotkey.ModNone, hotkey.ModCtrl, hotkey.ModCtrl | hotkey.ModAlt | hotkey.ModShift | hotkey.ModSuper} {
		s := New()
		s.Start(t0)
		s.Update(Frame{Held: held})
		out := s.Update(Frame{Held: held, Pressed: []hotkey.Key{hotkey.KeyA, hotkey.KeyEscape}})
		if out != DidCancel {
			t.Errorf("held %v: outcome %v, want cancel", held, out)
		}
		if s.Phase() != Cancelled || s.Reason() != CancelEscape {
			t.Errorf("held %v: phase %v reason %v", held, s.Phase(), s.Reason())
		}
		if _, ok := s.Captured(); ok {
			t.Errorf("held %v: cancelled session must not report a capture", held)
		}
		if !s.State().Cancelled {
			t.Errorf("held %v: cancelled flag not set", held)
		}
	}
}

func TestBareKeyIsCapturable(t *testing.T) {
	s := New()
	s.Start(t0)
	if out := s.Update(Frame{Pressed: []hotkey.Key{hotkey.KeyF9}}); out != DidCapture {
		t.Fatalf("outcome %v", out)
	}
	def, _ := s.Captured()
	if def.Modifiers() != hotkey.ModNone || def.Key() != hotkey.KeyF9 {
		t.Errorf("captured %v", def)
	}
}

func TestModifiersAloneNeverCapture(t *testing.T) {
	s := New()
	s.Start(t0)
	for i := 0; i < 500; i++ {
		held := hotkey.Modifier(i % 16)
		if out := s.Update(Frame{Held: held, Now: at(i * 16)}); out != NoChange {
			t.Fatalf("frame %d: %v", i, out)
		}
	}
	if s.Phase() != Recording {
		t.Fatalf("phase = %v, want recording", s.Phase())
	}
	if _, ok := s.Captured(); ok {
		t.Fatal("modifiers alone must not capture")
	}
}

func TestTimeoutIsOptIn(t *testing.T) {
	s := New()
	s.Start(t0)
	s.Update(Frame{Now: t0.Add(time.Hour)})
	if s.Phase() != Recording {
		t.Fatal("without a timeout the session stays recording")
	}

	s = New(WithTimeout(5 * time.Second))
	s.Start(t0)
	if out := s.Update(Frame{Now: at(4999)}); out != NoChange {
		t.Fatalf("before timeout: %v", out)
	}
	if out := s.Update(Frame{Now: at(5000)}); out != DidCancel {
		t.Fatalf("at timeout: %v", out)
	}
	if s.Reason() != CancelTimeout {
		t.Errorf("reason = %v", s.Reason())
	}
}

func TestExternalCancelAndRestart(t *testing.T) {
	s := New()
	if s.Cancel() {
		t.Error("cancel on idle session should report false")
	}
	s.Start(t0)
	s.Update(Frame{Held: hotkey.ModCtrl})
	if !s.Cancel() {
		t.Fatal("cancel on recording session should report true")
	}
	if s.Update(Frame{Pressed: []hotkey.Key{hotkey.KeyA}}) != NoChange {
		t.Error("cancelled session must ignore input")
	}

	s.Start(t0)
	if s.State().Mods != hotkey.ModNone {
		t.Error("Start must reset the accumulator")
	}
	s.Update(Frame{Pressed: []hotkey.Key{hotkey.KeyB}})
	if def, ok := s.Captured(); !ok || def.Key() != hotkey.KeyB || def.Modifiers() != hotkey.ModNone {
		t.Errorf("restart captured %v %v", def, ok)
	}
}
