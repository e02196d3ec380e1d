package engine

import (
	"strings"
	"testing"
	"time"

	"chord/conflict"
	"chord/event"
	"chord/hotkey"
	"chord/platform"
	"chord/recording"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newEngine(t *testing.T, goos, desktop string, style hotkey.Style) (*Engine, *hotkey.FakeBackend) {
	t.Helper()
	fb := hotkey.NewFake()
	e := New(fb, conflict.New(conflict.Table(goos, desktop)), Config{
		Style: style,
		Now:   func() time.Time { return t0 },
	})
	t.Cleanup(func() { e.Close() })
	return e, fb
}

func find[T event.Event](evs []event.Event) (T, bool) {
	for _, ev := range evs {
		if v, ok := ev.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func settleFrame(e *Engine) []event.Event {
	e.Settle()
	return e.Frame(recording.Frame{Now: t0})
}

// Scenario A: record ⌘Space on macOS and register it.
func TestRecordAndRegisterCmdSpace(t *testing.T) {
	e, fb := newEngine(t, "darwin", "", hotkey.StyleMac)
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}

	if err := e.Submit(event.StartRecording{}); err != nil {
		t.Fatal(err)
	}
	if evs := e.Frame(recording.Frame{Held: hotkey.ModSuper, Now: t0}); len(evs) != 0 {
		t.Fatalf("unexpected events while holding ⌘: %+v", evs)
	}
	evs := e.Frame(recording.Frame{Held: hotkey.ModSuper, Pressed: []hotkey.Key{hotkey.KeySpace}, Now: t0})
	captured, ok := find[event.KeyCombinationCaptured](evs)
	if !ok {
		t.Fatalf("no capture in %+v", evs)
	}
	if captured.Definition.Display() != "⌘ Space" {
		t.Errorf("display = %q", captured.Definition.Display())
	}
	if _, conflicted := find[event.ConflictDetected](evs); conflicted {
		t.Error("⌘Space must pass the conflict check")
	}

	id := hotkey.NewBindingID()
	if err := e.Submit(event.RegisterRequested{Binding: hotkey.NewBinding(id, captured.Definition)}); err != nil {
		t.Fatal(err)
	}
	done, ok := find[event.RegisterCompleted](settleFrame(e))
	if !ok || !done.Success || done.Binding.ID != id {
		t.Fatalf("completion = %+v", done)
	}
	if done.Binding.Status.State != hotkey.Registered {
		t.Errorf("state = %v", done.Binding.Status.State)
	}
	if fb.Live() != 1 {
		t.Errorf("live = %d", fb.Live())
	}
}

// Scenario B: Ctrl+Shift+Space held by Office on Windows.
func TestWindowsOfficeConflict(t *testing.T) {
	e, fb := newEngine(t, "windows", "", hotkey.StyleWindows)
	fb.Format = platform.FormatWindowsError
	fb.Hold(hotkey.Combo{Mods: hotkey.ModCtrl | hotkey.ModShift, Key: hotkey.KeySpace})
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}

	def := hotkey.NewStyledDefinition(hotkey.StyleWindows, hotkey.ModCtrl|hotkey.ModShift, hotkey.KeySpace, "dictation")
	e.Submit(event.RegisterRequested{Binding: hotkey.NewBinding("dictation", def)})
	done, ok := find[event.RegisterCompleted](settleFrame(e))
	if !ok || done.Success {
		t.Fatalf("completion = %+v", done)
	}
	if !strings.Contains(done.ErrorMessage, "Microsoft Office") {
		t.Errorf("message does not name the Office conflict: %q", done.ErrorMessage)
	}
	if fb.RegisterCalls != 1 {
		t.Errorf("expected the backend to be asked once, got %d", fb.RegisterCalls)
	}
}

// Scenario C: Sway under Wayland disables hotkeys without stopping.
func TestSwayStartsWithHotkeysDisabled(t *testing.T) {
	env := platform.DetectEnvironment(func(k string) string {
		return map[string]string{"WAYLAND_DISPLAY": "wayland-1", "XDG_CURRENT_DESKTOP": "sway"}[k]
	})
	e, fb := newEngine(t, "linux", env.DesktopKey(), hotkey.StyleLinux)
	fb.DenyPermissions(platform.CheckLinuxPermissions(env))
	fb.Format = func(err error) string { return platform.FormatLinuxError(env, err) }

	if err := e.Start(); err == nil {
		t.Fatal("expected the startup check to fail")
	}
	evs := e.Frame(recording.Frame{Now: t0})
	disabled, ok := find[event.HotkeysDisabled](evs)
	if !ok {
		t.Fatalf("no HotkeysDisabled in %+v", evs)
	}
	if !strings.Contains(disabled.Reason, "GDK_BACKEND=x11") || !strings.Contains(disabled.Reason, "X11 session") {
		t.Errorf("reason lacks guidance: %q", disabled.Reason)
	}
	if e.Disabled() == nil {
		t.Error("engine should report hotkeys disabled")
	}

	e.Submit(event.RegisterRequested{Binding: hotkey.NewBinding("later", hotkey.MustParse("Ctrl+Alt+K"))})
	done, ok := find[event.RegisterCompleted](settleFrame(e))
	if !ok || done.Success {
		t.Fatalf("completion = %+v", done)
	}
	if fb.RegisterCalls != 0 {
		t.Error("disabled engine must not reach the backend")
	}

	// Recording keeps working.
	e.Submit(event.StartRecording{})
	evs = e.Frame(recording.Frame{Pressed: []hotkey.Key{hotkey.KeyF8}, Now: t0})
	if _, ok := find[event.KeyCombinationCaptured](evs); !ok {
		t.Errorf("recording should still capture: %+v", evs)
	}
}

func TestCapturePreviewsConflict(t *testing.T) {
	e, _ := newEngine(t, "darwin", "", hotkey.StyleMac)
	e.Submit(event.StartRecording{})

	evs := e.Frame(recording.Frame{Held: hotkey.ModSuper, Pressed: []hotkey.Key{hotkey.KeyTab}, Now: t0})
	cd, ok := find[event.ConflictDetected](evs)
	if !ok {
		t.Fatalf("no ConflictDetected in %+v", evs)
	}
	if cd.Record.Kind != hotkey.SystemReserved || !strings.Contains(cd.Record.Description, "switcher") {
		t.Errorf("record = %+v", cd.Record)
	}
}

func TestEscapeAndExternalCancel(t *testing.T) {
	e, _ := newEngine(t, "linux", "", hotkey.StyleLinux)

	e.Submit(event.StartRecording{})
	evs := e.Frame(recording.Frame{Held: hotkey.ModCtrl | hotkey.ModShift, Pressed: []hotkey.Key{hotkey.KeyEscape}, Now: t0})
	rc, ok := find[event.RecordingCancelled](evs)
	if !ok || rc.Reason != "escape" {
		t.Fatalf("events = %+v", evs)
	}
	if _, captured := find[event.KeyCombinationCaptured](evs); captured {
		t.Error("escape must not capture")
	}

	e.Submit(event.StartRecording{})
	e.Frame(recording.Frame{Held: hotkey.ModAlt, Now: t0})
	e.Submit(event.CancelRecording{})
	evs = e.Frame(recording.Frame{Pressed: []hotkey.Key{hotkey.KeyA}, Now: t0})
	rc, ok = find[event.RecordingCancelled](evs)
	if !ok || rc.Reason != "external" {
		t.Fatalf("events = %+v", evs)
	}
	if _, captured := find[event.KeyCombinationCaptured](evs); captured {
		t.Error("cancelled session must ignore later keys")
	}
}

func TestFramesWithoutRecordingIgnoreKeys(t *testing.T) {
	e, _ := newEngine(t, "linux", "", hotkey.StyleLinux)
	if evs := e.Frame(recording.Frame{Held: hotkey.ModCtrl, Pressed: []hotkey.Key{hotkey.KeyK}, Now: t0}); len(evs) != 0 {
		t.Errorf("events = %+v", evs)
	}
}

func TestRecordingTimeout(t *testing.T) {
	now := t0
	fb := hotkey.NewFake()
	e := New(fb, conflict.New(nil), Config{RecordingTimeout: time.Second, Now: func() time.Time { return now }})
	e.Submit(event.StartRecording{})

	now = t0.Add(2 * time.Second)
	evs := e.Frame(recording.Frame{})
	rc, ok := find[event.RecordingCancelled](evs)
	if !ok || rc.Reason != "timeout" {
		t.Errorf("events = %+v", evs)
	}
}

func TestActivationReachesHost(t *testing.T) {
	e, fb := newEngine(t, "linux", "", hotkey.StyleLinux)
	e.Submit(event.RegisterRequested{Binding: hotkey.NewBinding("act", hotkey.MustParse("Ctrl+Alt+J"))})
	settleFrame(e)

	b, _ := e.Registry().Binding("act")
	fb.SimActivate(b.Status.Handle)
	act, ok := find[event.HotkeyActivated](e.Frame(recording.Frame{Now: t0}))
	if !ok || act.BindingID != "act" {
		t.Errorf("activation = %+v", act)
	}
}

func TestSubmitRejectsNonRequests(t *testing.T) {
	e, _ := newEngine(t, "linux", "", hotkey.StyleLinux)
	if err := e.Submit(event.HotkeyActivated{BindingID: "x"}); err == nil {
		t.Error("expected an error for a non-request event")
	}
}

func TestCloseReleasesRegistrations(t *testing.T) {
	fb := hotkey.NewFake()
	e := New(fb, conflict.New(nil), Config{})
	e.LoadProfile([]hotkey.Binding{
		hotkey.NewBinding("a", hotkey.MustParse("Ctrl+1")),
		hotkey.NewBinding("b", hotkey.MustParse("Ctrl+2")),
	})
	if err := e.Close(); err != nil {
		t.Fatal(err)
	}
	if fb.Live() != 0 {
		t.Errorf("live = %d", fb.Live())
	}
}
