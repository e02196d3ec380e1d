package doctor

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"chord/hotkey"
	"chord/platform"
)

func newDoctor(fb *hotkey.FakeBackend) (*doctor, *bytes.Buffer) {
	var out bytes.Buffer
	return &doctor{
		out:        &out,
		backend:    fb,
		goos:       "linux",
		env:        platform.Environment{X11: true},
		probe:      hotkey.MustParse(DefaultKey),
		bus:        func() (map[string]bool, error) { return nil, errors.New("no bus") },
		keyboard:   func() (string, error) { return "", errors.New("no keyboards") },
		injectable: func(hotkey.Key) bool { return true },
		inject: func(hotkey.Definition) error {
			fb.SimActivate(hotkey.NewHandle("fake", 1))
			return nil
		},
	}, &out
}

func TestAllPass(t *testing.T) {
	fb := hotkey.NewFake()
	d, out := newDoctor(fb)
	if !d.run() {
		t.Fatalf("expected success:\n%s", out)
	}
	if !strings.Contains(out.String(), "synthesized keypress was delivered") {
		t.Errorf("output:\n%s", out)
	}
	if !strings.Contains(out.String(), "WARN: no keyboards") {
		t.Errorf("keyboard warning missing:\n%s", out)
	}
	if fb.Live() != 0 {
		t.Error("probe registration leaked")
	}
}

func TestPermissionFailureSkipsProbe(t *testing.T) {
	fb := hotkey.NewFake()
	fb.DenyPermissions(hotkey.NewError(hotkey.KindPermissionDenied, "no display", nil))
	d, out := newDoctor(fb)
	if d.run() {
		t.Fatal("expected failure")
	}
	if fb.RegisterCalls != 0 {
		t.Error("probe must not run without permissions")
	}
	if !strings.Contains(out.String(), "no display") {
		t.Errorf("output:\n%s", out)
	}
}

func TestProbeTimesOutWithoutTerminal(t *testing.T) {
	fb := hotkey.NewFake()
	d, out := newDoctor(fb)
	d.inject = func(hotkey.Definition) error { return errors.New("no uinput") }
	if d.checkProbe() {
		t.Fatal("expected failure")
	}
	if !strings.Contains(out.String(), "no uinput") || !strings.Contains(out.String(), "no activation received") {
		t.Errorf("output:\n%s", out)
	}
	if fb.Live() != 0 {
		t.Error("probe registration leaked")
	}
}

func TestUnsynthesizableKeySkipsInjection(t *testing.T) {
	fb := hotkey.NewFake()
	d, out := newDoctor(fb)
	d.probe = hotkey.MustParse("Ctrl+Alt+Escape")
	injected := false
	d.inject = func(hotkey.Definition) error {
		injected = true
		return nil
	}
	d.injectable = func(k hotkey.Key) bool { return k != hotkey.KeyEscape }
	if d.checkProbe() {
		t.Fatal("expected failure without a terminal")
	}
	if injected {
		t.Error("an unsupported key must not be synthesized")
	}
	if !strings.Contains(out.String(), "cannot be synthesized") {
		t.Errorf("output:\n%s", out)
	}
	if fb.Live() != 0 {
		t.Error("registration leaked")
	}
}

func TestRunRejectsBadAccelerator(t *testing.T) {
	if code := Run("Ctrl+Nope"); code != 1 {
		t.Errorf("exit code = %d", code)
	}
}

func TestProbeHeldElsewhere(t *testing.T) {
	fb := hotkey.NewFake()
	d, out := newDoctor(fb)
	fb.Hold(d.probe.Combo())
	if d.checkProbe() {
		t.Fatal("expected failure")
	}
	if !strings.Contains(out.String(), "held by another process") {
		t.Errorf("output:\n%s", out)
	}
}

func TestBusCheck(t *testing.T) {
	fb := hotkey.NewFake()
	d, out := newDoctor(fb)
	if !d.checkBus() || !strings.Contains(out.String(), "SKIP") {
		t.Errorf("x11 session should skip the bus:\n%s", out)
	}

	d.env = platform.Environment{Wayland: true, Compositor: platform.CompositorKDE}
	d.bus = func() (map[string]bool, error) {
		return map[string]bool{"org.kde.kglobalaccel": false, "org.freedesktop.portal.Desktop": true}, nil
	}
	if d.checkBus() {
		t.Error("KDE session without kglobalaccel should fail")
	}

	d.env = platform.Environment{Wayland: true, Compositor: platform.CompositorGNOME}
	if !d.checkBus() {
		t.Error("GNOME session with the portal should pass")
	}
}
