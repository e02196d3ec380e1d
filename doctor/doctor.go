package doctor

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"chord/clipboard"
	"chord/conflict"
	"chord/hotkey"
	"chord/inject"
	"chord/input"
	"chord/platform"
)

const (
	injectWait = 3 * time.Second
	manualWait = 10 * time.Second
)

// DefaultKey is the accelerator registered by the live check.
const DefaultKey = "Ctrl+Alt+Shift+F9"

type doctor struct {
	out         io.Writer
	backend     hotkey.Backend
	env         platform.Environment
	goos        string
	probe       hotkey.Definition
	interactive bool

	inject     func(hotkey.Definition) error
	injectable func(hotkey.Key) bool
	bus        func() (map[string]bool, error)
	keyboard   func() (string, error)
}

// Run executes the diagnostic checks, registering accel for the live check,
// and returns an exit code (0=all pass, 1=any fail).
func Run(accel string) int {
	def, err := hotkey.ParseStyled(hotkey.DefaultStyle, accel, "doctor")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	tty := saveTerminal()
	defer tty.restore()
	setupInterruptHandler(tty)

	backend := platform.New()
	defer backend.Close()

	d := &doctor{
		out:         os.Stdout,
		backend:     backend,
		env:         platform.Detect(),
		goos:        runtime.GOOS,
		probe:       def,
		interactive: tty != nil,
		inject:      inject.Send,
		injectable:  inject.Supported,
		bus:         platform.BusServices,
		keyboard:    input.Diagnose,
	}
	if d.run() {
		return 0
	}
	return 1
}

func (d *doctor) printf(format string, args ...any) {
	fmt.Fprintf(d.out, format, args...)
}

func (d *doctor) run() bool {
	d.printf("chord doctor - global hotkey diagnostics\n")
	d.printf("========================================\n")

	d.checkEnvironment()
	allPass := d.checkPermissions()
	if !d.checkBus() {
		allPass = false
	}
	d.checkKeyboard()
	if allPass && !d.checkProbe() {
		allPass = false
	}

	d.printf("\n")
	if allPass {
		d.printf("All checks passed!\n")
	} else {
		d.printf("Some checks failed. See details above.\n")
	}
	return allPass
}

func (d *doctor) checkEnvironment() {
	d.printf("\n[1/5] Environment\n")
	d.printf("  os: %s\n", d.goos)
	d.printf("  backend: %s\n", d.backend.Name())
	if d.goos == "linux" {
		session := "none"
		switch {
		case d.env.XWayland:
			session = "wayland (xwayland)"
		case d.env.Wayland:
			session = "wayland"
		case d.env.X11:
			session = "x11"
		}
		d.printf("  session: %s, compositor: %s, desktop: %q\n", session, d.env.Compositor, d.env.Desktop)
	}
	if clipboard.Available() {
		d.printf("  clipboard: available\n")
	} else {
		d.printf("  clipboard: %v\n", clipboard.ErrUnsupported)
	}
}

func (d *doctor) checkPermissions() bool {
	d.printf("\n[2/5] Permissions\n")
	if err := d.backend.CheckPermissions(); err != nil {
		d.printf("  FAIL: %s\n", d.backend.FormatError(err))
		return false
	}
	d.printf("  PASS: %s backend may register global hotkeys\n", d.backend.Name())
	return true
}

func (d *doctor) checkBus() bool {
	d.printf("\n[3/5] Session bus\n")
	transport := d.env.Transport()
	if d.goos != "linux" || (transport != "kde" && transport != "portal") {
		d.printf("  SKIP: not needed for this session\n")
		return true
	}
	services, err := d.bus()
	if err != nil {
		d.printf("  FAIL: %v\n", err)
		return false
	}
	want := "org.freedesktop.portal.Desktop"
	if transport == "kde" {
		want = "org.kde.kglobalaccel"
	}
	for name, owned := range services {
		d.printf("  %s: %v\n", name, owned)
	}
	if !services[want] {
		d.printf("  FAIL: %s is not running\n", want)
		return false
	}
	d.printf("  PASS: %s is running\n", want)
	return true
}

// checkKeyboard never fails: without device access the terminal recorder
// still captures combinations.
func (d *doctor) checkKeyboard() {
	d.printf("\n[4/5] Keyboard capture for recording\n")
	msg, err := d.keyboard()
	if err != nil {
		d.printf("  WARN: %v\n", err)
		d.printf("  Recording falls back to the terminal.\n")
		return
	}
	d.printf("  PASS: %s\n", msg)
}

func (d *doctor) checkProbe() bool {
	d.printf("\n[5/5] Live registration with %s\n", d.probe.Display())

	det := conflict.New(conflict.Table(d.goos, d.env.DesktopKey()))
	if rec := det.Check(d.probe); !rec.Clear() {
		d.printf("  FAIL: %s\n", rec.Description)
		return false
	}

	h, err := d.backend.Register(d.probe)
	if err != nil {
		d.printf("  FAIL: %s\n", d.backend.FormatError(err))
		return false
	}
	defer func() {
		if err := d.backend.Unregister(h); err != nil {
			d.printf("  Warning: releasing probe: %s\n", d.backend.FormatError(err))
		}
	}()
	d.printf("  registered (%s)\n", h)

	if !d.injectable(d.probe.Key()) {
		d.printf("  %s cannot be synthesized on this platform\n", d.probe.Key())
	} else if err := d.inject(d.probe); err != nil {
		d.printf("  could not synthesize the keypress: %v\n", err)
	} else if d.await(h, injectWait) {
		d.printf("  PASS: synthesized keypress was delivered\n")
		return true
	}

	if !d.interactive {
		d.printf("  FAIL: no activation received\n")
		return false
	}
	d.printf("  Press %s now...\n", d.probe.Display())
	if d.await(h, manualWait) {
		d.printf("  PASS: hotkey detected\n")
		return true
	}
	d.printf("  FAIL: timeout waiting for hotkey\n")
	return false
}

func (d *doctor) await(h hotkey.Handle, wait time.Duration) bool {
	timeout := time.After(wait)
	for {
		select {
		case got := <-d.backend.Activations():
			if got == h {
				return true
			}
		case <-timeout:
			return false
		}
	}
}
