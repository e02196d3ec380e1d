//go:build linux

package input

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"chord/hotkey"
)

const (
	evKey      = 1
	keyPress   = 1
	keyRelease = 0
)

// input_event is 24 bytes on 64-bit Linux:
// timeval (16 bytes) + type (2) + code (2) + value (4)
const inputEventSize = 24

var evdevMods = map[uint16]hotkey.Modifier{
	29:  hotkey.ModCtrl,  // KEY_LEFTCTRL
	97:  hotkey.ModCtrl,  // KEY_RIGHTCTRL
	42:  hotkey.ModShift, // KEY_LEFTSHIFT
	54:  hotkey.ModShift, // KEY_RIGHTSHIFT
	56:  hotkey.ModAlt,   // KEY_LEFTALT
	100: hotkey.ModAlt,   // KEY_RIGHTALT
	125: hotkey.ModSuper, // KEY_LEFTMETA
	126: hotkey.ModSuper, // KEY_RIGHTMETA
}

var evdevKeys = map[uint16]hotkey.Key{
	1: hotkey.KeyEscape, 15: hotkey.KeyTab, 28: hotkey.KeyReturn, 57: hotkey.KeySpace,
	111: hotkey.KeyDelete, 103: hotkey.KeyUp, 105: hotkey.KeyLeft, 106: hotkey.KeyRight, 108: hotkey.KeyDown,

	2: hotkey.Key1, 3: hotkey.Key2, 4: hotkey.Key3, 5: hotkey.Key4, 6: hotkey.Key5,
	7: hotkey.Key6, 8: hotkey.Key7, 9: hotkey.Key8, 10: hotkey.Key9, 11: hotkey.Key0,

	16: hotkey.KeyQ, 17: hotkey.KeyW, 18: hotkey.KeyE, 19: hotkey.KeyR, 20: hotkey.KeyT,
	21: hotkey.KeyY, 22: hotkey.KeyU, 23: hotkey.KeyI, 24: hotkey.KeyO, 25: hotkey.KeyP,
	30: hotkey.KeyA, 31: hotkey.KeyS, 32: hotkey.KeyD, 33: hotkey.KeyF, 34: hotkey.KeyG,
	35: hotkey.KeyH, 36: hotkey.KeyJ, 37: hotkey.KeyK, 38: hotkey.KeyL,
	44: hotkey.KeyZ, 45: hotkey.KeyX, 46: hotkey.KeyC, 47: hotkey.KeyV, 48: hotkey.KeyB,
	49: hotkey.KeyN, 50: hotkey.KeyM,

	59: hotkey.KeyF1, 60: hotkey.KeyF2, 61: hotkey.KeyF3, 62: hotkey.KeyF4, 63: hotkey.KeyF5,
	64: hotkey.KeyF6, 65: hotkey.KeyF7, 66: hotkey.KeyF8, 67: hotkey.KeyF9, 68: hotkey.KeyF10,
	87: hotkey.KeyF11, 88: hotkey.KeyF12,
}

// Evdev reads every keyboard under /dev/input and feeds a Tracker. It
// sees keys regardless of which window has focus, which is what recording
// a global shortcut needs. Requires membership in the 'input' group.
type Evdev struct {
	tracker *Tracker
	files   []*os.File
	stop    chan struct{}
	once    sync.Once
}

// OpenKeyboards starts reading every keyboard device into t.
func OpenKeyboards(t *Tracker) (*Evdev, error) {
	keyboards, err := findKeyboards()
	if err != nil {
		return nil, fmt.Errorf("finding keyboards: %w", err)
	}
	if len(keyboards) == 0 {
		return nil, fmt.Errorf("no keyboard devices found (is user in 'input' group?)")
	}

	e := &Evdev{tracker: t, stop: make(chan struct{})}
	for _, path := range keyboards {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		e.files = append(e.files, f)
		go e.readEvents(f)
	}

	if len(e.files) == 0 {
		return nil, fmt.Errorf("could not open any keyboard device (run: sudo usermod -aG input $USER, then re-login)")
	}
	return e, nil
}

func (e *Evdev) readEvents(f *os.File) {
	buf := make([]byte, inputEventSize*16)

	for {
		select {
		case <-e.stop:
			return
		default:
		}

		n, err := f.Read(buf)
		if err != nil {
			return
		}

		for i := 0; i+inputEventSize <= n; i += inputEventSize {
			evType := binary.LittleEndian.Uint16(buf[i+16:])
			evCode := binary.LittleEndian.Uint16(buf[i+18:])
			evValue := int32(binary.LittleEndian.Uint32(buf[i+20:]))

			if evType != evKey {
				continue
			}
			e.handle(evCode, evValue)
		}
	}
}

func (e *Evdev) handle(code uint16, value int32) {
	if m, ok := evdevMods[code]; ok {
		switch value {
		case keyPress:
			e.tracker.ModDown(m)
		case keyRelease:
			e.tracker.ModUp(m)
		}
		return
	}
	if k, ok := evdevKeys[code]; ok && value == keyPress {
		e.tracker.Press(k)
	}
}

// Close stops every reader.
func (e *Evdev) Close() {
	e.once.Do(func() {
		close(e.stop)
		for _, f := range e.files {
			f.Close()
		}
	})
}

func findKeyboards() ([]string, error) {
	entries, err := os.ReadDir("/dev/input")
	if err != nil {
		return nil, err
	}

	var keyboards []string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "event") {
			continue
		}
		path := filepath.Join("/dev/input", e.Name())
		if isKeyboard(e.Name()) {
			keyboards = append(keyboards, path)
		}
	}
	return keyboards, nil
}

func isKeyboard(eventName string) bool {
	capsPath := filepath.Join("/sys/class/input", eventName, "device", "capabilities", "key")
	data, err := os.ReadFile(capsPath)
	if err != nil {
		return false
	}
	// Real keyboards have long key capability bitmaps
	caps := strings.TrimSpace(string(data))
	return len(caps) > 10
}

// Diagnose checks evdev access and returns a status message.
func Diagnose() (string, error) {
	keyboards, err := findKeyboards()
	if err != nil {
		return "", fmt.Errorf("cannot scan input devices: %w", err)
	}
	if len(keyboards) == 0 {
		return "", fmt.Errorf("no keyboard devices found (is user in 'input' group?)")
	}

	var opened string
	for _, path := range keyboards {
		f, err := os.Open(path)
		if err == nil {
			f.Close()
			opened = path
			break
		}
	}
	if opened == "" {
		return "", fmt.Errorf("found %d keyboard(s) but cannot open any (run: sudo usermod -aG input $USER)", len(keyboards))
	}

	return fmt.Sprintf("%d keyboard(s) found, opened %s", len(keyboards), opened), nil
}
