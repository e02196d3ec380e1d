//go:build windows || (cgo && (linux || darwin))

package inject

import (
	"testing"

	"chord/hotkey"
)

func TestSupported(t *testing.T) {
	for _, k := range []hotkey.Key{hotkey.KeyA, hotkey.KeyZ, hotkey.Key0, hotkey.Key9, hotkey.KeyF1, hotkey.KeyF12, hotkey.KeySpace} {
		if !Supported(k) {
			t.Errorf("%s should be supported", k)
		}
	}
	for _, k := range []hotkey.Key{hotkey.KeyNone, hotkey.KeyEscape, hotkey.KeyLeft} {
		if Supported(k) {
			t.Errorf("%s should not be supported", k)
		}
	}
}

func TestLettersAreDistinct(t *testing.T) {
	seen := map[int]bool{}
	for _, code := range letters {
		if seen[code] {
			t.Fatalf("duplicate code %d", code)
		}
		seen[code] = true
	}
}

func TestSendRejectsUnsupportedKey(t *testing.T) {
	def := hotkey.NewDefinition(hotkey.ModCtrl, hotkey.KeyEscape, "")
	if err := Send(def); err == nil {
		t.Error("expected an error")
	}
}
