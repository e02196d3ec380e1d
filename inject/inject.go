//go:build windows || (cgo && (linux || darwin))

// Package inject synthesizes key combinations so a registration can be
// exercised without a human at the keyboard.
package inject

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/micmonay/keybd_event"

	"chord/hotkey"
)

var (
	kb     keybd_event.KeyBonding
	kbOnce sync.Once
	kbErr  error
)

// Init creates the virtual keyboard. On Linux the uinput device needs a
// moment before the compositor routes its events.
func Init() error {
	kbOnce.Do(func() {
		kb, kbErr = keybd_event.NewKeyBonding()
		if kbErr == nil && runtime.GOOS == "linux" {
			time.Sleep(2 * time.Second)
		}
	})
	return kbErr
}

// Send presses and releases def once.
func Send(def hotkey.Definition) error {
	code, ok := vk(def.Key())
	if !ok {
		return fmt.Errorf("inject: cannot synthesize %s", def.Key())
	}
	if err := Init(); err != nil {
		return fmt.Errorf("inject: %w", err)
	}
	mods := def.Modifiers()
	kb.Clear()
	kb.SetKeys(code)
	kb.HasCTRL(mods.Has(hotkey.ModCtrl))
	kb.HasALT(mods.Has(hotkey.ModAlt))
	kb.HasSHIFT(mods.Has(hotkey.ModShift))
	kb.HasSuper(mods.Has(hotkey.ModSuper))
	return kb.Launching()
}

// Supported reports whether k can be synthesized.
func Supported(k hotkey.Key) bool {
	_, ok := vk(k)
	return ok
}

func vk(k hotkey.Key) (int, bool) {
	switch {
	case k >= hotkey.KeyA && k <= hotkey.KeyZ:
		return letters[k-hotkey.KeyA], true
	case k >= hotkey.Key0 && k <= hotkey.Key9:
		return digits[k-hotkey.Key0], true
	case k >= hotkey.KeyF1 && k <= hotkey.KeyF12:
		return functions[k-hotkey.KeyF1], true
	case k == hotkey.KeySpace:
		return keybd_event.VK_SPACE, true
	}
	return 0, false
}

var letters = [...]int{
	keybd_event.VK_A, keybd_event.VK_B, keybd_event.VK_C, keybd_event.VK_D,
	keybd_event.VK_E, keybd_event.VK_F, keybd_event.VK_G, keybd_event.VK_H,
	keybd_event.VK_I, keybd_event.VK_J, keybd_event.VK_K, keybd_event.VK_L,
	keybd_event.VK_M, keybd_event.VK_N, keybd_event.VK_O, keybd_event.VK_P,
	keybd_event.VK_Q, keybd_event.VK_R, keybd_event.VK_S, keybd_event.VK_T,
	keybd_event.VK_U, keybd_event.VK_V, keybd_event.VK_W, keybd_event.VK_X,
	keybd_event.VK_Y, keybd_event.VK_Z,
}

var digits = [...]int{
	keybd_event.VK_0, keybd_event.VK_1, keybd_event.VK_2, keybd_event.VK_3,
	keybd_event.VK_4, keybd_event.VK_5, keybd_event.VK_6, keybd_event.VK_7,
	keybd_event.VK_8, keybd_event.VK_9,
}

var functions = [...]int{
	keybd_event.VK_F1, keybd_event.VK_F2, keybd_event.VK_F3, keybd_event.VK_F4,
	keybd_event.VK_F5, keybd_event.VK_F6, keybd_event.VK_F7, keybd_event.VK_F8,
	keybd_event.VK_F9, keybd_event.VK_F10, keybd_event.VK_F11, keybd_event.VK_F12,
}
