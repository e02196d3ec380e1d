//go:build windows || darwin

package platform

import (
	"fmt"
	"sync"

	xhotkey "golang.design/x/hotkey"

	"chord/hotkey"
)

var xKeys = map[hotkey.Key]xhotkey.Key{
	hotkey.KeyA: xhotkey.KeyA, hotkey.KeyB: xhotkey.KeyB, hotkey.KeyC: xhotkey.KeyC,
	hotkey.KeyD: xhotkey.KeyD, hotkey.KeyE: xhotkey.KeyE, hotkey.KeyF: xhotkey.KeyF,
	hotkey.KeyG: xhotkey.KeyG, hotkey.KeyH: xhotkey.KeyH, hotkey.KeyI: xhotkey.KeyI,
	hotkey.KeyJ: xhotkey.KeyJ, hotkey.KeyK: xhotkey.KeyK, hotkey.KeyL: xhotkey.KeyL,
	hotkey.KeyM: xhotkey.KeyM, hotkey.KeyN: xhotkey.KeyN, hotkey.KeyO: xhotkey.KeyO,
	hotkey.KeyP: xhotkey.KeyP, hotkey.KeyQ: xhotkey.KeyQ, hotkey.KeyR: xhotkey.KeyR,
	hotkey.KeyS: xhotkey.KeyS, hotkey.KeyT: xhotkey.KeyT, hotkey.KeyU: xhotkey.KeyU,
	hotkey.KeyV: xhotkey.KeyV, hotkey.KeyW: xhotkey.KeyW, hotkey.KeyX: xhotkey.KeyX,
	hotkey.KeyY: xhotkey.KeyY, hotkey.KeyZ: xhotkey.KeyZ,

	hotkey.Key0: xhotkey.Key0, hotkey.Key1: xhotkey.Key1, hotkey.Key2: xhotkey.Key2,
	hotkey.Key3: xhotkey.Key3, hotkey.Key4: xhotkey.Key4, hotkey.Key5: xhotkey.Key5,
	hotkey.Key6: xhotkey.Key6, hotkey.Key7: xhotkey.Key7, hotkey.Key8: xhotkey.Key8,
	hotkey.Key9: xhotkey.Key9,

	hotkey.KeySpace:  xhotkey.KeySpace,
	hotkey.KeyReturn: xhotkey.KeyReturn,
	hotkey.KeyEscape: xhotkey.KeyEscape,
	hotkey.KeyTab:    xhotkey.KeyTab,
	hotkey.KeyDelete: xhotkey.KeyDelete,
	hotkey.KeyLeft:   xhotkey.KeyLeft,
	hotkey.KeyRight:  xhotkey.KeyRight,
	hotkey.KeyUp:     xhotkey.KeyUp,
	hotkey.KeyDown:   xhotkey.KeyDown,

	hotkey.KeyF1: xhotkey.KeyF1, hotkey.KeyF2: xhotkey.KeyF2, hotkey.KeyF3: xhotkey.KeyF3,
	hotkey.KeyF4: xhotkey.KeyF4, hotkey.KeyF5: xhotkey.KeyF5, hotkey.KeyF6: xhotkey.KeyF6,
	hotkey.KeyF7: xhotkey.KeyF7, hotkey.KeyF8: xhotkey.KeyF8, hotkey.KeyF9: xhotkey.KeyF9,
	hotkey.KeyF10: xhotkey.KeyF10, hotkey.KeyF11: xhotkey.KeyF11, hotkey.KeyF12: xhotkey.KeyF12,
}

func toX(def hotkey.Definition) ([]xhotkey.Modifier, xhotkey.Key, error) {
	key, ok := xKeys[def.Key()]
	if !ok {
		return nil, 0, hotkey.Errorf(hotkey.KindRegistrationFailed, "key %s has no native code", def.Key())
	}
	var mods []xhotkey.Modifier
	for _, m := range def.Modifiers().List() {
		mods = append(mods, xMods[m])
	}
	return mods, key, nil
}

type xRegistration struct {
	hk   *xhotkey.Hotkey
	stop chan struct{}
}

// xBackend drives golang.design/x/hotkey: RegisterHotKey on Windows and
// the Carbon event handler on macOS.
type xBackend struct {
	name   string
	perm   func() error
	format func(error) string

	// classify maps a raw library error to a typed one.
	classify func(def hotkey.Definition, err error) error

	mu          sync.Mutex
	next        uint64
	live        map[hotkey.Handle]*xRegistration
	activations chan hotkey.Handle
}

func newXBackend(name string, perm func() error, format func(error) string, classify func(hotkey.Definition, error) error) *xBackend {
	return &xBackend{
		name:        name,
		perm:        perm,
		format:      format,
		classify:    classify,
		live:        make(map[hotkey.Handle]*xRegistration),
		activations: make(chan hotkey.Handle, 16),
	}
}

func (b *xBackend) Name() string { return b.name }

func (b *xBackend) Register(def hotkey.Definition) (hotkey.Handle, error) {
	mods, key, err := toX(def)
	if err != nil {
		return hotkey.Handle{}, err
	}
	hk := xhotkey.New(mods, key)
	if err := hk.Register(); err != nil {
		return hotkey.Handle{}, b.classify(def, err)
	}

	b.mu.Lock()
	b.next++
	h := hotkey.NewHandle(b.name, b.next)
	reg := &xRegistration{hk: hk, stop: make(chan struct{})}
	b.live[h] = reg
	b.mu.Unlock()

	go b.forward(h, reg)
	return h, nil
}

func (b *xBackend) forward(h hotkey.Handle, reg *xRegistration) {
	for {
		select {
		case <-reg.stop:
			return
		case <-reg.hk.Keydown():
			select {
			case b.activations <- h:
			default:
			}
		}
	}
}

func (b *xBackend) Unregister(h hotkey.Handle) error {
	b.mu.Lock()
	reg, ok := b.live[h]
	b.mu.Unlock()
	if !ok {
		return hotkey.Errorf(hotkey.KindRegistrationFailed, "unknown handle %s", h)
	}
	if err := reg.hk.Unregister(); err != nil {
		return hotkey.NewError(hotkey.KindRegistrationFailed, "unregister failed", err)
	}
	close(reg.stop)

	b.mu.Lock()
	delete(b.live, h)
	b.mu.Unlock()
	return nil
}

// Test grabs and immediately releases def.
func (b *xBackend) Test(def hotkey.Definition) error {
	mods, key, err := toX(def)
	if err != nil {
		return err
	}
	hk := xhotkey.New(mods, key)
	if err := hk.Register(); err != nil {
		return b.classify(def, err)
	}
	if err := hk.Unregister(); err != nil {
		return fmt.Errorf("releasing probe of %s: %w", def.Accelerator(), err)
	}
	return nil
}

func (b *xBackend) CheckPermissions() error {
	if b.perm == nil {
		return nil
	}
	return b.perm()
}

func (b *xBackend) FormatError(err error) string { return b.format(err) }

func (b *xBackend) Activations() <-chan hotkey.Handle { return b.activations }

func (b *xBackend) Close() error {
	b.mu.Lock()
	handles := make([]hotkey.Handle, 0, len(b.live))
	for h := range b.live {
		handles = append(handles, h)
	}
	b.mu.Unlock()

	var first error
	for _, h := range handles {
		if err := b.Unregister(h); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// inUse classifies an x/hotkey registration error. The library reports a
// combination owned by another client as a plain error.
func inUse(def hotkey.Definition, err error) error {
	return hotkey.NewError(hotkey.KindAlreadyRegistered,
		def.Accelerator()+" is in use by another application", err)
}
