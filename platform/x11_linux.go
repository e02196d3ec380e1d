package platform

import (
	"errors"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"

	"chord/hotkey"
	"chord/log"
)

// X11 keysyms for the keys a Definition can carry.
const (
	xkSpace  = 0x0020
	xkReturn = 0xff0d
	xkEscape = 0xff1b
	xkTab    = 0xff09
	xkDelete = 0xffff
	xkLeft   = 0xff51
	xkUp     = 0xff52
	xkRight  = 0xff53
	xkDown   = 0xff54
	xkF1     = 0xffbe
)

// CapsLock and NumLock change the modifier state of every key press, so
// each grab is repeated for every combination of the two.
const lockMask = xproto.ModMaskLock | xproto.ModMask2

func x11Keysym(k hotkey.Key) (xproto.Keysym, bool) {
	switch {
	case k >= hotkey.KeyA && k <= hotkey.KeyZ:
		return 'a' + xproto.Keysym(k-hotkey.KeyA), true
	case k >= hotkey.Key0 && k <= hotkey.Key9:
		return '0' + xproto.Keysym(k-hotkey.Key0), true
	case k >= hotkey.KeyF1 && k <= hotkey.KeyF12:
		return xkF1 + xproto.Keysym(k-hotkey.KeyF1), true
	}
	switch k {
	case hotkey.KeySpace:
		return xkSpace, true
	case hotkey.KeyReturn:
		return xkReturn, true
	case hotkey.KeyEscape:
		return xkEscape, true
	case hotkey.KeyTab:
		return xkTab, true
	case hotkey.KeyDelete:
		return xkDelete, true
	case hotkey.KeyLeft:
		return xkLeft, true
	case hotkey.KeyUp:
		return xkUp, true
	case hotkey.KeyRight:
		return xkRight, true
	case hotkey.KeyDown:
		return xkDown, true
	}
	return 0, false
}

func x11Mods(m hotkey.Modifier) uint16 {
	var mask uint16
	if m.Has(hotkey.ModCtrl) {
		mask |= xproto.ModMaskControl
	}
	if m.Has(hotkey.ModAlt) {
		mask |= xproto.ModMask1
	}
	if m.Has(hotkey.ModShift) {
		mask |= xproto.ModMaskShift
	}
	if m.Has(hotkey.ModSuper) {
		mask |= xproto.ModMask4
	}
	return mask
}

// lockVariants returns mods with every combination of the lock masks.
func lockVariants(mods uint16) []uint16 {
	return []uint16{
		mods,
		mods | xproto.ModMaskLock,
		mods | xproto.ModMask2,
		mods | xproto.ModMaskLock | xproto.ModMask2,
	}
}

// keycodeTable maps each keysym to the lowest keycode producing it, given
// a GetKeyboardMapping reply starting at first.
func keycodeTable(first xproto.Keycode, perCode byte, syms []xproto.Keysym) map[xproto.Keysym]xproto.Keycode {
	table := make(map[xproto.Keysym]xproto.Keycode)
	if perCode == 0 {
		return table
	}
	for i, sym := range syms {
		if sym == 0 {
			continue
		}
		code := first + xproto.Keycode(i/int(perCode))
		if _, ok := table[sym]; !ok {
			table[sym] = code
		}
	}
	return table
}

type x11Grab struct {
	code xproto.Keycode
	mods uint16
}

// x11Backend grabs keys on the root window over a pure-Go X protocol
// connection.
type x11Backend struct {
	env  Environment
	conn *xgb.Conn
	root xproto.Window
	keys map[xproto.Keysym]xproto.Keycode

	mu     sync.Mutex
	next   uint64
	grabs  map[hotkey.Handle]x11Grab
	byGrab map[x11Grab]hotkey.Handle

	activations chan hotkey.Handle
}

// newX11 connects to env's display. A session whose X server cannot be
// reached gets a backend that reports why.
func newX11(env Environment) hotkey.Backend {
	b, err := dialX11(env)
	if err != nil {
		log.Warnf("X11 unavailable: %v", err)
		return newUnavailable("x11",
			hotkey.NewError(hotkey.KindAPIUnavailable, "cannot connect to the X server at DISPLAY="+env.Display, err),
			func(err error) string { return FormatLinuxError(env, err) })
	}
	return b
}

func dialX11(env Environment) (*x11Backend, error) {
	conn, err := xgb.NewConnDisplay(env.Display)
	if err != nil {
		return nil, err
	}
	setup := xproto.Setup(conn)
	count := int(setup.MaxKeycode) - int(setup.MinKeycode) + 1
	mapping, err := xproto.GetKeyboardMapping(conn, setup.MinKeycode, byte(count)).Reply()
	if err != nil {
		conn.Close()
		return nil, err
	}

	b := &x11Backend{
		env:         env,
		conn:        conn,
		root:        setup.DefaultScreen(conn).Root,
		keys:        keycodeTable(setup.MinKeycode, mapping.KeysymsPerKeycode, mapping.Keysyms),
		grabs:       make(map[hotkey.Handle]x11Grab),
		byGrab:      make(map[x11Grab]hotkey.Handle),
		activations: make(chan hotkey.Handle, 16),
	}
	go b.listen()
	return b, nil
}

func (b *x11Backend) Name() string { return "x11" }

func (b *x11Backend) resolve(def hotkey.Definition) (x11Grab, error) {
	sym, ok := x11Keysym(def.Key())
	if !ok {
		return x11Grab{}, hotkey.Errorf(hotkey.KindRegistrationFailed, "key %s has no X11 keysym", def.Key())
	}
	code, ok := b.keys[sym]
	if !ok {
		return x11Grab{}, hotkey.Errorf(hotkey.KindRegistrationFailed, "no keycode produces %s on this keyboard layout", def.Key())
	}
	return x11Grab{code: code, mods: x11Mods(def.Modifiers())}, nil
}

// grab takes every lock variant of g or none of them.
func (b *x11Backend) grab(def hotkey.Definition, g x11Grab) error {
	var done []uint16
	for _, mods := range lockVariants(g.mods) {
		err := xproto.GrabKeyChecked(b.conn, true, b.root, mods, g.code, xproto.GrabModeAsync, xproto.GrabModeAsync).Check()
		if err == nil {
			done = append(done, mods)
			continue
		}
		for _, m := range done {
			xproto.UngrabKeyChecked(b.conn, g.code, b.root, m).Check()
		}
		var access xproto.AccessError
		if errors.As(err, &access) {
			return hotkey.NewError(hotkey.KindAlreadyRegistered, def.Accelerator()+" is in use by another application", err)
		}
		return hotkey.NewError(hotkey.KindRegistrationFailed, "XGrabKey failed", err)
	}
	return nil
}

func (b *x11Backend) ungrab(g x11Grab) error {
	var first error
	for _, mods := range lockVariants(g.mods) {
		if err := xproto.UngrabKeyChecked(b.conn, g.code, b.root, mods).Check(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (b *x11Backend) Register(def hotkey.Definition) (hotkey.Handle, error) {
	g, err := b.resolve(def)
	if err != nil {
		return hotkey.Handle{}, err
	}
	if err := b.grab(def, g); err != nil {
		return hotkey.Handle{}, err
	}

	b.mu.Lock()
	b.next++
	h := hotkey.NewHandle("x11", b.next)
	b.grabs[h] = g
	b.byGrab[g] = h
	b.mu.Unlock()
	return h, nil
}

func (b *x11Backend) Unregister(h hotkey.Handle) error {
	b.mu.Lock()
	g, ok := b.grabs[h]
	b.mu.Unlock()
	if !ok {
		return hotkey.Errorf(hotkey.KindRegistrationFailed, "unknown handle %s", h)
	}
	if err := b.ungrab(g); err != nil {
		return hotkey.NewError(hotkey.KindRegistrationFailed, "XUngrabKey failed", err)
	}
	b.mu.Lock()
	delete(b.grabs, h)
	delete(b.byGrab, g)
	b.mu.Unlock()
	return nil
}

// Test grabs and immediately releases def.
func (b *x11Backend) Test(def hotkey.Definition) error {
	g, err := b.resolve(def)
	if err != nil {
		return err
	}
	if err := b.grab(def, g); err != nil {
		return err
	}
	return b.ungrab(g)
}

func (b *x11Backend) CheckPermissions() error { return CheckLinuxPermissions(b.env) }

func (b *x11Backend) FormatError(err error) string { return FormatLinuxError(b.env, err) }

func (b *x11Backend) Activations() <-chan hotkey.Handle { return b.activations }

func (b *x11Backend) listen() {
	for {
		ev, xerr := b.conn.WaitForEvent()
		if ev == nil && xerr == nil {
			return
		}
		if xerr != nil {
			log.Warnf("X11: %v", xerr)
			continue
		}
		press, ok := ev.(xproto.KeyPressEvent)
		if !ok {
			continue
		}
		g := x11Grab{code: press.Detail, mods: press.State &^ lockMask & 0xff}
		b.mu.Lock()
		h, ok := b.byGrab[g]
		b.mu.Unlock()
		if !ok {
			continue
		}
		select {
		case b.activations <- h:
		default:
		}
	}
}

func (b *x11Backend) Close() error {
	b.mu.Lock()
	handles := make([]hotkey.Handle, 0, len(b.grabs))
	for h := range b.grabs {
		handles = append(handles, h)
	}
	b.mu.Unlock()

	var first error
	for _, h := range handles {
		if err := b.Unregister(h); err != nil && first == nil {
			first = err
		}
	}
	b.conn.Close()
	return first
}
