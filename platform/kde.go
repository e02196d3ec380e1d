package platform

import (
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"

	"chord/hotkey"
	"chord/log"
)

const (
	kdeService        = "org.kde.kglobalaccel"
	kdePath           = "/kglobalaccel"
	kdeIface          = "org.kde.KGlobalAccel"
	kdeComponentIface = "org.kde.kglobalaccel.Component"

	kdeComponent     = "chord"
	kdeComponentName = "Chord"

	// setShortcut flags
	kdeSetPresent    = 2
	kdeNoAutoloading = 4
)

// KDEBackend registers shortcuts with Plasma's kglobalaccel daemon. Each
// handle is one action of the "chord" component.
type KDEBackend struct {
	env  Environment
	conn *dbus.Conn
	obj  dbus.BusObject

	mu       sync.Mutex
	next     uint64
	actions  map[hotkey.Handle]string
	byAction map[string]hotkey.Handle

	activations chan hotkey.Handle
	signals     chan *dbus.Signal
}

// NewKDE connects to the session bus and subscribes to shortcut presses.
func NewKDE(env Environment) (*KDEBackend, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connecting to session bus: %w", err)
	}
	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface(kdeComponentIface),
		dbus.WithMatchMember("globalShortcutPressed"),
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribing to kglobalaccel: %w", err)
	}

	b := &KDEBackend{
		env:         env,
		conn:        conn,
		obj:         conn.Object(kdeService, kdePath),
		actions:     make(map[hotkey.Handle]string),
		byAction:    make(map[string]hotkey.Handle),
		activations: make(chan hotkey.Handle, 16),
		signals:     make(chan *dbus.Signal, 16),
	}
	conn.Signal(b.signals)
	go b.listen()
	return b, nil
}

func (b *KDEBackend) Name() string { return "kde" }

func actionID(action, friendly string) []string {
	return []string{kdeComponent, action, kdeComponentName, friendly}
}

func (b *KDEBackend) Register(def hotkey.Definition) (hotkey.Handle, error) {
	code := qtKeyCode(def)

	var free bool
	if err := b.obj.Call(kdeIface+".isGlobalShortcutAvailable", 0, code, kdeComponent).Store(&free); err != nil {
		return hotkey.Handle{}, hotkey.NewError(hotkey.KindRegistrationFailed, "kglobalaccel availability check failed", err)
	}
	if !free {
		return hotkey.Handle{}, hotkey.NewError(hotkey.KindAlreadyRegistered, def.Accelerator()+" is already assigned in KDE", nil)
	}

	b.mu.Lock()
	b.next++
	h := hotkey.NewHandle("kde", b.next)
	action := fmt.Sprintf("binding-%d", b.next)
	b.mu.Unlock()

	friendly := def.Description()
	if friendly == "" {
		friendly = def.Accelerator()
	}
	id := actionID(action, friendly)
	if err := b.obj.Call(kdeIface+".doRegister", 0, id).Err; err != nil {
		return hotkey.Handle{}, hotkey.NewError(hotkey.KindRegistrationFailed, "kglobalaccel doRegister failed", err)
	}

	var assigned []int32
	if err := b.obj.Call(kdeIface+".setShortcut", 0, id, []int32{code}, uint32(kdeSetPresent|kdeNoAutoloading)).Store(&assigned); err != nil {
		b.drop(action)
		return hotkey.Handle{}, hotkey.NewError(hotkey.KindRegistrationFailed, "kglobalaccel setShortcut failed", err)
	}
	if len(assigned) == 0 || assigned[0] != code {
		b.drop(action)
		return hotkey.Handle{}, hotkey.NewError(hotkey.KindAlreadyRegistered, "KDE did not assign "+def.Accelerator(), nil)
	}

	b.mu.Lock()
	b.actions[h] = action
	b.byAction[action] = h
	b.mu.Unlock()
	return h, nil
}

func (b *KDEBackend) drop(action string) {
	var ok bool
	if err := b.obj.Call(kdeIface+".unregister", 0, kdeComponent, action).Store(&ok); err != nil {
		log.Warnf("kglobalaccel unregister %s: %v", action, err)
	}
}

func (b *KDEBackend) Unregister(h hotkey.Handle) error {
	b.mu.Lock()
	action, ok := b.actions[h]
	b.mu.Unlock()
	if !ok {
		return hotkey.Errorf(hotkey.KindRegistrationFailed, "unknown handle %s", h)
	}

	var removed bool
	if err := b.obj.Call(kdeIface+".unregister", 0, kdeComponent, action).Store(&removed); err != nil {
		return hotkey.NewError(hotkey.KindRegistrationFailed, "kglobalaccel unregister failed", err)
	}
	if !removed {
		log.Warnf("kglobalaccel had no action %s", action)
	}

	b.mu.Lock()
	delete(b.actions, h)
	delete(b.byAction, action)
	b.mu.Unlock()
	return nil
}

// Test asks kglobalaccel whether the key is free without claiming it.
func (b *KDEBackend) Test(def hotkey.Definition) error {
	var free bool
	if err := b.obj.Call(kdeIface+".isGlobalShortcutAvailable", 0, qtKeyCode(def), kdeComponent).Store(&free); err != nil {
		return hotkey.NewError(hotkey.KindRegistrationFailed, "kglobalaccel availability check failed", err)
	}
	if !free {
		return hotkey.NewError(hotkey.KindAlreadyRegistered, def.Accelerator()+" is already assigned in KDE", nil)
	}
	return nil
}

func (b *KDEBackend) CheckPermissions() error {
	if err := CheckLinuxPermissions(b.env); err != nil {
		return err
	}
	var owned bool
	if err := b.conn.BusObject().Call("org.freedesktop.DBus.NameHasOwner", 0, kdeService).Store(&owned); err != nil {
		return hotkey.NewError(hotkey.KindAPIUnavailable, "cannot query the session bus", err)
	}
	if !owned {
		return hotkey.NewError(hotkey.KindAPIUnavailable, "kglobalaccel is not running on the session bus", nil)
	}
	return nil
}

func (b *KDEBackend) FormatError(err error) string { return FormatLinuxError(b.env, err) }

func (b *KDEBackend) Activations() <-chan hotkey.Handle { return b.activations }

func (b *KDEBackend) listen() {
	for sig := range b.signals {
		if sig.Name != kdeComponentIface+".globalShortcutPressed" || len(sig.Body) < 2 {
			continue
		}
		component, _ := sig.Body[0].(string)
		action, _ := sig.Body[1].(string)
		if component != kdeComponent {
			continue
		}
		b.mu.Lock()
		h, ok := b.byAction[action]
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

func (b *KDEBackend) Close() error {
	b.mu.Lock()
	handles := make([]hotkey.Handle, 0, len(b.actions))
	for h := range b.actions {
		handles = append(handles, h)
	}
	b.mu.Unlock()

	var first error
	for _, h := range handles {
		if err := b.Unregister(h); err != nil && first == nil {
			first = err
		}
	}
	b.conn.RemoveSignal(b.signals)
	close(b.signals)
	if err := b.conn.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
