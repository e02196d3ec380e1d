package platform

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"chord/hotkey"
	"chord/log"
)

const (
	portalService = "org.freedesktop.portal.Desktop"
	portalPath    = "/org/freedesktop/portal/desktop"
	portalIface   = "org.freedesktop.portal.GlobalShortcuts"
	requestIface  = "org.freedesktop.portal.Request"
	sessionIface  = "org.freedesktop.portal.Session"

	// Binding may show a confirmation dialog, so the wait is generous.
	defaultPortalTimeout = 30 * time.Second
)

type portalResponse struct {
	code    uint32
	results map[string]dbus.Variant
}

// portalShortcut marshals as the (sa{sv}) struct BindShortcuts takes.
type portalShortcut struct {
	ID    string
	Props map[string]dbus.Variant
}

// PortalBackend binds shortcuts through the XDG desktop portal. Each
// handle owns one portal session holding a single shortcut; closing the
// session releases it.
type PortalBackend struct {
	env     Environment
	conn    *dbus.Conn
	obj     dbus.BusObject
	Timeout time.Duration

	mu        sync.Mutex
	next      uint64
	sessions  map[hotkey.Handle]dbus.ObjectPath
	bySession map[dbus.ObjectPath]hotkey.Handle
	waiters   map[dbus.ObjectPath]chan portalResponse

	activations chan hotkey.Handle
	signals     chan *dbus.Signal
}

// NewPortal connects to the session bus and subscribes to request
// responses and shortcut activations.
func NewPortal(env Environment) (*PortalBackend, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connecting to session bus: %w", err)
	}
	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface(requestIface),
		dbus.WithMatchMember("Response"),
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribing to portal responses: %w", err)
	}
	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(portalPath),
		dbus.WithMatchInterface(portalIface),
		dbus.WithMatchMember("Activated"),
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribing to portal activations: %w", err)
	}

	b := &PortalBackend{
		env:         env,
		conn:        conn,
		obj:         conn.Object(portalService, portalPath),
		Timeout:     defaultPortalTimeout,
		sessions:    make(map[hotkey.Handle]dbus.ObjectPath),
		bySession:   make(map[dbus.ObjectPath]hotkey.Handle),
		waiters:     make(map[dbus.ObjectPath]chan portalResponse),
		activations: make(chan hotkey.Handle, 16),
		signals:     make(chan *dbus.Signal, 16),
	}
	conn.Signal(b.signals)
	go b.listen()
	return b, nil
}

func (b *PortalBackend) Name() string { return "portal" }

// requestPath predicts the Request object the portal will create for
// token, so the response cannot arrive before we listen for it.
func requestPath(sender, token string) dbus.ObjectPath {
	s := strings.ReplaceAll(strings.TrimPrefix(sender, ":"), ".", "_")
	return dbus.ObjectPath(portalPath + "/request/" + s + "/" + token)
}

func (b *PortalBackend) request(method, token string, args ...any) (portalResponse, error) {
	names := b.conn.Names()
	if len(names) == 0 {
		return portalResponse{}, hotkey.NewError(hotkey.KindAPIUnavailable, "session bus connection has no name", nil)
	}
	want := requestPath(names[0], token)
	ch := make(chan portalResponse, 1)
	b.mu.Lock()
	b.waiters[want] = ch
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.waiters, want)
		b.mu.Unlock()
	}()

	var got dbus.ObjectPath
	if err := b.obj.Call(portalIface+"."+method, 0, args...).Store(&got); err != nil {
		return portalResponse{}, hotkey.NewError(hotkey.KindRegistrationFailed, "portal "+method+" failed", err)
	}
	if got != want {
		// Portals older than 0.9 ignore handle_token.
		b.mu.Lock()
		b.waiters[got] = ch
		b.mu.Unlock()
		defer func() {
			b.mu.Lock()
			delete(b.waiters, got)
			b.mu.Unlock()
		}()
	}

	timer := time.NewTimer(b.Timeout)
	defer timer.Stop()
	select {
	case r := <-ch:
		return r, nil
	case <-timer.C:
		return portalResponse{}, hotkey.Errorf(hotkey.KindTimeout, "portal %s timed out after %s", method, b.Timeout)
	}
}

func (b *PortalBackend) Register(def hotkey.Definition) (hotkey.Handle, error) {
	b.mu.Lock()
	b.next++
	n := b.next
	b.mu.Unlock()

	token := fmt.Sprintf("chord_create_%d", n)
	r, err := b.request("CreateSession", token, map[string]dbus.Variant{
		"handle_token":         dbus.MakeVariant(token),
		"session_handle_token": dbus.MakeVariant(fmt.Sprintf("chord_session_%d", n)),
	})
	if err != nil {
		return hotkey.Handle{}, err
	}
	if r.code != 0 {
		return hotkey.Handle{}, responseError("CreateSession", r.code)
	}
	session, err := sessionHandle(r.results)
	if err != nil {
		return hotkey.Handle{}, err
	}

	desc := def.Description()
	if desc == "" {
		desc = def.Accelerator()
	}
	id := fmt.Sprintf("binding-%d", n)
	shortcuts := []portalShortcut{{
		ID: id,
		Props: map[string]dbus.Variant{
			"description":       dbus.MakeVariant(desc),
			"preferred_trigger": dbus.MakeVariant(portalTrigger(def)),
		},
	}}
	token = fmt.Sprintf("chord_bind_%d", n)
	r, err = b.request("BindShortcuts", token, session, shortcuts, "", map[string]dbus.Variant{
		"handle_token": dbus.MakeVariant(token),
	})
	if err != nil {
		b.closeSession(session)
		return hotkey.Handle{}, err
	}
	if r.code != 0 {
		b.closeSession(session)
		return hotkey.Handle{}, responseError("BindShortcuts", r.code)
	}
	if !bound(r.results, id) {
		b.closeSession(session)
		return hotkey.Handle{}, hotkey.NewError(hotkey.KindAlreadyRegistered, "the desktop declined "+def.Accelerator(), nil)
	}

	h := hotkey.NewHandle("portal", n)
	b.mu.Lock()
	b.sessions[h] = session
	b.bySession[session] = h
	b.mu.Unlock()
	return h, nil
}

func responseError(method string, code uint32) error {
	if code == 1 {
		return hotkey.Errorf(hotkey.KindPermissionDenied, "portal %s was dismissed by the user", method)
	}
	return hotkey.Errorf(hotkey.KindRegistrationFailed, "portal %s ended with response %d", method, code)
}

func sessionHandle(results map[string]dbus.Variant) (dbus.ObjectPath, error) {
	v, ok := results["session_handle"]
	if !ok {
		return "", hotkey.NewError(hotkey.KindRegistrationFailed, "portal returned no session handle", nil)
	}
	switch s := v.Value().(type) {
	case string:
		return dbus.ObjectPath(s), nil
	case dbus.ObjectPath:
		return s, nil
	}
	return "", hotkey.Errorf(hotkey.KindRegistrationFailed, "unexpected session handle type %s", v.Signature())
}

// bound reports whether the BindShortcuts results list id.
func bound(results map[string]dbus.Variant, id string) bool {
	v, ok := results["shortcuts"]
	if !ok {
		return false
	}
	var list []portalShortcut
	if err := dbus.Store([]any{v.Value()}, &list); err != nil {
		log.Warnf("decoding portal shortcuts: %v", err)
		return false
	}
	for _, s := range list {
		if s.ID == id {
			return true
		}
	}
	return false
}

func (b *PortalBackend) closeSession(session dbus.ObjectPath) error {
	return b.conn.Object(portalService, session).Call(sessionIface+".Close", 0).Err
}

func (b *PortalBackend) Unregister(h hotkey.Handle) error {
	b.mu.Lock()
	session, ok := b.sessions[h]
	b.mu.Unlock()
	if !ok {
		return hotkey.Errorf(hotkey.KindRegistrationFailed, "unknown handle %s", h)
	}
	if err := b.closeSession(session); err != nil {
		return hotkey.NewError(hotkey.KindRegistrationFailed, "closing portal session", err)
	}
	b.mu.Lock()
	delete(b.sessions, h)
	delete(b.bySession, session)
	b.mu.Unlock()
	return nil
}

// Test verifies the portal exposes GlobalShortcuts. The portal has no dry
// run; the user confirms the actual trigger when binding.
func (b *PortalBackend) Test(hotkey.Definition) error {
	return b.probe()
}

func (b *PortalBackend) probe() error {
	if _, err := b.obj.GetProperty(portalIface + ".version"); err != nil {
		return hotkey.NewError(hotkey.KindAPIUnavailable, "the desktop portal has no GlobalShortcuts interface on this Wayland compositor", err)
	}
	return nil
}

func (b *PortalBackend) CheckPermissions() error {
	if err := CheckLinuxPermissions(b.env); err != nil {
		return err
	}
	return b.probe()
}

func (b *PortalBackend) FormatError(err error) string { return FormatLinuxError(b.env, err) }

func (b *PortalBackend) Activations() <-chan hotkey.Handle { return b.activations }

func (b *PortalBackend) listen() {
	for sig := range b.signals {
		switch sig.Name {
		case requestIface + ".Response":
			if len(sig.Body) < 2 {
				continue
			}
			code, _ := sig.Body[0].(uint32)
			results, _ := sig.Body[1].(map[string]dbus.Variant)
			b.mu.Lock()
			ch, ok := b.waiters[sig.Path]
			b.mu.Unlock()
			if ok {
				select {
				case ch <- portalResponse{code: code, results: results}:
				default:
				}
			}
		case portalIface + ".Activated":
			if len(sig.Body) < 1 {
				continue
			}
			session, _ := sig.Body[0].(dbus.ObjectPath)
			b.mu.Lock()
			h, ok := b.bySession[session]
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
}

func (b *PortalBackend) Close() error {
	b.mu.Lock()
	handles := make([]hotkey.Handle, 0, len(b.sessions))
	for h := range b.sessions {
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
