package platform

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

// BusServices reports which hotkey services own a name on the session bus.
func BusServices() (map[string]bool, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connecting to session bus: %w", err)
	}
	defer conn.Close()

	out := make(map[string]bool, 2)
	for _, name := range []string{kdeService, portalService} {
		var owned bool
		if err := conn.BusObject().Call("org.freedesktop.DBus.NameHasOwner", 0, name).Store(&owned); err != nil {
			return nil, fmt.Errorf("querying %s: %w", name, err)
		}
		out[name] = owned
	}
	return out, nil
}
