package hotkey

import (
	"fmt"

	"github.com/google/uuid"
)

// BindingID identifies the owner of a binding. It is opaque to the
// subsystem: a UI entity, a profile entry name, or a minted uuid.
type BindingID string

// NewBindingID mints a fresh identity for callers that have none.
func NewBindingID() BindingID {
	return BindingID(uuid.NewString())
}

// Handle is the token a Backend returns for a live OS registration. Only
// backends mint handles; everyone else passes them back unmodified.
type Handle struct {
	backend string
	id      uint64
}

// NewHandle is for Backend implementations.
func NewHandle(backend string, id uint64) Handle {
	return Handle{backend: backend, id: id}
}

func (h Handle) IsZero() bool    { return h.id == 0 }
func (h Handle) Backend() string { return h.backend }
func (h Handle) ID() uint64      { return h.id }

func (h Handle) String() string {
	if h.IsZero() {
		return "handle(none)"
	}
	return fmt.Sprintf("%s#%d", h.backend, h.id)
}

// State is a binding's position in the registration state machine.
type State int

const (
	Idle State = iota
	PendingRegistration
	Registered
	PendingUnregistration
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case PendingRegistration:
		return "pending_registration"
	case Registered:
		return "registered"
	case PendingUnregistration:
		return "pending_unregistration"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Pending reports whether an operation is in flight.
func (s State) Pending() bool {
	return s == PendingRegistration || s == PendingUnregistration
}

// Status is the registration status of a binding. Handle is set only while
// Registered or PendingUnregistration; Err only while Failed.
type Status struct {
	State  State
	Handle Handle
	Err    error
}

func (s Status) String() string {
	switch s.State {
	case Registered:
		return fmt.Sprintf("registered(%s)", s.Handle)
	case Failed:
		if s.Err != nil {
			return fmt.Sprintf("failed(%v)", s.Err)
		}
	}
	return s.State.String()
}

// Binding pairs a definition with its owner and registration status.
type Binding struct {
	ID         BindingID
	Definition Definition
	Status     Status
}

// NewBinding returns an Idle binding.
func NewBinding(id BindingID, def Definition) Binding {
	return Binding{ID: id, Definition: def}
}
