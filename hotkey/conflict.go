package hotkey

import "fmt"

// ConflictKind is the outcome class of a conflict check.
type ConflictKind int

const (
	NoConflict ConflictKind = iota
	SystemReserved
	BoundByOther
)

func (k ConflictKind) String() string {
	switch k {
	case SystemReserved:
		return "system_reserved"
	case BoundByOther:
		return "bound_by_other"
	}
	return "no_conflict"
}

// ConflictRecord is the result of checking a definition for conflicts.
// Description is set for SystemReserved, Existing for BoundByOther.
type ConflictRecord struct {
	Kind        ConflictKind
	Combo       Combo
	Description string
	Existing    BindingID
}

// Clear reports whether the check found no conflict.
func (r ConflictRecord) Clear() bool { return r.Kind == NoConflict }

func (r ConflictRecord) String() string {
	switch r.Kind {
	case SystemReserved:
		return fmt.Sprintf("%s is reserved by the system (%s)", r.Combo, r.Description)
	case BoundByOther:
		return fmt.Sprintf("%s is already bound by %s", r.Combo, r.Existing)
	}
	return fmt.Sprintf("%s is free", r.Combo)
}

// Err converts a conflict into an AlreadyRegistered error, nil when clear.
// Reserved combinations wrap ErrSystemReserved.
func (r ConflictRecord) Err() error {
	switch r.Kind {
	case NoConflict:
		return nil
	case SystemReserved:
		return NewError(KindAlreadyRegistered, fmt.Sprintf("%s is reserved for %s", r.Combo, r.Description), ErrSystemReserved)
	}
	return NewError(KindAlreadyRegistered, r.String(), nil)
}
