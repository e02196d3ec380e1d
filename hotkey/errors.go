package hotkey

import (
	"errors"
	"fmt"
)

// Kind classifies backend and registry failures.
type Kind int

const (
	KindRegistrationFailed Kind = iota
	KindPermissionDenied
	KindAPIUnavailable
	KindAlreadyRegistered
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindPermissionDenied:
		return "PermissionDenied"
	case KindAPIUnavailable:
		return "ApiUnavailable"
	case KindAlreadyRegistered:
		return "AlreadyRegistered"
	case KindTimeout:
		return "Timeout"
	default:
		return "RegistrationFailed"
	}
}

// Error is the typed error every Backend returns. Its text starts with the
// kind name so platform formatters can match on it.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind when target is a bare sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Reason == "" && t.Err == nil && t.Kind == e.Kind
}

var (
	ErrPermissionDenied   = &Error{Kind: KindPermissionDenied}
	ErrAPIUnavailable     = &Error{Kind: KindAPIUnavailable}
	ErrAlreadyRegistered  = &Error{Kind: KindAlreadyRegistered}
	ErrRegistrationFailed = &Error{Kind: KindRegistrationFailed}
	ErrTimeout            = &Error{Kind: KindTimeout}
)

// ErrOperationInProgress rejects a request on a binding that already has
// an operation in flight.
var ErrOperationInProgress = errors.New("operation in progress")

// ErrSystemReserved is wrapped by errors for combinations the operating
// system or desktop keeps for itself.
var ErrSystemReserved = errors.New("system shortcut")

// NewError builds a typed error.
func NewError(kind Kind, reason string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}

// Errorf builds a typed error with a formatted reason.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, RegistrationFailed for untyped errors.
func KindOf(err error) Kind {
	var he *Error
	if errors.As(err, &he) {
		return he.Kind
	}
	return KindRegistrationFailed
}
