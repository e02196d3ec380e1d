package hotkey

// Backend is the per-OS global hotkey facility. Implementations may block
// (OS calls, D-Bus round-trips) and are never called from the frame loop
// directly; the registry runs them on worker goroutines.
type Backend interface {
	// Name identifies the backend in logs ("x11", "kde", "portal", ...).
	Name() string

	// Register claims def system-wide and returns the handle for it.
	Register(def Definition) (Handle, error)

	// Unregister releases a handle previously returned by Register.
	Unregister(h Handle) error

	// Test probes whether def could be registered without committing.
	Test(def Definition) error

	// CheckPermissions is the environment preflight, called once at startup.
	CheckPermissions() error

	// FormatError rewrites a raw backend error into user-facing text with
	// platform-specific remediation.
	FormatError(err error) string

	// Activations delivers the handle of a live registration each time the
	// user presses it.
	Activations() <-chan Handle

	// Close releases every resource the backend holds.
	Close() error
}
