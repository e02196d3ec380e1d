package platform

import "chord/hotkey"

// unavailable stands in when the session offers no usable transport. Every
// call fails with the reason found during selection, so the application
// keeps running with hotkeys disabled.
type unavailable struct {
	name   string
	reason error
	format func(error) string
}

func newUnavailable(name string, reason error, format func(error) string) *unavailable {
	return &unavailable{name: name, reason: reason, format: format}
}

func (u *unavailable) Name() string { return u.name }

func (u *unavailable) Register(hotkey.Definition) (hotkey.Handle, error) {
	return hotkey.Handle{}, u.reason
}

func (u *unavailable) Unregister(h hotkey.Handle) error {
	return hotkey.Errorf(hotkey.KindRegistrationFailed, "unknown handle %s", h)
}

func (u *unavailable) Test(hotkey.Definition) error { return u.reason }

func (u *unavailable) CheckPermissions() error { return u.reason }

func (u *unavailable) FormatError(err error) string { return u.format(err) }

func (u *unavailable) Activations() <-chan hotkey.Handle { return nil }

func (u *unavailable) Close() error { return nil }
