package hotkey

import (
	"sync"
)

// FakeBackend is an in-memory Backend for tests and the headless test
// mode. It behaves like an OS that allows one registration per combination.
type FakeBackend struct {
	mu       sync.Mutex
	next     uint64
	live     map[Handle]Combo
	held     map[Combo]bool
	failNext error
	permErr  error
	gate     chan struct{}

	activations chan Handle

	RegisterCalls   int
	UnregisterCalls int
	TestCalls       int

	// Format replaces FormatError; nil returns err.Error().
	Format func(error) string
}

func NewFake() *FakeBackend {
	return &FakeBackend{
		live:        make(map[Handle]Combo),
		held:        make(map[Combo]bool),
		activations: make(chan Handle, 16),
	}
}

func (f *FakeBackend) Name() string { return "fake" }

func (f *FakeBackend) Register(def Definition) (Handle, error) {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RegisterCalls++
	if err := f.takeFailure(); err != nil {
		return Handle{}, err
	}
	c := def.Combo()
	if f.held[c] {
		return Handle{}, NewError(KindAlreadyRegistered, c.String()+" is held by another process", nil)
	}
	for _, lc := range f.live {
		if lc == c {
			return Handle{}, NewError(KindAlreadyRegistered, c.String(), nil)
		}
	}
	f.next++
	h := NewHandle("fake", f.next)
	f.live[h] = c
	return h, nil
}

func (f *FakeBackend) Unregister(h Handle) error {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.UnregisterCalls++
	if err := f.takeFailure(); err != nil {
		return err
	}
	if _, ok := f.live[h]; !ok {
		return Errorf(KindRegistrationFailed, "unknown handle %s", h)
	}
	delete(f.live, h)
	return nil
}

func (f *FakeBackend) Test(def Definition) error {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.TestCalls++
	if err := f.takeFailure(); err != nil {
		return err
	}
	c := def.Combo()
	if f.held[c] {
		return NewError(KindAlreadyRegistered, c.String()+" is held by another process", nil)
	}
	for _, lc := range f.live {
		if lc == c {
			return NewError(KindAlreadyRegistered, c.String(), nil)
		}
	}
	return nil
}

func (f *FakeBackend) CheckPermissions() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.permErr
}

func (f *FakeBackend) FormatError(err error) string {
	if err == nil {
		return ""
	}
	if f.Format != nil {
		return f.Format(err)
	}
	return err.Error()
}

func (f *FakeBackend) Activations() <-chan Handle { return f.activations }

func (f *FakeBackend) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.live = make(map[Handle]Combo)
	return nil
}

// Live returns the number of live registrations.
func (f *FakeBackend) Live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.live)
}

// Hold simulates another process owning c.
func (f *FakeBackend) Hold(c Combo) {
	f.mu.Lock()
	f.held[c] = true
	f.mu.Unlock()
}

// FailNext makes the next backend call return err.
func (f *FakeBackend) FailNext(err error) {
	f.mu.Lock()
	f.failNext = err
	f.mu.Unlock()
}

// DenyPermissions makes CheckPermissions return err.
func (f *FakeBackend) DenyPermissions(err error) {
	f.mu.Lock()
	f.permErr = err
	f.mu.Unlock()
}

// Pause blocks every backend call until Resume.
func (f *FakeBackend) Pause() {
	f.mu.Lock()
	if f.gate == nil {
		f.gate = make(chan struct{})
	}
	f.mu.Unlock()
}

func (f *FakeBackend) Resume() {
	f.mu.Lock()
	if f.gate != nil {
		close(f.gate)
		f.gate = nil
	}
	f.mu.Unlock()
}

// SimActivate simulates the user pressing a live registration.
func (f *FakeBackend) SimActivate(h Handle) { f.activations <- h }

func (f *FakeBackend) wait() {
	f.mu.Lock()
	g := f.gate
	f.mu.Unlock()
	if g != nil {
		<-g
	}
}

func (f *FakeBackend) takeFailure() error {
	err := f.failNext
	f.failNext = nil
	return err
}
