package registry

import (
	"errors"
	"strings"
	"testing"
	"time"

	"chord/conflict"
	"chord/event"
	"chord/hotkey"
)

func newTestRegistry(t *testing.T, opts ...Option) (*Registry, *hotkey.FakeBackend) {
	t.Helper()
	fb := hotkey.NewFake()
	reserved := []conflict.Reserved{{
		Combo:       hotkey.Combo{Mods: hotkey.ModSuper, Key: hotkey.KeyL},
		Description: "Lock screen",
	}}
	return New(fb, conflict.New(reserved), opts...), fb
}

func settle(r *Registry) []event.Event {
	r.Settle()
	return r.Poll()
}

func registerCompletions(evs []event.Event) []event.RegisterCompleted {
	var out []event.RegisterCompleted
	for _, ev := range evs {
		if rc, ok := ev.(event.RegisterCompleted); ok {
			out = append(out, rc)
		}
	}
	return out
}

func binding(id string, accel string) hotkey.Binding {
	return hotkey.NewBinding(hotkey.BindingID(id), hotkey.MustParse(accel))
}

func TestRegisterSuccess(t *testing.T) {
	r, fb := newTestRegistry(t)

	if err := r.Register(binding("launcher", "Ctrl+Alt+K")); err != nil {
		t.Fatal(err)
	}
	if b, _ := r.Binding("launcher"); b.Status.State != hotkey.PendingRegistration {
		t.Fatalf("state = %v, want pending_registration", b.Status.State)
	}

	rcs := registerCompletions(settle(r))
	if len(rcs) != 1 || !rcs[0].Success {
		t.Fatalf("completions = %+v", rcs)
	}
	b, _ := r.Binding("launcher")
	if b.Status.State != hotkey.Registered || b.Status.Handle.IsZero() {
		t.Errorf("binding = %+v", b)
	}
	if fb.Live() != 1 {
		t.Errorf("live = %d", fb.Live())
	}
}

func TestDoubleRegisterKeepsOneHandle(t *testing.T) {
	r, fb := newTestRegistry(t)
	b := binding("launcher", "Ctrl+Alt+K")

	r.Register(b)
	settle(r)
	first, _ := r.Binding("launcher")

	r.Register(b)
	rcs := registerCompletions(settle(r))
	if len(rcs) != 1 || rcs[0].Success {
		t.Fatalf("second register completions = %+v", rcs)
	}
	if !strings.HasPrefix(rcs[0].ErrorMessage, "AlreadyRegistered") {
		t.Errorf("message = %q", rcs[0].ErrorMessage)
	}
	if fb.RegisterCalls != 1 {
		t.Errorf("backend register calls = %d, want 1", fb.RegisterCalls)
	}
	second, _ := r.Binding("launcher")
	if second.Status != first.Status {
		t.Errorf("status changed: %v -> %v", first.Status, second.Status)
	}
}

func TestUnregisterIdempotent(t *testing.T) {
	r, fb := newTestRegistry(t)

	if err := r.Unregister("nobody"); err != nil {
		t.Fatal(err)
	}
	r.Register(binding("a", "Super+L"))
	settle(r)

	if err := r.Unregister("a"); err != nil {
		t.Fatal(err)
	}
	evs := settle(r)
	if fb.UnregisterCalls != 0 {
		t.Errorf("unregister of idle/failed touched the backend %d times", fb.UnregisterCalls)
	}
	var ok int
	for _, ev := range evs {
		if uc, is := ev.(event.UnregisterCompleted); is && uc.Success {
			ok++
		}
	}
	if ok != 1 {
		t.Errorf("expected one successful unregister completion, got events %+v", evs)
	}
}

func TestRegisterUnregisterCycleLeaksNothing(t *testing.T) {
	r, fb := newTestRegistry(t)
	b := binding("cycle", "Ctrl+Shift+P")

	for i := 0; i < 5; i++ {
		r.Register(b)
		settle(r)
		if got, _ := r.Binding("cycle"); got.Status.State != hotkey.Registered {
			t.Fatalf("cycle %d: state %v", i, got.Status.State)
		}
		r.Unregister("cycle")
		settle(r)
		if got, _ := r.Binding("cycle"); got.Status.State != hotkey.Idle {
			t.Fatalf("cycle %d: state %v after unregister", i, got.Status.State)
		}
	}
	if fb.Live() != 0 {
		t.Errorf("live registrations = %d", fb.Live())
	}
	if len(r.detector.Registered()) != 0 {
		t.Errorf("detector still tracks %v", r.detector.Registered())
	}
}

func TestRequestWhilePendingRejected(t *testing.T) {
	r, fb := newTestRegistry(t)
	fb.Pause()

	r.Register(binding("slow", "Ctrl+Alt+S"))
	if err := r.Register(binding("slow", "Ctrl+Alt+S")); !errors.Is(err, hotkey.ErrOperationInProgress) {
		t.Errorf("register while pending: %v", err)
	}
	if err := r.Unregister("slow"); !errors.Is(err, hotkey.ErrOperationInProgress) {
		t.Errorf("unregister while pending: %v", err)
	}
	if b, _ := r.Binding("slow"); !b.Status.State.Pending() {
		t.Errorf("state = %v, want pending", b.Status.State)
	}

	fb.Resume()
	settle(r)
	if b, _ := r.Binding("slow"); b.Status.State != hotkey.Registered {
		t.Errorf("state = %v", b.Status.State)
	}
}

func TestReservedShortCircuitsBackend(t *testing.T) {
	r, fb := newTestRegistry(t)

	r.Register(binding("lock", "Super+L"))
	evs := settle(r)

	if fb.RegisterCalls != 0 {
		t.Errorf("backend was called for a reserved combination")
	}
	var sawConflict bool
	for _, ev := range evs {
		if cd, ok := ev.(event.ConflictDetected); ok && cd.Record.Kind == hotkey.SystemReserved {
			sawConflict = true
		}
	}
	if !sawConflict {
		t.Error("expected ConflictDetected")
	}
	rcs := registerCompletions(evs)
	if len(rcs) != 1 || rcs[0].Success || !strings.Contains(rcs[0].ErrorMessage, "Lock screen") {
		t.Errorf("completions = %+v", rcs)
	}
	if b, _ := r.Binding("lock"); b.Status.State != hotkey.Failed {
		t.Errorf("state = %v", b.Status.State)
	}
}

func TestSameComboAcrossBindings(t *testing.T) {
	r, fb := newTestRegistry(t)
	fb.Pause()

	r.Register(binding("one", "Ctrl+Alt+T"))
	r.Register(binding("two", "Ctrl+Alt+T"))
	fb.Resume()
	evs := settle(r)

	var ok, failed int
	for _, rc := range registerCompletions(evs) {
		if rc.Success {
			ok++
		} else {
			failed++
		}
	}
	if ok != 1 || failed != 1 {
		t.Errorf("ok=%d failed=%d, want 1 and 1", ok, failed)
	}
	if fb.RegisterCalls != 1 {
		t.Errorf("backend register calls = %d", fb.RegisterCalls)
	}

	r.Register(binding("three", "Ctrl+Alt+T"))
	rcs := registerCompletions(settle(r))
	if len(rcs) != 1 || rcs[0].Success || !strings.Contains(rcs[0].ErrorMessage, "already bound by one") {
		t.Errorf("third completions = %+v", rcs)
	}
}

func TestFailedBindingCanRetry(t *testing.T) {
	r, fb := newTestRegistry(t)
	fb.FailNext(hotkey.Errorf(hotkey.KindRegistrationFailed, "grab failed"))

	r.Register(binding("retry", "Ctrl+Alt+R"))
	settle(r)
	b, _ := r.Binding("retry")
	if b.Status.State != hotkey.Failed || b.Status.Err == nil {
		t.Fatalf("binding = %+v", b)
	}

	r.Register(binding("retry", "Ctrl+Alt+Y"))
	settle(r)
	b, _ = r.Binding("retry")
	if b.Status.State != hotkey.Registered || b.Definition.Key() != hotkey.KeyY {
		t.Errorf("binding = %+v", b)
	}
}

func TestFailedUnregisterStaysRegistered(t *testing.T) {
	r, fb := newTestRegistry(t)
	r.Register(binding("sticky", "Ctrl+Alt+Q"))
	settle(r)
	before, _ := r.Binding("sticky")

	fb.FailNext(hotkey.Errorf(hotkey.KindRegistrationFailed, "display went away"))
	r.Unregister("sticky")
	evs := settle(r)

	after, _ := r.Binding("sticky")
	if after.Status.State != hotkey.Registered || after.Status.Handle != before.Status.Handle {
		t.Errorf("binding after failed unregister = %+v", after)
	}
	var failed bool
	for _, ev := range evs {
		if uc, ok := ev.(event.UnregisterCompleted); ok && !uc.Success {
			failed = true
		}
	}
	if !failed {
		t.Error("expected a failed UnregisterCompleted")
	}
}

func TestErrorsAreFormattedByBackend(t *testing.T) {
	r, fb := newTestRegistry(t)
	fb.Format = func(err error) string { return "formatted: " + err.Error() }
	fb.Hold(hotkey.Combo{Mods: hotkey.ModCtrl | hotkey.ModShift, Key: hotkey.KeySpace})

	r.Register(binding("ime", "Ctrl+Shift+Space"))
	rcs := registerCompletions(settle(r))
	if len(rcs) != 1 || !strings.HasPrefix(rcs[0].ErrorMessage, "formatted: AlreadyRegistered") {
		t.Errorf("completions = %+v", rcs)
	}
}

func TestTestDoesNotCommit(t *testing.T) {
	r, fb := newTestRegistry(t)
	def := hotkey.MustParse("Ctrl+Alt+Z")

	r.Test(def)
	evs := settle(r)
	if len(evs) != 1 {
		t.Fatalf("events = %+v", evs)
	}
	tr, ok := evs[0].(event.TestResult)
	if !ok || !tr.Success {
		t.Errorf("result = %+v", evs[0])
	}
	if fb.Live() != 0 || len(r.Bindings()) != 0 {
		t.Error("test must not register anything")
	}
}

func TestDisabledFailsImmediately(t *testing.T) {
	r, fb := newTestRegistry(t)
	r.Disable(hotkey.Errorf(hotkey.KindPermissionDenied, "no display server"))

	r.Register(binding("a", "Ctrl+K"))
	r.Test(hotkey.MustParse("Ctrl+J"))
	evs := settle(r)
	if fb.RegisterCalls+fb.TestCalls != 0 {
		t.Error("disabled registry must not call the backend")
	}
	if len(evs) != 2 {
		t.Fatalf("events = %+v", evs)
	}
	for _, ev := range evs {
		switch ev := ev.(type) {
		case event.RegisterCompleted:
			if ev.Success || !strings.HasPrefix(ev.ErrorMessage, "PermissionDenied") {
				t.Errorf("register = %+v", ev)
			}
		case event.TestResult:
			if ev.Success {
				t.Errorf("test = %+v", ev)
			}
		}
	}
}

func TestActivationRouting(t *testing.T) {
	r, fb := newTestRegistry(t)
	r.Register(binding("act", "Ctrl+Alt+A"))
	settle(r)
	b, _ := r.Binding("act")

	fb.SimActivate(b.Status.Handle)
	fb.SimActivate(hotkey.NewHandle("fake", 999))
	evs := r.Poll()
	if len(evs) != 1 {
		t.Fatalf("events = %+v", evs)
	}
	if ha, ok := evs[0].(event.HotkeyActivated); !ok || ha.BindingID != "act" {
		t.Errorf("event = %+v", evs[0])
	}
}

func TestLoadProfileIndependentOutcomes(t *testing.T) {
	r, fb := newTestRegistry(t)
	fb.Hold(hotkey.Combo{Mods: hotkey.ModCtrl, Key: hotkey.KeyB})

	errs := r.LoadProfile([]hotkey.Binding{
		binding("a", "Ctrl+A"),
		binding("b", "Ctrl+B"),
		binding("c", "Super+L"),
		binding("d", "Ctrl+D"),
	})
	if len(errs) != 0 {
		t.Fatalf("synchronous errors: %v", errs)
	}
	settle(r)

	want := map[hotkey.BindingID]hotkey.State{
		"a": hotkey.Registered,
		"b": hotkey.Failed,
		"c": hotkey.Failed,
		"d": hotkey.Registered,
	}
	for id, st := range want {
		if b, _ := r.Binding(id); b.Status.State != st {
			t.Errorf("%s: state %v, want %v", id, b.Status.State, st)
		}
	}
}

type slowBackend struct {
	*hotkey.FakeBackend
	release chan struct{}
}

func (s *slowBackend) Register(def hotkey.Definition) (hotkey.Handle, error) {
	<-s.release
	return s.FakeBackend.Register(def)
}

func TestTimeoutReleasesLateRegistration(t *testing.T) {
	sb := &slowBackend{FakeBackend: hotkey.NewFake(), release: make(chan struct{})}
	r := New(sb, conflict.New(nil), WithTimeout(10*time.Millisecond))

	r.Register(binding("late", "Ctrl+Alt+W"))
	time.Sleep(50 * time.Millisecond)
	close(sb.release)
	rcs := registerCompletions(settle(r))

	if len(rcs) != 1 || rcs[0].Success || !strings.HasPrefix(rcs[0].ErrorMessage, "Timeout") {
		t.Fatalf("completions = %+v", rcs)
	}
	if sb.Live() != 0 {
		t.Errorf("late registration leaked: live = %d", sb.Live())
	}
}

func TestRetryAfterTimeoutWaitsForLateCall(t *testing.T) {
	sb := &slowBackend{FakeBackend: hotkey.NewFake(), release: make(chan struct{})}
	r := New(sb, conflict.New(nil), WithTimeout(10*time.Millisecond))

	r.Register(binding("k", "Ctrl+Alt+K"))
	var rcs []event.RegisterCompleted
	deadline := time.Now().Add(2 * time.Second)
	for len(rcs) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
		rcs = registerCompletions(r.Poll())
	}
	if len(rcs) != 1 || rcs[0].Success {
		t.Fatalf("completions = %+v", rcs)
	}

	// The first call is still blocked inside the backend.
	if err := r.Register(binding("k", "Ctrl+Alt+K")); !errors.Is(err, hotkey.ErrOperationInProgress) {
		t.Errorf("retry err = %v, want ErrOperationInProgress", err)
	}
	if err := r.Register(binding("other", "Ctrl+Alt+K")); !errors.Is(err, hotkey.ErrOperationInProgress) {
		t.Errorf("other binding err = %v, want ErrOperationInProgress", err)
	}

	close(sb.release)
	settle(r)
	if sb.Live() != 0 {
		t.Fatalf("late registration leaked: live = %d", sb.Live())
	}

	if err := r.Register(binding("k", "Ctrl+Alt+K")); err != nil {
		t.Fatal(err)
	}
	rcs = registerCompletions(settle(r))
	if len(rcs) != 1 || !rcs[0].Success {
		t.Fatalf("completions = %+v", rcs)
	}
	if sb.Live() != 1 {
		t.Errorf("live = %d, want 1", sb.Live())
	}
}

type panicBackend struct {
	*hotkey.FakeBackend
}

func (panicBackend) Register(hotkey.Definition) (hotkey.Handle, error) {
	panic("boom")
}

func TestBackendPanicBecomesFailure(t *testing.T) {
	r := New(panicBackend{hotkey.NewFake()}, conflict.New(nil))

	r.Register(binding("p", "Ctrl+Alt+P"))
	rcs := registerCompletions(settle(r))
	if len(rcs) != 1 || rcs[0].Success || !strings.Contains(rcs[0].ErrorMessage, "backend panic") {
		t.Errorf("completions = %+v", rcs)
	}
}

func TestCloseReleasesEverything(t *testing.T) {
	r, fb := newTestRegistry(t)
	r.LoadProfile([]hotkey.Binding{binding("a", "Ctrl+1"), binding("b", "Ctrl+2")})

	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if fb.Live() != 0 {
		t.Errorf("live = %d", fb.Live())
	}
	for _, b := range r.Bindings() {
		if b.Status.State != hotkey.Idle {
			t.Errorf("%s: %v", b.ID, b.Status.State)
		}
	}
}
