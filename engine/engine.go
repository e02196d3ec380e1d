// Package engine wires the recording session, conflict detector and
// registry into the single per-frame step a host loop calls.
package engine

import (
	"fmt"
	"time"

	"chord/conflict"
	"chord/event"
	"chord/hotkey"
	"chord/log"
	"chord/recording"
	"chord/registry"
)

// Config tunes an Engine. Zero values are usable.
type Config struct {
	Style            hotkey.Style
	RecordingTimeout time.Duration
	BackendTimeout   time.Duration
	Now              func() time.Time
}

// Engine is the hotkey subsystem as seen by a host. Like the registry it
// belongs to one goroutine.
type Engine struct {
	backend  hotkey.Backend
	detector *conflict.Detector
	registry *registry.Registry
	session  *recording.Session
	now      func() time.Time

	disabled error
	pending  []event.Event
}

func New(backend hotkey.Backend, detector *conflict.Detector, cfg Config) *Engine {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Style == 0 {
		cfg.Style = hotkey.DefaultStyle
	}
	var ropts []registry.Option
	if cfg.BackendTimeout > 0 {
		ropts = append(ropts, registry.WithTimeout(cfg.BackendTimeout))
	}
	return &Engine{
		backend:  backend,
		detector: detector,
		registry: registry.New(backend, detector, ropts...),
		session:  recording.New(recording.WithStyle(cfg.Style), recording.WithTimeout(cfg.RecordingTimeout)),
		now:      cfg.Now,
	}
}

// Start runs the backend's permission preflight. On failure hotkeys stay
// disabled for the life of the engine and a HotkeysDisabled event is
// queued for the next Frame; the returned error is informational.
func (e *Engine) Start() error {
	err := e.backend.CheckPermissions()
	log.Startup(e.backend.Name(), err)
	if err == nil {
		return nil
	}
	e.disabled = err
	e.registry.Disable(err)
	e.pending = append(e.pending, event.HotkeysDisabled{Reason: e.backend.FormatError(err)})
	return err
}

// Disabled returns the startup failure, nil when hotkeys are available.
func (e *Engine) Disabled() error { return e.disabled }

// Submit accepts a request event. Only in-progress rejections are
// returned synchronously; every outcome arrives as an event from Frame.
func (e *Engine) Submit(ev event.Event) error {
	switch ev := ev.(type) {
	case event.StartRecording:
		e.session.Start(e.now())
	case event.CancelRecording:
		if e.session.Cancel() {
			e.pending = append(e.pending, event.RecordingCancelled{Reason: e.session.Reason().String()})
			log.Capture("cancelled", "")
		}
	case event.RegisterRequested, event.UnregisterRequested, event.TestRequested:
		return e.registry.Handle(ev)
	default:
		return fmt.Errorf("engine: %T is not a request", ev)
	}
	return nil
}

// Frame advances the subsystem by one tick: it feeds in to an active
// recording session, previews conflicts for a fresh capture, applies
// finished backend work, and returns every event produced, in order.
func (e *Engine) Frame(in recording.Frame) []event.Event {
	out := e.pending
	e.pending = nil

	if e.session.Active() {
		if in.Now.IsZero() {
			in.Now = e.now()
		}
		switch e.session.Update(in) {
		case recording.DidCapture:
			def, _ := e.session.Captured()
			log.Capture("captured", def.Accelerator())
			out = append(out, event.KeyCombinationCaptured{Definition: def})
			if rec := e.detector.Check(def); !rec.Clear() {
				out = append(out, event.ConflictDetected{Record: rec})
			}
		case recording.DidCancel:
			log.Capture("cancelled", "")
			out = append(out, event.RecordingCancelled{Reason: e.session.Reason().String()})
		}
	}

	return append(out, e.registry.Poll()...)
}

// Recording exposes the session for previews. Callers must not drive it.
func (e *Engine) Recording() *recording.Session { return e.session }

// Registry exposes snapshots of the bindings.
func (e *Engine) Registry() *registry.Registry { return e.registry }

// Settle waits for in-flight backend work; see registry.Registry.Settle.
func (e *Engine) Settle() { e.registry.Settle() }

// LoadProfile submits every binding as an independent registration.
func (e *Engine) LoadProfile(bs []hotkey.Binding) map[hotkey.BindingID]error {
	return e.registry.LoadProfile(bs)
}

// Close releases every registration and the backend.
func (e *Engine) Close() error {
	err := e.registry.Close()
	if cerr := e.backend.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
