// Package recording turns raw keyboard input into a finalized key
// combination. A session knows nothing about registration: a captured
// combination still has to go through the registry.
package recording

import (
	"time"

	"chord/hotkey"
)

// Phase is the position of a session in its state machine:
// Idle → Recording → {Captured | Cancelled}.
type Phase int

const (
	Idle Phase = iota
	Recording
	Captured
	Cancelled
)

func (p Phase) String() string {
	switch p {
	case Recording:
		return "recording"
	case Captured:
		return "captured"
	case Cancelled:
		return "cancelled"
	}
	return "idle"
}

// Frame is one tick of keyboard input.
type Frame struct {
	// Held is the set of modifiers down during this frame.
	Held hotkey.Modifier
	// Pressed lists non-modifier keys pressed since the previous frame, in
	// arrival order.
	Pressed []hotkey.Key
	// Now is the frame timestamp; zero leaves elapsed time unchanged.
	Now time.Time
}

// State is the transient capture state. It is never persisted.
type State struct {
	Mods      hotkey.Modifier
	Key       hotkey.Key
	Elapsed   time.Duration
	Cancelled bool
}

// CancelReason says why a session ended without a capture.
type CancelReason int

const (
	CancelNone CancelReason = iota
	CancelEscape
	CancelExternal
	CancelTimeout
)

func (r CancelReason) String() string {
	switch r {
	case CancelEscape:
		return "escape"
	case CancelExternal:
		return "external"
	case CancelTimeout:
		return "timeout"
	}
	return "none"
}

// Outcome reports what a single Update changed.
type Outcome int

const (
	NoChange Outcome = iota
	DidCapture
	DidCancel
)

// Session is a capture state machine. It is not safe for concurrent use;
// the frame loop owns it.
type Session struct {
	style   hotkey.Style
	timeout time.Duration

	phase    Phase
	state    State
	started  time.Time
	captured hotkey.Definition
	reason   CancelReason
}

// Option configures a Session.
type Option func(*Session)

// WithStyle sets the display style of captured definitions.
func WithStyle(s hotkey.Style) Option { return func(ss *Session) { ss.style = s } }

// WithTimeout cancels an abandoned recording after d. Zero disables it.
func WithTimeout(d time.Duration) Option { return func(ss *Session) { ss.timeout = d } }

func New(opts ...Option) *Session {
	s := &Session{style: hotkey.DefaultStyle}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start enters Recording with an empty accumulator. Starting while already
// recording restarts the capture.
func (s *Session) Start(now time.Time) {
	s.phase = Recording
	s.state = State{}
	s.started = now
	s.captured = hotkey.Definition{}
	s.reason = CancelNone
}

// Update feeds one frame. Escape wins over every other key in the frame;
// otherwise held modifiers are added to the accumulator (never removed) and
// the first non-modifier key finalizes the combination.
func (s *Session) Update(f Frame) Outcome {
	if s.phase != Recording {
		return NoChange
	}
	if !f.Now.IsZero() && !s.started.IsZero() {
		s.state.Elapsed = f.Now.Sub(s.started)
	}

	for _, k := range f.Pressed {
		if k == hotkey.KeyEscape {
			s.cancel(CancelEscape)
			return DidCancel
		}
	}

	s.state.Mods |= f.Held

	for _, k := range f.Pressed {
		if !k.Valid() {
			continue
		}
		s.state.Key = k
		s.captured = hotkey.NewStyledDefinition(s.style, s.state.Mods, k, "")
		s.phase = Captured
		return DidCapture
	}

	if s.timeout > 0 && s.state.Elapsed >= s.timeout {
		s.cancel(CancelTimeout)
		return DidCancel
	}
	return NoChange
}

// Cancel ends an active recording from outside. It reports whether a
// recording was active.
func (s *Session) Cancel() bool {
	if s.phase != Recording {
		return false
	}
	s.cancel(CancelExternal)
	return true
}

// Reset returns the session to Idle.
func (s *Session) Reset() {
	*s = Session{style: s.style, timeout: s.timeout}
}

func (s *Session) cancel(reason CancelReason) {
	s.phase = Cancelled
	s.state.Cancelled = true
	s.state.Key = hotkey.KeyNone
	s.reason = reason
}

func (s *Session) Phase() Phase         { return s.phase }
func (s *Session) State() State         { return s.state }
func (s *Session) Reason() CancelReason { return s.reason }
func (s *Session) Active() bool         { return s.phase == Recording }

// Captured returns the finalized definition; ok is false unless the
// session is in the Captured phase.
func (s *Session) Captured() (hotkey.Definition, bool) {
	if s.phase != Captured {
		return hotkey.Definition{}, false
	}
	return s.captured, true
}

// Preview renders the modifiers accumulated so far ("⌃ ⌥" while the user is
// still holding keys).
func (s *Session) Preview() string {
	return hotkey.Render(s.style, s.state.Mods, s.state.Key)
}
