// Package input turns raw keyboard events into recording frames.
package input

import (
	"sync"
	"time"

	"chord/hotkey"
	"chord/recording"
)

// Tracker accumulates key events between frames. Sources (evdev readers,
// the terminal UI) feed it from any goroutine; the frame loop drains it
// once per tick with Frame.
type Tracker struct {
	mu      sync.Mutex
	held    map[hotkey.Modifier]int
	pressed []hotkey.Key
	seen    hotkey.Modifier
}

func NewTracker() *Tracker {
	return &Tracker{held: make(map[hotkey.Modifier]int)}
}

// ModDown records a modifier press. Left and right keys count separately
// so releasing one side keeps the modifier held.
func (t *Tracker) ModDown(m hotkey.Modifier) {
	t.mu.Lock()
	t.held[m]++
	t.seen |= m
	t.mu.Unlock()
}

func (t *Tracker) ModUp(m hotkey.Modifier) {
	t.mu.Lock()
	if t.held[m] > 0 {
		t.held[m]--
	}
	t.mu.Unlock()
}

// Press records a non-modifier key going down.
func (t *Tracker) Press(k hotkey.Key) {
	t.mu.Lock()
	t.pressed = append(t.pressed, k)
	t.mu.Unlock()
}

// Tap records a complete chord in one call, for sources that deliver
// modifiers and key together (terminals).
func (t *Tracker) Tap(mods hotkey.Modifier, k hotkey.Key) {
	t.mu.Lock()
	t.seen |= mods
	t.pressed = append(t.pressed, k)
	t.mu.Unlock()
}

// Frame snapshots the keyboard for one tick and clears the per-frame
// state. Held includes modifiers that were down at any point since the
// previous frame, so a quick tap between ticks is not lost.
func (t *Tracker) Frame(now time.Time) recording.Frame {
	t.mu.Lock()
	defer t.mu.Unlock()

	held := t.seen
	var current hotkey.Modifier
	for m, n := range t.held {
		if n > 0 {
			current |= m
		}
	}
	held |= current
	f := recording.Frame{Held: held, Pressed: t.pressed, Now: now}
	t.pressed = nil
	t.seen = current
	return f
}

// Reset forgets every held key.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.held = make(map[hotkey.Modifier]int)
	t.pressed = nil
	t.seen = hotkey.ModNone
	t.mu.Unlock()
}
