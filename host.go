package main

import (
	"context"
	"time"

	"chord/engine"
	"chord/event"
	"chord/hotkey"
	"chord/input"
	"chord/log"
	"chord/profile"
	"chord/recording"
)

const frameInterval = 30 * time.Millisecond

// host owns the engine and runs its frame loop. Everything touching the
// engine runs on the loop goroutine; other goroutines hand work over
// with do.
type host struct {
	eng     *engine.Engine
	sink    EventSink
	tracker *input.Tracker
	calls   chan func()

	profilePath string
	loaded      []hotkey.Binding
	reregister  map[hotkey.BindingID]hotkey.Binding
	preview     string
}

func newHost(eng *engine.Engine, sink EventSink, tracker *input.Tracker, profilePath string) *host {
	return &host{
		eng:         eng,
		sink:        sink,
		tracker:     tracker,
		calls:       make(chan func(), 16),
		profilePath: profilePath,
		reregister:  make(map[hotkey.BindingID]hotkey.Binding),
	}
}

// do runs fn on the loop goroutine.
func (h *host) do(fn func()) { h.calls <- fn }

// post is do for goroutines that may outlive the loop. It drops fn once
// ctx is done.
func (h *host) post(ctx context.Context, fn func()) bool {
	select {
	case h.calls <- fn:
		return true
	case <-ctx.Done():
		return false
	}
}

// wait runs fn on the loop goroutine and returns once it has run.
func (h *host) wait(fn func()) {
	done := make(chan struct{})
	h.do(func() {
		fn()
		close(done)
	})
	<-done
}

func (h *host) run(ctx context.Context) {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-h.calls:
			fn()
		case now := <-ticker.C:
			h.step(now)
		}
	}
}

func (h *host) step(now time.Time) {
	in := recording.Frame{Now: now}
	if h.tracker != nil {
		in = h.tracker.Frame(now)
	}
	evs := h.eng.Frame(in)
	for _, ev := range evs {
		h.route(ev)
	}
	if len(evs) > 0 {
		h.sink.Bindings(h.eng.Registry().Bindings())
	}

	preview := ""
	if h.eng.Recording().Active() {
		preview = h.eng.Recording().Preview()
	}
	if preview != h.preview {
		h.preview = preview
		h.sink.Preview(preview)
	}
}

func (h *host) route(ev event.Event) {
	if done, ok := ev.(event.UnregisterCompleted); ok {
		if b, waiting := h.reregister[done.BindingID]; waiting {
			delete(h.reregister, done.BindingID)
			h.submit(event.RegisterRequested{Binding: b})
		} else if done.Success && !h.inProfile(done.BindingID) {
			h.eng.Registry().Forget(done.BindingID)
		}
	}
	h.sink.Event(ev)
}

func (h *host) submit(ev event.Event) bool {
	if err := h.eng.Submit(ev); err != nil {
		log.Warnf("request rejected: %v", err)
		h.sink.Notice(err.Error())
		return false
	}
	return true
}

func (h *host) inProfile(id hotkey.BindingID) bool {
	for _, b := range h.loaded {
		if b.ID == id {
			return true
		}
	}
	return false
}

func (h *host) startRecording() {
	if h.tracker != nil {
		h.tracker.Reset()
	}
	h.submit(event.StartRecording{})
}

// load registers a freshly read profile.
func (h *host) load(bs []hotkey.Binding) {
	h.loaded = bs
	for id, err := range h.eng.LoadProfile(bs) {
		log.Warnf("profile binding %s rejected: %v", id, err)
		h.sink.Notice(err.Error())
	}
	h.sink.Bindings(h.eng.Registry().Bindings())
}

// reload applies an edited profile. Bindings whose keys changed are
// unregistered first and registered again once the release completes.
func (h *host) reload(bs []hotkey.Binding) {
	ch := profile.Diff(h.loaded, bs)
	h.loaded = bs
	if ch.Empty() {
		return
	}
	log.Info("profile reloaded")

	added := make(map[hotkey.BindingID]hotkey.Binding, len(ch.Added))
	for _, b := range ch.Added {
		added[b.ID] = b
	}
	for _, id := range ch.Removed {
		b, changed := added[id]
		if changed {
			delete(added, id)
			h.reregister[id] = b
		}
		if !h.submit(event.UnregisterRequested{BindingID: id}) {
			delete(h.reregister, id)
		}
	}
	for _, b := range ch.Added {
		if _, ok := added[b.ID]; ok {
			h.submit(event.RegisterRequested{Binding: b})
		}
	}
}

// add registers a new binding and persists it.
func (h *host) add(b hotkey.Binding) {
	if !h.submit(event.RegisterRequested{Binding: b}) {
		return
	}
	h.loaded = append(append([]hotkey.Binding(nil), h.loaded...), b)
	h.save()
}

// remove unregisters a binding and drops it from the profile.
func (h *host) remove(id hotkey.BindingID) {
	if !h.submit(event.UnregisterRequested{BindingID: id}) {
		return
	}
	kept := make([]hotkey.Binding, 0, len(h.loaded))
	for _, b := range h.loaded {
		if b.ID != id {
			kept = append(kept, b)
		}
	}
	h.loaded = kept
	h.save()
}

func (h *host) save() {
	if h.profilePath == "" {
		return
	}
	if err := profile.Save(h.profilePath, h.loaded); err != nil {
		log.Errorf("%v", err)
		h.sink.Notice(err.Error())
	}
}
