// Package registry owns the registration lifecycle of every hotkey
// binding. It is an actor driven by the host's frame loop: requests and
// Poll run on the loop goroutine, backend calls run on worker goroutines,
// and their results come back through a completion channel drained once
// per frame.
package registry

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"chord/conflict"
	"chord/event"
	"chord/hotkey"
	"chord/log"
)

type opKind int

const (
	opRegister opKind = iota
	opUnregister
	opTest
	opSettled // a timed-out register call has returned and been released
)

type completion struct {
	op       opKind
	id       hotkey.BindingID
	def      hotkey.Definition
	handle   hotkey.Handle
	err      error
	timedOut bool
}

type entry struct {
	binding hotkey.Binding
}

// Registry is not safe for concurrent use. Every exported method belongs
// to the frame loop goroutine.
type Registry struct {
	backend  hotkey.Backend
	detector *conflict.Detector
	timeout  time.Duration

	entries  map[hotkey.BindingID]*entry
	claims   map[hotkey.Combo]hotkey.BindingID
	byHandle map[hotkey.Handle]hotkey.BindingID
	settling map[hotkey.Combo]int
	disabled error

	done        chan completion
	activations <-chan hotkey.Handle
	workers     sync.WaitGroup
	out         []event.Event
}

// Option configures a Registry.
type Option func(*Registry)

// WithTimeout bounds register and test calls. A registration that succeeds
// after its deadline is released again so no handle leaks.
func WithTimeout(d time.Duration) Option { return func(r *Registry) { r.timeout = d } }

func New(backend hotkey.Backend, detector *conflict.Detector, opts ...Option) *Registry {
	r := &Registry{
		backend:     backend,
		detector:    detector,
		entries:     make(map[hotkey.BindingID]*entry),
		claims:      make(map[hotkey.Combo]hotkey.BindingID),
		byHandle:    make(map[hotkey.Handle]hotkey.BindingID),
		settling:    make(map[hotkey.Combo]int),
		done:        make(chan completion, 64),
		activations: backend.Activations(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Disable turns every later register and test request into an immediate
// failure carrying reason. Used when the startup preflight fails.
func (r *Registry) Disable(reason error) { r.disabled = reason }

// Disabled returns the reason passed to Disable.
func (r *Registry) Disabled() error { return r.disabled }

// Handle accepts a request event. Requests on a binding with an operation
// in flight are rejected with hotkey.ErrOperationInProgress; every other
// outcome is delivered as an event from Poll.
func (r *Registry) Handle(ev event.Event) error {
	switch ev := ev.(type) {
	case event.RegisterRequested:
		return r.Register(ev.Binding)
	case event.UnregisterRequested:
		return r.Unregister(ev.BindingID)
	case event.TestRequested:
		r.Test(ev.Definition)
		return nil
	}
	return fmt.Errorf("registry: unsupported request %T", ev)
}

// Register starts registration of b. A new id creates the binding; an Idle
// or Failed binding may change its definition. A combination whose earlier
// register call timed out is rejected until that call has returned and its
// handle, if any, has been released.
func (r *Registry) Register(b hotkey.Binding) error {
	if b.ID == "" {
		return errors.New("registry: binding id is required")
	}
	if b.Definition.IsZero() {
		return fmt.Errorf("registry: binding %s has no key", b.ID)
	}
	if r.settling[b.Definition.Combo()] > 0 {
		return fmt.Errorf("%s is still settling after a timeout: %w", b.Definition.Accelerator(), hotkey.ErrOperationInProgress)
	}

	e, ok := r.entries[b.ID]
	if !ok {
		e = &entry{binding: hotkey.NewBinding(b.ID, b.Definition)}
		r.entries[b.ID] = e
	}

	switch e.binding.Status.State {
	case hotkey.PendingRegistration, hotkey.PendingUnregistration:
		return fmt.Errorf("binding %s: %w", b.ID, hotkey.ErrOperationInProgress)
	case hotkey.Registered:
		var err error
		if e.binding.Definition.Equal(b.Definition) {
			err = hotkey.Errorf(hotkey.KindAlreadyRegistered, "binding %s already holds %s", b.ID, b.Definition.Accelerator())
		} else {
			err = hotkey.Errorf(hotkey.KindAlreadyRegistered, "binding %s is registered as %s; unregister it before changing keys", b.ID, e.binding.Definition.Accelerator())
		}
		r.emitRegister(e.binding, err)
		return nil
	}

	def := b.Definition
	e.binding.Definition = def

	if r.disabled != nil {
		r.fail(e, r.disabled)
		return nil
	}

	rec := r.detector.CheckFor(b.ID, def)
	if rec.Clear() {
		if owner, claimed := r.claims[def.Combo()]; claimed && owner != b.ID {
			rec = hotkey.ConflictRecord{Kind: hotkey.BoundByOther, Combo: def.Combo(), Existing: owner}
		}
	}
	if !rec.Clear() {
		r.out = append(r.out, event.ConflictDetected{Record: rec})
		r.fail(e, rec.Err())
		return nil
	}

	e.binding.Status = hotkey.Status{State: hotkey.PendingRegistration}
	r.claims[def.Combo()] = b.ID
	id := b.ID
	r.dispatch(completion{op: opRegister, id: id, def: def}, func() completion {
		h, err := r.backend.Register(def)
		return completion{op: opRegister, id: id, def: def, handle: h, err: err}
	})
	return nil
}

// Unregister releases a Registered binding. Any other settled state
// succeeds without touching the backend.
func (r *Registry) Unregister(id hotkey.BindingID) error {
	e, ok := r.entries[id]
	if !ok {
		r.emitUnregister(id, nil)
		return nil
	}
	switch e.binding.Status.State {
	case hotkey.PendingRegistration, hotkey.PendingUnregistration:
		return fmt.Errorf("binding %s: %w", id, hotkey.ErrOperationInProgress)
	case hotkey.Registered:
	default:
		r.emitUnregister(id, nil)
		return nil
	}

	h := e.binding.Status.Handle
	def := e.binding.Definition
	e.binding.Status = hotkey.Status{State: hotkey.PendingUnregistration, Handle: h}
	r.dispatch(completion{op: opUnregister, id: id, def: def, handle: h}, func() completion {
		err := r.backend.Unregister(h)
		return completion{op: opUnregister, id: id, def: def, handle: h, err: err}
	})
	return nil
}

// Test probes def without committing a registration.
func (r *Registry) Test(def hotkey.Definition) {
	if r.disabled != nil {
		r.emitTest(def, r.disabled)
		return
	}
	if r.settling[def.Combo()] > 0 {
		r.emitTest(def, hotkey.Errorf(hotkey.KindTimeout, "an earlier registration of %s has not returned yet", def.Accelerator()))
		return
	}
	rec := r.detector.Check(def)
	if rec.Clear() {
		if owner, claimed := r.claims[def.Combo()]; claimed {
			rec = hotkey.ConflictRecord{Kind: hotkey.BoundByOther, Combo: def.Combo(), Existing: owner}
		}
	}
	if !rec.Clear() {
		r.emitTest(def, rec.Err())
		return
	}
	r.dispatch(completion{op: opTest, def: def}, func() completion {
		return completion{op: opTest, def: def, err: r.backend.Test(def)}
	})
}

// Forget discards a binding that holds no registration.
func (r *Registry) Forget(id hotkey.BindingID) error {
	e, ok := r.entries[id]
	if !ok {
		return nil
	}
	if st := e.binding.Status.State; st != hotkey.Idle && st != hotkey.Failed {
		return fmt.Errorf("binding %s is %s; unregister it first", id, st)
	}
	delete(r.entries, id)
	return nil
}

// LoadProfile submits each binding as an independent request. Errors are
// the synchronous rejections, keyed by binding; completions arrive via
// Poll. Successful registrations are never rolled back because a sibling
// failed.
func (r *Registry) LoadProfile(bs []hotkey.Binding) map[hotkey.BindingID]error {
	errs := make(map[hotkey.BindingID]error)
	for _, b := range bs {
		if err := r.Register(b); err != nil {
			errs[b.ID] = err
		}
	}
	return errs
}

// Poll applies finished backend calls and pending activations, and returns
// every event produced since the previous Poll, in order.
func (r *Registry) Poll() []event.Event {
	for {
		select {
		case c := <-r.done:
			r.apply(c)
			continue
		default:
		}
		break
	}
	r.drainActivations()
	out := r.out
	r.out = nil
	return out
}

// Settle blocks until every dispatched backend call has finished and its
// result has been applied. The resulting events are returned by the next
// Poll. Like the request methods it belongs to the loop goroutine.
func (r *Registry) Settle() {
	finished := make(chan struct{})
	go func() {
		r.workers.Wait()
		close(finished)
	}()
	for {
		select {
		case c := <-r.done:
			r.apply(c)
		case <-finished:
			for {
				select {
				case c := <-r.done:
					r.apply(c)
				default:
					return
				}
			}
		}
	}
}

// Binding returns a snapshot of one binding.
func (r *Registry) Binding(id hotkey.BindingID) (hotkey.Binding, bool) {
	e, ok := r.entries[id]
	if !ok {
		return hotkey.Binding{}, false
	}
	return e.binding, true
}

// Bindings returns a snapshot of every binding ordered by id.
func (r *Registry) Bindings() []hotkey.Binding {
	out := make([]hotkey.Binding, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.binding)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Close waits for in-flight work and releases every live registration.
// It blocks and is meant for shutdown, after the frame loop has stopped.
func (r *Registry) Close() error {
	r.Settle()
	r.Poll()

	var errs []error
	for _, b := range r.Bindings() {
		if b.Status.State != hotkey.Registered {
			continue
		}
		if err := r.backend.Unregister(b.Status.Handle); err != nil {
			errs = append(errs, fmt.Errorf("unregister %s: %s", b.ID, r.backend.FormatError(err)))
			continue
		}
		r.settleUnregistered(b.ID, b.Definition, b.Status.Handle)
	}
	return errors.Join(errs...)
}

// dispatch runs call on a worker. When the call times out, the same worker
// waits for the late result and reports opSettled after the timeout, so
// the loop always sees the two in that order.
func (r *Registry) dispatch(base completion, call func() completion) {
	r.workers.Add(1)
	go func() {
		defer r.workers.Done()
		c, late := r.guarded(base, call)
		r.done <- c
		if late == nil {
			return
		}
		res := <-late
		if base.op != opRegister {
			return
		}
		if res.op == opRegister && res.err == nil {
			if err := r.backend.Unregister(res.handle); err != nil {
				log.Warnf("releasing late registration of %s: %v", base.def.Accelerator(), err)
			}
		}
		r.done <- completion{op: opSettled, id: base.id, def: base.def}
	}()
}

// guarded runs call, converting a panic into a failed completion built
// from base and, for register and test, enforcing the timeout. On timeout
// it also returns the channel the late result will arrive on.
func (r *Registry) guarded(base completion, call func() completion) (completion, <-chan completion) {
	safe := func() (c completion) {
		defer func() {
			if p := recover(); p != nil {
				log.Errorf("backend panic in %s: %v\n%s", r.backend.Name(), p, debug.Stack())
				c = base
				c.err = hotkey.Errorf(hotkey.KindRegistrationFailed, "backend panic: %v", p)
			}
		}()
		return call()
	}

	if r.timeout <= 0 || base.op == opUnregister {
		return safe(), nil
	}

	result := make(chan completion, 1)
	go func() { result <- safe() }()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()
	select {
	case c := <-result:
		return c, nil
	case <-timer.C:
		c := base
		c.err = hotkey.Errorf(hotkey.KindTimeout, "%s did not answer within %s", r.backend.Name(), r.timeout)
		c.timedOut = true
		return c, result
	}
}

func (r *Registry) apply(c completion) {
	switch c.op {
	case opTest:
		r.emitTest(c.def, c.err)
		return
	case opSettled:
		combo := c.def.Combo()
		if r.settling[combo]--; r.settling[combo] <= 0 {
			delete(r.settling, combo)
		}
		return
	case opRegister:
		if r.claims[c.def.Combo()] == c.id {
			delete(r.claims, c.def.Combo())
		}
		if c.timedOut {
			r.settling[c.def.Combo()]++
		}
	}

	e, ok := r.entries[c.id]
	if !ok {
		return
	}

	switch c.op {
	case opRegister:
		if c.err != nil {
			r.fail(e, c.err)
			return
		}
		e.binding.Status = hotkey.Status{State: hotkey.Registered, Handle: c.handle}
		r.byHandle[c.handle] = c.id
		r.detector.Track(c.id, c.def)
		r.emitRegister(e.binding, nil)
	case opUnregister:
		if c.err != nil {
			e.binding.Status = hotkey.Status{State: hotkey.Registered, Handle: c.handle}
			r.emitUnregister(c.id, c.err)
			return
		}
		r.settleUnregistered(c.id, c.def, c.handle)
		r.emitUnregister(c.id, nil)
	}
}

func (r *Registry) settleUnregistered(id hotkey.BindingID, def hotkey.Definition, h hotkey.Handle) {
	delete(r.byHandle, h)
	r.detector.Untrack(id, def)
	if e, ok := r.entries[id]; ok {
		e.binding.Status = hotkey.Status{State: hotkey.Idle}
	}
}

func (r *Registry) drainActivations() {
	if r.activations == nil {
		return
	}
	for {
		select {
		case h, ok := <-r.activations:
			if !ok {
				r.activations = nil
				return
			}
			if id, live := r.byHandle[h]; live {
				log.Activation(string(id))
				r.out = append(r.out, event.HotkeyActivated{BindingID: id})
			}
		default:
			return
		}
	}
}

func (r *Registry) fail(e *entry, err error) {
	e.binding.Status = hotkey.Status{State: hotkey.Failed, Err: err}
	r.emitRegister(e.binding, err)
}

func (r *Registry) emitRegister(b hotkey.Binding, err error) {
	msg := r.format(err)
	log.Registration(string(b.ID), b.Definition.Accelerator(), err == nil, msg)
	r.out = append(r.out, event.RegisterCompleted{Binding: b, Success: err == nil, ErrorMessage: msg})
}

func (r *Registry) emitUnregister(id hotkey.BindingID, err error) {
	msg := r.format(err)
	log.Unregistration(string(id), err == nil, msg)
	r.out = append(r.out, event.UnregisterCompleted{BindingID: id, Success: err == nil, ErrorMessage: msg})
}

func (r *Registry) emitTest(def hotkey.Definition, err error) {
	msg := r.format(err)
	log.Probe(def.Accelerator(), err == nil, msg)
	r.out = append(r.out, event.TestResult{Definition: def, Success: err == nil, ErrorMessage: msg})
}

// format is the single place raw errors become user-facing text.
func (r *Registry) format(err error) string {
	if err == nil {
		return ""
	}
	return r.backend.FormatError(err)
}
