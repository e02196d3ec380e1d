// Package conflict detects collisions between a requested combination and
// either an OS-reserved shortcut or a binding already registered in this
// process.
package conflict

import (
	"sync"

	"chord/hotkey"
)

// Detector answers conflict checks in O(1). The reserved table is fixed at
// construction; the registered mirror is written only by the registry.
type Detector struct {
	reserved map[hotkey.Combo]string

	mu         sync.RWMutex
	registered map[hotkey.Combo]hotkey.BindingID
}

// New builds a detector over the given reserved table.
func New(reserved []Reserved) *Detector {
	d := &Detector{
		reserved:   make(map[hotkey.Combo]string, len(reserved)),
		registered: make(map[hotkey.Combo]hotkey.BindingID),
	}
	for _, r := range reserved {
		if _, dup := d.reserved[r.Combo]; !dup {
			d.reserved[r.Combo] = r.Description
		}
	}
	return d
}

// Check classifies def against reserved and registered combinations.
func (d *Detector) Check(def hotkey.Definition) hotkey.ConflictRecord {
	return d.CheckFor("", def)
}

// CheckFor is Check on behalf of a binding: a registration held by self is
// reported as BoundByOther with Existing == self so callers can tell a
// re-register from a collision.
func (d *Detector) CheckFor(self hotkey.BindingID, def hotkey.Definition) hotkey.ConflictRecord {
	c := def.Combo()
	if desc, ok := d.reserved[c]; ok {
		return hotkey.ConflictRecord{Kind: hotkey.SystemReserved, Combo: c, Description: desc}
	}
	d.mu.RLock()
	owner, ok := d.registered[c]
	d.mu.RUnlock()
	if ok {
		return hotkey.ConflictRecord{Kind: hotkey.BoundByOther, Combo: c, Existing: owner}
	}
	return hotkey.ConflictRecord{Kind: hotkey.NoConflict, Combo: c}
}

// Track records that id now holds def. Registry completion handler only.
func (d *Detector) Track(id hotkey.BindingID, def hotkey.Definition) {
	d.mu.Lock()
	d.registered[def.Combo()] = id
	d.mu.Unlock()
}

// Untrack removes def from the mirror if id holds it. Registry completion
// handler only.
func (d *Detector) Untrack(id hotkey.BindingID, def hotkey.Definition) {
	d.mu.Lock()
	if d.registered[def.Combo()] == id {
		delete(d.registered, def.Combo())
	}
	d.mu.Unlock()
}

// Registered returns a copy of the mirror.
func (d *Detector) Registered() map[hotkey.Combo]hotkey.BindingID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[hotkey.Combo]hotkey.BindingID, len(d.registered))
	for c, id := range d.registered {
		out[c] = id
	}
	return out
}
