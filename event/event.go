// Package event defines the request/response messages exchanged between
// the hotkey subsystem and its callers (UI, persistence, the host loop).
package event

import "chord/hotkey"

// Event is any message crossing the subsystem boundary.
type Event interface {
	event()
}

// RegisterRequested asks the registry to register a binding. A binding id
// seen for the first time creates the binding.
type RegisterRequested struct {
	Binding hotkey.Binding
}

// RegisterCompleted reports the outcome of a RegisterRequested.
// ErrorMessage is already platform-formatted.
type RegisterCompleted struct {
	Binding      hotkey.Binding
	Success      bool
	ErrorMessage string
}

type UnregisterRequested struct {
	BindingID hotkey.BindingID
}

type UnregisterCompleted struct {
	BindingID    hotkey.BindingID
	Success      bool
	ErrorMessage string
}

// TestRequested probes a definition without committing it.
type TestRequested struct {
	Definition hotkey.Definition
}

type TestResult struct {
	Definition   hotkey.Definition
	Success      bool
	ErrorMessage string
}

type StartRecording struct{}

type CancelRecording struct{}

type KeyCombinationCaptured struct {
	Definition hotkey.Definition
}

type RecordingCancelled struct {
	Reason string
}

type ConflictDetected struct {
	Record hotkey.ConflictRecord
}

// HotkeyActivated is delivered when the user presses a registered binding.
type HotkeyActivated struct {
	BindingID hotkey.BindingID
}

// HotkeysDisabled is emitted once when the startup permission check fails.
type HotkeysDisabled struct {
	Reason string
}

func (RegisterRequested) event()      {}
func (RegisterCompleted) event()      {}
func (UnregisterRequested) event()    {}
func (UnregisterCompleted) event()    {}
func (TestRequested) event()          {}
func (TestResult) event()             {}
func (StartRecording) event()         {}
func (CancelRecording) event()        {}
func (KeyCombinationCaptured) event() {}
func (RecordingCancelled) event()     {}
func (ConflictDetected) event()       {}
func (HotkeyActivated) event()        {}
func (HotkeysDisabled) event()        {}
