package events

import (
	"libdb.so/modeglow/internal/led"
	"libdb.so/modeglow/internal/mode"
)

// Event type constants for kelindar/event.
const (
	TypeModeChanged uint32 = iota + 1
	TypeToggled
	TypeStateChanged
)

// Event is the interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// ModeChangedEvent is published by the render loop when it observes a new
// mode.
type ModeChangedEvent struct {
	From mode.Mode
	To   mode.Mode
}

// Type returns the event type identifier for ModeChangedEvent.
func (e ModeChangedEvent) Type() uint32 { return TypeModeChanged }

// ToggledEvent is published after the manual toggle rendered a color.
type ToggledEvent struct {
	Index int32
	Color led.RGBColor
	// Persisted is false if the new index could not be saved.
	Persisted bool
}

// Type returns the event type identifier for ToggledEvent.
func (e ToggledEvent) Type() uint32 { return TypeToggled }

// StateChangedEvent is published when the persisted state was modified on
// disk, possibly by another process.
type StateChangedEvent struct {
	Path string
}

// Type returns the event type identifier for StateChangedEvent.
func (e StateChangedEvent) Type() uint32 { return TypeStateChanged }
