// Package input turns SDL2 events into viewer actions.
package input

import (
	"github.com/veandco/go-sdl2/sdl"
)

// Action is something the viewer does in response to a key.
type Action int

const (
	ActionNone Action = iota
	ActionQuit
	ActionReload
	ActionOpen
	ActionPause
	ActionNextEffect
	ActionFaster
	ActionSlower
)

// Event types reported by Update.
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventWindowResize
	EventKeyDown
)

// Event represents a processed input event.
type Event struct {
	Type   EventType
	Key    sdl.Scancode
	Width  int
	Height int
}

// DefaultBindings maps keys to viewer actions.
func DefaultBindings() map[sdl.Scancode]Action {
	return map[sdl.Scancode]Action{
		sdl.SCANCODE_ESCAPE: ActionQuit,
		sdl.SCANCODE_Q:      ActionQuit,
		sdl.SCANCODE_R:      ActionReload,
		sdl.SCANCODE_O:      ActionOpen,
		sdl.SCANCODE_SPACE:  ActionPause,
		sdl.SCANCODE_E:      ActionNextEffect,
		sdl.SCANCODE_EQUALS: ActionFaster,
		sdl.SCANCODE_MINUS:  ActionSlower,
	}
}

// Input handles all input processing.
type Input struct {
	bindings map[sdl.Scancode]Action
	events   []Event
	actions  []Action
}

// New creates an input handler with the default bindings.
func New() *Input {
	return &Input{
		bindings: DefaultBindings(),
		events:   make([]Event, 0, 16),
		actions:  make([]Action, 0, 4),
	}
}

// Update polls SDL events. Returns true if the viewer should quit.
func (i *Input) Update() bool {
	i.events = i.events[:0]

	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			i.events = append(i.events, Event{Type: EventQuit})

		case *sdl.WindowEvent:
			if e.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
				i.events = append(i.events, Event{
					Type:   EventWindowResize,
					Width:  int(e.Data1),
					Height: int(e.Data2),
				})
			}

		case *sdl.KeyboardEvent:
			if e.Type == sdl.KEYDOWN && e.Repeat == 0 {
				i.events = append(i.events, Event{
					Type: EventKeyDown,
					Key:  e.Keysym.Scancode,
				})
			}
		}
	}

	i.actions = translate(i.events, i.bindings, i.actions[:0])
	for _, a := range i.actions {
		if a == ActionQuit {
			return true
		}
	}
	return false
}

// Events returns the events from the last Update.
func (i *Input) Events() []Event {
	return i.events
}

// Actions returns the actions triggered by the last Update, in order.
func (i *Input) Actions() []Action {
	return i.actions
}

// Resized returns the last window size reported by the last Update.
func (i *Input) Resized() (width, height int, ok bool) {
	for _, e := range i.events {
		if e.Type == EventWindowResize {
			width, height, ok = e.Width, e.Height, true
		}
	}
	return width, height, ok
}

func translate(events []Event, bindings map[sdl.Scancode]Action, out []Action) []Action {
	for _, e := range events {
		switch e.Type {
		case EventQuit:
			out = append(out, ActionQuit)
		case EventKeyDown:
			if a, ok := bindings[e.Key]; ok {
				out = append(out, a)
			}
		}
	}
	return out
}
