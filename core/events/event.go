package events

import "gigescrow/core/types"

// Event represents a structured state change emitted by a contract call.
type Event interface {
	EventType() string
}

// Payload is implemented by events that can render themselves into the
// generic attribute representation consumed by sinks.
type Payload interface {
	Event
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// EmitterFunc adapts a plain function to the Emitter interface.
type EmitterFunc func(Event)

// Emit calls f(evt).
func (f EmitterFunc) Emit(evt Event) { f(evt) }

// Multi fans every event out to each non-nil emitter in order.
func Multi(emitters ...Emitter) Emitter {
	filtered := make([]Emitter, 0, len(emitters))
	for _, em := range emitters {
		if em != nil {
			filtered = append(filtered, em)
		}
	}
	return multiEmitter(filtered)
}

type multiEmitter []Emitter

func (m multiEmitter) Emit(evt Event) {
	for _, em := range m {
		em.Emit(evt)
	}
}

// Render converts evt to its generic representation. Events that do not
// implement Payload render with their type only.
func Render(evt Event) *types.Event {
	if evt == nil {
		return nil
	}
	if p, ok := evt.(Payload); ok {
		if rendered := p.Event(); rendered != nil {
			return rendered
		}
	}
	return &types.Event{Type: evt.EventType(), Attributes: map[string]string{}}
}
