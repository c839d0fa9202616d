package events

// Buffer collects events emitted during a single call. The host flushes it to
// the real emitter only after the call's writes have committed, so a call that
// aborts never publishes anything.
type Buffer struct {
	pending []Event
}

// NewBuffer returns an empty buffer.
func NewBuffer() *Buffer { return &Buffer{} }

// Emit implements Emitter by queueing evt.
func (b *Buffer) Emit(evt Event) {
	if evt == nil {
		return
	}
	b.pending = append(b.pending, evt)
}

// Events returns the queued events in emission order.
func (b *Buffer) Events() []Event {
	out := make([]Event, len(b.pending))
	copy(out, b.pending)
	return out
}

// Len reports how many events are queued.
func (b *Buffer) Len() int { return len(b.pending) }

// Flush forwards every queued event to dst in order and empties the buffer.
func (b *Buffer) Flush(dst Emitter) {
	if dst == nil {
		b.pending = nil
		return
	}
	for _, evt := range b.pending {
		dst.Emit(evt)
	}
	b.pending = nil
}

// Reset drops every queued event.
func (b *Buffer) Reset() { b.pending = nil }
