package observability

import (
	"gigescrow/core/events"
)

// EventRecorder is an emitter that feeds published events into the contract
// metrics: every event is counted by type and amount_changed updates the
// vault balance gauge.
type EventRecorder struct {
	metrics *ContractMetrics
}

// NewEventRecorder returns a recorder bound to the contract registry.
func NewEventRecorder() *EventRecorder {
	return &EventRecorder{metrics: Contract()}
}

// Emit implements events.Emitter.
func (r *EventRecorder) Emit(evt events.Event) {
	if r == nil || evt == nil {
		return
	}
	r.metrics.RecordEvent(evt.EventType())
	if changed, ok := evt.(events.AmountChanged); ok {
		r.metrics.SetBalance(changed.Token, changed.Balance)
	}
}
