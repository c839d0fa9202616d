package events

import (
	"context"
	"strconv"
	"sync"

	"gigescrow/core/types"
)

const (
	hubHistoryLimit  = 1024
	subscriberBuffer = 32
)

// Published is an event as seen by stream subscribers: the rendered payload
// plus a monotonically increasing sequence usable as a resume cursor.
type Published struct {
	Sequence uint64       `json:"sequence"`
	Cursor   string       `json:"cursor"`
	Event    *types.Event `json:"event"`
}

// Hub fans committed events out to live subscribers and keeps a bounded
// history so reconnecting clients can resume from a cursor. Slow subscribers
// miss events rather than block the publisher.
type Hub struct {
	mu      sync.Mutex
	seq     uint64
	nextID  uint64
	subs    map[uint64]chan Published
	history []Published
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]chan Published)}
}

// Emit implements Emitter.
func (h *Hub) Emit(evt Event) {
	rendered := Render(evt)
	if h == nil || rendered == nil {
		return
	}
	h.mu.Lock()
	h.seq++
	update := Published{Sequence: h.seq, Cursor: strconv.FormatUint(h.seq, 10), Event: rendered}
	h.history = append(h.history, update)
	if len(h.history) > hubHistoryLimit {
		excess := len(h.history) - hubHistoryLimit
		trimmed := make([]Published, hubHistoryLimit)
		copy(trimmed, h.history[excess:])
		h.history = trimmed
	}
	// sends are non-blocking, so holding the lock keeps cancel from closing a
	// channel mid-send
	for _, ch := range h.subs {
		select {
		case ch <- update:
		default:
		}
	}
	h.mu.Unlock()
}

// Subscribe registers a subscriber. The returned backlog holds retained events
// with a sequence greater than since. The cancel function is idempotent and is
// also invoked when ctx is done.
func (h *Hub) Subscribe(ctx context.Context, since uint64) (<-chan Published, func(), []Published) {
	updates := make(chan Published, subscriberBuffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = updates
	backlog := make([]Published, 0, len(h.history))
	for _, entry := range h.history {
		if entry.Sequence > since {
			backlog = append(backlog, entry)
		}
	}
	h.mu.Unlock()

	var once sync.Once
	done := make(chan struct{})
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if sub, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub)
			}
			h.mu.Unlock()
			close(done)
		})
	}
	if ctx != nil {
		go func() {
			select {
			case <-ctx.Done():
				cancel()
			case <-done:
			}
		}()
	}
	return updates, cancel, backlog
}

// Subscribers reports the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
