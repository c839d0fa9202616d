// Package clock provides the timestamp sources consulted by the escrow host.
// Timestamps are Unix seconds, matching the resolution of the stored deadline.
package clock

import (
	"sync"
	"time"
)

// System reads the wall clock.
type System struct{}

// Now returns the current Unix time in seconds.
func (System) Now() uint64 {
	now := time.Now().Unix()
	if now < 0 {
		return 0
	}
	return uint64(now)
}

// Manual is a settable clock for tests and simulations. The zero value starts
// at timestamp 0.
type Manual struct {
	mu  sync.Mutex
	now uint64
}

// NewManual returns a manual clock positioned at start.
func NewManual(start uint64) *Manual {
	return &Manual{now: start}
}

// Now returns the current logical time.
func (m *Manual) Now() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set moves the clock to ts. Moving backwards is refused so observers only
// ever see monotonic time; the returned value is the effective time.
func (m *Manual) Set(ts uint64) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ts > m.now {
		m.now = ts
	}
	return m.now
}

// Advance moves the clock forward by d seconds.
func (m *Manual) Advance(d uint64) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now += d
	return m.now
}
