package rpc

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	visitorIdleTTL   = 10 * time.Minute
	visitorPruneSize = 1024
)

// RateLimitConfig bounds requests per client. A zero rate disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type rateLimiter struct {
	cfg      RateLimitConfig
	mu       sync.Mutex
	visitors map[string]*visitor
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	if cfg.RequestsPerSecond <= 0 {
		return nil
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &rateLimiter{cfg: cfg, visitors: make(map[string]*visitor)}
}

func (l *rateLimiter) allow(source string, now time.Time) bool {
	if l == nil {
		return true
	}
	if source == "" {
		source = "unknown"
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.visitors) >= visitorPruneSize {
		for id, v := range l.visitors {
			if now.Sub(v.lastSeen) > visitorIdleTTL {
				delete(l.visitors, id)
			}
		}
	}
	v, ok := l.visitors[source]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.Burst)}
		l.visitors[source] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}
