package observability

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type rpcMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

// ContractMetrics tracks escrow contract calls executed by the host.
type ContractMetrics struct {
	calls   *prometheus.CounterVec
	latency *prometheus.HistogramVec
	balance *prometheus.GaugeVec
	events  *prometheus.CounterVec
}

var (
	rpcMetricsOnce sync.Once
	rpcRegistry    *rpcMetrics

	contractMetricsOnce sync.Once
	contractRegistry    *ContractMetrics
)

// RPC returns the lazily-initialised registry recording JSON-RPC activity.
func RPC() *rpcMetrics {
	rpcMetricsOnce.Do(func() {
		rpcRegistry = &rpcMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "gig",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total JSON-RPC requests segmented by method and outcome.",
			}, []string{"method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "gig",
				Subsystem: "rpc",
				Name:      "errors_total",
				Help:      "Total JSON-RPC errors segmented by method and status code.",
			}, []string{"method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "gig",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for JSON-RPC handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "gig",
				Subsystem: "rpc",
				Name:      "throttles_total",
				Help:      "Count of requests rejected due to throttling policies.",
			}, []string{"reason"}),
		}
		prometheus.MustRegister(
			rpcRegistry.requests,
			rpcRegistry.errors,
			rpcRegistry.latency,
			rpcRegistry.throttles,
		)
	})
	return rpcRegistry
}

// Observe records the outcome of a request. The status code should be the
// HTTP status that was ultimately written to the response writer.
func (m *rpcMetrics) Observe(method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if status >= 400 {
		outcome = "error"
		m.errors.WithLabelValues(method, fmt.Sprintf("%d", status)).Inc()
	}
	m.requests.WithLabelValues(method, outcome).Inc()
	m.latency.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter. Reasons should be stable
// strings such as "rate_limit".
func (m *rpcMetrics) RecordThrottle(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(reason).Inc()
}

// Contract returns the singleton registry for escrow contract calls.
func Contract() *ContractMetrics {
	contractMetricsOnce.Do(func() {
		contractRegistry = &ContractMetrics{
			calls: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "gig",
				Subsystem: "contract",
				Name:      "calls_total",
				Help:      "Count of contract calls segmented by operation and outcome.",
			}, []string{"op", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "gig",
				Subsystem: "contract",
				Name:      "call_duration_seconds",
				Help:      "Latency distribution for contract calls including commit.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"op"}),
			balance: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "gig",
				Subsystem: "contract",
				Name:      "balance",
				Help:      "Last published vault balance segmented by token.",
			}, []string{"token"}),
			events: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "gig",
				Subsystem: "events",
				Name:      "total",
				Help:      "Count of published events segmented by type.",
			}, []string{"type"}),
		}
		prometheus.MustRegister(
			contractRegistry.calls,
			contractRegistry.latency,
			contractRegistry.balance,
			contractRegistry.events,
		)
	})
	return contractRegistry
}

// ObserveCall records one contract call.
func (m *ContractMetrics) ObserveCall(op string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	if op == "" {
		op = "unknown"
	}
	m.calls.WithLabelValues(op, callOutcome(err)).Inc()
	m.latency.WithLabelValues(op).Observe(duration.Seconds())
}

// SetBalance updates the vault balance gauge for token.
func (m *ContractMetrics) SetBalance(token string, balance *big.Int) {
	if m == nil {
		return
	}
	m.balance.WithLabelValues(normalizeLabel(token)).Set(bigToFloat(balance))
}

// RecordEvent increments the published event counter.
func (m *ContractMetrics) RecordEvent(eventType string) {
	if m == nil {
		return
	}
	if eventType == "" {
		eventType = "unknown"
	}
	m.events.WithLabelValues(eventType).Inc()
}

func callOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}

func normalizeLabel(value string) string {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	if normalized == "" {
		return "UNKNOWN"
	}
	return normalized
}

func bigToFloat(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0
	}
	return f
}
