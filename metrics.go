package clientcore

import (
	"sync/atomic"
)

// MetricID identifies one in-process counter.
type MetricID uint16

const (
	// MetricLoginSuccess counts successful logins.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected login attempts.
	MetricLoginFailure
	// MetricLogout counts explicit logouts.
	MetricLogout
	// MetricSessionExpired counts forced expiries (TTL, malformed token,
	// corrupt persistence).
	MetricSessionExpired
	// MetricExpiryWarning counts one-shot near-expiry warnings.
	MetricExpiryWarning
	// MetricValidate counts validate calls, periodic and explicit.
	MetricValidate
	// MetricSyncFlush counts delivered activity batches.
	MetricSyncFlush
	// MetricSyncFailure counts failed batch deliveries.
	MetricSyncFailure

	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters for the session lifecycle. Interceptor
// metrics are Prometheus collectors in the intercept package; these counters
// cover the page-context half of the core.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics builds the counter set; a disabled instance accepts increments
// and reports zeros.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Inc increments one counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Value reads one counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{Counters: make(map[MetricID]uint64, int(metricIDCount))}
	if m == nil || !m.enabled {
		return s
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}
