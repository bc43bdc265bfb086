package intercept

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects the interceptor counters into a Prometheus registry.
type Metrics struct {
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
	revalidations prometheus.Counter
	fallbacks     *prometheus.CounterVec
	apiOffline    prometheus.Counter
}

// NewMetrics builds the collector set and registers it with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clientcore_cache_hits_total",
			Help: "Intercepted requests served from the cache.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clientcore_cache_misses_total",
			Help: "Intercepted requests that had no cached entry.",
		}),
		revalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clientcore_revalidations_total",
			Help: "Background revalidation fetches spawned after cache hits.",
		}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clientcore_fallbacks_total",
			Help: "Offline fallback responses served, by kind.",
		}, []string{"kind"}),
		apiOffline: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clientcore_api_offline_total",
			Help: "API requests answered with a synthesized 503.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.cacheHits,
			m.cacheMisses,
			m.revalidations,
			m.fallbacks,
			m.apiOffline,
		)
	}
	return m
}

func (m *Metrics) hit() {
	if m != nil {
		m.cacheHits.Inc()
	}
}

func (m *Metrics) miss() {
	if m != nil {
		m.cacheMisses.Inc()
	}
}

func (m *Metrics) revalidation() {
	if m != nil {
		m.revalidations.Inc()
	}
}

func (m *Metrics) fallback(kind string) {
	if m != nil {
		m.fallbacks.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) apiUnreachable() {
	if m != nil {
		m.apiOffline.Inc()
	}
}
