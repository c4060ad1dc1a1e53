package avatar

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of an avatar Cache.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	hits          prometheus.Counter
	misses        prometheus.Counter
	fetches       prometheus.Counter
	fetchFailures prometheus.Counter
	sweptEntries  prometheus.Counter
	size          prometheus.Gauge

	registerOnce sync.Once
}

// NewMetrics creates Metrics registered with the given registry.
// If registry is nil, nil is returned.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		return nil
	}
	m := &Metrics{}
	m.register(registry)
	return m
}

func (m *Metrics) register(registry prometheus.Registerer) {
	m.registerOnce.Do(
		func() {
			factory := promauto.With(registry)
			m.hits = factory.NewCounter(
				prometheus.CounterOpts{
					Name: "roster_avatar_cache_hits_total",
					Help: "Total number of avatar cache hits",
				},
			)
			m.misses = factory.NewCounter(
				prometheus.CounterOpts{
					Name: "roster_avatar_cache_misses_total",
					Help: "Total number of avatar cache misses",
				},
			)
			m.fetches = factory.NewCounter(
				prometheus.CounterOpts{
					Name: "roster_avatar_fetches_total",
					Help: "Total number of avatar lookups against the profile service",
				},
			)
			m.fetchFailures = factory.NewCounter(
				prometheus.CounterOpts{
					Name: "roster_avatar_fetch_failures_total",
					Help: "Total number of avatar lookups that yielded no avatar",
				},
			)
			m.sweptEntries = factory.NewCounter(
				prometheus.CounterOpts{
					Name: "roster_avatar_cache_swept_total",
					Help: "Total number of expired avatar cache entries removed by the sweeper",
				},
			)
			m.size = factory.NewGauge(
				prometheus.GaugeOpts{
					Name: "roster_avatar_cache_entries",
					Help: "Current number of avatar cache entries",
				},
			)
		},
	)
}

func (m *Metrics) hit() {
	if m == nil {
		return
	}
	m.hits.Inc()
}

func (m *Metrics) miss() {
	if m == nil {
		return
	}
	m.misses.Inc()
}

func (m *Metrics) fetched(found bool) {
	if m == nil {
		return
	}
	m.fetches.Inc()
	if !found {
		m.fetchFailures.Inc()
	}
}

func (m *Metrics) swept(n int) {
	if m == nil {
		return
	}
	m.sweptEntries.Add(float64(n))
}

func (m *Metrics) setSize(n int) {
	if m == nil {
		return
	}
	m.size.Set(float64(n))
}
