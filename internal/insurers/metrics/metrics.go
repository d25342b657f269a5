package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the insurers service.
type Metrics struct {
	SyncOutcome *prometheus.CounterVec
	SyncLatency prometheus.Histogram
	CacheHits   *prometheus.CounterVec
}

// New creates and registers all insurer metrics.
func New() *Metrics {
	return &Metrics{
		SyncOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "polledger_line_syncs_total",
			Help: "Line-of-business syncs by outcome",
		}, []string{"outcome"}),
		SyncLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "polledger_line_sync_duration_seconds",
			Help:    "Latency of line-of-business syncs",
			Buckets: prometheus.DefBuckets,
		}),
		CacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "polledger_lines_cache_total",
			Help: "Lines catalog cache lookups by result",
		}, []string{"result"}),
	}
}

// IncrementSync records one sync outcome. Safe on a nil receiver.
func (m *Metrics) IncrementSync(outcome string) {
	if m == nil {
		return
	}
	m.SyncOutcome.WithLabelValues(outcome).Inc()
}

// ObserveSyncLatency records sync duration in seconds. Safe on a nil receiver.
func (m *Metrics) ObserveSyncLatency(seconds float64) {
	if m == nil {
		return
	}
	m.SyncLatency.Observe(seconds)
}

// IncrementCache records a cache hit or miss. Safe on a nil receiver.
func (m *Metrics) IncrementCache(result string) {
	if m == nil {
		return
	}
	m.CacheHits.WithLabelValues(result).Inc()
}
