package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the ledger module.
type Metrics struct {
	// Admission outcomes by result (admitted or rejection code)
	AdmissionOutcome *prometheus.CounterVec

	// Full admission latency including the policy transaction
	AdmitLatency prometheus.Histogram

	// Balance computation latency
	BalanceLatency prometheus.Histogram
}

// New creates a Metrics instance with all ledger metrics registered.
func New() *Metrics {
	return &Metrics{
		AdmissionOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "polledger_admissions_total",
			Help: "Total payment admission attempts by outcome",
		}, []string{"outcome"}),

		AdmitLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "polledger_admit_duration_seconds",
			Help:    "Duration of payment admissions including the policy transaction",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		BalanceLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "polledger_balance_duration_seconds",
			Help:    "Duration of balance computations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
	}
}

// IncrementAdmission records an admission outcome.
func (m *Metrics) IncrementAdmission(outcome string) {
	if m != nil {
		m.AdmissionOutcome.WithLabelValues(outcome).Inc()
	}
}

// ObserveAdmitLatency records the duration of a full admission.
func (m *Metrics) ObserveAdmitLatency(d time.Duration) {
	if m != nil {
		m.AdmitLatency.Observe(d.Seconds())
	}
}

// ObserveBalanceLatency records the duration of a balance computation.
func (m *Metrics) ObserveBalanceLatency(d time.Duration) {
	if m != nil {
		m.BalanceLatency.Observe(d.Seconds())
	}
}
