// Package metrics exposes Prometheus instrumentation for the stress engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vire_stress"

// Recorder holds the engine's collectors. A nil *Recorder is valid and records nothing,
// so services can be constructed without metrics.
type Recorder struct {
	runs            *prometheus.CounterVec
	runDuration     prometheus.Histogram
	classifications *prometheus.CounterVec
	priceFallbacks  *prometheus.CounterVec
	suspicious      prometheus.Counter
}

// NewRecorder creates the collectors and registers them with reg.
// Pass prometheus.NewRegistry() in tests to avoid clashing with the default registry.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scenario_runs_total",
				Help:      "Total scenario runs by final status.",
			},
			[]string{"status"},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "scenario_run_duration_seconds",
				Help:      "Wall-clock duration of scenario runs.",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60},
			},
		),
		classifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "classifications_total",
				Help:      "Total asset classifications by the tier that produced them.",
			},
			[]string{"source"},
		),
		priceFallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "price_fallbacks_total",
				Help:      "Total positions priced from the stored price instead of a live quote.",
			},
			[]string{"reason"},
		),
		suspicious: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "suspicious_zero_impact_total",
				Help:      "Stress tests where material shocks produced no portfolio impact.",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(r.runs, r.runDuration, r.classifications, r.priceFallbacks, r.suspicious)
	}
	return r
}

// ObserveRun records a completed or failed scenario run.
func (r *Recorder) ObserveRun(status string, d time.Duration) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(status).Inc()
	r.runDuration.Observe(d.Seconds())
}

// Classified records which classifier tier resolved a symbol.
func (r *Recorder) Classified(source string) {
	if r == nil {
		return
	}
	r.classifications.WithLabelValues(source).Inc()
}

// PriceFallback records a position priced from its stored price.
// reason is one of "error", "rate_limited", "missing", "invalid".
func (r *Recorder) PriceFallback(reason string) {
	if r == nil {
		return
	}
	r.priceFallbacks.WithLabelValues(reason).Inc()
}

// SuspiciousZeroImpact records a flagged stress result.
func (r *Recorder) SuspiciousZeroImpact() {
	if r == nil {
		return
	}
	r.suspicious.Inc()
}
