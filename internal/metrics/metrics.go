package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "windco"

// Recorder holds the instruments of one run behind a private registry.
type Recorder struct {
	registry *prometheus.Registry

	casesStarted   *prometheus.CounterVec
	casesCompleted *prometheus.CounterVec
	caseRetries    *prometheus.CounterVec
	caseDuration   *prometheus.HistogramVec

	optimizerIterations *prometheus.CounterVec
	merit               *prometheus.GaugeVec
}

// NewRecorder builds a recorder with a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		casesStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cases_started_total",
			Help:      "Simulation cases whose first attempt began.",
		}, []string{"dlc"}),
		casesCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cases_completed_total",
			Help:      "Simulation cases that reached a terminal state.",
		}, []string{"dlc", "status"}),
		caseRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "case_retries_total",
			Help:      "Extra attempts beyond the first, per design load case.",
		}, []string{"dlc"}),
		caseDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "case_duration_seconds",
			Help:      "Wall time per case across all attempts.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14),
		}, []string{"backend"}),
		optimizerIterations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "optimizer_iterations_total",
			Help:      "Optimization driver iterations.",
		}, []string{"driver"}),
		merit: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "merit_figure",
			Help:      "Current merit figure value, by figure name.",
		}, []string{"name"}),
	}
}

// Registry exposes the underlying registry for serving and dumping.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// CaseStarted counts a case whose first attempt began.
func (r *Recorder) CaseStarted(dlc string) {
	r.casesStarted.WithLabelValues(dlc).Inc()
}

// CaseCompleted counts a terminal case outcome with its wall time and
// any retries it took.
func (r *Recorder) CaseCompleted(dlc, status, backend string, attempts int, d time.Duration) {
	r.casesCompleted.WithLabelValues(dlc, status).Inc()
	if attempts > 1 {
		r.caseRetries.WithLabelValues(dlc).Add(float64(attempts - 1))
	}
	r.caseDuration.WithLabelValues(backend).Observe(d.Seconds())
}

// OptimizerIteration counts one driver iteration.
func (r *Recorder) OptimizerIteration(driver string) {
	r.optimizerIterations.WithLabelValues(driver).Inc()
}

// SetMerit tracks the named merit figure.
func (r *Recorder) SetMerit(name string, value float64) {
	r.merit.WithLabelValues(name).Set(value)
}
