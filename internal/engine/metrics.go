package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/logicflow/internal/ir"
)

// Metrics counts interpreter activity. A nil *Metrics records nothing.
type Metrics struct {
	steps    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
}

// NewMetrics registers the interpreter collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		steps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "logicflow_steps_total",
			Help: "Steps executed by the interpreter, by kind and status",
		}, []string{"kind", "status"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "logicflow_step_duration_seconds",
			Help:    "Step execution time by kind",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "logicflow_runs_total",
			Help: "Workflow runs by status",
		}, []string{"status"}),
	}
}

func (m *Metrics) observeStep(kind ir.Kind, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.steps.WithLabelValues(string(kind), statusOf(err)).Inc()
	m.duration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}

func (m *Metrics) observeRun(err error) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(statusOf(err)).Inc()
}

func statusOf(err error) string {
	if err != nil {
		return StatusFailed
	}
	return StatusSucceeded
}
