package store

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MustRegisterMetrics registers the statement metrics on registry.
// It panics if metrics with the same names are already registered.
func MustRegisterMetrics(registry *prometheus.Registry) {
	registry.MustRegister(statementDuration, statementCounter)
}

func sampleStatement(kind string, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	labels := prometheus.Labels{
		"kind":   kind,
		"status": status,
	}
	statementDuration.With(labels).Observe(elapsed.Seconds())
	statementCounter.With(labels).Inc()
}

var (
	statementDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "chq_statement_duration_seconds",
			Help: "Duration of statements sent to the store",
			Buckets: []float64{
				.001, .005, .01, .025, .05, .1, .25, .5, 1,
				2, 5, 10, 30, 60,
			},
		},
		[]string{"kind", "status"},
	)
	statementCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chq_statement_total",
			Help: "Total of statements sent to the store",
		},
		[]string{"kind", "status"},
	)
)
