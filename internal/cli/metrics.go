package cli

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/roach88/chq/internal/store"
)

// newMetricsRegistry returns a registry holding the store's statement
// metrics.
func newMetricsRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	store.MustRegisterMetrics(registry)
	return registry
}

// writeMetrics writes every metric family of registry to w in the
// Prometheus text exposition format.
func writeMetrics(w io.Writer, registry *prometheus.Registry) error {
	families, err := registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}
	return nil
}
