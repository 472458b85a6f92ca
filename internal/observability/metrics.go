// Package observability owns the Prometheus registry shared by the
// explorer's components.
package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/batamp/batamp-explorer/internal/logger"
	"github.com/batamp/batamp-explorer/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry    *prometheus.Registry
	Crossfilter *metrics.CrossfilterMetrics
}

// NewMetrics creates a registry and registers every collector on it.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	crossfilterMetrics, err := metrics.NewCrossfilterMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create Crossfilter metrics: %w", err)
	}

	return &Metrics{
		registry:    registry,
		Crossfilter: crossfilterMetrics,
	}, nil
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the current metric values in the text exposition
// format, for pickup by a node exporter textfile collector. Commands are
// short lived, so metrics are flushed once on exit instead of scraped.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	log.Debug("metrics written", logger.String("path", path))
	return nil
}
