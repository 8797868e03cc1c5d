package config

import (
	"github.com/marmos91/dittohandle/pkg/metrics"
	promMetrics "github.com/marmos91/dittohandle/pkg/metrics/prometheus"
	"github.com/marmos91/dittohandle/pkg/store"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// StoreMetrics observes record store operations (nil if disabled)
	StoreMetrics store.Metrics

	// Textfile is where Flush writes the samples (empty if not configured)
	Textfile string
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates Prometheus-backed store metrics
//
// If metrics are disabled, StoreMetrics is nil and Flush does nothing.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{}
	}

	metrics.InitRegistry()

	return &MetricsResult{
		StoreMetrics: promMetrics.NewStoreMetrics(),
		Textfile:     cfg.Metrics.Textfile,
	}
}

// Flush writes the collected samples to the configured textfile.
func (m *MetricsResult) Flush() error {
	return metrics.WriteTextfile(m.Textfile)
}
