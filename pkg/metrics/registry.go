// Package metrics provides Prometheus metrics collection for dittohandle.
//
// All metrics are optional - if not initialized, components use no-op
// implementations. This allows the client to run with or without metrics
// collection enabled.
//
// Usage:
//
//	// Initialize global registry (typically in main.go)
//	metrics.InitRegistry()
//
//	// Wrap a record store so its operations are observed
//	rs = store.Instrument(rs, "badger", prometheus.NewStoreMetrics())
//
//	// At exit, write the collected samples for the node exporter
//	_ = metrics.WriteTextfile("/var/lib/node_exporter/dittohandle.prom")
package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// registry is the global Prometheus registry for all dittohandle metrics
	// Protected by registryOnce for write-once, read-many pattern
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry initializes the global Prometheus registry.
//
// This must be called before creating any metrics instances. It's safe to call
// multiple times - subsequent calls are ignored.
//
// If not called, GetRegistry() will return nil and all metrics constructors
// will return nil, which store.Instrument treats as no-op.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
	})
}

// GetRegistry returns the global Prometheus registry.
//
// Returns nil if InitRegistry() has not been called, indicating metrics
// are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled returns true if metrics collection is enabled.
//
// Metrics are enabled if InitRegistry() has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}

// WriteTextfile writes the current samples to path in the text format read by
// the node exporter's textfile collector. It is a no-op when metrics are disabled.
func WriteTextfile(path string) error {
	if !IsEnabled() || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, GetRegistry()); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
