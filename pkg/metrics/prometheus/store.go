package prometheus

import (
	"sync"
	"time"

	"github.com/marmos91/dittohandle/pkg/handle"
	"github.com/marmos91/dittohandle/pkg/metrics"
	"github.com/marmos91/dittohandle/pkg/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// storeMetrics is the Prometheus implementation of store.Metrics.
type storeMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	entriesTotal      *prometheus.CounterVec
}

var (
	globalStoreMetrics store.Metrics
	globalStoreOnce    sync.Once
)

// NewStoreMetrics returns the Prometheus-backed store.Metrics of the global
// registry. The collectors are registered once; later calls share them.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewStoreMetrics() store.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}
	globalStoreOnce.Do(func() {
		globalStoreMetrics = NewStoreMetricsWith(metrics.GetRegistry())
	})
	return globalStoreMetrics
}

// NewStoreMetricsWith registers the store metrics on reg.
func NewStoreMetricsWith(reg prometheus.Registerer) store.Metrics {
	return &storeMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittohandle_store_operations_total",
				Help: "Total number of record store operations by backend, operation, and status",
			},
			[]string{"backend", "operation", "status", "error_code"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "dittohandle_store_operation_duration_milliseconds",
				Help: "Duration of record store operations in milliseconds",
				Buckets: []float64{
					1,     // 1ms
					10,    // 10ms
					100,   // 100ms
					1000,  // 1s
					10000, // 10s
				},
			},
			[]string{"backend", "operation"},
		),
		entriesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittohandle_store_entries_total",
				Help: "Total number of handle record entries read or written",
			},
			[]string{"backend", "operation"},
		),
	}
}

func (m *storeMetrics) ObserveOperation(backend, operation string, duration time.Duration, err error) {
	status, code := "success", ""
	if err != nil {
		status, code = "error", errorCode(err)
	}

	m.operationsTotal.WithLabelValues(backend, operation, status, code).Inc()
	m.operationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds() * 1000) // Convert to milliseconds
}

func (m *storeMetrics) RecordEntries(backend, operation string, count int) {
	m.entriesTotal.WithLabelValues(backend, operation).Add(float64(count))
}

// errorCode labels an error by its handle error code, or "internal".
func errorCode(err error) string {
	for _, code := range []handle.ErrorCode{
		handle.ErrNotFound,
		handle.ErrAlreadyExists,
		handle.ErrIllegalOperation,
		handle.ErrBrokenRecord,
		handle.ErrInvalidHandle,
		handle.ErrAuthentication,
		handle.ErrReverseLookup,
		handle.ErrTransport,
	} {
		if handle.IsCode(err, code) {
			return code.String()
		}
	}
	return "internal"
}
