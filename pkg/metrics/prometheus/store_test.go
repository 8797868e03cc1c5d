package prometheus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/marmos91/dittohandle/pkg/handle"
	"github.com/marmos91/dittohandle/pkg/store"
	"github.com/marmos91/dittohandle/pkg/store/memory"
	storetesting "github.com/marmos91/dittohandle/pkg/store/testing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreMetrics_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewStoreMetricsWith(reg).(*storeMetrics)

	m.ObserveOperation("memory", "fetch", 5*time.Millisecond, nil)
	m.ObserveOperation("memory", "write", time.Millisecond, handle.NewAlreadyExistsError("21.T1/a", ""))
	m.ObserveOperation("memory", "write", time.Millisecond, errors.New("disk on fire"))
	m.RecordEntries("memory", "write", 3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("memory", "fetch", "success", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("memory", "write", "error", "handle already exists")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("memory", "write", "error", "internal")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.entriesTotal.WithLabelValues("memory", "write")))
}

func TestStoreMetrics_InstrumentedStore(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewStoreMetricsWith(reg)
	rs := store.Instrument(memory.NewMemoryRecordStoreWithDefaults(), "memory", m)

	storetesting.MustRegister(t, rs, storetesting.TestHandle, storetesting.DefaultRecordEntries())
	storetesting.MustFetch(t, rs, storetesting.TestHandle)
	_, err := rs.Fetch(context.Background(), "21.T1/missing")
	require.Error(t, err)

	n, err := testutil.GatherAndCount(reg, "dittohandle_store_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestNewStoreMetrics_Disabled(t *testing.T) {
	assert.Nil(t, NewStoreMetrics())
}
