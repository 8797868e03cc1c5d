package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Tests in this file share the process-wide registry, so they run in order:
// disabled behavior first, then enabled.
func TestRegistry(t *testing.T) {
	dir := t.TempDir()

	t.Run("Disabled", func(t *testing.T) {
		require.False(t, IsEnabled())

		path := filepath.Join(dir, "disabled.prom")
		require.NoError(t, WriteTextfile(path))
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("Enabled", func(t *testing.T) {
		InitRegistry()
		InitRegistry()
		require.True(t, IsEnabled())

		counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "dittohandle_test_total", Help: "test"})
		GetRegistry().MustRegister(counter)
		counter.Inc()

		families, err := GetRegistry().Gather()
		require.NoError(t, err)
		require.Len(t, families, 1)
		assert.Equal(t, "dittohandle_test_total", families[0].GetName())

		path := filepath.Join(dir, "enabled.prom")
		require.NoError(t, WriteTextfile(path))
		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(raw), "dittohandle_test_total 1")
	})
}
