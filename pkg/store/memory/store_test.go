package memory

import (
	"context"
	"testing"

	"github.com/marmos91/dittohandle/pkg/handle"
	"github.com/marmos91/dittohandle/pkg/store"
	storetesting "github.com/marmos91/dittohandle/pkg/store/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMemoryRecordStore runs the complete RecordStore test suite
// against the MemoryRecordStore implementation.
func TestMemoryRecordStore(t *testing.T) {
	suite := &storetesting.StoreTestSuite{
		NewStore: func(t *testing.T) store.RecordStore {
			return NewMemoryRecordStoreWithDefaults()
		},
	}

	suite.Run(t)
}

func TestMemoryRecordStore_Instrumented(t *testing.T) {
	suite := &storetesting.StoreTestSuite{
		NewStore: func(t *testing.T) store.RecordStore {
			return store.Instrument(NewMemoryRecordStoreWithDefaults(), "memory", nil)
		},
	}

	suite.Run(t)
}

func TestMemoryRecordStore_CloseDropsRecords(t *testing.T) {
	s := NewMemoryRecordStoreWithDefaults()
	storetesting.MustRegister(t, s, "21.T1/a", []handle.Entry{{Index: 1, Type: handle.TypeURL, Data: handle.StringData("x")}})
	assert.Equal(t, 1, s.Len())

	require.NoError(t, s.Close())
	assert.Equal(t, 0, s.Len())
}

func TestMemoryRecordStore_CancelledContext(t *testing.T) {
	s := NewMemoryRecordStoreWithDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Fetch(ctx, "21.T1/a")
	assert.ErrorIs(t, err, context.Canceled)
}
