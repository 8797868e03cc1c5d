package badger

import (
	"context"
	"testing"

	"github.com/marmos91/dittohandle/pkg/handle"
	"github.com/marmos91/dittohandle/pkg/store"
	storetesting "github.com/marmos91/dittohandle/pkg/store/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBadgerRecordStore runs the complete RecordStore test suite against
// a BadgerDB store in a temporary directory.
func TestBadgerRecordStore(t *testing.T) {
	suite := &storetesting.StoreTestSuite{
		NewStore: func(t *testing.T) store.RecordStore {
			s, err := NewBadgerRecordStore(context.Background(), BadgerRecordStoreConfig{
				DBPath:           t.TempDir(),
				BlockCacheSizeMB: 8,
				IndexCacheSizeMB: 8,
			})
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}

	suite.Run(t)
}

func TestBadgerRecordStore_Reopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewBadgerRecordStore(ctx, BadgerRecordStoreConfig{DBPath: dir, BlockCacheSizeMB: 8, IndexCacheSizeMB: 8})
	require.NoError(t, err)
	storetesting.MustRegister(t, s, storetesting.TestHandle, storetesting.DefaultRecordEntries())
	require.NoError(t, s.Close())

	s, err = NewBadgerRecordStore(ctx, BadgerRecordStoreConfig{DBPath: dir, BlockCacheSizeMB: 8, IndexCacheSizeMB: 8})
	require.NoError(t, err)
	defer s.Close()

	storetesting.AssertEntries(t, storetesting.DefaultRecordEntries(), storetesting.MustFetch(t, s, storetesting.TestHandle).Values)
}

func TestBadgerRecordStore_RequiresPath(t *testing.T) {
	_, err := NewBadgerRecordStore(context.Background(), BadgerRecordStoreConfig{})
	assert.Error(t, err)
}

func TestRecordSerialization(t *testing.T) {
	ttl := 120
	rec := &handle.Record{
		Handle: "21.T1/ser",
		Values: []handle.Entry{
			{Index: 100, Type: handle.TypeAdmin, Data: handle.AdminData(handle.AdminValue{Index: 200, Handle: "0.NA/21.T1", Permissions: "011111110011"})},
			{Index: 1, Type: handle.TypeURL, Data: handle.StringData("https://x"), TTL: &ttl, Timestamp: "2024-01-01T00:00:00Z"},
			{Index: 3, Type: "10320/LOC", Data: handle.Data{Format: "base64", Raw: []byte(`"PGxvY3M+"`)}},
		},
	}

	raw, err := encodeRecord(rec)
	require.NoError(t, err)

	got, err := decodeRecord(raw)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, []byte("h:21.T1/a"), keyRecord("21.T1/a"))
	assert.Equal(t, []byte("h:21.T1/"), keyRecordPrefix("21.T1"))
	assert.Equal(t, []byte("h:"), keyRecordPrefix(""))
	assert.Equal(t, "21.T1/a", handleFromKey(keyRecord("21.T1/a")))
}
