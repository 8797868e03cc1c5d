package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/marmos91/dittohandle/pkg/handle"
	"github.com/marmos91/dittohandle/pkg/store"
	storetesting "github.com/marmos91/dittohandle/pkg/store/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteRecordStore {
	t.Helper()
	s, err := NewSQLiteRecordStore(context.Background(), SQLiteRecordStoreConfig{
		Path: filepath.Join(t.TempDir(), "handles.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteRecordStore(t *testing.T) {
	suite := &storetesting.StoreTestSuite{
		NewStore: func(t *testing.T) store.RecordStore { return newTestStore(t) },
	}
	suite.Run(t)
}

func TestSQLiteRecordStore_DefaultTTL(t *testing.T) {
	s := newTestStore(t)
	storetesting.MustRegister(t, s, storetesting.TestHandle, storetesting.DefaultRecordEntries())

	rec := storetesting.MustFetch(t, s, storetesting.TestHandle)
	for _, e := range rec.Values {
		require.NotNil(t, e.TTL)
		if e.Type == handle.TypeURL {
			assert.Equal(t, 3600, *e.TTL)
		} else {
			assert.Equal(t, DefaultTTL, *e.TTL)
		}
		assert.NotEmpty(t, e.Timestamp)
	}
}

func TestSQLiteRecordStore_SearchEscapesGlob(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	storetesting.MustRegister(t, s, "21.T1/q", []handle.Entry{
		{Index: 1, Type: handle.TypeURL, Data: handle.StringData("https://x.org/?id=[1]")},
	})
	storetesting.MustRegister(t, s, "21.T1/r", []handle.Entry{
		{Index: 1, Type: handle.TypeURL, Data: handle.StringData("https://x.org/aid=11")},
	})

	names, err := s.Search(ctx, store.SearchQuery{Pairs: handle.Changes{}.Set(handle.TypeURL, "*?id=[1]")})
	require.NoError(t, err)
	assert.Equal(t, []string{"21.T1/q"}, names)
}

func TestAdminValueCodec(t *testing.T) {
	v := handle.AdminValue{Index: 200, Handle: "0.NA/21.T1", Permissions: "011111110011"}

	raw, err := encodeAdminValue(v)
	require.NoError(t, err)
	assert.Len(t, raw, 2+4+len(v.Handle)+4)
	assert.Equal(t, []byte{0x07, 0xF3}, raw[:2])

	got, err := decodeAdminValue(raw)
	require.NoError(t, err)
	assert.Equal(t, v, got)
}

func TestAdminValueCodec_ShortPermissions(t *testing.T) {
	raw, err := encodeAdminValue(handle.AdminValue{Index: 300, Handle: "0.NA/x", Permissions: "1"})
	require.NoError(t, err)

	got, err := decodeAdminValue(raw)
	require.NoError(t, err)
	assert.Equal(t, "100000000000", got.Permissions)
	assert.Equal(t, 300, got.Index)
}

func TestAdminValueCodec_Invalid(t *testing.T) {
	_, err := encodeAdminValue(handle.AdminValue{Handle: "0.NA/x", Permissions: "12"})
	assert.Error(t, err)

	_, err = decodeAdminValue([]byte{0, 1, 0})
	assert.Error(t, err)

	_, err = decodeAdminValue([]byte{0, 1, 0, 0, 0, 9, 'a', 0, 0, 0, 1})
	assert.Error(t, err)
}

func TestGlobPattern(t *testing.T) {
	assert.Equal(t, "*[?]a[[]1]*", globPattern("*?a[1]*"))
	assert.Equal(t, "21.T1/", globEscape("21.T1/"))
}
