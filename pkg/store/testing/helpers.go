package testing

import (
	"context"
	"slices"
	"testing"

	"github.com/marmos91/dittohandle/pkg/handle"
	"github.com/marmos91/dittohandle/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHandle is the handle most suite tests write to.
const TestHandle = "21.T12345/suite-0001"

// DefaultRecordEntries returns a record as a registration would create it:
// HS_ADMIN at 100, URL at 1 and a checksum at 2.
func DefaultRecordEntries() []handle.Entry {
	ttl := 3600
	return []handle.Entry{
		{
			Index: 100,
			Type:  handle.TypeAdmin,
			Data: handle.AdminData(handle.AdminValue{
				Index:       200,
				Handle:      "0.NA/21.T12345",
				Permissions: handle.DefaultAdminPermissions,
			}),
		},
		{Index: 1, Type: handle.TypeURL, Data: handle.StringData("https://example.org/data/1"), TTL: &ttl},
		{Index: 2, Type: handle.TypeChecksum, Data: handle.StringData("d41d8cd98f00b204e9800998ecf8427e")},
	}
}

// MustRegister writes a whole record or fails the test.
func MustRegister(t *testing.T, s store.RecordStore, name string, entries []handle.Entry) {
	t.Helper()
	err := s.Write(context.Background(), store.WriteRequest{Handle: name, Entries: entries})
	require.NoError(t, err)
}

// MustFetch fetches a record or fails the test.
func MustFetch(t *testing.T, s store.RecordStore, name string) *handle.Record {
	t.Helper()
	rec, err := s.Fetch(context.Background(), name)
	require.NoError(t, err)
	require.NotNil(t, rec)
	return rec
}

// AssertEntries compares entries by index, ignoring order and server timestamps.
// TTLs are only compared where want sets one, since some backends apply a
// default TTL.
func AssertEntries(t *testing.T, want, got []handle.Entry) {
	t.Helper()
	want = sortedByIndex(want)
	got = sortedByIndex(got)

	require.Len(t, got, len(want), "got entries %v", got)
	for i := range want {
		w, g := want[i], got[i]
		assert.Equal(t, w.Index, g.Index)
		assert.Equal(t, w.Type, g.Type, "index %d", w.Index)
		assert.Equal(t, w.Data.IsAdmin(), g.Data.IsAdmin(), "index %d", w.Index)
		if w.Data.IsAdmin() && g.Data.IsAdmin() {
			assert.Equal(t, *w.Data.Admin, *g.Data.Admin, "index %d", w.Index)
		} else {
			assert.Equal(t, w.Data.String(), g.Data.String(), "index %d", w.Index)
		}
		if w.TTL != nil {
			require.NotNil(t, g.TTL, "index %d", w.Index)
			assert.Equal(t, *w.TTL, *g.TTL, "index %d", w.Index)
		}
	}
}

// AssertCode asserts err is a HandleError with the given code.
func AssertCode(t *testing.T, err error, code handle.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, handle.IsCode(err, code), "expected %s, got %v", code, err)
}

func sortedByIndex(entries []handle.Entry) []handle.Entry {
	out := slices.Clone(entries)
	slices.SortFunc(out, func(a, b handle.Entry) int { return a.Index - b.Index })
	return out
}
