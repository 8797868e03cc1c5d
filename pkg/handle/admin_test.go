package handle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAdminEntry_DefaultOwner(t *testing.T) {
	entry, err := BuildAdminEntry("", "011111110011", AllocateIndex(nil, IndexAdmin), "p/s")
	require.NoError(t, err)

	assert.Equal(t, 100, entry.Index)
	assert.Equal(t, TypeAdmin, entry.Type)
	assert.Equal(t, FormatAdmin, entry.Data.Format)
	assert.Equal(t, AdminValue{Index: 200, Handle: "0.NA/p", Permissions: "011111110011"}, *entry.Data.Admin)
	assert.Nil(t, entry.TTL)
}

func TestBuildAdminEntry_ExplicitOwner(t *testing.T) {
	entry, err := BuildAdminEntry("300:21.T123/owner", "0111", 101, "21.T123/abc")
	require.NoError(t, err)

	assert.Equal(t, 101, entry.Index)
	// permissions are stored as given, without padding
	assert.Equal(t, AdminValue{Index: 300, Handle: "21.T123/owner", Permissions: "0111"}, *entry.Data.Admin)
}

func TestBuildAdminEntry_BadOwner(t *testing.T) {
	tests := []struct {
		name  string
		owner string
	}{
		{name: "no_colon", owner: "21.T123/owner"},
		{name: "non_numeric_index", owner: "abc:21.T123/owner"},
		{name: "bad_handle", owner: "300:owner"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildAdminEntry(tt.owner, DefaultAdminPermissions, 100, "p/s")
			assert.True(t, IsCode(err, ErrInvalidHandle), "got %v", err)
		})
	}
}

func TestNewEntry(t *testing.T) {
	entry, err := NewEntry(TypeURL, StringData("http://example.org"), 1, intPtr(86400))
	require.NoError(t, err)
	assert.Equal(t, 1, entry.Index)
	assert.Equal(t, 86400, *entry.TTL)

	_, err = NewEntry(TypeAdmin, StringData("x"), 100, nil)
	assert.True(t, IsCode(err, ErrIllegalOperation))
}
