package handle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckSyntax(t *testing.T) {
	tests := []struct {
		name    string
		handle  string
		wantErr bool
	}{
		{name: "plain", handle: "21.T123/abc", wantErr: false},
		{name: "hdl_scheme", handle: "hdl:21.T123/abc", wantErr: false},
		{name: "doi_scheme", handle: "doi:10.1000/182", wantErr: false},
		{name: "nested_suffix", handle: "21.T123/a/b", wantErr: false},
		{name: "empty", handle: "", wantErr: true},
		{name: "no_slash", handle: "21.T123", wantErr: true},
		{name: "leading_slash", handle: "/abc", wantErr: true},
		{name: "trailing_slash", handle: "21.T123/", wantErr: true},
		{name: "with_index", handle: "300:21.T123/abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckSyntax(tt.handle)
			if tt.wantErr {
				assert.True(t, IsCode(err, ErrInvalidHandle), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPrefixSuffix(t *testing.T) {
	assert.Equal(t, "21.T123", Prefix("hdl:21.T123/abc"))
	assert.Equal(t, "abc", Suffix("21.T123/abc"))
	assert.Equal(t, "21.T123/abc", StripScheme("doi:21.T123/abc"))
}

func TestParseOwner(t *testing.T) {
	idx, name, err := ParseOwner("300:21.T123/USER01")
	require.NoError(t, err)
	assert.Equal(t, 300, idx)
	assert.Equal(t, "21.T123/USER01", name)
}

func TestPermissions(t *testing.T) {
	assert.True(t, IsBitString("011111110011"))
	assert.False(t, IsBitString("01a"))
	assert.False(t, IsBitString(""))
	assert.Equal(t, "011000000000", PadPermissions("011"))
	assert.Equal(t, DefaultAdminPermissions, PadPermissions(DefaultAdminPermissions))
}

func TestHandleError(t *testing.T) {
	base := errors.New("connection refused")
	err := NewTransportError("retrieving handle record", "p/s", base)

	assert.ErrorIs(t, err, base)
	assert.ErrorIs(t, err, &HandleError{Code: ErrTransport})
	assert.NotErrorIs(t, err, &HandleError{Code: ErrNotFound})
	assert.Contains(t, err.Error(), "retrieving handle record")
	assert.Contains(t, err.Error(), "p/s")

	wrapped := errors.Join(errors.New("context"), NewNotFoundError("p/s", "no such handle"))
	assert.True(t, IsNotFound(wrapped))
}
