package handle

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryJSON_AdminIndexIsString(t *testing.T) {
	entry, err := BuildAdminEntry("", DefaultAdminPermissions, 100, "p/s")
	require.NoError(t, err)

	b, err := json.Marshal(entry)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"index": 100,
		"type": "HS_ADMIN",
		"data": {"format": "admin", "value": {"index": "200", "handle": "0.NA/p", "permissions": "011111110011"}}
	}`, string(b))
}

func TestEntryJSON_Decode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Entry
	}{
		{
			name:  "bare_string",
			input: `{"index":2,"type":"TEST1","data":"val1"}`,
			want:  Entry{Index: 2, Type: "TEST1", Data: StringData("val1")},
		},
		{
			name:  "string_format_with_ttl",
			input: `{"index":1,"type":"URL","data":{"format":"string","value":"http://x"},"ttl":86400,"timestamp":"2015-09-30T15:08:49Z"}`,
			want:  Entry{Index: 1, Type: "URL", Data: Data{Format: FormatString, Text: "http://x"}, TTL: intPtr(86400), Timestamp: "2015-09-30T15:08:49Z"},
		},
		{
			name:  "admin_numeric_index",
			input: `{"index":100,"type":"HS_ADMIN","data":{"format":"admin","value":{"handle":"0.NA/p","index":200,"permissions":"011111110011"}}}`,
			want:  Entry{Index: 100, Type: "HS_ADMIN", Data: AdminData(AdminValue{Index: 200, Handle: "0.NA/p", Permissions: "011111110011"})},
		},
		{
			name:  "admin_string_index",
			input: `{"index":100,"type":"HS_ADMIN","data":{"format":"admin","value":{"handle":"0.NA/p","index":"300","permissions":"011111110011"}}}`,
			want:  Entry{Index: 100, Type: "HS_ADMIN", Data: AdminData(AdminValue{Index: 300, Handle: "0.NA/p", Permissions: "011111110011"})},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Entry
			require.NoError(t, json.Unmarshal([]byte(tt.input), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEntryJSON_UnknownFormatKeptVerbatim(t *testing.T) {
	input := `{"index":3,"type":"10320/LOC","data":{"format":"base64","value":"PGxvY3M+"}}`

	var e Entry
	require.NoError(t, json.Unmarshal([]byte(input), &e))
	assert.Equal(t, "base64", e.Data.Format)
	assert.Equal(t, "PGxvY3M+", e.Data.String())

	out, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, input, string(out))
}

func TestRecordClone(t *testing.T) {
	orig := &Record{Handle: "p/s", Values: sampleEntries()}
	orig.Values[1].TTL = intPtr(10)

	cp := orig.Clone()
	cp.Values[0].Data.Admin.Handle = "changed"
	*cp.Values[1].TTL = 20

	assert.Equal(t, "0.NA/p", orig.Values[0].Data.Admin.Handle)
	assert.Equal(t, 10, *orig.Values[1].TTL)
	assert.Equal(t, []int{100, 1, 2, 5}, orig.Indices())
}

func TestChanges_SetKeepsPosition(t *testing.T) {
	c := Changes{}.Set("A", "1").Set("B", "2").Set("A", "3")
	assert.Equal(t, []string{"A", "B"}, c.Types())
	assert.Equal(t, "3", c[0].Value.Text)
	assert.True(t, c.Has("B"))
	assert.False(t, c.Has("C"))
}
