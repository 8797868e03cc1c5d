package handle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Well-known record types.
const (
	// TypeURL is the primary resolution target; it prefers index 1
	TypeURL = "URL"

	// TypeChecksum is the conventional checksum type
	TypeChecksum = "CHECKSUM"

	// TypeAdmin is the administrative entry; it lives in [100,199]
	TypeAdmin = "HS_ADMIN"
)

// Data formats understood on the wire.
const (
	FormatString = "string"
	FormatAdmin  = "admin"
)

// DefaultAdminPermissions is the 12-bit HS_ADMIN permission string applied
// when no other value is configured.
const DefaultAdminPermissions = "011111110011"

// Entry is one typed, indexed value of a handle record.
type Entry struct {
	// Index is unique within a record and always >= 1
	Index int `json:"index"`

	// Type is the case-sensitive record type (URL, CHECKSUM, HS_ADMIN, ...)
	Type string `json:"type"`

	// Data is the entry payload
	Data Data `json:"data"`

	// TTL is the optional time-to-live in seconds
	TTL *int `json:"ttl,omitempty"`

	// Timestamp is assigned by the server and cleared on modification
	Timestamp string `json:"timestamp,omitempty"`
}

// Record is a handle name plus its ordered entries.
type Record struct {
	Handle string  `json:"handle"`
	Values []Entry `json:"values"`
}

// Indices returns the indices used by the record, in record order.
func (r *Record) Indices() []int {
	return indicesOf(r.Values)
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := &Record{Handle: r.Handle, Values: make([]Entry, len(r.Values))}
	for i, e := range r.Values {
		out.Values[i] = e.Clone()
	}
	return out
}

// Clone returns a deep copy of the entry.
func (e Entry) Clone() Entry {
	out := e
	if e.TTL != nil {
		ttl := *e.TTL
		out.TTL = &ttl
	}
	out.Data = e.Data.clone()
	return out
}

// AdminValue is the payload of an HS_ADMIN entry.
type AdminValue struct {
	// Index is the index of the owner's key on the admin handle
	Index int

	// Handle is the admin handle (e.g. "0.NA/21.T12345")
	Handle string

	// Permissions is the 12-character 0/1 permission string
	Permissions string
}

type adminValueWire struct {
	Index       json.RawMessage `json:"index"`
	Handle      string          `json:"handle"`
	Permissions string          `json:"permissions,omitempty"`
}

// MarshalJSON writes the index as a numeric-looking string ("200"),
// which is what handle servers have always been sent.
func (a AdminValue) MarshalJSON() ([]byte, error) {
	idx, err := json.Marshal(strconv.Itoa(a.Index))
	if err != nil {
		return nil, err
	}
	return json.Marshal(adminValueWire{Index: idx, Handle: a.Handle, Permissions: a.Permissions})
}

// UnmarshalJSON accepts the index either as a number or as a string.
func (a *AdminValue) UnmarshalJSON(b []byte) error {
	var w adminValueWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	idx, err := parseLooseInt(w.Index)
	if err != nil {
		return fmt.Errorf("admin value index: %w", err)
	}
	a.Index = idx
	a.Handle = w.Handle
	a.Permissions = w.Permissions
	return nil
}

func parseLooseInt(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		return strconv.Atoi(s)
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, err
	}
	return n, nil
}

// Data is the payload of an entry.
//
// On the wire it is either a bare string or an object {"format": ..., "value": ...}.
// Formats other than "string" and "admin" are carried verbatim in Raw.
type Data struct {
	// Format is empty for bare string payloads
	Format string

	// Text holds the value for bare and "string" payloads
	Text string

	// Admin holds the value for "admin" payloads
	Admin *AdminValue

	// Raw holds the JSON value of any other format
	Raw json.RawMessage
}

// StringData returns a bare string payload.
func StringData(s string) Data {
	return Data{Text: s}
}

// AdminData returns an admin-format payload.
func AdminData(v AdminValue) Data {
	return Data{Format: FormatAdmin, Admin: &v}
}

// IsAdmin reports whether the payload is in admin format.
func (d Data) IsAdmin() bool {
	return d.Format == FormatAdmin && d.Admin != nil
}

// String renders the value as text. Admin values are rendered as their JSON object.
func (d Data) String() string {
	switch {
	case d.IsAdmin():
		b, err := json.Marshal(d.Admin)
		if err != nil {
			return ""
		}
		return string(b)
	case d.Format == "" || d.Format == FormatString:
		return d.Text
	default:
		var s string
		if err := json.Unmarshal(d.Raw, &s); err == nil {
			return s
		}
		return string(d.Raw)
	}
}

func (d Data) clone() Data {
	out := d
	if d.Admin != nil {
		a := *d.Admin
		out.Admin = &a
	}
	if d.Raw != nil {
		out.Raw = append(json.RawMessage(nil), d.Raw...)
	}
	return out
}

type dataWire struct {
	Format string          `json:"format"`
	Value  json.RawMessage `json:"value"`
}

// MarshalJSON implements json.Marshaler.
func (d Data) MarshalJSON() ([]byte, error) {
	switch d.Format {
	case "":
		return json.Marshal(d.Text)
	case FormatString:
		v, err := json.Marshal(d.Text)
		if err != nil {
			return nil, err
		}
		return json.Marshal(dataWire{Format: FormatString, Value: v})
	case FormatAdmin:
		if d.Admin == nil {
			return nil, fmt.Errorf("admin data without value")
		}
		v, err := json.Marshal(d.Admin)
		if err != nil {
			return nil, err
		}
		return json.Marshal(dataWire{Format: FormatAdmin, Value: v})
	default:
		raw := d.Raw
		if raw == nil {
			raw = json.RawMessage("null")
		}
		return json.Marshal(dataWire{Format: d.Format, Value: raw})
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Data) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*d = Data{}
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &d.Text)
	}

	var w dataWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	d.Format = w.Format
	switch w.Format {
	case FormatString:
		return json.Unmarshal(w.Value, &d.Text)
	case FormatAdmin:
		var a AdminValue
		if err := json.Unmarshal(w.Value, &a); err != nil {
			return err
		}
		d.Admin = &a
	default:
		d.Raw = append(json.RawMessage(nil), w.Value...)
	}
	return nil
}

func indicesOf(entries []Entry) []int {
	out := make([]int, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Index)
	}
	return out
}
