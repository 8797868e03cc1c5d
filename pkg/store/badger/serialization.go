package badger

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/marmos91/dittohandle/pkg/handle"
	xdr "github.com/rasky/go-xdr/xdr2"
)

// Serialization Strategy
// ======================
//
// Records are encoded with XDR: fixed field order, length-prefixed strings and
// arrays, no schema negotiation. Entry payloads keep their wire JSON in an
// opaque field so formats the client does not interpret survive unchanged.
//
// Optional TTLs are stored as a presence flag plus value.

// recordData is the on-disk representation of a handle record.
type recordData struct {
	Handle  string
	Entries []entryData
}

// entryData is the on-disk representation of one entry.
type entryData struct {
	Index     int32
	Type      string
	Data      []byte // wire JSON of handle.Data
	HasTTL    bool
	TTL       int32
	Timestamp string
}

func encodeRecord(rec *handle.Record) ([]byte, error) {
	rd := recordData{Handle: rec.Handle, Entries: make([]entryData, 0, len(rec.Values))}
	for _, e := range rec.Values {
		data, err := json.Marshal(e.Data)
		if err != nil {
			return nil, fmt.Errorf("encode data of index %d: %w", e.Index, err)
		}
		ed := entryData{
			Index:     int32(e.Index),
			Type:      e.Type,
			Data:      data,
			Timestamp: e.Timestamp,
		}
		if e.TTL != nil {
			ed.HasTTL = true
			ed.TTL = int32(*e.TTL)
		}
		rd.Entries = append(rd.Entries, ed)
	}

	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, &rd); err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeRecord(raw []byte) (*handle.Record, error) {
	var rd recordData
	if _, err := xdr.Unmarshal(bytes.NewReader(raw), &rd); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}

	rec := &handle.Record{Handle: rd.Handle, Values: make([]handle.Entry, 0, len(rd.Entries))}
	for _, ed := range rd.Entries {
		e := handle.Entry{Index: int(ed.Index), Type: ed.Type, Timestamp: ed.Timestamp}
		if err := json.Unmarshal(ed.Data, &e.Data); err != nil {
			return nil, fmt.Errorf("decode data of index %d: %w", ed.Index, err)
		}
		if ed.HasTTL {
			ttl := int(ed.TTL)
			e.TTL = &ttl
		}
		rec.Values = append(rec.Values, e)
	}
	return rec, nil
}
