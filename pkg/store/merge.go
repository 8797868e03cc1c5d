package store

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/marmos91/dittohandle/pkg/handle"
)

// ApplyWrite computes the record that results from req against existing
// (nil when the handle does not exist), following the RecordStore.Write rules.
//
// Backends that store whole records (memory, badger, s3) use this so they
// agree on merge semantics. The returned record is a fresh copy; entries that
// are written get now as their timestamp.
func ApplyWrite(existing *handle.Record, req WriteRequest, now time.Time) (*handle.Record, error) {
	if err := ValidateWrite(req); err != nil {
		return nil, err
	}
	stamp := now.UTC().Format(time.RFC3339)

	if !req.Partial() {
		if existing != nil && !req.Overwrite {
			return nil, handle.NewAlreadyExistsError(req.Handle, "handle already exists")
		}
		out := &handle.Record{Handle: req.Handle, Values: make([]handle.Entry, 0, len(req.Entries))}
		for _, e := range req.Entries {
			e = e.Clone()
			e.Timestamp = stamp
			out.Values = append(out.Values, e)
		}
		return out, nil
	}

	if existing == nil {
		return nil, handle.NewNotFoundError(req.Handle, "cannot modify unexisting handle")
	}
	out := existing.Clone()
	for _, e := range req.Entries {
		e = e.Clone()
		e.Timestamp = stamp
		pos := slices.IndexFunc(out.Values, func(cur handle.Entry) bool { return cur.Index == e.Index })
		if pos < 0 {
			out.Values = append(out.Values, e)
			continue
		}
		if !req.Overwrite {
			return nil, handle.NewAlreadyExistsError(req.Handle, fmt.Sprintf("index %d already exists", e.Index))
		}
		out.Values[pos] = e
	}
	return out, nil
}

// RemoveIndices returns a copy of rec without the entries at indices.
func RemoveIndices(rec *handle.Record, indices []int) *handle.Record {
	out := rec.Clone()
	out.Values = slices.DeleteFunc(out.Values, func(e handle.Entry) bool {
		return slices.Contains(indices, e.Index)
	})
	return out
}

// ValidateWrite checks the entries of req: positive, unique indices and non-empty types.
func ValidateWrite(req WriteRequest) error {
	seen := make(map[int]struct{}, len(req.Entries))
	for _, e := range req.Entries {
		if e.Index < 1 {
			return &handle.HandleError{Code: handle.ErrIllegalOperation, Handle: req.Handle, Message: fmt.Sprintf("invalid index %d", e.Index)}
		}
		if e.Type == "" {
			return &handle.HandleError{Code: handle.ErrIllegalOperation, Handle: req.Handle, Message: fmt.Sprintf("entry %d has no type", e.Index)}
		}
		if _, dup := seen[e.Index]; dup {
			return &handle.HandleError{Code: handle.ErrIllegalOperation, Handle: req.Handle, Message: fmt.Sprintf("index %d written twice", e.Index)}
		}
		seen[e.Index] = struct{}{}
	}
	return nil
}

// Matches reports whether rec satisfies query.
func Matches(rec *handle.Record, query SearchQuery) bool {
	if query.Prefix != "" && !HasPrefix(rec.Handle, query.Prefix) {
		return false
	}
	for _, pair := range query.Pairs {
		re := WildcardPattern(pair.Value.String())
		found := false
		for _, e := range rec.Values {
			if e.Type == pair.Type && re.MatchString(e.Data.String()) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// HasPrefix reports whether name belongs to the handle prefix.
func HasPrefix(name, prefix string) bool {
	return prefix == "" || strings.HasPrefix(name, prefix+"/")
}

// WildcardPattern compiles a search value where '*' matches any run of characters.
func WildcardPattern(value string) *regexp.Regexp {
	parts := strings.Split(value, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile("^" + strings.Join(parts, ".*") + "$")
}
