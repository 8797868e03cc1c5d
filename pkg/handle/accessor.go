package handle

import (
	"github.com/marmos91/dittohandle/internal/logger"
)

// IndicesForType returns the indices of all entries of typ, in record order.
func IndicesForType(typ string, entries []Entry) []int {
	out := []int{}
	for _, e := range entries {
		if e.Type == typ {
			out = append(out, e.Index)
		}
	}
	return out
}

// Value returns the data of the first entry of typ.
//
// Duplicates are not an error here; the first one wins and the rest are
// reported at debug level.
func Value(typ string, entries []Entry) (Data, bool) {
	found := -1
	count := 0
	for i, e := range entries {
		if e.Type != typ {
			continue
		}
		if found < 0 {
			found = i
		}
		count++
	}
	if found < 0 {
		return Data{}, false
	}
	if count > 1 {
		logger.Debug("record contains %d entries of type %s, returning the first", count, typ)
	}
	return entries[found].Data, true
}

// FlatMap maps each type to the text of its first entry.
func FlatMap(entries []Entry) map[string]string {
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		if _, ok := out[e.Type]; ok {
			continue
		}
		out[e.Type] = e.Data.String()
	}
	return out
}
