// Package store defines the persistence boundary for handle records.
//
// A RecordStore fetches whole records and writes either whole records or a
// subset of indices. Backends live in sub-packages (memory, badger, sqlite,
// rest, s3) and are selected through configuration.
package store

import (
	"context"

	"github.com/marmos91/dittohandle/pkg/handle"
)

// RecordStore is the capability every backend provides.
//
// Implementations must be safe for concurrent use. They do not provide
// optimistic concurrency: a fetch followed by a write is last-write-wins
// for the indices it touches.
type RecordStore interface {
	// Fetch returns the record for name.
	//
	// Returns a *handle.HandleError with code ErrNotFound if the handle does
	// not exist. An existing handle with no values is returned as a Record
	// with an empty Values slice.
	Fetch(ctx context.Context, name string) (*handle.Record, error)

	// Write stores entries for a handle.
	//
	// With req.Indices == nil the entries replace the whole record; if the
	// handle exists and req.Overwrite is false, ErrAlreadyExists is returned.
	//
	// With req.Indices set the entries are merged into an existing record
	// (ErrNotFound if it does not exist); an entry whose index is already used
	// replaces it only when req.Overwrite is true, otherwise ErrAlreadyExists.
	Write(ctx context.Context, req WriteRequest) error

	// Delete removes the handle and all its values.
	// Returns ErrNotFound if the handle does not exist.
	Delete(ctx context.Context, name string) error

	// DeleteIndices removes the entries at the given indices.
	// Returns ErrNotFound if the handle does not exist. Indices that are not
	// present are ignored. An empty index list is a no-op.
	DeleteIndices(ctx context.Context, name string, indices []int) error

	// Close releases backend resources.
	Close() error
}

// WriteRequest describes one write to a RecordStore.
type WriteRequest struct {
	// Handle is the handle name (prefix/suffix)
	Handle string

	// Entries are the entries to store
	Entries []handle.Entry

	// Indices selects a partial write; nil writes the whole record
	Indices []int

	// Overwrite permits replacing an existing handle or index
	Overwrite bool
}

// Partial reports whether the request only touches some indices.
func (r WriteRequest) Partial() bool {
	return r.Indices != nil
}

// Lister is implemented by backends that can enumerate handles.
type Lister interface {
	// ListHandles returns all handle names starting with prefix + "/",
	// or every handle when prefix is empty, sorted.
	ListHandles(ctx context.Context, prefix string) ([]string, error)
}

// Searcher is implemented by backends that can find handles by value.
type Searcher interface {
	// Search returns the handles whose records match every pair in the query.
	Search(ctx context.Context, query SearchQuery) ([]string, error)
}

// SearchQuery selects handles by type/value pairs.
//
// Values may contain '*' wildcards. Pair types are matched exactly.
type SearchQuery struct {
	// Prefix restricts results to one handle prefix (optional)
	Prefix string

	// Pairs holds the required type/value pairs
	Pairs handle.Changes
}
