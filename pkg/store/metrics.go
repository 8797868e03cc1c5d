package store

import (
	"context"
	"time"

	"github.com/marmos91/dittohandle/pkg/handle"
)

// Metrics provides observability for record store operations.
//
// This is optional: a nil Metrics passed to Instrument falls back to a no-op
// implementation.
type Metrics interface {
	// ObserveOperation records one store operation with its duration and outcome
	ObserveOperation(backend, operation string, duration time.Duration, err error)

	// RecordEntries records how many entries an operation read or wrote
	RecordEntries(backend, operation string, count int)
}

// noopMetrics is a default no-op metrics implementation
type noopMetrics struct{}

func (noopMetrics) ObserveOperation(backend, operation string, duration time.Duration, err error) {}
func (noopMetrics) RecordEntries(backend, operation string, count int)                            {}

// instrumentedStore wraps a RecordStore and reports every call to Metrics.
type instrumentedStore struct {
	RecordStore
	backend string
	metrics Metrics
}

// Instrument wraps rs so every operation is reported to m under the backend label.
//
// The wrapper keeps the optional Lister and Searcher capabilities of rs.
func Instrument(rs RecordStore, backend string, m Metrics) RecordStore {
	if m == nil {
		m = noopMetrics{}
	}
	base := &instrumentedStore{RecordStore: rs, backend: backend, metrics: m}

	lister, canList := rs.(Lister)
	searcher, canSearch := rs.(Searcher)
	switch {
	case canList && canSearch:
		return &instrumentedFull{instrumentedStore: base, lister: lister, searcher: searcher}
	case canList:
		return &instrumentedLister{instrumentedStore: base, lister: lister}
	case canSearch:
		return &instrumentedSearcher{instrumentedStore: base, searcher: searcher}
	default:
		return base
	}
}

func (s *instrumentedStore) observe(op string, start time.Time, err error) {
	// a missing handle is an answer, not a failure
	if handle.IsNotFound(err) {
		err = nil
	}
	s.metrics.ObserveOperation(s.backend, op, time.Since(start), err)
}

func (s *instrumentedStore) Fetch(ctx context.Context, name string) (*handle.Record, error) {
	start := time.Now()
	rec, err := s.RecordStore.Fetch(ctx, name)
	s.observe("fetch", start, err)
	if rec != nil {
		s.metrics.RecordEntries(s.backend, "fetch", len(rec.Values))
	}
	return rec, err
}

func (s *instrumentedStore) Write(ctx context.Context, req WriteRequest) error {
	start := time.Now()
	err := s.RecordStore.Write(ctx, req)
	s.observe("write", start, err)
	if err == nil {
		s.metrics.RecordEntries(s.backend, "write", len(req.Entries))
	}
	return err
}

func (s *instrumentedStore) Delete(ctx context.Context, name string) error {
	start := time.Now()
	err := s.RecordStore.Delete(ctx, name)
	s.observe("delete", start, err)
	return err
}

func (s *instrumentedStore) DeleteIndices(ctx context.Context, name string, indices []int) error {
	start := time.Now()
	err := s.RecordStore.DeleteIndices(ctx, name, indices)
	s.observe("delete_indices", start, err)
	if err == nil {
		s.metrics.RecordEntries(s.backend, "delete_indices", len(indices))
	}
	return err
}

func (s *instrumentedStore) listHandles(ctx context.Context, l Lister, prefix string) ([]string, error) {
	start := time.Now()
	names, err := l.ListHandles(ctx, prefix)
	s.observe("list", start, err)
	return names, err
}

func (s *instrumentedStore) search(ctx context.Context, q Searcher, query SearchQuery) ([]string, error) {
	start := time.Now()
	names, err := q.Search(ctx, query)
	s.observe("search", start, err)
	return names, err
}

type instrumentedLister struct {
	*instrumentedStore
	lister Lister
}

func (s *instrumentedLister) ListHandles(ctx context.Context, prefix string) ([]string, error) {
	return s.listHandles(ctx, s.lister, prefix)
}

type instrumentedSearcher struct {
	*instrumentedStore
	searcher Searcher
}

func (s *instrumentedSearcher) Search(ctx context.Context, query SearchQuery) ([]string, error) {
	return s.search(ctx, s.searcher, query)
}

type instrumentedFull struct {
	*instrumentedStore
	lister   Lister
	searcher Searcher
}

func (s *instrumentedFull) ListHandles(ctx context.Context, prefix string) ([]string, error) {
	return s.listHandles(ctx, s.lister, prefix)
}

func (s *instrumentedFull) Search(ctx context.Context, query SearchQuery) ([]string, error) {
	return s.search(ctx, s.searcher, query)
}
