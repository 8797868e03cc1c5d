package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/btree"
	"github.com/marmos91/dittohandle/pkg/handle"
	"github.com/marmos91/dittohandle/pkg/store"
)

// DefaultDegree is the B-tree degree used when none is configured.
const DefaultDegree = 32

// recordItem is a btree item ordered by handle name.
type recordItem struct {
	name   string
	record *handle.Record
}

func (i recordItem) Less(than btree.Item) bool {
	return i.name < than.(recordItem).name
}

// MemoryRecordStore keeps handle records in an ordered in-memory B-tree.
//
// Records are ordered by handle name so prefix listings are range scans.
// Nothing is persisted; the store is meant for tests, demos and as the
// backing store of the fake handle server.
//
// Thread Safety:
// All operations are protected by a single RWMutex. Records are copied on
// the way in and on the way out.
type MemoryRecordStore struct {
	mu   sync.RWMutex
	tree *btree.BTree
	now  func() time.Time
}

// MemoryRecordStoreConfig contains configuration for the memory store.
type MemoryRecordStoreConfig struct {
	// Degree is the B-tree degree (default: 32)
	Degree int
}

// NewMemoryRecordStore creates an empty in-memory store.
func NewMemoryRecordStore(cfg MemoryRecordStoreConfig) *MemoryRecordStore {
	degree := cfg.Degree
	if degree < 2 {
		degree = DefaultDegree
	}
	return &MemoryRecordStore{
		tree: btree.New(degree),
		now:  time.Now,
	}
}

// NewMemoryRecordStoreWithDefaults creates an empty in-memory store with the default degree.
func NewMemoryRecordStoreWithDefaults() *MemoryRecordStore {
	return NewMemoryRecordStore(MemoryRecordStoreConfig{})
}

func (s *MemoryRecordStore) get(name string) *handle.Record {
	item := s.tree.Get(recordItem{name: name})
	if item == nil {
		return nil
	}
	return item.(recordItem).record
}

// Fetch implements store.RecordStore.
func (s *MemoryRecordStore) Fetch(ctx context.Context, name string) (*handle.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec := s.get(name)
	if rec == nil {
		return nil, handle.NewNotFoundError(name, "")
	}
	return rec.Clone(), nil
}

// Write implements store.RecordStore.
func (s *MemoryRecordStore) Write(ctx context.Context, req store.WriteRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := store.ApplyWrite(s.get(req.Handle), req, s.now())
	if err != nil {
		return err
	}
	s.tree.ReplaceOrInsert(recordItem{name: req.Handle, record: rec})
	return nil
}

// Delete implements store.RecordStore.
func (s *MemoryRecordStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tree.Delete(recordItem{name: name}) == nil {
		return handle.NewNotFoundError(name, "")
	}
	return nil
}

// DeleteIndices implements store.RecordStore.
func (s *MemoryRecordStore) DeleteIndices(ctx context.Context, name string, indices []int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.get(name)
	if rec == nil {
		return handle.NewNotFoundError(name, "")
	}
	if len(indices) == 0 {
		return nil
	}
	s.tree.ReplaceOrInsert(recordItem{name: name, record: store.RemoveIndices(rec, indices)})
	return nil
}

// ListHandles implements store.Lister.
func (s *MemoryRecordStore) ListHandles(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	names := []string{}
	s.ascend(prefix, func(item recordItem) bool {
		names = append(names, item.name)
		return true
	})
	return names, nil
}

// Search implements store.Searcher.
func (s *MemoryRecordStore) Search(ctx context.Context, query store.SearchQuery) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	names := []string{}
	s.ascend(query.Prefix, func(item recordItem) bool {
		if store.Matches(item.record, query) {
			names = append(names, item.name)
		}
		return true
	})
	return names, nil
}

// ascend visits every record under prefix in name order.
func (s *MemoryRecordStore) ascend(prefix string, fn func(recordItem) bool) {
	if prefix == "" {
		s.tree.Ascend(func(i btree.Item) bool {
			return fn(i.(recordItem))
		})
		return
	}

	start := prefix + "/"
	s.tree.AscendGreaterOrEqual(recordItem{name: start}, func(i btree.Item) bool {
		item := i.(recordItem)
		if !strings.HasPrefix(item.name, start) {
			return false
		}
		return fn(item)
	})
}

// Len returns the number of stored handles.
func (s *MemoryRecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Len()
}

// Close implements store.RecordStore. It drops all records.
func (s *MemoryRecordStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.Clear(false)
	return nil
}
