package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/marmos91/dittohandle/pkg/handle"
	"github.com/marmos91/dittohandle/pkg/store"
)

// BadgerRecordStore implements store.RecordStore on an embedded BadgerDB.
//
// Each handle is one key (see keys.go) holding the XDR-encoded record (see
// serialization.go). Reads run in View transactions and every mutation is a
// single Update transaction, so a write either lands completely or not at all.
//
// Thread Safety:
// BadgerDB transactions are safe for concurrent use. Two concurrent writers
// to the same handle may see badger.ErrConflict; the error is returned to the
// caller unchanged.
type BadgerRecordStore struct {
	db  *badgerdb.DB
	now func() time.Time
}

// BadgerRecordStoreConfig contains configuration for the BadgerDB store.
type BadgerRecordStoreConfig struct {
	// DBPath is the directory where BadgerDB keeps its files
	DBPath string

	// InMemory runs BadgerDB without touching disk (DBPath is ignored)
	InMemory bool

	// BlockCacheSizeMB is the block cache size (default: 64)
	BlockCacheSizeMB int64

	// IndexCacheSizeMB is the index cache size (default: 32)
	IndexCacheSizeMB int64

	// BadgerOptions overrides every other option when set
	BadgerOptions *badgerdb.Options
}

// NewBadgerRecordStore opens (or creates) a BadgerDB-backed record store.
//
// Parameters:
//   - ctx: Context for cancellation
//   - config: Store configuration
//
// Returns:
//   - *BadgerRecordStore: The opened store
//   - error: Error if the database cannot be opened
func NewBadgerRecordStore(ctx context.Context, config BadgerRecordStoreConfig) (*BadgerRecordStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badgerdb.Options
	if config.BadgerOptions != nil {
		opts = *config.BadgerOptions
	} else {
		if config.InMemory {
			opts = badgerdb.DefaultOptions("").WithInMemory(true)
		} else {
			if config.DBPath == "" {
				return nil, fmt.Errorf("badger record store: db_path is required")
			}
			opts = badgerdb.DefaultOptions(config.DBPath)
		}

		// Handle records are small; compression is not worth it
		opts = opts.WithLoggingLevel(badgerdb.WARNING)
		opts = opts.WithCompression(options.None)

		blockCacheMB := config.BlockCacheSizeMB
		if blockCacheMB == 0 {
			blockCacheMB = 64
		}
		indexCacheMB := config.IndexCacheSizeMB
		if indexCacheMB == 0 {
			indexCacheMB = 32
		}

		opts = opts.WithBlockCacheSize(blockCacheMB << 20)
		opts = opts.WithIndexCacheSize(indexCacheMB << 20)
	}

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	return &BadgerRecordStore{db: db, now: time.Now}, nil
}

// getRecord loads a record inside txn. Returns nil when the key does not exist.
func getRecord(txn *badgerdb.Txn, name string) (*handle.Record, error) {
	item, err := txn.Get(keyRecord(name))
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	raw, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	return decodeRecord(raw)
}

func putRecord(txn *badgerdb.Txn, rec *handle.Record) error {
	raw, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	return txn.Set(keyRecord(rec.Handle), raw)
}

// Fetch implements store.RecordStore.
func (s *BadgerRecordStore) Fetch(ctx context.Context, name string) (*handle.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rec *handle.Record
	err := s.db.View(func(txn *badgerdb.Txn) error {
		var err error
		rec, err = getRecord(txn, name)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", name, err)
	}
	if rec == nil {
		return nil, handle.NewNotFoundError(name, "")
	}
	return rec, nil
}

// Write implements store.RecordStore.
func (s *BadgerRecordStore) Write(ctx context.Context, req store.WriteRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badgerdb.Txn) error {
		existing, err := getRecord(txn, req.Handle)
		if err != nil {
			return err
		}
		rec, err := store.ApplyWrite(existing, req, s.now())
		if err != nil {
			return err
		}
		return putRecord(txn, rec)
	})
}

// Delete implements store.RecordStore.
func (s *BadgerRecordStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badgerdb.Txn) error {
		_, err := txn.Get(keyRecord(name))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return handle.NewNotFoundError(name, "")
		}
		if err != nil {
			return err
		}
		return txn.Delete(keyRecord(name))
	})
}

// DeleteIndices implements store.RecordStore.
func (s *BadgerRecordStore) DeleteIndices(ctx context.Context, name string, indices []int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badgerdb.Txn) error {
		rec, err := getRecord(txn, name)
		if err != nil {
			return err
		}
		if rec == nil {
			return handle.NewNotFoundError(name, "")
		}
		if len(indices) == 0 {
			return nil
		}
		return putRecord(txn, store.RemoveIndices(rec, indices))
	})
}

// ListHandles implements store.Lister.
func (s *BadgerRecordStore) ListHandles(ctx context.Context, prefix string) ([]string, error) {
	names := []string{}
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = keyRecordPrefix(prefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			names = append(names, handleFromKey(it.Item().Key()))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list handles: %w", err)
	}
	return names, nil
}

// Search implements store.Searcher by scanning records under the query prefix.
func (s *BadgerRecordStore) Search(ctx context.Context, query store.SearchQuery) ([]string, error) {
	names := []string{}
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = keyRecordPrefix(query.Prefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			raw, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			rec, err := decodeRecord(raw)
			if err != nil {
				return err
			}
			if store.Matches(rec, query) {
				names = append(names, rec.Handle)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search handles: %w", err)
	}
	return names, nil
}

// Close implements store.RecordStore.
func (s *BadgerRecordStore) Close() error {
	return s.db.Close()
}
