package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/marmos91/dittohandle/internal/logger"
	"github.com/marmos91/dittohandle/pkg/handle"
	"github.com/marmos91/dittohandle/pkg/store"

	_ "modernc.org/sqlite"
)

// DefaultTTL is written for entries that carry no TTL of their own.
const DefaultTTL = 86400

// schema mirrors the handles table of a Handle System SQL storage, one row
// per record entry.
const schema = `
CREATE TABLE IF NOT EXISTS handles (
	handle      TEXT    NOT NULL,
	idx         INTEGER NOT NULL,
	type        TEXT    NOT NULL,
	data        BLOB,
	ttl_type    INTEGER NOT NULL DEFAULT 0,
	ttl         INTEGER NOT NULL DEFAULT 86400,
	timestamp   INTEGER NOT NULL DEFAULT 0,
	refs        TEXT    NOT NULL DEFAULT '',
	admin_read  INTEGER NOT NULL DEFAULT 1,
	admin_write INTEGER NOT NULL DEFAULT 1,
	pub_read    INTEGER NOT NULL DEFAULT 1,
	pub_write   INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (handle, idx)
);
CREATE INDEX IF NOT EXISTS handles_type ON handles (type);`

const insertEntry = `INSERT OR REPLACE INTO handles
	(handle, idx, type, data, ttl_type, ttl, timestamp, refs, admin_read, admin_write, pub_read, pub_write)
	VALUES (?, ?, ?, ?, 0, ?, ?, '', 1, 1, 1, 0)`

// SQLiteRecordStore implements store.RecordStore on a SQLite database using
// the handle-server table layout.
//
// HS_ADMIN values are stored in binary form (see admin.go); every other value
// is stored as its text. Value formats other than strings are therefore not
// preserved by this backend.
//
// Thread Safety:
// Writes are serialized by a mutex and run in a transaction each.
type SQLiteRecordStore struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

// SQLiteRecordStoreConfig contains configuration for the SQLite store.
type SQLiteRecordStoreConfig struct {
	// Path is the database file
	Path string
}

// NewSQLiteRecordStore opens the database and creates the handles table if needed.
func NewSQLiteRecordStore(ctx context.Context, cfg SQLiteRecordStoreConfig) (*SQLiteRecordStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite record store: path is required")
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite at %s: %w", cfg.Path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to init handles table: %w", err)
	}

	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode = WAL; PRAGMA synchronous = NORMAL;`); err != nil {
		logger.Warn("sqlite: failed to set PRAGMA: %v", err)
	}

	return &SQLiteRecordStore{db: db, now: time.Now}, nil
}

func encodeData(e handle.Entry) ([]byte, error) {
	if e.Type == handle.TypeAdmin && e.Data.IsAdmin() {
		return encodeAdminValue(*e.Data.Admin)
	}
	return []byte(e.Data.String()), nil
}

func decodeData(typ string, raw []byte) handle.Data {
	if typ != handle.TypeAdmin {
		return handle.StringData(string(raw))
	}
	v, err := decodeAdminValue(raw)
	if err != nil {
		logger.Warn("sqlite: undecodable HS_ADMIN value: %v", err)
		return handle.StringData(string(raw))
	}
	return handle.AdminData(v)
}

// Fetch implements store.RecordStore.
func (s *SQLiteRecordStore) Fetch(ctx context.Context, name string) (*handle.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT idx, type, data, ttl, timestamp FROM handles WHERE handle = ? ORDER BY idx", name)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", name, err)
	}
	defer rows.Close()

	rec := &handle.Record{Handle: name, Values: []handle.Entry{}}
	for rows.Next() {
		var (
			idx       int
			typ       string
			data      []byte
			ttl       int
			timestamp int64
		)
		if err := rows.Scan(&idx, &typ, &data, &ttl, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", name, err)
		}
		e := handle.Entry{Index: idx, Type: typ, Data: decodeData(typ, data), TTL: &ttl}
		if timestamp > 0 {
			e.Timestamp = time.Unix(timestamp, 0).UTC().Format(time.RFC3339)
		}
		rec.Values = append(rec.Values, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(rec.Values) == 0 {
		return nil, handle.NewNotFoundError(name, "")
	}
	return rec, nil
}

func countRows(ctx context.Context, tx *sql.Tx, name string) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, "SELECT count(*) FROM handles WHERE handle = ?", name).Scan(&n)
	return n, err
}

// Write implements store.RecordStore.
func (s *SQLiteRecordStore) Write(ctx context.Context, req store.WriteRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := store.ValidateWrite(req); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := s.write(ctx, tx, req); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *SQLiteRecordStore) write(ctx context.Context, tx *sql.Tx, req store.WriteRequest) error {
	n, err := countRows(ctx, tx, req.Handle)
	if err != nil {
		return err
	}

	if !req.Partial() {
		if n > 0 && !req.Overwrite {
			return handle.NewAlreadyExistsError(req.Handle, "handle already exists")
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM handles WHERE handle = ?", req.Handle); err != nil {
			return err
		}
	} else if n == 0 {
		return handle.NewNotFoundError(req.Handle, "cannot modify unexisting handle")
	}

	stmt, err := tx.PrepareContext(ctx, insertEntry)
	if err != nil {
		return err
	}
	defer stmt.Close()

	stamp := s.now().Unix()
	for _, e := range req.Entries {
		if req.Partial() && !req.Overwrite {
			var exists int
			err := tx.QueryRowContext(ctx, "SELECT count(*) FROM handles WHERE handle = ? AND idx = ?", req.Handle, e.Index).Scan(&exists)
			if err != nil {
				return err
			}
			if exists > 0 {
				return handle.NewAlreadyExistsError(req.Handle, fmt.Sprintf("index %d already exists", e.Index))
			}
		}

		data, err := encodeData(e)
		if err != nil {
			return &handle.HandleError{Code: handle.ErrIllegalOperation, Handle: req.Handle, Message: err.Error()}
		}
		ttl := DefaultTTL
		if e.TTL != nil {
			ttl = *e.TTL
		}
		if _, err := stmt.ExecContext(ctx, req.Handle, e.Index, e.Type, data, ttl, stamp); err != nil {
			return fmt.Errorf("failed to insert index %d: %w", e.Index, err)
		}
	}
	return nil
}

// Delete implements store.RecordStore.
func (s *SQLiteRecordStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM handles WHERE handle = ?", name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return handle.NewNotFoundError(name, "")
	}
	return nil
}

// DeleteIndices implements store.RecordStore.
func (s *SQLiteRecordStore) DeleteIndices(ctx context.Context, name string, indices []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	n, err := countRows(ctx, tx, name)
	if err != nil {
		return err
	}
	if n == 0 {
		return handle.NewNotFoundError(name, "")
	}
	if len(indices) == 0 {
		return nil
	}

	args := make([]any, 0, len(indices)+1)
	args = append(args, name)
	for _, i := range indices {
		args = append(args, i)
	}
	query := "DELETE FROM handles WHERE handle = ? AND idx IN (?" + strings.Repeat(", ?", len(indices)-1) + ")"
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}
	return tx.Commit()
}

// ListHandles implements store.Lister.
func (s *SQLiteRecordStore) ListHandles(ctx context.Context, prefix string) ([]string, error) {
	if prefix == "" {
		return s.queryHandles(ctx, "SELECT DISTINCT handle FROM handles ORDER BY handle")
	}
	return s.queryHandles(ctx, "SELECT DISTINCT handle FROM handles WHERE handle GLOB ? ORDER BY handle",
		globEscape(prefix+"/")+"*")
}

// Search implements store.Searcher. Every pair narrows the result set;
// '*' in a value matches any run of characters.
func (s *SQLiteRecordStore) Search(ctx context.Context, query store.SearchQuery) ([]string, error) {
	if len(query.Pairs) == 0 {
		return s.ListHandles(ctx, query.Prefix)
	}

	var result []string
	for i, pair := range query.Pairs {
		q := "SELECT DISTINCT handle FROM handles WHERE type = ? AND data GLOB ?"
		args := []any{pair.Type, globPattern(pair.Value.String())}
		if query.Prefix != "" {
			q += " AND handle GLOB ?"
			args = append(args, globEscape(query.Prefix+"/")+"*")
		}
		names, err := s.queryHandles(ctx, q+" ORDER BY handle", args...)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			result = names
		} else {
			result = intersect(result, names)
		}
		if len(result) == 0 {
			break
		}
	}
	if result == nil {
		result = []string{}
	}
	return result, nil
}

func (s *SQLiteRecordStore) queryHandles(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query handles: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Close implements store.RecordStore.
func (s *SQLiteRecordStore) Close() error {
	return s.db.Close()
}

// globEscape quotes the GLOB metacharacters in s.
func globEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[':
			b.WriteByte('[')
			b.WriteRune(r)
			b.WriteByte(']')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// globPattern turns a search value into a GLOB pattern, keeping '*' as wildcard.
func globPattern(value string) string {
	parts := strings.Split(value, "*")
	for i, p := range parts {
		parts[i] = globEscape(p)
	}
	return strings.Join(parts, "*")
}

// intersect keeps the elements of a that also appear in b; both are sorted.
func intersect(a, b []string) []string {
	out := []string{}
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return out
}
