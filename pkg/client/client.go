// Package client implements handle record operations on top of a RecordStore.
//
// A Client reads records, registers new handles, and modifies or deletes
// values. Every modification fetches the current record, computes the entries
// to write with a handle.Reconciler, and submits only the touched indices.
// Fetch and write are not atomic: concurrent writers to the same handle are
// last-write-wins for the indices they touch.
package client

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/marmos91/dittohandle/internal/logger"
	"github.com/marmos91/dittohandle/pkg/handle"
	"github.com/marmos91/dittohandle/pkg/store"
)

// Config holds the client settings.
type Config struct {
	// HandleOwner is the "index:prefix/suffix" written into HS_ADMIN entries.
	// Empty means "200:0.NA/<prefix of the handle>".
	HandleOwner string

	// AdminPermissions is the 12-bit HS_ADMIN permission string
	AdminPermissions string

	// PadAdminPermissions right-pads shorter permission strings with zeros
	PadAdminPermissions bool

	// AllowAdminModification permits changing HS_ADMIN through ModifyValues
	AllowAdminModification bool

	// DefaultTTL is set on entries the client creates (0 = server default)
	DefaultTTL int

	// AllowedSearchKeys restricts the types Search passes on (empty = all)
	AllowedSearchKeys []string
}

// Client performs handle operations against a RecordStore.
//
// Thread Safety:
// A Client holds no mutable state and is safe for concurrent use as long as
// the underlying store is.
type Client struct {
	store      store.RecordStore
	cfg        Config
	reconciler *handle.Reconciler
	newID      func() string
}

// New creates a client.
//
// Parameters:
//   - rs: The record store to read from and write to
//   - cfg: Client settings
//
// Returns:
//   - *Client: The client
//   - error: ErrInvalidHandle for a malformed owner, or an error for invalid permissions
func New(rs store.RecordStore, cfg Config) (*Client, error) {
	if rs == nil {
		return nil, fmt.Errorf("record store is required")
	}
	if cfg.HandleOwner != "" {
		if _, _, err := handle.ParseOwner(cfg.HandleOwner); err != nil {
			return nil, err
		}
	}

	perms := cfg.AdminPermissions
	if perms == "" {
		perms = handle.DefaultAdminPermissions
	}
	if cfg.PadAdminPermissions {
		perms = handle.PadPermissions(perms)
	}
	if !handle.IsBitString(perms) {
		return nil, fmt.Errorf("admin permissions %q must contain only 0 and 1", perms)
	}
	if len(perms) > 12 {
		return nil, fmt.Errorf("admin permissions %q must not exceed 12 bits", perms)
	}
	cfg.AdminPermissions = perms

	return &Client{
		store: rs,
		cfg:   cfg,
		reconciler: handle.NewReconciler(handle.Policy{
			AdminPermissions:       perms,
			AllowAdminModification: cfg.AllowAdminModification,
		}),
		newID: uuid.NewString,
	}, nil
}

// Store returns the underlying record store.
func (c *Client) Store() store.RecordStore {
	return c.store
}

// Close closes the underlying record store.
func (c *Client) Close() error {
	return c.store.Close()
}

// normalize strips a hdl:/doi: scheme and checks the handle syntax.
func normalize(name string) (string, error) {
	if err := handle.CheckSyntax(name); err != nil {
		return "", err
	}
	return handle.StripScheme(name), nil
}

func (c *Client) ttl(explicit *int) *int {
	if explicit != nil {
		return explicit
	}
	if c.cfg.DefaultTTL > 0 {
		ttl := c.cfg.DefaultTTL
		return &ttl
	}
	return nil
}

// RetrieveRecordJSON returns the full record, or nil when the handle does not exist.
func (c *Client) RetrieveRecordJSON(ctx context.Context, name string) (*handle.Record, error) {
	logger.Debug("retrieve record %s", name)

	name, err := normalize(name)
	if err != nil {
		return nil, err
	}
	rec, err := c.store.Fetch(ctx, name)
	if handle.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// RetrieveRecord returns the record as a type → value map, or nil when the
// handle does not exist. Duplicated types keep their first value.
func (c *Client) RetrieveRecord(ctx context.Context, name string) (map[string]string, error) {
	rec, err := c.RetrieveRecordJSON(ctx, name)
	if err != nil || rec == nil {
		return nil, err
	}
	return handle.FlatMap(rec.Values), nil
}

// GetValue returns the value of the first entry of type key.
//
// A missing handle is an ErrNotFound error; a missing key is ok=false.
func (c *Client) GetValue(ctx context.Context, name, key string) (handle.Data, bool, error) {
	rec, err := c.RetrieveRecordJSON(ctx, name)
	if err != nil {
		return handle.Data{}, false, err
	}
	if rec == nil {
		return handle.Data{}, false, handle.NewNotFoundError(name, "")
	}
	value, ok := handle.Value(key, rec.Values)
	return value, ok, nil
}

// IndicesForKey returns the indices of all entries of type key.
func (c *Client) IndicesForKey(key string, entries []handle.Entry) []int {
	return handle.IndicesForType(key, entries)
}

// GeneratePIDName returns a random UUID suffix, prefixed with "prefix/" when
// prefix is not empty. Nothing is registered.
func (c *Client) GeneratePIDName(prefix string) string {
	id := c.newID()
	if prefix == "" {
		return id
	}
	return prefix + "/" + id
}
