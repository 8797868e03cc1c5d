package client

import (
	"context"
	"errors"
	"slices"

	"github.com/marmos91/dittohandle/internal/logger"
	"github.com/marmos91/dittohandle/pkg/handle"
	"github.com/marmos91/dittohandle/pkg/store"
)

// fetchExisting fetches a record that is about to be modified.
func (c *Client) fetchExisting(ctx context.Context, name string) (*handle.Record, error) {
	rec, err := c.store.Fetch(ctx, name)
	if handle.IsNotFound(err) {
		return nil, handle.NewNotFoundError(name, "cannot modify unexisting handle")
	}
	return rec, err
}

// ModifyValues sets the given values on name.
//
// Each type present once is overwritten in place. Missing types are added
// when addIfMissing is set (with ttl, or the configured default TTL) and
// skipped otherwise. When nothing changes no write is made. A type present
// more than once fails the whole call with ErrBrokenRecord.
func (c *Client) ModifyValues(ctx context.Context, name string, changes handle.Changes, ttl *int, addIfMissing bool) error {
	return c.modify(ctx, name, changes, handle.ReconcileOptions{
		TTL:          c.ttl(ttl),
		AddIfMissing: addIfMissing,
		Overwrite:    true,
	})
}

// ModifyOrAddValues is ModifyValues with addIfMissing set.
func (c *Client) ModifyOrAddValues(ctx context.Context, name string, changes handle.Changes, ttl *int) error {
	return c.ModifyValues(ctx, name, changes, ttl, true)
}

// ModifyValuesNotAdd only changes types that already exist.
func (c *Client) ModifyValuesNotAdd(ctx context.Context, name string, changes handle.Changes) error {
	return c.ModifyValues(ctx, name, changes, nil, false)
}

// AddValues adds entries for the given types without overwriting any index.
// Changing a type that already exists fails with ErrAlreadyExists from the store.
func (c *Client) AddValues(ctx context.Context, name string, changes handle.Changes, ttl *int) error {
	return c.modify(ctx, name, changes, handle.ReconcileOptions{
		TTL:          c.ttl(ttl),
		AddIfMissing: true,
		Overwrite:    false,
	})
}

func (c *Client) modify(ctx context.Context, name string, changes handle.Changes, opts handle.ReconcileOptions) error {
	logger.Debug("modify handle %s: %v", name, changes.Types())

	name, err := normalize(name)
	if err != nil {
		return err
	}
	rec, err := c.fetchExisting(ctx, name)
	if err != nil {
		return err
	}

	plan, err := c.reconciler.Reconcile(rec.Values, changes, opts)
	if err != nil {
		var herr *handle.HandleError
		if errors.As(err, &herr) && herr.Handle == "" {
			herr.Handle = name
		}
		return err
	}
	if plan.Empty() {
		logger.Debug("modify handle %s: none of %v exists and adding is disabled, nothing to write", name, changes.Types())
		return nil
	}

	err = c.store.Write(ctx, store.WriteRequest{
		Handle:    name,
		Entries:   plan.Entries,
		Indices:   plan.Indices,
		Overwrite: plan.Overwrite,
	})
	if err != nil {
		return err
	}
	logger.Info("Handle modified: %s (%d added, %d changed)", name, plan.Added, plan.Modified)
	return nil
}

// DeleteValues removes every entry whose type is in keys.
//
// HS_ADMIN cannot be deleted this way. When none of keys is present nothing
// is sent, since a delete without indices would remove the whole handle.
func (c *Client) DeleteValues(ctx context.Context, name string, keys ...string) error {
	logger.Debug("delete values %v of %s", keys, name)

	name, err := normalize(name)
	if err != nil {
		return err
	}
	if slices.Contains(keys, handle.TypeAdmin) {
		return handle.NewIllegalOperationError(`deleting "HS_ADMIN"`, name, "HS_ADMIN cannot be deleted")
	}
	rec, err := c.fetchExisting(ctx, name)
	if err != nil {
		return err
	}

	var indices []int
	var done []string
	for _, key := range keys {
		if slices.Contains(done, key) {
			continue
		}
		indices = append(indices, handle.IndicesForType(key, rec.Values)...)
		done = append(done, key)
	}
	if len(indices) == 0 {
		logger.Debug("delete values: no values for key(s) %v in %s", keys, name)
		return nil
	}

	if err := c.store.DeleteIndices(ctx, name, indices); err != nil {
		return err
	}
	logger.Debug("deleted values %v of %s", keys, name)
	return nil
}

// DeleteHandle removes the handle and its record.
func (c *Client) DeleteHandle(ctx context.Context, name string) error {
	logger.Debug("delete handle %s", name)

	name, err := normalize(name)
	if err != nil {
		return err
	}
	if err := c.store.Delete(ctx, name); err != nil {
		return err
	}
	logger.Info("Handle %s deleted", name)
	return nil
}
