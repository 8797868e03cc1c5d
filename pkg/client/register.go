package client

import (
	"context"

	"github.com/marmos91/dittohandle/internal/logger"
	"github.com/marmos91/dittohandle/pkg/handle"
	"github.com/marmos91/dittohandle/pkg/store"
)

// ensureAbsent fails with ErrAlreadyExists when name exists.
func (c *Client) ensureAbsent(ctx context.Context, name string) error {
	_, err := c.store.Fetch(ctx, name)
	switch {
	case err == nil:
		logger.Error("Could not register handle %s, as it already exists", name)
		return handle.NewAlreadyExistsError(name, "could not register handle")
	case handle.IsNotFound(err):
		return nil
	default:
		return err
	}
}

// RegisterKV registers name with an HS_ADMIN entry and one entry per pair.
//
// HS_ADMIN goes to index 100, URL to index 1, everything else to the next
// free index from 2. An HS_ADMIN pair is refused. Unless overwrite is set an
// existing handle is an ErrAlreadyExists error.
func (c *Client) RegisterKV(ctx context.Context, name string, pairs handle.Changes, overwrite bool) (string, error) {
	logger.Debug("register handle %s (%d values)", name, len(pairs))

	name, err := normalize(name)
	if err != nil {
		return "", err
	}
	if pairs.Has(handle.TypeAdmin) {
		return "", handle.NewIllegalOperationError("registering handle", name, "HS_ADMIN is created by the client")
	}
	if !overwrite {
		if err := c.ensureAbsent(ctx, name); err != nil {
			return "", err
		}
	}

	admin, err := c.reconciler.AdminEntry(c.cfg.HandleOwner, handle.AllocateIndex(nil, handle.IndexAdmin), name)
	if err != nil {
		return "", err
	}
	entries := []handle.Entry{admin}
	ttl := c.ttl(nil)
	for _, p := range pairs {
		entry, err := handle.NewEntry(p.Type, p.Value, handle.NextIndex(entries, p.Type), ttl)
		if err != nil {
			return "", err
		}
		entries = append(entries, entry)
	}

	return name, c.register(ctx, name, entries, overwrite)
}

// Register registers name with a URL, an optional checksum, and extra pairs.
func (c *Client) Register(ctx context.Context, name, location, checksum string, extra handle.Changes, overwrite bool) (string, error) {
	pairs := append(handle.Changes(nil), extra...)
	if location != "" {
		pairs = pairs.Set(handle.TypeURL, location)
	}
	if checksum != "" {
		pairs = pairs.Set(handle.TypeChecksum, checksum)
	}
	return c.RegisterKV(ctx, name, pairs, overwrite)
}

// GenerateAndRegister registers a handle with a random suffix under prefix
// and returns its name.
func (c *Client) GenerateAndRegister(ctx context.Context, prefix, location, checksum string, extra handle.Changes, overwrite bool) (string, error) {
	return c.Register(ctx, c.GeneratePIDName(prefix), location, checksum, extra, overwrite)
}

// RegisterEntries registers name with caller-built entries. An HS_ADMIN
// entry is added at the first free admin index when entries has none.
// entries is not modified.
func (c *Client) RegisterEntries(ctx context.Context, name string, entries []handle.Entry, overwrite bool) (string, error) {
	logger.Debug("register handle %s (%d entries)", name, len(entries))

	name, err := normalize(name)
	if err != nil {
		return "", err
	}
	if !overwrite {
		if err := c.ensureAbsent(ctx, name); err != nil {
			return "", err
		}
	}

	out := make([]handle.Entry, 0, len(entries)+1)
	for _, e := range entries {
		out = append(out, e.Clone())
	}
	if len(handle.IndicesForType(handle.TypeAdmin, out)) == 0 {
		admin, err := c.reconciler.AdminEntry(c.cfg.HandleOwner, handle.NextIndex(out, handle.TypeAdmin), name)
		if err != nil {
			return "", err
		}
		out = append(out, admin)
	}

	return name, c.register(ctx, name, out, overwrite)
}

func (c *Client) register(ctx context.Context, name string, entries []handle.Entry, overwrite bool) error {
	err := c.store.Write(ctx, store.WriteRequest{Handle: name, Entries: entries, Overwrite: overwrite})
	if err != nil {
		return err
	}
	logger.Info("Handle registered: %s", name)
	return nil
}
