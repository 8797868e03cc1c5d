package client

import (
	"context"
	"slices"

	"github.com/marmos91/dittohandle/internal/logger"
	"github.com/marmos91/dittohandle/pkg/handle"
	"github.com/marmos91/dittohandle/pkg/store"
)

// Search returns the handles whose records match every pair, optionally
// limited to one prefix. Values may use '*' wildcards.
//
// When AllowedSearchKeys is configured, other keys are dropped; if no key
// is left the search fails with ErrReverseLookup.
func (c *Client) Search(ctx context.Context, prefix string, pairs handle.Changes) ([]string, error) {
	logger.Debug("search %v (prefix %q)", pairs.Types(), prefix)

	searcher, ok := c.store.(store.Searcher)
	if !ok {
		return nil, &handle.HandleError{Code: handle.ErrReverseLookup, Op: "searching handles",
			Message: "record store does not support search"}
	}

	query := store.SearchQuery{Prefix: prefix}
	for _, p := range pairs {
		if len(c.cfg.AllowedSearchKeys) > 0 && !slices.Contains(c.cfg.AllowedSearchKeys, p.Type) {
			logger.Debug("search: key %s is not searchable, ignoring it", p.Type)
			continue
		}
		query.Pairs = append(query.Pairs, p)
	}
	if len(query.Pairs) == 0 {
		return nil, &handle.HandleError{Code: handle.ErrReverseLookup, Op: "searching handles",
			Message: "no searchable key given", Keys: pairs.Types()}
	}

	return searcher.Search(ctx, query)
}

// ListHandles returns the handles under prefix, or all handles when prefix is empty.
func (c *Client) ListHandles(ctx context.Context, prefix string) ([]string, error) {
	lister, ok := c.store.(store.Lister)
	if !ok {
		return nil, &handle.HandleError{Code: handle.ErrTransport, Op: "listing handles",
			Message: "record store does not support listing"}
	}
	return lister.ListHandles(ctx, prefix)
}
