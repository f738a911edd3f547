package store

import (
	"context"

	"github.com/poiesic/llmwatch/core"
)

// FetchOptions controls a batch fetch from an index.
type FetchOptions struct {
	// Size bounds the number of items returned.
	Size int

	// IncludeErrored also fetches items that already carry a failure
	// annotation. When false, the must-not-have-error filter applies and
	// previously failed items stay parked.
	IncludeErrored bool

	// SortField orders results ascending by the named source field.
	// Empty means backend-defined order.
	SortField string
}

// DocumentStore abstracts the document store the pipeline drains and writes
// to. Implementations must be safe for concurrent use. Side effects are
// remote and visible immediately to subsequent calls; there is no
// client-side caching.
type DocumentStore interface {
	// FetchBatch returns up to opts.Size work items from index.
	// Fetching from a nonexistent index yields an empty batch, not an error.
	FetchBatch(ctx context.Context, index string, opts FetchOptions) ([]*core.WorkItem, error)

	// Upsert fully replaces the document at id in index, creating it if absent.
	Upsert(ctx context.Context, index, id string, doc map[string]any) error

	// Delete removes the document at id in index. Deleting an absent
	// document is an error unless the backend itself reports success.
	Delete(ctx context.Context, index, id string) error
}
