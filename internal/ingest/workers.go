package ingest

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// forEachBounded calls fn for every item using at most workers goroutines.
// Completion order is unspecified. Once ctx is done no further items are
// dispatched; items already handed to a worker still run.
func forEachBounded[T any](ctx context.Context, items []T, workers int, fn func(ctx context.Context, index int, item T)) {
	if len(items) == 0 {
		return
	}
	if workers <= 0 {
		workers = 1
	}

	// Row failures are handled inside fn, so every Go func returns nil and
	// the group never cancels siblings.
	var eg errgroup.Group
	eg.SetLimit(workers)
	for i, item := range items {
		if ctx.Err() != nil {
			break
		}
		eg.Go(func() error {
			fn(ctx, i, item)
			return nil
		})
	}
	_ = eg.Wait()
}
