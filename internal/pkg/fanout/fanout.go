// Package fanout runs one independent unit of work per item with bounded
// concurrency. A failing or slow item never cancels or blocks its siblings
// beyond the concurrency limit.
package fanout

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultLimit caps concurrent branches when the caller passes limit <= 0.
const DefaultLimit = 50

// Each calls fn for every item concurrently and waits for all of them.
// fn reports its own outcome through captured state.
func Each[T any](ctx context.Context, limit int, items []T, fn func(ctx context.Context, i int, item T)) {
	if len(items) == 0 {
		return
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	// Plain Group, not WithContext: one branch failing must not cancel the others.
	var g errgroup.Group
	g.SetLimit(limit)
	for i, item := range items {
		g.Go(func() error {
			fn(ctx, i, item)
			return nil
		})
	}
	_ = g.Wait()
}
