package dynamo

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ForEach runs fn for every index in [0, n) concurrently and waits for all
// of them. The first error cancels the shared context and is returned.
// Results must be written by fn into index-addressed slots, so the output
// order never depends on scheduling.
func ForEach(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return fn(ctx, 0)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		idx := i
		g.Go(func() error {
			return fn(gctx, idx)
		})
	}
	return g.Wait()
}
