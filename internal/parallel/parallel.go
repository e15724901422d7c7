// Package parallel provides the work-partitioning collaborator every
// trainer and searcher in this module is built against (spec.md §5, §9):
// split n items into chunks, run each chunk concurrently, and fold results
// back in shard order so output never depends on goroutine scheduling.
package parallel

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// For splits [0, n) into chunks of at most chunkSize and runs fn over each
// chunk concurrently via an errgroup, returning the first error encountered
// (if any) after every chunk has finished or ctx is cancelled. fn receives
// the inclusive-exclusive [start, end) range it owns.
func For(ctx context.Context, n, chunkSize int, fn func(ctx context.Context, start, end int) error) error {
	if n <= 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = n
	}

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < n; start += chunkSize {
		start := start
		end := start + chunkSize
		if end > n {
			end = n
		}
		g.Go(func() error {
			return fn(gctx, start, end)
		})
	}
	return g.Wait()
}

// MapReduce runs fn over n items in chunks of chunkSize, collecting one
// result per chunk, then folds the per-chunk results back together in
// ascending chunk-index order (not completion order) so the combined
// result is deterministic regardless of which goroutine finishes first.
func MapReduce[T any](ctx context.Context, n, chunkSize int, fn func(ctx context.Context, start, end int) (T, error), reduce func(acc T, next T) T, zero T) (T, error) {
	if n <= 0 {
		return zero, nil
	}
	if chunkSize <= 0 {
		chunkSize = n
	}

	numChunks := (n + chunkSize - 1) / chunkSize
	results := make([]T, numChunks)

	g, gctx := errgroup.WithContext(ctx)
	for ci := 0; ci < numChunks; ci++ {
		ci := ci
		start := ci * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		g.Go(func() error {
			r, err := fn(gctx, start, end)
			if err != nil {
				return err
			}
			results[ci] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return zero, err
	}

	acc := zero
	for _, r := range results {
		acc = reduce(acc, r)
	}
	return acc, nil
}
