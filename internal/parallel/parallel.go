// Package parallel implements the batched data-parallel driver used by every
// pass of the engine. Work over [0, n) rows is submitted in blockSize
// super-batches so that progress reporting and interrupt checks happen
// between batches; inside a batch, grainSize-row chunks are spread across a
// bounded worker pool. Workers run to chunk completion, never suspending
// mid-chunk, which keeps shared heap state consistent at every observation
// point.
package parallel

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Body processes the half-open row range [begin, end).
type Body func(begin, end int)

// Between runs on the driver goroutine after each super-batch with the number
// of rows completed so far. Returning an error aborts the remaining batches.
type Between func(done int) error

// For runs body over [begin, end) in grainSize chunks on up to workers
// goroutines. With workers <= 1 it degenerates to a single serial call, so
// serial and parallel callers share one code path.
func For(ctx context.Context, begin, end, grainSize, workers int, body Body) error {
	if end <= begin {
		return nil
	}
	if workers <= 1 {
		body(begin, end)
		return nil
	}
	if grainSize < 1 {
		grainSize = 1
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for lo := begin; lo < end; lo += grainSize {
		hi := min(lo+grainSize, end)
		g.Go(func() error {
			body(lo, hi)
			return nil
		})
	}

	return g.Wait()
}

// BatchFor runs body over [0, n) in blockSize super-batches, invoking between
// after each one. A context cancellation or a between error stops before the
// next batch; the rows already processed remain applied.
func BatchFor(ctx context.Context, n, blockSize, grainSize, workers int, body Body, between Between) error {
	if n <= 0 {
		return nil
	}
	if blockSize <= 0 || n <= blockSize {
		if err := For(ctx, 0, n, grainSize, workers, body); err != nil {
			return err
		}
		if between != nil {
			return between(n)
		}
		return nil
	}

	for begin := 0; begin < n; begin += blockSize {
		end := min(begin+blockSize, n)
		if err := For(ctx, begin, end, grainSize, workers, body); err != nil {
			return err
		}
		if between != nil {
			if err := between(end); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	return nil
}
