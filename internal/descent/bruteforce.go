package descent

import (
	"context"

	"github.com/hupe1980/nndescent/distance"
	"github.com/hupe1980/nndescent/graph"
	"github.com/hupe1980/nndescent/internal/heap"
	"github.com/hupe1980/nndescent/internal/parallel"
)

// BruteForce computes the exact k-NN graph of one collection by evaluating
// every pair. Each worker writes only its own rows, so the parallel path
// needs no locks. Used as ground truth and for small inputs where descent
// overhead is not worth it.
func BruteForce(ctx context.Context, dist distance.PairFunc, n, k int, cfg Config) (*graph.Graph, error) {
	h := heap.New(n, k)

	err := parallel.BatchFor(ctx, n, cfg.BlockSize, cfg.GrainSize, cfg.Workers, func(begin, end int) {
		for i := begin; i < end; i++ {
			for j := 0; j < n; j++ {
				if j == i {
					continue
				}
				if d := dist(i, j); d < h.Threshold(i) {
					h.CheckedPush(i, d, uint32(j), 0)
				}
			}
		}
	}, nil)
	if err != nil && !isInterrupt(err) {
		return nil, err
	}

	if err := SortHeap(context.WithoutCancel(ctx), h, cfg); err != nil {
		return nil, err
	}
	return graph.FromHeap(h), nil
}

// BruteForceQuery computes each query point's exact k nearest references.
func BruteForceQuery(ctx context.Context, dist distance.PairFunc, nQueries, nRef, k int, cfg Config) (*graph.Graph, error) {
	h := heap.New(nQueries, k)

	err := parallel.BatchFor(ctx, nQueries, cfg.BlockSize, cfg.GrainSize, cfg.Workers, func(begin, end int) {
		for i := begin; i < end; i++ {
			for j := 0; j < nRef; j++ {
				if d := dist(i, j); d < h.Threshold(i) {
					h.CheckedPush(i, d, uint32(j), 0)
				}
			}
		}
	}, nil)
	if err != nil && !isInterrupt(err) {
		return nil, err
	}

	if err := SortHeap(context.WithoutCancel(ctx), h, cfg); err != nil {
		return nil, err
	}
	return graph.FromHeap(h), nil
}
