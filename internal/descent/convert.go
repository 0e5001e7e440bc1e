package descent

import (
	"context"

	"github.com/hupe1980/nndescent/graph"
	"github.com/hupe1980/nndescent/internal/heap"
	"github.com/hupe1980/nndescent/internal/parallel"
)

// GraphToHeap pushes every edge of g into dst, flagged NEW. Symmetric adds
// push both directions (build and merge graphs); query adds push only the
// forward direction, since query rows have no reverse neighbors. Symmetric
// adds write across rows, so the parallel path guards dst with row locks.
func GraphToHeap(ctx context.Context, dst *heap.NeighborHeap, g *graph.Graph, symmetric bool, cfg Config) error {
	var locks *heap.RowLocks
	if symmetric && cfg.Workers > 1 {
		locks = heap.NewRowLocks(dst.NPoints())
	}

	body := func(begin, end int) {
		for i := begin; i < end; i++ {
			idx, dist := g.Row(i)
			for k := range idx {
				if idx[k] == heap.NPos {
					continue
				}
				if symmetric {
					dst.LockedCheckedPushPair(locks, i, dist[k], idx[k], 1)
				} else {
					dst.CheckedPush(i, dist[k], idx[k], 1)
				}
			}
		}
	}

	return parallel.BatchFor(ctx, g.NPoints, cfg.BlockSize, cfg.GrainSize, cfg.Workers, body, nil)
}

// SortHeap deheap-sorts every row, spreading rows across workers. Row sorts
// are independent, so no locking is involved.
func SortHeap(ctx context.Context, h *heap.NeighborHeap, cfg Config) error {
	return parallel.BatchFor(ctx, h.NPoints(), cfg.BlockSize, cfg.GrainSize, cfg.Workers, func(begin, end int) {
		for i := begin; i < end; i++ {
			h.SortRow(i)
		}
	}, nil)
}
