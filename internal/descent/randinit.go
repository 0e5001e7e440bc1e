package descent

import (
	"context"
	"sort"

	"github.com/hupe1980/nndescent/distance"
	"github.com/hupe1980/nndescent/graph"
	"github.com/hupe1980/nndescent/internal/parallel"
	"github.com/hupe1980/nndescent/internal/rng"
)

// rowSeed derives a per-row stream seed. Per-row streams make the sampled
// graph a function of (seed, row) alone, so serial and parallel runs agree
// for any worker count.
func rowSeed(seed uint64, row int) uint64 {
	return seed + 0x9e3779b97f4a7c15*uint64(row+1)
}

// RandomInit samples, for every point, k distinct neighbors (excluding the
// point itself) and computes their true distances. With sortRows set each
// row comes back ordered ascending by distance, matching the shape descent
// expects from an init graph.
func RandomInit(ctx context.Context, dist distance.PairFunc, n, k int, seed uint64, sortRows bool, cfg Config) (*graph.Graph, error) {
	g := graph.New(n, k)

	err := parallel.BatchFor(ctx, n, cfg.BlockSize, cfg.GrainSize, cfg.Workers, func(begin, end int) {
		for i := begin; i < end; i++ {
			r := rng.New(rowSeed(seed, i))
			idx, di := g.Row(i)
			sampleDistinct(r, n, i, idx)
			for s := range idx {
				di[s] = dist(i, int(idx[s]))
			}
			if sortRows {
				sortRowByDist(idx, di)
			}
		}
	}, nil)
	if err != nil {
		if isInterrupt(err) {
			// Rows already sampled stay usable; the caller decides whether a
			// partial init is acceptable.
			return g, err
		}
		return nil, err
	}
	return g, nil
}

// RandomInitQuery samples k distinct references for every query point. There
// is no self-exclusion: queries and references are separate collections.
func RandomInitQuery(ctx context.Context, dist distance.PairFunc, nQueries, nRef, k int, seed uint64, sortRows bool, cfg Config) (*graph.Graph, error) {
	g := graph.New(nQueries, k)

	err := parallel.BatchFor(ctx, nQueries, cfg.BlockSize, cfg.GrainSize, cfg.Workers, func(begin, end int) {
		for i := begin; i < end; i++ {
			r := rng.New(rowSeed(seed, i))
			idx, di := g.Row(i)
			sampleDistinct(r, nRef, -1, idx)
			for s := range idx {
				di[s] = dist(i, int(idx[s]))
			}
			if sortRows {
				sortRowByDist(idx, di)
			}
		}
	}, nil)
	if err != nil {
		if isInterrupt(err) {
			return g, err
		}
		return nil, err
	}
	return g, nil
}

// sampleDistinct fills out with len(out) distinct draws from [0, n),
// excluding self (pass -1 to disable). Rejection sampling with a linear
// dedup scan; out is short (k is small), so the scan beats a set.
func sampleDistinct(r *rng.Xoroshiro128, n, self int, out []uint32) {
	for s := 0; s < len(out); {
		j := r.Intn(n)
		if j == self {
			continue
		}
		dup := false
		for t := 0; t < s; t++ {
			if out[t] == uint32(j) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		out[s] = uint32(j)
		s++
	}
}

func sortRowByDist(idx []uint32, dist []float32) {
	order := make([]int, len(idx))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return dist[order[a]] < dist[order[b]] })

	sortedIdx := make([]uint32, len(idx))
	sortedDist := make([]float32, len(dist))
	for pos, from := range order {
		sortedIdx[pos] = idx[from]
		sortedDist[pos] = dist[from]
	}
	copy(idx, sortedIdx)
	copy(dist, sortedDist)
}
