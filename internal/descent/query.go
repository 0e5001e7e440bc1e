package descent

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/hupe1980/nndescent/distance"
	"github.com/hupe1980/nndescent/graph"
	"github.com/hupe1980/nndescent/internal/heap"
	"github.com/hupe1980/nndescent/internal/parallel"
	"github.com/hupe1980/nndescent/internal/visited"
)

// NNDQuery refines init into each query point's approximate k nearest
// references. dist is the query-to-reference distance (first index query,
// second reference); refKNN is the pre-built k-NN graph of the reference
// set, which stays read-only throughout. The general-neighbor heap over the
// references is built once — the reference graph never changes, so neither
// do its candidate neighborhoods.
func NNDQuery(ctx context.Context, dist distance.PairFunc, refKNN, init *graph.Graph, cfg Config) (*graph.Graph, Stats, error) {
	nQueries := init.NPoints
	k := init.NNbrs
	nRef := refKNN.NPoints
	log := cfg.logger()
	limiter := rate.NewLimiter(rate.Every(time.Second), 1)

	var stats Stats

	cur := heap.New(nQueries, k)
	if err := GraphToHeap(ctx, cur, init, false, cfg); err != nil {
		if !isInterrupt(err) {
			return nil, stats, err
		}
		stats.Interrupted = true
	}

	tol := cfg.Delta * float64(k) * float64(nQueries)

	serialPr := cfg.Priority.New()

	gn := heap.New(nRef, cfg.MaxCandidates)
	BuildGeneralNbrs(refKNN, gn, serialPr)
	if cfg.Priority.ShouldSort() {
		if err := SortHeap(ctx, gn, cfg); err != nil && !isInterrupt(err) {
			return nil, stats, err
		}
	}

	// With candidate capacity at least k, every pushed candidate is
	// retained, so flags can be flipped at push time. Otherwise flipping
	// must wait for the post-scan membership test.
	flagOnAdd := cfg.MaxCandidates >= k

	progress := func(done int) error {
		if cfg.Verbose && limiter.Allow() {
			log.Debug("queries processed", "done", done, "total", nQueries)
		}
		return nil
	}

	for iter := 0; !stats.Interrupted && iter < cfg.NIters; iter++ {
		newNbrs := heap.New(nQueries, cfg.MaxCandidates)

		// Candidate building and flag bookkeeping touch only the row being
		// scanned, so the parallel partition by query row needs no locks.
		err := parallel.BatchFor(ctx, nQueries, cfg.BlockSize, cfg.GrainSize, cfg.Workers, func(begin, end int) {
			BuildQueryCandidates(cur, serialPriorityFor(cfg, serialPr), newNbrs, flagOnAdd, begin, end)
		}, progress)
		if err != nil {
			stats.Interrupted = true
			break
		}

		if !flagOnAdd {
			if err = parallel.BatchFor(ctx, nQueries, cfg.BlockSize, cfg.GrainSize, cfg.Workers, func(begin, end int) {
				FlagRetainedNewCandidates(cur, newNbrs, begin, end)
			}, nil); err != nil {
				stats.Interrupted = true
				break
			}
		}

		if cfg.Priority.ShouldSort() {
			if err = SortHeap(ctx, newNbrs, cfg); err != nil {
				stats.Interrupted = true
				break
			}
		}

		var total atomic.Int64
		err = parallel.BatchFor(ctx, nQueries, cfg.BlockSize, cfg.GrainSize, cfg.Workers, func(begin, end int) {
			u := &QueryUpdater{Heap: cur, Dist: dist}
			seen := visited.New(nRef)
			total.Add(int64(NonSearchQuery(u, newNbrs, gn, seen, cfg.MaxCandidates, begin, end)))
		}, progress)
		c := int(total.Load())

		stats.Iterations = iter + 1
		stats.Updates += c
		if cfg.OnIteration != nil {
			cfg.OnIteration(iter, c)
		}
		if cfg.Verbose {
			log.Info("query iteration finished", "iter", iter+1, "updates", c, "heap_sum", heapSum(cur))
		}

		if err != nil {
			stats.Interrupted = true
			break
		}
		if float64(c) <= tol {
			stats.Converged = true
			if cfg.Verbose {
				log.Info("converged", "iter", iter+1, "updates", c, "tol", tol)
			}
			break
		}
	}

	if err := SortHeap(context.WithoutCancel(ctx), cur, cfg); err != nil {
		return nil, stats, err
	}
	return graph.FromHeap(cur), stats, nil
}

// serialPriorityFor hands chunk bodies a priority stream: the shared one on
// the serial path, a fresh worker stream otherwise.
func serialPriorityFor(cfg Config, serial Priority) Priority {
	if cfg.Workers > 1 {
		return cfg.Priority.New()
	}
	return serial
}
