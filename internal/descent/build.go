package descent

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/hupe1980/nndescent/distance"
	"github.com/hupe1980/nndescent/graph"
	"github.com/hupe1980/nndescent/internal/heap"
	"github.com/hupe1980/nndescent/internal/parallel"
)

// Config carries the tuning knobs shared by the descent entry points.
type Config struct {
	MaxCandidates int
	NIters        int
	Delta         float64

	// Workers <= 1 selects the serial path. BlockSize rows form one
	// super-batch (progress and interrupt granularity); GrainSize rows form
	// one worker chunk.
	Workers   int
	BlockSize int
	GrainSize int

	Priority  PriorityFactory
	PairDedup bool

	Logger  *slog.Logger
	Verbose bool

	// OnIteration, when set, observes each finished iteration and its update
	// count (metrics hook).
	OnIteration func(iter, updates int)
}

func (c Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}

// Stats reports how a build or query run ended.
type Stats struct {
	Iterations  int
	Updates     int
	Converged   bool
	Interrupted bool
}

func isInterrupt(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// NNDBuild refines init into an approximate k-NN graph over one collection.
// dist must be symmetric. The returned graph has rows sorted ascending by
// distance; on cooperative interruption the best graph computed so far is
// returned with Stats.Interrupted set.
func NNDBuild(ctx context.Context, dist distance.PairFunc, init *graph.Graph, cfg Config) (*graph.Graph, Stats, error) {
	n := init.NPoints
	k := init.NNbrs
	log := cfg.logger()
	limiter := rate.NewLimiter(rate.Every(time.Second), 1)

	var stats Stats

	cur := heap.New(n, k)
	if err := GraphToHeap(ctx, cur, init, true, cfg); err != nil {
		if !isInterrupt(err) {
			return nil, stats, err
		}
		stats.Interrupted = true
	}

	tol := cfg.Delta * float64(k) * float64(n)

	var curLocks *heap.RowLocks
	if cfg.Workers > 1 {
		curLocks = heap.NewRowLocks(n)
	}

	// The serial path reuses one priority stream and one updater for the
	// whole build, so the seen-pair set (when enabled) spans iterations.
	var serialPr Priority
	var serialUpd Updater
	if cfg.Workers <= 1 {
		serialPr = cfg.Priority.New()
		if cfg.PairDedup {
			serialUpd = &SetUpdater{Heap: cur, Dist: dist, Seen: heap.NewPairSet()}
		} else {
			serialUpd = &SerialUpdater{Heap: cur, Dist: dist}
		}
	}

	progress := func(done int) error {
		if cfg.Verbose && limiter.Allow() {
			log.Debug("rows processed", "done", done, "total", n)
		}
		return nil
	}

	for iter := 0; !stats.Interrupted && iter < cfg.NIters; iter++ {
		newNbrs := heap.New(n, cfg.MaxCandidates)
		oldNbrs := heap.New(n, cfg.MaxCandidates)

		var err error
		if cfg.Workers > 1 {
			newLocks := heap.NewRowLocks(n)
			oldLocks := heap.NewRowLocks(n)
			err = parallel.BatchFor(ctx, n, cfg.BlockSize, cfg.GrainSize, cfg.Workers, func(begin, end int) {
				BuildCandidates(cur, cfg.Priority.New(), newNbrs, oldNbrs, newLocks, oldLocks, begin, end)
			}, progress)
		} else {
			err = parallel.BatchFor(ctx, n, cfg.BlockSize, cfg.GrainSize, 1, func(begin, end int) {
				BuildCandidates(cur, serialPr, newNbrs, oldNbrs, nil, nil, begin, end)
			}, progress)
		}
		if err != nil {
			stats.Interrupted = true
			break
		}

		// Candidate heaps are frozen from here on; only flags and the
		// current graph change.
		if err = parallel.BatchFor(ctx, n, cfg.BlockSize, cfg.GrainSize, cfg.Workers, func(begin, end int) {
			FlagRetainedNewCandidates(cur, newNbrs, begin, end)
		}, nil); err != nil {
			stats.Interrupted = true
			break
		}

		if cfg.Priority.ShouldSort() {
			if err = SortHeap(ctx, newNbrs, cfg); err == nil {
				err = SortHeap(ctx, oldNbrs, cfg)
			}
			if err != nil {
				stats.Interrupted = true
				break
			}
		}

		var total atomic.Int64
		if cfg.Workers > 1 {
			err = parallel.BatchFor(ctx, n, cfg.BlockSize, cfg.GrainSize, cfg.Workers, func(begin, end int) {
				u := &LockingUpdater{Heap: cur, Dist: dist, Locks: curLocks}
				if cfg.PairDedup {
					u.Seen = heap.NewPairSet()
				}
				total.Add(int64(LocalJoin(u, newNbrs, oldNbrs, cfg.MaxCandidates, begin, end)))
			}, progress)
		} else {
			err = parallel.BatchFor(ctx, n, cfg.BlockSize, cfg.GrainSize, 1, func(begin, end int) {
				total.Add(int64(LocalJoin(serialUpd, newNbrs, oldNbrs, cfg.MaxCandidates, begin, end)))
			}, progress)
		}
		c := int(total.Load())

		stats.Iterations = iter + 1
		stats.Updates += c
		if cfg.OnIteration != nil {
			cfg.OnIteration(iter, c)
		}
		if cfg.Verbose {
			log.Info("iteration finished", "iter", iter+1, "updates", c, "heap_sum", heapSum(cur))
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

	// Interruption still delivers the best graph found so far, fully sorted.
	if err := SortHeap(context.WithoutCancel(ctx), cur, cfg); err != nil {
		return nil, stats, err
	}
	return graph.FromHeap(cur), stats, nil
}

// heapSum totals the finite distances held in the heap. A decreasing sum is
// a cheap convergence diagnostic for verbose runs.
func heapSum(h *heap.NeighborHeap) float64 {
	var sum float64
	for _, d := range h.Dist {
		if !math.IsInf(float64(d), 1) {
			sum += float64(d)
		}
	}
	return sum
}
