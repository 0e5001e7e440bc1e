package nndescent

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/hupe1980/nndescent/distance"
	"github.com/hupe1980/nndescent/graph"
	"github.com/hupe1980/nndescent/internal/descent"
	"github.com/hupe1980/nndescent/internal/heap"
	"github.com/hupe1980/nndescent/internal/rng"
)

// Result is the outcome of a Build or Query run.
type Result struct {
	// Graph holds each point's approximate k nearest neighbors, rows sorted
	// ascending by distance.
	Graph *graph.Graph

	// Converged reports whether an iteration's update count dropped to or
	// below the delta tolerance before the iteration limit.
	Converged bool

	// Interrupted reports a cooperative cancellation. The graph is still the
	// best one computed so far, fully sorted.
	Interrupted bool

	// Iterations is the number of descent iterations run.
	Iterations int

	// Updates is the total number of heap slots changed across iterations.
	Updates int
}

// BruteForce computes the exact k-NN graph of data by evaluating every pair.
func BruteForce(ctx context.Context, data [][]float32, k int, metric string, opts ...Option) (*graph.Graph, error) {
	o := applyOptions(opts)
	pf, n, err := selfPair(data, metric)
	if err != nil {
		return nil, err
	}
	if err := validateK(k, n-1); err != nil {
		return nil, err
	}
	return descent.BruteForce(ctx, pf, n, k, o.config())
}

// BruteForceQuery computes each query point's exact k nearest references.
func BruteForceQuery(ctx context.Context, reference, query [][]float32, k int, metric string, opts ...Option) (*graph.Graph, error) {
	o := applyOptions(opts)
	pf, nQueries, nRef, err := crossPair(query, reference, metric)
	if err != nil {
		return nil, err
	}
	if err := validateK(k, nRef); err != nil {
		return nil, err
	}
	return descent.BruteForceQuery(ctx, pf, nQueries, nRef, k, o.config())
}

// RandomKNN samples k distinct random neighbors per point and computes their
// true distances. Rows come back sorted ascending unless WithUnorderedInit
// is set. The usual starting point for Build.
func RandomKNN(ctx context.Context, data [][]float32, k int, metric string, opts ...Option) (*graph.Graph, error) {
	o := applyOptions(opts)
	pf, n, err := selfPair(data, metric)
	if err != nil {
		return nil, err
	}
	if err := validateK(k, n-1); err != nil {
		return nil, err
	}
	g, err := descent.RandomInit(ctx, pf, n, k, o.seed, !o.unordered, o.config())
	if err != nil {
		return nil, err
	}
	return g, nil
}

// RandomKNNQuery samples k distinct random references per query point.
func RandomKNNQuery(ctx context.Context, reference, query [][]float32, k int, metric string, opts ...Option) (*graph.Graph, error) {
	o := applyOptions(opts)
	pf, nQueries, nRef, err := crossPair(query, reference, metric)
	if err != nil {
		return nil, err
	}
	if err := validateK(k, nRef); err != nil {
		return nil, err
	}
	g, err := descent.RandomInitQuery(ctx, pf, nQueries, nRef, k, o.seed, !o.unordered, o.config())
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Build constructs an approximate k-NN graph of data by nearest neighbor
// descent. Initialization is random unless WithInit supplies a graph. On
// context cancellation the best graph computed so far is returned with
// Result.Interrupted set; cancellation is not an error.
func Build(ctx context.Context, data [][]float32, k int, metric string, opts ...Option) (*Result, error) {
	o := applyOptions(opts)
	pf, n, err := selfPair(data, metric)
	if err != nil {
		return nil, err
	}
	if err := validateK(k, n-1); err != nil {
		return nil, err
	}
	cfg := o.config()

	init := o.init
	if init == nil {
		// An interrupted init still yields a usable partial graph; descent
		// notices the cancellation itself and reports Interrupted.
		if init, err = descent.RandomInit(ctx, pf, n, k, o.seed, true, cfg); err != nil && !isInterrupt(err) {
			return nil, err
		}
	} else if err := validateGraph(init, n, k, n); err != nil {
		return nil, err
	}

	start := time.Now()
	g, stats, err := descent.NNDBuild(ctx, pf, init, cfg)
	if err != nil {
		return nil, err
	}
	o.metrics.RecordBuild(stats.Iterations, stats.Updates, stats.Converged, time.Since(start))
	if o.verbose {
		o.logger.WithK(k).WithMetric(metric).WithPoints(n).LogBuild(stats.Iterations, stats.Updates, stats.Converged, time.Since(start))
	}

	return &Result{
		Graph:       g,
		Converged:   stats.Converged,
		Interrupted: stats.Interrupted,
		Iterations:  stats.Iterations,
		Updates:     stats.Updates,
	}, nil
}

// Query finds each query point's approximate k nearest references using the
// pre-built reference k-NN graph refKNN, which stays read-only. Query
// initialization is random over the references unless WithInit supplies a
// graph.
func Query(ctx context.Context, reference, query [][]float32, refKNN *graph.Graph, k int, metric string, opts ...Option) (*Result, error) {
	o := applyOptions(opts)
	pf, nQueries, nRef, err := crossPair(query, reference, metric)
	if err != nil {
		return nil, err
	}
	if err := validateK(k, nRef); err != nil {
		return nil, err
	}
	if err := validateGraph(refKNN, nRef, refKNN.NNbrs, nRef); err != nil {
		return nil, err
	}
	cfg := o.config()

	init := o.init
	if init == nil {
		if init, err = descent.RandomInitQuery(ctx, pf, nQueries, nRef, k, o.seed, true, cfg); err != nil && !isInterrupt(err) {
			return nil, err
		}
	} else if err := validateGraph(init, nQueries, k, nRef); err != nil {
		return nil, err
	}

	start := time.Now()
	g, stats, err := descent.NNDQuery(ctx, pf, refKNN, init, cfg)
	if err != nil {
		return nil, err
	}
	o.metrics.RecordQuery(stats.Iterations, stats.Updates, stats.Converged, time.Since(start))
	if o.verbose {
		o.logger.WithK(k).WithMetric(metric).WithPoints(nQueries).LogQuery(stats.Iterations, stats.Updates, stats.Converged, time.Since(start))
	}

	return &Result{
		Graph:       g,
		Converged:   stats.Converged,
		Interrupted: stats.Interrupted,
		Iterations:  stats.Iterations,
		Updates:     stats.Updates,
	}, nil
}

// MergeNN merges two k-NN graphs of the same shape. With isQuery false,
// inserts are bidirectional (both endpoints may gain the edge); with isQuery
// true only the forward direction is kept, matching graphs whose columns
// index a separate reference set.
func MergeNN(ctx context.Context, a, b *graph.Graph, isQuery bool, opts ...Option) (*graph.Graph, error) {
	return MergeNNAll(ctx, []*graph.Graph{a, b}, isQuery, opts...)
}

// MergeNNAll merges any number of same-shape k-NN graphs. A (src, dst) edge
// present in several graphs keeps the distance of its first occurrence in
// graph order: the heap's in-row duplicate check rejects later copies, even
// when they carry a smaller distance. Rejection through the shared heap
// makes the merge a set union bounded at k per row.
func MergeNNAll(ctx context.Context, graphs []*graph.Graph, isQuery bool, opts ...Option) (*graph.Graph, error) {
	if len(graphs) == 0 {
		return nil, ErrEmptyInput
	}
	o := applyOptions(opts)
	cfg := o.config()

	n := graphs[0].NPoints
	k := graphs[0].NNbrs
	maxIdx := n
	if isQuery {
		// Query graphs index a separate reference set of unknown size.
		maxIdx = int(^uint32(0))
	}
	for _, g := range graphs {
		if err := validateGraph(g, n, k, maxIdx); err != nil {
			return nil, err
		}
	}

	merged := heap.New(n, k)
	for _, g := range graphs {
		if err := descent.GraphToHeap(ctx, merged, g, !isQuery, cfg); err != nil && !isInterrupt(err) {
			return nil, err
		}
	}
	if err := descent.SortHeap(context.WithoutCancel(ctx), merged, cfg); err != nil {
		return nil, err
	}
	return graph.FromHeap(merged), nil
}

// Diversify applies occlusion pruning to a built graph: edges whose endpoint
// is already reachable through a shorter retained edge are dropped.
// pruneProb in (0, 1] randomizes the rule; 1 always prunes. Rows of g must
// be sorted ascending, as Build and BruteForce produce them.
func Diversify(data [][]float32, g *graph.Graph, metric string, pruneProb float64, opts ...Option) (*graph.Sparse, error) {
	o := applyOptions(opts)
	pf, n, err := selfPair(data, metric)
	if err != nil {
		return nil, err
	}
	if g.NPoints != n {
		return nil, fmt.Errorf("graph has %d rows, data has %d points", g.NPoints, n)
	}
	return graph.Diversify(g.Sparse(), pf, pruneProb, rng.New(o.seed)), nil
}

// DegreePrune keeps, per row, only the maxDegree closest edges of a sparse
// graph. Ties on distance prefer earlier insertion order.
func DegreePrune(s *graph.Sparse, maxDegree int) *graph.Sparse {
	return graph.DegreePrune(s, maxDegree)
}

func (o options) config() descent.Config {
	var pf descent.PriorityFactory
	if o.priority == PriorityDistance {
		pf = descent.DistancePriorityFactory{}
	} else {
		pf = descent.NewRandomPriorityFactory(rng.NewSplitMix64(o.seed))
	}
	return descent.Config{
		MaxCandidates: o.maxCandidates,
		NIters:        o.nIters,
		Delta:         o.delta,
		Workers:       o.workers,
		BlockSize:     o.blockSize,
		GrainSize:     o.grainSize,
		Priority:      pf,
		PairDedup:     o.pairDedup,
		Logger:        o.logger.Logger,
		Verbose:       o.verbose,
		OnIteration:   o.metrics.RecordIteration,
	}
}

func isInterrupt(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func validateK(k, maxNbrs int) error {
	if k <= 0 || k > maxNbrs {
		return fmt.Errorf("%w: k=%d, max=%d", ErrInvalidK, k, maxNbrs)
	}
	return nil
}

// validateGraph checks shape and neighbor-index bounds. maxIdx bounds the
// referenced collection (the same collection for build graphs, the
// reference set for query graphs).
func validateGraph(g *graph.Graph, nPoints, nNbrs, maxIdx int) error {
	if g.NPoints != nPoints || g.NNbrs != nNbrs {
		return fmt.Errorf("graph shape (%d, %d) does not match expected (%d, %d)",
			g.NPoints, g.NNbrs, nPoints, nNbrs)
	}
	for _, idx := range g.Idx {
		if idx != graph.NPos && int(idx) >= maxIdx {
			return &ErrBadIndex{Index: idx, NPoints: maxIdx}
		}
	}
	return nil
}

func flatten(data [][]float32) ([]float32, int, error) {
	if len(data) == 0 || len(data[0]) == 0 {
		return nil, 0, ErrEmptyInput
	}
	ndim := len(data[0])
	flat := make([]float32, 0, len(data)*ndim)
	for i, v := range data {
		if len(v) != ndim {
			return nil, 0, &ErrDimensionMismatch{Expected: ndim, Actual: len(v)}
		}
		for d, x := range v {
			if math.IsNaN(float64(x)) {
				return nil, 0, &ErrNaNInput{Point: i, Dim: d}
			}
		}
		flat = append(flat, v...)
	}
	return flat, ndim, nil
}

func toBytes(flat []float32) []byte {
	out := make([]byte, len(flat))
	for i, v := range flat {
		out[i] = byte(v)
	}
	return out
}

// selfPair builds a within-collection pair distance from user data.
func selfPair(data [][]float32, metric string) (distance.PairFunc, int, error) {
	m, err := distance.Parse(metric)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
	}
	flat, ndim, err := flatten(data)
	if err != nil {
		return nil, 0, err
	}
	if m == distance.MetricHamming {
		return distance.SelfBytes(toBytes(flat), ndim), len(data), nil
	}
	pf, err := distance.Self(flat, ndim, m)
	if err != nil {
		return nil, 0, err
	}
	return pf, len(data), nil
}

// crossPair builds a query-to-reference pair distance. The first index of
// the returned PairFunc addresses a, the second b.
func crossPair(a, b [][]float32, metric string) (distance.PairFunc, int, int, error) {
	m, err := distance.Parse(metric)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
	}
	flatA, ndimA, err := flatten(a)
	if err != nil {
		return nil, 0, 0, err
	}
	flatB, ndimB, err := flatten(b)
	if err != nil {
		return nil, 0, 0, err
	}
	if ndimA != ndimB {
		return nil, 0, 0, &ErrDimensionMismatch{Expected: ndimA, Actual: ndimB}
	}
	if m == distance.MetricHamming {
		return distance.CrossBytes(toBytes(flatA), toBytes(flatB), ndimA), len(a), len(b), nil
	}
	pf, err := distance.Cross(flatA, flatB, ndimA, m)
	if err != nil {
		return nil, 0, 0, err
	}
	return pf, len(a), len(b), nil
}
