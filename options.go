package nndescent

import (
	"github.com/hupe1980/nndescent/graph"
)

// Priority selects how existing edges are prioritized when sampled into the
// per-iteration candidate heaps.
type Priority int

const (
	// PriorityRandom retains a uniform random subsample of edges. Candidate
	// rows are left unsorted — random priorities carry no useful order.
	PriorityRandom Priority = iota

	// PriorityDistance retains the closest edges. Candidate rows are sorted
	// after selection, which improves locality in the local join.
	PriorityDistance
)

type options struct {
	maxCandidates int
	nIters        int
	delta         float64
	workers       int
	blockSize     int
	grainSize     int
	priority      Priority
	pairDedup     bool
	seed          uint64
	unordered     bool
	init          *graph.Graph
	logger        *Logger
	metrics       MetricsCollector
	verbose       bool
}

func defaultOptions() options {
	return options{
		maxCandidates: 50,
		nIters:        10,
		delta:         0.001,
		workers:       1,
		blockSize:     16384,
		grainSize:     128,
		priority:      PriorityRandom,
		seed:          42,
		logger:        NoopLogger(),
		metrics:       NoopMetricsCollector{},
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option configures build and query behavior.
type Option func(*options)

// WithMaxCandidates caps the per-point candidate list rebuilt each
// iteration. Typical values are 50-60; smaller trades recall for speed.
func WithMaxCandidates(n int) Option {
	return func(o *options) { o.maxCandidates = n }
}

// WithNIters bounds the number of descent iterations. Convergence usually
// stops the loop earlier.
func WithNIters(n int) Option {
	return func(o *options) { o.nIters = n }
}

// WithDelta sets the convergence tolerance: iteration stops once an
// iteration changes at most delta * k * n heap slots. Default 0.001.
func WithDelta(delta float64) Option {
	return func(o *options) { o.delta = delta }
}

// WithPriority selects the candidate sampling priority. Default
// PriorityRandom.
func WithPriority(p Priority) Option {
	return func(o *options) { o.priority = p }
}

// WithPairDedup enables the seen-pair set of the batch updater: evaluated
// pairs are remembered and skipped, trading memory for fewer repeated
// distance computations.
func WithPairDedup() Option {
	return func(o *options) { o.pairDedup = true }
}

// WithParallel spreads row processing over n workers. Values <= 1 select
// the serial path.
func WithParallel(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithBlockSize sets how many rows form one super-batch. Progress reporting
// and interrupt checks happen between super-batches, never inside one.
func WithBlockSize(n int) Option {
	return func(o *options) { o.blockSize = n }
}

// WithGrainSize sets how many contiguous rows one worker processes per
// chunk.
func WithGrainSize(n int) Option {
	return func(o *options) { o.grainSize = n }
}

// WithSeed fixes the random seed. With one worker, repeated runs with the
// same seed and inputs produce identical graphs; RandomKNN and
// RandomKNNQuery do so at any worker count. With more than one worker, Build
// and Query hand out worker sampling streams in goroutine scheduling order,
// so their graphs can differ between runs.
func WithSeed(seed uint64) Option {
	return func(o *options) { o.seed = seed }
}

// WithUnorderedInit leaves RandomKNN rows in sample order instead of
// sorting them ascending by distance.
func WithUnorderedInit() Option {
	return func(o *options) { o.unordered = true }
}

// WithInit supplies an initial neighbor graph for Build or Query instead of
// random initialization.
func WithInit(g *graph.Graph) Option {
	return func(o *options) { o.init = g }
}

// WithLogger routes engine logs to l. Default: no logging.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetrics installs a metrics collector. Default: no metrics.
func WithMetrics(m MetricsCollector) Option {
	return func(o *options) {
		if m == nil {
			m = NoopMetricsCollector{}
		}
		o.metrics = m
	}
}

// WithVerbose enables per-iteration progress logging, including the heap
// distance sum diagnostic. Row-level progress lines are rate-limited.
func WithVerbose() Option {
	return func(o *options) { o.verbose = true }
}
