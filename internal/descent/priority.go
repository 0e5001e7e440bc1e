// Package descent implements nearest neighbor descent: iterative refinement
// of an approximate k-NN graph by local joins over sampled candidate
// neighborhoods, plus the brute-force and random-initialization entry points
// that bracket it.
package descent

import (
	"sync"

	"github.com/hupe1980/nndescent/internal/rng"
)

// Priority assigns a sampling priority to an existing graph edge when it is
// inserted into a bounded candidate heap. storedDist is the edge's distance
// in the source graph.
type Priority interface {
	Priority(storedDist float32) float32
}

// PriorityFactory hands out one Priority per worker. ShouldSort is a static
// property: distance priorities produce candidate heaps worth sorting
// (ordered rows improve locality in the local join); random draws do not.
type PriorityFactory interface {
	New() Priority
	ShouldSort() bool
}

// SeedSource yields seeds for worker streams. Implementations are typically
// mutex-guarded host RNGs.
type SeedSource interface {
	Uint64() uint64
}

// RandomPriorityFactory creates priorities that return fresh uniform draws,
// making candidate-heap retention a random subsample of the row's edges.
// Each Priority gets an independent xoroshiro stream seeded from the host
// source; the mutex serializes the host draw, never the per-edge sampling.
type RandomPriorityFactory struct {
	mu   sync.Mutex
	seed SeedSource
}

// NewRandomPriorityFactory creates a factory drawing worker seeds from seed.
func NewRandomPriorityFactory(seed SeedSource) *RandomPriorityFactory {
	return &RandomPriorityFactory{seed: seed}
}

// New derives a worker-local priority stream.
func (f *RandomPriorityFactory) New() Priority {
	f.mu.Lock()
	s := f.seed.Uint64()
	f.mu.Unlock()
	return &randomPriority{r: rng.New(s)}
}

// ShouldSort implements PriorityFactory.
func (f *RandomPriorityFactory) ShouldSort() bool { return false }

type randomPriority struct {
	r *rng.Xoroshiro128
}

func (p *randomPriority) Priority(float32) float32 { return p.r.Float32() }

// DistancePriorityFactory creates priorities that rank edges by their true
// stored distance, so candidate heaps retain the closest edges.
type DistancePriorityFactory struct{}

// New implements PriorityFactory.
func (DistancePriorityFactory) New() Priority { return distancePriority{} }

// ShouldSort implements PriorityFactory.
func (DistancePriorityFactory) ShouldSort() bool { return true }

type distancePriority struct{}

func (distancePriority) Priority(storedDist float32) float32 { return storedDist }
