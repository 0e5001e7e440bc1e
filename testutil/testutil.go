// Package testutil provides the seeded random data generators and recall
// computation shared by the engine's tests and benchmarks.
package testutil

import (
	"math/rand"
	"sync"

	"github.com/hupe1980/nndescent/graph"
)

// RNG encapsulates a seeded random number generator. It is thread-safe:
// every draw holds the mutex.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// Float32 returns a pseudo-random number in [0, 1).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// UniformPoints generates n points with ndim coordinates drawn uniformly
// from [0, 1).
func UniformPoints(r *RNG, n, ndim int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		v := make([]float32, ndim)
		for d := range v {
			v[d] = r.Float32()
		}
		out[i] = v
	}
	return out
}

// GaussianClusters generates n points around nClusters well-separated
// centers, a harder neighbor structure than uniform noise.
func GaussianClusters(r *RNG, n, ndim, nClusters int, spread float64) [][]float32 {
	centers := make([][]float32, nClusters)
	for c := range centers {
		center := make([]float32, ndim)
		for d := range center {
			center[d] = r.Float32() * 10
		}
		centers[c] = center
	}

	out := make([][]float32, n)
	for i := range out {
		center := centers[i%nClusters]
		v := make([]float32, ndim)
		for d := range v {
			v[d] = center[d] + float32(r.normFloat64()*spread)
		}
		out[i] = v
	}
	return out
}

func (r *RNG) normFloat64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.NormFloat64()
}

// Recall returns the average fraction of true neighbors (per truth row) that
// appear in the corresponding row of got.
func Recall(got, truth *graph.Graph) float64 {
	if truth.NPoints == 0 || truth.NNbrs == 0 {
		return 0
	}
	var hits, total int
	for i := 0; i < truth.NPoints; i++ {
		trueIdx, _ := truth.Row(i)
		gotIdx, _ := got.Row(i)
		for _, t := range trueIdx {
			if t == graph.NPos {
				continue
			}
			total++
			for _, g := range gotIdx {
				if g == t {
					hits++
					break
				}
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
