// Package graph defines the neighbor-graph types produced and consumed by
// the engine: the dense fixed-width Graph that builds and queries return,
// and the variable-degree Sparse form used by merging, diversification and
// degree pruning.
package graph

import (
	"math"

	"github.com/hupe1980/nndescent/internal/heap"
)

// NPos marks an empty slot in a dense graph, mirroring the heap sentinel.
const NPos = heap.NPos

// Graph is a dense k-NN graph: for each of NPoints rows, NNbrs neighbor
// indices and distances stored flat in row-major order. Rows produced by the
// engine are sorted ascending by distance with empty slots (NPos, +Inf) at
// the tail.
type Graph struct {
	NPoints int
	NNbrs   int
	Idx     []uint32
	Dist    []float32
}

// New creates an empty dense graph with all slots at NPos / +Inf.
func New(nPoints, nNbrs int) *Graph {
	g := &Graph{
		NPoints: nPoints,
		NNbrs:   nNbrs,
		Idx:     make([]uint32, nPoints*nNbrs),
		Dist:    make([]float32, nPoints*nNbrs),
	}
	inf := float32(math.Inf(1))
	for i := range g.Idx {
		g.Idx[i] = NPos
		g.Dist[i] = inf
	}
	return g
}

// Index returns the neighbor index at slot k of row i.
func (g *Graph) Index(i, k int) uint32 { return g.Idx[i*g.NNbrs+k] }

// Distance returns the distance at slot k of row i.
func (g *Graph) Distance(i, k int) float32 { return g.Dist[i*g.NNbrs+k] }

// Row returns the index and distance slices of row i.
func (g *Graph) Row(i int) ([]uint32, []float32) {
	base := i * g.NNbrs
	return g.Idx[base : base+g.NNbrs], g.Dist[base : base+g.NNbrs]
}

// FromHeap copies a (typically deheap-sorted) neighbor heap into a dense
// graph.
func FromHeap(h *heap.NeighborHeap) *Graph {
	g := &Graph{
		NPoints: h.NPoints(),
		NNbrs:   h.NNbrs(),
		Idx:     make([]uint32, len(h.Idx)),
		Dist:    make([]float32, len(h.Dist)),
	}
	copy(g.Idx, h.Idx)
	copy(g.Dist, h.Dist)
	return g
}

// Sparse drops the empty slots of a dense graph, yielding one variable-length
// edge list per row.
func (g *Graph) Sparse() *Sparse {
	s := &Sparse{Rows: make([][]Edge, g.NPoints)}
	for i := 0; i < g.NPoints; i++ {
		idx, dist := g.Row(i)
		row := make([]Edge, 0, g.NNbrs)
		for k := range idx {
			if idx[k] == NPos {
				continue
			}
			row = append(row, Edge{To: idx[k], Dist: dist[k]})
		}
		s.Rows[i] = row
	}
	return s
}
