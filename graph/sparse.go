package graph

import (
	"math"
	"sort"

	"github.com/hupe1980/nndescent/distance"
	"github.com/hupe1980/nndescent/internal/rng"
)

// Edge is a directed neighbor link with its distance.
type Edge struct {
	To   uint32
	Dist float32
}

// Sparse is a variable-degree neighbor graph: one edge list per row.
type Sparse struct {
	Rows [][]Edge
}

// NPoints returns the number of rows.
func (s *Sparse) NPoints() int { return len(s.Rows) }

// Dense widens the sparse graph back to a fixed-width graph of nNbrs slots
// per row, padding short rows with NPos / +Inf. Rows longer than nNbrs are
// truncated after an ascending sort, keeping the closest edges.
func (s *Sparse) Dense(nNbrs int) *Graph {
	g := New(len(s.Rows), nNbrs)
	inf := float32(math.Inf(1))
	for i, row := range s.Rows {
		edges := row
		if len(edges) > nNbrs {
			edges = sortedByDist(edges)[:nNbrs]
		}
		idx, dist := g.Row(i)
		for k := range idx {
			if k < len(edges) {
				idx[k] = edges[k].To
				dist[k] = edges[k].Dist
			} else {
				idx[k] = NPos
				dist[k] = inf
			}
		}
	}
	return g
}

// Merge unions two sparse graphs row by row. A (src, dst) pair present in
// both keeps the smaller distance. Edge order follows a's rows with b's
// novel edges appended.
func Merge(a, b *Sparse) *Sparse {
	out := &Sparse{Rows: make([][]Edge, len(a.Rows))}
	for i := range a.Rows {
		pos := make(map[uint32]int, len(a.Rows[i]))
		row := make([]Edge, 0, len(a.Rows[i]))
		for _, e := range a.Rows[i] {
			if at, ok := pos[e.To]; ok {
				if e.Dist < row[at].Dist {
					row[at].Dist = e.Dist
				}
				continue
			}
			pos[e.To] = len(row)
			row = append(row, e)
		}
		if i < len(b.Rows) {
			for _, e := range b.Rows[i] {
				if at, ok := pos[e.To]; ok {
					if e.Dist < row[at].Dist {
						row[at].Dist = e.Dist
					}
					continue
				}
				pos[e.To] = len(row)
				row = append(row, e)
			}
		}
		out.Rows[i] = row
	}
	return out
}

// DegreePrune keeps, per row, only the maxDegree edges with the smallest
// distances. Ties on distance are broken by insertion order (stable sort).
func DegreePrune(s *Sparse, maxDegree int) *Sparse {
	out := &Sparse{Rows: make([][]Edge, len(s.Rows))}
	for i, row := range s.Rows {
		if len(row) <= maxDegree {
			out.Rows[i] = append([]Edge(nil), row...)
			continue
		}
		out.Rows[i] = sortedByDist(row)[:maxDegree]
	}
	return out
}

// Diversify applies occlusion pruning to every row. Rows must be sorted
// ascending by distance. Walking from closest to farthest, an edge (i, j) is
// occluded when some already-retained neighbor k of i satisfies
// d(k, j) < d(i, j). pruneProb in (0, 1] randomizes the rule: an occluded
// edge is dropped only when a Bernoulli(pruneProb) draw succeeds, so values
// below 1 keep a fraction of the long edges.
func Diversify(s *Sparse, d distance.PairFunc, pruneProb float64, r *rng.Xoroshiro128) *Sparse {
	out := &Sparse{Rows: make([][]Edge, len(s.Rows))}
	for i, row := range s.Rows {
		retained := make([]Edge, 0, len(row))
		for _, e := range row {
			occluded := false
			for _, kept := range retained {
				if d(int(kept.To), int(e.To)) < e.Dist {
					occluded = true
					break
				}
			}
			if occluded && (pruneProb >= 1 || r.Float64() < pruneProb) {
				continue
			}
			retained = append(retained, e)
		}
		out.Rows[i] = retained
	}
	return out
}

func sortedByDist(edges []Edge) []Edge {
	out := append([]Edge(nil), edges...)
	sort.SliceStable(out, func(a, b int) bool { return out[a].Dist < out[b].Dist })
	return out
}
