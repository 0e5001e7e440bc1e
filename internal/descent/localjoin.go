package descent

import (
	"github.com/hupe1980/nndescent/internal/heap"
	"github.com/hupe1980/nndescent/internal/visited"
)

// LocalJoin cross-evaluates the candidate pairs of rows [begin, end) and
// returns the number of heap slots changed. For each point, every unordered
// NEW-NEW pair is evaluated once (k >= j), every NEW-OLD pair is evaluated,
// and OLD-OLD pairs are skipped — both endpoints already served as pivots in
// a prior iteration, so their cross-pairs have been tried.
func LocalJoin(u Updater, newNbrs, oldNbrs *heap.NeighborHeap, maxCandidates, begin, end int) int {
	c := 0
	for i := begin; i < end; i++ {
		for j := 0; j < maxCandidates; j++ {
			p := newNbrs.Index(i, j)
			if p == heap.NPos {
				continue
			}
			for k := j; k < maxCandidates; k++ {
				q := newNbrs.Index(i, k)
				if q == heap.NPos {
					continue
				}
				c += u.Apply(p, q)
			}
			for k := 0; k < maxCandidates; k++ {
				q := oldNbrs.Index(i, k)
				if q == heap.NPos {
					continue
				}
				c += u.Apply(p, q)
			}
		}
	}
	return c
}

// NonSearchQuery is the query-path replacement for the local join: with no
// reverse neighbors on the query side there is no symmetry to exploit, so
// for each query row in [begin, end) and each NEW reference candidate, every
// general neighbor of that reference is offered to the query's heap. seen
// suppresses duplicate distance computations within one query's pass and is
// reset between queries.
func NonSearchQuery(u Updater, newNbrs, gn *heap.NeighborHeap, seen *visited.Set, maxCandidates, begin, end int) int {
	c := 0
	for qi := begin; qi < end; qi++ {
		for j := 0; j < maxCandidates; j++ {
			ref := newNbrs.Index(qi, j)
			if ref == heap.NPos {
				continue
			}
			for k := 0; k < maxCandidates; k++ {
				nbr := gn.Index(int(ref), k)
				if nbr == heap.NPos || seen.Visited(nbr) {
					continue
				}
				seen.Visit(nbr)
				c += u.Apply(uint32(qi), nbr)
			}
		}
		seen.Reset()
	}
	return c
}
