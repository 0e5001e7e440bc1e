package descent

import (
	"github.com/hupe1980/nndescent/graph"
	"github.com/hupe1980/nndescent/internal/heap"
)

// BuildCandidates partitions the edges of rows [begin, end) of the current
// graph into the NEW and OLD candidate heaps by flag value. Pushes are
// symmetric, so a candidate heap holds forward and reverse candidates at
// once: if j is a candidate of i, i is simultaneously a reverse candidate of
// j. newLocks/oldLocks guard the candidate heaps when ranges are processed
// concurrently; pass nil for serial runs.
//
// Callers must follow the full scan with FlagRetainedNewCandidates — only
// edges that survived selection into the NEW heap may be flipped to OLD, or
// capacity-evicted candidates would never get another turn as pivots.
func BuildCandidates(cur *heap.NeighborHeap, pr Priority, newNbrs, oldNbrs *heap.NeighborHeap, newLocks, oldLocks *heap.RowLocks, begin, end int) {
	nNbrs := cur.NNbrs()
	for i := begin; i < end; i++ {
		for j := 0; j < nNbrs; j++ {
			idx := cur.Index(i, j)
			if idx == heap.NPos {
				continue
			}
			d := pr.Priority(cur.Distance(i, j))
			if cur.Flag(i, j) == 1 {
				newNbrs.LockedCheckedPushPair(newLocks, i, d, idx, 1)
			} else {
				oldNbrs.LockedCheckedPushPair(oldLocks, i, d, idx, 0)
			}
		}
	}
}

// FlagRetainedNewCandidates flips to OLD every current-graph edge of rows
// [begin, end) whose neighbor was retained in the NEW candidate heap. An
// edge selected as a NEW pivot this iteration must not be re-offered next
// iteration.
func FlagRetainedNewCandidates(cur, newNbrs *heap.NeighborHeap, begin, end int) {
	nNbrs := cur.NNbrs()
	for i := begin; i < end; i++ {
		base := i * nNbrs
		for j := 0; j < nNbrs; j++ {
			idx := cur.Idx[base+j]
			if idx == heap.NPos {
				continue
			}
			if newNbrs.Contains(i, idx) {
				cur.Flags[base+j] = 0
			}
		}
	}
}

// BuildQueryCandidates collects the NEW edges of query rows [begin, end)
// into the candidate heap. Reference neighbors are static during a query, so
// there is no OLD heap and pushes are unidirectional. When flagOnAdd is set
// (candidate capacity >= row width, every push is retained) the flag is
// flipped to OLD at push time; otherwise the caller must run
// FlagRetainedNewCandidates afterwards, flipping on membership in the final
// heap rather than on push events.
func BuildQueryCandidates(cur *heap.NeighborHeap, pr Priority, newNbrs *heap.NeighborHeap, flagOnAdd bool, begin, end int) {
	nNbrs := cur.NNbrs()
	for i := begin; i < end; i++ {
		base := i * nNbrs
		for j := 0; j < nNbrs; j++ {
			if cur.Flags[base+j] != 1 {
				continue
			}
			idx := cur.Idx[base+j]
			if idx == heap.NPos {
				continue
			}
			d := pr.Priority(cur.Dist[base+j])
			newNbrs.CheckedPush(i, d, idx, 1)
			if flagOnAdd {
				cur.Flags[base+j] = 0
			}
		}
	}
}

// BuildGeneralNbrs seeds the general-neighbor heap of the reference set from
// the reference k-NN graph. Built once per query: the reference graph never
// changes, so neither do its general neighborhoods. Pushes are symmetric —
// a reference is a general neighbor of each of its own neighbors.
func BuildGeneralNbrs(refKNN *graph.Graph, gn *heap.NeighborHeap, pr Priority) {
	for i := 0; i < refKNN.NPoints; i++ {
		idx, dist := refKNN.Row(i)
		for j := range idx {
			if idx[j] == heap.NPos {
				continue
			}
			d := pr.Priority(dist[j])
			gn.CheckedPushPair(i, d, idx[j], 0)
		}
	}
}
