package descent

import (
	"github.com/hupe1980/nndescent/distance"
	"github.com/hupe1980/nndescent/internal/heap"
)

// Updater attempts to turn a candidate pair into graph improvements. Apply
// returns the number of heap slots changed (0, 1 or 2). The build updaters
// never push when p == q; QueryUpdater does, since there p and q index
// different collections.
type Updater interface {
	Apply(p, q uint32) int
}

// SerialUpdater is the no-seen-set build updater: the heap's in-row
// duplicate scan is the only dedup. Least memory, most repeated distance
// computations. Not safe for concurrent use.
type SerialUpdater struct {
	Heap *heap.NeighborHeap
	Dist distance.PairFunc
}

// Apply implements Updater.
func (u *SerialUpdater) Apply(p, q uint32) int {
	if p == q {
		return 0
	}
	d := u.Dist(int(p), int(q))
	c := u.Heap.CheckedPush(int(p), d, q, 1)
	c += u.Heap.CheckedPush(int(q), d, p, 1)
	return c
}

// SetUpdater is the seen-pair build updater: an evaluated pair is recorded
// and never re-evaluated, trading memory for skipped distance computations
// when many duplicate pairs are expected. Not safe for concurrent use.
type SetUpdater struct {
	Heap *heap.NeighborHeap
	Dist distance.PairFunc
	Seen *heap.PairSet
}

// Apply implements Updater.
func (u *SetUpdater) Apply(p, q uint32) int {
	if p == q {
		return 0
	}
	if !u.Seen.TryAdd(p, q) {
		return 0
	}
	d := u.Dist(int(p), int(q))
	c := u.Heap.CheckedPush(int(p), d, q, 1)
	c += u.Heap.CheckedPush(int(q), d, p, 1)
	return c
}

// LockingUpdater is the parallel build updater: every heap mutation happens
// under the target row's lock, so workers racing on the same row serialize
// only for the sift-down window. The distance computation runs outside any
// lock. Seen, when non-nil, is a worker-local pair set (each worker must own
// its own LockingUpdater in that case).
type LockingUpdater struct {
	Heap  *heap.NeighborHeap
	Dist  distance.PairFunc
	Locks *heap.RowLocks
	Seen  *heap.PairSet
}

// Apply implements Updater.
func (u *LockingUpdater) Apply(p, q uint32) int {
	if p == q {
		return 0
	}
	if u.Seen != nil && !u.Seen.TryAdd(p, q) {
		return 0
	}
	d := u.Dist(int(p), int(q))
	c := u.Heap.LockedCheckedPush(u.Locks, int(p), d, q, 1)
	c += u.Heap.LockedCheckedPush(u.Locks, int(q), d, p, 1)
	return c
}

// QueryUpdater is the unidirectional updater of the query path: candidates
// are references, the heap rows are queries, and only the query row is
// mutated. Because the row partition of the query pass is by query index,
// no locking is needed even under parallel workers.
type QueryUpdater struct {
	Heap *heap.NeighborHeap
	Dist distance.PairFunc // Dist(queryIdx, refIdx)
}

// Apply implements Updater. p is a query index, q a reference index.
func (u *QueryUpdater) Apply(p, q uint32) int {
	d := u.Dist(int(p), int(q))
	return u.Heap.CheckedPush(int(p), d, q, 1)
}
