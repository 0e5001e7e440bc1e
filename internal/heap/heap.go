// Package heap implements the fixed-capacity per-row max-heap that backs
// every neighbor list in the engine. Each row keeps its current k best
// candidates with the worst retained distance at the root, so a candidate
// that cannot improve the row is rejected with a single comparison.
package heap

import (
	"math"
	"sync"
)

// NPos marks an empty slot. It is the maximum representable index, so it can
// never collide with a real point.
const NPos = ^uint32(0)

// NeighborHeap holds one bounded max-heap per point, stored as three flat
// row-major arrays. Row i occupies [i*nNbrs, (i+1)*nNbrs).
//
// Invariants per row: max-heap order on Dist, no duplicate indices among
// non-NPos entries, and Dist[row*nNbrs] is the largest retained distance.
type NeighborHeap struct {
	nPoints int
	nNbrs   int

	Idx   []uint32
	Dist  []float32
	Flags []byte
}

// New creates an empty heap for nPoints rows of nNbrs slots each. All slots
// start at NPos / +Inf, so any finite distance beats an empty slot.
func New(nPoints, nNbrs int) *NeighborHeap {
	h := &NeighborHeap{
		nPoints: nPoints,
		nNbrs:   nNbrs,
		Idx:     make([]uint32, nPoints*nNbrs),
		Dist:    make([]float32, nPoints*nNbrs),
		Flags:   make([]byte, nPoints*nNbrs),
	}

	inf := float32(math.Inf(1))
	for i := range h.Idx {
		h.Idx[i] = NPos
		h.Dist[i] = inf
	}

	return h
}

// NPoints returns the number of rows.
func (h *NeighborHeap) NPoints() int { return h.nPoints }

// NNbrs returns the per-row capacity.
func (h *NeighborHeap) NNbrs() int { return h.nNbrs }

// Index returns the index stored at slot k of row i.
func (h *NeighborHeap) Index(i, k int) uint32 { return h.Idx[i*h.nNbrs+k] }

// Distance returns the distance stored at slot k of row i.
func (h *NeighborHeap) Distance(i, k int) float32 { return h.Dist[i*h.nNbrs+k] }

// Flag returns the new/old flag stored at slot k of row i.
func (h *NeighborHeap) Flag(i, k int) byte { return h.Flags[i*h.nNbrs+k] }

// Threshold returns the worst retained distance of row i (the heap root).
func (h *NeighborHeap) Threshold(i int) float32 { return h.Dist[i*h.nNbrs] }

// Contains reports whether index j is present in row i.
func (h *NeighborHeap) Contains(i int, j uint32) bool {
	base := i * h.nNbrs
	for k := 0; k < h.nNbrs; k++ {
		if h.Idx[base+k] == j {
			return true
		}
	}
	return false
}

// CheckedPush inserts (j, d, flag) into row i if d improves the row and j is
// not already present. Returns 1 on insert, 0 on rejection.
//
// The threshold test is written so that a NaN distance never passes: NaN
// compares false against any value, so it cannot displace the root.
func (h *NeighborHeap) CheckedPush(i int, d float32, j uint32, flag byte) int {
	if !(d < h.Dist[i*h.nNbrs]) {
		return 0
	}
	if h.Contains(i, j) {
		return 0
	}
	return h.UncheckedPush(i, d, j, flag)
}

// CheckedPushPair inserts j into row i and, when the indices differ, i into
// row j. Returns the number of slots changed (0, 1 or 2).
func (h *NeighborHeap) CheckedPushPair(i int, d float32, j uint32, flag byte) int {
	c := h.CheckedPush(i, d, j, flag)
	if uint32(i) != j {
		c += h.CheckedPush(int(j), d, uint32(i), flag)
	}
	return c
}

// UncheckedPush overwrites the root of row i with (j, d, flag) and sifts it
// down to restore heap order. Callers are responsible for the threshold and
// duplicate checks.
func (h *NeighborHeap) UncheckedPush(i int, d float32, j uint32, flag byte) int {
	base := i * h.nNbrs
	dist := h.Dist[base : base+h.nNbrs]
	idx := h.Idx[base : base+h.nNbrs]
	flags := h.Flags[base : base+h.nNbrs]

	dist[0] = d
	idx[0] = j
	flags[0] = flag

	siftDown(dist, idx, flags, 0, h.nNbrs)
	return 1
}

// siftDown restores max-heap order on dist[:n] starting at root, moving the
// aligned idx and flags entries along.
func siftDown(dist []float32, idx []uint32, flags []byte, root, n int) {
	for {
		left := 2*root + 1
		if left >= n {
			return
		}
		swap := root
		if dist[left] > dist[swap] {
			swap = left
		}
		if right := left + 1; right < n && dist[right] > dist[swap] {
			swap = right
		}
		if swap == root {
			return
		}
		dist[root], dist[swap] = dist[swap], dist[root]
		idx[root], idx[swap] = idx[swap], idx[root]
		flags[root], flags[swap] = flags[swap], flags[root]
		root = swap
	}
}

// DeheapSort sorts every row ascending by distance. The heap property is
// destroyed; the heap becomes a plain sorted neighbor list. Empty slots
// (NPos, +Inf) end up at the tail of each row.
func (h *NeighborHeap) DeheapSort() {
	for i := 0; i < h.nPoints; i++ {
		h.SortRow(i)
	}
}

// SortRow heap-sorts a single row ascending. Exposed so the parallel driver
// can partition the sort across workers.
func (h *NeighborHeap) SortRow(i int) {
	base := i * h.nNbrs
	dist := h.Dist[base : base+h.nNbrs]
	idx := h.Idx[base : base+h.nNbrs]
	flags := h.Flags[base : base+h.nNbrs]

	for n := h.nNbrs - 1; n > 0; n-- {
		dist[0], dist[n] = dist[n], dist[0]
		idx[0], idx[n] = idx[n], idx[0]
		flags[0], flags[n] = flags[n], flags[0]
		siftDown(dist, idx, flags, 0, n)
	}
}

// RowLocks guards concurrent pushes into a shared heap: one mutex per row, so
// workers targeting different rows never contend.
type RowLocks struct {
	mu []sync.Mutex
}

// NewRowLocks creates one lock per row.
func NewRowLocks(nPoints int) *RowLocks {
	return &RowLocks{mu: make([]sync.Mutex, nPoints)}
}

// Lock acquires the lock for row i.
func (l *RowLocks) Lock(i int) { l.mu[i].Lock() }

// Unlock releases the lock for row i.
func (l *RowLocks) Unlock(i int) { l.mu[i].Unlock() }

// LockedCheckedPush performs CheckedPush under the row lock. The lock covers
// only the threshold test, the duplicate scan and the sift, never the
// distance computation.
func (h *NeighborHeap) LockedCheckedPush(locks *RowLocks, i int, d float32, j uint32, flag byte) int {
	if locks == nil {
		return h.CheckedPush(i, d, j, flag)
	}
	locks.Lock(i)
	c := h.CheckedPush(i, d, j, flag)
	locks.Unlock(i)
	return c
}

// LockedCheckedPushPair performs CheckedPushPair with each side guarded by
// its own row lock.
func (h *NeighborHeap) LockedCheckedPushPair(locks *RowLocks, i int, d float32, j uint32, flag byte) int {
	c := h.LockedCheckedPush(locks, i, d, j, flag)
	if uint32(i) != j {
		c += h.LockedCheckedPush(locks, int(j), d, uint32(i), flag)
	}
	return c
}
