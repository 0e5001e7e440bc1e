package heap

import (
	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// PairSet records unordered index pairs that have already been evaluated.
// It backs the seen-pair dedup policy of the batch graph updater: when many
// duplicate pairs are expected, remembering them is cheaper than recomputing
// distances and re-running the in-row duplicate scan.
type PairSet struct {
	bm *roaring64.Bitmap
}

// NewPairSet creates an empty pair set.
func NewPairSet() *PairSet {
	return &PairSet{bm: roaring64.New()}
}

// TryAdd inserts the unordered pair (p, q) and reports whether it was absent.
// Returns false if the pair was already seen.
func (s *PairSet) TryAdd(p, q uint32) bool {
	if p > q {
		p, q = q, p
	}
	return s.bm.CheckedAdd(uint64(p)<<32 | uint64(q))
}

// Len returns the number of distinct pairs recorded.
func (s *PairSet) Len() uint64 {
	return s.bm.GetCardinality()
}
