package descent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/nndescent/internal/heap"
	"github.com/hupe1980/nndescent/internal/visited"
)

func TestLocalJoinEvaluatesEachNewPairOnce(t *testing.T) {
	cur := heap.New(3, 3)
	cd := &countingDist{fn: lineDist()}
	u := &SerialUpdater{Heap: cur, Dist: cd.pair()}

	newNbrs := heap.New(1, 2)
	newNbrs.CheckedPush(0, 0.5, 1, 1)
	newNbrs.CheckedPush(0, 0.6, 2, 1)
	oldNbrs := heap.New(1, 2)

	c := LocalJoin(u, newNbrs, oldNbrs, 2, 0, 1)

	// (1,1) and (2,2) are self pairs and never evaluated; (1,2) is the only
	// distinct pair.
	assert.Equal(t, 1, cd.calls)
	assert.Equal(t, 2, c)
	assert.True(t, cur.Contains(1, 2))
	assert.True(t, cur.Contains(2, 1))
}

func TestLocalJoinNewOldPairs(t *testing.T) {
	cur := heap.New(4, 3)
	cd := &countingDist{fn: lineDist()}
	u := &SerialUpdater{Heap: cur, Dist: cd.pair()}

	newNbrs := heap.New(1, 2)
	newNbrs.CheckedPush(0, 0.5, 1, 1)
	oldNbrs := heap.New(1, 2)
	oldNbrs.CheckedPush(0, 0.5, 2, 0)
	oldNbrs.CheckedPush(0, 0.6, 3, 0)

	LocalJoin(u, newNbrs, oldNbrs, 2, 0, 1)

	// NEW x OLD: (1,2) and (1,3). OLD x OLD pairs are skipped.
	assert.Equal(t, 2, cd.calls)
	assert.True(t, cur.Contains(1, 2))
	assert.True(t, cur.Contains(1, 3))
	assert.False(t, cur.Contains(2, 3))
}

func TestLocalJoinEmptyCandidates(t *testing.T) {
	cur := heap.New(2, 2)
	cd := &countingDist{fn: lineDist()}
	u := &SerialUpdater{Heap: cur, Dist: cd.pair()}

	c := LocalJoin(u, heap.New(2, 3), heap.New(2, 3), 3, 0, 2)
	assert.Zero(t, c)
	assert.Zero(t, cd.calls)
}

func TestNonSearchQuerySeenSuppression(t *testing.T) {
	// One query with two NEW reference candidates sharing a general
	// neighbor: the shared neighbor is evaluated once.
	queries := heap.New(1, 3)
	cd := &countingDist{fn: lineDist()}
	u := &QueryUpdater{Heap: queries, Dist: cd.pair()}

	newNbrs := heap.New(1, 2)
	newNbrs.CheckedPush(0, 0.5, 0, 1)
	newNbrs.CheckedPush(0, 0.6, 1, 1)

	gn := heap.New(2, 2)
	gn.CheckedPush(0, 0.5, 2, 0) // general nbrs of ref 0: {2}
	gn.CheckedPush(1, 0.5, 2, 0) // general nbrs of ref 1: {2}
	gn.CheckedPush(1, 0.6, 3, 0) // and {3}

	seen := visited.New(4)
	c := NonSearchQuery(u, newNbrs, gn, seen, 2, 0, 1)

	// Candidates 2 (once, despite two paths) and 3.
	assert.Equal(t, 2, cd.calls)
	assert.Equal(t, 2, c)
	assert.True(t, queries.Contains(0, 2))
	assert.True(t, queries.Contains(0, 3))
}
