package graph

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/nndescent/internal/heap"
)

func TestNewGraphEmpty(t *testing.T) {
	g := New(2, 3)
	for i := 0; i < 2; i++ {
		for k := 0; k < 3; k++ {
			assert.Equal(t, NPos, g.Index(i, k))
			assert.True(t, math.IsInf(float64(g.Distance(i, k)), 1))
		}
	}
}

func TestFromHeap(t *testing.T) {
	h := heap.New(2, 2)
	h.CheckedPush(0, 2, 1, 1)
	h.CheckedPush(0, 1, 2, 1)
	h.CheckedPush(1, 3, 0, 1)
	h.DeheapSort()

	g := FromHeap(h)
	require.Equal(t, 2, g.NPoints)
	require.Equal(t, 2, g.NNbrs)
	assert.Equal(t, uint32(2), g.Index(0, 0))
	assert.Equal(t, float32(1), g.Distance(0, 0))
	assert.Equal(t, uint32(1), g.Index(0, 1))
	assert.Equal(t, uint32(0), g.Index(1, 0))
	assert.Equal(t, NPos, g.Index(1, 1))
}

func TestSparseDenseRoundTrip(t *testing.T) {
	g := New(2, 3)
	idx, dist := g.Row(0)
	idx[0], dist[0] = 1, 0.5
	idx[1], dist[1] = 2, 1.5
	// Row 1 has a single edge followed by two empty slots.
	idx1, dist1 := g.Row(1)
	idx1[0], dist1[0] = 0, 2.0

	s := g.Sparse()
	require.Len(t, s.Rows[0], 2)
	require.Len(t, s.Rows[1], 1)
	assert.Equal(t, Edge{To: 1, Dist: 0.5}, s.Rows[0][0])

	back := s.Dense(3)
	assert.Equal(t, g.Idx, back.Idx)
	assert.Equal(t, g.Dist, back.Dist)
}

func TestDenseTruncatesLongRows(t *testing.T) {
	s := &Sparse{Rows: [][]Edge{
		{{To: 1, Dist: 3}, {To: 2, Dist: 1}, {To: 3, Dist: 2}},
	}}

	g := s.Dense(2)
	assert.Equal(t, uint32(2), g.Index(0, 0))
	assert.Equal(t, uint32(3), g.Index(0, 1))
}
