package descent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/nndescent/distance"
	"github.com/hupe1980/nndescent/internal/heap"
)

// countingDist wraps a pair distance and counts evaluations.
type countingDist struct {
	calls int
	fn    distance.PairFunc
}

func (c *countingDist) pair() distance.PairFunc {
	return func(i, j int) float32 {
		c.calls++
		return c.fn(i, j)
	}
}

func lineDist() distance.PairFunc {
	// Points on a line at x = index.
	return func(i, j int) float32 {
		d := float32(i - j)
		if d < 0 {
			d = -d
		}
		return d
	}
}

func TestSerialUpdaterSymmetric(t *testing.T) {
	h := heap.New(4, 2)
	u := &SerialUpdater{Heap: h, Dist: lineDist()}

	assert.Equal(t, 2, u.Apply(0, 3))
	assert.True(t, h.Contains(0, 3))
	assert.True(t, h.Contains(3, 0))
}

func TestSerialUpdaterSelfPair(t *testing.T) {
	h := heap.New(4, 2)
	cd := &countingDist{fn: lineDist()}
	u := &SerialUpdater{Heap: h, Dist: cd.pair()}

	assert.Equal(t, 0, u.Apply(2, 2))
	assert.Zero(t, cd.calls, "self pairs must not be evaluated")
}

func TestSetUpdaterSkipsSeenPairs(t *testing.T) {
	h := heap.New(4, 2)
	cd := &countingDist{fn: lineDist()}
	u := &SetUpdater{Heap: h, Dist: cd.pair(), Seen: heap.NewPairSet()}

	u.Apply(0, 3)
	assert.Equal(t, 1, cd.calls)

	// Same pair in either order: no further distance computation.
	assert.Equal(t, 0, u.Apply(0, 3))
	assert.Equal(t, 0, u.Apply(3, 0))
	assert.Equal(t, 1, cd.calls)
}

func TestLockingUpdaterMatchesSerial(t *testing.T) {
	serial := heap.New(5, 3)
	locked := heap.New(5, 3)

	su := &SerialUpdater{Heap: serial, Dist: lineDist()}
	lu := &LockingUpdater{Heap: locked, Dist: lineDist(), Locks: heap.NewRowLocks(5)}

	pairs := [][2]uint32{{0, 4}, {1, 3}, {0, 1}, {2, 4}, {2, 2}, {1, 3}}
	for _, p := range pairs {
		assert.Equal(t, su.Apply(p[0], p[1]), lu.Apply(p[0], p[1]))
	}

	assert.Equal(t, serial.Idx, locked.Idx)
	assert.Equal(t, serial.Dist, locked.Dist)
}

func TestQueryUpdaterUnidirectional(t *testing.T) {
	h := heap.New(2, 2) // query rows
	u := &QueryUpdater{Heap: h, Dist: lineDist()}

	assert.Equal(t, 1, u.Apply(0, 1))
	assert.True(t, h.Contains(0, 1))
	// The reference row does not exist in the query heap; nothing else
	// changes.
	assert.False(t, h.Contains(1, 0))
}
