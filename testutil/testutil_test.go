package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/nndescent/graph"
)

func TestRNGDeterministic(t *testing.T) {
	a := NewRNG(42)
	b := NewRNG(42)
	assert.Equal(t, a.Uint64(), b.Uint64())

	a.Reset()
	c := NewRNG(42)
	assert.Equal(t, c.Uint64(), a.Uint64())
}

func TestUniformPoints(t *testing.T) {
	points := UniformPoints(NewRNG(1), 20, 5)
	assert.Len(t, points, 20)
	for _, p := range points {
		assert.Len(t, p, 5)
		for _, v := range p {
			assert.GreaterOrEqual(t, v, float32(0))
			assert.Less(t, v, float32(1))
		}
	}
}

func TestRecall(t *testing.T) {
	truth := graph.New(2, 2)
	truth.Idx[0], truth.Idx[1] = 1, 2
	truth.Idx[2], truth.Idx[3] = 0, 2

	perfect := graph.New(2, 2)
	copy(perfect.Idx, truth.Idx)
	assert.Equal(t, 1.0, Recall(perfect, truth))

	half := graph.New(2, 2)
	half.Idx[0], half.Idx[1] = 1, 3
	half.Idx[2], half.Idx[3] = 3, 2
	assert.Equal(t, 0.5, Recall(half, truth))
}
