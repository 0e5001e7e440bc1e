package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForCoversRange(t *testing.T) {
	tests := []struct {
		name    string
		workers int
		grain   int
	}{
		{"Serial", 1, 10},
		{"Parallel", 4, 7},
		{"TinyGrain", 4, 1},
		{"GrainLargerThanRange", 4, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits [100]atomic.Int32
			err := For(context.Background(), 0, 100, tt.grain, tt.workers, func(begin, end int) {
				for i := begin; i < end; i++ {
					hits[i].Add(1)
				}
			})
			require.NoError(t, err)
			for i := range hits {
				assert.Equal(t, int32(1), hits[i].Load(), "row %d", i)
			}
		})
	}
}

func TestForEmptyRange(t *testing.T) {
	called := false
	err := For(context.Background(), 5, 5, 1, 4, func(int, int) { called = true })
	require.NoError(t, err)
	assert.False(t, called)
}

func TestBatchForCoversRange(t *testing.T) {
	var hits [250]atomic.Int32
	var batches []int

	err := BatchFor(context.Background(), 250, 100, 16, 4, func(begin, end int) {
		for i := begin; i < end; i++ {
			hits[i].Add(1)
		}
	}, func(done int) error {
		batches = append(batches, done)
		return nil
	})
	require.NoError(t, err)

	for i := range hits {
		assert.Equal(t, int32(1), hits[i].Load(), "row %d", i)
	}
	assert.Equal(t, []int{100, 200, 250}, batches)
}

func TestBatchForSingleBatch(t *testing.T) {
	var total atomic.Int64
	var batches []int

	err := BatchFor(context.Background(), 50, 100, 8, 2, func(begin, end int) {
		total.Add(int64(end - begin))
	}, func(done int) error {
		batches = append(batches, done)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(50), total.Load())
	assert.Equal(t, []int{50}, batches)
}

func TestBatchForBetweenError(t *testing.T) {
	sentinel := errors.New("stop")
	var rows atomic.Int64

	err := BatchFor(context.Background(), 300, 100, 16, 2, func(begin, end int) {
		rows.Add(int64(end - begin))
	}, func(done int) error {
		if done >= 100 {
			return sentinel
		}
		return nil
	})
	assert.ErrorIs(t, err, sentinel)
	// The first super-batch completed before the stop.
	assert.Equal(t, int64(100), rows.Load())
}

func TestBatchForContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var rows atomic.Int64

	err := BatchFor(ctx, 300, 100, 16, 2, func(begin, end int) {
		rows.Add(int64(end - begin))
	}, func(done int) error {
		if done >= 100 {
			cancel()
		}
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	// Cancellation is only observed between super-batches.
	assert.Equal(t, int64(100), rows.Load())
}
