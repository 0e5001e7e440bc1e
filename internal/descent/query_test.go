package descent

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/nndescent/distance"
	"github.com/hupe1980/nndescent/testutil"
)

// ringPoints lays n points on a circle, giving a connected k-NN graph.
func ringPoints(n int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		angle := 2 * math.Pi * float64(i) / float64(n)
		out[i] = []float32{float32(math.Cos(angle)), float32(math.Sin(angle))}
	}
	return out
}

func TestNNDQuerySelfMatch(t *testing.T) {
	const k = 3
	refPoints := ringPoints(10)
	refFlat, ndim := flattenPoints(refPoints)
	cfg := testConfig(1)

	refSelf, err := distance.Self(refFlat, ndim, distance.MetricEuclidean)
	require.NoError(t, err)
	refKNN, err := BruteForce(context.Background(), refSelf, len(refPoints), k, cfg)
	require.NoError(t, err)

	// The single query point coincides with reference 0.
	queryFlat := append([]float32(nil), refFlat[:ndim]...)
	cross, err := distance.Cross(queryFlat, refFlat, ndim, distance.MetricEuclidean)
	require.NoError(t, err)

	init, err := RandomInitQuery(context.Background(), cross, 1, len(refPoints), k, 42, true, cfg)
	require.NoError(t, err)

	got, stats, err := NNDQuery(context.Background(), cross, refKNN, init, cfg)
	require.NoError(t, err)
	assert.Positive(t, stats.Iterations)

	assert.Equal(t, uint32(0), got.Index(0, 0))
	assert.Equal(t, float32(0), got.Distance(0, 0))
}

func TestNNDQueryRecall(t *testing.T) {
	const nRef, nQueries, k = 200, 40, 8
	rnd := testutil.NewRNG(11)
	refPoints := testutil.GaussianClusters(rnd, nRef, 4, 5, 0.3)
	queryPoints := testutil.GaussianClusters(rnd, nQueries, 4, 5, 0.3)
	refFlat, ndim := flattenPoints(refPoints)
	queryFlat, _ := flattenPoints(queryPoints)
	cfg := testConfig(1)

	refSelf, err := distance.Self(refFlat, ndim, distance.MetricEuclidean)
	require.NoError(t, err)
	refKNN, err := BruteForce(context.Background(), refSelf, nRef, k, cfg)
	require.NoError(t, err)

	cross, err := distance.Cross(queryFlat, refFlat, ndim, distance.MetricEuclidean)
	require.NoError(t, err)

	truth, err := BruteForceQuery(context.Background(), cross, nQueries, nRef, k, cfg)
	require.NoError(t, err)

	init, err := RandomInitQuery(context.Background(), cross, nQueries, nRef, k, 42, true, cfg)
	require.NoError(t, err)

	got, _, err := NNDQuery(context.Background(), cross, refKNN, init, cfg)
	require.NoError(t, err)
	// The reference k-NN graph of well-separated clusters has no edges
	// between clusters, so a query whose k random init references all miss
	// its nearest cluster (about 0.8^8, roughly one query in six) cannot
	// reach it.
	assert.GreaterOrEqual(t, testutil.Recall(got, truth), 0.80)
}

func TestNNDQuerySmallCandidateCapacity(t *testing.T) {
	// max_candidates < k exercises the deferred flag-retention path.
	const nRef, nQueries, k = 100, 20, 6
	rnd := testutil.NewRNG(13)
	refPoints := testutil.GaussianClusters(rnd, nRef, 3, 4, 0.3)
	queryPoints := testutil.GaussianClusters(rnd, nQueries, 3, 4, 0.3)
	refFlat, ndim := flattenPoints(refPoints)
	queryFlat, _ := flattenPoints(queryPoints)

	cfg := testConfig(1)
	cfg.MaxCandidates = 4

	refSelf, err := distance.Self(refFlat, ndim, distance.MetricEuclidean)
	require.NoError(t, err)
	refKNN, err := BruteForce(context.Background(), refSelf, nRef, k, cfg)
	require.NoError(t, err)

	cross, err := distance.Cross(queryFlat, refFlat, ndim, distance.MetricEuclidean)
	require.NoError(t, err)
	truth, err := BruteForceQuery(context.Background(), cross, nQueries, nRef, k, cfg)
	require.NoError(t, err)

	init, err := RandomInitQuery(context.Background(), cross, nQueries, nRef, k, 42, true, cfg)
	require.NoError(t, err)

	got, _, err := NNDQuery(context.Background(), cross, refKNN, init, cfg)
	require.NoError(t, err)
	// Capacity pressure costs some recall but the path must stay sound.
	assert.GreaterOrEqual(t, testutil.Recall(got, truth), 0.70)
}

func TestNNDQueryParallelMatchesSerialRecall(t *testing.T) {
	const nRef, nQueries, k = 150, 30, 6
	rnd := testutil.NewRNG(17)
	refPoints := testutil.GaussianClusters(rnd, nRef, 4, 5, 0.3)
	queryPoints := testutil.GaussianClusters(rnd, nQueries, 4, 5, 0.3)
	refFlat, ndim := flattenPoints(refPoints)
	queryFlat, _ := flattenPoints(queryPoints)

	refSelf, err := distance.Self(refFlat, ndim, distance.MetricEuclidean)
	require.NoError(t, err)
	refKNN, err := BruteForce(context.Background(), refSelf, nRef, k, testConfig(1))
	require.NoError(t, err)

	cross, err := distance.Cross(queryFlat, refFlat, ndim, distance.MetricEuclidean)
	require.NoError(t, err)
	truth, err := BruteForceQuery(context.Background(), cross, nQueries, nRef, k, testConfig(1))
	require.NoError(t, err)

	init, err := RandomInitQuery(context.Background(), cross, nQueries, nRef, k, 42, true, testConfig(1))
	require.NoError(t, err)

	serial, _, err := NNDQuery(context.Background(), cross, refKNN, init, testConfig(1))
	require.NoError(t, err)
	par, _, err := NNDQuery(context.Background(), cross, refKNN, init, testConfig(4))
	require.NoError(t, err)

	assert.InDelta(t, testutil.Recall(serial, truth), testutil.Recall(par, truth), 0.02)
}
