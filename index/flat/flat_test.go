package flat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/fusego/distance"
	"github.com/hupe1980/fusego/index"
)

func newTestIndex(t *testing.T, dim int, metric distance.Metric) *Flat {
	t.Helper()
	f, err := New(func(o *Options) {
		o.Dimension = dim
		o.Metric = metric
	})
	require.NoError(t, err)
	return f
}

func TestInsertAndSearch(t *testing.T) {
	ctx := context.Background()
	f := newTestIndex(t, 2, distance.MetricL2)

	vectors := [][]float32{
		{0, 0},
		{1, 0},
		{0, 1},
		{5, 5},
	}
	for _, v := range vectors {
		_, err := f.Insert(ctx, v)
		require.NoError(t, err)
	}
	require.Equal(t, 4, f.Count())

	results, err := f.KNNSearch(ctx, []float32{0.1, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, uint32(0), results[0].ID)
	assert.Equal(t, uint32(1), results[1].ID)
	assert.LessOrEqual(t, results[0].Distance, results[1].Distance)
}

func TestInsertValidation(t *testing.T) {
	ctx := context.Background()
	f := newTestIndex(t, 3, distance.MetricL2)

	_, err := f.Insert(ctx, nil)
	assert.ErrorIs(t, err, index.ErrEmptyVector)

	_, err = f.Insert(ctx, []float32{1, 2})
	var dm *index.ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 3, dm.Expected)
	assert.Equal(t, 2, dm.Actual)
}

func TestSearchValidation(t *testing.T) {
	ctx := context.Background()
	f := newTestIndex(t, 2, distance.MetricL2)

	_, err := f.KNNSearch(ctx, []float32{1, 2}, 0, nil)
	assert.ErrorIs(t, err, index.ErrInvalidK)

	_, err = f.KNNSearch(ctx, []float32{1}, 1, nil)
	var dm *index.ErrDimensionMismatch
	assert.ErrorAs(t, err, &dm)
}

func TestDeleteAndReuse(t *testing.T) {
	ctx := context.Background()
	f := newTestIndex(t, 1, distance.MetricL2)

	id0, err := f.Insert(ctx, []float32{1})
	require.NoError(t, err)
	_, err = f.Insert(ctx, []float32{2})
	require.NoError(t, err)

	require.NoError(t, f.Delete(ctx, id0))
	assert.Equal(t, 1, f.Count())

	// Deleted rows never surface in search results.
	results, err := f.KNNSearch(ctx, []float32{1}, 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NotEqual(t, id0, results[0].ID)

	// Deleting again is a no-op.
	require.NoError(t, f.Delete(ctx, id0))
	assert.Equal(t, 1, f.Count())

	// Freed rows get reused.
	id2, err := f.Insert(ctx, []float32{3})
	require.NoError(t, err)
	assert.Equal(t, id0, id2)
}

func TestSearchWithFilter(t *testing.T) {
	ctx := context.Background()
	f := newTestIndex(t, 1, distance.MetricL2)

	for i := 0; i < 10; i++ {
		_, err := f.Insert(ctx, []float32{float32(i)})
		require.NoError(t, err)
	}

	even := func(id uint32) bool { return id%2 == 0 }
	results, err := f.KNNSearch(ctx, []float32{0}, 3, &index.SearchOptions{Filter: even})
	require.NoError(t, err)
	require.Len(t, results, 3)

	for _, r := range results {
		assert.Zero(t, r.ID%2)
	}
}

func TestSearchCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newTestIndex(t, 1, distance.MetricL2)
	_, err := f.KNNSearch(ctx, []float32{0}, 1, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCosineSelfMatch(t *testing.T) {
	ctx := context.Background()
	f := newTestIndex(t, 3, distance.MetricCosine)

	v := []float32{0.3, 0.5, 0.2}
	id, err := f.Insert(ctx, v)
	require.NoError(t, err)

	results, err := f.KNNSearch(ctx, v, 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, id, results[0].ID)
	assert.InDelta(t, 0.0, results[0].Distance, 1e-5)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	f := newTestIndex(t, 4, distance.MetricL2)

	_, err := f.Insert(ctx, []float32{1, 2, 3, 4})
	require.NoError(t, err)

	stats := f.Stats()
	assert.Equal(t, "flat", stats.Kind)
	assert.Equal(t, 1, stats.Count)
	assert.Equal(t, 4, stats.Dimension)
	assert.False(t, stats.Approximate)
}
