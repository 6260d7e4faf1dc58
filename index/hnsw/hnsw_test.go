package hnsw

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/fusego/distance"
	"github.com/hupe1980/fusego/index"
	"github.com/hupe1980/fusego/testutil"
)

func newTestIndex(t *testing.T, dim int, optFns ...func(o *Options)) *HNSW {
	t.Helper()

	seed := int64(4711)
	h, err := New(append([]func(o *Options){func(o *Options) {
		o.Dimension = dim
		o.Metric = distance.MetricL2
		o.RandomSeed = &seed
	}}, optFns...)...)
	require.NoError(t, err)
	return h
}

func TestInsertAndSearch(t *testing.T) {
	ctx := context.Background()
	h := newTestIndex(t, 2)

	vectors := [][]float32{
		{0, 0},
		{1, 0},
		{0, 1},
		{10, 10},
	}
	ids := make([]uint32, len(vectors))
	for i, v := range vectors {
		id, err := h.Insert(ctx, v)
		require.NoError(t, err)
		ids[i] = id
	}
	require.Equal(t, 4, h.Count())

	results, err := h.KNNSearch(ctx, []float32{0.1, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, ids[0], results[0].ID)
	assert.Equal(t, ids[1], results[1].ID)
}

func TestEmptyIndex(t *testing.T) {
	ctx := context.Background()
	h := newTestIndex(t, 2)

	results, err := h.KNNSearch(ctx, []float32{1, 2}, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid dimension", func(t *testing.T) {
		_, err := New(func(o *Options) { o.Dimension = 0 })
		var id *index.ErrInvalidDimension
		assert.ErrorAs(t, err, &id)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		h := newTestIndex(t, 3)
		_, err := h.Insert(ctx, []float32{1, 2})
		var dm *index.ErrDimensionMismatch
		assert.ErrorAs(t, err, &dm)

		_, err = h.KNNSearch(ctx, []float32{1, 2}, 1, nil)
		assert.ErrorAs(t, err, &dm)
	})

	t.Run("invalid k", func(t *testing.T) {
		h := newTestIndex(t, 2)
		_, err := h.KNNSearch(ctx, []float32{1, 2}, 0, nil)
		assert.ErrorIs(t, err, index.ErrInvalidK)
	})
}

func TestDeleteTombstones(t *testing.T) {
	ctx := context.Background()
	h := newTestIndex(t, 1)

	id0, err := h.Insert(ctx, []float32{1})
	require.NoError(t, err)
	_, err = h.Insert(ctx, []float32{2})
	require.NoError(t, err)

	require.NoError(t, h.Delete(ctx, id0))
	assert.Equal(t, 1, h.Count())

	results, err := h.KNNSearch(ctx, []float32{1}, 10, nil)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, id0, r.ID)
	}

	// Idempotent.
	require.NoError(t, h.Delete(ctx, id0))
	assert.Equal(t, 1, h.Count())
}

func TestSearchWithFilter(t *testing.T) {
	ctx := context.Background()
	h := newTestIndex(t, 1)

	for i := 0; i < 50; i++ {
		_, err := h.Insert(ctx, []float32{float32(i)})
		require.NoError(t, err)
	}

	even := func(id uint32) bool { return id%2 == 0 }
	results, err := h.KNNSearch(ctx, []float32{0}, 5, &index.SearchOptions{Filter: even})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	for _, r := range results {
		assert.Zero(t, r.ID%2)
	}
}

func TestCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := newTestIndex(t, 2)
	_, err := h.Insert(ctx, []float32{1, 2})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = h.KNNSearch(ctx, []float32{1, 2}, 1, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

// errAfterCtx reports cancellation from the nth Err call onward, reaching
// cancellation points deeper than the one at the top of Insert.
type errAfterCtx struct {
	context.Context
	calls     int
	failAfter int
}

func (c *errAfterCtx) Err() error {
	c.calls++
	if c.calls > c.failAfter {
		return context.Canceled
	}
	return nil
}

func TestInsertCancellationLeavesNoGhostRow(t *testing.T) {
	ctx := context.Background()
	h := newTestIndex(t, 2)

	rng := testutil.NewRNG(42)
	for _, v := range rng.UniformVectors(32, 2) {
		_, err := h.Insert(ctx, v)
		require.NoError(t, err)
	}
	before := h.Count()

	// Far from every indexed vector: a row leaked by a failed insert would
	// match itself at distance zero.
	ghost := []float32{100, 100}

	for failAfter := 1; failAfter <= 8; failAfter++ {
		fctx := &errAfterCtx{Context: ctx, failAfter: failAfter}
		id, err := h.Insert(fctx, ghost)
		if err == nil {
			// Every cancellation point was passed.
			require.NoError(t, h.Delete(ctx, id))
			break
		}
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, before, h.Count())

		results, serr := h.KNNSearch(ctx, ghost, 3, nil)
		require.NoError(t, serr)
		for _, r := range results {
			assert.Positive(t, r.Distance)
		}
	}
}

func TestRecallAgainstExactSearch(t *testing.T) {
	ctx := context.Background()

	const (
		dim     = 16
		n       = 500
		k       = 10
		queries = 20
	)

	h := newTestIndex(t, dim, func(o *Options) {
		o.M = 16
		o.EFConstruction = 200
		o.EFSearch = 200
	})

	rng := testutil.NewRNG(42)
	dataset := rng.UniformVectors(n, dim)
	for _, v := range dataset {
		_, err := h.Insert(ctx, v)
		require.NoError(t, err)
	}

	var totalRecall float64
	for q := 0; q < queries; q++ {
		query := rng.UniformVector(dim)

		exact := testutil.ExactTopK(query, dataset, k, distance.SquaredL2)

		results, err := h.KNNSearch(ctx, query, k, nil)
		require.NoError(t, err)

		approx := make([]uint32, len(results))
		for i, r := range results {
			approx[i] = r.ID
		}
		totalRecall += testutil.ComputeRecall(approx, exact)
	}

	recall := totalRecall / queries
	assert.GreaterOrEqual(t, recall, 0.9, "average recall %f below threshold", recall)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	h := newTestIndex(t, 4)

	_, err := h.Insert(ctx, []float32{1, 2, 3, 4})
	require.NoError(t, err)

	stats := h.Stats()
	assert.Equal(t, "hnsw", stats.Kind)
	assert.Equal(t, 1, stats.Count)
	assert.Equal(t, 4, stats.Dimension)
	assert.True(t, stats.Approximate)
}
