package bm25

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/fusego/lexical"
)

func testCorpus() []lexical.Document {
	return []lexical.Document{
		{ID: "pg", Content: "PostgreSQL is a relational database."},
		{ID: "redis", Content: "Redis is an in-memory key-value store."},
		{ID: "kafka", Content: "Kafka is a distributed event streaming platform."},
		{ID: "mysql", Content: "MySQL is a popular open source database."},
	}
}

func TestRetrieve(t *testing.T) {
	ctx := context.Background()

	ix := New()
	require.NoError(t, ix.BuildIndex(ctx, testCorpus()))

	t.Run("exact term match ranks first", func(t *testing.T) {
		results, err := ix.Retrieve(ctx, "PostgreSQL database", 10)
		require.NoError(t, err)
		require.NotEmpty(t, results)

		assert.Equal(t, "pg", results[0].ID)
		assert.Equal(t, 1, results[0].Rank)
	})

	t.Run("scores normalized to unit interval", func(t *testing.T) {
		results, err := ix.Retrieve(ctx, "PostgreSQL database", 10)
		require.NoError(t, err)
		require.NotEmpty(t, results)

		assert.InDelta(t, 1.0, results[0].Score, 1e-9)
		for _, r := range results {
			assert.GreaterOrEqual(t, r.Score, 0.0)
			assert.LessOrEqual(t, r.Score, 1.0)
		}
	})

	t.Run("results sorted descending", func(t *testing.T) {
		results, err := ix.Retrieve(ctx, "database store platform", 10)
		require.NoError(t, err)
		for i := 1; i < len(results); i++ {
			assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
		}
	})

	t.Run("topK truncates", func(t *testing.T) {
		results, err := ix.Retrieve(ctx, "is", 2)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(results), 2)
	})

	t.Run("no matching terms yields empty result", func(t *testing.T) {
		results, err := ix.Retrieve(ctx, "quantum entanglement", 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("tokenization is case insensitive", func(t *testing.T) {
		upper, err := ix.Retrieve(ctx, "POSTGRESQL", 10)
		require.NoError(t, err)
		lower, err := ix.Retrieve(ctx, "postgresql", 10)
		require.NoError(t, err)
		assert.Equal(t, lower, upper)
	})
}

func TestRetrieveErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("index not built", func(t *testing.T) {
		ix := New()
		_, err := ix.Retrieve(ctx, "database", 10)
		assert.ErrorIs(t, err, lexical.ErrIndexNotBuilt)
	})

	t.Run("empty query", func(t *testing.T) {
		ix := New()
		require.NoError(t, ix.BuildIndex(ctx, testCorpus()))

		_, err := ix.Retrieve(ctx, "", 10)
		assert.ErrorIs(t, err, lexical.ErrEmptyQuery)

		_, err = ix.Retrieve(ctx, "   \t\n", 10)
		assert.ErrorIs(t, err, lexical.ErrEmptyQuery)
	})

	t.Run("empty corpus", func(t *testing.T) {
		ix := New()
		require.NoError(t, ix.BuildIndex(ctx, nil))

		results, err := ix.Retrieve(ctx, "database", 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ix := New()
		require.NoError(t, ix.BuildIndex(context.Background(), testCorpus()))

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := ix.Retrieve(cancelled, "database", 10)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestBuildIndexReplacesAtomically(t *testing.T) {
	ctx := context.Background()

	ix := New()
	require.NoError(t, ix.BuildIndex(ctx, testCorpus()))
	require.Equal(t, 4, ix.DocumentCount())

	require.NoError(t, ix.BuildIndex(ctx, []lexical.Document{
		{ID: "solo", Content: "etcd is a distributed key-value store."},
	}))

	assert.Equal(t, 1, ix.DocumentCount())

	results, err := ix.Retrieve(ctx, "postgresql", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestIndexStats(t *testing.T) {
	ctx := context.Background()

	ix := New()
	require.NoError(t, ix.BuildIndex(ctx, []lexical.Document{
		{ID: "a", Content: "alpha beta gamma"},
		{ID: "b", Content: "alpha delta"},
	}))

	assert.Equal(t, 2, ix.DocumentCount())
	assert.Equal(t, 4, ix.VocabularySize())
	assert.InDelta(t, 2.5, ix.AverageDocumentLength(), 1e-9)
}

func TestIDFSaturation(t *testing.T) {
	ctx := context.Background()

	// A term in every document carries far less weight than a rare term.
	ix := New()
	require.NoError(t, ix.BuildIndex(ctx, []lexical.Document{
		{ID: "a", Content: "common rare"},
		{ID: "b", Content: "common"},
		{ID: "c", Content: "common"},
		{ID: "d", Content: "common"},
	}))

	results, err := ix.Retrieve(ctx, "common rare", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "a", results[0].ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}
