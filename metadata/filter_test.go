package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilterSet(t *testing.T) {
	t.Run("literal becomes equality", func(t *testing.T) {
		fs, err := ParseFilterSet(map[string]any{"category": "tech"})
		require.NoError(t, err)
		require.Len(t, fs.Filters, 1)
		assert.Equal(t, OpEqual, fs.Filters[0].Operator)
		assert.Equal(t, "tech", fs.Filters[0].Value)
	})

	t.Run("comparison operators", func(t *testing.T) {
		for _, op := range []string{"$gt", "$gte", "$lt", "$lte"} {
			fs, err := ParseFilterSet(map[string]any{"year": map[string]any{op: 2020}})
			require.NoError(t, err)
			require.Len(t, fs.Filters, 1)
			assert.Equal(t, Operator(op), fs.Filters[0].Operator)
		}
	})

	t.Run("unknown operator", func(t *testing.T) {
		_, err := ParseFilterSet(map[string]any{"year": map[string]any{"$between": []any{1, 2}}})
		require.Error(t, err)

		var fe *ErrInvalidFilter
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "year", fe.Field)
		assert.Equal(t, "$between", fe.Operator)
	})

	t.Run("empty input", func(t *testing.T) {
		fs, err := ParseFilterSet(nil)
		require.NoError(t, err)
		assert.True(t, fs.Empty())
	})
}

func TestFilterMatches(t *testing.T) {
	doc := Metadata{
		"category": "tech",
		"year":     2021,
		"rating":   4.5,
		"active":   true,
	}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{name: "string equal", filter: Filter{Key: "category", Operator: OpEqual, Value: "tech"}, want: true},
		{name: "string not equal", filter: Filter{Key: "category", Operator: OpEqual, Value: "food"}, want: false},
		{name: "numeric equal cross type", filter: Filter{Key: "year", Operator: OpEqual, Value: 2021.0}, want: true},
		{name: "bool equal", filter: Filter{Key: "active", Operator: OpEqual, Value: true}, want: true},
		{name: "gt true", filter: Filter{Key: "year", Operator: OpGreaterThan, Value: 2020}, want: true},
		{name: "gt boundary excluded", filter: Filter{Key: "year", Operator: OpGreaterThan, Value: 2021}, want: false},
		{name: "gte boundary included", filter: Filter{Key: "year", Operator: OpGreaterEqual, Value: 2021}, want: true},
		{name: "lt true", filter: Filter{Key: "rating", Operator: OpLessThan, Value: 5}, want: true},
		{name: "lte boundary included", filter: Filter{Key: "rating", Operator: OpLessEqual, Value: 4.5}, want: true},
		{name: "missing field never matches", filter: Filter{Key: "author", Operator: OpEqual, Value: "x"}, want: false},
		{name: "comparison on non-numeric fails", filter: Filter{Key: "category", Operator: OpGreaterThan, Value: 1}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(doc))
		})
	}
}

func TestFilterSetMatchesAll(t *testing.T) {
	doc := Metadata{"category": "tech", "year": 2021}

	fs, err := ParseFilterSet(map[string]any{
		"category": "tech",
		"year":     map[string]any{"$gte": 2020},
	})
	require.NoError(t, err)
	assert.True(t, fs.Matches(doc))

	fs, err = ParseFilterSet(map[string]any{
		"category": "tech",
		"year":     map[string]any{"$gte": 2022},
	})
	require.NoError(t, err)
	assert.False(t, fs.Matches(doc))
}

func TestIndexCompileFilter(t *testing.T) {
	ix := NewIndex()
	ix.Set(1, Metadata{"category": "tech", "year": 2019})
	ix.Set(2, Metadata{"category": "tech", "year": 2022})
	ix.Set(3, Metadata{"category": "food", "year": 2022})

	t.Run("equality via inverted index", func(t *testing.T) {
		fs, err := ParseFilterSet(map[string]any{"category": "tech"})
		require.NoError(t, err)

		pred := ix.CompileFilter(fs)
		require.NotNil(t, pred)
		assert.True(t, pred(1))
		assert.True(t, pred(2))
		assert.False(t, pred(3))
	})

	t.Run("equality plus comparison", func(t *testing.T) {
		fs, err := ParseFilterSet(map[string]any{
			"category": "tech",
			"year":     map[string]any{"$gte": 2020},
		})
		require.NoError(t, err)

		pred := ix.CompileFilter(fs)
		require.NotNil(t, pred)
		assert.False(t, pred(1))
		assert.True(t, pred(2))
		assert.False(t, pred(3))
	})

	t.Run("unmatched value short circuits", func(t *testing.T) {
		fs, err := ParseFilterSet(map[string]any{"category": "games"})
		require.NoError(t, err)

		pred := ix.CompileFilter(fs)
		require.NotNil(t, pred)
		assert.False(t, pred(1))
		assert.False(t, pred(2))
		assert.False(t, pred(3))
	})

	t.Run("empty filter compiles to nil", func(t *testing.T) {
		fs, err := ParseFilterSet(nil)
		require.NoError(t, err)
		assert.Nil(t, ix.CompileFilter(fs))
	})

	t.Run("deleted rows stop matching", func(t *testing.T) {
		fs, err := ParseFilterSet(map[string]any{"category": "food"})
		require.NoError(t, err)

		pred := ix.CompileFilter(fs)
		require.True(t, pred(3))

		ix.Delete(3)
		pred = ix.CompileFilter(fs)
		assert.False(t, pred(3))
	})
}

func TestNumericKeyEquivalence(t *testing.T) {
	ix := NewIndex()
	ix.Set(1, Metadata{"year": 2021})

	// Integer and float literals land in the same posting list.
	fs, err := ParseFilterSet(map[string]any{"year": 2021.0})
	require.NoError(t, err)

	pred := ix.CompileFilter(fs)
	require.NotNil(t, pred)
	assert.True(t, pred(1))
}
