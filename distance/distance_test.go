package distance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDot(t *testing.T) {
	assert.InDelta(t, 32.0, Dot([]float32{1, 2, 3}, []float32{4, 5, 6}), 1e-6)
	assert.InDelta(t, 0.0, Dot([]float32{1, 0}, []float32{0, 1}), 1e-6)
}

func TestSquaredL2(t *testing.T) {
	assert.InDelta(t, 0.0, SquaredL2([]float32{1, 2}, []float32{1, 2}), 1e-6)
	assert.InDelta(t, 8.0, SquaredL2([]float32{0, 0}, []float32{2, 2}), 1e-6)
}

func TestCosineDistance(t *testing.T) {
	t.Run("identical vectors", func(t *testing.T) {
		assert.InDelta(t, 0.0, CosineDistance([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-6)
	})

	t.Run("orthogonal vectors", func(t *testing.T) {
		assert.InDelta(t, 1.0, CosineDistance([]float32{1, 0}, []float32{0, 1}), 1e-6)
	})

	t.Run("opposite vectors", func(t *testing.T) {
		assert.InDelta(t, 2.0, CosineDistance([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	})

	t.Run("zero vector", func(t *testing.T) {
		assert.InDelta(t, 1.0, CosineDistance([]float32{0, 0}, []float32{1, 0}), 1e-6)
	})
}

func TestNormalizeL2(t *testing.T) {
	v := []float32{3, 4}
	ok := NormalizeL2InPlace(v)
	require.True(t, ok)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := []float32{0, 0}
	assert.False(t, NormalizeL2InPlace(zero))
}

func TestParseMetric(t *testing.T) {
	tests := []struct {
		input    string
		expected Metric
		wantErr  bool
	}{
		{input: "cosine", expected: MetricCosine},
		{input: "l2", expected: MetricL2},
		{input: "inner_product", expected: MetricInnerProduct},
		{input: "hamming", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			m, err := ParseMetric(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, m)
			assert.Equal(t, tt.input, m.String())
		})
	}
}

func TestScoreFromDistance(t *testing.T) {
	t.Run("cosine self match scores 1", func(t *testing.T) {
		assert.InDelta(t, 1.0, ScoreFromDistance(MetricCosine, 0), 1e-6)
	})

	t.Run("cosine is monotonic", func(t *testing.T) {
		assert.Greater(t, ScoreFromDistance(MetricCosine, 0.1), ScoreFromDistance(MetricCosine, 0.5))
	})

	t.Run("l2 self match scores 1", func(t *testing.T) {
		assert.InDelta(t, 1.0, ScoreFromDistance(MetricL2, 0), 1e-6)
	})

	t.Run("inner product flips sign", func(t *testing.T) {
		assert.InDelta(t, 3.0, ScoreFromDistance(MetricInnerProduct, -3), 1e-6)
	})
}

func TestProvider(t *testing.T) {
	for _, m := range []Metric{MetricCosine, MetricL2, MetricInnerProduct} {
		fn, err := Provider(m)
		require.NoError(t, err)
		require.NotNil(t, fn)
	}

	_, err := Provider(Metric(99))
	require.Error(t, err)
}
