// Package distance provides vector distance metrics and score conversion.
//
// Indexes operate in distance space (lower is better); the vector store
// converts distances to similarity scores (higher is better) via
// ScoreFromDistance so that callers always see descending score order.
package distance

import (
	"fmt"
	"math"
	"slices"
)

// Dot calculates the dot product of two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// SquaredL2 calculates the squared L2 (Euclidean) distance between two vectors.
// Assumes vectors are the same length (caller's responsibility).
func SquaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// CosineDistance calculates 1 - cosine similarity of two vectors.
// A zero vector has distance 1 to everything.
func CosineDistance(a, b []float32) float32 {
	var dot, na, nb float32
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(float32(math.Sqrt(float64(na)))*float32(math.Sqrt(float64(nb))))
}

// NegativeDot calculates the negated dot product, turning inner-product
// similarity into a distance (lower is better).
func NegativeDot(a, b []float32) float32 {
	return -Dot(a, b)
}

// NormalizeL2InPlace L2-normalizes v in place.
// Returns false if v has zero L2 norm.
func NormalizeL2InPlace(v []float32) bool {
	if len(v) == 0 {
		return false
	}
	norm2 := Dot(v, v)
	if norm2 == 0 {
		return false
	}
	inv := 1 / float32(math.Sqrt(float64(norm2)))
	for i := range v {
		v[i] *= inv
	}
	return true
}

// NormalizeL2Copy returns a normalized copy of src.
// Returns false if src has zero L2 norm.
func NormalizeL2Copy(src []float32) ([]float32, bool) {
	dst := slices.Clone(src)
	if !NormalizeL2InPlace(dst) {
		return nil, false
	}
	return dst, true
}

// Metric represents the distance metric used for vector comparison.
type Metric int

const (
	// MetricCosine is cosine similarity, the default for text embeddings.
	MetricCosine Metric = iota

	// MetricL2 is squared Euclidean distance.
	MetricL2

	// MetricInnerProduct is (negated) dot-product similarity.
	MetricInnerProduct
)

func (m Metric) String() string {
	switch m {
	case MetricCosine:
		return "cosine"
	case MetricL2:
		return "l2"
	case MetricInnerProduct:
		return "inner_product"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// ParseMetric parses a metric name as used in configuration.
func ParseMetric(s string) (Metric, error) {
	switch s {
	case "cosine":
		return MetricCosine, nil
	case "l2":
		return MetricL2, nil
	case "inner_product":
		return MetricInnerProduct, nil
	default:
		return 0, fmt.Errorf("unsupported distance metric: %q", s)
	}
}

// Func is a function type for distance calculation.
type Func func(a, b []float32) float32

// Provider returns the distance function for the given metric.
func Provider(m Metric) (Func, error) {
	switch m {
	case MetricCosine:
		return CosineDistance, nil
	case MetricL2:
		return SquaredL2, nil
	case MetricInnerProduct:
		return NegativeDot, nil
	default:
		return nil, fmt.Errorf("unsupported metric: %v", m)
	}
}

// ScoreFromDistance converts a distance into a similarity score.
//
// Cosine maps to 1-d so that a self-query scores 1.0; L2 maps to 1/(1+d)
// so scores stay in (0, 1]; inner product maps back to the raw dot product.
// All conversions are strictly monotonic, so rank order is preserved.
func ScoreFromDistance(m Metric, d float32) float64 {
	switch m {
	case MetricCosine:
		return 1 - float64(d)
	case MetricL2:
		return 1 / (1 + float64(d))
	case MetricInnerProduct:
		return -float64(d)
	default:
		return -float64(d)
	}
}
