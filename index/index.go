// Package index provides interfaces and types for vector search indexes.
//
// Indexes operate on dense row IDs and raw float32 vectors in distance
// space (lower is better). Chunk identity, scoring and filtering semantics
// live in the vectorstore package.
package index

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmptyVector is returned when an empty vector is inserted or queried.
var ErrEmptyVector = errors.New("empty vector")

// ErrInvalidK is returned when k is not positive.
var ErrInvalidK = errors.New("k must be positive")

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
type ErrDimensionMismatch struct {
	Expected int // Expected dimensions
	Actual   int // Actual dimensions
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrInvalidDimension indicates an invalid configured dimension.
type ErrInvalidDimension struct {
	Dimension int
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d", e.Dimension)
}

// ErrNodeNotFound indicates the requested row ID is not in the index.
type ErrNodeNotFound struct {
	ID uint32
}

func (e *ErrNodeNotFound) Error() string {
	return fmt.Sprintf("node not found: %d", e.ID)
}

// ValidateDimension validates a configured dimension.
func ValidateDimension(dimension int) error {
	if dimension <= 0 {
		return &ErrInvalidDimension{Dimension: dimension}
	}
	return nil
}

// SearchResult represents a single nearest-neighbor match.
type SearchResult struct {
	// ID is the row identifier of the match.
	ID uint32

	// Distance is the distance between query and match (lower is better).
	Distance float32
}

// SearchOptions contains per-query options.
type SearchOptions struct {
	// EFSearch is the candidate list size for approximate search.
	// 0 means use the index default. Ignored by exact indexes.
	EFSearch int

	// Filter restricts results to rows for which it returns true.
	// Filtering happens during traversal and never alters the distance
	// of surviving results.
	Filter func(id uint32) bool
}

// Stats describes an index for observability.
type Stats struct {
	// Kind is the index implementation name.
	Kind string

	// Count is the number of live vectors.
	Count int

	// Dimension is the configured dimensionality.
	Dimension int

	// Approximate is true when search results may miss true neighbors.
	Approximate bool

	// MaxLevel is the highest graph layer (HNSW only).
	MaxLevel int
}

// Index is a similarity-search structure over fixed-dimension vectors.
type Index interface {
	// Insert adds a vector and returns its row ID.
	Insert(ctx context.Context, v []float32) (uint32, error)

	// Delete removes a row. Deleting an unknown row is a no-op.
	Delete(ctx context.Context, id uint32) error

	// KNNSearch returns the k nearest rows, best first.
	KNNSearch(ctx context.Context, q []float32, k int, opts *SearchOptions) ([]SearchResult, error)

	// Dimension returns the configured dimensionality.
	Dimension() int

	// Count returns the number of live vectors.
	Count() int

	// Stats returns index statistics.
	Stats() Stats
}
