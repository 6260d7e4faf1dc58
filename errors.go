package fusego

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/fusego/index"
	"github.com/hupe1980/fusego/lexical"
	"github.com/hupe1980/fusego/metadata"
	"github.com/hupe1980/fusego/retriever"
	"github.com/hupe1980/fusego/vectorstore"
)

var (
	// ErrEmptyQuery is returned for blank or whitespace-only query text.
	ErrEmptyQuery = errors.New("empty query")

	// ErrIndexNotBuilt is returned when retrieval touches the sparse index
	// before BuildIndex was called.
	ErrIndexNotBuilt = errors.New("index not built")

	// ErrInvalidFilter is returned for a malformed metadata filter.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrCancelled is returned when an operation was cancelled or timed
	// out via its context.
	ErrCancelled = errors.New("operation cancelled")
)

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// ErrCapacityExceeded indicates a chunk that cannot fit the memory budget
// even after maximal eviction.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrCapacityExceeded struct {
	ItemBytes   int64
	BudgetBytes int64
	cause       error
}

func (e *ErrCapacityExceeded) Error() string {
	return fmt.Sprintf("capacity exceeded: chunk of %d bytes cannot fit budget of %d bytes", e.ItemBytes, e.BudgetBytes)
}

func (e *ErrCapacityExceeded) Unwrap() error { return e.cause }

// ErrEmbedderMismatch indicates an embedder violated its contract by
// returning a different number of vectors than texts it was given.
type ErrEmbedderMismatch struct {
	Texts   int
	Vectors int
}

func (e *ErrEmbedderMismatch) Error() string {
	return fmt.Sprintf("embedder returned %d vectors for %d texts", e.Vectors, e.Texts)
}

// ErrInvalidParameter indicates a configuration value outside its valid
// range.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidParameter struct {
	Param  string
	Reason string
	cause  error
}

func (e *ErrInvalidParameter) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Param, e.Reason)
}

func (e *ErrInvalidParameter) Unwrap() error { return e.cause }

// translateError normalizes package-level errors into the public taxonomy.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	if errors.Is(err, lexical.ErrEmptyQuery) {
		return fmt.Errorf("%w: %w", ErrEmptyQuery, err)
	}
	if errors.Is(err, lexical.ErrIndexNotBuilt) {
		return fmt.Errorf("%w: %w", ErrIndexNotBuilt, err)
	}

	var fe *metadata.ErrInvalidFilter
	if errors.As(err, &fe) {
		return fmt.Errorf("%w: %w", ErrInvalidFilter, err)
	}

	var dm *index.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return &ErrDimensionMismatch{Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}

	var ce *vectorstore.ErrCapacityExceeded
	if errors.As(err, &ce) {
		return &ErrCapacityExceeded{ItemBytes: ce.ItemBytes, BudgetBytes: ce.BudgetBytes, cause: err}
	}

	var ip *retriever.ErrInvalidParameter
	if errors.As(err, &ip) {
		return &ErrInvalidParameter{Param: ip.Param, Reason: ip.Reason, cause: err}
	}

	return err
}
