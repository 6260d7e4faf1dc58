// Package retriever implements the dense, sparse and hybrid retrieval
// strategies on top of the vector store and the lexical index.
package retriever

import (
	"context"
	"fmt"

	"github.com/hupe1980/fusego/lexical"
	"github.com/hupe1980/fusego/model"
)

// DefaultTopK is the default result count for retrieval operations.
const DefaultTopK = 10

// ErrEmptyQuery is returned for blank or whitespace-only query text.
var ErrEmptyQuery = lexical.ErrEmptyQuery

// ErrIndexNotBuilt is returned when the sparse index has not been built.
var ErrIndexNotBuilt = lexical.ErrIndexNotBuilt

// ErrInvalidParameter indicates a configuration value outside its valid
// range.
type ErrInvalidParameter struct {
	Param  string
	Reason string
}

func (e *ErrInvalidParameter) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Param, e.Reason)
}

// RetrieveOptions contains per-call retrieval options. The zero value keeps
// the retriever's configured behavior.
type RetrieveOptions struct {
	// Alpha overrides the configured dense/sparse balance for this call.
	// Must be in [0, 1]; the hybrid retriever rejects values outside that
	// range with ErrInvalidParameter. Ignored by single-leg retrievers.
	Alpha *float64

	// Filter overrides the configured metadata filter on the dense leg.
	// The sparse leg is not filtered.
	Filter map[string]any
}

// Retriever returns the chunks most relevant to a text query, best first.
type Retriever interface {
	// Retrieve returns up to topK results sorted by score descending.
	// topK <= 0 selects DefaultTopK.
	Retrieve(ctx context.Context, query string, topK int, optFns ...func(o *RetrieveOptions)) ([]model.ScoredResult, error)
}
