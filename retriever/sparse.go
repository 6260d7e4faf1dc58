package retriever

import (
	"context"

	"github.com/hupe1980/fusego/lexical"
	"github.com/hupe1980/fusego/model"
)

// Sparse retrieves by lexical (term-based) scoring. It is a thin adapter
// over a lexical.Index such as BM25.
type Sparse struct {
	index lexical.Index
}

var _ Retriever = (*Sparse)(nil)

// NewSparse creates a sparse retriever over the given lexical index.
func NewSparse(index lexical.Index) *Sparse {
	return &Sparse{index: index}
}

// Index exposes the underlying lexical index.
func (s *Sparse) Index() lexical.Index {
	return s.index
}

// BuildIndex indexes the documents, replacing any prior index.
func (s *Sparse) BuildIndex(ctx context.Context, docs []lexical.Document) error {
	return s.index.BuildIndex(ctx, docs)
}

// Retrieve implements Retriever. Per-call options only affect the dense
// leg and are ignored here.
func (s *Sparse) Retrieve(ctx context.Context, query string, topK int, _ ...func(o *RetrieveOptions)) ([]model.ScoredResult, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return s.index.Retrieve(ctx, query, topK)
}
