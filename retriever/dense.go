package retriever

import (
	"context"
	"strings"

	"github.com/hupe1980/fusego/embedding"
	"github.com/hupe1980/fusego/model"
	"github.com/hupe1980/fusego/vectorstore"
)

// DenseOptions contains configuration options for the dense retriever.
type DenseOptions struct {
	// Filter is an optional metadata filter applied on every retrieval.
	Filter map[string]any

	// MinScore drops results scoring below it. Nil disables the cutoff.
	MinScore *float64
}

// Dense retrieves by embedding the query and running a similarity search
// against the vector store.
type Dense struct {
	store    *vectorstore.VectorStore
	embedder embedding.Embedder
	opts     DenseOptions
}

var _ Retriever = (*Dense)(nil)

// NewDense creates a dense retriever over the given store and embedder.
func NewDense(store *vectorstore.VectorStore, embedder embedding.Embedder, optFns ...func(o *DenseOptions)) *Dense {
	opts := DenseOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Dense{store: store, embedder: embedder, opts: opts}
}

// Store exposes the underlying vector store.
func (d *Dense) Store() *vectorstore.VectorStore {
	return d.store
}

// Retrieve implements Retriever. A per-call Filter replaces the configured
// one for this call only; Alpha has no meaning on a single leg and is
// ignored.
func (d *Dense) Retrieve(ctx context.Context, query string, topK int, optFns ...func(o *RetrieveOptions)) ([]model.ScoredResult, error) {
	var callOpts RetrieveOptions
	for _, fn := range optFns {
		fn(&callOpts)
	}

	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	filter := d.opts.Filter
	if callOpts.Filter != nil {
		filter = callOpts.Filter
	}

	vector, err := d.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	return d.store.Search(ctx, vector, func(o *vectorstore.SearchOptions) {
		o.TopK = topK
		o.Filter = filter
		o.MinScore = d.opts.MinScore
	})
}
