// Package lexical defines the interface for sparse keyword indexes.
package lexical

import (
	"context"
	"errors"

	"github.com/hupe1980/fusego/model"
)

// ErrIndexNotBuilt is returned when retrieval is attempted before BuildIndex.
var ErrIndexNotBuilt = errors.New("index not built: call BuildIndex first")

// ErrEmptyQuery is returned for blank or whitespace-only query text.
var ErrEmptyQuery = errors.New("empty query")

// Document is an indexable unit of text.
type Document struct {
	// ID is the unique document identifier.
	ID string

	// Content is the raw text to index.
	Content string
}

// Index is a sparse lexical search index.
type Index interface {
	// BuildIndex indexes the documents, atomically replacing any prior index.
	BuildIndex(ctx context.Context, docs []Document) error

	// Retrieve scores documents against the query and returns up to topK
	// results, best first. topK <= 0 selects the configured default.
	Retrieve(ctx context.Context, query string, topK int) ([]model.ScoredResult, error)

	// DocumentCount returns the number of indexed documents.
	DocumentCount() int

	// VocabularySize returns the number of distinct terms.
	VocabularySize() int

	// AverageDocumentLength returns the mean document length in tokens.
	AverageDocumentLength() float64
}
