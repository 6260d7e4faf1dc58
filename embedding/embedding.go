// Package embedding defines the embedding provider contract used by the
// dense retrieval path.
package embedding

import (
	"context"

	"github.com/hupe1980/fusego/internal/conv"
)

// Embedder turns text into embedding vectors. Implementations must return
// vectors of a fixed dimensionality and should honor context cancellation.
type Embedder interface {
	// Embed returns the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one embedding per input text, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Func adapts a single-text embedding function to the Embedder interface.
// Batch requests are served by sequential calls.
type Func func(ctx context.Context, text string) ([]float32, error)

// Embed implements Embedder.
func (f Func) Embed(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

// EmbedBatch implements Embedder.
func (f Func) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := f(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Float64Func adapts a single-text embedding function producing []float64
// to the Embedder interface. Many embedding clients decode JSON responses
// into float64; this bridges them to the float32 vector plane. Batch
// requests are served by sequential calls.
type Float64Func func(ctx context.Context, text string) ([]float64, error)

// Embed implements Embedder.
func (f Float64Func) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := f(ctx, text)
	if err != nil {
		return nil, err
	}
	return conv.Float64To32(v), nil
}

// EmbedBatch implements Embedder.
func (f Float64Func) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := f.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
