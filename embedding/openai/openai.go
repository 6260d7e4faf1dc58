// Package openai provides an embedding.Embedder backed by the OpenAI
// embeddings API.
package openai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/hupe1980/fusego/distance"
	"github.com/hupe1980/fusego/embedding"
)

// Options contains configuration options for the OpenAI embedder.
type Options struct {
	// Model is the embedding model name.
	Model string

	// BaseURL overrides the API endpoint, e.g. for Azure or a proxy.
	BaseURL string

	// Normalize applies L2 normalization to the returned vectors. Useful
	// when the store is configured for cosine similarity.
	Normalize bool

	// RequestsPerSecond throttles API calls. 0 disables throttling.
	RequestsPerSecond float64

	// BatchSize caps the number of inputs sent per API request.
	BatchSize int
}

// DefaultOptions contains the default configuration options.
var DefaultOptions = Options{
	Model:     string(openai.SmallEmbedding3),
	Normalize: true,
	BatchSize: 512,
}

// Embedder calls the OpenAI embeddings API.
type Embedder struct {
	client  *openai.Client
	limiter *rate.Limiter
	opts    Options
}

var _ embedding.Embedder = (*Embedder)(nil)

// New creates a new OpenAI embedder with the given API key.
func New(apiKey string, optFns ...func(o *Options)) *Embedder {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	cfg := openai.DefaultConfig(apiKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	e := &Embedder{
		client: openai.NewClientWithConfig(cfg),
		opts:   opts,
	}
	if opts.RequestsPerSecond > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return e
}

// Embed implements embedding.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch implements embedding.Embedder.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))

	batchSize := e.opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultOptions.BatchSize
	}

	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))

		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(e.opts.Model),
			Input: texts[start:end],
		})
		if err != nil {
			return nil, fmt.Errorf("openai embeddings: %w", err)
		}
		if len(resp.Data) != end-start {
			return nil, fmt.Errorf("openai embeddings: got %d vectors for %d inputs", len(resp.Data), end-start)
		}

		for _, d := range resp.Data {
			v := d.Embedding
			if e.opts.Normalize {
				distance.NormalizeL2InPlace(v)
			}
			out = append(out, v)
		}
	}

	return out, nil
}
