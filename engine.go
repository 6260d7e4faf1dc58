package fusego

import (
	"context"
	"time"

	"github.com/hupe1980/fusego/distance"
	"github.com/hupe1980/fusego/embedding"
	"github.com/hupe1980/fusego/lexical/bm25"
	"github.com/hupe1980/fusego/model"
	"github.com/hupe1980/fusego/retriever"
	"github.com/hupe1980/fusego/vectorstore"
)

// Options contains configuration options for the engine.
type Options struct {
	// Dimensions is the embedding dimensionality. Required.
	Dimensions int

	// DistanceMetric is the vector similarity metric. Default cosine.
	DistanceMetric distance.Metric

	// IndexType selects the dense search strategy. Default brute force.
	IndexType vectorstore.IndexType

	// HNSW configures the HNSW index when IndexType is hnsw.
	HNSW vectorstore.HNSWConfig

	// MaxMemoryBytes bounds the store's estimated footprint. 0 = unbounded.
	MaxMemoryBytes int64

	// CompressContent stores chunk content zstd-compressed.
	CompressContent bool

	// OnEviction is invoked with the IDs and byte count of each eviction
	// batch, in addition to the engine's own logging and metrics.
	OnEviction func(evictedIDs []string, freedBytes int64)

	// Alpha balances dense vs sparse retrieval, in [0, 1]. Default 0.5.
	Alpha float64

	// FusionMethod selects the rank combination strategy. Default RRF.
	FusionMethod retriever.FusionMethod

	// RRFK is the RRF smoothing constant.
	RRFK int

	// CandidateMultiplier scales the per-leg candidate pool.
	CandidateMultiplier int

	// K1 and B are the BM25 parameters of the sparse leg.
	K1 float64
	B  float64

	// Filter is an optional metadata filter applied to every dense search.
	Filter map[string]any

	// Logger for structured logging. Default: info-level text to stderr.
	Logger *Logger

	// Metrics collector. Default: no-op.
	Metrics MetricsCollector
}

// DefaultOptions contains the default configuration options.
var DefaultOptions = Options{
	DistanceMetric:      distance.MetricCosine,
	IndexType:           vectorstore.IndexTypeBruteForce,
	Alpha:               retriever.DefaultAlpha,
	FusionMethod:        retriever.FusionRRF,
	CandidateMultiplier: retriever.DefaultCandidateMultiplier,
	K1:                  bm25.DefaultK1,
	B:                   bm25.DefaultB,
}

// Engine is the hybrid retrieval facade. It owns a vector store for the
// dense leg, a BM25 index for the sparse leg and fuses the two rankings on
// retrieval.
type Engine struct {
	store    *vectorstore.VectorStore
	sparse   *retriever.Sparse
	hybrid   *retriever.Hybrid
	embedder embedding.Embedder
	logger   *Logger
	metrics  MetricsCollector
}

// New creates a new engine with the given embedder.
func New(embedder embedding.Embedder, optFns ...func(o *Options)) (*Engine, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = NewLogger(nil)
	}
	if opts.Metrics == nil {
		opts.Metrics = NoopMetricsCollector{}
	}

	e := &Engine{
		embedder: embedder,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}

	store, err := vectorstore.New(func(o *vectorstore.Options) {
		o.Dimensions = opts.Dimensions
		o.DistanceMetric = opts.DistanceMetric
		o.IndexType = opts.IndexType
		o.HNSW = opts.HNSW
		o.MaxMemoryBytes = opts.MaxMemoryBytes
		o.CompressContent = opts.CompressContent
		o.OnEviction = func(evictedIDs []string, freedBytes int64) {
			e.logger.LogEviction(context.Background(), len(evictedIDs), freedBytes)
			e.metrics.RecordEviction(len(evictedIDs), freedBytes)
			if opts.OnEviction != nil {
				opts.OnEviction(evictedIDs, freedBytes)
			}
		}
		o.OnMemoryWarning = func(usedBytes, maxBytes int64) {
			e.logger.LogMemoryWarning(context.Background(), usedBytes, maxBytes)
		}
	})
	if err != nil {
		return nil, translateError(err)
	}
	e.store = store

	dense := retriever.NewDense(store, embedder, func(o *retriever.DenseOptions) {
		o.Filter = opts.Filter
	})
	e.sparse = retriever.NewSparse(bm25.New(func(o *bm25.Options) {
		o.K1 = opts.K1
		o.B = opts.B
	}))

	hybrid, err := retriever.NewHybrid(dense, e.sparse, func(o *retriever.HybridOptions) {
		o.Alpha = opts.Alpha
		o.FusionMethod = opts.FusionMethod
		if opts.RRFK > 0 {
			o.RRFK = opts.RRFK
		}
		o.CandidateMultiplier = opts.CandidateMultiplier
	})
	if err != nil {
		return nil, translateError(err)
	}
	e.hybrid = hybrid

	return e, nil
}

// Add embeds the chunks' content and inserts them into the store. The
// sparse index is not rebuilt automatically; call BuildIndex when ingestion
// settles.
func (e *Engine) Add(ctx context.Context, chunks []model.Chunk) ([]string, error) {
	start := time.Now()

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}

	vectors, err := e.embedder.EmbedBatch(ctx, texts)
	if err == nil && len(vectors) != len(texts) {
		err = &ErrEmbedderMismatch{Texts: len(texts), Vectors: len(vectors)}
	}
	if err == nil {
		withEmbeddings := make([]model.ChunkWithEmbedding, len(chunks))
		for i := range chunks {
			withEmbeddings[i] = model.ChunkWithEmbedding{Chunk: chunks[i], Embedding: vectors[i]}
		}
		return e.AddWithEmbeddings(ctx, withEmbeddings)
	}

	e.logger.LogInsert(ctx, len(chunks), err)
	e.metrics.RecordInsert(len(chunks), time.Since(start), err)
	return nil, translateError(err)
}

// AddWithEmbeddings inserts pre-embedded chunks into the store.
func (e *Engine) AddWithEmbeddings(ctx context.Context, chunks []model.ChunkWithEmbedding) ([]string, error) {
	start := time.Now()

	ids, err := e.store.Insert(ctx, chunks)

	e.logger.LogInsert(ctx, len(chunks), err)
	e.metrics.RecordInsert(len(chunks), time.Since(start), err)
	return ids, translateError(err)
}

// BuildIndex (re)builds the sparse index over the stored chunks. Retrieval
// with a sparse leg requires it; dense-only retrieval (alpha = 1) does not.
func (e *Engine) BuildIndex(ctx context.Context) error {
	start := time.Now()

	err := e.hybrid.BuildIndex(ctx)

	e.logger.LogBuildIndex(ctx, e.store.Count(), err)
	e.metrics.RecordBuildIndex(e.store.Count(), time.Since(start), err)
	return translateError(err)
}

// RetrieveOptions contains per-retrieval options.
type RetrieveOptions struct {
	// TopK is the maximum number of results. Default 10.
	TopK int

	// Alpha overrides the configured dense/sparse balance for this call.
	// Must be in [0, 1].
	Alpha *float64

	// Filter overrides the configured metadata filter on the dense leg.
	Filter map[string]any
}

// Retrieve runs a hybrid retrieval for the query text.
func (e *Engine) Retrieve(ctx context.Context, query string, optFns ...func(o *RetrieveOptions)) ([]model.ScoredResult, error) {
	opts := RetrieveOptions{TopK: retriever.DefaultTopK}
	for _, fn := range optFns {
		fn(&opts)
	}

	start := time.Now()

	results, err := e.hybrid.Retrieve(ctx, query, opts.TopK, func(o *retriever.RetrieveOptions) {
		o.Alpha = opts.Alpha
		o.Filter = opts.Filter
	})

	e.logger.LogRetrieve(ctx, opts.TopK, len(results), err)
	e.metrics.RecordRetrieve(opts.TopK, time.Since(start), err)
	return results, translateError(err)
}

// Search runs a dense-only similarity search with a raw query vector.
func (e *Engine) Search(ctx context.Context, query []float32, optFns ...func(o *vectorstore.SearchOptions)) ([]model.ScoredResult, error) {
	results, err := e.store.Search(ctx, query, optFns...)
	return results, translateError(err)
}

// Delete removes chunks by ID. Unknown IDs are silently ignored. The sparse
// index keeps serving the old corpus until the next BuildIndex.
func (e *Engine) Delete(ctx context.Context, ids []string) error {
	start := time.Now()

	err := e.store.Delete(ctx, ids)

	e.logger.LogDelete(ctx, len(ids), err)
	e.metrics.RecordDelete(len(ids), time.Since(start), err)
	return translateError(err)
}

// Get returns a stored chunk by ID.
func (e *Engine) Get(id string) (model.Chunk, bool) {
	return e.store.Get(id)
}

// Count returns the number of stored chunks.
func (e *Engine) Count() int {
	return e.store.Count()
}

// MemoryStats reports the store's memory accounting state.
func (e *Engine) MemoryStats() model.MemoryStats {
	return e.store.GetMemoryStats()
}

// Store exposes the underlying vector store for direct access.
func (e *Engine) Store() *vectorstore.VectorStore {
	return e.store
}

// Retriever exposes the underlying hybrid retriever.
func (e *Engine) Retriever() *retriever.Hybrid {
	return e.hybrid
}

// Clear removes all chunks and resets the sparse index.
func (e *Engine) Clear(ctx context.Context) error {
	if err := e.store.Clear(ctx); err != nil {
		return translateError(err)
	}
	return translateError(e.sparse.BuildIndex(ctx, nil))
}
