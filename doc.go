// Package fusego provides an embedded hybrid retrieval engine for Go.
//
// Fusego combines dense vector search with sparse lexical (BM25) search and
// fuses the two rankings into a single relevance-ordered result list:
//
//   - In-memory vector store with exact (brute force) and approximate
//     (HNSW) nearest-neighbor indexes
//   - Okapi BM25 sparse index with atomic rebuilds
//   - Reciprocal Rank Fusion and weighted-sum score combination
//   - Metadata filtering with a Roaring Bitmap-based inverted index
//   - Memory budgeting with oldest-first eviction and callbacks
//   - Pluggable embedding providers (OpenAI adapter included)
//
// # Quick Start
//
// Create an engine with an embedder and ingest chunks:
//
//	ctx := context.Background()
//
//	embedder := openai.New(os.Getenv("OPENAI_API_KEY"))
//
//	engine, err := fusego.New(embedder, func(o *fusego.Options) {
//	    o.Dimensions = 1536
//	    o.Alpha = 0.5 // balance dense and sparse evenly
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	_, err = engine.Add(ctx, []model.Chunk{
//	    {ID: "a", Content: "PostgreSQL is a relational database."},
//	    {ID: "b", Content: "Redis is an in-memory key-value store."},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := engine.BuildIndex(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	results, err := engine.Retrieve(ctx, "relational database", func(o *fusego.RetrieveOptions) {
//	    o.TopK = 5
//	})
//
// Alpha steers the blend: 1 is pure dense (the sparse index is never
// touched), 0 is pure sparse (the embedder is never called).
//
// The lower-level building blocks (vectorstore, lexical/bm25, fusion,
// retriever) are exported packages and can be composed directly when the
// facade is too coarse.
package fusego
