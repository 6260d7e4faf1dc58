package model

import (
	"github.com/hupe1980/fusego/metadata"
)

// Chunk is a unit of retrievable text with optional metadata.
// Chunks are immutable once created; identity is the ID.
type Chunk struct {
	// ID is the unique identifier of the chunk.
	ID string

	// Content is the raw text of the chunk.
	Content string

	// Metadata holds scalar/array attributes used for filtering.
	Metadata metadata.Metadata

	// DocumentID optionally links the chunk back to its source document.
	DocumentID string
}

// ChunkWithEmbedding is a chunk paired with its embedding vector.
// The embedding dimension must match the owning store's configuration.
type ChunkWithEmbedding struct {
	Chunk

	// Embedding is the dense vector representation of Content.
	Embedding []float32
}

// ScoreBreakdown carries the per-source scores of a hybrid result.
type ScoreBreakdown struct {
	// Dense is the raw dense (vector) similarity score, 0 if the result
	// did not appear in the dense ranking.
	Dense float64

	// Sparse is the raw sparse (lexical) score, 0 if absent.
	Sparse float64

	// Fused is the combined score the result was ranked by.
	Fused float64
}

// ScoredResult is a chunk annotated with a relevance score.
// Results are always sorted by Score descending; ties keep insertion order.
type ScoredResult struct {
	// ID is the chunk identifier.
	ID string

	// Chunk is the full chunk record.
	Chunk Chunk

	// Score is the relevance score. Always finite.
	Score float64

	// Rank is the 1-based position in the result list.
	Rank int

	// Scores carries per-source provenance for hybrid results.
	Scores ScoreBreakdown

	// DenseRank is the 1-based rank in the dense ranking, 0 if absent.
	DenseRank int

	// SparseRank is the 1-based rank in the sparse ranking, 0 if absent.
	SparseRank int
}

// RankedItem is a single entry of a RankingList.
type RankedItem struct {
	// ID is the chunk identifier.
	ID string

	// Rank is the 1-based position within the list.
	Rank int

	// Score is the raw score assigned by the producing retriever.
	Score float64

	// Chunk is the chunk record, carried through fusion.
	Chunk Chunk
}

// RankingList is an ordered ranking produced by a single retriever.
// Two ranking lists may reference disjoint ID sets.
type RankingList struct {
	// Name identifies the producing source (e.g. "dense", "sparse").
	Name string

	// Items are ordered best-first; Rank fields are 1-based.
	Items []RankedItem
}

// Contribution records how one ranking list contributed to a fused result.
type Contribution struct {
	// Name is the contributing list's name.
	Name string

	// Rank is the 1-based rank the ID held in that list.
	Rank int

	// Score is the raw score the ID held in that list.
	Score float64
}

// FusionResult is one fused entry, produced for every ID that appeared in
// at least one input ranking.
type FusionResult struct {
	// ID is the chunk identifier.
	ID string

	// Chunk is the chunk record from the first list the ID was seen in.
	Chunk Chunk

	// FusedScore is the combined score.
	FusedScore float64

	// Contributions preserves per-source provenance for debugging.
	Contributions []Contribution
}

// MemoryStats describes the memory accounting state of a vector store.
type MemoryStats struct {
	// ChunkCount is the number of chunks currently stored.
	ChunkCount int

	// UsedBytes is the estimated number of bytes in use.
	UsedBytes int64

	// MaxBytes is the configured budget, 0 if unbounded.
	MaxBytes int64

	// BytesPerChunk is the estimated average chunk footprint.
	BytesPerChunk int64

	// PercentUsed is UsedBytes/MaxBytes*100, 0 if unbounded.
	PercentUsed float64
}
