// Package vectorstore provides the chunk-owning in-memory vector store.
//
// The store owns chunk records (content, metadata, embedding), enforces
// dimension consistency, applies metadata filters, and keeps memory usage
// within an optional budget by evicting the oldest chunks first. The
// nearest-neighbor computation itself is delegated to an index.Index
// strategy (exact brute force by default, HNSW for approximate search).
package vectorstore

import (
	"container/list"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/hupe1980/fusego/distance"
	"github.com/hupe1980/fusego/index"
	"github.com/hupe1980/fusego/index/flat"
	"github.com/hupe1980/fusego/index/hnsw"
	"github.com/hupe1980/fusego/metadata"
	"github.com/hupe1980/fusego/model"
	"github.com/hupe1980/fusego/resource"
)

// DefaultTopK is the default search result count.
const DefaultTopK = 10

// IndexType selects the nearest-neighbor strategy.
type IndexType string

const (
	// IndexTypeBruteForce is the exact O(n*d) scan. Default; recommended
	// under roughly 10K vectors.
	IndexTypeBruteForce IndexType = "brute_force"

	// IndexTypeHNSW is the approximate HNSW graph. Recall is tunable via
	// HNSWConfig and never guaranteed exact.
	IndexTypeHNSW IndexType = "hnsw"
)

// ErrCapacityExceeded indicates a single chunk that cannot fit the budget
// even after maximal eviction.
type ErrCapacityExceeded struct {
	ItemBytes   int64
	BudgetBytes int64
}

func (e *ErrCapacityExceeded) Error() string {
	return fmt.Sprintf("capacity exceeded: chunk of %d bytes cannot fit budget of %d bytes", e.ItemBytes, e.BudgetBytes)
}

// HNSWConfig carries the HNSW construction and search parameters.
type HNSWConfig struct {
	M              int
	EFConstruction int
	EFSearch       int
}

// Options contains configuration options for the vector store.
type Options struct {
	// Dimensions is the fixed embedding dimensionality. Required.
	Dimensions int

	// DistanceMetric is the similarity metric. Default cosine.
	DistanceMetric distance.Metric

	// UseFloat32 selects 4-byte float storage. It is the only supported
	// mode (vectors are float32 end to end) and exists for configuration
	// surface compatibility.
	UseFloat32 bool

	// MaxMemoryBytes bounds the estimated memory footprint. 0 = unbounded.
	MaxMemoryBytes int64

	// OnEviction is invoked after each mutation that evicted chunks, with
	// the evicted IDs and the freed byte count. Called while the store's
	// mutation lock is held; it must not call back into the store.
	OnEviction func(evictedIDs []string, freedBytes int64)

	// OnMemoryWarning is invoked when usage crosses the budget's warning
	// threshold.
	OnMemoryWarning func(usedBytes, maxBytes int64)

	// IndexType selects the search strategy. Default brute force.
	IndexType IndexType

	// HNSW configures the HNSW index when IndexType is IndexTypeHNSW.
	HNSW HNSWConfig

	// CompressContent stores chunk content zstd-compressed to stretch the
	// memory budget. Content is decompressed transparently on read.
	CompressContent bool
}

// DefaultOptions contains the default configuration options.
var DefaultOptions = Options{
	DistanceMetric: distance.MetricCosine,
	UseFloat32:     true,
	IndexType:      IndexTypeBruteForce,
}

// record is a stored chunk plus its bookkeeping.
type record struct {
	chunk      model.Chunk
	compressed []byte // non-nil when content is stored compressed
	rowID      uint32
	bytes      int64
	seq        uint64 // insertion sequence, used for stable tie-breaks
	elem       *list.Element
}

// VectorStore owns chunk records and delegates similarity search to an
// index strategy. Mutations are serialized; searches run concurrently
// against a consistent snapshot.
type VectorStore struct {
	mu      sync.RWMutex
	opts    Options
	idx     index.Index
	meta    *metadata.Index
	records map[string]*record
	rowToID map[uint32]string
	order   *list.List // insertion order; front = oldest
	budget  *resource.Budget
	seq     uint64

	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// New creates a new vector store.
func New(optFns ...func(o *Options)) (*VectorStore, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if err := index.ValidateDimension(opts.Dimensions); err != nil {
		return nil, err
	}
	if opts.IndexType == "" {
		opts.IndexType = IndexTypeBruteForce
	}

	var (
		idx index.Index
		err error
	)
	switch opts.IndexType {
	case IndexTypeBruteForce:
		idx, err = flat.New(func(o *flat.Options) {
			o.Dimension = opts.Dimensions
			o.Metric = opts.DistanceMetric
		})
	case IndexTypeHNSW:
		idx, err = hnsw.New(func(o *hnsw.Options) {
			o.Dimension = opts.Dimensions
			o.Metric = opts.DistanceMetric
			if opts.HNSW.M > 0 {
				o.M = opts.HNSW.M
			}
			if opts.HNSW.EFConstruction > 0 {
				o.EFConstruction = opts.HNSW.EFConstruction
			}
			if opts.HNSW.EFSearch > 0 {
				o.EFSearch = opts.HNSW.EFSearch
			}
		})
	default:
		return nil, fmt.Errorf("unsupported index type: %q", opts.IndexType)
	}
	if err != nil {
		return nil, err
	}

	s := &VectorStore{
		opts:    opts,
		idx:     idx,
		meta:    metadata.NewIndex(),
		records: make(map[string]*record),
		rowToID: make(map[uint32]string),
		order:   list.New(),
		budget: resource.NewBudget(opts.MaxMemoryBytes, func(o *resource.Options) {
			o.OnWarning = opts.OnMemoryWarning
		}),
	}

	if opts.CompressContent {
		s.encoder, err = zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("vectorstore: create compressor: %w", err)
		}
		s.decoder, err = zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("vectorstore: create decompressor: %w", err)
		}
	}

	return s, nil
}

// Insert adds chunks to the store and returns their IDs.
//
// The batch is atomic: if any embedding has the wrong dimension, or any
// single chunk exceeds the whole memory budget, nothing is committed.
// Cancellation is observed before the commit starts; after that the batch
// runs to completion, so a context cancelled mid-batch never leaves a
// partial prefix. Under memory pressure the oldest chunks are evicted one
// at a time until the batch fits; evictions are reported via OnEviction.
// Inserting an existing ID replaces it in place.
func (s *VectorStore) Insert(ctx context.Context, chunks []model.ChunkWithEmbedding) ([]string, error) {
	return s.put(ctx, chunks)
}

// Upsert is Insert with explicit replace semantics: existing IDs are
// replaced in place (no growth in chunk count, insertion position kept).
// Replacement by an equal-or-smaller chunk never evicts; only positive
// size deltas are budget-checked.
func (s *VectorStore) Upsert(ctx context.Context, chunks []model.ChunkWithEmbedding) ([]string, error) {
	return s.put(ctx, chunks)
}

func (s *VectorStore) put(ctx context.Context, chunks []model.ChunkWithEmbedding) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Validate the whole batch before committing anything.
	for i := range chunks {
		if got := len(chunks[i].Embedding); got != s.opts.Dimensions {
			return nil, &index.ErrDimensionMismatch{Expected: s.opts.Dimensions, Actual: got}
		}
	}

	type staged struct {
		chunk      model.Chunk
		embedding  []float32
		compressed []byte
		bytes      int64
	}
	allStaged := make([]staged, len(chunks))
	for i := range chunks {
		st := staged{chunk: chunks[i].Chunk, embedding: chunks[i].Embedding}
		if s.encoder != nil {
			st.compressed = s.encoder.EncodeAll([]byte(chunks[i].Content), nil)
			st.chunk.Content = ""
		}
		st.bytes = s.estimateBytes(&st.chunk, len(st.compressed), len(st.embedding))
		if max := s.budget.Max(); max > 0 && st.bytes > max {
			return nil, &ErrCapacityExceeded{ItemBytes: st.bytes, BudgetBytes: max}
		}
		allStaged[i] = st
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// The commit is all-or-nothing: cancellation was checked above, and
	// detaching the context here keeps a mid-batch cancel from committing
	// only a prefix of the chunks.
	ctx = context.WithoutCancel(ctx)

	var (
		evictedIDs []string
		freedBytes int64
		ids        = make([]string, len(chunks))
	)

	for i := range allStaged {
		st := &allStaged[i]
		id := st.chunk.ID

		if old, exists := s.records[id]; exists {
			if err := s.replaceLocked(ctx, old, st.chunk, st.compressed, st.embedding, st.bytes, &evictedIDs, &freedBytes); err != nil {
				s.reportEvictions(evictedIDs, freedBytes)
				return nil, err
			}
			ids[i] = id
			continue
		}

		if err := s.makeRoomLocked("", st.bytes, &evictedIDs, &freedBytes); err != nil {
			s.reportEvictions(evictedIDs, freedBytes)
			return nil, err
		}

		rowID, err := s.idx.Insert(ctx, st.embedding)
		if err != nil {
			s.budget.Release(st.bytes)
			s.reportEvictions(evictedIDs, freedBytes)
			return nil, err
		}

		s.seq++
		rec := &record{
			chunk:      st.chunk,
			compressed: st.compressed,
			rowID:      rowID,
			bytes:      st.bytes,
			seq:        s.seq,
		}
		rec.elem = s.order.PushBack(id)
		s.records[id] = rec
		s.rowToID[rowID] = id
		if len(st.chunk.Metadata) > 0 {
			s.meta.Set(rowID, st.chunk.Metadata)
		}
		ids[i] = id
	}

	s.reportEvictions(evictedIDs, freedBytes)
	return ids, nil
}

// replaceLocked swaps an existing record's content and vector in place.
// The record keeps its position in the insertion order.
func (s *VectorStore) replaceLocked(ctx context.Context, old *record, chunk model.Chunk, compressed []byte, embedding []float32, newBytes int64, evictedIDs *[]string, freedBytes *int64) error {
	delta := newBytes - old.bytes
	if delta > 0 {
		if err := s.makeRoomLocked(old.chunk.ID, delta, evictedIDs, freedBytes); err != nil {
			return err
		}
	} else if delta < 0 {
		s.budget.Release(-delta)
	}

	rowID, err := s.idx.Insert(ctx, embedding)
	if err != nil {
		if delta > 0 {
			s.budget.Release(delta)
		}
		return err
	}
	_ = s.idx.Delete(ctx, old.rowID)
	s.meta.Delete(old.rowID)
	delete(s.rowToID, old.rowID)

	old.chunk = chunk
	old.compressed = compressed
	old.rowID = rowID
	old.bytes = newBytes
	s.rowToID[rowID] = old.chunk.ID
	if len(chunk.Metadata) > 0 {
		s.meta.Set(rowID, chunk.Metadata)
	}
	return nil
}

// makeRoomLocked acquires n bytes from the budget, evicting the oldest
// chunks one at a time until there is room. skipID (the record being
// replaced, if any) is never evicted.
func (s *VectorStore) makeRoomLocked(skipID string, n int64, evictedIDs *[]string, freedBytes *int64) error {
	if s.budget.Unbounded() {
		s.budget.TryAcquire(n)
		return nil
	}

	for !s.budget.TryAcquire(n) {
		elem := s.order.Front()
		for elem != nil && elem.Value.(string) == skipID {
			elem = elem.Next()
		}
		if elem == nil {
			return &ErrCapacityExceeded{ItemBytes: n, BudgetBytes: s.budget.Max()}
		}

		id := elem.Value.(string)
		rec := s.records[id]
		s.evictLocked(id, rec)
		*evictedIDs = append(*evictedIDs, id)
		*freedBytes += rec.bytes
	}
	return nil
}

// evictLocked removes a record entirely. Eviction is irreversible.
func (s *VectorStore) evictLocked(id string, rec *record) {
	_ = s.idx.Delete(context.Background(), rec.rowID)
	s.meta.Delete(rec.rowID)
	delete(s.rowToID, rec.rowID)
	delete(s.records, id)
	s.order.Remove(rec.elem)
	s.budget.Release(rec.bytes)
}

func (s *VectorStore) reportEvictions(ids []string, freedBytes int64) {
	if len(ids) > 0 && s.opts.OnEviction != nil {
		s.opts.OnEviction(ids, freedBytes)
	}
}

// Delete removes chunks by ID. Unknown IDs are silently ignored.
func (s *VectorStore) Delete(ctx context.Context, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		rec, ok := s.records[id]
		if !ok {
			continue
		}
		_ = s.idx.Delete(ctx, rec.rowID)
		s.meta.Delete(rec.rowID)
		delete(s.rowToID, rec.rowID)
		delete(s.records, id)
		s.order.Remove(rec.elem)
		s.budget.Release(rec.bytes)
	}
	return nil
}

// SearchOptions contains per-search options.
type SearchOptions struct {
	// TopK is the maximum number of results. Default DefaultTopK.
	TopK int

	// MinScore drops results scoring below it, applied after topK
	// truncation. Nil disables the cutoff.
	MinScore *float64

	// Filter is the metadata filter DSL: field -> literal (exact match)
	// or {"$gte"/"$lte"/"$gt"/"$lt": number}. Filtering never alters the
	// scores of surviving results.
	Filter map[string]any

	// EFSearch overrides the HNSW candidate list size for this query.
	EFSearch int
}

// Search returns the chunks most similar to the query vector, sorted by
// score descending (ties keep insertion order).
func (s *VectorStore) Search(ctx context.Context, query []float32, optFns ...func(o *SearchOptions)) ([]model.ScoredResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := SearchOptions{TopK: DefaultTopK}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}

	if len(query) != s.opts.Dimensions {
		return nil, &index.ErrDimensionMismatch{Expected: s.opts.Dimensions, Actual: len(query)}
	}

	fs, err := metadata.ParseFilterSet(opts.Filter)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	searchOpts := &index.SearchOptions{
		EFSearch: opts.EFSearch,
		Filter:   s.meta.CompileFilter(fs),
	}

	matches, err := s.idx.KNNSearch(ctx, query, opts.TopK, searchOpts)
	if err != nil {
		return nil, err
	}

	results := make([]model.ScoredResult, 0, len(matches))
	for _, m := range matches {
		id, ok := s.rowToID[m.ID]
		if !ok {
			continue
		}
		rec := s.records[id]
		chunk, err := s.hydrateChunk(rec)
		if err != nil {
			return nil, err
		}
		results = append(results, model.ScoredResult{
			ID:    id,
			Chunk: chunk,
			Score: distance.ScoreFromDistance(s.opts.DistanceMetric, m.Distance),
		})
	}

	// The index orders by distance; re-sort so score ties resolve by
	// insertion order.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return s.records[results[i].ID].seq < s.records[results[j].ID].seq
	})

	if len(results) > opts.TopK {
		results = results[:opts.TopK]
	}
	if opts.MinScore != nil {
		kept := results[:0]
		for _, r := range results {
			if r.Score >= *opts.MinScore {
				kept = append(kept, r)
			}
		}
		results = kept
	}

	for i := range results {
		results[i].Rank = i + 1
	}
	return results, nil
}

// Get returns a stored chunk by ID.
func (s *VectorStore) Get(id string) (model.Chunk, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return model.Chunk{}, false
	}
	chunk, err := s.hydrateChunk(rec)
	if err != nil {
		return model.Chunk{}, false
	}
	return chunk, true
}

// Chunks returns all stored chunks in insertion order.
func (s *VectorStore) Chunks() []model.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Chunk, 0, len(s.records))
	for elem := s.order.Front(); elem != nil; elem = elem.Next() {
		rec := s.records[elem.Value.(string)]
		chunk, err := s.hydrateChunk(rec)
		if err != nil {
			continue
		}
		out = append(out, chunk)
	}
	return out
}

// Count returns the number of stored chunks.
func (s *VectorStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Clear removes all chunks.
func (s *VectorStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, rec := range s.records {
		_ = s.idx.Delete(ctx, rec.rowID)
		s.budget.Release(rec.bytes)
		delete(s.records, id)
	}
	s.rowToID = make(map[uint32]string)
	s.order.Init()
	s.meta.Clear()
	return nil
}

// GetMemoryStats reports the store's memory accounting state.
func (s *VectorStore) GetMemoryStats() model.MemoryStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := model.MemoryStats{
		ChunkCount:  len(s.records),
		UsedBytes:   s.budget.Used(),
		MaxBytes:    s.budget.Max(),
		PercentUsed: s.budget.PercentUsed(),
	}
	if stats.ChunkCount > 0 {
		stats.BytesPerChunk = stats.UsedBytes / int64(stats.ChunkCount)
	}
	return stats
}

// IndexStats returns statistics of the underlying index.
func (s *VectorStore) IndexStats() index.Stats {
	return s.idx.Stats()
}

// Dimensions returns the configured embedding dimensionality.
func (s *VectorStore) Dimensions() int {
	return s.opts.Dimensions
}

// hydrateChunk reconstructs the public chunk from a record, decompressing
// content if needed.
func (s *VectorStore) hydrateChunk(rec *record) (model.Chunk, error) {
	chunk := rec.chunk
	if rec.compressed != nil {
		content, err := s.decoder.DecodeAll(rec.compressed, nil)
		if err != nil {
			return model.Chunk{}, fmt.Errorf("vectorstore: decompress content: %w", err)
		}
		chunk.Content = string(content)
	}
	return chunk, nil
}

// recordOverhead is the rough fixed per-chunk bookkeeping cost.
const recordOverhead = 128

// estimateBytes estimates the memory footprint of one stored chunk:
// content (or its compressed form), identifiers, a metadata estimate and
// the 4-byte-per-component embedding.
func (s *VectorStore) estimateBytes(chunk *model.Chunk, compressedLen, embeddingLen int) int64 {
	size := int64(recordOverhead)
	size += int64(len(chunk.ID)) + int64(len(chunk.DocumentID))
	if compressedLen > 0 || s.encoder != nil {
		size += int64(compressedLen)
	} else {
		size += int64(len(chunk.Content))
	}
	size += int64(embeddingLen) * 4
	for k, v := range chunk.Metadata {
		size += int64(len(k)) + metadataValueBytes(v)
	}
	return size
}

func metadataValueBytes(v any) int64 {
	switch x := v.(type) {
	case string:
		return int64(len(x))
	case []any:
		var n int64
		for _, item := range x {
			n += metadataValueBytes(item)
		}
		return n
	default:
		return 8
	}
}
