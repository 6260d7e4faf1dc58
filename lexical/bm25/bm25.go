// Package bm25 implements an Okapi BM25 inverted index over chunk text.
package bm25

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/hupe1980/fusego/lexical"
	"github.com/hupe1980/fusego/model"
)

const (
	// DefaultK1 is the default term-frequency saturation parameter.
	DefaultK1 = 1.2

	// DefaultB is the default length-normalization parameter.
	DefaultB = 0.75

	// DefaultTopK is the default result count.
	DefaultTopK = 10
)

// Compile-time check.
var _ lexical.Index = (*Index)(nil)

// Options contains configuration options for the BM25 index.
type Options struct {
	// K1 controls term-frequency saturation.
	K1 float64

	// B controls document-length normalization.
	B float64

	// TopK is the default result count when retrieval passes topK <= 0.
	TopK int
}

// DefaultOptions contains the default configuration options.
var DefaultOptions = Options{
	K1:   DefaultK1,
	B:    DefaultB,
	TopK: DefaultTopK,
}

type posting struct {
	doc   int32 // dense document index into the state's doc tables
	count int32 // term frequency
}

// state is the immutable snapshot of a built index.
// BuildIndex swaps the whole state atomically so searches never observe a
// partially built index.
type state struct {
	docs        []lexical.Document
	docLengths  []int
	inverted    map[string][]posting
	totalLength int64
	avgDocLen   float64
}

// Index is an in-memory BM25 inverted index.
type Index struct {
	state atomic.Pointer[state]
	opts  Options
}

// New creates a new BM25 index.
func New(optFns ...func(o *Options)) *Index {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.K1 <= 0 {
		opts.K1 = DefaultK1
	}
	if opts.B < 0 || opts.B > 1 {
		opts.B = DefaultB
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	return &Index{opts: opts}
}

// tokenize lowercases and splits on any non letter/digit rune.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// BuildIndex tokenizes the documents and builds the inverted index,
// document lengths and corpus statistics. The prior index is replaced
// atomically once the new one is complete.
func (ix *Index) BuildIndex(ctx context.Context, docs []lexical.Document) error {
	st := &state{
		docs:       make([]lexical.Document, len(docs)),
		docLengths: make([]int, len(docs)),
		inverted:   make(map[string][]posting),
	}
	copy(st.docs, docs)

	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}

		tokens := tokenize(doc.Content)
		st.docLengths[i] = len(tokens)
		st.totalLength += int64(len(tokens))

		tf := make(map[string]int32, len(tokens))
		for _, t := range tokens {
			tf[t]++
		}
		for t, count := range tf {
			st.inverted[t] = append(st.inverted[t], posting{doc: int32(i), count: count})
		}
	}

	if len(docs) > 0 {
		st.avgDocLen = float64(st.totalLength) / float64(len(docs))
	}

	ix.state.Store(st)
	return nil
}

// Retrieve scores documents against the query with the Okapi BM25 formula
//
//	score(d,t) = idf(t) * (tf * (k1+1)) / (tf + k1 * (1 - b + b * |d|/avgDL))
//	idf(t)     = ln((N - df + 0.5) / (df + 0.5) + 1)
//
// and returns up to topK results, best first. Scores are normalized into
// [0, 1] by dividing by the maximum score of the result set.
func (ix *Index) Retrieve(ctx context.Context, query string, topK int) ([]model.ScoredResult, error) {
	st := ix.state.Load()
	if st == nil {
		return nil, lexical.ErrIndexNotBuilt
	}
	if strings.TrimSpace(query) == "" {
		return nil, lexical.ErrEmptyQuery
	}
	if topK <= 0 {
		topK = ix.opts.TopK
	}

	if len(st.docs) == 0 {
		return []model.ScoredResult{}, nil
	}

	n := float64(len(st.docs))
	scores := make(map[int32]float64)

	for _, t := range tokenize(query) {
		// Cancellation checked between posting-list merges.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		postings, ok := st.inverted[t]
		if !ok {
			continue
		}

		df := float64(len(postings))
		idf := math.Log((n-df+0.5)/(df+0.5) + 1)

		for _, p := range postings {
			tf := float64(p.count)
			docLen := float64(st.docLengths[p.doc])

			num := tf * (ix.opts.K1 + 1)
			denom := tf + ix.opts.K1*(1-ix.opts.B+ix.opts.B*docLen/st.avgDocLen)
			scores[p.doc] += idf * num / denom
		}
	}

	if len(scores) == 0 {
		return []model.ScoredResult{}, nil
	}

	// Collect in document order so equal scores keep insertion order
	// under the stable sort below.
	matched := make([]int32, 0, len(scores))
	var maxScore float64
	for doc := int32(0); doc < int32(len(st.docs)); doc++ {
		if s, ok := scores[doc]; ok {
			matched = append(matched, doc)
			if s > maxScore {
				maxScore = s
			}
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return scores[matched[i]] > scores[matched[j]]
	})
	if len(matched) > topK {
		matched = matched[:topK]
	}

	results := make([]model.ScoredResult, len(matched))
	for i, doc := range matched {
		score := scores[doc]
		if maxScore > 0 {
			score /= maxScore
		}
		d := st.docs[doc]
		results[i] = model.ScoredResult{
			ID:    d.ID,
			Chunk: model.Chunk{ID: d.ID, Content: d.Content},
			Score: score,
			Rank:  i + 1,
		}
	}
	return results, nil
}

// DocumentCount returns the number of indexed documents.
func (ix *Index) DocumentCount() int {
	st := ix.state.Load()
	if st == nil {
		return 0
	}
	return len(st.docs)
}

// VocabularySize returns the number of distinct terms in the index.
func (ix *Index) VocabularySize() int {
	st := ix.state.Load()
	if st == nil {
		return 0
	}
	return len(st.inverted)
}

// AverageDocumentLength returns the mean document length in tokens.
func (ix *Index) AverageDocumentLength() float64 {
	st := ix.state.Load()
	if st == nil {
		return 0
	}
	return st.avgDocLen
}
