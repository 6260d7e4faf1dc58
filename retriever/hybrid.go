package retriever

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/fusego/fusion"
	"github.com/hupe1980/fusego/lexical"
	"github.com/hupe1980/fusego/model"
)

// FusionMethod selects how dense and sparse rankings are combined.
type FusionMethod string

const (
	// FusionRRF combines by reciprocal rank, robust to incompatible score
	// scales. Default.
	FusionRRF FusionMethod = "rrf"

	// FusionWeightedSum combines min-max normalized scores directly.
	FusionWeightedSum FusionMethod = "weighted_sum"
)

const (
	// DefaultAlpha is the default dense/sparse balance.
	DefaultAlpha = 0.5

	// DefaultCandidateMultiplier widens each leg's candidate pool relative
	// to the requested topK so fusion has overlap to work with.
	DefaultCandidateMultiplier = 4
)

// Names of the two ranking lists fed into fusion.
const (
	denseListName  = "dense"
	sparseListName = "sparse"
)

// HybridOptions contains configuration options for the hybrid retriever.
type HybridOptions struct {
	// Alpha balances dense vs sparse contributions, in [0, 1].
	// 1 = pure dense, 0 = pure sparse.
	Alpha float64

	// FusionMethod selects the rank combination strategy.
	FusionMethod FusionMethod

	// RRFK is the RRF smoothing constant. Only used with FusionRRF.
	RRFK int

	// CandidateMultiplier scales the per-leg candidate pool.
	CandidateMultiplier int
}

// DefaultHybridOptions contains the default configuration options.
var DefaultHybridOptions = HybridOptions{
	Alpha:               DefaultAlpha,
	FusionMethod:        FusionRRF,
	RRFK:                fusion.DefaultRRFK,
	CandidateMultiplier: DefaultCandidateMultiplier,
}

// Hybrid retrieves from the dense and sparse paths in parallel and fuses
// the two rankings into a single result list.
type Hybrid struct {
	dense  *Dense
	sparse *Sparse
	opts   HybridOptions
}

var _ Retriever = (*Hybrid)(nil)

// NewHybrid creates a hybrid retriever combining a dense and a sparse leg.
func NewHybrid(dense *Dense, sparse *Sparse, optFns ...func(o *HybridOptions)) (*Hybrid, error) {
	opts := DefaultHybridOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Alpha < 0 || opts.Alpha > 1 {
		return nil, &ErrInvalidParameter{Param: "alpha", Reason: fmt.Sprintf("must be in [0, 1], got %g", opts.Alpha)}
	}
	switch opts.FusionMethod {
	case FusionRRF, FusionWeightedSum:
	default:
		return nil, &ErrInvalidParameter{Param: "fusionMethod", Reason: fmt.Sprintf("unknown method %q", opts.FusionMethod)}
	}
	if opts.RRFK <= 0 {
		opts.RRFK = fusion.DefaultRRFK
	}
	if opts.CandidateMultiplier <= 0 {
		opts.CandidateMultiplier = DefaultCandidateMultiplier
	}

	return &Hybrid{dense: dense, sparse: sparse, opts: opts}, nil
}

// BuildIndex (re)builds the sparse index over the chunks currently held by
// the vector store. Call it after ingestion and after mutations that should
// become visible to the sparse leg.
func (h *Hybrid) BuildIndex(ctx context.Context) error {
	chunks := h.dense.Store().Chunks()
	docs := make([]lexical.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = lexical.Document{ID: c.ID, Content: c.Content}
	}
	return h.sparse.BuildIndex(ctx, docs)
}

// Retrieve implements Retriever.
//
// A per-call Alpha overrides the configured balance for this call; values
// outside [0, 1] fail with ErrInvalidParameter. A per-call Filter is
// applied to the dense leg only.
//
// Alpha extremes short-circuit: 1 never touches the sparse index, 0 never
// calls the embedder. Otherwise both legs run in parallel and their
// rankings are fused; per-leg scores and ranks are preserved on each
// result for provenance.
func (h *Hybrid) Retrieve(ctx context.Context, query string, topK int, optFns ...func(o *RetrieveOptions)) ([]model.ScoredResult, error) {
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

	alpha := h.opts.Alpha
	if callOpts.Alpha != nil {
		alpha = *callOpts.Alpha
		if alpha < 0 || alpha > 1 {
			return nil, &ErrInvalidParameter{Param: "alpha", Reason: fmt.Sprintf("must be in [0, 1], got %g", alpha)}
		}
	}
	denseOpts := func(o *RetrieveOptions) {
		o.Filter = callOpts.Filter
	}

	switch alpha {
	case 1:
		results, err := h.dense.Retrieve(ctx, query, topK, denseOpts)
		if err != nil {
			return nil, err
		}
		return annotateSingleLeg(results, true), nil
	case 0:
		results, err := h.sparse.Retrieve(ctx, query, topK)
		if err != nil {
			return nil, err
		}
		return annotateSingleLeg(results, false), nil
	}

	candidateK := topK * h.opts.CandidateMultiplier

	var denseResults, sparseResults []model.ScoredResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		denseResults, err = h.dense.Retrieve(gctx, query, candidateK, denseOpts)
		return err
	})
	g.Go(func() error {
		var err error
		sparseResults, err = h.sparse.Retrieve(gctx, query, candidateK)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	lists := []model.RankingList{
		toRankingList(denseListName, denseResults),
		toRankingList(sparseListName, sparseResults),
	}

	var fused []model.FusionResult
	switch h.opts.FusionMethod {
	case FusionWeightedSum:
		fused = fusion.WeightedSum(lists[0], lists[1], alpha, 1-alpha)
	default:
		fused = fusion.WeightedReciprocalRankFusion(lists, []float64{alpha, 1 - alpha}, h.opts.RRFK)
	}

	if len(fused) > topK {
		fused = fused[:topK]
	}

	results := make([]model.ScoredResult, len(fused))
	for i, f := range fused {
		r := model.ScoredResult{
			ID:    f.ID,
			Chunk: f.Chunk,
			Score: f.FusedScore,
			Rank:  i + 1,
		}
		r.Scores.Fused = f.FusedScore
		for _, c := range f.Contributions {
			switch c.Name {
			case denseListName:
				r.Scores.Dense = c.Score
				r.DenseRank = c.Rank
			case sparseListName:
				r.Scores.Sparse = c.Score
				r.SparseRank = c.Rank
			}
		}
		results[i] = r
	}
	return results, nil
}

// annotateSingleLeg fills provenance fields when only one leg produced the
// results.
func annotateSingleLeg(results []model.ScoredResult, dense bool) []model.ScoredResult {
	for i := range results {
		results[i].Scores.Fused = results[i].Score
		if dense {
			results[i].Scores.Dense = results[i].Score
			results[i].DenseRank = results[i].Rank
		} else {
			results[i].Scores.Sparse = results[i].Score
			results[i].SparseRank = results[i].Rank
		}
	}
	return results
}

func toRankingList(name string, results []model.ScoredResult) model.RankingList {
	items := make([]model.RankedItem, len(results))
	for i, r := range results {
		items[i] = model.RankedItem{ID: r.ID, Rank: i + 1, Score: r.Score, Chunk: r.Chunk}
	}
	return model.RankingList{Name: name, Items: items}
}
