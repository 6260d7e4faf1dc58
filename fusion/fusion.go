// Package fusion provides pure rank-fusion functions for combining ranked
// lists from independent retrievers.
package fusion

import (
	"sort"

	"github.com/hupe1980/fusego/model"
)

// DefaultRRFK is the standard rank-smoothing constant for RRF.
const DefaultRRFK = 60

// RRFScore returns the reciprocal rank fusion score 1/(k+rank).
func RRFScore(rank, k int) float64 {
	return 1 / float64(k+rank)
}

// MaxRRFScore returns the upper bound numLists/(k+1), reached when an ID is
// ranked #1 in every list.
func MaxRRFScore(numLists, k int) float64 {
	return float64(numLists) / float64(k+1)
}

// ReciprocalRankFusion combines ranking lists by summing RRFScore(rank, k)
// for every list an ID appears in; IDs absent from a list contribute 0 from
// that list. Results are sorted by fused score descending, ties broken by
// first-seen order across the input lists. Deterministic for fixed inputs.
//
// k <= 0 selects DefaultRRFK.
func ReciprocalRankFusion(lists []model.RankingList, k int) []model.FusionResult {
	if k <= 0 {
		k = DefaultRRFK
	}
	return fuse(lists, func(item model.RankedItem) float64 {
		return RRFScore(item.Rank, k)
	})
}

// WeightedReciprocalRankFusion is ReciprocalRankFusion with a per-list
// weight applied to each contribution. weights must be parallel to lists.
func WeightedReciprocalRankFusion(lists []model.RankingList, weights []float64, k int) []model.FusionResult {
	if k <= 0 {
		k = DefaultRRFK
	}
	weightByName := make(map[string]float64, len(lists))
	for i := range lists {
		w := 1.0
		if i < len(weights) {
			w = weights[i]
		}
		weightByName[lists[i].Name] = w
	}
	return fuseNamed(lists, func(name string, item model.RankedItem) float64 {
		return weightByName[name] * RRFScore(item.Rank, k)
	})
}

// WeightedSum min-max normalizes each list's raw scores into [0, 1] and
// blends them as denseWeight*denseNorm + sparseWeight*sparseNorm.
// Constant or single-element lists normalize to 1.0.
func WeightedSum(dense, sparse model.RankingList, denseWeight, sparseWeight float64) []model.FusionResult {
	denseNorm := minMaxNormalize(dense.Items)
	sparseNorm := minMaxNormalize(sparse.Items)

	lists := []model.RankingList{
		{Name: dense.Name, Items: denseNorm},
		{Name: sparse.Name, Items: sparseNorm},
	}
	weights := map[string]float64{
		dense.Name:  denseWeight,
		sparse.Name: sparseWeight,
	}
	return fuseNamed(lists, func(name string, item model.RankedItem) float64 {
		return weights[name] * item.Score
	})
}

// minMaxNormalize rescales scores into [0, 1], preserving ranks.
func minMaxNormalize(items []model.RankedItem) []model.RankedItem {
	if len(items) == 0 {
		return nil
	}

	minScore, maxScore := items[0].Score, items[0].Score
	for _, it := range items[1:] {
		if it.Score < minScore {
			minScore = it.Score
		}
		if it.Score > maxScore {
			maxScore = it.Score
		}
	}

	out := make([]model.RankedItem, len(items))
	copy(out, items)

	spread := maxScore - minScore
	for i := range out {
		if spread == 0 {
			out[i].Score = 1
		} else {
			out[i].Score = (out[i].Score - minScore) / spread
		}
	}
	return out
}

func fuse(lists []model.RankingList, contribution func(model.RankedItem) float64) []model.FusionResult {
	return fuseNamed(lists, func(_ string, item model.RankedItem) float64 {
		return contribution(item)
	})
}

// fuseNamed accumulates per-ID contributions across all lists, preserving
// provenance and first-seen order for stable tie-breaking.
func fuseNamed(lists []model.RankingList, contribution func(name string, item model.RankedItem) float64) []model.FusionResult {
	byID := make(map[string]*model.FusionResult)
	order := make([]string, 0)

	for _, list := range lists {
		for _, item := range list.Items {
			fr, ok := byID[item.ID]
			if !ok {
				fr = &model.FusionResult{ID: item.ID, Chunk: item.Chunk}
				byID[item.ID] = fr
				order = append(order, item.ID)
			}
			fr.FusedScore += contribution(list.Name, item)
			fr.Contributions = append(fr.Contributions, model.Contribution{
				Name:  list.Name,
				Rank:  item.Rank,
				Score: item.Score,
			})
		}
	}

	results := make([]model.FusionResult, 0, len(order))
	for _, id := range order {
		results = append(results, *byID[id])
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].FusedScore > results[j].FusedScore
	})
	return results
}
