// Package testutil provides testing utilities for fusego.
//
// This package is intended for use in tests and benchmarks only. It
// provides helpers for generating random vectors, computing exact nearest
// neighbors, and verifying search recall.
package testutil

import (
	"math/rand"
	"sort"
	"sync"
)

// RNG encapsulates a seeded random number generator. It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// FillUniform fills dst with random values in range [0, 1).
// Locks only once per call (preferred over calling Float32 in a loop).
func (r *RNG) FillUniform(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rand.Float32()
	}
}

// UniformVector returns one random vector of the given dimension.
func (r *RNG) UniformVector(dimension int) []float32 {
	v := make([]float32, dimension)
	r.FillUniform(v)
	return v
}

// UniformVectors returns count random vectors of the given dimension.
func (r *RNG) UniformVectors(count, dimension int) [][]float32 {
	vectors := make([][]float32, count)
	for i := range vectors {
		vectors[i] = r.UniformVector(dimension)
	}
	return vectors
}

// ExactResult is a ground-truth nearest neighbor.
type ExactResult struct {
	ID       uint32
	Distance float32
}

// ExactTopK computes the exact k nearest neighbors of query within dataset
// using the given distance function. Ties resolve by lower ID.
func ExactTopK(query []float32, dataset [][]float32, k int, distanceFunc func(a, b []float32) float32) []ExactResult {
	results := make([]ExactResult, 0, len(dataset))
	for i, v := range dataset {
		results = append(results, ExactResult{ID: uint32(i), Distance: distanceFunc(query, v)})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > k {
		results = results[:k]
	}
	return results
}

// ComputeRecall returns the fraction of exact IDs present in the
// approximate result set.
func ComputeRecall(approx []uint32, exact []ExactResult) float64 {
	if len(exact) == 0 {
		return 1
	}
	got := make(map[uint32]struct{}, len(approx))
	for _, id := range approx {
		got[id] = struct{}{}
	}
	hits := 0
	for _, e := range exact {
		if _, ok := got[e.ID]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(exact))
}
