// Package hnsw implements the Hierarchical Navigable Small World graph for
// approximate nearest neighbor search.
//
// HNSW never guarantees exact recall: results may miss true neighbors.
// Recall is a tunable function of M, EFConstruction and EFSearch — higher
// values improve recall at the cost of memory and latency.
package hnsw

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/hupe1980/fusego/distance"
	"github.com/hupe1980/fusego/index"
	"github.com/hupe1980/fusego/internal/bitset"
	"github.com/hupe1980/fusego/internal/queue"
	"github.com/hupe1980/fusego/internal/visited"
)

const (
	// layerNormalizationBase is the base constant for the exponential
	// layer probability distribution.
	layerNormalizationBase = 1.0

	// mmax0Multiplier is the multiplier for maximum connections at layer 0.
	mmax0Multiplier = 2

	// minimumM is the minimum valid value for M.
	minimumM = 2

	// DefaultM is the default number of bidirectional links per node per layer.
	DefaultM = 16

	// DefaultEFConstruction is the default candidate list size while inserting.
	DefaultEFConstruction = 200

	// DefaultEFSearch is the default candidate list size while searching.
	DefaultEFSearch = 100
)

// Compile-time check.
var _ index.Index = (*HNSW)(nil)

// Options represents the options for configuring HNSW.
type Options struct {
	// Dimension is the fixed vector dimensionality. Required.
	Dimension int

	// M is the maximum number of neighbors per node per layer.
	M int

	// EFConstruction is the candidate list size during insertion.
	EFConstruction int

	// EFSearch is the default candidate list size during search.
	// Overridable per query via index.SearchOptions.EFSearch.
	EFSearch int

	// Heuristic enables the diversity-favoring neighbor selection from the
	// original HNSW paper; disabled, plain nearest-M selection is used.
	Heuristic bool

	// Metric is the distance metric.
	Metric distance.Metric

	// RandomSeed fixes the layer randomization for reproducible graphs.
	RandomSeed *int64
}

// DefaultOptions contains the default options for HNSW.
var DefaultOptions = Options{
	Dimension:      0,
	M:              DefaultM,
	EFConstruction: DefaultEFConstruction,
	EFSearch:       DefaultEFSearch,
	Heuristic:      true,
	Metric:         distance.MetricCosine,
}

// node is a graph node. neighbors[l] holds the connections at layer l.
type node struct {
	vector    []float32
	level     int
	neighbors [][]uint32
}

// HNSW represents the Hierarchical Navigable Small World graph.
type HNSW struct {
	mu         sync.RWMutex
	nodes      []*node
	entryPoint uint32
	maxLevel   int
	count      int
	tombstones *bitset.BitSet

	distanceFunc distance.Func

	maxConnectionsPerLayer int
	maxConnectionsLayer0   int
	layerMultiplier        float64
	opts                   Options

	rngMu sync.Mutex
	rng   *rand.Rand

	minQueuePool *sync.Pool
	maxQueuePool *sync.Pool
	visitedPool  *sync.Pool
}

// New creates a new HNSW index.
func New(optFns ...func(o *Options)) (*HNSW, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if err := index.ValidateDimension(opts.Dimension); err != nil {
		return nil, err
	}
	if opts.M < minimumM {
		opts.M = minimumM
	}
	if opts.EFConstruction <= 0 {
		opts.EFConstruction = DefaultEFConstruction
	}
	if opts.EFSearch <= 0 {
		opts.EFSearch = DefaultEFSearch
	}

	distanceFunc, err := distance.Provider(opts.Metric)
	if err != nil {
		return nil, err
	}

	var rng *rand.Rand
	if opts.RandomSeed != nil {
		rng = rand.New(rand.NewSource(*opts.RandomSeed))
	} else {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	h := &HNSW{
		nodes:                  make([]*node, 0),
		tombstones:             bitset.New(1024),
		distanceFunc:           distanceFunc,
		maxConnectionsPerLayer: opts.M,
		maxConnectionsLayer0:   mmax0Multiplier * opts.M,
		layerMultiplier:        layerNormalizationBase / math.Log(float64(opts.M)),
		opts:                   opts,
		rng:                    rng,
		minQueuePool: &sync.Pool{
			New: func() any { return queue.NewMin(opts.EFConstruction) },
		},
		maxQueuePool: &sync.Pool{
			New: func() any { return queue.NewMax(opts.EFConstruction) },
		},
		visitedPool: &sync.Pool{
			New: func() any { return visited.New(1024) },
		},
	}

	return h, nil
}

// randomLevel assigns a layer with geometrically decaying probability.
func (h *HNSW) randomLevel() int {
	h.rngMu.Lock()
	r := h.rng.Float64()
	h.rngMu.Unlock()
	if r == 0 {
		r = math.SmallestNonzeroFloat64
	}
	return int(math.Floor(-math.Log(r) * h.layerMultiplier))
}

// Insert adds a vector and returns its row ID.
func (h *HNSW) Insert(ctx context.Context, v []float32) (uint32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(v) == 0 {
		return 0, index.ErrEmptyVector
	}
	if len(v) != h.opts.Dimension {
		return 0, &index.ErrDimensionMismatch{Expected: h.opts.Dimension, Actual: len(v)}
	}

	level := h.randomLevel()

	h.mu.Lock()
	defer h.mu.Unlock()

	id := uint32(len(h.nodes))
	n := &node{
		vector:    slices.Clone(v),
		level:     level,
		neighbors: make([][]uint32, level+1),
	}
	h.nodes = append(h.nodes, n)

	// First live node becomes the entry point.
	if h.count == 0 {
		h.entryPoint = id
		h.maxLevel = level
		h.count++
		return id, nil
	}

	if err := h.insertNode(ctx, id, n); err != nil {
		// Some neighbors may already link back to the new row; tombstone
		// it so searches never surface it.
		h.tombstones.Set(id)
		return 0, err
	}
	h.count++

	if level > h.maxLevel {
		h.maxLevel = level
		h.entryPoint = id
	}

	return id, nil
}

// insertNode links the new node into the graph. Caller holds h.mu.
func (h *HNSW) insertNode(ctx context.Context, id uint32, n *node) error {
	currID := h.entryPoint
	currDist := h.distanceFunc(n.vector, h.nodes[currID].vector)

	// Greedy descent above the node's level.
	for level := h.maxLevel; level > n.level; level-- {
		if err := ctx.Err(); err != nil {
			return err
		}
		currID, currDist = h.greedyStep(n.vector, currID, currDist, level)
	}

	// Search and link from the node's level down to 0.
	for level := min(n.level, h.maxLevel); level >= 0; level-- {
		if err := ctx.Err(); err != nil {
			return err
		}

		candidates := h.searchLayer(n.vector, currID, currDist, level, h.opts.EFConstruction, nil)

		if best, ok := candidates.Min(); ok {
			currID = best.Node
			currDist = best.Distance
		}

		maxConns := h.maxConnectionsPerLayer
		if level == 0 {
			maxConns = h.maxConnectionsLayer0
		}

		neighbors := h.selectNeighbors(candidates, maxConns)
		candidates.Reset()
		h.maxQueuePool.Put(candidates)

		n.neighbors[level] = neighbors
		for _, neighborID := range neighbors {
			h.addConnection(neighborID, id, level)
		}
	}

	return nil
}

// greedyStep walks greedily toward q at the given level until no neighbor
// improves the distance.
func (h *HNSW) greedyStep(q []float32, currID uint32, currDist float32, level int) (uint32, float32) {
	changed := true
	for changed {
		changed = false
		for _, nextID := range h.connections(currID, level) {
			nextDist := h.distanceFunc(q, h.nodes[nextID].vector)
			if nextDist < currDist {
				currID = nextID
				currDist = nextDist
				changed = true
			}
		}
	}
	return currID, currDist
}

func (h *HNSW) connections(id uint32, level int) []uint32 {
	n := h.nodes[id]
	if n == nil || level > n.level {
		return nil
	}
	return n.neighbors[level]
}

// addConnection adds a backlink from sourceID to targetID at the given
// level, pruning the neighbor list back to the layer maximum on overflow.
func (h *HNSW) addConnection(sourceID, targetID uint32, level int) {
	src := h.nodes[sourceID]
	if src == nil || level > src.level {
		return
	}

	conns := src.neighbors[level]
	if slices.Contains(conns, targetID) {
		return
	}

	maxConns := h.maxConnectionsPerLayer
	if level == 0 {
		maxConns = h.maxConnectionsLayer0
	}

	if len(conns) < maxConns {
		src.neighbors[level] = append(conns, targetID)
		return
	}

	// Overflow: re-select the best maxConns among existing plus new.
	candidates := h.maxQueuePool.Get().(*queue.PriorityQueue)
	candidates.Reset()
	defer func() {
		candidates.Reset()
		h.maxQueuePool.Put(candidates)
	}()

	for _, c := range conns {
		candidates.Push(queue.Item{Node: c, Distance: h.distanceFunc(src.vector, h.nodes[c].vector)})
	}
	candidates.Push(queue.Item{Node: targetID, Distance: h.distanceFunc(src.vector, h.nodes[targetID].vector)})

	src.neighbors[level] = h.selectNeighbors(candidates, maxConns)
}

// selectNeighbors selects up to m neighbors from candidates.
// The candidate queue is consumed.
func (h *HNSW) selectNeighbors(candidates *queue.PriorityQueue, m int) []uint32 {
	if h.opts.Heuristic && candidates.Len() > m {
		return h.selectNeighborsHeuristic(candidates, m)
	}
	return h.selectNeighborsSimple(candidates, m)
}

func (h *HNSW) selectNeighborsSimple(candidates *queue.PriorityQueue, m int) []uint32 {
	for candidates.Len() > m {
		candidates.Pop()
	}

	res := make([]uint32, candidates.Len())
	for i := candidates.Len() - 1; i >= 0; i-- {
		item, _ := candidates.Pop()
		res[i] = item.Node
	}
	return res
}

// selectNeighborsHeuristic applies the neighbor-selection heuristic from the
// original HNSW paper: a candidate is kept only if it is closer to the
// source than to every already selected neighbor, which favors diverse
// directions over raw proximity and avoids clustering.
func (h *HNSW) selectNeighborsHeuristic(candidates *queue.PriorityQueue, m int) []uint32 {
	// Drain the max-heap into a best-first slice.
	sorted := make([]queue.Item, candidates.Len())
	for i := len(sorted) - 1; i >= 0; i-- {
		sorted[i], _ = candidates.Pop()
	}

	result := make([]uint32, 0, m)
	resultVecs := make([][]float32, 0, m)

	for _, cand := range sorted {
		if len(result) >= m {
			break
		}

		candVec := h.nodes[cand.Node].vector
		good := true
		for _, resVec := range resultVecs {
			if h.distanceFunc(candVec, resVec) < cand.Distance {
				good = false
				break
			}
		}
		if good {
			result = append(result, cand.Node)
			resultVecs = append(resultVecs, candVec)
		}
	}

	// Fill up with the nearest skipped candidates if the heuristic was
	// too selective.
	if len(result) < m {
		for _, cand := range sorted {
			if len(result) >= m {
				break
			}
			if !slices.Contains(result, cand.Node) {
				result = append(result, cand.Node)
			}
		}
	}

	return result
}

// searchLayer performs a best-first search at one layer with candidate list
// size ef. The returned max-heap holds up to ef results and must be put
// back into maxQueuePool by the caller. Caller holds h.mu (read or write).
//
// The entry point always seeds the candidate queue, even when filtered out,
// so traversal has a starting point; it only enters results if it passes
// the filter and is not tombstoned.
func (h *HNSW) searchLayer(q []float32, epID uint32, epDist float32, level, ef int, filter func(uint32) bool) *queue.PriorityQueue {
	vis := h.visitedPool.Get().(*visited.Set)
	vis.Reset()
	defer h.visitedPool.Put(vis)

	candidates := h.minQueuePool.Get().(*queue.PriorityQueue)
	candidates.Reset()
	defer func() {
		candidates.Reset()
		h.minQueuePool.Put(candidates)
	}()

	results := h.maxQueuePool.Get().(*queue.PriorityQueue)
	results.Reset()

	vis.Visit(epID)
	candidates.Push(queue.Item{Node: epID, Distance: epDist})
	if (filter == nil || filter(epID)) && !h.tombstones.Test(epID) {
		results.Push(queue.Item{Node: epID, Distance: epDist})
	}

	for candidates.Len() > 0 {
		curr, _ := candidates.Pop()

		if results.Len() >= ef {
			worst, _ := results.Top()
			if curr.Distance > worst.Distance {
				break
			}
		}

		for _, nextID := range h.connections(curr.Node, level) {
			if vis.Visited(nextID) {
				continue
			}
			vis.Visit(nextID)

			nextDist := h.distanceFunc(q, h.nodes[nextID].vector)

			// Skip obviously-bad candidates once results are full.
			// Only without a filter: with filtering enabled, traversal
			// stays permissive to escape filtered-out regions.
			if filter == nil && results.Len() >= ef {
				worst, _ := results.Top()
				if nextDist > worst.Distance {
					continue
				}
			}

			candidates.Push(queue.Item{Node: nextID, Distance: nextDist})

			if (filter == nil || filter(nextID)) && !h.tombstones.Test(nextID) {
				results.Push(queue.Item{Node: nextID, Distance: nextDist})
				if results.Len() > ef {
					results.Pop()
				}
			}
		}
	}

	return results
}

// KNNSearch returns the approximate k nearest rows, best first.
func (h *HNSW) KNNSearch(ctx context.Context, q []float32, k int, opts *index.SearchOptions) ([]index.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, index.ErrInvalidK
	}
	if len(q) != h.opts.Dimension {
		return nil, &index.ErrDimensionMismatch{Expected: h.opts.Dimension, Actual: len(q)}
	}

	ef := h.opts.EFSearch
	var filter func(uint32) bool
	if opts != nil {
		if opts.EFSearch > 0 {
			ef = opts.EFSearch
		}
		filter = opts.Filter
	}
	if ef < k {
		ef = k
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.count == 0 || len(h.nodes) == 0 {
		return nil, nil
	}

	currID := h.entryPoint
	currDist := h.distanceFunc(q, h.nodes[currID].vector)

	// Greedy descent to layer 1, cancellation checked per layer.
	for level := h.maxLevel; level > 0; level-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		currID, currDist = h.greedyStep(q, currID, currDist, level)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := h.searchLayer(q, currID, currDist, 0, ef, filter)
	defer func() {
		results.Reset()
		h.maxQueuePool.Put(results)
	}()

	for results.Len() > k {
		results.Pop()
	}

	res := make([]index.SearchResult, results.Len())
	for i := results.Len() - 1; i >= 0; i-- {
		item, _ := results.Pop()
		res[i] = index.SearchResult{ID: item.Node, Distance: item.Distance}
	}
	return res, nil
}

// Delete tombstones a row in O(1). The node stays in the graph to preserve
// connectivity but is never returned from searches.
func (h *HNSW) Delete(ctx context.Context, id uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if int(id) >= len(h.nodes) || h.nodes[id] == nil {
		return nil
	}
	if h.tombstones.Test(id) {
		return nil
	}
	h.tombstones.Set(id)
	h.count--
	return nil
}

// VectorByID returns the stored vector for a live row ID.
func (h *HNSW) VectorByID(id uint32) ([]float32, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if int(id) >= len(h.nodes) || h.nodes[id] == nil || h.tombstones.Test(id) {
		return nil, false
	}
	return h.nodes[id].vector, true
}

// Dimension returns the configured dimensionality.
func (h *HNSW) Dimension() int {
	return h.opts.Dimension
}

// Count returns the number of live (non-tombstoned) vectors.
func (h *HNSW) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Stats returns index statistics.
func (h *HNSW) Stats() index.Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return index.Stats{
		Kind:        "hnsw",
		Count:       h.count,
		Dimension:   h.opts.Dimension,
		Approximate: true,
		MaxLevel:    h.maxLevel,
	}
}

// String describes the graph configuration.
func (h *HNSW) String() string {
	return fmt.Sprintf("HNSW(M=%d, efConstruction=%d, efSearch=%d)",
		h.opts.M, h.opts.EFConstruction, h.opts.EFSearch)
}
