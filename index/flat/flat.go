// Package flat provides an exact brute-force index for vector search.
//
// Search cost is O(n*d) per query with perfect recall. It is the default
// index and the recommended choice below roughly 10K vectors; above that,
// the hnsw package trades exactness for speed.
package flat

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/fusego/distance"
	"github.com/hupe1980/fusego/index"
	"github.com/hupe1980/fusego/internal/queue"
)

// cancelCheckInterval is the number of rows scanned between context checks.
const cancelCheckInterval = 4096

// Compile-time check.
var _ index.Index = (*Flat)(nil)

// Options contains configuration options for the flat index.
type Options struct {
	// Dimension is the fixed vector dimensionality for this index.
	// It must be > 0 and is enforced for all inserts and searches.
	Dimension int

	// Metric is the distance metric used for comparisons.
	Metric distance.Metric
}

// DefaultOptions contains the default configuration options.
var DefaultOptions = Options{
	Dimension: 0,
	Metric:    distance.MetricCosine,
}

// indexState holds the immutable state of the index for lock-free reads.
type indexState struct {
	rows     [][]float32 // nil entries are free slots
	freeList []uint32
	count    int
}

// Flat is an exact index using a copy-on-write state for lock-free
// concurrent reads; writes are serialized by a mutex.
type Flat struct {
	state        atomic.Pointer[indexState]
	writeMu      sync.Mutex
	distanceFunc distance.Func
	opts         Options
}

// New creates a new flat index.
func New(optFns ...func(o *Options)) (*Flat, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if err := index.ValidateDimension(opts.Dimension); err != nil {
		return nil, err
	}

	distanceFunc, err := distance.Provider(opts.Metric)
	if err != nil {
		return nil, err
	}

	f := &Flat{
		distanceFunc: distanceFunc,
		opts:         opts,
	}
	f.state.Store(&indexState{})
	return f, nil
}

func (f *Flat) cloneState(st *indexState) *indexState {
	return &indexState{
		rows:     slices.Clone(st.rows),
		freeList: slices.Clone(st.freeList),
		count:    st.count,
	}
}

// Insert adds a vector and returns its row ID.
func (f *Flat) Insert(ctx context.Context, v []float32) (uint32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(v) == 0 {
		return 0, index.ErrEmptyVector
	}
	if len(v) != f.opts.Dimension {
		return 0, &index.ErrDimensionMismatch{Expected: f.opts.Dimension, Actual: len(v)}
	}

	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	st := f.cloneState(f.state.Load())

	var id uint32
	if n := len(st.freeList); n > 0 {
		id = st.freeList[n-1]
		st.freeList = st.freeList[:n-1]
		st.rows[id] = slices.Clone(v)
	} else {
		id = uint32(len(st.rows))
		st.rows = append(st.rows, slices.Clone(v))
	}
	st.count++

	f.state.Store(st)
	return id, nil
}

// Delete removes a row. Unknown rows are ignored.
func (f *Flat) Delete(ctx context.Context, id uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	old := f.state.Load()
	if int(id) >= len(old.rows) || old.rows[id] == nil {
		return nil
	}

	st := f.cloneState(old)
	st.rows[id] = nil
	st.freeList = append(st.freeList, id)
	st.count--

	f.state.Store(st)
	return nil
}

// KNNSearch performs an exact scan returning the k nearest rows.
func (f *Flat) KNNSearch(ctx context.Context, q []float32, k int, opts *index.SearchOptions) ([]index.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, index.ErrInvalidK
	}
	if len(q) != f.opts.Dimension {
		return nil, &index.ErrDimensionMismatch{Expected: f.opts.Dimension, Actual: len(q)}
	}

	var filter func(uint32) bool
	if opts != nil {
		filter = opts.Filter
	}

	st := f.state.Load()
	pq := queue.NewMax(k)

	for i, row := range st.rows {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if row == nil {
			continue
		}
		id := uint32(i)
		if filter != nil && !filter(id) {
			continue
		}
		pq.PushBounded(queue.Item{Node: id, Distance: f.distanceFunc(q, row)}, k)
	}

	res := make([]index.SearchResult, pq.Len())
	for i := pq.Len() - 1; i >= 0; i-- {
		item, _ := pq.Pop()
		res[i] = index.SearchResult{ID: item.Node, Distance: item.Distance}
	}
	return res, nil
}

// VectorByID returns the stored vector for a row ID.
func (f *Flat) VectorByID(id uint32) ([]float32, bool) {
	st := f.state.Load()
	if int(id) >= len(st.rows) || st.rows[id] == nil {
		return nil, false
	}
	return st.rows[id], true
}

// Dimension returns the configured dimensionality.
func (f *Flat) Dimension() int {
	return f.opts.Dimension
}

// Count returns the number of live vectors.
func (f *Flat) Count() int {
	return f.state.Load().count
}

// Stats returns index statistics.
func (f *Flat) Stats() index.Stats {
	st := f.state.Load()
	return index.Stats{
		Kind:        "flat",
		Count:       st.count,
		Dimension:   f.opts.Dimension,
		Approximate: false,
	}
}
