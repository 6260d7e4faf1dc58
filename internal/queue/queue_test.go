package queue

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinQueueOrdering(t *testing.T) {
	pq := NewMin(8)

	distances := []float32{5, 1, 4, 2, 3}
	for i, d := range distances {
		pq.Push(Item{Node: uint32(i), Distance: d})
	}

	require.Equal(t, 5, pq.Len())

	var popped []float32
	for pq.Len() > 0 {
		item, ok := pq.Pop()
		require.True(t, ok)
		popped = append(popped, item.Distance)
	}

	assert.True(t, sort.SliceIsSorted(popped, func(i, j int) bool { return popped[i] < popped[j] }))
}

func TestMaxQueueOrdering(t *testing.T) {
	pq := NewMax(8)

	for i, d := range []float32{2, 5, 1} {
		pq.Push(Item{Node: uint32(i), Distance: d})
	}

	top, ok := pq.Top()
	require.True(t, ok)
	assert.Equal(t, float32(5), top.Distance)
}

func TestPushBounded(t *testing.T) {
	// Bounded max-queue keeps the k smallest distances.
	pq := NewMax(4)

	rng := rand.New(rand.NewSource(42))
	var all []float32
	for i := 0; i < 100; i++ {
		d := rng.Float32()
		all = append(all, d)
		pq.PushBounded(Item{Node: uint32(i), Distance: d}, 4)
	}

	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })

	require.Equal(t, 4, pq.Len())

	var kept []float32
	for pq.Len() > 0 {
		item, _ := pq.Pop()
		kept = append(kept, item.Distance)
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i] < kept[j] })

	assert.Equal(t, all[:4], kept)
}

func TestMinOnMaxQueue(t *testing.T) {
	pq := NewMax(8)
	for i, d := range []float32{3, 1, 2} {
		pq.Push(Item{Node: uint32(i), Distance: d})
	}

	item, ok := pq.Min()
	require.True(t, ok)
	assert.Equal(t, float32(1), item.Distance)
}

func TestReset(t *testing.T) {
	pq := NewMin(4)
	pq.Push(Item{Node: 1, Distance: 1})
	pq.Reset()

	assert.Zero(t, pq.Len())
	_, ok := pq.Pop()
	assert.False(t, ok)
}
