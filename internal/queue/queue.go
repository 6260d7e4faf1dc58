// Package queue implements value-based binary heaps for search candidates.
package queue

// Item represents an entry in the priority queue.
// Value-based to keep the heap allocation-free on the search hot path.
type Item struct {
	Node     uint32  // Node is the row ID of the candidate.
	Distance float32 // Distance is the priority of the item.
}

// PriorityQueue implements a binary heap holding Items.
// It does NOT implement container/heap to avoid interface overhead.
type PriorityQueue struct {
	isMaxHeap bool // true = max heap (worst on top), false = min heap
	items     []Item
}

// NewMin creates a min-heap with the given initial capacity.
func NewMin(capacity int) *PriorityQueue {
	return &PriorityQueue{isMaxHeap: false, items: make([]Item, 0, capacity)}
}

// NewMax creates a max-heap with the given initial capacity.
func NewMax(capacity int) *PriorityQueue {
	return &PriorityQueue{isMaxHeap: true, items: make([]Item, 0, capacity)}
}

// Reset clears the priority queue for reuse.
func (pq *PriorityQueue) Reset() {
	pq.items = pq.items[:0]
}

// Len returns the number of elements in the heap.
func (pq *PriorityQueue) Len() int {
	return len(pq.items)
}

// Top returns the top element of the heap without removing it.
func (pq *PriorityQueue) Top() (Item, bool) {
	if len(pq.items) == 0 {
		return Item{}, false
	}
	return pq.items[0], true
}

// Min returns the item with the minimum distance in the queue.
// O(N) for a max-heap, but N (ef) is typically small.
func (pq *PriorityQueue) Min() (Item, bool) {
	if len(pq.items) == 0 {
		return Item{}, false
	}
	minItem := pq.items[0]
	for _, item := range pq.items[1:] {
		if item.Distance < minItem.Distance {
			minItem = item
		}
	}
	return minItem, true
}

// Push inserts an item while maintaining the heap invariant.
func (pq *PriorityQueue) Push(item Item) {
	pq.items = append(pq.items, item)
	pq.siftUp(len(pq.items) - 1)
}

// PushBounded inserts an item into a heap bounded at capacity.
// When full, the new item replaces the top only if it is better.
func (pq *PriorityQueue) PushBounded(item Item, capacity int) {
	if len(pq.items) < capacity {
		pq.Push(item)
		return
	}

	top, _ := pq.Top()
	if pq.isMaxHeap {
		// Top is the largest distance (worst candidate); keep smaller.
		if item.Distance < top.Distance {
			pq.items[0] = item
			pq.siftDown(0)
		}
	} else {
		if item.Distance > top.Distance {
			pq.items[0] = item
			pq.siftDown(0)
		}
	}
}

// Pop removes and returns the top element from the heap.
func (pq *PriorityQueue) Pop() (Item, bool) {
	n := len(pq.items)
	if n == 0 {
		return Item{}, false
	}

	item := pq.items[0]
	pq.items[0] = pq.items[n-1]
	pq.items = pq.items[:n-1]

	if len(pq.items) > 0 {
		pq.siftDown(0)
	}

	return item, true
}

func (pq *PriorityQueue) less(i, j int) bool {
	if pq.isMaxHeap {
		return pq.items[i].Distance > pq.items[j].Distance
	}
	return pq.items[i].Distance < pq.items[j].Distance
}

func (pq *PriorityQueue) swap(i, j int) {
	pq.items[i], pq.items[j] = pq.items[j], pq.items[i]
}

func (pq *PriorityQueue) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !pq.less(i, parent) {
			break
		}
		pq.swap(i, parent)
		i = parent
	}
}

func (pq *PriorityQueue) siftDown(i int) {
	n := len(pq.items)
	for {
		left := 2*i + 1
		if left >= n {
			break
		}
		child := left
		right := left + 1
		if right < n && pq.less(right, left) {
			child = right
		}
		if !pq.less(child, i) {
			break
		}
		pq.swap(i, child)
		i = child
	}
}
