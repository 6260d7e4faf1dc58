// Package bitset provides a growable dense bitset used for tombstones.
package bitset

// BitSet is a growable dense bitset. It is not safe for concurrent use;
// callers serialize access alongside their own mutation locks.
type BitSet struct {
	words []uint64
	count int
}

// New creates a new BitSet sized for at least size bits.
func New(size uint32) *BitSet {
	return &BitSet{words: make([]uint64, (int(size)+63)/64)}
}

// Grow ensures the bitset can hold at least size bits.
func (b *BitSet) Grow(size uint32) {
	need := (int(size) + 63) / 64
	if need <= len(b.words) {
		return
	}
	newCap := len(b.words) * 2
	if newCap < need {
		newCap = need
	}
	words := make([]uint64, newCap)
	copy(words, b.words)
	b.words = words
}

// Set sets the bit at index i, growing if needed.
func (b *BitSet) Set(i uint32) {
	b.Grow(i + 1)
	w, mask := i>>6, uint64(1)<<(i&63)
	if b.words[w]&mask == 0 {
		b.words[w] |= mask
		b.count++
	}
}

// Clear clears the bit at index i.
func (b *BitSet) Clear(i uint32) {
	w := i >> 6
	if int(w) >= len(b.words) {
		return
	}
	mask := uint64(1) << (i & 63)
	if b.words[w]&mask != 0 {
		b.words[w] &^= mask
		b.count--
	}
}

// Test returns true if the bit at index i is set.
func (b *BitSet) Test(i uint32) bool {
	w := i >> 6
	if int(w) >= len(b.words) {
		return false
	}
	return b.words[w]&(uint64(1)<<(i&63)) != 0
}

// Count returns the number of set bits.
func (b *BitSet) Count() int {
	return b.count
}
