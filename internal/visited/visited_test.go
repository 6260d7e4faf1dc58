package visited

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVisit(t *testing.T) {
	s := New(64)

	assert.False(t, s.Visited(3))
	s.Visit(3)
	assert.True(t, s.Visited(3))
	assert.False(t, s.Visited(4))
}

func TestGrow(t *testing.T) {
	s := New(8)

	s.Visit(1000)
	assert.True(t, s.Visited(1000))
	assert.False(t, s.Visited(999))

	// Out-of-range lookups are safe.
	assert.False(t, s.Visited(1<<20))
}

func TestReset(t *testing.T) {
	s := New(64)

	for _, id := range []uint32{1, 7, 63, 500} {
		s.Visit(id)
	}
	s.Reset()

	for _, id := range []uint32{1, 7, 63, 500} {
		assert.False(t, s.Visited(id))
	}
}
