package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBudgetAcquireRelease(t *testing.T) {
	b := NewBudget(100)

	require.True(t, b.TryAcquire(60))
	assert.Equal(t, int64(60), b.Used())
	assert.Equal(t, int64(100), b.Max())
	assert.False(t, b.Unbounded())
	assert.InDelta(t, 60.0, b.PercentUsed(), 1e-9)

	assert.False(t, b.TryAcquire(50))
	assert.Equal(t, int64(60), b.Used())

	b.Release(60)
	assert.Equal(t, int64(0), b.Used())
	require.True(t, b.TryAcquire(100))
}

func TestBudgetUnbounded(t *testing.T) {
	b := NewBudget(0)

	assert.True(t, b.Unbounded())
	assert.Equal(t, int64(0), b.Max())
	require.True(t, b.TryAcquire(1<<40))
	assert.Equal(t, int64(1<<40), b.Used())
	assert.Zero(t, b.PercentUsed())
}

func TestBudgetWarning(t *testing.T) {
	var calls int
	var lastUsed, lastMax int64

	b := NewBudget(100, func(o *Options) {
		o.OnWarning = func(used, max int64) {
			calls++
			lastUsed, lastMax = used, max
		}
	})

	// Below threshold: silent.
	require.True(t, b.TryAcquire(80))
	assert.Zero(t, calls)

	// Crossing the default 90% threshold fires once.
	require.True(t, b.TryAcquire(15))
	assert.Equal(t, 1, calls)
	assert.Equal(t, int64(95), lastUsed)
	assert.Equal(t, int64(100), lastMax)

	// Staying above the threshold stays silent.
	require.True(t, b.TryAcquire(2))
	assert.Equal(t, 1, calls)

	// Dropping below re-arms, crossing again fires again.
	b.Release(50)
	require.True(t, b.TryAcquire(45))
	assert.Equal(t, 2, calls)
}

func TestBudgetCustomThreshold(t *testing.T) {
	var calls int

	b := NewBudget(100, func(o *Options) {
		o.WarningThreshold = 0.5
		o.OnWarning = func(int64, int64) { calls++ }
	})

	require.True(t, b.TryAcquire(49))
	assert.Zero(t, calls)
	require.True(t, b.TryAcquire(1))
	assert.Equal(t, 1, calls)
}
