// Package resource provides memory budget accounting for the engine.
package resource

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultWarningThreshold is the usage fraction at which OnWarning fires.
const DefaultWarningThreshold = 0.9

// Options configures a Budget.
type Options struct {
	// WarningThreshold is the fraction of MaxBytes at which OnWarning
	// fires. Must be in (0, 1].
	WarningThreshold float64

	// OnWarning is invoked once when usage crosses the warning threshold.
	// It is re-armed when usage drops below the threshold again.
	OnWarning func(usedBytes, maxBytes int64)
}

// DefaultOptions contains the default budget options.
var DefaultOptions = Options{
	WarningThreshold: DefaultWarningThreshold,
}

// Budget tracks bytes consumed against a configured ceiling.
//
// With maxBytes <= 0 the budget is unbounded and only tracks usage.
// Acquire/Release pairs must balance; callers own the accounting of what a
// "byte" means (the vector store estimates chunk footprints).
type Budget struct {
	maxBytes int64
	sem      *semaphore.Weighted // nil if unbounded
	used     atomic.Int64

	opts   Options
	warnMu sync.Mutex
	warned bool
}

// NewBudget creates a memory budget with the given ceiling in bytes.
func NewBudget(maxBytes int64, optFns ...func(o *Options)) *Budget {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.WarningThreshold <= 0 || opts.WarningThreshold > 1 {
		opts.WarningThreshold = DefaultWarningThreshold
	}

	b := &Budget{maxBytes: maxBytes, opts: opts}
	if maxBytes > 0 {
		b.sem = semaphore.NewWeighted(maxBytes)
	}
	return b
}

// TryAcquire reserves n bytes. Returns false if the ceiling would be
// exceeded. Unbounded budgets always succeed.
func (b *Budget) TryAcquire(n int64) bool {
	if n <= 0 {
		return true
	}
	if b.sem != nil && !b.sem.TryAcquire(n) {
		return false
	}
	used := b.used.Add(n)
	b.checkWarning(used)
	return true
}

// Release returns n bytes to the budget.
func (b *Budget) Release(n int64) {
	if n <= 0 {
		return
	}
	if b.sem != nil {
		b.sem.Release(n)
	}
	used := b.used.Add(-n)
	b.checkWarning(used)
}

// Used returns the number of bytes currently reserved.
func (b *Budget) Used() int64 {
	return b.used.Load()
}

// Max returns the configured ceiling, 0 if unbounded.
func (b *Budget) Max() int64 {
	if b.maxBytes <= 0 {
		return 0
	}
	return b.maxBytes
}

// Unbounded returns true if no ceiling is enforced.
func (b *Budget) Unbounded() bool {
	return b.maxBytes <= 0
}

// PercentUsed returns usage as a percentage of the ceiling, 0 if unbounded.
func (b *Budget) PercentUsed() float64 {
	if b.maxBytes <= 0 {
		return 0
	}
	return float64(b.used.Load()) / float64(b.maxBytes) * 100
}

func (b *Budget) checkWarning(used int64) {
	if b.maxBytes <= 0 || b.opts.OnWarning == nil {
		return
	}
	threshold := int64(float64(b.maxBytes) * b.opts.WarningThreshold)

	b.warnMu.Lock()
	defer b.warnMu.Unlock()

	switch {
	case used >= threshold && !b.warned:
		b.warned = true
		b.opts.OnWarning(used, b.maxBytes)
	case used < threshold && b.warned:
		b.warned = false
	}
}
