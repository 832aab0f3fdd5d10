package native

import (
	"context"
	"sync/atomic"
	"time"
)

// bufferGrowthFactor multiplies the event buffer after the first overflow.
const bufferGrowthFactor = 8

// Tracker counts the open completions of one engine and holds the event
// buffer size used for new subscriptions.
type Tracker struct {
	open       atomic.Int64
	bufferSize atomic.Uint64
	grown      atomic.Bool
}

// NewTracker creates a tracker with the initial event buffer size.
func NewTracker(bufferSize uint) *Tracker {
	t := &Tracker{}
	t.bufferSize.Store(uint64(bufferSize))
	return t
}

// Open returns the number of completions that have not yet delivered Dispose.
func (t *Tracker) Open() int64 {
	return t.open.Load()
}

// BufferSize returns the buffer size for new subscriptions.
func (t *Tracker) BufferSize() uint {
	return uint(t.bufferSize.Load())
}

// GrowBuffer enlarges the buffer once. It reports whether this call grew it.
// Subscriptions that are already open keep their size.
func (t *Tracker) GrowBuffer() bool {
	if !t.grown.CompareAndSwap(false, true) {
		return false
	}
	size := t.bufferSize.Load()
	if size == 0 {
		size = 1
	}
	t.bufferSize.Store(size * bufferGrowthFactor)
	return true
}

// WaitClosed polls until every completion has delivered Dispose or ctx ends.
func (t *Tracker) WaitClosed(ctx context.Context, poll time.Duration) error {
	for t.open.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(poll):
		}
	}
	return nil
}
