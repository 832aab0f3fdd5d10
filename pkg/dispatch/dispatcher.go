// Package dispatch delivers change notifications to subscriber callbacks.
//
// Native completions arrive on arbitrary goroutines and must never run
// subscriber code directly. They enqueue Items on a Dispatcher instead; a
// single worker goroutine drains the queue in FIFO order and invokes the
// callbacks. At most one worker runs at any time.
package dispatch

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/0xmhha/filechange/pkg/event"
	"github.com/0xmhha/filechange/pkg/logger"
)

// Item is one pending notification.
type Item struct {
	Callback event.Callback
	Action   event.Action
	Alias    string
}

// Stats is a point-in-time view of the dispatcher.
type Stats struct {
	Pending   int   `json:"pending"`
	InFlight  int64 `json:"in_flight"`
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
}

// Dispatcher is an unbounded FIFO queue with an at-most-one-drainer guard.
// The queue lock is independent of any directory lock.
type Dispatcher struct {
	mu    sync.Mutex
	queue []Item

	draining  atomic.Bool
	inFlight  atomic.Int64
	delivered atomic.Int64
	failed    atomic.Int64

	logger logger.Logger
}

// New creates a dispatcher. log should be throttled: a panicking callback
// logs once per delivery.
func New(log logger.Logger) *Dispatcher {
	return &Dispatcher{logger: log}
}

// Enqueue appends items and starts a worker if none is draining.
func (d *Dispatcher) Enqueue(items ...Item) {
	if len(items) == 0 {
		return
	}

	d.mu.Lock()
	d.queue = append(d.queue, items...)
	d.mu.Unlock()

	if d.draining.CompareAndSwap(false, true) {
		go d.drain()
	}
}

// drain runs until the queue is observed empty after the guard is released.
func (d *Dispatcher) drain() {
	for {
		for {
			item, ok := d.dequeue()
			if !ok {
				break
			}
			d.invoke(item)
		}

		d.draining.Store(false)

		// An item may have been added after the queue looked empty but
		// before the guard was released; its Enqueue saw draining == true.
		if d.Pending() == 0 || !d.draining.CompareAndSwap(false, true) {
			return
		}
	}
}

func (d *Dispatcher) dequeue() (Item, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.queue) == 0 {
		return Item{}, false
	}

	item := d.queue[0]
	d.queue[0] = Item{}
	d.queue = d.queue[1:]
	if len(d.queue) == 0 {
		d.queue = nil
	}
	return item, true
}

func (d *Dispatcher) invoke(item Item) {
	d.inFlight.Add(1)
	defer d.inFlight.Add(-1)

	defer func() {
		if r := recover(); r != nil {
			d.failed.Add(1)
			d.logger.Error("notification callback panicked",
				"alias", item.Alias,
				"action", item.Action.String(),
				"panic", fmt.Sprint(r))
		}
	}()

	item.Callback.OnFileChange(item.Action, item.Alias)
	d.delivered.Add(1)
}

// Pending returns the number of queued items.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// InFlight returns the number of callbacks currently executing.
func (d *Dispatcher) InFlight() int64 {
	return d.inFlight.Load()
}

// Idle reports whether nothing is queued, running or about to run.
func (d *Dispatcher) Idle() bool {
	return d.Pending() == 0 && !d.draining.Load() && d.inFlight.Load() == 0
}

// Stats returns current counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Pending:   d.Pending(),
		InFlight:  d.InFlight(),
		Delivered: d.delivered.Load(),
		Failed:    d.failed.Load(),
	}
}
