package native

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/0xmhha/filechange/pkg/event"
	"github.com/0xmhha/filechange/pkg/logger"
)

// Completion is one open directory change subscription.
type Completion struct {
	dir       string
	recursive bool

	sub         Subscription
	impersonate func(func())
	clock       func() time.Time
	tracker     *Tracker
	logger      logger.Logger

	// handler is the bridge into the owner. It is dropped after Dispose.
	mu      sync.Mutex
	handler Handler

	closing   atomic.Bool
	closeOnce sync.Once
	closeErr  error
	stop      chan struct{}
	done      chan struct{}
}

// Open subscribes to changes under dir. If the OS refuses the subscription
// the error is returned before any reader goroutine starts.
func Open(dir string, handler Handler, opts Options) (*Completion, error) {
	if opts.Tracker == nil {
		return nil, errors.New("native: tracker is required")
	}
	if opts.Open == nil {
		opts.Open = FSNotify
	}
	if opts.Impersonate == nil {
		opts.Impersonate = func(fn func()) { fn() }
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logger.Noop()
	}
	dir = filepath.Clean(dir)

	sub, err := opts.Open(opts.Tracker.BufferSize())
	if err != nil {
		return nil, fmt.Errorf("open subscription: %w", err)
	}
	if err := sub.Add(dir); err != nil {
		_ = sub.Close() // nolint:errcheck
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	c := &Completion{
		dir:         dir,
		recursive:   opts.Recursive,
		sub:         sub,
		impersonate: opts.Impersonate,
		clock:       opts.Clock,
		tracker:     opts.Tracker,
		logger:      opts.Logger.With("dir", dir),
		handler:     handler,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}

	if c.recursive {
		c.addSubdirectories(dir)
	}

	c.tracker.open.Add(1)
	go c.run()

	c.logger.Debug("completion opened",
		"recursive", c.recursive,
		"buffer_size", c.tracker.BufferSize())

	return c, nil
}

// Dir returns the watched directory.
func (c *Completion) Dir() string {
	return c.dir
}

// Recursive reports whether subdirectories are watched.
func (c *Completion) Recursive() bool {
	return c.recursive
}

// Done is closed after Dispose has been delivered.
func (c *Completion) Done() <-chan struct{} {
	return c.done
}

// Closing reports whether RequestClose has been called.
func (c *Completion) Closing() bool {
	return c.closing.Load()
}

// RequestClose stops new raw callbacks from starting and closes the
// subscription. It is safe to call concurrently and from within the handler;
// only the first call closes anything. It does not wait for an in-flight
// callback.
func (c *Completion) RequestClose() error {
	c.closeOnce.Do(func() {
		c.closing.Store(true)
		close(c.stop)
		c.closeErr = c.sub.Close()
		if c.closeErr != nil {
			c.logger.Warn("subscription close failed", "error", c.closeErr)
		}
	})
	return c.closeErr
}

// run is the reader goroutine. All raw callbacks happen here, so once it
// returns none can be in flight.
func (c *Completion) run() {
	defer c.confirmClosed()

	events := c.sub.Events()
	errs := c.sub.Errors()

	for {
		select {
		case <-c.stop:
			return

		case ev, ok := <-events:
			if !ok {
				return
			}
			batch, open := c.collectBatch(events, ev)
			c.deliverBatch(batch, c.clock())
			if !open {
				return
			}

		case err, ok := <-errs:
			if !ok {
				return
			}
			c.deliverError(err)
		}
	}
}

// collectBatch gathers events that are already buffered behind first.
func (c *Completion) collectBatch(events <-chan fsnotify.Event, first fsnotify.Event) ([]fsnotify.Event, bool) {
	batch := []fsnotify.Event{first}
	for len(batch) < maxBatch {
		select {
		case ev, ok := <-events:
			if !ok {
				return batch, false
			}
			batch = append(batch, ev)
		default:
			return batch, true
		}
	}
	return batch, true
}

func (c *Completion) deliverBatch(batch []fsnotify.Event, at time.Time) {
	renamePending := false

	for _, ev := range batch {
		name, self := c.relativeName(ev.Name)

		if self {
			if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				c.call(event.Error, "", at)
			}
			continue
		}

		var action event.Action
		switch {
		case ev.Has(fsnotify.Create):
			action = event.Added
			if renamePending {
				action = event.RenamedNewName
				renamePending = false
			}
			if c.recursive {
				c.addSubdirectories(ev.Name)
			}
		case ev.Has(fsnotify.Remove):
			action = event.Removed
		case ev.Has(fsnotify.Rename):
			action = event.RenamedOldName
			renamePending = true
		case ev.Has(fsnotify.Write), ev.Has(fsnotify.Chmod):
			action = event.Modified
		default:
			continue
		}

		c.call(action, name, at)
	}
}

func (c *Completion) deliverError(err error) {
	action := event.Error
	if errors.Is(err, fsnotify.ErrEventOverflow) {
		action = event.Overwhelming
	}
	c.logger.Warn("subscription error",
		"error", err,
		"action", action.String())
	c.call(action, "", c.clock())
}

// call invokes the handler unless closing has begun.
func (c *Completion) call(action event.Action, name string, at time.Time) {
	if c.closing.Load() {
		return
	}

	c.mu.Lock()
	h := c.handler
	c.mu.Unlock()
	if h == nil {
		return
	}

	c.impersonate(func() { h(c, action, name, at) })
}

// confirmClosed delivers the terminal Dispose and releases the bridge.
func (c *Completion) confirmClosed() {
	_ = c.RequestClose() // nolint:errcheck

	c.mu.Lock()
	h := c.handler
	c.handler = nil
	c.mu.Unlock()

	if h != nil {
		c.impersonate(func() { h(c, event.Dispose, "", c.clock()) })
	}

	c.tracker.open.Add(-1)
	close(c.done)

	c.logger.Debug("completion disposed")
}

// relativeName maps an absolute event path to a name relative to the root.
// self is true for events on the root itself.
func (c *Completion) relativeName(path string) (name string, self bool) {
	if filepath.Clean(path) == c.dir {
		return "", true
	}
	if !c.recursive {
		return filepath.Base(path), false
	}
	rel, err := filepath.Rel(c.dir, path)
	if err != nil {
		return filepath.Base(path), false
	}
	return rel, false
}

// addSubdirectories watches path and every directory beneath it. Failures
// are logged and skipped.
func (c *Completion) addSubdirectories(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}

	_ = filepath.WalkDir(path, func(sub string, d os.DirEntry, err error) error { // nolint:errcheck
		if err != nil {
			c.logger.Debug("walk failed", "path", sub, "error", err)
			return nil
		}
		if !d.IsDir() || sub == c.dir {
			return nil
		}
		if addErr := c.sub.Add(sub); addErr != nil {
			c.logger.Warn("failed to watch subdirectory",
				"path", sub,
				"error", addErr)
		}
		return nil
	})
}
