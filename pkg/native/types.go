// Package native bridges one OS-level directory change subscription into the
// change notification engine.
//
// A Completion owns exactly one Subscription (an fsnotify watcher in
// production). It reads raw events on its own goroutine, stamps every batch
// of events that were already buffered together with one completion time,
// translates them into event.Actions and hands them to its Handler.
//
// Teardown is two-phase. RequestClose stops new raw callbacks from starting
// and closes the subscription without interrupting a callback that is
// already running. Once the reader goroutine has exited the completion
// delivers event.Dispose to the handler, drops its handler reference and
// decrements the Tracker. Only after Dispose may the owner forget the
// completion.
package native

import (
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/0xmhha/filechange/pkg/event"
	"github.com/0xmhha/filechange/pkg/logger"
)

// Subscription is an OS-level change subscription.
type Subscription interface {
	// Add starts watching a directory.
	Add(path string) error
	// Events delivers raw events. It is closed when the subscription closes.
	Events() <-chan fsnotify.Event
	// Errors delivers watcher errors. It is closed when the subscription
	// closes.
	Errors() <-chan error
	// Close releases the subscription.
	Close() error
}

// Opener creates a Subscription whose event buffer holds bufferSize events.
type Opener func(bufferSize uint) (Subscription, error)

// Handler receives raw changes. name is relative to the watched directory
// ("" for directory-wide actions). The final call for a completion always
// carries event.Dispose.
type Handler func(c *Completion, action event.Action, name string, completion time.Time)

// Options configures a Completion.
type Options struct {
	// Recursive watches every directory beneath the root.
	Recursive bool

	// Open creates the subscription. Default: FSNotify.
	Open Opener

	// Impersonate wraps every handler call in the host's identity context.
	// Default: call directly.
	Impersonate func(fn func())

	// Clock stamps completions. Default: time.Now.
	Clock func() time.Time

	// Tracker counts open completions and holds the buffer size. Required.
	Tracker *Tracker

	Logger logger.Logger
}

// maxBatch bounds how many already-buffered events share one completion time.
const maxBatch = 256
