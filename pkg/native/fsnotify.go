package native

import (
	"github.com/fsnotify/fsnotify"
)

// fsnotifySubscription adapts *fsnotify.Watcher to Subscription.
type fsnotifySubscription struct {
	w *fsnotify.Watcher
}

// FSNotify opens an fsnotify watcher with the given event buffer.
func FSNotify(bufferSize uint) (Subscription, error) {
	w, err := fsnotify.NewBufferedWatcher(bufferSize)
	if err != nil {
		return nil, err
	}
	return &fsnotifySubscription{w: w}, nil
}

func (s *fsnotifySubscription) Add(path string) error         { return s.w.Add(path) }
func (s *fsnotifySubscription) Events() <-chan fsnotify.Event { return s.w.Events }
func (s *fsnotifySubscription) Errors() <-chan error          { return s.w.Errors }
func (s *fsnotifySubscription) Close() error                  { return s.w.Close() }
