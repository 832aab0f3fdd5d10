package native

import (
	"errors"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// fakeSubscription implements Subscription with test-controlled channels.
type fakeSubscription struct {
	mu     sync.Mutex
	added  []string
	addErr error
	closed int

	events chan fsnotify.Event
	errors chan error
}

func newFakeSubscription() *fakeSubscription {
	return &fakeSubscription{
		events: make(chan fsnotify.Event, 64),
		errors: make(chan error, 4),
	}
}

func (f *fakeSubscription) opener(openErr error) Opener {
	return func(uint) (Subscription, error) {
		if openErr != nil {
			return nil, openErr
		}
		return f, nil
	}
}

func (f *fakeSubscription) Add(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, path)
	return nil
}

func (f *fakeSubscription) Events() <-chan fsnotify.Event { return f.events }
func (f *fakeSubscription) Errors() <-chan error          { return f.errors }

func (f *fakeSubscription) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	if f.closed > 1 {
		return errors.New("closed twice")
	}
	return nil
}

func (f *fakeSubscription) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeSubscription) addedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.added...)
}
