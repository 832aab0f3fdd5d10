package audit

import (
	"sync"
	"time"
)

// memoryStore keeps events in process memory.
type memoryStore struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

// NewMemory returns a Store that does not persist anything.
func NewMemory() Store {
	return &memoryStore{}
}

func (s *memoryStore) Record(ev Event) error {
	if ev.Kind == "" || ev.Path == "" {
		return ErrInvalidEvent
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	ev.Seq = uint64(len(s.events) + 1)
	s.events = append(s.events, ev)
	return nil
}

func (s *memoryStore) List(limit int) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	var out []Event
	for i := len(s.events) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, s.events[i])
	}
	return out, nil
}

func (s *memoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
