package audit

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/0xmhha/filechange/pkg/logger"
)

var bucketEvents = []byte("events") // big-endian seq -> Event

// boltStore implements Store using BoltDB.
type boltStore struct {
	mu     sync.RWMutex
	db     *bolt.DB
	logger logger.Logger
}

// Open opens or creates the audit database.
func Open(cfg Config, log logger.Logger) (Store, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Second
	}

	dbPath := expandHome(cfg.DBPath)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		if _, createErr := tx.CreateBucketIfNotExists(bucketEvents); createErr != nil {
			return fmt.Errorf("failed to create events bucket: %w", createErr)
		}
		return nil
	}); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("failed to close database after initialization error",
				"error", closeErr)
		}
		return nil, err
	}

	log.Debug("audit store opened", "db_path", dbPath)

	return &boltStore{db: db, logger: log}, nil
}

// Record implements Store.Record.
func (s *boltStore) Record(ev Event) error {
	if ev.Kind == "" || ev.Path == "" {
		return ErrInvalidEvent
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ErrStoreClosed
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		events := tx.Bucket(bucketEvents)

		seq, err := events.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to allocate sequence: %w", err)
		}
		ev.Seq = seq

		data, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}

		if err := events.Put(seqKey(seq), data); err != nil {
			return fmt.Errorf("failed to store event: %w", err)
		}

		s.logger.Info("audit event recorded",
			"kind", string(ev.Kind),
			"path", ev.Path,
			"seq", seq)

		return nil
	})
}

// List implements Store.List.
func (s *boltStore) List(limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrStoreClosed
	}

	var events []Event
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketEvents).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(events) >= limit {
				break
			}
			var ev Event
			if err := json.Unmarshal(v, &ev); err != nil {
				return fmt.Errorf("failed to unmarshal event %d: %w", binary.BigEndian.Uint64(k), err)
			}
			events = append(events, ev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Close implements Store.Close.
func (s *boltStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func seqKey(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

// expandHome expands a leading ~ to the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	return filepath.Join(homeDir, path[2:])
}
