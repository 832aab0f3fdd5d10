// Package audit records security-relevant failures of the change
// notification engine.
//
// Watches that cannot be opened because of missing permissions or because
// the OS ran out of watch slots are reported to the host as audit events.
// Events are persisted in a BoltDB bucket keyed by sequence number so an
// operator can list them after the fact.
//
// Example usage:
//
//	store, err := audit.Open(audit.Config{
//	    DBPath: "~/.config/filechange/audit.db",
//	}, logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	events, err := store.List(20)
package audit

import "time"

// Kind classifies an audit event.
type Kind string

const (
	// KindAccessDenied: the process lacked permission to watch a path.
	KindAccessDenied Kind = "access_denied"

	// KindResourceLimit: the OS had no more watch slots available.
	KindResourceLimit Kind = "resource_limit"
)

// Event is one recorded failure.
type Event struct {
	// Seq is assigned by the store when the event is recorded.
	Seq uint64 `json:"seq"`

	Time  time.Time `json:"time"`
	Kind  Kind      `json:"kind"`
	Path  string    `json:"path"`
	Alias string    `json:"alias,omitempty"`
	Error string    `json:"error,omitempty"`
}

// Recorder accepts audit events.
type Recorder interface {
	Record(ev Event) error
}

// Store records and lists audit events.
type Store interface {
	Recorder

	// List returns up to limit events, newest first. limit <= 0 returns
	// every event.
	List(limit int) ([]Event, error)

	// Close releases the store.
	Close() error
}

// Config configures the BoltDB store.
type Config struct {
	// DBPath is the database file. A leading "~" expands to the home
	// directory.
	DBPath string

	// Timeout bounds how long Open waits for the file lock. Default: 1s.
	Timeout time.Duration
}
