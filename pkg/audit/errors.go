package audit

import "errors"

var (
	// ErrStoreClosed is returned when the store has been closed.
	ErrStoreClosed = errors.New("audit store is closed")

	// ErrInvalidEvent is returned for an event without kind or path.
	ErrInvalidEvent = errors.New("invalid audit event")
)
