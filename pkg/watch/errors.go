package watch

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

// Registration errors. Returned errors wrap one of these with the offending
// path; test with errors.Is.
var (
	// ErrPathNotFound is returned when neither the path nor its parent
	// directory exists.
	ErrPathNotFound = errors.New("path not found")

	// ErrDirectoryNotFound is returned when the directory to watch does not
	// exist.
	ErrDirectoryNotFound = errors.New("directory not found")

	// ErrAccessDenied is returned when the process may not watch the
	// directory.
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidPath is returned for empty, relative or malformed aliases,
	// aliases that look like short file names, and directories passed where
	// a file is required.
	ErrInvalidPath = errors.New("invalid path")

	// ErrResourceLimitExceeded is returned when the OS has no more watch
	// slots.
	ErrResourceLimitExceeded = errors.New("watch resource limit exceeded")

	// ErrWatchOpenFailed is returned for any other failure to open a watch.
	ErrWatchOpenFailed = errors.New("failed to open watch")

	// ErrStopped is returned by registrations after Stop has begun.
	ErrStopped = errors.New("watch manager is stopped")
)

// classifyOpenError maps a native open failure to a registration error.
func classifyOpenError(err error, dir string) error {
	var sentinel error
	switch {
	case errors.Is(err, os.ErrNotExist), errors.Is(err, syscall.ENOTDIR):
		sentinel = ErrDirectoryNotFound
	case errors.Is(err, os.ErrPermission):
		sentinel = ErrAccessDenied
	case errors.Is(err, syscall.ENOSPC), errors.Is(err, syscall.EMFILE), errors.Is(err, syscall.ENFILE):
		sentinel = ErrResourceLimitExceeded
	default:
		sentinel = ErrWatchOpenFailed
	}
	return fmt.Errorf("%w: %s: %v", sentinel, dir, err)
}

func invalidPath(alias, reason string) error {
	return fmt.Errorf("%w: %q: %s", ErrInvalidPath, alias, reason)
}
