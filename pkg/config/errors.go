package config

import "errors"

// Common errors returned by the config package.
var (
	// ErrInvalidWatchMode is returned when the watch mode is not recognized.
	ErrInvalidWatchMode = errors.New("invalid watch mode: must be default, disabled, or single")

	// ErrAppRootRequired is returned when the application root is missing
	// in single mode, or is not absolute.
	ErrAppRootRequired = errors.New("invalid app root: must be an absolute path (required in single mode)")

	// ErrInvalidBufferSize is returned when buffer size is 0.
	ErrInvalidBufferSize = errors.New("invalid buffer size: must be > 0")

	// ErrInvalidPollInterval is returned when poll interval is <= 0.
	ErrInvalidPollInterval = errors.New("invalid poll interval: must be > 0")

	// ErrInvalidStaleAccessWindow is returned when the window is negative.
	ErrInvalidStaleAccessWindow = errors.New("invalid stale access window: must be >= 0")

	// ErrNoAuditPath is returned when auditing is enabled without a database path.
	ErrNoAuditPath = errors.New("audit enabled but no database path specified")

	// ErrInvalidAuditTimeout is returned when audit timeout is <= 0.
	ErrInvalidAuditTimeout = errors.New("invalid audit timeout: must be > 0")

	// ErrInvalidDisplayFormat is returned when display format is not recognized.
	ErrInvalidDisplayFormat = errors.New("invalid display format: must be table, json, or simple")

	// ErrInvalidLogLevel is returned when log level is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level: must be debug, info, warn, or error")

	// ErrInvalidLogFormat is returned when log format is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")

	// ErrConfigNotFound is returned when config file is not found.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrInvalidYAML is returned when config file has invalid YAML syntax.
	ErrInvalidYAML = errors.New("invalid YAML syntax in config file")
)
