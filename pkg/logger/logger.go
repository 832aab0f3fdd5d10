// Package logger provides structured logging for the change notification
// engine and its host.
//
// Loggers are scoped per component with Named, so that every record emitted
// by a directory watch or the dispatcher carries a "component" field. Paths
// that can fail repeatedly at runtime (native watch errors, panicking
// subscriber callbacks) log through Throttled so a misbehaving directory
// cannot flood the output.
//
// Example usage:
//
//	log := logger.New(logger.Config{Level: "debug", Format: "json"})
//	dirLog := log.Named("directory").With("dir", "/srv/app")
//	dirLog.Debug("entry added", "name", "web.config")
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Logger provides structured logging with levels and fields.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})

	// With returns a new logger with additional context fields.
	With(keysAndValues ...interface{}) Logger

	// Named returns a logger tagged with the given component name.
	Named(component string) Logger
}

// Config contains logger configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string

	// Output is the destination (stdout, stderr, or file path).
	Output string

	// Format is the output format (text, json).
	Format string
}

// logger implements Logger using slog.
type logger struct {
	slogger *slog.Logger
}

// New creates a logger. Unusable outputs fall back to stderr.
func New(cfg Config) Logger {
	writer, err := getWriter(cfg.Output)
	if err != nil {
		writer = os.Stderr
	}
	return newWithWriter(writer, cfg)
}

func newWithWriter(w io.Writer, cfg Config) Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return &logger{slogger: slog.New(handler)}
}

func (l *logger) Debug(msg string, keysAndValues ...interface{}) {
	l.slogger.Debug(msg, keysAndValues...)
}

func (l *logger) Info(msg string, keysAndValues ...interface{}) {
	l.slogger.Info(msg, keysAndValues...)
}

func (l *logger) Warn(msg string, keysAndValues ...interface{}) {
	l.slogger.Warn(msg, keysAndValues...)
}

func (l *logger) Error(msg string, keysAndValues ...interface{}) {
	l.slogger.Error(msg, keysAndValues...)
}

func (l *logger) With(keysAndValues ...interface{}) Logger {
	return &logger{slogger: l.slogger.With(keysAndValues...)}
}

func (l *logger) Named(component string) Logger {
	return &logger{slogger: l.slogger.With("component", component)}
}

// throttled forwards at most burst records per interval to its parent and
// counts the rest.
type throttled struct {
	parent  Logger
	limiter *rate.Limiter
	dropped *droppedCounter
}

// Throttled wraps l so that at most burst records are emitted per interval.
// Suppressed records are counted and reported as "suppressed" on the next
// record that gets through. Loggers derived with With or Named share the
// same budget.
func Throttled(l Logger, interval time.Duration, burst int) Logger {
	return &throttled{
		parent:  l,
		limiter: rate.NewLimiter(rate.Every(interval), burst),
		dropped: &droppedCounter{},
	}
}

func (t *throttled) emit(fn func(string, ...interface{}), msg string, kv []interface{}) {
	if !t.limiter.Allow() {
		t.dropped.add()
		return
	}
	if n := t.dropped.take(); n > 0 {
		kv = append(kv, "suppressed", n)
	}
	fn(msg, kv...)
}

func (t *throttled) Debug(msg string, kv ...interface{}) { t.emit(t.parent.Debug, msg, kv) }
func (t *throttled) Info(msg string, kv ...interface{})  { t.emit(t.parent.Info, msg, kv) }
func (t *throttled) Warn(msg string, kv ...interface{})  { t.emit(t.parent.Warn, msg, kv) }
func (t *throttled) Error(msg string, kv ...interface{}) { t.emit(t.parent.Error, msg, kv) }

func (t *throttled) With(kv ...interface{}) Logger {
	return &throttled{parent: t.parent.With(kv...), limiter: t.limiter, dropped: t.dropped}
}

func (t *throttled) Named(component string) Logger {
	return &throttled{parent: t.parent.Named(component), limiter: t.limiter, dropped: t.dropped}
}

// parseLevel converts a level name to slog.Level, defaulting to info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// getWriter resolves stdout, stderr (default) or a file opened for append.
func getWriter(output string) (io.Writer, error) {
	switch strings.ToLower(output) {
	case "stdout":
		return os.Stdout, nil
	case "stderr", "":
		return os.Stderr, nil
	default:
		// #nosec G304: output path comes from trusted config
		f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600) // nolint:gosec
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", output, err)
		}
		return f, nil
	}
}

// Default returns an info-level text logger on stderr.
func Default() Logger {
	return New(Config{
		Level:  "info",
		Output: "stderr",
		Format: "text",
	})
}

// Noop returns a logger that discards all records.
func Noop() Logger {
	return newWithWriter(io.Discard, Config{})
}
