// Package config provides configuration management for filechange.
//
// Configuration is loaded from multiple sources with the following precedence:
// 1. Command-line flags (highest priority)
// 2. Environment variables
// 3. Configuration file
// 4. Default values (lowest priority)
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Watch mode: %s\n", cfg.Watch.Mode)
package config

import (
	"path/filepath"
	"time"

	"github.com/0xmhha/filechange/pkg/significance"
)

// Config represents the complete application configuration.
//
// Invariants:
// - Watch.Mode is default, disabled or single
// - Watch.AppRoot is absolute when Watch.Mode is single
// - Watch.BufferSize and Watch.PollInterval must be > 0
// - Significance.StaleAccessWindow must be >= 0
// - Audit.DBPath is set when auditing is enabled.
type Config struct {
	// Watch engine settings
	Watch WatchConfig `yaml:"watch"`

	// Significance filter thresholds
	Significance SignificanceConfig `yaml:"significance"`

	// Audit event storage
	Audit AuditConfig `yaml:"audit"`

	// Display settings
	Display DisplayConfig `yaml:"display"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging"`
}

// WatchConfig contains watch engine settings.
type WatchConfig struct {
	// Watch mode (default, disabled, single)
	Mode string `yaml:"mode"`

	// Application root; "~/" aliases are relative to it
	AppRoot string `yaml:"app_root"`

	// Subdirectories of the root that map back to their own entry in
	// single mode
	WellKnownDirs []string `yaml:"well_known_dirs"`

	// Initial native event buffer, in events
	BufferSize uint `yaml:"buffer_size"`

	// Sleep between checks while shutting down
	PollInterval time.Duration `yaml:"poll_interval"`
}

// SignificanceConfig tunes the access-time heuristics.
type SignificanceConfig struct {
	// Access times this much older than monitoring start count as stale
	StaleAccessWindow time.Duration `yaml:"stale_access_window"`

	// Treat midnight access times as day-granularity stamps
	MidnightHeuristic *bool `yaml:"midnight_heuristic"`
}

// AuditConfig contains audit store settings.
type AuditConfig struct {
	// Record access-denied and resource-limit failures
	Enabled *bool `yaml:"enabled"`

	// Path to BoltDB database file
	DBPath string `yaml:"db_path"`

	// How long to wait for the database lock
	Timeout time.Duration `yaml:"timeout"`
}

// DisplayConfig contains display-related settings.
type DisplayConfig struct {
	// Output format (table, json, simple)
	Format string `yaml:"format"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level"`

	// Log output destination (stdout, stderr, file path)
	Output string `yaml:"output"`

	// Log format (text, json)
	Format string `yaml:"format"`
}

// AuditEnabled reports whether audit events are recorded.
func (c *Config) AuditEnabled() bool {
	return boolValue(c.Audit.Enabled, true)
}

// Thresholds converts the significance settings.
func (c *Config) Thresholds() significance.Thresholds {
	return significance.Thresholds{
		StaleAccessWindow: c.Significance.StaleAccessWindow,
		MidnightHeuristic: boolValue(c.Significance.MidnightHeuristic, true),
	}
}

// Validate checks if the configuration satisfies all invariants.
//
// Thread-safety: This method is read-only and thread-safe.
func (c *Config) Validate() error {
	validModes := map[string]bool{
		"default":  true,
		"disabled": true,
		"single":   true,
	}
	if !validModes[c.Watch.Mode] {
		return ErrInvalidWatchMode
	}
	if c.Watch.Mode == "single" && !filepath.IsAbs(c.Watch.AppRoot) {
		return ErrAppRootRequired
	}
	if c.Watch.AppRoot != "" && !filepath.IsAbs(c.Watch.AppRoot) {
		return ErrAppRootRequired
	}
	if c.Watch.BufferSize == 0 {
		return ErrInvalidBufferSize
	}
	if c.Watch.PollInterval <= 0 {
		return ErrInvalidPollInterval
	}

	if c.Significance.StaleAccessWindow < 0 {
		return ErrInvalidStaleAccessWindow
	}

	if c.AuditEnabled() {
		if c.Audit.DBPath == "" {
			return ErrNoAuditPath
		}
		if c.Audit.Timeout <= 0 {
			return ErrInvalidAuditTimeout
		}
	}

	validFormats := map[string]bool{
		"table":  true,
		"json":   true,
		"simple": true,
	}
	if !validFormats[c.Display.Format] {
		return ErrInvalidDisplayFormat
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return ErrInvalidLogFormat
	}

	return nil
}

// Default returns a configuration with sensible default values.
func Default() *Config {
	thresholds := significance.DefaultThresholds()
	return &Config{
		Watch: WatchConfig{
			Mode:          "default",
			WellKnownDirs: defaultWellKnownDirs(),
			BufferSize:    64,
			PollInterval:  10 * time.Millisecond,
		},
		Significance: SignificanceConfig{
			StaleAccessWindow: thresholds.StaleAccessWindow,
			MidnightHeuristic: boolPtr(thresholds.MidnightHeuristic),
		},
		Audit: AuditConfig{
			Enabled: boolPtr(true),
			DBPath:  defaultAuditDBPath(),
			Timeout: time.Second,
		},
		Display: DisplayConfig{
			Format: "table",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stderr",
			Format: "text",
		},
	}
}

func boolPtr(b bool) *bool {
	return &b
}

func boolValue(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
