package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables read by the loader.
const (
	EnvConfig   = "FILECHANGE_CONFIG"
	EnvMode     = "FILECHANGE_MODE"
	EnvAppRoot  = "FILECHANGE_APP_ROOT"
	EnvAuditDB  = "FILECHANGE_AUDIT_DB"
	EnvLogLevel = "FILECHANGE_LOG_LEVEL"
)

// Loader provides methods for loading configuration from various sources.
type Loader interface {
	// Load loads configuration with the following precedence:
	// 1. Environment variables
	// 2. Configuration file
	// 3. Default values
	//
	// Returns the merged configuration or an error if validation fails.
	Load() (*Config, error)

	// LoadFromFile loads configuration from a specific file.
	LoadFromFile(path string) (*Config, error)

	// ConfigPath returns the file Load reads, or "" if there is none.
	ConfigPath() string
}

// loader implements the Loader interface.
type loader struct {
	configPath string
}

// NewLoader creates a new configuration loader.
//
// If configPath is empty, FILECHANGE_CONFIG is used, then the first existing
// file of:
// 1. ./filechange.yaml (current directory)
// 2. ~/.config/filechange/config.yaml.
func NewLoader(configPath string) Loader {
	if configPath == "" {
		configPath = os.Getenv(EnvConfig)
	}
	return &loader{
		configPath: configPath,
	}
}

// Load implements Loader.Load.
func (l *loader) Load() (*Config, error) {
	cfg := Default()

	configPath := l.ConfigPath()

	if configPath != "" {
		fileCfg, err := l.LoadFromFile(configPath)
		if err != nil {
			// An explicitly named file must load.
			if l.configPath != "" {
				return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
			}
		} else {
			cfg = l.mergeConfigs(cfg, fileCfg)
		}
	}

	cfg = l.applyEnvVars(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFromFile implements Loader.LoadFromFile.
func (l *loader) LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) // nolint:gosec
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return &cfg, nil
}

// ConfigPath implements Loader.ConfigPath.
func (l *loader) ConfigPath() string {
	if l.configPath != "" {
		return l.configPath
	}
	return l.findConfigFile()
}

// findConfigFile searches for a config file in standard locations.
//
// Returns empty string if no config file is found.
func (l *loader) findConfigFile() string {
	candidates := []string{
		"./filechange.yaml",
		DefaultConfigPath(),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// mergeConfigs merges file configuration into default configuration.
//
// File values override defaults, but only if they are set.
func (l *loader) mergeConfigs(base, override *Config) *Config {
	result := *base

	// Merge watch config
	if override.Watch.Mode != "" {
		result.Watch.Mode = strings.ToLower(override.Watch.Mode)
	}
	if override.Watch.AppRoot != "" {
		result.Watch.AppRoot = override.Watch.AppRoot
	}
	if len(override.Watch.WellKnownDirs) > 0 {
		result.Watch.WellKnownDirs = override.Watch.WellKnownDirs
	}
	if override.Watch.BufferSize > 0 {
		result.Watch.BufferSize = override.Watch.BufferSize
	}
	if override.Watch.PollInterval > 0 {
		result.Watch.PollInterval = override.Watch.PollInterval
	}

	// Merge significance config
	if override.Significance.StaleAccessWindow != 0 {
		result.Significance.StaleAccessWindow = override.Significance.StaleAccessWindow
	}
	if override.Significance.MidnightHeuristic != nil {
		result.Significance.MidnightHeuristic = override.Significance.MidnightHeuristic
	}

	// Merge audit config
	if override.Audit.Enabled != nil {
		result.Audit.Enabled = override.Audit.Enabled
	}
	if override.Audit.DBPath != "" {
		result.Audit.DBPath = override.Audit.DBPath
	}
	if override.Audit.Timeout > 0 {
		result.Audit.Timeout = override.Audit.Timeout
	}

	// Merge display config
	if override.Display.Format != "" {
		result.Display.Format = override.Display.Format
	}

	// Merge logging config
	if override.Logging.Level != "" {
		result.Logging.Level = override.Logging.Level
	}
	if override.Logging.Output != "" {
		result.Logging.Output = override.Logging.Output
	}
	if override.Logging.Format != "" {
		result.Logging.Format = override.Logging.Format
	}

	return &result
}

// applyEnvVars applies environment variable overrides to the configuration.
//
// Supported environment variables:
//   - FILECHANGE_MODE: Watch mode
//   - FILECHANGE_APP_ROOT: Application root
//   - FILECHANGE_AUDIT_DB: Path to audit database file
//   - FILECHANGE_LOG_LEVEL: Log level
func (l *loader) applyEnvVars(cfg *Config) *Config {
	result := *cfg

	if mode := os.Getenv(EnvMode); mode != "" {
		result.Watch.Mode = strings.ToLower(strings.TrimSpace(mode))
	}

	if root := os.Getenv(EnvAppRoot); root != "" {
		result.Watch.AppRoot = strings.TrimSpace(root)
	}

	if dbPath := os.Getenv(EnvAuditDB); dbPath != "" {
		result.Audit.DBPath = dbPath
	}

	if logLevel := os.Getenv(EnvLogLevel); logLevel != "" {
		result.Logging.Level = strings.ToLower(logLevel)
	}

	return &result
}

// Load is a convenience function that creates a loader and loads configuration.
//
// Equivalent to:
//
//	loader := NewLoader("")
//	return loader.Load()
func Load() (*Config, error) {
	return NewLoader("").Load()
}

// LoadFromFile is a convenience function that loads configuration from a file.
//
// Equivalent to:
//
//	loader := NewLoader(path)
//	return loader.Load()
func LoadFromFile(path string) (*Config, error) {
	return NewLoader(path).Load()
}

// Save writes the configuration to a YAML file.
//
// Creates parent directories if they don't exist.
// File is created with 0600 permissions (read/write for owner only).
func Save(cfg *Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
