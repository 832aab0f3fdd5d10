package config

import (
	"os"
	"path/filepath"
)

// defaultWellKnownDirs returns the application root subdirectories that
// single mode maps back to their own entry.
func defaultWellKnownDirs() []string {
	return []string{
		"bin",
		"App_Code",
		"App_GlobalResources",
		"App_LocalResources",
		"App_Browsers",
		"App_WebReferences",
	}
}

// defaultAuditDBPath returns the default audit database file path.
//
// Returns: ~/.config/filechange/audit.db.
func defaultAuditDBPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./audit.db"
	}

	return filepath.Join(homeDir, ".config", "filechange", "audit.db")
}

// DefaultConfigPath returns the default configuration file path.
//
// Returns: ~/.config/filechange/config.yaml.
func DefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./config.yaml"
	}

	return filepath.Join(homeDir, ".config", "filechange", "config.yaml")
}
