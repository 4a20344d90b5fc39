package paths

import (
	"os"
	"path/filepath"
)

const (
	// AppName is the application name used in XDG directories
	AppName = "ctgov"
)

// DataDir returns the XDG data directory for ctgov.
// Priority: $XDG_DATA_HOME/ctgov -> ~/.local/share/ctgov
func DataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, AppName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", AppName)
}

// ConfigDir returns the XDG config directory for ctgov.
// Priority: $XDG_CONFIG_HOME/ctgov -> ~/.config/ctgov
func ConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, AppName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", AppName)
}

// DatabasePath returns the default database file path.
// Returns: $XDG_DATA_HOME/ctgov/ctgov.db or ~/.local/share/ctgov/ctgov.db
func DatabasePath() string {
	return filepath.Join(DataDir(), "ctgov.db")
}

// BackupDir returns the default backup directory.
func BackupDir() string {
	return filepath.Join(DataDir(), "backups")
}

// ConfigFilePath returns the default config file path in XDG config dir.
// Returns: $XDG_CONFIG_HOME/ctgov/config.yaml or ~/.config/ctgov/config.yaml
func ConfigFilePath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	return os.MkdirAll(ConfigDir(), 0755)
}

// EnsureBackupDir creates the backup directory if it doesn't exist.
func EnsureBackupDir() error {
	return os.MkdirAll(BackupDir(), 0755)
}
