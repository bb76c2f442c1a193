package config

import (
	"os"
	"path/filepath"
)

const (
	appName      = "kiwix-reader"
	databaseName = "kiwix-reader.sqlite"

	dirPerm  = 0o755
	filePerm = 0o644
)

// XDGDirs holds the XDG Base Directory paths for the application.
type XDGDirs struct {
	ConfigHome string
	DataHome   string
	StateHome  string
}

// GetXDGDirs returns the XDG Base Directory paths:
// - $XDG_CONFIG_HOME/kiwix-reader (default: ~/.config/kiwix-reader)
// - $XDG_DATA_HOME/kiwix-reader (default: ~/.local/share/kiwix-reader)
// - $XDG_STATE_HOME/kiwix-reader (default: ~/.local/state/kiwix-reader)
func GetXDGDirs() (*XDGDirs, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	dir := func(env string, fallback ...string) string {
		base := os.Getenv(env)
		if base == "" {
			base = filepath.Join(append([]string{homeDir}, fallback...)...)
		}
		return filepath.Join(base, appName)
	}

	return &XDGDirs{
		ConfigHome: dir("XDG_CONFIG_HOME", ".config"),
		DataHome:   dir("XDG_DATA_HOME", ".local", "share"),
		StateHome:  dir("XDG_STATE_HOME", ".local", "state"),
	}, nil
}

// GetConfigDir returns the XDG config directory.
func GetConfigDir() (string, error) {
	dirs, err := GetXDGDirs()
	if err != nil {
		return "", err
	}
	return dirs.ConfigHome, nil
}

// GetConfigFile returns the path to the main configuration file.
func GetConfigFile() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// GetDatabaseFile returns the path to the database in the data directory.
func GetDatabaseFile() (string, error) {
	dirs, err := GetXDGDirs()
	if err != nil {
		return "", err
	}
	return filepath.Join(dirs.DataHome, databaseName), nil
}

// GetLogFile returns the default log file in the state directory.
func GetLogFile() (string, error) {
	dirs, err := GetXDGDirs()
	if err != nil {
		return "", err
	}
	return filepath.Join(dirs.StateHome, "logs", appName+".log"), nil
}

// EnsureDirectories creates the XDG directories if they don't exist.
func EnsureDirectories() error {
	dirs, err := GetXDGDirs()
	if err != nil {
		return err
	}
	for _, dir := range []string{dirs.ConfigHome, dirs.DataHome, dirs.StateHome} {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return err
		}
	}
	return nil
}
