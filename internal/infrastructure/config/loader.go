package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// Manager handles configuration loading, watching, and reloading.
type Manager struct {
	config         *Config
	viper          *viper.Viper
	mu             sync.RWMutex
	callbacks      []func(*Config)
	watching       bool
	skipNextReload bool
}

// NewManager creates a new configuration manager.
func NewManager() (*Manager, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")

	configDir, err := GetConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to determine config directory: %w\nCheck XDG_CONFIG_HOME environment variable or HOME directory", err)
	}
	v.AddConfigPath(configDir)

	// KIWIX_DATABASE_PATH, KIWIX_SESSION_UNDO_WINDOW_MS, ...
	v.SetEnvPrefix("KIWIX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("logging.level", "KIWIX_LOG_LEVEL"); err != nil {
		return nil, fmt.Errorf("failed to bind KIWIX_LOG_LEVEL: %w", err)
	}
	if err := v.BindEnv("logging.format", "KIWIX_LOG_FORMAT"); err != nil {
		return nil, fmt.Errorf("failed to bind KIWIX_LOG_FORMAT: %w", err)
	}

	return &Manager{
		viper:     v,
		callbacks: make([]func(*Config), 0),
	}, nil
}

// Load loads the configuration from file and environment variables. A
// missing config file is created from the defaults.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to ensure directories: %w", err)
	}

	m.setDefaults()

	if err := m.readConfigFile(); err != nil {
		return err
	}
	return m.apply()
}

func (m *Manager) readConfigFile() error {
	err := m.viper.ReadInConfig()
	if err == nil {
		return nil
	}

	var notFound viper.ConfigFileNotFoundError
	if !errors.As(err, &notFound) {
		configFile := m.viper.ConfigFileUsed()
		if configFile == "" {
			configFile, _ = GetConfigFile()
		}
		return fmt.Errorf("failed to read config file at %s: %w\nCheck the file format (must be valid TOML) and permissions", configFile, err)
	}

	if err := m.createDefaultConfig(); err != nil {
		configDir, _ := GetConfigDir()
		return fmt.Errorf("failed to create default config at %s: %w", configDir, err)
	}
	if err := m.viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read newly created config file: %w", err)
	}
	return nil
}

// apply unmarshals, normalizes and validates viper's current state. Callers
// hold m.mu for write.
func (m *Manager) apply() error {
	config := &Config{}
	if err := m.viper.Unmarshal(config); err != nil {
		return fmt.Errorf("failed to parse config file at %s: %w", m.viper.ConfigFileUsed(), err)
	}
	if err := ensureDefaultPaths(config); err != nil {
		return err
	}
	normalizeConfig(config)

	if err := validateConfig(config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	m.config = config
	return nil
}

func ensureDefaultPaths(config *Config) error {
	if config.Database.Path == "" {
		dbPath, err := GetDatabaseFile()
		if err != nil {
			return fmt.Errorf("failed to get database path: %w", err)
		}
		config.Database.Path = dbPath
	}
	if config.Logging.File == "" {
		logFile, err := GetLogFile()
		if err != nil {
			return fmt.Errorf("failed to get log file: %w", err)
		}
		config.Logging.File = logFile
	}
	return nil
}

func normalizeConfig(config *Config) {
	config.Logging.Level = strings.ToLower(strings.TrimSpace(config.Logging.Level))
	if config.Logging.Level == "warning" {
		config.Logging.Level = "warn"
	}
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	switch strings.ToLower(strings.TrimSpace(config.Logging.Format)) {
	case "json":
		config.Logging.Format = "json"
	default:
		config.Logging.Format = "console"
	}

	config.Database.Path = expandHome(strings.TrimSpace(config.Database.Path))
	config.Logging.File = expandHome(strings.TrimSpace(config.Logging.File))

	dirs := config.Library.Dirs[:0]
	for _, d := range config.Library.Dirs {
		if d = strings.TrimSpace(d); d != "" {
			dirs = append(dirs, expandHome(d))
		}
	}
	config.Library.Dirs = dirs
	if len(config.Library.Patterns) == 0 {
		config.Library.Patterns = DefaultConfig().Library.Patterns
	}

	config.Metrics.Addr = strings.TrimSpace(config.Metrics.Addr)
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// Get returns the current configuration (thread-safe).
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return DefaultConfig()
	}
	configCopy := *m.config
	configCopy.Library.Dirs = append([]string(nil), m.config.Library.Dirs...)
	configCopy.Library.Patterns = append([]string(nil), m.config.Library.Patterns...)
	return &configCopy
}

// Save validates cfg and writes it to the config file.
func (m *Manager) Save(cfg *Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if err := validateConfig(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	path := m.viper.ConfigFileUsed()
	if path == "" {
		var err error
		if path, err = GetConfigFile(); err != nil {
			return err
		}
	}
	if err := WriteConfigOrdered(cfg, path); err != nil {
		return err
	}

	if m.watching {
		m.skipNextReload = true
	}
	if err := m.viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to re-read config: %w", err)
	}
	return m.apply()
}

// GetConfigFile returns the path to the configuration file being used.
func (m *Manager) GetConfigFile() string {
	return m.viper.ConfigFileUsed()
}

func (m *Manager) createDefaultConfig() error {
	configFile, err := GetConfigFile()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(configFile), dirPerm); err != nil {
		return err
	}
	return WriteConfigOrdered(DefaultConfig(), configFile)
}

// setDefaults sets default configuration values in Viper.
func (m *Manager) setDefaults() {
	defaults := DefaultConfig()

	// Database.Path and Logging.File are resolved in apply.
	m.viper.SetDefault("logging.level", defaults.Logging.Level)
	m.viper.SetDefault("logging.format", defaults.Logging.Format)

	m.viper.SetDefault("session.snapshot_interval_ms", defaults.Session.SnapshotIntervalMs)
	m.viper.SetDefault("session.undo_window_ms", defaults.Session.UndoWindowMs)
	m.viper.SetDefault("session.restore_on_startup", defaults.Session.RestoreOnStartup)

	m.viper.SetDefault("reader.max_surfaces", defaults.Reader.MaxSurfaces)
	m.viper.SetDefault("reader.home_page_on_close", defaults.Reader.HomePageOnClose)
	m.viper.SetDefault("reader.cluster_cache_mb", defaults.Reader.ClusterCacheMB)

	m.viper.SetDefault("library.dirs", defaults.Library.Dirs)
	m.viper.SetDefault("library.patterns", defaults.Library.Patterns)

	m.viper.SetDefault("metrics.addr", defaults.Metrics.Addr)
}
