// Package config loads the reader configuration from TOML, the environment
// and built-in defaults.
package config

// Config is the complete reader configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database" toml:"database" json:"database"`
	Logging  LoggingConfig  `mapstructure:"logging" toml:"logging" json:"logging"`
	Session  SessionConfig  `mapstructure:"session" toml:"session" json:"session"`
	Reader   ReaderConfig   `mapstructure:"reader" toml:"reader" json:"reader"`
	Library  LibraryConfig  `mapstructure:"library" toml:"library" json:"library"`
	Metrics  MetricsConfig  `mapstructure:"metrics" toml:"metrics" json:"metrics"`
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	// Path of the SQLite file; empty means the XDG data directory.
	Path string `mapstructure:"path" toml:"path" json:"path" jsonschema:"description=SQLite database file (defaults to the XDG data directory)"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" toml:"level" json:"level" jsonschema:"enum=trace,enum=debug,enum=info,enum=warn,enum=error,enum=disabled"`
	Format string `mapstructure:"format" toml:"format" json:"format" jsonschema:"enum=console,enum=json"`
	// File receives logs while the interactive reader owns the terminal.
	File string `mapstructure:"file" toml:"file" json:"file" jsonschema:"description=Log file used by the interactive reader (defaults to the XDG state directory)"`
}

// SessionConfig controls tab persistence.
type SessionConfig struct {
	SnapshotIntervalMs int  `mapstructure:"snapshot_interval_ms" toml:"snapshot_interval_ms" json:"snapshot_interval_ms" jsonschema:"minimum=0,description=Debounce before a tab snapshot is written"`
	UndoWindowMs       int  `mapstructure:"undo_window_ms" toml:"undo_window_ms" json:"undo_window_ms" jsonschema:"minimum=0,description=How long a closed tab can be restored"`
	RestoreOnStartup   bool `mapstructure:"restore_on_startup" toml:"restore_on_startup" json:"restore_on_startup"`
}

// ReaderConfig controls tab and rendering behaviour.
type ReaderConfig struct {
	MaxSurfaces     int  `mapstructure:"max_surfaces" toml:"max_surfaces" json:"max_surfaces" jsonschema:"minimum=0,description=Maximum live tabs (0 = unlimited)"`
	HomePageOnClose bool `mapstructure:"home_page_on_close" toml:"home_page_on_close" json:"home_page_on_close" jsonschema:"description=Open the main page after the last tab is closed"`
	ClusterCacheMB  int  `mapstructure:"cluster_cache_mb" toml:"cluster_cache_mb" json:"cluster_cache_mb" jsonschema:"minimum=1,description=Decompressed archive data kept in memory"`
}

// LibraryConfig tells the library scan where to look for archives.
type LibraryConfig struct {
	Dirs     []string `mapstructure:"dirs" toml:"dirs" json:"dirs"`
	Patterns []string `mapstructure:"patterns" toml:"patterns" json:"patterns" jsonschema:"description=Doublestar globs relative to each directory"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is a listen address such as "127.0.0.1:9464"; empty disables it.
	Addr string `mapstructure:"addr" toml:"addr" json:"addr"`
}
