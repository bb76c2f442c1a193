package config

// Default values used when the configuration leaves a key unset.
const (
	defaultSnapshotIntervalMs = 1500
	defaultUndoWindowMs       = 4000
	defaultMaxSurfaces        = 16
	defaultClusterCacheMB     = 16
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Session: SessionConfig{
			SnapshotIntervalMs: defaultSnapshotIntervalMs,
			UndoWindowMs:       defaultUndoWindowMs,
			RestoreOnStartup:   true,
		},
		Reader: ReaderConfig{
			MaxSurfaces:     defaultMaxSurfaces,
			HomePageOnClose: false,
			ClusterCacheMB:  defaultClusterCacheMB,
		},
		Library: LibraryConfig{
			Dirs:     []string{},
			Patterns: []string{"**/*.zim", "**/*.zimaa"},
		},
	}
}
