package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true, "disabled": true,
}

// validateConfig performs comprehensive validation of configuration values
func validateConfig(config *Config) error {
	var validationErrors []string

	validationErrors = append(validationErrors, validateLogging(config)...)
	validationErrors = append(validationErrors, validateSession(config)...)
	validationErrors = append(validationErrors, validateReader(config)...)
	validationErrors = append(validationErrors, validateLibrary(config)...)
	validationErrors = append(validationErrors, validateMetrics(config)...)

	if len(validationErrors) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(validationErrors, "\n  - "))
	}
	return nil
}

func validateLogging(config *Config) []string {
	var validationErrors []string
	if config.Logging.Level != "" && !validLogLevels[config.Logging.Level] {
		validationErrors = append(validationErrors, fmt.Sprintf("logging.level %q is not one of trace, debug, info, warn, error, disabled", config.Logging.Level))
	}
	if f := config.Logging.Format; f != "" && f != "console" && f != "json" {
		validationErrors = append(validationErrors, fmt.Sprintf("logging.format %q must be console or json", f))
	}
	return validationErrors
}

func validateSession(config *Config) []string {
	var validationErrors []string
	if config.Session.SnapshotIntervalMs < 0 {
		validationErrors = append(validationErrors, "session.snapshot_interval_ms must be non-negative")
	}
	if config.Session.UndoWindowMs < 0 {
		validationErrors = append(validationErrors, "session.undo_window_ms must be non-negative")
	}
	return validationErrors
}

func validateReader(config *Config) []string {
	var validationErrors []string
	if config.Reader.MaxSurfaces < 0 {
		validationErrors = append(validationErrors, "reader.max_surfaces must be non-negative (0 = unlimited)")
	}
	if config.Reader.ClusterCacheMB < 1 {
		validationErrors = append(validationErrors, "reader.cluster_cache_mb must be at least 1")
	}
	return validationErrors
}

func validateLibrary(config *Config) []string {
	var validationErrors []string
	for _, p := range config.Library.Patterns {
		if !doublestar.ValidatePattern(p) {
			validationErrors = append(validationErrors, fmt.Sprintf("library.patterns: invalid glob %q", p))
		}
	}
	return validationErrors
}

func validateMetrics(config *Config) []string {
	if config.Metrics.Addr == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(config.Metrics.Addr); err != nil {
		return []string{fmt.Sprintf("metrics.addr %q: %v", config.Metrics.Addr, err)}
	}
	return nil
}
