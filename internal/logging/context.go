package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// FromContext extracts the logger from context
// If no logger is found, returns a disabled logger (no-op)
func FromContext(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return logger.WithContext(ctx)
}

// WithComponent creates a child logger with a component field
func WithComponent(ctx context.Context, component string) context.Context {
	return withStr(ctx, "component", component)
}

// WithTabID creates a child logger with a tab_id field
func WithTabID(ctx context.Context, tabID string) context.Context {
	return withStr(ctx, "tab_id", tabID)
}

// WithSourceID creates a child logger with a source_id field
func WithSourceID(ctx context.Context, sourceID string) context.Context {
	return withStr(ctx, "source_id", sourceID)
}

func withStr(ctx context.Context, key, value string) context.Context {
	logger := FromContext(ctx)
	child := logger.With().Str(key, value).Logger()
	return WithContext(ctx, child)
}

// TruncateURL shortens long URLs for log output.
func TruncateURL(u string, maxLen int) string {
	if maxLen <= 3 || len(u) <= maxLen {
		return u
	}
	return u[:maxLen-3] + "..."
}
