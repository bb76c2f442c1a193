package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kiwix/kiwix-reader/internal/application/port"
	"github.com/kiwix/kiwix-reader/internal/logging"
)

// ErrSourceUnavailable is returned when an archive cannot be opened.
var ErrSourceUnavailable = errors.New("content source unavailable")

// OpenContentSourceUseCase attaches an archive to the reader.
type OpenContentSourceUseCase struct {
	opener port.ContentSourceOpener
}

// NewOpenContentSourceUseCase creates a new open use case.
func NewOpenContentSourceUseCase(opener port.ContentSourceOpener) *OpenContentSourceUseCase {
	return &OpenContentSourceUseCase{opener: opener}
}

// Execute opens the archive at path.
func (uc *OpenContentSourceUseCase) Execute(ctx context.Context, path string) (port.OpenedSource, error) {
	log := logging.FromContext(ctx)

	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrSourceUnavailable)
	}

	src, err := uc.opener.Open(ctx, path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to open content source")
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}

	meta := src.Source()
	if meta == nil {
		_ = src.Close()
		return nil, fmt.Errorf("%w: %s has no metadata", ErrSourceUnavailable, path)
	}

	log.Info().
		Str("path", path).
		Str("source_id", string(meta.ID)).
		Str("title", meta.Title).
		Uint32("articles", meta.ArticleCount).
		Msg("content source opened")
	return src, nil
}
