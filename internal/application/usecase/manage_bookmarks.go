package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/kiwix/kiwix-reader/internal/domain/entity"
	"github.com/kiwix/kiwix-reader/internal/domain/repository"
	"github.com/kiwix/kiwix-reader/internal/logging"
)

// ManageBookmarksUseCase handles bookmark toggling and lookups.
type ManageBookmarksUseCase struct {
	repo repository.BookmarkRepository
}

// NewManageBookmarksUseCase creates a new bookmarks use case.
func NewManageBookmarksUseCase(repo repository.BookmarkRepository) *ManageBookmarksUseCase {
	return &ManageBookmarksUseCase{repo: repo}
}

// IsBookmarked reports whether url of sourceID is bookmarked.
func (uc *ManageBookmarksUseCase) IsBookmarked(ctx context.Context, sourceID entity.SourceID, url string) (bool, error) {
	if sourceID == "" || url == "" {
		return false, nil
	}
	ok, err := uc.repo.IsBookmarked(ctx, sourceID, url)
	if err != nil {
		return false, fmt.Errorf("failed to check bookmark: %w", err)
	}
	return ok, nil
}

// Toggle adds the bookmark if missing and removes it otherwise. It returns
// the new bookmarked state.
func (uc *ManageBookmarksUseCase) Toggle(ctx context.Context, sourceID entity.SourceID, url, title string) (bool, error) {
	log := logging.FromContext(ctx)

	if sourceID == "" || url == "" {
		return false, fmt.Errorf("cannot bookmark without an open page")
	}

	exists, err := uc.IsBookmarked(ctx, sourceID, url)
	if err != nil {
		return false, err
	}

	if exists {
		if err := uc.repo.Delete(ctx, sourceID, url); err != nil {
			return true, fmt.Errorf("failed to remove bookmark: %w", err)
		}
		log.Info().Str("url", logging.TruncateURL(url, 80)).Msg("bookmark removed")
		return false, nil
	}

	bm := &entity.Bookmark{SourceID: sourceID, URL: url, Title: title, CreatedAt: time.Now()}
	if err := uc.repo.Save(ctx, bm); err != nil {
		return false, fmt.Errorf("failed to save bookmark: %w", err)
	}
	log.Info().Str("url", logging.TruncateURL(url, 80)).Msg("bookmark added")
	return true, nil
}

// List returns every bookmark of sourceID.
func (uc *ManageBookmarksUseCase) List(ctx context.Context, sourceID entity.SourceID) ([]*entity.Bookmark, error) {
	items, err := uc.repo.ListBySource(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	return items, nil
}
