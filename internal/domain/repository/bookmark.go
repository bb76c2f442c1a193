package repository

import (
	"context"

	"github.com/kiwix/kiwix-reader/internal/domain/entity"
)

// BookmarkRepository stores bookmarked articles per archive.
type BookmarkRepository interface {
	Save(ctx context.Context, bookmark *entity.Bookmark) error
	Delete(ctx context.Context, sourceID entity.SourceID, url string) error
	IsBookmarked(ctx context.Context, sourceID entity.SourceID, url string) (bool, error)
	ListBySource(ctx context.Context, sourceID entity.SourceID) ([]*entity.Bookmark, error)
}
