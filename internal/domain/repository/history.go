package repository

import (
	"context"

	"github.com/kiwix/kiwix-reader/internal/domain/entity"
)

// HistoryRepository stores the page-visit log.
type HistoryRepository interface {
	Save(ctx context.Context, entry *entity.HistoryEntry) error
	Recent(ctx context.Context, limit int) ([]*entity.HistoryEntry, error)
	DeleteAll(ctx context.Context) error
}
