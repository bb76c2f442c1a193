package repository

import (
	"context"

	"github.com/kiwix/kiwix-reader/internal/domain/entity"
)

// SnapshotRepository persists navigation history snapshots, one per archive.
type SnapshotRepository interface {
	// Save saves or replaces the snapshot of the snapshot's archive.
	Save(ctx context.Context, snapshot *entity.NavigationHistorySnapshot) error

	// Load returns the most recently saved snapshot, or nil if none exists.
	Load(ctx context.Context) (*entity.NavigationHistorySnapshot, error)

	// LoadForSource returns the snapshot of one archive, or nil if none exists.
	LoadForSource(ctx context.Context, sourceID entity.SourceID) (*entity.NavigationHistorySnapshot, error)

	// Clear removes every stored snapshot.
	Clear(ctx context.Context) error
}
