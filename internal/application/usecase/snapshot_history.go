package usecase

import (
	"context"
	"fmt"

	"github.com/kiwix/kiwix-reader/internal/domain/entity"
	"github.com/kiwix/kiwix-reader/internal/domain/repository"
	"github.com/kiwix/kiwix-reader/internal/logging"
)

// SnapshotHistoryUseCase persists the navigation history of every open tab.
type SnapshotHistoryUseCase struct {
	repo repository.SnapshotRepository
}

// NewSnapshotHistoryUseCase creates a new snapshot use case.
func NewSnapshotHistoryUseCase(repo repository.SnapshotRepository) *SnapshotHistoryUseCase {
	return &SnapshotHistoryUseCase{repo: repo}
}

// Execute replaces the stored snapshot with snap. An empty snapshot clears
// storage so a later restore finds nothing.
func (uc *SnapshotHistoryUseCase) Execute(ctx context.Context, snap *entity.NavigationHistorySnapshot) error {
	log := logging.FromContext(ctx)

	if snap.IsEmpty() {
		if err := uc.repo.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear snapshot: %w", err)
		}
		log.Debug().Msg("snapshot cleared, no tabs open")
		return nil
	}

	if snap.Version == 0 {
		snap.Version = entity.SnapshotVersion
	}
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("refusing to save snapshot: %w", err)
	}

	// Only one archive's tabs are ever open at a time.
	if err := uc.repo.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear snapshot: %w", err)
	}
	if err := uc.repo.Save(ctx, snap); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	log.Debug().
		Str("source_id", string(snap.SourceID)).
		Int("tabs", snap.TabCount()).
		Int("current", snap.CurrentTabIndex).
		Msg("snapshot saved")
	return nil
}
