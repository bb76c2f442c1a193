package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/kiwix/kiwix-reader/internal/domain/entity"
	"github.com/kiwix/kiwix-reader/internal/domain/repository"
	"github.com/kiwix/kiwix-reader/internal/logging"
)

// ErrRestoreCorrupted is returned when the stored snapshot exists but cannot
// be used.
var ErrRestoreCorrupted = errors.New("stored navigation history is unusable")

// RestoreHistoryUseCase loads the last persisted navigation snapshot.
type RestoreHistoryUseCase struct {
	repo repository.SnapshotRepository
}

// NewRestoreHistoryUseCase creates a new restore use case.
func NewRestoreHistoryUseCase(repo repository.SnapshotRepository) *RestoreHistoryUseCase {
	return &RestoreHistoryUseCase{repo: repo}
}

// RestoreInput selects which snapshot to load.
type RestoreInput struct {
	// SourceID restricts the lookup to one archive. Empty loads the latest.
	SourceID entity.SourceID
}

// RestoreOutput carries the loaded snapshot. Snapshot is nil when there is
// nothing to restore.
type RestoreOutput struct {
	Snapshot *entity.NavigationHistorySnapshot
}

// Execute loads and validates the snapshot.
func (uc *RestoreHistoryUseCase) Execute(ctx context.Context, input RestoreInput) (*RestoreOutput, error) {
	log := logging.FromContext(ctx)

	var (
		snap *entity.NavigationHistorySnapshot
		err  error
	)
	if input.SourceID != "" {
		snap, err = uc.repo.LoadForSource(ctx, input.SourceID)
	} else {
		snap, err = uc.repo.Load(ctx)
	}
	if err != nil {
		if errors.Is(err, repository.ErrSnapshotCorrupt) {
			return nil, fmt.Errorf("%w: %w", ErrRestoreCorrupted, err)
		}
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	if snap.IsEmpty() {
		log.Debug().Msg("no navigation history to restore")
		return &RestoreOutput{}, nil
	}
	if snap.Version > entity.SnapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrRestoreCorrupted, snap.Version)
	}
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRestoreCorrupted, err)
	}

	log.Debug().
		Str("source_id", string(snap.SourceID)).
		Int("tabs", snap.TabCount()).
		Msg("navigation history loaded")
	return &RestoreOutput{Snapshot: snap}, nil
}
