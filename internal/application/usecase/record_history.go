package usecase

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/kiwix/kiwix-reader/internal/domain/entity"
	"github.com/kiwix/kiwix-reader/internal/domain/repository"
	"github.com/kiwix/kiwix-reader/internal/logging"
)

const defaultRecentLimit = 50

// RecordHistoryUseCase stores finished page loads in the visit history.
type RecordHistoryUseCase struct {
	repo repository.HistoryRepository
	now  func() time.Time
}

// NewRecordHistoryUseCase creates a new history use case.
func NewRecordHistoryUseCase(repo repository.HistoryRepository) *RecordHistoryUseCase {
	return &RecordHistoryUseCase{repo: repo, now: time.Now}
}

// RecordInput describes a finished page load.
type RecordInput struct {
	SourceID entity.SourceID
	URL      string
	Title    string
}

// Execute records a visit. Loads without an archive or URL are ignored.
func (uc *RecordHistoryUseCase) Execute(ctx context.Context, input RecordInput) (*entity.HistoryEntry, error) {
	if input.SourceID == "" || input.URL == "" {
		return nil, nil
	}

	entry := entity.NewHistoryEntry(input.SourceID, canonicalHistoryURL(input.URL), input.Title, uc.now())
	if err := uc.repo.Save(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to record history: %w", err)
	}

	logging.FromContext(ctx).Debug().
		Str("url", logging.TruncateURL(entry.URL, 80)).
		Str("date", entry.DateLabel).
		Msg("history recorded")
	return entry, nil
}

// Recent returns the most recent visits, newest first.
func (uc *RecordHistoryUseCase) Recent(ctx context.Context, limit int) ([]*entity.HistoryEntry, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	entries, err := uc.repo.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return entries, nil
}

// Clear removes every recorded visit.
func (uc *RecordHistoryUseCase) Clear(ctx context.Context) error {
	if err := uc.repo.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	logging.FromContext(ctx).Info().Msg("history cleared")
	return nil
}

// canonicalHistoryURL drops the fragment so in-page anchors do not create
// separate entries.
func canonicalHistoryURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Fragment == "" {
		return raw
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}
