package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kiwix/kiwix-reader/internal/domain/entity"
	"github.com/kiwix/kiwix-reader/internal/domain/repository"
	"github.com/kiwix/kiwix-reader/internal/logging"
)

const logURLMaxLen = 60

type historyRepo struct {
	db *sql.DB
}

// NewHistoryRepository creates a new SQLite-backed history repository.
func NewHistoryRepository(db *sql.DB) repository.HistoryRepository {
	return &historyRepo{db: db}
}

// Save records a visit. Visiting the same page of the same archive twice on
// one day keeps a single entry with the latest time.
func (r *historyRepo) Save(ctx context.Context, entry *entity.HistoryEntry) error {
	logging.FromContext(ctx).Debug().
		Str("url", logging.TruncateURL(entry.URL, logURLMaxLen)).
		Msg("saving history entry")

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO history (source_id, url, title, date_label, visited_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source_id, url, date_label) DO UPDATE SET
			title      = excluded.title,
			visited_at = excluded.visited_at`,
		string(entry.SourceID), entry.URL, entry.Title, entry.DateLabel, entry.VisitedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil && entry.ID == 0 {
		entry.ID = id
	}
	return nil
}

func (r *historyRepo) Recent(ctx context.Context, limit int) ([]*entity.HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, source_id, url, title, date_label, visited_at
		FROM history
		ORDER BY visited_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*entity.HistoryEntry
	for rows.Next() {
		var (
			e       entity.HistoryEntry
			source  string
			visited int64
		)
		if err := rows.Scan(&e.ID, &source, &e.URL, &e.Title, &e.DateLabel, &visited); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.SourceID = entity.SourceID(source)
		e.VisitedAt = time.Unix(0, visited)
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (r *historyRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM history`); err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	return nil
}
