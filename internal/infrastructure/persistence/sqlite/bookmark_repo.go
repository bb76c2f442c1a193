package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kiwix/kiwix-reader/internal/domain/entity"
	"github.com/kiwix/kiwix-reader/internal/domain/repository"
)

type bookmarkRepo struct {
	db *sql.DB
}

// NewBookmarkRepository creates a new SQLite-backed bookmark repository.
func NewBookmarkRepository(db *sql.DB) repository.BookmarkRepository {
	return &bookmarkRepo{db: db}
}

func (r *bookmarkRepo) Save(ctx context.Context, b *entity.Bookmark) error {
	created := b.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO bookmarks (source_id, url, title, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(source_id, url) DO UPDATE SET title = excluded.title`,
		string(b.SourceID), b.URL, b.Title, created.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("save bookmark: %w", err)
	}
	return nil
}

func (r *bookmarkRepo) Delete(ctx context.Context, sourceID entity.SourceID, url string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM bookmarks WHERE source_id = ? AND url = ?`, string(sourceID), url)
	if err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	return nil
}

func (r *bookmarkRepo) IsBookmarked(ctx context.Context, sourceID entity.SourceID, url string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM bookmarks WHERE source_id = ? AND url = ?`, string(sourceID), url).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check bookmark: %w", err)
	}
	return n > 0, nil
}

func (r *bookmarkRepo) ListBySource(ctx context.Context, sourceID entity.SourceID) ([]*entity.Bookmark, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT url, title, created_at FROM bookmarks
		WHERE source_id = ?
		ORDER BY created_at DESC`, string(sourceID))
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*entity.Bookmark
	for rows.Next() {
		b := &entity.Bookmark{SourceID: sourceID}
		var created int64
		if err := rows.Scan(&b.URL, &b.Title, &created); err != nil {
			return nil, fmt.Errorf("scan bookmark: %w", err)
		}
		b.CreatedAt = time.Unix(0, created)
		out = append(out, b)
	}
	return out, rows.Err()
}
