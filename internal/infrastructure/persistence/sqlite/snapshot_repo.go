package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/kiwix/kiwix-reader/internal/domain/entity"
	"github.com/kiwix/kiwix-reader/internal/domain/repository"
	"github.com/kiwix/kiwix-reader/internal/logging"
)

// Tab blobs are JSON back/forward lists and compress well.
var (
	payloadEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	payloadDecoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
)

type snapshotRepo struct {
	db *sql.DB
}

// NewSnapshotRepository creates a new SQLite-backed snapshot repository.
func NewSnapshotRepository(db *sql.DB) repository.SnapshotRepository {
	return &snapshotRepo{db: db}
}

func (r *snapshotRepo) Save(ctx context.Context, snap *entity.NavigationHistorySnapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	payload := payloadEncoder.EncodeAll(raw, nil)

	savedAt := snap.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO navigation_snapshots (source_id, source_path, version, tab_count, current_tab, payload, saved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id) DO UPDATE SET
			source_path = excluded.source_path,
			version     = excluded.version,
			tab_count   = excluded.tab_count,
			current_tab = excluded.current_tab,
			payload     = excluded.payload,
			saved_at    = excluded.saved_at`,
		string(snap.SourceID), snap.SourcePath, snap.Version, snap.TabCount(),
		snap.CurrentTabIndex, payload, savedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	logging.FromContext(ctx).Debug().
		Str("source_id", string(snap.SourceID)).
		Int("raw_bytes", len(raw)).
		Int("stored_bytes", len(payload)).
		Msg("snapshot stored")
	return nil
}

func (r *snapshotRepo) Load(ctx context.Context) (*entity.NavigationHistorySnapshot, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT payload FROM navigation_snapshots ORDER BY saved_at DESC LIMIT 1`)
	return scanSnapshot(row)
}

func (r *snapshotRepo) LoadForSource(ctx context.Context, sourceID entity.SourceID) (*entity.NavigationHistorySnapshot, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT payload FROM navigation_snapshots WHERE source_id = ?`, string(sourceID))
	return scanSnapshot(row)
}

func (r *snapshotRepo) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM navigation_snapshots`); err != nil {
		return fmt.Errorf("clear snapshots: %w", err)
	}
	return nil
}

func scanSnapshot(row *sql.Row) (*entity.NavigationHistorySnapshot, error) {
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	raw, err := payloadDecoder.DecodeAll(payload, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: decompress: %w", repository.ErrSnapshotCorrupt, err)
	}
	var snap entity.NavigationHistorySnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", repository.ErrSnapshotCorrupt, err)
	}
	return &snap, nil
}
