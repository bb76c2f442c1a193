package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiwix/kiwix-reader/internal/domain/entity"
	"github.com/kiwix/kiwix-reader/internal/domain/repository"
	"github.com/kiwix/kiwix-reader/internal/infrastructure/persistence/sqlite"
	"github.com/kiwix/kiwix-reader/internal/logging"
)

func testCtx() context.Context {
	logger := logging.NewFromConfigValues("debug", "console")
	return logging.WithContext(context.Background(), logger)
}

func openTestDB(t *testing.T) (context.Context, *sql.DB) {
	t.Helper()
	ctx := testCtx()
	db, err := sqlite.NewConnection(ctx, filepath.Join(t.TempDir(), "reader.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return ctx, db
}

func TestSnapshotRepository_RoundTripsCompressedPayload(t *testing.T) {
	ctx, db := openTestDB(t)
	repo := sqlite.NewSnapshotRepository(db)

	snap := &entity.NavigationHistorySnapshot{
		Version:         entity.SnapshotVersion,
		SourceID:        "wiki",
		SourcePath:      "/data/wiki.zim",
		PerTabBlobs:     [][]byte{[]byte(`{"entries":["a"]}`), []byte(`{"entries":["b","c"]}`)},
		ScrollPositions: []int{0, 512},
		CurrentTabIndex: 1,
		SavedAt:         time.Now(),
	}
	require.NoError(t, repo.Save(ctx, snap))

	got, err := repo.LoadForSource(ctx, "wiki")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, snap.PerTabBlobs, got.PerTabBlobs)
	assert.Equal(t, snap.ScrollPositions, got.ScrollPositions)
	assert.Equal(t, 1, got.CurrentTabIndex)
	assert.Equal(t, "/data/wiki.zim", got.SourcePath)

	missing, err := repo.LoadForSource(ctx, "other")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSnapshotRepository_LoadReturnsMostRecent(t *testing.T) {
	ctx, db := openTestDB(t)
	repo := sqlite.NewSnapshotRepository(db)

	base := time.Now()
	for i, id := range []entity.SourceID{"old", "new"} {
		require.NoError(t, repo.Save(ctx, &entity.NavigationHistorySnapshot{
			Version:         entity.SnapshotVersion,
			SourceID:        id,
			PerTabBlobs:     [][]byte{[]byte("x")},
			ScrollPositions: []int{0},
			SavedAt:         base.Add(time.Duration(i) * time.Minute),
		}))
	}

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.SourceID("new"), got.SourceID)

	require.NoError(t, repo.Clear(ctx))
	got, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSnapshotRepository_CorruptPayload(t *testing.T) {
	ctx, db := openTestDB(t)
	repo := sqlite.NewSnapshotRepository(db)

	_, err := db.ExecContext(ctx, `INSERT INTO navigation_snapshots
		(source_id, source_path, version, tab_count, current_tab, payload, saved_at)
		VALUES ('wiki', '/w.zim', 1, 1, 0, x'00010203', 1)`)
	require.NoError(t, err)

	_, err = repo.Load(ctx)
	require.ErrorIs(t, err, repository.ErrSnapshotCorrupt)
}

func TestHistoryRepository_DedupesSameDayVisits(t *testing.T) {
	ctx, db := openTestDB(t)
	repo := sqlite.NewHistoryRepository(db)

	morning := time.Date(2025, 3, 7, 9, 0, 0, 0, time.Local)
	evening := morning.Add(9 * time.Hour)
	nextDay := morning.Add(24 * time.Hour)

	require.NoError(t, repo.Save(ctx, entity.NewHistoryEntry("wiki", "https://kiwix.app/A/Paris", "Paris", morning)))
	require.NoError(t, repo.Save(ctx, entity.NewHistoryEntry("wiki", "https://kiwix.app/A/Paris", "Paris (city)", evening)))
	require.NoError(t, repo.Save(ctx, entity.NewHistoryEntry("wiki", "https://kiwix.app/A/Paris", "Paris", nextDay)))
	require.NoError(t, repo.Save(ctx, entity.NewHistoryEntry("wiki", "https://kiwix.app/A/Rome", "Rome", evening.Add(-time.Hour))))

	entries, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "8 Mar 2025", entries[0].DateLabel)
	assert.Equal(t, "Paris (city)", entries[1].Title)
	assert.Equal(t, "https://kiwix.app/A/Rome", entries[2].URL)

	limited, err := repo.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	require.NoError(t, repo.DeleteAll(ctx))
	entries, err = repo.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBookmarkRepository_SaveCheckDelete(t *testing.T) {
	ctx, db := openTestDB(t)
	repo := sqlite.NewBookmarkRepository(db)

	ok, err := repo.IsBookmarked(ctx, "wiki", "https://kiwix.app/A/Paris")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Save(ctx, &entity.Bookmark{SourceID: "wiki", URL: "https://kiwix.app/A/Paris", Title: "Paris"}))
	require.NoError(t, repo.Save(ctx, &entity.Bookmark{SourceID: "other", URL: "https://kiwix.app/A/Paris", Title: "Paris"}))

	ok, err = repo.IsBookmarked(ctx, "wiki", "https://kiwix.app/A/Paris")
	require.NoError(t, err)
	assert.True(t, ok)

	list, err := repo.ListBySource(ctx, "wiki")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Paris", list[0].Title)

	require.NoError(t, repo.Delete(ctx, "wiki", "https://kiwix.app/A/Paris"))
	ok, err = repo.IsBookmarked(ctx, "wiki", "https://kiwix.app/A/Paris")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.IsBookmarked(ctx, "other", "https://kiwix.app/A/Paris")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewConnection_InMemory(t *testing.T) {
	ctx := testCtx()
	db, err := sqlite.NewConnection(ctx, ":memory:")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	version, err := sqlite.GetMigrationStatus(db)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
}
