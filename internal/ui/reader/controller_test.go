package reader_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiwix/kiwix-reader/internal/application/port"
	"github.com/kiwix/kiwix-reader/internal/application/usecase"
	"github.com/kiwix/kiwix-reader/internal/domain/entity"
	"github.com/kiwix/kiwix-reader/internal/ui/reader"
)

func tabIDs(st entity.ReaderUIState) []entity.TabID {
	ids := make([]entity.TabID, 0, len(st.Tabs))
	for _, tab := range st.Tabs {
		ids = append(ids, tab.ID)
	}
	return ids
}

func TestController_OpenWithoutSnapshot_SynthesizesMainPageTab(t *testing.T) {
	h := newHarness(t, reader.Options{})

	st := h.open(t, wikiSource)

	assert.Equal(t, entity.PhaseOpen, st.Phase)
	assert.False(t, st.NoBookOpen)
	assert.Equal(t, 1, st.TabCount)
	assert.Equal(t, 0, st.CurrentTabIndex)
	assert.Equal(t, wikiSource.MainPageURL, st.URL)
	assert.Equal(t, "Wikipedia", st.SourceTitle)
	assert.False(t, st.Loading)
}

func TestController_OpenMissingSource_ReturnsToClosedWithMessage(t *testing.T) {
	h := newHarness(t, reader.Options{})

	h.ctrl.OpenContentSource(h.ctx, "/nope.zim")
	st := h.settle(t)

	assert.Equal(t, entity.PhaseClosed, st.Phase)
	assert.True(t, st.NoBookOpen)
	assert.NotEmpty(t, st.Message)
	assert.Zero(t, st.TabCount)
	assert.Zero(t, h.factory.count())
}

func TestController_CloseCurrentTab_DecrementsCurrentIndex(t *testing.T) {
	h := newHarness(t, reader.Options{})
	h.open(t, wikiSource)

	h.ctrl.NewTab("A/One")
	h.ctrl.NewTab("A/Two")
	h.ctrl.SelectTab(1)
	st := h.settle(t)
	require.Equal(t, 3, st.TabCount)
	require.Equal(t, 1, st.CurrentTabIndex)

	h.ctrl.CloseTab(1)
	st = h.settle(t)

	assert.Equal(t, 2, st.TabCount)
	assert.Equal(t, 0, st.CurrentTabIndex)
	assert.True(t, st.UndoAvailable)

	closed := h.factory.created[1]
	assert.Positive(t, closed.stopped)
	assert.False(t, closed.IsDestroyed())
}

func TestController_CloseTab_StaleIndexIsNoop(t *testing.T) {
	h := newHarness(t, reader.Options{})
	h.open(t, wikiSource)

	h.ctrl.CloseTab(5)
	h.ctrl.CloseTab(-1)
	st := h.settle(t)

	assert.Equal(t, 1, st.TabCount)
	assert.False(t, st.UndoAvailable)
}

func TestController_RestoreDeletedTab_ReinsertsAtSameIndex(t *testing.T) {
	h := newHarness(t, reader.Options{})
	h.open(t, wikiSource)
	h.ctrl.NewTab("A/One")
	h.ctrl.NewTab("A/Two")
	before := tabIDs(h.settle(t))

	h.ctrl.CloseTab(1)
	h.settle(t)
	h.ctrl.RestoreDeletedTab()
	st := h.settle(t)

	assert.Equal(t, before, tabIDs(st))
	assert.Equal(t, 1, st.CurrentTabIndex)
	assert.False(t, st.UndoAvailable)
}

func TestController_CloseAllThenUndo_RestoresExactTabList(t *testing.T) {
	h := newHarness(t, reader.Options{})
	h.open(t, wikiSource)
	h.ctrl.NewTab("A/One")
	h.ctrl.NewTab("A/Two")
	h.ctrl.SelectTab(1)
	before := h.settle(t)

	h.ctrl.CloseAllTabs()
	st := h.settle(t)
	require.Equal(t, entity.PhaseClosed, st.Phase)
	require.Zero(t, st.TabCount)
	require.True(t, st.UndoAvailable)

	h.ctrl.RestoreDeletedTabs()
	st = h.settle(t)

	assert.Equal(t, entity.PhaseOpen, st.Phase)
	assert.Equal(t, tabIDs(before), tabIDs(st))
	assert.Equal(t, before.CurrentTabIndex, st.CurrentTabIndex)
	assert.True(t, st.TabSwitcherVisible)
	for _, s := range h.factory.created {
		assert.False(t, s.IsDestroyed())
	}
}

func TestController_CloseAllThenExpiry_ClosesSource(t *testing.T) {
	h := newHarness(t, reader.Options{UndoWindow: 20 * time.Millisecond})
	h.open(t, wikiSource)
	h.ctrl.NewTab("A/One")
	h.settle(t)

	h.ctrl.CloseAllTabs()
	h.settle(t)

	require.Eventually(t, func() bool {
		_ = h.ctrl.Sync(h.ctx)
		return !h.ctrl.State().UndoAvailable
	}, 2*time.Second, 5*time.Millisecond)

	st := h.ctrl.State()
	assert.Equal(t, entity.PhaseClosed, st.Phase)
	for _, s := range h.factory.created {
		assert.True(t, s.IsDestroyed())
	}
	require.Len(t, h.opener.opened, 1)
	assert.True(t, h.opener.opened[0].isClosed())
	assert.Nil(t, h.snapshots.get(), "empty reader leaves nothing to restore")
}

func TestController_CloseLastTab_ClosesAfterUndoDismissed(t *testing.T) {
	h := newHarness(t, reader.Options{})
	h.open(t, wikiSource)

	h.ctrl.CloseTab(0)
	st := h.settle(t)
	assert.Equal(t, entity.PhaseOpen, st.Phase)
	assert.Zero(t, st.TabCount)

	h.ctrl.DismissUndo()
	st = h.settle(t)
	assert.Equal(t, entity.PhaseClosed, st.Phase)
	assert.True(t, st.NoBookOpen)
}

func TestController_HomePageOnClose_OpensFreshTab(t *testing.T) {
	h := newHarness(t, reader.Options{HomePageOnClose: true, HomePageDelay: 10 * time.Millisecond})
	h.open(t, wikiSource)

	h.ctrl.CloseTab(0)
	require.Eventually(t, func() bool {
		_ = h.ctrl.Sync(h.ctx)
		return h.ctrl.State().TabCount == 1
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, wikiSource.MainPageURL, h.ctrl.State().URL)
}

func TestController_StartRestoresSnapshot(t *testing.T) {
	h := newHarness(t, reader.Options{})
	b0 := stateBlob(t, "https://kiwix.app/A/Zero")
	b1 := stateBlob(t, "https://kiwix.app/A/One", "https://kiwix.app/A/One_b")
	require.NoError(t, h.snapshots.Save(h.ctx, &entity.NavigationHistorySnapshot{
		Version:         entity.SnapshotVersion,
		SourceID:        wikiSource.ID,
		SourcePath:      wikiSource.Path,
		PerTabBlobs:     [][]byte{b0, b1},
		ScrollPositions: []int{10, 420},
		CurrentTabIndex: 1,
	}))

	h.ctrl.Start(h.ctx)
	st := h.settle(t)

	require.Equal(t, 2, st.TabCount)
	assert.Equal(t, 1, st.CurrentTabIndex)
	assert.Equal(t, "https://kiwix.app/A/One_b", st.URL)
	assert.True(t, st.CanGoBack)

	require.Equal(t, 2, h.factory.count())
	assert.Equal(t, b0, h.factory.created[0].restored)
	assert.Equal(t, b1, h.factory.created[1].restored)
	assert.Equal(t, 10, h.factory.created[0].ScrollY())
	assert.Equal(t, 420, h.factory.created[1].ScrollY())
}

func TestController_SnapshotRoundTrip(t *testing.T) {
	first := newHarness(t, reader.Options{})
	first.open(t, wikiSource)
	first.ctrl.LoadURL("A/Paris")
	first.ctrl.NewTab("A/Berlin")
	first.settle(t)
	first.factory.created[1].SetScrollY(77)
	require.NoError(t, first.ctrl.Pause(first.ctx))
	saved := first.snapshots.get()
	require.NotNil(t, saved)
	require.Equal(t, 2, saved.TabCount())

	second := newHarness(t, reader.Options{})
	second.snapshots = first.snapshots
	second.ctrl = reader.New(second.ctx, reader.Dependencies{
		Loop:      second.loop,
		Surfaces:  second.factory,
		Opener:    newOpenUseCase(second.opener),
		Restore:   newRestoreUseCase(first.snapshots),
		Snapshots: first.sink,
	})
	second.ctrl.Start(second.ctx)
	st := second.settle(t)

	require.Equal(t, 2, st.TabCount)
	assert.Equal(t, 1, st.CurrentTabIndex)
	assert.Equal(t, "https://kiwix.app/A/Berlin", st.URL)
	assert.Equal(t, 77, second.factory.created[1].ScrollY())

	require.NoError(t, second.ctrl.Pause(second.ctx))
	again := first.snapshots.get()
	assert.Equal(t, saved.PerTabBlobs, again.PerTabBlobs)
	assert.Equal(t, saved.ScrollPositions, again.ScrollPositions)
}

func TestController_CorruptedSnapshot_FallsBackToMainPage(t *testing.T) {
	h := newHarness(t, reader.Options{})
	require.NoError(t, h.snapshots.Save(h.ctx, &entity.NavigationHistorySnapshot{
		Version:         entity.SnapshotVersion,
		SourceID:        wikiSource.ID,
		SourcePath:      wikiSource.Path,
		PerTabBlobs:     [][]byte{stateBlob(t, "https://kiwix.app/A/Ok"), []byte("not json")},
		ScrollPositions: []int{0, 0},
	}))

	h.ctrl.Start(h.ctx)
	st := h.settle(t)

	assert.Equal(t, entity.PhaseOpen, st.Phase)
	assert.Equal(t, 1, st.TabCount)
	assert.Equal(t, wikiSource.MainPageURL, st.URL)
	assert.Empty(t, st.Message)
}

func TestController_StartWithoutSnapshot_StaysClosed(t *testing.T) {
	h := newHarness(t, reader.Options{})

	h.ctrl.Start(h.ctx)
	st := h.settle(t)

	assert.Equal(t, entity.PhaseClosed, st.Phase)
	assert.Zero(t, h.factory.count())
}

func TestController_NavigationQueuedWhileRestoring(t *testing.T) {
	h := newHarness(t, reader.Options{})
	require.NoError(t, h.snapshots.Save(h.ctx, &entity.NavigationHistorySnapshot{
		Version:         entity.SnapshotVersion,
		SourceID:        wikiSource.ID,
		SourcePath:      wikiSource.Path,
		PerTabBlobs:     [][]byte{stateBlob(t, "https://kiwix.app/A/Zero"), stateBlob(t, "https://kiwix.app/A/One")},
		ScrollPositions: []int{0, 0},
		CurrentTabIndex: 0,
	}))

	h.ctrl.Start(h.ctx)
	h.ctrl.LoadURL("A/Deep_Link")
	st := h.settle(t)

	assert.Equal(t, 2, st.TabCount)
	assert.Equal(t, 0, st.CurrentTabIndex)
	assert.Equal(t, "https://kiwix.app/A/Deep_Link", st.URL)
	assert.True(t, st.CanGoBack)
}

func TestController_ReopenSameSource_KeepsTabs(t *testing.T) {
	h := newHarness(t, reader.Options{})
	h.open(t, wikiSource)
	h.ctrl.NewTab("A/One")
	before := tabIDs(h.settle(t))

	st := h.open(t, wikiSource)
	assert.Equal(t, before, tabIDs(st))
	assert.Len(t, h.opener.opened, 2)
	assert.True(t, h.opener.opened[1].isClosed(), "duplicate handle is released")
	assert.False(t, h.opener.opened[0].isClosed())
}

func TestController_OpenOtherSource_ReplacesTabs(t *testing.T) {
	h := newHarness(t, reader.Options{})
	h.open(t, wikiSource)
	h.ctrl.NewTab("A/One")
	h.settle(t)

	st := h.open(t, otherSource)

	assert.Equal(t, 1, st.TabCount)
	assert.Equal(t, otherSource.MainPageURL, st.URL)
	assert.True(t, h.factory.created[0].IsDestroyed())
	assert.True(t, h.factory.created[1].IsDestroyed())
	assert.True(t, h.opener.opened[0].isClosed())
}

func TestController_GoBackWithoutHistoryIsNoop(t *testing.T) {
	h := newHarness(t, reader.Options{})
	h.open(t, wikiSource)

	h.ctrl.GoBack()
	h.ctrl.GoForward()
	st := h.settle(t)
	assert.Equal(t, wikiSource.MainPageURL, st.URL)
	assert.False(t, st.CanGoBack)

	h.ctrl.LoadURL("A/Paris")
	st = h.settle(t)
	assert.True(t, st.CanGoBack)

	h.ctrl.GoBack()
	st = h.settle(t)
	assert.Equal(t, wikiSource.MainPageURL, st.URL)
	assert.True(t, st.CanGoForward)
}

func TestController_SurfaceInitFailure_KeepsExistingTabs(t *testing.T) {
	h := newHarness(t, reader.Options{})
	h.open(t, wikiSource)

	h.factory.mu.Lock()
	h.factory.failNext = 1
	h.factory.mu.Unlock()

	h.ctrl.NewTab("A/One")
	st := h.settle(t)
	assert.Equal(t, 1, st.TabCount)
	assert.Equal(t, wikiSource.MainPageURL, st.URL)
}

func TestController_TabSwitcherIsOrthogonal(t *testing.T) {
	h := newHarness(t, reader.Options{})
	h.open(t, wikiSource)
	h.ctrl.NewTab("A/One")

	h.ctrl.EnterTabSwitcher()
	st := h.settle(t)
	assert.True(t, st.TabSwitcherVisible)
	assert.Equal(t, 2, st.TabCount)

	h.ctrl.SelectTab(0)
	st = h.settle(t)
	assert.False(t, st.TabSwitcherVisible)
	assert.Equal(t, 0, st.CurrentTabIndex)
}

func TestController_LoadFinishedSchedulesSnapshot(t *testing.T) {
	h := newHarness(t, reader.Options{})
	h.open(t, wikiSource)

	h.sink.mu.Lock()
	scheduled := h.sink.scheduled
	h.sink.mu.Unlock()
	assert.Positive(t, scheduled)

	saved := h.snapshots.get()
	require.NotNil(t, saved)
	assert.Equal(t, wikiSource.ID, saved.SourceID)
	assert.Equal(t, 1, saved.TabCount())
}

func TestController_SubscribersSeeLatestState(t *testing.T) {
	h := newHarness(t, reader.Options{})
	ch, cancel := h.ctrl.Subscribe()
	defer cancel()

	initial := <-ch
	assert.Equal(t, entity.PhaseClosed, initial.Phase)

	h.open(t, wikiSource)

	var last entity.ReaderUIState
	require.Eventually(t, func() bool {
		select {
		case last = <-ch:
		default:
		}
		return last.Phase == entity.PhaseOpen && last.TabCount == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, h.ctrl.State().Revision, last.Revision)
}

func TestController_CurrentPage(t *testing.T) {
	h := newHarness(t, reader.Options{})

	_, err := h.ctrl.CurrentPage(h.ctx)
	require.ErrorIs(t, err, reader.ErrNoPage)

	h.open(t, wikiSource)
	h.ctrl.NewTab("https://kiwix.app/A/Rome")
	h.settle(t)

	page, err := h.ctrl.CurrentPage(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://kiwix.app/A/Rome", page.URL)
	assert.Contains(t, string(page.Data), titleFor(page.URL))
}

func TestController_ReopenSameSourceDuringCloseAllUndo_KeepsTabList(t *testing.T) {
	h := newHarness(t, reader.Options{})
	h.open(t, wikiSource)
	h.ctrl.NewTab("A/One")
	before := h.settle(t)
	require.Equal(t, 2, before.TabCount)

	h.ctrl.CloseAllTabs()
	h.settle(t)

	st := h.open(t, wikiSource)
	assert.Equal(t, entity.PhaseOpen, st.Phase)
	assert.Equal(t, tabIDs(before), tabIDs(st))
	assert.Equal(t, before.CurrentTabIndex, st.CurrentTabIndex)
	assert.False(t, st.UndoAvailable)

	h.ctrl.RestoreDeletedTabs()
	st = h.settle(t)
	assert.Equal(t, tabIDs(before), tabIDs(st), "no stray tab and no duplicates")
	assert.Equal(t, 2, h.factory.count())
}

func TestController_PauseDuringCloseAllUndo_KeepsClosedTabs(t *testing.T) {
	h := newHarness(t, reader.Options{})
	h.open(t, wikiSource)
	h.ctrl.NewTab("A/One")
	h.ctrl.SelectTab(0)
	h.settle(t)

	h.ctrl.CloseAllTabs()
	h.settle(t)
	require.NoError(t, h.ctrl.Pause(h.ctx))

	saved := h.snapshots.get()
	require.NotNil(t, saved)
	assert.Equal(t, 2, saved.TabCount())
	assert.Equal(t, 0, saved.CurrentTabIndex)
	assert.Equal(t, wikiSource.ID, saved.SourceID)
}

func TestController_CloseTabThenCloseAll_SnapshotKeepsUndoableTabs(t *testing.T) {
	h := newHarness(t, reader.Options{})
	h.open(t, wikiSource)
	h.ctrl.NewTab("A/One")
	h.ctrl.NewTab("A/Two")
	h.settle(t)

	h.ctrl.CloseTab(2)
	h.settle(t)
	h.ctrl.CloseAllTabs()
	h.settle(t)

	saved := h.snapshots.get()
	require.NotNil(t, saved)
	assert.Equal(t, 2, saved.TabCount())

	require.NoError(t, h.ctrl.Close(h.ctx))
	saved = h.snapshots.get()
	require.NotNil(t, saved, "closing inside the undo window keeps the tabs")
	assert.Equal(t, 2, saved.TabCount())
}

// blockingHistory holds every Save until release is closed.
type blockingHistory struct {
	release chan struct{}
	mu      sync.Mutex
	saved   int
}

func (b *blockingHistory) Save(ctx context.Context, _ *entity.HistoryEntry) error {
	select {
	case <-b.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	b.mu.Lock()
	b.saved++
	b.mu.Unlock()
	return nil
}

func (b *blockingHistory) Recent(context.Context, int) ([]*entity.HistoryEntry, error) {
	return nil, nil
}

func (b *blockingHistory) DeleteAll(context.Context) error { return nil }

func (b *blockingHistory) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saved
}

func TestController_SlowHistoryWritesDoNotStallLoop(t *testing.T) {
	h := newHarness(t, reader.Options{})
	history := &blockingHistory{release: make(chan struct{})}
	h.ctrl = reader.New(h.ctx, reader.Dependencies{
		Loop:      h.loop,
		Surfaces:  h.factory,
		Opener:    newOpenUseCase(h.opener),
		Restore:   newRestoreUseCase(h.snapshots),
		Snapshots: h.sink,
		History:   usecase.NewRecordHistoryUseCase(history),
		Options:   reader.Options{UndoWindow: time.Hour},
	})

	h.open(t, wikiSource)
	for i := range 6 {
		h.ctrl.NewTab(fmt.Sprintf("A/Page_%d", i))
	}

	ctx, cancel := context.WithTimeout(h.ctx, time.Second)
	defer cancel()
	require.NoError(t, h.ctrl.Sync(ctx))
	assert.Equal(t, 7, h.ctrl.State().TabCount)

	close(history.release)
	require.NoError(t, h.ctrl.Close(h.ctx))
	assert.Equal(t, 7, history.count())
}

func TestController_Search(t *testing.T) {
	h := newHarness(t, reader.Options{})

	_, err := h.ctrl.Search(h.ctx, "Rom", 10)
	require.ErrorIs(t, err, reader.ErrNoPage)

	h.open(t, wikiSource)
	results, err := h.ctrl.Search(h.ctx, "Rom", 10)
	require.NoError(t, err)
	assert.Equal(t, []port.SearchResult{
		{Title: "Roman Empire", URL: "https://kiwix.app/A/Roman_Empire"},
		{Title: "Rome", URL: "https://kiwix.app/A/Rome"},
	}, results)

	h.ctrl.OpenSearchResult(results[1].URL, false)
	st := h.settle(t)
	assert.Equal(t, 1, st.TabCount)
	assert.Equal(t, "https://kiwix.app/A/Rome", st.URL)

	h.ctrl.OpenSearchResult(results[0].URL, true)
	st = h.settle(t)
	assert.Equal(t, 2, st.TabCount)
	assert.Equal(t, 1, st.CurrentTabIndex)
	assert.Equal(t, "https://kiwix.app/A/Roman_Empire", st.URL)
}

func TestController_SearchResultQueuedWhileRestoring(t *testing.T) {
	h := newHarness(t, reader.Options{})
	require.NoError(t, h.snapshots.Save(h.ctx, &entity.NavigationHistorySnapshot{
		Version:         entity.SnapshotVersion,
		SourceID:        wikiSource.ID,
		SourcePath:      wikiSource.Path,
		PerTabBlobs:     [][]byte{stateBlob(t, "https://kiwix.app/A/Zero"), stateBlob(t, "https://kiwix.app/A/One")},
		ScrollPositions: []int{0, 0},
		CurrentTabIndex: 1,
	}))

	h.ctrl.Start(h.ctx)
	h.ctrl.OpenSearchResult("https://kiwix.app/A/Rome", true)
	st := h.settle(t)

	assert.Equal(t, 3, st.TabCount, "restored tabs plus the result")
	assert.Equal(t, 2, st.CurrentTabIndex)
	assert.Equal(t, "https://kiwix.app/A/Rome", st.URL)
}

func TestController_OpenSourceWithoutMainPage(t *testing.T) {
	h := newHarness(t, reader.Options{})
	blank := &entity.ContentSource{ID: "blank-id", Path: "/data/blank.zim", Title: "Blank"}
	h.opener.sources[blank.Path] = blank

	st := h.open(t, blank)

	assert.Equal(t, entity.PhaseOpen, st.Phase)
	assert.Equal(t, 1, st.TabCount)
	assert.Empty(t, st.URL)
	assert.Equal(t, "This archive has no main page", st.Message)
	require.NoError(t, h.ctrl.Pause(h.ctx))
	assert.Nil(t, h.snapshots.get(), "a blank tab is not persisted")

	h.ctrl.NewTab("A/Paris")
	h.ctrl.SelectTab(0)
	h.ctrl.LoadURL("A/Rome")
	st = h.settle(t)
	assert.Equal(t, "https://kiwix.app/A/Rome", st.URL)
	require.NoError(t, h.ctrl.Pause(h.ctx))
	saved := h.snapshots.get()
	require.NotNil(t, saved)
	assert.Equal(t, blank.ID, saved.SourceID)
	assert.Equal(t, 2, saved.TabCount())
}
