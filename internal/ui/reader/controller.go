// Package reader implements the reader session manager: the tab registry,
// the controller that owns it, and the restore protocol for navigation
// history.
package reader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kiwix/kiwix-reader/internal/application/port"
	"github.com/kiwix/kiwix-reader/internal/application/usecase"
	"github.com/kiwix/kiwix-reader/internal/domain/entity"
	"github.com/kiwix/kiwix-reader/internal/logging"
	"github.com/kiwix/kiwix-reader/internal/ui/mainloop"
)

const (
	defaultUndoWindow    = 4 * time.Second
	defaultHomePageDelay = 300 * time.Millisecond
	historyWriters       = 4
	historyQueueSize     = 64
)

// ErrNavigationNoop is logged when back/forward has nowhere to go.
var ErrNavigationNoop = errors.New("no navigation possible in that direction")

// ErrNoPage is returned by CurrentPage when no archive or tab is open.
var ErrNoPage = errors.New("no page open")

// ErrSearchUnsupported is returned by Search when the open archive cannot
// look up titles.
var ErrSearchUnsupported = errors.New("archive does not support title search")

// ErrSurfaceInit wraps factory failures. The requested tab is not created.
var ErrSurfaceInit = errors.New("render surface initialization failed")

// SnapshotSink persists navigation snapshots off the loop.
type SnapshotSink interface {
	// Schedule requests a debounced save of snap.
	Schedule(snap *entity.NavigationHistorySnapshot)
	// SaveNow writes snap immediately, waiting for any write in flight.
	SaveNow(ctx context.Context, snap *entity.NavigationHistorySnapshot) error
}

// Options tunes controller behaviour.
type Options struct {
	// UndoWindow is how long closed tabs can be brought back.
	UndoWindow time.Duration
	// HomePageOnClose opens a fresh main-page tab shortly after the last tab
	// is closed instead of leaving the reader empty.
	HomePageOnClose bool
	// HomePageDelay is the delay before that tab is opened.
	HomePageDelay time.Duration
}

// Dependencies holds everything the controller talks to.
type Dependencies struct {
	Loop      *mainloop.Loop
	Surfaces  port.SurfaceFactory
	Opener    *usecase.OpenContentSourceUseCase
	Restore   *usecase.RestoreHistoryUseCase
	Snapshots SnapshotSink

	// Optional collaborators.
	History   *usecase.RecordHistoryUseCase
	Bookmarks *usecase.ManageBookmarksUseCase
	Metrics   port.ReaderMetrics
	NewID     entity.IDGenerator
	Now       func() time.Time

	Options Options
}

// Controller is the single authority over the tab registry and the UI state.
// All mutation happens on the loop; public methods only post intents.
type Controller struct {
	ctx  context.Context
	loop *mainloop.Loop
	deps Dependencies
	opts Options

	progress    *mainloop.Coalescer
	historyWG   *errgroup.Group
	historyCh   chan usecase.RecordInput
	historyDone sync.Once

	// loop-owned
	registry     *Registry
	phase        entity.ReaderPhase
	source       port.OpenedSource
	openGen      uint64
	restoring    bool
	pending      []func()
	tabProgress  map[entity.TabID]int
	tabSwitcher  bool
	readAloud    bool
	fullScreen   bool
	bookmarked   bool
	bookmarkKey  string
	message      string
	undo         *undoState
	revision     uint64
	closed       bool
	lastTabCount int

	subMu  sync.Mutex
	subs   map[int]chan entity.ReaderUIState
	nextID int
	state  entity.ReaderUIState
}

// New creates a controller. The loop must be running before intents are
// sent.
func New(ctx context.Context, deps Dependencies) *Controller {
	if deps.Metrics == nil {
		deps.Metrics = port.NopMetrics{}
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	opts := deps.Options
	if opts.UndoWindow <= 0 {
		opts.UndoWindow = defaultUndoWindow
	}
	if opts.HomePageDelay <= 0 {
		opts.HomePageDelay = defaultHomePageDelay
	}

	c := &Controller{
		ctx:          logging.WithComponent(ctx, "reader"),
		loop:         deps.Loop,
		deps:         deps,
		opts:         opts,
		progress:     mainloop.NewCoalescer(deps.Loop.Post),
		historyWG:    &errgroup.Group{},
		historyCh:    make(chan usecase.RecordInput, historyQueueSize),
		phase:        entity.PhaseClosed,
		tabProgress:  make(map[entity.TabID]int),
		subs:         make(map[int]chan entity.ReaderUIState),
		lastTabCount: -1,
	}
	if deps.History != nil {
		for range historyWriters {
			c.historyWG.Go(c.writeHistory)
		}
	}
	c.registry = NewRegistry(c.synthesizeMainPage)
	c.state = c.computeState()
	return c
}

// State returns the last published UI state.
func (c *Controller) State() entity.ReaderUIState {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	return c.state
}

// Subscribe returns a channel receiving every published state. Slow readers
// only see the latest state. The returned function unsubscribes.
func (c *Controller) Subscribe() (<-chan entity.ReaderUIState, func()) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	id := c.nextID
	c.nextID++
	ch := make(chan entity.ReaderUIState, 1)
	ch <- c.state
	c.subs[id] = ch

	return ch, func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

// Sync waits until every posted intent and event has been handled.
func (c *Controller) Sync(ctx context.Context) error {
	return c.loop.Idle(ctx)
}

// CurrentPage fetches the entry shown by the current tab from the open
// archive. The fetch runs on the caller's goroutine.
func (c *Controller) CurrentPage(ctx context.Context) (*port.Content, error) {
	var (
		src port.OpenedSource
		url string
	)
	if err := c.loop.Call(ctx, func() {
		if c.closed || c.phase != entity.PhaseOpen {
			return
		}
		if current := c.registry.Current(); current != nil {
			src = c.source
			url = current.Surface.URL()
		}
	}); err != nil {
		return nil, err
	}
	if src == nil || url == "" {
		return nil, ErrNoPage
	}
	return src.Fetch(ctx, url)
}

// Search suggests articles of the open archive whose title starts with
// query. The lookup runs on the caller's goroutine.
func (c *Controller) Search(ctx context.Context, query string, limit int) ([]port.SearchResult, error) {
	var src port.OpenedSource
	if err := c.loop.Call(ctx, func() {
		if !c.closed && c.phase == entity.PhaseOpen {
			src = c.source
		}
	}); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, ErrNoPage
	}
	searcher, ok := src.(port.TitleSearcher)
	if !ok {
		return nil, ErrSearchUnsupported
	}
	results, err := searcher.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	logging.FromContext(c.ctx).Debug().Str("query", query).Int("results", len(results)).Msg("title search")
	return results, nil
}

// Pause flushes the navigation snapshot immediately.
func (c *Controller) Pause(ctx context.Context) error {
	var snap *entity.NavigationHistorySnapshot
	var hasSource bool
	if err := c.loop.Call(ctx, func() {
		hasSource = c.source != nil
		snap = c.buildSnapshot()
	}); err != nil {
		return err
	}
	if !hasSource || snap == nil {
		return nil
	}
	return c.deps.Snapshots.SaveNow(ctx, snap)
}

// Close persists the snapshot, releases every surface, closes the archive
// and waits for background history writes.
func (c *Controller) Close(ctx context.Context) error {
	var snap *entity.NavigationHistorySnapshot
	var hasSource bool
	err := c.loop.Call(ctx, func() {
		if c.closed {
			return
		}
		hasSource = c.source != nil
		snap = c.buildSnapshot()
		c.dropUndo()
		c.registry.Clear()
		c.closeSource()
		c.closed = true
		c.progress.Destroy()
		c.publish()
	})
	if err != nil {
		return err
	}

	var saveErr error
	if hasSource && snap != nil {
		saveErr = c.deps.Snapshots.SaveNow(ctx, snap)
	}
	c.historyDone.Do(func() { close(c.historyCh) })
	_ = c.historyWG.Wait()

	c.subMu.Lock()
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.subMu.Unlock()

	return saveErr
}

// post runs fn on the loop unless the controller has been closed.
func (c *Controller) post(fn func()) {
	c.loop.Post(func() {
		if c.closed {
			return
		}
		fn()
	})
}

// publish recomputes the UI state and hands it to subscribers.
func (c *Controller) publish() {
	c.refreshBookmark()
	st := c.computeState()

	if st.TabCount != c.lastTabCount {
		c.lastTabCount = st.TabCount
		c.deps.Metrics.SetOpenTabs(st.TabCount)
	}

	c.subMu.Lock()
	c.revision++
	st.Revision = c.revision
	c.state = st
	for _, ch := range c.subs {
		select {
		case ch <- st:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- st
		}
	}
	c.subMu.Unlock()
}

func (c *Controller) computeState() entity.ReaderUIState {
	st := entity.ReaderUIState{
		Phase:              c.phase,
		TabCount:           c.registry.Len(),
		CurrentTabIndex:    c.registry.CurrentIndex(),
		TabSwitcherVisible: c.tabSwitcher,
		ReadAloudActive:    c.readAloud,
		FullScreen:         c.fullScreen,
		NoBookOpen:         c.phase != entity.PhaseOpen,
		UndoAvailable:      c.undo != nil,
		Message:            c.message,
		Bookmarked:         c.bookmarked,
	}
	if c.source != nil {
		if meta := c.source.Source(); meta != nil {
			st.SourceTitle = meta.Title
		}
	}

	current := c.registry.Current()
	for _, s := range c.registry.Sessions() {
		st.Tabs = append(st.Tabs, entity.TabSummary{
			ID:      s.ID,
			Title:   s.Surface.Title(),
			URL:     s.Surface.URL(),
			Current: s == current,
		})
	}
	if current != nil {
		st.Title = current.Surface.Title()
		st.URL = current.Surface.URL()
		st.CanGoBack = current.Surface.CanGoBack()
		st.CanGoForward = current.Surface.CanGoForward()
		if p, ok := c.tabProgress[current.ID]; ok {
			st.Loading = true
			st.Progress = p
		}
	}
	return st
}

// refreshBookmark looks up the bookmark flag when the current page changed.
func (c *Controller) refreshBookmark() {
	if c.deps.Bookmarks == nil {
		return
	}
	current := c.registry.Current()
	if c.source == nil || current == nil {
		c.bookmarkKey = ""
		c.bookmarked = false
		return
	}
	id := c.sourceID()
	key := string(id) + "\x00" + current.Surface.URL()
	if key == c.bookmarkKey {
		return
	}
	c.bookmarkKey = key

	ok, err := c.deps.Bookmarks.IsBookmarked(c.ctx, id, current.Surface.URL())
	if err != nil {
		logging.FromContext(c.ctx).Warn().Err(err).Msg("bookmark lookup failed")
		ok = false
	}
	c.bookmarked = ok
}

func (c *Controller) sourceID() entity.SourceID {
	if c.source == nil || c.source.Source() == nil {
		return ""
	}
	return c.source.Source().ID
}

// buildSnapshot captures every open tab. When no tab is open but closed tabs
// can still be brought back, those are captured instead. Tabs that never
// loaded anything are left out. It returns nil when a surface refuses to
// serialize, so a partial snapshot is never written.
func (c *Controller) buildSnapshot() *entity.NavigationHistorySnapshot {
	if c.source == nil || c.source.Source() == nil {
		return nil
	}
	sessions, current := c.registry.Sessions(), c.registry.CurrentIndex()
	if len(sessions) == 0 && c.undo != nil {
		sessions, current = c.undo.sessions, 0
		if c.undo.kind == undoAll {
			current = c.undo.index
		}
	}

	meta := c.source.Source()
	snap := &entity.NavigationHistorySnapshot{
		Version:         entity.SnapshotVersion,
		SourceID:        meta.ID,
		SourcePath:      meta.Path,
		CurrentTabIndex: current,
		SavedAt:         c.deps.Now(),
	}
	for i, s := range sessions {
		if s.Surface.URL() == "" {
			if i < current {
				snap.CurrentTabIndex--
			}
			continue
		}
		blob, err := s.Surface.SaveState()
		if err != nil || len(blob) == 0 {
			logging.FromContext(c.ctx).Warn().
				Err(err).
				Str("tab_id", string(s.ID)).
				Msg("tab state not serializable, skipping snapshot")
			return nil
		}
		snap.PerTabBlobs = append(snap.PerTabBlobs, blob)
		snap.ScrollPositions = append(snap.ScrollPositions, s.Surface.ScrollY())
	}
	snap.CurrentTabIndex = max(0, min(snap.CurrentTabIndex, len(snap.PerTabBlobs)-1))
	return snap
}

func (c *Controller) scheduleSnapshot() {
	if snap := c.buildSnapshot(); snap != nil {
		c.deps.Snapshots.Schedule(snap)
	}
}

// closeSource detaches the archive and returns to the closed phase.
func (c *Controller) closeSource() {
	if c.source != nil {
		if err := c.source.Close(); err != nil {
			logging.FromContext(c.ctx).Warn().Err(err).Msg("failed to close content source")
		}
		c.source = nil
	}
	c.phase = entity.PhaseClosed
	c.tabSwitcher = false
	c.readAloud = false
	c.restoring = false
	c.pending = nil
	clear(c.tabProgress)
}
