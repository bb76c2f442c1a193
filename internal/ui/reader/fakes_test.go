package reader_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kiwix/kiwix-reader/internal/application/port"
	"github.com/kiwix/kiwix-reader/internal/application/usecase"
	"github.com/kiwix/kiwix-reader/internal/domain/entity"
	"github.com/kiwix/kiwix-reader/internal/logging"
	"github.com/kiwix/kiwix-reader/internal/ui/mainloop"
	"github.com/kiwix/kiwix-reader/internal/ui/reader"
)

func testContext() context.Context {
	logger := logging.NewFromConfigValues("debug", "console")
	return logging.WithContext(context.Background(), logger)
}

// fakeSurface completes every load synchronously.
type fakeSurface struct {
	mu        sync.Mutex
	entries   []string
	pos       int
	scrollY   int
	loading   bool
	stopped   int
	destroyed bool
	cb        *port.SurfaceCallbacks
	restored  []byte
}

type fakeState struct {
	Entries []string `json:"entries"`
	Pos     int      `json:"pos"`
}

func (f *fakeSurface) LoadURL(_ context.Context, url string) error {
	f.mu.Lock()
	if f.destroyed {
		f.mu.Unlock()
		return port.ErrSurfaceDestroyed
	}
	if len(f.entries) > 0 {
		f.entries = f.entries[:f.pos+1]
	}
	f.entries = append(f.entries, url)
	f.pos = len(f.entries) - 1
	f.mu.Unlock()
	f.emit(url)
	return nil
}

func (f *fakeSurface) emit(url string) {
	cb := f.callbacks()
	if cb == nil {
		return
	}
	cb.OnLoadStarted(url)
	cb.OnProgress(50)
	cb.OnProgress(100)
	cb.OnTitleChanged(titleFor(url))
	cb.OnLoadFinished(url)
}

func (f *fakeSurface) callbacks() *port.SurfaceCallbacks {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cb
}

func (f *fakeSurface) GoBack(ctx context.Context) error {
	f.mu.Lock()
	if f.pos == 0 || len(f.entries) == 0 {
		f.mu.Unlock()
		return port.ErrNoHistory
	}
	f.pos--
	url := f.entries[f.pos]
	f.mu.Unlock()
	f.emit(url)
	return nil
}

func (f *fakeSurface) GoForward(ctx context.Context) error {
	f.mu.Lock()
	if f.pos >= len(f.entries)-1 {
		f.mu.Unlock()
		return port.ErrNoHistory
	}
	f.pos++
	url := f.entries[f.pos]
	f.mu.Unlock()
	f.emit(url)
	return nil
}

func (f *fakeSurface) StopLoading() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
	f.loading = false
}

func (f *fakeSurface) ClearHistory() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.entries) > 0 {
		f.entries = []string{f.entries[f.pos]}
		f.pos = 0
	}
}

func (f *fakeSurface) URL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.entries) == 0 {
		return ""
	}
	return f.entries[f.pos]
}

func (f *fakeSurface) Title() string { return titleFor(f.URL()) }

func (f *fakeSurface) IsLoading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loading
}

func (f *fakeSurface) CanGoBack() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos > 0
}

func (f *fakeSurface) CanGoForward() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos < len(f.entries)-1
}

func (f *fakeSurface) ScrollY() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scrollY
}

func (f *fakeSurface) SetScrollY(y int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scrollY = y
}

func (f *fakeSurface) SaveState() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return json.Marshal(fakeState{Entries: f.entries, Pos: f.pos})
}

func (f *fakeSurface) RestoreState(blob []byte) error {
	var st fakeState
	if err := json.Unmarshal(blob, &st); err != nil {
		return fmt.Errorf("bad state: %w", err)
	}
	if len(st.Entries) == 0 || st.Pos < 0 || st.Pos >= len(st.Entries) {
		return errors.New("bad state: empty history")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = st.Entries
	f.pos = st.Pos
	f.restored = append([]byte(nil), blob...)
	return nil
}

func (f *fakeSurface) SetCallbacks(cb *port.SurfaceCallbacks) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cb = cb
}

func (f *fakeSurface) IsDestroyed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.destroyed
}

func (f *fakeSurface) Destroy() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed = true
}

func titleFor(url string) string {
	if url == "" {
		return ""
	}
	return "Title of " + url
}

func stateBlob(t *testing.T, entries ...string) []byte {
	t.Helper()
	b, err := json.Marshal(fakeState{Entries: entries, Pos: len(entries) - 1})
	require.NoError(t, err)
	return b
}

type fakeFactory struct {
	mu       sync.Mutex
	created  []*fakeSurface
	failNext int
}

func (f *fakeFactory) NewSurface(context.Context, port.ContentFetcher) (port.RenderSurface, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext > 0 {
		f.failNext--
		return nil, errors.New("out of surfaces")
	}
	s := &fakeSurface{}
	f.created = append(f.created, s)
	return s, nil
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

type fakeSource struct {
	meta   *entity.ContentSource
	mu     sync.Mutex
	closed bool
}

func (s *fakeSource) Fetch(_ context.Context, url string) (*port.Content, error) {
	if s.isClosed() {
		return nil, errors.New("source closed")
	}
	return &port.Content{
		URL:      url,
		MimeType: "text/html",
		Data:     []byte("<title>" + titleFor(url) + "</title>"),
	}, nil
}

func (s *fakeSource) Source() *entity.ContentSource { return s.meta }

var fakeTitles = []string{"Paris", "Roman Empire", "Rome"}

func (s *fakeSource) Search(_ context.Context, query string, limit int) ([]port.SearchResult, error) {
	var out []port.SearchResult
	for _, title := range fakeTitles {
		if strings.HasPrefix(title, query) && len(out) < limit {
			out = append(out, port.SearchResult{
				Title: title,
				URL:   "https://kiwix.app/A/" + strings.ReplaceAll(title, " ", "_"),
			})
		}
	}
	return out, nil
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeOpener struct {
	mu      sync.Mutex
	sources map[string]*entity.ContentSource
	opened  []*fakeSource
}

func newFakeOpener(sources ...*entity.ContentSource) *fakeOpener {
	o := &fakeOpener{sources: map[string]*entity.ContentSource{}}
	for _, s := range sources {
		o.sources[s.Path] = s
	}
	return o
}

func (o *fakeOpener) Open(_ context.Context, path string) (port.OpenedSource, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	meta, ok := o.sources[path]
	if !ok {
		return nil, fmt.Errorf("open %s: no such file", path)
	}
	src := &fakeSource{meta: meta}
	o.opened = append(o.opened, src)
	return src, nil
}

// memSnapshots is an in-memory snapshot repository.
type memSnapshots struct {
	mu   sync.Mutex
	snap *entity.NavigationHistorySnapshot
}

func (m *memSnapshots) Save(_ context.Context, s *entity.NavigationHistorySnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.snap = &cp
	return nil
}

func (m *memSnapshots) Load(context.Context) (*entity.NavigationHistorySnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap, nil
}

func (m *memSnapshots) LoadForSource(_ context.Context, id entity.SourceID) (*entity.NavigationHistorySnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil || m.snap.SourceID != id {
		return nil, nil
	}
	return m.snap, nil
}

func (m *memSnapshots) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = nil
	return nil
}

func (m *memSnapshots) get() *entity.NavigationHistorySnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

// syncSink writes snapshots straight through the use case.
type syncSink struct {
	uc        *usecase.SnapshotHistoryUseCase
	mu        sync.Mutex
	scheduled int
}

func (s *syncSink) Schedule(snap *entity.NavigationHistorySnapshot) {
	s.mu.Lock()
	s.scheduled++
	s.mu.Unlock()
	_ = s.uc.Execute(context.Background(), snap)
}

func (s *syncSink) SaveNow(ctx context.Context, snap *entity.NavigationHistorySnapshot) error {
	return s.uc.Execute(ctx, snap)
}

var wikiSource = &entity.ContentSource{
	ID:          "wiki-id",
	Path:        "/data/wiki.zim",
	Title:       "Wikipedia",
	MainPageURL: "https://kiwix.app/A/Main_Page",
}

var otherSource = &entity.ContentSource{
	ID:          "other-id",
	Path:        "/data/other.zim",
	Title:       "Other",
	MainPageURL: "https://kiwix.app/A/Other_Main",
}

type harness struct {
	ctx       context.Context
	ctrl      *reader.Controller
	loop      *mainloop.Loop
	factory   *fakeFactory
	opener    *fakeOpener
	snapshots *memSnapshots
	sink      *syncSink
}

func newHarness(t *testing.T, opts reader.Options) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(testContext())

	loop := mainloop.New()
	loop.Start(ctx)

	h := &harness{
		ctx:       ctx,
		loop:      loop,
		factory:   &fakeFactory{},
		opener:    newFakeOpener(wikiSource, otherSource),
		snapshots: &memSnapshots{},
	}
	h.sink = &syncSink{uc: usecase.NewSnapshotHistoryUseCase(h.snapshots)}

	if opts.UndoWindow == 0 {
		opts.UndoWindow = time.Hour
	}
	h.ctrl = reader.New(ctx, reader.Dependencies{
		Loop:      loop,
		Surfaces:  h.factory,
		Opener:    usecase.NewOpenContentSourceUseCase(h.opener),
		Restore:   usecase.NewRestoreHistoryUseCase(h.snapshots),
		Snapshots: h.sink,
		Options:   opts,
	})

	t.Cleanup(func() {
		_ = h.ctrl.Close(context.Background())
		cancel()
	})
	return h
}

// settle waits for the loop and any async open to finish.
func (h *harness) settle(t *testing.T) entity.ReaderUIState {
	t.Helper()
	require.Eventually(t, func() bool {
		_ = h.ctrl.Sync(h.ctx)
		return h.ctrl.State().Phase != entity.PhaseOpening
	}, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, h.ctrl.Sync(h.ctx))
	return h.ctrl.State()
}

func (h *harness) open(t *testing.T, src *entity.ContentSource) entity.ReaderUIState {
	t.Helper()
	h.ctrl.OpenContentSource(h.ctx, src.Path)
	return h.settle(t)
}

func newOpenUseCase(o *fakeOpener) *usecase.OpenContentSourceUseCase {
	return usecase.NewOpenContentSourceUseCase(o)
}

func newRestoreUseCase(m *memSnapshots) *usecase.RestoreHistoryUseCase {
	return usecase.NewRestoreHistoryUseCase(m)
}
