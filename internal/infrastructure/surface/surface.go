// Package surface provides a headless RenderSurface: it fetches pages from
// the open archive, keeps a back/forward list and reports load events, but
// draws nothing. Terminal front ends render the fetched documents themselves.
package surface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/kiwix/kiwix-reader/internal/application/port"
	"github.com/kiwix/kiwix-reader/internal/logging"
)

// ErrInvalidState is returned by RestoreState for blobs it cannot use.
var ErrInvalidState = errors.New("invalid surface state")

const stateVersion = 1

// progressSteps are reported after the document arrives; 0 is reported
// when the load starts.
var progressSteps = []int{10, 40, 70, 100}

type historyEntry struct {
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	ScrollY int    `json:"scroll_y,omitempty"`
}

type savedState struct {
	Version int            `json:"version"`
	Entries []historyEntry `json:"entries"`
	Index   int            `json:"index"`
}

// Surface is a headless render surface. Callbacks run on the goroutine that
// performs the load.
type Surface struct {
	id      uint64
	fetcher port.ContentFetcher
	onGone  func()

	destroyed atomic.Bool

	mu        sync.RWMutex
	entries   []historyEntry
	pos       int
	loading   bool
	loadSeq   uint64
	cancel    context.CancelFunc
	callbacks *port.SurfaceCallbacks
	document  *port.Content

	logger zerolog.Logger
}

var _ port.RenderSurface = (*Surface)(nil)

func newSurface(ctx context.Context, id uint64, fetcher port.ContentFetcher, onGone func()) *Surface {
	return &Surface{
		id:      id,
		fetcher: fetcher,
		onGone:  onGone,
		pos:     -1,
		logger:  logging.FromContext(ctx).With().Str("component", "surface").Uint64("surface_id", id).Logger(),
	}
}

// ID returns the surface's factory-assigned identifier.
func (s *Surface) ID() uint64 { return s.id }

// LoadURL pushes url onto the back/forward list, dropping forward entries,
// and loads it in the background.
func (s *Surface) LoadURL(ctx context.Context, url string) error {
	if s.destroyed.Load() {
		return port.ErrSurfaceDestroyed
	}
	if strings.TrimSpace(url) == "" {
		return fmt.Errorf("empty url")
	}

	s.mu.Lock()
	if s.pos >= 0 {
		s.entries = s.entries[:s.pos+1]
	}
	s.entries = append(s.entries, historyEntry{URL: url})
	s.pos = len(s.entries) - 1
	seq, loadCtx := s.beginLoadLocked(ctx)
	s.mu.Unlock()

	go s.load(loadCtx, seq, url)
	return nil
}

// GoBack moves one entry back and reloads it.
func (s *Surface) GoBack(ctx context.Context) error {
	return s.step(ctx, -1)
}

// GoForward moves one entry forward and reloads it.
func (s *Surface) GoForward(ctx context.Context) error {
	return s.step(ctx, 1)
}

func (s *Surface) step(ctx context.Context, delta int) error {
	if s.destroyed.Load() {
		return port.ErrSurfaceDestroyed
	}

	s.mu.Lock()
	next := s.pos + delta
	if s.pos < 0 || next < 0 || next >= len(s.entries) {
		s.mu.Unlock()
		return port.ErrNoHistory
	}
	s.pos = next
	url := s.entries[next].URL
	seq, loadCtx := s.beginLoadLocked(ctx)
	s.mu.Unlock()

	go s.load(loadCtx, seq, url)
	return nil
}

// beginLoadLocked supersedes any in-flight load. Callers hold s.mu.
func (s *Surface) beginLoadLocked(ctx context.Context) (uint64, context.Context) {
	if s.cancel != nil {
		s.cancel()
	}
	loadCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.loadSeq++
	s.loading = true
	return s.loadSeq, loadCtx
}

func (s *Surface) load(ctx context.Context, seq uint64, url string) {
	s.emit(seq, func(cb *port.SurfaceCallbacks) {
		if cb.OnLoadStarted != nil {
			cb.OnLoadStarted(url)
		}
		if cb.OnProgress != nil {
			cb.OnProgress(0)
		}
	})

	doc, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		if !s.finish(seq, nil, "") {
			return
		}
		s.logger.Debug().Err(err).Str("url", logging.TruncateURL(url, 80)).Msg("load failed")
		s.emit(seq, func(cb *port.SurfaceCallbacks) {
			if cb.OnLoadFailed != nil {
				cb.OnLoadFailed(url, err)
			}
		})
		return
	}

	if doc.MimeType == "" || doc.MimeType == "application/octet-stream" {
		doc.MimeType = mimetype.Detect(doc.Data).String()
	}
	title := documentTitle(doc)

	for _, p := range progressSteps[:len(progressSteps)-1] {
		s.emit(seq, func(cb *port.SurfaceCallbacks) {
			if cb.OnProgress != nil {
				cb.OnProgress(p)
			}
		})
	}
	if !s.finish(seq, doc, title) {
		return
	}
	s.emit(seq, func(cb *port.SurfaceCallbacks) {
		if cb.OnProgress != nil {
			cb.OnProgress(100)
		}
		if cb.OnTitleChanged != nil {
			cb.OnTitleChanged(title)
		}
		if cb.OnLoadFinished != nil {
			cb.OnLoadFinished(doc.URL)
		}
	})
}

// finish records the load result if seq is still current. Redirects
// rewrite the current entry's URL.
func (s *Surface) finish(seq uint64, doc *port.Content, title string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.loadSeq || s.destroyed.Load() {
		return false
	}
	s.loading = false
	s.cancel = nil
	if doc != nil && s.pos >= 0 {
		s.entries[s.pos].URL = doc.URL
		s.entries[s.pos].Title = title
		s.document = doc
	}
	return true
}

// emit runs fn with the current callbacks unless the load was superseded.
func (s *Surface) emit(seq uint64, fn func(cb *port.SurfaceCallbacks)) {
	s.mu.RLock()
	cb := s.callbacks
	current := seq == s.loadSeq && !s.destroyed.Load()
	s.mu.RUnlock()
	if cb != nil && current {
		fn(cb)
	}
}

// documentTitle takes the HTML <title> when there is one and falls back to
// the last path segment.
func documentTitle(doc *port.Content) string {
	if strings.Contains(doc.MimeType, "html") {
		if d, err := goquery.NewDocumentFromReader(bytes.NewReader(doc.Data)); err == nil {
			if t := strings.TrimSpace(d.Find("title").First().Text()); t != "" {
				return t
			}
		}
	}
	base := path.Base(strings.TrimSuffix(doc.URL, "/"))
	return strings.ReplaceAll(base, "_", " ")
}

// StopLoading aborts the in-flight load; no further callbacks fire for it.
func (s *Surface) StopLoading() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.loading {
		s.loadSeq++
		s.loading = false
	}
}

// ClearHistory keeps only the current entry.
func (s *Surface) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos < 0 {
		return
	}
	s.entries = []historyEntry{s.entries[s.pos]}
	s.pos = 0
}

func (s *Surface) URL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pos < 0 {
		return ""
	}
	return s.entries[s.pos].URL
}

func (s *Surface) Title() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pos < 0 {
		return ""
	}
	return s.entries[s.pos].Title
}

func (s *Surface) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Surface) CanGoBack() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pos > 0
}

func (s *Surface) CanGoForward() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pos >= 0 && s.pos < len(s.entries)-1
}

// ScrollY returns the scroll offset of the current entry.
func (s *Surface) ScrollY() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pos < 0 {
		return 0
	}
	return s.entries[s.pos].ScrollY
}

func (s *Surface) SetScrollY(y int) {
	if y < 0 {
		y = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos >= 0 {
		s.entries[s.pos].ScrollY = y
	}
}

// Document returns the last loaded document, or nil.
func (s *Surface) Document() *port.Content {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.document
}

// SaveState serializes the back/forward list. A surface that never loaded
// anything has no state and returns ErrInvalidState.
func (s *Surface) SaveState() ([]byte, error) {
	if s.destroyed.Load() {
		return nil, port.ErrSurfaceDestroyed
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pos < 0 {
		return nil, fmt.Errorf("%w: empty history", ErrInvalidState)
	}
	return json.Marshal(savedState{
		Version: stateVersion,
		Entries: s.entries,
		Index:   s.pos,
	})
}

// RestoreState replaces the back/forward list without loading anything.
func (s *Surface) RestoreState(blob []byte) error {
	if s.destroyed.Load() {
		return port.ErrSurfaceDestroyed
	}
	st, err := decodeState(blob)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.loadSeq++
	s.loading = false
	s.entries = st.Entries
	s.pos = st.Index
	s.document = nil
	return nil
}

// StateSummary describes a saved back/forward list.
type StateSummary struct {
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	Back    int    `json:"back"`
	Forward int    `json:"forward"`
}

// DescribeState summarizes a blob produced by SaveState without creating a
// surface.
func DescribeState(blob []byte) (StateSummary, error) {
	st, err := decodeState(blob)
	if err != nil {
		return StateSummary{}, err
	}
	current := st.Entries[st.Index]
	return StateSummary{
		URL:     current.URL,
		Title:   current.Title,
		Back:    st.Index,
		Forward: len(st.Entries) - st.Index - 1,
	}, nil
}

func decodeState(blob []byte) (savedState, error) {
	var st savedState
	if err := json.Unmarshal(blob, &st); err != nil {
		return st, fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	if st.Version < 1 || st.Version > stateVersion {
		return st, fmt.Errorf("%w: version %d", ErrInvalidState, st.Version)
	}
	if len(st.Entries) == 0 || st.Index < 0 || st.Index >= len(st.Entries) {
		return st, fmt.Errorf("%w: index %d of %d entries", ErrInvalidState, st.Index, len(st.Entries))
	}
	for i, e := range st.Entries {
		if e.URL == "" {
			return st, fmt.Errorf("%w: entry %d has no url", ErrInvalidState, i)
		}
	}
	return st, nil
}

func (s *Surface) SetCallbacks(callbacks *port.SurfaceCallbacks) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = callbacks
}

func (s *Surface) IsDestroyed() bool {
	return s.destroyed.Load()
}

// Destroy stops loading and releases the surface slot.
func (s *Surface) Destroy() {
	if s.destroyed.Swap(true) {
		return
	}
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.loading = false
	s.callbacks = nil
	s.document = nil
	s.mu.Unlock()

	if s.onGone != nil {
		s.onGone()
	}
	s.logger.Debug().Msg("surface destroyed")
}
