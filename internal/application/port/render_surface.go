// Package port defines application-layer interfaces for external capabilities.
// Ports abstract infrastructure concerns, allowing the application layer to
// remain independent of specific implementations (rendering engine, archive
// format, storage).
package port

import (
	"context"
	"errors"
)

// ErrSurfaceDestroyed is returned by surface operations after Destroy.
var ErrSurfaceDestroyed = errors.New("render surface destroyed")

// ErrNoHistory is returned by GoBack/GoForward when there is nothing to
// navigate to in that direction.
var ErrNoHistory = errors.New("no history in that direction")

// SurfaceCallbacks defines callback handlers for surface events.
// Implementations may invoke them from any goroutine; consumers are
// responsible for marshaling them onto their own loop.
type SurfaceCallbacks struct {
	// OnLoadStarted is called when navigation to url begins.
	OnLoadStarted func(url string)
	// OnProgress is called during a load with a percentage in [0, 100].
	OnProgress func(percent int)
	// OnTitleChanged is called when the document title changes.
	OnTitleChanged func(title string)
	// OnLoadFinished is called once url has fully loaded.
	OnLoadFinished func(url string)
	// OnLoadFailed is called when url could not be loaded.
	OnLoadFailed func(url string, err error)
}

// RenderSurface is an opaque content-rendering widget with its own
// back/forward list.
type RenderSurface interface {
	// --- Navigation ---

	// LoadURL navigates to url, pushing it onto the back/forward list.
	LoadURL(ctx context.Context, url string) error
	// GoBack navigates back. Returns ErrNoHistory if impossible.
	GoBack(ctx context.Context) error
	// GoForward navigates forward. Returns ErrNoHistory if impossible.
	GoForward(ctx context.Context) error
	// StopLoading aborts the in-flight load, if any.
	StopLoading()
	// ClearHistory drops every entry except the current one.
	ClearHistory()

	// --- State Queries ---

	URL() string
	Title() string
	IsLoading() bool
	CanGoBack() bool
	CanGoForward() bool
	ScrollY() int
	SetScrollY(y int)

	// --- Persistence ---

	// SaveState serializes the back/forward list to an opaque blob.
	SaveState() ([]byte, error)
	// RestoreState replaces the back/forward list with blob without loading
	// any content.
	RestoreState(blob []byte) error

	// --- Callbacks ---

	// SetCallbacks registers event handlers. Pass nil to clear them.
	SetCallbacks(callbacks *SurfaceCallbacks)

	// --- Lifecycle ---

	IsDestroyed() bool
	// Destroy releases all resources. The surface must not be used afterwards.
	Destroy()
}

// SurfaceFactory constructs render surfaces that display content served by
// fetcher. NewSurface fails when the platform cannot allocate another one.
type SurfaceFactory interface {
	NewSurface(ctx context.Context, fetcher ContentFetcher) (RenderSurface, error)
}
