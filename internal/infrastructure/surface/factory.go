package surface

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kiwix/kiwix-reader/internal/application/port"
	"github.com/kiwix/kiwix-reader/internal/logging"
)

// ErrSurfaceLimit is returned when the live-surface cap is reached.
var ErrSurfaceLimit = errors.New("surface limit reached")

// Factory creates headless surfaces, capping how many are alive at once.
type Factory struct {
	max int

	mu     sync.Mutex
	live   int
	nextID uint64
}

var _ port.SurfaceFactory = (*Factory)(nil)

// NewFactory creates a factory. maxSurfaces <= 0 means unlimited.
func NewFactory(maxSurfaces int) *Factory {
	return &Factory{max: maxSurfaces}
}

// NewSurface implements port.SurfaceFactory.
func (f *Factory) NewSurface(ctx context.Context, fetcher port.ContentFetcher) (port.RenderSurface, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("surface needs a content fetcher")
	}

	f.mu.Lock()
	if f.max > 0 && f.live >= f.max {
		f.mu.Unlock()
		logging.FromContext(ctx).Warn().Int("max", f.max).Msg("surface limit reached")
		return nil, fmt.Errorf("%w: %d live", ErrSurfaceLimit, f.max)
	}
	f.live++
	f.nextID++
	id := f.nextID
	f.mu.Unlock()

	return newSurface(ctx, id, fetcher, f.release), nil
}

// Live returns the number of surfaces not yet destroyed.
func (f *Factory) Live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.live
}

func (f *Factory) release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.live--
}
