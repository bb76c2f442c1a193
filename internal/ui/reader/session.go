package reader

import (
	"fmt"

	"github.com/kiwix/kiwix-reader/internal/domain/entity"
	"github.com/kiwix/kiwix-reader/internal/logging"
)

// newSession creates a surface bound to the open archive and wires its
// callbacks to the loop. When url is empty nothing is loaded.
func (c *Controller) newSession(url string) (*TabSession, error) {
	if c.source == nil {
		return nil, fmt.Errorf("%w: no content source open", ErrSurfaceInit)
	}

	surface, err := c.deps.Surfaces.NewSurface(c.ctx, c.source)
	if err != nil {
		c.deps.Metrics.SurfaceInitFailed()
		return nil, fmt.Errorf("%w: %w", ErrSurfaceInit, err)
	}

	s := &TabSession{ID: entity.TabID(c.deps.NewID()), Surface: surface, index: -1}
	c.bindCallbacks(s)

	if url != "" {
		if err := surface.LoadURL(c.ctx, url); err != nil {
			logging.FromContext(c.ctx).Warn().
				Err(err).
				Str("url", logging.TruncateURL(url, 80)).
				Msg("initial load failed")
		}
	}
	return s, nil
}

// openTab creates and registers a tab. It returns nil on surface failure,
// leaving existing tabs untouched.
func (c *Controller) openTab(url string, selectAfterAdd bool) *TabSession {
	s, err := c.newSession(url)
	if err != nil {
		logging.FromContext(c.ctx).Warn().Err(err).Msg("tab not created")
		return nil
	}
	c.registry.Add(s, selectAfterAdd)
	return s
}

// synthesizeMainPage backs Registry.CurrentOrSynthesize.
func (c *Controller) synthesizeMainPage() *TabSession {
	s, err := c.newSession(c.mainPageURL())
	if err != nil {
		logging.FromContext(c.ctx).Debug().Err(err).Msg("main page tab not synthesized")
		return nil
	}
	logging.FromContext(c.ctx).Debug().Str("tab_id", string(s.ID)).Msg("synthesized main page tab")
	return s
}

func (c *Controller) mainPageURL() string {
	if c.source == nil || c.source.Source() == nil {
		return ""
	}
	return c.source.Source().MainPageURL
}
