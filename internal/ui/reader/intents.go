package reader

import (
	"context"
	"errors"
	"fmt"

	"github.com/kiwix/kiwix-reader/internal/application/port"
	"github.com/kiwix/kiwix-reader/internal/domain/entity"
	urlutil "github.com/kiwix/kiwix-reader/internal/domain/url"
	"github.com/kiwix/kiwix-reader/internal/logging"
)

// NewTab opens url in a new tab and selects it. An empty url opens the main
// page.
func (c *Controller) NewTab(url string) {
	c.post(func() { c.newTab(url, true) })
}

// NewTabInBackground opens url in a new tab without selecting it.
func (c *Controller) NewTabInBackground(url string) {
	c.post(func() { c.newTab(url, false) })
}

// NewMainPageTab opens the archive's main page in a new selected tab.
func (c *Controller) NewMainPageTab() {
	c.post(func() { c.newTab("", true) })
}

func (c *Controller) newTab(url string, selectAfterAdd bool) {
	if c.phase != entity.PhaseOpen {
		logging.FromContext(c.ctx).Debug().Msg("new tab ignored, no content source open")
		return
	}
	target := urlutil.Normalize(url)
	if target == "" {
		target = c.mainPageURL()
	}
	if c.openTab(target, selectAfterAdd) != nil && selectAfterAdd {
		c.tabSwitcher = false
	}
	c.publish()
}

// SelectTab makes the tab at index current, clamping out-of-range values,
// and leaves the tab switcher.
func (c *Controller) SelectTab(index int) {
	c.post(func() {
		if c.phase != entity.PhaseOpen {
			return
		}
		c.registry.SelectTab(index)
		c.tabSwitcher = false
		c.publish()
	})
}

// MoveTab reorders tabs.
func (c *Controller) MoveTab(from, to int) {
	c.post(func() {
		if c.registry.Move(from, to) {
			c.scheduleSnapshot()
			c.publish()
		}
	})
}

// EnterTabSwitcher shows the tab switcher overlay.
func (c *Controller) EnterTabSwitcher() {
	c.post(func() {
		if c.phase != entity.PhaseOpen || c.tabSwitcher {
			return
		}
		c.tabSwitcher = true
		c.publish()
	})
}

// ExitTabSwitcher hides the tab switcher overlay.
func (c *Controller) ExitTabSwitcher() {
	c.post(func() {
		if !c.tabSwitcher {
			return
		}
		c.tabSwitcher = false
		c.publish()
	})
}

// LoadURL loads url into the current tab. While tabs are being restored the
// request is queued and applied to the restored current tab afterwards.
func (c *Controller) LoadURL(url string) {
	c.post(func() {
		c.navigate(func(s *TabSession) error {
			target := urlutil.Normalize(url)
			if target == "" {
				return nil
			}
			return s.Surface.LoadURL(c.ctx, target)
		})
	})
}

// OpenSearchResult opens a title search result, in the current tab or in a
// new selected one. While tabs are being restored the request is queued.
func (c *Controller) OpenSearchResult(url string, inNewTab bool) {
	c.post(func() { c.openSearchResult(url, inNewTab) })
}

func (c *Controller) openSearchResult(url string, inNewTab bool) {
	if c.restoring {
		c.pending = append(c.pending, func() { c.openSearchResult(url, inNewTab) })
		return
	}
	if inNewTab {
		c.newTab(url, true)
		return
	}
	c.navigate(func(s *TabSession) error {
		target := urlutil.Normalize(url)
		if target == "" {
			return nil
		}
		return s.Surface.LoadURL(c.ctx, target)
	})
}

// OpenMainPage loads the archive's main page into the current tab.
func (c *Controller) OpenMainPage() {
	c.post(func() {
		c.navigate(func(s *TabSession) error {
			if u := c.mainPageURL(); u != "" {
				return s.Surface.LoadURL(c.ctx, u)
			}
			return nil
		})
	})
}

// GoBack navigates the current tab back. Nothing happens without history.
func (c *Controller) GoBack() {
	c.post(func() {
		c.navigate(func(s *TabSession) error {
			if !s.Surface.CanGoBack() {
				return ErrNavigationNoop
			}
			return s.Surface.GoBack(c.ctx)
		})
	})
}

// GoForward navigates the current tab forward. Nothing happens without
// history.
func (c *Controller) GoForward() {
	c.post(func() {
		c.navigate(func(s *TabSession) error {
			if !s.Surface.CanGoForward() {
				return ErrNavigationNoop
			}
			return s.Surface.GoForward(c.ctx)
		})
	})
}

// navigate runs fn against the current tab, or queues it while restoring.
func (c *Controller) navigate(fn func(*TabSession) error) {
	if c.restoring {
		c.pending = append(c.pending, func() { c.navigate(fn) })
		return
	}
	if c.phase != entity.PhaseOpen {
		logging.FromContext(c.ctx).Debug().Msg("navigation ignored, no content source open")
		return
	}
	s := c.registry.CurrentOrSynthesize()
	if s == nil {
		return
	}

	err := fn(s)
	switch {
	case err == nil:
	case errors.Is(err, ErrNavigationNoop), errors.Is(err, port.ErrNoHistory):
		logging.FromContext(c.ctx).Debug().Msg("navigation noop")
	default:
		logging.FromContext(c.ctx).Warn().Err(err).Msg("navigation failed")
	}
	c.publish()
}

// SetReadAloudActive records whether read-aloud is running.
func (c *Controller) SetReadAloudActive(active bool) {
	c.post(func() {
		if c.readAloud == active {
			return
		}
		c.readAloud = active
		c.publish()
	})
}

// SetFullScreen toggles full-screen reading.
func (c *Controller) SetFullScreen(on bool) {
	c.post(func() {
		if c.fullScreen == on {
			return
		}
		c.fullScreen = on
		c.publish()
	})
}

// ClearMessage dismisses the current user-visible notice.
func (c *Controller) ClearMessage() {
	c.post(func() {
		if c.message == "" {
			return
		}
		c.message = ""
		c.publish()
	})
}

// ToggleBookmark bookmarks or un-bookmarks the current page.
func (c *Controller) ToggleBookmark(ctx context.Context) error {
	if c.deps.Bookmarks == nil {
		return nil
	}

	var sourceID entity.SourceID
	var url, title string
	if err := c.loop.Call(ctx, func() {
		current := c.registry.Current()
		if c.source == nil || current == nil {
			return
		}
		sourceID = c.sourceID()
		url = current.Surface.URL()
		title = current.Surface.Title()
	}); err != nil {
		return err
	}
	if sourceID == "" || url == "" {
		return nil
	}

	on, err := c.deps.Bookmarks.Toggle(ctx, sourceID, url, title)
	if err != nil {
		return err
	}

	c.post(func() {
		current := c.registry.Current()
		if current == nil || current.Surface.URL() != url || c.sourceID() != sourceID {
			return
		}
		c.bookmarked = on
		c.bookmarkKey = string(sourceID) + "\x00" + url
		if on {
			c.message = "Bookmark added"
		} else {
			c.message = "Bookmark removed"
		}
		c.publish()
	})
	return nil
}

// ClearNavigationHistory drops the back/forward lists of every tab and the
// recorded visit history.
func (c *Controller) ClearNavigationHistory(ctx context.Context) error {
	if err := c.loop.Call(ctx, func() {
		for _, s := range c.registry.Sessions() {
			s.Surface.ClearHistory()
		}
		c.scheduleSnapshot()
		c.publish()
	}); err != nil {
		return err
	}
	if c.deps.History == nil {
		return nil
	}
	if err := c.deps.History.Clear(ctx); err != nil {
		return fmt.Errorf("clear navigation history: %w", err)
	}
	return nil
}
