package reader

import (
	"time"

	"github.com/kiwix/kiwix-reader/internal/domain/entity"
	"github.com/kiwix/kiwix-reader/internal/logging"
)

type undoKind int

const (
	undoSingle undoKind = iota
	undoAll
)

// undoState holds closed tabs until the undo window expires. Their surfaces
// are stopped but not destroyed.
type undoState struct {
	kind     undoKind
	sessions []*TabSession
	index    int // original index (single) or current index (all)
	timer    *time.Timer
}

// CloseTab closes the tab at index. An out-of-range index is ignored.
func (c *Controller) CloseTab(index int) {
	c.post(func() { c.closeTab(index) })
}

func (c *Controller) closeTab(index int) {
	log := logging.FromContext(c.ctx)

	if c.phase != entity.PhaseOpen {
		return
	}
	s := c.registry.At(index)
	if s == nil {
		log.Debug().Int("index", index).Int("tabs", c.registry.Len()).Msg("close ignored, stale tab index")
		return
	}
	if c.readAloud && index == c.registry.CurrentIndex() {
		c.readAloud = false
	}

	c.finishUndo(false)

	s.Surface.StopLoading()
	c.registry.RemoveAt(index)
	c.forgetProgress(s)

	c.startUndo(&undoState{kind: undoSingle, sessions: []*TabSession{s}, index: index})
	c.message = "Tab closed"
	log.Debug().Str("tab_id", string(s.ID)).Int("index", index).Msg("tab closed")

	c.scheduleHomePage()
	c.publish()
}

// CloseAllTabs closes every tab and leaves the reader; the tabs can be
// brought back with RestoreDeletedTabs until the undo window expires.
func (c *Controller) CloseAllTabs() {
	c.post(func() {
		if c.phase != entity.PhaseOpen {
			return
		}
		c.finishUndo(false)

		current := c.registry.CurrentIndex()
		sessions := c.registry.Detach()
		for _, s := range sessions {
			s.Surface.StopLoading()
			c.forgetProgress(s)
		}

		c.readAloud = false
		c.tabSwitcher = false
		c.phase = entity.PhaseClosed
		c.startUndo(&undoState{kind: undoAll, sessions: sessions, index: current})
		c.message = "All tabs closed"
		logging.FromContext(c.ctx).Debug().Int("tabs", len(sessions)).Msg("all tabs closed")

		c.publish()
	})
}

// RestoreDeletedTab undoes the last CloseTab.
func (c *Controller) RestoreDeletedTab() {
	c.post(func() {
		u := c.undo
		if u == nil || u.kind != undoSingle {
			return
		}
		c.stopUndo()

		s := u.sessions[0]
		if c.registry.Len() == 0 {
			c.phase = entity.PhaseOpen
		}
		idx := c.registry.Insert(u.index, s)
		c.registry.SelectTab(idx)
		c.message = "Tab restored"
		c.publish()
	})
}

// RestoreDeletedTabs undoes the last CloseAllTabs, re-adding the tabs in
// their previous order and showing the tab switcher.
func (c *Controller) RestoreDeletedTabs() {
	c.post(func() {
		if !c.reattachClosedTabs() {
			return
		}
		c.phase = entity.PhaseOpen
		c.tabSwitcher = true
		c.message = "Tabs restored"
		c.publish()
	})
}

// reattachClosedTabs puts the tabs of a pending close-all back in their
// previous order and reports whether there were any.
func (c *Controller) reattachClosedTabs() bool {
	u := c.undo
	if u == nil || u.kind != undoAll || len(u.sessions) == 0 {
		return false
	}
	c.stopUndo()

	for _, s := range u.sessions {
		c.registry.Add(s, false)
	}
	c.registry.SelectTab(u.index)
	return true
}

// DismissUndo ends the undo window early.
func (c *Controller) DismissUndo() {
	c.post(func() {
		if c.undo == nil {
			return
		}
		c.finishUndo(true)
		c.publish()
	})
}

func (c *Controller) startUndo(u *undoState) {
	c.undo = u
	u.timer = time.AfterFunc(c.opts.UndoWindow, func() {
		c.post(func() {
			if c.undo != u {
				return
			}
			c.finishUndo(true)
			c.publish()
		})
	})
}

// stopUndo cancels the window without releasing the sessions.
func (c *Controller) stopUndo() {
	if c.undo == nil {
		return
	}
	if c.undo.timer != nil {
		c.undo.timer.Stop()
	}
	c.undo = nil
	c.message = ""
}

// finishUndo releases the sessions of an expired window and persists the
// remaining tabs. With closeWhenEmpty the archive is closed once no tabs
// remain.
func (c *Controller) finishUndo(closeWhenEmpty bool) {
	u := c.undo
	if u == nil {
		return
	}
	c.stopUndo()
	for _, s := range u.sessions {
		releaseSurface(s.Surface)
	}

	c.scheduleSnapshot()
	if closeWhenEmpty && c.registry.Len() == 0 && c.source != nil {
		logging.FromContext(c.ctx).Debug().Msg("no tabs left, closing content source")
		c.closeSource()
	}
}

// dropUndo releases pending sessions without persisting.
func (c *Controller) dropUndo() {
	u := c.undo
	if u == nil {
		return
	}
	c.stopUndo()
	for _, s := range u.sessions {
		releaseSurface(s.Surface)
	}
}

// scheduleHomePage opens a main-page tab shortly after the last tab closed,
// when configured to.
func (c *Controller) scheduleHomePage() {
	if !c.opts.HomePageOnClose || c.registry.Len() > 0 {
		return
	}
	gen := c.openGen
	time.AfterFunc(c.opts.HomePageDelay, func() {
		c.post(func() {
			if gen != c.openGen || c.phase != entity.PhaseOpen || c.registry.Len() > 0 {
				return
			}
			c.registry.CurrentOrSynthesize()
			c.tabSwitcher = false
			c.publish()
		})
	})
}

func (c *Controller) forgetProgress(s *TabSession) {
	c.progress.Cancel(progressKey(s.ID))
	delete(c.tabProgress, s.ID)
}
