package reader

import (
	"context"
	"errors"

	"github.com/kiwix/kiwix-reader/internal/application/port"
	"github.com/kiwix/kiwix-reader/internal/application/usecase"
	"github.com/kiwix/kiwix-reader/internal/domain/entity"
	"github.com/kiwix/kiwix-reader/internal/logging"
)

const (
	sourceUnavailableMessage = "Unable to open the file: it does not exist or cannot be read"
	noMainPageMessage        = "This archive has no main page"
)

// openResult is delivered to the loop once an archive open finishes.
type openResult struct {
	gen      uint64
	source   port.OpenedSource
	snapshot *entity.NavigationHistorySnapshot
	corrupt  bool
	err      error
}

// OpenContentSource opens the archive at path. Opening the archive that is
// already open keeps its tabs; any other archive replaces them with its
// saved tabs, or with a single main-page tab.
func (c *Controller) OpenContentSource(ctx context.Context, path string) {
	c.post(func() {
		gen := c.beginOpening()
		go func() {
			res := c.loadSource(ctx, path, nil)
			res.gen = gen
			c.post(func() { c.finishOpening(res) })
		}()
	})
}

// Start restores the tabs of the last session. The archive recorded in the
// snapshot is reopened; without a usable snapshot the reader stays closed.
func (c *Controller) Start(ctx context.Context) {
	c.post(func() {
		gen := c.beginOpening()
		go func() {
			log := logging.FromContext(c.ctx)
			out, err := c.deps.Restore.Execute(ctx, usecase.RestoreInput{})
			if err != nil || out.Snapshot == nil || out.Snapshot.SourcePath == "" {
				switch {
				case errors.Is(err, usecase.ErrRestoreCorrupted):
					log.Warn().Err(err).Msg("discarding unusable navigation history")
					c.deps.Metrics.TabsRestored(port.RestoreOutcomeCorrupted, 0)
				case err != nil:
					log.Warn().Err(err).Msg("failed to load navigation history")
				default:
					log.Debug().Msg("no previous session to restore")
				}
				c.post(func() { c.abortOpening(gen) })
				return
			}

			res := c.loadSource(ctx, out.Snapshot.SourcePath, out.Snapshot)
			res.gen = gen
			c.post(func() { c.finishOpening(res) })
		}()
	})
}

// beginOpening enters the opening phase; navigation requests are queued
// until the open completes.
func (c *Controller) beginOpening() uint64 {
	c.openGen++
	c.phase = entity.PhaseOpening
	c.restoring = true
	c.message = ""
	c.publish()
	return c.openGen
}

func (c *Controller) abortOpening(gen uint64) {
	if gen != c.openGen {
		return
	}
	c.restoring = false
	c.pending = nil
	if c.source != nil {
		c.phase = entity.PhaseOpen
	} else {
		c.phase = entity.PhaseClosed
	}
	c.publish()
}

// loadSource opens path and, unless preloaded is given, loads the snapshot
// saved for it. It runs off the loop.
func (c *Controller) loadSource(ctx context.Context, path string, preloaded *entity.NavigationHistorySnapshot) openResult {
	log := logging.FromContext(c.ctx)

	src, err := c.deps.Opener.Execute(ctx, path)
	if err != nil {
		return openResult{err: err}
	}
	res := openResult{source: src, snapshot: preloaded}
	if preloaded != nil {
		if preloaded.SourceID != src.Source().ID {
			log.Warn().Msg("saved tabs belong to a different archive, ignoring them")
			res.snapshot = nil
			res.corrupt = true
		}
		return res
	}

	out, err := c.deps.Restore.Execute(ctx, usecase.RestoreInput{SourceID: src.Source().ID})
	switch {
	case errors.Is(err, usecase.ErrRestoreCorrupted):
		log.Warn().Err(err).Msg("discarding unusable navigation history")
		res.corrupt = true
	case err != nil:
		log.Warn().Err(err).Msg("failed to load navigation history")
	default:
		res.snapshot = out.Snapshot
	}
	return res
}

// finishOpening applies an open result on the loop.
func (c *Controller) finishOpening(res openResult) {
	log := logging.FromContext(c.ctx)

	if res.gen != c.openGen {
		if res.source != nil {
			_ = res.source.Close()
		}
		return
	}

	if res.err != nil {
		log.Warn().Err(res.err).Msg("content source unavailable")
		c.finishUndo(false)
		c.scheduleSnapshot()
		c.registry.Clear()
		c.closeSource()
		c.message = sourceUnavailableMessage
		c.publish()
		return
	}

	if c.source != nil && c.source.Source().SameAs(res.source.Source()) {
		// Same archive: keep the tabs we have, including those of a
		// close-all that is still undoable.
		_ = res.source.Close()
		if c.registry.Len() == 0 {
			c.reattachClosedTabs()
		}
		c.phase = entity.PhaseOpen
		c.endRestore()
		c.registry.CurrentOrSynthesize()
		c.publish()
		return
	}

	c.finishUndo(false)
	if c.source != nil {
		c.scheduleSnapshot()
	}
	pending := c.pending
	c.registry.Clear()
	c.closeSource()
	c.pending = pending

	c.source = res.source
	c.phase = entity.PhaseOpen
	c.restoring = true
	log.Info().
		Str("source_id", string(res.source.Source().ID)).
		Str("title", res.source.Source().Title).
		Msg("content source attached")
	if res.source.Source().MainPageURL == "" {
		log.Warn().
			Str("source_id", string(res.source.Source().ID)).
			Msg("archive has no main page, new tabs start blank")
		c.message = noMainPageMessage
	}

	switch {
	case res.corrupt:
		c.deps.Metrics.TabsRestored(port.RestoreOutcomeCorrupted, 0)
	case res.snapshot.IsEmpty():
		c.deps.Metrics.TabsRestored(port.RestoreOutcomeEmpty, 0)
	default:
		if c.restoreTabs(res.snapshot) {
			c.deps.Metrics.TabsRestored(port.RestoreOutcomeRestored, c.registry.Len())
		} else {
			c.deps.Metrics.TabsRestored(port.RestoreOutcomeCorrupted, 0)
		}
	}

	c.registry.CurrentOrSynthesize()
	c.endRestore()
	c.publish()
}

// restoreTabs rebuilds one tab per saved blob without loading content. On
// a rejected blob every restored tab is discarded and false is returned.
func (c *Controller) restoreTabs(snap *entity.NavigationHistorySnapshot) bool {
	log := logging.FromContext(c.ctx)

	c.registry.Clear()
	for i, blob := range snap.PerTabBlobs {
		s, err := c.newSession("")
		if err != nil {
			log.Warn().Err(err).Int("tab", i).Msg("skipping tab, no surface available")
			continue
		}
		if err := s.Surface.RestoreState(blob); err != nil {
			log.Warn().Err(err).Int("tab", i).Msg("saved tab state rejected, falling back to main page")
			releaseSurface(s.Surface)
			c.registry.Clear()
			return false
		}
		s.Surface.SetScrollY(snap.ScrollPositions[i])
		c.registry.Add(s, false)
	}
	c.registry.SelectTab(snap.ClampedCurrent())

	log.Info().Int("tabs", c.registry.Len()).Int("current", c.registry.CurrentIndex()).Msg("tabs restored")
	return true
}

// endRestore clears the restoring flag and replays queued navigation.
func (c *Controller) endRestore() {
	c.restoring = false
	pending := c.pending
	c.pending = nil
	for _, fn := range pending {
		fn()
	}
}
