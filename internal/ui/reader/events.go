package reader

import (
	"github.com/kiwix/kiwix-reader/internal/application/port"
	"github.com/kiwix/kiwix-reader/internal/application/usecase"
	"github.com/kiwix/kiwix-reader/internal/domain/entity"
	"github.com/kiwix/kiwix-reader/internal/logging"
)

// eventKind enumerates surface events delivered to the loop.
type eventKind int

const (
	eventLoadStarted eventKind = iota
	eventProgress
	eventTitleChanged
	eventLoadFinished
	eventLoadFailed
)

// surfaceEvent is a render surface callback marshaled onto the loop.
type surfaceEvent struct {
	tab      entity.TabID
	kind     eventKind
	url      string
	title    string
	progress int
	err      error
}

func progressKey(id entity.TabID) string {
	return "progress:" + string(id)
}

// bindCallbacks routes surface callbacks, which may fire on any goroutine,
// to the loop as typed events. Progress bursts are coalesced per tab.
func (c *Controller) bindCallbacks(s *TabSession) {
	id := s.ID
	send := func(ev surfaceEvent) {
		c.post(func() { c.handleEvent(ev) })
	}
	s.Surface.SetCallbacks(&port.SurfaceCallbacks{
		OnLoadStarted: func(url string) {
			send(surfaceEvent{tab: id, kind: eventLoadStarted, url: url})
		},
		OnProgress: func(percent int) {
			c.progress.Post(progressKey(id), func() {
				if !c.closed {
					c.handleEvent(surfaceEvent{tab: id, kind: eventProgress, progress: percent})
				}
			})
		},
		OnTitleChanged: func(title string) {
			send(surfaceEvent{tab: id, kind: eventTitleChanged, title: title})
		},
		OnLoadFinished: func(url string) {
			send(surfaceEvent{tab: id, kind: eventLoadFinished, url: url})
		},
		OnLoadFailed: func(url string, err error) {
			send(surfaceEvent{tab: id, kind: eventLoadFailed, url: url, err: err})
		},
	})
}

// handleEvent applies a surface event. Events of tabs that are no longer in
// the registry (closed, pending undo) are dropped.
func (c *Controller) handleEvent(ev surfaceEvent) {
	s := c.registry.Find(ev.tab)
	if s == nil {
		return
	}
	log := logging.FromContext(logging.WithTabID(c.ctx, string(ev.tab)))

	switch ev.kind {
	case eventLoadStarted:
		c.tabProgress[ev.tab] = 0
	case eventProgress:
		if _, loading := c.tabProgress[ev.tab]; !loading {
			return
		}
		c.tabProgress[ev.tab] = clampPercent(ev.progress)
	case eventTitleChanged:
	case eventLoadFinished:
		c.progress.Cancel(progressKey(ev.tab))
		delete(c.tabProgress, ev.tab)
		c.deps.Metrics.PageLoaded(true)
		c.recordHistory(ev.url, s.Surface.Title())
		c.scheduleSnapshot()
	case eventLoadFailed:
		c.progress.Cancel(progressKey(ev.tab))
		delete(c.tabProgress, ev.tab)
		c.deps.Metrics.PageLoaded(false)
		log.Warn().Err(ev.err).Str("url", logging.TruncateURL(ev.url, 80)).Msg("page load failed")
	}
	c.publish()
}

// recordHistory queues a visit for the history writers. The loop never
// waits: when the queue is full the visit is dropped.
func (c *Controller) recordHistory(url, title string) {
	if c.deps.History == nil || c.source == nil {
		return
	}
	input := usecase.RecordInput{SourceID: c.sourceID(), URL: url, Title: title}
	select {
	case c.historyCh <- input:
	default:
		logging.FromContext(c.ctx).Warn().
			Str("url", logging.TruncateURL(url, 80)).
			Msg("history queue full, visit not recorded")
	}
}

// writeHistory drains the history queue until Close.
func (c *Controller) writeHistory() error {
	for input := range c.historyCh {
		if _, err := c.deps.History.Execute(c.ctx, input); err != nil {
			logging.FromContext(c.ctx).Warn().Err(err).Msg("history write failed")
		}
	}
	return nil
}

func clampPercent(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
