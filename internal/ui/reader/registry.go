package reader

import (
	"github.com/kiwix/kiwix-reader/internal/application/port"
	"github.com/kiwix/kiwix-reader/internal/domain/entity"
)

// TabSession is one open tab: a render surface and its position.
type TabSession struct {
	ID      entity.TabID
	Surface port.RenderSurface
	index   int
}

// Index returns the position of the session in its registry, or -1 once it
// has been removed.
func (s *TabSession) Index() int {
	return s.index
}

// SynthesizeFunc builds a main-page tab for an empty registry. It returns
// nil when no surface could be created.
type SynthesizeFunc func() *TabSession

// Registry is the ordered list of open tabs plus the current index.
// It is not safe for concurrent use; the controller's loop owns it.
type Registry struct {
	tabs       []*TabSession
	current    int
	synthesize SynthesizeFunc
}

// NewRegistry creates an empty registry. synthesize may be nil, in which
// case CurrentOrSynthesize on an empty registry returns nil.
func NewRegistry(synthesize SynthesizeFunc) *Registry {
	return &Registry{synthesize: synthesize}
}

// Len returns the number of tabs.
func (r *Registry) Len() int {
	return len(r.tabs)
}

// CurrentIndex returns the current index. It is 0 when empty.
func (r *Registry) CurrentIndex() int {
	return r.current
}

// At returns the session at index, or nil when out of range.
func (r *Registry) At(index int) *TabSession {
	if index < 0 || index >= len(r.tabs) {
		return nil
	}
	return r.tabs[index]
}

// Find returns the session with id, or nil.
func (r *Registry) Find(id entity.TabID) *TabSession {
	for _, s := range r.tabs {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// Sessions returns a copy of the ordered session list.
func (r *Registry) Sessions() []*TabSession {
	out := make([]*TabSession, len(r.tabs))
	copy(out, r.tabs)
	return out
}

// Add appends s and returns its index. When selectAfterAdd is set the new
// tab becomes current.
func (r *Registry) Add(s *TabSession, selectAfterAdd bool) int {
	r.tabs = append(r.tabs, s)
	idx := len(r.tabs) - 1
	s.index = idx
	if selectAfterAdd {
		r.current = idx
	}
	return idx
}

// Insert puts s at index, clamped to [0, Len()], and returns the index used.
// The current tab keeps pointing at the same session.
func (r *Registry) Insert(index int, s *TabSession) int {
	if index < 0 {
		index = 0
	}
	if index > len(r.tabs) {
		index = len(r.tabs)
	}
	hadTabs := len(r.tabs) > 0

	r.tabs = append(r.tabs, nil)
	copy(r.tabs[index+1:], r.tabs[index:])
	r.tabs[index] = s
	r.reindex(index)

	if hadTabs && index <= r.current {
		r.current++
	}
	return index
}

// RemoveAt removes the session at index. An index is out of range when a
// stale caller removes the same tab twice; that is a no-op reporting false.
func (r *Registry) RemoveAt(index int) (*TabSession, bool) {
	if index < 0 || index >= len(r.tabs) {
		return nil, false
	}
	s := r.tabs[index]
	copy(r.tabs[index:], r.tabs[index+1:])
	r.tabs[len(r.tabs)-1] = nil
	r.tabs = r.tabs[:len(r.tabs)-1]
	r.reindex(index)
	s.index = -1

	if index <= r.current && r.current > 0 {
		r.current--
	}
	return s, true
}

// Current returns the current session without synthesizing, or nil when
// empty.
func (r *Registry) Current() *TabSession {
	if len(r.tabs) == 0 {
		return nil
	}
	return r.tabs[r.clamp(r.current)]
}

// CurrentOrSynthesize returns the current session. An empty registry first
// gets exactly one synthesized main-page tab; nil is returned only when
// that fails.
func (r *Registry) CurrentOrSynthesize() *TabSession {
	if len(r.tabs) == 0 {
		if r.synthesize == nil {
			return nil
		}
		s := r.synthesize()
		if s == nil {
			return nil
		}
		r.Add(s, true)
		return s
	}
	r.current = r.clamp(r.current)
	return r.tabs[r.current]
}

// SelectTab clamps index, makes it current and returns the current session.
func (r *Registry) SelectTab(index int) *TabSession {
	if len(r.tabs) == 0 {
		return r.CurrentOrSynthesize()
	}
	r.current = r.clamp(index)
	return r.tabs[r.current]
}

// Move reorders a tab. The current tab follows its session.
func (r *Registry) Move(from, to int) bool {
	if from < 0 || from >= len(r.tabs) || len(r.tabs) < 2 {
		return false
	}
	to = r.clamp(to)
	if from == to {
		return true
	}
	current := r.tabs[r.clamp(r.current)]

	s := r.tabs[from]
	if from < to {
		copy(r.tabs[from:to], r.tabs[from+1:to+1])
	} else {
		copy(r.tabs[to+1:from+1], r.tabs[to:from])
	}
	r.tabs[to] = s
	r.reindex(0)
	r.current = current.index
	return true
}

// Clear stops and destroys every surface, then empties the registry.
func (r *Registry) Clear() {
	for _, s := range r.tabs {
		releaseSurface(s.Surface)
		s.index = -1
	}
	r.tabs = nil
	r.current = 0
}

// Detach empties the registry without touching the surfaces and returns the
// sessions in order.
func (r *Registry) Detach() []*TabSession {
	out := r.tabs
	for _, s := range out {
		s.index = -1
	}
	r.tabs = nil
	r.current = 0
	return out
}

func (r *Registry) clamp(index int) int {
	switch {
	case index < 0 || len(r.tabs) == 0:
		return 0
	case index >= len(r.tabs):
		return len(r.tabs) - 1
	default:
		return index
	}
}

func (r *Registry) reindex(from int) {
	for i := from; i < len(r.tabs); i++ {
		r.tabs[i].index = i
	}
}

func releaseSurface(s port.RenderSurface) {
	if s == nil || s.IsDestroyed() {
		return
	}
	s.StopLoading()
	s.Destroy()
}
