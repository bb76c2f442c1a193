package mainloop

import "sync"

// Coalescer merges bursts of same-key tasks into a single run on the loop.
// Only the latest function posted under a key runs.
type Coalescer struct {
	mu      sync.Mutex
	latest  map[string]func()
	post    func(func()) bool
	stopped bool
}

// NewCoalescer creates a coalescer that schedules through post, usually
// Loop.Post.
func NewCoalescer(post func(func()) bool) *Coalescer {
	if post == nil {
		panic("mainloop.NewCoalescer: post function cannot be nil")
	}
	return &Coalescer{
		latest: make(map[string]func()),
		post:   post,
	}
}

// Post records fn as the latest task for key and schedules a run unless one
// is already pending.
func (c *Coalescer) Post(key string, fn func()) {
	if fn == nil || key == "" {
		return
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	_, pending := c.latest[key]
	c.latest[key] = fn
	c.mu.Unlock()

	if pending {
		return
	}

	if !c.post(func() { c.run(key) }) {
		c.mu.Lock()
		delete(c.latest, key)
		c.mu.Unlock()
	}
}

func (c *Coalescer) run(key string) {
	c.mu.Lock()
	fn, ok := c.latest[key]
	delete(c.latest, key)
	stopped := c.stopped
	c.mu.Unlock()

	if ok && !stopped {
		fn()
	}
}

// Cancel drops the pending task for key, if any.
func (c *Coalescer) Cancel(key string) {
	c.mu.Lock()
	delete(c.latest, key)
	c.mu.Unlock()
}

// Destroy drops all pending work; later posts are ignored.
func (c *Coalescer) Destroy() {
	c.mu.Lock()
	c.stopped = true
	c.latest = map[string]func(){}
	c.mu.Unlock()
}
