// Package mainloop provides the single-goroutine event loop that owns all
// reader state, plus helpers for scheduling work onto it.
package mainloop

import (
	"context"
	"errors"
	"sync"
)

// ErrStopped is returned by Call after the loop has been stopped.
var ErrStopped = errors.New("main loop stopped")

// Loop runs posted functions one at a time, in posting order, on a single
// goroutine. Post never blocks, so callbacks running on the loop may post
// further work.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	done    chan struct{}
	stopped bool
	started bool
}

// New creates a loop. Call Run or Start to begin processing.
func New() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Start runs the loop on a new goroutine until ctx is done or Stop is called.
func (l *Loop) Start(ctx context.Context) {
	go l.Run(ctx)
}

// Run processes posted work until ctx is done or Stop is called. Work still
// queued at that point is dropped.
func (l *Loop) Run(ctx context.Context) {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return
	}
	l.started = true
	l.mu.Unlock()

	defer close(l.done)

	for {
		select {
		case <-ctx.Done():
			l.Stop()
			return
		case <-l.wake:
		}

		for {
			l.mu.Lock()
			if l.stopped {
				l.queue = nil
				l.mu.Unlock()
				return
			}
			if len(l.queue) == 0 {
				l.mu.Unlock()
				break
			}
			fn := l.queue[0]
			l.queue[0] = nil
			l.queue = l.queue[1:]
			l.mu.Unlock()

			fn()
		}
	}
}

// Post schedules fn. It reports false when the loop is stopped.
func (l *Loop) Post(fn func()) bool {
	if fn == nil {
		return false
	}
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Call runs fn on the loop and waits for it to return. It must not be
// called from the loop goroutine.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrStopped
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		select {
		case <-finished:
			return nil
		default:
			return ErrStopped
		}
	}
}

// Idle waits until the queue has drained, including work posted by the
// functions that ran meanwhile.
func (l *Loop) Idle(ctx context.Context) error {
	for {
		var empty bool
		if err := l.Call(ctx, func() {
			l.mu.Lock()
			empty = len(l.queue) == 0
			l.mu.Unlock()
		}); err != nil {
			return err
		}
		if empty {
			return nil
		}
	}
}

// Stop halts the loop. Queued work is dropped.
func (l *Loop) Stop() {
	l.mu.Lock()
	l.stopped = true
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
