// Package snapshot persists navigation snapshots in the background with
// debouncing and a single writer.
package snapshot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/kiwix/kiwix-reader/internal/application/port"
	"github.com/kiwix/kiwix-reader/internal/application/usecase"
	"github.com/kiwix/kiwix-reader/internal/domain/entity"
	"github.com/kiwix/kiwix-reader/internal/logging"
)

const (
	defaultInterval   = 1500 * time.Millisecond
	defaultRetryDelay = 50 * time.Millisecond
	maxSaveAttempts   = 3
)

// Service handles debounced navigation snapshots. Only one write is in
// flight at a time; a save requested meanwhile waits for it.
type Service struct {
	snapshotUC *usecase.SnapshotHistoryUseCase
	metrics    port.ReaderMetrics
	interval   time.Duration
	retryDelay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending *entity.NavigationHistorySnapshot
	ctx     context.Context
	cancel  context.CancelFunc

	writeMu sync.Mutex
}

// NewService creates a new snapshot service. A nil metrics sink is allowed.
func NewService(snapshotUC *usecase.SnapshotHistoryUseCase, metrics port.ReaderMetrics, intervalMs int) *Service {
	interval := defaultInterval
	if intervalMs > 0 {
		interval = time.Duration(intervalMs) * time.Millisecond
	}
	if metrics == nil {
		metrics = port.NopMetrics{}
	}
	return &Service{
		snapshotUC: snapshotUC,
		metrics:    metrics,
		interval:   interval,
		retryDelay: defaultRetryDelay,
	}
}

// Start enables background saves. Schedule before Start only records the
// snapshot.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ctx, s.cancel = context.WithCancel(ctx)
	logging.FromContext(ctx).Debug().Dur("interval", s.interval).Msg("snapshot service started")
}

// Stop stops the service and writes any pending snapshot.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	var err error
	if pending != nil {
		err = s.write(ctx, pending)
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	return err
}

// Schedule records snap as the latest state and saves it once no newer
// snapshot has arrived for the debounce interval.
func (s *Service) Schedule(snap *entity.NavigationHistorySnapshot) {
	if snap == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = snap
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.interval, s.flush)
}

// SaveNow writes snap immediately, superseding any pending snapshot.
func (s *Service) SaveNow(ctx context.Context, snap *entity.NavigationHistorySnapshot) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = nil
	s.mu.Unlock()

	return s.write(ctx, snap)
}

// Pending reports whether a scheduled snapshot has not been written yet.
func (s *Service) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

func (s *Service) flush() {
	s.mu.Lock()
	ctx := s.ctx
	snap := s.pending
	if ctx == nil || snap == nil {
		s.mu.Unlock()
		return
	}
	s.pending = nil
	s.timer = nil
	s.mu.Unlock()

	if err := s.write(ctx, snap); err != nil {
		logging.FromContext(ctx).Error().Err(err).Msg("failed to save navigation snapshot")
	}
}

func (s *Service) write(ctx context.Context, snap *entity.NavigationHistorySnapshot) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	start := time.Now()
	var err error
	for attempt := 1; attempt <= maxSaveAttempts; attempt++ {
		err = s.snapshotUC.Execute(ctx, snap)
		if err == nil || !isTransient(err) || attempt == maxSaveAttempts {
			break
		}
		logging.FromContext(ctx).Debug().Err(err).Int("attempt", attempt).Msg("snapshot save busy, retrying")

		select {
		case <-ctx.Done():
			s.metrics.SnapshotSaved(time.Since(start), ctx.Err())
			return ctx.Err()
		case <-time.After(s.retryDelay):
		}
	}
	s.metrics.SnapshotSaved(time.Since(start), err)
	return err
}

// isTransient reports SQLite lock contention, which clears on its own.
func isTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "sqlite_busy")
}
