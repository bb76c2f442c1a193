package entity

import (
	"errors"
	"fmt"
	"time"
)

// SnapshotVersion is the current schema version for navigation snapshots.
// Increment when making breaking changes to the serialization format.
const SnapshotVersion = 1

// ErrSnapshotInconsistent is returned by Validate when the per-tab slices
// disagree with each other.
var ErrSnapshotInconsistent = errors.New("navigation snapshot inconsistent")

// NavigationHistorySnapshot captures every open tab of one archive so the
// reader can rebuild them after the process dies.
type NavigationHistorySnapshot struct {
	Version         int       `json:"version"`
	SourceID        SourceID  `json:"source_id"`
	SourcePath      string    `json:"source_path"`
	PerTabBlobs     [][]byte  `json:"per_tab_blobs"`
	ScrollPositions []int     `json:"scroll_positions"`
	CurrentTabIndex int       `json:"current_tab_index"`
	SavedAt         time.Time `json:"saved_at"`
}

// TabCount returns the number of tabs captured.
func (s *NavigationHistorySnapshot) TabCount() int {
	if s == nil {
		return 0
	}
	return len(s.PerTabBlobs)
}

// IsEmpty reports whether there is nothing to restore.
func (s *NavigationHistorySnapshot) IsEmpty() bool {
	return s.TabCount() == 0
}

// Validate checks the structural invariants of a snapshot.
func (s *NavigationHistorySnapshot) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil snapshot", ErrSnapshotInconsistent)
	}
	if s.SourceID == "" {
		return fmt.Errorf("%w: missing source id", ErrSnapshotInconsistent)
	}
	if len(s.ScrollPositions) != len(s.PerTabBlobs) {
		return fmt.Errorf("%w: %d blobs but %d scroll positions",
			ErrSnapshotInconsistent, len(s.PerTabBlobs), len(s.ScrollPositions))
	}
	for i, blob := range s.PerTabBlobs {
		if len(blob) == 0 {
			return fmt.Errorf("%w: empty blob for tab %d", ErrSnapshotInconsistent, i)
		}
	}
	return nil
}

// ClampedCurrent returns CurrentTabIndex clamped into the tab range.
func (s *NavigationHistorySnapshot) ClampedCurrent() int {
	n := s.TabCount()
	switch {
	case n == 0, s.CurrentTabIndex < 0:
		return 0
	case s.CurrentTabIndex >= n:
		return n - 1
	default:
		return s.CurrentTabIndex
	}
}
