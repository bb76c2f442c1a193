package port

import "time"

// RestoreOutcome classifies how a tab restoration ended.
type RestoreOutcome string

const (
	RestoreOutcomeRestored  RestoreOutcome = "restored"
	RestoreOutcomeEmpty     RestoreOutcome = "empty"
	RestoreOutcomeCorrupted RestoreOutcome = "corrupted"
)

// ReaderMetrics receives reader instrumentation.
type ReaderMetrics interface {
	SetOpenTabs(n int)
	PageLoaded(ok bool)
	SnapshotSaved(d time.Duration, err error)
	TabsRestored(outcome RestoreOutcome, tabs int)
	SurfaceInitFailed()
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) SetOpenTabs(int) {}
func (NopMetrics) PageLoaded(bool) {}
func (NopMetrics) SnapshotSaved(time.Duration, error) {}
func (NopMetrics) TabsRestored(RestoreOutcome, int) {}
func (NopMetrics) SurfaceInitFailed() {}
