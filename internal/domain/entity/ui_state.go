package entity

// ReaderPhase is the lifecycle phase of the reader for the open archive.
type ReaderPhase int

const (
	// PhaseClosed means no archive is attached and the "no book open" view shows.
	PhaseClosed ReaderPhase = iota
	// PhaseOpening means an open request is in flight.
	PhaseOpening
	// PhaseOpen means an archive is attached and tabs are available.
	PhaseOpen
)

// String returns a human-readable representation of the phase.
func (p ReaderPhase) String() string {
	switch p {
	case PhaseClosed:
		return "closed"
	case PhaseOpening:
		return "opening"
	case PhaseOpen:
		return "open"
	default:
		return "unknown"
	}
}

// TabSummary is the per-tab information shown by the tab switcher.
type TabSummary struct {
	ID      TabID
	Title   string
	URL     string
	Current bool
}

// ReaderUIState is an immutable snapshot of everything the presentation layer
// renders. It is recomputed from the tab registry and transient flags.
type ReaderUIState struct {
	Phase       ReaderPhase
	SourceTitle string

	Progress int // 0-100
	Loading  bool

	TabCount        int
	CurrentTabIndex int
	Tabs            []TabSummary

	Title        string
	URL          string
	CanGoBack    bool
	CanGoForward bool
	Bookmarked   bool

	TabSwitcherVisible bool
	ReadAloudActive    bool
	FullScreen         bool
	NoBookOpen         bool
	UndoAvailable      bool

	// Message is a user-visible notice (errors, "tab closed", ...).
	Message string
	// Revision increases on every publication.
	Revision uint64
}
