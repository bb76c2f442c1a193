package entity

import "time"

// historyDateLayout mirrors the "d MMM yyyy" grouping label of the history list.
const historyDateLayout = "2 Jan 2006"

// HistoryEntry represents a page visited inside an archive.
type HistoryEntry struct {
	ID        int64     `json:"id"`
	SourceID  SourceID  `json:"source_id"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	DateLabel string    `json:"date_label"`
	VisitedAt time.Time `json:"visited_at"`
}

// NewHistoryEntry creates a history entry for a finished page load.
func NewHistoryEntry(sourceID SourceID, url, title string, at time.Time) *HistoryEntry {
	return &HistoryEntry{
		SourceID:  sourceID,
		URL:       url,
		Title:     title,
		DateLabel: FormatDateLabel(at),
		VisitedAt: at,
	}
}

// FormatDateLabel renders t as a history date label, e.g. "7 Mar 2024".
func FormatDateLabel(t time.Time) string {
	return t.Format(historyDateLayout)
}
