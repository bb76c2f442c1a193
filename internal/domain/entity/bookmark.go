package entity

import "time"

// Bookmark is a saved article of an archive.
type Bookmark struct {
	SourceID  SourceID  `json:"source_id"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}
