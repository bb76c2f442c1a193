package entity

// SourceID identifies an opened archive (its UUID in hex form).
type SourceID string

// ContentSource represents an archive attached to the reader.
type ContentSource struct {
	ID           SourceID
	Path         string
	Title        string
	MainPageURL  string
	ArticleCount uint32
}

// SameAs reports whether other refers to the same archive.
func (s *ContentSource) SameAs(other *ContentSource) bool {
	if s == nil || other == nil {
		return false
	}
	if s.ID != "" && other.ID != "" {
		return s.ID == other.ID
	}
	return s.Path == other.Path
}
