package port

import (
	"context"

	"github.com/kiwix/kiwix-reader/internal/domain/entity"
)

// Content is a resolved archive entry.
type Content struct {
	// URL is the final URL after following redirects.
	URL      string
	MimeType string
	Data     []byte
}

// ContentFetcher resolves content URLs to entry bodies.
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) (*Content, error)
}

// OpenedSource is an archive attached to the reader.
type OpenedSource interface {
	ContentFetcher
	Source() *entity.ContentSource
	Close() error
}

// ContentSourceOpener opens archives by path after checking they exist and
// are readable.
type ContentSourceOpener interface {
	Open(ctx context.Context, path string) (OpenedSource, error)
}

// SearchResult is one title suggestion.
type SearchResult struct {
	Title string `json:"title"`
	// URL is the content URL of the article, after redirects.
	URL string `json:"url"`
}

// TitleSearcher suggests articles whose title starts with a query. Opened
// sources that support search implement it.
type TitleSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}
