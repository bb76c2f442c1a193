package zim

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/kiwix/kiwix-reader/internal/application/port"
	"github.com/kiwix/kiwix-reader/internal/domain/entity"
	urlutil "github.com/kiwix/kiwix-reader/internal/domain/url"
	"github.com/kiwix/kiwix-reader/internal/infrastructure/cache"
	"github.com/kiwix/kiwix-reader/internal/logging"
)

const (
	// DefaultClusterCacheBytes bounds the decompressed clusters kept per archive.
	DefaultClusterCacheBytes = 16 << 20

	maxRedirects  = 8
	maxEntryBytes = 64 << 10
	maxMimeBytes  = 64 << 10

	// DefaultSearchLimit caps Search when the caller passes no limit.
	DefaultSearchLimit = 25
	// firstArticleScan bounds the entries inspected for a fallback main page.
	firstArticleScan = 256

	metadataNamespace = 'M'
	oldContentNS      = 'A'
)

// file is the storage an archive reads from.
type file interface {
	io.ReaderAt
	io.Closer
}

// Archive is an open ZIM file. It is safe for concurrent use.
type Archive struct {
	f      file
	size   int64
	header Header
	mimes  []string
	source *entity.ContentSource

	clusters *cache.LRU[uint32, *cluster]
	loads    singleflight.Group
}

var (
	_ port.OpenedSource  = (*Archive)(nil)
	_ port.TitleSearcher = (*Archive)(nil)
)

func newArchive(ctx context.Context, f file, size int64, path string, cacheBytes int) (*Archive, error) {
	if cacheBytes <= 0 {
		cacheBytes = DefaultClusterCacheBytes
	}
	a := &Archive{
		f:        f,
		size:     size,
		clusters: cache.NewLRU[uint32, *cluster](cacheBytes, (*cluster).size),
	}

	raw, err := a.readAt(0, headerSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotZim, err)
	}
	if a.header, err = parseHeader(raw); err != nil {
		return nil, err
	}
	if err := a.loadMimeList(); err != nil {
		return nil, err
	}

	src, err := a.describe(path)
	if err != nil {
		return nil, err
	}
	a.source = src

	logging.FromContext(ctx).Debug().
		Str("path", path).
		Str("source_id", string(src.ID)).
		Uint32("entries", a.header.EntryCount).
		Uint32("clusters", a.header.ClusterCount).
		Bool("new_namespaces", a.header.NewNamespaceScheme()).
		Msg("zim archive parsed")
	return a, nil
}

// Header returns the parsed archive header.
func (a *Archive) Header() Header { return a.header }

// Source describes the archive for the reader.
func (a *Archive) Source() *entity.ContentSource { return a.source }

// Close releases the underlying file.
func (a *Archive) Close() error {
	a.clusters.Clear()
	return a.f.Close()
}

// MainPageURL returns the content URL of the main page. Archives without
// one use their first HTML article; "" means there is neither.
func (a *Archive) MainPageURL() (string, error) {
	e, err := a.mainEntry()
	if err != nil || e == nil {
		return "", err
	}
	return a.entryURL(e), nil
}

// mainEntry resolves the main page, or the first HTML article when the
// header names none. It returns nil when there is no candidate.
func (a *Archive) mainEntry() (*dirEntry, error) {
	if a.header.HasMainPage() {
		e, err := a.entryAt(a.header.MainPage)
		if err != nil {
			return nil, err
		}
		return a.follow(e)
	}

	ns := a.articleNamespace()
	lo, err := a.lowerBound(ns)
	if err != nil {
		return nil, err
	}
	for i := lo; i < a.header.EntryCount && i-lo < firstArticleScan; i++ {
		e, err := a.entryAt(i)
		if err != nil {
			return nil, err
		}
		if e.namespace != ns {
			break
		}
		if e.isContent() && strings.HasPrefix(a.mimeType(e), "text/html") {
			return e, nil
		}
	}
	return nil, nil
}

// Metadata returns the value stored under M/name.
func (a *Archive) Metadata(name string) (string, error) {
	_, e, err := a.find(metadataNamespace, name)
	if err != nil {
		return "", err
	}
	data, err := a.content(e)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Fetch resolves a content URL, following redirects, and returns the entry
// body. The root URL resolves to the main page.
func (a *Archive) Fetch(ctx context.Context, rawURL string) (*port.Content, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, ok := urlutil.EntryPath(rawURL)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not an archive url", ErrEntryNotFound, rawURL)
	}

	var e *dirEntry
	var err error
	if path == "" {
		e, err = a.mainEntry()
		if err == nil && e == nil {
			err = fmt.Errorf("%w: no main page", ErrEntryNotFound)
		}
	} else if e, err = a.lookup(path); err == nil {
		e, err = a.follow(e)
	}
	if err != nil {
		return nil, err
	}

	data, err := a.content(e)
	if err != nil {
		return nil, err
	}
	return &port.Content{
		URL:      a.entryURL(e),
		MimeType: a.mimeType(e),
		Data:     bytes.Clone(data),
	}, nil
}

// EntryCount returns the number of entries in namespace ns.
func (a *Archive) EntryCount(ns byte) (uint32, error) {
	lo, err := a.lowerBound(ns)
	if err != nil {
		return 0, err
	}
	hi, err := a.lowerBound(ns + 1)
	if err != nil {
		return 0, err
	}
	return hi - lo, nil
}

func (a *Archive) describe(path string) (*entity.ContentSource, error) {
	id, err := uuid.FromBytes(a.header.UUID[:])
	if err != nil {
		return nil, fmt.Errorf("%w: uuid: %w", ErrCorrupt, err)
	}
	mainPage, err := a.MainPageURL()
	if err != nil {
		return nil, fmt.Errorf("main page: %w", err)
	}

	title, err := a.Metadata("Title")
	if err != nil || strings.TrimSpace(title) == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	count, err := a.EntryCount(a.articleNamespace())
	if err != nil {
		return nil, err
	}

	return &entity.ContentSource{
		ID:           entity.SourceID(id.String()),
		Path:         path,
		Title:        title,
		MainPageURL:  mainPage,
		ArticleCount: count,
	}, nil
}

// Search returns up to limit articles whose title starts with query,
// ordered by title. Titles are matched as typed, then with the first letter
// upper-cased, then lower-cased; a redirect is reported under its own title
// with the URL of its target.
func (a *Archive) Search(ctx context.Context, query string, limit int) ([]port.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	ns := a.articleNamespace()
	seen := map[string]bool{}
	var out []port.SearchResult
	for _, prefix := range titleVariants(query) {
		start, err := a.titleLowerBound(ns, prefix)
		if err != nil {
			return nil, err
		}
		for i := start; i < a.header.EntryCount && len(out) < limit; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			e, err := a.titleEntryAt(i)
			if err != nil {
				return nil, err
			}
			if e.namespace != ns || !strings.HasPrefix(e.title, prefix) {
				break
			}
			target, err := a.follow(e)
			if err != nil {
				continue
			}
			url := a.entryURL(target)
			if seen[url] {
				continue
			}
			seen[url] = true
			out = append(out, port.SearchResult{Title: e.title, URL: url})
		}
	}
	return out, nil
}

func titleVariants(q string) []string {
	r, size := utf8.DecodeRuneInString(q)
	out := []string{q}
	for _, v := range []string{string(unicode.ToUpper(r)) + q[size:], strings.ToLower(q)} {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

// titleLowerBound returns the position in the title pointer list of the
// first entry at or after (ns, title).
func (a *Archive) titleLowerBound(ns byte, title string) (uint32, error) {
	lo, hi := uint32(0), a.header.EntryCount
	for lo < hi {
		mid := lo + (hi-lo)/2
		e, err := a.titleEntryAt(mid)
		if err != nil {
			return 0, err
		}
		if e.namespace < ns || (e.namespace == ns && e.title < title) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, nil
}

func (a *Archive) titleEntryAt(pos uint32) (*dirEntry, error) {
	if pos >= a.header.EntryCount {
		return nil, fmt.Errorf("%w: title %d out of %d", ErrCorrupt, pos, a.header.EntryCount)
	}
	b, err := a.readAt(a.header.TitlePtrPos+4*uint64(pos), 4)
	if err != nil {
		return nil, err
	}
	return a.entryAt(binary.LittleEndian.Uint32(b))
}

func (a *Archive) articleNamespace() byte {
	if a.header.NewNamespaceScheme() {
		return urlutil.ContentNamespace
	}
	return oldContentNS
}

// lookup maps an entry path from a URL to a directory entry. Old-scheme
// paths carry their namespace; a prefix-like path that misses in a
// new-scheme archive is retried as a plain content path.
func (a *Archive) lookup(path string) (*dirEntry, error) {
	ns, rest := urlutil.SplitNamespace(path)
	if ns == urlutil.ContentNamespace && !a.header.NewNamespaceScheme() {
		ns = oldContentNS
	}
	_, e, err := a.find(ns, rest)
	if errors.Is(err, ErrEntryNotFound) && rest != path && a.header.NewNamespaceScheme() {
		_, e, err = a.find(urlutil.ContentNamespace, path)
	}
	return e, err
}

func (a *Archive) follow(e *dirEntry) (*dirEntry, error) {
	for hops := 0; e.isRedirect(); hops++ {
		if hops >= maxRedirects {
			return nil, fmt.Errorf("%w: %c/%s", ErrTooManyRedirects, e.namespace, e.path)
		}
		next, err := a.entryAt(e.redirect)
		if err != nil {
			return nil, err
		}
		e = next
	}
	if !e.isContent() {
		return nil, fmt.Errorf("%w: %c/%s has no content", ErrEntryNotFound, e.namespace, e.path)
	}
	return e, nil
}

func (a *Archive) entryURL(e *dirEntry) string {
	if a.header.NewNamespaceScheme() && e.namespace == urlutil.ContentNamespace {
		return urlutil.ContentURL(e.path)
	}
	return urlutil.ContentURL(string(e.namespace) + "/" + e.path)
}

func (a *Archive) mimeType(e *dirEntry) string {
	if int(e.mime) < len(a.mimes) {
		return a.mimes[e.mime]
	}
	return ""
}

// find binary-searches the path pointer list, which is sorted by namespace
// then path.
func (a *Archive) find(ns byte, path string) (uint32, *dirEntry, error) {
	lo, hi := uint32(0), a.header.EntryCount
	for lo < hi {
		mid := lo + (hi-lo)/2
		e, err := a.entryAt(mid)
		if err != nil {
			return 0, nil, err
		}
		switch c := compareKey(ns, path, e); {
		case c == 0:
			return mid, e, nil
		case c < 0:
			hi = mid
		default:
			lo = mid + 1
		}
	}
	return 0, nil, fmt.Errorf("%w: %c/%s", ErrEntryNotFound, ns, path)
}

// lowerBound returns the index of the first entry whose namespace is >= ns.
func (a *Archive) lowerBound(ns byte) (uint32, error) {
	lo, hi := uint32(0), a.header.EntryCount
	for lo < hi {
		mid := lo + (hi-lo)/2
		e, err := a.entryAt(mid)
		if err != nil {
			return 0, err
		}
		if e.namespace < ns {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, nil
}

func (a *Archive) entryAt(idx uint32) (*dirEntry, error) {
	if idx >= a.header.EntryCount {
		return nil, fmt.Errorf("%w: entry %d out of %d", ErrCorrupt, idx, a.header.EntryCount)
	}
	ptr, err := a.readUint64(a.header.PathPtrPos + 8*uint64(idx))
	if err != nil {
		return nil, err
	}
	return a.readEntry(ptr)
}

// readEntry reads a directory entry at off, growing the read window until
// both strings are terminated.
func (a *Archive) readEntry(off uint64) (*dirEntry, error) {
	for window := 256; window <= maxEntryBytes; window *= 4 {
		buf, err := a.readUpTo(off, window)
		if err != nil {
			return nil, err
		}
		e, err := parseDirEntry(buf)
		if err == nil {
			return e, nil
		}
		if len(buf) < window {
			break
		}
	}
	return nil, fmt.Errorf("%w: truncated entry at %d", ErrCorrupt, off)
}

func (a *Archive) content(e *dirEntry) ([]byte, error) {
	c, err := a.cluster(e.cluster)
	if err != nil {
		return nil, err
	}
	return c.blob(e.blob)
}

// cluster returns a decompressed cluster, sharing one decode among
// concurrent callers.
func (a *Archive) cluster(n uint32) (*cluster, error) {
	if c, ok := a.clusters.Get(n); ok {
		return c, nil
	}
	v, err, _ := a.loads.Do(strconv.FormatUint(uint64(n), 10), func() (any, error) {
		if c, ok := a.clusters.Get(n); ok {
			return c, nil
		}
		start, end, err := a.clusterBounds(n)
		if err != nil {
			return nil, err
		}
		raw, err := a.readAt(start, int(end-start))
		if err != nil {
			return nil, err
		}
		c, err := decodeCluster(raw)
		if err != nil {
			return nil, fmt.Errorf("cluster %d: %w", n, err)
		}
		a.clusters.Set(n, c)
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*cluster), nil
}

// clusterBounds returns the byte range of cluster n. The last cluster ends
// at the checksum, or at end of file when there is none.
func (a *Archive) clusterBounds(n uint32) (uint64, uint64, error) {
	if n >= a.header.ClusterCount {
		return 0, 0, fmt.Errorf("%w: cluster %d out of %d", ErrCorrupt, n, a.header.ClusterCount)
	}
	start, err := a.readUint64(a.header.ClusterPtrPos + 8*uint64(n))
	if err != nil {
		return 0, 0, err
	}
	var end uint64
	if n+1 < a.header.ClusterCount {
		if end, err = a.readUint64(a.header.ClusterPtrPos + 8*uint64(n+1)); err != nil {
			return 0, 0, err
		}
	} else {
		end = a.header.ChecksumPos
		if end == 0 || end > uint64(a.size) {
			end = uint64(a.size)
		}
	}
	if end <= start || end > uint64(a.size) {
		return 0, 0, fmt.Errorf("%w: cluster %d bounds %d..%d", ErrCorrupt, n, start, end)
	}
	return start, end, nil
}

func (a *Archive) loadMimeList() error {
	buf, err := a.readUpTo(a.header.MimeListPos, maxMimeBytes)
	if err != nil {
		return err
	}
	a.mimes, err = parseMimeList(buf)
	return err
}

func (a *Archive) readUint64(off uint64) (uint64, error) {
	b, err := a.readAt(off, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// readAt reads exactly n bytes at off.
func (a *Archive) readAt(off uint64, n int) ([]byte, error) {
	if off > uint64(a.size) || uint64(n) > uint64(a.size)-off {
		return nil, fmt.Errorf("%w: read %d bytes at %d past end %d", ErrCorrupt, n, off, a.size)
	}
	buf := make([]byte, n)
	read, err := a.f.ReadAt(buf, int64(off))
	if read < n {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("read at %d: %w", off, err)
	}
	return buf, nil
}

// readUpTo reads at most n bytes at off, stopping at end of file.
func (a *Archive) readUpTo(off uint64, n int) ([]byte, error) {
	if off >= uint64(a.size) {
		return nil, fmt.Errorf("%w: offset %d past end %d", ErrCorrupt, off, a.size)
	}
	if rest := uint64(a.size) - off; uint64(n) > rest {
		n = int(rest)
	}
	return a.readAt(off, n)
}
