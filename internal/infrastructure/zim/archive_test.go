package zim

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiwix/kiwix-reader/internal/application/port"
	"github.com/kiwix/kiwix-reader/internal/logging"
)

func testContext() context.Context {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.DebugLevel)
	return logging.WithContext(context.Background(), logger)
}

func openBuilt(t *testing.T, b *zimBuilder) *Archive {
	t.Helper()
	path := b.write(t, t.TempDir(), "wiki.zim")
	a, err := Open(testContext(), path, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestArchive_Source(t *testing.T) {
	a := openBuilt(t, wikiArchive())

	src := a.Source()
	assert.Equal(t, "12345678-9abc-def0-0102-030405060708", string(src.ID))
	assert.Equal(t, "Tiny Wiki", src.Title)
	assert.Equal(t, "https://kiwix.app/Main_Page", src.MainPageURL)
	assert.Equal(t, uint32(4), src.ArticleCount)
	assert.True(t, a.Header().NewNamespaceScheme())

	lang, err := a.Metadata("Language")
	require.NoError(t, err)
	assert.Equal(t, "eng", lang)

	_, err = a.Metadata("Creator")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestArchive_FetchAcrossCompressions(t *testing.T) {
	cases := []struct {
		name        string
		compression byte
		extended    bool
		perCluster  int
	}{
		{name: "none", compression: compressionNone},
		{name: "zstd", compression: compressionZstd},
		{name: "xz", compression: compressionXZ},
		{name: "zstd extended", compression: compressionZstd, extended: true},
		{name: "one blob per cluster", compression: compressionNone, perCluster: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := wikiArchive()
			b.compression = tc.compression
			b.extended = tc.extended
			b.perCluster = tc.perCluster
			a := openBuilt(t, b)
			ctx := testContext()

			got, err := a.Fetch(ctx, "https://kiwix.app/Rome")
			require.NoError(t, err)
			assert.Equal(t, "https://kiwix.app/Rome", got.URL)
			assert.Equal(t, "text/html", got.MimeType)
			assert.Contains(t, string(got.Data), "<title>Rome</title>")

			img, err := a.Fetch(ctx, "https://kiwix.app/img/logo.png")
			require.NoError(t, err)
			assert.Equal(t, "image/png", img.MimeType)
			assert.Equal(t, "\x89PNG\r\n\x1a\nlogo", string(img.Data))
		})
	}
}

func TestArchive_FetchRedirectsAndRoot(t *testing.T) {
	a := openBuilt(t, wikiArchive())
	ctx := testContext()

	got, err := a.Fetch(ctx, "https://kiwix.app/Roma#History")
	require.NoError(t, err)
	assert.Equal(t, "https://kiwix.app/Rome", got.URL)

	root, err := a.Fetch(ctx, "https://kiwix.app/")
	require.NoError(t, err)
	assert.Equal(t, "https://kiwix.app/Main_Page", root.URL)
	assert.Contains(t, string(root.Data), "main")
}

func TestArchive_FetchErrors(t *testing.T) {
	a := openBuilt(t, wikiArchive())
	ctx := testContext()

	_, err := a.Fetch(ctx, "https://kiwix.app/Paris")
	assert.ErrorIs(t, err, ErrEntryNotFound)

	_, err = a.Fetch(ctx, "https://example.com/Rome")
	assert.ErrorIs(t, err, ErrEntryNotFound)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = a.Fetch(cancelled, "https://kiwix.app/Rome")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestArchive_RedirectLoop(t *testing.T) {
	b := newBuilder()
	b.add('C', "Main_Page", "text/html", "main")
	b.addRedirect('C', "Ping", "C/Pong")
	b.addRedirect('C', "Pong", "C/Ping")
	b.mainPage = "C/Main_Page"
	a := openBuilt(t, b)

	_, err := a.Fetch(testContext(), "https://kiwix.app/Ping")
	assert.ErrorIs(t, err, ErrTooManyRedirects)
}

func TestArchive_OldNamespaceScheme(t *testing.T) {
	b := newBuilder()
	b.minor = 0
	b.add('A', "Main_Page", "text/html", "<title>Old</title>")
	b.add('A', "Rome", "text/html", "rome")
	b.add('I', "logo.png", "image/png", "png")
	b.mainPage = "A/Main_Page"
	a := openBuilt(t, b)
	ctx := testContext()

	assert.False(t, a.Header().NewNamespaceScheme())
	assert.Equal(t, "https://kiwix.app/A/Main_Page", a.Source().MainPageURL)
	assert.Equal(t, uint32(2), a.Source().ArticleCount)
	assert.Equal(t, "wiki", a.Source().Title, "falls back to the file name")

	got, err := a.Fetch(ctx, "https://kiwix.app/A/Rome")
	require.NoError(t, err)
	assert.Equal(t, "rome", string(got.Data))

	got, err = a.Fetch(ctx, "https://kiwix.app/I/logo.png")
	require.NoError(t, err)
	assert.Equal(t, "https://kiwix.app/I/logo.png", got.URL)

	// Bare paths resolve against the article namespace.
	got, err = a.Fetch(ctx, "https://kiwix.app/Rome")
	require.NoError(t, err)
	assert.Equal(t, "https://kiwix.app/A/Rome", got.URL)
}

func TestArchive_NoMainPage(t *testing.T) {
	t.Run("first article stands in", func(t *testing.T) {
		b := newBuilder()
		b.add('C', "img/logo.png", "image/png", "png")
		b.add('C', "Only", "text/html", "only")
		a := openBuilt(t, b)

		assert.Equal(t, "https://kiwix.app/Only", a.Source().MainPageURL)
		root, err := a.Fetch(testContext(), "https://kiwix.app/")
		require.NoError(t, err)
		assert.Equal(t, "https://kiwix.app/Only", root.URL)
	})

	t.Run("no article at all", func(t *testing.T) {
		b := newBuilder()
		b.add('C', "img/logo.png", "image/png", "png")
		a := openBuilt(t, b)

		assert.Empty(t, a.Source().MainPageURL)
		_, err := a.Fetch(testContext(), "https://kiwix.app/")
		assert.ErrorIs(t, err, ErrEntryNotFound)
	})
}

func searchArchive() *zimBuilder {
	b := newBuilder()
	b.addTitled('C', "Rome", "Rome", "text/html", "rome")
	b.addTitled('C', "Romania", "Romania", "text/html", "romania")
	b.addTitled('C', "Roman_Empire", "Roman Empire", "text/html", "empire")
	b.addTitled('C', "Paris", "Paris", "text/html", "paris")
	b.addRedirect('C', "Roma", "C/Rome")
	b.add('M', "Title", "text/plain", "Cities")
	b.mainPage = "C/Paris"
	return b
}

func TestArchive_Search(t *testing.T) {
	a := openBuilt(t, searchArchive())
	ctx := testContext()

	cases := []struct {
		name  string
		query string
		limit int
		want  []port.SearchResult
	}{
		{
			name:  "prefix in title order, redirect resolved and deduplicated",
			query: "Rom",
			want: []port.SearchResult{
				{Title: "Roma", URL: "https://kiwix.app/Rome"},
				{Title: "Roman Empire", URL: "https://kiwix.app/Roman_Empire"},
				{Title: "Romania", URL: "https://kiwix.app/Romania"},
			},
		},
		{
			name:  "lower-case query matches capitalised titles",
			query: "  roman ",
			want: []port.SearchResult{
				{Title: "Roman Empire", URL: "https://kiwix.app/Roman_Empire"},
				{Title: "Romania", URL: "https://kiwix.app/Romania"},
			},
		},
		{
			name:  "limit",
			query: "Rom",
			limit: 1,
			want:  []port.SearchResult{{Title: "Roma", URL: "https://kiwix.app/Rome"}},
		},
		{name: "metadata is not searched", query: "Title"},
		{name: "no match", query: "Berlin"},
		{name: "blank query", query: "   "},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := a.Search(ctx, tc.query, tc.limit)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestArchive_SearchCancelled(t *testing.T) {
	a := openBuilt(t, searchArchive())
	ctx, cancel := context.WithCancel(testContext())
	cancel()

	_, err := a.Search(ctx, "Rom", 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestArchive_ClusterCache(t *testing.T) {
	b := wikiArchive()
	b.compression = compressionZstd
	b.perCluster = 1
	a := openBuilt(t, b)
	ctx := testContext()

	// Opening reads the Title metadata cluster.
	before := a.clusters.Len()
	_, err := a.Fetch(ctx, "https://kiwix.app/Rome")
	require.NoError(t, err)
	assert.Equal(t, before+1, a.clusters.Len())

	_, err = a.Fetch(ctx, "https://kiwix.app/Roma")
	require.NoError(t, err)
	assert.Equal(t, before+1, a.clusters.Len(), "redirect hits the cached cluster")
}

func TestArchive_ConcurrentFetch(t *testing.T) {
	b := wikiArchive()
	b.compression = compressionXZ
	a := openBuilt(t, b)
	ctx := testContext()

	errs := make(chan error, 16)
	for i := 0; i < cap(errs); i++ {
		go func() {
			_, err := a.Fetch(ctx, "https://kiwix.app/Rome")
			errs <- err
		}()
	}
	for i := 0; i < cap(errs); i++ {
		require.NoError(t, <-errs)
	}
}

func TestOpen_Rejects(t *testing.T) {
	ctx := testContext()
	dir := t.TempDir()

	_, err := Open(ctx, filepath.Join(dir, "missing.zim"), 0)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Open(ctx, dir, 0)
	assert.ErrorIs(t, err, ErrNotZim)

	junk := filepath.Join(dir, "junk.zim")
	require.NoError(t, os.WriteFile(junk, []byte("definitely not an archive, just text padding to 80 bytes and more text here......"), 0o644))
	_, err = Open(ctx, junk, 0)
	assert.ErrorIs(t, err, ErrNotZim)

	short := filepath.Join(dir, "short.zim")
	require.NoError(t, os.WriteFile(short, []byte{0x5a, 0x49, 0x4d, 0x04}, 0o644))
	_, err = Open(ctx, short, 0)
	assert.ErrorIs(t, err, ErrNotZim)
}

func TestOpen_UnsupportedCompression(t *testing.T) {
	b := wikiArchive()
	b.compression = 2 // zlib
	path := b.write(t, t.TempDir(), "zlib.zim")

	// Metadata cannot be decoded, so the title falls back to the file name,
	// but article reads surface the compression error.
	a, err := Open(testContext(), path, 0)
	require.NoError(t, err)
	defer a.Close()
	assert.Equal(t, "zlib", a.Source().Title)

	_, err = a.Fetch(testContext(), "https://kiwix.app/Rome")
	assert.ErrorIs(t, err, ErrUnsupportedCompression)
}

func TestOpen_SplitArchive(t *testing.T) {
	data := wikiArchive().build(t)
	dir := t.TempDir()
	third := len(data) / 3
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wiki.zimaa"), data[:third], 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wiki.zimab"), data[third:2*third], 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wiki.zimac"), data[2*third:], 0o644))

	opener := NewOpener(1 << 20)
	src, err := opener.Open(testContext(), filepath.Join(dir, "wiki.zimaa"))
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, "Tiny Wiki", src.Source().Title)
	got, err := src.Fetch(testContext(), "https://kiwix.app/Rome")
	require.NoError(t, err)
	assert.Contains(t, string(got.Data), "rome")
}
