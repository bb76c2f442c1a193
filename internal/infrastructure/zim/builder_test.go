package zim

import (
	"bytes"
	"crypto/md5"
	"encoding/binary"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

// testEntry describes one entry of a synthetic archive. Entries with a
// redirect target point at another entry's "ns/path" key.
type testEntry struct {
	ns       byte
	path     string
	title    string
	mime     string
	body     string
	redirect string
}

func (e testEntry) key() string { return string(e.ns) + "/" + e.path }

func (e testEntry) displayTitle() string {
	if e.title == "" {
		return e.path
	}
	return e.title
}

// zimBuilder writes small but structurally complete archives.
type zimBuilder struct {
	entries     []testEntry
	compression byte
	extended    bool
	perCluster  int
	mainPage    string
	minor       uint16
	uuid        [16]byte
}

func newBuilder() *zimBuilder {
	return &zimBuilder{
		compression: compressionNone,
		minor:       1,
		uuid:        [16]byte{0x12, 0x34, 0x56, 0x78, 0x9a, 0xbc, 0xde, 0xf0, 1, 2, 3, 4, 5, 6, 7, 8},
	}
}

func (b *zimBuilder) add(ns byte, path, mime, body string) *zimBuilder {
	b.entries = append(b.entries, testEntry{ns: ns, path: path, mime: mime, body: body})
	return b
}

func (b *zimBuilder) addTitled(ns byte, path, title, mime, body string) *zimBuilder {
	b.entries = append(b.entries, testEntry{ns: ns, path: path, title: title, mime: mime, body: body})
	return b
}

func (b *zimBuilder) addRedirect(ns byte, path, target string) *zimBuilder {
	b.entries = append(b.entries, testEntry{ns: ns, path: path, redirect: target})
	return b
}

func (b *zimBuilder) build(t *testing.T) []byte {
	t.Helper()
	le := binary.LittleEndian

	entries := append([]testEntry(nil), b.entries...)
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ns != entries[j].ns {
			return entries[i].ns < entries[j].ns
		}
		return entries[i].path < entries[j].path
	})
	index := make(map[string]int, len(entries))
	for i, e := range entries {
		index[e.key()] = i
	}

	var mimes []string
	mimeIdx := map[string]int{}
	for _, e := range entries {
		if e.redirect != "" {
			continue
		}
		if _, ok := mimeIdx[e.mime]; !ok {
			mimeIdx[e.mime] = len(mimes)
			mimes = append(mimes, e.mime)
		}
	}

	// Assign blobs to clusters in entry order.
	per := b.perCluster
	if per <= 0 {
		per = len(entries) + 1
	}
	var groups [][]string
	type loc struct{ cluster, blob int }
	locs := make([]loc, len(entries))
	for i, e := range entries {
		if e.redirect != "" {
			continue
		}
		if len(groups) == 0 || len(groups[len(groups)-1]) == per {
			groups = append(groups, nil)
		}
		g := len(groups) - 1
		locs[i] = loc{cluster: g, blob: len(groups[g])}
		groups[g] = append(groups[g], e.body)
	}

	var mimeList bytes.Buffer
	for _, m := range mimes {
		mimeList.WriteString(m)
		mimeList.WriteByte(0)
	}
	mimeList.WriteByte(0)

	var dirents bytes.Buffer
	direntPos := make([]uint64, len(entries))
	direntBase := uint64(headerSize + mimeList.Len())
	for i, e := range entries {
		direntPos[i] = direntBase + uint64(dirents.Len())
		var head []byte
		if e.redirect != "" {
			target, ok := index[e.redirect]
			require.True(t, ok, "redirect target %s", e.redirect)
			head = make([]byte, 12)
			le.PutUint16(head[0:], mimeRedirect)
			le.PutUint32(head[8:], uint32(target))
		} else {
			head = make([]byte, 16)
			le.PutUint16(head[0:], uint16(mimeIdx[e.mime]))
			le.PutUint32(head[8:], uint32(locs[i].cluster))
			le.PutUint32(head[12:], uint32(locs[i].blob))
		}
		head[3] = e.ns
		dirents.Write(head)
		dirents.WriteString(e.path)
		dirents.WriteByte(0)
		dirents.WriteString(e.title)
		dirents.WriteByte(0)
	}

	clusters := make([][]byte, len(groups))
	for i, g := range groups {
		clusters[i] = b.encodeCluster(t, g)
	}

	n := uint64(len(entries))
	pathPtrPos := direntBase + uint64(dirents.Len())
	titlePtrPos := pathPtrPos + 8*n
	clusterPtrPos := titlePtrPos + 4*n
	clusterStart := clusterPtrPos + 8*uint64(len(clusters))

	var out bytes.Buffer
	header := make([]byte, headerSize)
	le.PutUint32(header[0:], magicNumber)
	le.PutUint16(header[4:], 6)
	le.PutUint16(header[6:], b.minor)
	copy(header[8:24], b.uuid[:])
	le.PutUint32(header[24:], uint32(n))
	le.PutUint32(header[28:], uint32(len(clusters)))
	le.PutUint64(header[32:], pathPtrPos)
	le.PutUint64(header[40:], titlePtrPos)
	le.PutUint64(header[48:], clusterPtrPos)
	le.PutUint64(header[56:], headerSize)
	mainIdx := uint32(noPage)
	if b.mainPage != "" {
		idx, ok := index[b.mainPage]
		require.True(t, ok, "main page %s", b.mainPage)
		mainIdx = uint32(idx)
	}
	le.PutUint32(header[64:], mainIdx)
	le.PutUint32(header[68:], noPage)

	clustersLen := 0
	for _, c := range clusters {
		clustersLen += len(c)
	}
	checksumPos := clusterStart + uint64(clustersLen)
	le.PutUint64(header[72:], checksumPos)

	out.Write(header)
	out.Write(mimeList.Bytes())
	out.Write(dirents.Bytes())
	for _, p := range direntPos {
		_ = binary.Write(&out, le, p)
	}
	byTitle := make([]int, len(entries))
	for i := range byTitle {
		byTitle[i] = i
	}
	sort.SliceStable(byTitle, func(i, j int) bool {
		ei, ej := entries[byTitle[i]], entries[byTitle[j]]
		if ei.ns != ej.ns {
			return ei.ns < ej.ns
		}
		return ei.displayTitle() < ej.displayTitle()
	})
	for _, i := range byTitle {
		_ = binary.Write(&out, le, uint32(i))
	}
	pos := clusterStart
	for _, c := range clusters {
		_ = binary.Write(&out, le, pos)
		pos += uint64(len(c))
	}
	for _, c := range clusters {
		out.Write(c)
	}
	sum := md5.Sum(out.Bytes())
	out.Write(sum[:])
	return out.Bytes()
}

func (b *zimBuilder) encodeCluster(t *testing.T, blobs []string) []byte {
	t.Helper()
	width := 4
	info := b.compression
	if b.extended {
		width = 8
		info |= extendedCluster
	}

	var data bytes.Buffer
	offset := uint64((len(blobs) + 1) * width)
	writeOff := func(v uint64) {
		if width == 8 {
			_ = binary.Write(&data, binary.LittleEndian, v)
		} else {
			_ = binary.Write(&data, binary.LittleEndian, uint32(v))
		}
	}
	writeOff(offset)
	for _, bl := range blobs {
		offset += uint64(len(bl))
		writeOff(offset)
	}
	for _, bl := range blobs {
		data.WriteString(bl)
	}

	var body []byte
	switch b.compression {
	case compressionXZ:
		var buf bytes.Buffer
		w, err := xz.NewWriter(&buf)
		require.NoError(t, err)
		_, err = w.Write(data.Bytes())
		require.NoError(t, err)
		require.NoError(t, w.Close())
		body = buf.Bytes()
	case compressionZstd:
		enc, err := zstd.NewWriter(nil)
		require.NoError(t, err)
		body = enc.EncodeAll(data.Bytes(), nil)
		require.NoError(t, enc.Close())
	default:
		body = data.Bytes()
	}
	return append([]byte{info}, body...)
}

func (b *zimBuilder) write(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, b.build(t), 0o644))
	return path
}

// wikiArchive is a small new-scheme archive with metadata, a main page
// redirect and an image.
func wikiArchive() *zimBuilder {
	b := newBuilder()
	b.add('C', "Main_Page", "text/html", "<html><head><title>Main</title></head><body>main</body></html>")
	b.add('C', "Rome", "text/html", "<html><head><title>Rome</title></head><body>rome</body></html>")
	b.add('C', "img/logo.png", "image/png", "\x89PNG\r\n\x1a\nlogo")
	b.addRedirect('C', "Roma", "C/Rome")
	b.add('M', "Title", "text/plain", "Tiny Wiki")
	b.add('M', "Language", "text/plain", "eng")
	b.addRedirect('W', "mainPage", "C/Main_Page")
	b.mainPage = "W/mainPage"
	return b
}
