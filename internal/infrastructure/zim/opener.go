package zim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/kiwix/kiwix-reader/internal/application/port"
	"github.com/kiwix/kiwix-reader/internal/logging"
)

const splitSuffix = ".zimaa"

// Opener opens archives from the local filesystem.
type Opener struct {
	cacheBytes int
}

var _ port.ContentSourceOpener = (*Opener)(nil)

// NewOpener creates an opener whose archives cache up to cacheBytes of
// decompressed clusters each (DefaultClusterCacheBytes when <= 0).
func NewOpener(cacheBytes int) *Opener {
	return &Opener{cacheBytes: cacheBytes}
}

// Open implements port.ContentSourceOpener.
func (o *Opener) Open(ctx context.Context, path string) (port.OpenedSource, error) {
	return Open(ctx, path, o.cacheBytes)
}

// Open checks that path is a readable regular file and parses it. Paths
// ending in .zimaa are opened together with their .zimab, .zimac, ...
// siblings.
func Open(ctx context.Context, path string, cacheBytes int) (*Archive, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		f    file
		size int64
		err  error
	)
	if strings.HasSuffix(path, splitSuffix) {
		f, size, err = openSplit(path)
	} else {
		f, size, err = openSingle(path)
	}
	if err != nil {
		return nil, err
	}

	a, err := newArchive(ctx, f, size, path, cacheBytes)
	if err != nil {
		_ = f.Close()
		logging.FromContext(ctx).Warn().Err(err).Str("path", path).Msg("failed to parse zim archive")
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return a, nil
}

func openSingle(path string) (*os.File, int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, fmt.Errorf("stat archive: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, 0, fmt.Errorf("%w: %s is not a regular file", ErrNotZim, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open archive: %w", err)
	}
	return f, info.Size(), nil
}

// splitFile presents consecutive archive parts as one file.
type splitFile struct {
	parts  []*os.File
	starts []int64
	size   int64
}

func openSplit(first string) (*splitFile, int64, error) {
	base := strings.TrimSuffix(first, "aa")
	sf := &splitFile{}
	for _, suffix := range splitSuffixes() {
		f, size, err := openSingle(base + suffix)
		if err != nil {
			if suffix == "aa" {
				return nil, 0, err
			}
			if errors.Is(err, fs.ErrNotExist) {
				break
			}
			_ = sf.Close()
			return nil, 0, err
		}
		sf.parts = append(sf.parts, f)
		sf.starts = append(sf.starts, sf.size)
		sf.size += size
	}
	return sf, sf.size, nil
}

// splitSuffixes lists part suffixes in order: aa, ab, ..., zz.
func splitSuffixes() []string {
	out := make([]string, 0, 26*26)
	for a := 'a'; a <= 'z'; a++ {
		for b := 'a'; b <= 'z'; b++ {
			out = append(out, string([]rune{a, b}))
		}
	}
	return out
}

func (s *splitFile) ReadAt(p []byte, off int64) (int, error) {
	if off >= s.size {
		return 0, io.EOF
	}
	i := sort.Search(len(s.starts), func(i int) bool { return s.starts[i] > off }) - 1
	total := 0
	for total < len(p) && i < len(s.parts) {
		n, err := s.parts[i].ReadAt(p[total:], off-s.starts[i])
		total += n
		off += int64(n)
		if err != nil && err != io.EOF {
			return total, err
		}
		i++
	}
	if total < len(p) {
		return total, io.EOF
	}
	return total, nil
}

func (s *splitFile) Close() error {
	var first error
	for _, f := range s.parts {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
