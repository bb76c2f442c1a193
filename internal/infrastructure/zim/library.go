package zim

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"

	"github.com/kiwix/kiwix-reader/internal/logging"
)

// DefaultPatterns match whole archives and the first part of split ones.
var DefaultPatterns = []string{"**/*.zim", "**/*.zimaa"}

// LibraryEntry is an archive found on disk.
type LibraryEntry struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// ScanLibrary walks dirs and returns the files matching any of patterns,
// sorted by path. Patterns are doublestar globs relative to each directory.
// Hidden directories are skipped; missing directories are logged and ignored.
func ScanLibrary(ctx context.Context, dirs, patterns []string) ([]LibraryEntry, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid library pattern %q", p)
		}
	}

	log := logging.FromContext(ctx)
	var (
		mu    sync.Mutex
		found []LibraryEntry
		seen  = make(map[string]bool)
	)
	conf := fastwalk.Config{Follow: false}

	for _, root := range dirs {
		root = filepath.Clean(root)
		if _, err := os.Stat(root); err != nil {
			log.Warn().Err(err).Str("dir", root).Msg("skipping library directory")
			continue
		}

		err := fastwalk.Walk(&conf, root, func(p string, d os.DirEntry, err error) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			if err != nil {
				log.Debug().Err(err).Str("path", p).Msg("library walk error")
				return nil
			}
			if d.IsDir() {
				if p != root && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}

			rel, err := filepath.Rel(root, p)
			if err != nil || !matchAny(patterns, filepath.ToSlash(rel)) {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			if !seen[p] {
				seen[p] = true
				found = append(found, LibraryEntry{Path: p, Size: info.Size(), ModTime: info.ModTime()})
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", root, err)
		}
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Path < found[j].Path })
	log.Debug().Int("archives", len(found)).Int("dirs", len(dirs)).Msg("library scanned")
	return found, nil
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
