package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kiwix/kiwix-reader/internal/cli/styles"
	"github.com/kiwix/kiwix-reader/internal/infrastructure/zim"
	"github.com/kiwix/kiwix-reader/internal/logging"
)

const libraryOpenLimit = 4

var (
	libraryJSON     bool
	libraryDetails  bool
	libraryPatterns []string
)

var libraryCmd = &cobra.Command{
	Use:   "library [dirs...]",
	Short: "List ZIM archives found on disk",
	Long: `Scan directories for ZIM archives.

Without arguments the directories of library.dirs are scanned. Patterns are
doublestar globs relative to each directory (default: **/*.zim, **/*.zimaa).`,
	RunE: runLibrary,
}

func init() {
	rootCmd.AddCommand(libraryCmd)

	libraryCmd.Flags().BoolVar(&libraryJSON, "json", false, "output as JSON")
	libraryCmd.Flags().BoolVarP(&libraryDetails, "details", "d", false, "open each archive to show its title and article count")
	libraryCmd.Flags().StringSliceVarP(&libraryPatterns, "pattern", "p", nil, "glob patterns (overrides library.patterns)")
}

// libraryItem is one archive of the listing.
type libraryItem struct {
	zim.LibraryEntry
	Title    string `json:"title,omitempty"`
	Articles uint32 `json:"articles,omitempty"`
	Error    string `json:"error,omitempty"`
}

func runLibrary(cmd *cobra.Command, args []string) error {
	app := GetApp()
	if app == nil {
		return fmt.Errorf("app not initialized")
	}

	dirs := args
	if len(dirs) == 0 {
		dirs = app.Config.Library.Dirs
	}
	if len(dirs) == 0 {
		return fmt.Errorf("no library directories: pass them as arguments or set library.dirs")
	}
	patterns := libraryPatterns
	if len(patterns) == 0 {
		patterns = app.Config.Library.Patterns
	}

	entries, err := zim.ScanLibrary(app.Ctx(), dirs, patterns)
	if err != nil {
		return err
	}
	items := make([]libraryItem, len(entries))
	for i, e := range entries {
		items[i].LibraryEntry = e
	}
	if libraryDetails {
		if err := describeLibrary(app.Ctx(), items, app.Config.Reader.ClusterCacheMB<<20); err != nil {
			return err
		}
	}

	if libraryJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}
	printLibrary(cmd.OutOrStdout(), app.Theme, items)
	return nil
}

// describeLibrary opens the archives concurrently and fills in their titles.
// An archive that fails to open is reported on its own item.
func describeLibrary(ctx context.Context, items []libraryItem, cacheBytes int) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(libraryOpenLimit)
	for i := range items {
		item := &items[i]
		g.Go(func() error {
			archive, err := zim.Open(gctx, item.Path, cacheBytes)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logging.FromContext(ctx).Debug().Err(err).Str("path", item.Path).Msg("skipping unreadable archive")
				item.Error = err.Error()
				return nil
			}
			defer func() { _ = archive.Close() }()
			item.Title = archive.Source().Title
			item.Articles = archive.Source().ArticleCount
			return nil
		})
	}
	return g.Wait()
}

func printLibrary(w io.Writer, theme *styles.Theme, items []libraryItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, theme.Subtle.Render("No archives found."))
		return
	}
	for _, item := range items {
		line := fmt.Sprintf("%-10s %s  %s",
			styles.FormatBytes(item.Size),
			item.ModTime.Format("2006-01-02"),
			item.Path,
		)
		fmt.Fprintln(w, theme.Normal.Render(line))
		switch {
		case item.Error != "":
			fmt.Fprintln(w, "           "+theme.ErrorStyle.Render(item.Error))
		case item.Title != "":
			fmt.Fprintln(w, "           "+theme.Subtle.Render(fmt.Sprintf("%s, %d articles", item.Title, item.Articles)))
		}
	}
	fmt.Fprintln(w, theme.Subtle.Render(fmt.Sprintf("%d archives", len(items))))
}
