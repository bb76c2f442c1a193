package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kiwix/kiwix-reader/internal/cli/model"
	"github.com/kiwix/kiwix-reader/internal/cli/styles"
	"github.com/kiwix/kiwix-reader/internal/domain/entity"
)

var (
	bookmarksJSON   bool
	bookmarksSource string
)

var bookmarksCmd = &cobra.Command{
	Use:   "bookmarks",
	Short: "List bookmarked articles",
	Long: `List the articles bookmarked in an archive, newest first.

Without --source, the archive of the last saved session is used.`,
	RunE: runBookmarks,
}

func init() {
	rootCmd.AddCommand(bookmarksCmd)

	bookmarksCmd.Flags().BoolVar(&bookmarksJSON, "json", false, "output as JSON")
	bookmarksCmd.Flags().StringVar(&bookmarksSource, "source", "", "archive ID to list bookmarks for")
}

func runBookmarks(cmd *cobra.Command, _ []string) error {
	app := GetApp()
	if app == nil {
		return fmt.Errorf("app not initialized")
	}

	sourceID := entity.SourceID(bookmarksSource)
	if sourceID == "" {
		snap, err := app.Snapshots.Load(app.Ctx())
		if err != nil {
			return err
		}
		if snap == nil {
			return fmt.Errorf("no saved session; pass --source")
		}
		sourceID = snap.SourceID
	}

	marks, err := app.BookmarksUC.List(app.Ctx(), sourceID)
	if err != nil {
		return err
	}

	if bookmarksJSON {
		if marks == nil {
			marks = []*entity.Bookmark{}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(marks)
	}

	if len(marks) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), app.Theme.Subtle.Render("No bookmarks."))
		return nil
	}

	m := model.NewTableModel(app.Theme, "Bookmarks", styles.HistoryTableColumns(), bookmarkRows(marks))
	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return fmt.Errorf("run bookmarks: %w", err)
	}
	if tm, ok := final.(model.TableModel); ok && len(tm.Selected()) > 1 {
		fmt.Fprintln(cmd.OutOrStdout(), tm.Selected()[1])
	}
	return nil
}

func bookmarkRows(marks []*entity.Bookmark) []table.Row {
	rows := make([]table.Row, 0, len(marks))
	for _, b := range marks {
		rows = append(rows, table.Row{b.Title, b.URL, entity.FormatDateLabel(b.CreatedAt)})
	}
	return rows
}
