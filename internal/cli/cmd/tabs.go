package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kiwix/kiwix-reader/internal/cli/styles"
	"github.com/kiwix/kiwix-reader/internal/domain/entity"
	"github.com/kiwix/kiwix-reader/internal/infrastructure/surface"
)

var (
	tabsJSON   bool
	tabsSource string
)

var tabsCmd = &cobra.Command{
	Use:   "tabs",
	Short: "Show the saved tabs",
	Long: `Show the tabs that will be restored on the next start.

With --source, the tabs saved for that archive ID are shown instead of the
most recent snapshot.`,
	RunE: runTabs,
}

var tabsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget every saved tab",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app := GetApp()
		if app == nil {
			return fmt.Errorf("app not initialized")
		}
		if err := app.Snapshots.Clear(app.Ctx()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), app.Theme.SuccessStyle.Render("Saved tabs cleared."))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tabsCmd)
	tabsCmd.AddCommand(tabsClearCmd)

	tabsCmd.Flags().BoolVar(&tabsJSON, "json", false, "output as JSON")
	tabsCmd.Flags().StringVar(&tabsSource, "source", "", "archive ID to show tabs for")
}

// savedTab is one tab of a snapshot.
type savedTab struct {
	Index   int    `json:"index"`
	Current bool   `json:"current"`
	ScrollY int    `json:"scroll_y"`
	Error   string `json:"error,omitempty"`
	surface.StateSummary
}

// savedTabs is the printable form of a snapshot.
type savedTabs struct {
	SourceID   entity.SourceID `json:"source_id"`
	SourcePath string          `json:"source_path"`
	SavedAt    string          `json:"saved_at"`
	Tabs       []savedTab      `json:"tabs"`
}

func runTabs(cmd *cobra.Command, _ []string) error {
	app := GetApp()
	if app == nil {
		return fmt.Errorf("app not initialized")
	}

	var (
		snap *entity.NavigationHistorySnapshot
		err  error
	)
	if tabsSource != "" {
		snap, err = app.Snapshots.LoadForSource(app.Ctx(), entity.SourceID(tabsSource))
	} else {
		snap, err = app.Snapshots.Load(app.Ctx())
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if snap.IsEmpty() {
		if tabsJSON {
			_, err := fmt.Fprintln(out, "null")
			return err
		}
		fmt.Fprintln(out, app.Theme.Subtle.Render("No saved tabs."))
		return nil
	}

	tabs := summarizeSnapshot(snap)
	if tabsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(tabs)
	}
	printTabs(out, app.Theme, tabs)
	return nil
}

func summarizeSnapshot(snap *entity.NavigationHistorySnapshot) savedTabs {
	out := savedTabs{
		SourceID:   snap.SourceID,
		SourcePath: snap.SourcePath,
		SavedAt:    snap.SavedAt.Local().Format("2006-01-02 15:04:05"),
	}
	current := snap.ClampedCurrent()
	for i, blob := range snap.PerTabBlobs {
		tab := savedTab{Index: i, Current: i == current}
		if i < len(snap.ScrollPositions) {
			tab.ScrollY = snap.ScrollPositions[i]
		}
		summary, err := surface.DescribeState(blob)
		if err != nil {
			tab.Error = err.Error()
		} else {
			tab.StateSummary = summary
		}
		out.Tabs = append(out.Tabs, tab)
	}
	return out
}

func printTabs(w io.Writer, theme *styles.Theme, tabs savedTabs) {
	fmt.Fprintln(w, theme.Title.Render(tabs.SourcePath))
	fmt.Fprintln(w, theme.Subtle.Render(fmt.Sprintf("%s, saved %s", tabs.SourceID, tabs.SavedAt)))
	for _, tab := range tabs.Tabs {
		marker := " "
		if tab.Current {
			marker = theme.Highlight.Render("›")
		}
		if tab.Error != "" {
			fmt.Fprintf(w, "%s %2d  %s\n", marker, tab.Index+1, theme.ErrorStyle.Render(tab.Error))
			continue
		}
		title := tab.Title
		if title == "" {
			title = tab.URL
		}
		fmt.Fprintf(w, "%s %2d  %s  %s\n", marker, tab.Index+1,
			styles.Truncate(title, 40),
			theme.Subtle.Render(fmt.Sprintf("%s (%d back, %d forward)", tab.URL, tab.Back, tab.Forward)))
	}
}
