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
	historyJSON bool
	historyMax  int
)

const defaultHistoryMax = 50

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse reading history",
	Long:  `Show the pages read, newest first. Enter prints the URL of the selected page.`,
	RunE:  runHistory,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the whole reading history",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app := GetApp()
		if app == nil {
			return fmt.Errorf("app not initialized")
		}
		if err := app.RecordHistoryUC.Clear(app.Ctx()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), app.Theme.SuccessStyle.Render("History cleared."))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyClearCmd)

	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output as JSON")
	historyCmd.Flags().IntVar(&historyMax, "max", defaultHistoryMax, "maximum entries to show")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	app := GetApp()
	if app == nil {
		return fmt.Errorf("app not initialized")
	}

	entries, err := app.RecordHistoryUC.Recent(app.Ctx(), historyMax)
	if err != nil {
		return err
	}

	if historyJSON {
		if entries == nil {
			entries = []*entity.HistoryEntry{}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), app.Theme.Subtle.Render("No history yet."))
		return nil
	}

	m := model.NewTableModel(app.Theme, "History", styles.HistoryTableColumns(), historyRows(entries))
	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return fmt.Errorf("run history: %w", err)
	}
	if tm, ok := final.(model.TableModel); ok && len(tm.Selected()) > 1 {
		fmt.Fprintln(cmd.OutOrStdout(), tm.Selected()[1])
	}
	return nil
}

func historyRows(entries []*entity.HistoryEntry) []table.Row {
	rows := make([]table.Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, table.Row{e.Title, e.URL, e.DateLabel})
	}
	return rows
}
