package styles

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// NewStyledTable creates a themed table model.
func NewStyledTable(theme *Theme, columns []table.Column, rows []table.Row, width, height int) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(height),
		table.WithWidth(width),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(theme.Border).
		BorderBottom(true).
		Foreground(theme.Accent).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(theme.Text).
		Background(theme.SurfaceVariant).
		Bold(true)
	s.Cell = s.Cell.
		Foreground(theme.Text)

	t.SetStyles(s)
	return t
}

// HistoryTableColumns returns columns for the history table.
func HistoryTableColumns() []table.Column {
	return []table.Column{
		{Title: "Title", Width: 36},
		{Title: "URL", Width: 40},
		{Title: "Date", Width: 12},
	}
}

// LibraryTableColumns returns columns for the library table.
func LibraryTableColumns() []table.Column {
	return []table.Column{
		{Title: "Archive", Width: 56},
		{Title: "Size", Width: 10},
		{Title: "Modified", Width: 12},
	}
}

// TabsTableColumns returns columns for the saved tabs table.
func TabsTableColumns() []table.Column {
	return []table.Column{
		{Title: "", Width: 2},
		{Title: "#", Width: 3},
		{Title: "Title", Width: 36},
		{Title: "URL", Width: 40},
	}
}

// FormatBytes renders a size with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
