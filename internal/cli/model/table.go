package model

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kiwix/kiwix-reader/internal/cli/styles"
)

const tableChrome = 4

var (
	tableQuit   = key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"))
	tableSelect = key.NewBinding(key.WithKeys("enter"))
)

// TableModel shows rows in a scrollable table. Enter picks the highlighted
// row and quits.
type TableModel struct {
	table    table.Model
	title    string
	theme    *styles.Theme
	selected table.Row
}

// NewTableModel creates a table browser.
func NewTableModel(theme *styles.Theme, title string, columns []table.Column, rows []table.Row) TableModel {
	width := 0
	for _, c := range columns {
		width += c.Width + 2
	}
	return TableModel{
		table: styles.NewStyledTable(theme, columns, rows, width, min(len(rows)+1, 20)),
		title: title,
		theme: theme,
	}
}

// Init implements tea.Model.
func (m TableModel) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m TableModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetHeight(max(3, msg.Height-tableChrome))
		return m, nil
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, tableQuit):
			return m, tea.Quit
		case key.Matches(msg, tableSelect):
			m.selected = m.table.SelectedRow()
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m TableModel) View() string {
	return m.theme.Title.Render(m.title) + "\n" +
		m.table.View() + "\n" +
		m.theme.HelpDesc.Render("↑/↓ move • enter select • q quit")
}

// Selected returns the row picked with enter, or nil.
func (m TableModel) Selected() table.Row {
	return m.selected
}
