// Package styles provides reusable lipgloss-based TUI components.
package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette is the set of base colors a Theme is built from.
type Palette struct {
	Paper     string // page background
	Chrome    string // tab bar and status line
	Selection string
	Ink       string
	Faded     string
	Link      string
	Rule      string
	Alert     string
	Caution   string
}

// KiwixPalette is the default palette, built around the Kiwix blue.
func KiwixPalette() Palette {
	return Palette{
		Paper:     "#101418",
		Chrome:    "#1c232b",
		Selection: "#2a3541",
		Ink:       "#e6e9ec",
		Faded:     "#8a96a3",
		Link:      "#5aa9e6",
		Rule:      "#36414d",
		Alert:     "#e5484d",
		Caution:   "#f1b24a",
	}
}

// Theme holds lipgloss colors and styles.
type Theme struct {
	Background     lipgloss.Color
	Surface        lipgloss.Color
	SurfaceVariant lipgloss.Color
	Text           lipgloss.Color
	Muted          lipgloss.Color
	Accent         lipgloss.Color
	Border         lipgloss.Color
	Error          lipgloss.Color
	Warning        lipgloss.Color

	Title        lipgloss.Style
	Normal       lipgloss.Style
	Subtle       lipgloss.Style
	Highlight    lipgloss.Style
	ErrorStyle   lipgloss.Style
	SuccessStyle lipgloss.Style

	// Reader chrome
	ActiveTab   lipgloss.Style
	InactiveTab lipgloss.Style
	TabBar      lipgloss.Style
	StatusBar   lipgloss.Style
	URLBar      lipgloss.Style
	Notice      lipgloss.Style
	Bookmark    lipgloss.Style
	Badge       lipgloss.Style

	// Tab switcher
	ListItem         lipgloss.Style
	ListItemSelected lipgloss.Style

	HelpKey  lipgloss.Style
	HelpDesc lipgloss.Style

	Box       lipgloss.Style
	BoxHeader lipgloss.Style
}

// NewTheme creates the default theme.
func NewTheme() *Theme {
	return NewThemeFromPalette(KiwixPalette())
}

// NewThemeFromPalette creates a Theme from a Palette.
func NewThemeFromPalette(p Palette) *Theme {
	t := &Theme{
		Background:     lipgloss.Color(p.Paper),
		Surface:        lipgloss.Color(p.Chrome),
		SurfaceVariant: lipgloss.Color(p.Selection),
		Text:           lipgloss.Color(p.Ink),
		Muted:          lipgloss.Color(p.Faded),
		Accent:         lipgloss.Color(p.Link),
		Border:         lipgloss.Color(p.Rule),
		Error:          lipgloss.Color(p.Alert),
		Warning:        lipgloss.Color(p.Caution),
	}
	t.buildTextStyles()
	t.buildChromeStyles()
	t.buildPanelStyles()
	return t
}

func (t *Theme) fg(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

func (t *Theme) buildTextStyles() {
	t.Title = t.fg(t.Text).Bold(true)
	t.Normal = t.fg(t.Text)
	t.Subtle = t.fg(t.Muted)
	t.Highlight = t.fg(t.Accent).Bold(true)
	t.ErrorStyle = t.fg(t.Error)
	t.SuccessStyle = t.fg(t.Accent)
	t.HelpKey = t.fg(t.Accent)
	t.HelpDesc = t.fg(t.Muted)
}

func (t *Theme) buildChromeStyles() {
	pill := lipgloss.NewStyle().Padding(0, 2)

	t.ActiveTab = pill.Foreground(t.Background).Background(t.Accent).Bold(true)
	t.InactiveTab = pill.Foreground(t.Muted).Background(t.Surface)
	t.TabBar = lipgloss.NewStyle().
		Background(t.Surface).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(t.Border)
	t.StatusBar = t.fg(t.Muted).Background(t.Surface).Padding(0, 1)
	t.URLBar = t.fg(t.Text).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(t.Accent).
		Padding(0, 1)
	t.Notice = t.fg(t.Background).Background(t.Warning).Padding(0, 1)
	t.Bookmark = t.fg(t.Warning).Bold(true)
	t.Badge = t.fg(t.Background).Background(t.Accent).Padding(0, 1)
}

func (t *Theme) buildPanelStyles() {
	t.ListItem = t.fg(t.Text).PaddingLeft(2)
	t.ListItemSelected = t.fg(t.Accent).
		Background(t.SurfaceVariant).
		PaddingLeft(2).
		Bold(true)
	t.Box = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(1, 2)
	t.BoxHeader = t.fg(t.Text).
		Bold(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(t.Border).
		MarginBottom(1)
}

// ProgressBar renders a fixed-width bar for percent in [0, 100].
func (t *Theme) ProgressBar(percent, width int) string {
	if width <= 0 {
		return ""
	}
	percent = max(0, min(100, percent))
	filled := width * percent / 100
	return t.fg(t.Accent).Render(strings.Repeat("━", filled)) +
		t.fg(t.Border).Render(strings.Repeat("━", width-filled))
}
