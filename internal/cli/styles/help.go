package styles

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

// KeyMap defines keybindings that can be rendered as help.
type KeyMap interface {
	ShortHelp() []key.Binding
	FullHelp() [][]key.Binding
}

// ReaderKeyMap defines keybindings for the reader.
type ReaderKeyMap struct {
	Up          key.Binding
	Down        key.Binding
	Back        key.Binding
	Forward     key.Binding
	NextTab     key.Binding
	PrevTab     key.Binding
	MoveLeft    key.Binding
	MoveRight   key.Binding
	NewTab      key.Binding
	NewMainTab  key.Binding
	CloseTab    key.Binding
	CloseAll    key.Binding
	Undo        key.Binding
	UndoAll     key.Binding
	GoTo        key.Binding
	Search      key.Binding
	MainPage    key.Binding
	Bookmark    key.Binding
	TabSwitcher key.Binding
	FullScreen  key.Binding
	OpenArchive key.Binding
	Help        key.Binding
	Quit        key.Binding
}

// ShortHelp returns keybindings to show in compact help.
func (k ReaderKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Back, k.Forward, k.GoTo, k.Search, k.NewTab, k.CloseTab, k.Undo, k.Help, k.Quit}
}

// FullHelp returns keybindings for expanded help.
func (k ReaderKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Back, k.Forward, k.GoTo, k.Search, k.MainPage},
		{k.NextTab, k.PrevTab, k.MoveLeft, k.MoveRight, k.TabSwitcher},
		{k.NewTab, k.NewMainTab, k.CloseTab, k.CloseAll, k.Undo, k.UndoAll},
		{k.Bookmark, k.FullScreen, k.OpenArchive, k.Help, k.Quit},
	}
}

// DefaultReaderKeyMap returns the default reader keybindings.
func DefaultReaderKeyMap() ReaderKeyMap {
	return ReaderKeyMap{
		Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "scroll up")),
		Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "scroll down")),
		Back:        key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "back")),
		Forward:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "forward")),
		NextTab:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab")),
		PrevTab:     key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("S-tab", "prev tab")),
		MoveLeft:    key.NewBinding(key.WithKeys("["), key.WithHelp("[", "move tab left")),
		MoveRight:   key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "move tab right")),
		NewTab:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new tab")),
		NewMainTab:  key.NewBinding(key.WithKeys("N"), key.WithHelp("N", "new tab (background)")),
		CloseTab:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "close tab")),
		CloseAll:    key.NewBinding(key.WithKeys("X"), key.WithHelp("X", "close all")),
		Undo:        key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "undo close")),
		UndoAll:     key.NewBinding(key.WithKeys("U"), key.WithHelp("U", "undo close all")),
		GoTo:        key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "go to")),
		Search:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search titles")),
		MainPage:    key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "main page")),
		Bookmark:    key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "bookmark")),
		TabSwitcher: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "tab switcher")),
		FullScreen:  key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "full screen")),
		OpenArchive: key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open archive")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// NewHelp creates a themed help model.
func NewHelp(theme *Theme) help.Model {
	h := help.New()
	h.Styles.ShortKey = theme.HelpKey
	h.Styles.ShortDesc = theme.HelpDesc
	h.Styles.FullKey = theme.HelpKey
	h.Styles.FullDesc = theme.HelpDesc
	h.Styles.ShortSeparator = lipgloss.NewStyle().Foreground(theme.Border)
	h.Styles.FullSeparator = lipgloss.NewStyle().Foreground(theme.Border)
	return h
}
