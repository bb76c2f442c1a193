// Package model provides Bubble Tea models for CLI commands.
package model

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kiwix/kiwix-reader/internal/application/port"
	"github.com/kiwix/kiwix-reader/internal/cli/styles"
	"github.com/kiwix/kiwix-reader/internal/domain/entity"
	"github.com/kiwix/kiwix-reader/internal/logging"
	"github.com/kiwix/kiwix-reader/internal/ui/reader"
)

const (
	maxTabTitle   = 20
	progressWidth = 12
	searchLimit   = 20
)

// ReaderController is the part of the reader controller the model drives.
type ReaderController interface {
	State() entity.ReaderUIState
	Subscribe() (<-chan entity.ReaderUIState, func())
	CurrentPage(ctx context.Context) (*port.Content, error)
	Search(ctx context.Context, query string, limit int) ([]port.SearchResult, error)

	OpenContentSource(ctx context.Context, path string)
	NewTab(url string)
	NewTabInBackground(url string)
	NewMainPageTab()
	SelectTab(index int)
	MoveTab(from, to int)
	CloseTab(index int)
	CloseAllTabs()
	RestoreDeletedTab()
	RestoreDeletedTabs()
	EnterTabSwitcher()
	ExitTabSwitcher()
	LoadURL(url string)
	OpenSearchResult(url string, inNewTab bool)
	OpenMainPage()
	GoBack()
	GoForward()
	SetFullScreen(on bool)
	ClearMessage()
	ToggleBookmark(ctx context.Context) error
}

type promptMode int

const (
	promptNone promptMode = iota
	promptGoTo
	promptOpen
	promptSearch
	promptResult
)

type (
	stateMsg       entity.ReaderUIState
	stateClosedMsg struct{}
	pageMsg        struct {
		url  string
		page Page
		err  error
	}
	bookmarkMsg struct{ err error }
	searchMsg   struct {
		query   string
		results []port.SearchResult
		err     error
	}
)

// ReaderModel is the Bubble Tea model for the interactive reader.
type ReaderModel struct {
	viewport viewport.Model
	prompt   textinput.Model
	help     help.Model
	keys     styles.ReaderKeyMap

	state       entity.ReaderUIState
	states      <-chan entity.ReaderUIState
	unsubscribe func()
	page        Page
	pageURL     string
	pageErr     error
	mode        promptMode
	showHelp    bool

	// searchQuery is set while title search results are shown.
	searchQuery string
	results     []port.SearchResult
	searchErr   error

	width       int
	height      int

	ctx   context.Context
	ctrl  ReaderController
	theme *styles.Theme
}

// NewReaderModel creates the reader model. The subscription is released when
// the model quits.
func NewReaderModel(ctx context.Context, theme *styles.Theme, ctrl ReaderController) ReaderModel {
	states, unsubscribe := ctrl.Subscribe()

	prompt := textinput.New()
	prompt.Prompt = "› "
	prompt.CharLimit = 1024

	return ReaderModel{
		viewport:    viewport.New(0, 0),
		prompt:      prompt,
		help:        styles.NewHelp(theme),
		keys:        styles.DefaultReaderKeyMap(),
		state:       ctrl.State(),
		states:      states,
		unsubscribe: unsubscribe,
		ctx:         logging.WithComponent(ctx, "tui"),
		ctrl:        ctrl,
		theme:       theme,
	}
}

// Init starts listening for controller state.
func (m ReaderModel) Init() tea.Cmd {
	return m.waitForState()
}

func (m ReaderModel) waitForState() tea.Cmd {
	states := m.states
	return func() tea.Msg {
		st, ok := <-states
		if !ok {
			return stateClosedMsg{}
		}
		return stateMsg(st)
	}
}

func (m ReaderModel) fetchPage(url string) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		content, err := ctrl.CurrentPage(ctx)
		if err != nil {
			return pageMsg{url: url, err: err}
		}
		return pageMsg{url: url, page: RenderPage(content)}
	}
}

// Update handles messages.
func (m ReaderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.layout()
		return m, nil
	case stateMsg:
		return m.handleState(entity.ReaderUIState(msg))
	case stateClosedMsg:
		return m.quit()
	case pageMsg:
		return m.handlePage(msg)
	case bookmarkMsg:
		if msg.err != nil {
			logging.FromContext(m.ctx).Warn().Err(msg.err).Msg("bookmark toggle failed")
		}
		return m, nil
	case searchMsg:
		return m.handleSearch(msg)
	case tea.KeyMsg:
		if m.mode != promptNone {
			return m.handlePromptKey(msg)
		}
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m ReaderModel) handleState(st entity.ReaderUIState) (tea.Model, tea.Cmd) {
	m.state = st
	m.layout()
	cmds := []tea.Cmd{m.waitForState()}

	switch {
	case st.NoBookOpen:
		m.pageURL = ""
		m.page = Page{}
		m.pageErr = nil
	case st.URL != m.pageURL && !st.Loading:
		m.pageURL = st.URL
		cmds = append(cmds, m.fetchPage(st.URL))
	}
	return m, tea.Batch(cmds...)
}

func (m ReaderModel) handlePage(msg pageMsg) (tea.Model, tea.Cmd) {
	if msg.url != m.pageURL {
		return m, nil
	}
	if msg.err != nil {
		if !errors.Is(msg.err, reader.ErrNoPage) {
			logging.FromContext(m.ctx).Debug().Err(msg.err).Msg("page fetch failed")
		}
		m.pageErr = msg.err
		m.page = Page{}
	} else {
		m.pageErr = nil
		m.page = msg.page
	}
	m.refreshContent()
	m.viewport.GotoTop()
	return m, nil
}

func (m ReaderModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	st := m.state
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.layout()
		return m, nil
	case msg.Type == tea.KeyEsc:
		if m.searchQuery != "" {
			m.clearSearch()
		} else if st.TabSwitcherVisible {
			m.ctrl.ExitTabSwitcher()
		} else {
			m.ctrl.ClearMessage()
		}
		return m, nil
	case key.Matches(msg, m.keys.OpenArchive):
		return m.startPrompt(promptOpen, "")
	}

	if st.TabSwitcherVisible {
		if n, err := strconv.Atoi(msg.String()); err == nil && n >= 1 && n <= st.TabCount {
			m.ctrl.SelectTab(n - 1)
			return m, nil
		}
	}

	switch {
	case key.Matches(msg, m.keys.Back):
		m.ctrl.GoBack()
	case key.Matches(msg, m.keys.Forward):
		m.ctrl.GoForward()
	case key.Matches(msg, m.keys.NextTab):
		if st.TabCount > 0 {
			m.ctrl.SelectTab((st.CurrentTabIndex + 1) % st.TabCount)
		}
	case key.Matches(msg, m.keys.PrevTab):
		if st.TabCount > 0 {
			m.ctrl.SelectTab((st.CurrentTabIndex - 1 + st.TabCount) % st.TabCount)
		}
	case key.Matches(msg, m.keys.MoveLeft):
		if st.CurrentTabIndex > 0 {
			m.ctrl.MoveTab(st.CurrentTabIndex, st.CurrentTabIndex-1)
		}
	case key.Matches(msg, m.keys.MoveRight):
		if st.CurrentTabIndex < st.TabCount-1 {
			m.ctrl.MoveTab(st.CurrentTabIndex, st.CurrentTabIndex+1)
		}
	case key.Matches(msg, m.keys.NewTab):
		m.ctrl.NewMainPageTab()
	case key.Matches(msg, m.keys.NewMainTab):
		m.ctrl.NewTabInBackground(st.URL)
	case key.Matches(msg, m.keys.CloseTab):
		m.ctrl.CloseTab(st.CurrentTabIndex)
	case key.Matches(msg, m.keys.CloseAll):
		m.ctrl.CloseAllTabs()
	case key.Matches(msg, m.keys.Undo):
		m.ctrl.RestoreDeletedTab()
	case key.Matches(msg, m.keys.UndoAll):
		m.ctrl.RestoreDeletedTabs()
	case key.Matches(msg, m.keys.MainPage):
		m.ctrl.OpenMainPage()
	case key.Matches(msg, m.keys.TabSwitcher):
		if st.TabSwitcherVisible {
			m.ctrl.ExitTabSwitcher()
		} else {
			m.ctrl.EnterTabSwitcher()
		}
	case key.Matches(msg, m.keys.FullScreen):
		m.ctrl.SetFullScreen(!st.FullScreen)
	case key.Matches(msg, m.keys.Bookmark):
		ctx, ctrl := m.ctx, m.ctrl
		return m, func() tea.Msg { return bookmarkMsg{err: ctrl.ToggleBookmark(ctx)} }
	case key.Matches(msg, m.keys.GoTo):
		if !st.NoBookOpen {
			return m.startPrompt(promptGoTo, "")
		}
	case key.Matches(msg, m.keys.Search):
		if !st.NoBookOpen {
			return m.startPrompt(promptSearch, "")
		}
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m ReaderModel) startPrompt(mode promptMode, value string) (tea.Model, tea.Cmd) {
	m.mode = mode
	switch mode {
	case promptOpen:
		m.prompt.Placeholder = "path to a .zim archive"
	case promptSearch:
		m.prompt.Placeholder = "article title"
	case promptResult:
		m.prompt.Placeholder = "result number, end with + to open in a new tab"
	default:
		m.prompt.Placeholder = "link number or entry path"
	}
	m.prompt.SetValue(value)
	m.prompt.CursorEnd()
	cmd := m.prompt.Focus()
	m.layout()
	return m, cmd
}

func (m ReaderModel) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		if m.mode == promptResult {
			m.clearSearch()
		}
		m.endPrompt()
		return m, nil
	case tea.KeyEnter:
		value := strings.TrimSpace(m.prompt.Value())
		mode := m.mode
		m.endPrompt()
		if value == "" {
			if mode == promptResult {
				m.clearSearch()
			}
			return m, nil
		}
		switch mode {
		case promptOpen:
			m.ctrl.OpenContentSource(m.ctx, value)
		case promptSearch:
			return m, m.runSearch(value)
		case promptResult:
			return m.openResult(value)
		default:
			m.ctrl.LoadURL(m.resolveTarget(value))
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func (m *ReaderModel) endPrompt() {
	m.mode = promptNone
	m.prompt.Blur()
	m.prompt.SetValue("")
	m.layout()
}

func (m ReaderModel) runSearch(query string) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		results, err := ctrl.Search(ctx, query, searchLimit)
		return searchMsg{query: query, results: results, err: err}
	}
}

func (m ReaderModel) handleSearch(msg searchMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		logging.FromContext(m.ctx).Debug().Err(msg.err).Str("query", msg.query).Msg("title search failed")
	}
	m.searchQuery = msg.query
	m.results = msg.results
	m.searchErr = msg.err
	if len(m.results) == 0 {
		m.layout()
		return m, nil
	}
	return m.startPrompt(promptResult, "")
}

// openResult opens the numbered search result; a trailing + opens it in a
// new tab. Input that names no result keeps the list up.
func (m ReaderModel) openResult(value string) (tea.Model, tea.Cmd) {
	inNewTab := strings.HasSuffix(value, "+")
	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(value, "+")))
	if err != nil || n < 1 || n > len(m.results) {
		return m.startPrompt(promptResult, "")
	}
	m.ctrl.OpenSearchResult(m.results[n-1].URL, inNewTab)
	m.clearSearch()
	return m, nil
}

func (m *ReaderModel) clearSearch() {
	m.searchQuery = ""
	m.results = nil
	m.searchErr = nil
	m.layout()
}

// resolveTarget maps prompt input to a URL: a number picks a link of the
// current page, anything else is an entry path or URL.
func (m ReaderModel) resolveTarget(value string) string {
	if n, err := strconv.Atoi(value); err == nil {
		if target, ok := m.page.Link(n); ok {
			return target
		}
	}
	return value
}

func (m ReaderModel) quit() (tea.Model, tea.Cmd) {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	return m, tea.Quit
}

// layout sizes the viewport to the space left by the chrome.
func (m *ReaderModel) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	chrome := lipgloss.Height(m.statusView())
	if !m.state.FullScreen {
		chrome += lipgloss.Height(m.tabBarView())
	}
	if m.mode != promptNone {
		chrome += lipgloss.Height(m.promptView())
	}
	if m.showHelp {
		chrome += lipgloss.Height(m.help.View(m.keys))
	}
	if m.state.Message != "" {
		chrome++
	}

	m.viewport.Width = m.width
	m.viewport.Height = max(1, m.height-chrome)
	m.refreshContent()
}

func (m *ReaderModel) refreshContent() {
	width := max(20, m.width)
	var body string
	switch {
	case m.pageErr != nil && !errors.Is(m.pageErr, reader.ErrNoPage):
		body = m.theme.ErrorStyle.Render(fmt.Sprintf("Unable to display %s: %v", m.pageURL, m.pageErr))
	default:
		body = m.page.Text
	}
	m.viewport.SetContent(lipgloss.NewStyle().Width(width).Render(body))
}

// View renders the model.
func (m ReaderModel) View() string {
	var sections []string
	if !m.state.FullScreen {
		sections = append(sections, m.tabBarView())
	}

	switch {
	case m.state.Phase == entity.PhaseOpening:
		sections = append(sections, m.placeholder("Opening…"))
	case m.state.NoBookOpen:
		sections = append(sections, m.placeholder("No book open. Press o to open a ZIM archive."))
	case m.state.TabSwitcherVisible:
		sections = append(sections, m.tabSwitcherView())
	case m.searchQuery != "":
		sections = append(sections, m.searchView())
	default:
		sections = append(sections, m.viewport.View())
	}

	if m.state.Message != "" {
		sections = append(sections, m.messageView())
	}
	if m.mode != promptNone {
		sections = append(sections, m.promptView())
	}
	sections = append(sections, m.statusView())
	if m.showHelp {
		sections = append(sections, m.help.View(m.keys))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m ReaderModel) placeholder(text string) string {
	return lipgloss.Place(m.width, m.viewport.Height, lipgloss.Center, lipgloss.Center,
		m.theme.Box.Render(m.theme.Subtle.Render(text)))
}

func (m ReaderModel) tabBarView() string {
	tabs := make([]string, 0, len(m.state.Tabs))
	for i, tab := range m.state.Tabs {
		label := styles.Truncate(fmt.Sprintf("%d %s", i+1, tabLabel(tab)), maxTabTitle)
		if tab.Current {
			tabs = append(tabs, m.theme.ActiveTab.Render(label))
		} else {
			tabs = append(tabs, m.theme.InactiveTab.Render(label))
		}
	}
	if m.state.SourceTitle != "" {
		tabs = append([]string{m.theme.Badge.Render(m.state.SourceTitle)}, tabs...)
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	return m.theme.TabBar.Width(max(0, m.width)).Render(row)
}

func (m ReaderModel) tabSwitcherView() string {
	rows := make([]string, 0, len(m.state.Tabs)+1)
	rows = append(rows, m.theme.BoxHeader.Render(fmt.Sprintf("%d tabs", m.state.TabCount)))
	for i, tab := range m.state.Tabs {
		line := fmt.Sprintf("%d  %s  %s", i+1, tabLabel(tab), m.theme.Subtle.Render(tab.URL))
		if tab.Current {
			rows = append(rows, m.theme.ListItemSelected.Render(line))
		} else {
			rows = append(rows, m.theme.ListItem.Render(line))
		}
	}
	return lipgloss.NewStyle().Height(m.viewport.Height).Render(strings.Join(rows, "\n"))
}

func (m ReaderModel) searchView() string {
	rows := []string{m.theme.BoxHeader.Render(fmt.Sprintf("Titles starting with %q", m.searchQuery))}
	switch {
	case m.searchErr != nil:
		rows = append(rows, m.theme.ErrorStyle.Render(fmt.Sprintf("Search failed: %v", m.searchErr)))
	case len(m.results) == 0:
		rows = append(rows, m.theme.Subtle.Render("No match. Press esc to go back."))
	}
	for i, r := range m.results {
		rows = append(rows, m.theme.ListItem.Render(
			fmt.Sprintf("%d  %s  %s", i+1, r.Title, m.theme.Subtle.Render(r.URL))))
	}
	return lipgloss.NewStyle().Height(m.viewport.Height).Render(strings.Join(rows, "\n"))
}

func (m ReaderModel) messageView() string {
	text := m.state.Message
	if m.state.UndoAvailable {
		text += "  (u: undo)"
	}
	return m.theme.Notice.Render(text)
}

func (m ReaderModel) promptView() string {
	return m.theme.URLBar.Width(max(0, m.width-2)).Render(m.prompt.View())
}

func (m ReaderModel) statusView() string {
	st := m.state
	var parts []string
	if st.Loading {
		parts = append(parts, m.theme.ProgressBar(st.Progress, progressWidth))
	}
	nav := ""
	if st.CanGoBack {
		nav += "←"
	}
	if st.CanGoForward {
		nav += "→"
	}
	if nav != "" {
		parts = append(parts, m.theme.Highlight.Render(nav))
	}
	if st.Bookmarked {
		parts = append(parts, m.theme.Bookmark.Render("★"))
	}
	if st.Title != "" {
		parts = append(parts, m.theme.Title.Render(st.Title))
	}
	if st.URL != "" {
		parts = append(parts, m.theme.Subtle.Render(st.URL))
	}
	if len(m.page.Links) > 0 {
		parts = append(parts, m.theme.Subtle.Render(fmt.Sprintf("%d links", len(m.page.Links))))
	}
	return m.theme.StatusBar.Width(max(0, m.width)).Render(strings.Join(parts, "  "))
}

func tabLabel(tab entity.TabSummary) string {
	if tab.Title != "" {
		return tab.Title
	}
	if tab.URL != "" {
		return tab.URL
	}
	return "New tab"
}
