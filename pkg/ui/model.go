// Package ui is the terminal presenter console: an outline of the mounted
// tree that drives the same focus state the browser views follow.
package ui

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kraitsura/ktree_viewer/pkg/focus"
	"github.com/kraitsura/ktree_viewer/pkg/model"
	"github.com/kraitsura/ktree_viewer/pkg/nav"
	"github.com/kraitsura/ktree_viewer/pkg/session"
	"github.com/kraitsura/ktree_viewer/pkg/traversal"
)

const searchLimit = 20

// FocusMsg signals a focus change made anywhere in the session, including
// the browser views. The model rereads the live state on receipt, so a
// message that arrives late never rolls the cursor back.
type FocusMsg struct {
	Snapshot focus.Snapshot
}

// statusMsg is a transient line shown in the footer.
type statusMsg string

// KeyMap holds the console key bindings.
type KeyMap struct {
	Up, Down, Top, Bottom key.Binding
	Next, Previous        key.Binding
	Toggle, Locate        key.Binding
	Search, Widgets, Copy key.Binding
	Order, Help, Quit     key.Binding
	Close                 key.Binding
}

// DefaultKeyMap returns the standard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "move up")),
		Down:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "move down")),
		Top:      key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "first node")),
		Bottom:   key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "last node")),
		Next:     key.NewBinding(key.WithKeys("n", "right"), key.WithHelp("n/→", "next node in traversal")),
		Previous: key.NewBinding(key.WithKeys("p", "left"), key.WithHelp("p/←", "previous node (DFS)")),
		Toggle:   key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "toggle focus")),
		Locate:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "jump to focused node")),
		Search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search labels")),
		Widgets:  key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "show widgets")),
		Copy:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy widget reference")),
		Order:    key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "switch BFS/DFS")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Close:    key.NewBinding(key.WithKeys("esc")),
	}
}

// Model is the bubbletea model of the console.
type Model struct {
	sess  *session.Session
	theme Theme
	keys  KeyMap

	root   *model.TreeNode
	rows   []OutlineRow
	cursor int
	snap   focus.Snapshot

	width, height int

	help    HelpOverlay
	widgets WidgetPanel

	searching bool
	input     textinput.Model
	results   list.Model

	status string

	writeClipboard func(string) error
}

// NewModel builds a console over sess.
func NewModel(sess *session.Session, theme Theme) Model {
	ti := textinput.New()
	ti.Placeholder = "search labels"
	ti.Prompt = "/ "
	ti.CharLimit = 128

	results := list.New(nil, MatchDelegate{Theme: theme}, 60, 8)
	results.SetShowTitle(false)
	results.SetShowStatusBar(false)
	results.SetShowHelp(false)
	results.SetShowPagination(false)
	results.SetFilteringEnabled(false)

	keys := DefaultKeyMap()
	m := Model{
		sess:    sess,
		theme:   theme,
		keys:    keys,
		help:    NewHelpOverlay(theme, keys),
		widgets: NewWidgetPanel(theme),
		input:   ti,
		results: results,
		width:   80,
		height:  24,

		writeClipboard: clipboard.WriteAll,
	}
	m.syncTree()
	m.snap = sess.Focus().Snapshot()
	return m
}

// WatchFocus forwards focus changes to the running program. The returned
// function stops forwarding. Sends happen off the delivery goroutine so a
// busy program never stalls other listeners.
func WatchFocus(p *tea.Program, sess *session.Session) func() {
	return sess.Focus().Subscribe(func(snap focus.Snapshot) {
		go p.Send(FocusMsg{Snapshot: snap})
	})
}

func (m Model) Init() tea.Cmd {
	return nil
}

// syncTree rebuilds the outline when the session has mounted another tree.
func (m *Model) syncTree() {
	doc := m.sess.Document()
	if doc == nil || doc.Root == m.root {
		return
	}
	var cursorID string
	if m.cursor >= 0 && m.cursor < len(m.rows) {
		cursorID = m.rows[m.cursor].ID
	}
	m.root = doc.Root
	m.rows = BuildOutline(doc.Root)
	m.cursor = 0
	if i := rowIndex(m.rows, cursorID); i >= 0 {
		m.cursor = i
	}
	m.widgets.Close()
}

func (m Model) cursorRow() (OutlineRow, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return OutlineRow{}, false
	}
	return m.rows[m.cursor], true
}

func (m *Model) moveCursor(delta int) {
	if len(m.rows) == 0 {
		return
	}
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
}

// followFocus moves the cursor to the focused node unless the cursor is
// already on a node with the focused label.
func (m *Model) followFocus() {
	if !m.snap.HasFocus {
		return
	}
	if row, ok := m.cursorRow(); ok && row.Label == m.snap.Label {
		return
	}
	if i := firstRowWithLabel(m.rows, m.snap.Label); i >= 0 {
		m.cursor = i
	}
}

func (m *Model) layoutPanels() {
	m.help.SetSize(m.width, m.height)
	m.widgets.SetSize(m.width/2-2, m.height-6)
	m.input.Width = m.width - 6
	m.results.SetSize(m.width, 8)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layoutPanels()
		return m, nil

	case FocusMsg:
		m.snap = m.sess.Focus().Snapshot()
		m.syncTree()
		m.followFocus()
		return m, nil

	case statusMsg:
		m.status = string(msg)
		return m, nil

	case tea.KeyMsg:
		if m.help.IsVisible() {
			var cmd tea.Cmd
			m.help, cmd = m.help.Update(msg)
			return m, cmd
		}
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateOutline(msg)
	}

	if m.widgets.IsVisible() {
		var cmd tea.Cmd
		m.widgets, cmd = m.widgets.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateOutline(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.Toggle()

	case key.Matches(msg, m.keys.Close):
		m.widgets.Close()

	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.Top):
		m.cursor = 0
	case key.Matches(msg, m.keys.Bottom):
		m.moveCursor(len(m.rows))

	case key.Matches(msg, m.keys.Next):
		if m.sess.Nav().Next() {
			m.refreshFocus()
		}
	case key.Matches(msg, m.keys.Previous):
		if m.sess.Nav().Previous() {
			m.refreshFocus()
		} else {
			m.status = "Previous is only available in DFS order"
		}

	case key.Matches(msg, m.keys.Toggle):
		if row, ok := m.cursorRow(); ok {
			if err := m.sess.Click(focus.Source2D, row.ID); err != nil {
				m.status = err.Error()
			}
			m.snap = m.sess.Focus().Snapshot()
		}

	case key.Matches(msg, m.keys.Locate):
		if !m.snap.HasFocus {
			m.status = "Nothing is focused"
		}
		m.followFocus()

	case key.Matches(msg, m.keys.Order):
		next := traversal.DFS
		if m.sess.Order() == traversal.DFS {
			next = traversal.BFS
		}
		if err := m.sess.SetOrder(next); err != nil {
			m.status = err.Error()
		} else {
			m.status = fmt.Sprintf("Traversal order: %s", strings.ToUpper(string(next)))
		}
		m.snap = m.sess.Focus().Snapshot()

	case key.Matches(msg, m.keys.Widgets):
		if m.widgets.IsVisible() {
			m.widgets.Close()
		} else if row, ok := m.cursorRow(); ok {
			m.widgets.Open(row.Node)
		}

	case key.Matches(msg, m.keys.Copy):
		return m, m.copyRef()

	case key.Matches(msg, m.keys.Search):
		m.searching = true
		m.input.SetValue("")
		m.results.SetItems(nil)
		return m, m.input.Focus()

	default:
		if m.widgets.IsVisible() {
			var cmd tea.Cmd
			m.widgets, cmd = m.widgets.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

// refreshFocus reads the snapshot after a local step and moves the cursor
// onto the newly focused node.
func (m *Model) refreshFocus() {
	m.snap = m.sess.Focus().Snapshot()
	m.followFocus()
}

// copyRef copies the selected widget reference, or the first widget of the
// cursor node when the panel is closed.
func (m Model) copyRef() tea.Cmd {
	var w model.MediaWidget
	if sel, ok := m.widgets.Selected(); ok {
		w = sel
	} else if row, ok := m.cursorRow(); ok && len(row.Node.Widgets) > 0 {
		w = row.Node.Widgets[0]
	} else {
		return func() tea.Msg { return statusMsg("No widget to copy") }
	}
	ref := w.Classify().Ref
	write := m.writeClipboard
	return func() tea.Msg {
		if err := write(ref); err != nil {
			return statusMsg(fmt.Sprintf("Clipboard error: %v", err))
		}
		return statusMsg(fmt.Sprintf("Copied %s", ref))
	}
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+c":
		m.searching = false
		m.input.Blur()
		return m, nil
	case "up", "ctrl+p":
		m.results.CursorUp()
		return m, nil
	case "down", "ctrl+n":
		m.results.CursorDown()
		return m, nil
	case "enter":
		m.searching = false
		m.input.Blur()
		item, ok := m.results.SelectedItem().(MatchItem)
		if !ok {
			m.status = "No match"
			return m, nil
		}
		if i := rowIndex(m.rows, item.Match.ID); i >= 0 {
			m.cursor = i
		}
		m.sess.Focus().SetFocus(item.Match.Label, focus.Source2D)
		m.snap = m.sess.Focus().Snapshot()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)

	matches := m.sess.Search(m.input.Value(), searchLimit)
	items := make([]list.Item, len(matches))
	for i, match := range matches {
		items[i] = MatchItem{Match: match}
	}
	setCmd := m.results.SetItems(items)
	m.results.Select(0)
	return m, tea.Batch(cmd, setCmd)
}

func (m Model) View() string {
	if m.help.IsVisible() {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.help.View())
	}

	header := m.renderHeader()
	footer := m.renderFooter()

	bodyHeight := m.height - lipgloss.Height(header) - lipgloss.Height(footer)
	var searchView string
	if m.searching {
		searchView = m.input.View() + "\n" + m.results.View()
		bodyHeight -= lipgloss.Height(searchView)
	}
	if bodyHeight < 1 {
		bodyHeight = 1
	}

	outlineWidth := m.width
	if m.widgets.IsVisible() {
		outlineWidth = m.width / 2
	}
	body := renderOutline(m.rows, m.cursor, m.snap, outlineWidth, bodyHeight, m.theme)
	if m.widgets.IsVisible() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, lipgloss.NewStyle().Width(outlineWidth).Render(body), m.widgets.View())
	}

	parts := []string{header, body}
	if searchView != "" {
		parts = append(parts, searchView)
	}
	parts = append(parts, footer)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderHeader() string {
	r := m.theme.Renderer
	title := r.NewStyle().Bold(true).Foreground(m.theme.Primary).Render(m.sess.Name())
	order := r.NewStyle().Foreground(m.theme.Secondary).Render(strings.ToUpper(string(m.sess.Order())))
	return title + "  " + order + "\n" + RenderDivider(m.width)
}

func (m Model) renderFooter() string {
	r := m.theme.Renderer
	st := nav.StatusOf(m.snap, m.sess.Nav().Options())

	var parts []string
	if st.Enabled {
		parts = append(parts, RenderPosition(st.Position, m.theme))
	}
	if m.snap.HasFocus {
		parts = append(parts,
			r.NewStyle().Foreground(m.theme.Focus).Bold(true).Render(m.snap.Label),
			RenderSourceBadge(m.snap.Source, m.theme))
	}
	if st.Enabled && st.NextLabel != "" {
		parts = append(parts, r.NewStyle().Foreground(m.theme.Secondary).Render("next: "+st.NextLabel))
	}
	line := strings.Join(parts, " ")

	hint := r.NewStyle().Faint(true).Render("? help • q quit")
	if m.status != "" {
		hint = r.NewStyle().Foreground(m.theme.Subtext).Italic(true).Render(m.status)
	}
	return RenderDivider(m.width) + "\n" + line + "\n" + hint
}
