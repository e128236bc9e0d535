package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// MatchDelegate renders one search result per line, highlighting the runes
// the fuzzy matcher hit.
type MatchDelegate struct {
	Theme Theme
}

func (d MatchDelegate) Height() int {
	return 1
}

func (d MatchDelegate) Spacing() int {
	return 0
}

func (d MatchDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd {
	return nil
}

func (d MatchDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(MatchItem)
	if !ok {
		return
	}

	r := d.Theme.Renderer
	selected := index == m.Index()

	base := r.NewStyle().Foreground(d.Theme.Subtext)
	hit := r.NewStyle().Foreground(d.Theme.Focus).Bold(true)
	if selected {
		base = base.Foreground(d.Theme.Primary).Bold(true)
	}

	available := m.Width() - 12
	if available < 10 {
		available = 10
	}
	label := runewidth.Truncate(i.Match.Label, available, "…")

	matched := make(map[int]bool, len(i.Match.MatchedIndexes))
	for _, idx := range i.Match.MatchedIndexes {
		matched[idx] = true
	}

	var b strings.Builder
	for pos, ch := range label {
		if matched[pos] {
			b.WriteString(hit.Render(string(ch)))
		} else {
			b.WriteString(base.Render(string(ch)))
		}
	}

	cursor := "  "
	if selected {
		cursor = "▸ "
	}
	id := r.NewStyle().Foreground(d.Theme.Secondary).Width(10).Render(i.Match.ID)

	fmt.Fprint(w, lipgloss.JoinHorizontal(lipgloss.Left, cursor, id, b.String()))
}
