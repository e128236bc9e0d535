package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// HelpOverlay lists the console key bindings in a bordered box.
type HelpOverlay struct {
	visible  bool
	width    int
	height   int
	theme    Theme
	sections []helpSection
}

type helpSection struct {
	title    string
	bindings []key.Binding
}

// NewHelpOverlay groups the bindings of keys for display.
func NewHelpOverlay(theme Theme, keys KeyMap) HelpOverlay {
	return HelpOverlay{
		theme: theme,
		sections: []helpSection{
			{"PRESENT", []key.Binding{keys.Next, keys.Previous, keys.Order}},
			{"OUTLINE", []key.Binding{keys.Down, keys.Up, keys.Top, keys.Bottom, keys.Toggle, keys.Locate, keys.Search}},
			{"WIDGETS", []key.Binding{keys.Widgets, keys.Copy}},
			{"VIEW", []key.Binding{keys.Help, keys.Quit}},
		},
	}
}

func (m *HelpOverlay) Toggle()          { m.visible = !m.visible }
func (m HelpOverlay) IsVisible() bool   { return m.visible }
func (m *HelpOverlay) SetSize(w, h int) { m.width, m.height = w, h }

// Update closes the overlay on any key.
func (m HelpOverlay) Update(msg tea.Msg) (HelpOverlay, tea.Cmd) {
	if _, ok := msg.(tea.KeyMsg); ok && m.visible {
		m.visible = false
	}
	return m, nil
}

func (m HelpOverlay) View() string {
	if !m.visible {
		return ""
	}
	r := m.theme.Renderer

	var b strings.Builder
	b.WriteString(r.NewStyle().Bold(true).Foreground(m.theme.Primary).Render("Presenter Console Help"))
	b.WriteString("\n\n")

	heading := r.NewStyle().Bold(true).Foreground(m.theme.Secondary)
	keyCol := r.NewStyle().Foreground(m.theme.Primary).Width(10)
	desc := r.NewStyle().Foreground(m.theme.Subtext)

	for i, s := range m.sections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(heading.Render(s.title) + "\n")
		for _, binding := range s.bindings {
			h := binding.Help()
			b.WriteString("  " + keyCol.Render(h.Key) + desc.Render(h.Desc) + "\n")
		}
	}
	b.WriteString("\n" + r.NewStyle().Faint(true).Italic(true).Render("any key closes"))

	box := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.Border).
		Padding(1, 2)
	if m.width > 0 && m.width < 48 {
		box = box.Padding(0, 1)
	}
	return box.Render(b.String())
}
