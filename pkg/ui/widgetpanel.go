package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/kraitsura/ktree_viewer/pkg/model"
)

// WidgetPanel lists the media widgets of one node. Notes are markdown and
// rendered with glamour.
type WidgetPanel struct {
	viewport viewport.Model
	theme    Theme
	nodeID   string
	label    string
	widgets  []model.MediaWidget
	selected int
	visible  bool
}

// NewWidgetPanel creates a hidden panel.
func NewWidgetPanel(theme Theme) WidgetPanel {
	return WidgetPanel{
		viewport: viewport.New(40, 10),
		theme:    theme,
	}
}

// Open shows the widgets of node.
func (p *WidgetPanel) Open(node *model.TreeNode) {
	p.nodeID = node.ID
	p.label = node.Label
	p.widgets = node.Widgets
	p.selected = 0
	p.visible = true
	p.refresh()
	p.viewport.GotoTop()
}

func (p *WidgetPanel) Close()            { p.visible = false }
func (p WidgetPanel) IsVisible() bool    { return p.visible }
func (p WidgetPanel) NodeID() string     { return p.nodeID }
func (p WidgetPanel) Count() int         { return len(p.widgets) }
func (p WidgetPanel) SelectedIndex() int { return p.selected }

// Selected returns the highlighted widget.
func (p WidgetPanel) Selected() (model.MediaWidget, bool) {
	if !p.visible || p.selected < 0 || p.selected >= len(p.widgets) {
		return model.MediaWidget{}, false
	}
	return p.widgets[p.selected], true
}

// SetSize resizes the viewport and re-renders the notes at the new wrap width.
func (p *WidgetPanel) SetSize(width, height int) {
	if width < 20 {
		width = 20
	}
	if height < 3 {
		height = 3
	}
	p.viewport.Width = width
	p.viewport.Height = height
	if p.visible {
		p.refresh()
	}
}

// Update handles selection keys and passes the rest to the viewport.
func (p WidgetPanel) Update(msg tea.Msg) (WidgetPanel, tea.Cmd) {
	if !p.visible {
		return p, nil
	}
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "tab":
			if len(p.widgets) > 0 {
				p.selected = (p.selected + 1) % len(p.widgets)
				p.refresh()
			}
			return p, nil
		case "shift+tab":
			if len(p.widgets) > 0 {
				p.selected = (p.selected - 1 + len(p.widgets)) % len(p.widgets)
				p.refresh()
			}
			return p, nil
		}
	}
	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return p, cmd
}

func (p *WidgetPanel) refresh() {
	p.viewport.SetContent(p.render())
}

func (p WidgetPanel) render() string {
	r := p.theme.Renderer
	var b strings.Builder

	b.WriteString(r.NewStyle().Bold(true).Foreground(p.theme.Primary).Render(p.label))
	b.WriteString("\n")
	if len(p.widgets) == 0 {
		b.WriteString(r.NewStyle().Foreground(p.theme.Secondary).Italic(true).Render("No widgets on this node."))
		return b.String()
	}

	md := notesRenderer(p.viewport.Width)
	for i, w := range p.widgets {
		ref := w.Classify()
		cursor := "  "
		title := r.NewStyle().Foreground(p.theme.Subtext)
		if i == p.selected {
			cursor = "▸ "
			title = title.Foreground(p.theme.Focus).Bold(true)
		}
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%s%s %s\n", cursor, RenderMediaBadge(ref, p.theme), title.Render(w.DisplayTitle())))
		if w.Subtitle != "" {
			b.WriteString("    " + r.NewStyle().Italic(true).Foreground(p.theme.Secondary).Render(w.Subtitle) + "\n")
		}
		b.WriteString("    " + r.NewStyle().Faint(true).Render(ref.Ref) + "\n")
		if w.Notes != "" {
			b.WriteString(renderNotes(md, w.Notes))
		}
	}
	return b.String()
}

func notesRenderer(width int) *glamour.TermRenderer {
	wrap := width - 4
	if wrap < 20 {
		wrap = 20
	}
	md, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return nil
	}
	return md
}

func renderNotes(md *glamour.TermRenderer, notes string) string {
	if md != nil {
		if out, err := md.Render(notes); err == nil {
			return out
		}
	}
	return "    " + strings.ReplaceAll(strings.TrimSpace(notes), "\n", "\n    ") + "\n"
}

// View renders the panel inside a border.
func (p WidgetPanel) View() string {
	if !p.visible {
		return ""
	}
	return FocusedPanelStyle.Render(p.viewport.View())
}
