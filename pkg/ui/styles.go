package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kraitsura/ktree_viewer/pkg/focus"
	"github.com/kraitsura/ktree_viewer/pkg/model"
)

// ══════════════════════════════════════════════════════════════════════════════
// DESIGN TOKENS - Colors and visual language
// ══════════════════════════════════════════════════════════════════════════════

var (
	ColorBgSubtle    = lipgloss.Color("#363949")
	ColorBgHighlight = lipgloss.Color("#44475A")
	ColorSubtext     = lipgloss.Color("#BFBFBF")
	ColorMuted       = lipgloss.Color("#6272A4")

	ColorPrimary = lipgloss.Color("#BD93F9")
	ColorInfo    = lipgloss.Color("#8BE9FD")
	ColorSuccess = lipgloss.Color("#50FA7B")
	ColorDanger  = lipgloss.Color("#FF5555")
	ColorFocus   = lipgloss.Color("#F1FA8C")

	// Source badge backgrounds
	ColorSource2DBg = lipgloss.Color("#1A3344")
	ColorSource3DBg = lipgloss.Color("#2A1A3D")
)

// Theme bundles the renderer and adaptive colors the console draws with.
type Theme struct {
	Renderer *lipgloss.Renderer

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor
	Focus     lipgloss.AdaptiveColor
	Cursor    lipgloss.AdaptiveColor
	Danger    lipgloss.AdaptiveColor
	Heavy     lipgloss.AdaptiveColor
	Light     lipgloss.AdaptiveColor
}

// DefaultTheme returns the Dracula-flavoured theme. A nil renderer uses the
// default lipgloss renderer.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	return Theme{
		Renderer:  r,
		Primary:   lipgloss.AdaptiveColor{Light: "#7D56F4", Dark: string(ColorPrimary)},
		Secondary: lipgloss.AdaptiveColor{Light: "#555555", Dark: string(ColorMuted)},
		Subtext:   lipgloss.AdaptiveColor{Light: "#444444", Dark: string(ColorSubtext)},
		Border:    lipgloss.AdaptiveColor{Light: "#CCCCCC", Dark: string(ColorBgHighlight)},
		Focus:     lipgloss.AdaptiveColor{Light: "#B8860B", Dark: string(ColorFocus)},
		Cursor:    lipgloss.AdaptiveColor{Light: "#EEEEEE", Dark: string(ColorBgSubtle)},
		Danger:    lipgloss.AdaptiveColor{Light: "#CC0000", Dark: string(ColorDanger)},
		Heavy:     lipgloss.AdaptiveColor{Light: "#008800", Dark: string(ColorSuccess)},
		Light:     lipgloss.AdaptiveColor{Light: "#0088AA", Dark: string(ColorInfo)},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// PANEL STYLES - For the widget side panel
// ══════════════════════════════════════════════════════════════════════════════

// FocusedPanelStyle frames the active side panel.
var FocusedPanelStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorPrimary)

// ══════════════════════════════════════════════════════════════════════════════
// BADGES
// ══════════════════════════════════════════════════════════════════════════════

// RenderSourceBadge shows which view set the focus.
func RenderSourceBadge(source focus.Source, t Theme) string {
	var fg, bg lipgloss.Color
	var label string
	switch source {
	case focus.Source2D:
		fg, bg, label = ColorInfo, ColorSource2DBg, " 2D "
	case focus.Source3D:
		fg, bg, label = ColorPrimary, ColorSource3DBg, " 3D "
	default:
		return ""
	}
	return t.Renderer.NewStyle().Foreground(fg).Background(bg).Bold(true).Render(label)
}

// RenderMediaBadge labels a widget by its classified kind.
func RenderMediaBadge(ref model.MediaRef, t Theme) string {
	style := t.Renderer.NewStyle().Bold(true)
	if ref.Broken {
		return style.Foreground(t.Danger).Render("[broken]")
	}
	switch ref.Kind {
	case model.MediaVideo:
		return style.Foreground(ColorDanger).Render("[video]")
	case model.MediaImage:
		return style.Foreground(ColorSuccess).Render("[image]")
	default:
		return style.Foreground(ColorInfo).Render("[web]")
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// METRIC VISUALIZATION
// ══════════════════════════════════════════════════════════════════════════════

// RenderWeightBar renders a node weight in [1, 100] as a mini bar.
func RenderWeightBar(weight float64, width int, t Theme) string {
	if width <= 0 {
		return ""
	}
	value := (model.ClampWeight(weight) - model.MinWeight) / (model.MaxWeight - model.MinWeight)
	filled := int(value * float64(width))
	if filled > width {
		filled = width
	}

	var barColor lipgloss.AdaptiveColor
	switch {
	case value >= 0.66:
		barColor = t.Heavy
	case value >= 0.33:
		barColor = t.Light
	default:
		barColor = t.Secondary
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return t.Renderer.NewStyle().Foreground(barColor).Render(bar)
}

// RenderPosition renders the navigation readout, e.g. "3/12".
func RenderPosition(position string, t Theme) string {
	if position == "" {
		return ""
	}
	return t.Renderer.NewStyle().Foreground(t.Primary).Bold(true).Render(fmt.Sprintf("[%s]", position))
}

// ══════════════════════════════════════════════════════════════════════════════
// DIVIDERS AND SEPARATORS
// ══════════════════════════════════════════════════════════════════════════════

// RenderDivider renders a horizontal divider line
func RenderDivider(width int) string {
	if width <= 0 {
		return ""
	}
	return lipgloss.NewStyle().
		Foreground(ColorBgHighlight).
		Render(strings.Repeat("─", width))
}
