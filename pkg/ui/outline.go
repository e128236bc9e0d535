package ui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/kraitsura/ktree_viewer/pkg/focus"
	"github.com/kraitsura/ktree_viewer/pkg/model"
	"github.com/kraitsura/ktree_viewer/pkg/traversal"
)

// OutlineRow is one line of the console outline.
type OutlineRow struct {
	ID     string
	Label  string
	Depth  int
	Weight float64
	Node   *model.TreeNode
}

// BuildOutline flattens the tree in pre-order so that children sit under
// their parent.
func BuildOutline(root *model.TreeNode) []OutlineRow {
	visits, err := traversal.Visits(root, traversal.DFS)
	if err != nil {
		return nil
	}
	rows := make([]OutlineRow, 0, len(visits))
	for _, v := range visits {
		rows = append(rows, OutlineRow{
			ID:     v.Node.ID,
			Label:  v.Node.Label,
			Depth:  v.Depth,
			Weight: v.Node.EffectiveWeight(),
			Node:   v.Node,
		})
	}
	return rows
}

// rowIndex returns the index of the row with the given id, or -1.
func rowIndex(rows []OutlineRow, id string) int {
	for i, r := range rows {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// firstRowWithLabel returns the first row carrying label, or -1.
func firstRowWithLabel(rows []OutlineRow, label string) int {
	for i, r := range rows {
		if r.Label == label {
			return i
		}
	}
	return -1
}

// visibleWindow returns the [start, end) range of rows to draw so the
// cursor stays on screen.
func visibleWindow(total, cursor, height int) (int, int) {
	if height <= 0 || total == 0 {
		return 0, 0
	}
	if total <= height {
		return 0, total
	}
	start := cursor - height/2
	if start < 0 {
		start = 0
	}
	if start+height > total {
		start = total - height
	}
	return start, start + height
}

const weightBarWidth = 6

func renderOutline(rows []OutlineRow, cursor int, snap focus.Snapshot, width, height int, t Theme) string {
	start, end := visibleWindow(len(rows), cursor, height)
	if start == end {
		return t.Renderer.NewStyle().Foreground(t.Secondary).Italic(true).Render("(empty tree)")
	}

	labelWidth := width - weightBarWidth - 4
	if labelWidth < 8 {
		labelWidth = 8
	}

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		r := rows[i]
		focused := snap.Matches(r.Label)

		marker := "○ "
		if focused {
			marker = "● "
		}
		text := strings.Repeat("  ", r.Depth) + marker + r.Label
		if n := len(r.Node.Widgets); n > 0 {
			text += fmt.Sprintf(" [%d]", n)
		}
		text = runewidth.Truncate(text, labelWidth, "…")
		text = runewidth.FillRight(text, labelWidth)

		style := t.Renderer.NewStyle().Foreground(t.Subtext)
		if focused {
			style = style.Foreground(t.Focus).Bold(true)
		}
		if i == cursor {
			style = style.Background(t.Cursor)
		}
		lines = append(lines, style.Render(text)+"  "+RenderWeightBar(r.Weight, weightBarWidth, t))
	}
	return strings.Join(lines, "\n")
}
