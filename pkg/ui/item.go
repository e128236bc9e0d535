package ui

import (
	"fmt"

	"github.com/kraitsura/ktree_viewer/pkg/search"
)

// MatchItem wraps a search.Match to implement list.Item
type MatchItem struct {
	Match search.Match
}

func (i MatchItem) Title() string {
	return i.Match.Label
}

func (i MatchItem) Description() string {
	return fmt.Sprintf("%s • depth %d", i.Match.ID, i.Match.Depth)
}

func (i MatchItem) FilterValue() string {
	return i.Match.Label
}
