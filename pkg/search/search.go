// Package search implements fuzzy label search over a tree.
package search

import (
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/kraitsura/ktree_viewer/pkg/model"
	"github.com/kraitsura/ktree_viewer/pkg/traversal"
)

// Entry is one searchable node.
type Entry struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Depth int    `json:"depth"`
}

// Match is a search hit.
type Match struct {
	Entry
	Score          int   `json:"score"`
	MatchedIndexes []int `json:"matched_indexes,omitempty"`
}

// Index holds the searchable nodes of one tree in DFS order.
type Index struct {
	entries []Entry
	labels  []string
}

// NewIndex builds an index over root. A nil root yields an empty index.
func NewIndex(root *model.TreeNode) *Index {
	idx := &Index{}
	if root == nil {
		return idx
	}
	_ = traversal.Walk(root, traversal.DFS, func(v traversal.Visit) {
		idx.entries = append(idx.entries, Entry{ID: v.Node.ID, Label: v.Node.Label, Depth: v.Depth})
		idx.labels = append(idx.labels, v.Node.Label)
	})
	return idx
}

// Len returns the number of indexed nodes.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Entries returns the indexed nodes in DFS order.
func (idx *Index) Entries() []Entry {
	return idx.entries
}

// Find returns up to limit matches, best first. Ties keep tree order. An
// empty query matches nothing; limit <= 0 means no limit.
func (idx *Index) Find(query string, limit int) []Match {
	query = strings.TrimSpace(query)
	if query == "" || len(idx.entries) == 0 {
		return nil
	}
	matches := fuzzy.Find(query, idx.labels)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]Match, 0, len(matches))
	for _, m := range matches {
		out = append(out, Match{
			Entry:          idx.entries[m.Index],
			Score:          m.Score,
			MatchedIndexes: m.MatchedIndexes,
		})
	}
	return out
}
