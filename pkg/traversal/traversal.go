// Package traversal computes the linear visiting orders used for
// next/previous stepping through a knowledge tree.
package traversal

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kraitsura/ktree_viewer/pkg/model"
)

// ErrNilRoot is returned when a traversal is requested without a tree.
var ErrNilRoot = errors.New("traversal requires a root node")

// Order selects the visiting order.
type Order string

const (
	BFS Order = "bfs"
	DFS Order = "dfs"
)

// IsValid returns true if the order is a recognized value
func (o Order) IsValid() bool {
	return o == BFS || o == DFS
}

// ParseOrder parses "bfs" or "dfs" (case-insensitive).
func ParseOrder(s string) (Order, error) {
	o := Order(strings.ToLower(strings.TrimSpace(s)))
	if !o.IsValid() {
		return "", fmt.Errorf("unknown traversal order %q (want bfs or dfs)", s)
	}
	return o, nil
}

// Visit is one step of a walk.
type Visit struct {
	Node  *model.TreeNode
	Depth int
}

// Walk calls fn for every node in the given order. BFS is level order
// with children enqueued left to right; DFS is pre-order with each
// child's subtree finished before the next sibling starts.
func Walk(root *model.TreeNode, order Order, fn func(Visit)) error {
	if root == nil {
		return ErrNilRoot
	}
	switch order {
	case BFS:
		queue := []Visit{{Node: root}}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			fn(cur)
			for _, c := range cur.Node.Children {
				if c != nil {
					queue = append(queue, Visit{Node: c, Depth: cur.Depth + 1})
				}
			}
		}
	case DFS:
		stack := []Visit{{Node: root}}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			fn(cur)
			// Push in reverse so the leftmost child is visited first.
			for i := len(cur.Node.Children) - 1; i >= 0; i-- {
				if c := cur.Node.Children[i]; c != nil {
					stack = append(stack, Visit{Node: c, Depth: cur.Depth + 1})
				}
			}
		}
	default:
		return fmt.Errorf("unknown traversal order %q", order)
	}
	return nil
}

// Traverse returns the labels of all nodes in the given order. Duplicate
// labels appear once per occurrence.
func Traverse(root *model.TreeNode, order Order) ([]string, error) {
	var labels []string
	err := Walk(root, order, func(v Visit) {
		labels = append(labels, v.Node.Label)
	})
	if err != nil {
		return nil, err
	}
	return labels, nil
}

// Visits returns the full walk as a slice.
func Visits(root *model.TreeNode, order Order) ([]Visit, error) {
	var out []Visit
	err := Walk(root, order, func(v Visit) {
		out = append(out, v)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
