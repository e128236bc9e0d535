package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Weight bounds. Weights outside this range are clamped by the views;
// the model itself never rejects them.
const (
	MinWeight     = 1.0
	MaxWeight     = 100.0
	NeutralWeight = 50.0
)

// Document is the top-level shape of a tree file: a root node plus an
// optional seo block that is only passed through to the page shell.
type Document struct {
	Root *TreeNode `json:"-" yaml:"-"`
	SEO  *SEO      `json:"seo,omitempty" yaml:"seo,omitempty"`
}

// SEO carries page metadata. The viewer does not interpret it.
type SEO struct {
	Title       string `json:"title,omitempty" yaml:"title,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// TreeNode is one node of a knowledge tree.
type TreeNode struct {
	// ID is a synthetic identity assigned by AssignIDs. Labels are not
	// unique, ids are.
	ID       string        `json:"id,omitempty" yaml:"id,omitempty"`
	Label    string        `json:"node" yaml:"node"`
	Weight   *float64      `json:"weight,omitempty" yaml:"weight,omitempty"`
	Children []*TreeNode   `json:"children,omitempty" yaml:"children,omitempty"`
	Widgets  []MediaWidget `json:"widgets,omitempty" yaml:"widgets,omitempty"`
}

// MediaWidget is a media attachment. Name doubles as identifier and
// resource locator.
type MediaWidget struct {
	Name     string `json:"name" yaml:"name"`
	Notes    string `json:"notes,omitempty" yaml:"notes,omitempty"`
	Title    string `json:"title,omitempty" yaml:"title,omitempty"`
	Subtitle string `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	Preview  string `json:"preview,omitempty" yaml:"preview,omitempty"`
}

// UnmarshalJSON accepts either a bare string (the widget name) or an object.
func (w *MediaWidget) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*w = MediaWidget{Name: name}
		return nil
	}
	type plain MediaWidget
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("widget must be a string or an object: %w", err)
	}
	*w = MediaWidget(p)
	return nil
}

// UnmarshalYAML mirrors UnmarshalJSON for YAML documents.
func (w *MediaWidget) UnmarshalYAML(unmarshal func(any) error) error {
	var name string
	if err := unmarshal(&name); err == nil {
		*w = MediaWidget{Name: name}
		return nil
	}
	type plain MediaWidget
	var p plain
	if err := unmarshal(&p); err != nil {
		return fmt.Errorf("widget must be a string or an object: %w", err)
	}
	*w = MediaWidget(p)
	return nil
}

// DisplayTitle returns the widget title, falling back to its name.
func (w MediaWidget) DisplayTitle() string {
	if w.Title != "" {
		return w.Title
	}
	return w.Name
}

// EffectiveWeight returns the node weight clamped to [MinWeight, MaxWeight].
// Absent or non-finite weights map to NeutralWeight.
func (n *TreeNode) EffectiveWeight() float64 {
	if n == nil || n.Weight == nil {
		return NeutralWeight
	}
	return ClampWeight(*n.Weight)
}

// ClampWeight clamps w into the supported range.
func ClampWeight(w float64) float64 {
	if math.IsNaN(w) || math.IsInf(w, 0) {
		return NeutralWeight
	}
	if w < MinWeight {
		return MinWeight
	}
	if w > MaxWeight {
		return MaxWeight
	}
	return w
}

// IsLeaf reports whether the node has no children.
func (n *TreeNode) IsLeaf() bool {
	return len(n.Children) == 0
}

// Count returns the number of nodes in the subtree rooted at n.
func (n *TreeNode) Count() int {
	if n == nil {
		return 0
	}
	count := 0
	stack := []*TreeNode{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		count++
		for _, c := range cur.Children {
			if c != nil {
				stack = append(stack, c)
			}
		}
	}
	return count
}

// AssignIDs gives every node in the tree a stable id made of its child
// index path from the root ("0", "0.1", "0.1.0", ...). Existing ids are
// overwritten so that ids always follow structure.
func AssignIDs(root *TreeNode) {
	if root == nil {
		return
	}
	type frame struct {
		node *TreeNode
		id   string
	}
	stack := []frame{{root, "0"}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		f.node.ID = f.id
		for i, c := range f.node.Children {
			if c == nil {
				continue
			}
			stack = append(stack, frame{c, f.id + "." + strconv.Itoa(i)})
		}
	}
}

// Index maps node ids to nodes.
func Index(root *TreeNode) map[string]*TreeNode {
	out := make(map[string]*TreeNode)
	if root == nil {
		return out
	}
	stack := []*TreeNode{root}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out[cur.ID] = cur
		for _, c := range cur.Children {
			if c != nil {
				stack = append(stack, c)
			}
		}
	}
	return out
}

// Clone creates a deep copy of the subtree.
func (n *TreeNode) Clone() *TreeNode {
	if n == nil {
		return nil
	}
	clone := *n
	if n.Weight != nil {
		v := *n.Weight
		clone.Weight = &v
	}
	if n.Widgets != nil {
		clone.Widgets = make([]MediaWidget, len(n.Widgets))
		copy(clone.Widgets, n.Widgets)
	}
	if n.Children != nil {
		clone.Children = make([]*TreeNode, len(n.Children))
		for i, c := range n.Children {
			clone.Children[i] = c.Clone()
		}
	}
	return &clone
}

// Validate checks the invariants the layout engines and the focus state
// rely on: a non-nil root, no nil children, no node reachable twice and no
// empty label. An empty label is how the focus state spells "no focus".
func (n *TreeNode) Validate() error {
	if n == nil {
		return fmt.Errorf("tree root cannot be nil")
	}
	seen := make(map[*TreeNode]bool)
	stack := []*TreeNode{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[cur] {
			return fmt.Errorf("node %q is reachable more than once", cur.Label)
		}
		seen[cur] = true
		if cur.Label == "" {
			return fmt.Errorf("node with %d children has an empty label", len(cur.Children))
		}
		for i, c := range cur.Children {
			if c == nil {
				return fmt.Errorf("node %q has a nil child at index %d", cur.Label, i)
			}
			stack = append(stack, c)
		}
	}
	return nil
}

// Float returns a pointer to v, handy for building trees in code.
func Float(v float64) *float64 {
	return &v
}
