// Package layout computes the flat node-link diagram of a knowledge tree.
//
// Leaves get evenly spaced x slots in visitation order, internal nodes sit
// at the mean x of their children, and y follows the depth layer. Radius and
// edge thickness are linear maps of the clamped node weights.
package layout

import (
	"github.com/kraitsura/ktree_viewer/pkg/model"
)

// Node is a positioned tree node.
type Node struct {
	ID       string  `json:"id"`
	ParentID string  `json:"parent_id,omitempty"`
	Label    string  `json:"label"`
	Weight   float64 `json:"weight"`
	Depth    int     `json:"depth"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Radius   float64 `json:"radius"`
	Widgets  int     `json:"widgets,omitempty"`
}

// Edge connects a parent to a child.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	// Width is derived from the average of both endpoint weights.
	Width float64 `json:"width"`
	// SourceWidth and TargetWidth give the tapered variant.
	SourceWidth float64 `json:"source_width"`
	TargetWidth float64 `json:"target_width"`
}

// Result is a full 2D layout.
type Result struct {
	Nodes  []Node  `json:"nodes"`
	Edges  []Edge  `json:"edges"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	cfg   Config
	index map[string]int
}

// LeafCount returns the number of leaves under n (1 for a leaf).
func LeafCount(n *model.TreeNode) int {
	if n == nil {
		return 0
	}
	counts := postOrder(n, func(node *model.TreeNode, children []int) int {
		if len(children) == 0 {
			return 1
		}
		sum := 0
		for _, c := range children {
			sum += c
		}
		return sum
	})
	return counts[n]
}

// Depth returns the number of layers under n (1 for a leaf).
func Depth(n *model.TreeNode) int {
	if n == nil {
		return 0
	}
	depths := postOrder(n, func(node *model.TreeNode, children []int) int {
		best := 0
		for _, c := range children {
			if c > best {
				best = c
			}
		}
		return best + 1
	})
	return depths[n]
}

func liveChildren(n *model.TreeNode) []*model.TreeNode {
	out := make([]*model.TreeNode, 0, len(n.Children))
	for _, c := range n.Children {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// postOrder evaluates fn bottom-up without recursion.
func postOrder(root *model.TreeNode, fn func(*model.TreeNode, []int) int) map[*model.TreeNode]int {
	out := make(map[*model.TreeNode]int)
	type frame struct {
		node     *model.TreeNode
		expanded bool
	}
	stack := []frame{{node: root}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !top.expanded {
			stack = append(stack, frame{node: top.node, expanded: true})
			for _, c := range top.node.Children {
				if c != nil {
					stack = append(stack, frame{node: c})
				}
			}
			continue
		}
		vals := make([]int, 0, len(top.node.Children))
		for _, c := range top.node.Children {
			if c != nil {
				vals = append(vals, out[c])
			}
		}
		out[top.node] = fn(top.node, vals)
	}
	return out
}

// Compute lays out the tree. A nil root yields an empty result; content
// problems such as odd weights never fail.
func Compute(root *model.TreeNode, cfg Config) *Result {
	res := &Result{cfg: cfg, index: make(map[string]int)}
	if root == nil {
		return res
	}

	leaves := LeafCount(root)
	depth := Depth(root)
	usable := max(cfg.MinWidth, float64(leaves)*cfg.LeafSpacing)
	res.Width = usable + 2*cfg.Margin
	res.Height = float64(max(depth-1, 0))*cfg.LayerGap + 2*cfg.Margin

	slot := usable / float64(leaves)
	nextLeaf := 0
	xs := make(map[*model.TreeNode]float64)

	// Bottom-up x pass: leaves take the next slot in visitation order,
	// parents average their children.
	type frame struct {
		node     *model.TreeNode
		expanded bool
	}
	stack := []frame{{node: root}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := top.node
		kids := liveChildren(n)
		if len(kids) == 0 {
			if leaves == 1 {
				xs[n] = cfg.Margin + usable/2
			} else {
				xs[n] = cfg.Margin + slot*(float64(nextLeaf)+0.5)
			}
			nextLeaf++
			continue
		}
		if !top.expanded {
			stack = append(stack, frame{node: n, expanded: true})
			for i := len(kids) - 1; i >= 0; i-- {
				stack = append(stack, frame{node: kids[i]})
			}
			continue
		}
		sum := 0.0
		for _, c := range kids {
			sum += xs[c]
		}
		xs[n] = sum / float64(len(kids))
	}

	// Top-down pass emitting nodes and edges in pre-order.
	type item struct {
		node   *model.TreeNode
		parent *model.TreeNode
		depth  int
	}
	queue := []item{{node: root}}
	for len(queue) > 0 {
		it := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		n := it.node
		w := n.EffectiveWeight()
		node := Node{
			ID:      n.ID,
			Label:   n.Label,
			Weight:  w,
			Depth:   it.depth,
			X:       xs[n],
			Y:       res.layerY(it.depth, depth),
			Radius:  cfg.Radius(w),
			Widgets: len(n.Widgets),
		}
		if it.parent != nil {
			node.ParentID = it.parent.ID
			pw := it.parent.EffectiveWeight()
			res.Edges = append(res.Edges, Edge{
				ID:          it.parent.ID + "->" + n.ID,
				Source:      it.parent.ID,
				Target:      n.ID,
				Width:       cfg.Stroke((pw + w) / 2),
				SourceWidth: cfg.Stroke(pw),
				TargetWidth: cfg.Stroke(w),
			})
		}
		res.index[node.ID] = len(res.Nodes)
		res.Nodes = append(res.Nodes, node)
		kids := liveChildren(n)
		for i := len(kids) - 1; i >= 0; i-- {
			queue = append(queue, item{node: kids[i], parent: n, depth: it.depth + 1})
		}
	}
	return res
}

func (r *Result) layerY(d, depth int) float64 {
	if r.cfg.Orientation == BottomUp {
		return r.cfg.Margin + float64(depth-1-d)*r.cfg.LayerGap
	}
	return r.cfg.Margin + float64(d)*r.cfg.LayerGap
}

// Radius maps a weight onto [MinRadius, MaxRadius]. Out-of-range weights
// are clamped.
func (c Config) Radius(weight float64) float64 {
	return lerp(c.MinRadius, c.MaxRadius, normalized(weight))
}

// Stroke maps a weight onto [MinStroke, MaxStroke].
func (c Config) Stroke(weight float64) float64 {
	return lerp(c.MinStroke, c.MaxStroke, normalized(weight))
}

func normalized(weight float64) float64 {
	w := model.ClampWeight(weight)
	return (w - model.MinWeight) / (model.MaxWeight - model.MinWeight)
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Node returns the node with the given id.
func (r *Result) Node(id string) (Node, bool) {
	i, ok := r.index[id]
	if !ok {
		return Node{}, false
	}
	return r.Nodes[i], true
}

// Move sets the position of a node during a drag. It returns false for
// unknown ids.
func (r *Result) Move(id string, x, y float64) bool {
	i, ok := r.index[id]
	if !ok {
		return false
	}
	r.Nodes[i].X = x
	r.Nodes[i].Y = y
	return true
}

// EndDrag finishes a drag of node id at (x, y) and runs one collision pass
// over all nodes. It returns the number of pairs that were pushed apart.
func (r *Result) EndDrag(id string, x, y float64) (int, bool) {
	if !r.Move(id, x, y) {
		return 0, false
	}
	return ResolveCollisions(r.Nodes, r.cfg.CollisionDistance), true
}

// Clone returns a deep copy whose nodes can be moved independently.
func (r *Result) Clone() *Result {
	out := &Result{
		Nodes:  append([]Node(nil), r.Nodes...),
		Edges:  append([]Edge(nil), r.Edges...),
		Width:  r.Width,
		Height: r.Height,
		cfg:    r.cfg,
		index:  make(map[string]int, len(r.index)),
	}
	for k, v := range r.index {
		out.index[k] = v
	}
	return out
}
