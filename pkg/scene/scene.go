// Package scene computes the 3D layout of a knowledge tree: one layer per
// depth along +Z, siblings on a ring around their parent.
package scene

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/kraitsura/ktree_viewer/pkg/model"
)

// Strategy selects how sibling rings are sized.
type Strategy string

const (
	// StrategyFixed puts every sibling group on a ring of constant radius.
	StrategyFixed Strategy = "fixed"
	// StrategyAdaptive grows rings with sibling count and pushes nodes away
	// from already placed neighbours.
	StrategyAdaptive Strategy = "adaptive"
)

// Config holds the 3D layout constants.
type Config struct {
	Strategy        Strategy `mapstructure:"strategy" yaml:"strategy"`
	LayerDistance   float64  `mapstructure:"layer_distance" yaml:"layer_distance"`
	RingRadius      float64  `mapstructure:"ring_radius" yaml:"ring_radius"`
	MinNodeDistance float64  `mapstructure:"min_node_distance" yaml:"min_node_distance"`
	MaxAttempts     int      `mapstructure:"max_attempts" yaml:"max_attempts"`
	MinScale        float64  `mapstructure:"min_scale" yaml:"min_scale"`
	MaxScale        float64  `mapstructure:"max_scale" yaml:"max_scale"`
	WidgetRadius    float64  `mapstructure:"widget_radius" yaml:"widget_radius"`
}

// DefaultConfig returns the defaults used by the 3D view.
func DefaultConfig() Config {
	return Config{
		Strategy:        StrategyAdaptive,
		LayerDistance:   5,
		RingRadius:      4,
		MinNodeDistance: 2.5,
		MaxAttempts:     20,
		MinScale:        0.3,
		MaxScale:        1.2,
		WidgetRadius:    1.5,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch c.Strategy {
	case StrategyFixed, StrategyAdaptive:
	default:
		return fmt.Errorf("invalid 3d strategy %q", c.Strategy)
	}
	if c.LayerDistance <= 0 || c.RingRadius <= 0 {
		return fmt.Errorf("layer_distance and ring_radius must be positive")
	}
	if c.MinNodeDistance < 0 {
		return fmt.Errorf("min_node_distance cannot be negative")
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("max_attempts cannot be negative")
	}
	return nil
}

// Node is a positioned node in 3D space.
type Node struct {
	ID       string  `json:"id"`
	ParentID string  `json:"parent_id,omitempty"`
	Label    string  `json:"label"`
	Weight   float64 `json:"weight"`
	Scale    float64 `json:"scale"`
	Depth    int     `json:"depth"`
	Position r3.Vec  `json:"position"`
	// WidgetAnchors holds one point per attached widget, spread on a small
	// ring around the node by attachment index.
	WidgetAnchors []r3.Vec `json:"widget_anchors,omitempty"`
}

// Edge connects a parent to a child.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Result is a full 3D layout.
type Result struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`

	index map[string]int
}

// Node returns the node with the given id.
func (r *Result) Node(id string) (Node, bool) {
	i, ok := r.index[id]
	if !ok {
		return Node{}, false
	}
	return r.Nodes[i], true
}

// PositionsByLabel returns the positions of all nodes carrying label, in
// layout order.
func (r *Result) PositionsByLabel(label string) []r3.Vec {
	var out []r3.Vec
	for _, n := range r.Nodes {
		if n.Label == label {
			out = append(out, n.Position)
		}
	}
	return out
}

// Compute lays out the tree in 3D. A nil root yields an empty result.
func Compute(root *model.TreeNode, cfg Config) *Result {
	res := &Result{index: make(map[string]int)}
	if root == nil {
		return res
	}

	type item struct {
		node   *model.TreeNode
		parent string
		depth  int
		pos    r3.Vec
	}
	// placed holds every position assigned so far, including queued
	// children, so cousins on the same layer see each other.
	placed := []r3.Vec{{}}
	queue := []item{{node: root}}
	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]
		n := it.node

		w := n.EffectiveWeight()
		node := Node{
			ID:       n.ID,
			ParentID: it.parent,
			Label:    n.Label,
			Weight:   w,
			Scale:    cfg.scale(w),
			Depth:    it.depth,
			Position: it.pos,
		}
		node.WidgetAnchors = widgetAnchors(it.pos, len(n.Widgets), cfg.WidgetRadius)
		res.index[n.ID] = len(res.Nodes)
		res.Nodes = append(res.Nodes, node)

		if it.parent != "" {
			res.Edges = append(res.Edges, Edge{Source: it.parent, Target: n.ID})
		}

		kids := make([]*model.TreeNode, 0, len(n.Children))
		for _, c := range n.Children {
			if c != nil {
				kids = append(kids, c)
			}
		}
		childPositions := cfg.ring(it.pos, it.depth+1, len(kids), n.ID)
		for i, c := range kids {
			pos := childPositions[i]
			if cfg.Strategy == StrategyAdaptive {
				pos = cfg.displace(pos, it.pos, placed)
			}
			placed = append(placed, pos)
			queue = append(queue, item{node: c, parent: n.ID, depth: it.depth + 1, pos: pos})
		}
	}
	return res
}

// RingRadiusFor returns the sibling ring radius used for count siblings.
func (c Config) RingRadiusFor(count int) float64 {
	if c.Strategy != StrategyAdaptive || count < 2 {
		return c.RingRadius
	}
	// Chord between neighbours on a ring of radius r is 2r*sin(pi/n);
	// keep it at least MinNodeDistance.
	needed := c.MinNodeDistance / (2 * math.Sin(math.Pi/float64(count)))
	return math.Max(c.RingRadius, needed)
}

// ring returns evenly spread positions for count children of a node at
// parent, on the layer for depth.
func (c Config) ring(parent r3.Vec, depth, count int, parentID string) []r3.Vec {
	if count == 0 {
		return nil
	}
	z := float64(depth) * c.LayerDistance
	if count == 1 {
		// A lone child would sit exactly under its parent; a small offset
		// derived from the parent id keeps edges visible. Cosmetic only.
		j := jitter(parentID)
		return []r3.Vec{{X: parent.X + j*0.25, Y: parent.Y + j*0.15, Z: z}}
	}
	radius := c.RingRadiusFor(count)
	step := 2 * math.Pi / float64(count)
	out := make([]r3.Vec, count)
	for i := range out {
		angle := float64(i) * step
		out[i] = r3.Vec{
			X: parent.X + radius*math.Cos(angle),
			Y: parent.Y + radius*math.Sin(angle),
			Z: z,
		}
	}
	return out
}

// displace nudges pos away from any already placed node closer than
// MinNodeDistance, giving up after MaxAttempts rounds.
func (c Config) displace(pos, parent r3.Vec, placed []r3.Vec) r3.Vec {
	if c.MinNodeDistance <= 0 {
		return pos
	}
	for attempt := 0; attempt < c.MaxAttempts; attempt++ {
		moved := false
		for _, other := range placed {
			d := r3.Sub(pos, other)
			dist := r3.Norm(d)
			if dist >= c.MinNodeDistance {
				continue
			}
			var dir r3.Vec
			if dist == 0 {
				// Coincident: move outward from the parent in the layer plane.
				dir = r3.Sub(pos, parent)
				dir.Z = 0
				if r3.Norm(dir) == 0 {
					dir = r3.Vec{X: 1}
				}
				dir = r3.Unit(dir)
			} else {
				dir = r3.Scale(1/dist, d)
			}
			pos = r3.Add(pos, r3.Scale(c.MinNodeDistance-dist, dir))
			moved = true
		}
		if !moved {
			break
		}
	}
	return pos
}

func (c Config) scale(weight float64) float64 {
	t := (model.ClampWeight(weight) - model.MinWeight) / (model.MaxWeight - model.MinWeight)
	return c.MinScale + (c.MaxScale-c.MinScale)*t
}

func widgetAnchors(center r3.Vec, count int, radius float64) []r3.Vec {
	if count == 0 {
		return nil
	}
	out := make([]r3.Vec, count)
	step := 2 * math.Pi / float64(count)
	for i := range out {
		angle := float64(i)*step + math.Pi/2
		out[i] = r3.Vec{
			X: center.X + radius*math.Cos(angle),
			Y: center.Y + radius*math.Sin(angle),
			Z: center.Z,
		}
	}
	return out
}

// jitter maps an id to a stable value in [-1, 1).
func jitter(id string) float64 {
	var h uint32 = 2166136261
	for i := 0; i < len(id); i++ {
		h ^= uint32(id[i])
		h *= 16777619
	}
	return float64(h%2000)/1000 - 1
}
