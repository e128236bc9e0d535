package scene

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/kraitsura/ktree_viewer/pkg/model"
)

func wideTree(children int) *model.TreeNode {
	root := &model.TreeNode{Label: "Root", Weight: model.Float(60)}
	for i := 0; i < children; i++ {
		c := &model.TreeNode{Label: "c"}
		for j := 0; j < 3; j++ {
			c.Children = append(c.Children, &model.TreeNode{Label: "g"})
		}
		root.Children = append(root.Children, c)
	}
	model.AssignIDs(root)
	return root
}

func TestRootAtOrigin(t *testing.T) {
	for _, strategy := range []Strategy{StrategyFixed, StrategyAdaptive} {
		cfg := DefaultConfig()
		cfg.Strategy = strategy
		res := Compute(wideTree(3), cfg)
		root, ok := res.Node("0")
		require.True(t, ok)
		assert.Equal(t, r3.Vec{}, root.Position, string(strategy))
	}
}

func TestSingleNodeNoEdges(t *testing.T) {
	root := &model.TreeNode{Label: "Root"}
	model.AssignIDs(root)
	res := Compute(root, DefaultConfig())
	require.Len(t, res.Nodes, 1)
	assert.Empty(t, res.Edges)
	assert.Equal(t, model.NeutralWeight, res.Nodes[0].Weight)
}

func TestFixedStrategyRings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strategy = StrategyFixed
	res := Compute(wideTree(6), cfg)

	for _, n := range res.Nodes {
		assert.InDelta(t, float64(n.Depth)*cfg.LayerDistance, n.Position.Z, 1e-9, "layer z for %s", n.ID)
		if n.Depth != 1 {
			continue
		}
		parent, _ := res.Node(n.ParentID)
		d := math.Hypot(n.Position.X-parent.Position.X, n.Position.Y-parent.Position.Y)
		assert.InDelta(t, cfg.RingRadius, d, 1e-9, "constant ring radius for %s", n.ID)
	}
	assert.Len(t, res.Edges, len(res.Nodes)-1)
}

func TestAdaptiveRingRadiusGrowsWithSiblings(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, cfg.RingRadius, cfg.RingRadiusFor(1))
	small := cfg.RingRadiusFor(3)
	large := cfg.RingRadiusFor(40)
	assert.GreaterOrEqual(t, large, small)

	// Neighbouring siblings never start closer than MinNodeDistance.
	for _, n := range []int{2, 5, 12, 40} {
		r := cfg.RingRadiusFor(n)
		chord := 2 * r * math.Sin(math.Pi/float64(n))
		assert.GreaterOrEqual(t, chord, cfg.MinNodeDistance-1e-9, "n=%d", n)
	}

	cfg.Strategy = StrategyFixed
	assert.Equal(t, cfg.RingRadius, cfg.RingRadiusFor(40))
}

func TestAdaptiveSeparatesCousins(t *testing.T) {
	cfg := DefaultConfig()
	res := Compute(wideTree(8), cfg)

	// Grandchildren of neighbouring children crowd the same layer; the
	// displacement loop keeps most of them apart.
	var layer []r3.Vec
	for _, n := range res.Nodes {
		if n.Depth == 2 {
			layer = append(layer, n.Position)
		}
	}
	fixed := cfg
	fixed.Strategy = StrategyFixed
	assert.LessOrEqual(t, closePairs(layer, cfg.MinNodeDistance), closePairs(fixedLayer(fixed), cfg.MinNodeDistance))
}

func fixedLayer(cfg Config) []r3.Vec {
	res := Compute(wideTree(8), cfg)
	var layer []r3.Vec
	for _, n := range res.Nodes {
		if n.Depth == 2 {
			layer = append(layer, n.Position)
		}
	}
	return layer
}

func closePairs(ps []r3.Vec, min float64) int {
	count := 0
	for i := range ps {
		for j := i + 1; j < len(ps); j++ {
			if r3.Norm(r3.Sub(ps[i], ps[j])) < min-1e-9 {
				count++
			}
		}
	}
	return count
}

func TestDeterministic(t *testing.T) {
	for _, strategy := range []Strategy{StrategyFixed, StrategyAdaptive} {
		cfg := DefaultConfig()
		cfg.Strategy = strategy
		a := Compute(wideTree(5), cfg)
		b := Compute(wideTree(5), cfg)
		assert.Equal(t, a.Nodes, b.Nodes)
		assert.Equal(t, a.Edges, b.Edges)
	}
}

func TestSingleChildJitterKeepsConnectivity(t *testing.T) {
	root := &model.TreeNode{Label: "r", Children: []*model.TreeNode{{Label: "only"}}}
	model.AssignIDs(root)
	res := Compute(root, DefaultConfig())
	require.Len(t, res.Edges, 1)
	assert.Equal(t, Edge{Source: "0", Target: "0.0"}, res.Edges[0])

	child, _ := res.Node("0.0")
	assert.NotEqual(t, r3.Vec{X: 0, Y: 0, Z: child.Position.Z}, child.Position)
	assert.Less(t, math.Hypot(child.Position.X, child.Position.Y), 0.5)
}

func TestWidgetAnchors(t *testing.T) {
	root := &model.TreeNode{Label: "r", Widgets: []model.MediaWidget{{Name: "a.png"}, {Name: "b.png"}, {Name: "c.png"}}}
	model.AssignIDs(root)
	cfg := DefaultConfig()
	res := Compute(root, cfg)
	anchors := res.Nodes[0].WidgetAnchors
	require.Len(t, anchors, 3)
	for _, a := range anchors {
		assert.InDelta(t, cfg.WidgetRadius, r3.Norm(a), 1e-9)
	}
}

func TestPositionsByLabel(t *testing.T) {
	res := Compute(wideTree(2), DefaultConfig())
	assert.Len(t, res.PositionsByLabel("c"), 2)
	assert.Len(t, res.PositionsByLabel("g"), 6)
	assert.Empty(t, res.PositionsByLabel("missing"))
}

func TestScaleClamped(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, cfg.MinScale, cfg.scale(-5))
	assert.Equal(t, cfg.MaxScale, cfg.scale(500))
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
	bad := DefaultConfig()
	bad.Strategy = "spiral"
	assert.Error(t, bad.Validate())
}
