package surface

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraitsura/ktree_viewer/pkg/camera"
	"github.com/kraitsura/ktree_viewer/pkg/focus"
	"github.com/kraitsura/ktree_viewer/pkg/layout"
	"github.com/kraitsura/ktree_viewer/pkg/model"
	"github.com/kraitsura/ktree_viewer/pkg/nav"
	"github.com/kraitsura/ktree_viewer/pkg/scene"
)

func sample() *model.TreeNode {
	root := &model.TreeNode{
		Label:  "Root",
		Weight: model.Float(100),
		Children: []*model.TreeNode{
			{Label: "A", Weight: model.Float(1), Widgets: []model.MediaWidget{
				{Name: "https://youtu.be/abc123", Title: "Intro"},
				{Name: ""},
			}},
			{Label: "A"},
		},
	}
	model.AssignIDs(root)
	return root
}

func TestFromLayout(t *testing.T) {
	root := sample()
	res := layout.Compute(root, layout.DefaultConfig())
	snap := focus.Snapshot{Label: "A", HasFocus: true}

	d := FromLayout(res, snap)
	require.Len(t, d.Nodes, 3)
	require.Len(t, d.Edges, 2)

	focused := 0
	for _, n := range d.Nodes {
		if n.Data.Focused {
			focused++
			assert.Equal(t, "A", n.Data.Label)
		}
	}
	assert.Equal(t, 2, focused, "focus is by label, both A nodes highlight")

	e := d.Edges[0]
	assert.Equal(t, "0", e.Source)
	assert.Equal(t, [2]float64{100, 1}, e.Weights)

	raw, err := json.Marshal(d.Nodes[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"0","position":{"x":`+jsonNum(d.Nodes[0].Position.X)+`,"y":`+jsonNum(d.Nodes[0].Position.Y)+`},
		"data":{"label":"Root","radius":48,"weight":100,"depth":0,"focused":false}}`, string(raw))
}

func jsonNum(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}

func TestFromScene(t *testing.T) {
	root := sample()
	res := scene.Compute(root, scene.DefaultConfig())
	s := FromScene(res, root, focus.Snapshot{})

	require.Len(t, s.Nodes, 3)
	require.Len(t, s.Edges, 2)
	require.Len(t, s.Widgets, 2)

	video := s.Widgets[0]
	assert.Equal(t, "0.0", video.NodeID)
	assert.Equal(t, model.MediaVideo, video.Kind)
	assert.Equal(t, "abc123", video.VideoID)
	assert.Equal(t, "Intro", video.Title)

	assert.True(t, s.Widgets[1].Broken)

	n, ok := res.Node("0.0")
	require.True(t, ok)
	assert.Equal(t, Vec(n.WidgetAnchors[0]), video.Anchor)
}

func TestFromSceneWithoutTree(t *testing.T) {
	root := sample()
	s := FromScene(scene.Compute(root, scene.DefaultConfig()), nil, focus.Snapshot{})
	assert.Empty(t, s.Widgets)
	assert.Len(t, s.Nodes, 3)
}

func TestFromStatus(t *testing.T) {
	got := FromStatus(nav.Status{Enabled: true, Position: "1/3", Current: "Root", NextLabel: "A"})
	assert.Equal(t, Navigation{Enabled: true, Position: "1/3", Current: "Root", Next: "A"}, got)
}

func TestFromCamera(t *testing.T) {
	c := FromCamera(camera.DefaultCamera(), camera.Animating)
	assert.Equal(t, [3]float64{0, 0, 20}, c.Position)
	assert.Equal(t, "animating", c.Phase)
}
