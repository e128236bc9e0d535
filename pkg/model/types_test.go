package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTree() *TreeNode {
	return &TreeNode{
		Label:  "Root",
		Weight: Float(5),
		Children: []*TreeNode{
			{Label: "A", Children: []*TreeNode{{Label: "A1"}}},
			{Label: "B"},
		},
	}
}

func TestAssignIDsFollowsStructure(t *testing.T) {
	root := sampleTree()
	AssignIDs(root)

	assert.Equal(t, "0", root.ID)
	assert.Equal(t, "0.0", root.Children[0].ID)
	assert.Equal(t, "0.0.0", root.Children[0].Children[0].ID)
	assert.Equal(t, "0.1", root.Children[1].ID)

	idx := Index(root)
	assert.Len(t, idx, 4)
	assert.Equal(t, "A1", idx["0.0.0"].Label)
}

func TestEffectiveWeight(t *testing.T) {
	tests := []struct {
		name   string
		weight *float64
		want   float64
	}{
		{"absent", nil, NeutralWeight},
		{"in range", Float(42), 42},
		{"below", Float(-3), MinWeight},
		{"above", Float(250), MaxWeight},
		{"nan", Float(math.NaN()), NeutralWeight},
		{"inf", Float(math.Inf(1)), NeutralWeight},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &TreeNode{Label: "x", Weight: tt.weight}
			assert.Equal(t, tt.want, n.EffectiveWeight())
		})
	}
}

func TestCountAndClone(t *testing.T) {
	root := sampleTree()
	assert.Equal(t, 4, root.Count())

	clone := root.Clone()
	clone.Children[0].Label = "changed"
	*clone.Weight = 99

	assert.Equal(t, "A", root.Children[0].Label)
	assert.Equal(t, 5.0, *root.Weight)
}

func TestValidate(t *testing.T) {
	require.NoError(t, sampleTree().Validate())

	var nilRoot *TreeNode
	assert.Error(t, nilRoot.Validate())

	withNil := &TreeNode{Label: "r", Children: []*TreeNode{nil}}
	assert.Error(t, withNil.Validate())

	shared := &TreeNode{Label: "s"}
	dup := &TreeNode{Label: "r", Children: []*TreeNode{shared, shared}}
	assert.Error(t, dup.Validate())

	unnamedRoot := &TreeNode{Children: []*TreeNode{{Label: "a"}}}
	assert.ErrorContains(t, unnamedRoot.Validate(), "empty label")

	unnamedLeaf := &TreeNode{Label: "r", Children: []*TreeNode{{Label: "a"}, {}}}
	assert.ErrorContains(t, unnamedLeaf.Validate(), "empty label")
}

func TestWidgetUnmarshalStringOrObject(t *testing.T) {
	var n TreeNode
	data := `{"node":"Root","widgets":["img/a.png",{"name":"https://go.dev","notes":"read this","title":"Go"}]}`
	require.NoError(t, json.Unmarshal([]byte(data), &n))
	require.Len(t, n.Widgets, 2)
	assert.Equal(t, "img/a.png", n.Widgets[0].Name)
	assert.Equal(t, "img/a.png", n.Widgets[0].DisplayTitle())
	assert.Equal(t, "read this", n.Widgets[1].Notes)
	assert.Equal(t, "Go", n.Widgets[1].DisplayTitle())
}
