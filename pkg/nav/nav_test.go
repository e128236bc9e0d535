package nav

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraitsura/ktree_viewer/pkg/focus"
	"github.com/kraitsura/ktree_viewer/pkg/model"
	"github.com/kraitsura/ktree_viewer/pkg/traversal"
)

func sampleTree() *model.TreeNode {
	return &model.TreeNode{
		Label: "Root",
		Children: []*model.TreeNode{
			{Label: "A", Children: []*model.TreeNode{{Label: "A1"}, {Label: "A2"}}},
			{Label: "B"},
		},
	}
}

func newController(t *testing.T, order traversal.Order, opts Options) (*Controller, *focus.State) {
	t.Helper()
	state := focus.New()
	require.NoError(t, state.InitializeTraversal(sampleTree(), order))
	return New(state, opts), state
}

func TestNextWalksOrderAndWraps(t *testing.T) {
	c, state := newController(t, traversal.DFS, Options{})

	var got []string
	for i := 0; i < 6; i++ {
		require.True(t, c.Next())
		got = append(got, state.Snapshot().Label)
	}
	assert.Equal(t, []string{"Root", "A", "A1", "A2", "B", "Root"}, got)
	assert.Equal(t, focus.Source3D, state.Snapshot().Source)
}

func TestPreviousRequiresDFSOrOption(t *testing.T) {
	bfs, bfsState := newController(t, traversal.BFS, Options{})
	assert.False(t, bfs.Previous())
	assert.False(t, bfsState.Snapshot().HasFocus)

	forced, forcedState := newController(t, traversal.BFS, Options{AllowPrevious: true})
	require.True(t, forced.Previous())
	assert.Equal(t, "A2", forcedState.Snapshot().Label, "BFS order ends with A2")

	dfs, dfsState := newController(t, traversal.DFS, Options{})
	require.True(t, dfs.Next())
	require.True(t, dfs.Next())
	require.True(t, dfs.Previous())
	assert.Equal(t, "Root", dfsState.Snapshot().Label)
}

func TestStatus(t *testing.T) {
	c, _ := newController(t, traversal.BFS, Options{})

	st := c.Status()
	assert.True(t, st.Enabled)
	assert.Equal(t, "0/5", st.Position)
	assert.Equal(t, "", st.Current)
	assert.Equal(t, "Root", st.NextLabel)
	assert.False(t, st.CanPrevious)

	c.Next()
	c.Next()
	st = c.Status()
	assert.Equal(t, "2/5", st.Position)
	assert.Equal(t, "A", st.Current)
	assert.Equal(t, "B", st.NextLabel)

	for i := 0; i < 3; i++ {
		c.Next()
	}
	st = c.Status()
	assert.Equal(t, "5/5", st.Position)
	assert.Equal(t, "Root", st.NextLabel, "next wraps to the start")
}

func TestDisabledWithoutOrder(t *testing.T) {
	c := New(focus.New(), Options{AllowPrevious: true})
	assert.False(t, c.Next())
	assert.False(t, c.Previous())
	assert.Equal(t, Status{}, c.Status())
}
