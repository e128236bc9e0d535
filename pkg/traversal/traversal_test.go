package traversal

import (
	"errors"
	"math/rand"
	"sort"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraitsura/ktree_viewer/pkg/model"
)

func threeLevelTree() *model.TreeNode {
	return &model.TreeNode{
		Label: "Root",
		Children: []*model.TreeNode{
			{Label: "A", Children: []*model.TreeNode{{Label: "A1"}}},
			{Label: "B"},
		},
	}
}

// randomTree builds a deterministic pseudo-random tree with n nodes.
func randomTree(seed int64, n int) *model.TreeNode {
	r := rand.New(rand.NewSource(seed))
	nodes := []*model.TreeNode{{Label: "n0"}}
	for i := 1; i < n; i++ {
		parent := nodes[r.Intn(len(nodes))]
		child := &model.TreeNode{Label: "n" + strconv.Itoa(r.Intn(n/2+1))}
		parent.Children = append(parent.Children, child)
		nodes = append(nodes, child)
	}
	model.AssignIDs(nodes[0])
	return nodes[0]
}

func TestTraverseThreeLevelTree(t *testing.T) {
	root := threeLevelTree()

	bfs, err := Traverse(root, BFS)
	require.NoError(t, err)
	assert.Equal(t, []string{"Root", "A", "B", "A1"}, bfs)

	dfs, err := Traverse(root, DFS)
	require.NoError(t, err)
	assert.Equal(t, []string{"Root", "A", "A1", "B"}, dfs)
}

func TestTraverseSingleNode(t *testing.T) {
	root := &model.TreeNode{Label: "Root", Weight: model.Float(5)}
	for _, order := range []Order{BFS, DFS} {
		got, err := Traverse(root, order)
		require.NoError(t, err)
		assert.Equal(t, []string{"Root"}, got)
	}
}

func TestTraverseDuplicateLabels(t *testing.T) {
	root := &model.TreeNode{Label: "Root", Children: []*model.TreeNode{{Label: "X"}, {Label: "X"}}}
	got, err := Traverse(root, BFS)
	require.NoError(t, err)
	assert.Equal(t, []string{"Root", "X", "X"}, got)
}

func TestTraverseNilRoot(t *testing.T) {
	_, err := Traverse(nil, BFS)
	assert.True(t, errors.Is(err, ErrNilRoot))
}

func TestTraverseUnknownOrder(t *testing.T) {
	_, err := Traverse(threeLevelTree(), Order("zigzag"))
	assert.Error(t, err)
}

func TestTraversalCompleteness(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		root := randomTree(seed, 1+int(seed)*7)
		bfs, err := Traverse(root, BFS)
		require.NoError(t, err)
		dfs, err := Traverse(root, DFS)
		require.NoError(t, err)

		assert.Len(t, bfs, root.Count())
		assert.Len(t, dfs, root.Count())

		sortedBFS := append([]string(nil), bfs...)
		sortedDFS := append([]string(nil), dfs...)
		sort.Strings(sortedBFS)
		sort.Strings(sortedDFS)
		assert.Equal(t, sortedBFS, sortedDFS, "seed %d", seed)
	}
}

func TestBFSLayerOrdering(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		visits, err := Visits(randomTree(seed, 40), BFS)
		require.NoError(t, err)
		for i := 1; i < len(visits); i++ {
			assert.LessOrEqual(t, visits[i-1].Depth, visits[i].Depth, "seed %d position %d", seed, i)
		}
	}
}

func TestDFSSubtreeContiguity(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		root := randomTree(seed, 40)
		visits, err := Visits(root, DFS)
		require.NoError(t, err)

		pos := make(map[string]int, len(visits))
		for i, v := range visits {
			pos[v.Node.ID] = i
		}
		for _, v := range visits {
			start := pos[v.Node.ID]
			size := v.Node.Count()
			// Every node of the subtree must sit inside [start, start+size).
			var check func(n *model.TreeNode)
			check = func(n *model.TreeNode) {
				p := pos[n.ID]
				assert.True(t, p >= start && p < start+size, "seed %d node %s outside subtree block of %s", seed, n.ID, v.Node.ID)
				for _, c := range n.Children {
					check(c)
				}
			}
			check(v.Node)
		}
	}
}

func TestParseOrder(t *testing.T) {
	o, err := ParseOrder(" DFS ")
	require.NoError(t, err)
	assert.Equal(t, DFS, o)

	_, err = ParseOrder("level")
	assert.Error(t, err)
}
