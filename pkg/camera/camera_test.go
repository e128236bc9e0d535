package camera

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/kraitsura/ktree_viewer/pkg/focus"
	"github.com/kraitsura/ktree_viewer/pkg/model"
	"github.com/kraitsura/ktree_viewer/pkg/traversal"
)

func vecNear(t *testing.T, want, got r3.Vec) {
	t.Helper()
	assert.InDelta(t, 0, r3.Norm(r3.Sub(want, got)), 1e-9, "want %v got %v", want, got)
}

func TestEaseInOutCubic(t *testing.T) {
	assert.Equal(t, 0.0, EaseInOutCubic(0))
	assert.Equal(t, 1.0, EaseInOutCubic(1))
	assert.InDelta(t, 0.5, EaseInOutCubic(0.5), 1e-12)
	assert.InDelta(t, 4*0.25*0.25*0.25, EaseInOutCubic(0.25), 1e-12)
	assert.InDelta(t, 1-0.125/2, EaseInOutCubic(0.75), 1e-12)

	prev := 0.0
	for i := 1; i <= 100; i++ {
		v := EaseInOutCubic(float64(i) / 100)
		assert.GreaterOrEqual(t, v, prev)
		prev = v
	}
}

func TestTargetAlongViewingLine(t *testing.T) {
	a := NewAnimator(Camera{Position: r3.Vec{Z: 20}}, Options{})
	node := r3.Vec{X: 0, Y: 0, Z: 5}
	target := a.Target(node)
	vecNear(t, r3.Vec{Z: 11}, target.Position)
	vecNear(t, node, target.Target)
}

func TestFlyToCompletes(t *testing.T) {
	start := time.Unix(1000, 0)
	a := NewAnimator(DefaultCamera(), Options{Duration: time.Second})
	node := r3.Vec{X: 3, Y: 4, Z: 0}
	a.FlyTo(node, start)
	require.Equal(t, Animating, a.Phase())

	mid := a.Tick(start.Add(500 * time.Millisecond))
	want := a.Destination()
	// Halfway in time is halfway in space for the symmetric ease.
	vecNear(t, lerp(DefaultCamera().Position, want.Position, 0.5), mid.Position)

	end := a.Tick(start.Add(1500 * time.Millisecond))
	assert.Equal(t, Idle, a.Phase())
	vecNear(t, node, end.Target)
	assert.InDelta(t, DefaultStandOff, r3.Norm(r3.Sub(end.Position, node)), 1e-9)
}

func TestFlyToSupersedesFromInFlightPose(t *testing.T) {
	start := time.Unix(0, 0)
	a := NewAnimator(DefaultCamera(), Options{Duration: time.Second})
	a.FlyTo(r3.Vec{X: 10}, start)

	at := start.Add(300 * time.Millisecond)
	inFlight := a.Tick(at)
	a.FlyTo(r3.Vec{Y: -10}, at)

	// The new animation starts where the old one was, not where it began.
	again := a.Tick(at)
	vecNear(t, inFlight.Position, again.Position)
	vecNear(t, inFlight.Target, again.Target)

	final := a.Tick(at.Add(2 * time.Second))
	vecNear(t, r3.Vec{Y: -10}, final.Target)
}

func TestSetCancelsAnimation(t *testing.T) {
	a := NewAnimator(DefaultCamera(), Options{})
	a.FlyTo(r3.Vec{X: 1}, time.Unix(0, 0))
	manual := Camera{Position: r3.Vec{X: 9, Y: 9, Z: 9}}
	a.Set(manual)
	assert.Equal(t, Idle, a.Phase())
	assert.Equal(t, manual, a.Tick(time.Unix(10, 0)))
}

func TestShouldAnimate(t *testing.T) {
	tests := []struct {
		name   string
		snap   focus.Snapshot
		always bool
		want   bool
	}{
		{"cleared", focus.Snapshot{}, true, false},
		{"from 2d", focus.Snapshot{HasFocus: true, Label: "a", Source: focus.Source2D}, false, true},
		{"from 3d", focus.Snapshot{HasFocus: true, Label: "a", Source: focus.Source3D}, false, false},
		{"from 3d always", focus.Snapshot{HasFocus: true, Label: "a", Source: focus.Source3D}, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldAnimate(tt.snap, tt.always))
		})
	}
}

func TestFollowAnimatesOnOtherViewFocus(t *testing.T) {
	state := focus.New()
	root := &model.TreeNode{Label: "Root", Children: []*model.TreeNode{{Label: "A"}}}
	require.NoError(t, state.InitializeTraversal(root, traversal.BFS))

	clock := time.Unix(0, 0)
	a := NewAnimator(DefaultCamera(), Options{})
	positions := map[string]r3.Vec{"Root": {}, "A": {X: 4, Z: 5}}
	cancel := Follow(state, a, func(label string) (r3.Vec, bool) {
		p, ok := positions[label]
		return p, ok
	}, FollowOptions{Now: func() time.Time { return clock }})
	defer cancel()

	state.SetFocus("A", focus.Source3D)
	assert.Equal(t, Idle, a.Phase(), "3D clicks do not fly")

	state.SetFocus("A", focus.Source2D)
	assert.Equal(t, Animating, a.Phase())
	vecNear(t, positions["A"], a.Destination().Target)

	before := a.Tick(clock.Add(2 * time.Second))
	state.ClearFocus()
	assert.Equal(t, before, a.Camera(), "unfocus leaves the camera in place")
}

func TestFollowFliesOnTraversalSteps(t *testing.T) {
	state := focus.New()
	root := &model.TreeNode{Label: "Root", Children: []*model.TreeNode{{Label: "A"}}}
	require.NoError(t, state.InitializeTraversal(root, traversal.BFS))

	clock := time.Unix(0, 0)
	a := NewAnimator(DefaultCamera(), Options{})
	positions := map[string]r3.Vec{"Root": {Z: 1}, "A": {X: 4, Z: 5}}
	cancel := Follow(state, a, func(label string) (r3.Vec, bool) {
		p, ok := positions[label]
		return p, ok
	}, FollowOptions{Now: func() time.Time { return clock }})
	defer cancel()

	state.StepForward()
	state.StepForward()
	assert.Equal(t, Animating, a.Phase())
	vecNear(t, positions["A"], a.Destination().Target)

	// Re-initializing keeps the focused label but must not re-fly.
	a.Tick(clock.Add(2 * time.Second))
	require.NoError(t, state.InitializeTraversal(root, traversal.DFS))
	assert.Equal(t, Idle, a.Phase())
}
