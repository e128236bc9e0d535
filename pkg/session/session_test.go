package session

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraitsura/ktree_viewer/pkg/camera"
	"github.com/kraitsura/ktree_viewer/pkg/focus"
	"github.com/kraitsura/ktree_viewer/pkg/model"
	"github.com/kraitsura/ktree_viewer/pkg/traversal"
)

func doc(root *model.TreeNode) *model.Document {
	return &model.Document{Root: root}
}

func physics() *model.TreeNode {
	return &model.TreeNode{
		Label: "Physics",
		Children: []*model.TreeNode{
			{Label: "Mechanics", Children: []*model.TreeNode{{Label: "Kinematics"}}},
			{Label: "Optics"},
		},
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newSession(t *testing.T, opts Options) (*Session, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Unix(100, 0)}
	opts.Now = clock.Now
	s, err := New(doc(physics()), opts, log.New(io.Discard))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, clock
}

func TestNewInitializesTraversal(t *testing.T) {
	s, _ := newSession(t, DefaultOptions())
	snap := s.Focus().Snapshot()
	assert.Equal(t, []string{"Physics", "Mechanics", "Optics", "Kinematics"}, snap.Order)
	assert.Equal(t, -1, snap.Index)
	assert.False(t, snap.HasFocus)
	assert.Equal(t, "Physics", s.Name())
}

func TestNewRejectsNilTree(t *testing.T) {
	_, err := New(&model.Document{}, DefaultOptions(), nil)
	assert.ErrorIs(t, err, traversal.ErrNilRoot)

	_, err = New(doc(physics()), Options{Order: "sideways"}, nil)
	assert.Error(t, err)
}

func TestClickTogglesByLabel(t *testing.T) {
	s, _ := newSession(t, DefaultOptions())

	require.NoError(t, s.Click(focus.Source2D, "0.1"))
	snap := s.Focus().Snapshot()
	assert.Equal(t, "Optics", snap.Label)
	assert.Equal(t, focus.Source2D, snap.Source)

	require.NoError(t, s.Click(focus.Source3D, "0.1"))
	assert.False(t, s.Focus().Snapshot().HasFocus)

	assert.ErrorIs(t, s.Click(focus.Source2D, "9.9"), ErrUnknownNode)
	assert.Error(t, s.Click(focus.SourceNone, "0"))
}

func TestReplaceTreeReinitializes(t *testing.T) {
	s, _ := newSession(t, DefaultOptions())
	s.Focus().SetFocus("Optics", focus.Source2D)
	s.Nav().Next()

	next := &model.TreeNode{Label: "Chemistry", Children: []*model.TreeNode{{Label: "Optics"}}}
	require.NoError(t, s.ReplaceTree(doc(next)))

	snap := s.Focus().Snapshot()
	assert.Equal(t, []string{"Chemistry", "Optics"}, snap.Order)
	assert.Equal(t, -1, snap.Index)
	assert.False(t, snap.HasFocus, "Physics was focused by Next and is gone")

	assert.Len(t, s.Layout2D().Nodes, 2)
	assert.Len(t, s.Layout3D().Nodes, 2)
	require.NotEmpty(t, s.Search("opt", 1))
	assert.Equal(t, "0.0", s.Search("opt", 1)[0].ID)

	assert.ErrorIs(t, s.ReplaceTree(nil), traversal.ErrNilRoot)
}

func TestReplaceTreeRejectsEmptyLabel(t *testing.T) {
	s, _ := newSession(t, DefaultOptions())
	blank := &model.TreeNode{Label: "Chemistry", Children: []*model.TreeNode{{Label: ""}}}
	require.Error(t, s.ReplaceTree(doc(blank)))

	assert.Equal(t, "Physics", s.Document().Root.Label)
	assert.True(t, s.Nav().Next())
	assert.True(t, s.Focus().Snapshot().HasFocus)
}

func TestReplaceTreeKeepsSurvivingFocus(t *testing.T) {
	s, _ := newSession(t, DefaultOptions())
	s.Focus().SetFocus("Optics", focus.Source2D)

	require.NoError(t, s.ReplaceTree(doc(&model.TreeNode{Label: "Optics"})))
	snap := s.Focus().Snapshot()
	assert.True(t, snap.HasFocus)
	assert.Equal(t, "Optics", snap.Label)
}

func TestSetOrder(t *testing.T) {
	s, _ := newSession(t, DefaultOptions())
	require.NoError(t, s.SetOrder(traversal.DFS))
	assert.Equal(t, []string{"Physics", "Mechanics", "Kinematics", "Optics"}, s.Focus().Snapshot().Order)
	assert.Equal(t, traversal.DFS, s.Order())
	assert.True(t, s.Nav().Previous(), "DFS allows stepping back")
	assert.Error(t, s.SetOrder("random"))
}

func TestSetOrderAfterClose(t *testing.T) {
	s, _ := newSession(t, DefaultOptions())
	s.Close()
	assert.ErrorIs(t, s.SetOrder(traversal.DFS), ErrClosed)
}

func TestConcurrentStepsAndClicks(t *testing.T) {
	s, clock := newSession(t, DefaultOptions())

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				if i%2 == 0 {
					s.Nav().Next()
				} else {
					_ = s.Click(focus.Source2D, "0.1")
				}
			}
		}()
	}
	wg.Wait()

	// A final step is delivered after every concurrent one and settles the camera.
	s.Nav().Next()
	snap := s.Focus().Snapshot()
	require.True(t, snap.HasFocus)
	assert.Equal(t, snap.Order[snap.Index], snap.Label)

	clock.Advance(2 * time.Second)
	c, _ := s.Camera()
	want, ok := s.locate(snap.Label)
	require.True(t, ok)
	assert.Equal(t, want, c.Target)
}

func TestConcurrentSetOrderAndReplaceTree(t *testing.T) {
	s, _ := newSession(t, DefaultOptions())
	chemistry := func() *model.Document {
		return doc(&model.TreeNode{Label: "Chemistry", Children: []*model.TreeNode{
			{Label: "Bonds", Children: []*model.TreeNode{{Label: "Ionic"}}},
			{Label: "Acids"},
		}})
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := range 100 {
			order := traversal.DFS
			if i%2 == 0 {
				order = traversal.BFS
			}
			assert.NoError(t, s.SetOrder(order))
		}
	}()
	go func() {
		defer wg.Done()
		for i := range 100 {
			next := chemistry()
			if i%2 == 0 {
				next = doc(physics())
			}
			assert.NoError(t, s.ReplaceTree(next))
		}
	}()
	wg.Wait()

	snap := s.Focus().Snapshot()
	d := s.Document()
	require.NotEmpty(t, snap.Order)
	assert.Equal(t, d.Root.Label, snap.Order[0])
	assert.Len(t, snap.Order, len(s.Layout2D().Nodes))
	assert.Equal(t, s.Order(), snap.Kind)
}

func TestDragEndResolvesCollisions(t *testing.T) {
	s, _ := newSession(t, DefaultOptions())
	opt, ok := s.Layout2D().Node("0.1")
	require.True(t, ok)

	// Drop Kinematics right on top of Optics.
	pushed, err := s.DragEnd("0.0.0", opt.X, opt.Y)
	require.NoError(t, err)
	assert.Positive(t, pushed)

	k, _ := s.Layout2D().Node("0.0.0")
	o, _ := s.Layout2D().Node("0.1")
	assert.NotEqual(t, [2]float64{k.X, k.Y}, [2]float64{o.X, o.Y})

	_, err = s.DragEnd("nope", 0, 0)
	assert.ErrorIs(t, err, ErrUnknownNode)
	assert.ErrorIs(t, s.Drag("nope", 0, 0), ErrUnknownNode)
}

func TestLayout2DIsACopy(t *testing.T) {
	s, _ := newSession(t, DefaultOptions())
	l := s.Layout2D()
	l.Move("0", -500, -500)
	n, _ := s.Layout2D().Node("0")
	assert.NotEqual(t, -500.0, n.X)
}

func TestCameraFollowsOtherView(t *testing.T) {
	s, clock := newSession(t, DefaultOptions())

	require.NoError(t, s.Click(focus.Source3D, "0.1"))
	_, phase := s.Camera()
	assert.Equal(t, camera.Idle, phase, "a 3D click does not fly the camera")

	require.NoError(t, s.Click(focus.Source2D, "0.0"))
	_, phase = s.Camera()
	assert.Equal(t, camera.Animating, phase)

	clock.Advance(2 * time.Second)
	c, phase := s.Camera()
	assert.Equal(t, camera.Idle, phase)
	mech, _ := s.Layout3D().Node("0.0")
	assert.Equal(t, mech.Position, c.Target)
}

func TestCameraFollowsNavSteps(t *testing.T) {
	s, clock := newSession(t, DefaultOptions())

	s.Nav().Next()
	s.Nav().Next()
	_, phase := s.Camera()
	assert.Equal(t, camera.Animating, phase, "steps fly even though they are attributed to 3D")

	clock.Advance(2 * time.Second)
	c, _ := s.Camera()
	mech, _ := s.Layout3D().Node("0.0")
	assert.Equal(t, mech.Position, c.Target)
}

func TestCameraAlwaysAnimate(t *testing.T) {
	opts := DefaultOptions()
	opts.AlwaysAnimate = true
	s, _ := newSession(t, opts)

	require.NoError(t, s.Click(focus.Source3D, "0.1"))
	_, phase := s.Camera()
	assert.Equal(t, camera.Animating, phase)
}

func TestCloseResetsFocus(t *testing.T) {
	s, _ := newSession(t, DefaultOptions())
	s.Nav().Next()
	s.Close()
	snap := s.Focus().Snapshot()
	assert.False(t, snap.HasFocus)
	assert.Empty(t, snap.Order)
	assert.ErrorIs(t, s.ReplaceTree(doc(physics())), ErrClosed)
	s.Close()
}
