// Package session owns one mounted viewing session: the tree, both layouts,
// the shared focus state, navigation and the 3D camera.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/kraitsura/ktree_viewer/pkg/camera"
	"github.com/kraitsura/ktree_viewer/pkg/focus"
	"github.com/kraitsura/ktree_viewer/pkg/layout"
	"github.com/kraitsura/ktree_viewer/pkg/loader"
	"github.com/kraitsura/ktree_viewer/pkg/model"
	"github.com/kraitsura/ktree_viewer/pkg/nav"
	"github.com/kraitsura/ktree_viewer/pkg/scene"
	"github.com/kraitsura/ktree_viewer/pkg/search"
	"github.com/kraitsura/ktree_viewer/pkg/traversal"
)

// ErrUnknownNode is returned for node ids that are not in the current tree.
var ErrUnknownNode = errors.New("unknown node")

// ErrClosed is returned by mutations after Close.
var ErrClosed = errors.New("session closed")

// Options configures a session.
type Options struct {
	Order         traversal.Order
	Layout        layout.Config
	Scene         scene.Config
	Camera        camera.Options
	AlwaysAnimate bool
	AllowPrevious bool
	// Now is the clock used for camera animation; time.Now when nil.
	Now func() time.Time
}

// DefaultOptions returns BFS traversal with default layouts.
func DefaultOptions() Options {
	return Options{
		Order:  traversal.BFS,
		Layout: layout.DefaultConfig(),
		Scene:  scene.DefaultConfig(),
	}
}

// Session is safe for concurrent use.
type Session struct {
	opts   Options
	logger *log.Logger

	state  *focus.State
	nav    *nav.Controller
	camera *camera.Animator

	// swapMu orders tree swaps, order changes and Close so the traversal
	// always matches the mounted root. It is never taken by focus listeners.
	swapMu sync.Mutex

	mu     sync.RWMutex
	doc    *model.Document
	flat   *layout.Result
	space  *scene.Result
	index  *search.Index
	closed bool

	cancels []func()
}

// New mounts doc. The traversal is initialized before New returns.
func New(doc *model.Document, opts Options, logger *log.Logger) (*Session, error) {
	if logger == nil {
		logger = log.Default()
	}
	if opts.Order == "" {
		opts.Order = traversal.BFS
	}
	if !opts.Order.IsValid() {
		return nil, fmt.Errorf("invalid traversal order %q", opts.Order)
	}
	if opts.Layout == (layout.Config{}) {
		opts.Layout = layout.DefaultConfig()
	}
	if opts.Scene == (scene.Config{}) {
		opts.Scene = scene.DefaultConfig()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Session{
		opts:   opts,
		logger: logger,
		state:  focus.New(),
		camera: camera.NewAnimator(camera.DefaultCamera(), opts.Camera),
	}
	s.nav = nav.New(s.state, nav.Options{AllowPrevious: opts.AllowPrevious})
	s.cancels = append(s.cancels, camera.Follow(s.state, s.camera, s.locate, camera.FollowOptions{
		AlwaysAnimate: opts.AlwaysAnimate,
		Now:           opts.Now,
	}))

	if err := s.ReplaceTree(doc); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// ReplaceTree swaps in a new document, recomputes both layouts and the
// search index, and re-initializes the traversal. Any tree change goes
// through here, so the order never refers to a previous tree.
func (s *Session) ReplaceTree(doc *model.Document) error {
	if doc == nil || doc.Root == nil {
		return fmt.Errorf("replace tree: %w", traversal.ErrNilRoot)
	}
	if err := doc.Root.Validate(); err != nil {
		return fmt.Errorf("replace tree: %w", err)
	}
	model.AssignIDs(doc.Root)

	flat := layout.Compute(doc.Root, s.opts.Layout)
	space := scene.Compute(doc.Root, s.opts.Scene)
	index := search.NewIndex(doc.Root)

	s.swapMu.Lock()
	defer s.swapMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.doc, s.flat, s.space, s.index = doc, flat, space, index
	order := s.opts.Order
	s.mu.Unlock()

	// Listeners read the session, so the traversal is reset outside mu.
	if err := s.state.InitializeTraversal(doc.Root, order); err != nil {
		return err
	}
	s.logger.Debug("tree mounted", "name", loader.Name(doc), "nodes", len(flat.Nodes), "order", order)
	return nil
}

// SetOrder switches between BFS and DFS and re-initializes the traversal.
func (s *Session) SetOrder(order traversal.Order) error {
	if !order.IsValid() {
		return fmt.Errorf("invalid traversal order %q", order)
	}
	s.swapMu.Lock()
	defer s.swapMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.opts.Order = order
	root := s.doc.Root
	s.mu.Unlock()
	return s.state.InitializeTraversal(root, order)
}

// Focus returns the shared focus state.
func (s *Session) Focus() *focus.State { return s.state }

// Nav returns the navigation controller.
func (s *Session) Nav() *nav.Controller { return s.nav }

// Animator returns the 3D camera animator.
func (s *Session) Animator() *camera.Animator { return s.camera }

// Order returns the configured traversal order.
func (s *Session) Order() traversal.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opts.Order
}

// Document returns the mounted document.
func (s *Session) Document() *model.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc
}

// Name returns the display name of the mounted tree.
func (s *Session) Name() string {
	return loader.Name(s.Document())
}

// Layout2D returns a copy of the current 2D layout.
func (s *Session) Layout2D() *layout.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flat.Clone()
}

// Layout3D returns the current 3D layout. It is never mutated in place.
func (s *Session) Layout3D() *scene.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.space
}

// Search runs a fuzzy label search over the mounted tree.
func (s *Session) Search(query string, limit int) []search.Match {
	s.mu.RLock()
	idx := s.index
	s.mu.RUnlock()
	return idx.Find(query, limit)
}

// Click toggles focus on the label of node id, attributed to view.
func (s *Session) Click(view focus.Source, id string) error {
	if view == focus.SourceNone || !view.IsValid() {
		return fmt.Errorf("invalid view %q", view)
	}
	s.mu.RLock()
	n, ok := s.flat.Node(id)
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	s.state.ToggleFocus(n.Label, view)
	return nil
}

// Drag moves node id in the 2D layout without resolving collisions.
func (s *Session) Drag(id string, x, y float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.flat.Move(id, x, y) {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	return nil
}

// DragEnd places node id at (x, y) and runs the collision pass. It returns
// the number of pairs pushed apart.
func (s *Session) DragEnd(id string, x, y float64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pushed, ok := s.flat.EndDrag(id, x, y)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	if pushed > 0 {
		s.logger.Debug("collision pass", "node", id, "pushed", pushed)
	}
	return pushed, nil
}

// Camera advances the camera animation to the session clock.
func (s *Session) Camera() (camera.Camera, camera.Phase) {
	c := s.camera.Tick(s.opts.Now())
	return c, s.camera.Phase()
}

// locate maps a focused label to its first node position in the 3D layout.
func (s *Session) locate(label string) (r3.Vec, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.space == nil {
		return r3.Vec{}, false
	}
	ps := s.space.PositionsByLabel(label)
	if len(ps) == 0 {
		return r3.Vec{}, false
	}
	return ps[0], true
}

// Close tears the session down: subscriptions are cancelled and the focus
// state is reset. Close is idempotent.
func (s *Session) Close() {
	s.swapMu.Lock()
	defer s.swapMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cancels := s.cancels
	s.cancels = nil
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	s.state.Reset()
}
