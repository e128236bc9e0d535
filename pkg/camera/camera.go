// Package camera animates the 3D view's orbit camera toward the focused
// node.
package camera

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

// Defaults for the fly-to animation.
const (
	DefaultStandOff = 6.0
	DefaultDuration = time.Second
)

// Camera is an orbit camera: a position looking at a target point.
type Camera struct {
	Position r3.Vec `json:"position"`
	Target   r3.Vec `json:"target"`
}

// DefaultCamera looks at the origin from +Z.
func DefaultCamera() Camera {
	return Camera{Position: r3.Vec{Z: 20}}
}

// ViewVector is the vector from the target to the camera position.
func (c Camera) ViewVector() r3.Vec {
	return r3.Sub(c.Position, c.Target)
}

// EaseInOutCubic maps t in [0,1] onto a cubic ease-in-out curve.
func EaseInOutCubic(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	if t < 0.5 {
		return 4 * t * t * t
	}
	u := -2*t + 2
	return 1 - u*u*u/2
}

// Phase is the animator state.
type Phase int

const (
	Idle Phase = iota
	Animating
)

func (p Phase) String() string {
	if p == Animating {
		return "animating"
	}
	return "idle"
}

// Options configures an Animator.
type Options struct {
	StandOff float64
	Duration time.Duration
}

// Animator moves a camera toward a focused node over a fixed duration.
// It is a two-state machine: Idle, or Animating between two camera poses
// from a start time. FlyTo during an animation restarts it from the
// current in-flight pose.
type Animator struct {
	mu       sync.Mutex
	opts     Options
	current  Camera
	phase    Phase
	start    time.Time
	from, to Camera
}

// NewAnimator returns an idle animator holding initial.
func NewAnimator(initial Camera, opts Options) *Animator {
	if opts.StandOff <= 0 {
		opts.StandOff = DefaultStandOff
	}
	if opts.Duration <= 0 {
		opts.Duration = DefaultDuration
	}
	return &Animator{opts: opts, current: initial}
}

// Phase returns the current state.
func (a *Animator) Phase() Phase {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.phase
}

// Camera returns the camera as of the last tick.
func (a *Animator) Camera() Camera {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// Destination returns the pose the running animation ends at, or the
// current camera when idle.
func (a *Animator) Destination() Camera {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase == Idle {
		return a.current
	}
	return a.to
}

// Target computes where the camera should end up to look at node: on the
// current viewing line, StandOff units from the node.
func (a *Animator) Target(node r3.Vec) Camera {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.targetLocked(node)
}

func (a *Animator) targetLocked(node r3.Vec) Camera {
	dir := r3.Sub(a.current.Position, node)
	if r3.Norm(dir) == 0 {
		dir = r3.Vec{Z: 1}
	}
	dir = r3.Unit(dir)
	return Camera{
		Position: r3.Add(node, r3.Scale(a.opts.StandOff, dir)),
		Target:   node,
	}
}

// FlyTo starts (or restarts) an animation toward node at time now.
func (a *Animator) FlyTo(node r3.Vec, now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.advanceLocked(now)
	a.from = a.current
	a.to = a.targetLocked(node)
	a.start = now
	a.phase = Animating
}

// Tick advances the animation to now and returns the camera pose. When the
// duration has elapsed the animator lands exactly on the destination and
// returns to Idle.
func (a *Animator) Tick(now time.Time) Camera {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.advanceLocked(now)
	return a.current
}

func (a *Animator) advanceLocked(now time.Time) {
	if a.phase != Animating {
		return
	}
	elapsed := now.Sub(a.start)
	if elapsed >= a.opts.Duration {
		a.current = a.to
		a.phase = Idle
		return
	}
	if elapsed < 0 {
		elapsed = 0
	}
	t := EaseInOutCubic(float64(elapsed) / float64(a.opts.Duration))
	a.current = Camera{
		Position: lerp(a.from.Position, a.to.Position, t),
		Target:   lerp(a.from.Target, a.to.Target, t),
	}
}

// Set places the camera directly, cancelling any animation. Used when the
// user orbits or pans by hand.
func (a *Animator) Set(c Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = c
	a.phase = Idle
}

func lerp(p, q r3.Vec, t float64) r3.Vec {
	return r3.Add(p, r3.Scale(t, r3.Sub(q, p)))
}
