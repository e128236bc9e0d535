package camera

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/kraitsura/ktree_viewer/pkg/focus"
)

// Locator resolves a focused label to the point the camera should fly to.
type Locator func(label string) (r3.Vec, bool)

// FollowOptions configures Follow.
type FollowOptions struct {
	// AlwaysAnimate flies on every focus, including clicks in the 3D view.
	// Otherwise 3D clicks leave the camera where the user put it.
	AlwaysAnimate bool
	// Now is the clock; time.Now when nil.
	Now func() time.Time
}

// ShouldAnimate reports whether a focus snapshot should move the camera.
// Clearing the focus never does.
func ShouldAnimate(snap focus.Snapshot, alwaysAnimate bool) bool {
	if !snap.HasFocus {
		return false
	}
	return alwaysAnimate || snap.Source != focus.Source3D
}

// Follow subscribes anim to focus changes on state and returns the
// cancel function of the subscription. Traversal steps always fly, even
// though they are attributed to the 3D view.
func Follow(state *focus.State, anim *Animator, locate Locator, opts FollowOptions) (cancel func()) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	var mu sync.Mutex
	last := state.Snapshot()
	return state.Subscribe(func(snap focus.Snapshot) {
		mu.Lock()
		prev := last
		last = snap
		mu.Unlock()
		stepped := snap.HasFocus && snap.Index >= 0 && snap.Index != prev.Index
		if !stepped && !ShouldAnimate(snap, opts.AlwaysAnimate) {
			return
		}
		// Order-only updates (re-initialization) keep the camera still.
		if prev.HasFocus && prev.Label == snap.Label && prev.Source == snap.Source &&
			(prev.Index == snap.Index || snap.Index < 0) {
			return
		}
		if p, ok := locate(snap.Label); ok {
			anim.FlyTo(p, now())
		}
	})
}
