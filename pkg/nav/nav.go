// Package nav drives next/previous stepping through the traversal order
// held by a focus.State.
package nav

import (
	"fmt"

	"github.com/kraitsura/ktree_viewer/pkg/focus"
	"github.com/kraitsura/ktree_viewer/pkg/traversal"
)

// Options configures a Controller.
type Options struct {
	// AllowPrevious enables Previous regardless of traversal order. Without
	// it only DFS sessions can step backward.
	AllowPrevious bool
}

// Status is the navigation readout shown next to the controls.
type Status struct {
	Enabled     bool   `json:"enabled"`
	Position    string `json:"position"`
	Current     string `json:"current"`
	NextLabel   string `json:"next"`
	CanPrevious bool   `json:"can_previous"`
}

// Controller steps a focus.State. It keeps no state of its own.
type Controller struct {
	state *focus.State
	opts  Options
}

// New returns a controller bound to state.
func New(state *focus.State, opts Options) *Controller {
	return &Controller{state: state, opts: opts}
}

// Next advances to the next node in the order. Returns false when the order
// is empty.
func (c *Controller) Next() bool {
	return c.state.StepForward()
}

// Previous steps back one node. Returns false when stepping back is not
// allowed or the order is empty.
func (c *Controller) Previous() bool {
	if !c.canPrevious(c.state.Snapshot()) {
		return false
	}
	return c.state.StepBackward()
}

func (c *Controller) canPrevious(snap focus.Snapshot) bool {
	if len(snap.Order) == 0 {
		return false
	}
	return c.opts.AllowPrevious || snap.Kind == traversal.DFS
}

// Status reports the current position. Before the first step the position
// reads "0/n" and the next label is the first in the order.
func (c *Controller) Status() Status {
	return StatusOf(c.state.Snapshot(), c.opts)
}

// StatusOf computes the readout for a snapshot.
func StatusOf(snap focus.Snapshot, opts Options) Status {
	n := len(snap.Order)
	if n == 0 {
		return Status{}
	}
	st := Status{
		Enabled:     true,
		Position:    fmt.Sprintf("%d/%d", snap.Index+1, n),
		CanPrevious: opts.AllowPrevious || snap.Kind == traversal.DFS,
	}
	if snap.Index >= 0 && snap.Index < n {
		st.Current = snap.Order[snap.Index]
	}
	st.NextLabel = snap.Order[(snap.Index+1)%n]
	return st
}

// Options returns the controller options.
func (c *Controller) Options() Options {
	return c.opts
}
