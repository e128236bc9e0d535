// Package focus holds the shared "which node is focused and why" state of
// one viewing session. Both views and the navigation controller receive the
// same *State at construction; there is no package-level instance.
package focus

import (
	"slices"
	"sync"

	"github.com/kraitsura/ktree_viewer/pkg/model"
	"github.com/kraitsura/ktree_viewer/pkg/traversal"
)

// Source records which view last set the focus.
type Source string

const (
	SourceNone Source = ""
	Source2D   Source = "view-2d"
	Source3D   Source = "view-3d"
)

// IsValid returns true if the source is a recognized value
func (s Source) IsValid() bool {
	switch s {
	case SourceNone, Source2D, Source3D:
		return true
	}
	return false
}

// Snapshot is an immutable copy of the state.
type Snapshot struct {
	Label    string          `json:"label"`
	HasFocus bool            `json:"has_focus"`
	Source   Source          `json:"source"`
	Order    []string        `json:"order"`
	Kind     traversal.Order `json:"kind"`
	Index    int             `json:"index"`
}

// Matches reports whether a node with the given label is highlighted.
// Focus is by label, so every node sharing the label matches.
func (s Snapshot) Matches(label string) bool {
	return s.HasFocus && s.Label == label
}

// Listener receives the state after every change.
type Listener func(Snapshot)

// State is the shared focus state. Mutations are serialized; listeners run
// after the lock is released, one delivery at a time and in mutation order.
// A snapshot superseded by a newer one before its delivery starts is
// skipped. Listeners must not mutate the state synchronously.
type State struct {
	mu       sync.RWMutex
	label    string
	hasFocus bool
	source   Source
	order    []string
	kind     traversal.Order
	index    int
	seq      uint64

	dispatchMu sync.Mutex
	delivered  uint64

	listenersMu sync.Mutex
	listeners   map[int]Listener
	nextID      int
}

// New returns a state with no focus and an empty traversal order.
func New() *State {
	return &State{
		index:     -1,
		listeners: make(map[int]Listener),
	}
}

// Snapshot returns a consistent copy of the state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// commitLocked stamps a mutation and returns its sequence number with the
// resulting snapshot.
func (s *State) commitLocked() (uint64, Snapshot) {
	s.seq++
	return s.seq, s.snapshotLocked()
}

func (s *State) snapshotLocked() Snapshot {
	return Snapshot{
		Label:    s.label,
		HasFocus: s.hasFocus,
		Source:   s.source,
		Order:    slices.Clone(s.order),
		Kind:     s.kind,
		Index:    s.index,
	}
}

// SetFocus replaces the focused label and its source together. An empty
// label clears both.
func (s *State) SetFocus(label string, source Source) {
	s.mu.Lock()
	changed := s.setLocked(label, source)
	seq, snap := s.commitLocked()
	s.mu.Unlock()

	if changed {
		s.notify(seq, snap)
	}
}

// ClearFocus removes the focus.
func (s *State) ClearFocus() {
	s.SetFocus("", SourceNone)
}

// ToggleFocus clears the focus if label is already focused, otherwise
// focuses it. This is the click behavior of both views.
func (s *State) ToggleFocus(label string, source Source) {
	s.mu.Lock()
	var changed bool
	if s.hasFocus && s.label == label {
		changed = s.setLocked("", SourceNone)
	} else {
		changed = s.setLocked(label, source)
	}
	seq, snap := s.commitLocked()
	s.mu.Unlock()

	if changed {
		s.notify(seq, snap)
	}
}

func (s *State) setLocked(label string, source Source) bool {
	if label == "" {
		if !s.hasFocus && s.source == SourceNone {
			return false
		}
		s.label, s.hasFocus, s.source = "", false, SourceNone
		return true
	}
	if s.hasFocus && s.label == label && s.source == source {
		return false
	}
	s.label, s.hasFocus, s.source = label, true, source
	return true
}

// InitializeTraversal recomputes the traversal order and resets the index
// to -1. A focused label that no longer appears in the order is cleared.
func (s *State) InitializeTraversal(root *model.TreeNode, order traversal.Order) error {
	labels, err := traversal.Traverse(root, order)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.order = labels
	s.kind = order
	s.index = -1
	if s.hasFocus && !slices.Contains(labels, s.label) {
		s.label, s.hasFocus, s.source = "", false, SourceNone
	}
	seq, snap := s.commitLocked()
	s.mu.Unlock()

	s.notify(seq, snap)
	return nil
}

// Reset clears focus and the traversal order, as on unmount.
func (s *State) Reset() {
	s.mu.Lock()
	s.label, s.hasFocus, s.source = "", false, SourceNone
	s.order = nil
	s.kind = ""
	s.index = -1
	seq, snap := s.commitLocked()
	s.mu.Unlock()

	s.notify(seq, snap)
}

// StepForward advances the traversal index, wrapping to 0 after the last
// element, and focuses the label there. Returns false if the order is empty.
func (s *State) StepForward() bool {
	return s.step(1)
}

// StepBackward retreats the traversal index, wrapping from 0 (or -1) to the
// last element. Returns false if the order is empty.
func (s *State) StepBackward() bool {
	return s.step(-1)
}

func (s *State) step(delta int) bool {
	s.mu.Lock()
	n := len(s.order)
	if n == 0 {
		s.mu.Unlock()
		return false
	}
	next := s.index + delta
	if s.index < 0 && delta < 0 {
		next = n - 1
	}
	next = ((next % n) + n) % n
	s.index = next
	// Stepping always attributes the focus to the 3D view.
	s.setLocked(s.order[next], Source3D)
	seq, snap := s.commitLocked()
	s.mu.Unlock()

	s.notify(seq, snap)
	return true
}

// Subscribe registers a listener and returns a function that removes it.
func (s *State) Subscribe(fn Listener) (cancel func()) {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

func (s *State) notify(seq uint64, snap Snapshot) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()
	if seq <= s.delivered {
		return
	}
	s.delivered = seq

	s.listenersMu.Lock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]Listener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.listeners[id])
	}
	s.listenersMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
