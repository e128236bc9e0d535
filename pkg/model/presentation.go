package model

import "time"

// FocusEvent records one focus change during a presentation session
type FocusEvent struct {
	ID        int64     `json:"id"`
	SessionID int64     `json:"session_id"`
	Label     string    `json:"label"`
	Source    string    `json:"source"` // view-2d, view-3d or empty
	Index     int       `json:"index"`  // traversal index, -1 when focus came from a click
	Cleared   bool      `json:"cleared"`
	CreatedAt time.Time `json:"created_at"`
}

// PresentationSession groups the focus events of one mounted tree
type PresentationSession struct {
	ID            int64      `json:"id"`
	TreeName      string     `json:"tree_name"`
	Order         string     `json:"order"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	NodesVisited  int        `json:"nodes_visited"`
	FocusChanges  int        `json:"focus_changes"`
	TraversalSize int        `json:"traversal_size"`
}
