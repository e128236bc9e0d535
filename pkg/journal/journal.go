// Package journal keeps a sqlite log of presentation sessions: which nodes
// were focused, when, and from which view.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/kraitsura/ktree_viewer/pkg/model"
)

// Driver names accepted by Open.
const (
	// DriverPure is the cgo-free modernc.org/sqlite driver.
	DriverPure = "sqlite"
	// DriverCGO is github.com/mattn/go-sqlite3.
	DriverCGO = "sqlite3"
)

const timeLayout = time.RFC3339Nano

// ErrSessionNotFound is returned when a session id is unknown.
var ErrSessionNotFound = errors.New("session not found")

// Journal is the session store.
type Journal struct {
	db *sql.DB
}

// Open opens or creates the journal database at path. An empty driver
// selects DriverPure.
func Open(path, driver string) (*Journal, error) {
	switch driver {
	case "":
		driver = DriverPure
	case DriverPure, DriverCGO:
	default:
		return nil, fmt.Errorf("unknown sqlite driver %q", driver)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// sqlite allows a single writer; serializing here avoids SQLITE_BUSY
	// between the HTTP handlers and the focus recorder.
	db.SetMaxOpenConns(1)

	j := &Journal{db: db}
	if err := j.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return j, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) initSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tree_name TEXT NOT NULL,
			traversal TEXT NOT NULL,
			traversal_size INTEGER NOT NULL DEFAULT 0,
			started_at TEXT NOT NULL,
			completed_at TEXT,
			nodes_visited INTEGER NOT NULL DEFAULT 0,
			focus_changes INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS focus_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id INTEGER NOT NULL,
			label TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			traversal_index INTEGER NOT NULL DEFAULT -1,
			cleared INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			FOREIGN KEY(session_id) REFERENCES sessions(id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_focus_events_session ON focus_events(session_id);`,
	}
	for _, stmt := range stmts {
		if _, err := j.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// StartSession creates a new session row.
func (j *Journal) StartSession(treeName, order string, traversalSize int) (*model.PresentationSession, error) {
	now := time.Now().UTC()
	result, err := j.db.Exec(`
		INSERT INTO sessions (tree_name, traversal, traversal_size, started_at)
		VALUES (?, ?, ?, ?)
	`, treeName, order, traversalSize, now.Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &model.PresentationSession{
		ID:            id,
		TreeName:      treeName,
		Order:         order,
		StartedAt:     now,
		TraversalSize: traversalSize,
	}, nil
}

// RecordFocus appends a focus event and bumps the session's change counter.
// CreatedAt is filled in when zero.
func (j *Journal) RecordFocus(ev *model.FocusEvent) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	tx, err := j.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		INSERT INTO focus_events (session_id, label, source, traversal_index, cleared, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, ev.SessionID, ev.Label, ev.Source, ev.Index, ev.Cleared, ev.CreatedAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("record focus: %w", err)
	}
	if _, err := tx.Exec(`UPDATE sessions SET focus_changes = focus_changes + 1 WHERE id = ?`, ev.SessionID); err != nil {
		return fmt.Errorf("record focus: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	ev.ID = id
	return tx.Commit()
}

// CompleteSession marks the session complete and stores the number of
// distinct labels that were focused during it.
func (j *Journal) CompleteSession(s *model.PresentationSession) error {
	now := time.Now().UTC()
	var visited int
	err := j.db.QueryRow(`
		SELECT COUNT(DISTINCT label) FROM focus_events
		WHERE session_id = ? AND cleared = 0
	`, s.ID).Scan(&visited)
	if err != nil {
		return fmt.Errorf("count visited nodes: %w", err)
	}
	if _, err := j.db.Exec(`
		UPDATE sessions SET completed_at = ?, nodes_visited = ? WHERE id = ?
	`, now.Format(timeLayout), visited, s.ID); err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	s.CompletedAt = &now
	s.NodesVisited = visited
	return nil
}

// GetSession retrieves a session by id.
func (j *Journal) GetSession(id int64) (*model.PresentationSession, error) {
	row := j.db.QueryRow(`
		SELECT id, tree_name, traversal, traversal_size, started_at, completed_at, nodes_visited, focus_changes
		FROM sessions WHERE id = ?
	`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrSessionNotFound, id)
	}
	return s, err
}

// Sessions lists the most recent sessions first. A limit <= 0 lists all.
func (j *Journal) Sessions(limit int) ([]model.PresentationSession, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.Query(`
		SELECT id, tree_name, traversal, traversal_size, started_at, completed_at, nodes_visited, focus_changes
		FROM sessions ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PresentationSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// Events returns the focus events of a session in recording order.
func (j *Journal) Events(sessionID int64) ([]model.FocusEvent, error) {
	rows, err := j.db.Query(`
		SELECT id, session_id, label, source, traversal_index, cleared, created_at
		FROM focus_events WHERE session_id = ? ORDER BY id
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.FocusEvent
	for rows.Next() {
		var ev model.FocusEvent
		var created string
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.Label, &ev.Source, &ev.Index, &ev.Cleared, &created); err != nil {
			return nil, err
		}
		if ev.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("event %d: %w", ev.ID, err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(sc scanner) (*model.PresentationSession, error) {
	var s model.PresentationSession
	var started string
	var completed sql.NullString
	if err := sc.Scan(&s.ID, &s.TreeName, &s.Order, &s.TraversalSize, &started, &completed, &s.NodesVisited, &s.FocusChanges); err != nil {
		return nil, err
	}
	var err error
	if s.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return nil, fmt.Errorf("session %d: %w", s.ID, err)
	}
	if completed.Valid {
		t, err := time.Parse(timeLayout, completed.String)
		if err != nil {
			return nil, fmt.Errorf("session %d: %w", s.ID, err)
		}
		s.CompletedAt = &t
	}
	return &s, nil
}
