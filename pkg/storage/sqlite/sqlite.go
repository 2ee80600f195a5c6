// Package sqlite persists stories as linear action/result turns in a
// SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// StoryRecord is one saved story: the starting context, the generated
// opening, and the turns taken so far.
type StoryRecord struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Context   string    `json:"context"`
	Opening   string    `json:"opening"`
	CreatedAt time.Time `json:"created_at"`
	Turns     []Turn    `json:"turns,omitempty"`
}

// Turn is one action/result pair.
type Turn struct {
	Action string `json:"action"`
	Result string `json:"result"`
}

// ErrNotFound is returned when a story doesn't exist in the store.
type ErrNotFound struct {
	ID string
}

func (e ErrNotFound) Error() string {
	if e.ID == "" {
		return "story not found"
	}

	return "story not found: " + e.ID
}

const schema = `
CREATE TABLE IF NOT EXISTS stories (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	context    TEXT NOT NULL,
	opening    TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS turns (
	story_id TEXT NOT NULL REFERENCES stories(id) ON DELETE CASCADE,
	idx      INTEGER NOT NULL,
	action   TEXT NOT NULL,
	result   TEXT NOT NULL,
	PRIMARY KEY (story_id, idx)
);
`

// Store is a SQLite-backed story store.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the database at path. Use ":memory:"
// for an in-memory store.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Save writes the story and all its turns, replacing any previous
// version with the same ID. Stories are console-scale, so a full
// rewrite of the turn list per save is fine.
func (s *Store) Save(ctx context.Context, rec *StoryRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO stories (id, title, context, opening, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET title = excluded.title,
		     context = excluded.context, opening = excluded.opening`,
		rec.ID, rec.Title, rec.Context, rec.Opening, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("could not save story: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM turns WHERE story_id = ?`, rec.ID); err != nil {
		return fmt.Errorf("could not clear turns: %w", err)
	}

	for i, turn := range rec.Turns {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO turns (story_id, idx, action, result) VALUES (?, ?, ?, ?)`,
			rec.ID, i, turn.Action, turn.Result,
		)
		if err != nil {
			return fmt.Errorf("could not save turn %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// Load retrieves a story with its turns in order.
func (s *Store) Load(ctx context.Context, id string) (*StoryRecord, error) {
	rec := &StoryRecord{ID: id}
	err := s.db.QueryRowContext(ctx,
		`SELECT title, context, opening, created_at FROM stories WHERE id = ?`, id,
	).Scan(&rec.Title, &rec.Context, &rec.Opening, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("could not load story: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT action, result FROM turns WHERE story_id = ? ORDER BY idx`, id)
	if err != nil {
		return nil, fmt.Errorf("could not load turns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var turn Turn
		if err := rows.Scan(&turn.Action, &turn.Result); err != nil {
			return nil, err
		}
		rec.Turns = append(rec.Turns, turn)
	}

	return rec, rows.Err()
}

// List returns all stories, newest first, without their turns.
func (s *Store) List(ctx context.Context) ([]*StoryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, context, opening, created_at FROM stories ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("could not list stories: %w", err)
	}
	defer rows.Close()

	var recs []*StoryRecord
	for rows.Next() {
		rec := &StoryRecord{}
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Context, &rec.Opening, &rec.CreatedAt); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}

	return recs, rows.Err()
}

// Delete removes a story and its turns.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM stories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("could not delete story: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound{ID: id}
	}

	_, err = s.db.ExecContext(ctx, `DELETE FROM turns WHERE story_id = ?`, id)
	return err
}

// Close closes the store and releases resources.
func (s *Store) Close() error {
	return s.db.Close()
}
