// Package notes persists free-form per-todo notes locally. Notes never
// travel to the remote service.
package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Store keeps notes in a local SQLite database keyed by todo id.
type Store struct {
	db *sqlx.DB
}

// Open opens (or creates) the notes database at dbPath, enables WAL mode,
// and runs any pending schema migrations.
func Open(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening notes db: %w", err)
	}

	// WAL keeps reads cheap while the saver writes in the background.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *Store) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// Note returns the note for the given todo, or "" when none is stored.
func (s *Store) Note(ctx context.Context, todoID int) (string, error) {
	var content string
	err := s.db.GetContext(ctx, &content,
		"SELECT content FROM notes WHERE todo_id = ?", todoID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading note for todo %d: %w", todoID, err)
	}
	return content, nil
}

// SetNote stores (or replaces) the note for the given todo.
func (s *Store) SetNote(ctx context.Context, todoID int, content string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notes (todo_id, content, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(todo_id) DO UPDATE SET
			content = excluded.content,
			updated_at = excluded.updated_at`,
		todoID, content, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("storing note for todo %d: %w", todoID, err)
	}
	return nil
}

// DeleteNote removes the note for the given todo. Deleting an absent note
// is a no-op.
func (s *Store) DeleteNote(ctx context.Context, todoID int) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM notes WHERE todo_id = ?", todoID)
	if err != nil {
		return fmt.Errorf("deleting note for todo %d: %w", todoID, err)
	}
	return nil
}
