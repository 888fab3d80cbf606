package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/harun/yatra/pkg/trip"
)

// SQLiteStore persists trips in a local SQLite database, one row per
// trip id with the trip serialized as a JSON document. Unknown fields
// in a stored document are ignored on read, so newer records stay
// readable by older code.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS trips (
	id         TEXT PRIMARY KEY,
	document   TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`

// NewSQLiteStore opens (creating if needed) the trip database at path
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, ".yatra", "trips.db")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open trip database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize trip schema: %w", err)
	}

	log.Info().Str("path", path).Msg("Trip store opened")

	return &SQLiteStore{db: db, path: path}, nil
}

// Put writes the full trip record, replacing any previous one
func (s *SQLiteStore) Put(ctx context.Context, t *trip.Trip) error {
	document, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal trip: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO trips (id, document, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`,
		t.ID, string(document), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to write trip %s: %w", t.ID, err)
	}

	log.Debug().Str("trip_id", t.ID).Str("status", string(t.Status)).Msg("Trip persisted")

	return nil
}

// Get loads the trip for the given id or returns ErrNotFound
func (s *SQLiteStore) Get(ctx context.Context, id string) (*trip.Trip, error) {
	var document string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM trips WHERE id = ?`, id).Scan(&document)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read trip %s: %w", id, err)
	}

	var t trip.Trip
	if err := json.Unmarshal([]byte(document), &t); err != nil {
		return nil, fmt.Errorf("failed to parse trip %s: %w", id, err)
	}

	return &t, nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
