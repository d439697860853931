package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS tap_state (
	state_id   TEXT PRIMARY KEY,
	state      TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// SQLiteStore keeps state in a local SQLite database file.
type SQLiteStore struct {
	db      *sql.DB
	stateID string
}

// OpenSQLite opens (creating if needed) the database at dsn.
func OpenSQLite(ctx context.Context, dsn, stateID string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if _, err := conn.ExecContext(ctx, sqliteSchema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create tap_state table: %w", err)
	}
	return &SQLiteStore{db: conn, stateID: stateID}, nil
}

// Load returns the stored state or an empty one.
func (s *SQLiteStore) Load(ctx context.Context) (*State, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM tap_state WHERE state_id = ?`, s.stateID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load state %s: %w", s.stateID, err)
	}
	return Parse([]byte(data))
}

// Save upserts the state row.
func (s *SQLiteStore) Save(ctx context.Context, st *State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tap_state (state_id, state, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(state_id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		s.stateID, string(data), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save state %s: %w", s.stateID, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
