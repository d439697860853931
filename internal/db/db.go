// Package db provides PostgreSQL access for persisting tap state and sync runs.
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS tap_state (
	state_id   TEXT PRIMARY KEY,
	state      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS tap_runs (
	id           UUID PRIMARY KEY,
	state_id     TEXT NOT NULL,
	status       TEXT NOT NULL,
	records      INTEGER NOT NULL DEFAULT 0,
	started_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	completed_at TIMESTAMPTZ
);`

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// EnsureSchema creates the tap tables if they do not exist
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create tap tables: %w", err)
	}
	return nil
}

// GetState returns the stored state row, or nil when there is none
func (db *DB) GetState(ctx context.Context, stateID string) (*StateRow, error) {
	var row StateRow
	err := db.pool.QueryRow(ctx,
		`SELECT state_id, state, updated_at FROM tap_state WHERE state_id = $1`,
		stateID,
	).Scan(&row.StateID, &row.State, &row.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get state %s: %w", stateID, err)
	}
	return &row, nil
}

// PutState inserts or replaces the state document
func (db *DB) PutState(ctx context.Context, stateID string, state []byte) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO tap_state (state_id, state, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (state_id) DO UPDATE SET state = $2, updated_at = NOW()`,
		stateID, state,
	)
	if err != nil {
		return fmt.Errorf("failed to save state %s: %w", stateID, err)
	}
	return nil
}

// CreateRun records the start of a sync run
func (db *DB) CreateRun(ctx context.Context, runID uuid.UUID, stateID string) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO tap_runs (id, state_id, status) VALUES ($1, $2, $3)`,
		runID, stateID, RunStatusRunning,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// CompleteRun marks a sync run as finished
func (db *DB) CompleteRun(ctx context.Context, runID uuid.UUID, status string, records int) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE tap_runs SET status = $1, records = $2, completed_at = NOW() WHERE id = $3`,
		status, records, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// GetRun retrieves a sync run by ID
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	var run Run
	err := db.pool.QueryRow(ctx,
		`SELECT id, state_id, status, records, started_at, completed_at FROM tap_runs WHERE id = $1`,
		runID,
	).Scan(&run.ID, &run.StateID, &run.Status, &run.Records, &run.StartedAt, &run.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}
