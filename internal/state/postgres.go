package state

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/tap-inventio/internal/db"
)

// PostgresStore keeps state in the tap_state table and records sync runs.
type PostgresStore struct {
	db      *db.DB
	stateID string
}

// OpenPostgres connects and makes sure the tables exist.
func OpenPostgres(ctx context.Context, databaseURL, stateID string) (*PostgresStore, error) {
	database, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.EnsureSchema(ctx); err != nil {
		database.Close()
		return nil, err
	}
	return &PostgresStore{db: database, stateID: stateID}, nil
}

// Load returns the stored state or an empty one.
func (p *PostgresStore) Load(ctx context.Context) (*State, error) {
	row, err := p.db.GetState(ctx, p.stateID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return New(), nil
	}
	return Parse(row.State)
}

// Save upserts the state row.
func (p *PostgresStore) Save(ctx context.Context, s *State) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	return p.db.PutState(ctx, p.stateID, data)
}

// StartRun records the beginning of a sync.
func (p *PostgresStore) StartRun(ctx context.Context, runID uuid.UUID) error {
	return p.db.CreateRun(ctx, runID, p.stateID)
}

// FinishRun records the outcome of a sync.
func (p *PostgresStore) FinishRun(ctx context.Context, runID uuid.UUID, status string, records int) error {
	return p.db.CompleteRun(ctx, runID, status, records)
}

// Close releases the pool.
func (p *PostgresStore) Close() error {
	p.db.Close()
	return nil
}
