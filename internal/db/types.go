package db

import (
	"time"

	"github.com/google/uuid"
)

// Run represents a sync run record
type Run struct {
	ID          uuid.UUID  `json:"id"`
	StateID     string     `json:"state_id"`
	Status      string     `json:"status"`
	Records     int        `json:"records"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// StateRow is a persisted state document
type StateRow struct {
	StateID   string    `json:"state_id"`
	State     []byte    `json:"state"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Run status values
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)
