package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonathan/tap-inventio/internal/schemas"
	schemafiles "github.com/jonathan/tap-inventio/schemas"
)

// Store persists state between runs.
type Store interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, s *State) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendNone     = "none"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// DefaultStateID keys the state row in database backends.
const DefaultStateID = "tap-inventio"

// StoreConfig selects and configures a backend.
type StoreConfig struct {
	Backend     string
	Path        string
	DatabaseURL string
	StateID     string
}

// Open creates the configured store. The "none" backend (or "") returns a nil
// Store: state is then only emitted on stdout.
func Open(ctx context.Context, cfg StoreConfig) (Store, error) {
	stateID := cfg.StateID
	if stateID == "" {
		stateID = DefaultStateID
	}

	switch cfg.Backend {
	case "", BackendNone:
		return nil, nil
	case BackendFile:
		if cfg.Path == "" {
			return nil, errors.New("state backend \"file\" requires state_path")
		}
		return NewFileStore(cfg.Path), nil
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("state backend \"postgres\" requires database_url")
		}
		store, err := OpenPostgres(ctx, cfg.DatabaseURL, stateID)
		if err != nil {
			return nil, err
		}
		return store, nil
	case BackendSQLite:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("state backend \"sqlite\" requires database_url")
		}
		store, err := OpenSQLite(ctx, cfg.DatabaseURL, stateID)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.Backend)
	}
}

// LoadFile reads a state JSON file such as the one passed with --state.
func LoadFile(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read state file %s: %w", path, err)
	}
	if err := ValidateDocument(data); err != nil {
		return nil, fmt.Errorf("invalid state file %s: %w", path, err)
	}
	return Parse(data)
}

// ValidateDocument checks a state document against the state JSON schema.
// Empty input is an empty state and passes.
func ValidateDocument(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	schema, err := schemafiles.Read("state.schema.json")
	if err != nil {
		return err
	}
	return schemas.ValidateJSONString(string(schema), string(data))
}

// FileStore keeps state in a JSON file.
type FileStore struct {
	path string
}

// NewFileStore creates a store on path. The file need not exist yet.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load returns the stored state; a missing file is an empty state.
func (f *FileStore) Load(_ context.Context) (*State, error) {
	s, err := LoadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return New(), nil
	}
	return s, err
}

// Save replaces the file atomically.
func (f *FileStore) Save(_ context.Context, s *State) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("failed to replace state file %s: %w", f.path, err)
	}
	return nil
}

// Close is a no-op.
func (f *FileStore) Close() error {
	return nil
}
