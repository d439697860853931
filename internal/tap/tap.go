// Package tap ties the pieces together: it discovers the catalog and runs a
// sync that fetches every selected stream and writes Singer messages.
package tap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jonathan/tap-inventio/internal/config"
	"github.com/jonathan/tap-inventio/internal/inventio"
	"github.com/jonathan/tap-inventio/internal/logging"
	"github.com/jonathan/tap-inventio/internal/singer"
	"github.com/jonathan/tap-inventio/internal/state"
)

// Name is the tap name reported by --about.
const Name = "tap-inventio"

// RunRecorder is implemented by state stores that keep a history of runs.
type RunRecorder interface {
	StartRun(ctx context.Context, runID uuid.UUID) error
	FinishRun(ctx context.Context, runID uuid.UUID, status string, records int) error
}

// Options configures a Tap.
type Options struct {
	Config *config.Config
	Writer *singer.Writer

	// Client defaults to one built from Config.
	Client *inventio.Client
	// Store persists state after every batch; nil keeps state on stdout only.
	Store state.Store
	// InitialState is where the sync resumes from; nil starts fresh.
	InitialState *state.State
	Logger       *slog.Logger
}

// Tap extracts Inventio endpoints.
type Tap struct {
	cfg    *config.Config
	writer *singer.Writer
	client *inventio.Client
	store  state.Store
	init   *state.State
	logger *slog.Logger
}

// New checks the options and builds a Tap.
func New(opts Options) (*Tap, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("tap: config is required")
	}
	if opts.Writer == nil {
		return nil, fmt.Errorf("tap: writer is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	client := opts.Client
	if client == nil {
		client = NewClient(opts.Config, logger)
	}

	return &Tap{
		cfg:    opts.Config,
		writer: opts.Writer,
		client: client,
		store:  opts.Store,
		init:   opts.InitialState,
		logger: logger,
	}, nil
}

// NewClient builds the Inventio client described by the config.
func NewClient(cfg *config.Config, logger *slog.Logger) *inventio.Client {
	return inventio.NewClient(inventio.Options{
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.Timeout(),
		UserAgent:  cfg.UserAgent,
		MaxRetries: cfg.Retries(),
		Logger:     logger,

		RequestsPerSecond: cfg.RequestsPerSecond,
	})
}
