package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/jonathan/tap-inventio/internal/config"
	"github.com/jonathan/tap-inventio/internal/logging"
	"github.com/jonathan/tap-inventio/internal/observability"
	"github.com/jonathan/tap-inventio/internal/singer"
	"github.com/jonathan/tap-inventio/internal/state"
	"github.com/jonathan/tap-inventio/internal/tap"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configs   []string
	statePath string
	catalog   string
	discover  bool
	about     bool
	format    string
	logLevel  string
	logFormat string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "tap-inventio",
		Short: "Singer tap for the Inventio API",
		Long: "tap-inventio extracts Inventio endpoints for every configured company and writes " +
			"Singer SCHEMA, RECORD and STATE messages to stdout. Logs go to stderr.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRoot(cmd, opts)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringArrayVar(&opts.configs, "config", nil, "Config file (JSON or YAML); repeatable, or ENV to read TAP_INVENTIO_* variables")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flags.StringVar(&opts.logFormat, "log-format", "text", "Log format: text or json")

	cmd.Flags().StringVar(&opts.statePath, "state", "", "Singer state file to resume from")
	cmd.Flags().StringVar(&opts.catalog, "catalog", "", "Catalog file selecting the streams to sync")
	cmd.Flags().BoolVar(&opts.discover, "discover", false, "Print the catalog and exit")
	cmd.Flags().BoolVar(&opts.about, "about", false, "Print tap information and exit")
	cmd.Flags().StringVar(&opts.format, "format", "json", "Output format for --about: json or markdown")
	cmd.MarkFlagsMutuallyExclusive("discover", "about")

	cmd.AddCommand(newGetCmd(opts))
	cmd.AddCommand(newInferSchemaCmd(opts))
	cmd.AddCommand(newValidateConfigCmd(opts))

	return cmd
}

func runRoot(cmd *cobra.Command, opts *rootOptions) error {
	if opts.about {
		return printAbout(cmd.OutOrStdout(), opts.format)
	}

	logger, err := opts.newLogger(cmd)
	if err != nil {
		return err
	}

	cfg, err := opts.loadConfig(logger)
	if err != nil {
		return err
	}

	out := singer.NewWriter(cmd.OutOrStdout())

	if opts.discover {
		tp, err := tap.New(tap.Options{Config: cfg, Writer: out, Logger: logger})
		if err != nil {
			return err
		}
		catalog, err := tp.Discover()
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), catalog, true)
	}

	return runSync(cmd, opts, cfg, out, logger)
}

func runSync(cmd *cobra.Command, opts *rootOptions, cfg *config.Config, out *singer.Writer, logger *slog.Logger) error {
	ctx := cmd.Context()

	store, err := state.Open(ctx, state.StoreConfig{
		Backend:     cfg.StateBackend,
		Path:        cfg.StatePath,
		DatabaseURL: cfg.DatabaseURL,
		StateID:     cfg.StateID,
	})
	if err != nil {
		return fmt.Errorf("failed to open state store: %w", err)
	}
	if store != nil {
		defer func() { _ = store.Close() }()
	}

	var initial *state.State
	switch {
	case opts.statePath != "":
		if initial, err = state.LoadFile(opts.statePath); err != nil {
			return err
		}
	case store != nil:
		if initial, err = store.Load(ctx); err != nil {
			return fmt.Errorf("failed to load state: %w", err)
		}
	}

	var catalog *singer.Catalog
	if opts.catalog != "" {
		if catalog, err = singer.LoadCatalog(opts.catalog); err != nil {
			return err
		}
	}

	tp, err := tap.New(tap.Options{
		Config:       cfg,
		Writer:       out,
		Store:        store,
		InitialState: initial,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	summary, err := tp.Sync(ctx, catalog)
	observability.NewPrinter(cmd.ErrOrStderr()).PrintSummary(summary)
	return err
}

func (o *rootOptions) newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	return logging.New(logging.Options{
		Level:  o.logLevel,
		Format: o.logFormat,
		Writer: cmd.ErrOrStderr(),
	})
}

// loadConfig loads, validates and logs warnings of the --config files.
func (o *rootOptions) loadConfig(logger *slog.Logger) (*config.Config, error) {
	if len(o.configs) == 0 {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.LoadConfig(o.configs...)
	if err != nil {
		return nil, err
	}
	warnings, err := cfg.Validate()
	for _, w := range warnings {
		logger.Warn(w)
	}
	if err != nil {
		return nil, err
	}
	logger.Debug("config loaded", "endpoints", cfg.EndpointNames(), "state_backend", cfg.StateBackend)
	return cfg, nil
}

func printAbout(w io.Writer, format string) error {
	about, err := tap.AboutInfo()
	if err != nil {
		return err
	}
	switch format {
	case "", "json":
		return writeJSON(w, about, true)
	case "markdown":
		observability.NewPrinter(w).PrintAbout(about)
		return nil
	default:
		return fmt.Errorf("unknown --format %q (expected json or markdown)", format)
	}
}

func writeJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}
