package main

import (
	"fmt"

	"github.com/jonathan/tap-inventio/internal/config"
	"github.com/jonathan/tap-inventio/internal/observability"
	"github.com/spf13/cobra"
)

func newValidateConfigCmd(root *rootOptions) *cobra.Command {
	var showConfig bool

	c := &cobra.Command{
		Use:   "validate-config",
		Short: "Load and validate the config without contacting Inventio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(root.configs) == 0 {
				return fmt.Errorf("--config is required")
			}

			cfg, err := config.LoadConfig(root.configs...)
			if err != nil {
				return err
			}

			warnings, verr := cfg.Validate()
			observability.NewPrinter(cmd.ErrOrStderr()).PrintConfigCheck(warnings, verr)
			if verr != nil {
				return verr
			}

			if showConfig {
				return writeJSON(cmd.OutOrStdout(), cfg.Redacted(), true)
			}
			return nil
		},
	}

	c.Flags().BoolVar(&showConfig, "show", false, "Print the effective config with secrets masked")
	return c
}
