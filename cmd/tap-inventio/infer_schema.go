package main

import (
	"github.com/jonathan/tap-inventio/internal/schemainfer"
	"github.com/spf13/cobra"
)

func newInferSchemaCmd(root *rootOptions) *cobra.Command {
	var (
		pretty      bool
		required    []string
		singerStyle bool
	)

	c := &cobra.Command{
		Use:   "infer-schema",
		Short: "Infer the top-level schema of records read from stdin",
		Long: "Reads JSON lines from stdin and prints a flat JSON schema. Keys only ever seen as null " +
			"are typed as nullable strings. With --required, company_name is required as well.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := root.newLogger(cmd)
			if err != nil {
				return err
			}

			in := schemainfer.New()
			if err := in.ReadRecords(cmd.InOrStdin(), singerStyle, logger); err != nil {
				return err
			}
			logger.Debug("records read", "count", in.Count())

			schema, err := in.Schema(required)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), schema, pretty)
		},
	}

	c.Flags().BoolVarP(&pretty, "pretty", "p", false, "Pretty print schema")
	c.Flags().StringSliceVarP(&required, "required", "r", nil, "Required keys")
	c.Flags().BoolVarP(&singerStyle, "singer-style", "s", false, "Input is tap output; use only RECORD contents")
	return c
}
