package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jonathan/tap-inventio/internal/inventio"
	"github.com/spf13/cobra"
)

func newGetCmd(root *rootOptions) *cobra.Command {
	var (
		rawURL  string
		company string
		typ     string
		token   string
		limit   int
		pretty  bool
		baseURL string
	)

	c := &cobra.Command{
		Use:   "get",
		Short: "Fetch one Inventio endpoint and print it as JSON",
		Long: "Fetches an endpoint for one company, either from --url or from --company, --type and --token, " +
			"and prints the decoded document. Exits non-zero when Inventio answers with an error document.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			byParts := company != "" && typ != "" && token != ""
			if (rawURL != "") == byParts {
				return fmt.Errorf("supply only --url, or all of --company, --type, and --token")
			}

			logger, err := root.newLogger(cmd)
			if err != nil {
				return err
			}
			client := inventio.NewClient(inventio.Options{BaseURL: baseURL, Logger: logger})

			if rawURL == "" {
				rawURL, err = client.URL(inventio.Request{
					Stream:  trimGetSuffix(typ),
					Company: company,
					Token:   token,
					Limit:   limit,
				})
				if err != nil {
					return err
				}
			}
			logger.Info("getting", "url", inventio.RedactURL(rawURL))

			doc, err := client.GetURL(cmd.Context(), rawURL)
			var apiErr *inventio.APIError
			if err != nil && !errors.As(err, &apiErr) {
				return err
			}
			if werr := writeJSON(cmd.OutOrStdout(), doc, pretty); werr != nil {
				return werr
			}
			return err
		},
	}

	c.Flags().StringVar(&rawURL, "url", "", "Complete smartapi URL")
	c.Flags().StringVarP(&company, "company", "c", "", "Company name")
	c.Flags().StringVarP(&typ, "type", "t", "", "Endpoint type, e.g. GLEntry-GET")
	c.Flags().StringVarP(&token, "token", "k", "", "Endpoint token")
	c.Flags().IntVarP(&limit, "limit", "l", 0, "Limit the number of records")
	c.Flags().BoolVarP(&pretty, "pretty", "p", false, "Indent the JSON output")
	c.Flags().StringVar(&baseURL, "base-url", inventio.DefaultBaseURL, "Inventio host")
	return c
}

// trimGetSuffix accepts both "GLEntry" and "GLEntry-GET".
func trimGetSuffix(typ string) string {
	if strings.HasSuffix(strings.ToUpper(typ), "-GET") {
		return typ[:len(typ)-len("-GET")]
	}
	return typ
}
