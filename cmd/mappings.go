package cmd

import (
	"github.com/spf13/cobra"

	"github.com/zjrosen/nsresolve/internal/presentation"
)

var (
	mappingsScope  string
	mappingsFormat string
)

var mappingsCmd = &cobra.Command{
	Use:   "mappings",
	Short: "List the namespace mappings of a scope",
	Long: `Load the mapping resources of a scope and list every declared namespace
with the handler type it maps to.

Resources are merged in root order, so a namespace declared in several roots
maps to the type of the last one.

Examples:
  nsresolve mappings
  nsresolve mappings --scope plugins --format yaml
  nsresolve mappings -f json | jq '.[].key'`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, err := presentation.ParseFormat(mappingsFormat)
		if err != nil {
			return err
		}

		in, err := startInstruments(false)
		if err != nil {
			return err
		}
		defer in.Close()

		res, err := in.pool().Get(cmd.Context(), mappingsScope)
		if err != nil {
			return err
		}
		mappings, err := res.Mappings(cmd.Context())
		if err != nil {
			return err
		}

		return presentation.NewFormatterWithFormat(cmd.OutOrStdout(), format).FormatMappings(mappings)
	},
}

func init() {
	mappingsCmd.Flags().StringVarP(&mappingsScope, "scope", "s", "", "scope to load (default: the top-level settings)")
	mappingsCmd.Flags().StringVarP(&mappingsFormat, "format", "f", "table", "output format: json, yaml or table")
	rootCmd.AddCommand(mappingsCmd)
}
