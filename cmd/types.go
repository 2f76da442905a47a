package cmd

import (
	"github.com/spf13/cobra"

	"github.com/zjrosen/nsresolve/internal/namespace"
	"github.com/zjrosen/nsresolve/internal/presentation"
)

var typesFormat string

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the registered handler types",
	Long: `List every handler type compiled into nsresolve. Mapping resources can only
name types from this list.

Examples:
  nsresolve types
  nsresolve types -f json`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, err := presentation.ParseFormat(typesFormat)
		if err != nil {
			return err
		}
		types := presentation.FromCatalog(namespace.DefaultCatalog)
		return presentation.NewFormatterWithFormat(cmd.OutOrStdout(), format).FormatTypes(types)
	},
}

func init() {
	typesCmd.Flags().StringVarP(&typesFormat, "format", "f", "table", "output format: json, yaml or table")
	rootCmd.AddCommand(typesCmd)
}
