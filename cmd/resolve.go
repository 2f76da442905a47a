package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/nsresolve/internal/presentation"
)

var (
	resolveScope  string
	resolveFormat string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve NAMESPACE...",
	Short: "Resolve namespaces to their handlers",
	Long: `Resolve each namespace URI to its handler and print the handler type and
the elements it parses.

A failure to resolve one namespace does not affect the others. The command
exits non-zero when any namespace is unknown or fails to resolve.

Examples:
  nsresolve resolve https://nsresolve.dev/schema/util
  nsresolve resolve --scope plugins urn:a urn:b -f json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := presentation.ParseFormat(resolveFormat)
		if err != nil {
			return err
		}

		in, err := startInstruments(false)
		if err != nil {
			return err
		}
		defer in.Close()

		res, err := in.pool().Get(cmd.Context(), resolveScope)
		if err != nil {
			return err
		}

		results := make([]presentation.ResolutionDTO, 0, len(args))
		failed := 0
		for _, key := range args {
			h, ok, err := res.Resolve(cmd.Context(), key)
			r := presentation.FromResolve(key, h, ok, err)
			if r.Error != "" || !r.Found {
				failed++
			}
			results = append(results, r)
		}

		if err := presentation.NewFormatterWithFormat(cmd.OutOrStdout(), format).FormatResolutions(results); err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d namespaces could not be resolved", failed, len(args))
		}
		return nil
	},
}

func init() {
	resolveCmd.Flags().StringVarP(&resolveScope, "scope", "s", "", "scope to resolve in (default: the top-level settings)")
	resolveCmd.Flags().StringVarP(&resolveFormat, "format", "f", "table", "output format: json, yaml or table")
	rootCmd.AddCommand(resolveCmd)
}
