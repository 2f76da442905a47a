package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/nsresolve/internal/config"
	"github.com/zjrosen/nsresolve/internal/presentation"
)

var (
	scopeFormat       string
	scopeRoots        []string
	scopeNoBuiltin    bool
	scopeResourcePath string
)

var scopeCmd = &cobra.Command{
	Use:   "scope",
	Short: "Manage named search scopes",
	Long: `Named scopes select their own roots, resource path and built-in handlers.
Settings a scope leaves unset are inherited from the top level of the config.`,
}

var scopeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured scopes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, err := presentation.ParseFormat(scopeFormat)
		if err != nil {
			return err
		}

		names := cfg.ScopeNames()
		dtos := make([]presentation.ScopeDTO, 0, len(names))
		for _, name := range names {
			sc, err := cfg.Scope(name)
			if err != nil {
				return err
			}
			dtos = append(dtos, presentation.ScopeDTO{
				Name:         sc.Name,
				ResourcePath: sc.ResourcePath,
				Builtin:      sc.IncludesBuiltin(),
				Roots:        sc.Roots,
			})
		}
		return presentation.NewFormatterWithFormat(cmd.OutOrStdout(), format).FormatScopes(dtos)
	},
}

var scopeAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Add a named scope to the config file",
	Long: `Add a named scope to the config file.

Examples:
  nsresolve scope add plugins --root 'plugins/*' --no-builtin
  nsresolve scope add legacy --root vendor/legacy --resource-path META-INF/legacy.handlers`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc := config.ScopeConfig{
			Name:         args[0],
			Roots:        scopeRoots,
			ResourcePath: scopeResourcePath,
		}
		if cmd.Flags().Changed("no-builtin") {
			builtin := !scopeNoBuiltin
			sc.Builtin = &builtin
		}

		path := configFilePath()
		if err := config.AddScope(path, sc, cfg.Scopes); err != nil {
			return err
		}
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "Added scope %q to %s\n", sc.Name, path)
		return err
	},
}

var scopeRemoveCmd = &cobra.Command{
	Use:     "remove NAME",
	Aliases: []string{"rm"},
	Short:   "Remove a named scope from the config file",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configFilePath()
		if err := config.RemoveScope(path, args[0], cfg.Scopes); err != nil {
			return err
		}
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "Removed scope %q from %s\n", args[0], path)
		return err
	},
}

func init() {
	scopeListCmd.Flags().StringVarP(&scopeFormat, "format", "f", "table", "output format: json, yaml or table")

	scopeAddCmd.Flags().StringArrayVarP(&scopeRoots, "root", "r", nil, "directory root or glob pattern (repeatable, searched in order)")
	scopeAddCmd.Flags().BoolVar(&scopeNoBuiltin, "no-builtin", false, "do not search the built-in handlers")
	scopeAddCmd.Flags().StringVar(&scopeResourcePath, "resource-path", "", "mapping resource path inside each root")

	scopeCmd.AddCommand(scopeListCmd, scopeAddCmd, scopeRemoveCmd)
	rootCmd.AddCommand(scopeCmd)
}
