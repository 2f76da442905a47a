package cmd

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/zjrosen/nsresolve/internal/config"
	"github.com/zjrosen/nsresolve/internal/journal"
	"github.com/zjrosen/nsresolve/internal/presentation"
)

var (
	historyLimit   int
	historyKey     string
	historyFormat  string
	historySummary bool
)

var errJournalDisabled = errors.New("journal is disabled; set journal.enabled: true in the config to record history")

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the resolution journal",
	Long: `Show journaled mapping loads and handler resolutions, newest first.

Events are journaled by every command while journal.enabled is set.

Examples:
  nsresolve history
  nsresolve history --limit 100
  nsresolve history --summary
  nsresolve history --key https://nsresolve.dev/schema/util -f json`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, err := presentation.ParseFormat(historyFormat)
		if err != nil {
			return err
		}
		if historyLimit <= 0 {
			return fmt.Errorf("--limit must be positive, got %d", historyLimit)
		}

		if !cfg.Journal.Enabled {
			return errJournalDisabled
		}
		path := cfg.Journal.Path
		if path == "" {
			path = config.DefaultJournalPath()
		}
		store, err := journal.Open(path)
		if err != nil {
			return fmt.Errorf("opening journal: %w", err)
		}
		defer func() { _ = store.Close() }()

		f := presentation.NewFormatterWithFormat(cmd.OutOrStdout(), format)
		if historySummary {
			counts, err := store.CountByKind(cmd.Context())
			if err != nil {
				return fmt.Errorf("reading journal: %w", err)
			}
			return f.FormatCounts(counts)
		}

		var entries []journal.Entry
		if historyKey != "" {
			entries, err = store.ForKey(cmd.Context(), historyKey)
			slices.Reverse(entries)
			if len(entries) > historyLimit {
				entries = entries[:historyLimit]
			}
		} else {
			entries, err = store.Recent(cmd.Context(), historyLimit)
		}
		if err != nil {
			return fmt.Errorf("reading journal: %w", err)
		}

		return f.FormatHistory(entries)
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of entries")
	historyCmd.Flags().StringVarP(&historyKey, "key", "k", "", "only entries for this namespace")
	historyCmd.Flags().BoolVar(&historySummary, "summary", false, "print the number of entries per kind")
	historyCmd.Flags().StringVarP(&historyFormat, "format", "f", "table", "output format: json, yaml or table")
	rootCmd.AddCommand(historyCmd)
}
