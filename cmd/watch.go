package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zjrosen/nsresolve/internal/config"
	"github.com/zjrosen/nsresolve/internal/log"
	"github.com/zjrosen/nsresolve/internal/namespace"
	"github.com/zjrosen/nsresolve/internal/presentation"
	"github.com/zjrosen/nsresolve/internal/scopes"
	"github.com/zjrosen/nsresolve/internal/watcher"
)

var watchScopeName string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch mapping resources and print changes",
	Long: `Watch the mapping resources of a scope's directory roots. On every change a
new resolver is built and the difference between its mappings and the
previous ones is printed. Built-in handlers are not watched.

Resolvers never reload their mappings; watch always starts from a fresh one.

Example:
  nsresolve watch --scope plugins`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		sc, err := cfg.Scope(watchScopeName)
		if err != nil {
			return err
		}

		in, err := startInstruments(false)
		if err != nil {
			return err
		}
		defer in.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return watchScope(ctx, cmd.OutOrStdout(), sc, cfg.Watch.Debounce, in.options()...)
	},
}

func init() {
	watchCmd.Flags().StringVarP(&watchScopeName, "scope", "s", "", "scope to watch (default: the top-level settings)")
	rootCmd.AddCommand(watchCmd)
}

// watchScope prints a diff of the mappings of sc every time a mapping
// resource in one of its directory roots changes, until ctx is done.
func watchScope(ctx context.Context, out io.Writer, sc config.ScopeConfig, debounce time.Duration, opts ...namespace.Option) error {
	dirs, err := dirRoots(sc)
	if err != nil {
		return err
	}
	if len(dirs) == 0 {
		return errors.New("scope " + sc.Name + " has no directory roots to watch")
	}

	w, onChange, err := startWatcher(sc, dirs, debounce)
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	current, err := snapshot(ctx, sc, opts)
	if err != nil {
		_, _ = fmt.Fprintf(out, "Initial load failed: %v\n", err)
	}
	_, _ = fmt.Fprintf(out, "Watching %d roots of scope %s (%d mappings)\n", len(dirs), sc.Name, len(current))

	f := presentation.NewFormatter(out)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-onChange:
			next, err := snapshot(ctx, sc, opts)
			stamp := time.Now().Format(time.TimeOnly)
			if err != nil {
				log.ErrorErr(log.CatWatcher, "Reload failed", err, "scope", sc.Name)
				_, _ = fmt.Fprintf(out, "%s load failed: %v\n", stamp, err)
				continue
			}
			_, _ = fmt.Fprintf(out, "%s mappings changed\n", stamp)
			if err := f.FormatDiff(presentation.DiffMappings(current, next)); err != nil {
				return err
			}
			current = next
		}
	}
}

// snapshot builds a new resolver for sc and returns its mappings.
func snapshot(ctx context.Context, sc config.ScopeConfig, opts []namespace.Option) ([]namespace.Mapping, error) {
	res, err := scopes.Build(sc, opts...)
	if err != nil {
		return nil, err
	}
	return res.Mappings(ctx)
}

// dirRoots expands the root patterns of sc into directories.
func dirRoots(sc config.ScopeConfig) ([]string, error) {
	roots, err := namespace.GlobRoots(sc.Roots...)
	if err != nil {
		return nil, err
	}
	dirs := make([]string, 0, len(roots))
	for _, r := range roots {
		dirs = append(dirs, r.Name)
	}
	return dirs, nil
}

func startWatcher(sc config.ScopeConfig, dirs []string, debounce time.Duration) (*watcher.Watcher, <-chan struct{}, error) {
	w, err := watcher.New(watcher.Config{Roots: dirs, ResourcePath: sc.ResourcePath, DebounceDur: debounce})
	if err != nil {
		return nil, nil, err
	}
	onChange, err := w.Start()
	if err != nil {
		_ = w.Stop()
		return nil, nil, err
	}
	return w, onChange, nil
}
