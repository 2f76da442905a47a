package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/nsresolve/internal/config"
	"github.com/zjrosen/nsresolve/internal/log"
	"github.com/zjrosen/nsresolve/internal/server"
)

var (
	serveVerbose bool
	serveWatch   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the resolution HTTP API",
	Long: `Serve an HTTP API over the configured scopes. Each scope's resolver is built
on first use and kept until it is evicted. With --watch, a scope's resolver is
evicted when a mapping resource in one of its directory roots changes. SIGHUP
evicts every resolver.

Endpoints:
  GET /scopes                          configured scopes
  GET /scopes/{scope}/mappings         mapping table of a scope
  GET /scopes/{scope}/resolve?key=URI  resolve a namespace
  GET /types                           registered handler types
  GET /history?limit=N                 journal entries (journal.enabled)
  GET /health                          health check
  GET /metrics                         Prometheus metrics

Examples:
  nsresolve serve --addr 127.0.0.1:9000
  nsresolve serve --watch -v`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "address to listen on (overrides server.addr)")
	serveCmd.Flags().BoolVarP(&serveVerbose, "verbose", "v", false, "log to stderr")
	serveCmd.Flags().BoolVarP(&serveWatch, "watch", "w", false, "evict a scope's resolver when its mapping resources change")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if serveVerbose && !debugFlag {
		log.InitWithWriter(os.Stderr)
		log.SetMinLevel(log.LevelInfo)
	}

	in, err := startInstruments(true)
	if err != nil {
		return err
	}
	defer in.Close()

	pool := in.pool()
	hc := server.HandlerConfig{
		Config:  cfg,
		Pool:    pool,
		Metrics: in.metrics.Handler(),
	}
	if in.store != nil {
		hc.History = in.store
	}
	if in.tracer.Enabled() {
		hc.Tracer = in.tracer.Tracer()
	}

	srv, err := server.NewServer(server.ServerConfig{HandlerConfig: hc, Addr: cfg.Server.Addr})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if serveWatch {
		stopWatching, err := evictOnChange(ctx, cfg, pool, cfg.Watch.Debounce)
		if err != nil {
			return fmt.Errorf("watching scopes: %w", err)
		}
		defer stopWatching()
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "nsresolve serving on http://%s\n", srv.Addr())
	_, _ = fmt.Fprintln(out, "Press Ctrl+C to stop")

	// Wait for shutdown signal or error
wait:
	for {
		select {
		case <-ctx.Done():
			_, _ = fmt.Fprintln(out, "\nShutting down...")
			break wait
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			break wait
		case <-hup:
			if err := pool.Reset(ctx); err != nil {
				log.ErrorErr(log.CatServer, "Failed to reset resolvers", err)
				continue
			}
			_, _ = fmt.Fprintln(out, "Resolvers reset")
		}
	}

	// Graceful shutdown
	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = config.Defaults().Server.ShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.ErrorErr(log.CatServer, "Error stopping API server", err)
	}

	_, _ = fmt.Fprintln(out, "Server stopped")
	return nil
}
