package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/aretw0/scorebridge/internal/cli"
	"github.com/aretw0/scorebridge/internal/presentation/tui"
	httpAdapter "github.com/aretw0/scorebridge/pkg/adapters/http"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long:  `Starts the playground API over HTTP, with server-sent session updates and Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		cfg := app.Config
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		opts := []httpAdapter.Option{
			httpAdapter.WithLogger(app.Logger),
			httpAdapter.WithCORSOrigins(cfg.Server.CORSOrigins...),
		}
		if cfg.Server.Metrics {
			opts = append(opts, httpAdapter.WithMetrics(app.Registry))
		}
		handler := httpAdapter.NewServer(app.Playground, opts...)
		defer handler.Close()

		srv := &http.Server{
			Addr:    cfg.Server.Addr,
			Handler: handler,
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		if term.IsTerminal(int(os.Stderr.Fd())) {
			tui.PrintBanner(os.Stderr)
		}

		if warm, _ := cmd.Flags().GetBool("init"); warm {
			go func() {
				if err := app.Playground.Initialize(ctx); err != nil {
					app.Logger.Error("runtime warm-up failed", "err", err)
				}
			}()
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			app.Logger.Info("HTTP server listening", "addr", srv.Addr, "worker", cfg.Bridge.Worker, "storage", cfg.Storage.Backend)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)
		case <-ctx.Done():
			app.Logger.Info("shutting down", "signal", ctx.Signal())

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				app.Logger.Warn("graceful shutdown did not complete", "timeout", cfg.Server.ShutdownTimeout, "err", err)
				return srv.Close()
			}
			app.Logger.Info("HTTP server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
	serveCmd.Flags().Bool("init", false, "Provision the runtime at startup instead of on the first evaluation")
}
