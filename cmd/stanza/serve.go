package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/stanza/internal/cli"
	httpAdapter "github.com/aretw0/stanza/pkg/adapters/http"
	"github.com/aretw0/stanza/pkg/observability"
	"github.com/aretw0/stanza/pkg/ports"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serves route listing, keyword matching, script runs, stored results,
outcome events and Prometheus metrics over HTTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetString("port")

		metrics := observability.NewMetrics()
		streams := httpAdapter.NewStreamManager()
		eng, _, logger, err := setup(cmd, cli.EngineOptions{
			Metrics:   metrics,
			Reporters: []ports.Reporter{streams},
		})
		if err != nil {
			return err
		}
		defer eng.Close()

		handler := httpAdapter.NewHandler(eng.Registry(), eng.Dispatcher(),
			httpAdapter.WithStore(eng.Store()),
			httpAdapter.WithRunner(eng.Engine),
			httpAdapter.WithStreams(streams),
			httpAdapter.WithMetrics(metrics.Handler()),
			httpAdapter.WithLogger(logger),
		)

		srv := &http.Server{
			Addr:              ":" + port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("Starting Stanza Server", "addr", srv.Addr, "routes", len(eng.Registry().Routes()))
			fmt.Fprintf(cmd.ErrOrStderr(), "Starting Stanza Server on %s\n", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("Start shutdown", "signal", sig.String())

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("Graceful shutdown did not complete", "timeout", 5*time.Second, "err", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "Stanza Server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
}
