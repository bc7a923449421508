package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/khanhnv2901/seca-pqc/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scanner as a REST, SSE and WebSocket service",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		addr, _ := cmd.Flags().GetString("addr")
		authToken, _ := cmd.Flags().GetString("auth-token")
		telemetryLimit, _ := cmd.Flags().GetInt("telemetry-limit")
		shutdownTimeout, _ := cmd.Flags().GetDuration("shutdown-timeout")
		corsOrigins, _ := cmd.Flags().GetStringSlice("cors-origins")
		rateLimit, _ := cmd.Flags().GetInt("rate-limit")
		rateBurst, _ := cmd.Flags().GetInt("rate-burst")

		logger, err := zap.NewProduction()
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		defer func() {
			if err := logger.Sync(); err != nil {
				fmt.Fprintf(os.Stderr, "failed to sync logger: %v\n", err)
			}
		}()
		appCtx.Logger = logger.Sugar()

		ctx := commandContext(cmd)

		store, err := openStore(ctx, appCtx)
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
		}
		registry, release, err := openRegistry(ctx, appCtx)
		if err != nil {
			return err
		}
		defer release()

		jobManager := api.NewJobManager()
		server := api.NewServer(api.Config{
			Scanner:        newOrchestrator(appCtx, store, registry),
			Store:          store,
			Telemetry:      newTelemetryLog(appCtx.ResultsDir),
			Jobs:           jobManager,
			AuthToken:      authToken,
			TelemetryLimit: telemetryLimit,
			Logger:         logger,
			CORSOrigins:    corsOrigins,
			RateLimit:      rateLimit,
			RateBurst:      rateBurst,
		})

		// Scans may run for tens of minutes, so no WriteTimeout is set.
		httpServer := &http.Server{
			Addr:              addr,
			Handler:           server,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			IdleTimeout:       120 * time.Second,
		}

		serverErrors := make(chan error, 1)

		go func() {
			fmt.Printf("%s API server listening on %s (store: %s, cancel: %s)\n",
				colorInfo("→"), addr, appCtx.Config.Store.Driver, appCtx.Config.Cancel.Backend)
			fmt.Printf("%s Press Ctrl+C to gracefully shutdown\n", colorInfo("→"))
			serverErrors <- httpServer.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
		case sig := <-shutdown:
			fmt.Printf("\n%s Received signal %v, initiating graceful shutdown...\n", colorInfo("→"), sig)

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := httpServer.Shutdown(ctx); err != nil {
				if closeErr := httpServer.Close(); closeErr != nil {
					return fmt.Errorf("failed to gracefully shutdown server: %w (close error: %v)", err, closeErr)
				}
				return fmt.Errorf("failed to gracefully shutdown server: %w", err)
			}

			fmt.Printf("%s Server shutdown complete\n", colorInfo("✓"))
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Address for the API server")
	serveCmd.Flags().String("auth-token", "", "Optional shared secret for API requests")
	serveCmd.Flags().Int("telemetry-limit", 10, "Default telemetry entries to return")
	serveCmd.Flags().Duration("shutdown-timeout", 30*time.Second, "Graceful shutdown timeout")
	serveCmd.Flags().StringSlice("cors-origins", []string{}, "Allowed CORS origins (empty = allow all)")
	serveCmd.Flags().Int("rate-limit", 10, "Rate limit per IP (requests/second, 0 = disabled)")
	serveCmd.Flags().Int("rate-burst", 20, "Rate limit burst size")
	addScanFlags(serveCmd.Flags())
	addStoreFlags(serveCmd.Flags())
	addCancelFlags(serveCmd.Flags())
}
