package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vrs/time-wizard/api"
	"github.com/vrs/time-wizard/config"
)

const shutdownTimeout = 30 * time.Second

// newServeCmd runs the HTTP API.
//
// STARTUP SEQUENCE:
//  1. Load config, open SQLite (migrations run on open)
//  2. Build services and the API handler
//  3. Start the on-call sync scheduler when a schedule URL is set
//  4. Serve until SIGINT/SIGTERM, then drain for up to 30s
func newServeCmd(flags *globalFlags) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags, func(c *config.Config) {
				if port > 0 {
					c.Port = port
				}
			})
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "HTTP port (overrides config)")
	return cmd
}

func serve(ctx context.Context, a *app) error {
	handler := api.NewHandler(a.timesheet, a.oncall, a.syncer, a.loc, a.log)
	router := api.NewRouter(handler, api.RouterOptions{AllowedOrigins: a.cfg.CORSOrigins})

	if a.syncer != nil {
		scheduler, err := api.NewScheduleSyncScheduler(a.syncer, a.cfg.OnCall.SyncCron, a.cfg.OnCall.SyncTimeout, a.log)
		if err != nil {
			return err
		}
		scheduler.Start()
		defer scheduler.Stop()
	} else {
		a.log.Info("no on-call schedule URL configured, background sync disabled")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.WithField("addr", server.Addr).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	a.log.Info("server stopped")
	return nil
}
