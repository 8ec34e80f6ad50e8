package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskmaster/taskboard/internal/infrastructure/server"
)

// NewServeCommand creates the serve command
func NewServeCommand(app *App) *cobra.Command {
	var port int
	var adminPassword string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run an in-memory task board API for local use and testing",
		Long:  "Start a stub of the task board API backed by memory. Data is lost on exit. The admin account from seed.admin_username is created at start when a password is configured.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.cfg
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("admin-password") {
				cfg.Seed.AdminPassword = adminPassword
			}
			if err := cfg.ValidateServer(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, err := server.New(ctx, cfg, app.logger)
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start(cfg.Server.Addr())
			}()
			app.logger.Infow("Task board API listening", "address", cfg.Server.Addr(), "environment", cfg.App.Environment)
			app.renderer.Message("Task board API listening on %s (Ctrl+C to stop).", cfg.Server.Addr())

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides server.port)")
	cmd.Flags().StringVar(&adminPassword, "admin-password", "", "password for the seeded admin account")
	return cmd
}
