package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	handler "workspace-client/api"
	"workspace-client/pkg/database"
)

func newDevGatewayCmd(get func() *app) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "dev-gateway",
		Short: "Serve a local gateway implementing every endpoint the client uses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			if port == "" {
				port = a.cfg.Port
			}

			db := database.NewDatabase(database.DatabaseConfig{PostgresDSN: a.cfg.PostgresDSN, Debug: a.cfg.Debug}, a.log)
			defer db.Close()

			srv := &http.Server{
				Addr:              ":" + port,
				Handler:           handler.NewRouter(a.cfg, db, a.log),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				a.log.Infow("dev gateway listening", "addr", srv.Addr, "api", "http://localhost:"+port+"/api")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			a.log.Infow("shutting down dev gateway")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (default $PORT)")
	return cmd
}
