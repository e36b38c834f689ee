package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	apphttp "futurebank/internal/http"
	"futurebank/internal/log"
)

func serveCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web dashboard",
		Long:  `Serve the household dashboard, the JSON API and the Prometheus metrics endpoint.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := openApp(cmd, log.ComponentApp)
			if err != nil {
				return err
			}
			defer app.Close()

			if port == "" {
				port = app.Config.Port
			}
			logger := app.Logger

			srv, err := apphttp.NewServer(":"+port, app.Service, apphttp.Options{
				Logger:    logger,
				RateLimit: app.Config.RateLimit,
				Location:  app.Location,
			})
			if err != nil {
				return err
			}

			srv.ReadTimeout = 10 * time.Second
			srv.WriteTimeout = 30 * time.Second
			srv.IdleTimeout = 60 * time.Second
			srv.MaxHeaderBytes = 1 << 16 // 64KB

			ctx := cmd.Context()
			errCh := make(chan error, 1)
			go func() {
				logger.Info("Starting futurebank server", "port", port, log.FieldBackend, app.Config.DataBackend)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					logger.Error("Server error", log.FieldError, err, "port", port)
					return err
				}
				return nil
			case <-ctx.Done():
				logger.Info("Shutdown signal received")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Server shutdown error", log.FieldError, err)
				return err
			}
			logger.Info("Server stopped gracefully")
			return nil
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides PORT)")
	return cmd
}
