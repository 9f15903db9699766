package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/aristath/deepfolio/internal/di"
	"github.com/aristath/deepfolio/internal/server"
)

const shutdownTimeout = 10 * time.Second

func serveCmd(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the scheduled jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port != 0 {
				a.cfg.Server.Port = port
			}
			log := a.log

			container, jobs, err := di.Wire(a.cfg, log)
			if err != nil {
				return err
			}
			defer container.Close()

			srv := server.New(server.Config{
				Log:       log,
				HistoryDB: container.HistoryDB,
				Config:    a.cfg,
				Port:      a.cfg.Server.Port,
				DevMode:   a.cfg.Server.DevMode,
				Tables:    container.Tables,
				Runner:    container.Runner,
				Encoder:   container.Encoder,
				Gatherer:  container.Registry,
			})
			srv.SetJobs(jobs.All()...)

			errCh := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			container.Scheduler.Start()
			log.Info().Int("port", a.cfg.Server.Port).Msg("Server started successfully")

			var serveErr error
			select {
			case <-cmd.Context().Done():
				log.Info().Msg("Shutting down server...")
			case serveErr = <-errCh:
				log.Error().Err(serveErr).Msg("HTTP server failed")
			}

			container.Scheduler.Stop()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Server forced to shutdown")
			}

			log.Info().Msg("Server stopped")
			return serveErr
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "override DEEPFOLIO_PORT")
	return cmd
}
