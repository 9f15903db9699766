// Package main is the deepfolio command line.
//
// deepfolio builds feature tables from CSV files or the SQLite bar store,
// rolls policies through the portfolio environment and serves the same
// capabilities over HTTP with a cron-driven rollout job.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aristath/deepfolio/pkg/logger"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := Execute(ctx); err != nil {
		// The configured logger may not exist yet, e.g. when config loading failed.
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
			Output: os.Stderr,
		})
		fallbackLog.Error().Err(err).Msg("deepfolio failed")
		cancel()
		os.Exit(1)
	}
}
