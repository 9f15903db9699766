package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/deepfolio/internal/config"
	"github.com/aristath/deepfolio/internal/database"
	"github.com/aristath/deepfolio/internal/market"
	"github.com/aristath/deepfolio/pkg/logger"
)

// app carries what every subcommand needs once the root has loaded it.
type app struct {
	cfg *config.Config
	log zerolog.Logger
}

// Execute runs the root command with ctx, which subcommands observe for cancellation.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	a := &app{log: logger.Nop()}
	var logLevel string

	root := &cobra.Command{
		Use:           "deepfolio",
		Short:         "Multi-asset portfolio environment and feature encoder",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			a.cfg = cfg
			a.log = logger.New(logger.Config{
				Level:  cfg.LogLevel,
				Pretty: cfg.PrettyLogs,
				Output: cmd.ErrOrStderr(),
			})
			logger.SetGlobalLogger(a.log)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (trace, debug, info, warn, error)")

	root.AddCommand(
		serveCmd(a),
		simulateCmd(a),
		importCmd(a),
		featuresCmd(a),
	)
	return root
}

// openHistory opens the bar store at the configured path.
func (a *app) openHistory() (*database.DB, *market.BarRepository, error) {
	db, err := database.New(database.Config{
		Path:    a.cfg.HistoryDBPath,
		Profile: database.ProfileStandard,
		Name:    "history",
	})
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, market.NewBarRepository(db.Conn(), a.log), nil
}

// setAssets replaces the configured asset set and keeps the network shape in step.
func (a *app) setAssets(assets []string) error {
	if len(assets) == 0 {
		return nil
	}
	a.cfg.Rollout.Assets = assets
	a.cfg.Network.NumAssets = len(assets)
	return a.cfg.Validate()
}
