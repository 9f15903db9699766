package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/aristath/deepfolio/internal/config"
	"github.com/aristath/deepfolio/internal/encoder"
	"github.com/aristath/deepfolio/internal/market"
	"github.com/aristath/deepfolio/internal/rollout"
)

// InitializeServices creates the bar repository, metrics, the encoder and the rollout runner
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil || container.HistoryDB == nil {
		return fmt.Errorf("container has no history database")
	}

	container.BarRepo = market.NewBarRepository(container.HistoryDB.Conn(), log)

	container.Registry = prometheus.NewRegistry()
	container.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	container.Metrics = rollout.NewMetrics(container.Registry)

	enc, err := encoder.New(cfg.Network, encoder.WithLogger(log))
	if err != nil {
		return fmt.Errorf("failed to build feature encoder: %w", err)
	}
	container.Encoder = enc

	opts := []rollout.RunnerOption{
		rollout.WithMetrics(container.Metrics),
		rollout.WithWorkers(cfg.Rollout.Workers),
	}
	if cfg.Rollout.RecordPath != "" {
		rec, err := rollout.OpenMsgpackFile(cfg.Rollout.RecordPath)
		if err != nil {
			return err
		}
		container.Recorder = rec
		opts = append(opts, rollout.WithRecorder(rec))
	}
	container.Runner = rollout.NewRunner(log, opts...)

	assets := market.AssetSet(cfg.Rollout.Assets)
	bars := container.BarRepo
	container.Tables = func(ctx context.Context) (*market.Table, error) {
		return market.BuildTable(ctx, bars, assets, time.Time{}, time.Time{})
	}

	log.Info().
		Strs("assets", cfg.Rollout.Assets).
		Int("encoder_params", enc.NumParams()).
		Msg("Services initialized")
	return nil
}
