package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/deepfolio/internal/config"
	"github.com/aristath/deepfolio/internal/scheduler"
)

// CheckHistoryDBSchedule runs the integrity check daily at 03:00.
const CheckHistoryDBSchedule = "0 0 3 * * *"

// RegisterJobs creates the background jobs and registers the scheduled ones
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	container.Scheduler = scheduler.New(log)
	instances := &JobInstances{}

	instances.CheckHistoryDB = scheduler.NewCheckHistoryDBJob(container.HistoryDB)
	instances.CheckHistoryDB.SetLogger(log)
	if err := container.Scheduler.AddJob(CheckHistoryDBSchedule, instances.CheckHistoryDB); err != nil {
		return nil, fmt.Errorf("failed to register %s: %w", instances.CheckHistoryDB.Name(), err)
	}

	instances.Rollout = scheduler.NewRolloutJob(container.Tables, container.Runner, cfg.Env, cfg.Network, cfg.Rollout)
	instances.Rollout.SetLogger(log)
	// Without a schedule the rollout job is only reachable through the API.
	if cfg.Rollout.Schedule != "" {
		if err := container.Scheduler.AddJob(cfg.Rollout.Schedule, instances.Rollout); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", instances.Rollout.Name(), err)
		}
	}

	return instances, nil
}
