// Package di wires the application's dependencies.
//
// The Container created by Wire holds databases, repositories, metrics and
// services. It is handed to the HTTP server and the CLI commands.
package di

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aristath/deepfolio/internal/database"
	"github.com/aristath/deepfolio/internal/encoder"
	"github.com/aristath/deepfolio/internal/market"
	"github.com/aristath/deepfolio/internal/rollout"
	"github.com/aristath/deepfolio/internal/scheduler"
)

// Container holds all dependencies for the application.
type Container struct {
	// Databases
	HistoryDB *database.DB

	// Repositories
	BarRepo *market.BarRepository

	// Observability
	Registry *prometheus.Registry
	Metrics  *rollout.Metrics

	// Services
	Encoder   encoder.FeatureEncoder
	Runner    *rollout.Runner
	Recorder  *rollout.MsgpackRecorder // nil unless Rollout.RecordPath is set
	Tables    scheduler.TableLoader
	Scheduler *scheduler.Scheduler
}

// JobInstances holds the background jobs.
type JobInstances struct {
	Rollout        *scheduler.RolloutJob
	CheckHistoryDB *scheduler.CheckHistoryDBJob
}

// All returns every job, for manual triggering through the API.
func (j *JobInstances) All() []scheduler.Job {
	return []scheduler.Job{j.Rollout, j.CheckHistoryDB}
}

// Close releases databases and files held by the container.
func (c *Container) Close() error {
	var firstErr error
	if c.Recorder != nil {
		if err := c.Recorder.Close(); err != nil {
			firstErr = err
		}
	}
	if c.HistoryDB != nil {
		if err := c.HistoryDB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
