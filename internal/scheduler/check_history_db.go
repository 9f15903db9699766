package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/deepfolio/internal/database"
	"github.com/rs/zerolog"
)

// CheckHistoryDBJob verifies integrity of the bar history database
type CheckHistoryDBJob struct {
	log zerolog.Logger
	db  *database.DB
}

// NewCheckHistoryDBJob creates a new CheckHistoryDBJob
func NewCheckHistoryDBJob(db *database.DB) *CheckHistoryDBJob {
	return &CheckHistoryDBJob{log: zerolog.Nop(), db: db}
}

// SetLogger sets the logger for the job
func (j *CheckHistoryDBJob) SetLogger(log zerolog.Logger) {
	j.log = log
}

// Name returns the job name
func (j *CheckHistoryDBJob) Name() string {
	return "check_history_db"
}

// Run executes the integrity check
func (j *CheckHistoryDBJob) Run() error {
	if j.db == nil {
		j.log.Warn().Msg("Database not initialized, skipping")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := j.db.HealthCheck(ctx); err != nil {
		j.log.Error().
			Err(err).
			Str("database", j.db.Name()).
			Msg("Database integrity check failed")
		return fmt.Errorf("database %s is corrupted: %w", j.db.Name(), err)
	}

	j.log.Debug().Str("database", j.db.Name()).Msg("Database integrity OK")
	return nil
}
