package di

import (
	"fmt"

	"github.com/aristath/deepfolio/internal/config"
	"github.com/aristath/deepfolio/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens history.db and applies its schema
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// history.db - OHLCV bars the feature tables are built from
	historyDB, err := database.New(database.Config{
		Path:    cfg.HistoryDBPath,
		Profile: database.ProfileStandard,
		Name:    "history",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize history database: %w", err)
	}

	if err := historyDB.Migrate(); err != nil {
		historyDB.Close()
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}
	container.HistoryDB = historyDB

	log.Info().Str("path", historyDB.Path()).Msg("History database initialized")
	return container, nil
}
