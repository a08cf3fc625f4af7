package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"familytodo/internal/config"
	"familytodo/internal/database"
	"familytodo/internal/repository/mongodb"
	"familytodo/internal/storage"
)

// Open connects the backend named by cfg.DatabaseType. MongoDB is the
// default; sqlite, postgres and mysql go through the SQL store.
func Open(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.DatabaseType {
	case "", "mongodb", "mongo":
		ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()

		store, err := mongodb.Open(ctx, cfg.MongoURI)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		slog.Info("database connection established", "type", "mongodb")
		return store, nil
	default:
		db, err := database.InitializeWithConfig(cfg)
		if err != nil {
			return nil, err
		}
		slog.Info("database connection established", "type", cfg.DatabaseType)
		return NewStore(db), nil
	}
}
