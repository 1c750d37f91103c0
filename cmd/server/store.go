package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/richman/backend/internal/api/handlers"
	"github.com/richman/backend/internal/config"
	"github.com/richman/backend/internal/db/mongodb"
	"github.com/richman/backend/internal/db/sqlite"
	"github.com/richman/backend/internal/game/manager"
)

// openStore opens the save store picked by persistence.driver and registers
// its health check. The returned func releases the store.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger, health map[string]handlers.HealthCheck) (manager.SnapshotStore, func(), error) {
	switch cfg.Persistence.Driver {
	case "mongodb":
		client, err := mongodb.Connect(ctx, cfg.MongoDB.URI, logger)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := client.Disconnect(context.Background()); err != nil {
				logger.Errorf("Failed to disconnect from MongoDB: %v", err)
			}
		}
		store := mongodb.NewSnapshotStore(client.Database(cfg.MongoDB.Database), cfg.MongoDB.SavesColl)
		if err := store.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, err
		}
		health["mongodb"] = handlers.MongoCheck(client)
		logger.Infow("Saves stored in MongoDB", "database", cfg.MongoDB.Database, "collection", cfg.MongoDB.SavesColl)
		return store, closeFn, nil

	case "sqlite":
		store, err := sqlite.Open(cfg.Persistence.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		health["sqlite"] = store.Ping
		logger.Infow("Saves stored in SQLite", "path", cfg.Persistence.SQLitePath)
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Errorf("Failed to close SQLite store: %v", err)
			}
		}, nil

	case "memory":
		logger.Warn("Saves are kept in memory and lost on restart")
		return manager.NewMemoryStore(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown persistence driver %q", cfg.Persistence.Driver)
}
