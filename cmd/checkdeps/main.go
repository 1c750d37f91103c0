// Command checkdeps checks the backing services named in the configuration
// and prints one row per service.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/richman/backend/internal/config"
	"github.com/richman/backend/internal/db/mongodb"
	"github.com/richman/backend/internal/db/redis"
	"github.com/richman/backend/internal/db/sqlite"
)

type dependency struct {
	name string
	run  func(ctx context.Context) (string, error)
}

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()
	sugar := logger.Sugar()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	deps := []dependency{
		{"redis", func(ctx context.Context) (string, error) { return checkRedis(ctx, cfg, sugar) }},
	}
	switch cfg.Persistence.Driver {
	case "mongodb":
		deps = append(deps, dependency{"mongodb", func(ctx context.Context) (string, error) { return checkMongo(ctx, cfg, sugar) }})
	case "sqlite":
		deps = append(deps, dependency{"sqlite", func(ctx context.Context) (string, error) { return checkSQLite(ctx, cfg) }})
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Service", "Status", "Detail", "Took"})
	failed := false
	for _, p := range deps {
		start := time.Now()
		detail, err := p.run(ctx)
		status := "ok"
		if err != nil {
			status, detail, failed = "FAILED", err.Error(), true
		}
		t.AppendRow(table.Row{p.name, status, detail, time.Since(start).Round(time.Millisecond)})
	}
	t.Render()

	if failed {
		os.Exit(1)
	}
}

func checkRedis(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (string, error) {
	client, err := redis.Connect(ctx, redis.Options{Addr: cfg.Redis.URI, Password: cfg.Redis.Password, DB: cfg.Redis.DB}, logger)
	if err != nil {
		return "", err
	}
	defer client.Close()

	key := "checkdeps:ping"
	value := time.Now().Format(time.RFC3339Nano)
	if err := client.Set(ctx, key, value, time.Minute).Err(); err != nil {
		return "", fmt.Errorf("set: %w", err)
	}
	got, err := client.Get(ctx, key).Result()
	if err != nil {
		return "", fmt.Errorf("get: %w", err)
	}
	if got != value {
		return "", fmt.Errorf("read back %q, wrote %q", got, value)
	}
	return cfg.Redis.URI, nil
}

func checkMongo(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (string, error) {
	client, err := mongodb.Connect(ctx, cfg.MongoDB.URI, logger)
	if err != nil {
		return "", err
	}
	defer client.Disconnect(context.Background())

	store := mongodb.NewSnapshotStore(client.Database(cfg.MongoDB.Database), cfg.MongoDB.SavesColl)
	if err := store.EnsureIndexes(ctx); err != nil {
		return "", fmt.Errorf("indexes: %w", err)
	}
	saves, err := store.List(ctx, "checkdeps")
	if err != nil {
		return "", fmt.Errorf("list: %w", err)
	}
	return fmt.Sprintf("%s/%s (%d saves found)", cfg.MongoDB.Database, cfg.MongoDB.SavesColl, len(saves)), nil
}

func checkSQLite(ctx context.Context, cfg *config.Config) (string, error) {
	store, err := sqlite.Open(cfg.Persistence.SQLitePath)
	if err != nil {
		return "", err
	}
	defer store.Close()
	if err := store.Ping(ctx); err != nil {
		return "", err
	}
	return cfg.Persistence.SQLitePath, nil
}
