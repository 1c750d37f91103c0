package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/richman/backend/internal/api/handlers"
	"github.com/richman/backend/internal/config"
	"github.com/richman/backend/internal/game/manager"
	"github.com/richman/backend/internal/game/models"
)

func TestOpenStoreMemory(t *testing.T) {
	cfg := &config.Config{Persistence: config.PersistenceConfig{Driver: "memory"}}
	health := map[string]handlers.HealthCheck{}

	store, closeFn, err := openStore(context.Background(), cfg, zap.NewNop().Sugar(), health)
	require.NoError(t, err)
	defer closeFn()

	assert.IsType(t, &manager.MemoryStore{}, store)
	assert.Empty(t, health)
}

func TestOpenStoreSQLite(t *testing.T) {
	cfg := &config.Config{Persistence: config.PersistenceConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "saves.db"),
	}}
	health := map[string]handlers.HealthCheck{}

	store, closeFn, err := openStore(context.Background(), cfg, zap.NewNop().Sugar(), health)
	require.NoError(t, err)
	defer closeFn()

	require.Contains(t, health, "sqlite")
	assert.NoError(t, health["sqlite"](context.Background()))

	saves, err := store.List(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Empty(t, saves)
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	cfg := &config.Config{Persistence: config.PersistenceConfig{Driver: "postgres"}}
	_, _, err := openStore(context.Background(), cfg, zap.NewNop().Sugar(), map[string]handlers.HealthCheck{})
	assert.Error(t, err)
}

func TestSessionSettings(t *testing.T) {
	cfg := &config.Config{
		Game:     models.DefaultGameConfig(),
		Session:  config.SessionConfig{DefaultMode: "easy", IdleExpiry: 2},
		AutoSave: config.AutoSaveConfig{Enabled: false, Interval: 300, Keep: 5},
	}

	settings := sessionSettings(cfg)
	assert.Equal(t, "easy", settings.DefaultMode)
	assert.Equal(t, 2*time.Hour, settings.IdleExpiry)
	assert.Zero(t, settings.AutoSaveInterval)

	cfg.AutoSave.Enabled = true
	assert.Equal(t, 300*time.Second, sessionSettings(cfg).AutoSaveInterval)
}
