package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/richman/backend/internal/api"
	"github.com/richman/backend/internal/api/handlers"
	"github.com/richman/backend/internal/config"
	"github.com/richman/backend/internal/db/redis"
	"github.com/richman/backend/internal/game/manager"
	"github.com/richman/backend/internal/game/websocket"
	"github.com/richman/backend/internal/queue"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	health := map[string]handlers.HealthCheck{}

	store, closeStore, err := openStore(ctx, cfg, sugar, health)
	if err != nil {
		sugar.Fatalf("Failed to open save store: %v", err)
	}
	defer closeStore()

	hub := websocket.NewHub(sugar)
	go hub.Run(ctx)
	sugar.Info("WebSocket hub is running")

	opts := []manager.Option{manager.WithHub(hub)}

	// Statistics are optional; the server runs without Redis
	var (
		redisQueue *queue.RedisQueue
		statsStore *redis.StatsStore
	)
	redisClient, err := redis.Connect(ctx, redis.Options{
		Addr:     cfg.Redis.URI,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, sugar)
	if err != nil {
		sugar.Warnf("Redis unavailable, statistics disabled: %v", err)
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				sugar.Errorf("Failed to close Redis connection: %v", err)
			}
		}()
		health["redis"] = handlers.RedisCheck(redisClient)
		redisQueue = queue.NewRedisQueue(redisClient, logger)
		statsStore = redis.NewStatsStore(redisClient, sugar)
		opts = append(opts, manager.WithStats(redisQueue), manager.WithFinishedQueue(redisQueue))
	}

	gameManager := manager.NewGameManager(ctx, sessionSettings(cfg), store, sugar, opts...)
	sugar.Info("Game manager initialized")

	deps := api.Dependencies{Manager: gameManager, Hub: hub, Health: health}

	if redisQueue != nil {
		worker := queue.NewWorker(redisQueue, statsStore, gameManager, logger)

		// Games from a previous run are gone; drop their leftovers
		if cleaned := worker.CleanupStaleQueues(ctx); cleaned > 0 {
			sugar.Infof("Cleaned %d stale queues", cleaned)
		}
		worker.Start(ctx)
		defer func() {
			worker.Stop()
			sugar.Info("Queue worker stopped")
		}()
		sugar.Info("Queue worker started")
		deps.Stats = statsStore
	}

	server := api.NewServer(cfg, deps, sugar)

	go func() {
		if err := server.Start(); err != nil {
			sugar.Infof("Server stopped: %v", err)
		}
	}()
	sugar.Infof("Server started on port %d", cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sugar.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		sugar.Errorf("Server forced to shutdown: %v", err)
	}

	// Keep the latest state of running games
	if n := gameManager.AutoSaveAll(shutdownCtx); n > 0 {
		sugar.Infof("Auto-saved %d games", n)
	}
	sugar.Info("Server exited properly")
}

// sessionSettings translates configuration into manager policy
func sessionSettings(cfg *config.Config) manager.Settings {
	settings := manager.Settings{
		Rules:        cfg.Game,
		DefaultMode:  cfg.Session.DefaultMode,
		AutoSaveKeep: cfg.AutoSave.Keep,
		IdleExpiry:   time.Duration(cfg.Session.IdleExpiry) * time.Hour,
	}
	if cfg.AutoSave.Enabled {
		settings.AutoSaveInterval = time.Duration(cfg.AutoSave.Interval) * time.Second
	}
	return settings
}
