package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// HealthCheck checks one dependency
type HealthCheck func(ctx context.Context) error

// MongoCheck pings the primary
func MongoCheck(client *mongo.Client) HealthCheck {
	return func(ctx context.Context) error {
		return client.Ping(ctx, readpref.Primary())
	}
}

// RedisCheck pings the server
func RedisCheck(client *redis.Client) HealthCheck {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

// HealthHandler handles health check requests
type HealthHandler struct {
	checks  map[string]HealthCheck
	timeout time.Duration
	version string
	logger  *zap.SugaredLogger
}

// HealthStatus represents the health status of a component
type HealthStatus struct {
	Status       string `json:"status"`
	ResponseTime int64  `json:"responseTimeMs"`
	Error        string `json:"error,omitempty"`
}

// SystemHealth represents the health of the entire system
type SystemHealth struct {
	Status     string                  `json:"status"`
	Timestamp  string                  `json:"timestamp"`
	Version    string                  `json:"version"`
	Components map[string]HealthStatus `json:"components"`
}

// NewHealthHandler creates a new health handler over the named checks
func NewHealthHandler(checks map[string]HealthCheck, version string, logger *zap.SugaredLogger) *HealthHandler {
	return &HealthHandler{
		checks:  checks,
		timeout: 3 * time.Second,
		version: version,
		logger:  logger,
	}
}

// Check runs every component check in parallel
func (h *HealthHandler) Check(c echo.Context) error {
	systemHealth := SystemHealth{
		Status:     "healthy",
		Timestamp:  time.Now().Format(time.RFC3339),
		Version:    h.version,
		Components: map[string]HealthStatus{"api": {Status: "healthy"}},
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for name, check := range h.checks {
		wg.Add(1)
		go func(name string, check HealthCheck) {
			defer wg.Done()
			status := h.runCheck(c.Request().Context(), name, check)
			mu.Lock()
			systemHealth.Components[name] = status
			if status.Status != "healthy" {
				systemHealth.Status = "degraded"
			}
			mu.Unlock()
		}(name, check)
	}
	wg.Wait()

	statusCode := http.StatusOK
	if systemHealth.Status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}
	return c.JSON(statusCode, systemHealth)
}

func (h *HealthHandler) runCheck(parent context.Context, name string, check HealthCheck) HealthStatus {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, h.timeout)
	defer cancel()

	err := check(ctx)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		h.logger.Errorw("Health check failed", "component", name, "error", err)
		return HealthStatus{Status: "unhealthy", ResponseTime: elapsed, Error: err.Error()}
	}
	return HealthStatus{Status: "healthy", ResponseTime: elapsed}
}
