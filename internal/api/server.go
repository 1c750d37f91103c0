package api

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/richman/backend/internal/api/handlers"
	"github.com/richman/backend/internal/api/middleware/auth"
	"github.com/richman/backend/internal/config"
	"github.com/richman/backend/internal/game/manager"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// CustomValidator is the request validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the request
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// RequestMetrics tracks metrics for API requests
type RequestMetrics struct {
	RequestCount map[string]int     `json:"requestCount"`
	DurationSum  map[string]float64 `json:"durationSum"`
	mutex        sync.RWMutex
}

// Dependencies are the collaborators the routes need. Stats and Health entries
// are optional.
type Dependencies struct {
	Manager *manager.GameManager
	Hub     handlers.ConnectionHub
	Stats   handlers.StatsReader
	Health  map[string]handlers.HealthCheck
}

// Server represents the API server
type Server struct {
	echo    *echo.Echo
	cfg     *config.Config
	deps    Dependencies
	logger  *zap.SugaredLogger
	metrics *RequestMetrics
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, deps Dependencies, logger *zap.SugaredLogger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	server := &Server{
		echo:   e,
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		metrics: &RequestMetrics{
			RequestCount: make(map[string]int),
			DurationSum:  make(map[string]float64),
		},
	}

	server.configureMiddleware()
	server.configureRoutes()
	return server
}

// configureMiddleware sets up Echo middleware
func (s *Server) configureMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORS())
	s.echo.Use(middleware.RequestID())
	s.echo.Use(s.metricsMiddleware)

	// Request scoped logger
	s.echo.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			c.Set("requestID", requestID)
			c.Set("logger", s.logger.With(
				"requestID", requestID,
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"clientIP", c.RealIP(),
			))
			return next(c)
		}
	})
}

// metricsMiddleware records metrics for each request
func (s *Server) metricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			// Let the error handler pick the final status before recording it
			c.Error(err)
			err = nil
		}

		key := c.Request().Method + ":" + c.Path() + ":" + strconv.Itoa(c.Response().Status)
		s.metrics.mutex.Lock()
		s.metrics.RequestCount[key]++
		s.metrics.DurationSum[key] += time.Since(start).Seconds()
		s.metrics.mutex.Unlock()
		return err
	}
}

// configureRoutes sets up API routes
func (s *Server) configureRoutes() {
	gameHandler := handlers.NewGameHandler(s.deps.Manager, s.deps.Stats, s.logger)
	actionHandler := handlers.NewActionHandler(s.deps.Manager, s.logger)
	saveHandler := handlers.NewSaveHandler(s.deps.Manager, s.logger)
	wsHandler := handlers.NewWebSocketHandler(s.deps.Hub, s.deps.Manager, s.cfg.JWT.Secret, s.logger)
	healthHandler := handlers.NewHealthHandler(s.deps.Health, Version, s.logger)

	jwtMiddleware := auth.JWTMiddleware(s.cfg.JWT.Secret)
	apiV1 := s.echo.Group("/api/v1")

	gameGroup := apiV1.Group("/games", jwtMiddleware)
	gameGroup.POST("", gameHandler.CreateGame)
	gameGroup.GET("", gameHandler.ListGames)
	gameGroup.GET("/code/:code", gameHandler.GetGameByCode)
	gameGroup.GET("/:gameId", gameHandler.GetGameDetails)
	gameGroup.DELETE("/:gameId", gameHandler.DeleteGame)
	gameGroup.POST("/:gameId/players", gameHandler.AddPlayer)
	gameGroup.POST("/:gameId/start", gameHandler.StartGame)
	gameGroup.POST("/:gameId/pause", gameHandler.PauseGame)
	gameGroup.POST("/:gameId/resume", gameHandler.ResumeGame)
	gameGroup.POST("/:gameId/reset", gameHandler.ResetGame)
	gameGroup.GET("/:gameId/stats", gameHandler.GetStats)

	gameGroup.POST("/:gameId/saves", saveHandler.SaveGame)
	gameGroup.GET("/:gameId/saves", saveHandler.ListSaves)
	gameGroup.POST("/:gameId/saves/:name/load", saveHandler.LoadSave)
	gameGroup.DELETE("/:gameId/saves/:name", saveHandler.DeleteSave)

	actionGroup := apiV1.Group("/games/:gameId/actions", jwtMiddleware)
	actionGroup.POST("/jail", actionHandler.Jail)
	actionGroup.POST("/roll", actionHandler.RollDice)
	actionGroup.POST("/move", actionHandler.Move)
	actionGroup.POST("/resolve", actionHandler.Resolve)
	actionGroup.POST("/purchase", actionHandler.Purchase)
	actionGroup.POST("/upgrade", actionHandler.Upgrade)
	actionGroup.POST("/end-turn", actionHandler.EndTurn)
	actionGroup.POST("/auto", actionHandler.Auto)
	actionGroup.POST("/undo", actionHandler.Undo)
	actionGroup.POST("/redo", actionHandler.Redo)
	actionGroup.POST("/trade", actionHandler.Trade)
	actionGroup.POST("/trade/respond", actionHandler.RespondTrade)

	// The websocket handler checks the token itself
	s.echo.GET("/ws/:gameId", wsHandler.HandleConnection)

	s.echo.GET("/health", healthHandler.Check)
	s.echo.GET("/metrics", func(c echo.Context) error {
		s.metrics.mutex.RLock()
		defer s.metrics.mutex.RUnlock()
		return c.JSON(http.StatusOK, s.metrics)
	})
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the API server
func (s *Server) Start() error {
	s.echo.Server.ReadTimeout = time.Duration(s.cfg.Server.ReadTimeout) * time.Second
	s.echo.Server.WriteTimeout = time.Duration(s.cfg.Server.WriteTimeout) * time.Second
	address := s.cfg.Server.Host + ":" + strconv.Itoa(s.cfg.Server.Port)
	return s.echo.Start(address)
}

// Shutdown gracefully shuts down the API server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
