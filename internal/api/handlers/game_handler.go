package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/richman/backend/internal/db/redis"
	"github.com/richman/backend/internal/game/engine"
	"github.com/richman/backend/internal/game/manager"
	"github.com/richman/backend/internal/game/models"
)

// StatsReader serves the aggregated statistics of a game
type StatsReader interface {
	GameStats(ctx context.Context, gameID string) (*redis.GameStats, error)
	Clear(ctx context.Context, gameID string) error
}

// GameHandler handles session lifecycle requests
type GameHandler struct {
	gameManager *manager.GameManager
	stats       StatsReader
	logger      *zap.SugaredLogger
}

// NewGameHandler creates a new GameHandler. stats may be nil when Redis is not
// configured.
func NewGameHandler(gameManager *manager.GameManager, stats StatsReader, logger *zap.SugaredLogger) *GameHandler {
	return &GameHandler{
		gameManager: gameManager,
		stats:       stats,
		logger:      logger,
	}
}

// CreateGameRequest represents a create game request
type CreateGameRequest struct {
	Name  string             `json:"name" validate:"required,max=64"`
	Mode  string             `json:"mode" validate:"omitempty,oneof=standard easy hard"`
	Rules *models.GameConfig `json:"rules,omitempty"`
}

// AddPlayerRequest seats a player in a waiting game
type AddPlayerRequest struct {
	Name       string            `json:"name" validate:"required,max=32"`
	Kind       models.PlayerKind `json:"kind" validate:"required,oneof=human automated"`
	Difficulty string            `json:"difficulty,omitempty"`
}

// GameDetails is the response of GET /games/:gameId
type GameDetails struct {
	manager.Summary
	View engine.View `json:"view"`
}

// CreateGame creates a new game session
func (h *GameHandler) CreateGame(c echo.Context) error {
	var req CreateGameRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	s, err := h.gameManager.CreateGame(req.Name, req.Mode, req.Rules)
	if err != nil {
		return gameError(err)
	}
	h.logger.Infow("Game created via API", "gameId", s.ID, "userId", c.Get("userID"))

	summary, err := h.gameManager.Summary(s.ID)
	if err != nil {
		return gameError(err)
	}
	return c.JSON(http.StatusCreated, summary)
}

// ListGames lists all hosted sessions
func (h *GameHandler) ListGames(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"games": h.gameManager.ListGames(),
	})
}

// GetGameDetails returns the summary and full view of one session
func (h *GameHandler) GetGameDetails(c echo.Context) error {
	return h.details(c, http.StatusOK, c.Param("gameId"))
}

// GetGameByCode resolves a room code to its session
func (h *GameHandler) GetGameByCode(c echo.Context) error {
	s, err := h.gameManager.GetByRoomCode(c.Param("code"))
	if err != nil {
		return gameError(err)
	}
	return h.details(c, http.StatusOK, s.ID)
}

func (h *GameHandler) details(c echo.Context, status int, gameID string) error {
	s, err := h.gameManager.GetSession(gameID)
	if err != nil {
		return gameError(err)
	}
	summary, err := h.gameManager.Summary(gameID)
	if err != nil {
		return gameError(err)
	}
	return c.JSON(status, GameDetails{Summary: summary, View: s.Engine().View()})
}

// AddPlayer seats a human or automated player
func (h *GameHandler) AddPlayer(c echo.Context) error {
	var req AddPlayerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	p, err := h.gameManager.AddPlayer(c.Param("gameId"), req.Name, req.Kind, req.Difficulty)
	if err != nil {
		return gameError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

// StartGame starts the first round
func (h *GameHandler) StartGame(c echo.Context) error {
	gameID := c.Param("gameId")
	if err := h.gameManager.StartGame(gameID); err != nil {
		return gameError(err)
	}
	return h.details(c, http.StatusOK, gameID)
}

// PauseGame suspends a running game
func (h *GameHandler) PauseGame(c echo.Context) error {
	return h.lifecycle(c, (*engine.Engine).Pause)
}

// ResumeGame continues a paused game
func (h *GameHandler) ResumeGame(c echo.Context) error {
	return h.lifecycle(c, (*engine.Engine).Resume)
}

func (h *GameHandler) lifecycle(c echo.Context, fn func(*engine.Engine) error) error {
	gameID := c.Param("gameId")
	if err := h.gameManager.Do(gameID, fn); err != nil {
		return gameError(err)
	}
	return h.details(c, http.StatusOK, gameID)
}

// ResetGame sets up a rematch of a finished game
func (h *GameHandler) ResetGame(c echo.Context) error {
	gameID := c.Param("gameId")
	if err := h.gameManager.ResetGame(gameID); err != nil {
		return gameError(err)
	}
	return h.details(c, http.StatusOK, gameID)
}

// DeleteGame drops a session; its saves remain loadable
func (h *GameHandler) DeleteGame(c echo.Context) error {
	gameID := c.Param("gameId")
	if err := h.gameManager.RemoveGame(gameID); err != nil {
		return gameError(err)
	}
	if h.stats != nil {
		if err := h.stats.Clear(c.Request().Context(), gameID); err != nil {
			h.logger.Warnf("Failed to clear statistics of game %s: %v", gameID, err)
		}
	}
	return c.NoContent(http.StatusNoContent)
}

// GetStats returns the aggregated statistics of a game
func (h *GameHandler) GetStats(c echo.Context) error {
	if h.stats == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, ErrorResponse{Error: "statistics are not enabled"})
	}
	gameID := c.Param("gameId")
	stats, err := h.stats.GameStats(c.Request().Context(), gameID)
	if err != nil {
		return gameError(err)
	}
	return c.JSON(http.StatusOK, stats)
}
