package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/richman/backend/internal/game/manager"
)

// SaveHandler manages named save slots
type SaveHandler struct {
	gameManager *manager.GameManager
	logger      *zap.SugaredLogger
}

// NewSaveHandler creates a new SaveHandler
func NewSaveHandler(gameManager *manager.GameManager, logger *zap.SugaredLogger) *SaveHandler {
	return &SaveHandler{gameManager: gameManager, logger: logger}
}

// SaveRequest names a save slot
type SaveRequest struct {
	Name string `json:"name" validate:"required,max=64"`
}

// SaveGame writes the session into a named slot
func (h *SaveHandler) SaveGame(c echo.Context) error {
	var req SaveRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	info, err := h.gameManager.SaveGame(c.Request().Context(), c.Param("gameId"), req.Name)
	if err != nil {
		return gameError(err)
	}
	return c.JSON(http.StatusCreated, info)
}

// ListSaves lists a game's slots, newest first
func (h *SaveHandler) ListSaves(c echo.Context) error {
	saves, err := h.gameManager.ListSaves(c.Request().Context(), c.Param("gameId"))
	if err != nil {
		return gameError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"saves": saves})
}

// LoadSave restores a slot into the session
func (h *SaveHandler) LoadSave(c echo.Context) error {
	gameID := c.Param("gameId")
	if err := h.gameManager.LoadGame(c.Request().Context(), gameID, c.Param("name")); err != nil {
		return gameError(err)
	}
	s, err := h.gameManager.GetSession(gameID)
	if err != nil {
		return gameError(err)
	}
	return c.JSON(http.StatusOK, s.Engine().View())
}

// DeleteSave removes a slot
func (h *SaveHandler) DeleteSave(c echo.Context) error {
	if err := h.gameManager.DeleteSave(c.Request().Context(), c.Param("gameId"), c.Param("name")); err != nil {
		return gameError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
