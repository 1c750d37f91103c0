package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/richman/backend/internal/api/middleware/auth"
)

// ConnectionHub takes over upgraded connections
type ConnectionHub interface {
	HandleWebSocketConnection(conn *websocket.Conn, gameID, playerID string)
}

// SessionLookup reports whether a game is hosted
type SessionLookup interface {
	HasSession(gameID string) bool
}

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	hub      ConnectionHub
	sessions SessionLookup
	secret   string
	logger   *zap.SugaredLogger
}

// NewWebSocketHandler creates a new WebSocketHandler
func NewWebSocketHandler(hub ConnectionHub, sessions SessionLookup, secret string, logger *zap.SugaredLogger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		sessions: sessions,
		secret:   secret,
		logger:   logger,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow connections from any origin
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleConnection upgrades a watcher of a game. Browsers cannot set headers on
// the upgrade request, so the token usually arrives as a query parameter.
func (h *WebSocketHandler) HandleConnection(c echo.Context) error {
	gameID := c.Param("gameId")
	if gameID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, ErrorResponse{Error: "missing game id"})
	}

	claims, err := auth.ParseToken(auth.TokenFromRequest(c), h.secret)
	if err != nil {
		h.logger.Warnf("WebSocket connection rejected for game %s: %v", gameID, err)
		return echo.NewHTTPError(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	if !h.sessions.HasSession(gameID) {
		return echo.NewHTTPError(http.StatusNotFound, ErrorResponse{Error: "game not found"})
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Errorf("Failed to upgrade connection: %v", err)
		return nil
	}

	h.logger.Infow("WebSocket connected", "gameId", gameID, "userId", claims.UserID)
	h.hub.HandleWebSocketConnection(conn, gameID, claims.UserID)
	return nil
}
