package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/richman/backend/internal/api/middleware/auth"
)

// MockHub is a mock implementation of the Hub
type MockHub struct {
	mock.Mock
	connected chan struct{}
}

func (m *MockHub) HandleWebSocketConnection(conn *websocket.Conn, gameID, playerID string) {
	m.Called(conn, gameID, playerID)
	conn.Close()
	close(m.connected)
}

type stubSessions map[string]bool

func (s stubSessions) HasSession(gameID string) bool { return s[gameID] }

func newWSHandler(hub *MockHub) *WebSocketHandler {
	return NewWebSocketHandler(hub, stubSessions{"game123": true}, "test-secret", zap.NewNop().Sugar())
}

func TestHandleConnection(t *testing.T) {
	hub := &MockHub{connected: make(chan struct{})}
	hub.On("HandleWebSocketConnection", mock.Anything, "game123", "test-user").Return()

	e := echo.New()
	e.GET("/ws/:gameId", newWSHandler(hub).HandleConnection)
	srv := httptest.NewServer(e)
	defer srv.Close()

	token, err := auth.GenerateJWT("test-user", "test-secret", 1)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/game123?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	<-hub.connected
	hub.AssertExpectations(t)
}

func TestHandleConnectionRejects(t *testing.T) {
	valid, err := auth.GenerateJWT("test-user", "test-secret", 1)
	require.NoError(t, err)
	forged, err := auth.GenerateJWT("test-user", "other-secret", 1)
	require.NoError(t, err)

	tests := []struct {
		name   string
		target string
		status int
	}{
		{"missing token", "/ws/game123", http.StatusUnauthorized},
		{"forged token", "/ws/game123?token=" + forged, http.StatusUnauthorized},
		{"unknown game", "/ws/nope?token=" + valid, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := &MockHub{connected: make(chan struct{})}
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			c := e.NewContext(req, httptest.NewRecorder())
			c.SetParamNames("gameId")
			c.SetParamValues(strings.SplitN(strings.TrimPrefix(tt.target, "/ws/"), "?", 2)[0])

			err := newWSHandler(hub).HandleConnection(c)
			httpErr, ok := err.(*echo.HTTPError)
			require.True(t, ok)
			assert.Equal(t, tt.status, httpErr.Code)
			hub.AssertNotCalled(t, "HandleWebSocketConnection", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}
