package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/richman/backend/internal/game/models"
)

// Message priority levels
const (
	PriorityHigh   = "high"   // session lifecycle and turn changes
	PriorityNormal = "normal" // everything else
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	maxMessage = 4096
)

// Hub maintains the set of active WebSocket connections and streams session
// notifications to every client watching a game
type Hub struct {
	clients      map[string]map[*Client]bool
	clientsMutex sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage

	logger *zap.SugaredLogger
}

// BroadcastMessage is one payload for every client of a game
type BroadcastMessage struct {
	gameID   string
	data     []byte
	priority string
}

// Client represents a WebSocket client connection
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	highPriorityQueue   chan []byte
	normalPriorityQueue chan []byte

	gameID   string
	playerID string

	closeOnce sync.Once
}

// NewHub creates a new WebSocket hub
func NewHub(logger *zap.SugaredLogger) *Hub {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client, 128),
		unregister: make(chan *Client, 128),
		broadcast:  make(chan *BroadcastMessage, 1024),
		logger:     logger,
	}
}

// Run dispatches registrations and broadcasts until ctx is done
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.clientsMutex.Lock()
			if h.clients[client.gameID] == nil {
				h.clients[client.gameID] = make(map[*Client]bool)
			}
			h.clients[client.gameID][client] = true
			h.clientsMutex.Unlock()
			h.logger.Infof("Client registered for game %s, player %s", client.gameID, client.playerID)

		case client := <-h.unregister:
			h.remove(client)

		case msg := <-h.broadcast:
			h.clientsMutex.RLock()
			var slow []*Client
			for client := range h.clients[msg.gameID] {
				if !client.enqueue(msg.data, msg.priority) {
					slow = append(slow, client)
				}
			}
			h.clientsMutex.RUnlock()
			for _, client := range slow {
				h.logger.Warnf("Dropping slow client for game %s, player %s", client.gameID, client.playerID)
				h.remove(client)
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.clientsMutex.Lock()
	if game, ok := h.clients[client.gameID]; ok {
		if _, ok := game[client]; ok {
			delete(game, client)
			client.close()
		}
		if len(game) == 0 {
			delete(h.clients, client.gameID)
		}
	}
	h.clientsMutex.Unlock()
}

func (h *Hub) closeAll() {
	h.clientsMutex.Lock()
	defer h.clientsMutex.Unlock()
	for gameID, game := range h.clients {
		for client := range game {
			client.close()
		}
		delete(h.clients, gameID)
	}
}

// ClientCount returns the number of clients watching a game
func (h *Hub) ClientCount(gameID string) int {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()
	return len(h.clients[gameID])
}

// BroadcastToGame sends a notification payload to all clients in a game. The
// priority is derived from the notification type. The call never blocks; when
// the hub is backed up the message is dropped.
func (h *Hub) BroadcastToGame(gameID string, data []byte) {
	h.BroadcastToGameWithPriority(gameID, data, priorityOf(data))
}

// BroadcastToGameWithPriority sends a message to all clients in a game with the given priority
func (h *Hub) BroadcastToGameWithPriority(gameID string, data []byte, priority string) {
	select {
	case h.broadcast <- &BroadcastMessage{gameID: gameID, data: data, priority: priority}:
	default:
		h.logger.Warnf("Broadcast queue full, dropping message for game %s", gameID)
	}
}

func priorityOf(data []byte) string {
	var head struct {
		Type models.NotificationType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return PriorityNormal
	}
	switch head.Type {
	case models.NotifyGameStarted, models.NotifyGameFinished, models.NotifyTurnEnded,
		models.NotifyBankruptcy, models.NotifyGamePaused, models.NotifyGameResumed,
		models.NotifySnapshotLoaded:
		return PriorityHigh
	}
	return PriorityNormal
}

// HandleWebSocketConnection registers conn as a watcher of gameID and starts its pumps
func (h *Hub) HandleWebSocketConnection(conn *websocket.Conn, gameID, playerID string) {
	client := &Client{
		hub:                 h,
		conn:                conn,
		highPriorityQueue:   make(chan []byte, 256),
		normalPriorityQueue: make(chan []byte, 1024),
		gameID:              gameID,
		playerID:            playerID,
	}
	h.register <- client

	go client.readPump()
	go client.writePump()
}

func (c *Client) enqueue(data []byte, priority string) bool {
	queue := c.normalPriorityQueue
	if priority == PriorityHigh {
		queue = c.highPriorityQueue
	}
	select {
	case queue <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.highPriorityQueue)
		close(c.normalPriorityQueue)
	})
}

// readPump keeps the read deadline fresh and discards inbound frames. Game
// actions go through the HTTP API.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessage)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warnf("WebSocket read error for game %s, player %s: %v", c.gameID, c.playerID, err)
			}
			return
		}
	}
}

// writePump drains the queues to the connection, high priority first
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	send := func(message []byte, ok bool) bool {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if !ok {
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return false
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			c.hub.logger.Errorf("Error writing to WebSocket for game %s, player %s: %v", c.gameID, c.playerID, err)
			return false
		}
		return true
	}

	for {
		// Drain anything urgent before looking at the normal queue
		select {
		case message, ok := <-c.highPriorityQueue:
			if !send(message, ok) {
				return
			}
			continue
		default:
		}

		select {
		case message, ok := <-c.highPriorityQueue:
			if !send(message, ok) {
				return
			}
		case message, ok := <-c.normalPriorityQueue:
			if !send(message, ok) {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
