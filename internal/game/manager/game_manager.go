package manager

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/richman/backend/internal/game/engine"
	"github.com/richman/backend/internal/game/factory"
	"github.com/richman/backend/internal/game/models"
	"github.com/richman/backend/internal/game/utils"
)

// WebSocketHub defines the interface for broadcasting messages to clients
type WebSocketHub interface {
	BroadcastToGame(gameID string, message []byte)
}

// FinishedQueue is told when a session ends
type FinishedQueue interface {
	EnqueueGameFinished(ctx context.Context, gameID, winnerID string, rounds int) error
}

// Settings holds the session policy the manager applies
type Settings struct {
	Rules            models.GameConfig
	DefaultMode      string
	AutoSaveInterval time.Duration // 0 disables auto-save
	AutoSaveKeep     int
	IdleExpiry       time.Duration // 0 keeps idle sessions
}

// Option configures a GameManager
type Option func(*GameManager)

// WithHub streams every notification to the hub
func WithHub(hub WebSocketHub) Option {
	return func(gm *GameManager) { gm.hub = hub }
}

// WithStats attaches a statistics sink to every engine
func WithStats(stats engine.StatsSink) Option {
	return func(gm *GameManager) { gm.stats = stats }
}

// WithFinishedQueue announces finished games on q
func WithFinishedQueue(q FinishedQueue) Option {
	return func(gm *GameManager) { gm.finished = q }
}

// WithRandSource sets the randomness each new engine gets
func WithRandSource(fn func() engine.Rand) Option {
	return func(gm *GameManager) { gm.newRand = fn }
}

// Session is one hosted game
type Session struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	RoomCode  string    `json:"roomCode"`
	Mode      string    `json:"mode"`
	CreatedAt time.Time `json:"createdAt"`

	mu         sync.Mutex
	engine     *engine.Engine
	rules      models.GameConfig
	roster     []*models.Player
	lastActive time.Time
}

// Engine returns the session's engine
func (s *Session) Engine() *engine.Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine
}

// Summary describes a session for listings
type Summary struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	RoomCode   string           `json:"roomCode"`
	Mode       string           `json:"mode"`
	State      models.GameState `json:"state"`
	Round      int              `json:"round"`
	Players    []models.Player  `json:"players"`
	CreatedAt  time.Time        `json:"createdAt"`
	LastActive time.Time        `json:"lastActive"`
}

// GameManager is responsible for managing game sessions
type GameManager struct {
	ctx      context.Context
	logger   *zap.SugaredLogger
	settings Settings
	store    SnapshotStore
	hub      WebSocketHub
	stats    engine.StatsSink
	finished FinishedQueue
	newRand  func() engine.Rand
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewGameManager creates a manager and starts its background tasks, which
// stop when ctx is done. A nil store keeps saves in memory.
func NewGameManager(ctx context.Context, settings Settings, store SnapshotStore, logger *zap.SugaredLogger, opts ...Option) *GameManager {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if store == nil {
		store = NewMemoryStore()
	}
	if settings.DefaultMode == "" {
		settings.DefaultMode = factory.ModeStandard
	}
	if settings.AutoSaveKeep <= 0 {
		settings.AutoSaveKeep = 5
	}

	gm := &GameManager{
		ctx:      ctx,
		logger:   logger,
		settings: settings,
		store:    store,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(gm)
	}

	go gm.runCleanupTask()
	if settings.AutoSaveInterval > 0 {
		go gm.runAutoSaveTask()
	}
	return gm
}

// runCleanupTask drops sessions that have been idle longer than the expiry
func (gm *GameManager) runCleanupTask() {
	ticker := time.NewTicker(3 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-gm.ctx.Done():
			return
		case <-ticker.C:
			if n := gm.CleanupIdleSessions(); n > 0 {
				gm.logger.Infof("Removed %d idle sessions", n)
			}
		}
	}
}

// CleanupIdleSessions removes sessions idle past the expiry and returns how many
func (gm *GameManager) CleanupIdleSessions() int {
	if gm.settings.IdleExpiry <= 0 {
		return 0
	}
	cutoff := gm.now().Add(-gm.settings.IdleExpiry)

	gm.mu.Lock()
	defer gm.mu.Unlock()
	removed := 0
	for id, s := range gm.sessions {
		s.mu.Lock()
		idle := s.lastActive.Before(cutoff)
		s.mu.Unlock()
		if idle {
			delete(gm.sessions, id)
			removed++
		}
	}
	return removed
}

// CreateGame opens a session in the waiting state. An unknown mode falls back
// to the standard mode; rules nil uses the configured rules.
func (gm *GameManager) CreateGame(name, mode string, rules *models.GameConfig) (*Session, error) {
	cfg := gm.settings.Rules
	if rules != nil {
		cfg = *rules
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if mode == "" {
		mode = gm.settings.DefaultMode
	}

	id := uuid.NewString()
	code, err := gm.uniqueRoomCode()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		name = "Game " + code
	}

	s := &Session{
		ID:        id,
		Name:      name,
		RoomCode:  code,
		CreatedAt: gm.now(),
		rules:     cfg,
	}
	if err := gm.attachEngine(s, mode); err != nil {
		return nil, err
	}

	gm.mu.Lock()
	gm.sessions[id] = s
	gm.mu.Unlock()

	gm.logger.Infow("Game created", "gameId", id, "roomCode", code, "mode", s.Mode)
	return s, nil
}

// attachEngine gives s a fresh engine in the waiting state
func (gm *GameManager) attachEngine(s *Session, mode string) error {
	f, err := factory.ForMode(mode)
	if err != nil {
		gm.logger.Warnw("Unknown game mode, using standard", "mode", mode)
	}

	opts := []engine.Option{
		engine.WithGameID(s.ID),
		engine.WithLogger(gm.logger),
		engine.WithObserver(gm.observerFor(s.ID)),
	}
	if gm.stats != nil {
		opts = append(opts, engine.WithStats(gm.stats))
	}
	if gm.newRand != nil {
		opts = append(opts, engine.WithRand(gm.newRand()))
	}

	e, err := engine.New(s.rules, nil, f, opts...)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.engine = e
	s.Mode = f.Mode()
	s.lastActive = gm.now()
	s.mu.Unlock()
	return nil
}

func (gm *GameManager) uniqueRoomCode() (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		code, err := utils.GenerateRoomCode()
		if err != nil {
			return "", fmt.Errorf("failed to generate room code: %w", err)
		}
		if _, err := gm.GetByRoomCode(code); err != nil {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to generate a unique room code")
}

// observerFor forwards notifications to the hub and announces the end of a game
func (gm *GameManager) observerFor(gameID string) engine.Observer {
	return engine.ObserverFunc(func(n models.Notification) {
		if gm.hub != nil {
			data, err := json.Marshal(n)
			if err != nil {
				gm.logger.Errorf("Failed to encode notification for game %s: %v", gameID, err)
			} else {
				gm.hub.BroadcastToGame(gameID, data)
			}
		}

		if n.Type == models.NotifyGameFinished && gm.finished != nil {
			rounds, _ := n.Data["rounds"].(int)
			ctx, cancel := context.WithTimeout(gm.ctx, 2*time.Second)
			defer cancel()
			if err := gm.finished.EnqueueGameFinished(ctx, gameID, n.PlayerID, rounds); err != nil {
				gm.logger.Errorf("Failed to announce finished game %s: %v", gameID, err)
			}
		}
	})
}

// GetSession returns a live session
func (gm *GameManager) GetSession(gameID string) (*Session, error) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	s, ok := gm.sessions[gameID]
	if !ok {
		return nil, models.Errorf(models.CodeNotFound, "game %s not found", gameID)
	}
	return s, nil
}

// GetByRoomCode finds a session by its room code
func (gm *GameManager) GetByRoomCode(code string) (*Session, error) {
	code = utils.NormalizeRoomCode(code)
	if !utils.IsValidRoomCode(code) {
		return nil, models.Errorf(models.CodeInvalidArgument, "invalid room code %q", code)
	}

	gm.mu.RLock()
	defer gm.mu.RUnlock()
	for _, s := range gm.sessions {
		if s.RoomCode == code {
			return s, nil
		}
	}
	return nil, models.Errorf(models.CodeNotFound, "no game with room code %s", code)
}

// Summary describes one session
func (gm *GameManager) Summary(gameID string) (Summary, error) {
	s, err := gm.GetSession(gameID)
	if err != nil {
		return Summary{}, err
	}
	return s.summary(), nil
}

func (s *Session) summary() Summary {
	s.mu.Lock()
	e := s.engine
	roster := make([]models.Player, len(s.roster))
	for i, p := range s.roster {
		roster[i] = p.Clone()
	}
	last := s.lastActive
	s.mu.Unlock()

	sum := Summary{
		ID:         s.ID,
		Name:       s.Name,
		RoomCode:   s.RoomCode,
		Mode:       s.Mode,
		State:      e.State(),
		Round:      e.Round(),
		Players:    roster,
		CreatedAt:  s.CreatedAt,
		LastActive: last,
	}
	if sum.State != models.GameStateWaiting {
		sum.Players = e.Players()
	}
	return sum
}

// ListGames returns all sessions, oldest first
func (gm *GameManager) ListGames() []Summary {
	gm.mu.RLock()
	sessions := make([]*Session, 0, len(gm.sessions))
	for _, s := range gm.sessions {
		sessions = append(sessions, s)
	}
	gm.mu.RUnlock()

	out := make([]Summary, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// AddPlayer seats a player in a waiting session. Automated players without a
// difficulty play at medium.
func (gm *GameManager) AddPlayer(gameID, name string, kind models.PlayerKind, difficulty string) (models.Player, error) {
	s, err := gm.GetSession(gameID)
	if err != nil {
		return models.Player{}, err
	}
	if strings.TrimSpace(name) == "" {
		return models.Player{}, models.Errorf(models.CodeInvalidArgument, "player name is required")
	}
	switch kind {
	case models.PlayerKindHuman:
		difficulty = ""
	case models.PlayerKindAutomated:
		if difficulty == "" {
			difficulty = factory.DifficultyMedium
		}
		if !factory.ValidDifficulty(difficulty) {
			return models.Player{}, models.Errorf(models.CodeUnknownDifficulty, "unknown difficulty %q", difficulty)
		}
	default:
		return models.Player{}, models.Errorf(models.CodeInvalidArgument, "unknown player kind %q", kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine.State() != models.GameStateWaiting {
		return models.Player{}, models.Errorf(models.CodeIllegalTurnState, "game %s has already started", gameID)
	}
	if len(s.roster) >= s.rules.MaxPlayers {
		return models.Player{}, models.Errorf(models.CodeInvalidPlayerCount, "game %s is full", gameID)
	}

	p := models.NewPlayer(uuid.NewString(), name, kind, difficulty, s.rules.InitialCash)
	s.roster = append(s.roster, p)
	s.lastActive = gm.now()

	gm.logger.Infow("Player joined", "gameId", gameID, "playerId", p.ID, "kind", kind)
	return p.Clone(), nil
}

// StartGame seats the roster and starts the first round
func (gm *GameManager) StartGame(gameID string) error {
	s, err := gm.GetSession(gameID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	roster := make([]*models.Player, len(s.roster))
	for i, p := range s.roster {
		seat := p.Clone()
		roster[i] = &seat
	}
	e := s.engine
	s.lastActive = gm.now()
	s.mu.Unlock()

	return e.Start(roster)
}

// Do runs fn against the session's engine and marks the session active
func (gm *GameManager) Do(gameID string, fn func(e *engine.Engine) error) error {
	s, err := gm.GetSession(gameID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.lastActive = gm.now()
	e := s.engine
	s.mu.Unlock()
	return fn(e)
}

// PlayAutomatedTurns plays turns while the current player is automated, up to
// maxTurns, and returns the reports
func (gm *GameManager) PlayAutomatedTurns(gameID string, maxTurns int) ([]engine.TurnReport, error) {
	var reports []engine.TurnReport
	err := gm.Do(gameID, func(e *engine.Engine) error {
		for len(reports) < maxTurns && e.State() == models.GameStatePlaying {
			cur, ok := e.CurrentPlayer()
			if !ok || !cur.IsAutomated() {
				break
			}
			report, err := e.PlayAutomatedTurn()
			if err != nil {
				return err
			}
			reports = append(reports, report)
		}
		return nil
	})
	return reports, err
}

// RemoveGame drops a session. Its saves stay in the store.
func (gm *GameManager) RemoveGame(gameID string) error {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	if _, ok := gm.sessions[gameID]; !ok {
		return models.Errorf(models.CodeNotFound, "game %s not found", gameID)
	}
	delete(gm.sessions, gameID)
	gm.logger.Infow("Game removed", "gameId", gameID)
	return nil
}
