// Package engine runs one game session: the turn state machine, landing
// resolution and the automated player driver. Every state change goes through
// a command recorded in the session history.
package engine

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/richman/backend/internal/game/board"
	"github.com/richman/backend/internal/game/command"
	"github.com/richman/backend/internal/game/events"
	"github.com/richman/backend/internal/game/factory"
	"github.com/richman/backend/internal/game/models"
	"github.com/richman/backend/internal/game/strategy"
)

// Observer receives a notification after every committed action
type Observer interface {
	Notify(n models.Notification)
}

// StatsSink receives statistics facts. The engine never reads them back.
type StatsSink interface {
	Record(f models.Fact)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(n models.Notification)

func (f ObserverFunc) Notify(n models.Notification) { f(n) }

// Rand is the randomness used for dice, turn order, event draws and strategies
type Rand interface {
	Intn(n int) int
	Float64() float64
}

// Option configures an Engine
type Option func(*Engine)

// WithRand sets the random source, mainly for deterministic tests
func WithRand(rng Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithObserver registers an observer
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

// WithStats sets the statistics sink
func WithStats(s StatsSink) Option {
	return func(e *Engine) { e.stats = s }
}

// WithLogger sets the logger
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithGameID sets the session id used in notifications and facts
func WithGameID(id string) Option {
	return func(e *Engine) { e.id = id }
}

// Engine is the turn engine of one session. It is safe for concurrent use;
// calls are serialized.
type Engine struct {
	mu sync.RWMutex

	id        string
	config    models.GameConfig
	board     *board.Board
	factory   factory.ComponentFactory
	catalog   events.Catalog
	processor *events.Processor
	history   *command.History
	rng       Rand
	logger    *zap.SugaredLogger
	observers []Observer
	stats     StatsSink

	players    []*models.Player
	strategies map[string]strategy.Strategy

	state        models.GameState
	phase        models.TurnPhase
	currentIndex int
	round        int
	turnCount    int
	extraTurn    bool
	freeMove     bool
	lastRoll     []int
	landing      *Landing
	pendingTrade *strategy.TradeProposal
	open         *step

	pendingNotes []models.Notification
	pendingFacts []models.Fact
}

// New creates an engine in the waiting state. A nil board uses the default
// board and a nil factory the standard game mode.
func New(cfg models.GameConfig, b *board.Board, f factory.ComponentFactory, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b == nil {
		var err error
		if b, err = board.Default(); err != nil {
			return nil, err
		}
	}
	if f == nil {
		f = factory.Standard()
	}

	e := &Engine{
		config:     cfg,
		board:      b,
		factory:    f,
		catalog:    f.Catalog(),
		processor:  events.NewProcessor(b.JailPosition(), cfg.JailTurns),
		history:    command.NewHistory(cfg.HistoryCap),
		strategies: make(map[string]strategy.Strategy),
		state:      models.GameStateWaiting,
		phase:      models.PhaseAwaitingRoll,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.id == "" {
		e.id = uuid.NewString()
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if e.logger == nil {
		e.logger = zap.NewNop().Sugar()
	}
	return e, nil
}

// AddObserver registers an observer on a running engine
func (e *Engine) AddObserver(o Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, o)
}

// run executes fn under the write lock and then delivers what it produced
func (e *Engine) run(fn func() error) error {
	e.mu.Lock()
	err := fn()
	e.closeStep()
	notes, facts, observers := e.drainLocked()
	e.mu.Unlock()

	e.dispatch(notes, facts, observers)
	return err
}

func (e *Engine) drainLocked() ([]models.Notification, []models.Fact, []Observer) {
	notes, facts := e.pendingNotes, e.pendingFacts
	e.pendingNotes, e.pendingFacts = nil, nil
	observers := append([]Observer(nil), e.observers...)
	return notes, facts, observers
}

func (e *Engine) dispatch(notes []models.Notification, facts []models.Fact, observers []Observer) {
	if e.stats != nil {
		for _, f := range facts {
			e.safely("stats sink", func() { e.stats.Record(f) })
		}
	}
	for _, n := range notes {
		for _, o := range observers {
			e.safely("observer", func() { o.Notify(n) })
		}
	}
}

func (e *Engine) safely(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Errorw("Recovered from panic", "component", what, "gameId", e.id, "panic", r)
		}
	}()
	fn()
}

func (e *Engine) emit(t models.NotificationType, playerID, message string, data map[string]interface{}) {
	e.pendingNotes = append(e.pendingNotes, models.Notification{
		Type:      t,
		GameID:    e.id,
		PlayerID:  playerID,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	})
}

func (e *Engine) fact(t models.FactType, playerID string, amount int, detail string) {
	f := models.Fact{
		Type:      t,
		GameID:    e.id,
		PlayerID:  playerID,
		Amount:    amount,
		Detail:    detail,
		Timestamp: time.Now(),
	}
	e.pendingFacts = append(e.pendingFacts, f)
	if e.open != nil {
		e.open.facts = append(e.open.facts, f)
	}
}

// --- accessors ---

// ID returns the session id
func (e *Engine) ID() string {
	return e.id
}

// Mode returns the game mode of the component factory
func (e *Engine) Mode() string {
	return e.factory.Mode()
}

func (e *Engine) Config() models.GameConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.config
}

func (e *Engine) State() models.GameState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

func (e *Engine) Phase() models.TurnPhase {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.phase
}

func (e *Engine) Round() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.round
}

// Player returns a copy of the player with id
func (e *Engine) Player(id string) (models.Player, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p := e.playerByID(id)
	if p == nil {
		return models.Player{}, false
	}
	return p.Clone(), true
}

// Players returns copies of all players in turn order
func (e *Engine) Players() []models.Player {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.copyPlayers()
}

// CurrentPlayer returns a copy of the player whose turn it is
func (e *Engine) CurrentPlayer() (models.Player, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if len(e.players) == 0 {
		return models.Player{}, false
	}
	return e.current().Clone(), true
}

// Cell returns a copy of the cell at position
func (e *Engine) Cell(position int) models.Cell {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return *e.board.At(position)
}

// Cells returns copies of all cells
func (e *Engine) Cells() []models.Cell {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.board.Snapshot()
}

// History lists the undoable actions, oldest first
func (e *Engine) History() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.history.Descriptions()
}

// Winner returns the last player standing once the game is finished
func (e *Engine) Winner() (models.Player, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.state != models.GameStateFinished {
		return models.Player{}, false
	}
	active := e.activePlayers()
	if len(active) != 1 {
		return models.Player{}, false
	}
	return active[0].Clone(), true
}

// View is a read-only summary of the session
type View struct {
	GameID          string                  `json:"gameId"`
	Mode            string                  `json:"mode"`
	State           models.GameState        `json:"state"`
	Phase           models.TurnPhase        `json:"phase"`
	CurrentPlayerID string                  `json:"currentPlayerId,omitempty"`
	Round           int                     `json:"round"`
	TurnCount       int                     `json:"turnCount"`
	LastRoll        []int                   `json:"lastRoll,omitempty"`
	FreeMove        bool                    `json:"freeMove"`
	ExtraTurn       bool                    `json:"extraTurn"`
	CanUndo         bool                    `json:"canUndo"`
	CanRedo         bool                    `json:"canRedo"`
	Players         []models.Player         `json:"players"`
	Landing         *Landing                `json:"landing,omitempty"`
	PendingTrade    *strategy.TradeProposal `json:"pendingTrade,omitempty"`
}

// View summarizes the session
func (e *Engine) View() View {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.viewLocked()
}

func (e *Engine) viewLocked() View {
	v := View{
		GameID:    e.id,
		Mode:      e.factory.Mode(),
		State:     e.state,
		Phase:     e.phase,
		Round:     e.round,
		TurnCount: e.turnCount,
		LastRoll:  append([]int(nil), e.lastRoll...),
		FreeMove:  e.freeMove,
		ExtraTurn: e.extraTurn,
		CanUndo:   e.history.CanUndo(),
		CanRedo:   e.history.CanRedo(),
		Players:   e.copyPlayers(),
	}
	if len(e.players) > 0 {
		v.CurrentPlayerID = e.current().ID
	}
	v.Landing = copyLanding(e.landing)
	if e.pendingTrade != nil {
		t := *e.pendingTrade
		v.PendingTrade = &t
	}
	return v
}

// --- internal helpers, callers hold the lock ---

func (e *Engine) current() *models.Player {
	return e.players[e.currentIndex]
}

func (e *Engine) playerByID(id string) *models.Player {
	for _, p := range e.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (e *Engine) copyPlayers() []models.Player {
	out := make([]models.Player, len(e.players))
	for i, p := range e.players {
		out[i] = p.Clone()
	}
	return out
}

func (e *Engine) activePlayers() []*models.Player {
	var out []*models.Player
	for _, p := range e.players {
		if !p.Bankrupt {
			out = append(out, p)
		}
	}
	return out
}

func (e *Engine) strategyFor(p *models.Player) strategy.Strategy {
	s, ok := e.strategies[p.ID]
	if !ok {
		s = e.factory.CreateStrategy(p.Difficulty, e.rng)
		e.strategies[p.ID] = s
	}
	return s
}

func (e *Engine) requirePlaying() error {
	if e.state != models.GameStatePlaying {
		return models.Errorf(models.CodeIllegalTurnState, "game is %s", e.state)
	}
	return nil
}

func (e *Engine) requirePhase(allowed ...models.TurnPhase) error {
	if err := e.requirePlaying(); err != nil {
		return err
	}
	for _, ph := range allowed {
		if e.phase == ph {
			return nil
		}
	}
	return models.Errorf(models.CodeIllegalTurnState, "action not allowed during %s", e.phase)
}

// markBankrupt enforces the debt invariant and announces new bankruptcies
func (e *Engine) markBankrupt(p *models.Player, wasBankrupt bool) {
	if p.Cash < 0 {
		p.Bankrupt = true
	}
	if p.Bankrupt && !wasBankrupt {
		e.logger.Infow("Player bankrupt", "gameId", e.id, "playerId", p.ID, "cash", p.Cash)
		e.emit(models.NotifyBankruptcy, p.ID, p.Name+" is bankrupt", map[string]interface{}{"cash": p.Cash})
		e.fact(models.FactBankruptcy, p.ID, p.Cash, "")
	}
}
