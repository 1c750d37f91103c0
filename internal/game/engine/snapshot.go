package engine

import (
	"time"

	"github.com/richman/backend/internal/game/command"
	"github.com/richman/backend/internal/game/events"
	"github.com/richman/backend/internal/game/models"
	"github.com/richman/backend/internal/game/strategy"
)

// SaveSnapshot captures the session state under name. The command history is
// not included, only its descriptions.
func (e *Engine) SaveSnapshot(name string) models.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s := models.Snapshot{
		GameID:       e.id,
		Name:         name,
		Mode:         e.factory.Mode(),
		Config:       e.config,
		Players:      e.copyPlayers(),
		Cells:        e.board.Snapshot(),
		State:        e.state,
		Phase:        e.phase,
		CurrentIndex: e.currentIndex,
		Round:        e.round,
		TurnCount:    e.turnCount,
		ExtraTurn:    e.extraTurn,
		FreeMove:     e.freeMove,
		LastRoll:     append([]int(nil), e.lastRoll...),
		History:      e.history.Descriptions(),
		SavedAt:      time.Now().UTC(),
	}
	s.Seal()
	return s
}

// LoadSnapshot replaces the session state. The command history starts empty.
func (e *Engine) LoadSnapshot(s models.Snapshot) error {
	return e.run(func() error {
		if s.Checksum != "" && !s.Verify() {
			return models.Errorf(models.CodeInvalidArgument, "snapshot %q failed its checksum", s.Name)
		}
		if err := s.Config.Validate(); err != nil {
			return err
		}
		if len(s.Players) > 0 && (s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Players)) {
			return models.Errorf(models.CodeInvalidArgument, "snapshot current index %d out of range", s.CurrentIndex)
		}
		if err := e.board.Restore(s.Cells); err != nil {
			return models.Errorf(models.CodeInvalidArgument, "snapshot does not fit the board: %v", err)
		}

		players := make([]*models.Player, len(s.Players))
		for i := range s.Players {
			p := s.Players[i].Clone()
			players[i] = &p
		}

		e.config = s.Config
		e.processor = events.NewProcessor(e.board.JailPosition(), s.Config.JailTurns)
		e.history = command.NewHistory(s.Config.HistoryCap)
		e.open = nil
		e.players = players
		e.strategies = make(map[string]strategy.Strategy)
		for _, p := range players {
			if p.IsAutomated() {
				e.strategyFor(p)
			}
		}
		e.state = s.State
		e.phase = s.Phase
		e.currentIndex = s.CurrentIndex
		e.round = s.Round
		e.turnCount = s.TurnCount
		e.extraTurn = s.ExtraTurn
		e.freeMove = s.FreeMove
		e.lastRoll = append([]int(nil), s.LastRoll...)
		e.landing = nil
		e.pendingTrade = nil

		e.logger.Infow("Snapshot loaded", "gameId", e.id, "name", s.Name, "round", s.Round)
		e.emit(models.NotifySnapshotLoaded, "", "Loaded save "+s.Name, map[string]interface{}{
			"name":  s.Name,
			"round": s.Round,
		})
		return nil
	})
}
