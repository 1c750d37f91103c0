package engine

import (
	"github.com/richman/backend/internal/game/command"
	"github.com/richman/backend/internal/game/models"
	"github.com/richman/backend/internal/game/strategy"
)

// Turn gives the current player's actions to a caller that already proved
// it is that player's turn. All of its methods run inside one engine call.
type Turn struct {
	e *Engine
}

// AsPlayer runs fn only while playerID holds the turn. The check and the
// actions share the engine lock, so the turn cannot pass in between.
func (e *Engine) AsPlayer(playerID string, fn func(t *Turn) error) error {
	return e.run(func() error {
		if err := e.requirePlaying(); err != nil {
			return err
		}
		if cur := e.current(); cur.ID != playerID {
			return models.Errorf(models.CodeIllegalTurnState, "it is not player %s's turn", playerID)
		}
		return fn(&Turn{e: e})
	})
}

func (t *Turn) JailDecision(action strategy.JailAction) error {
	return t.e.jailLocked(action)
}

func (t *Turn) RollDice() ([]int, error) {
	return t.e.rollLocked()
}

// Move advances by the last roll. Players do not pick their own distance.
func (t *Turn) Move() (int, bool, error) {
	if err := t.e.requirePhase(models.PhaseMoving); err != nil {
		return 0, false, err
	}
	steps := sum(t.e.lastRoll)
	passed, err := t.e.moveLocked(steps)
	return steps, passed, err
}

func (t *Turn) ResolveLanding() (Landing, error) {
	return t.e.resolveLocked()
}

func (t *Turn) Purchase() error {
	return t.e.purchaseLocked()
}

func (t *Turn) Upgrade(position int) error {
	return t.e.upgradeLocked(position)
}

func (t *Turn) EndTurn() error {
	return t.e.endTurnLocked()
}

func (t *Turn) Undo() command.Result {
	return t.e.undoLocked()
}

func (t *Turn) Redo() command.Result {
	return t.e.redoLocked()
}

// OfferTrade offers a trade from the current player to toID
func (t *Turn) OfferTrade(p strategy.TradeProposal) (TradeStatus, error) {
	return t.e.offerTradeLocked(p)
}

// View summarizes the session as of this point in the turn
func (t *Turn) View() View {
	return t.e.viewLocked()
}
