package engine

import (
	"errors"

	"github.com/richman/backend/internal/game/models"
	"github.com/richman/backend/internal/game/strategy"
)

// maxRollsPerTurn bounds free move chains
const maxRollsPerTurn = 3

// TurnReport summarizes one automated turn
type TurnReport struct {
	PlayerID string    `json:"playerId"`
	Round    int       `json:"round"`
	Rolls    [][]int   `json:"rolls,omitempty"`
	Landings []Landing `json:"landings,omitempty"`
	Actions  []string  `json:"actions,omitempty"`
	Finished bool      `json:"finished"`
}

// PlayAutomatedTurn plays the current player's whole turn using its strategy
// and ends the turn
func (e *Engine) PlayAutomatedTurn() (TurnReport, error) {
	var report TurnReport
	err := e.run(func() error {
		var err error
		report, err = e.automatedTurnLocked()
		return err
	})
	return report, err
}

func (e *Engine) automatedTurnLocked() (TurnReport, error) {
	if err := e.requirePlaying(); err != nil {
		return TurnReport{}, err
	}
	p := e.current()
	if !p.IsAutomated() {
		return TurnReport{}, models.Errorf(models.CodeIllegalTurnState, "%s is not an automated player", p.Name)
	}
	strat := e.strategyFor(p)
	report := TurnReport{PlayerID: p.ID, Round: e.round}

	if e.phase == models.PhaseAwaitingRoll && p.InJail {
		if err := e.automatedJailLocked(p); err != nil {
			return report, err
		}
		report.Actions = append(report.Actions, "jail")
	}

	// Pick up a turn that was started through the single-step calls
	if e.phase == models.PhaseMoving {
		if _, err := e.moveLocked(sum(e.lastRoll)); err != nil {
			return report, err
		}
	}
	if e.phase == models.PhaseLanded {
		landing, err := e.resolveLocked()
		if err != nil {
			return report, err
		}
		report.Landings = append(report.Landings, landing)
	}

	for i := 0; i < maxRollsPerTurn && e.canRollLocked(); i++ {
		dice, err := e.rollLocked()
		if err != nil {
			return report, err
		}
		if dice == nil {
			break
		}
		report.Rolls = append(report.Rolls, dice)
		if _, err := e.moveLocked(sum(dice)); err != nil {
			return report, err
		}
		landing, err := e.resolveLocked()
		if err != nil {
			return report, err
		}
		report.Landings = append(report.Landings, landing)

		if landing.Outcome == OutcomePurchaseOffer && e.phase == models.PhaseAwaitingAction {
			cell := e.board.At(landing.Position)
			if strat.DecidePurchase(p, cell, e.board.OwnedBy(p.ID)) {
				if ok, err := e.attempt(e.purchaseLocked()); err != nil {
					return report, err
				} else if ok {
					report.Actions = append(report.Actions, "purchase "+cell.Name)
				}
			}
		}
	}

	if e.phase == models.PhaseAwaitingAction && !p.Bankrupt {
		if cell := strat.DecideUpgrade(p, e.board.OwnedBy(p.ID)); cell != nil {
			if ok, err := e.attempt(e.upgradeLocked(cell.Position)); err != nil {
				return report, err
			} else if ok {
				report.Actions = append(report.Actions, "upgrade "+cell.Name)
			}
		}
	}

	if !p.Bankrupt && e.phase != models.PhaseMoving && e.phase != models.PhaseLanded {
		if proposal := strat.DecideTrade(p, e.board.OwnedBy(p.ID), e.holdingsLocked()); proposal != nil {
			if e.tradeAcceptedLocked(*proposal) {
				_, offerErr := e.offerTradeLocked(*proposal)
				if ok, err := e.attempt(offerErr); err != nil {
					return report, err
				} else if ok {
					report.Actions = append(report.Actions, "trade")
				}
			} else {
				e.emit(models.NotifyTrade, p.ID, p.Name+" proposes a trade", map[string]interface{}{
					"proposal": proposal,
					"status":   "proposed",
				})
			}
		}
	}

	if err := e.endTurnLocked(); err != nil {
		return report, err
	}
	report.Finished = e.state == models.GameStateFinished
	return report, nil
}

func (e *Engine) canRollLocked() bool {
	return e.phase == models.PhaseAwaitingRoll || (e.phase == models.PhaseAwaitingAction && e.freeMove)
}

// attempt reports whether an automated action succeeded. Rejected game
// actions are logged and swallowed so the turn can carry on.
func (e *Engine) attempt(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	var ge *models.GameError
	if errors.As(err, &ge) {
		e.logger.Debugw("Automated action rejected", "gameId", e.id, "code", ge.Code, "error", err)
		return false, nil
	}
	return false, err
}

func (e *Engine) holdingsLocked() []strategy.Holding {
	out := make([]strategy.Holding, 0, len(e.players))
	for _, p := range e.players {
		out = append(out, strategy.Holding{Player: p, Cells: e.board.OwnedBy(p.ID)})
	}
	return out
}

// tradeAcceptedLocked decides on behalf of an automated counterparty. Human
// counterparties answer through the API, so proposals to them are only
// announced.
func (e *Engine) tradeAcceptedLocked(p strategy.TradeProposal) bool {
	to := e.playerByID(p.ToID)
	if to == nil || !to.IsAutomated() || to.Bankrupt {
		return false
	}
	requested := e.board.At(p.RequestCell)
	value := p.OfferCash
	if p.OfferCell >= 0 {
		value += e.board.At(p.OfferCell).Price
	}
	return value >= requested.Price
}

func sum(dice []int) int {
	total := 0
	for _, d := range dice {
		total += d
	}
	return total
}
