package engine

import (
	"fmt"

	"github.com/richman/backend/internal/game/command"
	"github.com/richman/backend/internal/game/models"
	"github.com/richman/backend/internal/game/strategy"
)

// ProposeTrade asks the strategy of automated player playerID for a trade.
// It returns nil when the strategy does not want to trade.
func (e *Engine) ProposeTrade(playerID string) (*strategy.TradeProposal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requirePlaying(); err != nil {
		return nil, err
	}
	p := e.playerByID(playerID)
	if p == nil {
		return nil, models.Errorf(models.CodeNotFound, "player %s not found", playerID)
	}
	if !p.IsAutomated() || p.Bankrupt {
		return nil, models.Errorf(models.CodeInvalidArgument, "%s cannot propose trades", p.Name)
	}
	return e.strategyFor(p).DecideTrade(p, e.board.OwnedBy(p.ID), e.holdingsLocked()), nil
}

// TradeStatus reports where an offered trade stands
type TradeStatus string

const (
	TradeAccepted TradeStatus = "accepted"
	TradePending  TradeStatus = "pending"
)

// OfferTrade puts a trade from the current player to another player. An
// automated counterparty answers at once through its own valuation; a human
// counterparty has to accept with RespondTrade before anything changes hands.
func (e *Engine) OfferTrade(p strategy.TradeProposal) (TradeStatus, error) {
	var status TradeStatus
	err := e.run(func() error {
		var err error
		status, err = e.offerTradeLocked(p)
		return err
	})
	return status, err
}

func (e *Engine) offerTradeLocked(p strategy.TradeProposal) (TradeStatus, error) {
	if err := e.validateTradeLocked(p); err != nil {
		return "", err
	}
	from := e.current()
	if from.ID != p.FromID {
		return "", models.Errorf(models.CodeIllegalTurnState, "only %s can offer trades this turn", from.Name)
	}
	if e.pendingTrade != nil {
		return "", models.Errorf(models.CodeIllegalTurnState, "a trade is already waiting for an answer")
	}

	to := e.playerByID(p.ToID)
	if to.IsAutomated() {
		if !e.tradeAcceptedLocked(p) {
			e.emit(models.NotifyTrade, from.ID, fmt.Sprintf("%s turns down a trade from %s", to.Name, from.Name),
				map[string]interface{}{"proposal": p, "status": "rejected"})
			return "", models.Errorf(models.CodeTradeRejected, "%s rejects the offer", to.Name)
		}
		return TradeAccepted, e.executeTradeLocked(p)
	}

	offer := p
	e.pendingTrade = &offer
	e.emit(models.NotifyTrade, from.ID, fmt.Sprintf("%s offers %s a trade", from.Name, to.Name),
		map[string]interface{}{"proposal": p, "status": TradePending})
	return TradePending, nil
}

// RespondTrade answers the pending trade on behalf of its counterparty
func (e *Engine) RespondTrade(playerID string, accept bool) error {
	return e.run(func() error {
		pending := e.pendingTrade
		if pending == nil {
			return models.Errorf(models.CodeIllegalTurnState, "no trade is waiting for an answer")
		}
		if pending.ToID != playerID {
			return models.Errorf(models.CodeIllegalTurnState, "the pending trade is not addressed to %s", playerID)
		}
		e.pendingTrade = nil
		if !accept {
			e.emit(models.NotifyTrade, playerID, "Trade declined",
				map[string]interface{}{"proposal": *pending, "status": "declined"})
			return nil
		}
		if err := e.validateTradeLocked(*pending); err != nil {
			return err
		}
		return e.executeTradeLocked(*pending)
	})
}

// PendingTrade returns the trade waiting for its counterparty, if any
func (e *Engine) PendingTrade() (strategy.TradeProposal, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.pendingTrade == nil {
		return strategy.TradeProposal{}, false
	}
	return *e.pendingTrade, true
}

// validateTradeLocked checks the parties, the cells and that something is offered
func (e *Engine) validateTradeLocked(p strategy.TradeProposal) error {
	if err := e.requirePhase(models.PhaseAwaitingRoll, models.PhaseAwaitingAction, models.PhaseTurnComplete); err != nil {
		return err
	}
	from, to := e.playerByID(p.FromID), e.playerByID(p.ToID)
	if from == nil || to == nil {
		return models.Errorf(models.CodeNotFound, "trade parties not found")
	}
	if from == to {
		return models.Errorf(models.CodeInvalidArgument, "cannot trade with oneself")
	}
	if from.Bankrupt || to.Bankrupt {
		return models.Errorf(models.CodeInvalidArgument, "bankrupt players cannot trade")
	}
	if p.OfferCash < 0 {
		return models.Errorf(models.CodeInvalidArgument, "offer cannot be negative")
	}
	if p.OfferCash == 0 && p.OfferCell < 0 {
		return models.Errorf(models.CodeInvalidArgument, "a trade has to offer cash or a property")
	}
	if !e.validCell(p.RequestCell) || (p.OfferCell >= 0 && !e.validCell(p.OfferCell)) {
		return models.Errorf(models.CodeInvalidArgument, "trade names a cell off the board")
	}
	if e.board.At(p.RequestCell).OwnerID != to.ID {
		return models.Errorf(models.CodeNotOwner, "%s does not own cell %d", to.Name, p.RequestCell)
	}
	if p.OfferCell >= 0 && e.board.At(p.OfferCell).OwnerID != from.ID {
		return models.Errorf(models.CodeNotOwner, "%s does not own cell %d", from.Name, p.OfferCell)
	}
	return nil
}

// executeTradeLocked transfers everything as one undoable action. Either
// every transfer happens or none does. Callers have validated p and obtained
// the counterparty's consent.
func (e *Engine) executeTradeLocked(p strategy.TradeProposal) error {
	from, to := e.playerByID(p.FromID), e.playerByID(p.ToID)
	requested := e.board.At(p.RequestCell)
	legs := []command.Command{command.NewTransferProperty(to, from, requested)}
	if p.OfferCell >= 0 {
		legs = append(legs, command.NewTransferProperty(from, to, e.board.At(p.OfferCell)))
	}
	if p.OfferCash > 0 {
		legs = append(legs, command.NewTransferCash(from, to, p.OfferCash))
	}
	if err := e.record(command.NewMacro("trade", legs...)); err != nil {
		return err
	}

	msg := fmt.Sprintf("%s acquires %s from %s", from.Name, requested.Name, to.Name)
	e.fact(models.FactTrade, from.ID, -p.OfferCash, requested.Name)
	e.fact(models.FactTrade, to.ID, p.OfferCash, requested.Name)
	e.emit(models.NotifyTrade, from.ID, msg, map[string]interface{}{
		"proposal": p,
		"status":   TradeAccepted,
	})
	return nil
}

func (e *Engine) validCell(position int) bool {
	return position >= 0 && position < e.board.Len()
}
