package engine

import (
	"fmt"

	"github.com/richman/backend/internal/game/command"
	"github.com/richman/backend/internal/game/events"
	"github.com/richman/backend/internal/game/models"
)

// Outcome classifies what happened when a player landed
type Outcome string

const (
	OutcomeNone          Outcome = "none"
	OutcomePurchaseOffer Outcome = "purchase_offer"
	OutcomeUpgradeOffer  Outcome = "upgrade_offer"
	OutcomeRentPaid      Outcome = "rent_paid"
	OutcomeRentWaived    Outcome = "rent_waived"
	OutcomeOwnerBankrupt Outcome = "owner_bankrupt"
	OutcomeEvent         Outcome = "event"
	OutcomeTaxPaid       Outcome = "tax_paid"
	OutcomeSentToJail    Outcome = "sent_to_jail"
)

// Landing describes the resolution of the current player's cell
type Landing struct {
	PlayerID string               `json:"playerId"`
	Position int                  `json:"position"`
	Cell     models.Cell          `json:"cell"`
	Outcome  Outcome              `json:"outcome"`
	Amount   int                  `json:"amount,omitempty"`
	Event    *events.EffectResult `json:"event,omitempty"`
	Message  string               `json:"message"`
}

// ResolveLanding applies the effect of the cell the current player moved to
func (e *Engine) ResolveLanding() (Landing, error) {
	var landing Landing
	err := e.run(func() error {
		var err error
		landing, err = e.resolveLocked()
		return err
	})
	return landing, err
}

func (e *Engine) resolveLocked() (Landing, error) {
	if err := e.requirePhase(models.PhaseLanded); err != nil {
		return Landing{}, err
	}
	p := e.current()
	cell := e.board.At(p.Position)
	wasBankrupt := p.Bankrupt
	next := models.PhaseAwaitingAction

	landing := Landing{
		PlayerID: p.ID,
		Position: cell.Position,
		Outcome:  OutcomeNone,
		Message:  fmt.Sprintf("%s lands on %s", p.Name, cell.Name),
	}

	var err error
	switch cell.Category {
	case models.CellProperty, models.CellTransitHub, models.CellUtility, models.CellLandmark:
		err = e.resolveOwnableLocked(p, cell, &landing)
	case models.CellChance:
		err = e.resolveEventLocked(p, models.EventFortune, &landing)
	case models.CellMisfortune:
		err = e.resolveEventLocked(p, models.EventMisfortune, &landing)
	case models.CellTax:
		amount := e.config.TaxFor(cell.Name, p.Cash)
		if err = e.record(command.NewPayTax(p, amount, cell.Name)); err == nil {
			landing.Outcome = OutcomeTaxPaid
			landing.Amount = amount
			landing.Message = fmt.Sprintf("%s pays %d %s", p.Name, amount, cell.Name)
			e.fact(models.FactTaxPayment, p.ID, amount, cell.Name)
			e.emit(models.NotifyTaxPaid, p.ID, landing.Message, map[string]interface{}{"amount": amount, "cash": p.Cash})
		}
	case models.CellGoToJail:
		if err = e.record(command.NewSendToJail(p, e.board.JailPosition(), e.config.JailTurns)); err == nil {
			landing.Outcome = OutcomeSentToJail
			landing.Message = fmt.Sprintf("%s goes to jail", p.Name)
			e.fact(models.FactJailVisit, p.ID, 0, cell.Name)
			e.emit(models.NotifyJail, p.ID, landing.Message, map[string]interface{}{"turns": e.config.JailTurns})
		}
	}
	if err != nil {
		return Landing{}, err
	}

	if p.InJail || landing.Outcome == OutcomeSentToJail {
		next = models.PhaseTurnComplete
	}
	e.markBankrupt(p, wasBankrupt)
	if p.Bankrupt {
		next = models.PhaseTurnComplete
	}

	landing.Cell = *e.board.At(landing.Position)
	e.landing = &landing
	e.phase = next
	e.emit(models.NotifyLanding, p.ID, landing.Message, map[string]interface{}{
		"position": landing.Position,
		"outcome":  landing.Outcome,
		"amount":   landing.Amount,
	})
	return landing, nil
}

func (e *Engine) resolveOwnableLocked(p *models.Player, cell *models.Cell, landing *Landing) error {
	switch {
	case !cell.IsOwned():
		landing.Outcome = OutcomePurchaseOffer
		landing.Amount = command.PriceFor(p, cell)
		landing.Message = fmt.Sprintf("%s may buy %s for %d", p.Name, cell.Name, landing.Amount)
		return nil
	case cell.OwnerID == p.ID:
		if cell.CanUpgrade() {
			landing.Outcome = OutcomeUpgradeOffer
			landing.Amount = cell.UpgradeCost
			landing.Message = fmt.Sprintf("%s may upgrade %s for %d", p.Name, cell.Name, cell.UpgradeCost)
		}
		return nil
	}

	owner := e.playerByID(cell.OwnerID)
	if owner == nil || owner.Bankrupt {
		landing.Outcome = OutcomeOwnerBankrupt
		landing.Message = fmt.Sprintf("%s lands on %s, the owner is out of the game", p.Name, cell.Name)
		return nil
	}

	rent := command.NewPayRent(p, owner, cell)
	if err := e.record(rent); err != nil {
		return err
	}
	if rent.Waived() {
		landing.Outcome = OutcomeRentWaived
		landing.Message = fmt.Sprintf("%s uses a rent waiver on %s", p.Name, cell.Name)
		e.emit(models.NotifyRentPaid, p.ID, landing.Message, map[string]interface{}{"waived": true, "owner": owner.ID})
		return nil
	}

	landing.Outcome = OutcomeRentPaid
	landing.Amount = rent.Rent()
	landing.Message = fmt.Sprintf("%s pays %d rent to %s", p.Name, rent.Rent(), owner.Name)
	e.fact(models.FactRentPayment, p.ID, rent.Rent(), cell.Name)
	e.fact(models.FactRentCollection, owner.ID, rent.Collected(), cell.Name)
	e.emit(models.NotifyRentPaid, p.ID, landing.Message, map[string]interface{}{
		"amount": rent.Rent(),
		"owner":  owner.ID,
		"level":  cell.Level.String(),
	})
	return nil
}

func (e *Engine) resolveEventLocked(p *models.Player, kind models.EventKind, landing *Landing) error {
	ev, ok := e.catalog.Draw(kind, e.rng)
	if !ok {
		return nil
	}

	cmd := command.NewResolveEvent(e.processor, ev, p, e.players)
	if err := e.record(cmd); err != nil {
		return err
	}
	res := cmd.Result()
	landing.Outcome = OutcomeEvent
	landing.Event = &res
	landing.Amount = res.CashDelta
	landing.Message = fmt.Sprintf("%s: %s", ev.Title, ev.Description)
	if res.Moved {
		landing.Position = res.MovedTo
	}

	if kind == models.EventFortune {
		e.fact(models.FactLuckyEvent, p.ID, 0, ev.Title)
		if res.CashDelta > 0 {
			e.fact(models.FactLuckyBonus, p.ID, res.CashDelta, ev.Title)
		}
	} else {
		e.fact(models.FactUnluckyEvent, p.ID, 0, ev.Title)
		if res.CashDelta < 0 {
			e.fact(models.FactUnluckyPenalty, p.ID, -res.CashDelta, ev.Title)
		}
	}
	if res.SentToJail {
		e.fact(models.FactJailVisit, p.ID, 0, ev.Title)
	}
	if res.Special.ExtraTurn {
		e.extraTurn = true
	}
	if res.Special.FreeMove {
		e.freeMove = true
	}

	e.emit(models.NotifyEvent, p.ID, landing.Message, map[string]interface{}{
		"kind":     ev.Kind,
		"title":    ev.Title,
		"effects":  ev.Effects,
		"result":   res,
		"messages": res.Messages,
	})
	return nil
}
