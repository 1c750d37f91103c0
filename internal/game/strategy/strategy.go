package strategy

import (
	"github.com/richman/backend/internal/game/models"
)

// Rand is the randomness strategies draw their probabilities from
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// JailAction is an automated player's choice at the start of a jailed turn
type JailAction string

const (
	JailPayFine JailAction = "pay_fine"
	JailUseCard JailAction = "use_card"
	JailWait    JailAction = "wait"
)

// Holding pairs a player with the cells it owns
type Holding struct {
	Player *models.Player
	Cells  []*models.Cell
}

// TradeProposal describes an offer from one player to another. RequestCell is
// the position the proposer wants; OfferCell is -1 when only cash is offered.
type TradeProposal struct {
	FromID      string `json:"fromId"`
	ToID        string `json:"toId"`
	RequestCell int    `json:"requestCell"`
	OfferCell   int    `json:"offerCell"`
	OfferCash   int    `json:"offerCash"`
}

// Strategy answers the four decisions an automated player makes
type Strategy interface {
	Kind() Kind
	DecidePurchase(p *models.Player, cell *models.Cell, owned []*models.Cell) bool
	DecideUpgrade(p *models.Player, owned []*models.Cell) *models.Cell
	DecideJailAction(p *models.Player, fine int) JailAction
	DecideTrade(p *models.Player, owned []*models.Cell, others []Holding) *TradeProposal
}

// Kind names a strategy variant
type Kind string

const (
	KindCautious   Kind = "cautious"
	KindBalanced   Kind = "balanced"
	KindAggressive Kind = "aggressive"
)

// New returns the strategy for kind. Unknown kinds get the balanced strategy.
func New(kind Kind, rng Rand) Strategy {
	switch kind {
	case KindCautious:
		return &Cautious{rng: rng}
	case KindAggressive:
		return &Aggressive{rng: rng}
	default:
		return &Balanced{rng: rng}
	}
}

func upgradable(owned []*models.Cell, cash, margin int) []*models.Cell {
	var out []*models.Cell
	for _, cell := range owned {
		if cell.CanUpgrade() && cell.UpgradeCost > 0 && cash >= cell.UpgradeCost+margin {
			out = append(out, cell)
		}
	}
	return out
}

func opposingCells(others []Holding, selfID string) []*models.Cell {
	var out []*models.Cell
	for _, h := range others {
		if h.Player == nil || h.Player.ID == selfID || h.Player.Bankrupt {
			continue
		}
		out = append(out, h.Cells...)
	}
	return out
}

// Cautious keeps a large reserve, buys cheap cells and never trades
type Cautious struct {
	rng Rand
}

func (s *Cautious) Kind() Kind { return KindCautious }

func (s *Cautious) DecidePurchase(p *models.Player, cell *models.Cell, owned []*models.Cell) bool {
	return cell.Price <= 2000 && p.Cash-3000 >= cell.Price
}

func (s *Cautious) DecideUpgrade(p *models.Player, owned []*models.Cell) *models.Cell {
	if p.Cash < 5000 || s.rng.Float64() >= 0.3 {
		return nil
	}
	var best *models.Cell
	for _, cell := range upgradable(owned, p.Cash, 2000) {
		if best == nil || cell.UpgradeCost < best.UpgradeCost {
			best = cell
		}
	}
	return best
}

func (s *Cautious) DecideJailAction(p *models.Player, fine int) JailAction {
	if p.HasItem(models.ItemJailFree) {
		return JailUseCard
	}
	if p.Cash > 3000 && p.JailTurns > 1 && p.CanAfford(fine) && s.rng.Float64() < 0.3 {
		return JailPayFine
	}
	return JailWait
}

func (s *Cautious) DecideTrade(p *models.Player, owned []*models.Cell, others []Holding) *TradeProposal {
	return nil
}

// Balanced gates purchases on rent yield and upgrades for marginal rent
type Balanced struct {
	rng Rand
}

func (s *Balanced) Kind() Kind { return KindBalanced }

func (s *Balanced) DecidePurchase(p *models.Player, cell *models.Cell, owned []*models.Cell) bool {
	if cell.Price <= 0 || p.Cash-cell.Price < 2000 {
		return false
	}
	roi := float64(cell.BaseRent) / float64(cell.Price)
	return roi > 0.08 || (roi > 0.05 && cell.Price < 3000) || len(owned) < 3
}

func (s *Balanced) DecideUpgrade(p *models.Player, owned []*models.Cell) *models.Cell {
	if p.Cash < 3000 || s.rng.Float64() >= 0.5 {
		return nil
	}
	var best *models.Cell
	bestGain := 0.0
	for _, cell := range upgradable(owned, p.Cash, 1500) {
		gain := float64(cell.RentAt(cell.Level+1)-cell.Rent()) / float64(cell.UpgradeCost)
		if best == nil || gain > bestGain {
			best, bestGain = cell, gain
		}
	}
	return best
}

func (s *Balanced) DecideJailAction(p *models.Player, fine int) JailAction {
	if p.HasItem(models.ItemJailFree) {
		return JailUseCard
	}
	if p.Cash > 2000 && p.CanAfford(fine) {
		if p.JailTurns >= 2 {
			return JailPayFine
		}
		if s.rng.Float64() < 0.6 {
			return JailWait
		}
		return JailPayFine
	}
	return JailWait
}

func (s *Balanced) DecideTrade(p *models.Player, owned []*models.Cell, others []Holding) *TradeProposal {
	if s.rng.Float64() >= 0.3 {
		return nil
	}
	var target *models.Cell
	for _, cell := range opposingCells(others, p.ID) {
		if target == nil || cell.Price < target.Price {
			target = cell
		}
	}
	if target == nil {
		return nil
	}
	offer := target.Price * 12 / 10
	if p.Cash < offer+2000 {
		return nil
	}
	return &TradeProposal{
		FromID:      p.ID,
		ToID:        target.OwnerID,
		RequestCell: target.Position,
		OfferCell:   -1,
		OfferCash:   offer,
	}
}

// Aggressive keeps a thin reserve and chases landmarks, hubs and expensive cells
type Aggressive struct {
	rng Rand
}

func (s *Aggressive) Kind() Kind { return KindAggressive }

func (s *Aggressive) DecidePurchase(p *models.Player, cell *models.Cell, owned []*models.Cell) bool {
	if p.Cash-cell.Price < 1000 {
		return false
	}
	switch cell.Category {
	case models.CellLandmark, models.CellTransitHub:
		return true
	}
	return cell.Price > 2000 || len(owned) < 5
}

func (s *Aggressive) DecideUpgrade(p *models.Player, owned []*models.Cell) *models.Cell {
	if p.Cash < 2000 || s.rng.Float64() >= 0.7 {
		return nil
	}
	candidates := upgradable(owned, p.Cash, 1000)
	var premium []*models.Cell
	for _, cell := range candidates {
		if cell.Price >= 2000 {
			premium = append(premium, cell)
		}
	}
	if len(premium) > 0 {
		candidates = premium
	}
	var best *models.Cell
	for _, cell := range candidates {
		if best == nil || cell.Rent() > best.Rent() {
			best = cell
		}
	}
	return best
}

func (s *Aggressive) DecideJailAction(p *models.Player, fine int) JailAction {
	if p.HasItem(models.ItemJailFree) {
		return JailUseCard
	}
	if !p.CanAfford(fine) {
		return JailWait
	}
	if p.Cash > 1500 {
		return JailPayFine
	}
	if p.JailTurns >= 2 && p.Cash >= 500 {
		return JailPayFine
	}
	return JailWait
}

func (s *Aggressive) DecideTrade(p *models.Player, owned []*models.Cell, others []Holding) *TradeProposal {
	if s.rng.Float64() >= 0.6 {
		return nil
	}
	var target *models.Cell
	for _, cell := range opposingCells(others, p.ID) {
		if target == nil || cell.Price > target.Price {
			target = cell
		}
	}
	if target == nil {
		return nil
	}

	if target.Price >= 2000 {
		offer := target.Price * 15 / 10
		if p.Cash >= offer+1000 {
			return &TradeProposal{
				FromID:      p.ID,
				ToID:        target.OwnerID,
				RequestCell: target.Position,
				OfferCell:   -1,
				OfferCash:   offer,
			}
		}
	}

	// Swap the cheapest own cell plus cash for the target
	var cheapest *models.Cell
	for _, cell := range owned {
		if cheapest == nil || cell.Price < cheapest.Price {
			cheapest = cell
		}
	}
	if cheapest == nil || cheapest.Position == target.Position {
		return nil
	}
	cash := target.Price*13/10 - cheapest.Price
	if cash < 0 {
		cash = 0
	}
	if p.Cash < cash+1000 {
		return nil
	}
	return &TradeProposal{
		FromID:      p.ID,
		ToID:        target.OwnerID,
		RequestCell: target.Position,
		OfferCell:   cheapest.Position,
		OfferCash:   cash,
	}
}
