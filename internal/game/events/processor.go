package events

import (
	"fmt"

	"github.com/richman/backend/internal/game/models"
)

// Special carries effects the turn engine acts on instead of the processor
type Special struct {
	FreeMove  bool    `json:"freeMove,omitempty"`
	ExtraTurn bool    `json:"extraTurn,omitempty"`
	Discount  float64 `json:"discount,omitempty"`
}

// Any reports whether any special effect is set
func (s Special) Any() bool {
	return s.FreeMove || s.ExtraTurn || s.Discount > 0
}

// EffectResult describes what processing an event did
type EffectResult struct {
	Event       models.Event `json:"event"`
	PlayerID    string       `json:"playerId"`
	CashDelta   int          `json:"cashDelta"`
	Collected   int          `json:"collected,omitempty"`
	Payers      []string     `json:"payers,omitempty"`
	RepairCost  int          `json:"repairCost,omitempty"`
	ExtraTax    int          `json:"extraTax,omitempty"`
	SentToJail  bool         `json:"sentToJail,omitempty"`
	MovedTo     int          `json:"movedTo"`
	Moved       bool         `json:"moved,omitempty"`
	ItemGranted models.Item  `json:"itemGranted,omitempty"`
	Special     Special      `json:"special"`
	Messages    []string     `json:"messages"`
}

// Processor applies event effect descriptors to players
type Processor struct {
	jailPosition int
	jailTurns    int
}

// NewProcessor creates a processor that jails players at jailPosition for jailTurns
func NewProcessor(jailPosition, jailTurns int) *Processor {
	return &Processor{jailPosition: jailPosition, jailTurns: jailTurns}
}

// Process applies event to player. Cash may go negative; the caller settles
// bankruptcy. Free move, extra turn and discount are only reported.
func (p *Processor) Process(event models.Event, player *models.Player, all []*models.Player) EffectResult {
	eff := event.Effects
	res := EffectResult{
		Event:    event,
		PlayerID: player.ID,
		MovedTo:  player.Position,
	}
	start := player.Cash

	if eff.Money > 0 {
		player.Cash += eff.Money
		res.Messages = append(res.Messages, fmt.Sprintf("%s receives %d", player.Name, eff.Money))
	} else if eff.Money < 0 {
		player.Cash += eff.Money
		res.Messages = append(res.Messages, fmt.Sprintf("%s pays %d", player.Name, -eff.Money))
	}

	if eff.CollectFromEach > 0 {
		for _, other := range all {
			if other.ID == player.ID || other.Bankrupt || !other.CanAfford(eff.CollectFromEach) {
				continue
			}
			other.Cash -= eff.CollectFromEach
			res.Collected += eff.CollectFromEach
			res.Payers = append(res.Payers, other.ID)
		}
		player.Cash += res.Collected
		res.Messages = append(res.Messages, fmt.Sprintf("%s collects %d from %d players", player.Name, res.Collected, len(res.Payers)))
	}

	if eff.RepairPerProperty > 0 {
		res.RepairCost = eff.RepairPerProperty * len(player.Properties)
		player.Cash -= res.RepairCost
		res.Messages = append(res.Messages, fmt.Sprintf("%s pays %d for repairs on %d properties", player.Name, res.RepairCost, len(player.Properties)))
	}

	if eff.ExtraTaxRate > 0 && player.Cash > 0 {
		res.ExtraTax = int(float64(player.Cash) * eff.ExtraTaxRate)
		player.Cash -= res.ExtraTax
		res.Messages = append(res.Messages, fmt.Sprintf("%s pays %d extra tax", player.Name, res.ExtraTax))
	}

	if eff.MoveBack > 0 {
		target := player.Position - eff.MoveBack
		if target < 0 {
			target = 0
		}
		player.Position = target
		res.Moved = true
		res.MovedTo = target
		res.Messages = append(res.Messages, fmt.Sprintf("%s moves back to %d", player.Name, target))
	}

	if eff.GoToJail {
		player.Position = p.jailPosition
		player.InJail = true
		player.JailTurns = p.jailTurns
		res.SentToJail = true
		res.Moved = true
		res.MovedTo = p.jailPosition
		res.Messages = append(res.Messages, fmt.Sprintf("%s goes to jail for %d turns", player.Name, p.jailTurns))
	}

	if eff.GrantItem != "" {
		player.Items = append(player.Items, eff.GrantItem)
		res.ItemGranted = eff.GrantItem
		res.Messages = append(res.Messages, fmt.Sprintf("%s receives a %s card", player.Name, eff.GrantItem))
	}

	res.Special = Special{
		FreeMove:  eff.FreeMove,
		ExtraTurn: eff.ExtraTurn,
		Discount:  eff.Discount,
	}

	res.CashDelta = player.Cash - start
	return res
}
