package command

import (
	"fmt"

	"github.com/richman/backend/internal/game/events"
	"github.com/richman/backend/internal/game/models"
)

// ResolveEvent applies a drawn event through the processor. All players are
// snapshotted first because collect-from-each effects touch everyone.
type ResolveEvent struct {
	guard
	processor *events.Processor
	event     models.Event
	player    *models.Player
	all       []*models.Player

	before []models.Player
	result events.EffectResult
}

func NewResolveEvent(processor *events.Processor, event models.Event, player *models.Player, all []*models.Player) *ResolveEvent {
	return &ResolveEvent{processor: processor, event: event, player: player, all: all}
}

func (c *ResolveEvent) Execute() error {
	if err := c.begin("resolve event"); err != nil {
		return err
	}
	c.before = make([]models.Player, len(c.all))
	for i, p := range c.all {
		c.before[i] = p.Clone()
	}

	c.result = c.processor.Process(c.event, c.player, c.all)
	if d := c.result.Special.Discount; d > 0 && d < 1 {
		c.player.Discount = d
	}
	settle(c.player)
	c.executed = true
	return nil
}

func (c *ResolveEvent) Undo() error {
	if err := c.beginUndo("resolve event"); err != nil {
		return err
	}
	for i, p := range c.all {
		*p = c.before[i].Clone()
	}
	c.executed = false
	return nil
}

func (c *ResolveEvent) Describe() string {
	return fmt.Sprintf("%s draws %s: %s", c.player.Name, c.event.Kind, c.event.Title)
}

// Result returns what the last execution did
func (c *ResolveEvent) Result() events.EffectResult {
	return c.result
}
