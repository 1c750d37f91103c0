package command

import (
	"fmt"

	"github.com/richman/backend/internal/game/models"
)

// Move advances a player around a board of boardLen cells. Passing or landing
// on start pays bonus.
type Move struct {
	guard
	player   *models.Player
	steps    int
	boardLen int
	bonus    int

	prevPosition int
	passed       bool
}

func NewMove(player *models.Player, steps, boardLen, bonus int) *Move {
	return &Move{player: player, steps: steps, boardLen: boardLen, bonus: bonus}
}

func (c *Move) Execute() error {
	if err := c.begin("move"); err != nil {
		return err
	}
	if c.steps < 0 || c.boardLen <= 0 {
		return models.Errorf(models.CodeInvalidArgument, "cannot move %d steps on a board of %d cells", c.steps, c.boardLen)
	}

	c.prevPosition = c.player.Position
	next := (c.prevPosition + c.steps) % c.boardLen
	c.passed = c.steps > 0 && (next < c.prevPosition || c.prevPosition+c.steps >= c.boardLen)

	c.player.Position = next
	if c.passed {
		c.player.Cash += c.bonus
	}
	c.executed = true
	return nil
}

func (c *Move) Undo() error {
	if err := c.beginUndo("move"); err != nil {
		return err
	}
	c.player.Position = c.prevPosition
	if c.passed {
		c.player.Cash -= c.bonus
	}
	c.executed = false
	return nil
}

func (c *Move) Describe() string {
	return fmt.Sprintf("%s moves %d steps", c.player.Name, c.steps)
}

// PassedStart reports whether the last execution crossed the start cell
func (c *Move) PassedStart() bool {
	return c.passed
}

// SendToJail moves a player to the jail cell for a number of turns
type SendToJail struct {
	guard
	player       *models.Player
	jailPosition int
	turns        int

	prev models.Player
}

func NewSendToJail(player *models.Player, jailPosition, turns int) *SendToJail {
	return &SendToJail{player: player, jailPosition: jailPosition, turns: turns}
}

func (c *SendToJail) Execute() error {
	if err := c.begin("send to jail"); err != nil {
		return err
	}
	c.prev = c.player.Clone()
	c.player.Position = c.jailPosition
	c.player.InJail = true
	c.player.JailTurns = c.turns
	c.executed = true
	return nil
}

func (c *SendToJail) Undo() error {
	if err := c.beginUndo("send to jail"); err != nil {
		return err
	}
	c.player.Position = c.prev.Position
	c.player.InJail = c.prev.InJail
	c.player.JailTurns = c.prev.JailTurns
	c.executed = false
	return nil
}

func (c *SendToJail) Describe() string {
	return fmt.Sprintf("%s goes to jail for %d turns", c.player.Name, c.turns)
}

// JailRelease frees a jailed player
type JailRelease struct {
	guard
	player  *models.Player
	useCard bool
	fine    int

	prevTurns int
	cardIndex int
}

// NewPayJailFine releases player for fine. The fine is voluntary so the
// player must be able to cover it.
func NewPayJailFine(player *models.Player, fine int) *JailRelease {
	return &JailRelease{player: player, fine: fine}
}

// NewUseJailCard releases player by consuming a jail-free card
func NewUseJailCard(player *models.Player) *JailRelease {
	return &JailRelease{player: player, useCard: true}
}

func (c *JailRelease) Execute() error {
	if err := c.begin("jail release"); err != nil {
		return err
	}
	if !c.player.InJail {
		return models.Errorf(models.CodeIllegalTurnState, "%s is not in jail", c.player.Name)
	}

	if c.useCard {
		idx := c.player.ConsumeItem(models.ItemJailFree)
		if idx < 0 {
			return models.Errorf(models.CodeInvalidArgument, "%s has no jail-free card", c.player.Name)
		}
		c.cardIndex = idx
	} else {
		if !c.player.CanAfford(c.fine) {
			return models.Errorf(models.CodeInsufficientFunds, "%s cannot pay the jail fine of %d", c.player.Name, c.fine)
		}
		c.player.Cash -= c.fine
	}

	c.prevTurns = c.player.JailTurns
	c.player.InJail = false
	c.player.JailTurns = 0
	c.executed = true
	return nil
}

func (c *JailRelease) Undo() error {
	if err := c.beginUndo("jail release"); err != nil {
		return err
	}
	if c.useCard {
		c.player.RestoreItem(c.cardIndex, models.ItemJailFree)
	} else {
		c.player.Cash += c.fine
	}
	c.player.InJail = true
	c.player.JailTurns = c.prevTurns
	c.executed = false
	return nil
}

func (c *JailRelease) Describe() string {
	if c.useCard {
		return fmt.Sprintf("%s uses a jail-free card", c.player.Name)
	}
	return fmt.Sprintf("%s pays a jail fine of %d", c.player.Name, c.fine)
}

// JailWait serves one jailed turn, releasing the player when none remain
type JailWait struct {
	guard
	player *models.Player

	prevTurns int
}

func NewJailWait(player *models.Player) *JailWait {
	return &JailWait{player: player}
}

func (c *JailWait) Execute() error {
	if err := c.begin("jail wait"); err != nil {
		return err
	}
	if !c.player.InJail {
		return models.Errorf(models.CodeIllegalTurnState, "%s is not in jail", c.player.Name)
	}
	c.prevTurns = c.player.JailTurns
	c.player.JailTurns--
	if c.player.JailTurns <= 0 {
		c.player.JailTurns = 0
		c.player.InJail = false
	}
	c.executed = true
	return nil
}

func (c *JailWait) Undo() error {
	if err := c.beginUndo("jail wait"); err != nil {
		return err
	}
	c.player.JailTurns = c.prevTurns
	c.player.InJail = true
	c.executed = false
	return nil
}

func (c *JailWait) Describe() string {
	return fmt.Sprintf("%s waits in jail", c.player.Name)
}

// Released reports whether the wait ended the sentence
func (c *JailWait) Released() bool {
	return c.executed && !c.player.InJail
}
