package engine

import (
	"fmt"

	"github.com/richman/backend/internal/game/command"
	"github.com/richman/backend/internal/game/models"
	"github.com/richman/backend/internal/game/strategy"
)

// Start seats players in random order and begins the first round
func (e *Engine) Start(players []*models.Player) error {
	return e.run(func() error { return e.startLocked(players) })
}

func (e *Engine) startLocked(players []*models.Player) error {
	if e.state != models.GameStateWaiting {
		return models.Errorf(models.CodeIllegalTurnState, "game is %s", e.state)
	}

	minPlayers := e.config.MinPlayers
	if minPlayers < 2 {
		minPlayers = 2
	}
	active := 0
	seen := make(map[string]bool, len(players))
	for _, p := range players {
		if p == nil || p.ID == "" {
			return models.Errorf(models.CodeInvalidArgument, "players need an id")
		}
		if seen[p.ID] {
			return models.Errorf(models.CodeInvalidArgument, "duplicate player id %s", p.ID)
		}
		seen[p.ID] = true
		if !p.Bankrupt {
			active++
		}
	}
	if active < minPlayers || len(players) > e.config.MaxPlayers {
		return models.Errorf(models.CodeInvalidPlayerCount,
			"need %d to %d players, got %d active of %d", minPlayers, e.config.MaxPlayers, active, len(players))
	}

	seated := append([]*models.Player(nil), players...)
	for i := len(seated) - 1; i > 0; i-- {
		j := e.rng.Intn(i + 1)
		seated[i], seated[j] = seated[j], seated[i]
	}
	e.players = seated
	for _, p := range e.players {
		if p.IsAutomated() {
			e.strategyFor(p)
		}
	}

	e.history.Clear()
	e.open = nil
	e.pendingTrade = nil
	e.state = models.GameStatePlaying
	e.phase = models.PhaseAwaitingRoll
	e.currentIndex = 0
	if e.current().Bankrupt {
		e.advanceLocked()
	}
	e.round = 1
	e.turnCount = 0

	order := make([]string, len(e.players))
	for i, p := range e.players {
		order[i] = p.ID
	}
	e.logger.Infow("Game started", "gameId", e.id, "mode", e.factory.Mode(), "players", len(e.players))
	e.emit(models.NotifyGameStarted, e.current().ID, "Game started", map[string]interface{}{
		"order": order,
		"mode":  e.factory.Mode(),
	})
	return nil
}

// JailDecision applies a jailed player's choice at the start of the turn.
// Paying or using a card frees the player to roll. Waiting serves one turn and
// ends it unless the sentence is over.
func (e *Engine) JailDecision(action strategy.JailAction) error {
	return e.run(func() error { return e.jailLocked(action) })
}

func (e *Engine) jailLocked(action strategy.JailAction) error {
	if err := e.requirePhase(models.PhaseAwaitingRoll); err != nil {
		return err
	}
	p := e.current()
	if !p.InJail {
		return models.Errorf(models.CodeIllegalTurnState, "%s is not in jail", p.Name)
	}

	switch action {
	case strategy.JailPayFine:
		if err := e.record(command.NewPayJailFine(p, e.config.JailFine)); err != nil {
			return err
		}
		e.emit(models.NotifyJail, p.ID, fmt.Sprintf("%s pays %d to leave jail", p.Name, e.config.JailFine),
			map[string]interface{}{"action": action, "fine": e.config.JailFine})
	case strategy.JailUseCard:
		if err := e.record(command.NewUseJailCard(p)); err != nil {
			return err
		}
		e.emit(models.NotifyJail, p.ID, p.Name+" uses a jail-free card", map[string]interface{}{"action": action})
	case strategy.JailWait:
		wait := command.NewJailWait(p)
		if err := e.record(wait); err != nil {
			return err
		}
		if wait.Released() {
			e.emit(models.NotifyJail, p.ID, p.Name+" has served the sentence", map[string]interface{}{"action": action, "released": true})
		} else {
			e.phase = models.PhaseTurnComplete
			e.emit(models.NotifyJail, p.ID, fmt.Sprintf("%s waits in jail, %d turns left", p.Name, p.JailTurns),
				map[string]interface{}{"action": action, "turnsLeft": p.JailTurns})
		}
	default:
		return models.Errorf(models.CodeInvalidArgument, "unknown jail action %q", action)
	}
	return nil
}

// RollDice rolls the configured dice. It is allowed at the start of a turn or
// once more after a free move event. A jailed automated player decides its
// jail action first; when it stays in jail no dice are rolled.
func (e *Engine) RollDice() ([]int, error) {
	var dice []int
	err := e.run(func() error {
		var err error
		dice, err = e.rollLocked()
		return err
	})
	return dice, err
}

func (e *Engine) rollLocked() ([]int, error) {
	if err := e.requirePlaying(); err != nil {
		return nil, err
	}
	freeMove := e.phase == models.PhaseAwaitingAction && e.freeMove
	if e.phase != models.PhaseAwaitingRoll && !freeMove {
		return nil, models.Errorf(models.CodeIllegalTurnState, "cannot roll during %s", e.phase)
	}

	p := e.current()
	if p.InJail && !freeMove {
		if !p.IsAutomated() {
			return nil, models.Errorf(models.CodeIllegalTurnState, "%s must choose a jail action first", p.Name)
		}
		if err := e.automatedJailLocked(p); err != nil {
			return nil, err
		}
		if e.phase != models.PhaseAwaitingRoll {
			return nil, nil
		}
	}

	dice := make([]int, e.config.DiceCount)
	total := 0
	for i := range dice {
		dice[i] = e.rng.Intn(e.config.DiceSides) + 1
		total += dice[i]
	}
	if freeMove {
		e.freeMove = false
	}
	e.lastRoll = dice
	e.phase = models.PhaseMoving

	e.emit(models.NotifyDiceRolled, p.ID, fmt.Sprintf("%s rolls %v", p.Name, dice),
		map[string]interface{}{"dice": dice, "total": total})
	return dice, nil
}

func (e *Engine) automatedJailLocked(p *models.Player) error {
	action := e.strategyFor(p).DecideJailAction(p, e.config.JailFine)
	if err := e.jailLocked(action); err != nil {
		if action == strategy.JailWait {
			return err
		}
		e.logger.Debugw("Jail action failed, waiting instead", "gameId", e.id, "playerId", p.ID, "action", action, "error", err)
		return e.jailLocked(strategy.JailWait)
	}
	return nil
}

// MovePlayer moves the current player steps cells forward and reports
// whether start was passed
func (e *Engine) MovePlayer(steps int) (bool, error) {
	var passed bool
	err := e.run(func() error {
		var err error
		passed, err = e.moveLocked(steps)
		return err
	})
	return passed, err
}

func (e *Engine) moveLocked(steps int) (bool, error) {
	if err := e.requirePhase(models.PhaseMoving); err != nil {
		return false, err
	}
	p := e.current()
	from := p.Position
	move := command.NewMove(p, steps, e.board.Len(), e.config.StartBonus)
	if err := e.record(move); err != nil {
		return false, err
	}
	e.phase = models.PhaseLanded

	cell := e.board.At(p.Position)
	data := map[string]interface{}{"from": from, "to": p.Position, "steps": steps, "cell": cell.Name}
	if move.PassedStart() {
		data["startBonus"] = e.config.StartBonus
	}
	e.emit(models.NotifyPlayerMoved, p.ID, fmt.Sprintf("%s moves to %s", p.Name, cell.Name), data)
	return move.PassedStart(), nil
}

// Purchase buys the cell the current player stands on
func (e *Engine) Purchase() error {
	return e.run(e.purchaseLocked)
}

func (e *Engine) purchaseLocked() error {
	if err := e.requirePhase(models.PhaseAwaitingAction); err != nil {
		return err
	}
	p := e.current()
	cell := e.board.At(p.Position)
	buy := command.NewPurchase(p, cell)
	if err := e.record(buy); err != nil {
		return err
	}
	if e.landing != nil && e.landing.Position == cell.Position && e.landing.Outcome == OutcomePurchaseOffer {
		e.landing.Outcome = OutcomeUpgradeOffer
		e.landing.Amount = cell.UpgradeCost
		e.landing.Cell = *cell
	}

	e.fact(models.FactPropertyPurchase, p.ID, buy.Paid(), cell.Name)
	e.emit(models.NotifyPurchase, p.ID, fmt.Sprintf("%s buys %s for %d", p.Name, cell.Name, buy.Paid()),
		map[string]interface{}{"position": cell.Position, "price": buy.Paid(), "cash": p.Cash})
	return nil
}

// Upgrade raises one of the current player's properties a level
func (e *Engine) Upgrade(position int) error {
	return e.run(func() error { return e.upgradeLocked(position) })
}

func (e *Engine) upgradeLocked(position int) error {
	if err := e.requirePhase(models.PhaseAwaitingAction); err != nil {
		return err
	}
	if position < 0 || position >= e.board.Len() {
		return models.Errorf(models.CodeInvalidArgument, "no cell at %d", position)
	}
	p := e.current()
	cell := e.board.At(position)
	if err := e.record(command.NewUpgrade(p, cell)); err != nil {
		return err
	}

	e.fact(models.FactPropertyUpgrade, p.ID, cell.UpgradeCost, cell.Name)
	e.emit(models.NotifyUpgrade, p.ID, fmt.Sprintf("%s upgrades %s to %s", p.Name, cell.Name, cell.Level),
		map[string]interface{}{"position": cell.Position, "level": cell.Level.String(), "rent": cell.Rent(), "cash": p.Cash})
	return nil
}

// EndTurn settles bankruptcies, checks for a winner and passes the turn
func (e *Engine) EndTurn() error {
	return e.run(e.endTurnLocked)
}

func (e *Engine) endTurnLocked() error {
	if err := e.requirePhase(models.PhaseAwaitingAction, models.PhaseTurnComplete); err != nil {
		return err
	}
	e.closeStep()
	cur := e.current()
	for _, p := range e.players {
		e.markBankrupt(p, p.Bankrupt)
	}
	e.turnCount++
	e.fact(models.FactTurnCompleted, cur.ID, 0, "")

	if active := e.activePlayers(); len(active) <= 1 {
		e.state = models.GameStateFinished
		e.phase = models.PhaseTurnComplete
		e.extraTurn, e.freeMove = false, false
		data := map[string]interface{}{"rounds": e.round, "turns": e.turnCount}
		msg := "Game over"
		winnerID := ""
		if len(active) == 1 {
			winnerID = active[0].ID
			data["winner"] = winnerID
			msg = fmt.Sprintf("%s wins the game", active[0].Name)
		}
		e.logger.Infow("Game finished", "gameId", e.id, "winner", winnerID, "rounds", e.round)
		e.emit(models.NotifyGameFinished, winnerID, msg, data)
		return nil
	}

	if e.extraTurn && !cur.Bankrupt && !cur.InJail {
		e.extraTurn = false
		e.resetTurnLocked()
		e.emit(models.NotifyTurnEnded, cur.ID, cur.Name+" plays an extra turn",
			map[string]interface{}{"next": cur.ID, "round": e.round, "extraTurn": true})
		return nil
	}

	e.extraTurn = false
	e.advanceLocked()
	e.resetTurnLocked()
	next := e.current()
	e.emit(models.NotifyTurnEnded, cur.ID, fmt.Sprintf("%s ends the turn, %s is next", cur.Name, next.Name),
		map[string]interface{}{"next": next.ID, "round": e.round})
	return nil
}

// advanceLocked moves to the next non-bankrupt player, counting a new round
// whenever the rotation wraps
func (e *Engine) advanceLocked() {
	n := len(e.players)
	for i := 1; i <= n; i++ {
		idx := (e.currentIndex + i) % n
		if e.players[idx].Bankrupt {
			continue
		}
		if idx <= e.currentIndex {
			e.round++
		}
		e.currentIndex = idx
		return
	}
}

func (e *Engine) resetTurnLocked() {
	e.phase = models.PhaseAwaitingRoll
	e.freeMove = false
	e.lastRoll = nil
	e.landing = nil
	e.pendingTrade = nil
}

// Pause suspends a running game
func (e *Engine) Pause() error {
	return e.run(func() error {
		if err := e.requirePlaying(); err != nil {
			return err
		}
		e.state = models.GameStatePaused
		e.emit(models.NotifyGamePaused, "", "Game paused", nil)
		return nil
	})
}

// Resume continues a paused game
func (e *Engine) Resume() error {
	return e.run(func() error {
		if e.state != models.GameStatePaused {
			return models.Errorf(models.CodeIllegalTurnState, "game is %s", e.state)
		}
		e.state = models.GameStatePlaying
		e.emit(models.NotifyGameResumed, "", "Game resumed", nil)
		return nil
	})
}

// Undo reverses the latest action of the current turn. Board, players and the
// turn phase are rewound together.
func (e *Engine) Undo() command.Result {
	var res command.Result
	_ = e.run(func() error {
		res = e.undoLocked()
		return nil
	})
	return res
}

func (e *Engine) undoLocked() command.Result {
	if err := e.requirePlaying(); err != nil {
		return command.ResultOf(err, "")
	}
	if c, ok := e.history.Last(); ok && !e.sameTurn(c) {
		return command.ResultOf(models.Errorf(models.CodeNothingToUndo, "actions of earlier turns cannot be undone"), "")
	}
	res := e.history.Undo()
	if res.Success {
		e.emit(models.NotifyUndo, e.current().ID, res.Message, map[string]interface{}{"phase": e.phase})
	}
	return res
}

// Redo reapplies the most recently undone action of the current turn
func (e *Engine) Redo() command.Result {
	var res command.Result
	_ = e.run(func() error {
		res = e.redoLocked()
		return nil
	})
	return res
}

func (e *Engine) redoLocked() command.Result {
	if err := e.requirePlaying(); err != nil {
		return command.ResultOf(err, "")
	}
	if c, ok := e.history.Next(); ok && !e.sameTurn(c) {
		return command.ResultOf(models.Errorf(models.CodeNothingToRedo, "actions of earlier turns cannot be redone"), "")
	}
	res := e.history.Redo()
	if res.Success {
		e.emit(models.NotifyRedo, e.current().ID, res.Message, map[string]interface{}{"phase": e.phase})
	}
	return res
}
