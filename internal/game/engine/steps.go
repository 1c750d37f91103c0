package engine

import (
	"github.com/richman/backend/internal/game/command"
	"github.com/richman/backend/internal/game/models"
)

// turnState is the part of the engine a command does not restore by itself
type turnState struct {
	phase     models.TurnPhase
	landing   *Landing
	freeMove  bool
	extraTurn bool
	lastRoll  []int
}

// step is a recorded command together with the turn state around it and the
// facts it produced. Undo and redo put the turn state back so the phase always
// matches the board.
type step struct {
	command.Command

	e      *Engine
	turn   int
	before turnState
	after  turnState
	facts  []models.Fact
	closed bool
}

func (s *step) Execute() error {
	if err := s.Command.Execute(); err != nil {
		return err
	}
	if s.closed {
		s.e.restoreTurn(s.after)
		for _, f := range s.facts {
			s.e.pendingFacts = append(s.e.pendingFacts, f)
		}
	}
	return nil
}

func (s *step) Undo() error {
	if err := s.Command.Undo(); err != nil {
		return err
	}
	s.e.restoreTurn(s.before)
	for i := len(s.facts) - 1; i >= 0; i-- {
		f := s.facts[i]
		f.Retracted = true
		s.e.pendingFacts = append(s.e.pendingFacts, f)
	}
	return nil
}

func copyLanding(l *Landing) *Landing {
	if l == nil {
		return nil
	}
	c := *l
	return &c
}

func (e *Engine) captureTurn() turnState {
	return turnState{
		phase:     e.phase,
		landing:   copyLanding(e.landing),
		freeMove:  e.freeMove,
		extraTurn: e.extraTurn,
		lastRoll:  append([]int(nil), e.lastRoll...),
	}
}

func (e *Engine) restoreTurn(t turnState) {
	e.phase = t.phase
	e.landing = copyLanding(t.landing)
	e.freeMove = t.freeMove
	e.extraTurn = t.extraTurn
	e.lastRoll = append([]int(nil), t.lastRoll...)
}

// record executes c through the history. The step stays open, collecting
// facts, until the next record or the end of the engine call.
func (e *Engine) record(c command.Command) error {
	e.closeStep()
	s := &step{Command: c, e: e, turn: e.turnCount, before: e.captureTurn()}
	if err := e.history.Execute(s); err != nil {
		return err
	}
	e.open = s
	return nil
}

// closeStep fixes the state after the open step
func (e *Engine) closeStep() {
	if e.open == nil {
		return
	}
	e.open.after = e.captureTurn()
	e.open.closed = true
	e.open = nil
}

// sameTurn reports whether c was recorded during the current turn
func (e *Engine) sameTurn(c command.Command) bool {
	s, ok := c.(*step)
	return ok && s.turn == e.turnCount
}
