// Package command holds the reversible actions that mutate a game session.
// Every command captures the state it needs to restore itself exactly.
package command

import (
	"github.com/richman/backend/internal/game/models"
)

// Command is a reversible state change
type Command interface {
	Execute() error
	Undo() error
	Describe() string
}

// Result reports the outcome of an undo or redo request
type Result struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Code    models.ErrorCode `json:"code,omitempty"`
}

// ResultOf converts err into a Result, using msg on success
func ResultOf(err error, msg string) Result {
	if err != nil {
		return Result{Success: false, Message: err.Error(), Code: models.CodeOf(err)}
	}
	return Result{Success: true, Message: msg}
}

// guard tracks whether a command is currently applied
type guard struct {
	executed bool
}

func (g *guard) begin(name string) error {
	if g.executed {
		return models.Errorf(models.CodeIllegalTurnState, "%s already executed", name)
	}
	return nil
}

func (g *guard) beginUndo(name string) error {
	if !g.executed {
		return models.Errorf(models.CodeIllegalTurnState, "%s has not been executed", name)
	}
	return nil
}

// settle marks p bankrupt when a compulsory charge left it in debt
func settle(p *models.Player) {
	if p.Cash < 0 {
		p.Bankrupt = true
	}
}
