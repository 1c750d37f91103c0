package manager

import (
	"github.com/richman/backend/internal/game/models"
)

// ResetGame puts a finished session back into the waiting state with the same
// roster, fresh cash and a fresh board, ready for a rematch
func (gm *GameManager) ResetGame(gameID string) error {
	s, err := gm.GetSession(gameID)
	if err != nil {
		return err
	}
	if state := s.Engine().State(); state != models.GameStateFinished {
		return models.Errorf(models.CodeIllegalTurnState, "only finished games can be reset, game is %s", state)
	}

	s.mu.Lock()
	roster := make([]*models.Player, len(s.roster))
	for i, p := range s.roster {
		roster[i] = models.NewPlayer(p.ID, p.Name, p.Kind, p.Difficulty, s.rules.InitialCash)
	}
	s.roster = roster
	mode := s.Mode
	s.mu.Unlock()

	if err := gm.attachEngine(s, mode); err != nil {
		return err
	}
	gm.logger.Infof("Game %s reset for a rematch", gameID)
	return nil
}
