package manager

import (
	"github.com/richman/backend/internal/game/models"
)

// ActiveGames returns the ids of sessions currently being played
func (gm *GameManager) ActiveGames() []string {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	var ids []string
	for id, s := range gm.sessions {
		if s.Engine().State() == models.GameStatePlaying {
			ids = append(ids, id)
		}
	}
	return ids
}

// HasSession reports whether gameID is a live session
func (gm *GameManager) HasSession(gameID string) bool {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	_, ok := gm.sessions[gameID]
	return ok
}
