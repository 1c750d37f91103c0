package manager

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/richman/backend/internal/game/models"
)

// SnapshotStore persists named save slots per game
type SnapshotStore interface {
	Save(ctx context.Context, snap models.Snapshot) error
	Load(ctx context.Context, gameID, name string) (*models.Snapshot, error)
	List(ctx context.Context, gameID string) ([]models.SaveInfo, error)
	Delete(ctx context.Context, gameID, name string) error
	PruneAutoSaves(ctx context.Context, gameID string, keep int) (int, error)
}

const autoSavePrefix = "auto-"

// SaveGame stores the session under name
func (gm *GameManager) SaveGame(ctx context.Context, gameID, name string) (models.SaveInfo, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.SaveInfo{}, models.Errorf(models.CodeInvalidArgument, "save name is required")
	}
	if strings.HasPrefix(name, autoSavePrefix) {
		return models.SaveInfo{}, models.Errorf(models.CodeInvalidArgument, "names starting with %q are reserved", autoSavePrefix)
	}
	return gm.save(ctx, gameID, name, false)
}

// AutoSave stores a timestamped auto-save and prunes the oldest beyond the limit
func (gm *GameManager) AutoSave(ctx context.Context, gameID string) (models.SaveInfo, error) {
	name := autoSavePrefix + gm.now().UTC().Format("20060102T150405.000000000")
	info, err := gm.save(ctx, gameID, name, true)
	if err != nil {
		return info, err
	}
	if _, err := gm.store.PruneAutoSaves(ctx, gameID, gm.settings.AutoSaveKeep); err != nil {
		return info, fmt.Errorf("failed to prune auto-saves: %w", err)
	}
	return info, nil
}

func (gm *GameManager) save(ctx context.Context, gameID, name string, auto bool) (models.SaveInfo, error) {
	s, err := gm.GetSession(gameID)
	if err != nil {
		return models.SaveInfo{}, err
	}
	snap := s.Engine().SaveSnapshot(name)
	snap.AutoSave = auto
	snap.SavedAt = gm.now().UTC()
	if err := gm.store.Save(ctx, snap); err != nil {
		return models.SaveInfo{}, err
	}
	gm.logger.Infow("Game saved", "gameId", gameID, "name", name, "auto", auto, "round", snap.Round)
	return snap.Info(), nil
}

// LoadGame restores a save slot. A game that is no longer live is recreated
// from the save under its original id.
func (gm *GameManager) LoadGame(ctx context.Context, gameID, name string) error {
	snap, err := gm.store.Load(ctx, gameID, name)
	if err != nil {
		return err
	}

	s, err := gm.GetSession(gameID)
	if err != nil {
		s, err = gm.restoreSession(*snap)
		if err != nil {
			return err
		}
	}
	if snap.Mode != "" && snap.Mode != s.Mode {
		return models.Errorf(models.CodeInvalidArgument, "save %q was made in %s mode, game is %s", name, snap.Mode, s.Mode)
	}

	if err := s.Engine().LoadSnapshot(*snap); err != nil {
		return err
	}

	s.mu.Lock()
	s.rules = snap.Config
	s.roster = make([]*models.Player, len(snap.Players))
	for i := range snap.Players {
		p := snap.Players[i].Clone()
		s.roster[i] = &p
	}
	s.lastActive = gm.now()
	s.mu.Unlock()
	return nil
}

func (gm *GameManager) restoreSession(snap models.Snapshot) (*Session, error) {
	code, err := gm.uniqueRoomCode()
	if err != nil {
		return nil, err
	}
	s := &Session{
		ID:        snap.GameID,
		Name:      "Restored " + code,
		RoomCode:  code,
		CreatedAt: gm.now(),
		rules:     snap.Config,
	}
	if err := gm.attachEngine(s, snap.Mode); err != nil {
		return nil, err
	}

	gm.mu.Lock()
	defer gm.mu.Unlock()
	if existing, ok := gm.sessions[snap.GameID]; ok {
		return existing, nil
	}
	gm.sessions[snap.GameID] = s
	gm.logger.Infow("Game restored from save", "gameId", snap.GameID, "name", snap.Name)
	return s, nil
}

// ListSaves returns the save slots of a game, newest first
func (gm *GameManager) ListSaves(ctx context.Context, gameID string) ([]models.SaveInfo, error) {
	return gm.store.List(ctx, gameID)
}

// DeleteSave removes one save slot
func (gm *GameManager) DeleteSave(ctx context.Context, gameID, name string) error {
	return gm.store.Delete(ctx, gameID, name)
}

// runAutoSaveTask auto-saves every playing session each interval
func (gm *GameManager) runAutoSaveTask() {
	ticker := time.NewTicker(gm.settings.AutoSaveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-gm.ctx.Done():
			return
		case <-ticker.C:
			gm.AutoSaveAll(gm.ctx)
		}
	}
}

// AutoSaveAll auto-saves every playing session and returns how many were saved
func (gm *GameManager) AutoSaveAll(ctx context.Context) int {
	saved := 0
	for _, id := range gm.ActiveGames() {
		if _, err := gm.AutoSave(ctx, id); err != nil {
			gm.logger.Errorf("Auto-save failed for game %s: %v", id, err)
			continue
		}
		saved++
	}
	return saved
}
