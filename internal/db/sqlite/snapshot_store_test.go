package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richman/backend/internal/game/models"
)

func openStore(t *testing.T) *SnapshotStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "saves.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func snapshot(game, name string, auto bool, at time.Time) models.Snapshot {
	s := models.Snapshot{
		GameID:   game,
		Name:     name,
		AutoSave: auto,
		Config:   models.DefaultGameConfig(),
		Players: []models.Player{
			*models.NewPlayer("p1", "Ann", models.PlayerKindHuman, "", 15000),
		},
		State:   models.GameStatePlaying,
		Phase:   models.PhaseAwaitingRoll,
		Round:   3,
		SavedAt: at,
	}
	s.Seal()
	return s
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, store.Save(ctx, snapshot("g1", "before-trade", false, at)))

	got, err := store.Load(ctx, "g1", "before-trade")
	require.NoError(t, err)
	assert.True(t, got.Verify())
	assert.Equal(t, 3, got.Round)
	assert.Equal(t, "Ann", got.Players[0].Name)
	assert.True(t, got.SavedAt.Equal(at))
}

func TestSaveOverwritesSlot(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	at := time.Now()

	first := snapshot("g1", "slot", false, at)
	require.NoError(t, store.Save(ctx, first))
	second := snapshot("g1", "slot", false, at.Add(time.Minute))
	second.Round = 9
	second.Seal()
	require.NoError(t, store.Save(ctx, second))

	infos, err := store.List(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, 9, infos[0].Round)
}

func TestLoadAndDeleteMissing(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	_, err := store.Load(ctx, "g1", "nope")
	assert.True(t, errors.Is(err, models.ErrNotFound))
	assert.True(t, errors.Is(store.Delete(ctx, "g1", "nope"), models.ErrNotFound))
}

func TestListIsPerGameNewestFirst(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, store.Save(ctx, snapshot("g1", "old", false, base)))
	require.NoError(t, store.Save(ctx, snapshot("g1", "new", false, base.Add(time.Hour))))
	require.NoError(t, store.Save(ctx, snapshot("g2", "other", false, base)))

	infos, err := store.List(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "new", infos[0].Name)
	assert.Equal(t, "old", infos[1].Name)

	require.NoError(t, store.Delete(ctx, "g1", "old"))
	infos, err = store.List(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, infos, 1)
}

func TestPruneKeepsNewestAutoSaves(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 7; i++ {
		name := fmt.Sprintf("auto-%d", i)
		require.NoError(t, store.Save(ctx, snapshot("g1", name, true, base.Add(time.Duration(i)*time.Minute))))
	}
	require.NoError(t, store.Save(ctx, snapshot("g1", "manual", false, base.Add(-time.Hour))))

	n, err := store.PruneAutoSaves(ctx, "g1", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	infos, err := store.List(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, infos, 6)
	assert.Equal(t, "auto-6", infos[0].Name)
	assert.Equal(t, "manual", infos[5].Name)

	_, err = store.Load(ctx, "g1", "auto-0")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}
