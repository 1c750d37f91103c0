package board

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richman/backend/internal/game/models"
)

func TestDefaultBoardLayout(t *testing.T) {
	b, err := Default()
	require.NoError(t, err)

	assert.Equal(t, 36, b.Len())
	assert.Equal(t, models.CellStart, b.At(0).Category)
	assert.Equal(t, 9, b.JailPosition())
	assert.Equal(t, models.CellFreeParking, b.At(18).Category)
	assert.Equal(t, models.CellGoToJail, b.At(27).Category)

	harbor := b.At(3)
	assert.Equal(t, models.CellProperty, harbor.Category)
	assert.Equal(t, 600, harbor.Price)
}

func TestDefaultReturnsIndependentBoards(t *testing.T) {
	a, err := Default()
	require.NoError(t, err)
	b, err := Default()
	require.NoError(t, err)

	a.At(1).OwnerID = "p1"
	assert.Empty(t, b.At(1).OwnerID)
}

func TestAtWraps(t *testing.T) {
	b, err := Default()
	require.NoError(t, err)

	assert.Same(t, b.At(0), b.At(36))
	assert.Same(t, b.At(35), b.At(-1))
}

func TestLoadRejectsOutOfOrderCells(t *testing.T) {
	_, err := Load(strings.NewReader(`{"cells":[{"position":0,"name":"Start","type":"start"},{"position":2,"name":"X","type":"property"}]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 1")
}

func TestLoadRejectsUnknownCategory(t *testing.T) {
	_, err := Load(strings.NewReader(`{"cells":[{"position":0,"name":"Start","type":"start"},{"position":1,"name":"Main St","type":"propery"}]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown type "propery"`)
}

func TestLoadRequiresJailWhenSendingToJail(t *testing.T) {
	_, err := Load(strings.NewReader(`{"cells":[{"position":0,"name":"Start","type":"start"},{"position":1,"name":"Go","type":"go_to_jail"}]}`))
	require.Error(t, err)
}

func TestSnapshotRestore(t *testing.T) {
	b, err := Default()
	require.NoError(t, err)

	before := b.Snapshot()
	b.At(3).OwnerID = "p1"
	b.At(3).Level = models.LevelTier2
	assert.Len(t, b.OwnedBy("p1"), 1)

	require.NoError(t, b.Restore(before))
	assert.Empty(t, b.At(3).OwnerID)
	assert.Equal(t, models.LevelNone, b.At(3).Level)
	assert.Error(t, b.Restore(before[:3]))
}
