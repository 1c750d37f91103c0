package factory

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richman/backend/internal/game/events"
	"github.com/richman/backend/internal/game/models"
	"github.com/richman/backend/internal/game/strategy"
)

func TestDifficultyMaps(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	cases := []struct {
		factory    ComponentFactory
		difficulty string
		want       strategy.Kind
	}{
		{Standard(), DifficultyEasy, strategy.KindCautious},
		{Standard(), DifficultyMedium, strategy.KindBalanced},
		{Standard(), DifficultyHard, strategy.KindAggressive},
		{Hard(), DifficultyEasy, strategy.KindBalanced},
		{Hard(), DifficultyMedium, strategy.KindAggressive},
		{Hard(), DifficultyHard, strategy.KindAggressive},
		{Easy(), DifficultyEasy, strategy.KindCautious},
		{Easy(), DifficultyMedium, strategy.KindCautious},
		{Easy(), DifficultyHard, strategy.KindBalanced},
		{Standard(), "HARD", strategy.KindAggressive},
	}

	for _, tc := range cases {
		got := tc.factory.CreateStrategy(tc.difficulty, rng)
		assert.Equal(t, tc.want, got.Kind(), "%s/%s", tc.factory.Mode(), tc.difficulty)
	}
}

func TestUnknownDifficultyIsBalanced(t *testing.T) {
	for _, f := range []ComponentFactory{Standard(), Easy(), Hard()} {
		assert.Equal(t, strategy.KindBalanced, f.CreateStrategy("impossible", nil).Kind(), f.Mode())
	}
	assert.False(t, ValidDifficulty("impossible"))
	assert.True(t, ValidDifficulty("Medium"))
}

func TestForMode(t *testing.T) {
	f, err := ForMode("hard")
	require.NoError(t, err)
	assert.Equal(t, ModeHard, f.Mode())
	assert.Equal(t, events.HardCatalog(), f.Catalog())

	f, err = ForMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeStandard, f.Mode())

	f, err = ForMode("nightmare")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrUnknownGameMode))
	require.NotNil(t, f)
	assert.Equal(t, ModeStandard, f.Mode())
}
