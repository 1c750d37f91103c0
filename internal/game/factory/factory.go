package factory

import (
	"strings"

	"github.com/richman/backend/internal/game/events"
	"github.com/richman/backend/internal/game/models"
	"github.com/richman/backend/internal/game/strategy"
)

// Game modes
const (
	ModeStandard = "standard"
	ModeEasy     = "easy"
	ModeHard     = "hard"
)

// Difficulty levels of automated players
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// ComponentFactory produces the strategies and event tables of one game mode
type ComponentFactory interface {
	Mode() string
	CreateStrategy(difficulty string, rng strategy.Rand) strategy.Strategy
	Catalog() events.Catalog
}

type family struct {
	mode       string
	strategies map[string]strategy.Kind
	catalog    func() events.Catalog
}

func (f *family) Mode() string {
	return f.mode
}

// CreateStrategy falls back to the balanced strategy for unknown difficulties
func (f *family) CreateStrategy(difficulty string, rng strategy.Rand) strategy.Strategy {
	kind, ok := f.strategies[strings.ToLower(difficulty)]
	if !ok {
		kind = strategy.KindBalanced
	}
	return strategy.New(kind, rng)
}

func (f *family) Catalog() events.Catalog {
	return f.catalog()
}

// Standard is the default mode
func Standard() ComponentFactory {
	return &family{
		mode: ModeStandard,
		strategies: map[string]strategy.Kind{
			DifficultyEasy:   strategy.KindCautious,
			DifficultyMedium: strategy.KindBalanced,
			DifficultyHard:   strategy.KindAggressive,
		},
		catalog: events.StandardCatalog,
	}
}

// Easy pairs gentle events with timid opponents
func Easy() ComponentFactory {
	return &family{
		mode: ModeEasy,
		strategies: map[string]strategy.Kind{
			DifficultyEasy:   strategy.KindCautious,
			DifficultyMedium: strategy.KindCautious,
			DifficultyHard:   strategy.KindBalanced,
		},
		catalog: events.EasyCatalog,
	}
}

// Hard pairs harsh events with aggressive opponents
func Hard() ComponentFactory {
	return &family{
		mode: ModeHard,
		strategies: map[string]strategy.Kind{
			DifficultyEasy:   strategy.KindBalanced,
			DifficultyMedium: strategy.KindAggressive,
			DifficultyHard:   strategy.KindAggressive,
		},
		catalog: events.HardCatalog,
	}
}

// ForMode returns the factory for mode. An unknown mode yields the standard
// factory together with ErrUnknownGameMode so callers may log and carry on.
func ForMode(mode string) (ComponentFactory, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case ModeStandard, "":
		return Standard(), nil
	case ModeEasy:
		return Easy(), nil
	case ModeHard:
		return Hard(), nil
	}
	return Standard(), models.Errorf(models.CodeUnknownGameMode, "unknown game mode %q", mode)
}

// ValidDifficulty reports whether difficulty is one of the known levels
func ValidDifficulty(difficulty string) bool {
	switch strings.ToLower(difficulty) {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}
