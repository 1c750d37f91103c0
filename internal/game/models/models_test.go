package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRentDoublesPerLevel(t *testing.T) {
	cell := &Cell{Category: CellProperty, BaseRent: 50}

	expected := []int{50, 100, 200, 400, 800}
	for level := LevelNone; level <= LevelMax; level++ {
		assert.Equal(t, expected[level], cell.RentAt(level), "level %s", level)
	}
}

func TestRentStrictlyIncreasesWithLevel(t *testing.T) {
	for _, category := range []CellCategory{CellProperty, CellTransitHub, CellUtility, CellLandmark} {
		cell := &Cell{Category: category, BaseRent: 35}
		for level := LevelNone; level < LevelMax; level++ {
			assert.Greater(t, cell.RentAt(level+1), cell.RentAt(level), "%s at %s", category, level)
		}
	}
}

func TestRentIsZeroForUnownableCells(t *testing.T) {
	cell := &Cell{Category: CellChance, BaseRent: 50}
	assert.Zero(t, cell.Rent())
	assert.False(t, cell.IsOwnable())
}

func TestOnlyOwnedPropertiesUpgrade(t *testing.T) {
	cell := &Cell{Category: CellProperty}
	assert.False(t, cell.CanUpgrade())

	cell.OwnerID = "p1"
	assert.True(t, cell.CanUpgrade())

	cell.Level = LevelMax
	assert.False(t, cell.CanUpgrade())

	hub := &Cell{Category: CellTransitHub, OwnerID: "p1"}
	assert.False(t, hub.CanUpgrade())
}

func TestPlayerPropertyOrderIsRestorable(t *testing.T) {
	p := NewPlayer("p1", "Ann", PlayerKindHuman, "", 100)
	p.AddProperty(1)
	p.AddProperty(5)
	p.AddProperty(9)

	idx := p.RemoveProperty(5)
	require.Equal(t, 1, idx)
	assert.Equal(t, []int{1, 9}, p.Properties)
	assert.Equal(t, -1, p.RemoveProperty(42))

	p.InsertProperty(idx, 5)
	assert.Equal(t, []int{1, 5, 9}, p.Properties)
}

func TestPlayerItems(t *testing.T) {
	p := NewPlayer("p1", "Ann", PlayerKindHuman, "", 100)
	p.Items = []Item{ItemJailFree, ItemRentWaiver, ItemJailFree}

	idx := p.ConsumeItem(ItemRentWaiver)
	assert.Equal(t, 1, idx)
	assert.False(t, p.HasItem(ItemRentWaiver))

	p.RestoreItem(idx, ItemRentWaiver)
	assert.Equal(t, []Item{ItemJailFree, ItemRentWaiver, ItemJailFree}, p.Items)
}

func TestCloneDoesNotShareSlices(t *testing.T) {
	p := NewPlayer("p1", "Ann", PlayerKindHuman, "", 100)
	p.AddProperty(3)
	c := p.Clone()
	p.AddProperty(4)
	assert.Equal(t, []int{3}, c.Properties)
}

func TestTaxFor(t *testing.T) {
	cfg := DefaultGameConfig()
	assert.Equal(t, 200, cfg.TaxFor("Income Tax", 9000))
	assert.Equal(t, 100, cfg.TaxFor("Luxury Tax", 9000))
	assert.Equal(t, 1500, cfg.TaxFor("City Tax", 15000))
	assert.Equal(t, 0, cfg.TaxFor("City Tax", -20))
}

func TestValidateConfig(t *testing.T) {
	require.NoError(t, DefaultGameConfig().Validate())

	cfg := DefaultGameConfig()
	cfg.TaxRate = 1.5
	cfg.MinPlayers = 1
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	assert.Contains(t, err.Error(), "tax rate")
	assert.Contains(t, err.Error(), "minimum players")
}

func TestGameErrorMatchesByCode(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", Errorf(CodeInsufficientFunds, "Ann needs 600 but has 10"))
	assert.True(t, errors.Is(err, ErrInsufficientFunds))
	assert.False(t, errors.Is(err, ErrNotOwner))
	assert.Equal(t, CodeInsufficientFunds, CodeOf(err))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
}

func TestSnapshotChecksum(t *testing.T) {
	snap := &Snapshot{
		Config:  DefaultGameConfig(),
		Players: []Player{*NewPlayer("p1", "Ann", PlayerKindHuman, "", 100)},
		State:   GameStatePlaying,
	}
	snap.Seal()
	assert.True(t, snap.Verify())

	snap.Players[0].Cash = 99999
	assert.False(t, snap.Verify())
}
