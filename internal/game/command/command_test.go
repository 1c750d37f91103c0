package command

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richman/backend/internal/game/events"
	"github.com/richman/backend/internal/game/models"
)

type fixture struct {
	ann, bob *models.Player
	street   *models.Cell
	airport  *models.Cell
}

func newFixture() *fixture {
	return &fixture{
		ann: models.NewPlayer("a", "Ann", models.PlayerKindHuman, "", 15000),
		bob: models.NewPlayer("b", "Bob", models.PlayerKindHuman, "", 15000),
		street: &models.Cell{
			Position: 3, Name: "Harbor Street", Category: models.CellProperty,
			Price: 600, BaseRent: 50, UpgradeCost: 300,
		},
		airport: &models.Cell{
			Position: 5, Name: "North Airport", Category: models.CellTransitHub,
			Price: 2000, BaseRent: 250,
		},
	}
}

type state struct {
	ann, bob        models.Player
	street, airport models.Cell
}

func (f *fixture) state() state {
	return state{ann: f.ann.Clone(), bob: f.bob.Clone(), street: *f.street, airport: *f.airport}
}

// roundTrip checks that undo restores exactly and redo reapplies exactly
func roundTrip(t *testing.T, f *fixture, c Command) {
	t.Helper()
	before := f.state()
	require.NoError(t, c.Execute())
	after := f.state()

	require.NoError(t, c.Undo())
	assert.Equal(t, before, f.state(), "undo of %s", c.Describe())

	require.NoError(t, c.Execute())
	assert.Equal(t, after, f.state(), "redo of %s", c.Describe())
}

func TestCommandsRoundTrip(t *testing.T) {
	processor := events.NewProcessor(9, 3)
	builders := map[string]func(f *fixture) Command{
		"move":     func(f *fixture) Command { f.ann.Position = 30; return NewMove(f.ann, 8, 36, 200) },
		"purchase": func(f *fixture) Command { return NewPurchase(f.ann, f.street) },
		"upgrade": func(f *fixture) Command {
			f.street.OwnerID = "a"
			f.ann.AddProperty(3)
			return NewUpgrade(f.ann, f.street)
		},
		"rent": func(f *fixture) Command {
			f.street.OwnerID = "b"
			f.street.Level = models.LevelTier2
			return NewPayRent(f.ann, f.bob, f.street)
		},
		"rent into debt": func(f *fixture) Command {
			f.street.OwnerID = "b"
			f.ann.Cash = 20
			return NewPayRent(f.ann, f.bob, f.street)
		},
		"tax":  func(f *fixture) Command { f.ann.Cash = 100; return NewPayTax(f.ann, 200, "income tax") },
		"jail": func(f *fixture) Command { f.ann.Position = 27; return NewSendToJail(f.ann, 9, 3) },
		"fine": func(f *fixture) Command {
			f.ann.InJail, f.ann.JailTurns = true, 2
			return NewPayJailFine(f.ann, 500)
		},
		"card": func(f *fixture) Command {
			f.ann.InJail, f.ann.JailTurns = true, 2
			f.ann.Items = []models.Item{models.ItemRentWaiver, models.ItemJailFree, models.ItemJailFree}
			return NewUseJailCard(f.ann)
		},
		"wait": func(f *fixture) Command {
			f.ann.InJail, f.ann.JailTurns = true, 1
			return NewJailWait(f.ann)
		},
		"event": func(f *fixture) Command {
			ev := models.Event{Kind: models.EventFortune, Title: "Birthday", Effects: models.Effects{CollectFromEach: 50, Discount: 0.8}}
			return NewResolveEvent(processor, ev, f.ann, []*models.Player{f.ann, f.bob})
		},
		"transfer cash": func(f *fixture) Command { return NewTransferCash(f.ann, f.bob, 700) },
		"transfer property": func(f *fixture) Command {
			f.airport.OwnerID = "a"
			f.airport.Level = models.LevelTier1
			f.ann.Properties = []int{1, 5, 8}
			return NewTransferProperty(f.ann, f.bob, f.airport)
		},
	}

	for name, build := range builders {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			roundTrip(t, f, build(f))
		})
	}
}

func TestExecuteIsGuarded(t *testing.T) {
	f := newFixture()
	c := NewPurchase(f.ann, f.street)

	require.Error(t, c.Undo())
	require.NoError(t, c.Execute())
	err := c.Execute()
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrIllegalTurnState))
	assert.Equal(t, 14400, f.ann.Cash)

	require.NoError(t, c.Undo())
	require.Error(t, c.Undo())
	assert.Equal(t, 15000, f.ann.Cash)
}

func TestPurchaseScenario(t *testing.T) {
	f := newFixture()
	require.NoError(t, NewPurchase(f.ann, f.street).Execute())

	assert.Equal(t, 14400, f.ann.Cash)
	assert.Equal(t, "a", f.street.OwnerID)
	assert.Equal(t, models.LevelNone, f.street.Level)
	assert.Equal(t, []int{3}, f.ann.Properties)

	err := NewPurchase(f.bob, f.street).Execute()
	assert.True(t, errors.Is(err, models.ErrAlreadyOwned))
}

func TestUndoPurchaseKeepsLevel(t *testing.T) {
	f := newFixture()
	f.street.Level = models.LevelTier1
	c := NewPurchase(f.ann, f.street)
	require.NoError(t, c.Execute())
	require.NoError(t, c.Undo())

	assert.Equal(t, 15000, f.ann.Cash)
	assert.Empty(t, f.street.OwnerID)
	assert.Equal(t, models.LevelTier1, f.street.Level)
	assert.False(t, f.ann.Owns(3))
}

func TestPurchaseConsumesDiscount(t *testing.T) {
	f := newFixture()
	f.ann.Discount = 0.8
	c := NewPurchase(f.ann, f.airport)
	require.NoError(t, c.Execute())

	assert.Equal(t, 1600, c.Paid())
	assert.Equal(t, 13400, f.ann.Cash)
	assert.Zero(t, f.ann.Discount)

	require.NoError(t, c.Undo())
	assert.Equal(t, 0.8, f.ann.Discount)
	assert.Equal(t, 15000, f.ann.Cash)
}

func TestVoluntaryActionsAreAllOrNothing(t *testing.T) {
	f := newFixture()
	f.ann.Cash = 500

	err := NewPurchase(f.ann, f.street).Execute()
	assert.True(t, errors.Is(err, models.ErrInsufficientFunds))
	assert.Equal(t, 500, f.ann.Cash)
	assert.Empty(t, f.street.OwnerID)

	f.ann.InJail = true
	err = NewPayJailFine(f.ann, 600).Execute()
	assert.True(t, errors.Is(err, models.ErrInsufficientFunds))
	assert.True(t, f.ann.InJail)

	err = NewTransferCash(f.ann, f.bob, 501).Execute()
	assert.True(t, errors.Is(err, models.ErrInsufficientFunds))
	assert.Equal(t, 15000, f.bob.Cash)
}

func TestUpgradeRules(t *testing.T) {
	f := newFixture()
	err := NewUpgrade(f.ann, f.street).Execute()
	assert.True(t, errors.Is(err, models.ErrNotOwner))

	f.street.OwnerID = "a"
	f.street.Level = models.LevelMax
	err = NewUpgrade(f.ann, f.street).Execute()
	assert.True(t, errors.Is(err, models.ErrNotUpgradable))

	f.airport.OwnerID = "a"
	err = NewUpgrade(f.ann, f.airport).Execute()
	assert.True(t, errors.Is(err, models.ErrNotUpgradable))
}

func TestRentAtTier1(t *testing.T) {
	f := newFixture()
	f.street.OwnerID = "b"
	f.street.Level = models.LevelTier1

	c := NewPayRent(f.ann, f.bob, f.street)
	require.NoError(t, c.Execute())
	assert.Equal(t, 100, c.Rent())
	assert.Equal(t, 14900, f.ann.Cash)
	assert.Equal(t, 15100, f.bob.Cash)
}

func TestPayRentDescribesChargedAmount(t *testing.T) {
	f := newFixture()
	f.street.OwnerID = "b"
	f.street.Level = models.LevelTier1

	c := NewPayRent(f.ann, f.bob, f.street)
	require.NoError(t, c.Execute())
	f.street.Level = models.LevelTier2
	assert.Contains(t, c.Describe(), "pays 100 rent")

	waiver := NewPayRent(f.bob, f.ann, &models.Cell{Name: "Depot", OwnerID: "a", Category: models.CellProperty, BaseRent: 10})
	f.bob.Items = []models.Item{models.ItemRentWaiver}
	require.NoError(t, waiver.Execute())
	assert.Contains(t, waiver.Describe(), "rent waiver")
}

func TestRentWaiverIsConsumedOnce(t *testing.T) {
	f := newFixture()
	f.street.OwnerID = "b"
	f.ann.Items = []models.Item{models.ItemRentWaiver}

	first := NewPayRent(f.ann, f.bob, f.street)
	require.NoError(t, first.Execute())
	assert.True(t, first.Waived())
	assert.Equal(t, 15000, f.ann.Cash)
	assert.Empty(t, f.ann.Items)

	second := NewPayRent(f.ann, f.bob, f.street)
	require.NoError(t, second.Execute())
	assert.False(t, second.Waived())
	assert.Equal(t, 14950, f.ann.Cash)
}

func TestCompulsoryChargesBankrupt(t *testing.T) {
	f := newFixture()
	f.street.OwnerID = "b"
	f.street.Level = models.LevelMax
	f.ann.Cash = 300

	c := NewPayRent(f.ann, f.bob, f.street)
	require.NoError(t, c.Execute())
	assert.Equal(t, -500, f.ann.Cash)
	assert.True(t, f.ann.Bankrupt)
	assert.Equal(t, 300, c.Collected())
	assert.Equal(t, 15300, f.bob.Cash)

	require.NoError(t, c.Undo())
	assert.False(t, f.ann.Bankrupt)
	assert.Equal(t, 300, f.ann.Cash)
	assert.Equal(t, 15000, f.bob.Cash)
}

func TestMovePassesStart(t *testing.T) {
	p := models.NewPlayer("a", "Ann", models.PlayerKindHuman, "", 1000)
	p.Position = 33

	c := NewMove(p, 5, 36, 200)
	require.NoError(t, c.Execute())
	assert.True(t, c.PassedStart())
	assert.Equal(t, 2, p.Position)
	assert.Equal(t, 1200, p.Cash)

	p.Position = 30
	c = NewMove(p, 6, 36, 200)
	require.NoError(t, c.Execute())
	assert.True(t, c.PassedStart(), "landing on start counts")
	assert.Equal(t, 0, p.Position)

	c = NewMove(p, 4, 36, 200)
	require.NoError(t, c.Execute())
	assert.False(t, c.PassedStart())
	assert.Equal(t, 1400, p.Cash)
}

func TestJailWaitCountsDown(t *testing.T) {
	p := models.NewPlayer("a", "Ann", models.PlayerKindHuman, "", 1000)
	p.InJail, p.JailTurns, p.Position = true, 2, 9

	c := NewJailWait(p)
	require.NoError(t, c.Execute())
	assert.Equal(t, 1, p.JailTurns)
	assert.True(t, p.InJail)
	assert.False(t, c.Released())
	assert.Equal(t, 9, p.Position)
	assert.Equal(t, 1000, p.Cash)

	c = NewJailWait(p)
	require.NoError(t, c.Execute())
	assert.True(t, c.Released())
	assert.False(t, p.InJail)
}

func TestResultOf(t *testing.T) {
	ok := ResultOf(nil, "done")
	assert.True(t, ok.Success)
	assert.Equal(t, "done", ok.Message)

	failed := ResultOf(models.Errorf(models.CodeNotOwner, "not yours"), "done")
	assert.False(t, failed.Success)
	assert.Equal(t, "not yours", failed.Message)
	assert.Equal(t, models.CodeNotOwner, failed.Code)
}
