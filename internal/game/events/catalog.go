package events

import (
	"github.com/richman/backend/internal/game/models"
)

// Rand is the randomness the catalog needs to draw events
type Rand interface {
	Intn(n int) int
}

// Catalog holds the fortune and misfortune tables of a game mode
type Catalog struct {
	Fortune    []models.Event
	Misfortune []models.Event
}

// Events returns the table for kind
func (c Catalog) Events(kind models.EventKind) []models.Event {
	if kind == models.EventMisfortune {
		return c.Misfortune
	}
	return c.Fortune
}

// Draw picks one event of kind using the events' relative weights. It returns
// false when the table is empty.
func (c Catalog) Draw(kind models.EventKind, rng Rand) (models.Event, bool) {
	table := c.Events(kind)
	if len(table) == 0 {
		return models.Event{}, false
	}

	total := 0
	for _, ev := range table {
		total += weightOf(ev)
	}

	pick := rng.Intn(total)
	for _, ev := range table {
		pick -= weightOf(ev)
		if pick < 0 {
			return ev, true
		}
	}
	return table[len(table)-1], true
}

func weightOf(ev models.Event) int {
	if ev.Weight <= 0 {
		return 1
	}
	return ev.Weight
}

func fortune(title, description string, effects models.Effects) models.Event {
	return models.Event{Kind: models.EventFortune, Title: title, Description: description, Effects: effects}
}

func misfortune(title, description string, effects models.Effects) models.Event {
	return models.Event{Kind: models.EventMisfortune, Title: title, Description: description, Effects: effects}
}

// StandardCatalog is the balanced event set
func StandardCatalog() Catalog {
	return Catalog{
		Fortune: []models.Event{
			fortune("Lottery Win", "You won a small lottery prize", models.Effects{Money: 500}),
			fortune("Investment Return", "Your investment paid off", models.Effects{Money: 1000}),
			fortune("Year-end Bonus", "Your employer pays a bonus", models.Effects{Money: 800}),
			fortune("Tailwind", "Take a free extra move", models.Effects{FreeMove: true}),
			fortune("Lucky Streak", "Play another turn", models.Effects{ExtraTurn: true}),
			fortune("Found Wallet", "You found money on the street", models.Effects{Money: 300}),
			fortune("Rent Waiver", "Receive a card that waives one rent payment", models.Effects{GrantItem: models.ItemRentWaiver}),
			fortune("Birthday", "Every player gives you a present", models.Effects{CollectFromEach: 50}),
			fortune("Dividend", "Your shares pay a dividend", models.Effects{Money: 400}),
			fortune("Shopping Coupon", "Your next purchase is 20% off", models.Effects{Discount: 0.8}),
		},
		Misfortune: []models.Event{
			misfortune("Medical Bill", "Pay a hospital bill", models.Effects{Money: -300}),
			misfortune("Parking Ticket", "Pay a parking fine", models.Effects{Money: -200}),
			misfortune("Arrested", "Go directly to jail", models.Effects{GoToJail: true}),
			misfortune("Car Repair", "Your car broke down", models.Effects{Money: -500}),
			misfortune("House Repairs", "Pay for repairs on each property", models.Effects{RepairPerProperty: 100}),
			misfortune("Speeding Fine", "Pay a speeding fine", models.Effects{Money: -150}),
			misfortune("Wrong Turn", "Move back three cells", models.Effects{MoveBack: 3}),
			misfortune("Tax Audit", "Pay 5% of your cash in back taxes", models.Effects{ExtraTaxRate: 0.05}),
		},
	}
}

// EasyCatalog softens penalties and raises rewards
func EasyCatalog() Catalog {
	return Catalog{
		Fortune: []models.Event{
			fortune("Jackpot", "You hit the jackpot", models.Effects{Money: 1000}),
			fortune("Inheritance", "A distant relative leaves you money", models.Effects{Money: 2000}),
			fortune("Prize Draw", "You won a prize draw", models.Effects{Money: 1500}),
			fortune("Tailwind", "Take a free extra move", models.Effects{FreeMove: true}),
			fortune("Lucky Streak", "Play another turn", models.Effects{ExtraTurn: true}),
			fortune("Bonus", "An unexpected bonus arrives", models.Effects{Money: 800}),
			fortune("Pardon Letter", "Receive a card that frees you from jail", models.Effects{GrantItem: models.ItemJailFree}),
		},
		Misfortune: []models.Event{
			misfortune("Small Fee", "Pay a small fee", models.Effects{Money: -100}),
			misfortune("Lost Umbrella", "Buy a new umbrella", models.Effects{Money: -80}),
			misfortune("Phone Repair", "Fix your phone", models.Effects{Money: -200}),
			misfortune("Minor Repairs", "Pay for small repairs on each property", models.Effects{RepairPerProperty: 50}),
			misfortune("Library Fine", "Return your books late", models.Effects{Money: -50}),
			misfortune("Stumble", "Move back one cell", models.Effects{MoveBack: 1}),
		},
	}
}

// HardCatalog makes rewards scarce and penalties severe
func HardCatalog() Catalog {
	return Catalog{
		Fortune: []models.Event{
			fortune("Pocket Change", "You found some change", models.Effects{Money: 200}),
			fortune("Small Dividend", "A modest dividend", models.Effects{Money: 400}),
			fortune("Refund", "A purchase was refunded", models.Effects{Money: 300}),
			fortune("Lucky Streak", "Play another turn", models.Effects{ExtraTurn: true}),
		},
		Misfortune: []models.Event{
			misfortune("Hospital Stay", "Pay a large hospital bill", models.Effects{Money: -800}),
			misfortune("Lawsuit", "Settle a lawsuit", models.Effects{Money: -1000}),
			misfortune("Arrested", "Go directly to jail", models.Effects{GoToJail: true}),
			misfortune("Market Crash", "Your investments collapsed", models.Effects{Money: -1200}),
			misfortune("Structural Repairs", "Pay heavy repairs on each property", models.Effects{RepairPerProperty: 200}),
			misfortune("Heavy Fine", "Pay a heavy fine", models.Effects{Money: -600}),
			misfortune("Detour", "Move back five cells", models.Effects{MoveBack: 5}),
			misfortune("Full Audit", "Pay 10% of your cash in back taxes", models.Effects{ExtraTaxRate: 0.1}),
		},
	}
}
