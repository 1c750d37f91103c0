package models

import (
	"fmt"
	"strings"
)

// GameConfig holds the rule parameters of one session. The engine treats it as
// read-only once the session has started.
type GameConfig struct {
	InitialCash int     `bson:"initialCash" json:"initialCash" mapstructure:"initial_cash"`
	StartBonus  int     `bson:"startBonus" json:"startBonus" mapstructure:"start_bonus"`
	JailFine    int     `bson:"jailFine" json:"jailFine" mapstructure:"jail_fine"`
	JailTurns   int     `bson:"jailTurns" json:"jailTurns" mapstructure:"jail_turns"`
	TaxRate     float64 `bson:"taxRate" json:"taxRate" mapstructure:"tax_rate"`
	IncomeTax   int     `bson:"incomeTax" json:"incomeTax" mapstructure:"income_tax"`
	LuxuryTax   int     `bson:"luxuryTax" json:"luxuryTax" mapstructure:"luxury_tax"`
	DiceCount   int     `bson:"diceCount" json:"diceCount" mapstructure:"dice_count"`
	DiceSides   int     `bson:"diceSides" json:"diceSides" mapstructure:"dice_sides"`
	MinPlayers  int     `bson:"minPlayers" json:"minPlayers" mapstructure:"min_players"`
	MaxPlayers  int     `bson:"maxPlayers" json:"maxPlayers" mapstructure:"max_players"`
	HistoryCap  int     `bson:"historyCap" json:"historyCap" mapstructure:"history_cap"`
}

// DefaultGameConfig returns the classic rule set
func DefaultGameConfig() GameConfig {
	return GameConfig{
		InitialCash: 15000,
		StartBonus:  200,
		JailFine:    500,
		JailTurns:   3,
		TaxRate:     0.1,
		IncomeTax:   200,
		LuxuryTax:   100,
		DiceCount:   2,
		DiceSides:   6,
		MinPlayers:  2,
		MaxPlayers:  6,
		HistoryCap:  50,
	}
}

// Validate checks the configuration for values the engine cannot run with
func (c GameConfig) Validate() error {
	var problems []string
	if c.InitialCash <= 0 {
		problems = append(problems, "initial cash must be positive")
	}
	if c.StartBonus < 0 {
		problems = append(problems, "start bonus cannot be negative")
	}
	if c.JailFine < 0 {
		problems = append(problems, "jail fine cannot be negative")
	}
	if c.JailTurns < 1 {
		problems = append(problems, "jail turns must be at least 1")
	}
	if c.TaxRate < 0 || c.TaxRate > 1 {
		problems = append(problems, "tax rate must be between 0 and 1")
	}
	if c.DiceCount < 1 || c.DiceSides < 2 {
		problems = append(problems, "need at least one die with two sides")
	}
	if c.MinPlayers < 2 {
		problems = append(problems, "minimum players must be at least 2")
	}
	if c.MaxPlayers < c.MinPlayers {
		problems = append(problems, "maximum players must not be below minimum players")
	}
	if c.HistoryCap < 1 {
		problems = append(problems, "history cap must be at least 1")
	}
	if len(problems) > 0 {
		return Errorf(CodeInvalidArgument, "invalid game config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// TaxFor returns the charge for landing on a tax cell named name while
// holding cash. Named income and luxury tax cells are flat.
func (c GameConfig) TaxFor(name string, cash int) int {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "income tax"):
		return c.IncomeTax
	case strings.Contains(lower, "luxury tax"):
		return c.LuxuryTax
	}
	if cash <= 0 {
		return 0
	}
	return int(float64(cash) * c.TaxRate)
}

func (c GameConfig) String() string {
	return fmt.Sprintf("cash=%d bonus=%d fine=%d jail=%d tax=%.2f dice=%dd%d players=%d-%d",
		c.InitialCash, c.StartBonus, c.JailFine, c.JailTurns, c.TaxRate,
		c.DiceCount, c.DiceSides, c.MinPlayers, c.MaxPlayers)
}
