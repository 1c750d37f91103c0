package models

import (
	"time"
)

// Player represents a participant in a game session
type Player struct {
	ID         string     `bson:"playerId" json:"playerId"`
	Name       string     `bson:"name" json:"name"`
	Kind       PlayerKind `bson:"kind" json:"kind"`
	Difficulty string     `bson:"difficulty,omitempty" json:"difficulty,omitempty"`
	Cash       int        `bson:"cash" json:"cash"`
	Position   int        `bson:"position" json:"position"`
	Properties []int      `bson:"properties" json:"properties"`
	Items      []Item     `bson:"items" json:"items"`
	Bankrupt   bool       `bson:"bankrupt" json:"bankrupt"`
	// Discount is a pending purchase price factor granted by an event, 0 when none
	Discount float64 `bson:"discount,omitempty" json:"discount,omitempty"`
	// --- Jail fields ---
	InJail    bool `bson:"inJail" json:"inJail"`
	JailTurns int  `bson:"jailTurns" json:"jailTurns"`
}

// NewPlayer creates a player holding the given starting cash
func NewPlayer(id, name string, kind PlayerKind, difficulty string, cash int) *Player {
	return &Player{
		ID:         id,
		Name:       name,
		Kind:       kind,
		Difficulty: difficulty,
		Cash:       cash,
		Properties: []int{},
		Items:      []Item{},
	}
}

// IsAutomated reports whether decisions for the player come from a strategy
func (p *Player) IsAutomated() bool {
	return p.Kind == PlayerKindAutomated
}

// CanAfford reports whether the player can pay amount without going negative
func (p *Player) CanAfford(amount int) bool {
	return p.Cash >= amount
}

// Owns reports whether the player holds the cell at position
func (p *Player) Owns(position int) bool {
	return p.propertyIndex(position) >= 0
}

func (p *Player) propertyIndex(position int) int {
	for i, pos := range p.Properties {
		if pos == position {
			return i
		}
	}
	return -1
}

// AddProperty appends position to the owned list
func (p *Player) AddProperty(position int) {
	p.Properties = append(p.Properties, position)
}

// RemoveProperty drops position from the owned list and returns the index it
// occupied, or -1 when the player did not own it.
func (p *Player) RemoveProperty(position int) int {
	idx := p.propertyIndex(position)
	if idx < 0 {
		return -1
	}
	p.Properties = append(p.Properties[:idx], p.Properties[idx+1:]...)
	return idx
}

// InsertProperty restores position at idx, appending when idx is out of range
func (p *Player) InsertProperty(idx, position int) {
	if idx < 0 || idx >= len(p.Properties) {
		p.Properties = append(p.Properties, position)
		return
	}
	p.Properties = append(p.Properties[:idx+1], p.Properties[idx:]...)
	p.Properties[idx] = position
}

// HasItem reports whether the inventory holds at least one of item
func (p *Player) HasItem(item Item) bool {
	return p.itemIndex(item) >= 0
}

func (p *Player) itemIndex(item Item) int {
	for i, it := range p.Items {
		if it == item {
			return i
		}
	}
	return -1
}

// ConsumeItem removes one item and returns its former index, or -1
func (p *Player) ConsumeItem(item Item) int {
	idx := p.itemIndex(item)
	if idx < 0 {
		return -1
	}
	p.Items = append(p.Items[:idx], p.Items[idx+1:]...)
	return idx
}

// RestoreItem puts item back at idx
func (p *Player) RestoreItem(idx int, item Item) {
	if idx < 0 || idx >= len(p.Items) {
		p.Items = append(p.Items, item)
		return
	}
	p.Items = append(p.Items[:idx+1], p.Items[idx:]...)
	p.Items[idx] = item
}

// Clone returns a deep copy of the player
func (p *Player) Clone() Player {
	c := *p
	c.Properties = append([]int{}, p.Properties...)
	c.Items = append([]Item{}, p.Items...)
	return c
}

// Cell represents one position on the board
type Cell struct {
	Position    int          `bson:"position" json:"position"`
	Name        string       `bson:"name" json:"name"`
	Category    CellCategory `bson:"category" json:"category"`
	Price       int          `bson:"price" json:"price"`
	BaseRent    int          `bson:"baseRent" json:"baseRent"`
	UpgradeCost int          `bson:"upgradeCost" json:"upgradeCost"`
	OwnerID     string       `bson:"ownerId,omitempty" json:"ownerId,omitempty"`
	Level       Level        `bson:"level" json:"level"`
	Description string       `bson:"description,omitempty" json:"description,omitempty"`
}

// IsOwnable reports whether the cell can be bought
func (c *Cell) IsOwnable() bool {
	switch c.Category {
	case CellProperty, CellTransitHub, CellUtility, CellLandmark:
		return true
	}
	return false
}

// IsOwned reports whether someone holds the cell
func (c *Cell) IsOwned() bool {
	return c.OwnerID != ""
}

// utilityMultipliers is indexed by level
var utilityMultipliers = [...]int{1, 2, 3, 4, 5}

// RentAt returns the rent charged at level
func (c *Cell) RentAt(level Level) int {
	if !c.IsOwnable() || !level.Valid() {
		return 0
	}
	if c.Category == CellUtility {
		return c.BaseRent * utilityMultipliers[level]
	}
	return c.BaseRent << uint(level)
}

// Rent returns the rent for the current level
func (c *Cell) Rent() int {
	return c.RentAt(c.Level)
}

// CanUpgrade reports whether the cell may move to the next level
func (c *Cell) CanUpgrade() bool {
	return c.Category == CellProperty && c.IsOwned() && c.Level < LevelMax
}

// Event is an immutable fortune or misfortune outcome drawn from a catalog
type Event struct {
	Kind        EventKind `bson:"kind" json:"kind"`
	Title       string    `bson:"title" json:"title"`
	Description string    `bson:"description" json:"description"`
	Effects     Effects   `bson:"effects" json:"effects"`
	// Weight is the relative draw frequency, 0 counts as 1
	Weight int `bson:"weight,omitempty" json:"weight,omitempty"`
}

// Effects is the effect descriptor of an event. Zero fields have no effect.
type Effects struct {
	Money             int     `bson:"money,omitempty" json:"money,omitempty"`
	CollectFromEach   int     `bson:"collectFromEach,omitempty" json:"collectFromEach,omitempty"`
	RepairPerProperty int     `bson:"repairPerProperty,omitempty" json:"repairPerProperty,omitempty"`
	ExtraTaxRate      float64 `bson:"extraTaxRate,omitempty" json:"extraTaxRate,omitempty"`
	GoToJail          bool    `bson:"goToJail,omitempty" json:"goToJail,omitempty"`
	MoveBack          int     `bson:"moveBack,omitempty" json:"moveBack,omitempty"`
	GrantItem         Item    `bson:"grantItem,omitempty" json:"grantItem,omitempty"`
	Discount          float64 `bson:"discount,omitempty" json:"discount,omitempty"`
	ExtraTurn         bool    `bson:"extraTurn,omitempty" json:"extraTurn,omitempty"`
	FreeMove          bool    `bson:"freeMove,omitempty" json:"freeMove,omitempty"`
}

// Notification is the payload delivered to observers after every committed action
type Notification struct {
	Type      NotificationType       `json:"type"`
	GameID    string                 `json:"gameId,omitempty"`
	PlayerID  string                 `json:"playerId,omitempty"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Fact is a discrete statistics record. The engine writes facts and never reads them.
type Fact struct {
	Type      FactType  `bson:"type" json:"type"`
	GameID    string    `bson:"gameId" json:"gameId"`
	PlayerID  string    `bson:"playerId,omitempty" json:"playerId,omitempty"`
	Amount    int       `bson:"amount,omitempty" json:"amount,omitempty"`
	Detail    string    `bson:"detail,omitempty" json:"detail,omitempty"`
	// Retracted marks a fact withdrawn because its action was undone
	Retracted bool      `bson:"retracted,omitempty" json:"retracted,omitempty"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// PlayerKind distinguishes human and automated participants
type PlayerKind string

const (
	PlayerKindHuman     PlayerKind = "human"
	PlayerKindAutomated PlayerKind = "automated"
)

// Item is a single-use inventory entry
type Item string

const (
	ItemRentWaiver Item = "rent_waiver"
	ItemJailFree   Item = "jail_free"
)

// CellCategory classifies board cells
type CellCategory string

const (
	CellStart       CellCategory = "start"
	CellProperty    CellCategory = "property"
	CellTransitHub  CellCategory = "transit_hub"
	CellUtility     CellCategory = "utility"
	CellLandmark    CellCategory = "landmark"
	CellChance      CellCategory = "chance"
	CellMisfortune  CellCategory = "misfortune"
	CellTax         CellCategory = "tax"
	CellJail        CellCategory = "jail"
	CellGoToJail    CellCategory = "go_to_jail"
	CellFreeParking CellCategory = "free_parking"
)

// Valid reports whether c is one of the known categories
func (c CellCategory) Valid() bool {
	switch c {
	case CellStart, CellProperty, CellTransitHub, CellUtility, CellLandmark,
		CellChance, CellMisfortune, CellTax, CellJail, CellGoToJail, CellFreeParking:
		return true
	}
	return false
}

// Level is a property improvement tier
type Level int

const (
	LevelNone Level = iota
	LevelTier1
	LevelTier2
	LevelTier3
	LevelMax
)

var levelNames = map[Level]string{
	LevelNone:  "none",
	LevelTier1: "tier1",
	LevelTier2: "tier2",
	LevelTier3: "tier3",
	LevelMax:   "max",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether l is a known tier
func (l Level) Valid() bool {
	return l >= LevelNone && l <= LevelMax
}

// EventKind selects the catalog an event is drawn from
type EventKind string

const (
	EventFortune    EventKind = "fortune"
	EventMisfortune EventKind = "misfortune"
)

// NotificationType tags observer payloads
type NotificationType string

const (
	NotifyGameStarted    NotificationType = "game_started"
	NotifyDiceRolled     NotificationType = "dice_rolled"
	NotifyPlayerMoved    NotificationType = "player_moved"
	NotifyLanding        NotificationType = "landing"
	NotifyPurchase       NotificationType = "purchase"
	NotifyUpgrade        NotificationType = "upgrade"
	NotifyRentPaid       NotificationType = "rent_paid"
	NotifyTaxPaid        NotificationType = "tax_paid"
	NotifyEvent          NotificationType = "event"
	NotifyJail           NotificationType = "jail"
	NotifyTrade          NotificationType = "trade"
	NotifyTurnEnded      NotificationType = "turn_ended"
	NotifyBankruptcy     NotificationType = "bankruptcy"
	NotifyGameFinished   NotificationType = "game_finished"
	NotifyGamePaused     NotificationType = "game_paused"
	NotifyGameResumed    NotificationType = "game_resumed"
	NotifyUndo           NotificationType = "undo"
	NotifyRedo           NotificationType = "redo"
	NotifySnapshotLoaded NotificationType = "snapshot_loaded"
)

// FactType tags statistics facts
type FactType string

const (
	FactPropertyPurchase FactType = "property_purchase"
	FactPropertyUpgrade  FactType = "property_upgrade"
	FactRentPayment      FactType = "rent_payment"
	FactRentCollection   FactType = "rent_collection"
	FactTaxPayment       FactType = "tax_payment"
	FactLuckyBonus       FactType = "lucky_bonus"
	FactUnluckyPenalty   FactType = "unlucky_penalty"
	FactJailVisit        FactType = "jail_visit"
	FactLuckyEvent       FactType = "lucky_event"
	FactUnluckyEvent     FactType = "unlucky_event"
	FactTurnCompleted    FactType = "turn_completed"
	FactBankruptcy       FactType = "bankruptcy"
	FactTrade            FactType = "trade"
)
