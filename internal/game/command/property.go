package command

import (
	"fmt"

	"github.com/richman/backend/internal/game/models"
)

// Purchase buys an unowned cell. A pending discount on the buyer lowers the
// price and is consumed.
type Purchase struct {
	guard
	player *models.Player
	cell   *models.Cell

	paid         int
	prevDiscount float64
}

func NewPurchase(player *models.Player, cell *models.Cell) *Purchase {
	return &Purchase{player: player, cell: cell}
}

// PriceFor returns what player would pay for cell
func PriceFor(player *models.Player, cell *models.Cell) int {
	if player.Discount > 0 && player.Discount < 1 {
		return int(float64(cell.Price) * player.Discount)
	}
	return cell.Price
}

func (c *Purchase) Execute() error {
	if err := c.begin("purchase"); err != nil {
		return err
	}
	if !c.cell.IsOwnable() {
		return models.Errorf(models.CodeInvalidArgument, "%s cannot be bought", c.cell.Name)
	}
	if c.cell.IsOwned() {
		return models.Errorf(models.CodeAlreadyOwned, "%s is already owned", c.cell.Name)
	}
	price := PriceFor(c.player, c.cell)
	if !c.player.CanAfford(price) {
		return models.Errorf(models.CodeInsufficientFunds, "%s cannot afford %s for %d", c.player.Name, c.cell.Name, price)
	}

	c.paid = price
	c.prevDiscount = c.player.Discount
	c.player.Cash -= price
	c.player.Discount = 0
	c.player.AddProperty(c.cell.Position)
	c.cell.OwnerID = c.player.ID
	c.executed = true
	return nil
}

func (c *Purchase) Undo() error {
	if err := c.beginUndo("purchase"); err != nil {
		return err
	}
	c.player.Cash += c.paid
	c.player.Discount = c.prevDiscount
	c.player.RemoveProperty(c.cell.Position)
	c.cell.OwnerID = ""
	c.executed = false
	return nil
}

func (c *Purchase) Describe() string {
	price := c.paid
	if !c.executed && price == 0 {
		price = PriceFor(c.player, c.cell)
	}
	return fmt.Sprintf("%s buys %s for %d", c.player.Name, c.cell.Name, price)
}

// Paid returns the price charged by the last execution
func (c *Purchase) Paid() int {
	return c.paid
}

// Upgrade raises an owned property one level
type Upgrade struct {
	guard
	player *models.Player
	cell   *models.Cell

	prevLevel models.Level
}

func NewUpgrade(player *models.Player, cell *models.Cell) *Upgrade {
	return &Upgrade{player: player, cell: cell}
}

func (c *Upgrade) Execute() error {
	if err := c.begin("upgrade"); err != nil {
		return err
	}
	if c.cell.OwnerID != c.player.ID {
		return models.Errorf(models.CodeNotOwner, "%s does not own %s", c.player.Name, c.cell.Name)
	}
	if !c.cell.CanUpgrade() {
		return models.Errorf(models.CodeNotUpgradable, "%s cannot be upgraded", c.cell.Name)
	}
	if !c.player.CanAfford(c.cell.UpgradeCost) {
		return models.Errorf(models.CodeInsufficientFunds, "%s cannot afford the %d upgrade", c.player.Name, c.cell.UpgradeCost)
	}

	c.prevLevel = c.cell.Level
	c.player.Cash -= c.cell.UpgradeCost
	c.cell.Level++
	c.executed = true
	return nil
}

func (c *Upgrade) Undo() error {
	if err := c.beginUndo("upgrade"); err != nil {
		return err
	}
	c.cell.Level = c.prevLevel
	c.player.Cash += c.cell.UpgradeCost
	c.executed = false
	return nil
}

func (c *Upgrade) Describe() string {
	return fmt.Sprintf("%s upgrades %s", c.player.Name, c.cell.Name)
}

// PayRent charges the cell's rent to payer and credits owner. A rent waiver
// in the payer's inventory is consumed instead. Rent is compulsory: the payer
// may end in debt, and the owner receives only what the payer could cover.
type PayRent struct {
	guard
	payer *models.Player
	owner *models.Player
	cell  *models.Cell

	rent         int
	collected    int
	waived       bool
	waiverIndex  int
	prevBankrupt bool
}

func NewPayRent(payer, owner *models.Player, cell *models.Cell) *PayRent {
	return &PayRent{payer: payer, owner: owner, cell: cell}
}

func (c *PayRent) Execute() error {
	if err := c.begin("pay rent"); err != nil {
		return err
	}
	if c.cell.OwnerID != c.owner.ID {
		return models.Errorf(models.CodeNotOwner, "%s does not own %s", c.owner.Name, c.cell.Name)
	}

	c.prevBankrupt = c.payer.Bankrupt
	c.rent = c.cell.Rent()
	c.waived = false
	c.collected = 0

	if idx := c.payer.ConsumeItem(models.ItemRentWaiver); idx >= 0 {
		c.waived = true
		c.waiverIndex = idx
		c.executed = true
		return nil
	}

	c.collected = c.rent
	if c.payer.Cash < c.rent {
		c.collected = c.payer.Cash
		if c.collected < 0 {
			c.collected = 0
		}
	}
	c.payer.Cash -= c.rent
	c.owner.Cash += c.collected
	settle(c.payer)
	c.executed = true
	return nil
}

func (c *PayRent) Undo() error {
	if err := c.beginUndo("pay rent"); err != nil {
		return err
	}
	if c.waived {
		c.payer.RestoreItem(c.waiverIndex, models.ItemRentWaiver)
	} else {
		c.payer.Cash += c.rent
		c.owner.Cash -= c.collected
		c.payer.Bankrupt = c.prevBankrupt
	}
	c.executed = false
	return nil
}

// Describe reports the rent charged at execution, before any later upgrade
func (c *PayRent) Describe() string {
	if c.waived {
		return fmt.Sprintf("%s uses a rent waiver on %s", c.payer.Name, c.cell.Name)
	}
	return fmt.Sprintf("%s pays %d rent to %s for %s", c.payer.Name, c.rent, c.owner.Name, c.cell.Name)
}

// Rent returns the rent charged, zero when a waiver was used
func (c *PayRent) Rent() int {
	if c.waived {
		return 0
	}
	return c.rent
}

// Collected returns the amount credited to the owner
func (c *PayRent) Collected() int {
	return c.collected
}

// Waived reports whether a rent waiver covered the payment
func (c *PayRent) Waived() bool {
	return c.waived
}

// PayTax charges a compulsory tax
type PayTax struct {
	guard
	player *models.Player
	amount int
	label  string

	prevBankrupt bool
}

func NewPayTax(player *models.Player, amount int, label string) *PayTax {
	return &PayTax{player: player, amount: amount, label: label}
}

func (c *PayTax) Execute() error {
	if err := c.begin("pay tax"); err != nil {
		return err
	}
	if c.amount < 0 {
		return models.Errorf(models.CodeInvalidArgument, "tax cannot be negative")
	}
	c.prevBankrupt = c.player.Bankrupt
	c.player.Cash -= c.amount
	settle(c.player)
	c.executed = true
	return nil
}

func (c *PayTax) Undo() error {
	if err := c.beginUndo("pay tax"); err != nil {
		return err
	}
	c.player.Cash += c.amount
	c.player.Bankrupt = c.prevBankrupt
	c.executed = false
	return nil
}

func (c *PayTax) Describe() string {
	return fmt.Sprintf("%s pays %d %s", c.player.Name, c.amount, c.label)
}

// TransferCash moves money between players. The sender must cover it.
type TransferCash struct {
	guard
	from   *models.Player
	to     *models.Player
	amount int
}

func NewTransferCash(from, to *models.Player, amount int) *TransferCash {
	return &TransferCash{from: from, to: to, amount: amount}
}

func (c *TransferCash) Execute() error {
	if err := c.begin("transfer cash"); err != nil {
		return err
	}
	if c.amount < 0 {
		return models.Errorf(models.CodeInvalidArgument, "transfer amount cannot be negative")
	}
	if !c.from.CanAfford(c.amount) {
		return models.Errorf(models.CodeInsufficientFunds, "%s cannot transfer %d", c.from.Name, c.amount)
	}
	c.from.Cash -= c.amount
	c.to.Cash += c.amount
	c.executed = true
	return nil
}

func (c *TransferCash) Undo() error {
	if err := c.beginUndo("transfer cash"); err != nil {
		return err
	}
	c.from.Cash += c.amount
	c.to.Cash -= c.amount
	c.executed = false
	return nil
}

func (c *TransferCash) Describe() string {
	return fmt.Sprintf("%s pays %d to %s", c.from.Name, c.amount, c.to.Name)
}

// TransferProperty hands a cell to another player, keeping its level
type TransferProperty struct {
	guard
	from *models.Player
	to   *models.Player
	cell *models.Cell

	fromIndex int
}

func NewTransferProperty(from, to *models.Player, cell *models.Cell) *TransferProperty {
	return &TransferProperty{from: from, to: to, cell: cell}
}

func (c *TransferProperty) Execute() error {
	if err := c.begin("transfer property"); err != nil {
		return err
	}
	if c.cell.OwnerID != c.from.ID || !c.from.Owns(c.cell.Position) {
		return models.Errorf(models.CodeNotOwner, "%s does not own %s", c.from.Name, c.cell.Name)
	}
	c.fromIndex = c.from.RemoveProperty(c.cell.Position)
	c.to.AddProperty(c.cell.Position)
	c.cell.OwnerID = c.to.ID
	c.executed = true
	return nil
}

func (c *TransferProperty) Undo() error {
	if err := c.beginUndo("transfer property"); err != nil {
		return err
	}
	c.to.RemoveProperty(c.cell.Position)
	c.from.InsertProperty(c.fromIndex, c.cell.Position)
	c.cell.OwnerID = c.from.ID
	c.executed = false
	return nil
}

func (c *TransferProperty) Describe() string {
	return fmt.Sprintf("%s gives %s to %s", c.from.Name, c.cell.Name, c.to.Name)
}
