package board

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"

	"github.com/richman/backend/internal/game/models"
)

//go:embed default_board.json
var defaultBoard []byte

// cellRecord is the on-disk layout of one cell
type cellRecord struct {
	Position    int    `json:"position"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Price       int    `json:"price"`
	Rent        int    `json:"rent"`
	UpgradeCost int    `json:"upgrade_cost"`
	Description string `json:"description"`
}

type boardFile struct {
	Cells []cellRecord `json:"cells"`
}

// Board is the ordered ring of cells a session is played on
type Board struct {
	cells []*models.Cell
	jail  int
}

// New builds a board from cells, which must be indexed 0..n-1 in order
func New(cells []models.Cell) (*Board, error) {
	if len(cells) < 2 {
		return nil, fmt.Errorf("board needs at least 2 cells, got %d", len(cells))
	}

	b := &Board{cells: make([]*models.Cell, len(cells)), jail: -1}
	hasGoToJail := false
	for i := range cells {
		cell := cells[i]
		if cell.Position != i {
			return nil, fmt.Errorf("cell %q has position %d, expected %d", cell.Name, cell.Position, i)
		}
		if !cell.Level.Valid() {
			return nil, fmt.Errorf("cell %q has invalid level %d", cell.Name, cell.Level)
		}
		if !cell.Category.Valid() {
			return nil, fmt.Errorf("cell %q has unknown type %q", cell.Name, cell.Category)
		}
		switch cell.Category {
		case models.CellJail:
			if b.jail < 0 {
				b.jail = i
			}
		case models.CellGoToJail:
			hasGoToJail = true
		}
		b.cells[i] = &cell
	}

	if b.jail < 0 {
		if hasGoToJail {
			return nil, fmt.Errorf("board has a go-to-jail cell but no jail")
		}
		b.jail = 0
	}

	return b, nil
}

// Load reads a board definition in JSON form
func Load(r io.Reader) (*Board, error) {
	var file boardFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode board: %w", err)
	}

	cells := make([]models.Cell, 0, len(file.Cells))
	for _, rec := range file.Cells {
		cells = append(cells, models.Cell{
			Position:    rec.Position,
			Name:        rec.Name,
			Category:    models.CellCategory(rec.Type),
			Price:       rec.Price,
			BaseRent:    rec.Rent,
			UpgradeCost: rec.UpgradeCost,
			Description: rec.Description,
		})
	}

	return New(cells)
}

// Default returns a fresh copy of the built-in 36 cell board
func Default() (*Board, error) {
	return Load(bytes.NewReader(defaultBoard))
}

// Len returns the number of cells
func (b *Board) Len() int {
	return len(b.cells)
}

// At returns the cell at position, wrapping around the ring
func (b *Board) At(position int) *models.Cell {
	n := len(b.cells)
	return b.cells[((position%n)+n)%n]
}

// Cells returns the live cells in board order
func (b *Board) Cells() []*models.Cell {
	return b.cells
}

// JailPosition returns the index of the jail cell
func (b *Board) JailPosition() int {
	return b.jail
}

// OwnedBy returns the cells owned by playerID in board order
func (b *Board) OwnedBy(playerID string) []*models.Cell {
	var owned []*models.Cell
	for _, cell := range b.cells {
		if cell.OwnerID == playerID {
			owned = append(owned, cell)
		}
	}
	return owned
}

// Snapshot copies the mutable cell state
func (b *Board) Snapshot() []models.Cell {
	out := make([]models.Cell, len(b.cells))
	for i, cell := range b.cells {
		out[i] = *cell
	}
	return out
}

// Restore overwrites ownership and levels from a snapshot of the same layout
func (b *Board) Restore(cells []models.Cell) error {
	if len(cells) != len(b.cells) {
		return fmt.Errorf("snapshot has %d cells, board has %d", len(cells), len(b.cells))
	}
	for i := range cells {
		if cells[i].Position != i {
			return fmt.Errorf("snapshot cell %d has position %d", i, cells[i].Position)
		}
	}
	for i := range cells {
		*b.cells[i] = cells[i]
	}
	return nil
}
