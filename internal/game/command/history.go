package command

import (
	"github.com/richman/backend/internal/game/models"
)

// History records committed commands for undo and redo. Entries before the
// cursor can be undone; entries from the cursor on can be redone.
type History struct {
	entries []Command
	cursor  int
	cap     int
}

// NewHistory creates a history keeping at most capacity commands
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{cap: capacity}
}

// Execute runs c and records it on success. Any redo tail is discarded.
func (h *History) Execute(c Command) error {
	if err := c.Execute(); err != nil {
		return err
	}
	h.entries = append(h.entries[:h.cursor], c)
	h.cursor++
	if over := len(h.entries) - h.cap; over > 0 {
		h.entries = append([]Command(nil), h.entries[over:]...)
		h.cursor -= over
	}
	return nil
}

// Undo reverses the latest undoable command
func (h *History) Undo() Result {
	if h.cursor == 0 {
		return ResultOf(models.ErrNothingToUndo, "")
	}
	c := h.entries[h.cursor-1]
	if err := c.Undo(); err != nil {
		return ResultOf(err, "")
	}
	h.cursor--
	return ResultOf(nil, "Undone: "+c.Describe())
}

// Redo re-executes the most recently undone command
func (h *History) Redo() Result {
	if h.cursor >= len(h.entries) {
		return ResultOf(models.ErrNothingToRedo, "")
	}
	c := h.entries[h.cursor]
	if err := c.Execute(); err != nil {
		return ResultOf(err, "")
	}
	h.cursor++
	return ResultOf(nil, "Redone: "+c.Describe())
}

// Last returns the command Undo would reverse
func (h *History) Last() (Command, bool) {
	if h.cursor == 0 {
		return nil, false
	}
	return h.entries[h.cursor-1], true
}

// Next returns the command Redo would reapply
func (h *History) Next() (Command, bool) {
	if h.cursor >= len(h.entries) {
		return nil, false
	}
	return h.entries[h.cursor], true
}

func (h *History) CanUndo() bool { return h.cursor > 0 }

func (h *History) CanRedo() bool { return h.cursor < len(h.entries) }

// Len returns the number of recorded commands
func (h *History) Len() int { return len(h.entries) }

// Cursor returns the number of undoable commands
func (h *History) Cursor() int { return h.cursor }

// Descriptions lists the undoable commands, oldest first
func (h *History) Descriptions() []string {
	out := make([]string, 0, h.cursor)
	for _, c := range h.entries[:h.cursor] {
		out = append(out, c.Describe())
	}
	return out
}

// Clear forgets every recorded command
func (h *History) Clear() {
	h.entries = nil
	h.cursor = 0
}
