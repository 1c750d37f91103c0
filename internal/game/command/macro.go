package command

import (
	"fmt"
	"strings"
)

// Macro runs several commands as one. If a member fails, the members already
// executed are undone in reverse order and the macro has no effect.
type Macro struct {
	guard
	name     string
	commands []Command
}

func NewMacro(name string, commands ...Command) *Macro {
	return &Macro{name: name, commands: commands}
}

func (m *Macro) Execute() error {
	if err := m.begin(m.name); err != nil {
		return err
	}
	for i, c := range m.commands {
		if err := c.Execute(); err != nil {
			for j := i - 1; j >= 0; j-- {
				// Members were just executed, so undo cannot report misuse
				_ = m.commands[j].Undo()
			}
			return fmt.Errorf("%s: %w", m.name, err)
		}
	}
	m.executed = true
	return nil
}

func (m *Macro) Undo() error {
	if err := m.beginUndo(m.name); err != nil {
		return err
	}
	for i := len(m.commands) - 1; i >= 0; i-- {
		if err := m.commands[i].Undo(); err != nil {
			return fmt.Errorf("%s: %w", m.name, err)
		}
	}
	m.executed = false
	return nil
}

func (m *Macro) Describe() string {
	parts := make([]string, len(m.commands))
	for i, c := range m.commands {
		parts[i] = c.Describe()
	}
	return fmt.Sprintf("%s (%s)", m.name, strings.Join(parts, "; "))
}

// Len returns the number of member commands
func (m *Macro) Len() int {
	return len(m.commands)
}
