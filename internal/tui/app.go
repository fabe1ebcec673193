// Package tui implements the interactive Agent Studio chat interface.
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Run launches the interactive inline-mode TUI.
func Run(version, profile string) error {
	p := tea.NewProgram(initialModel(version, profile))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
