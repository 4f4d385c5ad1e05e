package session

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

func programOptions() []tea.ProgramOption {
	return []tea.ProgramOption{tea.WithAltScreen(), tea.WithMouseCellMotion()}
}

// Run plays the quiz until the user quits and returns the final model.
func Run(m Model) (Model, error) {
	final, err := tea.NewProgram(m, programOptions()...).Run()
	if err != nil {
		return m, fmt.Errorf("run quiz: %w", err)
	}
	return final.(Model), nil
}

// Pick shows the deck picker for dir and returns the chosen deck path, or
// "" when the user quit without choosing.
func Pick(dir string) (string, error) {
	p, err := NewPicker(dir)
	if err != nil {
		return "", err
	}
	final, err := tea.NewProgram(p, programOptions()...).Run()
	if err != nil {
		return "", fmt.Errorf("run deck picker: %w", err)
	}
	return final.(Picker).Chosen(), nil
}
