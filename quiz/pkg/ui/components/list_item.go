package components

import (
	"github.com/bryantinsley/flashcards/quiz/pkg/ui/styles"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ListItem is one selectable row, such as a deck in the picker.
type ListItem struct {
	Label    string
	Detail   string
	OnSelect func() tea.Cmd

	x, y          int
	width, height int
	selected      bool
}

func NewListItem(label, detail string, onSelect func() tea.Cmd) *ListItem {
	return &ListItem{Label: label, Detail: detail, OnSelect: onSelect}
}

func (l *ListItem) SetSelected(selected bool) { l.selected = selected }

func (l *ListItem) Selected() bool { return l.selected }

func (l *ListItem) Contains(x, y int) bool {
	return x >= l.x && x < l.x+l.width && y >= l.y && y < l.y+l.height
}

func (l *ListItem) HandleClick(x, y int) tea.Cmd {
	if l.OnSelect != nil {
		return l.OnSelect()
	}
	return nil
}

func (l *ListItem) Bounds() (x, y, width, height int) {
	return l.x, l.y, l.width, l.height
}

func (l *ListItem) SetBounds(x, y, width, height int) {
	l.x, l.y = x, y
	l.width, l.height = width, height
}

// Render renders the item, marking it when selected.
func (l *ListItem) Render() string {
	style := styles.ListItemStyle
	label := "  " + l.Label
	if l.selected {
		style = styles.ListItemSelectedStyle
		label = "> " + l.Label
	}
	if l.Detail != "" {
		label += " " + styles.SubtleStyle.Render(l.Detail)
	}

	rendered := style.Render(label)
	l.width = lipgloss.Width(rendered)
	l.height = lipgloss.Height(rendered)
	return rendered
}
