package components

import (
	"strings"

	"github.com/bryantinsley/flashcards/quiz/pkg/ui/styles"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Hint is a key binding shown in the footer. Clicking it runs the same
// action as pressing the key.
type Hint struct {
	Key    string
	Label  string
	Action func() tea.Cmd

	// Dimmed hints are shown but do nothing in the current state.
	Dimmed bool
	Active bool

	x, y          int
	width, height int
}

// NewHint creates a hint for key.
func NewHint(key, label string, action func() tea.Cmd) *Hint {
	return &Hint{Key: key, Label: label, Action: action}
}

func (h *Hint) Contains(x, y int) bool {
	return x >= h.x && x < h.x+h.width && y >= h.y && y < h.y+h.height
}

func (h *Hint) HandleClick(x, y int) tea.Cmd {
	if h.Dimmed || h.Action == nil {
		return nil
	}
	return h.Action()
}

func (h *Hint) Bounds() (x, y, width, height int) {
	return h.x, h.y, h.width, h.height
}

func (h *Hint) SetBounds(x, y, width, height int) {
	h.x, h.y = x, y
	h.width, h.height = width, height
}

// Render draws the hint and records its size.
func (h *Hint) Render() string {
	style, keyStyle := styles.HintStyle, styles.KeyStyle
	switch {
	case h.Dimmed:
		style, keyStyle = styles.HintDimmedStyle, styles.KeyDimmedStyle
	case h.Active:
		style = styles.HintActiveStyle
	}

	content := h.Label
	if h.Key != "" {
		content = keyStyle.Render(h.Key) + " " + h.Label
	}

	rendered := style.Render(content)
	h.width = lipgloss.Width(rendered)
	h.height = lipgloss.Height(rendered)
	return rendered
}

// HintBar lays hints out on one line and routes clicks on them.
type HintBar struct {
	Hints []*Hint
}

// NewHintBar creates a bar from hints.
func NewHintBar(hints ...*Hint) *HintBar {
	return &HintBar{Hints: hints}
}

// Render draws the bar at screen row y, wrapping onto further rows when the
// hints do not fit in width. Hint bounds are updated for click handling.
func (b *HintBar) Render(y, width int) string {
	var rows []string
	var row strings.Builder
	x := 0
	for _, h := range b.Hints {
		r := h.Render()
		w := lipgloss.Width(r)
		if x > 0 && width > 0 && x+w > width {
			rows = append(rows, row.String())
			row.Reset()
			x = 0
			y++
		}
		h.SetBounds(x, y, w, 1)
		row.WriteString(r)
		x += w
	}
	if row.Len() > 0 {
		rows = append(rows, row.String())
	}
	return strings.Join(rows, "\n")
}

// Clickables returns the hints for registration with a ClickDispatcher.
func (b *HintBar) Clickables() []Clickable {
	out := make([]Clickable, len(b.Hints))
	for i, h := range b.Hints {
		out[i] = h
	}
	return out
}
