package resultgrid

import (
	"fmt"

	"github.com/bryantinsley/flashcards/quiz/pkg/ui/styles"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

type Status string

const (
	StatusUnanswered Status = "Unanswered"
	StatusAnswered   Status = "Answered"
	StatusPending    Status = "Pending"
	StatusCorrect    Status = "Correct"
	StatusIncorrect  Status = "Incorrect"
	StatusFailed     Status = "Failed"
)

// Tile summarizes one card of a finished quiz.
type Tile struct {
	Number   int
	Question string
	Status   Status
	Score    float64
	OnSelect func() tea.Cmd

	x, y          int
	width, height int
	focused       bool
}

func NewTile(number int, question string, status Status, score float64, onSelect func() tea.Cmd) *Tile {
	return &Tile{
		Number:   number,
		Question: question,
		Status:   status,
		Score:    score,
		OnSelect: onSelect,
	}
}

func (t *Tile) SetFocused(focused bool) {
	t.focused = focused
}

// Clickable Implementation

func (t *Tile) Contains(x, y int) bool {
	return x >= t.x && x < t.x+t.width && y >= t.y && y < t.y+t.height
}

func (t *Tile) HandleClick(x, y int) tea.Cmd {
	if t.OnSelect != nil {
		return t.OnSelect()
	}
	return nil
}

func (t *Tile) Bounds() (x, y, width, height int) {
	return t.x, t.y, t.width, t.height
}

func (t *Tile) SetBounds(x, y, width, height int) {
	t.x = x
	t.y = y
	t.width = width
	t.height = height
}

const questionWidth = 12

// Render renders the tile.
func (t *Tile) Render() string {
	style := styles.TileStyle
	if t.focused {
		style = styles.TileFocusedStyle
	}

	var icon, score string
	switch t.Status {
	case StatusCorrect:
		icon = styles.CorrectStyle.Render("✔")
		score = fmt.Sprintf("%.0f%%", t.Score*100)
	case StatusIncorrect:
		icon = styles.IncorrectStyle.Render("✖")
		score = fmt.Sprintf("%.0f%%", t.Score*100)
	case StatusAnswered:
		icon = styles.SubtleStyle.Render("•")
		score = "answered"
	case StatusPending:
		icon = styles.PendingStyle.Render("…")
		score = "grading"
	case StatusFailed:
		icon = styles.ErrorStyle.Render("!")
		score = "no grade"
	default:
		icon = styles.SubtleStyle.Render("·")
		score = "skipped"
	}

	header := fmt.Sprintf("%s #%d", icon, t.Number)
	question := runewidth.Truncate(t.Question, questionWidth, "…")
	content := fmt.Sprintf("%s\n%s\n%s", header, question, styles.SubtleStyle.Render(score))

	rendered := style.Render(content)
	t.width = lipgloss.Width(rendered)
	t.height = lipgloss.Height(rendered)
	return rendered
}
