package session

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bryantinsley/flashcards/quiz/pkg/deck"
	"github.com/bryantinsley/flashcards/quiz/pkg/ui/components"
	"github.com/bryantinsley/flashcards/quiz/pkg/ui/styles"
)

type pickMsg struct{ index int }

// Picker lets the user choose a deck file before a quiz starts.
type Picker struct {
	dir    string
	paths  []string
	items  []*components.ListItem
	cursor int
	chosen string
	width  int
}

// NewPicker lists the decks in dir. Decks that fail to load are listed
// with the error so the user can see why.
func NewPicker(dir string) (Picker, error) {
	paths, err := deck.List(dir)
	if err != nil {
		return Picker{}, err
	}
	p := Picker{dir: dir, paths: paths, width: 80}
	for i, path := range paths {
		var detail string
		if d, err := deck.Load(path); err != nil {
			detail = "unreadable: " + err.Error()
		} else {
			detail = fmt.Sprintf("%d cards", len(d.Cards))
		}
		index := i
		p.items = append(p.items, components.NewListItem(deck.Name(path), detail, func() tea.Cmd {
			return func() tea.Msg { return pickMsg{index: index} }
		}))
	}
	if len(p.items) > 0 {
		p.items[0].SetSelected(true)
	}
	return p, nil
}

// Chosen returns the selected deck path, or "" if the user quit.
func (p Picker) Chosen() string { return p.chosen }

func (p Picker) Init() tea.Cmd { return nil }

func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
	case pickMsg:
		p.chosen = p.paths[msg.index]
		return p, tea.Quit
	case tea.MouseMsg:
		clickables := make([]components.Clickable, len(p.items))
		for i, item := range p.items {
			clickables[i] = item
		}
		return p, components.NewClickDispatcher(clickables).HandleMouse(msg)
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			return p, tea.Quit
		case "up", "k":
			p.move(-1)
		case "down", "j":
			p.move(1)
		case "enter":
			if len(p.paths) > 0 {
				p.chosen = p.paths[p.cursor]
				return p, tea.Quit
			}
		}
	}
	return p, nil
}

func (p *Picker) move(delta int) {
	next := p.cursor + delta
	if next < 0 || next >= len(p.items) {
		return
	}
	p.items[p.cursor].SetSelected(false)
	p.cursor = next
	p.items[p.cursor].SetSelected(true)
}

func (p Picker) View() string {
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("Choose a deck"))
	b.WriteString("\n\n")

	if len(p.items) == 0 {
		b.WriteString(styles.SubtleStyle.Render(fmt.Sprintf("No decks found in %s.\nAdd question,answer CSV files there and try again.", p.dir)))
		b.WriteString("\n\n")
		b.WriteString(styles.SubtleStyle.Render("esc quit"))
		return b.String()
	}

	const top = 2
	for i, item := range p.items {
		r := item.Render()
		_, _, w, h := item.Bounds()
		item.SetBounds(0, top+i, w, h)
		b.WriteString(r)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(styles.SubtleStyle.Render("↑/↓ select  enter start  esc quit"))
	return b.String()
}
