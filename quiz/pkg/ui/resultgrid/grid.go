// Package resultgrid shows the per-card results of a quiz as a grid of tiles
// navigable by keyboard or mouse.
package resultgrid

import (
	"github.com/bryantinsley/flashcards/quiz/pkg/ui/components"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type Grid struct {
	Tiles      []*Tile
	Cols       int
	FocusIndex int
	Dispatcher *components.ClickDispatcher
}

func New(tiles []*Tile, cols int) *Grid {
	if cols < 1 {
		cols = 1
	}
	g := &Grid{Tiles: tiles, Cols: cols}
	g.updateDispatcher()
	if len(tiles) > 0 {
		tiles[0].SetFocused(true)
	}
	return g
}

func (g *Grid) updateDispatcher() {
	clickables := make([]components.Clickable, len(g.Tiles))
	for i, t := range g.Tiles {
		clickables[i] = t
	}
	g.Dispatcher = components.NewClickDispatcher(clickables)
}

// SetWidth picks as many columns as fit in width.
func (g *Grid) SetWidth(width int) {
	if len(g.Tiles) == 0 {
		return
	}
	tileWidth := lipgloss.Width(g.Tiles[0].Render())
	if tileWidth == 0 {
		return
	}
	g.Cols = max(1, width/tileWidth)
}

// Update moves focus with the arrow keys and selects with enter or a click.
func (g *Grid) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "right", "l":
			g.MoveFocus(1)
		case "left", "h":
			g.MoveFocus(-1)
		case "down", "j":
			g.MoveFocus(g.Cols)
		case "up", "k":
			g.MoveFocus(-g.Cols)
		case "enter":
			if t := g.Focused(); t != nil {
				return t.HandleClick(0, 0)
			}
		}
	case tea.MouseMsg:
		return g.Dispatcher.HandleMouse(msg)
	}
	return nil
}

// Focused returns the focused tile, or nil for an empty grid.
func (g *Grid) Focused() *Tile {
	if g.FocusIndex < 0 || g.FocusIndex >= len(g.Tiles) {
		return nil
	}
	return g.Tiles[g.FocusIndex]
}

func (g *Grid) MoveFocus(delta int) {
	if len(g.Tiles) == 0 {
		return
	}
	next := g.FocusIndex + delta
	if next >= 0 && next < len(g.Tiles) {
		g.Tiles[g.FocusIndex].SetFocused(false)
		g.FocusIndex = next
		g.Tiles[g.FocusIndex].SetFocused(true)
	}
}

// View renders the grid with its top-left corner at screen position
// (originX, originY) and records tile bounds for mouse hits.
func (g *Grid) View(originX, originY int) string {
	if len(g.Tiles) == 0 {
		return "No cards"
	}

	var rows, current []string
	x, y, rowHeight := originX, originY, 0
	for i, t := range g.Tiles {
		rendered := t.Render()
		_, _, w, h := t.Bounds()
		t.SetBounds(x, y, w, h)
		current = append(current, rendered)
		x += w
		rowHeight = max(rowHeight, h)

		if (i+1)%g.Cols == 0 || i == len(g.Tiles)-1 {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, current...))
			current = nil
			x = originX
			y += rowHeight
			rowHeight = 0
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
