package resultgrid

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func tiles(n int, picked *int) []*Tile {
	out := make([]*Tile, n)
	for i := range out {
		num := i + 1
		out[i] = NewTile(num, "question", StatusCorrect, 1, func() tea.Cmd {
			*picked = num
			return nil
		})
	}
	return out
}

func TestTile_Render(t *testing.T) {
	tests := []struct {
		name     string
		tile     *Tile
		contains []string
	}{
		{"correct", NewTile(1, "Capital of France?", StatusCorrect, 0.9, nil), []string{"✔", "#1", "90%", "Capital of"}},
		{"incorrect", NewTile(2, "2+2", StatusIncorrect, 0.25, nil), []string{"✖", "#2", "25%", "2+2"}},
		{"pending", NewTile(3, "q", StatusPending, 0, nil), []string{"…", "grading"}},
		{"failed", NewTile(4, "q", StatusFailed, 0, nil), []string{"!", "no grade"}},
		{"unanswered", NewTile(5, "q", StatusUnanswered, 0, nil), []string{"#5", "skipped"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.tile.Render()
			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Errorf("Render() missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestGrid_KeyboardFocus(t *testing.T) {
	picked := 0
	g := New(tiles(5, &picked), 2)

	g.Update(tea.KeyMsg{Type: tea.KeyRight})
	g.Update(tea.KeyMsg{Type: tea.KeyDown})
	if g.FocusIndex != 3 {
		t.Fatalf("FocusIndex = %d, want 3", g.FocusIndex)
	}

	// Moves off the grid are ignored.
	g.Update(tea.KeyMsg{Type: tea.KeyDown})
	if g.FocusIndex != 3 {
		t.Errorf("FocusIndex = %d after moving past the end", g.FocusIndex)
	}

	g.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if picked != 4 {
		t.Errorf("picked = %d, want 4", picked)
	}

	focused := 0
	for _, tile := range g.Tiles {
		if tile.focused {
			focused++
		}
	}
	if focused != 1 {
		t.Errorf("%d tiles focused", focused)
	}
}

func TestGrid_MouseSelect(t *testing.T) {
	picked := 0
	g := New(tiles(4, &picked), 2)
	out := g.View(0, 3)
	if !strings.Contains(out, "#4") {
		t.Fatalf("View() = %q", out)
	}

	x, y, w, h := g.Tiles[3].Bounds()
	if y <= 3 || w == 0 || h == 0 {
		t.Fatalf("tile 4 bounds = %d,%d %dx%d", x, y, w, h)
	}
	g.Update(tea.MouseMsg{X: x + 1, Y: y + 1, Action: tea.MouseActionRelease})
	if picked != 4 {
		t.Errorf("picked = %d, want 4", picked)
	}
}

func TestGrid_SetWidth(t *testing.T) {
	picked := 0
	g := New(tiles(6, &picked), 1)
	w := len([]rune(strings.Split(g.Tiles[0].Render(), "\n")[0]))

	g.SetWidth(w*3 + 1)
	if g.Cols != 3 {
		t.Errorf("Cols = %d, want 3", g.Cols)
	}
	g.SetWidth(1)
	if g.Cols != 1 {
		t.Errorf("Cols = %d, want 1", g.Cols)
	}
}

func TestGrid_Empty(t *testing.T) {
	g := New(nil, 3)
	if g.View(0, 0) != "No cards" {
		t.Error("empty grid should say so")
	}
	if g.Focused() != nil {
		t.Error("empty grid has no focus")
	}
	if g.Update(tea.KeyMsg{Type: tea.KeyEnter}) != nil {
		t.Error("enter on empty grid should do nothing")
	}
}
