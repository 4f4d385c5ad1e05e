package components

import tea "github.com/charmbracelet/bubbletea"

// Clickable is implemented by components that react to the mouse.
type Clickable interface {
	// Contains returns true if the point is within the component's bounds
	Contains(x, y int) bool

	// HandleClick processes a click at the given position
	HandleClick(x, y int) tea.Cmd

	// Bounds returns the component's screen position
	Bounds() (x, y, width, height int)

	// SetBounds sets the component's screen position
	SetBounds(x, y, width, height int)
}

// ClickDispatcher routes mouse releases to the component under the pointer.
type ClickDispatcher struct {
	components []Clickable
}

func NewClickDispatcher(components []Clickable) *ClickDispatcher {
	return &ClickDispatcher{components: components}
}

// HandleMouse delegates a left-button release to the topmost component
// containing it. Later components are drawn on top.
func (d *ClickDispatcher) HandleMouse(msg tea.MouseMsg) tea.Cmd {
	if msg.Action != tea.MouseActionRelease {
		return nil
	}
	for i := len(d.components) - 1; i >= 0; i-- {
		c := d.components[i]
		if c.Contains(msg.X, msg.Y) {
			return c.HandleClick(msg.X, msg.Y)
		}
	}
	return nil
}
