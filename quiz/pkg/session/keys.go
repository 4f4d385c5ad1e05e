package session

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Submit     key.Binding
	Newline    key.Binding
	Left       key.Binding
	Right      key.Binding
	Up         key.Binding
	Down       key.Binding
	Home       key.Binding
	End        key.Binding
	Backspace  key.Binding
	Delete     key.Binding
	NextCard   key.Binding
	PrevCard   key.Binding
	Reevaluate key.Binding
	Cancel     key.Binding
	Chat       key.Binding
	PageUp     key.Binding
	PageDown   key.Binding
	Quit       key.Binding
	ForceQuit  key.Binding

	RetryAssessment key.Binding
}

var keys = keyMap{
	Submit:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
	Newline:    key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"), key.WithHelp("alt+enter", "newline")),
	Left:       key.NewBinding(key.WithKeys("left")),
	Right:      key.NewBinding(key.WithKeys("right")),
	Up:         key.NewBinding(key.WithKeys("up")),
	Down:       key.NewBinding(key.WithKeys("down")),
	Home:       key.NewBinding(key.WithKeys("home")),
	End:        key.NewBinding(key.WithKeys("end")),
	Backspace:  key.NewBinding(key.WithKeys("backspace")),
	Delete:     key.NewBinding(key.WithKeys("delete")),
	NextCard:   key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "next card")),
	PrevCard:   key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "prev card")),
	Reevaluate: key.NewBinding(key.WithKeys("ctrl+e"), key.WithHelp("ctrl+e", "re-evaluate")),
	Cancel:     key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "cancel")),
	Chat:       key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "chat")),
	PageUp:     key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
	PageDown:   key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll down")),
	Quit:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "quit")),
	ForceQuit:  key.NewBinding(key.WithKeys("ctrl+c")),

	RetryAssessment: key.NewBinding(key.WithKeys("r", "R"), key.WithHelp("r", "retry assessment")),
}
