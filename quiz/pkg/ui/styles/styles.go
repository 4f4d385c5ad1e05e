package styles

import "github.com/charmbracelet/lipgloss"

var (
	Accent  = lipgloss.Color("205")
	Muted   = lipgloss.Color("241")
	Good    = lipgloss.Color("42")
	Bad     = lipgloss.Color("196")
	Caution = lipgloss.Color("214")

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	SubtleStyle = lipgloss.NewStyle().Foreground(Muted)

	QuestionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252"))

	ReferenceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("110")).
			Italic(true)

	AnswerBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	AnswerBoxLockedStyle = AnswerBoxStyle.
				BorderForeground(Muted)

	CursorStyle = lipgloss.NewStyle().Reverse(true)

	CorrectStyle   = lipgloss.NewStyle().Bold(true).Foreground(Good)
	IncorrectStyle = lipgloss.NewStyle().Bold(true).Foreground(Bad)
	PendingStyle   = lipgloss.NewStyle().Foreground(Caution)
	ErrorStyle     = lipgloss.NewStyle().Foreground(Bad)
	WarningStyle   = lipgloss.NewStyle().Foreground(Caution)

	KeyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Accent)

	KeyDimmedStyle = lipgloss.NewStyle().
			Foreground(Muted)

	HintStyle = lipgloss.NewStyle().
			Padding(0, 1)

	HintActiveStyle = HintStyle.
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("230"))

	HintDimmedStyle = HintStyle.
			Foreground(Muted)

	ListItemStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	ListItemSelectedStyle = lipgloss.NewStyle().
				PaddingLeft(2).
				Foreground(Accent)

	TileStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Muted).
			Width(14).
			Padding(0, 1)

	TileFocusedStyle = TileStyle.
				BorderForeground(Accent)

	DialogStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(Caution).
			Padding(1, 3)
)
