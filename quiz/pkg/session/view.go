package session

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/bryantinsley/flashcards/quiz/pkg/cursor"
	"github.com/bryantinsley/flashcards/quiz/pkg/editor"
	"github.com/bryantinsley/flashcards/quiz/pkg/evaluation"
	"github.com/bryantinsley/flashcards/quiz/pkg/layout"
	"github.com/bryantinsley/flashcards/quiz/pkg/ui/components"
	"github.com/bryantinsley/flashcards/quiz/pkg/ui/styles"
)

func (m *Model) buildHints() {
	quit := components.NewHint("esc", "quit", press(tea.KeyMsg{Type: tea.KeyEsc}))
	next := components.NewHint("ctrl+n", "next card", press(tea.KeyMsg{Type: tea.KeyCtrlN}))
	prev := components.NewHint("ctrl+p", "prev card", press(tea.KeyMsg{Type: tea.KeyCtrlP}))

	m.editHints = components.NewHintBar(
		components.NewHint("enter", "submit", press(tea.KeyMsg{Type: tea.KeyEnter})),
		components.NewHint("alt+enter", "newline", press(tea.KeyMsg{Type: tea.KeyEnter, Alt: true})),
		next, prev, quit,
	)

	m.reevalHint = components.NewHint("ctrl+e", "re-evaluate", press(tea.KeyMsg{Type: tea.KeyCtrlE}))
	m.cancelHint = components.NewHint("ctrl+x", "cancel", press(tea.KeyMsg{Type: tea.KeyCtrlX}))
	m.chatHint = components.NewHint("ctrl+t", "chat", press(tea.KeyMsg{Type: tea.KeyCtrlT}))
	m.reviewHints = components.NewHintBar(
		components.NewHint("enter", "next", press(tea.KeyMsg{Type: tea.KeyEnter})),
		m.reevalHint, m.cancelHint, m.chatHint,
		components.NewHint("pgdn", "scroll", press(tea.KeyMsg{Type: tea.KeyPgDown})),
		next, prev, quit,
	)

	m.retryHint = components.NewHint("r", "retry assessment", press(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}}))
	m.summaryHints = components.NewHintBar(
		components.NewHint("←↑↓→", "browse", nil),
		components.NewHint("enter", "review card", press(tea.KeyMsg{Type: tea.KeyEnter})),
		m.retryHint,
		components.NewHint("esc", "quit", press(tea.KeyMsg{Type: tea.KeyEsc})),
	)
}

// hints returns the bar for the current screen with its dimmed state up to
// date.
func (m Model) hints() *components.HintBar {
	if m.screen == screenSummary {
		m.retryHint.Dimmed = m.assessmentErr == nil || m.assessor == nil
		return m.summaryHints
	}
	c := m.cards[m.current]
	if !c.answered {
		return m.editHints
	}
	m.reevalHint.Dimmed = m.sup == nil
	m.cancelHint.Dimmed = m.sup == nil || !c.pending()
	m.chatHint.Dimmed = !m.canChat(c)
	return m.reviewHints
}

// answerWidth is the number of cells per wrapped line in the answer box.
// The box is one cell wider so the cursor fits after a full line.
func (m Model) answerWidth() int {
	return max(10, m.width-5)
}

// syncFeedback re-renders the feedback pane for the current card.
func (m *Model) syncFeedback() {
	if len(m.cards) == 0 {
		return
	}
	c := m.cards[m.current]
	if !c.answered {
		m.feedback.SetContent("")
		return
	}
	m.feedback.SetContent(m.renderMarkdown(feedbackMarkdown(c)))
}

func (m *Model) renderMarkdown(md string) string {
	if m.markdown == nil {
		return md
	}
	out, err := m.markdown.Render(md)
	if err != nil {
		m.logger.Debug("markdown render failed", zap.Error(err))
		return md
	}
	return strings.Trim(out, "\n")
}

func feedbackMarkdown(c *card) string {
	var b strings.Builder
	b.WriteString("**Reference answer**\n\n")
	b.WriteString(c.reference)
	b.WriteString("\n")

	if c.outcome == nil || c.outcome.Status != evaluation.StatusSucceeded {
		return b.String()
	}
	j := c.outcome.Judgment
	writeList(&b, "Corrections", j.Corrections)
	if j.Explanation != "" {
		b.WriteString("\n**Explanation**\n\n")
		b.WriteString(j.Explanation)
		b.WriteString("\n")
	}
	writeList(&b, "Suggestions", j.Suggestions)
	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n**%s**\n\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}

func (m Model) View() string {
	var body string
	switch {
	case m.confirmQuit:
		dialog := styles.DialogStyle.Render("Quit the quiz? Progress so far is saved.\n\n" +
			styles.KeyStyle.Render("y") + " quit   " + styles.KeyStyle.Render("any key") + " stay")
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, dialog)
	case m.chat != nil:
		return m.chatView()
	case m.screen == screenSummary:
		body = m.summaryView()
	default:
		body = m.quizView()
	}

	if m.warning != "" {
		body += "\n" + styles.WarningStyle.Render("⚠ "+m.warning)
	}
	bar := m.hints().Render(lipgloss.Height(body)+1, m.width)
	return body + "\n\n" + bar
}

func (m Model) quizView() string {
	c := m.cards[m.current]

	title := styles.TitleStyle.Render(fmt.Sprintf("%s  %d/%d", m.deckName, m.current+1, len(m.cards))) +
		" " + styles.SubtleStyle.Render(fmt.Sprintf("%d answered", m.answeredCount()))
	question := styles.QuestionStyle.Width(max(10, m.width-2)).Render(c.question)

	parts := []string{title, "", question, "", m.answerView(c)}
	if c.answered {
		parts = append(parts, m.statusLine(c), "", m.feedback.View())
	}
	return strings.Join(parts, "\n")
}

// answerView draws the answer box. While editing it shows the cursor at the
// position mapped from the buffer offset.
func (m Model) answerView(c *card) string {
	width := m.answerWidth()

	if c.answered {
		lines, err := layout.WrapFunc(c.submitted, width, layout.CellWidth)
		if err != nil {
			return styles.ErrorStyle.Render(err.Error())
		}
		rows := make([]string, len(lines))
		for i, l := range lines {
			rows[i] = display(l.Content)
		}
		return styles.AnswerBoxLockedStyle.Width(width + 3).Render(strings.Join(rows, "\n"))
	}

	return styles.AnswerBoxStyle.Width(width + 3).Render(editorRows(c.answer, width, true))
}

// editorRows renders b wrapped at width, with the cursor drawn when
// showCursor is set.
func editorRows(b *editor.Buffer, width int, showCursor bool) string {
	lines, pos, err := b.View(width)
	if err != nil {
		return styles.ErrorStyle.Render(err.Error())
	}
	rows := make([]string, len(lines))
	for i, l := range lines {
		if !showCursor || i != pos.Row {
			rows[i] = display(l.Content)
			continue
		}
		rows[i] = withCursor(display(l.Content), cursor.DisplayCol(pos, lines))
	}
	return strings.Join(rows, "\n")
}

// display maps runes that would break the column grid to a single cell.
func display(s string) string {
	return strings.ReplaceAll(s, "\t", " ")
}

func withCursor(line string, col int) string {
	runes := []rune(line)
	col = min(col, len(runes))

	at, after := " ", ""
	if col < len(runes) {
		at = string(runes[col])
		after = string(runes[col+1:])
	}
	return string(runes[:col]) + styles.CursorStyle.Render(at) + after
}

func (m Model) statusLine(c *card) string {
	if c.outcome == nil {
		if m.sup == nil {
			return styles.SubtleStyle.Render("AI evaluation is off")
		}
		return ""
	}
	o := c.outcome
	switch o.Status {
	case evaluation.StatusPending:
		elapsed := m.sup.Elapsed(m.now())
		if elapsed == 0 {
			return m.spinner.View() + " waiting for the evaluator"
		}
		return fmt.Sprintf("%s evaluating… %ds", m.spinner.View(), int(elapsed.Seconds()))
	case evaluation.StatusSucceeded:
		score := fmt.Sprintf(" score %.0f%%", o.Judgment.CorrectnessScore*100)
		if o.Judgment.IsCorrect {
			return styles.CorrectStyle.Render("✔ Correct") + score
		}
		return styles.IncorrectStyle.Render("✖ Incorrect") + score
	case evaluation.StatusTimedOut:
		return styles.WarningStyle.Render("evaluation timed out, press Ctrl+E to retry")
	default:
		return styles.ErrorStyle.Render(o.Reason()) + styles.SubtleStyle.Render(", press Ctrl+E to retry")
	}
}

func (m Model) summaryView() string {
	answered, correct := m.answeredCount(), m.correctCount()
	title := styles.TitleStyle.Render("Session complete: " + m.deckName)
	stats := fmt.Sprintf("Answered %d/%d", answered, len(m.cards))
	if m.sup != nil {
		stats += fmt.Sprintf("  Correct %d", correct)
	}

	header := title + "\n\n" + stats + "\n"
	parts := []string{header}
	if m.grid != nil {
		parts = append(parts, m.grid.View(0, lipgloss.Height(header)))
	}
	if a := m.assessmentView(); a != "" {
		parts = append(parts, a)
	}
	return strings.Join(parts, "\n")
}

func (m Model) assessmentView() string {
	switch {
	case m.assessing:
		return m.spinner.View() + " assessing your session…"
	case m.assessmentErr != nil:
		return styles.ErrorStyle.Render("assessment unavailable: "+m.assessmentErr.Error()) +
			styles.SubtleStyle.Render(", press r to retry")
	case m.assessment == nil:
		return ""
	}

	a := m.assessment
	var b strings.Builder
	fmt.Fprintf(&b, "**Grade %.0f%%**", a.GradePercentage)
	if a.MasteryLevel != "" {
		fmt.Fprintf(&b, " (%s)", a.MasteryLevel)
	}
	b.WriteString("\n\n")
	b.WriteString(a.OverallFeedback)
	b.WriteString("\n")
	writeList(&b, "Strengths", a.Strengths)
	writeList(&b, "Weaknesses", a.Weaknesses)
	writeList(&b, "Suggestions", a.Suggestions)
	return m.renderMarkdown(b.String())
}
