package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/bryantinsley/flashcards/quiz/pkg/editor"
	"github.com/bryantinsley/flashcards/quiz/pkg/evaluation"
	"github.com/bryantinsley/flashcards/quiz/pkg/store"
	"github.com/bryantinsley/flashcards/quiz/pkg/ui/styles"
)

const chatScrollStep = 5

// chatState is the follow-up chat popup of one card.
type chatState struct {
	slot     int
	input    *editor.Buffer
	history  viewport.Model
	markdown *glamour.TermRenderer
	err      error
	readOnly bool // the session is complete; old conversations can only be read
}

func (m *Model) canChat(c *card) bool {
	return m.chatter != nil && c.answered && c.outcome != nil && c.outcome.Status == evaluation.StatusSucceeded
}

func (m *Model) openChat() {
	m.chat = &chatState{
		slot:     m.current,
		input:    newAnswer(""),
		readOnly: m.completed,
	}
	m.layoutChat()
	m.chat.history.GotoBottom()
}

// chatBox returns the width of the popup and the width of its content.
func (m Model) chatBox() (int, int) {
	outer := max(30, m.width*4/5)
	return outer, outer - 8
}

func (m *Model) layoutChat() {
	_, inner := m.chatBox()
	height := max(3, m.height*85/100-12)
	m.chat.history = viewport.New(inner, height)

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.markdownStyle),
		glamour.WithWordWrap(max(10, inner-2)),
	)
	if err != nil {
		m.logger.Debug("chat markdown renderer unavailable", zap.Error(err))
		r = nil
	}
	m.chat.markdown = r
	m.syncChat()
}

// syncChat re-renders the conversation into the history viewport.
func (m *Model) syncChat() {
	ch := m.chat
	c := m.cards[ch.slot]
	_, inner := m.chatBox()
	indent := lipgloss.NewStyle().PaddingLeft(2).Width(inner)

	if len(c.chat) == 0 {
		ch.history.SetContent(styles.SubtleStyle.Render("Ask a follow-up question about this card."))
		return
	}
	var b strings.Builder
	for _, turn := range c.chat {
		if turn.Role == store.RoleAssistant {
			b.WriteString(styles.CorrectStyle.Render("AI:") + "\n")
			b.WriteString(indent.Render(ch.renderMarkdown(turn.Content)))
		} else {
			b.WriteString(styles.KeyStyle.Render("You:") + "\n")
			b.WriteString(indent.Render(turn.Content))
		}
		b.WriteString("\n\n")
	}
	ch.history.SetContent(strings.TrimRight(b.String(), "\n"))
}

func (ch *chatState) renderMarkdown(md string) string {
	if ch.markdown == nil {
		return md
	}
	out, err := ch.markdown.Render(md)
	if err != nil {
		return md
	}
	return strings.Trim(out, "\n")
}

func (m Model) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ch := m.chat
	c := m.cards[ch.slot]
	_, inner := m.chatBox()

	switch {
	case key.Matches(msg, keys.Quit, keys.Chat):
		m.chat = nil
	case key.Matches(msg, keys.Up):
		ch.history.ScrollUp(chatScrollStep)
	case key.Matches(msg, keys.Down):
		ch.history.ScrollDown(chatScrollStep)
	case key.Matches(msg, keys.PageUp):
		ch.history.PageUp()
	case key.Matches(msg, keys.PageDown):
		ch.history.PageDown()
	case ch.readOnly || c.chatting:
		// scrolling only
	case key.Matches(msg, keys.Submit):
		return m.sendChat()
	default:
		if err := edit(ch.input, msg, chatInputWidth(inner)); err != nil {
			m.logger.Error("cursor movement failed", zap.Error(err))
		}
	}
	return m, nil
}

// sendChat posts the typed question. The question is saved before the
// evaluator is asked so stored conversations keep their order.
func (m Model) sendChat() (tea.Model, tea.Cmd) {
	ch := m.chat
	if ch.input.IsBlank() {
		return m, nil
	}
	c := m.cards[ch.slot]
	text := strings.TrimSpace(ch.input.String())
	history := append([]evaluation.ChatTurn(nil), c.chat...)

	c.chat = append(c.chat, evaluation.ChatTurn{Role: store.RoleUser, Content: text})
	c.chatting = true
	ch.input.Reset("")
	ch.err = nil
	m.syncChat()
	ch.history.GotoBottom()

	topic := evaluation.ChatTopic{
		Question:  c.question,
		Reference: c.reference,
		Answer:    c.submitted,
		Feedback:  c.outcome.Judgment.Explanation,
	}
	m.logger.Debug("chat question", zap.Int("slot", ch.slot), zap.Int("turns", len(c.chat)))
	return m, tea.Sequence(
		m.saveChat(c, store.RoleUser, text),
		askChat(m.chatter, ch.slot, topic, history, text),
	)
}

func (m Model) receiveChat(msg chatReplyMsg) (tea.Model, tea.Cmd) {
	if msg.slot < 0 || msg.slot >= len(m.cards) {
		return m, nil
	}
	c := m.cards[msg.slot]
	c.chatting = false

	var cmd tea.Cmd
	if msg.err != nil {
		m.logger.Warn("chat reply failed", zap.Int("slot", msg.slot), zap.Error(msg.err))
	} else {
		c.chat = append(c.chat, evaluation.ChatTurn{Role: store.RoleAssistant, Content: msg.reply})
		cmd = m.saveChat(c, store.RoleAssistant, msg.reply)
	}

	if m.chat != nil && m.chat.slot == msg.slot {
		m.chat.err = msg.err
		m.syncChat()
		m.chat.history.GotoBottom()
	}
	return m, cmd
}

func (m Model) saveChat(c *card, role, text string) tea.Cmd {
	if m.store == nil || c.flashcardID == 0 {
		return nil
	}
	st, id := m.store, c.flashcardID
	return persist("could not save chat message", func(ctx context.Context) error {
		_, err := st.AddChatMessage(ctx, id, role, text)
		return err
	})
}

func chatInputWidth(inner int) int {
	return max(10, inner-5)
}

func (m Model) chatView() string {
	ch := m.chat
	c := m.cards[ch.slot]
	outer, inner := m.chatBox()

	title := styles.TitleStyle.Render(fmt.Sprintf("Chat about card %d", ch.slot+1))
	parts := []string{title, "", ch.history.View(), ""}

	switch {
	case c.chatting:
		parts = append(parts, m.spinner.View()+" thinking…")
	case ch.err != nil:
		parts = append(parts, styles.ErrorStyle.Render("chat failed: "+ch.err.Error()))
	}

	if ch.readOnly {
		parts = append(parts, styles.SubtleStyle.Render("This session is complete; the chat is read-only."))
	} else {
		width := chatInputWidth(inner)
		style := styles.AnswerBoxStyle
		if c.chatting {
			style = styles.AnswerBoxLockedStyle
		}
		parts = append(parts, style.Width(width+3).Render(editorRows(ch.input, width, !c.chatting)))
	}

	help := []string{styles.KeyStyle.Render("↑↓") + " scroll", styles.KeyStyle.Render("esc") + " close"}
	if !ch.readOnly {
		help = append([]string{styles.KeyStyle.Render("enter") + " send"}, help...)
	}
	parts = append(parts, strings.Join(help, "  "))

	dialog := styles.DialogStyle.Padding(0, 3).Width(outer - 2).Render(strings.Join(parts, "\n"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, dialog)
}
