package session

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bryantinsley/flashcards/quiz/pkg/evaluation"
	"github.com/bryantinsley/flashcards/quiz/pkg/worker"
)

func tick() tea.Cmd {
	return tea.Tick(1*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForEvaluation delivers the next supervisor event. It yields nothing
// once the supervisor is closed.
func waitForEvaluation(ch <-chan worker.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return evaluationMsg(ev)
	}
}

func assess(a Assessor, deckName string, results []evaluation.CardResult) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), assessTimeout)
		defer cancel()

		raw, err := a.AssessSession(ctx, deckName, results)
		if err != nil {
			return assessmentMsg{err: err}
		}
		assessment, err := evaluation.ParseAssessment(raw)
		return assessmentMsg{assessment: assessment, err: err}
	}
}

func askChat(c Chatter, slot int, topic evaluation.ChatTopic, history []evaluation.ChatTurn, message string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), chatTimeout)
		defer cancel()

		reply, err := c.Chat(ctx, topic, history, message)
		return chatReplyMsg{slot: slot, reply: reply, err: err}
	}
}

func press(k tea.KeyMsg) func() tea.Cmd {
	return func() tea.Cmd {
		return func() tea.Msg { return k }
	}
}
