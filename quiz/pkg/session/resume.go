package session

import (
	"context"
	"fmt"

	"github.com/bryantinsley/flashcards/quiz/pkg/deck"
	"github.com/bryantinsley/flashcards/quiz/pkg/editor"
	"github.com/bryantinsley/flashcards/quiz/pkg/evaluation"
	"github.com/bryantinsley/flashcards/quiz/pkg/layout"
	"github.com/bryantinsley/flashcards/quiz/pkg/store"
)

// SavedStore reads back what a Store wrote.
type SavedStore interface {
	GetSession(ctx context.Context, sessionID int64) (*store.Session, error)
	Flashcards(ctx context.Context, sessionID int64) ([]store.Flashcard, error)
	ChatMessages(ctx context.Context, flashcardID int64) ([]store.ChatMessage, error)
}

// Saved is a stored session that can be played again from where it was
// left.
type Saved struct {
	Session store.Session
	Cards   []store.Flashcard
	// Chats holds the follow-up conversation of each flashcard id.
	Chats map[int64][]store.ChatMessage
}

// LoadSaved reads session id and everything recorded for it.
func LoadSaved(ctx context.Context, st SavedStore, id int64) (*Saved, error) {
	sess, err := st.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	cards, err := st.Flashcards(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("session %d: %w", id, deck.ErrEmpty)
	}

	saved := &Saved{Session: *sess, Cards: cards, Chats: map[int64][]store.ChatMessage{}}
	for _, c := range cards {
		msgs, err := st.ChatMessages(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		if len(msgs) > 0 {
			saved.Chats[c.ID] = msgs
		}
	}
	return saved, nil
}

// cards rebuilds the quiz cards with their answers and stored feedback.
func (s *Saved) cards() []*card {
	out := make([]*card, len(s.Cards))
	for i, f := range s.Cards {
		c := &card{
			question:    f.Question,
			reference:   f.Answer,
			flashcardID: f.ID,
			answer:      newAnswer(""),
		}
		if f.UserAnswer != nil {
			c.answered = true
			c.submitted = *f.UserAnswer
			c.answer.Reset(c.submitted)
		}
		if f.Feedback != nil {
			o := evaluation.Outcome{Slot: i, Status: evaluation.StatusSucceeded}
			j, err := evaluation.ParseResponse(*f.Feedback)
			if err != nil {
				o.Status, o.Err = evaluation.StatusFailed, err
			} else {
				o.Judgment = j
			}
			c.outcome = &o
		}
		for _, m := range s.Chats[f.ID] {
			c.chat = append(c.chat, evaluation.ChatTurn{Role: m.Role, Content: m.Content})
		}
		out[i] = c
	}
	return out
}

// resumeAt is the first unanswered card, or the last card when all are
// answered.
func resumeAt(cards []*card) int {
	for i, c := range cards {
		if !c.answered {
			return i
		}
	}
	return len(cards) - 1
}

func newAnswer(text string) *editor.Buffer {
	b := editor.New(text)
	b.SetWidthFunc(layout.CellWidth)
	return b
}
