package session

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bryantinsley/flashcards/quiz/pkg/deck"
	"github.com/bryantinsley/flashcards/quiz/pkg/evaluation"
	"github.com/bryantinsley/flashcards/quiz/pkg/store"
	"github.com/bryantinsley/flashcards/quiz/pkg/worker"
)

const goodReply = "Sure!\n```json\n{\"is_correct\": true, \"correctness_score\": 0.9, \"corrections\": [], \"explanation\": \"Spot on.\", \"suggestions\": [\"Add a detail\"],}\n```"

type fakeStore struct {
	mu        sync.Mutex
	decks     []string
	answers   map[int64]string
	feedback  map[int64]string
	completed []int64
	chats     map[int64][]string

	createErr error
	answerErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{answers: map[int64]string{}, feedback: map[int64]string{}, chats: map[int64][]string{}}
}

func (f *fakeStore) CreateSession(_ context.Context, deckName string, cards []store.Card) (*store.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.decks = append(f.decks, deckName)
	sess := &store.Session{ID: 7, UUID: "test", DeckName: deckName, QuestionsTotal: len(cards)}
	for i := range cards {
		sess.FlashcardIDs = append(sess.FlashcardIDs, int64(100+i))
	}
	return sess, nil
}

func (f *fakeStore) RecordAnswer(_ context.Context, id int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.answerErr != nil {
		return f.answerErr
	}
	f.answers[id] = text
	return nil
}

func (f *fakeStore) RecordFeedback(_ context.Context, id int64, judgmentJSON string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feedback[id] = judgmentJSON
	return nil
}

func (f *fakeStore) CompleteSession(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, id)
	return nil
}

func (f *fakeStore) AddChatMessage(_ context.Context, id int64, role, content string) (*store.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chats[id] = append(f.chats[id], role+": "+content)
	return &store.ChatMessage{FlashcardID: id, Role: role, Content: content, Order: len(f.chats[id]) - 1}, nil
}

type fakeAssessor struct {
	reply string
	err   error
	got   []evaluation.CardResult
	calls int
}

func (a *fakeAssessor) AssessSession(_ context.Context, _ string, cards []evaluation.CardResult) (string, error) {
	a.got = cards
	a.calls++
	return a.reply, a.err
}

type fakeChatter struct {
	reply     string
	err       error
	topics    []evaluation.ChatTopic
	histories [][]evaluation.ChatTurn
	messages  []string
}

func (c *fakeChatter) Chat(_ context.Context, topic evaluation.ChatTopic, history []evaluation.ChatTurn, message string) (string, error) {
	c.topics = append(c.topics, topic)
	c.histories = append(c.histories, history)
	c.messages = append(c.messages, message)
	return c.reply, c.err
}

func testDeck() *deck.Deck {
	return &deck.Deck{Name: "capitals", Cards: []deck.Card{
		{Question: "Capital of France?", Answer: "Paris"},
		{Question: "Capital of Italy?", Answer: "Rome"},
	}}
}

func replyWith(raw string) worker.EvaluatorFunc {
	return func(context.Context, evaluation.Request) (string, error) { return raw, nil }
}

func blockUntilCancelled(ctx context.Context, _ evaluation.Request) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func newModel(t *testing.T, cfg Config) Model {
	t.Helper()
	if cfg.Deck == nil && cfg.Resume == nil {
		cfg.Deck = testDeck()
	}
	cfg.Logger = zaptest.NewLogger(t)
	cfg.MarkdownStyle = "notty"
	if cfg.Supervisor != nil {
		t.Cleanup(cfg.Supervisor.Close)
	}
	m, err := New(cfg)
	require.NoError(t, err)
	return m
}

// send feeds msgs through Update. Commands returned for key presses are run
// so their store writes land before send returns.
func send(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, cmd := m.Update(msg)
		m = next.(Model)
		if _, ok := msg.(tea.KeyMsg); ok {
			m = settle(t, m, cmd)
		}
	}
	return m
}

// settle runs cmd and feeds the store, chat and assessment results it
// produces back into the model.
func settle(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for _, msg := range runCmd(cmd) {
		switch msg.(type) {
		case persistedMsg, chatReplyMsg, assessmentMsg:
			next, more := m.Update(msg)
			m = settle(t, next.(Model), more)
		}
	}
	return m
}

// runCmd executes cmd, expanding batches and sequences in order.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	v := reflect.ValueOf(msg)
	if v.Kind() != reflect.Slice || v.Type().Elem() != reflect.TypeOf(tea.Cmd(nil)) {
		return []tea.Msg{msg}
	}
	var out []tea.Msg
	for i := range v.Len() {
		out = append(out, runCmd(v.Index(i).Interface().(tea.Cmd))...)
	}
	return out
}

func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	for _, r := range s {
		m = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

var enter = tea.KeyMsg{Type: tea.KeyEnter}

// nextEvent feeds the next supervisor event through Update.
func nextEvent(t *testing.T, m Model) Model {
	t.Helper()
	select {
	case ev := <-m.sup.Events():
		return send(t, m, evaluationMsg(ev))
	case <-time.After(5 * time.Second):
		t.Fatal("no evaluation event")
		return m
	}
}

func TestNewRequiresCards(t *testing.T) {
	_, err := New(Config{Deck: &deck.Deck{Name: "empty"}})
	assert.ErrorIs(t, err, deck.ErrEmpty)
}

func TestEditingKeys(t *testing.T) {
	m := newModel(t, Config{})

	m = typeText(t, m, "hello")
	m = send(t, m, tea.KeyMsg{Type: tea.KeyLeft}, tea.KeyMsg{Type: tea.KeyLeft})
	m = typeText(t, m, "X")
	b := m.cards[0].answer
	assert.Equal(t, "helXlo", b.String())
	assert.Equal(t, 4, b.Cursor())

	m = send(t, m, tea.KeyMsg{Type: tea.KeyBackspace}, tea.KeyMsg{Type: tea.KeyDelete})
	assert.Equal(t, "helo", b.String())

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnd}, tea.KeyMsg{Type: tea.KeyEnter, Alt: true})
	m = typeText(t, m, "second")
	assert.Equal(t, "helo\nsecond", b.String())

	m = send(t, m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 4, b.Cursor(), "up keeps the column, clamped to the shorter row")
	m = send(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 11, b.Cursor())

	m = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlJ}, tea.KeyMsg{Type: tea.KeySpace})
	m = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("pasted\r\ntext"), Paste: true})
	assert.Equal(t, "helo\nsecond\n pasted\ntext", b.String())
	assert.False(t, m.cards[0].answered)
}

func TestCursorFollowsWrappedRows(t *testing.T) {
	m := newModel(t, Config{})
	m = send(t, m, tea.WindowSizeMsg{Width: 14, Height: 30})
	require.Equal(t, 10, m.answerWidth())

	// "aaaa bbbb " + "cccc" wraps into two rows of the answer box.
	m = typeText(t, m, "aaaa bbbb cccc")
	b := m.cards[0].answer
	m = send(t, m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 4, b.Cursor())

	m = send(t, m, tea.KeyMsg{Type: tea.KeyHome})
	assert.Equal(t, 0, b.Cursor())
	m = send(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 10, b.Cursor())
	assert.Contains(t, m.View(), "aaaa bbbb")
}

func TestBlankAnswerIsNotSubmitted(t *testing.T) {
	st := newFakeStore()
	m := newModel(t, Config{Store: st})

	m = typeText(t, m, "   ")
	m = send(t, m, enter)

	assert.False(t, m.cards[0].answered)
	assert.Empty(t, st.answers)
}

func TestSubmitEvaluatesAndSaves(t *testing.T) {
	st := newFakeStore()
	sup := worker.New(replyWith(goodReply))
	m := newModel(t, Config{Store: st, Supervisor: sup})
	m = send(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	require.Equal(t, int64(7), m.SessionID())
	assert.Equal(t, []string{"capitals"}, st.decks)

	m = typeText(t, m, "Paris")
	m = send(t, m, enter)

	c := m.cards[0]
	require.True(t, c.answered)
	require.NotNil(t, c.outcome)
	assert.Equal(t, evaluation.StatusPending, c.outcome.Status)
	assert.Equal(t, "Paris", st.answers[100])

	ev := <-sup.Events()
	next, cmd := m.Update(evaluationMsg(ev))
	m = next.(Model)
	require.Equal(t, evaluation.StatusSucceeded, c.outcome.Status)
	assert.InDelta(t, 0.9, c.outcome.Judgment.CorrectnessScore, 1e-9)
	assert.Empty(t, st.feedback, "feedback is written by the returned command")

	// Closing the supervisor ends the wait for the next event bundled with
	// the write.
	sup.Close()
	m = settle(t, m, cmd)
	assert.Contains(t, st.feedback[100], `"correctness_score":0.9`)

	view := m.View()
	assert.Contains(t, view, "Correct")
	assert.Contains(t, view, "score 90%")
	assert.Contains(t, view, "Spot on.")
	assert.Contains(t, view, "Add a detail")

	// Typing on a submitted card does not touch the answer.
	m = typeText(t, m, "zzz")
	assert.Equal(t, "Paris", c.submitted)
}

func TestUnparseableReplyIsShown(t *testing.T) {
	sup := worker.New(replyWith("I cannot grade this."))
	m := newModel(t, Config{Supervisor: sup})

	m = typeText(t, m, "Paris")
	m = send(t, m, enter)
	m = nextEvent(t, m)

	c := m.cards[0]
	require.Equal(t, evaluation.StatusFailed, c.outcome.Status)
	var perr *evaluation.ParseError
	assert.ErrorAs(t, c.outcome.Err, &perr)
	assert.Contains(t, m.View(), "could not parse response")
	assert.Equal(t, "Paris", c.submitted, "the answer survives a failed evaluation")
}

func TestTimeoutAndRetry(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	now := t0
	calls := 0
	eval := worker.EvaluatorFunc(func(ctx context.Context, req evaluation.Request) (string, error) {
		if req.ID == 1 {
			return blockUntilCancelled(ctx, req)
		}
		calls++
		return goodReply, nil
	})
	sup := worker.New(eval, worker.WithTimeout(30*time.Second))
	m := newModel(t, Config{Supervisor: sup, Now: func() time.Time { return now }})

	m = typeText(t, m, "Paris")
	m = send(t, m, enter)

	m = send(t, m, tickMsg(t0.Add(10*time.Second)))
	assert.Equal(t, evaluation.StatusPending, m.cards[0].outcome.Status)

	m = send(t, m, tickMsg(t0.Add(31*time.Second)))
	require.Equal(t, evaluation.StatusTimedOut, m.cards[0].outcome.Status)
	assert.Contains(t, m.View(), "evaluation timed out, press Ctrl+E to retry")

	now = t0.Add(40 * time.Second)
	m = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlE})
	assert.Equal(t, evaluation.StatusPending, m.cards[0].outcome.Status)
	m = nextEvent(t, m)
	assert.Equal(t, evaluation.StatusSucceeded, m.cards[0].outcome.Status)
	assert.Equal(t, 1, calls)
}

func TestSubmittingAnotherCardSupersedes(t *testing.T) {
	release := make(chan struct{})
	eval := worker.EvaluatorFunc(func(ctx context.Context, req evaluation.Request) (string, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
		return goodReply, nil
	})
	sup := worker.New(eval)
	m := newModel(t, Config{Supervisor: sup})

	m = typeText(t, m, "Paris")
	m = send(t, m, enter, enter)
	require.Equal(t, 1, m.current)
	m = typeText(t, m, "Rome")
	m = send(t, m, enter)

	first, second := m.cards[0], m.cards[1]
	require.Equal(t, evaluation.StatusFailed, first.outcome.Status)
	assert.ErrorIs(t, first.outcome.Err, worker.ErrSuperseded)
	assert.Equal(t, evaluation.StatusPending, second.outcome.Status)

	close(release)
	for second.pending() {
		m = nextEvent(t, m)
	}
	assert.Equal(t, evaluation.StatusSucceeded, second.outcome.Status)
	assert.ErrorIs(t, first.outcome.Err, worker.ErrSuperseded, "the stale result is not applied")
}

func TestCancelEvaluation(t *testing.T) {
	sup := worker.New(worker.EvaluatorFunc(blockUntilCancelled))
	m := newModel(t, Config{Supervisor: sup})

	// Cancel does nothing before anything is pending.
	m = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlX})

	m = typeText(t, m, "Paris")
	m = send(t, m, enter)
	require.True(t, m.cards[0].pending())

	m = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlX})
	c := m.cards[0]
	require.Equal(t, evaluation.StatusFailed, c.outcome.Status)
	assert.ErrorIs(t, c.outcome.Err, worker.ErrCancelled)
	assert.Equal(t, uint64(0), sup.Active())
	assert.Contains(t, m.View(), "evaluation cancelled")
}

func TestStorageFailuresAreWarnings(t *testing.T) {
	st := newFakeStore()
	st.answerErr = errors.New("disk full")
	m := newModel(t, Config{Store: st})

	m = typeText(t, m, "Paris")
	m = send(t, m, enter)

	assert.True(t, m.cards[0].answered)
	assert.Equal(t, "Paris", m.cards[0].submitted)
	assert.Contains(t, m.View(), "could not save answer: disk full")
}

func TestSessionCreateFailureKeepsPlaying(t *testing.T) {
	st := newFakeStore()
	st.createErr = errors.New("locked")
	m := newModel(t, Config{Store: st})

	assert.Equal(t, int64(0), m.SessionID())
	m = typeText(t, m, "Paris")
	m = send(t, m, enter)
	assert.True(t, m.cards[0].answered)
	assert.Empty(t, st.answers, "unsaved sessions have no flashcard ids to write")
	assert.Contains(t, m.View(), "could not save session: locked")
}

func TestNavigationKeepsDrafts(t *testing.T) {
	m := newModel(t, Config{})

	m = typeText(t, m, "draft one")
	m = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})
	require.Equal(t, 1, m.current)
	m = typeText(t, m, "draft two")

	// Moving past either end is ignored.
	m = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})
	assert.Equal(t, 1, m.current)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlP})
	assert.Equal(t, "draft one", m.cards[0].answer.String())
	assert.Equal(t, "draft two", m.cards[1].answer.String())
	assert.Contains(t, m.View(), "Capital of France?")
}

func TestFinishShowsSummary(t *testing.T) {
	st := newFakeStore()
	m := newModel(t, Config{Store: st})

	m = typeText(t, m, "Paris")
	m = send(t, m, enter, enter)
	m = typeText(t, m, "Rome")
	m = send(t, m, enter)
	next, cmd := m.Update(enter)
	m = next.(Model)

	assert.True(t, m.Completed())
	assert.Empty(t, st.completed)
	msgs := runCmd(cmd)
	require.Len(t, msgs, 1, "only the completion write without an assessor")
	m = send(t, m, msgs[0])
	assert.Equal(t, []int64{7}, st.completed)

	view := m.View()
	assert.Contains(t, view, "Session complete: capitals")
	assert.Contains(t, view, "Answered 2/2")
	assert.Contains(t, view, "#2")

	// Reviewing a card and finishing again does not complete twice.
	m = send(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	m = send(t, m, reviewCardMsg{slot: 0})
	require.Equal(t, screenQuiz, m.screen)
	assert.Equal(t, 0, m.current)
	m = send(t, m, enter, enter)
	assert.Equal(t, screenSummary, m.screen)
	assert.Len(t, st.completed, 1)
}

func TestSummaryAssessment(t *testing.T) {
	assessor := &fakeAssessor{reply: `{"grade_percentage": 150, "mastery_level": "Expert", "overall_feedback": "Great work.", "strengths": ["geography"]}`}
	sup := worker.New(replyWith(goodReply))
	m := newModel(t, Config{Supervisor: sup, Assessor: assessor})

	m = typeText(t, m, "Paris")
	m = send(t, m, enter)
	m = nextEvent(t, m)
	m = send(t, m, enter)
	require.Equal(t, 1, m.current)

	m = typeText(t, m, "Rome")
	m = send(t, m, enter)
	m = nextEvent(t, m)
	next, cmd := m.Update(enter)
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.Contains(t, m.View(), "assessing your session")

	m = send(t, m, cmd())
	require.NotNil(t, m.assessment)
	assert.Equal(t, 100.0, m.assessment.GradePercentage)
	assert.Len(t, assessor.got, 2)
	require.NotNil(t, assessor.got[0].Judgment)

	view := m.View()
	assert.Contains(t, view, "Grade 100%")
	assert.Contains(t, view, "Great work.")
	assert.Contains(t, view, "Correct 2")
}

func TestQuitConfirmation(t *testing.T) {
	m := newModel(t, Config{})

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.True(t, m.confirmQuit)
	assert.Contains(t, m.View(), "Quit the quiz?")

	m = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	assert.False(t, m.confirmQuit)
	assert.Empty(t, m.cards[0].answer.String(), "the dismissing key is not typed")

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestHintClicksPressKeys(t *testing.T) {
	m := newModel(t, Config{})
	m = typeText(t, m, "Paris")
	_ = m.View()

	submit := m.editHints.Hints[0]
	x, y, _, _ := submit.Bounds()
	_, cmd := m.Update(tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	require.NotNil(t, cmd)
	m = send(t, m, cmd())
	assert.True(t, m.cards[0].answered)
}

// boxText joins what is drawn between the side borders of the answer box.
func boxText(t *testing.T, view string) string {
	t.Helper()
	var b strings.Builder
	for _, line := range strings.Split(ansi.Strip(view), "\n") {
		first, last := strings.Index(line, "│"), strings.LastIndex(line, "│")
		if first < 0 || last == first {
			continue
		}
		assert.LessOrEqual(t, lipgloss.Width(line), 24, "row %q overflows the terminal", line)
		b.WriteString(strings.TrimSpace(line[first+len("│") : last]))
	}
	return b.String()
}

func TestWideAnswerStaysVisible(t *testing.T) {
	const answer = "日本語の答えです日本語の答えです"
	m := newModel(t, Config{})
	m = send(t, m, tea.WindowSizeMsg{Width: 24, Height: 30})

	m = typeText(t, m, answer)
	assert.Equal(t, answer, boxText(t, m.View()), "while editing")

	m = send(t, m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 7, m.cards[0].answer.Cursor(), "up keeps the cell column across wide runes")

	m = send(t, m, enter)
	require.True(t, m.cards[0].answered)
	assert.Equal(t, answer, boxText(t, m.View()), "once submitted")
}

func TestStoreWritesRunAsCommands(t *testing.T) {
	st := newFakeStore()
	st.answerErr = errors.New("disk full")
	m := newModel(t, Config{Store: st})
	m = typeText(t, m, "Paris")

	next, cmd := m.Update(enter)
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.True(t, m.cards[0].answered)
	assert.Empty(t, m.warning, "Update does not touch the store")

	msgs := runCmd(cmd)
	require.Len(t, msgs, 1)
	require.IsType(t, persistedMsg{}, msgs[0])
	m = send(t, m, msgs[0])
	assert.Contains(t, m.View(), "could not save answer: disk full")
}

func TestRetryAssessment(t *testing.T) {
	assessor := &fakeAssessor{err: errors.New("rate limited")}
	m := newModel(t, Config{Assessor: assessor})
	retry := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")}

	m = typeText(t, m, "Paris")
	m = send(t, m, enter, enter)
	m = typeText(t, m, "Rome")
	m = send(t, m, enter, enter)
	require.Equal(t, screenSummary, m.screen)
	require.Error(t, m.assessmentErr)
	assert.Contains(t, m.View(), "press r to retry")
	assert.False(t, m.retryHint.Dimmed)

	assessor.err = nil
	assessor.reply = `{"grade_percentage": 80, "mastery_level": "Advanced", "overall_feedback": "Better this time."}`
	m = send(t, m, retry)
	assert.NoError(t, m.assessmentErr)
	require.NotNil(t, m.assessment)
	assert.Contains(t, m.View(), "Better this time.")
	assert.Equal(t, 2, assessor.calls)

	// Retrying only follows a failure.
	m = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("R")})
	assert.Equal(t, 2, assessor.calls)
	_ = m.View()
	assert.True(t, m.retryHint.Dimmed)
}

func TestFollowUpChat(t *testing.T) {
	st := newFakeStore()
	sup := worker.New(replyWith(goodReply))
	chatter := &fakeChatter{reply: "It has been the capital since 508."}
	m := newModel(t, Config{Store: st, Supervisor: sup, Chatter: chatter})
	ctrlT := tea.KeyMsg{Type: tea.KeyCtrlT}

	m = send(t, m, ctrlT)
	assert.Nil(t, m.chat, "nothing to discuss before an answer is graded")

	m = typeText(t, m, "Paris")
	m = send(t, m, enter, ctrlT)
	assert.Nil(t, m.chat, "the evaluation is still pending")

	m = nextEvent(t, m)
	m = send(t, m, ctrlT)
	require.NotNil(t, m.chat)
	assert.Contains(t, m.View(), "Chat about card 1")

	m = send(t, m, enter)
	assert.Empty(t, chatter.messages, "blank questions are not sent")

	m = typeText(t, m, "Since when?")
	m = send(t, m, enter)
	require.Equal(t, []string{"Since when?"}, chatter.messages)
	assert.Empty(t, chatter.histories[0])
	assert.Equal(t, "Paris", chatter.topics[0].Answer)
	assert.Equal(t, "Spot on.", chatter.topics[0].Feedback)

	c := m.cards[0]
	require.Len(t, c.chat, 2)
	assert.False(t, c.chatting)
	assert.Equal(t, []string{"user: Since when?", "assistant: It has been the capital since 508."}, st.chats[100])
	assert.Contains(t, m.View(), "capital since 508.")

	m = typeText(t, m, "And before?")
	m = send(t, m, enter)
	require.Len(t, chatter.histories, 2)
	assert.Len(t, chatter.histories[1], 2, "earlier turns go along with the next question")

	chatter.err = errors.New("overloaded")
	m = typeText(t, m, "One more")
	m = send(t, m, enter)
	assert.Contains(t, m.View(), "chat failed: overloaded")
	assert.Len(t, c.chat, 5, "the question stays without a reply")

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, m.chat)
	assert.False(t, m.confirmQuit, "esc closes the chat, not the quiz")
}

func TestResumeSavedSession(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(":memory:", zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	sess, err := st.CreateSession(ctx, "capitals", []store.Card{
		{Question: "Capital of France?", Answer: "Paris"},
		{Question: "Capital of Italy?", Answer: "Rome"},
		{Question: "Capital of Spain?", Answer: "Madrid"},
	})
	require.NoError(t, err)
	ids := sess.FlashcardIDs
	good, err := evaluation.Judgment{IsCorrect: true, CorrectnessScore: 0.9, Explanation: "Spot on."}.JSON()
	require.NoError(t, err)
	require.NoError(t, st.RecordAnswer(ctx, ids[0], "Paris"))
	require.NoError(t, st.RecordFeedback(ctx, ids[0], good))
	require.NoError(t, st.RecordAnswer(ctx, ids[1], "Milan"))
	require.NoError(t, st.RecordFeedback(ctx, ids[1], "not json"))
	_, err = st.AddChatMessage(ctx, ids[0], store.RoleUser, "Why Paris?")
	require.NoError(t, err)
	_, err = st.AddChatMessage(ctx, ids[0], store.RoleAssistant, "History.")
	require.NoError(t, err)

	_, err = LoadSaved(ctx, st, sess.ID+1)
	assert.ErrorIs(t, err, store.ErrNotFound)

	saved, err := LoadSaved(ctx, st, sess.ID)
	require.NoError(t, err)
	m := newModel(t, Config{Resume: saved, Store: st})

	assert.Equal(t, sess.ID, m.SessionID())
	assert.Equal(t, "capitals", m.deckName)
	assert.Equal(t, 2, m.current, "resumes at the first unanswered card")
	assert.False(t, m.Completed())

	first, second := m.cards[0], m.cards[1]
	assert.True(t, first.answered)
	assert.Equal(t, "Paris", first.submitted)
	require.NotNil(t, first.outcome)
	assert.Equal(t, evaluation.StatusSucceeded, first.outcome.Status)
	assert.InDelta(t, 0.9, first.outcome.Judgment.CorrectnessScore, 1e-9)
	assert.Equal(t, []evaluation.ChatTurn{
		{Role: store.RoleUser, Content: "Why Paris?"},
		{Role: store.RoleAssistant, Content: "History."},
	}, first.chat)
	assert.Equal(t, "Milan", second.submitted)
	require.NotNil(t, second.outcome)
	assert.Equal(t, evaluation.StatusFailed, second.outcome.Status)
	assert.Error(t, second.outcome.Err)
	assert.Contains(t, m.View(), "Capital of Spain?")

	m = typeText(t, m, "Madrid")
	m = send(t, m, enter, enter)
	require.Equal(t, screenSummary, m.screen)

	got, err := st.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.QuestionsAnswered)
	assert.NotNil(t, got.CompletedAt)
	cards, err := st.Flashcards(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, cards[2].UserAnswer)
	assert.Equal(t, "Madrid", *cards[2].UserAnswer)

	list, err := st.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1, "resuming does not start a new session")
}

func TestResumeCompletedSessionChatIsReadOnly(t *testing.T) {
	good, err := evaluation.Judgment{IsCorrect: true, CorrectnessScore: 1}.JSON()
	require.NoError(t, err)
	answer := "Paris"
	done := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	saved := &Saved{
		Session: store.Session{ID: 3, DeckName: "capitals", CompletedAt: &done},
		Cards: []store.Flashcard{
			{ID: 1, Question: "Capital of France?", Answer: "Paris", UserAnswer: &answer, Feedback: &good},
		},
		Chats: map[int64][]store.ChatMessage{1: {
			{Role: store.RoleUser, Content: "Why?"},
			{Role: store.RoleAssistant, Content: "Because."},
		}},
	}
	chatter := &fakeChatter{reply: "unused"}
	m := newModel(t, Config{Resume: saved, Chatter: chatter})

	assert.Equal(t, 0, m.current, "all answered resumes at the last card")
	assert.True(t, m.Completed())
	assert.Equal(t, int64(0), m.SessionID(), "nothing is saved without a store")

	m = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlT})
	require.NotNil(t, m.chat)
	view := m.View()
	assert.Contains(t, view, "Because.")
	assert.Contains(t, view, "read-only")

	m = typeText(t, m, "more")
	m = send(t, m, enter)
	assert.Empty(t, chatter.messages)
	assert.Len(t, m.cards[0].chat, 2)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlT})
	assert.Nil(t, m.chat)
}

func TestResumeRequiresCards(t *testing.T) {
	_, err := New(Config{Resume: &Saved{Session: store.Session{ID: 1}}})
	assert.ErrorIs(t, err, deck.ErrEmpty)
}
