// Package session is the interactive quiz: it owns the answer buffers,
// drives the evaluation supervisor from the UI loop and persists answers
// and feedback through the store.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"

	"github.com/bryantinsley/flashcards/quiz/pkg/deck"
	"github.com/bryantinsley/flashcards/quiz/pkg/editor"
	"github.com/bryantinsley/flashcards/quiz/pkg/evaluation"
	"github.com/bryantinsley/flashcards/quiz/pkg/store"
	"github.com/bryantinsley/flashcards/quiz/pkg/ui/components"
	"github.com/bryantinsley/flashcards/quiz/pkg/ui/resultgrid"
	"github.com/bryantinsley/flashcards/quiz/pkg/ui/styles"
	"github.com/bryantinsley/flashcards/quiz/pkg/worker"
)

const (
	storeTimeout  = 5 * time.Second
	assessTimeout = 2 * time.Minute
	chatTimeout   = 2 * time.Minute
)

// Store persists a quiz as it is played.
type Store interface {
	CreateSession(ctx context.Context, deckName string, cards []store.Card) (*store.Session, error)
	RecordAnswer(ctx context.Context, flashcardID int64, text string) error
	RecordFeedback(ctx context.Context, flashcardID int64, judgmentJSON string) error
	CompleteSession(ctx context.Context, sessionID int64) error
	AddChatMessage(ctx context.Context, flashcardID int64, role, content string) (*store.ChatMessage, error)
}

// Assessor reviews a finished quiz as a whole.
type Assessor interface {
	AssessSession(ctx context.Context, deck string, cards []evaluation.CardResult) (string, error)
}

// Chatter answers follow-up questions about a graded card.
type Chatter interface {
	Chat(ctx context.Context, topic evaluation.ChatTopic, history []evaluation.ChatTurn, message string) (string, error)
}

// Config wires a quiz. A Deck or a Resume is required: without a Store
// nothing is saved, without a Supervisor answers are not evaluated, without
// an Assessor the summary shows local totals only and without a Chatter
// there is no follow-up chat.
type Config struct {
	Deck       *deck.Deck
	Store      Store
	Supervisor *worker.Supervisor
	Assessor   Assessor
	Chatter    Chatter
	Logger     *zap.Logger

	// Resume continues a saved session instead of starting one for Deck.
	Resume *Saved

	// MarkdownStyle is a glamour standard style name. Defaults to "dark".
	MarkdownStyle string
	Now           func() time.Time
}

type screen int

const (
	screenQuiz screen = iota
	screenSummary
)

type card struct {
	question    string
	reference   string
	flashcardID int64 // 0 when the session is not persisted

	answer    *editor.Buffer
	answered  bool
	submitted string
	outcome   *evaluation.Outcome // nil until evaluation is requested

	chat     []evaluation.ChatTurn
	chatting bool // a follow-up question is waiting for its reply
}

func (c *card) pending() bool {
	return c.outcome != nil && !c.outcome.Terminal()
}

type tickMsg time.Time

type evaluationMsg worker.Event

type assessmentMsg struct {
	assessment evaluation.Assessment
	err        error
}

type reviewCardMsg struct{ slot int }

type persistedMsg struct {
	what string
	err  error
}

type chatReplyMsg struct {
	slot  int
	reply string
	err   error
}

// Model is the bubbletea model of one quiz.
type Model struct {
	deckName string
	cards    []*card
	current  int
	screen   screen

	width  int
	height int

	store     Store
	sessionID int64
	sup       *worker.Supervisor
	assessor  Assessor
	chatter   Chatter
	builder   *evaluation.Builder
	logger    *zap.Logger
	now       func() time.Time

	feedback      viewport.Model
	spinner       spinner.Model
	markdown      *glamour.TermRenderer
	markdownStyle string

	warning     string
	confirmQuit bool
	completed   bool

	grid          *resultgrid.Grid
	assessing     bool
	assessment    *evaluation.Assessment
	assessmentErr error

	chat *chatState // open follow-up chat, nil when closed

	editHints    *components.HintBar
	reviewHints  *components.HintBar
	summaryHints *components.HintBar
	reevalHint   *components.Hint
	cancelHint   *components.Hint
	chatHint     *components.Hint
	retryHint    *components.Hint
}

// New builds the quiz for cfg.Deck and records a new session in the store.
// A store failure is shown as a warning and the quiz continues unsaved.
// With cfg.Resume the stored session is continued at its first unanswered
// card instead.
func New(cfg Config) (Model, error) {
	deckName := ""
	switch {
	case cfg.Resume != nil:
		if len(cfg.Resume.Cards) == 0 {
			return Model{}, deck.ErrEmpty
		}
		deckName = cfg.Resume.Session.DeckName
	case cfg.Deck == nil || len(cfg.Deck.Cards) == 0:
		return Model{}, deck.ErrEmpty
	default:
		deckName = cfg.Deck.Name
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	mdStyle := cfg.MarkdownStyle
	if mdStyle == "" {
		mdStyle = "dark"
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.PendingStyle

	m := Model{
		deckName:      deckName,
		width:         80,
		height:        24,
		store:         cfg.Store,
		sup:           cfg.Supervisor,
		assessor:      cfg.Assessor,
		chatter:       cfg.Chatter,
		builder:       &evaluation.Builder{},
		logger:        logger.With(zap.String("deck", deckName)),
		now:           now,
		feedback:      viewport.New(76, 8),
		spinner:       sp,
		markdownStyle: mdStyle,
	}

	if r := cfg.Resume; r != nil {
		m.cards = r.cards()
		m.current = resumeAt(m.cards)
		m.completed = r.Session.CompletedAt != nil
		if m.store != nil {
			m.sessionID = r.Session.ID
		} else {
			for _, c := range m.cards {
				c.flashcardID = 0
			}
		}
		m.logger.Info("session resumed",
			zap.Int64("session", r.Session.ID),
			zap.Int("answered", m.answeredCount()),
			zap.Int("at", m.current))
	} else {
		for _, c := range cfg.Deck.Cards {
			m.cards = append(m.cards, &card{
				question:  c.Question,
				reference: c.Answer,
				answer:    newAnswer(""),
			})
		}
		if m.store != nil {
			m.createSession()
		}
	}
	if m.sup != nil {
		m.sup.Start()
	}
	m.buildHints()
	m.resize(m.width, m.height)
	return m, nil
}

func (m *Model) createSession() {
	cards := make([]store.Card, len(m.cards))
	for i, c := range m.cards {
		cards[i] = store.Card{Question: c.question, Answer: c.reference}
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	sess, err := m.store.CreateSession(ctx, m.deckName, cards)
	if err != nil {
		m.warn("could not save session", err)
		return
	}
	m.sessionID = sess.ID
	for i, id := range sess.FlashcardIDs {
		if i < len(m.cards) {
			m.cards[i].flashcardID = id
		}
	}
	m.logger.Info("session started",
		zap.Int64("session", sess.ID),
		zap.String("uuid", sess.UUID),
		zap.Int("cards", len(cards)))
}

// SessionID returns the stored session id, or 0 when nothing is saved.
func (m Model) SessionID() int64 { return m.sessionID }

// Completed reports whether the user reached the end of the deck.
func (m Model) Completed() bool { return m.completed }

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tick(), m.spinner.Tick}
	if m.sup != nil {
		cmds = append(cmds, waitForEvaluation(m.sup.Events()))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.checkTimeout(time.Time(msg)), tick())

	case evaluationMsg:
		if m.sup == nil {
			return m, nil
		}
		var save tea.Cmd
		if out, ok := m.sup.Handle(worker.Event(msg), m.now()); ok {
			save = m.apply(out)
		}
		return m, tea.Batch(save, waitForEvaluation(m.sup.Events()))

	case assessmentMsg:
		m.assessing = false
		if msg.err != nil {
			m.assessmentErr = msg.err
			m.logger.Warn("session assessment failed", zap.Error(msg.err))
		} else {
			m.assessment = &msg.assessment
		}
		return m, nil

	case reviewCardMsg:
		m.screen = screenQuiz
		m.goTo(msg.slot)
		return m, nil

	case persistedMsg:
		if msg.err != nil {
			m.warn(msg.what, msg.err)
		}
		return m, nil

	case chatReplyMsg:
		return m.receiveChat(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.ForceQuit) {
		return m.quit()
	}
	if m.confirmQuit {
		if s := msg.String(); s == "y" || s == "Y" {
			return m.quit()
		}
		m.confirmQuit = false
		return m, nil
	}

	if m.chat != nil {
		return m.updateChat(msg)
	}
	if m.screen == screenSummary {
		return m.updateSummary(msg)
	}

	c := m.cards[m.current]
	switch {
	case key.Matches(msg, keys.Quit):
		m.confirmQuit = true
	case key.Matches(msg, keys.Chat):
		if m.canChat(c) {
			m.openChat()
		}
	case key.Matches(msg, keys.NextCard):
		m.goTo(m.current + 1)
	case key.Matches(msg, keys.PrevCard):
		m.goTo(m.current - 1)
	case c.answered:
		return m.updateReview(msg)
	default:
		return m.updateEditing(msg)
	}
	return m, nil
}

func (m Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.Submit) {
		return m.submit()
	}
	width := m.answerWidth()
	if err := edit(m.cards[m.current].answer, msg, width); err != nil {
		m.logger.Error("cursor movement failed", zap.Int("width", width), zap.Error(err))
	}
	return m, nil
}

// edit applies an editing key to b, wrapped at width.
func edit(b *editor.Buffer, msg tea.KeyMsg, width int) error {
	var err error
	switch {
	case key.Matches(msg, keys.Newline):
		b.Insert("\n")
	case key.Matches(msg, keys.Left):
		b.Left()
	case key.Matches(msg, keys.Right):
		b.Right()
	case key.Matches(msg, keys.Up):
		_, err = b.Up(width)
	case key.Matches(msg, keys.Down):
		_, err = b.Down(width)
	case key.Matches(msg, keys.Home):
		err = b.Home(width)
	case key.Matches(msg, keys.End):
		err = b.End(width)
	case key.Matches(msg, keys.Backspace):
		b.Backspace()
	case key.Matches(msg, keys.Delete):
		b.Delete()
	case msg.Type == tea.KeyRunes && (!msg.Alt || msg.Paste):
		b.Insert(string(msg.Runes))
	case msg.Type == tea.KeySpace:
		b.Insert(" ")
	case msg.Type == tea.KeyTab:
		b.Insert("\t")
	}
	return err
}

func (m Model) updateReview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := m.cards[m.current]
	switch {
	case key.Matches(msg, keys.Submit):
		return m.advance()
	case key.Matches(msg, keys.Reevaluate):
		if m.sup != nil {
			m.evaluate(m.current)
			m.syncFeedback()
		}
	case key.Matches(msg, keys.Cancel):
		if m.sup != nil && c.pending() && c.outcome.RequestID == m.sup.Active() {
			if id, ok := m.sup.Cancel(); ok {
				out := evaluation.Outcome{RequestID: id, Slot: m.current, Status: evaluation.StatusFailed, Err: worker.ErrCancelled}
				c.outcome = &out
				m.refreshTile(m.current)
			}
		}
	case key.Matches(msg, keys.PageUp, keys.PageDown):
		var cmd tea.Cmd
		m.feedback, cmd = m.feedback.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateSummary(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.Quit) || msg.String() == "q" {
		return m.quit()
	}
	if key.Matches(msg, keys.RetryAssessment) {
		if m.assessmentErr == nil || m.assessor == nil || m.assessing {
			return m, nil
		}
		return m.startAssessment()
	}
	if m.grid != nil {
		return m, m.grid.Update(msg)
	}
	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch {
	case m.chat != nil:
		var cmd tea.Cmd
		m.chat.history, cmd = m.chat.history.Update(msg)
		return m, cmd
	case m.screen == screenSummary:
		if m.grid != nil {
			cmds = append(cmds, m.grid.Update(msg))
		}
		cmds = append(cmds, components.NewClickDispatcher(m.summaryHints.Clickables()).HandleMouse(msg))
	default:
		if msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown {
			var cmd tea.Cmd
			m.feedback, cmd = m.feedback.Update(msg)
			return m, cmd
		}
		cmds = append(cmds, components.NewClickDispatcher(m.hints().Clickables()).HandleMouse(msg))
	}
	return m, tea.Batch(cmds...)
}

// submit locks the current answer, saves it and asks for an evaluation.
// Blank answers are ignored.
func (m Model) submit() (tea.Model, tea.Cmd) {
	c := m.cards[m.current]
	if c.answer.IsBlank() {
		return m, nil
	}
	c.answered = true
	c.submitted = c.answer.String()

	var cmd tea.Cmd
	if m.store != nil && c.flashcardID != 0 {
		st, id, text := m.store, c.flashcardID, c.submitted
		cmd = persist("could not save answer", func(ctx context.Context) error {
			return st.RecordAnswer(ctx, id, text)
		})
	}
	if m.sup != nil {
		m.evaluate(m.current)
	}
	m.feedback.GotoTop()
	m.syncFeedback()
	return m, cmd
}

// evaluate submits the answer of slot. Whatever request was active before
// is superseded, so its card is told so instead of waiting forever.
func (m *Model) evaluate(slot int) {
	c := m.cards[slot]
	req := m.builder.Build(slot, c.question, c.reference, c.submitted)

	if prev := m.sup.Active(); prev != 0 {
		m.supersede(prev)
	}
	out := m.sup.Submit(req, m.now())
	c.outcome = &out
	m.refreshTile(slot)
}

func (m *Model) supersede(id uint64) {
	for i, c := range m.cards {
		if c.pending() && c.outcome.RequestID == id {
			out := evaluation.Outcome{RequestID: id, Slot: i, Status: evaluation.StatusFailed, Err: worker.ErrSuperseded}
			c.outcome = &out
			m.refreshTile(i)
		}
	}
}

// apply stores a terminal outcome on its card unless a newer request has
// replaced it there. It returns the command saving a successful judgment.
func (m *Model) apply(out evaluation.Outcome) tea.Cmd {
	if out.Slot < 0 || out.Slot >= len(m.cards) {
		return nil
	}
	c := m.cards[out.Slot]
	if c.outcome == nil || c.outcome.RequestID != out.RequestID {
		m.logger.Debug("outcome no longer wanted", zap.Uint64("request", out.RequestID))
		return nil
	}
	c.outcome = &out

	var cmd tea.Cmd
	if out.Status == evaluation.StatusSucceeded && m.store != nil && c.flashcardID != 0 {
		if data, err := out.Judgment.JSON(); err != nil {
			m.warn("could not encode feedback", err)
		} else {
			st, id := m.store, c.flashcardID
			cmd = persist("could not save feedback", func(ctx context.Context) error {
				return st.RecordFeedback(ctx, id, data)
			})
		}
	}

	m.refreshTile(out.Slot)
	if out.Slot == m.current {
		m.syncFeedback()
	}
	return cmd
}

func (m *Model) checkTimeout(now time.Time) tea.Cmd {
	if m.sup == nil {
		return nil
	}
	if out, ok := m.sup.CheckTimeout(now); ok {
		return m.apply(out)
	}
	return nil
}

func (m *Model) goTo(i int) {
	if i < 0 || i >= len(m.cards) || i == m.current {
		return
	}
	m.current = i
	m.feedback.GotoTop()
	m.syncFeedback()
}

// advance moves to the next card, or to the summary after the last one.
func (m Model) advance() (tea.Model, tea.Cmd) {
	if m.current < len(m.cards)-1 {
		m.goTo(m.current + 1)
		return m, nil
	}
	return m.finish()
}

func (m Model) finish() (tea.Model, tea.Cmd) {
	m.screen = screenSummary
	var save tea.Cmd
	if !m.completed {
		m.completed = true
		if m.store != nil && m.sessionID != 0 {
			st, id := m.store, m.sessionID
			save = persist("could not complete session", func(ctx context.Context) error {
				return st.CompleteSession(ctx, id)
			})
		}
		m.logger.Info("session finished",
			zap.Int("answered", m.answeredCount()),
			zap.Int("correct", m.correctCount()))
	}
	m.buildGrid()

	if m.assessor == nil || m.assessing || m.assessment != nil || m.assessmentErr != nil {
		return m, save
	}
	next, cmd := m.startAssessment()
	return next, tea.Batch(save, cmd)
}

// startAssessment asks the assessor to review the answered cards.
func (m Model) startAssessment() (tea.Model, tea.Cmd) {
	results := m.results()
	if len(results) == 0 {
		return m, nil
	}
	m.assessing = true
	m.assessmentErr = nil
	return m, assess(m.assessor, m.deckName, results)
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.sup != nil {
		m.sup.Close()
	}
	return m, tea.Quit
}

// persist runs a store write off the UI loop. A failure comes back as a
// warning.
func persist(what string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		return persistedMsg{what: what, err: fn(ctx)}
	}
}

func (m *Model) warn(what string, err error) {
	m.warning = fmt.Sprintf("%s: %v", what, err)
	m.logger.Warn(what, zap.Error(err))
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.feedback.Width = max(10, width)
	m.feedback.Height = max(3, height-16)

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.markdownStyle),
		glamour.WithWordWrap(max(10, width-4)),
	)
	if err != nil {
		m.logger.Warn("markdown renderer unavailable", zap.Error(err))
		r = nil
	}
	m.markdown = r
	m.syncFeedback()
	if m.grid != nil {
		m.grid.SetWidth(width)
	}
	if m.chat != nil {
		m.layoutChat()
	}
}

func (m *Model) answeredCount() int {
	n := 0
	for _, c := range m.cards {
		if c.answered {
			n++
		}
	}
	return n
}

func (m *Model) correctCount() int {
	n := 0
	for _, c := range m.cards {
		if c.outcome != nil && c.outcome.Status == evaluation.StatusSucceeded && c.outcome.Judgment.Passed() {
			n++
		}
	}
	return n
}

func (m *Model) results() []evaluation.CardResult {
	var out []evaluation.CardResult
	for _, c := range m.cards {
		if !c.answered {
			continue
		}
		r := evaluation.CardResult{Question: c.question, Reference: c.reference, Answer: c.submitted}
		if c.outcome != nil && c.outcome.Status == evaluation.StatusSucceeded {
			j := c.outcome.Judgment
			r.Judgment = &j
		}
		out = append(out, r)
	}
	return out
}

func (m *Model) buildGrid() {
	tiles := make([]*resultgrid.Tile, len(m.cards))
	for i, c := range m.cards {
		slot := i
		status, score := tileStatus(c)
		tiles[i] = resultgrid.NewTile(i+1, c.question, status, score, func() tea.Cmd {
			return func() tea.Msg { return reviewCardMsg{slot: slot} }
		})
	}
	focus := 0
	if m.grid != nil {
		focus = m.grid.FocusIndex
	}
	m.grid = resultgrid.New(tiles, 1)
	m.grid.SetWidth(m.width)
	m.grid.MoveFocus(focus)
}

func (m *Model) refreshTile(slot int) {
	if m.grid == nil || slot >= len(m.grid.Tiles) {
		return
	}
	t := m.grid.Tiles[slot]
	t.Status, t.Score = tileStatus(m.cards[slot])
}

func tileStatus(c *card) (resultgrid.Status, float64) {
	switch {
	case !c.answered:
		return resultgrid.StatusUnanswered, 0
	case c.outcome == nil:
		return resultgrid.StatusAnswered, 0
	}
	switch c.outcome.Status {
	case evaluation.StatusPending:
		return resultgrid.StatusPending, 0
	case evaluation.StatusSucceeded:
		if c.outcome.Judgment.Passed() {
			return resultgrid.StatusCorrect, c.outcome.Judgment.CorrectnessScore
		}
		return resultgrid.StatusIncorrect, c.outcome.Judgment.CorrectnessScore
	}
	return resultgrid.StatusFailed, 0
}
