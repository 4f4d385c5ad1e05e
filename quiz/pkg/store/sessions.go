package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Card is the question and reference answer a flashcard is created from.
type Card struct {
	Question string
	Answer   string
}

// Session is one run through a deck.
type Session struct {
	ID                int64
	UUID              string
	DeckName          string
	StartedAt         time.Time
	CompletedAt       *time.Time
	QuestionsTotal    int
	QuestionsAnswered int
	FlashcardIDs      []int64
}

// Flashcard is a stored card with the user's answer and feedback, if any.
type Flashcard struct {
	ID           int64
	SessionID    int64
	Question     string
	Answer       string
	UserAnswer   *string
	Feedback     *string
	AnsweredAt   *time.Time
	DisplayOrder int
}

// CreateSession records a new session for deckName with one flashcard per
// card, in order. The returned session carries the flashcard ids.
func (s *Store) CreateSession(ctx context.Context, deckName string, cards []Card) (*Session, error) {
	now := s.now().UTC()
	sess := &Session{
		UUID:           uuid.NewString(),
		DeckName:       deckName,
		StartedAt:      now,
		QuestionsTotal: len(cards),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create session: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (uuid, deck_name, created_at, updated_at, started_at, questions_total)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sess.UUID, deckName, now, now, now, len(cards))
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	if sess.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO flashcards (session_id, question, answer, display_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	for i, c := range cards {
		res, err := stmt.ExecContext(ctx, sess.ID, c.Question, c.Answer, i, now, now)
		if err != nil {
			return nil, fmt.Errorf("insert flashcard %d: %w", i, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		sess.FlashcardIDs = append(sess.FlashcardIDs, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create session: %w", err)
	}
	s.logger.Info("session created",
		zap.Int64("session", sess.ID),
		zap.String("deck", deckName),
		zap.Int("cards", len(cards)))
	return sess, nil
}

// RecordAnswer stores the user's answer for a flashcard. The session's
// answered count goes up the first time a card is answered.
func (s *Store) RecordAnswer(ctx context.Context, flashcardID int64, text string) error {
	now := s.now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record answer: %w", err)
	}
	defer tx.Rollback()

	var sessionID int64
	var previous sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT session_id, user_answer FROM flashcards WHERE id = ?`, flashcardID).
		Scan(&sessionID, &previous)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("flashcard %d: %w", flashcardID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("load flashcard %d: %w", flashcardID, err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE flashcards SET user_answer = ?, answered_at = ?, updated_at = ? WHERE id = ?`,
		text, now, now, flashcardID); err != nil {
		return fmt.Errorf("record answer: %w", err)
	}
	if !previous.Valid {
		if _, err := tx.ExecContext(ctx, `
			UPDATE sessions SET questions_answered = questions_answered + 1, updated_at = ? WHERE id = ?`,
			now, sessionID); err != nil {
			return fmt.Errorf("bump answered count: %w", err)
		}
	}
	return tx.Commit()
}

// RecordFeedback stores the evaluator's judgment, encoded as JSON, for a
// flashcard.
func (s *Store) RecordFeedback(ctx context.Context, flashcardID int64, judgmentJSON string) error {
	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE flashcards SET ai_feedback = ?, updated_at = ? WHERE id = ?`,
		judgmentJSON, now, flashcardID)
	if err != nil {
		return fmt.Errorf("record feedback: %w", err)
	}
	return expectOne(res, "flashcard", flashcardID)
}

// CompleteSession marks a session finished.
func (s *Store) CompleteSession(ctx context.Context, sessionID int64) error {
	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET completed_at = ?, updated_at = ? WHERE id = ?`,
		now, now, sessionID)
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	return expectOne(res, "session", sessionID)
}

const sessionColumns = `id, uuid, deck_name, started_at, completed_at, questions_total, questions_answered`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var sess Session
	var completed sql.NullTime
	if err := row.Scan(&sess.ID, &sess.UUID, &sess.DeckName, &sess.StartedAt, &completed,
		&sess.QuestionsTotal, &sess.QuestionsAnswered); err != nil {
		return sess, err
	}
	if completed.Valid {
		t := completed.Time
		sess.CompletedAt = &t
	}
	return sess, nil
}

// ListSessions returns all sessions, most recently started first.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions ORDER BY started_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// GetSession returns one session with the ids of its flashcards in display
// order.
func (s *Store) GetSession(ctx context.Context, sessionID int64) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, sessionID)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %d: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load session %d: %w", sessionID, err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM flashcards WHERE session_id = ? ORDER BY display_order`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list flashcard ids: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		sess.FlashcardIDs = append(sess.FlashcardIDs, id)
	}
	return &sess, rows.Err()
}

// DeleteSession removes a session and its flashcards.
func (s *Store) DeleteSession(ctx context.Context, sessionID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if err := expectOne(res, "session", sessionID); err != nil {
		return err
	}
	s.logger.Info("session deleted", zap.Int64("session", sessionID))
	return nil
}

// Flashcards returns the flashcards of a session in display order.
func (s *Store) Flashcards(ctx context.Context, sessionID int64) ([]Flashcard, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, question, answer, user_answer, ai_feedback, answered_at, display_order
		FROM flashcards WHERE session_id = ? ORDER BY display_order`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list flashcards: %w", err)
	}
	defer rows.Close()

	var out []Flashcard
	for rows.Next() {
		var f Flashcard
		var answer, feedback sql.NullString
		var answered sql.NullTime
		if err := rows.Scan(&f.ID, &f.SessionID, &f.Question, &f.Answer, &answer, &feedback, &answered, &f.DisplayOrder); err != nil {
			return nil, fmt.Errorf("scan flashcard: %w", err)
		}
		if answer.Valid {
			f.UserAnswer = &answer.String
		}
		if feedback.Valid {
			f.Feedback = &feedback.String
		}
		if answered.Valid {
			t := answered.Time
			f.AnsweredAt = &t
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func expectOne(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return nil
}
