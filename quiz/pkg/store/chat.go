package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Chat roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of the follow-up conversation about a flashcard.
type ChatMessage struct {
	ID          int64
	FlashcardID int64
	Role        string
	Content     string
	Order       int
	CreatedAt   time.Time
}

// AddChatMessage appends a message to the conversation of a flashcard.
func (s *Store) AddChatMessage(ctx context.Context, flashcardID int64, role, content string) (*ChatMessage, error) {
	now := s.now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin add chat message: %w", err)
	}
	defer tx.Rollback()

	var sessionID int64
	err = tx.QueryRowContext(ctx, `SELECT session_id FROM flashcards WHERE id = ?`, flashcardID).Scan(&sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("flashcard %d: %w", flashcardID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load flashcard %d: %w", flashcardID, err)
	}

	msg := &ChatMessage{FlashcardID: flashcardID, Role: role, Content: content, CreatedAt: now}
	if err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(message_order) + 1, 0) FROM chat_messages WHERE flashcard_id = ?`,
		flashcardID).Scan(&msg.Order); err != nil {
		return nil, fmt.Errorf("next message order: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO chat_messages (flashcard_id, session_id, role, content, message_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		flashcardID, sessionID, role, content, msg.Order, now, now)
	if err != nil {
		return nil, fmt.Errorf("insert chat message: %w", err)
	}
	if msg.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	s.logger.Debug("chat message saved",
		zap.Int64("flashcard", flashcardID),
		zap.String("role", role),
		zap.Int("order", msg.Order))
	return msg, nil
}

// ChatMessages returns the conversation of a flashcard, oldest first.
func (s *Store) ChatMessages(ctx context.Context, flashcardID int64) ([]ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, flashcard_id, role, content, message_order, created_at
		FROM chat_messages WHERE flashcard_id = ? ORDER BY message_order`, flashcardID)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	defer rows.Close()

	var out []ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.FlashcardID, &m.Role, &m.Content, &m.Order, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
