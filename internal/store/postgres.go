package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/4444ph/capstone-2/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CreateSession creates a new, untitled session for the user.
func (s *PostgresStore) CreateSession(ctx context.Context, userID string) (*models.ChatSession, error) {
	session := &models.ChatSession{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO chat_sessions (id, user_id, created_at)
		VALUES ($1, $2, now())
		RETURNING id, user_id, title, created_at
	`, uuid.New(), userID).Scan(
		&session.ID,
		&session.UserID,
		&session.Title,
		&session.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// GetSession retrieves a session by ID.
func (s *PostgresStore) GetSession(ctx context.Context, id uuid.UUID) (*models.ChatSession, error) {
	session := &models.ChatSession{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, title, created_at
		FROM chat_sessions WHERE id = $1
	`, id).Scan(
		&session.ID,
		&session.UserID,
		&session.Title,
		&session.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return session, nil
}

// ListSessionsByUser retrieves the user's sessions, most recent first.
func (s *PostgresStore) ListSessionsByUser(ctx context.Context, userID string) ([]models.ChatSession, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, title, created_at
		FROM chat_sessions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.ChatSession
	for rows.Next() {
		var session models.ChatSession
		if err := rows.Scan(&session.ID, &session.UserID, &session.Title, &session.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// SetSessionTitle writes the session title exactly once.
func (s *PostgresStore) SetSessionTitle(ctx context.Context, id uuid.UUID, title string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE chat_sessions SET title = $1 WHERE id = $2 AND title IS NULL
	`, title, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetSession(ctx, id); err != nil {
			return err
		}
		return ErrTitleAlreadySet
	}
	return nil
}

// DeleteSession removes the session and all of its messages in one
// transaction.
func (s *PostgresStore) DeleteSession(ctx context.Context, id uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		DELETE FROM chat_messages WHERE session_id = $1
	`, id); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		DELETE FROM chat_sessions WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return tx.Commit(ctx)
}

// AppendMessage assigns the message its order key and persists it.
func (s *PostgresStore) AppendMessage(ctx context.Context, msg *models.ChatMessage) error {
	if _, err := s.GetSession(ctx, msg.SessionID); err != nil {
		return err
	}

	now := time.Now().UTC()
	msg.ID = newMessageID(now)
	msg.CreatedAt = now.UnixMilli()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO chat_messages (id, session_id, user_id, sender, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, msg.ID, msg.SessionID, msg.UserID, string(msg.Sender), msg.Body, msg.CreatedAt)
	return err
}

// ListMessages returns the session's messages in log order.
func (s *PostgresStore) ListMessages(ctx context.Context, sessionID uuid.UUID) ([]models.ChatMessage, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, user_id, sender, body, created_at
		FROM chat_messages
		WHERE session_id = $1
		ORDER BY id ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.ChatMessage
	for rows.Next() {
		var msg models.ChatMessage
		var sender string
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.UserID, &sender, &msg.Body, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msg.Sender = models.Sender(sender)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// DeleteMessages removes every message of the session.
func (s *PostgresStore) DeleteMessages(ctx context.Context, sessionID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM chat_messages WHERE session_id = $1
	`, sessionID)
	return err
}

// CountMessages returns the number of messages in the session.
func (s *PostgresStore) CountMessages(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM chat_messages WHERE session_id = $1
	`, sessionID).Scan(&count)
	return count, err
}
