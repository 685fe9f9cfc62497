package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/4444ph/capstone-2/internal/models"
)

// SQLiteStore handles SQLite database operations.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/assistant.db".
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/assistant.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=10000")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	// Initialize schema
	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS chat_sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chat_messages (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES chat_sessions(id),
		user_id TEXT NOT NULL,
		sender TEXT NOT NULL,
		body TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_chat_sessions_user ON chat_sessions(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages(session_id, id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateSession creates a new, untitled session for the user.
func (s *SQLiteStore) CreateSession(ctx context.Context, userID string) (*models.ChatSession, error) {
	session := &models.ChatSession{
		ID:        uuid.New(),
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_sessions (id, user_id, title, created_at)
		VALUES (?, ?, NULL, ?)
	`, session.ID.String(), session.UserID, session.CreatedAt)
	if err != nil {
		return nil, err
	}

	return session, nil
}

// GetSession retrieves a session by ID.
func (s *SQLiteStore) GetSession(ctx context.Context, id uuid.UUID) (*models.ChatSession, error) {
	session := &models.ChatSession{}
	var idStr string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, created_at
		FROM chat_sessions WHERE id = ?
	`, id.String()).Scan(
		&idStr,
		&session.UserID,
		&session.Title,
		&session.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	session.ID = uuid.MustParse(idStr)
	return session, nil
}

// ListSessionsByUser retrieves the user's sessions, most recent first.
func (s *SQLiteStore) ListSessionsByUser(ctx context.Context, userID string) ([]models.ChatSession, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, created_at
		FROM chat_sessions
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.ChatSession
	for rows.Next() {
		var session models.ChatSession
		var idStr string
		if err := rows.Scan(&idStr, &session.UserID, &session.Title, &session.CreatedAt); err != nil {
			return nil, err
		}
		session.ID = uuid.MustParse(idStr)
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// SetSessionTitle writes the session title exactly once. The guarded UPDATE
// is the arbiter for concurrent synthesis attempts: the loser sees zero
// affected rows and gets ErrTitleAlreadySet.
func (s *SQLiteStore) SetSessionTitle(ctx context.Context, id uuid.UUID, title string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE chat_sessions SET title = ? WHERE id = ? AND title IS NULL
	`, title, id.String())
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := s.GetSession(ctx, id); err != nil {
			return err
		}
		return ErrTitleAlreadySet
	}
	return nil
}

// DeleteSession removes the session and all of its messages in one
// transaction, so a session row can never outlive deletion while its
// messages are already gone, or vice versa.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM chat_messages WHERE session_id = ?
	`, id.String()); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `
		DELETE FROM chat_sessions WHERE id = ?
	`, id.String())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

// AppendMessage assigns the message its order key and persists it.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *models.ChatMessage) error {
	if _, err := s.GetSession(ctx, msg.SessionID); err != nil {
		return err
	}

	now := time.Now().UTC()
	msg.ID = newMessageID(now)
	msg.CreatedAt = now.UnixMilli()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, session_id, user_id, sender, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.SessionID.String(), msg.UserID, string(msg.Sender), msg.Body, msg.CreatedAt)
	return err
}

// ListMessages returns the session's messages in log order.
func (s *SQLiteStore) ListMessages(ctx context.Context, sessionID uuid.UUID) ([]models.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, user_id, sender, body, created_at
		FROM chat_messages
		WHERE session_id = ?
		ORDER BY id ASC
	`, sessionID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.ChatMessage
	for rows.Next() {
		var msg models.ChatMessage
		var sessionIDStr, sender string
		if err := rows.Scan(&msg.ID, &sessionIDStr, &msg.UserID, &sender, &msg.Body, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msg.SessionID = uuid.MustParse(sessionIDStr)
		msg.Sender = models.Sender(sender)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// DeleteMessages removes every message of the session.
func (s *SQLiteStore) DeleteMessages(ctx context.Context, sessionID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM chat_messages WHERE session_id = ?
	`, sessionID.String())
	return err
}

// CountMessages returns the number of messages in the session.
func (s *SQLiteStore) CountMessages(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM chat_messages WHERE session_id = ?
	`, sessionID.String()).Scan(&count)
	return count, err
}
