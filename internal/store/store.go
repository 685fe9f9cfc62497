package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/4444ph/capstone-2/internal/models"
)

var (
	// ErrNotFound is returned when a session does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrTitleAlreadySet is returned by SetSessionTitle when the session
	// already has a title. Titles are written at most once.
	ErrTitleAlreadySet = errors.New("store: title already set")
)

// DataStore defines the interface for persistent storage of chat sessions
// and their message logs. Both PostgresStore and SQLiteStore implement this
// interface.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Session operations
	CreateSession(ctx context.Context, userID string) (*models.ChatSession, error)
	GetSession(ctx context.Context, id uuid.UUID) (*models.ChatSession, error)
	ListSessionsByUser(ctx context.Context, userID string) ([]models.ChatSession, error)
	SetSessionTitle(ctx context.Context, id uuid.UUID, title string) error
	// DeleteSession removes the session and every message it owns as a
	// single transaction. Deleting an absent session returns ErrNotFound.
	DeleteSession(ctx context.Context, id uuid.UUID) error

	// Message log operations
	// AppendMessage fills msg.ID and msg.CreatedAt and persists the message.
	// Returns ErrNotFound when the session does not exist. A stored message
	// is never mutated afterwards.
	AppendMessage(ctx context.Context, msg *models.ChatMessage) error
	// ListMessages returns the session's messages in log order (ascending
	// order key). Repeated calls without intervening appends are identical.
	ListMessages(ctx context.Context, sessionID uuid.UUID) ([]models.ChatMessage, error)
	// DeleteMessages removes every message of the session. Idempotent:
	// deleting an empty log is not an error.
	DeleteMessages(ctx context.Context, sessionID uuid.UUID) error
	CountMessages(ctx context.Context, sessionID uuid.UUID) (int64, error)
}
