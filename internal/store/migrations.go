package store

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// RunMigrations brings the PostgreSQL schema up to date. SQLite handles its
// own schema in NewSQLiteStore.
func RunMigrations(ctx context.Context, databaseURL string) error {
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	schema := `
	CREATE TABLE IF NOT EXISTS chat_sessions (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS chat_messages (
		id TEXT PRIMARY KEY,
		session_id UUID NOT NULL REFERENCES chat_sessions(id),
		user_id TEXT NOT NULL,
		sender TEXT NOT NULL,
		body TEXT NOT NULL,
		created_at BIGINT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_chat_sessions_user ON chat_sessions(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages(session_id, id);
	`

	_, err = conn.Exec(ctx, schema)
	return err
}
