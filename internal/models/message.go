package models

import "github.com/google/uuid"

// Sender tags who authored a message. It is stored at append time and is
// never re-derived by comparing author identities.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// AssistantUserID is the sentinel author identity for assistant turns.
const AssistantUserID = "assistant"

// ChatMessage is a single turn within a session. The ID is a ULID assigned
// at append time; its lexicographic order is the log order.
type ChatMessage struct {
	ID        string    `json:"id"` // ULID
	SessionID uuid.UUID `json:"sessionId"`
	UserID    string    `json:"userId"` // author; AssistantUserID for assistant turns
	Sender    Sender    `json:"sender"`
	Body      string    `json:"message"`
	CreatedAt int64     `json:"createdAt"` // Unix ms
}
