package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatSession represents one conversation thread owned by a single user.
// Title stays nil until synthesized from the first exchange and is never
// rewritten afterwards.
type ChatSession struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"userId"`
	Title     *string   `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}
