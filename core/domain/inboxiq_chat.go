package domain

import (
	"time"

	"github.com/google/uuid"
)

type SessionKind string

const (
	SessionKindEmail    SessionKind = "email"
	SessionKindCalendar SessionKind = "calendar"
)

func (k SessionKind) Valid() bool {
	return k == SessionKindEmail || k == SessionKindCalendar
}

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

type ChatSession struct {
	ID        string      `json:"id"`
	UserID    uuid.UUID   `json:"user_id"`
	Kind      SessionKind `json:"kind"`
	Title     string      `json:"title"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type ChatMessage struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	UserID    uuid.UUID      `json:"user_id"`
	Role      MessageRole    `json:"role"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Turn is one entry of the short-term conversation window.
type Turn struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}
