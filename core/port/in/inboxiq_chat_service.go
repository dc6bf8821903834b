package in

import (
	"context"

	"inboxiq/core/domain"

	"github.com/google/uuid"
)

type ChatService interface {
	StartSession(ctx context.Context, userID uuid.UUID, kind domain.SessionKind, title string) (*domain.ChatSession, error)
	ListSessions(ctx context.Context, userID uuid.UUID, kind domain.SessionKind, limit int) ([]*domain.ChatSession, error)
	History(ctx context.Context, userID uuid.UUID, sessionID string, limit int) ([]*domain.ChatMessage, error)

	// SendMessage classifies and answers one user message. An empty
	// SessionID starts a new session of the requested kind.
	SendMessage(ctx context.Context, identity *domain.Identity, req *SendMessageRequest) (*MessageReply, error)
}

type SendMessageRequest struct {
	SessionID string             `json:"session_id"`
	Kind      domain.SessionKind `json:"kind,omitempty"`
	Message   string             `json:"message"`
}

// MessageReply is the assistant's stored answer plus what produced it.
type MessageReply struct {
	SessionID  string                    `json:"session_id"`
	Message    *domain.ChatMessage       `json:"message"`
	Intent     *domain.IntentResult      `json:"intent,omitempty"`
	Route      *domain.RouteResult       `json:"route,omitempty"`
	Draft      *domain.EmailDraft        `json:"draft,omitempty"`
	Candidates []domain.ContactCandidate `json:"candidates,omitempty"`
}
