package out

import (
	"context"

	"inboxiq/core/domain"

	"github.com/google/uuid"
)

// ChatRepository stores sessions and their messages.
// GetSession returns nil, nil when the session does not exist.
type ChatRepository interface {
	CreateSession(ctx context.Context, session *domain.ChatSession) error
	GetSession(ctx context.Context, id string) (*domain.ChatSession, error)
	ListSessions(ctx context.Context, userID uuid.UUID, kind domain.SessionKind, limit int) ([]*domain.ChatSession, error)
	AppendMessage(ctx context.Context, msg *domain.ChatMessage) error
	// ListMessages returns the newest limit messages, oldest first.
	ListMessages(ctx context.Context, sessionID string, limit int) ([]*domain.ChatMessage, error)
}

// WindowBuffer is the short rolling context of recent turns per user.
type WindowBuffer interface {
	Push(ctx context.Context, userID uuid.UUID, turn domain.Turn) error
	Window(ctx context.Context, userID uuid.UUID) ([]domain.Turn, error)
}
