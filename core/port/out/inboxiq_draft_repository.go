package out

import (
	"context"
	"time"

	"inboxiq/core/domain"

	"github.com/google/uuid"
)

// DraftRepository persists email drafts.
//
// Conditional methods report whether a row was changed; false means the
// draft was not in an accepted state when the update ran.
type DraftRepository interface {
	Create(ctx context.Context, draft *domain.EmailDraft) error
	// GetByID returns nil, nil when the draft does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.EmailDraft, error)
	List(ctx context.Context, filter *domain.DraftFilter) ([]*domain.EmailDraft, error)

	UpdateContent(ctx context.Context, id, userID uuid.UUID, subject string, body *string) (bool, error)
	SetStatus(ctx context.Context, id, userID uuid.UUID, from []domain.DraftStatus, to domain.DraftStatus) (bool, error)

	// ClaimSend marks a pending draft as in flight. A claim older than staleAfter may be taken over.
	ClaimSend(ctx context.Context, id, userID, claim uuid.UUID, staleAfter time.Duration) (bool, error)
	// MarkSent moves a claimed pending draft to sent.
	MarkSent(ctx context.Context, id, claim uuid.UUID, providerMessageID string, sentAt time.Time) (bool, error)
	ReleaseClaim(ctx context.Context, id, claim uuid.UUID) error

	// SetExternalDraftID records the provider draft copy of an open draft.
	SetExternalDraftID(ctx context.Context, id, userID uuid.UUID, externalID string) (bool, error)
}
