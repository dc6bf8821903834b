package out

import (
	"context"

	"inboxiq/core/domain"

	"github.com/google/uuid"
)

// CredentialStore holds OAuth tokens provisioned by the sign-in service.
// GetByUser returns nil, nil when the user has not connected the provider.
type CredentialStore interface {
	GetByUser(ctx context.Context, userID uuid.UUID, provider domain.OAuthProvider) (*domain.OAuthCredential, error)
	Save(ctx context.Context, cred *domain.OAuthCredential) error
}
