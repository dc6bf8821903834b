// Package identity turns an authenticated user id into the Identity the
// core services act for.
package identity

import (
	"context"
	"strings"

	"inboxiq/core/domain"
	"inboxiq/core/port/out"
	"inboxiq/pkg/apperr"
	"inboxiq/pkg/logger"

	"github.com/google/uuid"
)

type Resolver struct {
	creds out.CredentialStore
}

func NewResolver(creds out.CredentialStore) *Resolver {
	return &Resolver{creds: creds}
}

// Resolve loads the user's Google credential. A user who never connected
// Google still resolves, with a nil credential.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID, displayName, email string) (*domain.Identity, error) {
	if userID == uuid.Nil {
		return nil, apperr.Unauthorized("missing user")
	}
	cred, err := r.creds.GetByUser(ctx, userID, domain.ProviderGoogle)
	if err != nil {
		return nil, apperr.DatabaseError("load credential", err)
	}

	id := &domain.Identity{
		UserID:      userID,
		DisplayName: strings.TrimSpace(displayName),
		Email:       strings.TrimSpace(email),
		Credential:  cred,
	}
	if cred != nil && id.Email == "" {
		id.Email = cred.Email
	}
	if cred != nil && !id.CredentialValid() {
		logger.WithContext(ctx).WithField("user_id", userID.String()).Debug("google credential present but not usable")
	}
	return id, nil
}
