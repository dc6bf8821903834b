package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"inboxiq/core/domain"
	"inboxiq/core/port/out"
	"inboxiq/pkg/crypto"
	"inboxiq/pkg/logger"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// CredentialAdapter implements out.CredentialStore. Tokens are sealed with
// AES-GCM before they reach the table.
type CredentialAdapter struct {
	db  *sqlx.DB
	enc *crypto.Encryptor
}

func NewCredentialAdapter(db *sqlx.DB, enc *crypto.Encryptor) *CredentialAdapter {
	return &CredentialAdapter{db: db, enc: enc}
}

type credentialRow struct {
	ID           int64      `db:"id"`
	UserID       uuid.UUID  `db:"user_id"`
	Provider     string     `db:"provider"`
	Email        string     `db:"email"`
	AccessToken  string     `db:"access_token"`
	RefreshToken string     `db:"refresh_token"`
	ExpiresAt    *time.Time `db:"expires_at"`
	IsConnected  bool       `db:"is_connected"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

func (a *CredentialAdapter) GetByUser(ctx context.Context, userID uuid.UUID, provider domain.OAuthProvider) (*domain.OAuthCredential, error) {
	var row credentialRow
	query := `
		SELECT id, user_id, provider, email, access_token, refresh_token,
		       expires_at, is_connected, created_at, updated_at
		FROM oauth_connections
		WHERE user_id = $1 AND provider = $2`

	if err := a.db.GetContext(ctx, &row, query, userID, string(provider)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	access, err := a.enc.Open(row.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("open access token: %w", err)
	}
	refresh, err := a.enc.Open(row.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("open refresh token: %w", err)
	}

	cred := &domain.OAuthCredential{
		ID:           row.ID,
		UserID:       row.UserID,
		Provider:     domain.OAuthProvider(row.Provider),
		Email:        row.Email,
		AccessToken:  access,
		RefreshToken: refresh,
		IsConnected:  row.IsConnected,
		UpdatedAt:    row.UpdatedAt,
	}
	if row.ExpiresAt != nil {
		cred.ExpiresAt = *row.ExpiresAt
	}
	return cred, nil
}

// Save upserts on (user_id, provider). An empty refresh token keeps the
// stored one, since Google only returns it on first consent.
func (a *CredentialAdapter) Save(ctx context.Context, cred *domain.OAuthCredential) error {
	access, err := a.enc.Seal(cred.AccessToken)
	if err != nil {
		return fmt.Errorf("seal access token: %w", err)
	}
	refresh, err := a.enc.Seal(cred.RefreshToken)
	if err != nil {
		return fmt.Errorf("seal refresh token: %w", err)
	}

	var expiresAt *time.Time
	if !cred.ExpiresAt.IsZero() {
		t := cred.ExpiresAt.UTC()
		expiresAt = &t
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO oauth_connections (user_id, provider, email, access_token, refresh_token,
		                               expires_at, is_connected, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (user_id, provider) DO UPDATE SET
			email = CASE WHEN EXCLUDED.email = '' THEN oauth_connections.email ELSE EXCLUDED.email END,
			access_token = EXCLUDED.access_token,
			refresh_token = CASE WHEN EXCLUDED.refresh_token = '' THEN oauth_connections.refresh_token ELSE EXCLUDED.refresh_token END,
			expires_at = EXCLUDED.expires_at,
			is_connected = EXCLUDED.is_connected,
			updated_at = EXCLUDED.updated_at
		RETURNING id`

	if err := a.db.QueryRowContext(ctx, query,
		cred.UserID,
		string(cred.Provider),
		cred.Email,
		access,
		refresh,
		expiresAt,
		cred.IsConnected,
		now,
	).Scan(&cred.ID); err != nil {
		return err
	}
	cred.UpdatedAt = now
	logger.WithContext(ctx).WithField("provider", string(cred.Provider)).Debug("credential saved")
	return nil
}

var _ out.CredentialStore = (*CredentialAdapter)(nil)
