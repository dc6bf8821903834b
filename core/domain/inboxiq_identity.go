package domain

import (
	"time"

	"github.com/google/uuid"
)

type OAuthProvider string

const ProviderGoogle OAuthProvider = "google"

// tokenExpiryLeeway treats tokens that expire within this window as already expired.
const tokenExpiryLeeway = time.Minute

type OAuthCredential struct {
	ID           int64         `json:"id"`
	UserID       uuid.UUID     `json:"user_id"`
	Provider     OAuthProvider `json:"provider"`
	Email        string        `json:"email"`
	AccessToken  string        `json:"-"`
	RefreshToken string        `json:"-"`
	ExpiresAt    time.Time     `json:"expires_at"`
	IsConnected  bool          `json:"is_connected"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Usable reports whether the credential can authorize a call right now,
// either directly or after a refresh.
func (c *OAuthCredential) Usable(now time.Time) bool {
	if c == nil || !c.IsConnected {
		return false
	}
	if c.RefreshToken != "" {
		return true
	}
	if c.AccessToken == "" {
		return false
	}
	return c.ExpiresAt.IsZero() || c.ExpiresAt.After(now.Add(tokenExpiryLeeway))
}

// Identity is the acting user as seen by the core services.
type Identity struct {
	UserID      uuid.UUID        `json:"user_id"`
	DisplayName string           `json:"display_name"`
	Email       string           `json:"email"`
	Credential  *OAuthCredential `json:"-"`
}

func (i *Identity) CredentialValid() bool {
	return i != nil && i.Credential.Usable(time.Now())
}

// SenderName is the name used to sign generated content.
func (i *Identity) SenderName() string {
	if i == nil {
		return ""
	}
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return i.Email
}
