// Package provider implements the Google adapters: Gmail transport, People
// directory and Calendar.
package provider

import (
	"context"
	"net/http"
	"sync"
	"time"

	"inboxiq/core/domain"
	"inboxiq/core/port/out"
	"inboxiq/pkg/logger"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
	"google.golang.org/api/people/v1"
)

const tokenSaveTimeout = 5 * time.Second

// GoogleConfig holds the OAuth client used to refresh stored tokens.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	// HTTPClient carries API calls and token refreshes. Nil uses the default client.
	HTTPClient *http.Client
}

// GoogleAuth turns stored credentials into token sources. Refreshed tokens
// are written back to the credential store.
type GoogleAuth struct {
	config *oauth2.Config
	creds  out.CredentialStore
	client *http.Client
}

func NewGoogleAuth(cfg GoogleConfig, creds out.CredentialStore) *GoogleAuth {
	return &GoogleAuth{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes: []string{
				gmail.GmailSendScope,
				people.ContactsReadonlyScope,
				calendar.CalendarEventsScope,
			},
			Endpoint: google.Endpoint,
		},
		creds:  creds,
		client: cfg.HTTPClient,
	}
}

// TokenSource fails with an auth ProviderError when the credential cannot
// authorize a call.
func (a *GoogleAuth) TokenSource(ctx context.Context, provider string, cred *domain.OAuthCredential) (oauth2.TokenSource, error) {
	if !cred.Usable(time.Now()) {
		return nil, out.NewProviderError(provider, out.ProviderErrAuth, "account not connected", nil, false)
	}
	if a.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, a.client)
	}
	base := a.config.TokenSource(ctx, toToken(cred))
	return &persistingTokenSource{
		base:  base,
		cred:  *cred,
		store: a.creds,
		last:  cred.AccessToken,
	}, nil
}

// ClientOption authorizes a Google API service with ts over the shared client.
func (a *GoogleAuth) ClientOption(ts oauth2.TokenSource) option.ClientOption {
	if a.client == nil {
		return option.WithTokenSource(ts)
	}
	return option.WithHTTPClient(&http.Client{
		Transport: &oauth2.Transport{Source: ts, Base: a.client.Transport},
		Timeout:   a.client.Timeout,
	})
}

func toToken(cred *domain.OAuthCredential) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       cred.ExpiresAt,
	}
}

type persistingTokenSource struct {
	base  oauth2.TokenSource
	store out.CredentialStore

	mu   sync.Mutex
	cred domain.OAuthCredential
	last string
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken == s.last {
		return tok, nil
	}
	s.last = tok.AccessToken

	if s.store == nil {
		return tok, nil
	}
	updated := s.cred
	updated.AccessToken = tok.AccessToken
	updated.ExpiresAt = tok.Expiry
	if tok.RefreshToken != "" {
		updated.RefreshToken = tok.RefreshToken
	}
	updated.UpdatedAt = time.Now().UTC()
	s.cred = updated

	ctx, cancel := context.WithTimeout(context.Background(), tokenSaveTimeout)
	defer cancel()
	if err := s.store.Save(ctx, &updated); err != nil {
		logger.WithError(err).WithField("user_id", updated.UserID.String()).Warn("failed to persist refreshed token")
	}
	return tok, nil
}
