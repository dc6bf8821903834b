package out

import (
	"context"

	"inboxiq/core/domain"
)

type OutgoingMail struct {
	FromName  string
	FromEmail string
	To        string
	ToName    string
	Subject   string
	Body      string
}

// MailTransport delivers a message and returns the provider's message id.
// The draft methods store an unsent copy in the provider's Drafts folder
// and return the provider's draft id.
type MailTransport interface {
	Send(ctx context.Context, cred *domain.OAuthCredential, msg *OutgoingMail) (string, error)
	CreateDraft(ctx context.Context, cred *domain.OAuthCredential, msg *OutgoingMail) (string, error)
	UpdateDraft(ctx context.Context, cred *domain.OAuthCredential, draftID string, msg *OutgoingMail) (string, error)
}

// TextGenerator returns raw model output. Callers must treat it as untrusted text.
type TextGenerator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}
