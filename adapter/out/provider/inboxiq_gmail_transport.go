package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"time"

	"inboxiq/core/domain"
	"inboxiq/core/port/out"

	"github.com/emersion/go-message/mail"
	"github.com/sony/gobreaker"
	"google.golang.org/api/gmail/v1"
)

const providerGmail = "gmail"

// GmailTransport implements out.MailTransport with users.messages.send.
type GmailTransport struct {
	auth *GoogleAuth
	cb   *gobreaker.CircuitBreaker
	now  func() time.Time
}

func NewGmailTransport(auth *GoogleAuth) *GmailTransport {
	return &GmailTransport{
		auth: auth,
		cb:   newBreaker("gmail-api"),
		now:  time.Now,
	}
}

func (t *GmailTransport) service(ctx context.Context, cred *domain.OAuthCredential) (*gmail.Service, error) {
	ts, err := t.auth.TokenSource(ctx, providerGmail, cred)
	if err != nil {
		return nil, err
	}
	svc, err := gmail.NewService(ctx, t.auth.ClientOption(ts))
	if err != nil {
		return nil, wrapError(providerGmail, err, "failed to create client")
	}
	return svc, nil
}

func (t *GmailTransport) message(msg *out.OutgoingMail) (*gmail.Message, error) {
	raw, err := buildRawMessage(msg, t.now())
	if err != nil {
		return nil, out.NewProviderError(providerGmail, out.ProviderErrInvalidInput, "failed to build message", err, false)
	}
	return &gmail.Message{Raw: base64.URLEncoding.EncodeToString(raw)}, nil
}

func (t *GmailTransport) Send(ctx context.Context, cred *domain.OAuthCredential, msg *out.OutgoingMail) (string, error) {
	svc, err := t.service(ctx, cred)
	if err != nil {
		return "", err
	}
	gmailMsg, err := t.message(msg)
	if err != nil {
		return "", err
	}

	var sent *gmail.Message
	cbErr := executeWithCircuitBreaker(t.cb, "Send", func() error {
		var apiErr error
		sent, apiErr = svc.Users.Messages.Send("me", gmailMsg).Context(ctx).Do()
		return apiErr
	})
	if cbErr != nil {
		return "", wrapError(providerGmail, cbErr, "failed to send message")
	}
	return sent.Id, nil
}

// CreateDraft stores the message in the user's Gmail Drafts folder.
func (t *GmailTransport) CreateDraft(ctx context.Context, cred *domain.OAuthCredential, msg *out.OutgoingMail) (string, error) {
	svc, err := t.service(ctx, cred)
	if err != nil {
		return "", err
	}
	gmailMsg, err := t.message(msg)
	if err != nil {
		return "", err
	}

	var created *gmail.Draft
	cbErr := executeWithCircuitBreaker(t.cb, "CreateDraft", func() error {
		var apiErr error
		created, apiErr = svc.Users.Drafts.Create("me", &gmail.Draft{Message: gmailMsg}).Context(ctx).Do()
		return apiErr
	})
	if cbErr != nil {
		return "", wrapError(providerGmail, cbErr, "failed to create draft")
	}
	return created.Id, nil
}

// UpdateDraft replaces the content of an existing Gmail draft.
func (t *GmailTransport) UpdateDraft(ctx context.Context, cred *domain.OAuthCredential, draftID string, msg *out.OutgoingMail) (string, error) {
	svc, err := t.service(ctx, cred)
	if err != nil {
		return "", err
	}
	gmailMsg, err := t.message(msg)
	if err != nil {
		return "", err
	}

	var updated *gmail.Draft
	cbErr := executeWithCircuitBreaker(t.cb, "UpdateDraft", func() error {
		var apiErr error
		updated, apiErr = svc.Users.Drafts.Update("me", draftID, &gmail.Draft{Id: draftID, Message: gmailMsg}).Context(ctx).Do()
		return apiErr
	})
	if cbErr != nil {
		return "", wrapError(providerGmail, cbErr, "failed to update draft")
	}
	return updated.Id, nil
}

// IsCircuitOpen reports whether sends are currently failing fast.
func (t *GmailTransport) IsCircuitOpen() bool {
	return t.cb.State() == gobreaker.StateOpen
}

// buildRawMessage renders a single-part text/plain RFC 5322 message.
func buildRawMessage(msg *out.OutgoingMail, date time.Time) ([]byte, error) {
	if msg.To == "" {
		return nil, fmt.Errorf("missing recipient")
	}

	var h mail.Header
	h.SetDate(date)
	h.SetSubject(msg.Subject)
	h.SetAddressList("To", []*mail.Address{{Name: msg.ToName, Address: msg.To}})
	if msg.FromEmail != "" {
		h.SetAddressList("From", []*mail.Address{{Name: msg.FromName, Address: msg.FromEmail}})
	}
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	h.Set("Content-Transfer-Encoding", "quoted-printable")

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(w, msg.Body); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var _ out.MailTransport = (*GmailTransport)(nil)
