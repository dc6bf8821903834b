// Package draft owns the email draft state machine and the send path.
package draft

import (
	"context"
	"fmt"
	"strings"
	"time"

	"inboxiq/core/domain"
	"inboxiq/core/port/out"
	"inboxiq/pkg/apperr"
	"inboxiq/pkg/logger"

	"github.com/google/uuid"
)

const (
	defaultSendTimeout = 10 * time.Second
	// A send claim older than this is considered abandoned and may be retaken.
	defaultClaimStaleAfter = 2 * time.Minute
	defaultListLimit       = 20
	maxListLimit           = 100

	mailProvider = "gmail"
)

type Config struct {
	SendTimeout     time.Duration
	ClaimStaleAfter time.Duration
}

// CreateInput is everything the chat flow knows when it proposes a draft.
type CreateInput struct {
	SessionID      string
	RecipientEmail string
	RecipientName  string
	Subject        string
	Body           string
	Tone           string
	SearchQuery    string
	Candidates     []domain.ContactCandidate
	Variants       []domain.ContentVariant
}

// Edits carries optional client changes. Nil fields are left alone.
type Edits struct {
	Subject *string `json:"subject,omitempty"`
	Body    *string `json:"body,omitempty"`
}

func (e *Edits) empty() bool {
	return e == nil || (e.Subject == nil && e.Body == nil)
}

// Result is what a transition returns to the caller.
type Result struct {
	Action            domain.DraftAction `json:"action"`
	Draft             *domain.EmailDraft `json:"draft"`
	ProviderMessageID string             `json:"provider_message_id,omitempty"`
	Message           string             `json:"message"`
}

type Manager struct {
	repo          out.DraftRepository
	transport     out.MailTransport
	relationships out.RelationshipStore
	improver      Improver
	cfg           Config
	now           func() time.Time
}

func NewManager(repo out.DraftRepository, transport out.MailTransport, relationships out.RelationshipStore, cfg Config) *Manager {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	if cfg.ClaimStaleAfter <= 0 {
		cfg.ClaimStaleAfter = defaultClaimStaleAfter
	}
	return &Manager{
		repo:          repo,
		transport:     transport,
		relationships: relationships,
		cfg:           cfg,
		now:           time.Now,
	}
}

// Create stores a new draft awaiting confirmation. Repeated calls create repeated drafts.
func (m *Manager) Create(ctx context.Context, userID uuid.UUID, in CreateInput) (*domain.EmailDraft, error) {
	now := m.now().UTC()
	body := in.Body
	d := &domain.EmailDraft{
		ID:             uuid.New(),
		UserID:         userID,
		SessionID:      in.SessionID,
		RecipientEmail: strings.TrimSpace(in.RecipientEmail),
		RecipientName:  strings.TrimSpace(in.RecipientName),
		Subject:        in.Subject,
		Body:           &body,
		Tone:           in.Tone,
		Status:         domain.DraftStatusPendingConfirmation,
		SearchQuery:    in.SearchQuery,
		CandidateSet:   in.Candidates,
		Variants:       in.Variants,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := m.repo.Create(ctx, d); err != nil {
		return nil, apperr.DatabaseError("create draft", err)
	}
	logger.WithContext(ctx).WithField("draft_id", d.ID.String()).Info("draft created")
	return d, nil
}

// Get returns the actor's draft. Someone else's draft is reported as not found.
func (m *Manager) Get(ctx context.Context, draftID uuid.UUID, actor *domain.Identity) (*domain.EmailDraft, error) {
	if actor == nil {
		return nil, apperr.Unauthorized("")
	}
	d, err := m.repo.GetByID(ctx, draftID)
	if err != nil {
		return nil, apperr.DatabaseError("get draft", err)
	}
	if d == nil || d.UserID != actor.UserID {
		return nil, apperr.NotFound("draft")
	}
	return d, nil
}

func (m *Manager) List(ctx context.Context, actor *domain.Identity, status domain.DraftStatus, limit, offset int) ([]*domain.EmailDraft, error) {
	if actor == nil {
		return nil, apperr.Unauthorized("")
	}
	if status != "" && !status.Valid() {
		return nil, apperr.InvalidInput("status", "unknown draft status")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	drafts, err := m.repo.List(ctx, &domain.DraftFilter{UserID: actor.UserID, Status: status, Limit: limit, Offset: offset})
	if err != nil {
		return nil, apperr.DatabaseError("list drafts", err)
	}
	if drafts == nil {
		drafts = []*domain.EmailDraft{}
	}
	return drafts, nil
}

// Update persists client edits to a draft that has not been sent or cancelled.
func (m *Manager) Update(ctx context.Context, draftID uuid.UUID, actor *domain.Identity, edits *Edits) (*domain.EmailDraft, error) {
	if edits.empty() {
		return nil, apperr.ValidationFailed("nothing to update")
	}
	d, err := m.Get(ctx, draftID, actor)
	if err != nil {
		return nil, err
	}
	if d.Status.IsTerminal() {
		return nil, apperr.ValidationFailed(fmt.Sprintf("draft already %s", d.Status))
	}
	if err := m.persistEdits(ctx, d, edits); err != nil {
		return nil, err
	}
	return d, nil
}

// Transition applies a confirmation action. Unknown actions are rejected
// before the draft is read.
func (m *Manager) Transition(ctx context.Context, draftID uuid.UUID, actor *domain.Identity, action string, edits *Edits) (*Result, error) {
	act, ok := domain.ParseDraftAction(action)
	if !ok {
		return nil, apperr.InvalidInput("action", "must be one of send, edit, cancel")
	}
	d, err := m.Get(ctx, draftID, actor)
	if err != nil {
		return nil, err
	}

	log := logger.WithContext(ctx).WithFields(map[string]any{
		"draft_id": d.ID.String(),
		"action":   string(act),
		"status":   string(d.Status),
	})

	switch act {
	case domain.DraftActionEdit:
		if d.Status.IsTerminal() {
			return nil, apperr.ValidationFailed(fmt.Sprintf("draft already %s", d.Status))
		}
		return &Result{Action: act, Draft: d, Message: "draft ready for editing"}, nil

	case domain.DraftActionCancel:
		return m.cancel(ctx, d, log)

	default:
		return m.send(ctx, d, actor, edits, log)
	}
}

func (m *Manager) cancel(ctx context.Context, d *domain.EmailDraft, log *logger.Logger) (*Result, error) {
	switch d.Status {
	case domain.DraftStatusCancelled:
		return &Result{Action: domain.DraftActionCancel, Draft: d, Message: "draft already cancelled"}, nil
	case domain.DraftStatusSent:
		return nil, apperr.ValidationFailed("draft already sent")
	}

	from := []domain.DraftStatus{domain.DraftStatusDraft, domain.DraftStatusPendingConfirmation, domain.DraftStatusFailed}
	changed, err := m.repo.SetStatus(ctx, d.ID, d.UserID, from, domain.DraftStatusCancelled)
	if err != nil {
		return nil, apperr.DatabaseError("cancel draft", err)
	}
	if !changed {
		// Lost a race; report whatever state won.
		current, err := m.repo.GetByID(ctx, d.ID)
		if err != nil {
			return nil, apperr.DatabaseError("get draft", err)
		}
		if current == nil || current.Status != domain.DraftStatusCancelled {
			return nil, apperr.ValidationFailed("draft already processed")
		}
		d = current
	}

	d.Status = domain.DraftStatusCancelled
	d.UpdatedAt = m.now().UTC()
	log.Info("draft cancelled")
	return &Result{Action: domain.DraftActionCancel, Draft: d, Message: "email draft cancelled"}, nil
}

func (m *Manager) send(ctx context.Context, d *domain.EmailDraft, actor *domain.Identity, edits *Edits, log *logger.Logger) (*Result, error) {
	if d.Status != domain.DraftStatusPendingConfirmation {
		return nil, apperr.ValidationFailed(fmt.Sprintf("cannot send a draft in %s state", d.Status))
	}

	candidate := *d
	applyEdits(&candidate, edits)
	if err := checkSendable(&candidate, actor); err != nil {
		return nil, err
	}
	if !edits.empty() {
		if err := m.persistEdits(ctx, d, edits); err != nil {
			return nil, err
		}
	}

	claim := uuid.New()
	claimed, err := m.repo.ClaimSend(ctx, d.ID, d.UserID, claim, m.cfg.ClaimStaleAfter)
	if err != nil {
		return nil, apperr.DatabaseError("claim draft", err)
	}
	if !claimed {
		return nil, apperr.ValidationFailed("draft already processed")
	}

	msg := &out.OutgoingMail{
		FromName:  actor.DisplayName,
		FromEmail: senderEmail(actor),
		To:        d.RecipientEmail,
		ToName:    d.RecipientName,
		Subject:   d.Subject,
		Body:      d.BodyText(),
	}

	sendCtx, cancel := context.WithTimeout(ctx, m.cfg.SendTimeout)
	messageID, sendErr := m.transport.Send(sendCtx, actor.Credential, msg)
	cancel()

	if sendErr != nil {
		if err := m.repo.ReleaseClaim(context.WithoutCancel(ctx), d.ID, claim); err != nil {
			log.WithError(err).Error("release send claim failed")
		}
		log.WithError(sendErr).Warn("send failed, draft left pending")
		if out.IsTransportFailure(sendErr) {
			return nil, apperr.TransportFailure(mailProvider, sendErr)
		}
		return nil, apperr.ProviderFailure(mailProvider, sendErr)
	}

	sentAt := m.now().UTC()
	marked, err := m.repo.MarkSent(context.WithoutCancel(ctx), d.ID, claim, messageID, sentAt)
	if err != nil {
		log.WithError(err).WithField("provider_message_id", messageID).Error("message sent but draft not marked")
		return nil, apperr.DatabaseError("mark draft sent", err)
	}
	if !marked {
		log.WithField("provider_message_id", messageID).Warn("send claim lost before marking sent")
	}

	d.Status = domain.DraftStatusSent
	d.ProviderMessageID = messageID
	d.SentAt = &sentAt
	d.UpdatedAt = sentAt

	m.recordRelationship(ctx, d, log)
	log.WithField("provider_message_id", messageID).Info("draft sent")

	name := d.RecipientName
	if name == "" {
		name = d.RecipientEmail
	}
	return &Result{
		Action:            domain.DraftActionSend,
		Draft:             d,
		ProviderMessageID: messageID,
		Message:           fmt.Sprintf("Email sent successfully to %s!", name),
	}, nil
}

// checkSendable runs the send preconditions in a fixed order.
func checkSendable(d *domain.EmailDraft, actor *domain.Identity) error {
	if !actor.CredentialValid() {
		return apperr.Unauthorized("mail account is not connected or the token has expired")
	}
	if !domain.IsValidEmail(d.RecipientEmail) {
		return apperr.InvalidInput("recipient_email", "not a valid email address")
	}
	if strings.TrimSpace(d.Subject) == "" {
		return apperr.MissingField("subject")
	}
	if d.Body == nil {
		return apperr.MissingField("body")
	}
	return nil
}

func (m *Manager) persistEdits(ctx context.Context, d *domain.EmailDraft, edits *Edits) error {
	applyEdits(d, edits)
	changed, err := m.repo.UpdateContent(ctx, d.ID, d.UserID, d.Subject, d.Body)
	if err != nil {
		return apperr.DatabaseError("update draft", err)
	}
	if !changed {
		return apperr.ValidationFailed("draft already processed")
	}
	d.UpdatedAt = m.now().UTC()
	return nil
}

func applyEdits(d *domain.EmailDraft, edits *Edits) {
	if edits == nil {
		return
	}
	if edits.Subject != nil {
		d.Subject = strings.TrimSpace(*edits.Subject)
	}
	if edits.Body != nil {
		body := *edits.Body
		d.Body = &body
	}
}

func (m *Manager) recordRelationship(ctx context.Context, d *domain.EmailDraft, log *logger.Logger) {
	if m.relationships == nil {
		return
	}
	if err := m.relationships.RecordSent(context.WithoutCancel(ctx), d.UserID, d.RecipientEmail, d.RecipientName, *d.SentAt); err != nil {
		log.WithError(err).Warn("record contact relationship failed")
	}
}

func senderEmail(actor *domain.Identity) string {
	if actor.Email != "" {
		return actor.Email
	}
	if actor.Credential != nil {
		return actor.Credential.Email
	}
	return ""
}
