package draft

import (
	"context"
	"fmt"

	"inboxiq/core/domain"
	"inboxiq/core/port/out"
	"inboxiq/pkg/apperr"
	"inboxiq/pkg/logger"

	"github.com/google/uuid"
)

// SaveToProvider copies an open draft into the user's Gmail Drafts folder.
// Saving again updates the same provider draft; if the user deleted it
// there, a new one is created. The local draft keeps its status.
func (m *Manager) SaveToProvider(ctx context.Context, draftID uuid.UUID, actor *domain.Identity) (*domain.EmailDraft, error) {
	d, err := m.Get(ctx, draftID, actor)
	if err != nil {
		return nil, err
	}
	if d.Status.IsTerminal() {
		return nil, apperr.ValidationFailed(fmt.Sprintf("draft already %s", d.Status))
	}
	if !actor.CredentialValid() {
		return nil, apperr.Unauthorized("mail account is not connected or the token has expired")
	}
	if !domain.IsValidEmail(d.RecipientEmail) {
		return nil, apperr.InvalidInput("recipient_email", "not a valid email address")
	}

	log := logger.WithContext(ctx).WithField("draft_id", d.ID.String())
	msg := &out.OutgoingMail{
		FromName:  actor.DisplayName,
		FromEmail: senderEmail(actor),
		To:        d.RecipientEmail,
		ToName:    d.RecipientName,
		Subject:   d.Subject,
		Body:      d.BodyText(),
	}

	callCtx, cancel := context.WithTimeout(ctx, m.cfg.SendTimeout)
	defer cancel()

	var externalID string
	if d.ExternalDraftID != "" {
		externalID, err = m.transport.UpdateDraft(callCtx, actor.Credential, d.ExternalDraftID, msg)
		if out.IsNotFound(err) {
			log.Info("provider draft gone, creating a new one")
			externalID, err = m.transport.CreateDraft(callCtx, actor.Credential, msg)
		}
	} else {
		externalID, err = m.transport.CreateDraft(callCtx, actor.Credential, msg)
	}
	if err != nil {
		log.WithError(err).Warn("save provider draft failed")
		if out.IsTransportFailure(err) {
			return nil, apperr.TransportFailure(mailProvider, err)
		}
		return nil, apperr.ProviderFailure(mailProvider, err)
	}

	changed, err := m.repo.SetExternalDraftID(context.WithoutCancel(ctx), d.ID, d.UserID, externalID)
	if err != nil {
		return nil, apperr.DatabaseError("save provider draft id", err)
	}
	if !changed {
		return nil, apperr.ValidationFailed("draft already processed")
	}

	d.ExternalDraftID = externalID
	d.UpdatedAt = m.now().UTC()
	log.WithField("external_draft_id", externalID).Info("draft saved to provider")
	return d, nil
}
