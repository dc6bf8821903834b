package chat

import (
	"context"
	"fmt"
	"strings"

	"inboxiq/core/domain"
	"inboxiq/core/port/in"
	"inboxiq/core/service/compose"
	"inboxiq/core/service/draft"
	"inboxiq/core/service/intent"
	"inboxiq/pkg/logger"
)

const previewRunes = 200

// handleEmail resolves a recipient, writes the content and stores a draft
// awaiting confirmation. Only a failed draft insert is an error; every
// other gap is answered in the reply.
func (s *Service) handleEmail(ctx context.Context, identity *domain.Identity, session *domain.ChatSession, result *domain.IntentResult, reply *in.MessageReply, log *logger.Logger) error {
	recipient, candidates := s.resolveRecipient(ctx, identity, result, log)
	reply.Candidates = candidates

	if recipient == nil {
		content := "Who should I send this email to? You can give me a name or an email address."
		if result.RecipientHint != "" {
			content = fmt.Sprintf("I couldn't find any contacts matching '%s'. "+
				"Could you provide more specific information or the email address directly?", result.RecipientHint)
		}
		reply.Message = &domain.ChatMessage{
			Content:  content,
			Metadata: map[string]any{"type": "contact_not_found", "search_query": result.RecipientHint},
		}
		return nil
	}

	variants := s.generator.Generate(ctx, compose.Request{
		RecipientName:  recipient.DisplayName,
		RecipientEmail: recipient.PrimaryEmail,
		Topic:          result.Topic,
		SenderName:     identity.SenderName(),
		ProposedTime:   result.Details.ProposedTime,
		Urgency:        result.Details.Urgency,
	})
	primary := variants[0]

	d, err := s.drafts.Create(ctx, identity.UserID, draft.CreateInput{
		SessionID:      session.ID,
		RecipientEmail: recipient.PrimaryEmail,
		RecipientName:  recipient.DisplayName,
		Subject:        primary.Subject,
		Body:           primary.Body,
		Tone:           primary.Tone,
		SearchQuery:    result.RecipientHint,
		Candidates:     candidates,
		Variants:       variants,
	})
	if err != nil {
		return err
	}
	reply.Draft = d

	log.WithFields(map[string]any{
		"draft_id":   d.ID.String(),
		"candidates": len(candidates),
		"backend":    s.generator.Backend(),
	}).Info("draft proposed")

	reply.Message = &domain.ChatMessage{
		Content: confirmationText(result.RecipientHint, recipient, primary),
		Metadata: map[string]any{
			"type":     "email_confirmation",
			"draft_id": d.ID.String(),
			"contact": map[string]any{
				"name":      recipient.DisplayName,
				"email":     recipient.PrimaryEmail,
				"photo_url": recipient.PhotoURL,
			},
			"email_preview": map[string]any{"subject": primary.Subject, "body": primary.Body},
		},
	}
	return nil
}

// resolveRecipient picks the top candidate. A literal address in the
// message always wins over a fuzzy match on some other address.
func (s *Service) resolveRecipient(ctx context.Context, identity *domain.Identity, result *domain.IntentResult, log *logger.Logger) (*domain.Contact, []domain.ContactCandidate) {
	var candidates []domain.ContactCandidate
	if terms := intent.SearchTerms(result.RecipientHint); len(terms) > 0 && s.matcher != nil {
		found, err := s.matcher.Search(ctx, identity, terms)
		if err != nil {
			log.WithError(err).Warn("contact search failed")
		}
		candidates = found
	}

	if result.HasExplicitAddress() {
		addr := strings.TrimSpace(result.RecipientHint)
		for i := range candidates {
			if strings.EqualFold(candidates[i].PrimaryEmail, addr) {
				c := candidates[i].Contact
				return &c, candidates
			}
		}
		return &domain.Contact{PrimaryEmail: addr}, candidates
	}
	if len(candidates) == 0 {
		return nil, candidates
	}
	top := candidates[0].Contact
	return &top, candidates
}

func confirmationText(hint string, recipient *domain.Contact, v domain.ContentVariant) string {
	var sb strings.Builder
	if recipient.DisplayName != "" {
		fmt.Fprintf(&sb, "I found a contact for '%s'. Is this the right person?\n\n", hint)
		fmt.Fprintf(&sb, "**%s** (%s)\n\n", recipient.DisplayName, recipient.PrimaryEmail)
	} else {
		fmt.Fprintf(&sb, "I'll send this to **%s**.\n\n", recipient.PrimaryEmail)
	}
	fmt.Fprintf(&sb, "**Email Subject:** %s\n\n", v.Subject)
	preview := v.Body
	if r := []rune(preview); len(r) > previewRunes {
		preview = string(r[:previewRunes]) + "..."
	}
	fmt.Fprintf(&sb, "**Email Preview:**\n%s\n\n", preview)
	sb.WriteString("Reply with 'send' to send this email, 'edit' to change it, or 'cancel' to drop it.")
	return sb.String()
}
