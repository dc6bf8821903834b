package chat

import (
	"context"
	"fmt"
	"strings"

	"inboxiq/core/domain"
	"inboxiq/core/service/calendar"
	"inboxiq/pkg/logger"

	"github.com/google/uuid"
)

const chatSystemPrompt = `You are InboxIQ, a friendly assistant that helps people write and send email.
Answer conversationally and briefly. If the user seems to want to send an email,
tell them to name the recipient and the topic, for example
"Send an email to jane@example.com about the Q3 report".`

const (
	cannedReply = "I can help you write and send emails. Try something like " +
		"\"Send an email to jane@example.com about the Q3 report\"."
	errorReply = "I'm sorry, I encountered an error processing your message. Please try again."
)

// converse answers a non-actionable message. Recent turns from other
// sessions go into the system prompt; this session's history goes into the
// user prompt.
func (s *Service) converse(ctx context.Context, userID uuid.UUID, message string, history []domain.Turn, log *logger.Logger) string {
	if s.text == nil {
		return cannedReply
	}

	system := chatSystemPrompt
	if s.window != nil {
		turns, err := s.window.Window(ctx, userID)
		if err != nil {
			log.WithError(err).Warn("window buffer read failed")
		}
		system += recentContext(turns, message)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	resp, err := s.text.Generate(callCtx, system, calendar.FormatHistory(history, message))
	if err != nil {
		log.WithError(err).Warn("chat generation failed")
		return errorReply
	}
	resp = strings.TrimSpace(resp)
	if resp == "" {
		return errorReply
	}
	return resp
}

// recentContext renders window turns, leaving out the message being answered.
func recentContext(turns []domain.Turn, message string) string {
	var sb strings.Builder
	for _, t := range turns {
		if t.Role == domain.RoleUser && t.Content == message {
			continue
		}
		fmt.Fprintf(&sb, "- %s: %s\n", t.Role, t.Content)
	}
	if sb.Len() == 0 {
		return ""
	}
	return "\n\nRecent turns:\n" + sb.String()
}
