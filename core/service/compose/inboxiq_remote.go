package compose

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/goccy/go-json"

	"inboxiq/core/agent/llm"
	"inboxiq/core/domain"
	"inboxiq/core/port/out"
)

var ErrUnparseable = errors.New("compose: model output has no subject and body")

const composeSystemPrompt = `You write short, clear emails on behalf of the user.
Respond ONLY with a JSON object: {"subject": "...", "body": "..."}.
The body is plain text with a greeting and a sign-off. Never include email addresses,
and never repeat the user's instructions back.`

var (
	jsonFragment = regexp.MustCompile(`(?s)\{.*\}`)
	subjectLine  = regexp.MustCompile(`(?im)^\s*\**subject\**\s*:\s*(.+)$`)
	bodyLabel    = regexp.MustCompile(`(?i)^\s*\**body\**\s*:\s*`)
)

// RemoteModelBackend asks a text generator for JSON content.
type RemoteModelBackend struct {
	text out.TextGenerator
}

func NewRemoteModelBackend(text out.TextGenerator) *RemoteModelBackend {
	return &RemoteModelBackend{text: text}
}

func (b *RemoteModelBackend) Name() string { return "remote" }

func (b *RemoteModelBackend) Generate(ctx context.Context, req Request, style Style) (domain.ContentVariant, error) {
	raw, err := b.text.Generate(ctx, composeSystemPrompt, composePrompt(req, style))
	if err != nil {
		return domain.ContentVariant{}, err
	}
	subject, body, err := ParseContent(raw)
	if err != nil {
		return domain.ContentVariant{}, err
	}
	return domain.ContentVariant{
		Subject:    subject,
		Body:       body,
		Tone:       string(style),
		StyleLabel: string(style),
	}, nil
}

func composePrompt(req Request, style Style) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write a %s email.\n", style)
	if name := strings.TrimSpace(req.RecipientName); name != "" && !domain.IsValidEmail(name) {
		fmt.Fprintf(&sb, "Recipient name: %s\n", name)
	}
	if req.Topic != "" {
		fmt.Fprintf(&sb, "Topic: %s\n", llm.Truncate(req.Topic, 300))
	}
	if req.ProposedTime != "" {
		fmt.Fprintf(&sb, "Proposed time: %s\n", req.ProposedTime)
	}
	if req.Urgency == domain.UrgencyHigh {
		sb.WriteString("The matter is urgent.\n")
	}
	if req.SenderName != "" {
		fmt.Fprintf(&sb, "Sign as: %s\n", req.SenderName)
	}
	return sb.String()
}

type contentJSON struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ParseContent reads model output as strict JSON, then as a JSON fragment
// inside prose, then as a "Subject:" line followed by the body.
func ParseContent(raw string) (string, string, error) {
	raw = llm.CleanJSONResponse(raw)

	var c contentJSON
	if err := json.Unmarshal([]byte(raw), &c); err == nil && strings.TrimSpace(c.Body) != "" {
		return strings.TrimSpace(c.Subject), strings.TrimSpace(c.Body), nil
	}

	if frag := jsonFragment.FindString(raw); frag != "" {
		c = contentJSON{}
		if err := json.Unmarshal([]byte(frag), &c); err == nil && strings.TrimSpace(c.Body) != "" {
			return strings.TrimSpace(c.Subject), strings.TrimSpace(c.Body), nil
		}
	}

	if loc := subjectLine.FindStringSubmatchIndex(raw); loc != nil {
		subject := strings.Trim(strings.TrimSpace(raw[loc[2]:loc[3]]), `"*`)
		body := bodyLabel.ReplaceAllString(strings.TrimSpace(raw[loc[1]:]), "")
		if body = strings.TrimSpace(body); body != "" {
			return subject, body, nil
		}
	}

	return "", "", ErrUnparseable
}
