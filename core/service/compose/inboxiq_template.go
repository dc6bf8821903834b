package compose

import (
	"context"
	"strings"

	"inboxiq/core/domain"
)

// TemplateBackend builds content from fixed phrasing. It never fails.
type TemplateBackend struct{}

func NewTemplateBackend() *TemplateBackend {
	return &TemplateBackend{}
}

func (b *TemplateBackend) Name() string { return "template" }

func (b *TemplateBackend) Generate(_ context.Context, req Request, style Style) (domain.ContentVariant, error) {
	topic := SanitizeSubject(req.Topic)
	when := strings.TrimSpace(req.ProposedTime)

	var sb strings.Builder
	sb.WriteString(greeting(style, req.RecipientName))
	sb.WriteString("\n\n")
	for i, p := range paragraphs(style, topic, when, req.Urgency) {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(p)
	}
	sb.WriteString("\n\n")
	sb.WriteString(closing(style, req.SenderName))

	return domain.ContentVariant{
		Subject:    Subject(req.Topic, req.ProposedTime, req.SenderName),
		Body:       sb.String(),
		Tone:       string(style),
		StyleLabel: string(style),
	}, nil
}

func greeting(style Style, name string) string {
	name = strings.TrimSpace(name)
	if domain.IsValidEmail(name) {
		name = ""
	}
	switch style {
	case StyleProfessional:
		if name == "" {
			return "Hello,"
		}
		return "Dear " + name + ","
	case StyleFriendly:
		if name == "" {
			return "Hi there,"
		}
		return "Hi " + firstName(name) + "!"
	}
	if name == "" {
		return "Hi,"
	}
	return "Hi " + firstName(name) + ","
}

// paragraphs picks one or two body paragraphs from what the request carries.
func paragraphs(style Style, topic, when string, urgency domain.Urgency) []string {
	var out []string
	switch {
	case topic != "" && when != "":
		out = append(out, "I'd like to talk about "+topic+". Would "+when+" work for you?")
	case topic != "":
		out = append(out, "I wanted to reach out about "+topic+".")
	case when != "":
		out = append(out, "Are you available "+when+"? I'd like to find some time to talk.")
	default:
		out = append(out, "I wanted to get in touch with you.")
	}

	if urgency == domain.UrgencyHigh {
		out = append(out, "This is time-sensitive, so a quick reply would be much appreciated.")
		return out
	}
	switch style {
	case StyleProfessional:
		out = append(out, "Please let me know your thoughts when you have a moment.")
	case StyleFriendly:
		out = append(out, "Let me know what you think!")
	}
	return out
}

func closing(style Style, sender string) string {
	var sign string
	switch style {
	case StyleProfessional:
		sign = "Best regards,"
	case StyleFriendly:
		sign = "Cheers,"
	default:
		sign = "Thanks,"
	}
	if sender = strings.TrimSpace(sender); sender != "" && !domain.IsValidEmail(sender) {
		return sign + "\n" + sender
	}
	return sign
}

func firstName(name string) string {
	if f := strings.Fields(name); len(f) > 0 {
		return f[0]
	}
	return name
}
