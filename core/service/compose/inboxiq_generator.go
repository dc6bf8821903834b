// Package compose produces email subject and body variants for a draft.
package compose

import (
	"context"
	"strings"
	"time"

	"inboxiq/core/domain"
	"inboxiq/core/port/out"
	"inboxiq/pkg/logger"
)

const (
	MaxVariants      = 3
	MaxSubjectTopic  = 60
	defaultCallLimit = 10 * time.Second
)

// Style is the voice a variant is written in.
type Style string

const (
	StyleProfessional Style = "professional"
	StyleFriendly     Style = "friendly"
	StyleConcise      Style = "concise"
)

var styleOrder = []Style{StyleProfessional, StyleFriendly, StyleConcise}

// Request describes the email to write.
type Request struct {
	RecipientName  string
	RecipientEmail string
	Topic          string
	SenderName     string
	Tone           string
	ProposedTime   string
	Urgency        domain.Urgency
	VariantCount   int
}

// Backend turns a request into a single variant in the given style.
type Backend interface {
	Name() string
	Generate(ctx context.Context, req Request, style Style) (domain.ContentVariant, error)
}

type Config struct {
	// UseFallback forces the template backend even when a model is available.
	UseFallback  bool
	VariantCount int
	Timeout      time.Duration
}

// Generator picks its backend once at construction. Remote failures fall
// back to templates, so Generate always returns usable content.
type Generator struct {
	backend  Backend
	template *TemplateBackend
	text     out.TextGenerator
	cfg      Config
}

func NewGenerator(text out.TextGenerator, cfg Config) *Generator {
	if cfg.VariantCount <= 0 {
		cfg.VariantCount = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultCallLimit
	}
	tpl := NewTemplateBackend()
	g := &Generator{backend: tpl, template: tpl, text: text, cfg: cfg}
	if text != nil && !cfg.UseFallback {
		g.backend = NewRemoteModelBackend(text)
	}
	return g
}

// Backend reports which backend was chosen.
func (g *Generator) Backend() string {
	return g.backend.Name()
}

// Generate returns between one and MaxVariants variants, each with a
// non-empty subject and body.
func (g *Generator) Generate(ctx context.Context, req Request) []domain.ContentVariant {
	n := req.VariantCount
	if n <= 0 {
		n = g.cfg.VariantCount
	}
	if n > MaxVariants {
		n = MaxVariants
	}

	styles := stylesFor(req.Tone, n)
	variants := make([]domain.ContentVariant, 0, n)
	for _, style := range styles {
		variants = append(variants, g.one(ctx, req, style))
	}
	return variants
}

func (g *Generator) one(ctx context.Context, req Request, style Style) domain.ContentVariant {
	callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	v, err := g.backend.Generate(callCtx, req, style)
	if err != nil {
		logger.WithContext(ctx).WithFields(map[string]any{
			"backend": g.backend.Name(),
			"style":   string(style),
		}).WithError(err).Warn("generation failed, using template")
		v, _ = g.template.Generate(ctx, req, style)
	}

	v.Body = SanitizeBody(v.Body)
	if strings.TrimSpace(v.Body) == "" {
		tv, _ := g.template.Generate(ctx, req, style)
		v.Body = SanitizeBody(tv.Body)
	}
	v.Subject = SanitizeSubject(v.Subject)
	if v.Subject == "" {
		v.Subject = Subject(req.Topic, req.ProposedTime, req.SenderName)
	}
	if v.Tone == "" {
		v.Tone = string(style)
	}
	if v.StyleLabel == "" {
		v.StyleLabel = string(style)
	}
	return v
}

// stylesFor puts the requested tone first and fills the rest in fixed order.
func stylesFor(tone string, n int) []Style {
	styles := make([]Style, 0, n)
	if s := Style(strings.ToLower(strings.TrimSpace(tone))); s.valid() {
		styles = append(styles, s)
	}
	for _, s := range styleOrder {
		if len(styles) == n {
			break
		}
		if len(styles) > 0 && styles[0] == s {
			continue
		}
		styles = append(styles, s)
	}
	return styles
}

func (s Style) valid() bool {
	return s == StyleProfessional || s == StyleFriendly || s == StyleConcise
}

// Subject applies the subject rules in order: topic with time, time alone,
// topic alone, then a generic note from the sender.
func Subject(topic, proposedTime, sender string) string {
	topic = truncateRunes(SanitizeSubject(topic), MaxSubjectTopic)
	proposedTime = strings.TrimSpace(proposedTime)
	switch {
	case topic != "" && proposedTime != "":
		return capitalize(topic) + " — " + proposedTime
	case proposedTime != "":
		return "Meeting at " + proposedTime
	case topic != "":
		return "Regarding: " + topic
	case strings.TrimSpace(sender) != "":
		return "Quick note from " + strings.TrimSpace(sender)
	}
	return "Quick note"
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = []rune(strings.ToUpper(string(r[0])))[0]
	return string(r)
}
