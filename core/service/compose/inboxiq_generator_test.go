package compose

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"inboxiq/core/domain"
)

type fakeText struct {
	reply string
	err   error
	calls int
}

func (f *fakeText) Generate(_ context.Context, _, _ string) (string, error) {
	f.calls++
	return f.reply, f.err
}

func assertClean(t *testing.T, v domain.ContentVariant) {
	t.Helper()
	if strings.TrimSpace(v.Subject) == "" {
		t.Error("expected non-empty subject")
	}
	if strings.TrimSpace(v.Body) == "" {
		t.Error("expected non-empty body")
	}
	lower := strings.ToLower(v.Body)
	for _, banned := range []string{"send mail to", "send email to"} {
		if strings.Contains(lower, banned) {
			t.Errorf("body contains %q: %q", banned, v.Body)
		}
	}
	if domain.EmailPattern.MatchString(v.Body) {
		t.Errorf("body contains an address: %q", v.Body)
	}
}

func TestGeneratorBackendSelection(t *testing.T) {
	tests := []struct {
		name     string
		text     *fakeText
		cfg      Config
		expected string
	}{
		{"no model", nil, Config{}, "template"},
		{"fallback forced", &fakeText{}, Config{UseFallback: true}, "template"},
		{"model configured", &fakeText{}, Config{}, "remote"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var g *Generator
			if tt.text == nil {
				g = NewGenerator(nil, tt.cfg)
			} else {
				g = NewGenerator(tt.text, tt.cfg)
			}
			if g.Backend() != tt.expected {
				t.Errorf("expected %s backend, got %s", tt.expected, g.Backend())
			}
		})
	}
}

func TestGeneratorUsesModelOutput(t *testing.T) {
	text := &fakeText{reply: `{"subject":"Q3 report","body":"Hi Jane,\n\nThe Q3 report is attached.\n\nBest,\nAlex"}`}
	g := NewGenerator(text, Config{})

	vs := g.Generate(context.Background(), Request{RecipientName: "Jane", Topic: "the Q3 report", SenderName: "Alex"})
	if len(vs) != 1 {
		t.Fatalf("expected 1 variant, got %d", len(vs))
	}
	if vs[0].Subject != "Q3 report" {
		t.Errorf("expected model subject, got %q", vs[0].Subject)
	}
	if !strings.Contains(vs[0].Body, "attached") {
		t.Errorf("expected model body, got %q", vs[0].Body)
	}
	if text.calls != 1 {
		t.Errorf("expected 1 model call, got %d", text.calls)
	}
}

func TestGeneratorNeverFails(t *testing.T) {
	texts := map[string]*fakeText{
		"model error":        {err: errors.New("timeout")},
		"unparseable output": {reply: "I cannot help with that"},
		"empty body":         {reply: `{"subject":"x","body":""}`},
		"body all command":   {reply: `{"subject":"","body":"send email to jane@example.com"}`},
	}
	requests := []Request{
		{},
		{RecipientName: "Jane Doe", Topic: "the Q3 report"},
		{RecipientName: "jane@example.com", ProposedTime: "tomorrow at 3pm", SenderName: "Alex"},
		{Topic: "send email to bob@x.com about lunch", Urgency: domain.UrgencyHigh, VariantCount: 3},
	}

	for name, text := range texts {
		t.Run(name, func(t *testing.T) {
			g := NewGenerator(text, Config{})
			for _, req := range requests {
				vs := g.Generate(context.Background(), req)
				if len(vs) == 0 {
					t.Fatalf("expected at least one variant for %+v", req)
				}
				for _, v := range vs {
					assertClean(t, v)
				}
			}
		})
	}
}

func TestGeneratorSanitizesModelBody(t *testing.T) {
	text := &fakeText{reply: `{"subject":"Report","body":"Hi Jane,\n\nSend email to jane@example.com about the report.\nReach me at bob@x.com anytime.\n\nBest"}`}
	g := NewGenerator(text, Config{})

	vs := g.Generate(context.Background(), Request{RecipientName: "Jane"})
	assertClean(t, vs[0])
	if !strings.HasPrefix(vs[0].Body, "Hi Jane,") {
		t.Errorf("expected greeting kept, got %q", vs[0].Body)
	}
}

func TestGeneratorSanitizesUntilStable(t *testing.T) {
	bodies := []string{
		"Please send send email to Bob. email to Carol. Thanks",
		"Reach me at jane@send email to x.example.com please.\n\nBest",
	}
	for _, body := range bodies {
		text := &fakeText{reply: `{"subject":"Lunch","body":` + strconv.Quote(body) + `}`}
		vs := NewGenerator(text, Config{}).Generate(context.Background(), Request{RecipientName: "Jane"})
		if len(vs) == 0 {
			t.Fatalf("expected a variant for %q", body)
		}
		assertClean(t, vs[0])
		if SanitizeBody(vs[0].Body) != vs[0].Body {
			t.Errorf("expected sanitized body to be stable, got %q", vs[0].Body)
		}
	}
}

func TestGeneratorVariants(t *testing.T) {
	g := NewGenerator(nil, Config{})

	vs := g.Generate(context.Background(), Request{Topic: "lunch", Tone: "friendly", VariantCount: 5})
	if len(vs) != MaxVariants {
		t.Fatalf("expected %d variants, got %d", MaxVariants, len(vs))
	}
	expected := []string{"friendly", "professional", "concise"}
	for i, v := range vs {
		if v.StyleLabel != expected[i] {
			t.Errorf("variant %d: expected %s, got %s", i, expected[i], v.StyleLabel)
		}
	}
}

func TestTemplateParagraphs(t *testing.T) {
	b := NewTemplateBackend()
	tests := []struct {
		name     string
		req      Request
		contains string
	}{
		{"topic and time", Request{Topic: "the budget", ProposedTime: "Monday"}, "Would Monday work for you?"},
		{"topic only", Request{Topic: "the budget"}, "reach out about the budget"},
		{"time only", Request{ProposedTime: "tomorrow"}, "Are you available tomorrow?"},
		{"nothing", Request{}, "get in touch"},
		{"urgent", Request{Topic: "outage", Urgency: domain.UrgencyHigh}, "time-sensitive"},
		{"signed", Request{SenderName: "Alex Kim"}, "Best regards,\nAlex Kim"},
		{"greeting", Request{RecipientName: "Jane Doe"}, "Dear Jane Doe,"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := b.Generate(context.Background(), tt.req, StyleProfessional)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(v.Body, tt.contains) {
				t.Errorf("expected body to contain %q, got %q", tt.contains, v.Body)
			}
		})
	}
}

func TestSubject(t *testing.T) {
	long := strings.Repeat("a", 80)
	tests := []struct {
		name     string
		topic    string
		when     string
		sender   string
		expected string
	}{
		{"topic and time", "the Q3 report", "tomorrow at 3pm", "Alex", "The Q3 report — tomorrow at 3pm"},
		{"time only", "", "tomorrow", "Alex", "Meeting at tomorrow"},
		{"topic only", "the Q3 report", "", "Alex", "Regarding: the Q3 report"},
		{"long topic", long, "", "", "Regarding: " + strings.Repeat("a", MaxSubjectTopic)},
		{"sender only", "", "", "Alex", "Quick note from Alex"},
		{"nothing", "", "", "", "Quick note"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Subject(tt.topic, tt.when, tt.sender); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestParseContent(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		subject string
		body    string
		wantErr bool
	}{
		{"strict json", `{"subject":"Hi","body":"Hello"}`, "Hi", "Hello", false},
		{"fenced json", "```json\n{\"subject\":\"Hi\",\"body\":\"Hello\"}\n```", "Hi", "Hello", false},
		{"fragment in prose", `Sure! {"subject":"Hi","body":"Hello"} Hope that helps.`, "Hi", "Hello", false},
		{"subject line", "Subject: Lunch plans\n\nBody: Are you free Friday?", "Lunch plans", "Are you free Friday?", false},
		{"garbage", "no idea", "", "", true},
		{"empty body json", `{"subject":"Hi","body":""}`, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, body, err := ParseContent(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %q / %q", subject, body)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if subject != tt.subject || body != tt.body {
				t.Errorf("expected %q / %q, got %q / %q", tt.subject, tt.body, subject, body)
			}
		})
	}
}

func TestSanitizeBody(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{"plain", "Hello there.", "Hello there."},
		{"command phrase", "Please send an email to Jane about lunch. See you soon.", "See you soon."},
		{"bare address", "Write back to me at bob@x.com, thanks.", "Write back to me at, thanks."},
		{"only command", "send mail to bob@x.com", ""},
		{"blank lines", "Hi,\n\n\n\nThanks", "Hi,\n\nThanks"},
		{"stacked command phrases", "Please send send email to Bob. email to Carol. Thanks", "Thanks"},
		{"command exposed by removal", "Hi, send email send email to Bob. to Carol. Thanks", "Hi, Thanks"},
		{"address exposed by removal", "Reach me at jane@send email to x.example.com please", "Reach me at please"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeBody(tt.in); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestImprove(t *testing.T) {
	t.Run("no model", func(t *testing.T) {
		g := NewGenerator(nil, Config{})
		res := g.Improve(context.Background(), "Subj", "Body text", "shorter")
		if res.Improved || res.Subject != "Subj" || res.Body != "Body text" {
			t.Errorf("expected unchanged content, got %+v", res)
		}
		if len(res.ChangesMade) != 1 || res.ChangesMade[0] != noChangesNote {
			t.Errorf("expected no-changes note, got %v", res.ChangesMade)
		}
	})

	t.Run("model error", func(t *testing.T) {
		g := NewGenerator(&fakeText{err: errors.New("down")}, Config{})
		res := g.Improve(context.Background(), "Subj", "Body text", "")
		if res.Improved || res.Body != "Body text" {
			t.Errorf("expected unchanged content, got %+v", res)
		}
	})

	t.Run("model success", func(t *testing.T) {
		text := &fakeText{reply: `{"subject":"Better","body":"Shorter body, ping jo@x.com","changes_made":["shortened"]}`}
		g := NewGenerator(text, Config{})
		res := g.Improve(context.Background(), "Subj", "Body text", "shorter")
		if !res.Improved || res.Subject != "Better" {
			t.Errorf("expected improved content, got %+v", res)
		}
		if strings.Contains(res.Body, "@") {
			t.Errorf("expected sanitized body, got %q", res.Body)
		}
		if len(res.ChangesMade) != 1 || res.ChangesMade[0] != "shortened" {
			t.Errorf("expected changes from model, got %v", res.ChangesMade)
		}
	})
}
