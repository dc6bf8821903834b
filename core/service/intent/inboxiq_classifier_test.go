package intent

import (
	"testing"

	"inboxiq/core/domain"
)

func TestClassifyEmailIntents(t *testing.T) {
	c := NewClassifier(Config{})

	tests := []struct {
		name       string
		message    string
		hint       string
		topic      string
		confidence float64
		actionable bool
	}{
		{
			name:       "explicit address with topic",
			message:    "Send an email to jane@example.com about the Q3 report",
			hint:       "jane@example.com",
			topic:      "the Q3 report",
			confidence: 0.9,
			actionable: true,
		},
		{
			name:       "imperative email verb",
			message:    "Email John about the budget",
			hint:       "John",
			topic:      "the budget",
			confidence: 0.8,
			actionable: true,
		},
		{
			name:       "write to with regarding",
			message:    "Please write to Sarah Connor regarding the offsite budget",
			hint:       "Sarah Connor",
			topic:      "the offsite budget",
			confidence: 0.8,
			actionable: true,
		},
		{
			name:       "infinitive to is skipped",
			message:    "I want to send an email to Priya about the launch",
			hint:       "Priya",
			topic:      "the launch",
			confidence: 0.8,
			actionable: true,
		},
		{
			name:       "hint capped at four tokens",
			message:    "Send an email to the head of our marketing department about budget",
			hint:       "the head of our",
			topic:      "budget",
			confidence: 0.8,
			actionable: true,
		},
		{
			name:       "compose without recipient is not actionable",
			message:    "Send an email about the offsite",
			hint:       "",
			topic:      "the offsite",
			confidence: 0.65,
			actionable: false,
		},
		{
			name:       "address without compose keyword",
			message:    "Is jane@example.com still valid?",
			hint:       "jane@example.com",
			topic:      "Is still valid",
			confidence: 0.6,
			actionable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.message)
			if got.Intent != domain.IntentEmail {
				t.Fatalf("expected email intent, got %s", got.Intent)
			}
			if got.RecipientHint != tt.hint {
				t.Errorf("expected hint %q, got %q", tt.hint, got.RecipientHint)
			}
			if got.Topic != tt.topic {
				t.Errorf("expected topic %q, got %q", tt.topic, got.Topic)
			}
			if got.Confidence != tt.confidence {
				t.Errorf("expected confidence %v, got %v", tt.confidence, got.Confidence)
			}
			if c.Actionable(got) != tt.actionable {
				t.Errorf("expected actionable=%v at confidence %v", tt.actionable, got.Confidence)
			}
		})
	}
}

func TestClassifyChat(t *testing.T) {
	c := NewClassifier(Config{})

	for _, msg := range []string{"hey, how's it going?", "How do I reach email support?", "what is the capital of France"} {
		got := c.Classify(msg)
		if got.Intent != domain.IntentChat {
			t.Errorf("%q: expected chat, got %s", msg, got.Intent)
		}
		if c.Actionable(got) {
			t.Errorf("%q: chat must not be actionable", msg)
		}
	}
}

func TestClassifyEmptyInput(t *testing.T) {
	c := NewClassifier(Config{})

	for _, msg := range []string{"", "   ", "\n\t"} {
		got := c.Classify(msg)
		if got.Intent != domain.IntentChat {
			t.Errorf("expected chat for %q, got %s", msg, got.Intent)
		}
		if got.Confidence != 0 {
			t.Errorf("expected confidence 0 for %q, got %v", msg, got.Confidence)
		}
		if got.RecipientHint != "" || got.Topic != "" || len(got.MatchedRules) != 0 {
			t.Errorf("expected no extraction for %q, got %+v", msg, got)
		}
	}
}

func TestClassifyHintEqualsAddress(t *testing.T) {
	c := NewClassifier(Config{})

	tests := []struct {
		message string
		address string
	}{
		{"mail bob.smith@corp.io the invoice", "bob.smith@corp.io"},
		{"Can you write to Anna.K+news@mail.example.org today?", "Anna.K+news@mail.example.org"},
		{"ping x@y.co", "x@y.co"},
		{"send to jane@example.com.", "jane@example.com"},
		{"Send an email to o'brien@example.com about lunch", "o'brien@example.com"},
		{"Send an email to bill=ops@example.com about lunch", "bill=ops@example.com"},
		{"Send an email to a#b@example.com about lunch", "a#b@example.com"},
	}
	for _, tt := range tests {
		got := c.Classify(tt.message)
		if got.RecipientHint != tt.address {
			t.Errorf("%q: expected hint %q, got %q", tt.message, tt.address, got.RecipientHint)
		}
	}
}

func TestClassifyNounUsageIsNotActionable(t *testing.T) {
	c := NewClassifier(Config{})

	for _, msg := range []string{
		"email support is down again",
		"Email support never answered my ticket",
		"Message history is gone",
		"I forgot to send the report to the printer",
		"Email John",
	} {
		got := c.Classify(msg)
		if c.Actionable(got) {
			t.Errorf("%q: expected not actionable, got %s at %v", msg, got.Intent, got.Confidence)
		}
		if got.Intent == domain.IntentEmail && got.RecipientHint != "" {
			t.Errorf("%q: expected no recipient hint, got %q", msg, got.RecipientHint)
		}
	}
}

func TestClassifyImperativeNameNeedsTopicOrTime(t *testing.T) {
	c := NewClassifier(Config{})

	tests := []struct {
		message string
		hint    string
	}{
		{"Email John about the budget", "John"},
		{"Message Sarah regarding the offsite", "Sarah"},
		{"Email John tomorrow at 3pm", "John"},
		{"Mail Priya on Friday", "Priya"},
		{"Email support is down", ""},
	}
	for _, tt := range tests {
		got := c.Classify(tt.message)
		if got.RecipientHint != tt.hint {
			t.Errorf("%q: expected hint %q, got %q", tt.message, tt.hint, got.RecipientHint)
		}
	}
}

func TestClassifyDetails(t *testing.T) {
	c := NewClassifier(Config{})

	got := c.Classify("Send a note to Mike about the design review tomorrow at 3pm, it's urgent")
	if got.RecipientHint != "Mike" {
		t.Errorf("expected hint Mike, got %q", got.RecipientHint)
	}
	if got.Topic != "the design review" {
		t.Errorf("expected topic without time, got %q", got.Topic)
	}
	if got.Details.ProposedTime != "tomorrow at 3pm" {
		t.Errorf("expected proposed time, got %q", got.Details.ProposedTime)
	}
	if got.Details.Urgency != domain.UrgencyHigh {
		t.Errorf("expected high urgency, got %s", got.Details.Urgency)
	}

	got = c.Classify("Email Tom about lunch")
	if got.Details.Urgency != domain.UrgencyNormal {
		t.Errorf("expected normal urgency, got %s", got.Details.Urgency)
	}
	if got.Details.ProposedTime != "" {
		t.Errorf("expected no proposed time, got %q", got.Details.ProposedTime)
	}
}

func TestCustomThreshold(t *testing.T) {
	strict := NewClassifier(Config{ActionThreshold: 0.95})
	r := strict.Classify("Send an email to jane@example.com about the Q3 report")
	if strict.Actionable(r) {
		t.Errorf("expected not actionable at threshold 0.95, confidence %v", r.Confidence)
	}
	if strict.Threshold() != 0.95 {
		t.Errorf("expected threshold 0.95, got %v", strict.Threshold())
	}
}

func TestCustomRuleOrder(t *testing.T) {
	// A single rule list can be reordered without touching the classifier.
	rules := DefaultRules()
	for i := range rules {
		if rules[i].Name == "urgency" {
			rules[i].Priority = 1
		}
	}
	c := NewClassifierWithRules(Config{}, rules)
	got := c.Classify("urgent: email Dana about the outage")
	if len(got.MatchedRules) == 0 || got.MatchedRules[0] != "urgency" {
		t.Errorf("expected urgency to run first, got %v", got.MatchedRules)
	}
}

func TestRecipientHint(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"John about the plan", "John"},
		{"Mary Ann Smith Jones Junior", "Mary Ann Smith Jones"},
		{"the team tomorrow", "the team"},
		{"Bob, thanks", "Bob"},
		{"for the report", ""},
	}
	for _, tt := range tests {
		if got := RecipientHint(tt.in); got != tt.expected {
			t.Errorf("RecipientHint(%q): expected %q, got %q", tt.in, tt.expected, got)
		}
	}
}
