// Package intent classifies free-text user messages with ordered, rule-based heuristics.
package intent

import (
	"regexp"
	"sort"
	"strings"

	"inboxiq/core/domain"
)

// Tunables. Values are empirical; override through Config rather than editing.
const (
	DefaultActionThreshold = 0.7

	BaseConfidence      = 0.25
	ComposeIncrement    = 0.3
	AddressIncrement    = 0.25
	NameHintIncrement   = 0.15
	TopicIncrement      = 0.1
	MaxHintTokens       = 4
	MaxImplicitTopicLen = 14
)

type Config struct {
	ActionThreshold float64
}

// signals collects what the rules found before confidence is computed.
type signals struct {
	address      string
	compose      bool
	hint         string
	topic        string
	proposedTime string
	urgency      domain.Urgency
}

// Rule is one heuristic. Rules run in ascending Priority; every rule whose
// Pattern matches gets its Extract called.
type Rule struct {
	Name     string
	Priority int
	Pattern  *regexp.Regexp
	Extract  func(text string, match []int, s *signals)
}

// Classifier is stateless after construction and safe for concurrent use.
type Classifier struct {
	rules     []Rule
	threshold float64
}

func NewClassifier(cfg Config) *Classifier {
	return NewClassifierWithRules(cfg, DefaultRules())
}

// NewClassifierWithRules sorts a copy of rules by priority.
func NewClassifierWithRules(cfg Config, rules []Rule) *Classifier {
	if cfg.ActionThreshold <= 0 {
		cfg.ActionThreshold = DefaultActionThreshold
	}
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })
	return &Classifier{rules: sorted, threshold: cfg.ActionThreshold}
}

// Classify never fails. Empty input is chat with zero confidence.
func (c *Classifier) Classify(message string) domain.IntentResult {
	text := strings.TrimSpace(message)
	if text == "" {
		return domain.IntentResult{Intent: domain.IntentChat, Confidence: 0}
	}

	s := &signals{urgency: domain.UrgencyNormal}
	var matched []string
	for _, rule := range c.rules {
		loc := rule.Pattern.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		matched = append(matched, rule.Name)
		if rule.Extract != nil {
			rule.Extract(text, loc, s)
		}
	}

	result := domain.IntentResult{
		Intent:        domain.IntentChat,
		RecipientHint: s.address,
		Details:       domain.IntentDetails{ProposedTime: s.proposedTime, Urgency: s.urgency},
		MatchedRules:  matched,
	}

	if !s.compose && s.address == "" {
		result.Confidence = BaseConfidence
		return result
	}

	result.Intent = domain.IntentEmail
	if result.RecipientHint == "" {
		result.RecipientHint = s.hint
	}
	result.Topic = stripTime(s.topic)
	if result.Topic == "" {
		result.Topic = implicitTopic(text, result.RecipientHint)
	}
	result.Confidence = confidence(s, result.Topic)
	return result
}

// Actionable reports whether an email intent is confident enough to draft.
func (c *Classifier) Actionable(r domain.IntentResult) bool {
	return r.Intent == domain.IntentEmail && r.Confidence >= c.threshold
}

func (c *Classifier) Threshold() float64 {
	return c.threshold
}

func confidence(s *signals, topic string) float64 {
	score := BaseConfidence
	if s.compose {
		score += ComposeIncrement
	}
	switch {
	case s.address != "":
		score += AddressIncrement
	case s.hint != "":
		score += NameHintIncrement
	}
	if nonTrivialTopic(topic) {
		score += TopicIncrement
	}
	if score > 1.0 {
		score = 1.0
	}
	return roundScore(score)
}

func nonTrivialTopic(topic string) bool {
	return len(strings.TrimSpace(topic)) >= 3
}

// roundScore keeps sums like 0.3+0.3+0.1 from printing as 0.7000000000000001.
func roundScore(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
