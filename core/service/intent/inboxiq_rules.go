package intent

import (
	"regexp"
	"strings"

	"inboxiq/core/domain"
)

var (
	composePattern = regexp.MustCompile(`(?i)` +
		`\bsend\b[^.?!]*\b(?:e-?mail|mail|message|note)\b` +
		`|^\s*(?:please\s+|can you\s+|could you\s+)?send\b[^.?!]*\bto\b` +
		`|\b(?:compose|draft)\b` +
		`|\bwrite\b[^.?!]*\b(?:to|e-?mail|note|message)\b` +
		`|\b(?:shoot|drop)\b[^.?!]*\b(?:e-?mail|mail|note|line|message)\b` +
		`|^\s*(?:please\s+|can you\s+|could you\s+)?(?:e-?mail|mail|message)\s+[A-Za-z]`)

	imperativePattern = regexp.MustCompile(`(?i)^\s*(?:please\s+|can you\s+|could you\s+)?(?:e-?mail|mail|message)\s+(.+)$`)

	toPattern = regexp.MustCompile(`(?i)\bto\s+`)

	// What must follow a bare imperative name: "Email John about ...".
	hintLeadPattern = regexp.MustCompile(`(?i)^(?:about|regarding|re|for)\b`)

	topicPattern = regexp.MustCompile(`(?i)(?:^|\s)(?:about|regarding|re|for)(?:\s*:\s*|\s+)(.+)$`)

	timePattern = regexp.MustCompile(`(?i)\b(?:` +
		`(?:today|tomorrow|tonight)(?:\s+(?:at|@)\s*\d{1,2}(?::\d{2})?\s*(?:am|pm)?)?` +
		`|(?:on\s+)?(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday)(?:\s+(?:at|@)\s*\d{1,2}(?::\d{2})?\s*(?:am|pm)?)?` +
		`|next\s+(?:week|month|monday|tuesday|wednesday|thursday|friday|saturday|sunday)` +
		`|(?:at|@)\s*\d{1,2}(?::\d{2})?\s*(?:am|pm)` +
		`|\d{1,2}:\d{2}\s*(?:am|pm)?` +
		`|\d{1,2}\s*(?:am|pm)` +
		`)\b`)

	clauseEnd = regexp.MustCompile(`[.!?;,](?:\s|$)`)

	urgencyPattern = regexp.MustCompile(`(?i)\b(?:urgent|urgently|asap|immediately|right away|as soon as possible)\b`)

	hintStopWords = map[string]bool{
		"for": true, "about": true, "regarding": true, "at": true,
		"on": true, "tomorrow": true, "today": true,
	}

	// Words that follow "to" as an infinitive rather than a recipient.
	infinitiveWords = map[string]bool{
		"send": true, "write": true, "email": true, "e-mail": true, "mail": true,
		"compose": true, "draft": true, "shoot": true, "drop": true, "tell": true,
		"ask": true, "let": true, "say": true, "be": true, "have": true, "know": true,
		"do": true, "get": true, "make": true, "reach": true, "contact": true,
		"remind": true, "inform": true, "message": true, "reply": true,
	}

	commandWords = map[string]bool{
		"send": true, "an": true, "a": true, "email": true, "e-mail": true, "mail": true,
		"message": true, "note": true, "compose": true, "draft": true, "write": true,
		"please": true, "shoot": true, "drop": true, "quick": true, "to": true,
		"can": true, "could": true, "you": true, "would": true, "i": true, "want": true,
		"need": true, "line": true, "me": true, "saying": true, "telling": true,
		"that": true, "and": true,
	}
)

// DefaultRules is the standard ordered rule list. Lower priority runs first.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "explicit_address", Priority: 10, Pattern: domain.EmailPattern, Extract: extractAddress},
		{Name: "compose_phrase", Priority: 20, Pattern: composePattern, Extract: func(_ string, _ []int, s *signals) {
			s.compose = true
		}},
		{Name: "recipient_to", Priority: 30, Pattern: toPattern, Extract: extractToHint},
		{Name: "recipient_imperative", Priority: 31, Pattern: imperativePattern, Extract: extractImperativeHint},
		{Name: "topic_keyword", Priority: 40, Pattern: topicPattern, Extract: extractTopic},
		{Name: "proposed_time", Priority: 50, Pattern: timePattern, Extract: extractTime},
		{Name: "urgency", Priority: 60, Pattern: urgencyPattern, Extract: func(_ string, _ []int, s *signals) {
			s.urgency = domain.UrgencyHigh
		}},
	}
}

func extractAddress(text string, _ []int, s *signals) {
	s.address = domain.FindEmail(text)
}

// extractToHint uses the first "to <X>" whose X is not an infinitive verb.
func extractToHint(text string, _ []int, s *signals) {
	if s.hint != "" {
		return
	}
	for _, loc := range toPattern.FindAllStringIndex(text, -1) {
		hint := RecipientHint(text[loc[1]:])
		if hint == "" {
			continue
		}
		first := strings.ToLower(strings.Fields(hint)[0])
		if infinitiveWords[first] {
			continue
		}
		s.hint = hint
		return
	}
}

// extractImperativeHint only accepts a name that is followed by a topic or
// a time; "email support is down" names nobody.
func extractImperativeHint(text string, m []int, s *signals) {
	if s.hint != "" || len(m) < 4 || m[2] < 0 {
		return
	}
	hint, rest := splitHint(text[m[2]:m[3]])
	if hint == "" || rest == "" {
		return
	}
	if hintLeadPattern.MatchString(rest) {
		s.hint = hint
		return
	}
	if loc := timePattern.FindStringIndex(rest); loc != nil && loc[0] == 0 {
		s.hint = hint
	}
}

func extractTopic(text string, m []int, s *signals) {
	if len(m) < 4 || m[2] < 0 {
		return
	}
	topic := text[m[2]:m[3]]
	if loc := clauseEnd.FindStringIndex(topic); loc != nil {
		topic = topic[:loc[0]]
	}
	s.topic = cleanPhrase(topic)
}

func extractTime(text string, m []int, s *signals) {
	s.proposedTime = normalizeTime(text[m[0]:m[1]])
}

// RecipientHint trims the text after "to" at the first stop-word and keeps
// at most MaxHintTokens tokens. Multi-word names that contain a stop-word
// are under-captured; long descriptions are cut.
func RecipientHint(after string) string {
	hint, _ := splitHint(after)
	return hint
}

// splitHint returns the hint and the text that follows it.
func splitHint(after string) (string, string) {
	fields := strings.Fields(after)
	var tokens []string
	i := 0
	for ; i < len(fields); i++ {
		tok := fields[i]
		bare := strings.ToLower(strings.Trim(tok, ".,;:!?\"'()"))
		if hintStopWords[bare] {
			break
		}
		tokens = append(tokens, tok)
		if strings.ContainsAny(tok, ".,;:!?") && !strings.Contains(tok, "@") {
			i++
			break
		}
		if len(tokens) == MaxHintTokens {
			i++
			break
		}
	}
	return cleanPhrase(strings.Join(tokens, " ")), strings.Join(fields[i:], " ")
}

func normalizeTime(raw string) string {
	t := strings.TrimSpace(raw)
	lower := strings.ToLower(t)
	for _, prefix := range []string{"at ", "on ", "@"} {
		if strings.HasPrefix(lower, prefix) {
			t = strings.TrimSpace(t[len(prefix):])
			break
		}
	}
	return t
}

// implicitTopic strips command words, the recipient and the time from text
// and returns the remainder when it is short enough to be a topic.
func implicitTopic(text, hint string) string {
	rest := text
	if hint != "" {
		rest = strings.Replace(rest, hint, " ", 1)
	}
	rest = urgencyPattern.ReplaceAllString(timePattern.ReplaceAllString(rest, " "), " ")
	var kept []string
	for _, tok := range strings.Fields(rest) {
		bare := strings.ToLower(strings.Trim(tok, ".,;:!?\"'()"))
		if bare == "" || commandWords[bare] || domain.IsValidEmail(bare) {
			continue
		}
		kept = append(kept, tok)
	}
	if len(kept) == 0 || len(kept) > MaxImplicitTopicLen {
		return ""
	}
	return cleanPhrase(strings.Join(kept, " "))
}

// stripTime removes time phrases from a topic so subjects do not repeat them.
func stripTime(topic string) string {
	if topic == "" {
		return ""
	}
	out := strings.Join(strings.Fields(timePattern.ReplaceAllString(topic, " ")), " ")
	for {
		lower := strings.ToLower(out)
		trimmed := false
		for _, suffix := range []string{" at", " on", " by", " for"} {
			if strings.HasSuffix(lower, suffix) {
				out = out[:len(out)-len(suffix)]
				trimmed = true
				break
			}
		}
		if !trimmed {
			break
		}
	}
	return cleanPhrase(out)
}

// cleanPhrase trims whitespace and trailing punctuation.
func cleanPhrase(s string) string {
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), ".,;:!?\"'"))
}
