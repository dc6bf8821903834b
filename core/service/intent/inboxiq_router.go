package intent

import (
	"fmt"
	"regexp"
	"strings"

	"inboxiq/core/domain"
)

const (
	strongRouteConfidence  = 0.95
	keywordRouteWeight     = 0.8
	keywordRouteCap        = 0.9
	contextRouteConfidence = 0.6
	unknownRouteConfidence = 0.3
)

var (
	strongCalendarPhrases = []string{
		"schedule a meeting", "book an appointment", "create event", "create an event",
		"check my calendar", "find free time", "when am i free", "upcoming events",
		"my schedule", "calendar invite", "meeting request", "block time", "time slot",
	}
	strongEmailPhrases = []string{
		"send an email", "send email", "compose email", "compose an email", "draft email",
		"draft an email", "email draft", "write email", "write an email", "send message",
		"send a message", "reply to email", "forward email", "check inbox", "email someone",
		"send to",
	}
	calendarKeywords = []string{
		"schedule", "meeting", "appointment", "event", "book", "reserve", "calendar",
		"tomorrow", "today", "monday", "tuesday", "wednesday", "thursday", "friday",
		"saturday", "sunday", "morning", "afternoon", "evening", "free", "available",
		"busy", "reschedule", "postpone", "agenda", "standup", "sync", "remind",
		"reminder", "weekly", "daily", "recurring", "room", "venue", "zoom",
	}
	emailKeywords = []string{
		"email", "e-mail", "mail", "send", "compose", "draft", "reply", "forward",
		"message", "letter", "inbox", "archive", "spam", "write", "cc", "bcc",
		"subject", "attachment", "attach", "recipient", "newsletter", "invoice",
		"follow-up", "note",
	}
	timeContext  = regexp.MustCompile(`(?i)\b(?:at|on|during|before|after|am|pm|morning|afternoon|evening|tomorrow|today|next|monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b|\d:\d`)
	emailContext = regexp.MustCompile(`(?i)@|\b(?:to|from|dear|regards|sincerely|best)\b`)
	wordSplit    = regexp.MustCompile(`[a-z0-9@'\-]+`)
)

// Route picks the product area for a message before the area-specific classifier runs.
func Route(message string) domain.RouteResult {
	text := strings.ToLower(strings.TrimSpace(message))
	if text == "" {
		return domain.RouteResult{Domain: domain.RouteUnknown, Confidence: 0, Reason: "empty message"}
	}
	if domain.FindEmail(message) != "" {
		return domain.RouteResult{Domain: domain.RouteEmail, Confidence: strongRouteConfidence, Reason: "explicit address"}
	}

	strongCal := containsAny(text, strongCalendarPhrases)
	strongMail := containsAny(text, strongEmailPhrases)
	switch {
	case strongCal && !strongMail:
		return domain.RouteResult{Domain: domain.RouteCalendar, Confidence: strongRouteConfidence, Reason: "strong calendar phrase"}
	case strongMail && !strongCal:
		return domain.RouteResult{Domain: domain.RouteEmail, Confidence: strongRouteConfidence, Reason: "strong email phrase"}
	}

	words := make(map[string]bool)
	for _, w := range wordSplit.FindAllString(text, -1) {
		words[w] = true
	}
	cal := countWords(words, calendarKeywords)
	mail := countWords(words, emailKeywords)
	total := cal + mail
	if total == 0 {
		return domain.RouteResult{Domain: domain.RouteUnknown, Confidence: 0, Reason: "no keywords"}
	}

	reason := fmt.Sprintf("calendar keywords: %d, email keywords: %d", cal, mail)
	switch {
	case cal > mail:
		return domain.RouteResult{Domain: domain.RouteCalendar, Confidence: keywordScore(cal, total), Reason: reason}
	case mail > cal:
		return domain.RouteResult{Domain: domain.RouteEmail, Confidence: keywordScore(mail, total), Reason: reason}
	case timeContext.MatchString(text):
		return domain.RouteResult{Domain: domain.RouteCalendar, Confidence: contextRouteConfidence, Reason: "tie, time context"}
	case emailContext.MatchString(text):
		return domain.RouteResult{Domain: domain.RouteEmail, Confidence: contextRouteConfidence, Reason: "tie, email context"}
	}
	return domain.RouteResult{Domain: domain.RouteUnknown, Confidence: unknownRouteConfidence, Reason: "tie, no context"}
}

func keywordScore(n, total int) float64 {
	score := float64(n) / float64(total) * keywordRouteWeight
	if score > keywordRouteCap {
		score = keywordRouteCap
	}
	return roundScore(score)
}

func countWords(words map[string]bool, keywords []string) int {
	n := 0
	for _, k := range keywords {
		if words[k] {
			n++
		}
	}
	return n
}
