package intent

import (
	"regexp"
	"strconv"
	"strings"

	"inboxiq/core/domain"
)

const (
	freeTimeConfidence     = 0.8
	listEventsConfidence   = 0.8
	createEventConfidence  = 0.7
	calendarChatConfidence = 0.5
)

var (
	freeTimePhrases = []string{
		"when am i free", "when can i", "free time", "available time", "find time",
		"when do i have time", "free this week", "free today", "available this week",
		"available today", "free slot", "open slot",
	}
	listEventsPhrases = []string{
		"show me my", "show my", "list my", "what do i have", "my calendar", "my events",
		"upcoming events", "my schedule", "what's on my calendar", "whats on my calendar",
		"show me upcoming", "list events", "my agenda",
	}
	createEventWords = []string{
		"schedule", "create", "book", "add", "meeting", "appointment", "event", "set up",
	}
	// Any of these means the user is asking about existing events, not creating one.
	createEventBlockers = []string{
		"show", "list", "what do i have", "my calendar", "free", "available",
	}

	durationPattern = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(minutes?|mins?|hours?|hrs?|h)\b`)
	halfHourPattern = regexp.MustCompile(`(?i)\bhalf\s+an?\s+hour\b`)
	oneHourPattern  = regexp.MustCompile(`(?i)\ban\s+hour\b`)

	titleNamedPattern = regexp.MustCompile(`(?i)\b(?:called|titled|named)\s+["']?([^"']+?)["']?(?:\s+(?:on|at|tomorrow|today|next|for|from)\b|[.!?]?$)`)
	titleVerbPattern  = regexp.MustCompile(`(?i)\b(?:schedule|book|create|add|set up)\s+(?:an?\s+|the\s+)?(.+)$`)
	titleStopPattern  = regexp.MustCompile(`(?i)\s+(?:on|at|tomorrow|today|tonight|next|this|for|from|in)\b.*$`)
)

// ClassifyCalendar decides what a calendar-session message asks for.
// Phrase groups are checked most specific first.
func ClassifyCalendar(message string) domain.CalendarIntent {
	text := strings.ToLower(strings.TrimSpace(message))
	if text == "" {
		return domain.CalendarIntent{Intent: domain.CalendarGeneralChat, Confidence: 0}
	}

	switch {
	case containsAny(text, freeTimePhrases):
		return domain.CalendarIntent{
			Intent:          domain.CalendarFindFreeTime,
			Confidence:      freeTimeConfidence,
			DurationMinutes: ParseDuration(message),
		}
	case containsAny(text, listEventsPhrases):
		return domain.CalendarIntent{Intent: domain.CalendarListEvents, Confidence: listEventsConfidence}
	case containsAnyWord(text, createEventWords) && !containsAnyWord(text, createEventBlockers):
		ci := domain.CalendarIntent{
			Intent:          domain.CalendarCreateEvent,
			Confidence:      createEventConfidence,
			Title:           eventTitle(message),
			DurationMinutes: ParseDuration(message),
		}
		if m := timePattern.FindString(message); m != "" {
			ci.When = normalizeTime(m)
		}
		return ci
	}
	return domain.CalendarIntent{Intent: domain.CalendarGeneralChat, Confidence: calendarChatConfidence}
}

// ParseDuration returns minutes mentioned in text, or 0.
func ParseDuration(text string) int {
	if halfHourPattern.MatchString(text) {
		return 30
	}
	if m := durationPattern.FindStringSubmatch(text); m != nil {
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil || n <= 0 {
			return 0
		}
		unit := strings.ToLower(m[2])
		if strings.HasPrefix(unit, "h") {
			return int(n * 60)
		}
		return int(n)
	}
	if oneHourPattern.MatchString(text) {
		return 60
	}
	return 0
}

func eventTitle(message string) string {
	if m := titleNamedPattern.FindStringSubmatch(message); m != nil {
		return cleanPhrase(m[1])
	}
	if m := titleVerbPattern.FindStringSubmatch(message); m != nil {
		title := titleStopPattern.ReplaceAllString(m[1], "")
		title = durationPattern.ReplaceAllString(title, "")
		return cleanPhrase(title)
	}
	return ""
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// containsAnyWord matches whole words so "address" does not hit "add".
func containsAnyWord(text string, words []string) bool {
	padded := " " + strings.Map(func(r rune) rune {
		if r == '?' || r == '!' || r == '.' || r == ',' {
			return ' '
		}
		return r
	}, text) + " "
	for _, w := range words {
		if strings.Contains(padded, " "+w+" ") {
			return true
		}
	}
	return false
}
