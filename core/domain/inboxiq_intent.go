package domain

type IntentKind string

const (
	IntentEmail IntentKind = "email"
	IntentChat  IntentKind = "chat"
)

type Urgency string

const (
	UrgencyNormal Urgency = "normal"
	UrgencyHigh   Urgency = "high"
)

type IntentDetails struct {
	ProposedTime string  `json:"proposed_time,omitempty"`
	Urgency      Urgency `json:"urgency,omitempty"`
}

// IntentResult is the outcome of classifying one user utterance.
type IntentResult struct {
	Intent        IntentKind    `json:"intent"`
	RecipientHint string        `json:"recipient_hint,omitempty"`
	Topic         string        `json:"topic,omitempty"`
	Details       IntentDetails `json:"details"`
	Confidence    float64       `json:"confidence"`
	// MatchedRules lists the rule names that fired, in evaluation order.
	MatchedRules []string `json:"matched_rules,omitempty"`
}

// HasExplicitAddress reports whether the recipient hint is a literal address.
func (r *IntentResult) HasExplicitAddress() bool {
	return IsValidEmail(r.RecipientHint)
}

type CalendarIntentKind string

const (
	CalendarFindFreeTime CalendarIntentKind = "find_free_time"
	CalendarListEvents   CalendarIntentKind = "list_events"
	CalendarCreateEvent  CalendarIntentKind = "create_event"
	CalendarGeneralChat  CalendarIntentKind = "general_chat"
)

type CalendarIntent struct {
	Intent          CalendarIntentKind `json:"intent"`
	Confidence      float64            `json:"confidence"`
	Title           string             `json:"title,omitempty"`
	DurationMinutes int                `json:"duration_minutes,omitempty"`
	When            string             `json:"when,omitempty"`
}

// RouteDomain is the product area a message belongs to.
type RouteDomain string

const (
	RouteEmail    RouteDomain = "email"
	RouteCalendar RouteDomain = "calendar"
	RouteUnknown  RouteDomain = "unknown"
)

type RouteResult struct {
	Domain     RouteDomain `json:"domain"`
	Confidence float64     `json:"confidence"`
	Reason     string      `json:"reason,omitempty"`
}
