// Package calendar answers calendar-session messages: free time, upcoming
// events, event creation and general scheduling chat.
package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"inboxiq/core/domain"
	"inboxiq/core/port/out"
	"inboxiq/core/service/intent"
	"inboxiq/pkg/apperr"
	"inboxiq/pkg/logger"
)

const (
	DefaultSlotMinutes   = 60
	DefaultSearchDays    = 7
	DefaultMaxEvents     = 10
	shownSlots           = 5
	defaultEventTitle    = "New Event"
	defaultCallTimeout   = 10 * time.Second
	displayTimeLayout    = "Monday, January 02 at 03:04 PM"
	notConnectedTemplate = "To %s, I need access to your Google Calendar. Please connect your calendar first."
)

const generalSystemPrompt = `You are InboxIQ's calendar assistant. Help the user with scheduling:
creating events and meetings, finding free time, managing conflicts and reminders.
Keep answers short and practical.`

type Config struct {
	Timeout  time.Duration
	Location *time.Location
}

// Reply is the assistant's answer plus whatever structured data backs it.
type Reply struct {
	Intent     domain.CalendarIntent   `json:"intent"`
	Content    string                  `json:"content"`
	Events     []*domain.CalendarEvent `json:"events,omitempty"`
	FreeSlots  []domain.FreeSlot       `json:"free_slots,omitempty"`
	Created    *domain.CalendarEvent   `json:"created,omitempty"`
	NeedsInput bool                    `json:"needs_input,omitempty"`
}

// Metadata is the reply's structured part as stored with the chat message.
func (r *Reply) Metadata() map[string]any {
	md := map[string]any{"intent": string(r.Intent.Intent), "confidence": r.Intent.Confidence}
	if len(r.FreeSlots) > 0 {
		md["free_slots"] = r.FreeSlots
	}
	if len(r.Events) > 0 {
		md["events"] = r.Events
	}
	if r.Created != nil {
		md["type"] = "event_created"
		md["event"] = r.Created
	} else if r.NeedsInput {
		md["type"] = "event_draft"
		md["event_info"] = r.Intent
	}
	return md
}

type Assistant struct {
	provider out.CalendarProvider
	text     out.TextGenerator
	cfg      Config
	now      func() time.Time
}

func NewAssistant(provider out.CalendarProvider, text out.TextGenerator, cfg Config) *Assistant {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultCallTimeout
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Assistant{provider: provider, text: text, cfg: cfg, now: time.Now}
}

// Handle classifies message and runs the matching calendar action. Provider
// trouble is reported in the reply text rather than as an error.
func (a *Assistant) Handle(ctx context.Context, identity *domain.Identity, message string, history []domain.Turn) *Reply {
	ci := intent.ClassifyCalendar(message)
	log := logger.WithContext(ctx).WithField("calendar_intent", string(ci.Intent))

	var reply *Reply
	switch ci.Intent {
	case domain.CalendarFindFreeTime:
		reply = a.findFreeTime(ctx, identity, ci, log)
	case domain.CalendarListEvents:
		reply = a.listEvents(ctx, identity, log)
	case domain.CalendarCreateEvent:
		reply = a.createEvent(ctx, identity, ci, message, log)
	default:
		reply = a.generalChat(ctx, message, history, log)
	}
	reply.Intent = ci
	return reply
}

// FindFreeTime returns gaps of at least minutes over the next days.
func (a *Assistant) FindFreeTime(ctx context.Context, identity *domain.Identity, minutes, days int) ([]domain.FreeSlot, error) {
	if minutes <= 0 {
		minutes = DefaultSlotMinutes
	}
	if days <= 0 {
		days = DefaultSearchDays
	}
	from := a.now().In(a.cfg.Location)
	to := from.AddDate(0, 0, days)

	events, err := a.events(ctx, identity, from, to, 0)
	if err != nil {
		return nil, err
	}
	return FreeSlots(events, from, to, time.Duration(minutes)*time.Minute), nil
}

// Upcoming lists events over the next days, at most limit.
func (a *Assistant) Upcoming(ctx context.Context, identity *domain.Identity, days, limit int) ([]*domain.CalendarEvent, error) {
	if days <= 0 {
		days = DefaultSearchDays
	}
	if limit <= 0 {
		limit = DefaultMaxEvents
	}
	from := a.now().In(a.cfg.Location)
	return a.events(ctx, identity, from, from.AddDate(0, 0, days), limit)
}

func (a *Assistant) events(ctx context.Context, identity *domain.Identity, from, to time.Time, limit int) ([]*domain.CalendarEvent, error) {
	if !a.connected(identity) {
		return nil, apperr.Unauthorized("calendar is not connected")
	}
	callCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()
	return a.provider.ListEvents(callCtx, identity.Credential, from, to, limit)
}

func (a *Assistant) connected(identity *domain.Identity) bool {
	return a.provider != nil && identity.CredentialValid()
}

func (a *Assistant) findFreeTime(ctx context.Context, identity *domain.Identity, ci domain.CalendarIntent, log *logger.Logger) *Reply {
	if !a.connected(identity) {
		return &Reply{Content: fmt.Sprintf(notConnectedTemplate, "find your free time")}
	}
	slots, err := a.FindFreeTime(ctx, identity, ci.DurationMinutes, DefaultSearchDays)
	if err != nil {
		log.WithError(err).Warn("free time lookup failed")
		return &Reply{Content: "I ran into a problem while checking your calendar. Please try again in a moment."}
	}
	if len(slots) == 0 {
		return &Reply{Content: "I couldn't find any free time slots in the next week. Your calendar looks quite busy!"}
	}

	var sb strings.Builder
	sb.WriteString("Here are some available time slots:\n\n")
	for i, s := range slots {
		if i == shownSlots {
			break
		}
		fmt.Fprintf(&sb, "%d. %s\n", i+1, s.Start.In(a.cfg.Location).Format(displayTimeLayout))
	}
	sb.WriteString("\nWould you like to schedule something in one of these slots?")
	return &Reply{Content: sb.String(), FreeSlots: slots}
}

func (a *Assistant) listEvents(ctx context.Context, identity *domain.Identity, log *logger.Logger) *Reply {
	if !a.connected(identity) {
		return &Reply{Content: fmt.Sprintf(notConnectedTemplate, "show your calendar events")}
	}
	events, err := a.Upcoming(ctx, identity, DefaultSearchDays, DefaultMaxEvents)
	if err != nil {
		log.WithError(err).Warn("event listing failed")
		return &Reply{Content: "I ran into a problem while checking your calendar. Please try again in a moment."}
	}
	if len(events) == 0 {
		return &Reply{Content: "You don't have any events scheduled for the next week. Your calendar is free!"}
	}

	var sb strings.Builder
	sb.WriteString("Here are your upcoming events:\n\n")
	for i, ev := range events {
		fmt.Fprintf(&sb, "%d. **%s**\n", i+1, ev.Title)
		if ev.AllDay {
			fmt.Fprintf(&sb, "   %s (all day)\n", ev.Start.Format("Monday, January 02"))
		} else {
			fmt.Fprintf(&sb, "   %s\n", ev.Start.In(a.cfg.Location).Format(displayTimeLayout))
		}
		if ev.Location != "" {
			fmt.Fprintf(&sb, "   Location: %s\n", ev.Location)
		}
		sb.WriteString("\n")
	}
	return &Reply{Content: strings.TrimRight(sb.String(), "\n"), Events: events}
}

func (a *Assistant) createEvent(ctx context.Context, identity *domain.Identity, ci domain.CalendarIntent, message string, log *logger.Logger) *Reply {
	title := ci.Title
	if title == "" {
		title = defaultEventTitle
	}

	start, ok := ResolveWhen(ci.When, a.now(), a.cfg.Location)
	if !ok {
		return &Reply{
			NeedsInput: true,
			Content: fmt.Sprintf("I'll help you create an event: '%s'\n\n"+
				"To complete the event creation, I'll need:\n"+
				"• Date and time\n• Duration (if not specified)\n• Location (optional)\n• Attendees (optional)\n\n"+
				"Please provide these details.", title),
		}
	}
	if !a.connected(identity) {
		return &Reply{Content: fmt.Sprintf(notConnectedTemplate, "create events")}
	}

	minutes := ci.DurationMinutes
	if minutes <= 0 {
		minutes = DefaultSlotMinutes
	}
	ev := &domain.NewEvent{
		Title:     title,
		Start:     start,
		End:       start.Add(time.Duration(minutes) * time.Minute),
		Attendees: domain.FindEmails(message),
	}

	callCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()
	created, err := a.provider.CreateEvent(callCtx, identity.Credential, ev)
	if err != nil {
		log.WithError(err).Warn("event creation failed")
		return &Reply{Content: "I couldn't create that event right now. Please try again in a moment."}
	}

	return &Reply{
		Created: created,
		Content: fmt.Sprintf("Done! I added '%s' on %s for %d minutes.",
			created.Title, created.Start.In(a.cfg.Location).Format(displayTimeLayout), minutes),
	}
}

func (a *Assistant) generalChat(ctx context.Context, message string, history []domain.Turn, log *logger.Logger) *Reply {
	if a.text == nil {
		return &Reply{Content: "I can find free time, show your upcoming events, or create an event. What would you like to do?"}
	}

	callCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()
	resp, err := a.text.Generate(callCtx, generalSystemPrompt, FormatHistory(history, message))
	if err != nil {
		log.WithError(err).Warn("calendar chat generation failed")
		return &Reply{Content: "I'm sorry, I encountered an error processing your message. Please try again."}
	}
	return &Reply{Content: strings.TrimSpace(resp)}
}

// FormatHistory renders prior turns followed by the new user message.
func FormatHistory(history []domain.Turn, message string) string {
	var sb strings.Builder
	if len(history) > 0 {
		sb.WriteString("Conversation so far:\n")
		for _, t := range history {
			fmt.Fprintf(&sb, "%s: %s\n", t.Role, t.Content)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "user: %s", message)
	return sb.String()
}
