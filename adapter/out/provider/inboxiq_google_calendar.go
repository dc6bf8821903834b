package provider

import (
	"context"
	"time"

	"inboxiq/core/domain"
	"inboxiq/core/port/out"

	"github.com/sony/gobreaker"
	"google.golang.org/api/calendar/v3"
)

const (
	providerCalendar = "google_calendar"
	primaryCalendar  = "primary"
)

// GoogleCalendar implements out.CalendarProvider on the primary calendar.
type GoogleCalendar struct {
	auth *GoogleAuth
	cb   *gobreaker.CircuitBreaker
}

func NewGoogleCalendar(auth *GoogleAuth) *GoogleCalendar {
	return &GoogleCalendar{
		auth: auth,
		cb:   newBreaker("calendar-api"),
	}
}

func (a *GoogleCalendar) getService(ctx context.Context, cred *domain.OAuthCredential) (*calendar.Service, error) {
	ts, err := a.auth.TokenSource(ctx, providerCalendar, cred)
	if err != nil {
		return nil, err
	}
	svc, err := calendar.NewService(ctx, a.auth.ClientOption(ts))
	if err != nil {
		return nil, wrapError(providerCalendar, err, "failed to create client")
	}
	return svc, nil
}

// ListEvents expands recurring events and orders them by start time.
func (a *GoogleCalendar) ListEvents(ctx context.Context, cred *domain.OAuthCredential, start, end time.Time, max int) ([]*domain.CalendarEvent, error) {
	svc, err := a.getService(ctx, cred)
	if err != nil {
		return nil, err
	}

	call := svc.Events.List(primaryCalendar).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx)
	if max > 0 {
		call = call.MaxResults(int64(max))
	}

	var events *calendar.Events
	cbErr := executeWithCircuitBreaker(a.cb, "ListEvents", func() error {
		var apiErr error
		events, apiErr = call.Do()
		return apiErr
	})
	if cbErr != nil {
		return nil, wrapError(providerCalendar, cbErr, "failed to list events")
	}

	result := make([]*domain.CalendarEvent, 0, len(events.Items))
	for _, item := range events.Items {
		if item.Status == "cancelled" {
			continue
		}
		result = append(result, convertEvent(item))
	}
	return result, nil
}

func (a *GoogleCalendar) CreateEvent(ctx context.Context, cred *domain.OAuthCredential, event *domain.NewEvent) (*domain.CalendarEvent, error) {
	svc, err := a.getService(ctx, cred)
	if err != nil {
		return nil, err
	}

	var created *calendar.Event
	cbErr := executeWithCircuitBreaker(a.cb, "CreateEvent", func() error {
		var apiErr error
		created, apiErr = svc.Events.Insert(primaryCalendar, toGoogleEvent(event)).Context(ctx).Do()
		return apiErr
	})
	if cbErr != nil {
		return nil, wrapError(providerCalendar, cbErr, "failed to create event")
	}
	return convertEvent(created), nil
}

func convertEvent(event *calendar.Event) *domain.CalendarEvent {
	result := &domain.CalendarEvent{
		ID:          event.Id,
		Title:       event.Summary,
		Description: event.Description,
		Location:    event.Location,
		HTMLLink:    event.HtmlLink,
	}

	if event.Start != nil {
		if event.Start.DateTime != "" {
			result.Start, _ = time.Parse(time.RFC3339, event.Start.DateTime)
		} else if event.Start.Date != "" {
			result.Start, _ = time.Parse("2006-01-02", event.Start.Date)
			result.AllDay = true
		}
	}
	if event.End != nil {
		if event.End.DateTime != "" {
			result.End, _ = time.Parse(time.RFC3339, event.End.DateTime)
		} else if event.End.Date != "" {
			result.End, _ = time.Parse("2006-01-02", event.End.Date)
		}
	}

	for _, att := range event.Attendees {
		if att.Email != "" {
			result.Attendees = append(result.Attendees, att.Email)
		}
	}
	return result
}

func toGoogleEvent(event *domain.NewEvent) *calendar.Event {
	ge := &calendar.Event{
		Summary:     event.Title,
		Description: event.Description,
		Location:    event.Location,
		Start:       &calendar.EventDateTime{DateTime: event.Start.Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: event.End.Format(time.RFC3339)},
	}
	for _, email := range event.Attendees {
		ge.Attendees = append(ge.Attendees, &calendar.EventAttendee{Email: email})
	}
	return ge
}

var _ out.CalendarProvider = (*GoogleCalendar)(nil)
