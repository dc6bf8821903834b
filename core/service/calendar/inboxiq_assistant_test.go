package calendar

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"inboxiq/core/domain"
	"inboxiq/pkg/apperr"

	"github.com/google/uuid"
)

var monday = time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return time.Date(2026, 10, 19, h, m, 0, 0, time.UTC)
}

func event(title string, start, end time.Time) *domain.CalendarEvent {
	return &domain.CalendarEvent{ID: title, Title: title, Start: start, End: end}
}

type fakeProvider struct {
	events  []*domain.CalendarEvent
	err     error
	created *domain.NewEvent
	limit   int
}

func (f *fakeProvider) ListEvents(_ context.Context, _ *domain.OAuthCredential, _, _ time.Time, max int) ([]*domain.CalendarEvent, error) {
	f.limit = max
	return f.events, f.err
}

func (f *fakeProvider) CreateEvent(_ context.Context, _ *domain.OAuthCredential, ev *domain.NewEvent) (*domain.CalendarEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = ev
	return &domain.CalendarEvent{ID: "evt-1", Title: ev.Title, Start: ev.Start, End: ev.End, Attendees: ev.Attendees}, nil
}

type fakeText struct {
	reply  string
	prompt string
}

func (f *fakeText) Generate(_ context.Context, _, prompt string) (string, error) {
	f.prompt = prompt
	return f.reply, nil
}

func identity(connected bool) *domain.Identity {
	id := &domain.Identity{UserID: uuid.New(), DisplayName: "Alex"}
	if connected {
		id.Credential = &domain.OAuthCredential{IsConnected: true, RefreshToken: "r"}
	}
	return id
}

func newAssistant(p *fakeProvider, text *fakeText) *Assistant {
	var a *Assistant
	if text == nil {
		a = NewAssistant(p, nil, Config{})
	} else {
		a = NewAssistant(p, text, Config{})
	}
	a.now = func() time.Time { return monday }
	return a
}

func TestFreeSlots(t *testing.T) {
	events := []*domain.CalendarEvent{
		event("lunch", at(13, 0), at(14, 0)),
		event("standup", at(10, 0), at(11, 0)),
		event("review", at(10, 30), at(12, 0)),
		event("yesterday", at(7, 0), at(8, 0)),
	}

	tests := []struct {
		name     string
		duration time.Duration
		expected [][2]time.Time
	}{
		{"one hour", time.Hour, [][2]time.Time{{at(9, 0), at(10, 0)}, {at(12, 0), at(13, 0)}, {at(14, 0), at(17, 0)}}},
		{"ninety minutes", 90 * time.Minute, [][2]time.Time{{at(14, 0), at(17, 0)}}},
		{"whole day", 9 * time.Hour, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FreeSlots(events, at(9, 0), at(17, 0), tt.duration)
			if len(got) != len(tt.expected) {
				t.Fatalf("expected %d slots, got %d: %+v", len(tt.expected), len(got), got)
			}
			for i, s := range got {
				if !s.Start.Equal(tt.expected[i][0]) || !s.End.Equal(tt.expected[i][1]) {
					t.Errorf("slot %d: expected %v-%v, got %v-%v", i, tt.expected[i][0], tt.expected[i][1], s.Start, s.End)
				}
			}
		})
	}
}

func TestFreeSlotsEmptyCalendar(t *testing.T) {
	got := FreeSlots(nil, at(9, 0), at(10, 0), time.Hour)
	if len(got) != 1 || got[0].DurationMinutes != 60 {
		t.Errorf("expected the whole window, got %+v", got)
	}
}

func TestResolveWhen(t *testing.T) {
	tests := []struct {
		when     string
		expected time.Time
		ok       bool
	}{
		{"tomorrow at 3pm", time.Date(2026, 10, 20, 15, 0, 0, 0, time.UTC), true},
		{"Friday", time.Date(2026, 10, 23, 9, 0, 0, 0, time.UTC), true},
		{"monday at 10:30am", time.Date(2026, 10, 26, 10, 30, 0, 0, time.UTC), true},
		{"tonight", time.Date(2026, 10, 19, 19, 0, 0, 0, time.UTC), true},
		{"4pm", time.Date(2026, 10, 19, 16, 0, 0, 0, time.UTC), true},
		{"2026-11-02 14:00", time.Date(2026, 11, 2, 14, 0, 0, 0, time.UTC), true},
		{"whenever works", time.Time{}, false},
		{"", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.when, func(t *testing.T) {
			got, ok := ResolveWhen(tt.when, monday, time.UTC)
			if ok != tt.ok {
				t.Fatalf("expected ok=%v, got %v", tt.ok, ok)
			}
			if ok && !got.Equal(tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestHandleFindFreeTime(t *testing.T) {
	p := &fakeProvider{events: []*domain.CalendarEvent{event("busy", monday, monday.Add(2*time.Hour))}}
	a := newAssistant(p, nil)

	reply := a.Handle(context.Background(), identity(true), "When am I free this week?", nil)
	if reply.Intent.Intent != domain.CalendarFindFreeTime {
		t.Fatalf("expected find_free_time, got %s", reply.Intent.Intent)
	}
	if len(reply.FreeSlots) != 1 || !reply.FreeSlots[0].Start.Equal(monday.Add(2*time.Hour)) {
		t.Errorf("expected one slot after the busy block, got %+v", reply.FreeSlots)
	}
	if !strings.Contains(reply.Content, "available time slots") {
		t.Errorf("unexpected content %q", reply.Content)
	}
}

func TestHandleNotConnected(t *testing.T) {
	a := newAssistant(&fakeProvider{}, nil)

	for _, msg := range []string{"When am I free?", "Show my events"} {
		reply := a.Handle(context.Background(), identity(false), msg, nil)
		if !strings.Contains(reply.Content, "connect your calendar") {
			t.Errorf("%q: expected connect prompt, got %q", msg, reply.Content)
		}
	}

	if _, err := a.Upcoming(context.Background(), identity(false), 0, 0); !apperr.IsAuthorization(err) {
		t.Errorf("expected authorization error, got %v", err)
	}
}

func TestHandleListEvents(t *testing.T) {
	p := &fakeProvider{events: []*domain.CalendarEvent{
		{Title: "Design review", Start: at(15, 0), End: at(16, 0), Location: "Room 4"},
	}}
	a := newAssistant(p, nil)

	reply := a.Handle(context.Background(), identity(true), "Show me my events for tomorrow", nil)
	if len(reply.Events) != 1 || p.limit != DefaultMaxEvents {
		t.Fatalf("expected one event with default limit, got %d events, limit %d", len(reply.Events), p.limit)
	}
	if !strings.Contains(reply.Content, "**Design review**") || !strings.Contains(reply.Content, "Room 4") {
		t.Errorf("unexpected content %q", reply.Content)
	}

	p.err = errors.New("boom")
	reply = a.Handle(context.Background(), identity(true), "Show me my events", nil)
	if !strings.Contains(reply.Content, "problem") {
		t.Errorf("expected error reply, got %q", reply.Content)
	}
}

func TestHandleCreateEvent(t *testing.T) {
	p := &fakeProvider{}
	a := newAssistant(p, nil)

	reply := a.Handle(context.Background(), identity(true), "Schedule a meeting with john@example.com tomorrow at 3pm for 30 minutes", nil)
	if reply.Created == nil {
		t.Fatalf("expected event created, got %q", reply.Content)
	}
	if !p.created.Start.Equal(time.Date(2026, 10, 20, 15, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected start %v", p.created.Start)
	}
	if p.created.End.Sub(p.created.Start) != 30*time.Minute {
		t.Errorf("expected 30 minute event, got %v", p.created.End.Sub(p.created.Start))
	}
	if len(p.created.Attendees) != 1 || p.created.Attendees[0] != "john@example.com" {
		t.Errorf("expected attendee from message, got %v", p.created.Attendees)
	}
	if reply.Metadata()["type"] != "event_created" {
		t.Errorf("expected event_created metadata, got %v", reply.Metadata())
	}
}

func TestHandleCreateEventNeedsTime(t *testing.T) {
	p := &fakeProvider{}
	a := newAssistant(p, nil)

	reply := a.Handle(context.Background(), identity(true), "Add lunch called Team Offsite", nil)
	if !reply.NeedsInput || reply.Created != nil {
		t.Fatalf("expected a request for details, got %+v", reply)
	}
	if !strings.Contains(reply.Content, "Team Offsite") {
		t.Errorf("expected title echoed, got %q", reply.Content)
	}
	if p.created != nil {
		t.Error("expected no provider call")
	}
}

func TestHandleGeneralChat(t *testing.T) {
	text := &fakeText{reply: "  Try blocking focus time in the mornings.  "}
	a := newAssistant(&fakeProvider{}, text)

	history := []domain.Turn{{Role: domain.RoleUser, Content: "hi"}, {Role: domain.RoleAssistant, Content: "hello"}}
	reply := a.Handle(context.Background(), identity(true), "Any tips for a busy week?", history)
	if reply.Content != "Try blocking focus time in the mornings." {
		t.Errorf("unexpected content %q", reply.Content)
	}
	if !strings.Contains(text.prompt, "assistant: hello") || !strings.HasSuffix(text.prompt, "user: Any tips for a busy week?") {
		t.Errorf("expected history in prompt, got %q", text.prompt)
	}

	canned := newAssistant(&fakeProvider{}, nil).Handle(context.Background(), identity(true), "Tell me a joke", nil)
	if canned.Content == "" || canned.Intent.Intent != domain.CalendarGeneralChat {
		t.Errorf("expected canned general reply, got %+v", canned)
	}
}
