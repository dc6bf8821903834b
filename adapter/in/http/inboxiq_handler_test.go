package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"inboxiq/core/domain"
	"inboxiq/core/port/in"
	"inboxiq/core/service/compose"
	"inboxiq/core/service/draft"
	"inboxiq/infra/middleware"
	"inboxiq/pkg/apperr"
	"inboxiq/pkg/metrics"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type fakeResolver struct{}

func (fakeResolver) Resolve(_ context.Context, userID uuid.UUID, name, email string) (*domain.Identity, error) {
	return &domain.Identity{UserID: userID, DisplayName: name, Email: email}, nil
}

type fakeChat struct {
	lastIdentity *domain.Identity
	lastReq      *in.SendMessageRequest
	sessions     []*domain.ChatSession
}

func (f *fakeChat) StartSession(_ context.Context, userID uuid.UUID, kind domain.SessionKind, title string) (*domain.ChatSession, error) {
	return &domain.ChatSession{ID: "s1", UserID: userID, Kind: kind, Title: title}, nil
}

func (f *fakeChat) ListSessions(context.Context, uuid.UUID, domain.SessionKind, int) ([]*domain.ChatSession, error) {
	return f.sessions, nil
}

func (f *fakeChat) History(_ context.Context, _ uuid.UUID, sessionID string, _ int) ([]*domain.ChatMessage, error) {
	if sessionID != "s1" {
		return nil, apperr.NotFound("session")
	}
	return []*domain.ChatMessage{{ID: "m1", SessionID: "s1", Role: domain.RoleUser, Content: "hi"}}, nil
}

func (f *fakeChat) SendMessage(_ context.Context, identity *domain.Identity, req *in.SendMessageRequest) (*in.MessageReply, error) {
	f.lastIdentity = identity
	f.lastReq = req
	return &in.MessageReply{
		SessionID: "s1",
		Message:   &domain.ChatMessage{ID: "m2", Role: domain.RoleAssistant, Content: "ok"},
	}, nil
}

type fakeDrafts struct {
	action string
	edits  *draft.Edits
	status domain.DraftStatus
	limit  int
	saved  uuid.UUID
}

func (f *fakeDrafts) Get(_ context.Context, id uuid.UUID, _ *domain.Identity) (*domain.EmailDraft, error) {
	return nil, apperr.NotFound("draft")
}

func (f *fakeDrafts) List(_ context.Context, _ *domain.Identity, status domain.DraftStatus, limit, _ int) ([]*domain.EmailDraft, error) {
	f.status, f.limit = status, limit
	return []*domain.EmailDraft{{Subject: "Hello"}}, nil
}

func (f *fakeDrafts) Update(_ context.Context, id uuid.UUID, _ *domain.Identity, edits *draft.Edits) (*domain.EmailDraft, error) {
	f.edits = edits
	return &domain.EmailDraft{ID: id, Subject: *edits.Subject}, nil
}

func (f *fakeDrafts) Transition(_ context.Context, id uuid.UUID, _ *domain.Identity, action string, edits *draft.Edits) (*draft.Result, error) {
	f.action, f.edits = action, edits
	return &draft.Result{Action: domain.DraftAction(action), Draft: &domain.EmailDraft{ID: id}, Message: "sent"}, nil
}

func (f *fakeDrafts) Improve(context.Context, uuid.UUID, *domain.Identity, string) (*compose.Improvement, error) {
	return nil, apperr.Unavailable("content improvement is not configured")
}

func (f *fakeDrafts) SaveToProvider(_ context.Context, id uuid.UUID, _ *domain.Identity) (*domain.EmailDraft, error) {
	f.saved = id
	return &domain.EmailDraft{ID: id, ExternalDraftID: "r-1"}, nil
}

type fakeContacts struct{ terms []string }

func (f *fakeContacts) Search(_ context.Context, _ *domain.Identity, terms []string) ([]domain.ContactCandidate, error) {
	f.terms = terms
	return []domain.ContactCandidate{{Contact: domain.Contact{DisplayName: "John Smith", PrimaryEmail: "john@example.com"}, Confidence: 1}}, nil
}

func (f *fakeContacts) List(context.Context, uuid.UUID, int) ([]*domain.ContactRelationship, error) {
	return []*domain.ContactRelationship{{ContactEmail: "jane@example.com", EmailsSent: 3}}, nil
}

type fakeCalendar struct{ minutes, days int }

func (f *fakeCalendar) FindFreeTime(_ context.Context, _ *domain.Identity, minutes, days int) ([]domain.FreeSlot, error) {
	f.minutes, f.days = minutes, days
	return []domain.FreeSlot{{DurationMinutes: minutes}}, nil
}

func (f *fakeCalendar) Upcoming(context.Context, *domain.Identity, int, int) ([]*domain.CalendarEvent, error) {
	return nil, apperr.Unauthorized("calendar not connected")
}

type handlerFixture struct {
	app      *fiber.App
	chat     *fakeChat
	drafts   *fakeDrafts
	contacts *fakeContacts
	calendar *fakeCalendar
	userID   uuid.UUID
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	f := &handlerFixture{
		chat:     &fakeChat{},
		drafts:   &fakeDrafts{},
		contacts: &fakeContacts{},
		calendar: &fakeCalendar{},
		userID:   uuid.New(),
	}
	passthrough := func(c *fiber.Ctx) error { return c.Next() }

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler()})
	NewHealthHandler(map[string]HealthCheck{
		"postgres": func(context.Context) error { return nil },
	}).Register(app)

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		if c.Get("X-Test-Anonymous") == "" {
			c.Locals(middleware.LocalUserID, f.userID)
			c.Locals(middleware.LocalUserName, "Alex Kim")
			c.Locals(middleware.LocalUserEmail, "alex@example.com")
		}
		return c.Next()
	})
	ids := fakeResolver{}
	chat := NewChatHandler(f.chat, ids)
	chat.Register(api, passthrough)
	NewDraftHandler(f.drafts, ids).Register(api, passthrough)
	NewContactHandler(f.contacts, f.contacts, ids).Register(api)
	NewCalendarHandler(chat, f.calendar, ids).Register(api, passthrough)

	f.app = app
	return f
}

func (f *handlerFixture) do(t *testing.T, method, path string, body any, headers ...string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := f.app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestSendMessage(t *testing.T) {
	f := newHandlerFixture(t)

	status, body := f.do(t, "POST", "/api/v1/chat/messages", map[string]string{"message": "Email jane@example.com about lunch"})

	if status != 200 || body["success"] != true {
		t.Fatalf("expected success, got %d %v", status, body)
	}
	if f.chat.lastReq.Message != "Email jane@example.com about lunch" || f.chat.lastReq.Kind != "" {
		t.Errorf("unexpected request %+v", f.chat.lastReq)
	}
	id := f.chat.lastIdentity
	if id.UserID != f.userID || id.DisplayName != "Alex Kim" || id.Email != "alex@example.com" {
		t.Errorf("unexpected identity %+v", id)
	}
}

func TestCalendarMessageUsesCalendarSession(t *testing.T) {
	f := newHandlerFixture(t)

	status, _ := f.do(t, "POST", "/api/v1/calendar/messages", map[string]string{"message": "When am I free?", "kind": "email"})

	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if f.chat.lastReq.Kind != domain.SessionKindCalendar {
		t.Errorf("expected calendar kind, got %q", f.chat.lastReq.Kind)
	}
}

func TestUnauthenticated(t *testing.T) {
	f := newHandlerFixture(t)

	status, body := f.do(t, "POST", "/api/v1/chat/messages", map[string]string{"message": "hi"}, "X-Test-Anonymous", "1")

	if status != 401 || errorCode(body) != apperr.CodeUnauthorized {
		t.Errorf("expected 401 UNAUTHORIZED, got %d %v", status, body)
	}
}

func TestSessions(t *testing.T) {
	f := newHandlerFixture(t)

	status, body := f.do(t, "POST", "/api/v1/chat/sessions", map[string]string{"kind": "calendar", "title": "Plans"})
	if status != 201 {
		t.Fatalf("expected 201, got %d", status)
	}
	data := body["data"].(map[string]any)
	if data["kind"] != "calendar" || data["title"] != "Plans" {
		t.Errorf("unexpected session %v", data)
	}

	status, body = f.do(t, "GET", "/api/v1/chat/sessions/s1/messages", nil)
	if status != 200 || body["data"].(map[string]any)["count"] != float64(1) {
		t.Errorf("expected one message, got %d %v", status, body)
	}

	status, body = f.do(t, "GET", "/api/v1/chat/sessions/other/messages", nil)
	if status != 404 || errorCode(body) != apperr.CodeNotFound {
		t.Errorf("expected 404, got %d %v", status, body)
	}
}

func TestConfirmDraft(t *testing.T) {
	f := newHandlerFixture(t)
	id := uuid.New()

	status, body := f.do(t, "POST", "/api/v1/drafts/"+id.String()+"/confirm", map[string]string{
		"action":  "send",
		"subject": "Updated subject",
	})

	if status != 200 {
		t.Fatalf("expected 200, got %d %v", status, body)
	}
	if f.drafts.action != "send" {
		t.Errorf("expected send, got %q", f.drafts.action)
	}
	if f.drafts.edits.Subject == nil || *f.drafts.edits.Subject != "Updated subject" || f.drafts.edits.Body != nil {
		t.Errorf("unexpected edits %+v", f.drafts.edits)
	}
}

func TestDraftRoutes(t *testing.T) {
	f := newHandlerFixture(t)
	id := uuid.New().String()

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"bad id", "POST", "/api/v1/drafts/not-a-uuid/confirm", map[string]string{"action": "send"}, 400, apperr.CodeInvalidInput},
		{"get missing", "GET", "/api/v1/drafts/" + id, nil, 404, apperr.CodeNotFound},
		{"improve unavailable", "POST", "/api/v1/drafts/" + id + "/improve", map[string]string{"instruction": "shorter"}, 503, apperr.CodeUnavailable},
		{"patch", "PATCH", "/api/v1/drafts/" + id, map[string]string{"subject": "New"}, 200, ""},
		{"list", "GET", "/api/v1/drafts?status=pending_confirmation&limit=5", nil, 200, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := f.do(t, tt.method, tt.path, tt.body)
			if status != tt.status {
				t.Fatalf("expected %d, got %d %v", tt.status, status, body)
			}
			if tt.code != "" && errorCode(body) != tt.code {
				t.Errorf("expected code %s, got %v", tt.code, body)
			}
		})
	}

	if f.drafts.status != domain.DraftStatusPendingConfirmation || f.drafts.limit != 5 {
		t.Errorf("unexpected list filter %q %d", f.drafts.status, f.drafts.limit)
	}
}

func TestContactSearch(t *testing.T) {
	f := newHandlerFixture(t)

	status, body := f.do(t, "GET", "/api/v1/contacts/search", nil)
	if status != 400 || errorCode(body) != apperr.CodeMissingField {
		t.Errorf("expected missing q, got %d %v", status, body)
	}

	status, _ = f.do(t, "GET", "/api/v1/contacts/search?q=John%20Smith", nil)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	want := []string{"John Smith", "John", "Smith"}
	if len(f.contacts.terms) != len(want) {
		t.Fatalf("expected terms %v, got %v", want, f.contacts.terms)
	}
	for i := range want {
		if f.contacts.terms[i] != want[i] {
			t.Errorf("expected terms %v, got %v", want, f.contacts.terms)
		}
	}

	status, body = f.do(t, "GET", "/api/v1/contacts/frequent", nil)
	if status != 200 || body["data"].(map[string]any)["count"] != float64(1) {
		t.Errorf("expected one frequent contact, got %d %v", status, body)
	}
}

func TestCalendarReads(t *testing.T) {
	f := newHandlerFixture(t)

	status, _ := f.do(t, "GET", "/api/v1/calendar/free-time?duration=30&days=3", nil)
	if status != 200 || f.calendar.minutes != 30 || f.calendar.days != 3 {
		t.Errorf("unexpected free-time call %d %d %d", status, f.calendar.minutes, f.calendar.days)
	}

	status, body := f.do(t, "GET", "/api/v1/calendar/events", nil)
	if status != 401 || errorCode(body) != apperr.CodeUnauthorized {
		t.Errorf("expected 401, got %d %v", status, body)
	}
}

func TestHealth(t *testing.T) {
	f := newHandlerFixture(t)
	status, body := f.do(t, "GET", "/health", nil)
	if status != 200 || body["status"] != "ok" {
		t.Errorf("expected ok, got %d %v", status, body)
	}

	status, body = f.do(t, "GET", "/ready", nil)
	if status != 200 || body["status"] != "ready" {
		t.Errorf("expected ready, got %d %v", status, body)
	}
}

func TestReadyReportsFailures(t *testing.T) {
	app := fiber.New()
	NewHealthHandler(map[string]HealthCheck{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	}).Register(app)

	resp, err := app.Test(httptest.NewRequest("GET", "/ready", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != 503 {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}
}

func TestHealthReportsLatency(t *testing.T) {
	reg := metrics.NewLatencyRegistry(10)
	reg.Record("POST /api/v1/chat/messages", 25*time.Millisecond)

	app := fiber.New()
	NewHealthHandler(nil).WithLatency(reg).Register(app)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Latency map[string]map[string]any `json:"latency"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	route, ok := body.Latency["POST /api/v1/chat/messages"]
	if !ok {
		t.Fatalf("expected chat route latency, got %v", body.Latency)
	}
	if route["count"] != 1.0 {
		t.Errorf("expected count 1, got %v", route["count"])
	}
}

func TestSaveDraftToGmail(t *testing.T) {
	f := newHandlerFixture(t)
	id := uuid.New()

	status, body := f.do(t, "POST", "/api/v1/drafts/"+id.String()+"/gmail-draft", nil)
	if status != 200 {
		t.Fatalf("expected 200, got %d %v", status, body)
	}
	if f.drafts.saved != id {
		t.Errorf("expected draft %s saved, got %s", id, f.drafts.saved)
	}
	data, _ := body["data"].(map[string]any)
	if data["external_draft_id"] != "r-1" {
		t.Errorf("expected external_draft_id r-1, got %v", body)
	}
}
