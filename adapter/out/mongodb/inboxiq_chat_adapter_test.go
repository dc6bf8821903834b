package mongodb

import (
	"testing"
	"time"

	"inboxiq/core/domain"

	"github.com/google/uuid"
)

func TestMessageDocumentRoundTrip(t *testing.T) {
	msg := &domain.ChatMessage{
		ID:        "m1",
		SessionID: "s1",
		UserID:    uuid.New(),
		Role:      domain.RoleAssistant,
		Content:   "Here are some available time slots",
		Metadata: map[string]any{
			"type":       "event_draft",
			"free_slots": []domain.FreeSlot{{DurationMinutes: 60}},
		},
		CreatedAt: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC),
	}

	doc, err := toMessageDocument(msg)
	if err != nil {
		t.Fatalf("toMessageDocument: %v", err)
	}
	got := doc.toDomain()

	if got.UserID != msg.UserID || got.Role != domain.RoleAssistant {
		t.Errorf("unexpected message %+v", got)
	}
	if got.Metadata["type"] != "event_draft" {
		t.Errorf("expected metadata type, got %v", got.Metadata)
	}
	slots, ok := got.Metadata["free_slots"].([]any)
	if !ok || len(slots) != 1 {
		t.Fatalf("expected one slot as plain JSON, got %T %v", got.Metadata["free_slots"], got.Metadata["free_slots"])
	}
	if slot := slots[0].(map[string]any); slot["duration_minutes"] != float64(60) {
		t.Errorf("expected duration 60, got %v", slot["duration_minutes"])
	}
}

func TestMessageDocumentWithoutMetadata(t *testing.T) {
	doc, err := toMessageDocument(&domain.ChatMessage{ID: "m2", Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("toMessageDocument: %v", err)
	}
	if doc.Metadata != nil {
		t.Errorf("expected no metadata bytes, got %s", doc.Metadata)
	}
	if doc.toDomain().Metadata != nil {
		t.Error("expected nil metadata")
	}
}

func TestSessionDocumentRoundTrip(t *testing.T) {
	s := &domain.ChatSession{ID: "s1", UserID: uuid.New(), Kind: domain.SessionKindCalendar, Title: "Calendar Chat"}
	got := toSessionDocument(s).toDomain()
	if *got != *s {
		t.Errorf("expected %+v, got %+v", s, got)
	}
}
