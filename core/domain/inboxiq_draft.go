package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type DraftStatus string

const (
	DraftStatusDraft               DraftStatus = "draft"
	DraftStatusPendingConfirmation DraftStatus = "pending_confirmation"
	DraftStatusSent                DraftStatus = "sent"
	DraftStatusCancelled           DraftStatus = "cancelled"
	DraftStatusFailed              DraftStatus = "failed"
)

// IsTerminal reports whether no further action may change the draft.
func (s DraftStatus) IsTerminal() bool {
	return s == DraftStatusSent || s == DraftStatusCancelled
}

func (s DraftStatus) Valid() bool {
	switch s {
	case DraftStatusDraft, DraftStatusPendingConfirmation, DraftStatusSent, DraftStatusCancelled, DraftStatusFailed:
		return true
	}
	return false
}

type DraftAction string

const (
	DraftActionSend   DraftAction = "send"
	DraftActionEdit   DraftAction = "edit"
	DraftActionCancel DraftAction = "cancel"
)

// ParseDraftAction returns false for anything other than send, edit or cancel.
func ParseDraftAction(s string) (DraftAction, bool) {
	switch a := DraftAction(strings.ToLower(strings.TrimSpace(s))); a {
	case DraftActionSend, DraftActionEdit, DraftActionCancel:
		return a, true
	}
	return "", false
}

// EmailDraft is a persisted email awaiting confirmation.
type EmailDraft struct {
	ID                uuid.UUID          `json:"id"`
	UserID            uuid.UUID          `json:"user_id"`
	SessionID         string             `json:"session_id,omitempty"`
	RecipientEmail    string             `json:"recipient_email"`
	RecipientName     string             `json:"recipient_name,omitempty"`
	Subject           string             `json:"subject"`
	Body              *string            `json:"body"`
	Tone              string             `json:"tone,omitempty"`
	Status            DraftStatus        `json:"status"`
	SearchQuery       string             `json:"search_query,omitempty"`
	CandidateSet      []ContactCandidate `json:"candidate_set,omitempty"`
	Variants          []ContentVariant   `json:"variants,omitempty"`
	ProviderMessageID string             `json:"provider_message_id,omitempty"`
	ExternalDraftID   string             `json:"external_draft_id,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
	SentAt            *time.Time         `json:"sent_at,omitempty"`
}

// BodyText returns the body or "" when unset.
func (d *EmailDraft) BodyText() string {
	if d.Body == nil {
		return ""
	}
	return *d.Body
}

// DraftFilter narrows a draft listing.
type DraftFilter struct {
	UserID uuid.UUID
	Status DraftStatus
	Limit  int
	Offset int
}

// ContentVariant is one generated subject/body alternative.
type ContentVariant struct {
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	Tone       string `json:"tone"`
	StyleLabel string `json:"style_label"`
}
