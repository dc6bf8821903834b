package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type ContactSource string

const (
	ContactSourceCache  ContactSource = "cache"
	ContactSourceRemote ContactSource = "remote"
)

// Contact is a directory record as returned by the People API or the local cache.
type Contact struct {
	ContactID    string `json:"contact_id"`
	DisplayName  string `json:"display_name"`
	PrimaryEmail string `json:"primary_email"`
	GivenName    string `json:"given_name,omitempty"`
	FamilyName   string `json:"family_name,omitempty"`
	Phone        string `json:"phone,omitempty"`
	PhotoURL     string `json:"photo_url,omitempty"`
}

// Usable reports whether the record has both a name and an email.
func (c *Contact) Usable() bool {
	return c != nil && strings.TrimSpace(c.DisplayName) != "" && strings.TrimSpace(c.PrimaryEmail) != ""
}

// EmailKey is the case-insensitive identity used for dedup.
func (c *Contact) EmailKey() string {
	return strings.ToLower(strings.TrimSpace(c.PrimaryEmail))
}

// ContactCandidate is a scored match produced by a contact search.
type ContactCandidate struct {
	Contact
	Confidence float64       `json:"confidence"`
	Source     ContactSource `json:"source"`
}

// CachedContact is the persisted form of a Contact.
type CachedContact struct {
	UserID uuid.UUID `json:"user_id"`
	Contact
	UpdatedAt time.Time `json:"updated_at"`
}

// ContactRelationship tracks how often the user has written to a contact.
type ContactRelationship struct {
	ContactEmail string    `json:"contact_email"`
	ContactName  string    `json:"contact_name"`
	EmailsSent   int64     `json:"emails_sent"`
	FirstContact time.Time `json:"first_contact"`
	LastContact  time.Time `json:"last_contact"`
}
