package domain

import "time"

type CalendarEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AllDay      bool      `json:"all_day"`
	Attendees   []string  `json:"attendees,omitempty"`
	HTMLLink    string    `json:"html_link,omitempty"`
}

type FreeSlot struct {
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationMinutes int       `json:"duration_minutes"`
}

// NewEvent is the input for creating a calendar event.
type NewEvent struct {
	Title       string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	Attendees   []string
}
