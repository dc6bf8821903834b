package out

import (
	"context"
	"time"

	"inboxiq/core/domain"
)

type CalendarProvider interface {
	ListEvents(ctx context.Context, cred *domain.OAuthCredential, start, end time.Time, max int) ([]*domain.CalendarEvent, error)
	CreateEvent(ctx context.Context, cred *domain.OAuthCredential, event *domain.NewEvent) (*domain.CalendarEvent, error)
}
