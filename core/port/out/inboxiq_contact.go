package out

import (
	"context"
	"time"

	"inboxiq/core/domain"

	"github.com/google/uuid"
)

// ContactPage is one page of a remote directory listing.
type ContactPage struct {
	Contacts      []*domain.Contact
	NextPageToken string
}

// ContactDirectory is the remote address book.
type ContactDirectory interface {
	ListConnections(ctx context.Context, cred *domain.OAuthCredential, pageToken string) (*ContactPage, error)
}

// ContactCache is the per-user local copy of directory records.
// GetByEmail returns nil, nil on a miss.
type ContactCache interface {
	GetByEmail(ctx context.Context, userID uuid.UUID, email string) (*domain.Contact, error)
	List(ctx context.Context, userID uuid.UUID) ([]*domain.Contact, error)
	UpsertMany(ctx context.Context, userID uuid.UUID, contacts []*domain.Contact) error
}

// RelationshipStore keeps who the user actually writes to.
type RelationshipStore interface {
	RecordSent(ctx context.Context, userID uuid.UUID, email, name string, at time.Time) error
	Frequent(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.ContactRelationship, error)
}
