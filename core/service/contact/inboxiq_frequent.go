package contact

import (
	"context"

	"inboxiq/core/domain"
	"inboxiq/core/port/out"

	"github.com/google/uuid"
)

const defaultFrequentLimit = 10

// FrequentContacts reads the people a user writes to most.
type FrequentContacts struct {
	store out.RelationshipStore
}

func NewFrequentContacts(store out.RelationshipStore) *FrequentContacts {
	return &FrequentContacts{store: store}
}

func (f *FrequentContacts) List(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.ContactRelationship, error) {
	if f.store == nil {
		return []*domain.ContactRelationship{}, nil
	}
	if limit <= 0 || limit > 50 {
		limit = defaultFrequentLimit
	}
	rels, err := f.store.Frequent(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if rels == nil {
		rels = []*domain.ContactRelationship{}
	}
	return rels, nil
}
