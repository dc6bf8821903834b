package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"inboxiq/core/domain"
	"inboxiq/core/port/out"
	"inboxiq/pkg/cache"
	"inboxiq/pkg/logger"

	"github.com/google/uuid"
)

const (
	defaultContactTTL  = 30 * time.Minute
	negativeContactTTL = 5 * time.Minute
)

// CachedContactCache puts Redis in front of the PostgreSQL contact cache.
// Redis errors fall through to the database.
type CachedContactCache struct {
	delegate out.ContactCache
	cache    *cache.RedisCache
	ttl      time.Duration
}

func NewCachedContactCache(delegate out.ContactCache, redisCache *cache.RedisCache, ttl time.Duration) *CachedContactCache {
	if ttl <= 0 {
		ttl = defaultContactTTL
	}
	return &CachedContactCache{delegate: delegate, cache: redisCache, ttl: ttl}
}

func contactEmailKey(userID uuid.UUID, email string) string {
	return fmt.Sprintf("inboxiq:contact:%s:%s", userID.String(), strings.ToLower(strings.TrimSpace(email)))
}

func contactListKey(userID uuid.UUID) string {
	return fmt.Sprintf("inboxiq:contacts:%s", userID.String())
}

func (c *CachedContactCache) GetByEmail(ctx context.Context, userID uuid.UUID, email string) (*domain.Contact, error) {
	key := contactEmailKey(userID, email)

	var cached domain.Contact
	found, err := c.cache.GetJSON(ctx, key, &cached)
	if err == nil && found {
		// An empty record is a cached miss.
		if cached.PrimaryEmail == "" {
			return nil, nil
		}
		return &cached, nil
	}

	result, err := c.delegate.GetByEmail(ctx, userID, email)
	if err != nil {
		return nil, err
	}
	if result != nil {
		_ = c.cache.SetJSON(ctx, key, result, c.ttl)
	} else {
		_ = c.cache.SetJSON(ctx, key, &domain.Contact{}, negativeContactTTL)
	}
	return result, nil
}

func (c *CachedContactCache) List(ctx context.Context, userID uuid.UUID) ([]*domain.Contact, error) {
	key := contactListKey(userID)

	var cached []*domain.Contact
	if found, err := c.cache.GetJSON(ctx, key, &cached); err == nil && found {
		return cached, nil
	}

	contacts, err := c.delegate.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	_ = c.cache.SetJSON(ctx, key, contacts, c.ttl)
	return contacts, nil
}

// UpsertMany writes through and refreshes the per-email entries.
func (c *CachedContactCache) UpsertMany(ctx context.Context, userID uuid.UUID, contacts []*domain.Contact) error {
	if err := c.delegate.UpsertMany(ctx, userID, contacts); err != nil {
		return err
	}

	items := make(map[string]any, len(contacts))
	for _, ct := range contacts {
		if ct.Usable() {
			items[contactEmailKey(userID, ct.PrimaryEmail)] = ct
		}
	}
	if err := c.cache.Delete(ctx, contactListKey(userID)); err != nil {
		logger.WithContext(ctx).WithError(err).Warn("contact list invalidation failed")
	}
	if err := c.cache.SetMultiJSON(ctx, items, c.ttl); err != nil {
		logger.WithContext(ctx).WithError(err).Warn("contact cache refresh failed")
	}
	return nil
}

var _ out.ContactCache = (*CachedContactCache)(nil)
