package persistence

import (
	"context"
	"fmt"
	"time"

	"inboxiq/core/domain"
	"inboxiq/core/port/out"
	"inboxiq/pkg/cache"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

const (
	DefaultWindowSize = 3
	windowTTL         = 24 * time.Hour
)

// WindowBuffer keeps the newest turns per user in a capped Redis list.
type WindowBuffer struct {
	cache *cache.RedisCache
	size  int64
}

func NewWindowBuffer(redisCache *cache.RedisCache, size int) *WindowBuffer {
	if size <= 0 {
		size = DefaultWindowSize
	}
	return &WindowBuffer{cache: redisCache, size: int64(size)}
}

func windowKey(userID uuid.UUID) string {
	return fmt.Sprintf("inboxiq:wb:%s", userID.String())
}

func (w *WindowBuffer) Push(ctx context.Context, userID uuid.UUID, turn domain.Turn) error {
	return w.cache.PushCapped(ctx, windowKey(userID), turn, w.size, windowTTL)
}

// Window returns turns oldest first. Entries that no longer decode are skipped.
func (w *WindowBuffer) Window(ctx context.Context, userID uuid.UUID) ([]domain.Turn, error) {
	raw, err := w.cache.Range(ctx, windowKey(userID))
	if err != nil {
		return nil, err
	}
	turns := make([]domain.Turn, 0, len(raw))
	for _, item := range raw {
		var t domain.Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			continue
		}
		turns = append(turns, t)
	}
	return turns, nil
}

var _ out.WindowBuffer = (*WindowBuffer)(nil)
