package middleware

import (
	"fmt"
	"sync"
	"time"

	"inboxiq/pkg/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const CodeRateLimited = "RATE_LIMITED"

// RateLimiter is a fixed-window limiter keyed by user, or by IP before auth.
type RateLimiter struct {
	requests map[string]*requestInfo
	mu       sync.Mutex
	limit    int
	window   time.Duration
	now      func() time.Time
}

type requestInfo struct {
	count     int
	expiresAt time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string]*requestInfo),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

// allow records one request for key and reports the remaining budget.
func (rl *RateLimiter) allow(key string) (bool, int, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	info, ok := rl.requests[key]
	if !ok || now.After(info.expiresAt) {
		rl.sweep(now)
		info = &requestInfo{expiresAt: now.Add(rl.window)}
		rl.requests[key] = info
	}
	if info.count >= rl.limit {
		return false, 0, info.expiresAt
	}
	info.count++
	return true, rl.limit - info.count, info.expiresAt
}

func (rl *RateLimiter) sweep(now time.Time) {
	for key, info := range rl.requests {
		if now.After(info.expiresAt) {
			delete(rl.requests, key)
		}
	}
}

func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := "ip:" + c.IP()
		if uid, ok := c.Locals(LocalUserID).(uuid.UUID); ok {
			key = "user:" + uid.String()
		}

		ok, remaining, reset := rl.allow(key)
		c.Set("X-RateLimit-Limit", fmt.Sprintf("%d", rl.limit))
		c.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		c.Set("X-RateLimit-Reset", fmt.Sprintf("%d", reset.Unix()))
		if !ok {
			retryAfter := int(reset.Sub(rl.now()).Seconds()) + 1
			return apperr.New(CodeRateLimited, "rate limit exceeded", fiber.StatusTooManyRequests).
				WithDetail("retry_after", retryAfter)
		}
		return c.Next()
	}
}
