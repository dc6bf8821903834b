package middleware

import (
	"context"
	"fmt"
	"strings"
	"time"

	"inboxiq/pkg/apperr"
	"inboxiq/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locals keys set by JWTAuth.
const (
	LocalUserID    = "user_id"
	LocalUserEmail = "user_email"
	LocalUserName  = "user_name"
)

// TokenBlacklist holds revoked token ids (jti) in Redis.
type TokenBlacklist struct {
	redis  *redis.Client
	prefix string
}

func NewTokenBlacklist(client *redis.Client) *TokenBlacklist {
	if client == nil {
		return nil
	}
	return &TokenBlacklist{
		redis:  client,
		prefix: "inboxiq:token:revoked:",
	}
}

// Revoke blacklists a token until it would have expired anyway.
func (b *TokenBlacklist) Revoke(ctx context.Context, tokenID string, expiry time.Duration) error {
	if b == nil {
		return nil
	}
	return b.redis.Set(ctx, b.prefix+tokenID, "1", expiry).Err()
}

// IsRevoked fails open when Redis is unreachable.
func (b *TokenBlacklist) IsRevoked(ctx context.Context, tokenID string) bool {
	if b == nil {
		return false
	}
	exists, err := b.redis.Exists(ctx, b.prefix+tokenID).Result()
	if err != nil {
		logger.WithError(err).Warn("token blacklist lookup failed")
		return false
	}
	return exists > 0
}

type AuthConfig struct {
	Secret    string
	Blacklist *TokenBlacklist
}

// JWTAuth validates an HS256 bearer token issued by the sign-in service and
// stores the caller's id, email and name in Locals.
func JWTAuth(cfg AuthConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodOptions {
			return c.Next()
		}

		tokenString := bearerToken(c.Get(fiber.HeaderAuthorization))
		if tokenString == "" {
			return apperr.Unauthorized("missing authorization")
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unsupported signing method: %v", token.Header["alg"])
			}
			if cfg.Secret == "" {
				return nil, fmt.Errorf("JWT secret not configured")
			}
			return []byte(cfg.Secret), nil
		}, jwt.WithLeeway(time.Minute), jwt.WithIssuedAt())
		if err != nil || !token.Valid {
			logger.WithContext(c.UserContext()).WithError(err).Warn("JWT validation failed")
			return apperr.InvalidToken("invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return apperr.InvalidToken("invalid claims")
		}

		if jti, ok := claims["jti"].(string); ok && jti != "" {
			if cfg.Blacklist.IsRevoked(c.UserContext(), jti) {
				return apperr.InvalidToken("token has been revoked")
			}
		}

		sub, _ := claims["sub"].(string)
		userID, err := uuid.Parse(sub)
		if err != nil || userID == uuid.Nil {
			return apperr.InvalidToken("invalid user id in token")
		}

		email, _ := claims["email"].(string)
		name, _ := claims["name"].(string)

		c.Locals(LocalUserID, userID)
		c.Locals(LocalUserEmail, email)
		c.Locals(LocalUserName, name)
		c.SetUserContext(logger.ContextWithUserID(c.UserContext(), userID.String()))

		return c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
