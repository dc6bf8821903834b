// Package http exposes the core services over fiber.
package http

import (
	"context"
	"time"

	"inboxiq/core/domain"
	"inboxiq/infra/middleware"
	"inboxiq/pkg/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// IdentityResolver turns the authenticated caller into a core Identity.
type IdentityResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID, displayName, email string) (*domain.Identity, error)
}

// GetUserID extracts the user id set by the auth middleware.
func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	userID, ok := c.Locals(middleware.LocalUserID).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, apperr.Unauthorized("")
	}
	return userID, nil
}

// resolveIdentity loads the caller's identity including the Google credential.
func resolveIdentity(c *fiber.Ctx, ids IdentityResolver) (*domain.Identity, error) {
	userID, err := GetUserID(c)
	if err != nil {
		return nil, err
	}
	name, _ := c.Locals(middleware.LocalUserName).(string)
	email, _ := c.Locals(middleware.LocalUserEmail).(string)
	return ids.Resolve(c.UserContext(), userID, name, email)
}

func parseUUIDParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperr.InvalidInput(name, "must be a UUID")
	}
	return id, nil
}

// parseBody decodes a JSON body; an empty body leaves v untouched.
func parseBody(c *fiber.Ctx, v any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(v); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	return nil
}

// =============================================================================
// Response Helpers
// =============================================================================

// APIResponse represents a standard API response
type APIResponse struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Timestamp string `json:"timestamp"`
}

// SuccessResponse sends a standardized JSON success response
func SuccessResponse(c *fiber.Ctx, data any) error {
	requestID, _ := c.Locals("request_id").(string)
	return c.JSON(APIResponse{
		Success:   true,
		Data:      data,
		RequestID: requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// CreatedResponse is SuccessResponse with status 201.
func CreatedResponse(c *fiber.Ctx, data any) error {
	c.Status(fiber.StatusCreated)
	return SuccessResponse(c, data)
}

// ListResponse wraps a page of items.
type ListResponse struct {
	Items  any `json:"items"`
	Count  int `json:"count"`
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}
