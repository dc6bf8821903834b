// Package middleware holds the fiber middleware shared by every route.
package middleware

import (
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"inboxiq/pkg/apperr"
	"inboxiq/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Success   bool        `json:"success"`
	Error     ErrorDetail `json:"error"`
	RequestID string      `json:"request_id,omitempty"`
	Timestamp string      `json:"timestamp"`
}

type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorHandler is a centralized error handler for Fiber
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		requestID, _ := c.Locals("request_id").(string)

		response := ErrorResponse{
			Success:   false,
			RequestID: requestID,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}

		var status int
		var appErr *apperr.AppError
		var fiberErr *fiber.Error

		switch {
		case errors.As(err, &appErr):
			status = appErr.Status
			response.Error = ErrorDetail{
				Code:    appErr.Code,
				Message: appErr.Message,
				Details: appErr.Details,
			}

			log := logger.WithContext(c.UserContext()).
				WithField("error_code", appErr.Code).
				WithError(appErr.Err)
			if status >= 500 {
				log.Error("Internal error: %s", appErr.Message)
			} else {
				log.Warn("Client error: %s", appErr.Message)
			}

		case errors.As(err, &fiberErr):
			status = fiberErr.Code
			response.Error = ErrorDetail{
				Code:    mapHTTPStatusToCode(fiberErr.Code),
				Message: fiberErr.Message,
			}

		default:
			status = fiber.StatusInternalServerError
			response.Error = ErrorDetail{
				Code:    apperr.CodeInternalError,
				Message: "An unexpected error occurred",
			}
			logger.WithContext(c.UserContext()).
				WithError(err).
				Error("Unexpected error: %s", err.Error())
		}

		return c.Status(status).JSON(response)
	}
}

// RequestID middleware adds a unique request ID to each request
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Locals("request_id", requestID)
		c.Set("X-Request-ID", requestID)
		c.SetUserContext(logger.ContextWithRequestID(c.UserContext(), requestID))
		return c.Next()
	}
}

// RequestLogger logs incoming requests and their responses
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()
		if err != nil {
			// Render now so the logged status is the one the client sees.
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				return herr
			}
			err = nil
		}

		status := c.Response().StatusCode()
		log := logger.WithContext(c.UserContext()).
			WithDuration(time.Since(start)).
			WithFields(map[string]any{
				"method": c.Method(),
				"path":   c.Path(),
				"status": status,
				"ip":     c.IP(),
			})

		switch {
		case status >= 500:
			log.Error("Request failed: %s %s -> %d", c.Method(), c.Path(), status)
		case status >= 400:
			log.Warn("Request error: %s %s -> %d", c.Method(), c.Path(), status)
		default:
			log.Info("Request completed: %s %s -> %d", c.Method(), c.Path(), status)
		}
		return err
	}
}

// Recover middleware recovers from panics
func Recover() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.WithContext(c.UserContext()).WithFields(map[string]any{
					"panic":  fmt.Sprintf("%v", r),
					"path":   c.Path(),
					"method": c.Method(),
					"stack":  string(debug.Stack()),
				}).Error("Panic recovered")

				err = apperr.Internal("An unexpected error occurred")
			}
		}()
		return c.Next()
	}
}

func mapHTTPStatusToCode(status int) string {
	switch status {
	case 400:
		return apperr.CodeValidationFailed
	case 401:
		return apperr.CodeUnauthorized
	case 403:
		return apperr.CodeForbidden
	case 404:
		return apperr.CodeNotFound
	case 405:
		return "METHOD_NOT_ALLOWED"
	case 409:
		return apperr.CodeConflict
	case 413:
		return "PAYLOAD_TOO_LARGE"
	case 429:
		return CodeRateLimited
	case 500:
		return apperr.CodeInternalError
	case 502, 503, 504:
		return apperr.CodeUnavailable
	default:
		return "UNKNOWN_ERROR"
	}
}
