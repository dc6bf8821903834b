package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Auth errors
	CodeUnauthorized = "UNAUTHORIZED"
	CodeInvalidToken = "INVALID_TOKEN"
	CodeForbidden    = "FORBIDDEN"

	// Validation errors
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeBadRequest       = "BAD_REQUEST"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeMissingField     = "MISSING_FIELD"

	// Resource errors
	CodeNotFound = "NOT_FOUND"
	CodeConflict = "CONFLICT"

	// Remote errors
	CodeProviderError  = "PROVIDER_ERROR"
	CodeTransportError = "TRANSPORT_ERROR"
	CodeDatabaseError  = "DATABASE_ERROR"

	// Internal errors
	CodeGenerationFailed = "GENERATION_FAILED"
	CodeInternalError    = "INTERNAL_ERROR"
	CodeUnavailable      = "SERVICE_UNAVAILABLE"
)

// AppError represents a structured application error
type AppError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Status  int            `json:"-"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

func New(code, message string, status int) *AppError {
	return &AppError{Code: code, Message: message, Status: status}
}

func Wrap(err error, code, message string, status int) *AppError {
	return &AppError{Code: code, Message: message, Status: status, Err: err}
}

// Auth errors. A draft that belongs to someone else is reported as NotFound,
// these are only for identity and credential problems.
func Unauthorized(message string) *AppError {
	if message == "" {
		message = "unauthorized"
	}
	return New(CodeUnauthorized, message, http.StatusUnauthorized)
}

func InvalidToken(message string) *AppError {
	return New(CodeInvalidToken, message, http.StatusUnauthorized)
}

func Forbidden(message string) *AppError {
	if message == "" {
		message = "forbidden"
	}
	return New(CodeForbidden, message, http.StatusForbidden)
}

// Validation errors
func BadRequest(message string) *AppError {
	return New(CodeBadRequest, message, http.StatusBadRequest)
}

func ValidationFailed(message string) *AppError {
	return New(CodeValidationFailed, message, http.StatusBadRequest)
}

func InvalidInput(field, reason string) *AppError {
	return &AppError{
		Code:    CodeInvalidInput,
		Message: fmt.Sprintf("invalid input for '%s': %s", field, reason),
		Status:  http.StatusBadRequest,
		Details: map[string]any{"field": field},
	}
}

func MissingField(field string) *AppError {
	return &AppError{
		Code:    CodeMissingField,
		Message: fmt.Sprintf("missing required field: %s", field),
		Status:  http.StatusBadRequest,
		Details: map[string]any{"field": field},
	}
}

// Resource errors
func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func Conflict(message string) *AppError {
	return New(CodeConflict, message, http.StatusConflict)
}

// Remote errors
func ProviderFailure(provider string, err error) *AppError {
	return &AppError{
		Code:    CodeProviderError,
		Message: fmt.Sprintf("%s rejected the request", provider),
		Status:  http.StatusBadGateway,
		Details: map[string]any{"provider": provider},
		Err:     err,
	}
}

func TransportFailure(provider string, err error) *AppError {
	return &AppError{
		Code:    CodeTransportError,
		Message: fmt.Sprintf("could not reach %s", provider),
		Status:  http.StatusGatewayTimeout,
		Details: map[string]any{"provider": provider},
		Err:     err,
	}
}

func DatabaseError(operation string, err error) *AppError {
	return &AppError{
		Code:    CodeDatabaseError,
		Message: fmt.Sprintf("database error: %s", operation),
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Internal errors
func GenerationFailed(err error) *AppError {
	return &AppError{
		Code:    CodeGenerationFailed,
		Message: "could not generate email content",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

func Internal(message string) *AppError {
	if message == "" {
		message = "internal server error"
	}
	return New(CodeInternalError, message, http.StatusInternalServerError)
}

func Unavailable(message string) *AppError {
	return New(CodeUnavailable, message, http.StatusServiceUnavailable)
}

func InternalWithError(err error) *AppError {
	return &AppError{
		Code:    CodeInternalError,
		Message: "internal server error",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Helper functions
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return InternalWithError(err)
}

func GetHTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

func hasCode(err error, codes ...string) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	for _, c := range codes {
		if appErr.Code == c {
			return true
		}
	}
	return false
}

func IsValidation(err error) bool {
	return hasCode(err, CodeValidationFailed, CodeBadRequest, CodeInvalidInput, CodeMissingField)
}

func IsNotFound(err error) bool { return hasCode(err, CodeNotFound) }

func IsAuthorization(err error) bool {
	return hasCode(err, CodeUnauthorized, CodeInvalidToken, CodeForbidden)
}

func IsProvider(err error) bool  { return hasCode(err, CodeProviderError) }
func IsTransport(err error) bool { return hasCode(err, CodeTransportError) }
func IsGeneration(err error) bool {
	return hasCode(err, CodeGenerationFailed)
}
