package out

import (
	"context"
	"errors"
	"net"
)

// ProviderErrorCode represents error codes.
type ProviderErrorCode string

const (
	ProviderErrAuth         ProviderErrorCode = "auth_error"
	ProviderErrTokenExpired ProviderErrorCode = "token_expired"
	ProviderErrRateLimit    ProviderErrorCode = "rate_limit"
	ProviderErrNotFound     ProviderErrorCode = "not_found"
	ProviderErrNetwork      ProviderErrorCode = "network_error"
	ProviderErrServer       ProviderErrorCode = "server_error"
	ProviderErrInvalidInput ProviderErrorCode = "invalid_input"
	ProviderErrUnavailable  ProviderErrorCode = "unavailable"
)

// ProviderError is returned by every remote adapter.
type ProviderError struct {
	Provider  string
	Code      ProviderErrorCode
	Message   string
	Err       error
	Retryable bool
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Provider + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Provider + ": " + e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func NewProviderError(provider string, code ProviderErrorCode, message string, err error, retryable bool) *ProviderError {
	return &ProviderError{
		Provider:  provider,
		Code:      code,
		Message:   message,
		Err:       err,
		Retryable: retryable,
	}
}

// IsTransportFailure reports whether err means the provider could not be reached,
// as opposed to the provider answering with a failure.
func IsTransportFailure(err error) bool {
	if err == nil {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) && (pe.Code == ProviderErrNetwork || pe.Code == ProviderErrUnavailable) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsNotFound reports whether the provider no longer has the resource.
func IsNotFound(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Code == ProviderErrNotFound
}
