package provider

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"inboxiq/core/port/out"
	"inboxiq/pkg/logger"

	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// newBreaker trips after more than 5 consecutive failures, or a 60% failure
// ratio over at least 10 requests. Client errors count as successes.
func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		IsSuccessful: func(err error) bool {
			var nce *nonCircuitError
			return err == nil || errors.As(err, &nce)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	})
}

// executeWithCircuitBreaker runs fn under cb. Client errors (4xx) are
// returned as-is without counting against the breaker.
func executeWithCircuitBreaker(cb *gobreaker.CircuitBreaker, operation string, fn func() error) error {
	_, err := cb.Execute(func() (interface{}, error) {
		if err := fn(); err != nil {
			if isClientError(err) {
				return nil, &nonCircuitError{err: err}
			}
			return nil, err
		}
		return nil, nil
	})

	var nce *nonCircuitError
	if errors.As(err, &nce) {
		return nce.err
	}
	if err != nil {
		logger.WithError(err).WithFields(map[string]any{
			"operation": operation,
			"state":     cb.State().String(),
		}).Debug("provider call failed")
	}
	return err
}

// nonCircuitError wraps errors that should not trip the circuit breaker.
type nonCircuitError struct {
	err error
}

func (e *nonCircuitError) Error() string {
	return e.err.Error()
}

func isClientError(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code >= 400 && apiErr.Code < 500 && apiErr.Code != 429
	}
	var retrieveErr *oauth2.RetrieveError
	return errors.As(err, &retrieveErr)
}

// wrapError maps Google client failures onto ProviderError codes.
func wrapError(provider string, err error, defaultMsg string) error {
	if err == nil {
		return nil
	}
	var pe *out.ProviderError
	if errors.As(err, &pe) {
		return err
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 400:
			return out.NewProviderError(provider, out.ProviderErrInvalidInput, "Invalid request", err, false)
		case 401:
			return out.NewProviderError(provider, out.ProviderErrTokenExpired, "Token expired", err, false)
		case 403:
			if strings.Contains(apiErr.Message, "Rate Limit") {
				return out.NewProviderError(provider, out.ProviderErrRateLimit, "Rate limit exceeded", err, true)
			}
			return out.NewProviderError(provider, out.ProviderErrAuth, "Access denied", err, false)
		case 404:
			return out.NewProviderError(provider, out.ProviderErrNotFound, "Not found", err, false)
		case 429:
			return out.NewProviderError(provider, out.ProviderErrRateLimit, "Too many requests", err, true)
		case 500, 502, 503, 504:
			return out.NewProviderError(provider, out.ProviderErrServer, "Server error", err, true)
		}
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return out.NewProviderError(provider, out.ProviderErrAuth, "Token refresh rejected", err, false)
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return out.NewProviderError(provider, out.ProviderErrUnavailable, "Circuit open", err, true)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return out.NewProviderError(provider, out.ProviderErrNetwork, "Request timed out", err, true)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return out.NewProviderError(provider, out.ProviderErrNetwork, "Network error", err, true)
	}

	return out.NewProviderError(provider, out.ProviderErrServer, defaultMsg, err, true)
}
