// Package httputil builds pooled HTTP clients for outbound API calls.
package httputil

import (
	"net"
	"net/http"
	"time"
)

// ClientConfig holds HTTP client configuration.
type ClientConfig struct {
	// Connection settings
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration

	// Timeout settings
	DialTimeout         time.Duration
	TLSHandshakeTimeout time.Duration
	ResponseTimeout     time.Duration

	KeepAliveInterval time.Duration
}

// DefaultClientConfig returns pooled defaults with a 30s response timeout.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		MaxConnsPerHost:     100,
		IdleConnTimeout:     90 * time.Second,
		DialTimeout:         10 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		ResponseTimeout:     30 * time.Second,
		KeepAliveInterval:   30 * time.Second,
	}
}

// GoogleClientConfig is shared by Gmail, People and Calendar. The response
// timeout follows the provider timeout so a hung call never outlives it.
func GoogleClientConfig(timeout time.Duration) *ClientConfig {
	cfg := DefaultClientConfig()
	cfg.MaxIdleConnsPerHost = 50
	cfg.IdleConnTimeout = 120 * time.Second
	if timeout > 0 {
		cfg.ResponseTimeout = timeout
	}
	return cfg
}

// OpenAIClientConfig allows long completions with moderate concurrency.
func OpenAIClientConfig(timeout time.Duration) *ClientConfig {
	cfg := DefaultClientConfig()
	cfg.MaxIdleConns = 30
	cfg.MaxConnsPerHost = 30
	cfg.IdleConnTimeout = 120 * time.Second
	if timeout > 0 {
		cfg.ResponseTimeout = timeout
	}
	return cfg
}

// NewClient creates an HTTP client with connection pooling.
func NewClient(cfg *ClientConfig) *http.Client {
	if cfg == nil {
		cfg = DefaultClientConfig()
	}

	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: cfg.KeepAliveInterval,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		ForceAttemptHTTP2:     true,
		ResponseHeaderTimeout: cfg.ResponseTimeout,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.ResponseTimeout,
	}
}
