package httputil

import (
	"net/http"
	"testing"
	"time"
)

func TestNewClient(t *testing.T) {
	client := NewClient(GoogleClientConfig(12 * time.Second))

	if client.Timeout != 12*time.Second {
		t.Errorf("expected 12s timeout, got %v", client.Timeout)
	}
	transport, ok := client.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("expected *http.Transport, got %T", client.Transport)
	}
	if transport.MaxIdleConnsPerHost != 50 {
		t.Errorf("expected 50 idle conns per host, got %d", transport.MaxIdleConnsPerHost)
	}
	if transport.ResponseHeaderTimeout != 12*time.Second {
		t.Errorf("expected 12s header timeout, got %v", transport.ResponseHeaderTimeout)
	}
}

func TestClientConfigDefaults(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *ClientConfig
		expected time.Duration
	}{
		{"default", DefaultClientConfig(), 30 * time.Second},
		{"google zero timeout", GoogleClientConfig(0), 30 * time.Second},
		{"openai", OpenAIClientConfig(time.Minute), time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.cfg.ResponseTimeout != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, tt.cfg.ResponseTimeout)
			}
		})
	}

	if client := NewClient(nil); client.Timeout != 30*time.Second {
		t.Errorf("expected nil config to use defaults, got %v", client.Timeout)
	}
}
