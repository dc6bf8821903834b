package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/inboxiq")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ENCRYPTION_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Port)
	}
	if cfg.ProviderTimeout != 10*time.Second {
		t.Errorf("expected 10s timeout, got %v", cfg.ProviderTimeout)
	}
	if cfg.IntentActionThreshold != 0.7 {
		t.Errorf("expected threshold 0.7, got %v", cfg.IntentActionThreshold)
	}
	if cfg.ContactMaxResults != 5 {
		t.Errorf("expected 5 results, got %d", cfg.ContactMaxResults)
	}
	if cfg.EncryptionKey != "secret" {
		t.Errorf("expected encryption key to fall back to jwt secret, got %s", cfg.EncryptionKey)
	}
}

func TestLoadRequiresDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "secret")

	if _, err := Load(); err == nil {
		t.Error("expected error without DATABASE_URL")
	}
}

func TestProviderTimeoutClamped(t *testing.T) {
	tests := []struct {
		env      string
		expected time.Duration
	}{
		{"1", 5 * time.Second},
		{"12", 12 * time.Second},
		{"60", 15 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "postgres://localhost/inboxiq")
			t.Setenv("JWT_SECRET", "secret")
			t.Setenv("PROVIDER_TIMEOUT_SEC", tt.env)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.ProviderTimeout != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, cfg.ProviderTimeout)
			}
		})
	}
}

func TestRemoteModelEnabled(t *testing.T) {
	cfg := &Config{OpenAIAPIKey: "sk-test"}
	if !cfg.RemoteModelEnabled() {
		t.Error("expected remote model enabled")
	}
	cfg.UseTemplateFallback = true
	if cfg.RemoteModelEnabled() {
		t.Error("expected fallback flag to disable remote model")
	}
}
