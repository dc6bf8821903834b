package crypto

import "testing"

func TestSealOpenRoundTrip(t *testing.T) {
	enc, err := NewEncryptor([]byte("short-secret"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sealed, err := enc.Seal("ya29.token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !IsSealed(sealed) {
		t.Errorf("expected sealed value, got %s", sealed)
	}

	opened, err := enc.Open(sealed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opened != "ya29.token" {
		t.Errorf("expected ya29.token, got %s", opened)
	}
}

func TestOpenPassesPlaintextThrough(t *testing.T) {
	enc, _ := NewEncryptor([]byte("k"))
	got, err := enc.Open("legacy-plain")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "legacy-plain" {
		t.Errorf("expected legacy-plain, got %s", got)
	}
}

func TestOpenWithWrongKey(t *testing.T) {
	a, _ := NewEncryptor([]byte("key-a"))
	b, _ := NewEncryptor([]byte("key-b"))

	sealed, _ := a.Seal("secret")
	if _, err := b.Open(sealed); err != ErrDecryptionFailed {
		t.Errorf("expected ErrDecryptionFailed, got %v", err)
	}
}

func TestSealEmpty(t *testing.T) {
	enc, _ := NewEncryptor([]byte("k"))
	got, _ := enc.Seal("")
	if got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}
