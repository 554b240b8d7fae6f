package auth

import (
	"strings"
	"testing"
)

func newTestSealer(t *testing.T, secret string) *TokenSealer {
	t.Helper()
	s, err := NewTokenSealer(secret)
	if err != nil {
		t.Fatalf("NewTokenSealer: %v", err)
	}
	return s
}

func TestSealer_RoundTrip(t *testing.T) {
	s := newTestSealer(t, "token-key-at-least-16-chars")

	sealed, err := s.Seal("gho_abc123")
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	if !strings.HasPrefix(sealed, sealPrefix) {
		t.Errorf("Seal() = %q, want %q prefix", sealed, sealPrefix)
	}
	if strings.Contains(sealed, "gho_abc123") {
		t.Error("Seal() leaked the plaintext")
	}

	plain, err := s.Open(sealed)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if plain != "gho_abc123" {
		t.Errorf("Open() = %q, want %q", plain, "gho_abc123")
	}
}

func TestSealer_NoncesDiffer(t *testing.T) {
	s := newTestSealer(t, "token-key-at-least-16-chars")

	a, _ := s.Seal("gho_abc123")
	b, _ := s.Seal("gho_abc123")
	if a == b {
		t.Error("Seal() should use a fresh nonce each time")
	}
}

func TestSealer_EmptyAndLegacy(t *testing.T) {
	s := newTestSealer(t, "token-key-at-least-16-chars")

	if sealed, _ := s.Seal(""); sealed != "" {
		t.Errorf("Seal(\"\") = %q, want empty", sealed)
	}
	if plain, err := s.Open("gho_legacy_plaintext"); err != nil || plain != "gho_legacy_plaintext" {
		t.Errorf("Open(legacy) = %q, %v; want passthrough", plain, err)
	}
}

func TestSealer_WrongKeyFails(t *testing.T) {
	a := newTestSealer(t, "token-key-at-least-16-chars")
	b := newTestSealer(t, "another-key-at-least-16-chars")

	sealed, _ := a.Seal("gho_abc123")
	if _, err := b.Open(sealed); err == nil {
		t.Fatal("Open() with a different key should fail")
	}
	if _, err := a.Open(sealPrefix + "AAAA"); err == nil {
		t.Fatal("Open() of a truncated box should fail")
	}
}

func TestNewTokenSealer_ShortSecret(t *testing.T) {
	if _, err := NewTokenSealer("short"); err == nil {
		t.Fatal("NewTokenSealer() should reject short secrets")
	}
}
