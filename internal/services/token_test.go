package services

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()

	m := NewTokenManager("test-issuer", []byte("test-signing-key"), time.Hour)

	token, expiresAt, err := m.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	if until := time.Until(expiresAt); until <= 0 || until > time.Hour {
		t.Errorf("unexpected expiry %v", expiresAt)
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("subject = %q, want %q", claims.Subject, "user-1")
	}
	if claims.Issuer != "test-issuer" {
		t.Errorf("issuer = %q, want %q", claims.Issuer, "test-issuer")
	}
	if claims.IssuedAt == nil {
		t.Error("expected issued-at claim")
	}
}

func TestTokenExpired(t *testing.T) {
	t.Parallel()

	m := NewTokenManager("test-issuer", []byte("test-signing-key"), -time.Minute)

	token, _, err := m.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	if _, err := m.Parse(token); err == nil {
		t.Error("expected an expired token to be rejected")
	}
}

func TestTokenWrongKey(t *testing.T) {
	t.Parallel()

	issuer := NewTokenManager("test-issuer", []byte("key-one"), time.Hour)
	verifier := NewTokenManager("test-issuer", []byte("key-two"), time.Hour)

	token, _, err := issuer.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	if _, err := verifier.Parse(token); err == nil {
		t.Error("expected a token signed with another key to be rejected")
	}
}

func TestTokenWrongIssuer(t *testing.T) {
	t.Parallel()

	issuer := NewTokenManager("issuer-a", []byte("test-signing-key"), time.Hour)
	verifier := NewTokenManager("issuer-b", []byte("test-signing-key"), time.Hour)

	token, _, err := issuer.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	if _, err := verifier.Parse(token); err == nil {
		t.Error("expected a token from another issuer to be rejected")
	}
}

func TestTokenMalformed(t *testing.T) {
	t.Parallel()

	m := NewTokenManager("test-issuer", []byte("test-signing-key"), time.Hour)

	for _, token := range []string{"", "garbage", "a.b.c"} {
		if _, err := m.Parse(token); err == nil {
			t.Errorf("expected malformed token %q to be rejected", token)
		}
	}
}
