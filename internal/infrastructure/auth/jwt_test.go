package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/ledgerkit/banksync/internal/domain"
)

func TestJWTRoundTrip(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)

	token, err := manager.Generate("user-1", "user@example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := manager.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Fatalf("user id = %q", claims.UserID)
	}
	if claims.Email != "user@example.com" {
		t.Fatalf("email = %q", claims.Email)
	}
}

func TestJWTExpired(t *testing.T) {
	manager := NewJWTManager("test-secret", -time.Minute)

	token, err := manager.Generate("user-1", "user@example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := manager.Verify(token); !errors.Is(err, domain.ErrExpiredToken) {
		t.Fatalf("err = %v, want ErrExpiredToken", err)
	}
}

func TestJWTWrongSecret(t *testing.T) {
	token, err := NewJWTManager("secret-a", time.Hour).Generate("user-1", "user@example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := NewJWTManager("secret-b", time.Hour).Verify(token); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestJWTGarbageToken(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)

	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := manager.Verify(token); !errors.Is(err, domain.ErrInvalidToken) {
			t.Fatalf("token %q: err = %v, want ErrInvalidToken", token, err)
		}
	}
}
