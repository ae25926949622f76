package jwt

import (
	"errors"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

func newTestService(ttl time.Duration) Service {
	return NewService("test-secret", "rewards-backend", "rewards-api", ttl)
}

func TestGenerateAndValidateToken(t *testing.T) {
	gofakeit.Seed(11)
	s := newTestService(time.Hour)

	userID := gofakeit.UUID()
	token, err := s.GenerateToken(userID, RoleCitizen, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims, err := s.ValidateToken(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.Subject != userID {
		t.Errorf("subject = %q, want %q", claims.Subject, userID)
	}
	if claims.Role != string(RoleCitizen) {
		t.Errorf("role = %q, want citizen", claims.Role)
	}
}

func TestValidateToken_Expired(t *testing.T) {
	s := newTestService(time.Hour)

	token, err := s.GenerateToken("citizen-1", RoleOperator, -time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := s.ValidateToken(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	issuing := newTestService(time.Hour)
	validating := NewService("another-secret", "rewards-backend", "rewards-api", time.Hour)

	token, err := issuing.GenerateToken("citizen-1", RoleCitizen, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := validating.ValidateToken(token); err == nil {
		t.Fatal("expected a validation error for a foreign signature")
	}
}

func TestValidateToken_WrongIssuer(t *testing.T) {
	issuing := NewService("test-secret", "some-other-service", "rewards-api", time.Hour)
	validating := newTestService(time.Hour)

	token, err := issuing.GenerateToken("citizen-1", RoleCitizen, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := validating.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for a foreign issuer, got %v", err)
	}
}

func TestValidateToken_WrongAudience(t *testing.T) {
	issuing := NewService("test-secret", "rewards-backend", "some-other-api", time.Hour)
	validating := newTestService(time.Hour)

	token, err := issuing.GenerateToken("citizen-1", RoleCitizen, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := validating.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for a foreign audience, got %v", err)
	}
}

func TestValidateToken_Garbage(t *testing.T) {
	s := newTestService(time.Hour)

	if _, err := s.ValidateToken("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
