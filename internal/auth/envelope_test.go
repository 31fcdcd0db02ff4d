package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/reparte/backend/internal/models"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	manager := NewEnvelopeManager("test-secret-key-32-bytes-long!!!")

	token := &models.AccessToken{
		ID:        newTokenID(),
		UserID:    "user-1",
		ClientID:  "web",
		Scopes:    []string{"read", "write"},
		ExpiresAt: time.Now().Add(AccessTokenTTL),
	}

	envelope, err := manager.Seal(token)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	claims, err := manager.Open(envelope)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if claims.UserID != token.UserID {
		t.Errorf("UserID = %s, want %s", claims.UserID, token.UserID)
	}
	if claims.AccessTokenID != token.ID {
		t.Errorf("AccessTokenID = %s, want %s", claims.AccessTokenID, token.ID)
	}
	if claims.ClientID != token.ClientID {
		t.Errorf("ClientID = %s, want %s", claims.ClientID, token.ClientID)
	}
	if len(claims.Scopes) != 2 {
		t.Errorf("Scopes = %v, want 2 entries", claims.Scopes)
	}
}

func TestEnvelopeRejectsWrongKey(t *testing.T) {
	sealer := NewEnvelopeManager("the-real-signing-secret")
	opener := NewEnvelopeManager("a-different-signing-secret")

	envelope, err := sealer.Seal(&models.AccessToken{
		ID:        newTokenID(),
		UserID:    "user-1",
		ExpiresAt: time.Now().Add(AccessTokenTTL),
	})
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	if _, err := opener.Open(envelope); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Expected ErrInvalidToken for foreign signature, got %v", err)
	}
}

func TestEnvelopeRejectsGarbage(t *testing.T) {
	manager := NewEnvelopeManager("test-secret")

	for _, envelope := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := manager.Open(envelope); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Open(%q): expected ErrInvalidToken, got %v", envelope, err)
		}
	}
}

func TestEnvelopeExpiresWithToken(t *testing.T) {
	manager := NewEnvelopeManager("test-secret")

	envelope, err := manager.Seal(&models.AccessToken{
		ID:        newTokenID(),
		UserID:    "user-1",
		ExpiresAt: time.Now().Add(-time.Minute),
	})
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	if _, err := manager.Open(envelope); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Expected ErrInvalidToken for expired envelope, got %v", err)
	}
}
