package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/reparte/backend/internal/models"
)

// memStore is an in-memory IssuerStore for grant tests.
type memStore struct {
	users         map[string]*models.User
	clients       map[string]*models.Client
	accessTokens  map[string]*models.AccessToken
	refreshTokens map[string]*models.RefreshToken
}

func newMemStore() *memStore {
	return &memStore{
		users:         make(map[string]*models.User),
		clients:       make(map[string]*models.Client),
		accessTokens:  make(map[string]*models.AccessToken),
		refreshTokens: make(map[string]*models.RefreshToken),
	}
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	return m.users[email], nil
}

func (m *memStore) GetClient(_ context.Context, id string) (*models.Client, error) {
	return m.clients[id], nil
}

func (m *memStore) CreateAccessToken(_ context.Context, token *models.AccessToken) error {
	m.accessTokens[token.ID] = token
	return nil
}

func (m *memStore) GetAccessToken(_ context.Context, id string) (*models.AccessToken, error) {
	return m.accessTokens[id], nil
}

func (m *memStore) CreateRefreshToken(_ context.Context, token *models.RefreshToken) error {
	m.refreshTokens[token.ID] = token
	return nil
}

func (m *memStore) GetRefreshToken(_ context.Context, id string) (*models.RefreshToken, error) {
	return m.refreshTokens[id], nil
}

func (m *memStore) GetAccessTokenByRefreshToken(_ context.Context, refreshTokenID string) (*models.AccessToken, error) {
	refresh := m.refreshTokens[refreshTokenID]
	if refresh == nil {
		return nil, nil
	}
	return m.accessTokens[refresh.AccessTokenID], nil
}

func (m *memStore) GetRefreshTokenByAccessToken(_ context.Context, accessTokenID string) (*models.RefreshToken, error) {
	for _, rt := range m.refreshTokens {
		if rt.AccessTokenID == accessTokenID && !rt.Revoked {
			return rt, nil
		}
	}
	return nil, nil
}

func (m *memStore) RevokeAccessToken(_ context.Context, id string) error {
	if t := m.accessTokens[id]; t != nil {
		t.Revoked = true
	}
	return nil
}

func (m *memStore) RevokeRefreshToken(_ context.Context, id string) error {
	if t := m.refreshTokens[id]; t != nil {
		t.Revoked = true
	}
	return nil
}

func seedUser(t *testing.T, store *memStore, email, password string) *models.User {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	user := &models.User{ID: "user-1", Email: email, PasswordHash: hash}
	store.users[email] = user
	return user
}

func TestValidateClient(t *testing.T) {
	store := newMemStore()
	store.clients["web"] = &models.Client{ID: "web", Secret: "s3cret"}
	store.clients["dead"] = &models.Client{ID: "dead", Secret: "s3cret", Revoked: true}

	issuer := NewIssuer(store)
	ctx := context.Background()

	tests := []struct {
		name     string
		clientID string
		secret   string
		want     bool
	}{
		{name: "valid credentials", clientID: "web", secret: "s3cret", want: true},
		{name: "wrong secret", clientID: "web", secret: "nope", want: false},
		{name: "unknown client", clientID: "ghost", secret: "s3cret", want: false},
		{name: "revoked client", clientID: "dead", secret: "s3cret", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := issuer.ValidateClient(ctx, tt.clientID, tt.secret)
			if err != nil {
				t.Fatalf("ValidateClient failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("ValidateClient = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPasswordGrant(t *testing.T) {
	store := newMemStore()
	user := seedUser(t, store, "alice@example.com", "correct-horse")
	issuer := NewIssuer(store)
	ctx := context.Background()

	access, refresh, err := issuer.PasswordGrant(ctx, "alice@example.com", "correct-horse", "web", "")
	if err != nil {
		t.Fatalf("PasswordGrant failed: %v", err)
	}

	if access.UserID != user.ID {
		t.Errorf("Access token user = %s, want %s", access.UserID, user.ID)
	}
	if access.ClientID != "web" {
		t.Errorf("Access token client = %s, want web", access.ClientID)
	}
	if len(access.ID) != 80 {
		t.Errorf("Access token ID length = %d, want 80 hex chars", len(access.ID))
	}
	if len(access.Scopes) != 1 || access.Scopes[0] != "*" {
		t.Errorf("Scopes = %v, want [*]", access.Scopes)
	}
	if refresh.AccessTokenID != access.ID {
		t.Errorf("Refresh pairs to %s, want %s", refresh.AccessTokenID, access.ID)
	}
	if got := refresh.ExpiresAt.Sub(access.ExpiresAt); got != RefreshTokenTTL-AccessTokenTTL {
		t.Errorf("TTL gap = %v, want %v", got, RefreshTokenTTL-AccessTokenTTL)
	}
}

func TestPasswordGrantDeniedUniformly(t *testing.T) {
	store := newMemStore()
	seedUser(t, store, "alice@example.com", "correct-horse")
	issuer := NewIssuer(store)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "wrong password", email: "alice@example.com", password: "wrong"},
		{name: "unknown email", email: "nobody@example.com", password: "correct-horse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := issuer.PasswordGrant(ctx, tt.email, tt.password, "web", "")
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("Expected ErrInvalidCredentials, got %v", err)
			}
		})
	}

	// A denied grant must leave no token rows behind.
	if len(store.accessTokens) != 0 || len(store.refreshTokens) != 0 {
		t.Errorf("Denied grants created %d access / %d refresh tokens",
			len(store.accessTokens), len(store.refreshTokens))
	}
}

func TestRefreshGrantRotatesStrictly(t *testing.T) {
	store := newMemStore()
	seedUser(t, store, "alice@example.com", "correct-horse")
	issuer := NewIssuer(store)
	ctx := context.Background()

	access1, refresh1, err := issuer.PasswordGrant(ctx, "alice@example.com", "correct-horse", "web", "read write")
	if err != nil {
		t.Fatalf("PasswordGrant failed: %v", err)
	}

	access2, refresh2, err := issuer.RefreshGrant(ctx, refresh1.ID, "mobile")
	if err != nil {
		t.Fatalf("RefreshGrant failed: %v", err)
	}

	// Old pair is dead.
	if !store.accessTokens[access1.ID].Revoked {
		t.Error("Old access token not revoked by rotation")
	}
	if !store.refreshTokens[refresh1.ID].Revoked {
		t.Error("Old refresh token not revoked by rotation")
	}

	// New pair carries the user and scopes, bound to the requesting client.
	if access2.UserID != access1.UserID {
		t.Errorf("Rotated user = %s, want %s", access2.UserID, access1.UserID)
	}
	if access2.ClientID != "mobile" {
		t.Errorf("Rotated client = %s, want mobile", access2.ClientID)
	}
	if JoinScope(access2.Scopes) != "read write" {
		t.Errorf("Rotated scopes = %v, want [read write]", access2.Scopes)
	}
	if refresh2.AccessTokenID != access2.ID {
		t.Errorf("New refresh pairs to %s, want %s", refresh2.AccessTokenID, access2.ID)
	}

	// Replaying the spent refresh token is inert.
	if _, _, err := issuer.RefreshGrant(ctx, refresh1.ID, "web"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Replayed refresh token: expected ErrInvalidToken, got %v", err)
	}
}

func TestRefreshGrantRejectsExpired(t *testing.T) {
	store := newMemStore()
	seedUser(t, store, "alice@example.com", "correct-horse")
	issuer := NewIssuer(store)
	ctx := context.Background()

	_, refresh, err := issuer.PasswordGrant(ctx, "alice@example.com", "correct-horse", "web", "")
	if err != nil {
		t.Fatalf("PasswordGrant failed: %v", err)
	}

	issuer.now = func() time.Time { return time.Now().Add(RefreshTokenTTL + time.Minute) }

	if _, _, err := issuer.RefreshGrant(ctx, refresh.ID, "web"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Expired refresh token: expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyAccess(t *testing.T) {
	store := newMemStore()
	seedUser(t, store, "alice@example.com", "correct-horse")
	issuer := NewIssuer(store)
	ctx := context.Background()

	access, _, err := issuer.PasswordGrant(ctx, "alice@example.com", "correct-horse", "web", "")
	if err != nil {
		t.Fatalf("PasswordGrant failed: %v", err)
	}

	t.Run("active token verifies", func(t *testing.T) {
		got, err := issuer.VerifyAccess(ctx, access.ID)
		if err != nil {
			t.Fatalf("VerifyAccess failed: %v", err)
		}
		if got == nil || got.ID != access.ID {
			t.Fatalf("VerifyAccess = %v, want token %s", got, access.ID)
		}
	})

	t.Run("unknown token is nil", func(t *testing.T) {
		got, err := issuer.VerifyAccess(ctx, "no-such-token")
		if err != nil {
			t.Fatalf("VerifyAccess failed: %v", err)
		}
		if got != nil {
			t.Errorf("VerifyAccess = %v, want nil", got)
		}
	})

	t.Run("expired token is nil", func(t *testing.T) {
		issuer.now = func() time.Time { return time.Now().Add(AccessTokenTTL + time.Minute) }
		defer func() { issuer.now = time.Now }()

		got, err := issuer.VerifyAccess(ctx, access.ID)
		if err != nil {
			t.Fatalf("VerifyAccess failed: %v", err)
		}
		if got != nil {
			t.Errorf("VerifyAccess = %v, want nil past expiry", got)
		}
	})

	t.Run("revoked token is nil", func(t *testing.T) {
		if err := issuer.RevokeAccess(ctx, access.ID); err != nil {
			t.Fatalf("RevokeAccess failed: %v", err)
		}
		got, err := issuer.VerifyAccess(ctx, access.ID)
		if err != nil {
			t.Fatalf("VerifyAccess failed: %v", err)
		}
		if got != nil {
			t.Errorf("VerifyAccess = %v, want nil after revoke", got)
		}
	})
}

func TestLogoutRevokesPair(t *testing.T) {
	store := newMemStore()
	seedUser(t, store, "alice@example.com", "correct-horse")
	issuer := NewIssuer(store)
	ctx := context.Background()

	access, refresh, err := issuer.PasswordGrant(ctx, "alice@example.com", "correct-horse", "web", "")
	if err != nil {
		t.Fatalf("PasswordGrant failed: %v", err)
	}

	if err := issuer.Logout(ctx, access.ID); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	if !store.accessTokens[access.ID].Revoked {
		t.Error("Access token not revoked on logout")
	}
	if !store.refreshTokens[refresh.ID].Revoked {
		t.Error("Refresh token not revoked on logout")
	}

	// A second logout finds no live pair.
	if err := issuer.Logout(ctx, access.ID); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Repeated logout: expected ErrInvalidToken, got %v", err)
	}
}

func TestParseScope(t *testing.T) {
	tests := []struct {
		name  string
		scope string
		want  []string
	}{
		{name: "empty defaults to wildcard", scope: "", want: []string{"*"}},
		{name: "whitespace only defaults too", scope: "   ", want: []string{"*"}},
		{name: "splits on spaces", scope: "read  write", want: []string{"read", "write"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseScope(tt.scope)
			if len(got) != len(tt.want) {
				t.Fatalf("ParseScope(%q) = %v, want %v", tt.scope, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ParseScope(%q)[%d] = %q, want %q", tt.scope, i, got[i], tt.want[i])
				}
			}
		})
	}
}
