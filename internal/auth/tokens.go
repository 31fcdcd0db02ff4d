// Package auth implements the OAuth-style grant state machine: client
// validation, the password and refresh grants, opaque token pairs with
// strict rotation, and the signed bearer envelope carried by clients.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/reparte/backend/internal/models"
)

var (
	// ErrInvalidToken covers absent, revoked and expired tokens alike.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrInvalidClient marks failed client credential validation.
	ErrInvalidClient = errors.New("invalid client credentials")
)

const (
	// AccessTokenTTL is how long a freshly minted access token verifies.
	AccessTokenTTL = 15 * time.Minute
	// RefreshTokenTTL is how long the paired refresh token stays usable.
	RefreshTokenTTL = 30 * time.Minute
)

var grantsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "reparte_token_grants_total",
	Help: "Token grants by grant type and result.",
}, []string{"grant", "result"})

// IssuerStore is the slice of storage the issuer needs.
type IssuerStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetClient(ctx context.Context, id string) (*models.Client, error)

	CreateAccessToken(ctx context.Context, token *models.AccessToken) error
	GetAccessToken(ctx context.Context, id string) (*models.AccessToken, error)
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	GetRefreshToken(ctx context.Context, id string) (*models.RefreshToken, error)
	GetAccessTokenByRefreshToken(ctx context.Context, refreshTokenID string) (*models.AccessToken, error)
	GetRefreshTokenByAccessToken(ctx context.Context, accessTokenID string) (*models.RefreshToken, error)
	RevokeAccessToken(ctx context.Context, id string) error
	RevokeRefreshToken(ctx context.Context, id string) error
}

// Issuer mints, verifies and revokes access/refresh token pairs.
type Issuer struct {
	store IssuerStore
	now   func() time.Time
}

// NewIssuer creates an issuer over the given store.
func NewIssuer(store IssuerStore) *Issuer {
	return &Issuer{store: store, now: time.Now}
}

// ValidateClient reports whether the client credentials are valid: the
// client exists, is not revoked, and the secret matches. Gate this before
// any grant.
func (i *Issuer) ValidateClient(ctx context.Context, clientID, clientSecret string) (bool, error) {
	client, err := i.store.GetClient(ctx, clientID)
	if err != nil {
		return false, err
	}
	if client == nil || client.Revoked {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(client.Secret), []byte(clientSecret)) == 1, nil
}

// PasswordGrant authenticates the user's email and password and mints a
// fresh token pair. Unknown email and wrong password both fail with the
// same ErrInvalidCredentials, and no token rows are created on failure.
func (i *Issuer) PasswordGrant(ctx context.Context, email, password, clientID, scope string) (*models.AccessToken, *models.RefreshToken, error) {
	user, err := i.store.GetUserByEmail(ctx, email)
	if err != nil {
		grantsTotal.WithLabelValues("password", "error").Inc()
		return nil, nil, err
	}
	if user == nil || !VerifyPassword(password, user.PasswordHash) {
		grantsTotal.WithLabelValues("password", "denied").Inc()
		return nil, nil, ErrInvalidCredentials
	}

	access, refresh, err := i.mintPair(ctx, user.ID, clientID, ParseScope(scope))
	if err != nil {
		grantsTotal.WithLabelValues("password", "error").Inc()
		return nil, nil, err
	}

	grantsTotal.WithLabelValues("password", "ok").Inc()
	return access, refresh, nil
}

// RefreshGrant rotates a token pair. The presented refresh token must be
// active and resolvable to its paired access token; both are then revoked
// before a new pair is minted carrying the original user and scopes.
//
// The new pair binds to the clientID presented on this request, not the
// one stored on the old token. The grant is still gated on that client's
// credentials, so this enables client migration rather than hijack.
//
// The revoke-then-mint sequence is ordered, not transactional: a crash in
// between leaves the caller unauthenticated (re-login required), never
// authenticated with a stale pair.
func (i *Issuer) RefreshGrant(ctx context.Context, refreshTokenID, clientID string) (*models.AccessToken, *models.RefreshToken, error) {
	refresh, err := i.store.GetRefreshToken(ctx, refreshTokenID)
	if err != nil {
		grantsTotal.WithLabelValues("refresh", "error").Inc()
		return nil, nil, err
	}
	if refresh == nil || !refresh.Active(i.now()) {
		grantsTotal.WithLabelValues("refresh", "denied").Inc()
		return nil, nil, ErrInvalidToken
	}

	oldAccess, err := i.store.GetAccessTokenByRefreshToken(ctx, refreshTokenID)
	if err != nil {
		grantsTotal.WithLabelValues("refresh", "error").Inc()
		return nil, nil, err
	}
	if oldAccess == nil {
		grantsTotal.WithLabelValues("refresh", "denied").Inc()
		return nil, nil, ErrInvalidToken
	}

	if err := i.store.RevokeAccessToken(ctx, oldAccess.ID); err != nil {
		grantsTotal.WithLabelValues("refresh", "error").Inc()
		return nil, nil, err
	}
	if err := i.store.RevokeRefreshToken(ctx, refreshTokenID); err != nil {
		grantsTotal.WithLabelValues("refresh", "error").Inc()
		return nil, nil, err
	}

	access, newRefresh, err := i.mintPair(ctx, oldAccess.UserID, clientID, oldAccess.Scopes)
	if err != nil {
		grantsTotal.WithLabelValues("refresh", "error").Inc()
		return nil, nil, err
	}

	grantsTotal.WithLabelValues("refresh", "ok").Inc()
	return access, newRefresh, nil
}

// VerifyAccess returns the access token record only while it is active
// (not revoked, not expired); otherwise nil. No side effects.
func (i *Issuer) VerifyAccess(ctx context.Context, accessTokenID string) (*models.AccessToken, error) {
	token, err := i.store.GetAccessToken(ctx, accessTokenID)
	if err != nil {
		return nil, err
	}
	if token == nil || !token.Active(i.now()) {
		return nil, nil
	}
	return token, nil
}

// RevokeAccess idempotently revokes an access token.
func (i *Issuer) RevokeAccess(ctx context.Context, accessTokenID string) error {
	return i.store.RevokeAccessToken(ctx, accessTokenID)
}

// RevokeRefresh idempotently revokes a refresh token.
func (i *Issuer) RevokeRefresh(ctx context.Context, refreshTokenID string) error {
	return i.store.RevokeRefreshToken(ctx, refreshTokenID)
}

// Logout revokes an access token together with its paired refresh token.
func (i *Issuer) Logout(ctx context.Context, accessTokenID string) error {
	refresh, err := i.store.GetRefreshTokenByAccessToken(ctx, accessTokenID)
	if err != nil {
		return err
	}
	if refresh == nil {
		return ErrInvalidToken
	}

	if err := i.store.RevokeAccessToken(ctx, accessTokenID); err != nil {
		return err
	}
	return i.store.RevokeRefreshToken(ctx, refresh.ID)
}

func (i *Issuer) mintPair(ctx context.Context, userID, clientID string, scopes []string) (*models.AccessToken, *models.RefreshToken, error) {
	now := i.now()

	access := &models.AccessToken{
		ID:        newTokenID(),
		UserID:    userID,
		ClientID:  clientID,
		Scopes:    scopes,
		ExpiresAt: now.Add(AccessTokenTTL),
	}
	if err := i.store.CreateAccessToken(ctx, access); err != nil {
		return nil, nil, err
	}

	refresh := &models.RefreshToken{
		ID:            newTokenID(),
		AccessTokenID: access.ID,
		ExpiresAt:     now.Add(RefreshTokenTTL),
	}
	if err := i.store.CreateRefreshToken(ctx, refresh); err != nil {
		return nil, nil, err
	}

	return access, refresh, nil
}

// ParseScope converts the space-delimited boundary form into the internal
// scope set, defaulting to the wildcard scope.
func ParseScope(scope string) []string {
	scopes := strings.Fields(scope)
	if len(scopes) == 0 {
		return []string{"*"}
	}
	return scopes
}

// JoinScope is the inverse of ParseScope for responses.
func JoinScope(scopes []string) string {
	return strings.Join(scopes, " ")
}

// newTokenID returns an opaque 40-byte random identifier in hex.
func newTokenID() string {
	return randomHex(40)
}

// NewClientSecret returns a random client secret in hex.
func NewClientSecret() string {
	return randomHex(32)
}

func randomHex(bytes int) string {
	buf := make([]byte, bytes)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms.
		panic(fmt.Sprintf("failed to read random bytes: %v", err))
	}
	return hex.EncodeToString(buf)
}
