package models

import "time"

// Client is a registered OAuth client. Every grant is gated on a client
// credential check before any user credentials are considered.
type Client struct {
	// ID is the unique identifier for the client (UUID format).
	ID string

	// Name is the client's display name (e.g., "reparte-web").
	Name string

	// Secret is the client secret, random hex.
	Secret string

	// PasswordClient marks clients allowed to use the password grant.
	PasswordClient bool

	// Revoked disables the client for all grants.
	Revoked bool
}

// AccessToken is an opaque bearer token bound to a user, client and scope
// set. Tokens are never mutated after minting except for revocation;
// expired and revoked tokens are inert but retained for audit.
type AccessToken struct {
	// ID is the opaque random token identifier (hex).
	ID string

	// UserID is the user this token authenticates.
	UserID string

	// ClientID is the client the token was issued to.
	ClientID string

	// Scopes is the granted scope set. Space-delimited at the HTTP
	// boundary, a slice internally. Defaults to ["*"].
	Scopes []string

	// Revoked marks the token as terminally invalid.
	Revoked bool

	// ExpiresAt is when the token stops verifying, revoked or not.
	ExpiresAt time.Time
}

// Active reports whether the token still verifies at the given instant.
func (t *AccessToken) Active(now time.Time) bool {
	return !t.Revoked && t.ExpiresAt.After(now)
}

// RefreshToken is bound 1:1 to the access token that spawned it. Using it
// revokes both tokens of the pair and mints a new pair (strict rotation):
// a replayed refresh token is inert after first use.
type RefreshToken struct {
	// ID is the opaque random token identifier (hex).
	ID string

	// AccessTokenID is the paired access token.
	AccessTokenID string

	// Revoked marks the token as terminally invalid.
	Revoked bool

	// ExpiresAt is when the token stops verifying, revoked or not.
	ExpiresAt time.Time
}

// Active reports whether the token still verifies at the given instant.
func (t *RefreshToken) Active(now time.Time) bool {
	return !t.Revoked && t.ExpiresAt.After(now)
}
