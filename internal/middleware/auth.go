// Package middleware provides the HTTP middleware gating protected routes:
// bearer envelope authentication and group membership scoping.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/reparte/backend/internal/auth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const identityKey contextKey = "identity"

// Identity is the verified, request-scoped credential set. Every protected
// handler reads it from the context; nothing reads ambient auth state.
type Identity struct {
	UserID        string
	AccessTokenID string
	ClientID      string
	Scopes        []string
}

// GetIdentity extracts the verified identity from the context.
// The second return is false on unauthenticated requests.
func GetIdentity(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// WithIdentity returns a context carrying the given identity. Exposed for
// handler tests.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// RequireAuth authenticates the bearer envelope in two layers: the
// envelope signature is verified first, so a forged envelope is rejected
// before any storage lookup; then the embedded opaque token ID must still
// verify as active, so a validly signed but revoked or expired envelope is
// rejected too.
func RequireAuth(envelopes *auth.EnvelopeManager, issuer *auth.Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "authorization token required")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				writeError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			claims, err := envelopes.Open(parts[1])
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			token, err := issuer.VerifyAccess(r.Context(), claims.AccessTokenID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "server error")
				return
			}
			if token == nil {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := WithIdentity(r.Context(), Identity{
				UserID:        token.UserID,
				AccessTokenID: token.ID,
				ClientID:      token.ClientID,
				Scopes:        token.Scopes,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}
