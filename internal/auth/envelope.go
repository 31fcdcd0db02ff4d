package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/reparte/backend/internal/models"
)

// Claims is the payload of the signed bearer envelope. The envelope does
// not authenticate by itself: it carries the opaque access token ID, which
// must still pass VerifyAccess. Signature validity is necessary but not
// sufficient.
type Claims struct {
	UserID        string   `json:"user_id"`
	AccessTokenID string   `json:"access_token_id"`
	ClientID      string   `json:"client_id"`
	Scopes        []string `json:"scopes"`
	jwt.RegisteredClaims
}

// EnvelopeManager signs and verifies the bearer envelope.
type EnvelopeManager struct {
	secretKey []byte
}

// NewEnvelopeManager creates an envelope manager with the given secret.
// secretKey should be a strong random string (e.g., 32 bytes).
func NewEnvelopeManager(secretKey string) *EnvelopeManager {
	return &EnvelopeManager{secretKey: []byte(secretKey)}
}

// Seal wraps an access token record into a signed envelope string.
func (m *EnvelopeManager) Seal(token *models.AccessToken) (string, error) {
	claims := &Claims{
		UserID:        token.UserID,
		AccessTokenID: token.ID,
		ClientID:      token.ClientID,
		Scopes:        token.Scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(token.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign envelope: %w", err)
	}

	return signed, nil
}

// Open verifies the envelope signature and returns the claims. A bad
// signature fails here, before any storage lookup; a validly signed but
// revoked token is only caught by the subsequent VerifyAccess check.
func (m *EnvelopeManager) Open(envelope string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		envelope,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secretKey, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
