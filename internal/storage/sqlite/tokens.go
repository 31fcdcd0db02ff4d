package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/reparte/backend/internal/models"
)

// CreateClient inserts a new OAuth client.
func (s *SQLiteStore) CreateClient(ctx context.Context, client *models.Client) error {
	if client.ID == "" {
		client.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO oauth_clients (id, name, secret, password_client, revoked)
		 VALUES (?, ?, ?, ?, ?)`,
		client.ID, client.Name, client.Secret, client.PasswordClient, client.Revoked,
	)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	return nil
}

// GetClient retrieves an OAuth client by ID.
func (s *SQLiteStore) GetClient(ctx context.Context, id string) (*models.Client, error) {
	client := &models.Client{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, secret, password_client, revoked
		 FROM oauth_clients WHERE id = ?`,
		id,
	).Scan(&client.ID, &client.Name, &client.Secret, &client.PasswordClient, &client.Revoked)

	if err == sql.ErrNoRows {
		return nil, nil // Client not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}

	return client, nil
}

// CountClients returns the number of registered clients.
func (s *SQLiteStore) CountClients(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM oauth_clients").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count clients: %w", err)
	}
	return count, nil
}

// CreateAccessToken inserts a new access token row.
func (s *SQLiteStore) CreateAccessToken(ctx context.Context, token *models.AccessToken) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO oauth_access_tokens (id, user_id, client_id, scopes, revoked, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		token.ID, token.UserID, token.ClientID, strings.Join(token.Scopes, " "),
		token.Revoked, token.ExpiresAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create access token: %w", err)
	}

	return nil
}

// GetAccessToken retrieves an access token by ID, in whatever state.
func (s *SQLiteStore) GetAccessToken(ctx context.Context, id string) (*models.AccessToken, error) {
	return s.scanAccessToken(s.db.QueryRowContext(ctx,
		`SELECT id, user_id, client_id, scopes, revoked, expires_at
		 FROM oauth_access_tokens WHERE id = ?`,
		id,
	))
}

// CreateRefreshToken inserts a new refresh token row.
func (s *SQLiteStore) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO oauth_refresh_tokens (id, access_token_id, revoked, expires_at)
		 VALUES (?, ?, ?, ?)`,
		token.ID, token.AccessTokenID, token.Revoked, token.ExpiresAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create refresh token: %w", err)
	}

	return nil
}

// GetRefreshToken retrieves a refresh token by ID, in whatever state.
func (s *SQLiteStore) GetRefreshToken(ctx context.Context, id string) (*models.RefreshToken, error) {
	return s.scanRefreshToken(s.db.QueryRowContext(ctx,
		`SELECT id, access_token_id, revoked, expires_at
		 FROM oauth_refresh_tokens WHERE id = ?`,
		id,
	))
}

// GetAccessTokenByRefreshToken resolves the access token paired with the
// given refresh token.
func (s *SQLiteStore) GetAccessTokenByRefreshToken(ctx context.Context, refreshTokenID string) (*models.AccessToken, error) {
	return s.scanAccessToken(s.db.QueryRowContext(ctx,
		`SELECT at.id, at.user_id, at.client_id, at.scopes, at.revoked, at.expires_at
		 FROM oauth_access_tokens at
		 INNER JOIN oauth_refresh_tokens rt ON rt.access_token_id = at.id
		 WHERE rt.id = ?`,
		refreshTokenID,
	))
}

// GetRefreshTokenByAccessToken resolves the non-revoked refresh token
// paired with the given access token.
func (s *SQLiteStore) GetRefreshTokenByAccessToken(ctx context.Context, accessTokenID string) (*models.RefreshToken, error) {
	return s.scanRefreshToken(s.db.QueryRowContext(ctx,
		`SELECT id, access_token_id, revoked, expires_at
		 FROM oauth_refresh_tokens
		 WHERE access_token_id = ? AND revoked = 0`,
		accessTokenID,
	))
}

// RevokeAccessToken idempotently marks an access token revoked.
func (s *SQLiteStore) RevokeAccessToken(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE oauth_access_tokens SET revoked = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to revoke access token: %w", err)
	}
	return nil
}

// RevokeRefreshToken idempotently marks a refresh token revoked.
func (s *SQLiteStore) RevokeRefreshToken(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE oauth_refresh_tokens SET revoked = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

func (s *SQLiteStore) scanAccessToken(row *sql.Row) (*models.AccessToken, error) {
	token := &models.AccessToken{}
	var scopes string
	var expiresAt int64

	err := row.Scan(&token.ID, &token.UserID, &token.ClientID, &scopes, &token.Revoked, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil // Token not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan access token: %w", err)
	}

	token.Scopes = strings.Fields(scopes)
	token.ExpiresAt = unixTime(expiresAt)
	return token, nil
}

func (s *SQLiteStore) scanRefreshToken(row *sql.Row) (*models.RefreshToken, error) {
	token := &models.RefreshToken{}
	var expiresAt int64

	err := row.Scan(&token.ID, &token.AccessTokenID, &token.Revoked, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil // Token not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan refresh token: %w", err)
	}

	token.ExpiresAt = unixTime(expiresAt)
	return token, nil
}
