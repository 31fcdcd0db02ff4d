package service

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/reparte/backend/internal/auth"
	"github.com/reparte/backend/internal/middleware"
	"github.com/reparte/backend/internal/models"
	"github.com/reparte/backend/internal/storage"
)

// OAuthService serves the token endpoint, registration and logout.
type OAuthService struct {
	store     storage.Store
	issuer    *auth.Issuer
	envelopes *auth.EnvelopeManager
	validator *validator.Validate
	logger    *slog.Logger
}

// NewOAuthService creates the OAuth handler set.
func NewOAuthService(store storage.Store, issuer *auth.Issuer, envelopes *auth.EnvelopeManager, logger *slog.Logger) *OAuthService {
	return &OAuthService{
		store:     store,
		issuer:    issuer,
		envelopes: envelopes,
		validator: validator.New(),
		logger:    logger,
	}
}

// tokenRequest is the combined payload of the token endpoint. Grant-type
// specific fields are validated after dispatch.
type tokenRequest struct {
	GrantType    string `json:"grant_type" validate:"required,oneof=password refresh_token"`
	ClientID     string `json:"client_id" validate:"required"`
	ClientSecret string `json:"client_secret" validate:"required"`
	Email        string `json:"email" validate:"omitempty,email"`
	Password     string `json:"password"`
	Scope        string `json:"scope"`
	RefreshToken string `json:"refresh_token"`
}

// tokenResponse is the standard OAuth token payload. access_token carries
// the signed envelope; refresh_token is the opaque row ID.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
}

// Token handles POST /oauth/token for both grant types. Client
// credentials gate every grant.
func (s *OAuthService) Token(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.validator.Struct(&req); err != nil {
		writeValidationError(w, err)
		return
	}

	valid, err := s.issuer.ValidateClient(r.Context(), req.ClientID, req.ClientSecret)
	if err != nil {
		s.logger.Error("Client validation failed", "client_id", req.ClientID, "error", err)
		writeError(w, err)
		return
	}
	if !valid {
		writeMessage(w, http.StatusUnauthorized, "invalid client credentials")
		return
	}

	switch req.GrantType {
	case "password":
		s.passwordGrant(w, r, req)
	case "refresh_token":
		s.refreshGrant(w, r, req)
	}
}

func (s *OAuthService) passwordGrant(w http.ResponseWriter, r *http.Request, req tokenRequest) {
	if req.Email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "email and password required")
		return
	}

	access, refresh, err := s.issuer.PasswordGrant(r.Context(), req.Email, req.Password, req.ClientID, req.Scope)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.logger.Warn("Password grant denied", "client_id", req.ClientID)
			writeMessage(w, http.StatusBadRequest, auth.ErrInvalidCredentials.Error())
			return
		}
		s.logger.Error("Password grant failed", "client_id", req.ClientID, "error", err)
		writeError(w, err)
		return
	}

	s.logger.Info("Password grant issued", "user_id", access.UserID, "client_id", req.ClientID)
	s.writeTokenPair(w, access, refresh)
}

func (s *OAuthService) refreshGrant(w http.ResponseWriter, r *http.Request, req tokenRequest) {
	if req.RefreshToken == "" {
		writeMessage(w, http.StatusBadRequest, "refresh_token required")
		return
	}

	access, refresh, err := s.issuer.RefreshGrant(r.Context(), req.RefreshToken, req.ClientID)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			s.logger.Warn("Refresh grant denied", "client_id", req.ClientID)
			writeMessage(w, http.StatusBadRequest, "invalid refresh token")
			return
		}
		s.logger.Error("Refresh grant failed", "client_id", req.ClientID, "error", err)
		writeError(w, err)
		return
	}

	s.logger.Info("Refresh grant rotated", "user_id", access.UserID, "client_id", req.ClientID)
	s.writeTokenPair(w, access, refresh)
}

func (s *OAuthService) writeTokenPair(w http.ResponseWriter, access *models.AccessToken, refresh *models.RefreshToken) {
	envelope, err := s.envelopes.Seal(access)
	if err != nil {
		s.logger.Error("Failed to seal envelope", "user_id", access.UserID, "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  envelope,
		TokenType:    "Bearer",
		ExpiresIn:    int64(time.Until(access.ExpiresAt).Seconds()),
		RefreshToken: refresh.ID,
		Scope:        auth.JoinScope(access.Scopes),
	})
}

type registerRequest struct {
	ClientID     string `json:"client_id" validate:"required"`
	ClientSecret string `json:"client_secret" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required"`
	FirstName    string `json:"firstName" validate:"required"`
	LastName     string `json:"lastName" validate:"required"`
}

// Register handles POST /oauth/register, gated on client credentials like
// the grants.
func (s *OAuthService) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.validator.Struct(&req); err != nil {
		writeValidationError(w, err)
		return
	}

	valid, err := s.issuer.ValidateClient(r.Context(), req.ClientID, req.ClientSecret)
	if err != nil {
		writeError(w, err)
		return
	}
	if !valid {
		writeMessage(w, http.StatusUnauthorized, "invalid client credentials")
		return
	}

	if err := auth.ValidatePassword(req.Password); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing != nil {
		writeMessage(w, http.StatusConflict, auth.ErrEmailExists.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("Password hashing failed", "error", err)
		writeError(w, err)
		return
	}

	user := &models.User{
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hash,
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		s.logger.Error("User creation failed", "error", err)
		writeError(w, err)
		return
	}

	s.logger.Info("User registered", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "user registered successfully",
		"userId":  user.ID,
	})
}

// Logout handles POST /oauth/logout: both sides of the caller's token pair
// are revoked, so the access token stops verifying immediately.
func (s *OAuthService) Logout(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "authorization token required")
		return
	}

	if err := s.issuer.Logout(r.Context(), identity.AccessTokenID); err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			writeMessage(w, http.StatusBadRequest, "invalid access token")
			return
		}
		s.logger.Error("Logout failed", "user_id", identity.UserID, "error", err)
		writeError(w, err)
		return
	}

	s.logger.Info("User logged out", "user_id", identity.UserID)
	writeMessage(w, http.StatusOK, "logout successful")
}
