package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/reparte/backend/internal/errs"
	"github.com/reparte/backend/internal/models"
	"github.com/reparte/backend/internal/storage"
)

const memberKey contextKey = "member"

// GetMember extracts the caller's resolved member row from the context.
func GetMember(ctx context.Context) (*models.Member, bool) {
	m, ok := ctx.Value(memberKey).(*models.Member)
	return m, ok
}

// WithMember returns a context carrying the given member. Exposed for
// handler tests.
func WithMember(ctx context.Context, m *models.Member) context.Context {
	return context.WithValue(ctx, memberKey, m)
}

// RequireMember scopes a request to a group: the group ID comes from the
// {groupID} path parameter or the X-Group-ID header, and the authenticated
// user must hold a live member row in that group. The resolved member is
// added to the context for handlers.
func RequireMember(store storage.GroupStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := GetIdentity(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "authorization token required")
				return
			}

			groupID := chi.URLParam(r, "groupID")
			if groupID == "" {
				groupID = r.Header.Get("X-Group-ID")
			}
			if _, err := uuid.Parse(groupID); err != nil {
				writeError(w, http.StatusBadRequest, "missing or malformed group id")
				return
			}

			member, err := store.GetMemberByUser(r.Context(), groupID, identity.UserID)
			if err != nil && !errors.Is(err, errs.ErrNotFound) {
				writeError(w, http.StatusInternalServerError, "server error")
				return
			}
			if member == nil {
				writeError(w, http.StatusForbidden, "not a member of this group")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithMember(r.Context(), member)))
		})
	}
}
