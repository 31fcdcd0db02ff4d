// Package errs defines the error taxonomy shared by every layer.
//
// Each category is a sentinel; callers wrap them with context via
// fmt.Errorf("%w: ...") and handlers map them to HTTP status codes with
// Status. Persistence failures surface synchronously everywhere except the
// fire-and-forget balance recompute path, which logs and drops them.
package errs

import (
	"errors"
	"net/http"
)

var (
	// ErrValidation marks malformed or missing input. Caller's fault,
	// never retried.
	ErrValidation = errors.New("invalid request")

	// ErrAuthentication marks a missing, invalid, expired or revoked
	// token. Distinct from ErrAuthorization.
	ErrAuthentication = errors.New("invalid or expired token")

	// ErrAuthorization marks an authenticated caller attempting an
	// operation they are not permitted to perform.
	ErrAuthorization = errors.New("not authorized")

	// ErrNotFound marks a referenced entity that is absent or
	// soft-deleted.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a request inconsistent with current state, such
	// as a split total mismatch or a member outside the group.
	ErrConflict = errors.New("conflict")

	// ErrPersistence marks a downstream storage failure.
	ErrPersistence = errors.New("storage failure")
)

// Status maps an error to its HTTP status code. Unrecognized errors map to
// 500 so unexpected failures never masquerade as client faults.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
