// Package service implements the HTTP handlers over the core: OAuth grant
// endpoints, group/member CRUD, the expense/refund ledger, and balance
// reads with suggested settlements.
package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/reparte/backend/internal/errs"
)

const maxBodyBytes = 1 << 20 // 1 MB

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeMessage writes a plain {"message": ...} response.
func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// writeError maps an error onto the taxonomy's status code. Internal
// failures never leak details to the caller.
func writeError(w http.ResponseWriter, err error) {
	status := errs.Status(err)
	if status == http.StatusInternalServerError {
		writeMessage(w, status, "server error")
		return
	}
	writeMessage(w, status, err.Error())
}

// writeValidationError enumerates every violated field constraint at once
// rather than stopping at the first.
func writeValidationError(w http.ResponseWriter, err error) {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		writeMessage(w, http.StatusBadRequest, "invalid request")
		return
	}

	violations := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		violations = append(violations, fmt.Sprintf("%s: failed %q constraint", fe.Field(), fe.Tag()))
	}
	writeJSON(w, http.StatusBadRequest, map[string]interface{}{
		"message": "validation failed",
		"errors":  violations,
	})
}

// decodeJSON decodes a single JSON object into dst, rejecting unknown
// fields, oversized bodies and trailing content.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed JSON body", errs.ErrValidation)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("%w: body must contain a single JSON object", errs.ErrValidation)
	}
	return nil
}
