package admin

import (
	"encoding/json"
	"net/http"

	"github.com/shoplift-io/accessgate/internal/apperr"
)

// Standard error codes for API responses.
const (
	// ErrCodeInvalidRequest indicates a malformed request body.
	ErrCodeInvalidRequest = "invalid_request"

	// ErrCodeInvalidCredentials indicates a failed or missing operator login.
	ErrCodeInvalidCredentials = "invalid_credentials"

	// ErrCodeCSRF indicates a missing or mismatched CSRF token.
	ErrCodeCSRF = "csrf_required"

	// ErrCodeValidation indicates missing required fields.
	ErrCodeValidation = "validation_failed"

	// ErrCodeConflict indicates the token is already bound to another session.
	ErrCodeConflict = "conflict"

	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound = "not_found"

	// ErrCodeInternalError indicates a server error.
	ErrCodeInternalError = "internal_error"
)

// APIError is the standard error response format for JSON APIs.
type APIError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// WriteError writes a JSON error response with the given status code, error code, and message.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteErrorWithHint(w, status, code, message, "")
}

// WriteErrorWithHint writes a JSON error response with an optional hint for resolving the error.
func WriteErrorWithHint(w http.ResponseWriter, status int, code, message, hint string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := APIError{
		Error:   code,
		Message: message,
		Hint:    hint,
	}
	// Encoding errors are not critical since headers are already sent
	encErr := json.NewEncoder(w).Encode(resp)
	if encErr != nil {
		_ = encErr
	}
}

// writeAppError maps a service error onto the admin API response. Expected
// outcomes surface their specific message; storage failures are collapsed to
// a generic 500 and logged by the caller.
func (h *Handler) writeAppError(w http.ResponseWriter, err error) {
	switch apperr.CodeOf(err) {
	case apperr.CodeValidation:
		WriteError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case apperr.CodeUnauthorized:
		WriteError(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, err.Error())
	case apperr.CodeConflict:
		WriteError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case apperr.CodeNotFound:
		WriteError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	default:
		h.logger.Error("internal error", "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
	}
}
