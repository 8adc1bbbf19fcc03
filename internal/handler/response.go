package handler

// RESPONSE HELPERS:
// These functions standardise how we read JSON requests and send JSON
// responses and errors, so every handler stays a few lines long:
//
//	var req loginRequest
//	if !decodeJSON(w, r, &req) { return }
//	writeJSON(w, http.StatusOK, data)
//	writeError(w, err)
//
// CONSISTENT ERROR FORMAT:
// Every error response from our API has the same shape:
//
//	{"error": "not_found", "message": "expense not found with id abc123"}
//
// Validation errors also name the offending field:
//
//	{"error": "validation_error", "message": "title is required", "field": "title"}

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/expense-ledger/internal/apperror"
	"github.com/sakif/expense-ledger/internal/auth"
)

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 1 << 20

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`           // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"`         // Human-readable description
	Field   string `json:"field,omitempty"` // Set for validation errors
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and the status code must be set BEFORE the body is written.
// Once Encode writes, any header change is silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// The headers are already sent, we can only log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to the appropriate HTTP status code and sends it.
//
// ERROR MAPPING:
//
//	ErrValidation   → 400
//	ErrUnauthorized → 401
//	ErrForbidden    → 403
//	ErrNotFound     → 404
//	ErrConflict     → 409
//	ErrTransient    → 503 (with Retry-After, the client may try again)
//	anything else   → 500 with a generic message
//
// errors.As walks the chain, so service errors wrapped with
// fmt.Errorf("...: %w", appErr) are still recognised.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"
		field := ""

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
			field = appErr.Field
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
			errorType = "unauthorized"
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
			errorType = "forbidden"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
			errorType = "conflict"
		case errors.Is(err, apperror.ErrTransient):
			status = http.StatusServiceUnavailable
			errorType = "unavailable"
			w.Header().Set("Retry-After", "1")
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
			Field:   field,
		})
		return
	}

	// NEVER expose internal error details to the client: the raw message
	// might contain SQL, file paths or other internals.
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// decodeJSON reads the request body into dst. On failure it writes a 400 and
// returns false; the caller just returns.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		message := "request body must be valid JSON"
		if errors.Is(err, io.EOF) {
			message = "request body is required"
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			message = "request body is too large"
		}
		writeError(w, apperror.ValidationFailed("body", message))
		return false
	}
	return true
}

// queryInt parses an optional integer query parameter. A missing value
// yields def; a malformed one is a validation error.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.ValidationFailed(name, name+" must be an integer")
	}
	return n, nil
}

// pageParams reads the shared paging query parameters. Zero values are
// normalised by the service layer.
func pageParams(r *http.Request) (page, limit int, err error) {
	if page, err = queryInt(r, "page", 0); err != nil {
		return 0, 0, err
	}
	if limit, err = queryInt(r, "limit", 0); err != nil {
		return 0, 0, err
	}
	return page, limit, nil
}

// callerID returns the authenticated user's id, writing a 401 when there is none.
func callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return "", false
	}
	return userID, true
}

// identity returns the caller stored by auth.RequireAuth. Handlers behind
// that middleware always have one; a missing identity is answered with 401.
func identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return auth.Identity{}, false
	}
	return id, true
}
