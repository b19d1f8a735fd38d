// Package server exposes the internal services over a thin JSON HTTP
// surface. Handlers parse requests, call a service, and map its typed
// errors to statuses; all business logic lives below.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tallyhour/tallyhour/internal/apperr"
	"github.com/tallyhour/tallyhour/internal/auth"
)

// Envelope is the standard API response wrapper used across handlers.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// writeJSON writes a success response using the common envelope.
func writeJSON(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(Envelope{Code: status, Message: message, Data: data}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps a service error to an HTTP status and writes it.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindConflict:
		status = http.StatusConflict
	case apperr.KindPrecondition:
		status = http.StatusUnprocessableEntity
	case apperr.KindContention:
		status = http.StatusServiceUnavailable
	default:
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			status = http.StatusUnauthorized
		case errors.Is(err, auth.ErrWeakPassword):
			status = http.StatusBadRequest
		default:
			slog.Error("internal error", "error", err)
			writeJSON(w, status, "internal error", nil)
			return
		}
	}
	writeJSON(w, status, err.Error(), nil)
}

// decodeBody parses a JSON request body into dst.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, "invalid JSON payload", nil)
		return false
	}
	return true
}
