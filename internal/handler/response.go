// Package handler contains the HTTP layer: request decoding, response
// encoding, and the translation of service errors to status codes.
// Handlers hold no business logic — they parse, delegate, and render.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/nahid/snipvault/internal/apperror"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Message string               `json:"message"`
	Errors  []apperror.FieldError `json:"errors,omitempty"`
}

// writeJSON encodes v as the response body with the given status code.
// Encoding failures are logged, not surfaced — the status line has already
// been sent by then.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response failed", "error", err)
	}
}

// writeError maps an error to its HTTP status and renders the standard
// error body. Unrecognized errors become an opaque 500 — internal detail
// never reaches the client.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		writeJSON(w, statusFor(appErr.Err), ErrorResponse{
			Message: appErr.Message,
			Errors:  appErr.Fields,
		})
		return
	}

	slog.Error("unhandled error", "error", err)
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Message: "Internal server error"})
}

func statusFor(sentinel error) int {
	switch {
	case errors.Is(sentinel, apperror.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(sentinel, apperror.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(sentinel, apperror.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(sentinel, apperror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(sentinel, apperror.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON parses the request body into dst. A body that isn't valid
// JSON for dst is a client error, reported as a 400 by the caller.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.ValidationFailed("body", fmt.Sprintf("invalid JSON payload: %v", err))
	}
	return nil
}
