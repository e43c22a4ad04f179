package handler

// RESPONSE HELPERS:
// Every page answers with JSON, and every failure has the same shape:
//
//	{"error": "upstream_error", "message": "Invalid token"}
//
// Page failures are never fatal: the page renders its error state from this
// body and the user retries by reloading.

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/autodocwriter/autodoc/internal/apperror"
	"github.com/autodocwriter/autodoc/internal/middleware"
	"github.com/autodocwriter/autodoc/internal/session"
)

// maxBodyBytes bounds request bodies; pasted playground code is the largest.
const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// headers are gone; only logging is left
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps an error kind to its HTTP status. The message of an
// AppError is shown as is; anything else is reported as an internal error
// without details.
//
//	ErrValidation      → 400
//	ErrUnauthenticated → 401
//	ErrNotFound        → 404
//	ErrConflict        → 409
//	ErrUpstream        → 502 (the backend's own message)
func writeError(w http.ResponseWriter, err error) {
	status, body := errorBody(err)
	writeJSON(w, status, body)
}

func errorBody(err error) (int, ErrorResponse) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		slog.Error("unhandled error", slog.String("error", err.Error()))
		return http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		}
	}

	status := http.StatusInternalServerError
	errorType := "internal_error"

	switch {
	case errors.Is(err, apperror.ErrValidation):
		status, errorType = http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthenticated):
		status, errorType = http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, apperror.ErrNotFound):
		status, errorType = http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		status, errorType = http.StatusConflict, "conflict"
	case errors.Is(err, apperror.ErrUpstream):
		status, errorType = http.StatusBadGateway, "upstream_error"
	}

	return status, ErrorResponse{
		Error:   errorType,
		Message: appErr.Message,
		Field:   appErr.Field,
	}
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return apperror.ValidationFailed("body", "invalid JSON body")
}

// profileOf returns the profile the Profile middleware attached.
func profileOf(r *http.Request) (*session.Profile, error) {
	p, ok := middleware.ProfileFromContext(r.Context())
	if !ok {
		return nil, apperror.Unauthenticated("no browser profile")
	}
	return p, nil
}
