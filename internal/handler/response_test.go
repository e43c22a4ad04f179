package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/autodocwriter/autodoc/internal/apperror"
)

func TestErrorBody(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		kind    string
		message string
	}{
		{"validation", apperror.ValidationFailed("code", "code cannot be empty"), http.StatusBadRequest, "validation_error", "code cannot be empty"},
		{"unauthenticated", apperror.Unauthenticated("no session"), http.StatusUnauthorized, "unauthenticated", "no session"},
		{"not found", apperror.NotFound("documentation", "latest"), http.StatusNotFound, "not_found", ""},
		{"conflict", apperror.Conflict("saved doc", "x"), http.StatusConflict, "conflict", "saved doc conflict with id x"},
		{"upstream keeps backend message", apperror.Upstream(401, "Invalid token"), http.StatusBadGateway, "upstream_error", "Invalid token"},
		{"wrapped upstream", fmt.Errorf("api: fetching: %w", apperror.Upstream(500, "db down")), http.StatusBadGateway, "upstream_error", "db down"},
		{"plain error hides details", errors.New("disk on fire"), http.StatusInternalServerError, "internal_error", "An internal error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := errorBody(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.kind, body.Error)
			if tt.message != "" {
				assert.Equal(t, tt.message, body.Message)
			}
		})
	}
}
