package http

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/security"
	"smy-nav-backend/internal/service"
)

func TestResponder_Classify(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", &domain.ValidationError{Message: "Validation failed", Fields: map[string]string{"nik": "required"}}, http.StatusBadRequest, "Validation failed"},
		{"conflict", &domain.ConflictError{Message: "NIK already registered"}, http.StatusBadRequest, "NIK already registered"},
		{"not found", fmt.Errorf("load: %w", domain.NotFound("participant")), http.StatusNotFound, ""},
		{"credentials", service.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
		{"expired token", security.ErrExpiredToken, http.StatusUnauthorized, "Not authorized"},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden, "Insufficient permissions"},
		{"internal", errors.New("connection reset"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, body := Responder{}.classify(tc.err)
			assert.Equal(t, tc.status, status)
			if tc.message != "" {
				assert.Equal(t, tc.message, body.Message)
			}
		})
	}

	t.Run("validation fields kept", func(t *testing.T) {
		_, body := Responder{}.classify(&domain.ValidationError{Message: "x", Fields: map[string]string{"email": "invalid"}})
		assert.Equal(t, "invalid", body.Fields["email"])
	})

	t.Run("not found is capitalized", func(t *testing.T) {
		_, body := Responder{}.classify(domain.NotFound("participant"))
		assert.Regexp(t, `^P`, body.Message)
	})

	t.Run("details hidden in production", func(t *testing.T) {
		_, body := Responder{Production: true}.classify(errors.New("pq: relation missing"))
		assert.Empty(t, body.Details)
		_, body = Responder{}.classify(errors.New("pq: relation missing"))
		assert.Equal(t, "pq: relation missing", body.Details)
	})
}

func TestNewPagination(t *testing.T) {
	p := newPagination(2, 10, 25)
	assert.Equal(t, 3, p.TotalPages)
	assert.True(t, p.HasNextPage)
	assert.True(t, p.HasPrevPage)

	p = newPagination(0, 0, 0)
	assert.Equal(t, 1, p.CurrentPage)
	assert.Equal(t, 10, p.ItemsPerPage)
	assert.Equal(t, 0, p.TotalPages)
	assert.False(t, p.HasNextPage)
}
