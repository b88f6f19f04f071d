package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/logger"
	"smy-nav-backend/internal/security"
	"smy-nav-backend/internal/service"
)

type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Message string     `json:"message,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Details string            `json:"details,omitempty"`
}

type pagination struct {
	CurrentPage  int  `json:"currentPage"`
	TotalPages   int  `json:"totalPages"`
	TotalItems   int  `json:"totalItems"`
	ItemsPerPage int  `json:"itemsPerPage"`
	HasNextPage  bool `json:"hasNextPage"`
	HasPrevPage  bool `json:"hasPrevPage"`
}

func newPagination(page, limit, total int) pagination {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	pages := (total + limit - 1) / limit
	return pagination{
		CurrentPage:  page,
		TotalPages:   pages,
		TotalItems:   total,
		ItemsPerPage: limit,
		HasNextPage:  page < pages,
		HasPrevPage:  page > 1,
	}
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// Responder writes the JSON envelope. Internal error details are only
// exposed outside production.
type Responder struct {
	Production bool
}

func (rs Responder) OK(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func (rs Responder) Message(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: msg})
}

// Fail maps a service error onto its HTTP status.
func (rs Responder) Fail(w http.ResponseWriter, r *http.Request, err error) {
	status, body := rs.classify(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, envelope{Success: false, Error: body})
}

func (rs Responder) classify(err error) (int, *errorBody) {
	var (
		verr     *domain.ValidationError
		conflict *domain.ConflictError
		serr     *domain.StateError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, &errorBody{Message: verr.Message, Fields: verr.Fields}
	case errors.As(err, &conflict):
		return http.StatusBadRequest, &errorBody{Message: conflict.Message}
	case errors.As(err, &serr):
		return http.StatusBadRequest, &errorBody{Message: serr.Error()}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, &errorBody{Message: capitalize(err.Error())}
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, &errorBody{Message: "Invalid credentials"}
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, security.ErrInvalidToken), errors.Is(err, security.ErrExpiredToken):
		return http.StatusUnauthorized, &errorBody{Message: "Not authorized"}
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, &errorBody{Message: "Insufficient permissions"}
	}
	body := &errorBody{Message: "Internal server error"}
	if !rs.Production {
		body.Details = err.Error()
	}
	return http.StatusInternalServerError, body
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
