package http

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/storage"
)

// FileHandler serves uploads written by the local storage backend.
type FileHandler struct {
	local *storage.LocalStorage
	resp  Responder
}

func NewFileHandler(local *storage.LocalStorage, resp Responder) *FileHandler {
	return &FileHandler{local: local, resp: resp}
}

func (h *FileHandler) Serve(w http.ResponseWriter, r *http.Request) {
	if h.local == nil {
		h.resp.Fail(w, r, domain.NotFound("file"))
		return
	}
	vars := mux.Vars(r)
	path, err := h.local.Path(vars["folder"] + "/" + vars["file"])
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeFile(w, r, path)
}

// HealthHandler reports process and database liveness.
type HealthHandler struct {
	db          *sql.DB
	environment string
}

func NewHealthHandler(db *sql.DB, environment string) *HealthHandler {
	return &HealthHandler{db: db, environment: environment}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	status, database := http.StatusOK, "connected"
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			status, database = http.StatusServiceUnavailable, "unreachable"
		}
	}
	writeJSON(w, status, envelope{
		Success: status == http.StatusOK,
		Data: map[string]any{
			"status":      http.StatusText(status),
			"database":    database,
			"environment": h.environment,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
		},
	})
}
