package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"smy-nav-backend/internal/config"
	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/service"
)

type DashboardHandler struct {
	dashboardSvc service.DashboardService
	resp         Responder
}

func NewDashboardHandler(dashboardSvc service.DashboardService, resp Responder) *DashboardHandler {
	return &DashboardHandler{dashboardSvc: dashboardSvc, resp: resp}
}

func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.dashboardSvc.Stats(r.Context(), actorOf(r))
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	h.resp.OK(w, http.StatusOK, st)
}

func (h *DashboardHandler) Activities(w http.ResponseWriter, r *http.Request) {
	acts, err := h.dashboardSvc.Activities(r.Context(), actorOf(r), queryInt(r, "limit", 0))
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	h.resp.OK(w, http.StatusOK, map[string]any{"activities": acts})
}

func (h *DashboardHandler) Progress(w http.ResponseWriter, r *http.Request) {
	pr, err := h.dashboardSvc.Progress(r.Context(), actorOf(r))
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	h.resp.OK(w, http.StatusOK, pr)
}

// CatalogHandler serves the training program catalog.
type CatalogHandler struct {
	catalog config.TrainingCatalog
	resp    Responder
}

func NewCatalogHandler(catalog config.TrainingCatalog, resp Responder) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, resp: resp}
}

func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	h.resp.OK(w, http.StatusOK, map[string]any{"trainingTypes": h.catalog.Programs})
}

func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	p, ok := h.catalog.Get(code)
	if !ok {
		h.resp.Fail(w, r, domain.NotFound("training type"))
		return
	}
	h.resp.OK(w, http.StatusOK, map[string]any{"trainingType": p})
}
