package http

import (
	"net/http"

	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/service"
)

type AgencyHandler struct {
	agencySvc service.AgencyService
	validate  *Validator
	resp      Responder
}

func NewAgencyHandler(agencySvc service.AgencyService, v *Validator, resp Responder) *AgencyHandler {
	return &AgencyHandler{agencySvc: agencySvc, validate: v, resp: resp}
}

type agencyRequest struct {
	Name          string `json:"name" validate:"omitempty,max=255"`
	Code          string `json:"code" validate:"omitempty,max=10"`
	ContactPerson string `json:"contactPerson" validate:"omitempty,max=255"`
	Email         string `json:"email" validate:"omitempty,email"`
	Phone         string `json:"phone" validate:"omitempty,idphone"`
	Address       string `json:"address" validate:"omitempty,max=500"`
	Status        string `json:"status" validate:"omitempty,oneof=active inactive"`
}

func (req agencyRequest) input() service.AgencyInput {
	return service.AgencyInput{
		Name:          req.Name,
		Code:          req.Code,
		ContactPerson: req.ContactPerson,
		Email:         req.Email,
		Phone:         req.Phone,
		Address:       req.Address,
		Status:        domain.AgencyStatus(req.Status),
	}
}

func (h *AgencyHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.agencySvc.List(r.Context(), r.URL.Query().Get("includeInactive") == "true")
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	h.resp.OK(w, http.StatusOK, map[string]any{"agencies": list})
}

func (h *AgencyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	a, err := h.agencySvc.Get(r.Context(), actorOf(r), id)
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	h.resp.OK(w, http.StatusOK, map[string]any{"agency": a})
}

func (h *AgencyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req agencyRequest
	if err := h.validate.decode(r, &req); err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	a, err := h.agencySvc.Create(r.Context(), req.input())
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	h.resp.OK(w, http.StatusCreated, map[string]any{"agency": a})
}

func (h *AgencyHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	var req agencyRequest
	if err := h.validate.decode(r, &req); err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	a, err := h.agencySvc.Update(r.Context(), id, req.input())
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	h.resp.OK(w, http.StatusOK, map[string]any{"agency": a})
}
