package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/service"
)

type ScheduleHandler struct {
	scheduleSvc service.ScheduleService
	validate    *Validator
	resp        Responder
}

func NewScheduleHandler(scheduleSvc service.ScheduleService, v *Validator, resp Responder) *ScheduleHandler {
	return &ScheduleHandler{scheduleSvc: scheduleSvc, validate: v, resp: resp}
}

type scheduleRequest struct {
	TrainingProgram string `json:"trainingProgram" validate:"required,program"`
	Name            string `json:"scheduleName" validate:"required,max=255"`
	StartDate       string `json:"startDate" validate:"required"`
	EndDate         string `json:"endDate" validate:"required"`
	Location        string `json:"location" validate:"omitempty,max=255"`
	Instructor      string `json:"instructor" validate:"omitempty,max=255"`
	MaxParticipants int    `json:"maxParticipants" validate:"omitempty,min=1,max=1000"`
	Description     string `json:"description"`
	Status          string `json:"status" validate:"omitempty,oneof=scheduled ongoing completed cancelled"`
}

func (req scheduleRequest) input() (service.ScheduleInput, error) {
	start, err := parseDate("startDate", req.StartDate)
	if err != nil {
		return service.ScheduleInput{}, err
	}
	end, err := parseDate("endDate", req.EndDate)
	if err != nil {
		return service.ScheduleInput{}, err
	}
	return service.ScheduleInput{
		TrainingProgram: req.TrainingProgram,
		Name:            req.Name,
		StartDate:       start,
		EndDate:         end,
		Location:        req.Location,
		Instructor:      req.Instructor,
		MaxParticipants: req.MaxParticipants,
		Description:     req.Description,
		Status:          domain.ScheduleStatus(req.Status),
	}, nil
}

func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	f := domain.ScheduleFilter{
		TrainingProgram: r.URL.Query().Get("trainingProgram"),
		Status:          r.URL.Query().Get("status"),
		Page:            queryInt(r, "page", 1),
		Limit:           queryInt(r, "limit", 10),
	}
	list, total, err := h.scheduleSvc.List(r.Context(), f)
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	h.resp.OK(w, http.StatusOK, map[string]any{
		"schedules":  list,
		"pagination": newPagination(f.Page, f.Limit, total),
	})
}

func (h *ScheduleHandler) Active(w http.ResponseWriter, r *http.Request) {
	list, err := h.scheduleSvc.ActiveForProgram(r.Context(), mux.Vars(r)["program"])
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	h.resp.OK(w, http.StatusOK, map[string]any{"schedules": list})
}

func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	sch, err := h.scheduleSvc.Get(r.Context(), id)
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	h.resp.OK(w, http.StatusOK, map[string]any{"schedule": sch})
}

func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := h.validate.decode(r, &req); err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	sch, err := h.scheduleSvc.Create(r.Context(), actorOf(r), in)
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	h.resp.OK(w, http.StatusCreated, map[string]any{"schedule": sch})
}

func (h *ScheduleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	var req scheduleRequest
	if err := h.validate.decode(r, &req); err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	sch, err := h.scheduleSvc.Update(r.Context(), id, in)
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	h.resp.OK(w, http.StatusOK, map[string]any{"schedule": sch})
}

func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	if err := h.scheduleSvc.Delete(r.Context(), id); err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	h.resp.Message(w, "Schedule deleted successfully")
}

type addParticipantsRequest struct {
	ParticipantIDs []int32 `json:"participantIds" validate:"required,min=1,dive,gt=0"`
}

func (h *ScheduleHandler) AddParticipants(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	var req addParticipantsRequest
	if err := h.validate.decode(r, &req); err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	list, err := h.scheduleSvc.AddParticipants(r.Context(), actorOf(r), id, req.ParticipantIDs)
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	h.resp.OK(w, http.StatusOK, map[string]any{"participants": list})
}

func (h *ScheduleHandler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	list, err := h.scheduleSvc.ListParticipants(r.Context(), id)
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	h.resp.OK(w, http.StatusOK, map[string]any{"participants": list})
}

func (h *ScheduleHandler) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	participantID, err := pathID(r, "participantId")
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	if err := h.scheduleSvc.RemoveParticipant(r.Context(), id, participantID); err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	h.resp.Message(w, "Participant removed from schedule")
}
