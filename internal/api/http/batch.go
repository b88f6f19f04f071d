package http

import (
	"net/http"

	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/service"
)

type BatchHandler struct {
	batchSvc service.BatchService
	validate *Validator
	resp     Responder
}

func NewBatchHandler(batchSvc service.BatchService, v *Validator, resp Responder) *BatchHandler {
	return &BatchHandler{batchSvc: batchSvc, validate: v, resp: resp}
}

type batchRequest struct {
	TrainingProgram string `json:"trainingProgram" validate:"omitempty,program"`
	Year            int    `json:"year" validate:"omitempty,min=2000,max=2100"`
	MinParticipants int    `json:"minParticipants" validate:"omitempty,min=1"`
	MaxParticipants int    `json:"maxParticipants" validate:"omitempty,min=1"`
}

func (req batchRequest) input() service.BatchInput {
	return service.BatchInput{
		TrainingProgram: req.TrainingProgram,
		Year:            req.Year,
		MinParticipants: req.MinParticipants,
		MaxParticipants: req.MaxParticipants,
	}
}

// batchView adds the derived fill statistics to a batch.
type batchView struct {
	*domain.TrainingBatch
	Stats domain.BatchStats `json:"stats"`
}

func viewBatch(b *domain.TrainingBatch) batchView {
	return batchView{TrainingBatch: b, Stats: b.Stats()}
}

func (h *BatchHandler) List(w http.ResponseWriter, r *http.Request) {
	f := domain.BatchFilter{
		TrainingProgram: r.URL.Query().Get("trainingProgram"),
		Status:          r.URL.Query().Get("status"),
		Year:            queryInt(r, "year", 0),
	}
	list, err := h.batchSvc.List(r.Context(), f)
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	views := make([]batchView, 0, len(list))
	for i := range list {
		views = append(views, viewBatch(&list[i]))
	}
	h.resp.OK(w, http.StatusOK, map[string]any{"batches": views})
}

func (h *BatchHandler) Overview(w http.ResponseWriter, r *http.Request) {
	o, err := h.batchSvc.Overview(r.Context())
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	h.resp.OK(w, http.StatusOK, o)
}

func (h *BatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	b, err := h.batchSvc.Get(r.Context(), id)
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	h.resp.OK(w, http.StatusOK, map[string]any{"batch": viewBatch(b)})
}

func (h *BatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := h.validate.decode(r, &req); err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	b, err := h.batchSvc.Create(r.Context(), req.input())
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	h.resp.OK(w, http.StatusCreated, map[string]any{"batch": viewBatch(b)})
}

func (h *BatchHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	var req batchRequest
	if err := h.validate.decode(r, &req); err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	b, err := h.batchSvc.Update(r.Context(), id, req.input())
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	h.resp.OK(w, http.StatusOK, map[string]any{"batch": viewBatch(b)})
}

func (h *BatchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	if err := h.batchSvc.Delete(r.Context(), id); err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	h.resp.Message(w, "Batch deleted successfully")
}

func (h *BatchHandler) SendToCenter(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	b, moved, err := h.batchSvc.SendToCenter(r.Context(), actorOf(r), id)
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	h.resp.OK(w, http.StatusOK, map[string]any{"batch": viewBatch(b), "participantsMoved": moved})
}
