package http

import (
	"context"
	"net/http"
	"strings"

	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/service"
	"smy-nav-backend/internal/storage"
)

type PaymentHandler struct {
	paymentSvc service.PaymentService
	limits     storage.Limits
	validate   *Validator
	resp       Responder
}

func NewPaymentHandler(paymentSvc service.PaymentService, limits storage.Limits, v *Validator, resp Responder) *PaymentHandler {
	return &PaymentHandler{paymentSvc: paymentSvc, limits: limits, validate: v, resp: resp}
}

type decisionRequest struct {
	Notes string `json:"notes" validate:"omitempty,max=1000"`
}

// readProof parses the multipart payment_proof upload and its notes.
func readProof(r *http.Request, limits storage.Limits) (*storage.File, string, error) {
	if !isMultipart(r) {
		return nil, "", domain.NewValidationError("Request must be multipart/form-data")
	}
	if err := parseMultipart(r); err != nil {
		return nil, "", err
	}
	fhs := r.MultipartForm.File[domain.FieldPaymentProof]
	if len(fhs) == 0 {
		return nil, "", &domain.ValidationError{
			Message: "Payment proof file is required",
			Fields:  map[string]string{domain.FieldPaymentProof: "required"},
		}
	}
	f, err := limits.Read(domain.FieldPaymentProof, fhs[0])
	if err != nil {
		return nil, "", err
	}
	return f, strings.TrimSpace(r.PostFormValue("notes")), nil
}

func (h *PaymentHandler) UploadProof(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	f, notes, err := readProof(r, h.limits)
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	p, err := h.paymentSvc.UploadProof(r.Context(), actorOf(r), id, f, notes)
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	h.resp.OK(w, http.StatusOK, map[string]any{"participant": p})
}

func (h *PaymentHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.paymentSvc.Approve)
}

func (h *PaymentHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.paymentSvc.Reject)
}

type decideFunc func(ctx context.Context, actor domain.Actor, id int32, notes string) (*domain.Participant, error)

func (h *PaymentHandler) decide(w http.ResponseWriter, r *http.Request, fn decideFunc) {
	id, err := pathID(r, "id")
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	var req decisionRequest
	if err := decodeOptional(r, &req); err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	p, err := fn(r.Context(), actorOf(r), id, strings.TrimSpace(req.Notes))
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	h.resp.OK(w, http.StatusOK, map[string]any{"participant": p})
}

func (h *PaymentHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	entries, err := h.paymentSvc.History(r.Context(), actorOf(r), id)
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	h.resp.OK(w, http.StatusOK, map[string]any{"history": entries})
}
