package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/service"
	"smy-nav-backend/internal/storage"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type InvoiceHandler struct {
	invoiceSvc service.InvoiceService
	limits     storage.Limits
	validate   *Validator
	resp       Responder
}

func NewInvoiceHandler(invoiceSvc service.InvoiceService, limits storage.Limits, v *Validator, resp Responder) *InvoiceHandler {
	return &InvoiceHandler{invoiceSvc: invoiceSvc, limits: limits, validate: v, resp: resp}
}

func invoiceFilter(r *http.Request) (domain.InvoiceFilter, error) {
	q := r.URL.Query()
	f := domain.InvoiceFilter{
		Status:          q.Get("status"),
		PaymentStatus:   q.Get("paymentStatus"),
		TrainingProgram: q.Get("trainingProgram"),
		Search:          strings.TrimSpace(q.Get("search")),
		Page:            queryInt(r, "page", 1),
		Limit:           queryInt(r, "limit", 10),
	}
	if s := q.Get("agencyId"); s != "" {
		id := queryInt(r, "agencyId", 0)
		if id <= 0 {
			return f, &domain.ValidationError{Message: "Invalid agencyId", Fields: map[string]string{"agencyId": "invalid"}}
		}
		agency := int32(id)
		f.AgencyID = &agency
	}
	return f, nil
}

func (h *InvoiceHandler) ListForAgency(w http.ResponseWriter, r *http.Request) {
	f, err := invoiceFilter(r)
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	list, total, summary, err := h.invoiceSvc.ListForAgency(r.Context(), actorOf(r), f)
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	h.resp.OK(w, http.StatusOK, map[string]any{
		"invoices":   list,
		"summary":    summary,
		"pagination": newPagination(f.Page, f.Limit, total),
	})
}

func (h *InvoiceHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	f, err := invoiceFilter(r)
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	list, total, err := h.invoiceSvc.ListAll(r.Context(), f)
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	h.resp.OK(w, http.StatusOK, map[string]any{
		"invoices":   list,
		"pagination": newPagination(f.Page, f.Limit, total),
	})
}

func (h *InvoiceHandler) Export(w http.ResponseWriter, r *http.Request) {
	f, err := invoiceFilter(r)
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := h.invoiceSvc.Export(r.Context(), f, &buf); err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="invoices-%s.xlsx"`, time.Now().Format("20060102")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	inv, err := h.invoiceSvc.Get(r.Context(), actorOf(r), id)
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	h.resp.OK(w, http.StatusOK, map[string]any{"invoice": inv})
}

func (h *InvoiceHandler) UploadProof(w http.ResponseWriter, r *http.Request) {
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
	inv, err := h.invoiceSvc.UploadProof(r.Context(), actorOf(r), id, f, notes)
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	h.resp.OK(w, http.StatusOK, map[string]any{"invoice": inv})
}

type paymentStatusRequest struct {
	PaymentStatus string `json:"paymentStatus" validate:"required,oneof=approved rejected"`
	Notes         string `json:"notes" validate:"omitempty,max=1000"`
}

func (h *InvoiceHandler) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	var req paymentStatusRequest
	if err := h.validate.decode(r, &req); err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	inv, err := h.invoiceSvc.UpdatePaymentStatus(r.Context(), actorOf(r), id, domain.PaymentStatus(req.PaymentStatus), strings.TrimSpace(req.Notes))
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	h.resp.OK(w, http.StatusOK, map[string]any{"invoice": inv})
}

func (h *InvoiceHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	entries, err := h.invoiceSvc.History(r.Context(), actorOf(r), id)
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	h.resp.OK(w, http.StatusOK, map[string]any{"history": entries})
}
