package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/service"
	"smy-nav-backend/internal/storage"
)

type ParticipantHandler struct {
	participantSvc service.ParticipantService
	limits         storage.Limits
	validate       *Validator
	resp           Responder
}

func NewParticipantHandler(participantSvc service.ParticipantService, limits storage.Limits, v *Validator, resp Responder) *ParticipantHandler {
	return &ParticipantHandler{participantSvc: participantSvc, limits: limits, validate: v, resp: resp}
}

func (h *ParticipantHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.ParticipantFilter{
		Search:          strings.TrimSpace(q.Get("search")),
		TrainingProgram: q.Get("trainingProgram"),
		Page:            queryInt(r, "page", 1),
		Limit:           queryInt(r, "limit", 10),
	}
	if s := q.Get("status"); s != "" {
		for _, part := range strings.Split(s, ",") {
			st := domain.ParticipantStatus(strings.TrimSpace(part))
			if !st.Valid() {
				h.resp.Fail(w, r, &domain.ValidationError{Message: "Invalid status filter", Fields: map[string]string{"status": string(st)}})
				return
			}
			f.Statuses = append(f.Statuses, st)
		}
	}

	list, total, err := h.participantSvc.List(r.Context(), actorOf(r), f)
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 10
	}
	h.resp.OK(w, http.StatusOK, map[string]any{
		"participants": list,
		"pagination":   newPagination(f.Page, f.Limit, total),
	})
}

func (h *ParticipantHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !isMultipart(r) {
		h.resp.Fail(w, r, domain.NewValidationError("Request must be multipart/form-data"))
		return
	}
	if err := parseMultipart(r); err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	var form participantForm
	form.fromValues(r)
	if err := h.validate.Struct(&form); err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	data, err := form.data()
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	agencyID, err := formInt32(r, "agencyId")
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	docs, err := documents(r, h.limits)
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	proof, err := optionalFile(r, h.limits, domain.FieldPaymentProof)
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}

	p, err := h.participantSvc.Create(r.Context(), actorOf(r), service.CreateParticipantInput{
		ParticipantData: data,
		AgencyID:        agencyID,
		Documents:       docs,
		PaymentProof:    proof,
	})
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	h.resp.OK(w, http.StatusCreated, map[string]any{"participant": p})
}

func (h *ParticipantHandler) AgencySubmission(w http.ResponseWriter, r *http.Request) {
	if !isMultipart(r) {
		h.resp.Fail(w, r, domain.NewValidationError("Request must be multipart/form-data"))
		return
	}
	if err := parseMultipart(r); err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	var form participantForm
	form.fromValues(r)
	if err := h.validate.Struct(&form); err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	data, err := form.data()
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	programs, err := programsValue(r)
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	confirmed := false
	for _, key := range []string{"hasBSTCertificate", "bstCertificateConfirmed"} {
		if v := r.PostFormValue(key); v != "" {
			if confirmed, err = strconv.ParseBool(v); err != nil {
				h.resp.Fail(w, r, &domain.ValidationError{Message: key + " must be a boolean value", Fields: map[string]string{key: "invalid"}})
				return
			}
		}
	}
	agencyID, err := formInt32(r, "agencyId")
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	docs, err := documents(r, h.limits)
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	proof, err := optionalFile(r, h.limits, domain.FieldPaymentProof)
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}

	created, err := h.participantSvc.AgencySubmission(r.Context(), actorOf(r), service.AgencySubmissionInput{
		ParticipantData:         data,
		Programs:                programs,
		BSTCertificateConfirmed: confirmed,
		AgencyID:                agencyID,
		Documents:               docs,
		PaymentProof:            proof,
	})
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	uploaded := make([]string, 0, len(docs))
	for _, d := range docs {
		uploaded = append(uploaded, d.Field)
	}
	summary := map[string]any{
		"trainingPrograms":  programs,
		"totalPrograms":     len(created),
		"documentsUploaded": uploaded,
	}
	if len(created) > 0 {
		summary["registrationNumber"] = created[0].RegistrationNumber
	}
	h.resp.OK(w, http.StatusCreated, map[string]any{"participants": created, "summary": summary})
}

func (h *ParticipantHandler) SelfRegister(w http.ResponseWriter, r *http.Request) {
	var form participantForm
	if isMultipart(r) {
		if err := parseMultipart(r); err != nil {
			h.resp.Fail(w, r, err)
			return
		}
		form.fromValues(r)
		if err := h.validate.Struct(&form); err != nil {
			h.resp.Fail(w, r, err)
			return
		}
	} else if err := h.validate.decode(r, &form); err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	data, err := form.data()
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	p, err := h.participantSvc.SelfRegister(r.Context(), actorOf(r), data)
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	h.resp.OK(w, http.StatusCreated, map[string]any{"participant": p})
}

func (h *ParticipantHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	p, err := h.participantSvc.Get(r.Context(), actorOf(r), id)
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	h.resp.OK(w, http.StatusOK, map[string]any{"participant": p})
}

func (h *ParticipantHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	var form updateForm
	var docs []*storage.File
	if isMultipart(r) {
		if err := parseMultipart(r); err != nil {
			h.resp.Fail(w, r, err)
			return
		}
		form.fromValues(r)
		if err := h.validate.Struct(&form); err != nil {
			h.resp.Fail(w, r, err)
			return
		}
		if docs, err = documents(r, h.limits); err != nil {
			h.resp.Fail(w, r, err)
			return
		}
	} else if err := h.validate.decode(r, &form); err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	in, err := form.input()
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	in.Documents = docs

	p, err := h.participantSvc.Update(r.Context(), actorOf(r), id, in)
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	h.resp.OK(w, http.StatusOK, map[string]any{"participant": p})
}

func (h *ParticipantHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	if err := h.participantSvc.Delete(r.Context(), actorOf(r), id); err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	h.resp.Message(w, "Participant deleted successfully")
}

func (h *ParticipantHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	kind := mux.Vars(r)["kind"]
	if !domain.IsDocumentKind(kind) {
		h.resp.Fail(w, r, &domain.ValidationError{Message: "Unknown document type", Fields: map[string]string{"kind": kind}})
		return
	}
	if !isMultipart(r) {
		h.resp.Fail(w, r, domain.NewValidationError("Request must be multipart/form-data"))
		return
	}
	if err := parseMultipart(r); err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	fhs := r.MultipartForm.File[kind]
	if len(fhs) == 0 {
		fhs = r.MultipartForm.File["file"]
	}
	if len(fhs) == 0 {
		h.resp.Fail(w, r, &domain.ValidationError{Message: "File is required", Fields: map[string]string{kind: "required"}})
		return
	}
	f, err := h.limits.Read(kind, fhs[0])
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	p, err := h.participantSvc.UploadDocument(r.Context(), actorOf(r), id, kind, f)
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	h.resp.OK(w, http.StatusOK, map[string]any{"participant": p})
}

type transitionRequest struct {
	Reason  string `json:"reason" validate:"omitempty,max=1000"`
	BatchID *int32 `json:"batchId" validate:"omitempty,gt=0"`
}

// Transition returns a handler running one workflow action.
func (h *ParticipantHandler) Transition(action domain.TransitionAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			h.resp.Fail(w, r, err)
			return
		}
		var req transitionRequest
		if err := decodeOptional(r, &req); err != nil {
			h.resp.Fail(w, r, err)
			return
		}
		if err := h.validate.Struct(&req); err != nil {
			h.resp.Fail(w, r, err)
			return
		}
		p, err := h.participantSvc.Transition(r.Context(), actorOf(r), id, action, service.TransitionOptions{
			Reason:  strings.TrimSpace(req.Reason),
			BatchID: req.BatchID,
		})
		if err != nil {
			h.resp.Fail(w, r, err)
			return
		}
		h.resp.OK(w, http.StatusOK, map[string]any{"participant": p})
	}
}
