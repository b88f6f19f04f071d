package http

import (
	"net/http"
	"time"

	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/service"
	"smy-nav-backend/internal/utils"
)

type AuthHandler struct {
	authSvc  service.AuthService
	validate *Validator
	resp     Responder
}

func NewAuthHandler(authSvc service.AuthService, v *Validator, resp Responder) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, validate: v, resp: resp}
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=100,alphanum"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"fullName" validate:"required,min=2,max=255"`
	Role     string `json:"role" validate:"required,oneof=super_admin admin agent"`
	AgencyID *int32 `json:"agencyId" validate:"omitempty,gt=0"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required_without=Email"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required"`
}

type registerParticipantRequest struct {
	FullName        string `json:"fullName" validate:"required,min=2,max=255"`
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone" validate:"required,idphone"`
	BirthDate       string `json:"birthDate" validate:"required"`
	Password        string `json:"password" validate:"required,min=6"`
	TrainingProgram string `json:"trainingProgram" validate:"required,program"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

type updateProfileRequest struct {
	FullName string `json:"fullName" validate:"required,min=2,max=255"`
	Email    string `json:"email" validate:"required,email"`
}

// parseDate accepts YYYY-MM-DD or an RFC 3339 timestamp.
func parseDate(field, s string) (time.Time, error) {
	t, err := utils.ParseDay(s)
	if err != nil {
		return time.Time{}, &domain.ValidationError{Message: "Invalid date", Fields: map[string]string{field: "must be a date (YYYY-MM-DD)"}}
	}
	return t, nil
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := h.validate.decode(r, &req); err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	u, err := h.authSvc.Register(r.Context(), actorOf(r), service.RegisterUserInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Role:     domain.Role(req.Role),
		AgencyID: req.AgencyID,
	})
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	h.resp.OK(w, http.StatusCreated, map[string]any{"user": u})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.validate.decode(r, &req); err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	login := req.Username
	if login == "" {
		login = req.Email
	}
	token, u, err := h.authSvc.Login(r.Context(), login, req.Password)
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	h.resp.OK(w, http.StatusOK, map[string]any{"token": token, "user": u})
}

func (h *AuthHandler) RegisterParticipant(w http.ResponseWriter, r *http.Request) {
	var req registerParticipantRequest
	if err := h.validate.decode(r, &req); err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	birth, err := parseDate("birthDate", req.BirthDate)
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	token, u, p, err := h.authSvc.RegisterParticipant(r.Context(), service.RegisterParticipantInput{
		FullName:        req.FullName,
		Email:           req.Email,
		Phone:           req.Phone,
		BirthDate:       birth,
		Password:        req.Password,
		TrainingProgram: req.TrainingProgram,
	})
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	h.resp.OK(w, http.StatusCreated, map[string]any{"token": token, "user": u, "participant": p})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.authSvc.Me(r.Context(), actorOf(r).UserID)
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	h.resp.OK(w, http.StatusOK, map[string]any{"user": u})
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := h.validate.decode(r, &req); err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	u, err := h.authSvc.UpdateProfile(r.Context(), actorOf(r).UserID, service.UpdateProfileInput{FullName: req.FullName, Email: req.Email})
	if err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Profile updated successfully", Data: map[string]any{"user": u}})
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := h.validate.decode(r, &req); err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	if err := h.authSvc.ChangePassword(r.Context(), actorOf(r).UserID, req.CurrentPassword, req.NewPassword); err != nil {
		h.resp.Fail(w, r, err)
		return
	}
	h.resp.Message(w, "Password updated successfully")
}
